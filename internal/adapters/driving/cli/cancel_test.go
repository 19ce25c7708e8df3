package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loreweave/loreweave/internal/core/domain"
)

func TestCancel_PendingTask(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	_, err := execute(t, "submit", "text", "about to change my mind")
	require.NoError(t, err)

	tasks, err := ingestionService.ListActive(context.Background(), "test-owner")
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	out, err := execute(t, "cancel", tasks[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled task")

	cancelled, err := ingestionService.GetTask(context.Background(), "test-owner", tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, cancelled.Status)
}

func TestCancel_MissingTask(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	_, err := execute(t, "cancel", "no-such-task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	_, err := execute(t, "submit", "text", "cancel me twice")
	require.NoError(t, err)

	tasks, err := ingestionService.ListActive(context.Background(), "test-owner")
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	_, err = execute(t, "cancel", tasks[0].ID)
	require.NoError(t, err)

	_, err = execute(t, "cancel", tasks[0].ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already finished")
}
