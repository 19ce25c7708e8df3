package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loreweave/loreweave/internal/core/domain"
)

func TestTasks_Empty(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	out, err := execute(t, "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks.")
}

func TestTasks_ListsSubmitted(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	_, err := execute(t, "submit", "text", "remember the milk")
	require.NoError(t, err)

	out, err := execute(t, "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "remember the milk")
}

func TestTasks_StatusFilter(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	_, err := execute(t, "submit", "text", "remember the milk")
	require.NoError(t, err)

	out, err := execute(t, "tasks", "--status", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks.")

	tasksStatus = ""
}

func TestTasks_RejectsUnknownStatus(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	_, err := execute(t, "tasks", "--status", "limbo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")

	tasksStatus = ""
}

func TestTasks_JSON(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	out, err := execute(t, "tasks", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "[]")

	tasksJSON = false
}

func TestPayloadSummary(t *testing.T) {
	tests := []struct {
		name    string
		payload domain.Payload
		want    string
	}{
		{
			name:    "short text is quoted",
			payload: domain.Payload{Kind: domain.PayloadText, Text: "hello"},
			want:    `"hello"`,
		},
		{
			name: "long text is truncated",
			payload: domain.Payload{Kind: domain.PayloadText,
				Text: "this inline submission is well over sixty characters long and keeps going"},
			want: `"this inline submission is well over sixty characters long..."`,
		},
		{
			name:    "url",
			payload: domain.Payload{Kind: domain.PayloadURL, URL: "https://example.com"},
			want:    "https://example.com",
		},
		{
			name:    "file",
			payload: domain.Payload{Kind: domain.PayloadFile, FileID: "f-1"},
			want:    "file f-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, payloadSummary(&tt.payload))
		})
	}
}
