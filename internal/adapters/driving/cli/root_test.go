package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestCLI points the runtime at temporary directories and resets
// the shared state afterwards. Command execution then runs against a
// real throwaway store.
func setupTestCLI(t *testing.T) func() {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "loreweave-cli-test-*")
	require.NoError(t, err)

	prevDataDir, prevConfigDir, prevOwner := dataDirFlag, configDirFlag, ownerFlag
	dataDirFlag = tmpDir
	configDirFlag = tmpDir
	ownerFlag = "test-owner"

	return func() {
		if store != nil {
			store.Close()
			store = nil
		}
		configStore = nil
		ingestionService = nil
		dataDirFlag, configDirFlag, ownerFlag = prevDataDir, prevConfigDir, prevOwner
		os.RemoveAll(tmpDir)
	}
}

// execute runs the root command with args and captures output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "loreweave", rootCmd.Use)
}

func TestRootCmd_HasPersistentFlags(t *testing.T) {
	for _, name := range []string{"data-dir", "config-dir", "owner", "verbose"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing flag %s", name)
	}
}

func TestOwner_FlagWins(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	_, err := execute(t, "tasks")
	require.NoError(t, err)

	assert.Equal(t, "test-owner", owner())
}

func TestOwner_FallsBackToConfigThenDefault(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	_, err := execute(t, "tasks")
	require.NoError(t, err)

	ownerFlag = ""
	assert.Equal(t, defaultOwner, owner())

	require.NoError(t, configStore.Set("owner.id", "alice"))
	assert.Equal(t, "alice", owner())
}
