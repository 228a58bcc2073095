package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRejectsInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	_, err := execute(t, cmd, "--format", "xml", "log")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootListsSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	out, err := execute(t, cmd, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"start", "tag", "untag", "retime", "log", "chart", "validate"} {
		assert.Contains(t, out, sub)
	}
}

func TestEndToEndOverDirStore(t *testing.T) {
	opts := testOpts(t)

	_, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T09:00:00Z", "work")
	require.NoError(t, err)
	_, err = execute(t, NewStartCommand(opts), "--at", "2019-07-24T12:30:00Z", "lunch")
	require.NoError(t, err)
	_, err = execute(t, NewTagCommand(opts), "last", "food")
	require.NoError(t, err)

	out, err := execute(t, NewLogCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "work")
	assert.Contains(t, out, "lunch")
	assert.Contains(t, out, "food")

	// The store's records are plain TOML and validate as such.
	out, err = execute(t, NewValidateCommand(opts), opts.DataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestEndToEndOverSQLiteStore(t *testing.T) {
	opts := testOpts(t)
	opts.Backend = "sqlite"

	_, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T09:00:00Z", "work")
	require.NoError(t, err)

	out, err := execute(t, NewLogCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "work")
}
