package cli

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCreatesEvent(t *testing.T) {
	opts := testOpts(t)

	out, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T14:00:00Z", "work", "kernel")
	require.NoError(t, err)
	assert.Contains(t, out, "Started event")

	out, err = execute(t, NewLogCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "2019-07-24T14:00:00Z")
	assert.Contains(t, out, "kernel")
	assert.Contains(t, out, "work")
}

func TestStartJSON(t *testing.T) {
	opts := testOpts(t)
	opts.Format = "json"

	out, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T14:00:00Z", "work")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2019-07-24T14:00:00Z", data["start"])
	assert.NotEmpty(t, data["event"])
}

func TestStartDefaultsToNow(t *testing.T) {
	opts := testOpts(t)
	fixClock(t, time.Date(2019, 7, 24, 14, 0, 0, 0, time.UTC))

	_, err := execute(t, NewStartCommand(opts))
	require.NoError(t, err)

	out, err := execute(t, NewLogCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "2019-07-24T14:00:00Z")
}

func TestStartAppliesDefaultTags(t *testing.T) {
	opts := testOpts(t)
	require.NoError(t, os.WriteFile(opts.ConfigPath, []byte("default_tags: [tracked]\n"), 0o644))

	_, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T14:00:00Z", "work")
	require.NoError(t, err)

	out, err := execute(t, NewLogCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "tracked")
	assert.Contains(t, out, "work")
}

func TestStartRejectsBadTime(t *testing.T) {
	opts := testOpts(t)

	out, err := execute(t, NewStartCommand(opts), "--at", "yesterday-ish")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "unparseable time")
}
