package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEmpty(t *testing.T) {
	opts := testOpts(t)

	out, err := execute(t, NewLogCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "No events recorded.")
}

func TestLogOrdersByStart(t *testing.T) {
	opts := testOpts(t)

	_, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T16:00:00Z", "late")
	require.NoError(t, err)
	_, err = execute(t, NewStartCommand(opts), "--at", "2019-07-24T14:00:00Z", "early")
	require.NoError(t, err)

	out, err := execute(t, NewLogCommand(opts))
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "early"), strings.Index(out, "late"))
}

func TestLogRange(t *testing.T) {
	opts := testOpts(t)

	for _, at := range []string{
		"2019-07-24T14:00:00Z",
		"2019-07-24T16:00:00Z",
		"2019-07-24T18:00:00Z",
	} {
		_, err := execute(t, NewStartCommand(opts), "--at", at)
		require.NoError(t, err)
	}

	out, err := execute(t, NewLogCommand(opts),
		"--from", "2019-07-24T15:00:00Z", "--to", "2019-07-24T18:00:00Z")
	require.NoError(t, err)
	assert.NotContains(t, out, "14:00:00")
	assert.Contains(t, out, "16:00:00")
	assert.NotContains(t, out, "18:00:00")
}

func TestLogReversedRange(t *testing.T) {
	opts := testOpts(t)

	for _, at := range []string{
		"2019-07-24T14:00:00Z",
		"2019-07-24T16:00:00Z",
		"2019-07-24T18:00:00Z",
	} {
		_, err := execute(t, NewStartCommand(opts), "--at", at)
		require.NoError(t, err)
	}

	out, err := execute(t, NewLogCommand(opts),
		"--from", "2019-07-24T18:00:00Z", "--to", "2019-07-24T14:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "No events recorded.")
}

func TestLogJSON(t *testing.T) {
	opts := testOpts(t)
	opts.Format = "json"

	_, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T14:00:00Z", "work")
	require.NoError(t, err)

	out, err := execute(t, NewLogCommand(opts))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	rows, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 1)
	row, ok := rows[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2019-07-24T14:00:00Z", row["start"])
}
