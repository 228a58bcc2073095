package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagLastEvent(t *testing.T) {
	opts := testOpts(t)

	_, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T14:00:00Z", "work")
	require.NoError(t, err)

	out, err := execute(t, NewTagCommand(opts), "last", "billable", "client-a")
	require.NoError(t, err)
	assert.Contains(t, out, "Tagged event")

	out, err = execute(t, NewLogCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "billable")
	assert.Contains(t, out, "client-a")
	assert.Contains(t, out, "work")
}

func TestTagUnknownEvent(t *testing.T) {
	opts := testOpts(t)

	_, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T14:00:00Z")
	require.NoError(t, err)

	out, err := execute(t, NewTagCommand(opts), "deadbeef", "work")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no such event")
}

func TestTagByRefPrefix(t *testing.T) {
	opts := testOpts(t)

	_, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T14:00:00Z")
	require.NoError(t, err)

	// A single event means any prefix of its ref is unambiguous. The
	// empty prefix matches it too, but exercise a real one.
	out, err := execute(t, NewLogCommand(opts))
	require.NoError(t, err)
	ref := out[len("2019-07-24T14:00:00Z")+2 : len("2019-07-24T14:00:00Z")+10]

	_, err = execute(t, NewTagCommand(opts), ref, "work")
	require.NoError(t, err)

	out, err = execute(t, NewLogCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "work")
}

func TestUntagRemovesTag(t *testing.T) {
	opts := testOpts(t)

	_, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T14:00:00Z", "work", "billable")
	require.NoError(t, err)

	out, err := execute(t, NewUntagCommand(opts), "last", "billable")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed tag")

	out, err = execute(t, NewLogCommand(opts))
	require.NoError(t, err)
	assert.NotContains(t, out, "billable")
	assert.Contains(t, out, "work")
}

func TestUntagMissingTag(t *testing.T) {
	opts := testOpts(t)

	_, err := execute(t, NewStartCommand(opts), "--at", "2019-07-24T14:00:00Z", "work")
	require.NoError(t, err)

	out, err := execute(t, NewUntagCommand(opts), "last", "billable")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "not set on event")
}
