package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tempus/internal/testutil"
)

// testOpts returns root options wired to an isolated dir-backend store.
// The config path points inside the temp dir so the host config never
// leaks into tests.
func testOpts(t *testing.T) *RootOptions {
	t.Helper()
	dir := t.TempDir()
	return &RootOptions{
		Format:     "text",
		ConfigPath: filepath.Join(dir, "config.yaml"),
		DataDir:    filepath.Join(dir, "data"),
		Backend:    "dir",
	}
}

// execute runs a command with the given args and captures stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// fixClock pins the package clock for the duration of the test.
func fixClock(t *testing.T, at time.Time) *testutil.Clock {
	t.Helper()
	clock := testutil.NewClock(at)
	prev := timeNow
	timeNow = clock.Now
	t.Cleanup(func() { timeNow = prev })
	return clock
}
