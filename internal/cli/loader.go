package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/tempus/internal/config"
	"github.com/roach88/tempus/internal/patch"
	"github.com/roach88/tempus/internal/repo"
	"github.com/roach88/tempus/internal/store"
	"github.com/roach88/tempus/internal/timesheet"
)

// openRepository resolves the configuration, opens the configured store
// backend and replays the patch log into a repository.
func openRepository(ctx context.Context, opts *RootOptions, formatter *OutputFormatter) (*repo.Repository, func(), error) {
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultPath()
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "resolve config path", err)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}

	var s store.Store
	switch cfg.Backend {
	case config.BackendDir:
		s, err = store.OpenDir(cfg.DataDir)
	case config.BackendSQLite:
		if err = os.MkdirAll(cfg.DataDir, 0o755); err == nil {
			s, err = store.OpenSQLite(filepath.Join(cfg.DataDir, "tempus.db"))
		}
	default:
		return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open store", err)
	}
	formatter.VerboseLog("Opened %s store at %s", cfg.Backend, cfg.DataDir)

	r := repo.New(s)
	if err := r.Load(ctx); err != nil {
		_ = s.Close()
		return nil, nil, WrapExitError(ExitCommandError, "replay patch log", err)
	}

	cleanup := func() { _ = s.Close() }
	return r, cleanup, nil
}

// defaultTags returns the configured default tag set, honoring the same
// flag overrides as openRepository.
func defaultTags(opts *RootOptions) ([]patch.Tag, error) {
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	tags := make([]patch.Tag, 0, len(cfg.DefaultTags))
	for _, t := range cfg.DefaultTags {
		tags = append(tags, patch.Tag(t))
	}
	return tags, nil
}

// Accepted timestamp layouts, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime parses a user-supplied timestamp. Bare clock times like
// "15:04" resolve against today in the local zone.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("15:04", s, time.Local); err == nil {
		now := timeNow()
		return time.Date(now.Year(), now.Month(), now.Day(),
			t.Hour(), t.Minute(), 0, 0, time.Local), nil
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}

// parseDate parses a calendar date in the local zone.
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

// timeNow is replaced in tests that need a fixed clock.
var timeNow = time.Now

// resolveEvent turns a user-supplied event argument into an EventRef.
// "last" (or "current") names the most recently started event; anything
// else must be a full ref or an unambiguous prefix.
func resolveEvent(r *repo.Repository, arg string) (patch.EventRef, error) {
	if arg == "last" || arg == "current" {
		ts, errs := r.Timesheet()
		if len(errs) > 0 {
			return "", fmt.Errorf("timesheet has unresolved conflicts, name the event by ref")
		}
		entries := ts.Events()
		if len(entries) == 0 {
			return "", fmt.Errorf("no events recorded yet")
		}
		return entries[len(entries)-1].Ref, nil
	}

	pt := r.Patched()
	if _, ok := pt.Event(patch.EventRef(arg)); ok {
		return patch.EventRef(arg), nil
	}

	var matches []patch.EventRef
	for _, ref := range pt.EventRefs() {
		if strings.HasPrefix(string(ref), arg) {
			matches = append(matches, ref)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no such event %q", arg)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous event prefix %q matches %d events", arg, len(matches))
	}
}

// flattenOrFail flattens the repository and converts conflict batches into
// an ExitError after printing every conflict.
func flattenOrFail(r *repo.Repository, formatter *OutputFormatter) (*timesheet.Timesheet, error) {
	ts, errs := r.Timesheet()
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		_ = formatter.Error(ErrCodeConflict, fmt.Sprintf("%d merge conflict(s)", len(errs)), msgs)
		return nil, NewExitError(ExitFailure, fmt.Sprintf("%d merge conflict(s)", len(errs)))
	}
	return ts, nil
}
