package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tempus/internal/patch"
)

// RecordError is one validation failure in one patch record.
type RecordError struct {
	File    string `json:"file"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool          `json:"valid"`
	Files  int           `json:"files"`
	Errors []RecordError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <dir>",
		Short: "Validate patch records against the schema",
		Long: `Validate every TOML patch record under a directory.

Each record is checked against the patch schema. All defects across all
files are collected and reported in one pass, so hand-edited logs can be
repaired in a single round.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	files, err := collectRecords(dir)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "collect records", err)
	}
	if len(files) == 0 {
		msg := fmt.Sprintf("no patch records found in %s", dir)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	formatter.VerboseLog("Found %d patch record(s) in %s", len(files), dir)

	var recordErrs []RecordError
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			recordErrs = append(recordErrs, RecordError{File: file, Message: err.Error()})
			continue
		}
		for _, verr := range patch.ValidateDocument(data) {
			var docErr patch.DocumentError
			if errors.As(verr, &docErr) {
				recordErrs = append(recordErrs, RecordError{
					File:    file,
					Path:    docErr.Path,
					Message: docErr.Message,
				})
				continue
			}
			recordErrs = append(recordErrs, RecordError{File: file, Message: verr.Error()})
		}
	}

	if len(recordErrs) > 0 {
		return outputValidationErrors(formatter, len(files), recordErrs)
	}
	return outputValidateSuccess(formatter, len(files))
}

// collectRecords gathers every .toml file under dir, excluding the store's
// own meta file, in sorted order for deterministic reports.
func collectRecords(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory %s not found", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".toml") {
			return nil
		}
		if filepath.Base(path) == "meta.toml" {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func outputValidateSuccess(formatter *OutputFormatter, fileCount int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Files: fileCount})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d record(s) valid\n", fileCount)
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, fileCount int, errs []RecordError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Files: fileCount, Errors: errs},
			Error: &CLIError{
				Code:    ErrCodeValidation,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n", err.File)
		if err.Path != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Path, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s\n\n", err.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
