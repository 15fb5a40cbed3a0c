package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qfilter/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Schemas  []string  `json:"schemas"`
	Errors   []Problem `json:"errors,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

// Problem is one load or validation error.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

func (r ValidationResult) String() string {
	var sb strings.Builder
	if r.Valid {
		fmt.Fprintf(&sb, "✓ %d schema(s) valid: %s", len(r.Schemas), strings.Join(r.Schemas, ", "))
	} else {
		sb.WriteString("✗ Validation failed\n")
		for _, p := range r.Errors {
			if p.Line > 0 {
				fmt.Fprintf(&sb, "\nline %d", p.Line)
			}
			fmt.Fprintf(&sb, "\n  %s: %s\n", p.Code, p.Message)
		}
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "\n! %s", w)
	}
	return sb.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schemas-dir>",
		Short: "Validate CUE schema declarations",
		Long: `Compile every schema declaration in a directory and check the registry:
allow-list paths, relation targets, and default filters.

All errors are reported, not just the first. Relation cycles are
reported as warnings and do not fail validation.`,
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

	loaded, errs := compiler.LoadDir(dir, compiler.LoadModeCollectAll)
	if loaded == nil {
		// directory, file or unification failure; nothing was compiled
		p := toProblem(errs[0])
		return formatter.Fail(ExitCommandError, p.Code, p.Message, nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	result := ValidationResult{
		Valid:   len(errs) == 0,
		Schemas: loaded.Registry.Names(),
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, toProblem(err))
	}
	for _, w := range loaded.Warnings {
		result.Warnings = append(result.Warnings, w.Message)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

func toProblem(err error) Problem {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		p := Problem{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			p.Line = loadErr.Pos.Line()
		}
		return p
	}
	var valErr compiler.ValidationError
	if errors.As(err, &valErr) {
		return Problem{Code: valErr.Code, Message: fmt.Sprintf("%s.%s: %s", valErr.Schema, valErr.Field, valErr.Message)}
	}
	return Problem{Code: compiler.ErrCodeGeneric, Message: err.Error()}
}
