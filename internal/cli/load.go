package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/qfilter/internal/compiler"
)

// loadSchemas compiles the schema directory, writing the error response
// and returning an ExitError on failure. Cycle warnings are logged in
// verbose mode.
func loadSchemas(formatter *OutputFormatter, dir string) (*compiler.LoadResult, error) {
	loaded, errs := compiler.LoadDir(dir, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		code, message := compiler.ErrCodeGeneric, errs[0].Error()
		var loadErr *compiler.LoadError
		if errors.As(errs[0], &loadErr) {
			code, message = loadErr.Code, loadErr.Message
		}
		var valErr compiler.ValidationError
		if errors.As(errs[0], &valErr) {
			code, message = valErr.Code, valErr.Error()
		}
		return nil, formatter.Fail(ExitCommandError, code, message, nil)
	}

	formatter.VerboseLog("Loaded %d schema(s) from %d file(s) in %s",
		len(loaded.Registry.Names()), loaded.FileCount, dir)
	for _, w := range loaded.Warnings {
		formatter.VerboseLog("warning: %s", w.Message)
	}
	return loaded, nil
}

// commandLogger returns the logger handed to the parser. Diagnostics only
// surface in verbose mode.
func commandLogger(formatter *OutputFormatter) *slog.Logger {
	if !formatter.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
