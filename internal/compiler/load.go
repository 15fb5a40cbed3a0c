package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qfilter/internal/schema"
)

// LoadMode controls how errors are handled during schema loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Load error codes (E001-E099)
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE file unreadable or unparsable
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE unification failed
	ErrCodeNoSchemas   = "E007" // No schema declarations
	ErrCodeCompile     = "E008" // Schema declaration rejected
)

// LoadResult contains the results of loading schemas.
type LoadResult struct {
	Registry  *schema.Registry
	Warnings  []CycleWarning
	CUEValue  cue.Value // The unified CUE value for additional processing
	FileCount int       // Number of CUE files read
}

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDir loads every .cue file under dir into a registry.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schemas directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schemas directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}
	return LoadFiles(files, mode)
}

// LoadFiles compiles the given CUE files, unifies them, and compiles every
// schema declaration into a registry. Registry-level problems (dangling
// relations, bad defaults) are reported as ValidationErrors; relation
// cycles become warnings.
func LoadFiles(files []string, mode LoadMode) (*LoadResult, []error) {
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: "no CUE files given"}}
	}

	ctx := cuecontext.New()
	unified := ctx.CompileString("{}")
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}}
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, []error{toLoadError(formatCUEError(err), ErrCodeLoadFailed, path)}
		}
		unified = unified.Unify(v)
	}
	if err := unified.Validate(); err != nil {
		return nil, []error{toLoadError(formatCUEError(err), ErrCodeBuildFailed, "unify")}
	}

	reg, _ := schema.NewRegistry()
	result := &LoadResult{
		Registry:  reg,
		CUEValue:  unified,
		FileCount: len(files),
	}

	schemasVal := unified.LookupPath(cue.ParsePath("schema"))
	if !schemasVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoSchemas, Message: "no schema declarations found"}}
	}

	iter, err := schemasVal.Fields()
	if err != nil {
		return result, []error{toLoadError(formatCUEError(err), ErrCodeGeneric, "schema")}
	}

	var errs []error
	for iter.Next() {
		s, err := CompileSchema(iter.Value())
		if err == nil {
			err = reg.Register(s)
		}
		if err != nil {
			errs = append(errs, toLoadError(err, ErrCodeCompile, "schema."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
		}
	}

	for _, verr := range Validate(reg) {
		errs = append(errs, verr)
		if mode == LoadModeFailFast {
			return result, errs
		}
	}

	result.Warnings = AnalyzeCycles(reg)
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// toLoadError converts a compiler error to a LoadError with position info.
func toLoadError(err error, code, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    code,
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    code,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
