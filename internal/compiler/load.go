package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/depres/internal/registry"
)

// LoadMode controls how errors are handled during catalogue loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading a catalogue directory.
type LoadResult struct {
	Registry  *registry.Registry
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during catalogue loading.
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

// Load error codes.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeEmpty        = "E007" // No descriptors found
	ErrCodeMissingField = "E010" // Required descriptor field missing
	ErrCodeInvalidValue = "E011" // Field has the wrong CUE kind
	ErrCodeDuplicate    = "E012" // Functor identity registered twice
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "capability", "type", "backend", "dependencies.type", "backend_reqs.type":
		return ErrCodeMissingField
	case "cue":
		return ErrCodeInvalidValue
	default:
		return ErrCodeGeneric
	}
}

// LoadDir loads and compiles the CUE catalogue in dir into a registry.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
//
// Models are registered first, then functors, then backend functions, each
// in CUE declaration order.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalogue directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalogue directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		Registry:  registry.New(),
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	c := &collector{mode: mode}
	c.section(value, "model", 1, func(v cue.Value) error {
		m, err := CompileModel(v)
		if err != nil {
			return err
		}
		result.Registry.AddModel(*m)
		return nil
	})
	c.section(value, "functor", 2, func(v cue.Value) error {
		f, err := CompileFunctor(v)
		if err != nil {
			return err
		}
		if _, err := result.Registry.AddFunctor(*f); err != nil {
			return &LoadError{Code: ErrCodeDuplicate, Message: err.Error(), Pos: v.Pos()}
		}
		return nil
	})
	c.section(value, "backend", 3, func(v cue.Value) error {
		b, err := CompileBackend(v)
		if err != nil {
			return err
		}
		result.Registry.AddBackend(*b)
		return nil
	})
	errs = append(errs, c.errs...)
	if c.stopped {
		return result, errs
	}

	if result.Registry.FunctorCount() == 0 && result.Registry.BackendCount() == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeEmpty, Message: "no functors or backend functions found in catalogue"})
	}

	return result, errs
}

// collector walks catalogue sections, recording errors per mode.
type collector struct {
	mode    LoadMode
	errs    []error
	stopped bool
}

// section visits every leaf depth levels below the named top-level field.
func (c *collector) section(root cue.Value, name string, depth int, visit func(cue.Value) error) {
	if c.stopped {
		return
	}
	v := root.LookupPath(cue.ParsePath(name))
	if !v.Exists() {
		return
	}
	c.walk(v, name, depth, visit)
}

func (c *collector) walk(v cue.Value, label string, depth int, visit func(cue.Value) error) {
	if depth == 0 {
		if err := visit(v); err != nil {
			c.fail(convertCompileError(err, label))
		}
		return
	}
	iter, err := v.Fields()
	if err != nil {
		c.fail(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating %s: %v", label, err), Pos: v.Pos()})
		return
	}
	for iter.Next() {
		if c.stopped {
			return
		}
		c.walk(iter.Value(), label+"."+iter.Label(), depth-1, visit)
	}
}

func (c *collector) fail(err error) {
	c.errs = append(c.errs, err)
	if c.mode == LoadModeFailFast {
		c.stopped = true
	}
}

// FindCUEFiles walks the directory and returns all .cue file paths.
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
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
