package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/depres/internal/compiler"
	"github.com/roach88/depres/internal/config"
	"github.com/roach88/depres/internal/registry"
)

// loadCatalogue loads a CUE catalogue and reports the first failure through
// the formatter. Load failures are command errors (exit code 2).
func loadCatalogue(formatter *OutputFormatter, dir string) (*registry.Registry, error) {
	result, errs := compiler.LoadDir(dir, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		code, message := loadErrorDetail(errs[0])
		_ = formatter.Error(code, message, nil)
		return nil, WrapExitError(ExitCommandError, "failed to load catalogue", errs[0])
	}

	formatter.VerboseLog("Loaded %d CUE file(s) from %s: %d module function(s), %d backend function(s), %d model(s)",
		result.FileCount, dir, result.Registry.FunctorCount(), result.Registry.BackendCount(), len(result.Registry.Models()))
	return result.Registry, nil
}

// loadConfig reads the resolution config file. Unreadable or malformed
// configs are command errors.
func loadConfig(formatter *OutputFormatter, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		_ = formatter.Error(compiler.ErrCodeLoadFailed, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	formatter.VerboseLog("Config %s: %d model(s), %d observable(s), %d rule(s)",
		path, len(cfg.Models), len(cfg.Observables), len(cfg.Rules))
	return cfg, nil
}

// loadErrorDetail splits a load error into its code and message.
func loadErrorDetail(err error) (string, string) {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Pos.IsValid() {
			return loadErr.Code, fmt.Sprintf("%s:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Message)
		}
		return loadErr.Code, loadErr.Message
	}
	return compiler.ErrCodeGeneric, err.Error()
}

// newFormatter builds the formatter for a command invocation.
func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut, // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// joinLabels renders a label list for text output.
func joinLabels(labels []string) string {
	if len(labels) == 0 {
		return "-"
	}
	return strings.Join(labels, ", ")
}
