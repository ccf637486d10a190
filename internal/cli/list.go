package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/depres/internal/ir"
	"github.com/roach88/depres/internal/registry"
)

// FunctorListing is one row of the functor listing.
type FunctorListing struct {
	Module       string   `json:"module"`
	Version      string   `json:"version"`
	Function     string   `json:"function"`
	Capability   string   `json:"capability"`
	Type         string   `json:"type"`
	Dependencies int      `json:"dependencies"`
	BackendReqs  int      `json:"backend_reqs"`
	Models       []string `json:"models,omitempty"`
}

// BackendListing is one row of the backend function listing.
type BackendListing struct {
	Backend    string `json:"backend"`
	Version    string `json:"version"`
	Function   string `json:"function"`
	Capability string `json:"capability"`
	Type       string `json:"type"`
	Disabled   bool   `json:"disabled,omitempty"`
}

// ListOutput is the JSON payload of the list command.
type ListOutput struct {
	Functors []FunctorListing `json:"functors"`
	Backends []BackendListing `json:"backends"`
	Models   []string         `json:"models"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list <catalogue-dir>",
		Short:         "List the module functions and backend functions in a catalogue",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			reg, err := loadCatalogue(formatter, args[0])
			if err != nil {
				return err
			}

			out := buildListing(reg)
			if rootOpts.Format == "json" {
				return formatter.Success(out)
			}
			writeListText(cmd, newTextStyles(cmd.OutOrStdout(), rootOpts.NoColor), out)
			return nil
		},
	}
	return cmd
}

// buildListing lists functors by module then function, and backend
// functions by backend, descending version, then function.
func buildListing(reg *registry.Registry) ListOutput {
	out := ListOutput{
		Functors: []FunctorListing{},
		Backends: []BackendListing{},
		Models:   []string{},
	}

	for _, id := range reg.FunctorIDs() {
		f := reg.Functor(id)
		out.Functors = append(out.Functors, FunctorListing{
			Module:       f.Module,
			Version:      f.Version,
			Function:     f.Function,
			Capability:   f.Capability,
			Type:         f.Type,
			Dependencies: len(f.Dependencies),
			BackendReqs:  len(f.BackendReqs),
			Models:       f.AllowedModels,
		})
	}
	sort.SliceStable(out.Functors, func(i, j int) bool {
		a, b := out.Functors[i], out.Functors[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Function < b.Function
	})

	for _, id := range reg.BackendIDs() {
		b := reg.Backend(id)
		out.Backends = append(out.Backends, BackendListing{
			Backend:    b.Backend,
			Version:    b.Version,
			Function:   b.Function,
			Capability: b.Capability,
			Type:       b.Type,
			Disabled:   b.Disabled,
		})
	}
	sort.SliceStable(out.Backends, func(i, j int) bool {
		a, b := out.Backends[i], out.Backends[j]
		if a.Backend != b.Backend {
			return a.Backend < b.Backend
		}
		if c := ir.CompareVersions(a.Version, b.Version); c != 0 {
			return c > 0
		}
		return a.Function < b.Function
	})

	for _, m := range reg.Models() {
		out.Models = append(out.Models, m.Name)
	}
	return out
}

func writeListText(cmd *cobra.Command, st *textStyles, out ListOutput) {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, st.heading.Render("Module functions"))
	rows := make([][]string, 0, len(out.Functors))
	for _, f := range out.Functors {
		models := "all"
		if len(f.Models) > 0 {
			models = strings.Join(f.Models, ", ")
		}
		rows = append(rows, []string{
			f.Module + " " + f.Version,
			f.Function,
			f.Capability,
			f.Type,
			fmt.Sprint(f.Dependencies),
			fmt.Sprint(f.BackendReqs),
			models,
		})
	}
	fmt.Fprintln(w, st.table([]string{"Module", "Function", "Capability", "Type", "Deps", "Backend reqs", "Models"}, rows))

	fmt.Fprintln(w)
	fmt.Fprintln(w, st.heading.Render("Backend functions"))
	rows = make([][]string, 0, len(out.Backends))
	for _, b := range out.Backends {
		status := st.ok.Render("enabled")
		if b.Disabled {
			status = st.muted.Render("disabled")
		}
		rows = append(rows, []string{b.Backend + " " + b.Version, b.Function, b.Capability, b.Type, status})
	}
	fmt.Fprintln(w, st.table([]string{"Backend", "Function", "Capability", "Type", "Status"}, rows))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Models: %s\n", joinLabels(out.Models))
}
