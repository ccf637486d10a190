package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/depres/internal/backend"
	"github.com/roach88/depres/internal/graph"
	"github.com/roach88/depres/internal/resolver"
	"github.com/roach88/depres/internal/store"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Config  string // resolution config (YAML)
	DB      string // SQLite database to record the pass in
	DOT     string // file to write the Graphviz rendering to
	Metrics bool   // dump resolver metrics after the pass
}

// ResolveOutput is the JSON payload of a successful resolve.
type ResolveOutput struct {
	PassID          string         `json:"pass_id"`
	Seq             int64          `json:"seq,omitempty"`
	Fingerprint     string         `json:"fingerprint"`
	EvaluationOrder []string       `json:"evaluation_order"`
	PrintTargets    []string       `json:"print_targets"`
	Snapshot        map[string]any `json:"snapshot"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <catalogue-dir>",
		Short: "Resolve a configuration against a catalogue",
		Long: `Run one resolution pass: activate the module functions needed for the
configured observables, bind their backend requirements and print the
execution order.

Exit codes:
  0 - Resolution succeeded
  1 - Resolution failed (unsatisfiable or ambiguous requirement, etc.)
  2 - Command error (catalogue or config could not be loaded, database error)

Examples:
  depres resolve ./catalogue --config scan.yaml
  depres resolve ./catalogue --config scan.yaml --db passes.db
  depres resolve ./catalogue --config scan.yaml --dot graph.dot --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "resolution config file (YAML)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the pass in this SQLite database")
	cmd.Flags().StringVar(&opts.DOT, "dot", "", "write the dependency graph in DOT format to this file")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print resolver metrics in Prometheus text format")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runResolve(ctx context.Context, opts *ResolveOptions, catalogueDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	promReg := prometheus.NewRegistry()
	res, err := resolveOnce(formatter, catalogueDir, opts.Config,
		resolver.WithMetrics(resolver.NewMetrics(promReg)))
	if err != nil {
		if opts.Metrics && GetExitCode(err) == ExitFailure {
			_ = writeMetrics(formatter.GetErrWriter(), promReg)
		}
		return err
	}

	formatter.PassID = res.ID
	out := ResolveOutput{
		PassID:          res.ID,
		EvaluationOrder: res.Labels(res.EvaluationOrder()),
		PrintTargets:    []string{},
		Snapshot:        res.Snapshot(),
	}
	for _, pt := range res.PrintTargets() {
		out.PrintTargets = append(out.PrintTargets, pt.Label)
	}
	if out.Fingerprint, err = res.Fingerprint(); err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint pass", err)
	}

	if opts.DB != "" {
		seq, err := recordPass(ctx, opts.DB, res)
		if err != nil {
			_ = formatter.Error("E_STORE", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record pass", err)
		}
		out.Seq = seq
		formatter.VerboseLog("Recorded pass %s as seq %d in %s", res.ID, seq, opts.DB)
	}

	if opts.DOT != "" {
		if err := writeDOTFile(opts.DOT, res); err != nil {
			_ = formatter.Error("E_DOT", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write graph", err)
		}
		formatter.VerboseLog("Wrote graph to %s", opts.DOT)
	}

	if opts.Format == "json" {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		writeResolveText(cmd.OutOrStdout(), newTextStyles(cmd.OutOrStdout(), opts.NoColor), res, out)
	}

	if opts.Metrics {
		if err := writeMetrics(formatter.GetErrWriter(), promReg); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}
	return nil
}

// resolveOnce loads the catalogue and config and runs one pass. Resolution
// failures are reported through the formatter and returned as exit code 1.
func resolveOnce(formatter *OutputFormatter, catalogueDir, configPath string, extra ...resolver.Option) (*resolver.Result, error) {
	reg, err := loadCatalogue(formatter, catalogueDir)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(formatter, configPath)
	if err != nil {
		return nil, err
	}

	opts := append([]resolver.Option{resolver.WithLogger(newLogger(formatter.GetErrWriter(), formatter.Verbose))}, extra...)
	res, err := resolver.New(reg, cfg, opts...).Resolve()
	if err != nil {
		_ = formatter.ResolutionError(err)
		return nil, WrapExitError(ExitFailure, "resolution failed", err)
	}
	return res, nil
}

func recordPass(ctx context.Context, dbPath string, res *resolver.Result) (int64, error) {
	rec, err := res.Record()
	if err != nil {
		return 0, err
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	return s.WritePass(ctx, rec)
}

func writeDOTFile(path string, res *resolver.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := res.Graph.WriteDOT(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeMetrics dumps every gathered family in the text exposition format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func writeResolveText(w io.Writer, st *textStyles, res *resolver.Result, out ResolveOutput) {
	fmt.Fprintln(w, st.heading.Render("Resolution pass "+res.ID))
	fmt.Fprintf(w, "Models: %s\n", joinLabels(res.Models))
	if out.Seq > 0 {
		fmt.Fprintf(w, "Recorded as seq %d\n", out.Seq)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, st.heading.Render("Execution order"))
	rows := make([][]string, 0, len(res.Order))
	for i, id := range res.Order {
		n := res.Node(id)
		manager := "-"
		if n.LoopManager != resolver.Terminal {
			manager = res.Label(n.LoopManager)
		}
		printed := ""
		if n.Print {
			printed = "yes"
		}
		rows = append(rows, []string{
			fmt.Sprint(i),
			res.Label(id),
			n.Identity.Quantity().String(),
			n.Identity.Version,
			manager,
			joinLabels(res.Labels(n.Nested)),
			printed,
		})
	}
	fmt.Fprintln(w, st.table([]string{"#", "Function", "Provides", "Version", "Loop manager", "Nested", "Print"}, rows))

	var bindings [][]string
	for _, id := range res.Order {
		for _, b := range res.Node(id).Backends {
			bindings = append(bindings, describeBinding(res, id, b))
		}
	}
	if len(bindings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.heading.Render("Backend bindings"))
		fmt.Fprintln(w, st.table([]string{"Function", "Requirement", "Group", "Backend function", "Backend"}, bindings))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Output evaluation order: %s\n", joinLabels(out.EvaluationOrder))
	fmt.Fprintln(w, st.ok.Render(fmt.Sprintf("✓ %d module function(s) active", len(res.Order))))
}

func describeBinding(res *resolver.Result, node graph.NodeID, b backend.Binding) []string {
	f := res.BackendFunc(b)
	group := b.Group
	if group == "" {
		group = "-"
	}
	return []string{
		res.Label(node),
		b.Requirement.String(),
		group,
		f.Function,
		strings.TrimSpace(f.Backend + " " + f.Version),
	}
}
