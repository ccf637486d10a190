package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/depres/internal/ir"
	"github.com/roach88/depres/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB          string
	Fingerprint string
}

// PassListing is one row of the pass history.
type PassListing struct {
	ID              string   `json:"id"`
	Seq             int64    `json:"seq"`
	Fingerprint     string   `json:"fingerprint"`
	Models          []string `json:"models"`
	ResolverVersion string   `json:"resolver_version"`
	Nodes           int      `json:"nodes"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [pass-id | seq]",
		Short: "Show recorded resolution passes",
		Long: `List the passes recorded with "resolve --db", or show one pass in full.

A numeric argument selects a pass by sequence number; anything else is a
pass ID. "latest" selects the most recent pass.

Examples:
  depres history --db passes.db
  depres history --db passes.db --fingerprint 3fa1...
  depres history --db passes.db 2
  depres history --db passes.db latest --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runHistory(ctx, opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database the passes were recorded in")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "only list passes with this graph fingerprint")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	s, err := store.Open(opts.DB)
	if err != nil {
		_ = formatter.Error("E_STORE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer s.Close()

	if len(args) == 1 {
		return showPass(ctx, formatter, s, args[0], newTextStyles(cmd.OutOrStdout(), opts.NoColor))
	}

	var summaries []store.PassSummary
	if opts.Fingerprint != "" {
		summaries, err = s.PassesWithFingerprint(ctx, opts.Fingerprint)
	} else {
		summaries, err = s.ListPasses(ctx)
	}
	if err != nil {
		_ = formatter.Error("E_STORE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list passes", err)
	}

	listing := make([]PassListing, 0, len(summaries))
	for _, p := range summaries {
		listing = append(listing, PassListing{
			ID:              p.ID,
			Seq:             p.Seq,
			Fingerprint:     p.Fingerprint,
			Models:          p.Models,
			ResolverVersion: p.ResolverVersion,
			Nodes:           p.NodeCount,
		})
	}

	if opts.Format == "json" {
		return formatter.Success(listing)
	}

	w := cmd.OutOrStdout()
	if len(listing) == 0 {
		fmt.Fprintln(w, "No passes recorded.")
		return nil
	}
	rows := make([][]string, 0, len(listing))
	for _, p := range listing {
		rows = append(rows, []string{
			strconv.FormatInt(p.Seq, 10),
			p.ID,
			joinLabels(p.Models),
			strconv.Itoa(p.Nodes),
			shortFingerprint(p.Fingerprint),
		})
	}
	st := newTextStyles(w, opts.NoColor)
	fmt.Fprintln(w, st.table([]string{"Seq", "Pass", "Models", "Nodes", "Fingerprint"}, rows))
	return nil
}

func showPass(ctx context.Context, formatter *OutputFormatter, s *store.Store, ref string, st *textStyles) error {
	var (
		rec ir.PassRecord
		err error
	)
	if ref == "latest" {
		rec, err = s.LatestPass(ctx)
	} else if seq, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		rec, err = s.ReadPassBySeq(ctx, seq)
	} else {
		rec, err = s.ReadPass(ctx, ref)
	}
	if errors.Is(err, sql.ErrNoRows) {
		_ = formatter.Error("E_NOT_FOUND", fmt.Sprintf("no pass %q", ref), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("pass not found: %s", ref))
	}
	if err != nil {
		_ = formatter.Error("E_STORE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read pass", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(rec)
	}

	w := formatter.Writer
	fmt.Fprintln(w, st.heading.Render(fmt.Sprintf("Pass %s (seq %d)", rec.ID, rec.Seq)))
	fmt.Fprintf(w, "Models: %s\nFingerprint: %s\nResolver: %s\n\n", joinLabels(rec.Models), rec.Fingerprint, rec.ResolverVersion)

	labels := make(map[int]string, len(rec.Nodes))
	for _, n := range rec.Nodes {
		labels[n.NodeID] = n.Identity.Label()
	}

	rows := make([][]string, 0, len(rec.Nodes))
	for _, n := range rec.Nodes {
		var nested []string
		for _, id := range n.Nested {
			nested = append(nested, labels[id])
		}
		var providers []string
		for _, e := range rec.Edges {
			if e.Consumer == n.NodeID {
				providers = append(providers, labels[e.Provider])
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(n.Position),
			n.Identity.Label(),
			n.Identity.Quantity().String(),
			joinLabels(providers),
			joinLabels(nested),
		})
	}
	fmt.Fprintln(w, st.table([]string{"#", "Function", "Provides", "Depends on", "Nested"}, rows))

	if len(rec.Backends) > 0 {
		rows = make([][]string, 0, len(rec.Backends))
		for _, b := range rec.Backends {
			rows = append(rows, []string{
				labels[b.NodeID],
				b.Requirement.String(),
				b.Function.Function,
				b.Function.Module + " " + b.Function.Version,
			})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.table([]string{"Function", "Requirement", "Backend function", "Backend"}, rows))
	}
	return nil
}

// shortFingerprint truncates a fingerprint for tabular display.
func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
