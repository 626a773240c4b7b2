package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/nertrie/pkg/nertrie/store"
	"github.com/cognicore/nertrie/pkg/nertrie/store/sqlite"
)

func newRunsCmd() *cobra.Command {
	var (
		dbPath   string
		runID    string
		limit    int
		grammars bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show batch runs and grammars recorded in a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := sqlite.OpenSQLite(ctx, dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			switch {
			case grammars:
				err = printGrammars(ctx, tw, st)
			case runID != "":
				err = printRun(ctx, tw, st, runID)
			default:
				err = printRuns(ctx, tw, st, limit)
			}
			if err != nil {
				return err
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database (required)")
	cmd.Flags().StringVar(&runID, "id", "", "show the matches of one run")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list, newest first")
	cmd.Flags().BoolVar(&grammars, "grammars", false, "list stored grammars instead of runs")
	cmd.MarkFlagsMutuallyExclusive("id", "grammars")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func printRuns(ctx context.Context, w io.Writer, st store.Store, limit int) error {
	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ID\tGRAMMAR\tSTARTED\tDOCS\tMATCHES")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.Grammar, r.StartedAt.Format(time.RFC3339), r.Docs, r.MatchCount)
	}
	return nil
}

func printRun(ctx context.Context, w io.Writer, st store.Store, id string) error {
	r, err := st.GetRun(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run %s: grammar %s, %d docs, %d matches\n", r.ID, r.Grammar, r.Docs, len(r.Matches))
	fmt.Fprintln(w, "DOC\tSTART\tEND\tTEXT\tIDS")
	for _, m := range r.Matches {
		fmt.Fprintf(w, "%s\t%d\t%d\t%q\t%s\n", m.DocID, m.Start, m.End, m.Text, strings.Join(m.IDs, ","))
	}
	return nil
}

func printGrammars(ctx context.Context, w io.Writer, st store.Store) error {
	names, err := st.Grammars(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "GRAMMAR\tRULES")
	for _, name := range names {
		rules, err := st.Rules(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\n", name, len(rules))
	}
	return nil
}
