package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/nertrie/internal/corpus"
	"github.com/cognicore/nertrie/internal/logger"
	"github.com/cognicore/nertrie/pkg/nertrie"
	"github.com/cognicore/nertrie/pkg/nertrie/grammar"
	"github.com/cognicore/nertrie/pkg/nertrie/htmldoc"
	"github.com/cognicore/nertrie/pkg/nertrie/store"
	"github.com/cognicore/nertrie/pkg/nertrie/store/sqlite"
)

func newBatchCmd() *cobra.Command {
	var (
		f          recognizerFlags
		input      string
		output     string
		dbPath     string
		workers    int
		withMarkup bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Scan a JSONL corpus concurrently",
		Long: "Scan every document of a JSONL corpus ({\"id\", \"text\"} or {\"id\", \"html\"}\n" +
			"per line) and write one JSONL result per document, in input order.\n" +
			"With --db the grammar and the run are recorded in SQLite.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logger.WithComponent("batch")

			rules, rec, err := f.load(ctx)
			if err != nil {
				return err
			}
			docs, err := corpus.LoadFromJSONL(input)
			if err != nil {
				return err
			}

			started := time.Now().UTC()
			results, err := scanAll(ctx, rec, docs, workers, withMarkup)
			if err != nil {
				return err
			}
			finished := time.Now().UTC()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer file.Close()
				w = file
			}
			cw := corpus.NewWriter(w)
			matches := 0
			for _, r := range results {
				if err := cw.Write(r); err != nil {
					return fmt.Errorf("write result: %w", err)
				}
				matches += len(r.Entities)
			}
			log.Info("batch complete",
				"docs", len(docs),
				"matches", matches,
				"workers", workers,
				"took", finished.Sub(started),
			)

			if dbPath == "" {
				return nil
			}
			id, err := saveRun(ctx, dbPath, rec, rules, results, started, finished)
			if err != nil {
				return err
			}
			log.Info("run recorded", "run_id", id, "db", dbPath)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSONL corpus (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "JSONL results file, - for stdout")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to record the run in")
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "documents scanned in parallel")
	cmd.Flags().BoolVar(&withMarkup, "markup", false, "include marked-up HTML for html documents")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// scanAll scans docs on up to workers goroutines sharing rec. The first
// failing document cancels the rest.
func scanAll(ctx context.Context, rec *nertrie.Recognizer, docs []corpus.Doc, workers int, withMarkup bool) ([]corpus.Result, error) {
	results := make([]corpus.Result, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := scanDoc(rec, doc, withMarkup)
			if err != nil {
				return fmt.Errorf("document %s: %w", doc.Key(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func scanDoc(rec *nertrie.Recognizer, doc corpus.Doc, withMarkup bool) (corpus.Result, error) {
	res := corpus.Result{DocID: doc.Key()}
	text := doc.Text
	if doc.HTML != "" {
		d, err := htmldoc.ParseString(doc.HTML)
		if err != nil {
			return res, err
		}
		text = d.Content()
		if withMarkup {
			out, err := rec.Scan(d)
			if err != nil {
				return res, err
			}
			res.Markup = out.(*htmldoc.Document).String()
		}
	}
	spans, err := rec.Matches(text)
	if err != nil {
		return res, err
	}
	res.Entities = corpus.Entities(text, spans)
	return res, nil
}

func saveRun(ctx context.Context, path string, rec *nertrie.Recognizer, rules []grammar.Rule,
	results []corpus.Result, started, finished time.Time) (string, error) {
	st, err := sqlite.OpenSQLite(ctx, path)
	if err != nil {
		return "", err
	}
	defer st.Close()

	if err := st.UpsertRules(ctx, rec.Source(), rules); err != nil {
		return "", fmt.Errorf("store rules: %w", err)
	}

	run := store.Run{
		ID:         store.NewRunID(),
		Grammar:    rec.Source(),
		Options:    rec.Options().ToMap(),
		StartedAt:  started,
		FinishedAt: finished,
		Docs:       len(results),
	}
	for _, r := range results {
		for _, e := range r.Entities {
			run.Matches = append(run.Matches, store.Match{
				DocID: r.DocID,
				Start: e.Start,
				End:   e.End,
				Text:  e.Text,
				IDs:   e.IDs,
			})
		}
	}
	if err := st.SaveRun(ctx, run); err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	return run.ID, nil
}
