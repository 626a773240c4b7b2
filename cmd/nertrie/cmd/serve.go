package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/nertrie/internal/logger"
	"github.com/cognicore/nertrie/internal/server"
	"github.com/cognicore/nertrie/internal/watch"
	"github.com/cognicore/nertrie/pkg/nertrie"
	"github.com/cognicore/nertrie/pkg/nertrie/metrics"
)

func newServeCmd() *cobra.Command {
	var (
		f               recognizerFlags
		addr            string
		watchGrammar    bool
		shutdownTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recognition over HTTP",
		Long: "Serve POST /spans (JSON {\"text\"}), POST /markup (HTML), POST /reload,\n" +
			"GET /healthz and GET /metrics. With --watch the grammar file is\n" +
			"recompiled and swapped in when it changes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logger.WithComponent("serve")

			if watchGrammar && strings.Contains(f.grammar, "://") {
				return fmt.Errorf("--watch needs a grammar file, not %s", f.grammar)
			}
			_, rec, err := f.load(ctx)
			if err != nil {
				return err
			}
			load := func(ctx context.Context) (*nertrie.Recognizer, error) {
				_, rec, err := f.load(ctx)
				return rec, err
			}
			srv := server.New(rec, load, metrics.New(nil))

			if watchGrammar {
				w, err := watch.NewWatcher(watch.DefaultDebounce)
				if err != nil {
					return fmt.Errorf("watch grammar: %w", err)
				}
				defer w.Stop()
				err = w.Watch(f.grammar,
					func(path string) {
						log.Info("grammar changed", "path", path)
						_ = srv.Reload(ctx)
					},
					func(err error) { log.Warn("grammar watcher error", "error", err) },
				)
				if err != nil {
					return fmt.Errorf("watch grammar: %w", err)
				}
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					log.Error("server shutdown error", "error", err)
				}
			}()

			log.Info("listening",
				"addr", addr,
				"source", rec.Source(),
				"rules", rec.Rules(),
				"keys", rec.Dictionary().Len(),
				"watch", watchGrammar,
			)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			log.Info("stopped")
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&watchGrammar, "watch", false, "reload the grammar file when it changes")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
	return cmd
}
