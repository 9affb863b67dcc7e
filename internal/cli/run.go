package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/Treework/internal/domain"
	"github.com/shaiso/Treework/internal/engine"
	"github.com/shaiso/Treework/internal/graph"
	"github.com/shaiso/Treework/internal/mq"
	"github.com/shaiso/Treework/internal/repo"
	"github.com/shaiso/Treework/internal/scheduler"
	"github.com/shaiso/Treework/internal/steps"
	"github.com/shaiso/Treework/internal/telemetry"
)

// NewRunCmd создаёт команду run: построить граф и выполнить.
func NewRunCmd(outputFn func() *Output) *cobra.Command {
	var (
		every       int
		cronExpr    string
		timeoutSec  int
		stepTimeout int
		metricsAddr string
		amqpURL     string
		withDB      bool
	)

	cmd := &cobra.Command{
		Use:   "run GRAPH_FILE",
		Short: "Build a graph from a JSON spec and execute it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			logger := telemetry.SetupLogger()
			ctx := cmd.Context()

			spec, err := loadSpec(args[0])
			if err != nil {
				return err
			}
			logger = telemetry.WithGraphName(logger, spec.Name)

			// Наблюдатели: метрики всегда, события и история — по флагам.
			observers := graph.MultiObserver{telemetry.NewMetrics()}

			if amqpURL != "" {
				// Топология объявляется хуком и после каждого reconnect.
				conn, err := mq.Dial(mq.ConnConfig{
					URL:         amqpURL,
					Logger:      logger,
					OnReconnect: mq.DeclareTopology,
				})
				if err != nil {
					return fmt.Errorf("connect to RabbitMQ: %w", err)
				}
				defer conn.Close()

				publisher := mq.NewPublisher(conn, logger)
				observers = append(observers, mq.NewEventPublisher(publisher, logger))
			}

			if withDB {
				pool, err := repo.NewPool(ctx)
				if err != nil {
					return fmt.Errorf("connect to database: %w", err)
				}
				defer pool.Close()

				runRepo := repo.NewNodeRunRepo(pool)
				observers = append(observers, repo.NewRecorder(runRepo, logger))
			}

			g, err := engine.Build(spec, engine.BuildConfig{
				Workers:  steps.Workers(steps.DefaultRegistry(), logger, time.Duration(stepTimeout)*time.Second),
				Observer: observers,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				serveMetrics(metricsAddr, logger)
			}

			// Запуск по расписанию: блокируемся до Ctrl-C.
			if every > 0 || cronExpr != "" {
				sched := scheduler.New(scheduler.Config{
					Graph: g,
					Schedule: &domain.Schedule{
						Name:        spec.Name,
						CronExpr:    cronExpr,
						IntervalSec: every,
					},
					Logger:     logger,
					RunTimeout: time.Duration(timeoutSec) * time.Second,
				})

				err := sched.Start(ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			}

			// Однократный запуск.
			runCtx := ctx
			if timeoutSec > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
				defer cancel()
			}

			g.Run()
			if err := g.Wait(runCtx); err != nil {
				return err
			}

			out.NodeStates(g.States())

			if failed := g.Failed(); len(failed) > 0 {
				return fmt.Errorf("graph %q finished with %d failed node(s)", g.Name, len(failed))
			}

			out.Success(fmt.Sprintf("Graph completed: %s", g.Name))
			return nil
		},
	}

	cmd.Flags().IntVar(&every, "every", 0, "Re-run the graph every N seconds")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Re-run the graph on a cron schedule")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "Limit a single run to N seconds")
	cmd.Flags().IntVar(&stepTimeout, "step-timeout", 60, "Default per-step timeout in seconds")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address (e.g. :8080)")
	cmd.Flags().StringVar(&amqpURL, "amqp-url", "", "Publish node events to RabbitMQ at this URL")
	cmd.Flags().BoolVar(&withDB, "with-db", false, "Record run history to PostgreSQL (DB_URL)")

	return cmd
}

// loadSpec читает и валидирует спецификацию графа из файла.
func loadSpec(path string) (*domain.GraphSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}
	return engine.ParseSpec(data)
}

// serveMetrics поднимает HTTP mux с /metrics и /healthz.
func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server error", "error", err)
		}
	}()
}
