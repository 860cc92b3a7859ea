package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/rsqm/internal/api"
	"github.com/wonny/rsqm/internal/api/handlers"
	"github.com/wonny/rsqm/internal/brain"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `워치리스트 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                          - Health check
  GET  /api/watchlist/{scope}           - 최신 워치리스트 (?format=json|csv|html)
  POST /api/watchlist/{scope}/scan      - 즉시 스캔 (?top_k=15&dry_run=true)
  GET  /api/jobs                        - 스케줄 작업 상태 (--schedule)

Example:
  go run ./cmd/rsqm api
  go run ./cmd/rsqm api --port 8080 --schedule`,
	RunE: runAPIServer,
}

var (
	apiPort     string
	apiSchedule bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: $PORT)")
	apiCmd.Flags().BoolVar(&apiSchedule, "schedule", false, "정기 스캔 스케줄러도 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// 1. Handlers
	watchlist := handlers.NewWatchlistHandler(a.orchestrator, a.runConfig(a.strategy.Universe.Scope), a.log).
		WithCache(a.cache)
	if a.archive != nil {
		watchlist.WithArchive(a.archive)
	}

	// 2. Scheduler (optional), publishing finished scans to the API
	var jobsHandler *handlers.JobsHandler
	if apiSchedule {
		sched, err := a.buildScheduler(nil, func(result *brain.RunResult) {
			watchlist.Publish(context.Background(), result)
		})
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
		jobsHandler = handlers.NewJobsHandler(sched)
	}

	// 3. Router + server
	server := api.New(a.cfg, a.log, api.NewRouter(watchlist, jobsHandler, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", a.cfg.Port))
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return <-errCh
}
