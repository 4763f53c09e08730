package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schoolhealth/schoolhealth/internal/alerts"
	"github.com/schoolhealth/schoolhealth/internal/analysis"
	"github.com/schoolhealth/schoolhealth/internal/api"
	"github.com/schoolhealth/schoolhealth/internal/auth"
	"github.com/schoolhealth/schoolhealth/internal/config"
	"github.com/schoolhealth/schoolhealth/internal/loader"
	"github.com/schoolhealth/schoolhealth/internal/menu"
	"github.com/schoolhealth/schoolhealth/internal/report"
	"github.com/schoolhealth/schoolhealth/internal/store"
	"github.com/schoolhealth/schoolhealth/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file; empty uses built-in defaults")
	input := flag.String("input", "", "school data file (overrides input_file)")
	reportPath := flag.String("report", "", "write the text report to this file (overrides report.text_file)")
	metricsPath := flag.String("metrics", "", "write Prometheus metrics to this file (overrides report.metrics_file)")
	interactive := flag.Bool("interactive", false, "start the interactive menu after the summary")
	serve := flag.Bool("serve", false, "serve the HTTP API and WebSocket stream")
	watchData := flag.Bool("watch", false, "reload the data file whenever it changes")
	noColor := flag.Bool("no-color", false, "disable coloured console output")
	flag.Parse()

	// Console output owns stdout; logs go to stderr.
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Flags win over the config file when set explicitly.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputFile = *input
		case "report":
			cfg.Report.TextFile = *reportPath
		case "metrics":
			cfg.Report.MetricsFile = *metricsPath
		case "interactive":
			cfg.Interactive = *interactive
		case "serve":
			cfg.Server.Enabled = *serve
		case "no-color":
			colored := !*noColor
			cfg.Report.Color = &colored
		}
	})
	level.Set(cfg.SlogLevel())

	slog.Info("schoolhealth starting",
		"config", *configPath,
		"input", cfg.InputFile,
		"serve", cfg.Server.Enabled,
		"watch", *watchData,
		"alert_rules", len(cfg.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	alertEngine, err := alerts.New(cfg.Alerts)
	if err != nil {
		slog.Error("failed to build alert engine", "err", err)
		os.Exit(1)
	}

	console := report.NewConsole(os.Stdout, cfg.Report.ColorEnabled())
	st := store.New()
	opts := analysis.Options{
		PriorityCount:   cfg.Analysis.PriorityCount,
		SuccessfulCount: cfg.Analysis.SuccessfulCount,
	}
	var hub *ws.Hub

	// apply analyses a freshly loaded data set and publishes it everywhere.
	apply := func(loaded *loader.Result) (analysis.Result, bool) {
		if len(loaded.Schools) == 0 {
			return analysis.Result{}, false
		}
		res := analysis.Analyze(loaded.Schools, opts)
		st.Put(res, cfg.InputFile)
		writeReports(cfg.Report, res)
		alertEngine.Evaluate(res)
		if hub != nil {
			hub.Notify()
		}
		return res, true
	}

	loaded, err := loader.Load(cfg.InputFile)
	if err != nil {
		slog.Error("failed to load school data", "err", err)
		console.Error("No data loaded. Please check your input file.")
		os.Exit(1)
	}
	res, ok := apply(loaded)
	if !ok {
		console.Error("No data loaded. Please check your input file.")
		os.Exit(1)
	}

	console.Notice("Loaded %d schools successfully", len(res.Schools))
	console.Summary(res)

	var httpSrv *http.Server
	if cfg.Server.Enabled {
		hub = ws.New(st, alertEngine, cfg.Server.BroadcastInterval)
		go hub.Run(ctx)

		a := cfg.Server.Auth
		protect := auth.APIKey(a.Mode, a.Header, a.Key())

		mux := http.NewServeMux()
		apiHandler := api.New(st, alertEngine)
		mux.Handle("/api/", protect(apiHandler))
		mux.Handle("/metrics", protect(apiHandler))
		mux.Handle("/ws/stream", protect(hub))

		httpSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort, "auth_mode", a.Mode)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server stopped", "err", err)
				cancel()
			}
		}()
	}

	if *watchData {
		go func() {
			err := loader.Watch(ctx, cfg.InputFile, func(loaded *loader.Result) {
				if _, ok := apply(loaded); !ok {
					slog.Warn("reloaded data has no schools, keeping previous analysis", "path", cfg.InputFile)
					return
				}
				slog.Info("analysis refreshed", "path", cfg.InputFile, "version", st.Version())
			})
			if err != nil {
				slog.Error("data watcher stopped", "err", err)
			}
		}()

		if *configPath != "" {
			// Only the log level is applied on config reload.
			go func() {
				if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
					level.Set(updated.SlogLevel())
				}); err != nil {
					slog.Error("config watcher stopped", "err", err)
				}
			}()
		}
	}

	if cfg.Interactive {
		current := func() analysis.Result {
			e, _ := st.Get()
			return e.Result
		}
		if err := menu.New(os.Stdin, console, current).Run(ctx); err != nil {
			slog.Error("menu input failed", "err", err)
		}
		cancel()
	}

	if cfg.Server.Enabled || *watchData {
		<-ctx.Done()
	}

	slog.Info("schoolhealth shutting down")
	if httpSrv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	}
	alertEngine.Wait()
}

// writeReports writes the configured report files. Failures are logged;
// the console summary is still useful without them.
func writeReports(cfg config.ReportConfig, res analysis.Result) {
	if cfg.TextFile != "" {
		if err := report.WriteTextFile(cfg.TextFile, res, time.Now()); err != nil {
			slog.Error("failed to write report", "err", err)
		}
	}
	if cfg.MetricsFile != "" {
		if err := report.WriteMetricsFile(cfg.MetricsFile, res); err != nil {
			slog.Error("failed to write metrics", "err", err)
		}
	}
}
