package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/knowpilot/internal/backend"
	"github.com/pavelanni/knowpilot/internal/handler"
	appI18n "github.com/pavelanni/knowpilot/internal/i18n"
	"github.com/pavelanni/knowpilot/internal/model"
	"github.com/pavelanni/knowpilot/internal/notify"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "knowpilot",
		Short: "Web client for the KnowPilot course content backend",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `knowpilot --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP web client",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("backend-url", "b", "http://localhost:8000", "KnowPilot backend base URL")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /kp)")
	f.StringP("lang", "l", "en", "Default UI language (en, zh)")
	f.IntP("group-size", "g", 3, "Initial items per group on the contents page")
	f.Int("k", 3, "Initial content group size on the questions page")
	f.Duration("request-timeout", 10*time.Minute, "Upper bound for one generate or clear operation")
	f.Duration("notification-ttl", notify.DefaultTTL, "How long notifications stay visible")
	f.Duration("refresh-interval", 2*time.Second, "Page auto-refresh interval while work is pending")
	f.Bool("secure-cookies", false, "Set Secure flag on cookies")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export filtered and grouped course content as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.StringP("backend-url", "b", "http://localhost:8000", "KnowPilot backend base URL")
	f.String("section", model.SectionAll, "Section filter (all = every section)")
	f.StringP("search", "s", "", "Case-insensitive content search")
	f.StringP("group-size", "g", "3", "Items per group (values below 1 become 1)")
	f.Duration("request-timeout", time.Minute, "Timeout for the content request")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("KNOWPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("knowpilot")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/knowpilot")
	v.AddConfigPath("/etc/knowpilot")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// normalizeBasePath returns "" or a path with a leading and no trailing slash.
func normalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := backend.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	backendURL := v.GetString("backend-url")
	client, err := backend.New(backendURL, backend.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}

	notes := notify.New(notify.WithTTL(v.GetDuration("notification-ttl")))
	defer notes.Close()

	basePath := normalizeBasePath(v.GetString("base-path"))
	cfg := model.AppConfig{
		BasePath:         basePath,
		DefaultGroupSize: v.GetInt("group-size"),
		DefaultK:         v.GetInt("k"),
		RequestTimeout:   v.GetDuration("request-timeout"),
		RefreshInterval:  v.GetDuration("refresh-interval"),
		SecureCookies:    v.GetBool("secure-cookies"),
	}

	h, err := handler.New(client, notes, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A backend that is down at startup is not fatal: the pages show the
	// error state and offer a reload.
	if err := h.Mount(ctx); err != nil {
		slog.Warn("initial load failed", "backend_url", backendURL, "error", err)
	} else {
		slog.Info("backend OK", "url", backendURL)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"backend_url", backendURL,
			"lang", lang,
			"group_size", cfg.DefaultGroupSize,
			"k", cfg.DefaultK,
			"base_path", basePath,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shut down", "error", err)
	}
	// Running generate operations are bounded by request-timeout.
	h.Wait()
	slog.Info("server exited")
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	backendURL := v.GetString("backend-url")
	client, err := backend.New(backendURL)
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration("request-timeout"))
	defer cancel()

	export, err := buildExport(ctx, client, exportParams{
		BackendURL: backendURL,
		Section:    v.GetString("section"),
		Search:     v.GetString("search"),
		GroupSize:  v.GetString("group-size"),
	})
	if err != nil {
		return err
	}
	return writeExport(export, v.GetString("output"))
}
