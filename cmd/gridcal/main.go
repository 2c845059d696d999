package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"gridcal/internal/classify"
	"gridcal/internal/config"
	"gridcal/internal/ics"
	appLog "gridcal/internal/log"
	"gridcal/internal/session"
	"gridcal/internal/store"
	"gridcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	debug      bool
}

func main() {
	appLog.Info("gridcal starting", "version", "0.1.0")

	flags := parseFlags()
	appLog.SetDebug(flags.debug)
	defer appLog.Sync()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"flush", conf.FlushCron,
		"redis", conf.Redis.Addr,
	)

	loc := resolveLocationOrLocal(conf.Timezone)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// Durable store; an unreachable store degrades to in-memory
	// persistence instead of refusing to start.
	var st store.Store = store.NewRedis(conf.Redis)
	if err := st.Init(ctx); err != nil {
		appLog.Error("store init failed; running in degraded non-persistent mode", err, "addr", conf.Redis.Addr)
		_ = st.Close()
		st = store.NewMemory()
	}
	defer st.Close()

	classifier := classify.New(conf.HolidayKeywords, conf.WorkKeywords)
	parser := ics.NewParser(classifier, loc)
	fetcher := ics.NewFetcher(conf.ImportCacheDir)

	sess := session.New(parser, fetcher, st)
	if err := sess.Load(ctx); err != nil {
		// The session starts empty but stays usable.
		appLog.Error("failed to load stored events", err)
	}

	// Periodic persistence sweep.
	sched := cron.New()
	if _, err := sched.AddFunc(conf.FlushCron, func() {
		flushCtx, flushCancel := context.WithTimeout(ctx, 30*time.Second)
		defer flushCancel()
		_, _ = sess.Flush(flushCtx)
	}); err != nil {
		appLog.Error("invalid flush schedule, sweep disabled", err, "flush", conf.FlushCron)
	} else {
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, sess, loc).Handler(),
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
	}

	// Final sweep so events whose saves failed get one more chance.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	_, _ = sess.Flush(flushCtx)

	appLog.Info("gridcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/gridcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("invalid timezone, using local", err, "timezone", name)
		return time.Local
	}
	return loc
}
