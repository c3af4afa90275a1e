// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command asyncpost drives one asynchronous HTTPS POST at a time from an
// interactive console and shows its progress.
//
// Commands are read one per line from standard input:
//
//	c, connect   start an attempt
//	x, cancel    cancel the current attempt
//	r, reset     cancel, then clear the status code and error
//	s, status    show the current attempt
//	q, quit      cancel and exit (also ESC)
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/felixge/fgprof"
	"github.com/gogama/httpasync"
	"github.com/gogama/httpasync/monitor"
	"github.com/gogama/httpasync/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to YAML configuration file")
		host       = flag.String("host", "", "Server host, overrides the config file")
		path       = flag.String("path", "", "Request path, overrides the config file")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
		listen     = flag.String("listen", "", "Metrics and profiling address, e.g. :9090")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	overrideString(&cfg.Host, *host)
	overrideString(&cfg.Path, *path)
	overrideString(&cfg.LogLevel, *logLevel)
	overrideString(&cfg.Listen, *listen)
	if err = cfg.validate(); err != nil {
		return err
	}

	logger := setupLogger(os.Stderr, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = a.ctrl.Close() }()

	if cfg.Listen != "" {
		srv := a.debugServer(cfg.Listen)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Debug server failed", "addr", cfg.Listen, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("Debug server listening", "addr", cfg.Listen)
	}

	a.loop(ctx, os.Stdin)
	return nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setupLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})).With("pid", os.Getpid())
}

// viewBacklog bounds the finished attempts waiting to be drawn.
const viewBacklog = 16

// app is the console's state: one controller plus its observers.
type app struct {
	cfg     *Config
	ctrl    *httpasync.Controller
	rec     *monitor.Recorder
	reg     *prometheus.Registry
	payload []byte
	logger  *slog.Logger
	out     io.Writer
	views   chan httpasync.Snapshot
}

func newApp(cfg *Config, logger *slog.Logger, out io.Writer) (*app, error) {
	proxy, err := cfg.proxyPolicy()
	if err != nil {
		return nil, err
	}
	tlsConfig, err := cfg.tlsConfig()
	if err != nil {
		return nil, err
	}
	payload, err := cfg.payload()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics, err := monitor.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	rec := monitor.NewRecorder()
	handlers := &httpasync.HandlerGroup{}
	rec.Install(handlers)
	metrics.Install(handlers)

	a := &app{
		cfg: cfg,
		ctrl: &httpasync.Controller{
			Transport: &transport.Net{TLSConfig: tlsConfig, Timeouts: cfg.timeouts()},
			Port:      cfg.Port,
			UserAgent: cfg.UserAgent,
			Proxy:     proxy,
			Handlers:  handlers,
			Logger:    logger,
		},
		rec:     rec,
		reg:     reg,
		payload: payload,
		logger:  logger,
		out:     out,
		views:   make(chan httpasync.Snapshot, viewBacklog),
	}
	for _, p := range []httpasync.Phase{httpasync.HeadersDone, httpasync.Error} {
		handlers.PushBack(p, httpasync.HandlerFunc(a.finished))
	}
	return a, nil
}

// finished runs under the Controller's lock, so it only queues s for
// the console loop and never waits on it.
func (a *app) finished(_ httpasync.Phase, s httpasync.Snapshot) {
	select {
	case a.views <- s:
	default:
		a.logger.Debug("View dropped", "attempt", s.ID, "phase", s.Phase)
	}
}

func (a *app) render(s httpasync.Snapshot) {
	fmt.Fprintln(a.out)
	if err := monitor.Render(a.out, s, a.rec.Summary()); err != nil {
		a.logger.Error("Render failed", "error", err)
	}
}

func (a *app) debugServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/fgprof", fgprof.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// A command is one console instruction.
type command int

const (
	cmdUnknown command = iota
	cmdConnect
	cmdCancel
	cmdReset
	cmdStatus
	cmdQuit
)

func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "\x1b") {
		return cmdQuit
	}
	switch strings.ToLower(line) {
	case "c", "connect":
		return cmdConnect
	case "x", "cancel":
		return cmdCancel
	case "r", "reset":
		return cmdReset
	case "s", "status", "":
		return cmdStatus
	case "q", "quit", "exit":
		return cmdQuit
	default:
		return cmdUnknown
	}
}

// exec carries out cmd and reports whether the console should keep
// running.
func (a *app) exec(cmd command) bool {
	switch cmd {
	case cmdConnect:
		ok, err := httpasync.StartHeader(a.ctrl, a.cfg.Host, a.cfg.Path, a.cfg.header(), a.payload)
		if err != nil {
			a.logger.Error("Cannot build request", "error", err)
		} else if !ok && a.ctrl.Phase().Active() {
			fmt.Fprintln(a.out, "attempt already in flight")
		}
	case cmdCancel:
		a.ctrl.Cancel()
		a.render(a.ctrl.Snapshot())
	case cmdReset:
		a.ctrl.Cancel()
		a.ctrl.Reset()
		a.render(a.ctrl.Snapshot())
	case cmdStatus:
		a.render(a.ctrl.Snapshot())
	case cmdQuit:
		a.ctrl.Cancel()
		return false
	default:
		fmt.Fprintln(a.out, "commands: c(onnect) x(cancel) r(eset) s(tatus) q(uit)")
	}
	return true
}

// loop reads commands from in until quit, end of input, or ctx is done,
// and draws each finished attempt queued by the phase handlers. The
// current attempt is always canceled on the way out.
func (a *app) loop(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	defer a.ctrl.Cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-a.views:
			a.render(s)
		case line, ok := <-lines:
			if !ok || !a.exec(parseCommand(line)) {
				return
			}
		}
	}
}
