package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Sugu/internal/config/client"
	"github.com/NordCoder/Sugu/internal/obs"
	"github.com/NordCoder/Sugu/internal/services/marketplace"
	"github.com/NordCoder/Sugu/internal/session"
)

const usage = `usage: sugu [-config file] <command> [flags]

commands:
  login     -email -password [-remember]   sign in (password may come from SUGU_PASSWORD)
  verify    -phone -otp [-remember]        confirm a registration code and sign in
  whoami                                   show the profile of the signed-in user
  orders                                   list my orders
  send      -listing -text                 send a message about a listing
  watch                                    print new messages until interrupted
  logout                                   end the session
`

func main() {
	os.Exit(run())
}

// run returns the exit code once every deferred cleanup has finished.
func run() int {
	configPath := flag.String("config", os.Getenv("SUGU_CONFIG"), "path to a yaml config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sugu:", err)
		return 1
	}

	l, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sugu:", err)
		return 1
	}
	defer func() { _ = l.Sync() }()

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	} else {
		defer func() { _ = otelShutdown(context.Background()) }()
	}

	store, closeStore, err := initStore(rootCtx, cfg, l)
	if err != nil {
		l.Error("token store", zap.Error(err))
		return 1
	}
	defer closeStore()
	if ok, err := store.Restore(rootCtx); err != nil {
		l.Warn("restore remembered session", zap.Error(err))
	} else if ok {
		l.Debug("remembered session restored")
	}

	events, closeEvents := initEvents(rootCtx, cfg, l)
	defer closeEvents()

	term := &terminal{out: os.Stdout, err: os.Stderr, log: l}
	sess, err := session.New(cfg.AsSessionConfig(), session.Deps{
		Store:     store,
		Base:      session.NewBaseTransport(cfg.AsTransportConfig()),
		Notifier:  term,
		Navigator: term,
		Events:    events,
		Log:       l,
	})
	if err != nil {
		l.Error("session client", zap.Error(err))
		return 1
	}

	app := &app{
		cfg:  cfg,
		log:  l,
		sess: sess,
		mp:   marketplace.New(cfg.API.BaseURL, sess.HTTPClient(), l),
		term: term,
	}
	return app.exec(rootCtx, flag.Arg(0), flag.Args()[1:])
}

// exec runs one command, then drains the session's pending events so a
// forced_logout raised by a failing command still reaches the publisher.
func (a *app) exec(ctx context.Context, cmd string, args []string) int {
	err := a.run(ctx, cmd, args)

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if cerr := a.sess.Close(shCtx); cerr != nil {
		a.log.Warn("session events not drained", zap.Error(cerr))
	}

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	case errors.Is(err, errUsage):
		flag.Usage()
		return 2
	default:
		fmt.Fprintf(os.Stderr, "sugu %s: %v\n", cmd, err)
		return 1
	}
}

// metricsServer is only started by long-running commands.
func (a *app) metricsServer() func() {
	if a.cfg.Server.MetricsAddr == "" {
		return func() {}
	}
	ms := obs.BootstrapMetricsServer(a.cfg.Server.MetricsAddr, nil, a.log)
	return func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = ms.Shutdown(shCtx)
	}
}
