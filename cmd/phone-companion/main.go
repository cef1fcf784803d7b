package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/vango-go/vai-companion/pkg/core/conversation"
	"github.com/vango-go/vai-companion/pkg/core/providers/vonage"
	"github.com/vango-go/vai-companion/pkg/gateway/calls"
	"github.com/vango-go/vai-companion/pkg/gateway/config"
	"github.com/vango-go/vai-companion/pkg/gateway/lifecycle"
	"github.com/vango-go/vai-companion/pkg/gateway/monitor"
	gatewayserver "github.com/vango-go/vai-companion/pkg/gateway/server"
	"github.com/vango-go/vai-companion/pkg/gateway/upstream"
)

type phoneDeps struct {
	loadEnv        func() error
	loadConfig     func() (config.Config, error)
	buildStack     func(context.Context, config.Config) (*upstream.Stack, error)
	newCallControl func(config.Config) (calls.CallControl, error)
	listen         func(*http.Server) error
	signalNotify   func(chan<- os.Signal, ...os.Signal)
	signalStop     func(chan<- os.Signal)
}

func defaultPhoneDeps() phoneDeps {
	return phoneDeps{
		loadEnv:    loadDotenv,
		loadConfig: config.LoadFromEnv,
		buildStack: func(ctx context.Context, cfg config.Config) (*upstream.Stack, error) {
			return upstream.Factory{HTTPClient: upstream.NewHTTPClient()}.Build(ctx, cfg)
		},
		newCallControl: newVonageClient,
		listen: func(srv *http.Server) error {
			return srv.ListenAndServe()
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

// loadDotenv loads .env from the working directory when present.
func loadDotenv() error {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func newVonageClient(cfg config.Config) (calls.CallControl, error) {
	opts := []vonage.Option{
		vonage.WithBaseURL(cfg.VonageAPIBaseURL),
		vonage.WithHTTPClient(upstream.NewHTTPClient()),
	}
	if !cfg.CallControlConfigured() {
		return vonage.New("", nil, opts...), nil
	}
	key, err := vonage.LoadPrivateKey(cfg.VonagePrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load vonage private key: %w", err)
	}
	return vonage.New(cfg.VonageApplicationID, key, opts...), nil
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func runServer(ctx context.Context, logger *slog.Logger, deps phoneDeps) error {
	if deps.loadConfig == nil || deps.buildStack == nil || deps.newCallControl == nil || deps.listen == nil {
		return errors.New("missing dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stack, err := deps.buildStack(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Warn("close providers", "error", err)
		}
	}()

	callControl, err := deps.newCallControl(cfg)
	if err != nil {
		return err
	}

	store := conversation.NewStore()
	hub := monitor.NewHub(logger)
	lc := &lifecycle.Lifecycle{}
	ctrl, err := calls.New(calls.Config{
		Store:       store,
		Transcriber: stack.Pipeline,
		Replier:     stack.Generator,
		CallControl: callControl,
		Archive:     conversation.NewCallArchive(cfg.CallArchiveDir),
		BaseURL:     cfg.BaseURL,
		FromNumber:  cfg.VonagePhoneNumber,
		Language:    cfg.Language,
		Monitor:     hub,
		Tracer:      otel.Tracer("vai-companion/calls"),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	gw := gatewayserver.New(cfg, gatewayserver.Deps{
		Calls:     ctrl,
		Sessions:  store,
		Synth:     stack.Pipeline,
		Monitor:   hub,
		Lifecycle: lc,
	}, logger)
	httpSrv := buildHTTPServer(cfg, gw.Handler())

	logger.Info("starting phone companion",
		"addr", cfg.Addr,
		"base_url", cfg.BaseURL,
		"chat_provider", cfg.ChatProvider,
		"call_control", cfg.CallControlConfigured(),
	)
	if cfg.OutboundNumberMissing() {
		logger.Warn("VONAGE_PHONE_NUMBER is not set; outbound calls will fail")
	}

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := deps.listen(httpSrv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("shutdown signal received", "signal", sig.String())
		case <-gctx.Done():
		}

		lc.SetDraining(true)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		if err := lc.WaitTurns(shutdownCtx); err != nil {
			logger.Warn("turns still running at shutdown", "in_flight", lc.InFlight())
		}
		if n := store.Len(); n > 0 {
			logger.Warn("calls in progress at shutdown were not saved", "calls", n)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("phone companion stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps phoneDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if deps.loadEnv != nil {
		if err := deps.loadEnv(); err != nil {
			fmt.Fprintf(stderr, "phone-companion: %v\n", err)
			return 1
		}
	}

	if err := runServer(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "phone-companion: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultPhoneDeps()))
}
