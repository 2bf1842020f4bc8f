package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inconshreveable/log15/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.ngrok.com/ngrok"
	ngrokconfig "golang.ngrok.com/ngrok/config"

	"MoodLab/api"
	"MoodLab/config"
	"MoodLab/db"
	"MoodLab/internal/telemetry"
	"MoodLab/scheduler"
	"MoodLab/utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "moodlab:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := telemetry.Setup(cfg.OTelEnabled, cfg.OTelStdout)
	if err != nil {
		return fmt.Errorf("setting up metrics: %w", err)
	}
	defer shutdownMetrics(context.Background())

	metricsObserver, err := telemetry.NewMetricsObserver(telemetry.Meter())
	if err != nil {
		return fmt.Errorf("creating metrics observer: %w", err)
	}
	observer := telemetry.Multi(telemetry.NewLogObserver(logger), metricsObserver)

	store, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var cipher *utils.Cipher
	if cfg.EncryptionKey != "" {
		if cipher, err = utils.NewCipher(cfg.EncryptionKey); err != nil {
			return err
		}
	} else {
		logger.Warn("ENCRYPTION_KEY not set; bot tokens are stored in plaintext")
	}
	repo := db.NewRepository(store, cipher)

	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	slackClient := api.NewSlackClient(cfg.SlackAPIURL, httpClient)

	dispatcher := api.NewDispatcher(cfg.SlackVerificationToken, repo, slackClient, observer, logger)
	oauth := api.NewOAuthHandler(cfg.SlackClientID, cfg.SlackClientSecret, cfg.RedirectURI(),
		slackClient, repo, observer, logger)

	broadcaster := scheduler.NewBroadcaster(repo, slackClient, observer, logger, cfg.BroadcastConcurrency)
	sched, err := scheduler.New(cfg.BroadcastSchedule, cfg.BroadcastTimezone, broadcaster, logger)
	if err != nil {
		return err
	}
	sched.Start()

	srv := &http.Server{
		Handler:           otelhttp.NewHandler(SetupRouter(dispatcher, oauth), "moodlab"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := listen(ctx, cfg, logger)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "err", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("http server: %w", err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("scheduler: %w", err))
	}
	return shutdownErr
}

// listen opens the local port, or an ngrok tunnel when NGROK_ENABLED is set
// so Slack can reach a development machine.
func listen(ctx context.Context, cfg *config.Config, logger log15.Logger) (net.Listener, error) {
	if !cfg.NgrokEnabled {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
		if err != nil {
			return nil, fmt.Errorf("listening on port %d: %w", cfg.Port, err)
		}
		logger.Info("Server running", "port", cfg.Port)
		return ln, nil
	}

	var opts []ngrokconfig.HTTPEndpointOption
	if cfg.NgrokDomain != "" {
		opts = append(opts, ngrokconfig.WithDomain(cfg.NgrokDomain))
	}
	tun, err := ngrok.Listen(ctx, ngrokconfig.HTTPEndpoint(opts...), ngrok.WithAuthtokenFromEnv())
	if err != nil {
		return nil, fmt.Errorf("opening ngrok tunnel: %w", err)
	}
	logger.Info("Server running behind ngrok", "url", tun.URL())
	return tun, nil
}
