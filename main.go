package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"ratewidget/internal/config"
	"ratewidget/internal/conversion"
	"ratewidget/internal/erapi"
	"ratewidget/internal/ratelimit"
	"ratewidget/internal/rates"
	"ratewidget/internal/server"
	"ratewidget/internal/widget"
)

const usage = `usage: ratewidget [flags] AMOUNT FROM TO
       ratewidget --serve [flags]

flags:
`

func main() {
	// Load configuration
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprint(os.Stdout, usage+config.Usage())
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ratewidget: %v\n", err)
		os.Exit(2)
	}

	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received interrupt signal, shutting down")
		cancel()
	}()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("ratewidget failed", "error", err)
		os.Exit(1)
	}
}

// run wires the store and either serves the widget or converts once.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	ratesFetcher := erapi.NewRatesFetcher(
		rates.Currency(cfg.BaseCurrency),
		cfg.RatesURL,
		erapi.WithTimeout(cfg.FetchTimeout),
		erapi.WithRetry(cfg.FetchRetries),
		erapi.WithLimiter(ratelimit.New(cfg.UpstreamRPS, 1)),
		erapi.WithLogger(logger),
	)
	defer ratesFetcher.Close()

	store := rates.NewStore(ratesFetcher, logger)

	if cfg.Serve {
		return serve(ctx, cfg, store, logger)
	}
	return convertOnce(ctx, cfg.Args, store, stdout)
}

func serve(ctx context.Context, cfg *config.Config, store *rates.Store, logger *slog.Logger) error {
	// The widget renders as loading until the single startup fetch resolves.
	go store.Load(ctx)

	w := widget.New(store, widget.Defaults{
		Source: rates.Currency(cfg.DefaultSource),
		Target: rates.Currency(cfg.DefaultTarget),
	})

	clients := ratelimit.New(cfg.ClientRPS, cfg.ClientBurst)
	go clients.Run(ctx, ratelimit.DefaultCleanupInterval, ratelimit.DefaultIdleTTL)

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(w, store, clients, logger)
	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}

func convertOnce(ctx context.Context, args []string, store *rates.Store, stdout io.Writer) error {
	if len(args) != 3 {
		return fmt.Errorf("expected AMOUNT FROM TO, got %d arguments", len(args))
	}

	amount, ok := conversion.SanitizeAmount(args[0])
	if !ok {
		return fmt.Errorf("invalid amount %q", args[0])
	}
	from := rates.Currency(strings.ToUpper(args[1]))
	to := rates.Currency(strings.ToUpper(args[2]))

	state := store.Load(ctx)
	if state.Status != rates.Ready {
		return fmt.Errorf("exchange rates unavailable: %w", state.Err)
	}

	for _, code := range []rates.Currency{from, to} {
		if _, ok := state.Table.Rate(code); !ok {
			return fmt.Errorf("%w: %s", widget.ErrUnknownCurrency, code)
		}
	}

	fmt.Fprintf(stdout, "%s %s = %s %s\n", amount, from, conversion.Convert(amount, from, to, state.Table), to)
	return nil
}
