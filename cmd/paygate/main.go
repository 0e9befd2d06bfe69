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

	"github.com/fimlabs/paygate/gateway"
	"github.com/fimlabs/paygate/gateways/meridian"
	"github.com/fimlabs/paygate/gateways/paybridge"
	"github.com/fimlabs/paygate/gateways/stanza"
	"github.com/fimlabs/paygate/internal/config"
	"github.com/fimlabs/paygate/internal/sandbox"
)

const usage = `usage: paygate <command> [flags]

commands:
  purchase, authorize, capture, refund, credit, void, store, unstore, verify
  sandbox    run the simulated provider
`

// transcriptGateway is what every bundled adapter provides: the verb set
// plus access to the captured wire transcript.
type transcriptGateway interface {
	gateway.Gateway
	Transcript() string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	command := os.Args[1]
	if command == "sandbox" {
		runSandbox(cfg, logger)
		return
	}

	if err := runVerb(command, os.Args[2:], cfg, logger); err != nil {
		logger.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func runVerb(command string, args []string, cfg *config.Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	var (
		gatewayName = fs.String("gateway", "stanza", "adapter to use: stanza, meridian, paybridge")
		amount      = fs.String("amount", "", "amount in major units, e.g. 10.99")
		currency    = fs.String("currency", "USD", "ISO currency code")
		cardNumber  = fs.String("card", "", "card number")
		month       = fs.Int("month", 0, "card expiry month")
		year        = fs.Int("year", 0, "card expiry year")
		cvv         = fs.String("cvv", "", "card verification value")
		holder      = fs.String("name", "", "cardholder name")
		token       = fs.String("token", "", "stored token to charge or unstore")
		auth        = fs.String("auth", "", "authorization from a prior call")
		orderID     = fs.String("order", "", "order id")
		idemKey     = fs.String("idempotency-key", "", "idempotency key for safe retries")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	g, err := buildGateway(*gatewayName, cfg)
	if err != nil {
		return err
	}

	opts := gateway.Options{
		OrderID:        *orderID,
		Currency:       *currency,
		IdempotencyKey: *idemKey,
	}

	var instrument gateway.Instrument
	if *token != "" {
		instrument = gateway.Token{Value: *token}
	} else if *cardNumber != "" {
		instrument = gateway.CreditCard{
			Number:            *cardNumber,
			Month:             *month,
			Year:              *year,
			VerificationValue: *cvv,
			HolderName:        *holder,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	resp, err := execute(ctx, g, command, instrument, *amount, *currency, *auth, *token, opts)
	logger.Debug("wire transcript", "transcript", g.Scrub(g.Transcript()))
	if err != nil {
		return err
	}

	printResponse(resp)
	if !resp.Success {
		os.Exit(1)
	}
	return nil
}

func execute(ctx context.Context, g transcriptGateway, command string, instrument gateway.Instrument, amount, currency, auth, token string, opts gateway.Options) (*gateway.Response, error) {
	needsAmount := command == "purchase" || command == "authorize" || command == "capture" || command == "refund" || command == "credit"
	var money gateway.Money
	if needsAmount {
		var err error
		money, err = gateway.ParseMoney(amount, currency)
		if err != nil {
			return nil, err
		}
	}

	switch command {
	case "purchase":
		return g.Purchase(ctx, money, instrument, opts)
	case "authorize":
		return g.Authorize(ctx, money, instrument, opts)
	case "capture":
		return g.Capture(ctx, money, auth, opts)
	case "refund":
		return g.Refund(ctx, money, auth, opts)
	case "credit":
		return g.Credit(ctx, money, instrument, opts)
	case "void":
		return g.Void(ctx, auth, opts)
	case "store":
		return g.Store(ctx, instrument, opts)
	case "unstore":
		return g.Unstore(ctx, token, opts)
	case "verify":
		return g.Verify(ctx, instrument, opts)
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func buildGateway(name string, cfg *config.Config) (transcriptGateway, error) {
	switch name {
	case "stanza":
		return stanza.New(stanza.Config{
			APIKey:     cfg.Stanza.APIKey,
			BaseURL:    cfg.Stanza.BaseURL,
			Timeout:    cfg.Transport.Timeout,
			MaxRetries: cfg.Transport.MaxRetries,
			RetryDelay: cfg.Transport.BaseDelay,
		}, nil), nil
	case "meridian":
		return meridian.New(meridian.Config{
			Login:      cfg.Meridian.Login,
			Password:   cfg.Meridian.Password,
			Endpoint:   cfg.Meridian.Endpoint,
			Timeout:    cfg.Transport.Timeout,
			MaxRetries: cfg.Transport.MaxRetries,
			RetryDelay: cfg.Transport.BaseDelay,
		}, nil), nil
	case "paybridge":
		return paybridge.New(paybridge.Config{
			MerchantID: cfg.Paybridge.MerchantID,
			SecretKey:  cfg.Paybridge.SecretKey,
			Endpoint:   cfg.Paybridge.Endpoint,
			Timeout:    cfg.Transport.Timeout,
			MaxRetries: cfg.Transport.MaxRetries,
			RetryDelay: cfg.Transport.BaseDelay,
		}, nil), nil
	default:
		return nil, fmt.Errorf("unknown gateway %q", name)
	}
}

func printResponse(resp *gateway.Response) {
	status := "DECLINED"
	if resp.Success {
		status = "APPROVED"
	}
	fmt.Printf("%s  %s\n", status, resp.Message)
	if resp.Authorization != "" {
		fmt.Printf("authorization: %s\n", resp.Authorization)
	}
	if resp.ErrorCode != "" {
		fmt.Printf("error code: %s\n", resp.ErrorCode)
	}
	for _, key := range resp.Params.Keys() {
		v, _ := resp.Params.Get(key)
		fmt.Printf("  %s: %s\n", key, v)
	}
	if resp.Reversal != nil {
		fmt.Printf("reversal: success=%v %s\n", resp.Reversal.Success, resp.Reversal.Message)
	}
}

func runSandbox(cfg *config.Config, logger *slog.Logger) {
	ctx := context.Background()

	var store sandbox.Store
	if dsn := cfg.Sandbox.PostgresDSN; dsn != "" {
		pg, err := sandbox.ConnectPG(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
	} else {
		store = sandbox.NewMemStore()
	}

	api := sandbox.NewAPI(sandbox.NewService(store), cfg.Sandbox.APIKey, logger)
	server := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Sandbox.Port,
		Handler: api.Router(),
	}

	go func() {
		logger.Info("sandbox starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down sandbox...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
}
