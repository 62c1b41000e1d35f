package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blogs-online/server/internal/auth"
	"github.com/blogs-online/server/internal/config"
	httpapp "github.com/blogs-online/server/internal/http"
	"github.com/blogs-online/server/internal/logging"
	"github.com/blogs-online/server/internal/model"
	"github.com/blogs-online/server/internal/payment"
	"github.com/blogs-online/server/internal/rate"
	"github.com/blogs-online/server/internal/store"
	"github.com/blogs-online/server/internal/store/mongo"
	"github.com/blogs-online/server/internal/store/sqlite"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:   "blogsonline",
		Usage:  "Blogs Online REST server and admin tools",
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server"},
				Usage:   "Run the HTTP server (default)",
				Action:  runServer,
			},
			{
				Name:   "token",
				Usage:  "Issue an access token for an email",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "email", Required: true}},
				Action: cmdToken,
			},
			{
				Name:   "promote",
				Usage:  "Grant the admin role to a registered user",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "email", Required: true}},
				Action: cmdPromote,
			},
			{
				Name:  "seed",
				Usage: "Populate a running server with sample data through the API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Value: "http://localhost:5000", Usage: "server base URL"},
				},
				Action: cmdSeed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServer(c *cli.Context) error {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.TokenSecret == config.DevTokenSecret {
		log.Warn("ACCESS_TOKEN_SECRET is not set; using the development secret")
	}

	st, err := openStore(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	tokens, err := auth.NewService(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	payments := payment.New(cfg.PaymentKey)
	if _, disabled := payments.(payment.Disabled); disabled {
		log.Warn("PAYMENT_SECRET_KEY is not set; payment intents are disabled")
	}

	limiter := rate.NewMemory()
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go limiter.Run(sweepCtx, time.Minute)

	server := httpapp.NewServer(st, tokens, limiter, payments, cfg, log)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.Addr, "store": cfg.Store, "trust_proxy": cfg.TrustProxy}).Info("blogs online listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite, "":
		return sqlite.Open(cfg.DBPath)
	case config.StoreMongo:
		ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown store %q (want %s or %s)", cfg.Store, config.StoreSQLite, config.StoreMongo)
	}
}

func cmdToken(c *cli.Context) error {
	cfg := config.Load()
	tokens, err := auth.NewService(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	token, err := tokens.Issue(c.String("email"))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func cmdPromote(c *cli.Context) error {
	cfg := config.Load()
	st, err := openStore(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	email := c.String("email")
	user, err := st.GetUserByEmail(c.Context, email)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no user registered with email %s", email)
	}
	if err != nil {
		return err
	}
	res, err := st.SetUserRole(c.Context, user.ID, model.RoleAdmin)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		fmt.Printf("%s is already an admin\n", email)
		return nil
	}
	fmt.Printf("✓ %s is now an admin\n", email)
	return nil
}
