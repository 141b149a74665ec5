package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/nats-io/nats.go"
	"github.com/programme-lv/executor/internal/app"
	"github.com/programme-lv/executor/internal/checkers"
	"github.com/programme-lv/executor/internal/database"
	"github.com/programme-lv/executor/internal/environment"
	"github.com/programme-lv/executor/internal/listener"
	"github.com/programme-lv/executor/internal/logging"
	"github.com/programme-lv/executor/internal/server"
	"github.com/programme-lv/executor/internal/xdg"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cmd := &cli.Command{
		Name:  "worker",
		Usage: "execute SQL submissions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config.toml"},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve POST /executeSubmission",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address, overrides the config"},
				},
				Action: serve,
			},
			{
				Name:   "sqs",
				Usage:  "consume submissions from the SQS request queue",
				Action: consumeSQS,
			},
			{
				Name:   "nats",
				Usage:  "consume submissions from a NATS subject",
				Action: consumeNATS,
			},
			{
				Name:  "checkers",
				Usage: "manage stored checkers",
				Commands: []*cli.Command{
					{Name: "list", Action: listCheckers},
					{
						Name:      "add",
						ArgsUsage: "<name> <class-name> [parameter]",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "description"},
						},
						Action: addChecker,
					},
					{Name: "delete", ArgsUsage: "<id>", Action: deleteChecker},
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadApp(ctx context.Context, c *cli.Command) (*app.App, error) {
	cfg, err := environment.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Color)
	return app.New(ctx, cfg, logger)
}

func serve(ctx context.Context, c *cli.Command) error {
	a, err := loadApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.Config.Server.Addr
	if c.String("addr") != "" {
		addr = c.String("addr")
	}

	srv := server.New(a.Tester,
		server.WithConcurrency(a.Config.Server.Concurrency),
		server.WithMaxBodyBytes(a.Config.Server.MaxBodyMiB<<20),
		server.WithGatherer(a.TestRunGatherer),
		server.WithLogger(a.Logger.With("component", "http")),
	)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func consumeSQS(ctx context.Context, c *cli.Command) error {
	a, err := loadApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Config.SQS.RequestQueueUrl == "" {
		return errors.New("sqs request_queue_url is not configured")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(a.Config.SQS.Region))
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}

	l := listener.NewSQS(sqs.NewFromConfig(awsCfg), a.Config.SQS.RequestQueueUrl, a.Tester, a.Logger)
	l.Extra = a.TestRunGatherer
	a.Logger.Info("listening for submissions", "queue", a.Config.SQS.RequestQueueUrl)
	if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func consumeNATS(ctx context.Context, c *cli.Command) error {
	a, err := loadApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	nc, err := nats.Connect(a.Config.NATS.URL, nats.Name("executor-worker"))
	if err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}
	defer nc.Close()

	l := listener.NewNATS(nc, a.Config.NATS.Subject, a.Config.NATS.Queue, a.Tester, a.Logger)
	l.Extra = a.TestRunGatherer
	a.Logger.Info("listening for submissions", "subject", a.Config.NATS.Subject, "queue", a.Config.NATS.Queue)
	if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, c *cli.Command) (*database.Store, error) {
	cfg, err := environment.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := xdg.EnsureDir(filepath.Dir(cfg.Database.Path)); err != nil {
		return nil, err
	}
	return database.Open(ctx, cfg.Database.Path)
}

func listCheckers(ctx context.Context, c *cli.Command) error {
	store, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.ListCheckers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCLASS\tPARAMETER\tDESCRIPTION")
	for _, ch := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", ch.ID, ch.Name, ch.ClassName, ch.Parameter, ch.Description)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "built-in classes:")
	for _, name := range checkers.Names() {
		fmt.Fprintf(w, "  %s\n", name)
	}
	return w.Flush()
}

func addChecker(ctx context.Context, c *cli.Command) error {
	args := c.Args()
	if args.Len() < 2 {
		return errors.New("usage: checkers add <name> <class-name> [parameter]")
	}
	ch := &database.Checker{
		Name:        args.Get(0),
		ClassName:   args.Get(1),
		Parameter:   args.Get(2),
		Description: c.String("description"),
	}
	if _, err := checkers.New(ch.ClassName, ch.Parameter); err != nil {
		return err
	}

	store, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InsertChecker(ctx, ch); err != nil {
		return err
	}
	fmt.Printf("added checker %d\n", ch.ID)
	return nil
}

func deleteChecker(ctx context.Context, c *cli.Command) error {
	var id int64
	if _, err := fmt.Sscan(c.Args().First(), &id); err != nil {
		return fmt.Errorf("invalid checker id %q", c.Args().First())
	}

	store, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.DeleteChecker(ctx, id)
}
