package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"ledgerpos/backend/internal/app"
	"ledgerpos/backend/internal/backup"
	"ledgerpos/backend/internal/config"
	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/observability"
	"ledgerpos/backend/internal/service"
	"ledgerpos/backend/internal/store/memory"
	pgstore "ledgerpos/backend/internal/store/postgres"
)

var errNoDatabase = errors.New("DATABASE_URL is required for this command")

type cliState struct {
	cfg    config.Config
	logger *zap.Logger
	out    io.Writer
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	state := &cliState{out: out}

	return &cli.App{
		Name:   "ledgerctl",
		Usage:  "Operate the POS ledger outside the HTTP server",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "actor",
				Usage:   "Username recorded in audit logs",
				Value:   "ledgerctl",
				EnvVars: []string{"LEDGERCTL_ACTOR"},
			},
		},
		Before: func(c *cli.Context) error {
			state.cfg = config.Load()
			state.logger = observability.NewLogger(state.cfg.LogLevel)
			c.Context = service.WithActor(c.Context, domain.Actor{Username: c.String("actor"), Role: "operator"})
			return nil
		},
		After: func(c *cli.Context) error {
			if state.logger != nil {
				_ = state.logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending schema migrations",
				Action: state.migrate,
			},
			{
				Name:   "seed",
				Usage:  "Load the demo master data into the database",
				Action: state.seed,
			},
			{
				Name:      "receive-po",
				Usage:     "Receive a PENDING purchase order",
				ArgsUsage: "<purchase-order-id>",
				Action:    state.receivePurchaseOrder,
			},
			{
				Name:      "close-account",
				Usage:     "Transfer an account's balance to cash and delete it",
				ArgsUsage: "<account-id>",
				Action:    state.closeAccount,
			},
			{
				Name:  "backup",
				Usage: "Export every collection to object storage",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Object key prefix",
						Value: "ledger",
					},
				},
				Action: state.backup,
			},
			{
				Name:   "summary",
				Usage:  "Print the ledger summary",
				Action: state.summary,
			},
		},
	}
}

func (s *cliState) printJSON(v any) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *cliState) withRuntime(c *cli.Context, fn func(ctx context.Context, rt *app.Runtime) error) error {
	rt, err := app.Open(c.Context, s.cfg, s.logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(c.Context, rt)
}

func (s *cliState) migrate(c *cli.Context) error {
	if s.cfg.DatabaseURL == "" {
		return errNoDatabase
	}
	if err := pgstore.Migrate(s.cfg.DatabaseURL); err != nil {
		return err
	}
	s.logger.Info("migrations applied")
	return nil
}

func (s *cliState) seed(c *cli.Context) error {
	if s.cfg.DatabaseURL == "" {
		return errNoDatabase
	}
	gw, closeGateway, err := app.OpenGateway(c.Context, s.cfg, s.logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeGateway() }()

	if err := memory.Seed(c.Context, gw); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	s.logger.Info("master data seeded")
	return nil
}

func (s *cliState) receivePurchaseOrder(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("purchase order id required", 2)
	}
	return s.withRuntime(c, func(ctx context.Context, rt *app.Runtime) error {
		out, err := rt.Service.ReceivePurchaseOrder(ctx, id)
		if err != nil {
			return err
		}
		return s.printJSON(out)
	})
}

func (s *cliState) closeAccount(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("account id required", 2)
	}
	return s.withRuntime(c, func(ctx context.Context, rt *app.Runtime) error {
		out, err := rt.Service.CloseAccount(ctx, id)
		if err != nil {
			return err
		}
		return s.printJSON(out)
	})
}

func (s *cliState) backup(c *cli.Context) error {
	if s.cfg.MinioEndpoint == "" {
		return cli.Exit("MINIO_ENDPOINT is required for backups", 2)
	}
	gw, closeGateway, err := app.OpenGateway(c.Context, s.cfg, s.logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeGateway() }()

	writer, err := backup.NewMinioWriter(s.cfg.MinioEndpoint, s.cfg.MinioAccessKey, s.cfg.MinioSecretKey, s.cfg.MinioBucket, s.cfg.MinioUseSSL)
	if err != nil {
		return fmt.Errorf("minio client: %w", err)
	}
	if err := writer.EnsureBucket(c.Context); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.cfg.MinioBucket, err)
	}

	manifest, err := backup.NewExporter(gw, writer, s.logger).Export(c.Context, c.String("prefix"))
	if err != nil {
		return err
	}
	return s.printJSON(manifest)
}

func (s *cliState) summary(c *cli.Context) error {
	return s.withRuntime(c, func(ctx context.Context, rt *app.Runtime) error {
		return s.printJSON(rt.Service.Summary(ctx))
	})
}
