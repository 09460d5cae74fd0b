// Command indexer runs C5: it observes the ledger's account state for
// the verifier program, projects it into the relational store, and
// reconciles pending commitments to finality.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/zksl-labs/anchor-core/internal/anchor"
	"github.com/zksl-labs/anchor-core/internal/config"
	"github.com/zksl-labs/anchor-core/internal/indexer"
	"github.com/zksl-labs/anchor-core/internal/solana"
	"github.com/zksl-labs/anchor-core/internal/store/storeopen"
)

func main() {
	app := &cli.App{
		Name:   "indexer",
		Usage:  "projects verifier program account state into the relational store",
		Flags:  config.Flags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("indexer: %s", err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	log.Infof("indexer config: %s", cfg)

	if cfg.LocalMode {
		log.Warn("indexer: LOCAL_MODE is set; the submitter's fake ledger is process-local, " +
			"so this indexer instance has nothing to observe")
	}

	st, err := storeopen.Open(cfg.DatabaseURL, true)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	programID, err := solana.DecodeAddress(cfg.ProgramID)
	if err != nil {
		return fmt.Errorf("invalid program id: %w", err)
	}

	client := anchor.NewRPCClient(cfg.RpcURL)

	pollInterval := time.Duration(cfg.IndexerPollInterval) * time.Second
	engine := indexer.New(client, st, programID, pollInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	log.Info("indexer: starting streaming and polling disciplines")
	engine.Run(ctx)
	engine.Stop()

	log.Info("indexer: shut down")
	return nil
}
