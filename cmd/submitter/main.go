// Command submitter runs the HTTP-facing half of the system (C1-C4 plus
// the A1-A5 ambient stack): it accepts artifact submissions, mints
// content-addressed identifiers, and anchors signed commitments to the
// ledger.
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
	"github.com/zksl-labs/anchor-core/internal/httpapi"
	"github.com/zksl-labs/anchor-core/internal/signer"
	"github.com/zksl-labs/anchor-core/internal/solana"
	"github.com/zksl-labs/anchor-core/internal/store/storeopen"
)

func main() {
	app := &cli.App{
		Name:  "submitter",
		Usage: "accepts artifacts and anchors signed commitments to the ledger",
		Flags: config.Flags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("submitter: %s", err)
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
	log.Infof("submitter config: %s", cfg)

	s, err := signer.Load(cfg.AggregatorKeypairPath)
	if err != nil {
		return fmt.Errorf("load aggregator key: %w", err)
	}

	st, err := storeopen.Open(cfg.DatabaseURL, true)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	var aggregatorPubkey [32]byte
	copy(aggregatorPubkey[:], s.PublicKey())
	feePayer := solana.Address(aggregatorPubkey)

	var programID solana.Address
	var client anchor.Client

	if cfg.LocalMode {
		programID = localProgramID
		local := anchor.NewLocalClient()
		bootstrapLocalMode(local, programID, aggregatorPubkey, cfg.ChainID)
		client = local
		log.Warn("submitter: LOCAL_MODE is set, /anchor will not contact the ledger")
	} else {
		programID, err = solana.DecodeAddress(cfg.ProgramID)
		if err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}
		client = anchor.NewRPCClient(cfg.RpcURL)
	}

	orchestrator := anchor.NewOrchestrator(client, s, programID, feePayer, cfg.ChainID)

	srv, err := httpapi.NewServer(httpapi.Config{
		Addr:            cfg.HTTPAddr,
		ArtifactDir:     cfg.ArtifactDir,
		APIKeys:         cfg.APIKeys,
		RatelimitMax:    cfg.RatelimitMax,
		RatelimitWindow: time.Duration(cfg.RatelimitWindowMs) * time.Millisecond,
		IdempMaxEntries: cfg.IdempMaxEntries,
	}, orchestrator, st)
	if err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	log.Infof("submitter listening on %s", cfg.HTTPAddr)
	return srv.ListenAndServe(ctx)
}

// localProgramID stands in for a real verifier program address when
// LOCAL_MODE is set, since no program is ever deployed locally.
var localProgramID = solana.Address{0x01}

// bootstrapLocalMode seeds the fake ledger's Configuration and
// AggregatorState accounts so the orchestrator's normal fetch-decode
// path works unmodified even though no verifier program ever wrote
// them. The aggregator key never rotates locally, so
// next_aggregator_pubkey mirrors the current key and activation_seq is
// pinned at the maximum u64 so the "current" branch of the activation
// check always applies.
func bootstrapLocalMode(local *anchor.LocalClient, programID solana.Address, aggregatorPubkey [32]byte, chainID uint64) {
	configAddr, _, err := solana.ConfigurationPDA(programID)
	if err != nil {
		log.WithError(err).Fatal("submitter: derive local configuration pda")
	}
	local.PutAccount(configAddr, anchor.EncodeConfig(anchor.Config{
		AggregatorPubkey:     aggregatorPubkey,
		NextAggregatorPubkey: aggregatorPubkey,
		ActivationSeq:        ^uint64(0),
		ChainID:              chainID,
	}))

	aggregatorAddr, _, err := solana.AggregatorStatePDA(programID)
	if err != nil {
		log.WithError(err).Fatal("submitter: derive local aggregator state pda")
	}
	local.PutAccount(aggregatorAddr, anchor.EncodeAggregatorState(aggregatorPubkey, 0))
}
