package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

var supportedFinalityCommitments = supportedType{
	"processed": {},
	"confirmed": {},
	"finalized": {},
}

type Config struct {
	RpcURL                string
	ProgramID             string
	ChainID               uint64
	AggregatorKeypairPath string
	ArtifactDir           string
	DatabaseURL           string
	MinFinalityCommitment string
	LocalMode             bool
	APIKeys               []string
	RatelimitMax          int
	RatelimitWindowMs     int64
	IdempMaxEntries       int
	LogLevel              string
	HTTPAddr              string
	IndexerPollInterval   int64
}

func (c *Config) String() string {
	clone := *c
	clone.AggregatorKeypairPath = "••••••"
	if len(clone.APIKeys) > 0 {
		clone.APIKeys = []string{"••••••"}
	}
	buf, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(buf)
}

var (
	defaultChainID                = uint64(1)
	defaultArtifactDir            = "./artifacts"
	defaultMinFinalityCommitment  = "confirmed"
	defaultRatelimitMax           = 60
	defaultRatelimitWindowMs      = int64(60_000)
	defaultIdempMaxEntries        = 10_000
	defaultLogLevel               = "info"
	defaultHTTPAddr               = ":8080"
	defaultIndexerPollInterval    = int64(20)
)

// env returns a list of strings with no namespace prefix, matching the
// bare uppercase variable names this service's deployment surface
// documents (RPC_URL, PROGRAM_ID, ...), rather than a service-prefixed
// scheme.
func env(values ...string) []string {
	return values
}

var (
	RpcURL = &cli.StringFlag{
		Usage: "Ledger node JSON-RPC endpoint",
		Name:  "rpc-url", EnvVars: env("RPC_URL"),
	}

	ProgramID = &cli.StringFlag{
		Usage: "Verifier program address (base58)",
		Name:  "program-id", EnvVars: env("PROGRAM_ID"),
	}

	ChainID = &cli.Uint64Flag{
		Usage: "Chain id matched against the on-chain aggregator configuration",
		Name:  "chain-id", EnvVars: env("CHAIN_ID"),
		Value: defaultChainID,
	}

	AggregatorKeypairPath = &cli.StringFlag{
		Usage: "Path to the aggregator's Ed25519 keypair file",
		Name:  "aggregator-keypair-path", EnvVars: env("AGGREGATOR_KEYPAIR_PATH"),
	}

	ArtifactDir = &cli.StringFlag{
		Usage: "Root directory for canonical artifact JSON files",
		Name:  "artifact-dir", EnvVars: env("ARTIFACT_DIR"),
		Value: defaultArtifactDir,
	}

	DatabaseURL = &cli.StringFlag{
		Usage: "Relational store connection url (postgres:// or sqlite file path)",
		Name:  "database-url", EnvVars: env("DATABASE_URL"),
	}

	MinFinalityCommitment = &cli.StringFlag{
		Usage: "Minimum commitment level a proof record must reach (processed, confirmed, finalized)",
		Name:  "min-finality-commitment", EnvVars: env("MIN_FINALITY_COMMITMENT"),
		Value: defaultMinFinalityCommitment,
	}

	LocalMode = &cli.BoolFlag{
		Usage: "Synthesize anchor transactions locally instead of contacting the ledger",
		Name:  "local-mode", EnvVars: env("LOCAL_MODE"),
	}

	APIKeys = &cli.StringSliceFlag{
		Usage: "Accepted API keys (comma-separated)",
		Name:  "api-keys", EnvVars: env("API_KEYS"),
	}

	RatelimitMax = &cli.IntFlag{
		Usage: "Maximum requests per window per client address",
		Name:  "ratelimit-max", EnvVars: env("RATELIMIT_MAX"),
		Value: defaultRatelimitMax,
	}

	RatelimitWindowMs = &cli.Int64Flag{
		Usage: "Rate limit window length in milliseconds",
		Name:  "ratelimit-window-ms", EnvVars: env("RATELIMIT_WINDOW_MS"),
		Value: defaultRatelimitWindowMs,
	}

	IdempMaxEntries = &cli.IntFlag{
		Usage: "Maximum number of idempotency cache entries",
		Name:  "idemp-max-entries", EnvVars: env("IDEMP_MAX_ENTRIES"),
		Value: defaultIdempMaxEntries,
	}

	LogLevel = &cli.StringFlag{
		Usage: "Logging level (trace, debug, info, warn, error)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	HTTPAddr = &cli.StringFlag{
		Usage: "Address the submitter HTTP server listens on",
		Name:  "http-addr", EnvVars: env("HTTP_ADDR"),
		Value: defaultHTTPAddr,
	}

	IndexerPollInterval = &cli.Int64Flag{
		Usage: "Indexer polling cadence in seconds; polling runs alongside account streaming",
		Name:  "indexer-poll-interval", EnvVars: env("INDEXER_POLL_INTERVAL"),
		Value: defaultIndexerPollInterval,
	}
)

var Flags = []cli.Flag{
	RpcURL,
	ProgramID,
	ChainID,
	AggregatorKeypairPath,
	ArtifactDir,
	DatabaseURL,
	MinFinalityCommitment,
	LocalMode,
	APIKeys,
	RatelimitMax,
	RatelimitWindowMs,
	IdempMaxEntries,
	LogLevel,
	HTTPAddr,
	IndexerPollInterval,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	cfg := &Config{
		RpcURL:                c.String(RpcURL.Name),
		ProgramID:             c.String(ProgramID.Name),
		ChainID:               c.Uint64(ChainID.Name),
		AggregatorKeypairPath: c.String(AggregatorKeypairPath.Name),
		ArtifactDir:           c.String(ArtifactDir.Name),
		DatabaseURL:           c.String(DatabaseURL.Name),
		MinFinalityCommitment: c.String(MinFinalityCommitment.Name),
		LocalMode:             c.Bool(LocalMode.Name),
		APIKeys:               c.StringSlice(APIKeys.Name),
		RatelimitMax:          c.Int(RatelimitMax.Name),
		RatelimitWindowMs:     c.Int64(RatelimitWindowMs.Name),
		IdempMaxEntries:       c.Int(IdempMaxEntries.Name),
		LogLevel:              c.String(LogLevel.Name),
		HTTPAddr:              c.String(HTTPAddr.Name),
		IndexerPollInterval:   c.Int64(IndexerPollInterval.Name),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if !c.LocalMode {
		if c.RpcURL == "" {
			return fmt.Errorf("RPC_URL is required unless LOCAL_MODE is set")
		}
		if c.ProgramID == "" {
			return fmt.Errorf("PROGRAM_ID is required unless LOCAL_MODE is set")
		}
	}

	if c.AggregatorKeypairPath == "" {
		return fmt.Errorf("AGGREGATOR_KEYPAIR_PATH is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if isDefaultCredentialDSN(c.DatabaseURL) {
		return fmt.Errorf("DATABASE_URL uses default credentials, refusing to start")
	}

	if !supportedFinalityCommitments.supports(c.MinFinalityCommitment) {
		return fmt.Errorf(
			"min finality commitment not supported, please select one of: %s",
			supportedFinalityCommitments,
		)
	}

	if c.RatelimitMax < 1 {
		return fmt.Errorf("ratelimit max must be at least 1")
	}
	if c.RatelimitWindowMs < 1 {
		return fmt.Errorf("ratelimit window must be at least 1ms")
	}
	if c.IdempMaxEntries < 1 {
		return fmt.Errorf("idemp max entries must be at least 1")
	}

	return nil
}

// isDefaultCredentialDSN rejects the handful of well-known placeholder
// credentials that tutorials and docker-compose fixtures ship with, per
// the "refuse default credentials in production" requirement.
func isDefaultCredentialDSN(dsn string) bool {
	lowered := strings.ToLower(dsn)
	for _, bad := range []string{"postgres:postgres@", "root:root@", "admin:admin@", "user:password@"} {
		if strings.Contains(lowered, bad) {
			return true
		}
	}
	return false
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
