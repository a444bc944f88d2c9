package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/javi2610/CIAD-P2/internal/contracts"
)

// AppConfig ties together the chain, console, journal and service settings.
type AppConfig struct {
	EnvFile string
	Chain   ChainConfig
	Console ConsoleConfig
	Deploy  DeployConfig
	Journal JournalConfig
	Service ServiceConfig
}

type ChainConfig struct {
	Network         string
	APIKey          Secret
	RPCURL          Secret // carries the API key when derived from it
	PrivateKey      Secret
	ContractAddress string
	ExplorerURL     string
	// ABIPath is a JSON ABI or compile artifact to bind instead of the
	// embedded marketplace ABI.
	ABIPath         string
	ReceiptPoll     time.Duration
	Methods         contracts.Methods
}

type ConsoleConfig struct {
	LowBalanceThreshold decimal.Decimal // ether
}

type DeployConfig struct {
	ArtifactPath string
}

type JournalConfig struct {
	Path        string
	PostgresDSN Secret
	HMACSecret  Secret
}

type ServiceConfig struct {
	MetricsAddr string
	LogLevel    string
	LogFile     string
}

const (
	DefaultEnvFile = ".env"

	defaultNetwork      = "sepolia"
	defaultArtifactPath = "artifacts/contracts/MyNFT.sol/MyNFT.json"
	defaultLowBalance   = "0.005"
)

// Load reads envFile into the process environment, without overriding
// variables that are already set, and aggregates the configuration. An empty
// envFile means DefaultEnvFile, which may be absent; an explicit file must exist.
func Load(envFile string) (*AppConfig, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	network := strings.ToLower(envOr("NETWORK", defaultNetwork))
	apiKey := envOr("API_KEY", "")

	threshold, err := decimal.NewFromString(envOr("LOW_BALANCE_THRESHOLD", defaultLowBalance))
	if err != nil {
		return nil, fmt.Errorf("parse LOW_BALANCE_THRESHOLD: %w", err)
	}
	pollSeconds, err := envOrInt("RECEIPT_POLL_SECONDS", 2)
	if err != nil {
		return nil, err
	}

	chainCfg := ChainConfig{
		Network:         network,
		APIKey:          Secret(apiKey),
		RPCURL:          Secret(envOr("RPC_URL", alchemyURL(network, apiKey))),
		PrivateKey:      Secret(envOr("PRIVATE_KEY", "")),
		ContractAddress: strings.TrimSpace(envOr("NFT_CONTRACT_ADDRESS", "")),
		ExplorerURL:     strings.TrimRight(envOr("EXPLORER_URL", explorerURL(network)), "/"),
		ABIPath:         envOr("CONTRACT_ABI", ""),
		ReceiptPoll:     time.Duration(pollSeconds) * time.Second,
		Methods: contracts.Methods{
			Mint:          envOr("NFT_METHOD_MINT", ""),
			Transfer:      envOr("NFT_METHOD_TRANSFER", ""),
			SetPrice:      envOr("NFT_METHOD_SET_PRICE", ""),
			CancelSale:    envOr("NFT_METHOD_CANCEL_SALE", ""),
			Buy:           envOr("NFT_METHOD_BUY", ""),
			OwnerOf:       envOr("NFT_METHOD_OWNER_OF", ""),
			TokensOfOwner: envOr("NFT_METHOD_TOKENS_OF_OWNER", ""),
			ListedTokens:  envOr("NFT_METHOD_LISTED_TOKENS", ""),
			PriceOf:       envOr("NFT_METHOD_PRICE_OF", ""),
		}.WithDefaults(),
	}

	return &AppConfig{
		EnvFile: envFile,
		Chain:   chainCfg,
		Console: ConsoleConfig{LowBalanceThreshold: threshold},
		Deploy:  DeployConfig{ArtifactPath: envOr("CONTRACT_ARTIFACT", defaultArtifactPath)},
		Journal: JournalConfig{
			Path:        envOr("JOURNAL_PATH", ""),
			PostgresDSN: Secret(envOr("JOURNAL_POSTGRES_DSN", "")),
			HMACSecret:  Secret(envOr("JOURNAL_HMAC_SECRET", "")),
		},
		Service: ServiceConfig{
			MetricsAddr: envOr("METRICS_ADDR", ""),
			LogLevel:    envOr("LOG_LEVEL", "INFO"),
			LogFile:     envOr("LOG_FILE", filepath.Join(os.TempDir(), "nftcli.log")),
		},
	}, nil
}

// ValidateConsole checks everything the interactive console needs before the
// first menu is drawn.
func (c *AppConfig) ValidateConsole() error {
	var problems []string
	problems = append(problems, c.chainProblems()...)
	if c.Chain.ContractAddress == "" {
		problems = append(problems, "NFT_CONTRACT_ADDRESS is required")
	} else if !common.IsHexAddress(c.Chain.ContractAddress) {
		problems = append(problems, "NFT_CONTRACT_ADDRESS is not a valid address")
	}
	if c.Console.LowBalanceThreshold.IsNegative() {
		problems = append(problems, "LOW_BALANCE_THRESHOLD must not be negative")
	}
	return joinProblems(problems)
}

// ValidateDeploy checks everything the deployment needs.
func (c *AppConfig) ValidateDeploy() error {
	problems := c.chainProblems()
	if strings.TrimSpace(c.Deploy.ArtifactPath) == "" {
		problems = append(problems, "CONTRACT_ARTIFACT is required")
	}
	return joinProblems(problems)
}

func (c *AppConfig) chainProblems() []string {
	var problems []string
	if c.Chain.RPCURL == "" {
		problems = append(problems, "API_KEY or RPC_URL is required")
	}
	if c.Chain.PrivateKey == "" {
		problems = append(problems, "PRIVATE_KEY is required")
	} else if _, err := crypto.HexToECDSA(strings.TrimPrefix(c.Chain.PrivateKey.Reveal(), "0x")); err != nil {
		problems = append(problems, "PRIVATE_KEY is not a valid secp256k1 key")
	}
	if c.Chain.ReceiptPoll <= 0 {
		problems = append(problems, "RECEIPT_POLL_SECONDS must be positive")
	}
	return problems
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
}

func alchemyURL(network, apiKey string) string {
	if apiKey == "" {
		return ""
	}
	return fmt.Sprintf("https://eth-%s.g.alchemy.com/v2/%s", network, apiKey)
}

func explorerURL(network string) string {
	if network == "mainnet" {
		return "https://etherscan.io"
	}
	return fmt.Sprintf("https://%s.etherscan.io", network)
}

func envOr(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %q is not a whole number", key, val)
	}
	return parsed, nil
}
