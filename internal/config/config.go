package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

const (
	defaultProvider       = "https://sepolia.base.org"
	defaultDerivationPath = "m/44'/60'/0'/0/0"
	defaultPair           = "BTC_USDC"
)

var (
	ErrMissingSigner  = errors.New("missing required config: MNEMONIC or PRIVATE_KEY")
	ErrInvalidAddress = errors.New("invalid address")
)

type Config struct {
	// Signing identity, one of the two is required by tools that send transactions
	Mnemonic       string
	PrivateKey     string
	DerivationPath string

	// Chain
	ProviderURL string
	ChainID     int64 // 0 = ask the node
	GasLimit    uint64
	TxTimeout   time.Duration
	DryRun      bool

	// Market selection for tools that work on any pair (e.g. "ETH_USDC")
	Pair           string
	MarketRegistry string

	// Price source for market making: "coingecko" or "binance"
	PriceSource string

	// Telegram notifications (optional)
	TelegramBotToken string
	TelegramChatID   string
}

// Load loads config requiring a signing identity.
func Load() (*Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return nil, err
	}

	if cfg.Mnemonic == "" && cfg.PrivateKey == "" {
		return nil, ErrMissingSigner
	}

	return cfg, nil
}

// LoadMinimal loads config without requiring a signing identity.
// Useful for read-only tools that only query contract state.
func LoadMinimal() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional if env vars are set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	return &Config{
		Mnemonic:         strings.TrimSpace(os.Getenv("MNEMONIC")),
		PrivateKey:       strings.TrimSpace(os.Getenv("PRIVATE_KEY")),
		DerivationPath:   getEnvString("DERIVATION_PATH", defaultDerivationPath),
		ProviderURL:      getEnvString("PROVIDER", defaultProvider),
		ChainID:          int64(getEnvInt("CHAIN_ID", 0)),
		GasLimit:         uint64(getEnvInt("GAS_LIMIT", 0)),
		TxTimeout:        time.Duration(getEnvInt("TX_TIMEOUT_SECONDS", 120)) * time.Second,
		DryRun:           getEnvBool("DRY_RUN", false),
		Pair:             strings.ToUpper(getEnvString("PAIR", defaultPair)),
		MarketRegistry:   os.Getenv("MARKET_REGISTRY"),
		PriceSource:      strings.ToLower(getEnvString("PRICE_SOURCE", "coingecko")),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}, nil
}

// HasTelegram returns true if Telegram notifications are configured
func (c *Config) HasTelegram() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// UseMnemonic reports whether the signing key is derived from a mnemonic.
// A mnemonic wins over a private key when both are set.
func (c *Config) UseMnemonic() bool {
	return c.Mnemonic != ""
}

// Validate performs runtime validation of config values
func (c *Config) Validate() error {
	if c.ProviderURL == "" {
		return errors.New("PROVIDER must not be empty")
	}
	if c.ChainID < 0 {
		return errors.New("CHAIN_ID must be non-negative")
	}
	if c.TxTimeout <= 0 {
		return errors.New("TX_TIMEOUT_SECONDS must be greater than 0")
	}
	return nil
}

// MarketAddress returns the market contract for a pair, read from
// <PAIR>_CONTRACT_ID (e.g. BTC_USDC_CONTRACT_ID).
func (c *Config) MarketAddress(pair string) (common.Address, error) {
	return requireAddress(strings.ToUpper(pair) + "_CONTRACT_ID")
}

// AssetAddress returns the token contract for an asset symbol, read from
// <ASSET>_ID (e.g. USDC_ID).
func (c *Config) AssetAddress(symbol string) (common.Address, error) {
	return requireAddress(strings.ToUpper(symbol) + "_ID")
}

// AssetDecimals returns <ASSET>_DECIMALS or the given default.
func (c *Config) AssetDecimals(symbol string, defaultVal uint32) uint32 {
	return uint32(getEnvInt(strings.ToUpper(symbol)+"_DECIMALS", int(defaultVal)))
}

// RegistryAddress returns the market registry contract.
func (c *Config) RegistryAddress() (common.Address, error) {
	return requireAddress("MARKET_REGISTRY")
}

// PairAssets splits a pair name such as "ETH_USDC" into base and quote symbols.
func PairAssets(pair string) (base, quote string, err error) {
	parts := strings.Split(strings.ToUpper(pair), "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid pair %q, expected BASE_QUOTE", pair)
	}
	return parts[0], parts[1], nil
}

// RequireAll resolves a set of address variables at once and reports every
// missing one in a single error.
func RequireAll(keys ...string) (map[string]common.Address, error) {
	var missingFields []string
	out := make(map[string]common.Address, len(keys))

	for _, key := range keys {
		addr, err := requireAddress(key)
		if err != nil {
			missingFields = append(missingFields, key)
			continue
		}
		out[key] = addr
	}

	if len(missingFields) > 0 {
		return nil, fmt.Errorf("missing required config: %v", missingFields)
	}
	return out, nil
}

func requireAddress(key string) (common.Address, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return common.Address{}, fmt.Errorf("missing required config: %s", key)
	}
	if !common.IsHexAddress(val) {
		return common.Address{}, fmt.Errorf("%w in %s: %q", ErrInvalidAddress, key, val)
	}
	return common.HexToAddress(val), nil
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getEnvString(key string, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// Float reads an optional float tuning knob used by the strategy scripts.
func Float(key string, defaultVal float64) float64 {
	return getEnvFloat(key, defaultVal)
}

// Int reads an optional integer tuning knob used by the strategy scripts.
func Int(key string, defaultVal int) int {
	return getEnvInt(key, defaultVal)
}

// String reads an optional string setting.
func String(key string, defaultVal string) string {
	return getEnvString(key, defaultVal)
}
