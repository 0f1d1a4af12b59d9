// Package config loads the weather agent's runtime configuration from the
// environment (and an optional .env file), the way every cmd/ entrypoint
// in this codebase's lineage does.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven knob the weather agent reads at
// startup. Fields are grouped by the component that owns them.
type Config struct {
	// Wallet / chain
	PrivateKey         string
	ProxyWalletAddress string // Polymarket proxy wallet (Gnosis Safe), empty = EOA mode
	PolygonChainID     int
	PolygonRPCURL      string

	// CLOB API credentials
	CLOBApiKey     string
	CLOBSecret     string
	CLOBPassphrase string

	// Proxy (optional) - supports multiple proxies comma-separated
	ProxyURL  string   // Single proxy (legacy): user:pass@host:port
	ProxyURLs []string // Multiple proxies for rotation

	// Telegram notifications (optional)
	TelegramBotToken string
	TelegramChatID   string

	// Dry run / paper trading
	DryRun bool

	// Discovery and monitoring cadence
	MaxLeadDays             int
	DiscoveryInterval       time.Duration
	ForecastRefreshInterval time.Duration
	ObservationPollInterval time.Duration
	MinParserConfidence     float64

	// Probability / edge
	EdgeThreshold    float64
	MaxKellyFraction float64

	// Risk limits
	MaxExposurePerMarketUSD float64
	MaxExposurePerRegionUSD float64
	MaxExposurePerDateUSD   float64
	MaxDailyLossUSD         float64
	MaxDataAgeMS            int
	MinOrderSizeUSD         float64
	MaxOrderSizeUSD         float64

	// Executor
	ExecutorPollInterval time.Duration

	// Position manager
	PositionCheckInterval time.Duration
	StopLossPercent       float64
	TakeProfitPercent     float64
	TrailingStopPercent   float64
	SLTPMinPricePercent   float64

	// Ambient surface
	HTTPAddr    string
	StateDBPath string
}

// Load reads configuration from the environment, falling back to a .env
// file in the working directory when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional if env vars are set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := &Config{
		PolygonChainID: getEnvInt("POLYGON_CHAIN_ID", 137),
		PolygonRPCURL:  getEnvString("POLYGON_RPC_URL", "https://polygon-rpc.com"),
		DryRun:         getEnvBool("WEATHER_DRY_RUN", true),

		MaxLeadDays:             getEnvInt("WEATHER_MAX_LEAD_DAYS", 7),
		DiscoveryInterval:       getEnvDuration("WEATHER_DISCOVERY_INTERVAL_MS", 5*time.Minute),
		ForecastRefreshInterval: getEnvDuration("WEATHER_FORECAST_REFRESH_MS", 15*time.Minute),
		ObservationPollInterval: getEnvDuration("WEATHER_OBSERVATION_POLL_MS", 10*time.Minute),
		MinParserConfidence:     getEnvFloat("WEATHER_MIN_PARSER_CONFIDENCE", 0.6),

		EdgeThreshold:    getEnvFloat("WEATHER_EDGE_THRESHOLD", 0.05),
		MaxKellyFraction: getEnvFloat("WEATHER_MAX_KELLY_FRACTION", 0.05),

		MaxExposurePerMarketUSD: getEnvFloat("MAX_EXPOSURE_PER_MARKET_USD", 50),
		MaxExposurePerRegionUSD: getEnvFloat("MAX_EXPOSURE_PER_REGION_USD", 150),
		MaxExposurePerDateUSD:   getEnvFloat("MAX_EXPOSURE_PER_DATE_USD", 300),
		MaxDailyLossUSD:         getEnvFloat("MAX_DAILY_LOSS_USD", 100),
		MaxDataAgeMS:            getEnvInt("MAX_DATA_AGE_MS", 30*60*1000),
		MinOrderSizeUSD:         getEnvFloat("MIN_ORDER_SIZE_USD", 1),
		MaxOrderSizeUSD:         getEnvFloat("MAX_ORDER_SIZE_USD", 25),

		ExecutorPollInterval: getEnvDuration("EXECUTOR_POLL_INTERVAL_MS", 10*time.Second),

		PositionCheckInterval: getEnvDuration("POSITION_CHECK_INTERVAL_MS", 30*time.Second),
		StopLossPercent:       getEnvFloat("STOP_LOSS_PERCENT", 20),
		TakeProfitPercent:     getEnvFloat("TAKE_PROFIT_PERCENT", 30),
		TrailingStopPercent:   getEnvFloat("TRAILING_STOP_PERCENT", 15),
		SLTPMinPricePercent:   getEnvFloat("SL_TP_MIN_PRICE_PERCENT", 1),

		HTTPAddr:    getEnvString("WEATHER_HTTP_ADDR", "127.0.0.1:8090"),
		StateDBPath: getEnvString("WEATHER_STATE_DB_PATH", "weatheragent.db"),
	}

	var missingFields []string

	cfg.PrivateKey = os.Getenv("PRIVATE_KEY")
	if cfg.PrivateKey == "" {
		missingFields = append(missingFields, "PRIVATE_KEY")
	}

	cfg.CLOBApiKey = os.Getenv("CLOB_API_KEY")
	if cfg.CLOBApiKey == "" {
		missingFields = append(missingFields, "CLOB_API_KEY")
	}

	cfg.CLOBSecret = os.Getenv("CLOB_SECRET")
	if cfg.CLOBSecret == "" {
		missingFields = append(missingFields, "CLOB_SECRET")
	}

	cfg.CLOBPassphrase = os.Getenv("CLOB_PASSPHRASE")
	if cfg.CLOBPassphrase == "" {
		missingFields = append(missingFields, "CLOB_PASSPHRASE")
	}

	if len(missingFields) > 0 {
		return nil, fmt.Errorf("missing required config: %v", missingFields)
	}

	// Optional telegram config
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	// Optional proxy config - supports comma-separated list
	proxyEnv := os.Getenv("PROXY_URL")
	if proxyEnv != "" {
		proxies := strings.Split(proxyEnv, ",")
		for _, p := range proxies {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.ProxyURLs = append(cfg.ProxyURLs, p)
			}
		}
		if len(cfg.ProxyURLs) > 0 {
			cfg.ProxyURL = cfg.ProxyURLs[0] // First proxy as default
		}
	}

	// Optional proxy wallet (Gnosis Safe)
	cfg.ProxyWalletAddress = os.Getenv("PROXY_WALLET_ADDRESS")

	return cfg, nil
}

// LoadMinimal loads only basic config without requiring API credentials.
// Useful for commands that only need to query public APIs (e.g., discovery
// diagnostics).
func LoadMinimal() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	return &Config{
		PolygonChainID:      getEnvInt("POLYGON_CHAIN_ID", 137),
		PolygonRPCURL:       getEnvString("POLYGON_RPC_URL", "https://polygon-rpc.com"),
		DryRun:              getEnvBool("WEATHER_DRY_RUN", true),
		MaxLeadDays:         getEnvInt("WEATHER_MAX_LEAD_DAYS", 7),
		MinParserConfidence: getEnvFloat("WEATHER_MIN_PARSER_CONFIDENCE", 0.6),
		PrivateKey:          os.Getenv("PRIVATE_KEY"),
	}, nil
}

// HasTelegram returns true if Telegram notifications are configured.
func (c *Config) HasTelegram() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// UseProxyWallet returns true if trading via a Polymarket proxy wallet.
func (c *Config) UseProxyWallet() bool {
	return c.ProxyWalletAddress != ""
}

// Validate performs runtime validation of config values beyond per-field
// env parsing.
func (c *Config) Validate() error {
	if c.EdgeThreshold < 0 {
		return errors.New("WEATHER_EDGE_THRESHOLD must be non-negative")
	}
	if c.MaxKellyFraction <= 0 || c.MaxKellyFraction > 1 {
		return errors.New("WEATHER_MAX_KELLY_FRACTION must be in (0, 1]")
	}
	if c.MaxOrderSizeUSD <= 0 || c.MaxOrderSizeUSD < c.MinOrderSizeUSD {
		return errors.New("MAX_ORDER_SIZE_USD must be positive and >= MIN_ORDER_SIZE_USD")
	}
	if c.MaxDailyLossUSD <= 0 {
		return errors.New("MAX_DAILY_LOSS_USD must be greater than 0")
	}
	return nil
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

// getEnvDuration reads a millisecond count from the environment and
// returns it as a time.Duration.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	ms, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}
