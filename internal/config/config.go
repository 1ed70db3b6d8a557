package config

import (
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ticketmesh/market-engine/internal/log"
	"go.uber.org/zap"
)

type Config struct {
	Env     string
	Network string
	Index   string
	Debug   bool
	Reindex bool

	ApiPort    string
	HealthPort string

	AdminAddress       string
	MarketplaceAddress string
	AuctionAddress     string

	AssetContract string
	PaymentToken  string

	// Standalone runs the engine against in-memory collaborators instead of
	// the remote registry/token services.
	Standalone       bool
	SeedTokenCount   int
	SeedInitialPrice *big.Int
	SeedAdminBalance *big.Int

	AssetRegistry CollaboratorConfig
	PayToken      CollaboratorConfig
	ElasticSearch ElasticSearchConfig
	Amqp          AmqpConfig

	LogPath   string
	SentryDsn string
}

type CollaboratorConfig struct {
	Url     string
	Debug   bool
	Timeout int
}

type ElasticSearchConfig struct {
	Hosts            []string
	Sniff            bool
	HealthCheck      bool
	Debug            bool
	Username         string
	Password         string
	MappingDir       string
	BulkPersistCount int
	Refresh          string
}

type AmqpConfig struct {
	Uri     string
	Enabled bool
}

func Init(service string) {
	if err := godotenv.Load(".env"); err != nil {
		zap.L().With(zap.Error(err)).Warn("Unable to load .env")
	}

	initLogger(service)
}

func initLogger(service string) {
	log.NewLogger(Get().LogPath, Get().Debug, Get().SentryDsn)
	zap.L().With(zap.String("service", service)).Info("Config initialised")
}

func Get() *Config {
	return &Config{
		Env:     getString("ENV", ""),
		Network: getString("NETWORK", "mainnet"),
		Index:   getString("INDEX_NAME", "market"),
		Debug:   getBool("DEBUG", false),
		Reindex: getBool("REINDEX", false),

		ApiPort:    getString("API_PORT", "8080"),
		HealthPort: getString("HEALTH_PORT", "8081"),

		AdminAddress:       getString("ADMIN_ADDRESS", ""),
		MarketplaceAddress: getString("MARKETPLACE_ADDRESS", "marketplace"),
		AuctionAddress:     getString("AUCTION_ADDRESS", "auction"),

		AssetContract: getString("ASSET_CONTRACT", ""),
		PaymentToken:  getString("PAYMENT_TOKEN", ""),

		Standalone:       getBool("STANDALONE", false),
		SeedTokenCount:   getInt("STANDALONE_SEED_TOKENS", 10),
		SeedInitialPrice: getBigInt("STANDALONE_SEED_INITIAL_PRICE", "1000000000000000000000"),
		SeedAdminBalance: getBigInt("STANDALONE_SEED_ADMIN_BALANCE", "500000000000000000000000"),

		AssetRegistry: CollaboratorConfig{
			Url:     getString("ASSET_REGISTRY_URL", ""),
			Timeout: getInt("ASSET_REGISTRY_TIMEOUT", 30),
			Debug:   getBool("ASSET_REGISTRY_DEBUG", false),
		},
		PayToken: CollaboratorConfig{
			Url:     getString("PAY_TOKEN_URL", ""),
			Timeout: getInt("PAY_TOKEN_TIMEOUT", 30),
			Debug:   getBool("PAY_TOKEN_DEBUG", false),
		},
		ElasticSearch: ElasticSearchConfig{
			Hosts:            getSlice("ELASTIC_SEARCH_HOSTS", make([]string, 0), ","),
			Sniff:            getBool("ELASTIC_SEARCH_SNIFF", true),
			HealthCheck:      getBool("ELASTIC_SEARCH_HEALTH_CHECK", true),
			Debug:            getBool("ELASTIC_SEARCH_DEBUG", false),
			Username:         getString("ELASTIC_SEARCH_USERNAME", ""),
			Password:         getString("ELASTIC_SEARCH_PASSWORD", ""),
			MappingDir:       getString("ELASTIC_SEARCH_MAPPING_DIR", "/data/mappings"),
			BulkPersistCount: getInt("ELASTIC_SEARCH_BULK_PERSIST_COUNT", 300),
			Refresh:          getString("ELASTIC_SEARCH_REFRESH", "wait_for"),
		},
		Amqp: AmqpConfig{
			Uri:     getString("AMQP_URI", ""),
			Enabled: getBool("AMQP_ENABLED", false),
		},

		LogPath:   getString("LOG_PATH", "./var/market.log"),
		SentryDsn: getString("SENTRY_DSN", ""),
	}
}

func getString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	valStr := getString(key, "")
	val, _, err := big.ParseFloat(valStr, 10, 0, big.ToNearestEven)
	if err != nil {
		return defaultValue
	}

	intVal, _ := val.Int64()
	return int(intVal)
}

func getBool(key string, defaultValue bool) bool {
	valStr := getString(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultValue
}

func getBigInt(key string, defaultValue string) *big.Int {
	value, ok := new(big.Int).SetString(getString(key, defaultValue), 10)
	if !ok {
		value, _ = new(big.Int).SetString(defaultValue, 10)
	}

	return value
}

func getSlice(key string, defaultVal []string, sep string) []string {
	valStr := getString(key, "")
	if valStr == "" {
		return defaultVal
	}

	return strings.Split(valStr, sep)
}
