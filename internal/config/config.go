package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/solvys/predictipulse/internal/models"
)

// Config holds all configuration for predictipulse
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Venue     VenueConfig     `mapstructure:"venue"`
	Odds      OddsConfig      `mapstructure:"odds"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Settings  SettingsConfig  `mapstructure:"settings"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // 0 keeps SSE streams open
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// EngineConfig holds run-loop timing and simulation parameters
type EngineConfig struct {
	ScanInterval        time.Duration `mapstructure:"scan_interval"`
	SimulationInterval  time.Duration `mapstructure:"simulation_interval"`
	StopTimeout         time.Duration `mapstructure:"stop_timeout"`
	ConnectTimeout      time.Duration `mapstructure:"connect_timeout"`
	SimTradeProbability float64       `mapstructure:"sim_trade_probability"`
	MinSimStake         float64       `mapstructure:"min_sim_stake"`
	PaperBankroll       float64       `mapstructure:"paper_bankroll"`
	Seed                uint64        `mapstructure:"seed"` // 0 picks a random seed
	DemoMode            bool          `mapstructure:"demo_mode"`
	AutoTrade           bool          `mapstructure:"auto_trade"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	OddsTopic   string   `mapstructure:"odds_topic"`   // sharp odds batches to consume
	GroupID     string   `mapstructure:"group_id"`
	EventsTopic string   `mapstructure:"events_topic"` // opportunity/trade mirror
}

// StorageConfig holds the performance tracker database location
type StorageConfig struct {
	DSN string `mapstructure:"dsn"`
}

// VenueConfig selects and configures the execution venue
type VenueConfig struct {
	Name           string        `mapstructure:"name"` // kalshi, coinbase, or none
	BaseURL        string        `mapstructure:"base_url"`
	KeyID          string        `mapstructure:"key_id"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	APISecret      string        `mapstructure:"api_secret"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RatePerSec     float64       `mapstructure:"rate_per_sec"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// OddsConfig holds sharp-odds and results provider settings
type OddsConfig struct {
	BoltOddsAPIKey  string        `mapstructure:"boltodds_api_key"`
	BoltOddsBaseURL string        `mapstructure:"boltodds_base_url"`
	BoltOddsWSURL   string        `mapstructure:"boltodds_ws_url"`
	BoltOddsStream  bool          `mapstructure:"boltodds_stream"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	ESPNBaseURL     string        `mapstructure:"espn_base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ConsensusConfig holds sharp consensus model parameters
type ConsensusConfig struct {
	MinBooks int           `mapstructure:"min_books"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// SettingsConfig selects the trading settings backend
type SettingsConfig struct {
	Backend string `mapstructure:"backend"` // file or redis
	Path    string `mapstructure:"path"`
	Key     string `mapstructure:"key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig loads configuration from .env, an optional file, and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("engine.scan_interval", 30*time.Second)
	v.SetDefault("engine.simulation_interval", 2*time.Second)
	v.SetDefault("engine.stop_timeout", 2*time.Second)
	v.SetDefault("engine.connect_timeout", 10*time.Second)
	v.SetDefault("engine.sim_trade_probability", 0.4)
	v.SetDefault("engine.min_sim_stake", 1.0)
	v.SetDefault("engine.paper_bankroll", 1000.0)
	v.SetDefault("engine.seed", 0)
	v.SetDefault("engine.demo_mode", false)
	v.SetDefault("engine.auto_trade", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 15*time.Minute)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.odds_topic", "sharp_odds")
	v.SetDefault("kafka.group_id", "predictipulse")
	v.SetDefault("kafka.events_topic", "predictipulse_events")

	v.SetDefault("storage.dsn", "performance.db")

	v.SetDefault("venue.name", "kalshi")
	v.SetDefault("venue.base_url", "https://api.elections.kalshi.com/trade-api/v2")
	v.SetDefault("venue.key_id", "")
	v.SetDefault("venue.private_key_path", "")
	v.SetDefault("venue.api_secret", "")
	v.SetDefault("venue.timeout", 10*time.Second)
	v.SetDefault("venue.rate_per_sec", 10.0)
	v.SetDefault("venue.max_retries", 3)

	v.SetDefault("odds.boltodds_api_key", "")
	v.SetDefault("odds.boltodds_base_url", "https://spro.agency/api")
	v.SetDefault("odds.boltodds_ws_url", "wss://spro.agency/api")
	v.SetDefault("odds.boltodds_stream", false)
	v.SetDefault("odds.refresh_interval", time.Minute)
	v.SetDefault("odds.espn_base_url", "https://site.web.api.espn.com/apis/v2/sports")
	v.SetDefault("odds.timeout", 8*time.Second)

	v.SetDefault("consensus.min_books", 1)
	v.SetDefault("consensus.max_age", 10*time.Minute)

	v.SetDefault("settings.backend", "file")
	v.SetDefault("settings.path", "config.json")
	v.SetDefault("settings.key", "predictipulse:settings")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("PREDICTIPULSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// ToConsensusParams converts config to consensus model parameters
func (c *ConsensusConfig) ToConsensusParams() models.ConsensusParams {
	return models.ConsensusParams{
		MinBooks: c.MinBooks,
		MaxAge:   c.MaxAge,
	}
}

// HasVenueCredentials reports whether a signed venue client can be built
func (c *VenueConfig) HasVenueCredentials() bool {
	return c.KeyID != "" && (c.PrivateKeyPath != "" || c.APISecret != "")
}
