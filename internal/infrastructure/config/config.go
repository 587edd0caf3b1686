// Package config loads the application configuration from file and
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	sharedconfig "blocklotto/internal/shared/config"
)

// Config is the full application configuration.
type Config struct {
	Server   sharedconfig.ServerConfig   `mapstructure:"server"`
	Database sharedconfig.DatabaseConfig `mapstructure:"database"`
	Logger   sharedconfig.LoggerConfig   `mapstructure:"logger"`
	Redis    sharedconfig.RedisConfig    `mapstructure:"redis"`
	Chain    sharedconfig.ChainConfig    `mapstructure:"chain"`
	Lottery  sharedconfig.LotteryConfig  `mapstructure:"lottery"`
}

// Load reads configuration from the given file (optional), the configs/
// directory and BLOCKLOTTO_* environment variables, in increasing order of
// precedence for the environment.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BLOCKLOTTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// No config file: defaults plus environment.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "blocklotto")
	v.SetDefault("database.database", "blocklotto")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 3600)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("chain.rpc_url", "https://polygon-rpc.com")
	v.SetDefault("chain.chain_id", 137)
	v.SetDefault("chain.scan_blocks", 500)
	v.SetDefault("chain.min_confirmations", 3)

	v.SetDefault("lottery.pick_size", 6)
	v.SetDefault("lottery.max_number", 60)
	v.SetDefault("lottery.bet_amount", "1")
	v.SetDefault("lottery.payment_tolerance", "0.01")
	v.SetDefault("lottery.house_fee_pct", "0.05")
	v.SetDefault("lottery.rollover_pct", "0.15")
	v.SetDefault("lottery.winner_pct", "0.80")
	v.SetDefault("lottery.draw_weekdays", []int{1, 3, 6})
	v.SetDefault("lottery.draw_hour", 22)
	v.SetDefault("lottery.draw_minute", 59)
	v.SetDefault("lottery.max_check_attempts", 240)
	v.SetDefault("lottery.poll_interval_seconds", 15)
	v.SetDefault("lottery.session_ttl_minutes", 30)
	v.SetDefault("lottery.pool_from_balance", false)
	v.SetDefault("lottery.results_fetch_enabled", true)
}

func validate(cfg *Config) error {
	if cfg.Chain.ReceivingAddress == "" {
		return fmt.Errorf("chain.receiving_address is required")
	}
	if cfg.Lottery.PickSize < 1 {
		return fmt.Errorf("lottery.pick_size must be positive")
	}
	if cfg.Lottery.MaxNumber < cfg.Lottery.PickSize {
		return fmt.Errorf("lottery.max_number must be at least lottery.pick_size")
	}
	if len(cfg.Lottery.DrawWeekdays) == 0 {
		return fmt.Errorf("lottery.draw_weekdays must name at least one weekday")
	}
	for _, d := range cfg.Lottery.DrawWeekdays {
		if d < 0 || d > 6 {
			return fmt.Errorf("lottery.draw_weekdays entries must be in [0, 6]")
		}
	}
	return nil
}
