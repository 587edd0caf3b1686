// Package config defines typed configuration structures shared across the
// application. Values are populated by the infrastructure config loader.
package config

import "fmt"

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// GetAddr returns the listen address in host:port form.
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds MySQL connection configuration.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// DSN returns the MySQL data source name.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GetAddr returns the Redis address in host:port form.
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ChainConfig holds blockchain gateway configuration.
type ChainConfig struct {
	RPCURL           string `mapstructure:"rpc_url"`
	ChainID          int64  `mapstructure:"chain_id"`
	ReceivingAddress string `mapstructure:"receiving_address"`
	PayoutPrivateKey string `mapstructure:"payout_private_key"`
	ScanBlocks       int    `mapstructure:"scan_blocks"`
	MinConfirmations int    `mapstructure:"min_confirmations"`
}

// LotteryConfig holds the lottery deployment parameters: pick shape, pricing,
// pool split percentages and the draw schedule.
type LotteryConfig struct {
	PickSize  int `mapstructure:"pick_size"`
	MaxNumber int `mapstructure:"max_number"`

	// BetAmount is the expected per-bet payment in native currency units,
	// as a decimal string. PaymentTolerance is the accepted deviation when
	// matching inbound transactions.
	BetAmount        string `mapstructure:"bet_amount"`
	PaymentTolerance string `mapstructure:"payment_tolerance"`

	// Pool split percentages. Must sum to 1.0.
	HouseFeePct string `mapstructure:"house_fee_pct"`
	RolloverPct string `mapstructure:"rollover_pct"`
	WinnerPct   string `mapstructure:"winner_pct"`

	// Draw schedule: weekdays (0=Sunday..6=Saturday) and cutoff time.
	DrawWeekdays []int `mapstructure:"draw_weekdays"`
	DrawHour     int   `mapstructure:"draw_hour"`
	DrawMinute   int   `mapstructure:"draw_minute"`

	// Payment reconciliation bounds.
	MaxCheckAttempts    int `mapstructure:"max_check_attempts"`
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	SessionTTLMinutes   int `mapstructure:"session_ttl_minutes"`

	// PoolFromBalance switches the current-round pool figure to the live
	// receiving-wallet balance instead of summing paid bets.
	PoolFromBalance bool `mapstructure:"pool_from_balance"`

	// ResultsFetchEnabled enables the scheduled external results fetch.
	// When false, results arrive only via the manual entry endpoint.
	ResultsFetchEnabled bool `mapstructure:"results_fetch_enabled"`
}
