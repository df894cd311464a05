package redis

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string `env:"URL" envDefault:"redis://localhost:6379"`

	// Pool settings
	PoolSize     int `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int `env:"MIN_IDLE_CONNS" envDefault:"2"`

	// MaxTxRetries bounds how often an optimistic transaction is re-run
	// after a watched key changed underneath it
	MaxTxRetries int `env:"MAX_TX_RETRIES" envDefault:"16"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		MaxTxRetries: 16,
	}
}
