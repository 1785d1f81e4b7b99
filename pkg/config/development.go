package config

func loadDevelopmentConfig(cfg *Config) {
	cfg.DatabaseDebug = true
	cfg.ServerHost = "127.0.0.1"
}

func loadTestConfig(cfg *Config) {
	cfg.DatabaseFilePath = ":memory:"
	cfg.DatabaseConnectRetryCount = 1
	cfg.DatabaseConnectRetryDelay = 0
	cfg.RateLimitPerSecond = 0
	cfg.ServerHost = "127.0.0.1"
}

func loadProductionConfig(cfg *Config) {
	cfg.DatabaseDebug = false
}
