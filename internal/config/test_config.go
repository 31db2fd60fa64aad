package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.API.BaseURL = "http://127.0.0.1:0"
	cfg.API.Timeout = 2 * time.Second
	cfg.API.UserAgent = "userdir-test/1.0"
	cfg.API.AllowLocal = true
	cfg.Search.Debounce = 10 * time.Millisecond
	cfg.Search.HistoryEnabled = false
	cfg.Search.HistoryPath = ""
	cfg.Log = LogConfig{Level: "off"}
	return cfg
}
