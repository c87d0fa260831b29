package utils

import (
	"maps"
	"strconv"
	"strings"
	"time"
)

// Config is a read-only key/value view over the process environment with typed getters.
// It is safe for concurrent use.
type Config struct {
	values map[string]string
}

// NewConfig creates a new Config holding a copy of the provided values
func NewConfig(values map[string]string) *Config {
	config := &Config{
		values: make(map[string]string, len(values)),
	}

	maps.Copy(config.values, values)

	return config
}

// NewConfigFromEnv loads the given .env files and returns a Config over the resulting environment
func NewConfigFromEnv(files ...string) *Config {
	return NewConfig(LoadEnv(files...))
}

// lookup returns the raw value and whether it is set to something non-empty
func (c *Config) lookup(key string) (string, bool) {
	value, exists := c.values[key]
	return value, exists && value != ""
}

// Get retrieves a configuration value by key, or an empty string
func (c *Config) Get(key string) string {
	value, _ := c.lookup(key)
	return value
}

// GetWithDefault retrieves a configuration value by key with a fallback default
func (c *Config) GetWithDefault(key, defaultValue string) string {
	if value, ok := c.lookup(key); ok {
		return value
	}
	return defaultValue
}

// GetBoolWithDefault parses a boolean value. Unset or unparseable values return the default.
func (c *Config) GetBoolWithDefault(key string, defaultValue bool) bool {
	value, ok := c.lookup(key)
	if !ok {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "1", "t", "true", "yes", "on", "enabled":
		return true
	case "0", "f", "false", "no", "off", "disabled":
		return false
	default:
		return defaultValue
	}
}

// GetIntWithDefault parses an integer value. Unset or unparseable values return the default.
func (c *Config) GetIntWithDefault(key string, defaultValue int) int {
	value, ok := c.lookup(key)
	if !ok {
		return defaultValue
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetDurationWithDefault parses a duration such as "30s" or "15m". A bare integer is
// read as seconds.
func (c *Config) GetDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value, ok := c.lookup(key)
	if !ok {
		return defaultValue
	}
	value = strings.TrimSpace(value)

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetList splits a comma separated value, dropping blank entries
func (c *Config) GetList(key string) []string {
	value, ok := c.lookup(key)
	if !ok {
		return nil
	}

	var list []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}
