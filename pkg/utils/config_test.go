package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("with nil values", func(t *testing.T) {
		config := NewConfig(nil)
		require.NotNil(t, config)
		assert.Empty(t, config.Get("anything"))
	})

	t.Run("with values", func(t *testing.T) {
		values := map[string]string{
			"key1": "value1",
			"key2": "value2",
		}
		config := NewConfig(values)

		assert.Equal(t, "value1", config.Get("key1"))
		assert.Equal(t, "value2", config.Get("key2"))

		// Verify it's a copy, not a reference
		values["key1"] = "modified"
		assert.NotEqual(t, "modified", config.Get("key1"))
	})
}

func TestNewConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TOLLSYNC_TEST_KEY=from_file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TOLLSYNC_TEST_KEY") })

	config := NewConfigFromEnv(path, filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, "from_file", config.Get("TOLLSYNC_TEST_KEY"))
}

func TestConfigGetWithDefault(t *testing.T) {
	config := NewConfig(map[string]string{
		"existing": "value",
		"empty":    "",
	})

	assert.Equal(t, "value", config.GetWithDefault("existing", "default"))
	assert.Equal(t, "default", config.GetWithDefault("missing", "default"))
	assert.Equal(t, "default", config.GetWithDefault("empty", "default"))
}

func TestConfigGetBool(t *testing.T) {
	config := NewConfig(map[string]string{
		"true_bool":      "true",
		"false_bool":     "false",
		"true_1":         "1",
		"false_0":        "0",
		"true_yes":       "YES",
		"false_off":      "off",
		"true_enabled":   "enabled",
		"false_disabled": "disabled",
		"invalid":        "invalid_bool",
	})

	tests := []struct {
		key      string
		expected bool
	}{
		{"true_bool", true},
		{"false_bool", false},
		{"true_1", true},
		{"false_0", false},
		{"true_yes", true},
		{"false_off", false},
		{"true_enabled", true},
		{"false_disabled", false},
		{"invalid", false},
		{"missing", false},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			assert.Equal(t, test.expected, config.GetBoolWithDefault(test.key, false), "GetBoolWithDefault(%s)", test.key)
		})
	}

	t.Run("defaults", func(t *testing.T) {
		assert.True(t, config.GetBoolWithDefault("missing", true))
		assert.True(t, config.GetBoolWithDefault("invalid", true))
		assert.False(t, config.GetBoolWithDefault("false_bool", true))
	})
}

func TestConfigGetInt(t *testing.T) {
	config := NewConfig(map[string]string{
		"number":   "42",
		"padded":   " 7 ",
		"negative": "-3",
		"invalid":  "abc",
	})

	assert.Equal(t, 42, config.GetIntWithDefault("number", 0))
	assert.Equal(t, 7, config.GetIntWithDefault("padded", 0))
	assert.Equal(t, -3, config.GetIntWithDefault("negative", 0))
	assert.Equal(t, 5, config.GetIntWithDefault("invalid", 5))
	assert.Equal(t, 5, config.GetIntWithDefault("missing", 5))
}

func TestConfigGetDuration(t *testing.T) {
	config := NewConfig(map[string]string{
		"go_format": "1m30s",
		"seconds":   "45",
		"invalid":   "soon",
	})

	tests := []struct {
		key      string
		expected time.Duration
	}{
		{"go_format", 90 * time.Second},
		{"seconds", 45 * time.Second},
		{"invalid", time.Minute},
		{"missing", time.Minute},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			assert.Equal(t, test.expected, config.GetDurationWithDefault(test.key, time.Minute))
		})
	}
}

func TestConfigGetList(t *testing.T) {
	config := NewConfig(map[string]string{
		"tables": "vehicles, drivers,,trips ",
		"blank":  " , ",
	})

	assert.Equal(t, []string{"vehicles", "drivers", "trips"}, config.GetList("tables"))
	assert.Empty(t, config.GetList("blank"))
	assert.Nil(t, config.GetList("missing"))
}
