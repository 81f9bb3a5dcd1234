package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"OPENAI_MODEL", "OPENAI_TIMEOUT", "PIPELINE_TRUNCATE_CHARS", "PIPELINE_DEFAULT_THRESHOLD", "DB_MAX_CONNS"} {
		t.Setenv(key, "")
	}
	cfg := LoadConfig()
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3000, cfg.Pipeline.TruncateChars)
	assert.Equal(t, 0.7, cfg.Pipeline.DefaultThreshold)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SQLITE_PATH", "/tmp/docparse.db")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_TIMEOUT", "10s")
	t.Setenv("PIPELINE_TRUNCATE_CHARS", "1500")
	t.Setenv("PIPELINE_DEFAULT_THRESHOLD", "0.8")
	t.Setenv("DB_MAX_CONNS", "not-a-number") // bad values fall back

	cfg := LoadConfig()
	assert.Equal(t, "/tmp/docparse.db", cfg.Database.SQLitePath)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 1500, cfg.Pipeline.TruncateChars)
	assert.Equal(t, 0.8, cfg.Pipeline.DefaultThreshold)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{SQLitePath: "/tmp/docparse.db"},
			LLM:      LLMConfig{APIKey: "sk-test"},
			Pipeline: PipelineConfig{DefaultThreshold: 0.7},
		}
	}
	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Database.SQLitePath = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.LLM.APIKey = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Pipeline.DefaultThreshold = 0.4
	assert.Error(t, cfg.Validate())
}
