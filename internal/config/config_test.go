package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: "8081"
database:
  driver: sqlite
  dsn: /tmp/prima.db
llm:
  provider: openai
  api_key: from-file
  model: gpt-4o-mini
ai:
  max_tool_steps: 3
  rate_limit:
    max_messages: 10
`

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	t.Setenv("PRIMA_LLM_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, "EVA", cfg.AI.AssistantName)
	assert.Equal(t, 3, cfg.AI.MaxToolSteps)
	assert.Equal(t, 10, cfg.AI.RateLimit.MaxMessages)
	assert.Equal(t, time.Hour, cfg.AI.RateLimit.Window())
	assert.Equal(t, 30*time.Second, cfg.AI.PortalTimeout())
	assert.Equal(t, "0 8 * * *", cfg.Scheduler.DeadlineCron)
	assert.Equal(t, 3, cfg.Scheduler.DeadlineWindowDays)
	assert.Equal(t, 15, cfg.MinIO.LinkTTLMinutes)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWithDefaultsKeepsOverrides(t *testing.T) {
	cfg := AIConfig{MaxHistory: 5, Temperature: Float(0.2)}.WithDefaults()
	assert.Equal(t, 5, cfg.MaxHistory)
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, 0.2, *cfg.Temperature)
	require.NotNil(t, cfg.Notification.Temperature)
	assert.Equal(t, 0.7, *cfg.Notification.Temperature)
	assert.Equal(t, 2000, cfg.MaxOutputTokens)
	assert.Equal(t, 500, cfg.Notification.MaxOutputTokens)
}

func TestLoadKeepsZeroTemperature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := sampleYAML + `  temperature: 0
  notification:
    temperature: 0
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.AI.Temperature)
	assert.Equal(t, 0.0, *cfg.AI.Temperature)
	require.NotNil(t, cfg.AI.Notification.Temperature)
	assert.Equal(t, 0.0, *cfg.AI.Notification.Temperature)
}

func TestBundledConfigLogPathIsDirectory(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	// log.Init 会在该目录下拼接 app.log
	assert.NotEmpty(t, cfg.Log.OutputPath)
	assert.Empty(t, filepath.Ext(cfg.Log.OutputPath))
}
