package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
watchlist:
  - ticker: gme
  - ticker: MSTR
    group: crypto
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, []string{"GME", "MSTR"}, c.Tickers())
	assert.Equal(t, "stocks", c.Watchlist[0].Group)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 5*time.Minute, c.Cache.ScoreTTL)
	assert.Equal(t, 10*time.Minute, c.Cache.AggregateTTL)
	assert.Equal(t, 4*time.Hour, c.Cache.OptionsTTL)
	assert.Equal(t, "@every 1h", c.Cycle.Schedule)
	assert.Equal(t, 500*time.Millisecond, c.Providers.Finnhub.MinDelay)
	assert.Equal(t, 7, c.Providers.Finnhub.Days)
	assert.Equal(t, "memory", c.Store.Type)
	assert.Equal(t, "memory", c.Backend.Type)
	assert.Equal(t, "hyperadar.snapshots", c.Kafka.Topic)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"empty watchlist", `watchlist: []`},
		{"duplicate ticker", "watchlist:\n  - ticker: GME\n  - ticker: gme\n"},
		{"bad group", "watchlist:\n  - ticker: GME\n    group: bonds\n"},
		{"postgres without dsn", minimal + "store:\n  type: postgres\n"},
		{"kafka without brokers", minimal + "backend:\n  type: kafka\nclickhouse:\n  host: ch\n"},
		{"clickhouse without host", minimal + "backend:\n  type: clickhouse\n"},
		{"unknown backend", minimal + "backend:\n  type: s3\n"},
		{"queue without redis", minimal + "notify:\n  queue:\n    enabled: true\n"},
		{"telegram without chat", minimal + "notify:\n  telegram:\n    enabled: true\n    token: x\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))

	t.Setenv("FINNHUB_API_KEY", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("WATCHLIST", "amc,tsla")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", c.Providers.Finnhub.APIKey)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, []string{"AMC", "TSLA"}, c.Tickers())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestSampleConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, c.Themes)
	assert.Contains(t, c.Tickers(), "GME")
	require.Len(t, c.Scoring.RankBoost, 4)
	assert.Equal(t, Step{Threshold: 15, Boost: 3}, c.Scoring.RankBoost[1])
}
