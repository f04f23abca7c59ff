package server

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := LoadConfig()
	req.NoError(err)

	want := NewConfig()
	want.JWTSecret = testSecret
	req.Equal(want, cfg)
	req.Equal(54*time.Second, cfg.pingPeriod())
}

func TestLoadConfigOverrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test,https://b.test")
	t.Setenv("SEND_QUEUE_SIZE", "16")
	t.Setenv("STORE_TIMEOUT", "250ms")
	t.Setenv("STORE_DRIVER", "badger")
	t.Setenv("STORE_DSN", "/var/lib/roomchat")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadConfig()
	req.NoError(err)
	req.Equal(":9000", cfg.Port)
	req.Equal([]string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
	req.Equal(16, cfg.SendQueueSize)
	req.Equal(250*time.Millisecond, cfg.StoreTimeout)
	req.Equal("badger", cfg.StoreDriver)
	req.Equal("/var/lib/roomchat", cfg.StoreDSN)
	req.Equal("json", cfg.LogFormat)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{}},
		{name: "short secret", env: map[string]string{"JWT_SECRET": "short"}},
		{name: "unknown driver", env: map[string]string{"JWT_SECRET": testSecret, "STORE_DRIVER": "mysql"}},
		{name: "zero queue", env: map[string]string{"JWT_SECRET": testSecret, "SEND_QUEUE_SIZE": "0"}},
		{name: "negative timeout", env: map[string]string{"JWT_SECRET": testSecret, "STORE_TIMEOUT": "-1s"}},
		{name: "bad duration", env: map[string]string{"JWT_SECRET": testSecret, "WRITE_TIMEOUT": "soon"}},
		{name: "unknown zone", env: map[string]string{"JWT_SECRET": testSecret, "TIME_ZONE": "Mars/Olympus_Mons"}},
		{name: "bad log level", env: map[string]string{"JWT_SECRET": testSecret, "LOG_LEVEL": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	log := NewLogger(&buf, "warn", "json")
	log.Info("hidden")
	log.Warn("shown", "room_id", 4)

	var record map[string]any
	req.NoError(json.Unmarshal(buf.Bytes(), &record))
	req.Equal("shown", record["msg"])
	req.Equal("WARN", record["level"])
	req.InDelta(4, record["room_id"], 0)
}
