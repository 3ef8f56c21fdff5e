package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, byte(0x66), cfg.MicroP.Address)
	assert.Equal(t, 2*time.Second, cfg.Wake.Duration)
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), filepath.Join(t.TempDir(), "absent.env"))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "proximity.yaml", `
adapter: mcp2221
i2c:
  bus: 2
microp:
  address: 0x67
irq:
  poll_interval: 50ms
wake:
  backend: none
  duration: 3s
`)

	cfg, err := Load(path, "")

	require.NoError(t, err)
	assert.Equal(t, AdapterMCP2221, cfg.Adapter)
	assert.Equal(t, 2, cfg.I2C.Bus)
	assert.Equal(t, byte(0x67), cfg.MicroP.Address)
	assert.Equal(t, 3, cfg.MicroP.RetryLimit)
	assert.Equal(t, 50*time.Millisecond, cfg.IRQ.PollInterval)
	assert.Equal(t, WakeNone, cfg.Wake.Backend)
	assert.Equal(t, 3*time.Second, cfg.Wake.Duration)
	assert.Equal(t, "proximity", cfg.Wake.LockName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "proximity.yaml", "adapter: mcp2221\n")
	t.Setenv("PROXIMITY_ADAPTER", "nanopi")
	t.Setenv("PROXIMITY_MICROP_ADDRESS", "0x10")
	t.Setenv("PROXIMITY_WAKE_DURATION", "500ms")

	cfg, err := Load(path, "")

	require.NoError(t, err)
	assert.Equal(t, AdapterNanoPi, cfg.Adapter)
	assert.Equal(t, byte(0x10), cfg.MicroP.Address)
	assert.Equal(t, 500*time.Millisecond, cfg.Wake.Duration)
}

func TestLoad_EnvFile(t *testing.T) {
	env := writeFile(t, ".env", "PROXIMITY_IRQ_PIN=GPIO17\n")
	// restored by the test cleanup after godotenv sets it
	t.Setenv("PROXIMITY_IRQ_PIN", "")
	require.NoError(t, os.Unsetenv("PROXIMITY_IRQ_PIN"))

	cfg, err := Load("", env)

	require.NoError(t, err)
	assert.Equal(t, "GPIO17", cfg.IRQ.Pin)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "unknown adapter", file: "adapter: serial\n"},
		{name: "unknown wake backend", file: "wake:\n  backend: dbus\n"},
		{name: "bad duration", env: map[string]string{"PROXIMITY_WAKE_DURATION": "soon"}},
		{name: "bad address", env: map[string]string{"PROXIMITY_MICROP_ADDRESS": "0x100"}},
		{name: "bad bus", env: map[string]string{"PROXIMITY_I2C_BUS": "two"}},
		{name: "zero poll interval", env: map[string]string{"PROXIMITY_IRQ_POLL_INTERVAL": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, "proximity.yaml", tt.file)
			}

			_, err := Load(path, "")

			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeFile(t, "proximity.yaml", "adapter: [unterminated\n")

	_, err := Load(path, "")

	assert.ErrorContains(t, err, "could not parse config file")
}
