package wake

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSysfsLocker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wake_lock"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wake_unlock"), nil, 0o644))
	l := &SysfsLocker{Dir: dir}

	assert.True(t, l.Available())
	require.NoError(t, l.Lock("proximity", 2*time.Second))
	data, err := os.ReadFile(filepath.Join(dir, "wake_lock"))
	require.NoError(t, err)
	assert.Equal(t, "proximity 2000000000", string(data))

	require.NoError(t, l.Unlock("proximity"))
	data, err = os.ReadFile(filepath.Join(dir, "wake_unlock"))
	require.NoError(t, err)
	assert.Equal(t, "proximity", string(data))
}

func TestSysfsLocker_Unavailable(t *testing.T) {
	l := &SysfsLocker{Dir: t.TempDir()}

	assert.False(t, l.Available())
	assert.Error(t, l.Lock("proximity", time.Second))
}
