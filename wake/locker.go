package wake

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const DefaultSysfsDir = "/sys/power"

// SysfsLocker drives the user-space wake lock interface
// (/sys/power/wake_lock and /sys/power/wake_unlock).
type SysfsLocker struct {
	Dir string
}

func NewSysfsLocker() *SysfsLocker {
	return &SysfsLocker{Dir: DefaultSysfsDir}
}

// Available reports whether the kernel exposes the wake lock interface.
func (l *SysfsLocker) Available() bool {
	_, err := os.Stat(filepath.Join(l.Dir, "wake_lock"))
	return err == nil
}

// Lock writes "<name> <timeout_ns>" so the kernel drops the lock on its own
// if the process dies while holding it.
func (l *SysfsLocker) Lock(name string, timeout time.Duration) error {
	return l.write("wake_lock", fmt.Sprintf("%s %d", name, timeout.Nanoseconds()))
}

func (l *SysfsLocker) Unlock(name string) error {
	return l.write("wake_unlock", name)
}

func (l *SysfsLocker) write(file, value string) error {
	path := filepath.Join(l.Dir, file)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("wake: could not open %s: %w", path, err)
	}
	_, err = f.WriteString(value)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("wake: could not write %s: %w", path, err)
	}
	return nil
}

// NopLocker is used on hosts without suspend support.
type NopLocker struct{}

func (NopLocker) Lock(string, time.Duration) error { return nil }

func (NopLocker) Unlock(string) error { return nil }
