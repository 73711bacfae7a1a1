package colframe

import "sync/atomic"

// Mode selects how writes to storage shared between a table and its views
// behave.
type Mode int32

const (
	// ModeDefault defers to the process-wide default Mode
	ModeDefault Mode = iota
	// ModeLegacy writes straight into shared storage, so that a write through a
	// view may be observed by its parent and vice versa
	ModeLegacy
	// ModeCopyOnWrite forks shared storage before a write, so that views and
	// parents never observe each other's writes
	ModeCopyOnWrite
)

var defaultMode atomic.Int32

func init() {
	defaultMode.Store(int32(ModeCopyOnWrite))
}

// String returns a textual representation of this Mode
func (m Mode) String() string {
	switch m {
	case ModeLegacy:
		return "legacy"
	case ModeCopyOnWrite:
		return "copy_on_write"
	default:
		return "default"
	}
}

// Resolve maps ModeDefault to the current process-wide default Mode
func (m Mode) Resolve() Mode {
	if m == ModeDefault {
		return DefaultMode()
	}
	return m
}

// DefaultMode returns the process-wide default Mode
func DefaultMode() Mode {
	return Mode(defaultMode.Load())
}

// SetDefaultMode sets the process-wide default Mode, returning the previous one.
// Setting ModeDefault restores copy-on-write.
func SetDefaultMode(m Mode) Mode {
	if m == ModeDefault {
		m = ModeCopyOnWrite
	}
	return Mode(defaultMode.Swap(int32(m)))
}

// UsingCopyOnWrite returns true iff the process-wide default Mode is ModeCopyOnWrite
func UsingCopyOnWrite() bool {
	return DefaultMode() == ModeCopyOnWrite
}
