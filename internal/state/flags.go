// Package state holds the process-wide coordination flags shared by the
// bulk lookup, the backup scheduler and the CLI.
package state

import "sync/atomic"

// Flags is safe for concurrent use. The zero value has every flag cleared.
type Flags struct {
	bulkRunning atomic.Bool
	reload      atomic.Bool
}

// SetBulkRunning records whether a bulk lookup is in progress.
func (f *Flags) SetBulkRunning(running bool) { f.bulkRunning.Store(running) }

// BulkRunning reports whether a bulk lookup is in progress.
func (f *Flags) BulkRunning() bool { return f.bulkRunning.Load() }

// RequestReload marks the book list as stale.
func (f *Flags) RequestReload() { f.reload.Store(true) }

// ConsumeReload reports whether a reload was requested and clears the
// request. Exactly one of several concurrent callers sees true.
func (f *Flags) ConsumeReload() bool { return f.reload.CompareAndSwap(true, false) }
