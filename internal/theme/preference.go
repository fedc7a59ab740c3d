package theme

import (
	"log"
	gosync "sync"
)

// Key is the preference key the theme is stored under.
const Key = "theme"

const (
	valueDark  = "dark"
	valueLight = "light"
)

// KV is a string key/value store for user preferences.
type KV interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Preference is the process-wide dark/light flag. Reads are served from
// memory; every toggle is written back to the KV in the background.
type Preference struct {
	kv     KV
	logger *log.Logger

	mu     gosync.Mutex
	dark   bool
	dirty  bool
	saving bool
	idle   *gosync.Cond
}

// NewPreference returns a light Preference backed by kv. Call Load to read
// the stored value.
func NewPreference(kv KV, logger *log.Logger) *Preference {
	if logger == nil {
		logger = log.Default()
	}
	p := &Preference{kv: kv, logger: logger}
	p.idle = gosync.NewCond(&p.mu)
	return p
}

// Load reads the stored flag. A missing key, an unknown value or a read
// failure all mean light; failures are logged.
func (p *Preference) Load() bool {
	value, ok, err := p.kv.Get(Key)
	if err != nil {
		p.logger.Printf("loading theme preference: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dark = err == nil && ok && value == valueDark
	return p.dark
}

// IsDark reports the in-memory flag.
func (p *Preference) IsDark() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dark
}

// Toggle flips the flag, schedules a write and returns the new value.
// Write failures are logged and not retried.
func (p *Preference) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.dark = !p.dark
	p.dirty = true
	if !p.saving {
		p.saving = true
		go p.persist()
	}
	return p.dark
}

// Wait blocks until every scheduled write has finished.
func (p *Preference) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.saving {
		p.idle.Wait()
	}
}

// persist writes the current flag until no toggle happened during the
// last write. Only one persist runs at a time.
func (p *Preference) persist() {
	p.mu.Lock()
	for p.dirty {
		p.dirty = false
		value := valueLight
		if p.dark {
			value = valueDark
		}
		p.mu.Unlock()

		if err := p.kv.Set(Key, value); err != nil {
			p.logger.Printf("saving theme preference %s=%s: %v", Key, value, err)
		}

		p.mu.Lock()
	}
	p.saving = false
	p.idle.Broadcast()
	p.mu.Unlock()
}
