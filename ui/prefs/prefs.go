// Package prefs stores small UI preferences (window size, last username,
// task filter) as a JSON key-value file next to the config.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"siteplan/internal/config"
)

const prefsFile = "preferences.json"

// Keys used by the main window.
const (
	KeyWindowWidth  = "windowWidth"
	KeyWindowHeight = "windowHeight"
	KeyLastUsername = "lastUsername"
	KeyLastDir      = "lastDirectory"
	KeyFilter       = "taskFilter"
	KeyActiveTab    = "activeTab"
)

// Prefs stores application preferences as a key-value map.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
}

// Load reads preferences from the siteplan config directory.
func Load() *Prefs {
	return LoadFrom(filepath.Join(config.Dir(), prefsFile))
}

// LoadFrom reads preferences from path. A missing or unreadable file gives
// empty preferences.
func LoadFrom(path string) *Prefs {
	p := &Prefs{
		values: make(map[string]interface{}),
		path:   path,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	if json.Unmarshal(data, &p.values) != nil {
		p.values = make(map[string]interface{})
	}
	return p
}

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// FloatWithFallback returns a float64 preference, or fallback if not set.
func (p *Prefs) FloatWithFallback(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// String returns a string preference, or "" if not set.
func (p *Prefs) String(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.values[key].(string); ok {
		return s
	}
	return ""
}

// SetString stores a string preference. An empty value removes the key.
func (p *Prefs) SetString(key string, val string) {
	p.mu.Lock()
	if val == "" {
		delete(p.values, key)
	} else {
		p.values[key] = val
	}
	p.mu.Unlock()
}
