// Package watchlist persists the set of assets analyzed on schedule.
package watchlist

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"CoinSentinel/internal/model"
)

// ErrInvalidAsset is returned for ids that are not lower-case slugs.
var ErrInvalidAsset = errors.New("invalid asset id")

var assetID = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// Normalize trims and lower-cases an asset id and checks its shape.
func Normalize(asset string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(asset))
	if !assetID.MatchString(a) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAsset, asset)
	}
	return a, nil
}

// Manager guards the watchlist and writes every change through to disk.
type Manager struct {
	mu        sync.Mutex
	state     *model.Watchlist
	filePath  string
	listeners []func(assets []string)
}

// NewManager loads the watchlist from filePath, seeding it with defaults on first run.
func NewManager(filePath string, defaults []string) (*Manager, error) {
	state, exists, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}

	m := &Manager{state: state, filePath: filePath}
	if !exists {
		for _, d := range defaults {
			a, err := Normalize(d)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(state.Assets, a) {
				state.Assets = append(state.Assets, a)
			}
		}
		if err := m.save(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// List returns a copy of the watched assets in insertion order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.state.Assets)
}

// Contains reports whether asset is watched.
func (m *Manager) Contains(asset string) bool {
	a, err := Normalize(asset)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.state.Assets, a)
}

// OnChange registers fn to run with the new list after every successful Add or Remove.
func (m *Manager) OnChange(fn func(assets []string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Add watches asset. It reports false when it was already watched.
func (m *Manager) Add(asset string) (bool, error) {
	a, err := Normalize(asset)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	if slices.Contains(m.state.Assets, a) {
		m.mu.Unlock()
		return false, nil
	}
	m.state.Assets = append(m.state.Assets, a)
	if err := m.save(); err != nil {
		m.state.Assets = m.state.Assets[:len(m.state.Assets)-1]
		m.mu.Unlock()
		return false, err
	}
	m.notifyLocked()
	return true, nil
}

// Remove stops watching asset. It reports false when it was not watched.
func (m *Manager) Remove(asset string) (bool, error) {
	a, err := Normalize(asset)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	i := slices.Index(m.state.Assets, a)
	if i < 0 {
		m.mu.Unlock()
		return false, nil
	}
	prev := slices.Clone(m.state.Assets)
	m.state.Assets = slices.Delete(m.state.Assets, i, i+1)
	if err := m.save(); err != nil {
		m.state.Assets = prev
		m.mu.Unlock()
		return false, err
	}
	m.notifyLocked()
	return true, nil
}

// notifyLocked releases mu and then calls the listeners, so they may read the manager.
func (m *Manager) notifyLocked() {
	assets := slices.Clone(m.state.Assets)
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(slices.Clone(assets))
	}
}

func (m *Manager) save() error {
	if err := SaveState(m.filePath, m.state); err != nil {
		return fmt.Errorf("save watchlist: %w", err)
	}
	return nil
}
