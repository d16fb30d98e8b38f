package config

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/switchboard-ai/switchboard/internal/metrics"
)

// Status describes the currently loaded configuration revision.
type Status struct {
	Path          string    `json:"path"`
	Checksum      string    `json:"checksum"`
	PolicyVersion string    `json:"policy_version"`
	LoadedAt      time.Time `json:"loaded_at"`
	ReloadCount   uint64    `json:"reload_count"`
}

// Manager handles configuration loading and hot-reload.
// It uses atomic pointer swaps to ensure thread-safe config updates.
type Manager struct {
	config  atomic.Pointer[Config]
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu          sync.Mutex
	onChange    []func(*Config)
	loadedAt    time.Time
	reloadCount uint64
}

// NewManager creates a new configuration manager. The initial load counts
// toward ReloadCount.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		path:        path,
		logger:      logger,
		loadedAt:    time.Now(),
		reloadCount: 1,
	}
	m.config.Store(cfg)

	return m, nil
}

// Get returns the current configuration.
// This is safe to call concurrently from multiple goroutines.
func (m *Manager) Get() *Config {
	return m.config.Load()
}

// Status returns load metadata for the current configuration.
func (m *Manager) Status() Status {
	cfg := m.Get()
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Path:          m.path,
		Checksum:      cfg.Checksum(),
		PolicyVersion: cfg.Policy.Version,
		LoadedAt:      m.loadedAt,
		ReloadCount:   m.reloadCount,
	}
}

// OnChange registers a callback to be invoked when configuration changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Reload re-reads the configuration file and swaps it in atomically.
// On error the previous configuration stays active.
func (m *Manager) Reload() error {
	newCfg, err := LoadFromFile(m.path)
	metrics.RecordReload(err)
	if err != nil {
		return err
	}

	m.config.Store(newCfg)

	m.mu.Lock()
	m.loadedAt = time.Now()
	m.reloadCount++
	callbacks := append([]func(*Config){}, m.onChange...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(newCfg)
	}
	return nil
}

// Watch starts watching the configuration file for changes.
// It debounces rapid changes and reloads configuration atomically.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher

	if err := watcher.Add(m.path); err != nil {
		_ = watcher.Close()
		return err
	}

	go m.watchLoop(ctx)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context) {
	// Debounce timer to avoid rapid reloads
	const debounceDelay = 500 * time.Millisecond
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			_ = m.watcher.Close()
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				// Reset debounce timer
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, func() {
					if err := m.Reload(); err != nil {
						m.logger.Error("failed to reload config, keeping current",
							"error", err,
						)
						return
					}
					m.logger.Info("configuration reloaded",
						"checksum", m.Get().Checksum(),
					)
				})
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("config watcher error", "error", err)
		}
	}
}

// Close stops the configuration watcher.
func (m *Manager) Close() error {
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
