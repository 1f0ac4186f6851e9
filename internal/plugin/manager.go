package plugin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager discovers plugins under a directory.
type Manager struct {
	pluginDir string
	fs        afero.Fs
	logger    *slog.Logger

	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithFs sets the filesystem manifests are read from.
func WithFs(fs afero.Fs) ManagerOption {
	return func(m *Manager) { m.fs = fs }
}

// WithLogger sets the logger used to report skipped plugins.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager for pluginDir.
func NewManager(pluginDir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		pluginDir: pluginDir,
		fs:        afero.NewOsFs(),
		logger:    slog.Default(),
		plugins:   make(map[string]*Plugin),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Discover rescans the plugin directory. A missing directory yields no
// plugins; unreadable or malformed manifests are skipped.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	entries, err := afero.ReadDir(m.fs, m.pluginDir)
	if errors.Is(err, os.ErrNotExist) {
		m.replace(found)
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.pluginDir, entry.Name())
		p, err := m.load(dir)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				m.logger.Warn("skipping plugin", "dir", dir, "error", err)
			}
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.replace(found)
	return nil
}

func (m *Manager) load(dir string) (*Plugin, error) {
	data, err := afero.ReadFile(m.fs, filepath.Join(dir, "plugin.json"))
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}
	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

func (m *Manager) replace(plugins map[string]*Plugin) {
	m.mu.Lock()
	m.plugins = plugins
	m.mu.Unlock()
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return p, nil
}

// List returns the discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Manifest.Name < plugins[j].Manifest.Name })
	return plugins
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
