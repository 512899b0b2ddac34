package core

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

// DefaultBaseDir resolves the base directory holding all scopes. The
// SKILLSYNC_HOME environment variable overrides the XDG data directory.
func DefaultBaseDir() string {
	if custom := os.Getenv("SKILLSYNC_HOME"); custom != "" {
		return custom
	}
	return filepath.Join(xdg.DataHome, "skillsync")
}

// ScopeDir returns the directory for one scope under the base directory.
func ScopeDir(baseDir, scope string) string {
	return filepath.Join(baseDir, scope)
}

// SkillsRoot returns the skills directory for one scope.
func SkillsRoot(baseDir, scope string) string {
	return filepath.Join(baseDir, scope, SkillsDir)
}

// ScopeManager owns one registry per scope. It is an application-lifetime
// keyed store, constructed explicitly rather than living as ambient global
// state, so tests can build fresh instances. Registries are created on
// first use and torn down together by Shutdown.
type ScopeManager struct {
	baseDir string

	mu         sync.Mutex
	registries map[string]*LocalRegistry
}

// NewScopeManager creates a manager rooted at baseDir. The catalog is
// shared by every scope's scanner; per-scope signature overlays are layered
// on at registry construction.
func NewScopeManager(baseDir string) *ScopeManager {
	return &ScopeManager{
		baseDir:    baseDir,
		registries: make(map[string]*LocalRegistry),
	}
}

// BaseDir returns the manager's base directory.
func (m *ScopeManager) BaseDir() string {
	return m.baseDir
}

// Registry returns the initialized registry for a scope, constructing it on
// first use. Initialization failures are logged inside Init; the registry
// is returned Ready regardless so callers are never wedged.
func (m *ScopeManager) Registry(scope string) (*LocalRegistry, error) {
	if err := ValidateSkillName(scope); err != nil {
		// Scope names share the skill-name grammar: they are directory
		// names too.
		return nil, err
	}

	m.mu.Lock()
	registry, ok := m.registries[scope]
	if !ok {
		catalog := LoadCatalogWithOverlay(filepath.Join(ScopeDir(m.baseDir, scope), SignatureOverlayFile))
		scanner := NewContentScanner(catalog)
		registry = NewLocalRegistry(scope, SkillsRoot(m.baseDir, scope), scanner)
		m.registries[scope] = registry
	}
	m.mu.Unlock()

	if !ok {
		if err := registry.Init(); err != nil {
			return registry, err
		}
	}
	return registry, nil
}

// Shutdown stops every registry's watch and clears the instance map.
func (m *ScopeManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for scope, registry := range m.registries {
		registry.Shutdown()
		delete(m.registries, scope)
	}
}
