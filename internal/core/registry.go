package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/skillsync-dev/skillsync/internal/logger"
	"github.com/skillsync-dev/skillsync/internal/types"
)

// RegistryState is the registry lifecycle: Uninitialized -> Initializing ->
// Ready. Ready is reached even if initialization partially failed; callers
// are never blocked indefinitely waiting for readiness.
type RegistryState int

const (
	RegistryUninitialized RegistryState = iota
	RegistryInitializing
	RegistryReady
)

// LocalRegistry is the in-memory index of installed skills for one scope,
// built by re-scanning local storage and kept current via a debounced
// filesystem watch plus explicit diff-based resyncs.
type LocalRegistry struct {
	scope   string
	rootDir string
	scanner *ContentScanner

	mu     sync.RWMutex
	skills map[string]*types.InstalledSkill
	state  RegistryState

	watch *WatchService
}

// NewLocalRegistry creates an uninitialized registry for a scope rooted at
// rootDir.
func NewLocalRegistry(scope, rootDir string, scanner *ContentScanner) *LocalRegistry {
	return &LocalRegistry{
		scope:   scope,
		rootDir: rootDir,
		scanner: scanner,
		skills:  make(map[string]*types.InstalledSkill),
	}
}

// RootDir returns the skills root directory for this registry's scope.
func (r *LocalRegistry) RootDir() string {
	return r.rootDir
}

// State returns the current lifecycle state.
func (r *LocalRegistry) State() RegistryState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Init discovers and scans every valid-named skill directory under the
// root, then starts the filesystem watch. A per-skill scan failure is
// logged and that skill is simply absent from the registry; it never aborts
// initialization.
func (r *LocalRegistry) Init() error {
	r.mu.Lock()
	if r.state != RegistryUninitialized {
		r.mu.Unlock()
		return nil
	}
	r.state = RegistryInitializing
	r.mu.Unlock()

	if err := os.MkdirAll(r.rootDir, 0o755); err != nil {
		// Still transition to Ready: an unreadable root yields an empty
		// registry, not a wedged one.
		logger.Errorw("create skills root failed", "scope", r.scope, "error", err)
		r.setReady()
		return fmt.Errorf("create skills root: %w", err)
	}

	for _, name := range r.diskSkillNames() {
		skill, err := r.ScanPackage(name)
		if err != nil {
			logger.Warnw("skipping unscannable skill", "scope", r.scope, "skill", name, "error", err)
			continue
		}
		r.mu.Lock()
		r.skills[name] = skill
		r.mu.Unlock()
	}

	r.setReady()

	watch, err := NewWatchService(r.rootDir, func() {
		if _, err := r.Resync(); err != nil {
			logger.Warnw("watch-triggered resync failed", "scope", r.scope, "error", err)
		}
	})
	if err != nil {
		// The registry still works without the watch; explicit resyncs
		// remain available.
		logger.Warnw("filesystem watch unavailable", "scope", r.scope, "error", err)
	} else {
		r.watch = watch
	}

	return nil
}

func (r *LocalRegistry) setReady() {
	r.mu.Lock()
	r.state = RegistryReady
	r.mu.Unlock()
}

// ScanPackage re-reads the named skill directory fresh and returns its
// registry entry, replacing any prior entry for that name atomically.
//
// Only immediate files are enumerated; subdirectories are a deliberate
// scope limit and are reported as unscanned, not descended into.
func (r *LocalRegistry) ScanPackage(name string) (*types.InstalledSkill, error) {
	skillPath, err := SafeSkillPath(r.rootDir, name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(skillPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError(name)
		}
		return nil, fmt.Errorf("stat skill '%s': %w", name, err)
	}
	if !info.IsDir() {
		return nil, NewValidationError("skill", name, "path exists but is not a directory")
	}

	entries, err := os.ReadDir(skillPath)
	if err != nil {
		return nil, fmt.Errorf("read skill '%s': %w", name, err)
	}

	skill := &types.InstalledSkill{
		Name:  name,
		Path:  skillPath,
		Scope: r.scope,
	}

	var files []FetchedFile
	var totalSize int64

	for _, entry := range entries {
		entryName := entry.Name()
		if entry.IsDir() {
			skill.Unscanned = append(skill.Unscanned, entryName+"/ (subdirectory)")
			continue
		}
		if !isScannableName(entryName) {
			skill.Unscanned = append(skill.Unscanned, entryName+" (excluded extension)")
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			skill.Unscanned = append(skill.Unscanned, fmt.Sprintf("%s (stat failed: %v)", entryName, err))
			continue
		}
		if fi.Size() > MaxFileSize {
			skill.Unscanned = append(skill.Unscanned, fmt.Sprintf("%s (%d bytes exceeds per-file limit)", entryName, fi.Size()))
			continue
		}
		if totalSize+fi.Size() > MaxSkillSize {
			skill.Unscanned = append(skill.Unscanned, entryName+" (skill size budget exhausted)")
			continue
		}

		data, err := os.ReadFile(filepath.Join(skillPath, entryName))
		if err != nil {
			skill.Unscanned = append(skill.Unscanned, fmt.Sprintf("%s (read failed: %v)", entryName, err))
			continue
		}

		totalSize += int64(len(data))
		files = append(files, FetchedFile{Name: entryName, Content: string(data), Size: int64(len(data))})

		if strings.EqualFold(entryName, ManifestFile) {
			skill.HasManifest = true
		}
	}

	// The whole skill scans as one unit. A multiline pattern spanning a
	// file boundary through the marker is an accepted false-positive
	// surface.
	skill.Scan = r.scanner.Scan(ConcatenateFiles(files))
	skill.ContentHash = skill.Scan.ContentHash
	skill.FilesCount = len(files)
	skill.TotalSize = totalSize
	skill.LastScanned = time.Now().UTC()

	r.mu.Lock()
	r.skills[name] = skill
	r.mu.Unlock()

	return skill, nil
}

// Resync diffs the on-disk skill set against the registry and mutates the
// registry to match: disk-only names are scanned in as added, registry-only
// names are dropped as removed, and names in both are rescanned and
// classified as modified or unchanged by content-hash comparison. The same
// hash semantics back the sync engine's local-modification conflict check.
func (r *LocalRegistry) Resync() (*types.ResyncResult, error) {
	diskNames := r.diskSkillNames()
	diskSet := make(map[string]bool, len(diskNames))
	for _, n := range diskNames {
		diskSet[n] = true
	}

	r.mu.RLock()
	known := make(map[string]string, len(r.skills)) // name -> content hash
	for name, skill := range r.skills {
		known[name] = skill.ContentHash
	}
	r.mu.RUnlock()

	result := &types.ResyncResult{}

	for _, name := range diskNames {
		prevHash, existed := known[name]
		skill, err := r.ScanPackage(name)
		if err != nil {
			logger.Warnw("resync scan failed", "scope", r.scope, "skill", name, "error", err)
			continue
		}
		switch {
		case !existed:
			result.Added = append(result.Added, name)
		case skill.ContentHash != prevHash:
			result.Modified = append(result.Modified, name)
		default:
			result.Unchanged = append(result.Unchanged, name)
		}
	}

	r.mu.Lock()
	for name := range r.skills {
		if !diskSet[name] {
			delete(r.skills, name)
			result.Removed = append(result.Removed, name)
		}
	}
	r.mu.Unlock()

	sort.Strings(result.Removed)

	logger.Debugw("registry resynced",
		"scope", r.scope,
		"added", len(result.Added),
		"removed", len(result.Removed),
		"modified", len(result.Modified),
		"unchanged", len(result.Unchanged))

	return result, nil
}

// Get returns the registry entry for a skill name.
func (r *LocalRegistry) Get(name string) (*types.InstalledSkill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	skill, ok := r.skills[name]
	return skill, ok
}

// List returns all registry entries sorted by name.
func (r *LocalRegistry) List() []*types.InstalledSkill {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skills := make([]*types.InstalledSkill, 0, len(r.skills))
	for _, skill := range r.skills {
		skills = append(skills, skill)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills
}

// ContentHashes returns a name -> content hash snapshot for diffing.
func (r *LocalRegistry) ContentHashes() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hashes := make(map[string]string, len(r.skills))
	for name, skill := range r.skills {
		hashes[name] = skill.ContentHash
	}
	return hashes
}

// Forget drops a skill from the in-memory index without touching disk.
func (r *LocalRegistry) Forget(name string) {
	r.mu.Lock()
	delete(r.skills, name)
	r.mu.Unlock()
}

// Shutdown stops the filesystem watch. In-flight scans finish naturally.
func (r *LocalRegistry) Shutdown() {
	if r.watch != nil {
		r.watch.Close()
		r.watch = nil
	}
}

// diskSkillNames lists valid-named skill subdirectories currently on disk.
func (r *LocalRegistry) diskSkillNames() []string {
	entries, err := os.ReadDir(r.rootDir)
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && ValidateSkillName(entry.Name()) == nil {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

// isScannableName reports whether a filename passes the text-extension
// allowlist. Extensionless files are included.
func isScannableName(name string) bool {
	if isBinaryName(name) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return true
	}
	lower := strings.ToLower(name)
	for _, allowed := range TextFileExtensions {
		if strings.HasSuffix(lower, allowed) {
			return true
		}
	}
	return false
}
