package core

import (
	"github.com/skillsync-dev/skillsync/internal/logger"
	"github.com/skillsync-dev/skillsync/internal/types"
)

// lockSchemaVersion is the version written to new lock files.
const lockSchemaVersion = 1

// LockStore handles skills.lock.json I/O operations.
type LockStore interface {
	Load() types.SkillLock
	Save(lock types.SkillLock) error
	Path() string
}

// FileLockStore implements LockStore using JSONStore.
type FileLockStore struct {
	store *JSONStore[types.SkillLock]
}

// NewFileLockStore creates a new FileLockStore rooted at the scope directory.
func NewFileLockStore(scopeDir string) *FileLockStore {
	return &FileLockStore{
		store: NewJSONStore[types.SkillLock](scopeDir, LockFile, true),
	}
}

// Path returns the lock file path.
func (s *FileLockStore) Path() string {
	return s.store.Path()
}

// Load reads skills.lock.json defensively: a missing or malformed file
// yields an empty lock rather than failing. A lock newer than this binary
// understands is also treated as empty, with a warning, so sync never
// partially interprets fields it does not know.
func (s *FileLockStore) Load() types.SkillLock {
	lock, err := s.store.Load()
	if err != nil {
		logger.Warnf("lock file unreadable, starting from an empty lock: %v", err)
		return emptyLock()
	}
	if lock.Version > lockSchemaVersion {
		logger.Warnf("lock file version %d is newer than supported (%d), ignoring it", lock.Version, lockSchemaVersion)
		return emptyLock()
	}
	if lock.Skills == nil {
		lock.Skills = make(map[string]types.LockedSkill)
	}
	return lock
}

// Save writes skills.lock.json atomically, stamping the current schema
// version. All lock writes in the system funnel through here.
func (s *FileLockStore) Save(lock types.SkillLock) error {
	lock.Version = lockSchemaVersion
	if lock.Skills == nil {
		lock.Skills = make(map[string]types.LockedSkill)
	}
	return s.store.Save(lock)
}

func emptyLock() types.SkillLock {
	return types.SkillLock{
		Version: lockSchemaVersion,
		Skills:  make(map[string]types.LockedSkill),
	}
}
