package core

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/skillsync-dev/skillsync/internal/logger"
	"github.com/skillsync-dev/skillsync/internal/types"
)

// policySchemaVersion is the version written to new sync.json files.
const policySchemaVersion = 1

// DefaultSyncPolicy is the policy used when no sync.json exists or the file
// is malformed. Conservative defaults: sync disabled until the user opts in,
// low risk ceiling, conflicts skipped, nothing auto-removed.
func DefaultSyncPolicy() types.SyncPolicy {
	return types.SyncPolicy{
		Version:        policySchemaVersion,
		IntervalHours:  24,
		MaxRiskLevel:   types.RiskLow,
		ConflictPolicy: types.ConflictSkip,
		AutoRemove:     false,
		Enabled:        false,
	}
}

// PolicyStore handles sync.json I/O operations.
type PolicyStore interface {
	Load() types.SyncPolicy
	Save(policy types.SyncPolicy) error
	Path() string
	AddSubscription(sub types.Subscription) (types.Subscription, error)
	RemoveSubscription(id string) error
}

// FilePolicyStore implements PolicyStore using JSONStore.
type FilePolicyStore struct {
	store *JSONStore[types.SyncPolicy]
}

// NewFilePolicyStore creates a new FilePolicyStore rooted at the scope
// directory.
func NewFilePolicyStore(scopeDir string) *FilePolicyStore {
	return &FilePolicyStore{
		store: NewJSONStore[types.SyncPolicy](scopeDir, PolicyFile, true),
	}
}

// Path returns the policy file path.
func (s *FilePolicyStore) Path() string {
	return s.store.Path()
}

// Load reads sync.json defensively: a missing or malformed file yields the
// documented default policy instead of failing startup.
func (s *FilePolicyStore) Load() types.SyncPolicy {
	policy, err := s.store.Load()
	if err != nil {
		logger.Warnf("sync policy unreadable, using defaults: %v", err)
		return DefaultSyncPolicy()
	}
	if policy.Version == 0 {
		// Zero value: the file was missing. Defaults apply.
		return DefaultSyncPolicy()
	}
	if policy.Version > policySchemaVersion {
		logger.Warnf("sync policy version %d is newer than supported (%d), using defaults", policy.Version, policySchemaVersion)
		return DefaultSyncPolicy()
	}
	return normalizePolicy(policy)
}

// Save writes sync.json, always stamping the current schema version.
func (s *FilePolicyStore) Save(policy types.SyncPolicy) error {
	policy.Version = policySchemaVersion
	return s.store.Save(policy)
}

// AddSubscription appends a subscription with a generated ID and persists
// the policy. Returns the stored subscription.
func (s *FilePolicyStore) AddSubscription(sub types.Subscription) (types.Subscription, error) {
	if sub.Query == "" {
		return types.Subscription{}, NewValidationError("subscription", "", "query must not be empty")
	}

	sub.ID = uuid.NewString()
	sub.Enabled = true

	policy := s.Load()
	policy.Subscriptions = append(policy.Subscriptions, sub)
	if err := s.Save(policy); err != nil {
		return types.Subscription{}, fmt.Errorf("persist subscription: %w", err)
	}
	return sub, nil
}

// RemoveSubscription deletes the subscription with the given ID.
func (s *FilePolicyStore) RemoveSubscription(id string) error {
	policy := s.Load()
	for i, sub := range policy.Subscriptions {
		if sub.ID == id {
			policy.Subscriptions = append(policy.Subscriptions[:i], policy.Subscriptions[i+1:]...)
			return s.Save(policy)
		}
	}
	return NewNotFoundError(id)
}

// normalizePolicy fills gaps left by hand-edited policy files.
func normalizePolicy(policy types.SyncPolicy) types.SyncPolicy {
	if policy.IntervalHours <= 0 {
		policy.IntervalHours = 24
	}
	switch policy.MaxRiskLevel {
	case types.RiskSafe, types.RiskLow, types.RiskMedium:
		// valid ceilings
	default:
		policy.MaxRiskLevel = types.RiskLow
	}
	switch policy.ConflictPolicy {
	case types.ConflictSkip, types.ConflictOverwrite, types.ConflictUnmanage:
		// valid
	default:
		policy.ConflictPolicy = types.ConflictSkip
	}
	return policy
}
