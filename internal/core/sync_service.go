package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/skillsync-dev/skillsync/internal/logger"
	"github.com/skillsync-dev/skillsync/internal/types"
)

// searchPaceDelay spaces consecutive subscription queries so one sync cycle
// does not trip the marketplace's rate limiting.
const searchPaceDelay = 500 * time.Millisecond

// SyncService reconciles desired state (subscriptions x remote search
// results) against the locked and installed state for one scope.
type SyncService struct {
	scope       string
	policyStore PolicyStore
	lockStore   LockStore
	registry    *LocalRegistry
	installer   InstallerInterface
	search      SearchClient
	paceDelay   time.Duration

	// Single-flight guard: a second sync while one runs is rejected, not
	// queued. Released on every exit path.
	mu      sync.Mutex
	running bool

	periodicMu   sync.Mutex
	periodicStop chan struct{}
}

// NewSyncService creates a SyncService with the given collaborators.
func NewSyncService(
	scope string,
	policyStore PolicyStore,
	lockStore LockStore,
	registry *LocalRegistry,
	installer InstallerInterface,
	search SearchClient,
) *SyncService {
	return &SyncService{
		scope:       scope,
		policyStore: policyStore,
		lockStore:   lockStore,
		registry:    registry,
		installer:   installer,
		search:      search,
		paceDelay:   searchPaceDelay,
	}
}

// MergeDiscovered folds one subscription's search results into the
// discovered set, keyed by source URL. A skill found by multiple
// subscriptions carries the union of their IDs as a single candidate.
func MergeDiscovered(dst map[string]types.DiscoveredSkill, skills []types.RemoteSkill, subscriptionID string) {
	for _, skill := range skills {
		if skill.SourceURL == "" {
			continue
		}
		existing, ok := dst[skill.SourceURL]
		if !ok {
			dst[skill.SourceURL] = types.DiscoveredSkill{
				Skill:           skill,
				SubscriptionIDs: []string{subscriptionID},
			}
			continue
		}
		if !containsString(existing.SubscriptionIDs, subscriptionID) {
			existing.SubscriptionIDs = append(existing.SubscriptionIDs, subscriptionID)
		}
		dst[skill.SourceURL] = existing
	}
}

// ComputeDiff computes the four-way diff between the discovered remote
// skills, the lock, and the registry's local content hashes. Pure function:
// no I/O, fully unit-testable in isolation.
//
// localHashes is the registry snapshot (name -> current content hash); a
// locked skill missing from it counts as locally modified, since sync can
// no longer prove the installed content is what it last wrote.
func ComputeDiff(
	discovered map[string]types.DiscoveredSkill,
	lock types.SkillLock,
	localHashes map[string]string,
	policy types.SyncPolicy,
) *types.SyncPlan {
	plan := &types.SyncPlan{}

	lockedByURL := make(map[string]types.LockedSkill, len(lock.Skills))
	for _, locked := range lock.Skills {
		lockedByURL[locked.SourceURL] = locked
	}

	// Deterministic processing order keeps plans and reports stable.
	urls := make([]string, 0, len(discovered))
	for url := range discovered {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	for _, url := range urls {
		candidate := discovered[url]
		locked, isLocked := lockedByURL[url]

		if !isLocked {
			plan.ToInstall = append(plan.ToInstall, candidate)
			continue
		}

		// The version marker is an opaque stamp compared for exact string
		// equality. Unchanged upstream means no action at all.
		if candidate.Skill.UpdatedAt == locked.UpstreamVersionMarker {
			continue
		}

		localHash, known := localHashes[locked.Name]
		if !known || localHash != locked.InstalledHash {
			// Local drift: the user (or another process) modified the
			// installed files independently of sync.
			switch policy.ConflictPolicy {
			case types.ConflictOverwrite:
				plan.ToUpdate = append(plan.ToUpdate, candidate)
			case types.ConflictUnmanage:
				plan.Conflicts = append(plan.Conflicts, types.SyncConflict{
					Name:       locked.Name,
					SourceURL:  url,
					Policy:     policy.ConflictPolicy,
					Resolution: "locally modified, dropped from sync control",
				})
			default: // skip
				plan.Conflicts = append(plan.Conflicts, types.SyncConflict{
					Name:       locked.Name,
					SourceURL:  url,
					Policy:     types.ConflictSkip,
					Resolution: "locally modified, skipped",
				})
			}
			continue
		}

		plan.ToUpdate = append(plan.ToUpdate, candidate)
	}

	// Removal is evaluated independently of install/update and is not
	// gated by conflict policy: only autoRemove controls it.
	if policy.AutoRemove {
		names := make([]string, 0, len(lock.Skills))
		for name := range lock.Skills {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			locked := lock.Skills[name]
			if _, stillWanted := discovered[locked.SourceURL]; !stillWanted {
				plan.ToRemove = append(plan.ToRemove, locked)
			}
		}
	}

	return plan
}

// Sync runs one reconciliation cycle. Concurrent syncs per scope are
// disallowed: a second call while one is running immediately returns a
// report with a single error action instead of queuing or blocking.
//
// A dry run performs identical discovery and diffing but only narrates the
// intended actions; neither storage nor the lock is touched.
func (s *SyncService) Sync(ctx context.Context, dryRun bool) *types.SyncReport {
	report := &types.SyncReport{
		Scope:     s.scope,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		report.Actions = append(report.Actions, types.SyncAction{
			Type:    types.ActionError,
			Status:  types.StatusFailed,
			Message: ErrSyncInProgress.Error(),
		})
		report.FinishedAt = time.Now().UTC()
		return report
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		report.FinishedAt = time.Now().UTC()
	}()

	policy := s.policyStore.Load()
	subs := policy.EnabledSubscriptions()
	if !policy.Enabled || len(subs) == 0 {
		report.Actions = append(report.Actions, types.SyncAction{
			Type:    types.ActionError,
			Status:  types.StatusSkipped,
			Message: "sync disabled or no enabled subscriptions",
		})
		return report
	}

	discovered := s.discover(ctx, subs, report)
	report.Discovered = len(discovered)

	// Refresh the registry before diffing so the conflict check sees
	// current on-disk hashes, with exactly resync's hash semantics.
	if _, err := s.registry.Resync(); err != nil {
		logger.Warnw("pre-sync resync failed", "scope", s.scope, "error", err)
	}

	lock := s.lockStore.Load()
	plan := ComputeDiff(discovered, lock, s.registry.ContentHashes(), policy)

	if dryRun {
		s.narratePlan(plan, report)
		return report
	}

	s.applyPlan(ctx, plan, discovered, &lock, policy, report)

	lock.LastSyncRun = time.Now().UTC()
	lock.SyncCount++
	if err := s.lockStore.Save(lock); err != nil {
		report.Actions = append(report.Actions, types.SyncAction{
			Type:    types.ActionError,
			Status:  types.StatusFailed,
			Message: fmt.Sprintf("persist lock: %v", err),
		})
	}

	return report
}

// discover queries each enabled subscription, pacing consecutive requests,
// and merges results into the deduplicated discovered set. Per-subscription
// failures become error actions; they never abort the cycle.
func (s *SyncService) discover(ctx context.Context, subs []types.Subscription, report *types.SyncReport) map[string]types.DiscoveredSkill {
	discovered := make(map[string]types.DiscoveredSkill)

	for i, sub := range subs {
		if i > 0 {
			select {
			case <-time.After(s.paceDelay):
			case <-ctx.Done():
				report.Actions = append(report.Actions, types.SyncAction{
					Type:    types.ActionError,
					Status:  types.StatusFailed,
					Message: fmt.Sprintf("discovery cancelled: %v", ctx.Err()),
				})
				return discovered
			}
		}

		resp, err := s.search.Search(ctx, SearchRequest{
			Query:     sub.Query,
			Limit:     sub.Limit,
			SortOrder: sub.SortOrder,
		})
		if err != nil {
			report.Actions = append(report.Actions, types.SyncAction{
				Type:    types.ActionError,
				Status:  types.StatusFailed,
				Message: fmt.Sprintf("subscription %s (%q): %v", sub.ID, sub.Query, err),
			})
			continue
		}

		matched := FilterSkills(resp.Skills, sub.Authors, sub.Tags)
		MergeDiscovered(discovered, matched, sub.ID)
	}

	return discovered
}

// narratePlan records what a real run would do, without doing it.
func (s *SyncService) narratePlan(plan *types.SyncPlan, report *types.SyncReport) {
	for _, c := range plan.Conflicts {
		report.Actions = append(report.Actions, types.SyncAction{
			Type: types.ActionConflict, Skill: c.Name, Status: types.StatusPlanned, Message: c.Resolution,
		})
	}
	for _, d := range plan.ToInstall {
		report.Actions = append(report.Actions, types.SyncAction{
			Type: types.ActionInstall, Skill: d.Skill.Name, Status: types.StatusPlanned, Message: d.Skill.SourceURL,
		})
	}
	for _, d := range plan.ToUpdate {
		report.Actions = append(report.Actions, types.SyncAction{
			Type: types.ActionUpdate, Skill: d.Skill.Name, Status: types.StatusPlanned, Message: d.Skill.SourceURL,
		})
	}
	for _, locked := range plan.ToRemove {
		report.Actions = append(report.Actions, types.SyncAction{
			Type: types.ActionRemove, Skill: locked.Name, Status: types.StatusPlanned, Message: "no longer discovered by any subscription",
		})
	}
}

// applyPlan processes conflicts, installs, updates, then removals. Every
// individual action failure is recorded and the phase continues; partial
// failure must corrupt neither the report nor the lock.
func (s *SyncService) applyPlan(
	ctx context.Context,
	plan *types.SyncPlan,
	discovered map[string]types.DiscoveredSkill,
	lock *types.SkillLock,
	policy types.SyncPolicy,
	report *types.SyncReport,
) {
	// Conflicts first: unmanage drops the lock entry without touching files.
	for _, c := range plan.Conflicts {
		if c.Policy == types.ConflictUnmanage {
			delete(lock.Skills, c.Name)
		}
		report.Actions = append(report.Actions, types.SyncAction{
			Type: types.ActionConflict, Skill: c.Name, Status: types.StatusApplied, Message: c.Resolution,
		})
	}

	for _, d := range plan.ToInstall {
		s.applyInstall(ctx, d, lock, policy, report, false)
	}
	for _, d := range plan.ToUpdate {
		s.applyInstall(ctx, d, lock, policy, report, true)
	}

	for _, locked := range plan.ToRemove {
		if err := s.installer.Uninstall(locked.Name); err != nil && !IsNotFound(err) {
			report.Actions = append(report.Actions, types.SyncAction{
				Type: types.ActionRemove, Skill: locked.Name, Status: types.StatusFailed, Message: err.Error(),
			})
			continue
		}
		s.registry.Forget(locked.Name)
		delete(lock.Skills, locked.Name)
		report.Actions = append(report.Actions, types.SyncAction{
			Type: types.ActionRemove, Skill: locked.Name, Status: types.StatusApplied,
		})
	}
}

// applyInstall performs one install or update, then re-validates the
// realized risk against the policy ceiling. Install-time gating ran against
// the same content, but the policy ceiling can be stricter than the gate:
// anything riskier than MaxRiskLevel is rolled back by uninstalling, so no
// half-applied state survives the cycle.
func (s *SyncService) applyInstall(
	ctx context.Context,
	d types.DiscoveredSkill,
	lock *types.SkillLock,
	policy types.SyncPolicy,
	report *types.SyncReport,
	isUpdate bool,
) {
	actionType := types.ActionInstall
	if isUpdate {
		actionType = types.ActionUpdate
	}

	result, err := s.installer.Install(ctx, InstallOptions{
		SourceURL: d.Skill.SourceURL,
		Force:     isUpdate,
	})
	if err != nil {
		report.Actions = append(report.Actions, types.SyncAction{
			Type: actionType, Skill: d.Skill.Name, Status: types.StatusFailed, Message: err.Error(),
		})
		return
	}

	// The realized risk rides the structured result end-to-end; nothing is
	// re-parsed out of human-readable summaries.
	if result.Scan.RiskLevel.Exceeds(policy.MaxRiskLevel) {
		if err := s.installer.Uninstall(result.Name); err != nil {
			logger.Warnw("rollback uninstall failed", "scope", s.scope, "skill", result.Name, "error", err)
		}
		s.registry.Forget(result.Name)
		if isUpdate {
			delete(lock.Skills, result.Name)
		}
		report.Actions = append(report.Actions, types.SyncAction{
			Type:    actionType,
			Skill:   result.Name,
			Status:  types.StatusRiskSkipped,
			Message: fmt.Sprintf("realized risk %s exceeds policy ceiling %s", result.Scan.RiskLevel, policy.MaxRiskLevel),
		})
		return
	}

	now := time.Now().UTC()
	entry := types.LockedSkill{
		Name:                  result.Name,
		SourceURL:             result.SourceURL,
		InstalledHash:         result.Scan.ContentHash,
		SubscriptionIDs:       d.SubscriptionIDs,
		LastSyncedAt:          now,
		InstalledAt:           now,
		RiskLevel:             result.Scan.RiskLevel,
		FilesCount:            result.FilesCount,
		HasManifest:           result.HasManifest,
		UpstreamVersionMarker: d.Skill.UpdatedAt,
	}
	if prev, ok := lock.Skills[result.Name]; ok {
		entry.InstalledAt = prev.InstalledAt
		entry.SubscriptionIDs = unionStrings(prev.SubscriptionIDs, d.SubscriptionIDs)
	}
	lock.Skills[result.Name] = entry

	// Index the freshly written directory so later conflict checks compare
	// against what sync just wrote.
	if _, err := s.registry.ScanPackage(result.Name); err != nil {
		logger.Warnw("post-install registry scan failed", "scope", s.scope, "skill", result.Name, "error", err)
	}

	report.Actions = append(report.Actions, types.SyncAction{
		Type: actionType, Skill: result.Name, Status: types.StatusApplied, Message: result.SourceURL,
	})
}

// StartPeriodic begins timer-driven syncs at the policy interval. The timer
// never keeps the process alive by itself: StopPeriodic (or process exit)
// ends the goroutine, and an in-flight sync runs to completion naturally.
func (s *SyncService) StartPeriodic() {
	s.periodicMu.Lock()
	defer s.periodicMu.Unlock()
	if s.periodicStop != nil {
		return
	}

	policy := s.policyStore.Load()
	interval := time.Duration(policy.IntervalHours) * time.Hour

	stop := make(chan struct{})
	s.periodicStop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				report := s.Sync(context.Background(), false)
				logger.Infow("periodic sync finished",
					"scope", s.scope,
					"actions", len(report.Actions),
					"errors", len(report.Errors()))
			case <-stop:
				return
			}
		}
	}()
}

// StopPeriodic halts the periodic timer. Safe to call when not started.
func (s *SyncService) StopPeriodic() {
	s.periodicMu.Lock()
	defer s.periodicMu.Unlock()
	if s.periodicStop != nil {
		close(s.periodicStop)
		s.periodicStop = nil
	}
}

func containsString(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

func unionStrings(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
