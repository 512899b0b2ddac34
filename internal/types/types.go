// Package types defines the shared data model for skillsync: scan results,
// installed and locked skills, subscriptions, sync policy, and sync reports.
package types

import "time"

// Severity is the severity assigned to a single threat signature.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// RiskLevel is the ordered classification assigned to scanned content.
// Ordering: safe < low < medium < high < critical.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskRank maps risk levels to numeric ranks for threshold comparison.
var RiskRank = map[RiskLevel]int{
	RiskSafe:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// Exceeds reports whether r is strictly riskier than the ceiling.
func (r RiskLevel) Exceeds(ceiling RiskLevel) bool {
	return RiskRank[r] > RiskRank[ceiling]
}

// Threat is a single signature hit recorded during a scan.
// Line is 1-based and zero for multiline pattern hits.
type Threat struct {
	PatternID   string   `json:"pattern_id"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Line        int      `json:"line,omitempty"`
}

// ScanResult is the outcome of scanning one block of content.
// Safe and RiskLevel can diverge: a single warning yields RiskLow with
// Safe==true. That asymmetry is load-bearing and must not be "fixed".
type ScanResult struct {
	Safe           bool      `json:"safe"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Threats        []Threat  `json:"threats"`
	Recommendation string    `json:"recommendation"`
	ContentHash    string    `json:"content_hash"`
}

// InstalledSkill is a registry entry built by scanning a local skill directory.
type InstalledSkill struct {
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	FilesCount  int        `json:"files_count"`
	TotalSize   int64      `json:"total_size"`
	HasManifest bool       `json:"has_manifest"`
	Scan        ScanResult `json:"scan"`
	ContentHash string     `json:"content_hash"`
	LastScanned time.Time  `json:"last_scanned"`
	Scope       string     `json:"scope"`
	// Unscanned lists directory entries excluded from the scan
	// (subdirectories, binary files, oversized files). An incomplete scan
	// is reported, never hidden.
	Unscanned []string `json:"unscanned,omitempty"`
}

// LockedSkill is the persisted last-known-installed state of a synced skill.
type LockedSkill struct {
	Name            string    `json:"name"`
	SourceURL       string    `json:"source_url"`
	InstalledHash   string    `json:"installed_hash"`
	UpstreamHash    string    `json:"upstream_hash,omitempty"`
	SubscriptionIDs []string  `json:"subscription_ids"`
	LastSyncedAt    time.Time `json:"last_synced_at"`
	InstalledAt     time.Time `json:"installed_at"`
	RiskLevel       RiskLevel `json:"risk_level"`
	FilesCount      int       `json:"files_count"`
	HasManifest     bool      `json:"has_manifest"`
	// UpstreamVersionMarker is an opaque source-provided "last changed"
	// stamp. Compared as an exact string, never parsed as a timestamp.
	UpstreamVersionMarker string `json:"upstream_version_marker,omitempty"`
}

// SkillLock is the versioned on-disk lock file content.
type SkillLock struct {
	Version     int                    `json:"version"`
	Skills      map[string]LockedSkill `json:"skills"`
	LastSyncRun time.Time              `json:"last_sync_run,omitempty"`
	SyncCount   int                    `json:"sync_count"`
}

// Subscription is a saved marketplace search query polled on each sync cycle.
type Subscription struct {
	ID        string   `json:"id"`
	Query     string   `json:"query"`
	Authors   []string `json:"authors,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	SortOrder string   `json:"sort_order,omitempty"`
	Enabled   bool     `json:"enabled"`
}

// ConflictPolicy selects how sync treats locally modified skills whose
// upstream changed.
type ConflictPolicy string

const (
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
	ConflictUnmanage  ConflictPolicy = "unmanage"
)

// SyncPolicy is the versioned per-scope sync configuration.
type SyncPolicy struct {
	Version        int            `json:"version"`
	Subscriptions  []Subscription `json:"subscriptions"`
	IntervalHours  int            `json:"interval_hours"`
	MaxRiskLevel   RiskLevel      `json:"max_risk_level"`
	ConflictPolicy ConflictPolicy `json:"conflict_policy"`
	AutoRemove     bool           `json:"auto_remove"`
	Enabled        bool           `json:"enabled"`
}

// EnabledSubscriptions returns the subscriptions currently enabled.
func (p *SyncPolicy) EnabledSubscriptions() []Subscription {
	var subs []Subscription
	for _, s := range p.Subscriptions {
		if s.Enabled {
			subs = append(subs, s)
		}
	}
	return subs
}

// RemoteSkill is normalized marketplace search metadata.
type RemoteSkill struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	SourceURL   string   `json:"sourceUrl"`
	Stars       int      `json:"stars"`
	UpdatedAt   string   `json:"updatedAt"`
	Tags        []string `json:"tags,omitempty"`
}

// SearchResponse is the normalized marketplace search result.
type SearchResponse struct {
	Skills []RemoteSkill `json:"skills"`
	Total  int           `json:"total"`
}

// DiscoveredSkill is one remote skill plus the subscriptions that found it,
// deduplicated by source URL across subscriptions.
type DiscoveredSkill struct {
	Skill           RemoteSkill
	SubscriptionIDs []string
}

// SyncConflict records a skill whose upstream changed while its local
// content drifted from what sync last wrote.
type SyncConflict struct {
	Name       string         `json:"name"`
	SourceURL  string         `json:"source_url"`
	Policy     ConflictPolicy `json:"policy"`
	Resolution string         `json:"resolution"`
}

// SyncPlan is the four-way diff between discovered remote skills and the
// locked state.
type SyncPlan struct {
	ToInstall []DiscoveredSkill
	ToUpdate  []DiscoveredSkill
	ToRemove  []LockedSkill
	Conflicts []SyncConflict
}

// Empty reports whether the plan contains no work at all.
func (p *SyncPlan) Empty() bool {
	return len(p.ToInstall) == 0 && len(p.ToUpdate) == 0 &&
		len(p.ToRemove) == 0 && len(p.Conflicts) == 0
}

// SyncActionType classifies a single entry in a sync report.
type SyncActionType string

const (
	ActionInstall  SyncActionType = "install"
	ActionUpdate   SyncActionType = "update"
	ActionRemove   SyncActionType = "remove"
	ActionConflict SyncActionType = "conflict"
	ActionError    SyncActionType = "error"
)

// SyncActionStatus is the outcome of a single sync action.
type SyncActionStatus string

const (
	StatusApplied     SyncActionStatus = "applied"
	StatusPlanned     SyncActionStatus = "planned"
	StatusSkipped     SyncActionStatus = "skipped"
	StatusRiskSkipped SyncActionStatus = "risk-skipped"
	StatusFailed      SyncActionStatus = "failed"
)

// SyncAction is one install/update/remove/conflict/error entry in a report.
type SyncAction struct {
	Type    SyncActionType   `json:"type"`
	Skill   string           `json:"skill"`
	Status  SyncActionStatus `json:"status"`
	Message string           `json:"message,omitempty"`
}

// SyncReport is the complete outcome of one sync cycle. Partial failure is
// expected: failed actions are recorded, never propagated.
type SyncReport struct {
	Scope      string       `json:"scope"`
	DryRun     bool         `json:"dry_run"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Discovered int          `json:"discovered"`
	Actions    []SyncAction `json:"actions"`
}

// Errors returns the subset of actions that recorded a failure.
func (r *SyncReport) Errors() []SyncAction {
	var errs []SyncAction
	for _, a := range r.Actions {
		if a.Status == StatusFailed {
			errs = append(errs, a)
		}
	}
	return errs
}

// ResyncResult classifies registry entries after a diff against disk.
type ResyncResult struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Modified  []string `json:"modified"`
	Unchanged []string `json:"unchanged"`
}

// InstallResult is the outcome of a successful install.
type InstallResult struct {
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	SourceURL   string     `json:"source_url"`
	FilesCount  int        `json:"files_count"`
	TotalSize   int64      `json:"total_size"`
	HasManifest bool       `json:"has_manifest"`
	Scan        ScanResult `json:"scan"`
	Warnings    []string   `json:"warnings,omitempty"`
	Skipped     []string   `json:"skipped,omitempty"`
}
