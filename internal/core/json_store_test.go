package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type storePayload struct {
	Version int    `json:"version"`
	Value   string `json:"value"`
}

func TestJSONStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewJSONStore[storePayload](dir, "test.json", false)

	want := storePayload{Version: 1, Value: "hello"}
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("loaded %+v, want %+v", got, want)
	}
}

func TestJSONStoreMissingFile(t *testing.T) {
	dir := t.TempDir()

	strict := NewJSONStore[storePayload](dir, "absent.json", false)
	if _, err := strict.Load(); err == nil {
		t.Error("strict store should error on missing file")
	}

	lenient := NewJSONStore[storePayload](dir, "absent.json", true)
	got, err := lenient.Load()
	if err != nil {
		t.Fatalf("lenient store errored on missing file: %v", err)
	}
	if got != (storePayload{}) {
		t.Errorf("expected zero value, got %+v", got)
	}
}

func TestJSONStoreOversizedFileRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.json")
	if err := os.WriteFile(path, []byte("["+strings.Repeat(" ", maxJSONFileSize)+"]"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewJSONStore[storePayload](dir, "huge.json", true)
	if _, err := store.Load(); err == nil {
		t.Error("oversized file should be rejected before reading")
	}
}

func TestJSONStoreSaveCreatesDirectoryAndLeavesNoTemp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper")
	store := NewJSONStore[storePayload](dir, "test.json", false)

	if err := store.Save(storePayload{Version: 1}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "test.json" {
		t.Errorf("directory contents: %v (temp files must not survive)", entries)
	}
}

func TestPolicyStoreDefensiveLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewFilePolicyStore(dir)

	// Missing file: defaults.
	policy := store.Load()
	if policy.Enabled {
		t.Error("default policy must be disabled")
	}
	if policy.MaxRiskLevel != DefaultSyncPolicy().MaxRiskLevel {
		t.Errorf("max risk = %s", policy.MaxRiskLevel)
	}

	// Malformed file: defaults, not an error.
	if err := os.WriteFile(store.Path(), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	policy = store.Load()
	if policy.Version != DefaultSyncPolicy().Version {
		t.Error("malformed policy should fall back to defaults")
	}

	// Future schema version: defaults with a warning.
	if err := os.WriteFile(store.Path(), []byte(`{"version": 99, "enabled": true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	policy = store.Load()
	if policy.Enabled {
		t.Error("future-version policy must not be interpreted")
	}
}

func TestPolicyStoreNormalizesHandEditedFields(t *testing.T) {
	dir := t.TempDir()
	store := NewFilePolicyStore(dir)

	raw := `{"version":1,"enabled":true,"interval_hours":-5,"max_risk_level":"bogus","conflict_policy":"explode"}`
	if err := os.WriteFile(store.Path(), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	policy := store.Load()
	if policy.IntervalHours != 24 {
		t.Errorf("interval = %d, want normalized 24", policy.IntervalHours)
	}
	if policy.MaxRiskLevel != DefaultSyncPolicy().MaxRiskLevel {
		t.Errorf("max risk = %s, want normalized default", policy.MaxRiskLevel)
	}
	if policy.ConflictPolicy != DefaultSyncPolicy().ConflictPolicy {
		t.Errorf("conflict policy = %s, want normalized default", policy.ConflictPolicy)
	}
	if !policy.Enabled {
		t.Error("valid fields must survive normalization")
	}
}

func TestPolicyStoreSubscriptions(t *testing.T) {
	dir := t.TempDir()
	store := NewFilePolicyStore(dir)

	sub, err := store.AddSubscription(subscriptionFixture("pdf tools"))
	if err != nil {
		t.Fatal(err)
	}
	if sub.ID == "" {
		t.Error("subscription should get a generated ID")
	}
	if !sub.Enabled {
		t.Error("new subscriptions start enabled")
	}

	policy := store.Load()
	if len(policy.Subscriptions) != 1 {
		t.Fatalf("persisted %d subscriptions, want 1", len(policy.Subscriptions))
	}

	if err := store.RemoveSubscription(sub.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.RemoveSubscription(sub.ID); !IsNotFound(err) {
		t.Errorf("removing a missing subscription should be NotFound, got %v", err)
	}

	if _, err := store.AddSubscription(subscriptionFixture("")); !IsValidationError(err) {
		t.Errorf("empty query should be rejected, got %v", err)
	}
}

func TestLockStoreDefensiveLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewFileLockStore(dir)

	lock := store.Load()
	if lock.Skills == nil {
		t.Fatal("empty lock must have a non-nil skills map")
	}
	if len(lock.Skills) != 0 {
		t.Error("missing lock file should load empty")
	}

	if err := os.WriteFile(store.Path(), []byte("{{corrupt"), 0o644); err != nil {
		t.Fatal(err)
	}
	lock = store.Load()
	if len(lock.Skills) != 0 || lock.Skills == nil {
		t.Error("corrupt lock should load as empty, not crash")
	}

	if err := os.WriteFile(store.Path(), []byte(`{"version": 42, "skills": {"x": {}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	lock = store.Load()
	if len(lock.Skills) != 0 {
		t.Error("future-version lock must be ignored")
	}
}

func TestLockStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileLockStore(dir)

	lock := store.Load()
	lock.Skills["alpha"] = lockedSkillFixture("alpha", "hash-1")
	lock.SyncCount = 3
	if err := store.Save(lock); err != nil {
		t.Fatal(err)
	}

	loaded := store.Load()
	if loaded.Version != 1 {
		t.Errorf("version = %d, want stamped 1", loaded.Version)
	}
	if loaded.SyncCount != 3 {
		t.Errorf("sync count = %d, want 3", loaded.SyncCount)
	}
	if loaded.Skills["alpha"].InstalledHash != "hash-1" {
		t.Errorf("skill entry lost: %+v", loaded.Skills["alpha"])
	}
}
