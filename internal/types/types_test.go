package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLevelExceeds(t *testing.T) {
	tests := []struct {
		name    string
		level   RiskLevel
		ceiling RiskLevel
		want    bool
	}{
		{"equal levels do not exceed", RiskMedium, RiskMedium, false},
		{"below ceiling", RiskLow, RiskMedium, false},
		{"above ceiling", RiskHigh, RiskMedium, true},
		{"critical exceeds everything below it", RiskCritical, RiskHigh, true},
		{"safe exceeds nothing", RiskSafe, RiskSafe, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.Exceeds(tt.ceiling))
		})
	}
}

func TestRiskRankTotalOrder(t *testing.T) {
	ordered := []RiskLevel{RiskSafe, RiskLow, RiskMedium, RiskHigh, RiskCritical}
	for i := 1; i < len(ordered); i++ {
		assert.True(t, ordered[i].Exceeds(ordered[i-1]),
			"%s should exceed %s", ordered[i], ordered[i-1])
	}
}

func TestEnabledSubscriptions(t *testing.T) {
	policy := SyncPolicy{Subscriptions: []Subscription{
		{ID: "a", Enabled: true},
		{ID: "b", Enabled: false},
		{ID: "c", Enabled: true},
	}}

	subs := policy.EnabledSubscriptions()
	require.Len(t, subs, 2)
	assert.Equal(t, "a", subs[0].ID)
	assert.Equal(t, "c", subs[1].ID)

	empty := SyncPolicy{}
	assert.Empty(t, empty.EnabledSubscriptions())
}

func TestSyncPlanEmpty(t *testing.T) {
	assert.True(t, (&SyncPlan{}).Empty())
	assert.False(t, (&SyncPlan{ToInstall: []DiscoveredSkill{{}}}).Empty())
	assert.False(t, (&SyncPlan{ToRemove: []LockedSkill{{}}}).Empty())
	assert.False(t, (&SyncPlan{Conflicts: []SyncConflict{{}}}).Empty())
}

func TestSyncReportErrors(t *testing.T) {
	report := SyncReport{Actions: []SyncAction{
		{Type: ActionInstall, Status: StatusApplied},
		{Type: ActionUpdate, Status: StatusFailed, Message: "boom"},
		{Type: ActionRemove, Status: StatusSkipped},
	}}

	errs := report.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0].Message)
}
