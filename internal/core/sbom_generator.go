package core

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"

	"github.com/skillsync-dev/skillsync/internal/types"
	"github.com/skillsync-dev/skillsync/internal/version"
)

// SBOMGenerator produces a CycloneDX 1.5 JSON Software Bill of Materials
// from one scope's lock file. Only synced skills appear: manually installed
// skills have no lock entry and no provenance to report.
type SBOMGenerator struct {
	lockStore LockStore
	scope     string
}

// NewSBOMGenerator creates an SBOMGenerator over the given lock store.
func NewSBOMGenerator(lockStore LockStore, scope string) *SBOMGenerator {
	return &SBOMGenerator{lockStore: lockStore, scope: scope}
}

// Generate renders the SBOM as pretty-printed CycloneDX JSON.
func (g *SBOMGenerator) Generate() ([]byte, error) {
	lock := g.lockStore.Load()

	bom := cdx.NewBOM()
	bom.SerialNumber = "urn:uuid:" + uuid.New().String()
	bom.Version = 1

	bom.Metadata = &cdx.Metadata{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Tools: &cdx.ToolsChoice{
			Tools: &[]cdx.Tool{
				{
					Vendor:  "skillsync",
					Name:    "skillsync",
					Version: version.GetVersion(),
				},
			},
		},
		Component: &cdx.Component{
			Type:    cdx.ComponentTypeApplication,
			Name:    "skillsync-scope-" + g.scope,
			Version: "local",
		},
	}

	names := sortedLockNames(lock)
	components := make([]cdx.Component, 0, len(names))
	for _, name := range names {
		components = append(components, buildSkillComponent(lock.Skills[name]))
	}
	bom.Components = &components

	var buf strings.Builder
	encoder := cdx.NewBOMEncoder(&buf, cdx.BOMFileFormatJSON)
	encoder.SetPretty(true)
	if err := encoder.Encode(bom); err != nil {
		return nil, fmt.Errorf("encode CycloneDX: %w", err)
	}

	return []byte(buf.String()), nil
}

// buildSkillComponent maps one lock entry to a CycloneDX component.
func buildSkillComponent(locked types.LockedSkill) cdx.Component {
	shortHash := locked.InstalledHash
	if len(shortHash) > 12 {
		shortHash = shortHash[:12]
	}

	component := cdx.Component{
		Type:       cdx.ComponentTypeLibrary,
		BOMRef:     fmt.Sprintf("%s@%s", locked.Name, shortHash),
		Name:       locked.Name,
		Version:    shortHash,
		PackageURL: skillPURL(locked),
	}

	if locked.InstalledHash != "" {
		component.Hashes = &[]cdx.Hash{
			{Algorithm: cdx.HashAlgoSHA256, Value: locked.InstalledHash},
		}
	}

	if locked.SourceURL != "" {
		component.ExternalReferences = &[]cdx.ExternalReference{
			{Type: cdx.ERTypeVCS, URL: locked.SourceURL},
		}
	}

	properties := []cdx.Property{
		{Name: "skillsync:risk_level", Value: string(locked.RiskLevel)},
		{Name: "skillsync:files_count", Value: fmt.Sprintf("%d", locked.FilesCount)},
		{Name: "skillsync:has_manifest", Value: fmt.Sprintf("%t", locked.HasManifest)},
	}
	if !locked.InstalledAt.IsZero() {
		properties = append(properties, cdx.Property{
			Name: "skillsync:installed_at", Value: locked.InstalledAt.UTC().Format(time.RFC3339),
		})
	}
	if !locked.LastSyncedAt.IsZero() {
		properties = append(properties, cdx.Property{
			Name: "skillsync:last_synced_at", Value: locked.LastSyncedAt.UTC().Format(time.RFC3339),
		})
	}
	if locked.UpstreamVersionMarker != "" {
		properties = append(properties, cdx.Property{
			Name: "skillsync:upstream_version", Value: locked.UpstreamVersionMarker,
		})
	}
	component.Properties = &properties

	return component
}

// skillPURL derives a Package URL from the skill's GitHub source. Sources
// that do not parse as owner/repo fall back to pkg:generic.
func skillPURL(locked types.LockedSkill) string {
	generic := fmt.Sprintf("pkg:generic/%s@%s", locked.Name, locked.InstalledHash)

	u, err := url.Parse(locked.SourceURL)
	if err != nil || !strings.EqualFold(u.Host, "github.com") {
		return generic
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return generic
	}

	return fmt.Sprintf("pkg:github/%s/%s@%s",
		strings.ToLower(parts[0]), strings.ToLower(parts[1]), locked.InstalledHash)
}

func sortedLockNames(lock types.SkillLock) []string {
	names := make([]string, 0, len(lock.Skills))
	for name := range lock.Skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
