package core

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/skillsync-dev/skillsync/internal/logger"
	"github.com/skillsync-dev/skillsync/internal/types"
)

// skillNameRegex is the allowed skill name shape: alphanumeric-led, limited
// charset, bounded length. Skill names are on-disk directory names, so this
// validation is also the first layer of path-traversal defense.
var skillNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateSkillName checks a skill name against the allowed shape.
func ValidateSkillName(name string) error {
	if !skillNameRegex.MatchString(name) {
		return NewValidationError("skill name", name,
			"must start with an alphanumeric and contain only alphanumerics, dot, underscore, or hyphen (max 64 chars)")
	}
	return nil
}

// SafeSkillPath resolves the installation path for a skill name and verifies
// it is a strict descendant of the skills root. The check runs on the
// canonicalized absolute path, not just the name: validating the name alone
// would leave symlinked or prefix-crafted roots exploitable.
func SafeSkillPath(rootDir, name string) (string, error) {
	if err := ValidateSkillName(name); err != nil {
		return "", err
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return "", fmt.Errorf("resolve skills root: %w", err)
	}

	resolved, err := filepath.Abs(filepath.Join(absRoot, name))
	if err != nil {
		return "", fmt.Errorf("resolve skill path: %w", err)
	}

	if !strings.HasPrefix(resolved, absRoot+string(filepath.Separator)) {
		return "", NewValidationError("skill name", name, "resolved path escapes the skills directory")
	}

	return resolved, nil
}

// InstallOptions configures a single install operation.
type InstallOptions struct {
	SourceURL string
	Name      string // Empty = inferred from the source path
	Force     bool   // Overwrite an existing install and override medium/high risk
}

// InstallerInterface defines the contract for installing and removing
// skills. This interface enables mocking in tests.
type InstallerInterface interface {
	Install(ctx context.Context, opts InstallOptions) (*types.InstallResult, error)
	Uninstall(name string) error
}

// Compile-time interface satisfaction check.
var _ InstallerInterface = (*Installer)(nil)

// Installer orchestrates fetch, scan, risk gating, and materialization of a
// skill onto local storage.
type Installer struct {
	fetcher RemoteFetcherInterface
	scanner *ContentScanner
	rootDir string
	// npmRunner runs the external dependency-install step. Swappable in
	// tests; nil means use the real npm binary.
	npmRunner func(ctx context.Context, dir string) error
}

// NewInstaller creates an Installer writing under rootDir.
func NewInstaller(fetcher RemoteFetcherInterface, scanner *ContentScanner, rootDir string) *Installer {
	return &Installer{
		fetcher: fetcher,
		scanner: scanner,
		rootDir: rootDir,
	}
}

// Install validates, fetches, scans, risk-gates, and writes a skill.
//
// The risk gate is two-tier on purpose: critical risk fails unconditionally
// with no force override, while medium and high risk fail unless Force is
// set. Low and safe proceed, low with a surfaced warning.
func (ins *Installer) Install(ctx context.Context, opts InstallOptions) (*types.InstallResult, error) {
	src, err := ins.fetcher.ValidateSourceURL(opts.SourceURL)
	if err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = src.SkillName()
	}

	targetPath, err := SafeSkillPath(ins.rootDir, name)
	if err != nil {
		return nil, err
	}

	exists := false
	if info, statErr := os.Stat(targetPath); statErr == nil && info.IsDir() {
		exists = true
	}
	if exists && !opts.Force {
		return nil, NewAlreadyExistsError(name)
	}

	// Everything network- and scan-related happens before any write, so a
	// blocked install leaves no artifact on disk.
	fetched, err := ins.fetcher.FetchFiles(ctx, src)
	if err != nil {
		return nil, err
	}
	if len(fetched.Files) == 0 {
		return nil, NewValidationError("source URL", opts.SourceURL, "no scannable files found at source")
	}

	scan := ins.scanner.Scan(ConcatenateFiles(fetched.Files))

	switch scan.RiskLevel {
	case types.RiskCritical:
		return nil, NewBlockedError(name, scan.RiskLevel)
	case types.RiskHigh, types.RiskMedium:
		if !opts.Force {
			return nil, NewBlockedError(name, scan.RiskLevel)
		}
		logger.Warnw("installing despite elevated risk", "skill", name, "risk", scan.RiskLevel)
	}

	result := &types.InstallResult{
		Name:      name,
		Path:      targetPath,
		SourceURL: src.String(),
		Scan:      scan,
		Skipped:   fetched.Skipped,
	}
	if scan.RiskLevel == types.RiskLow {
		result.Warnings = append(result.Warnings, "warning patterns matched; review the scan output")
	}
	for _, fe := range fetched.Errors {
		result.Warnings = append(result.Warnings, "fetch: "+fe)
	}

	if exists {
		// Overwrite: drop the old directory only now that the new content
		// has cleared the gate.
		if err := os.RemoveAll(targetPath); err != nil {
			return nil, fmt.Errorf("remove existing skill '%s': %w", name, err)
		}
	}
	if err := os.MkdirAll(targetPath, 0o755); err != nil {
		return nil, fmt.Errorf("create skill directory: %w", err)
	}

	hasManifest := false
	hasDependencyManifest := false
	for _, file := range fetched.Files {
		// Defense in depth: each filename from the listing is re-validated
		// independently of the directory-level check above. A malicious
		// name inside an otherwise valid listing must not escape targetPath.
		filePath, err := safeChildPath(targetPath, file.Name)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("skipped unsafe filename %q", file.Name))
			continue
		}
		if err := os.WriteFile(filePath, []byte(file.Content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", file.Name, err)
		}
		result.FilesCount++
		result.TotalSize += file.Size

		if strings.EqualFold(file.Name, ManifestFile) {
			hasManifest = true
		}
		if file.Name == DependencyManifest {
			hasDependencyManifest = true
		}
	}

	result.HasManifest = hasManifest
	if !hasManifest {
		result.Warnings = append(result.Warnings, fmt.Sprintf("no %s manifest found in skill", ManifestFile))
	}

	if hasDependencyManifest {
		if err := ins.runDependencyInstall(ctx, targetPath); err != nil {
			// Non-fatal: the skill is installed either way.
			result.Warnings = append(result.Warnings, fmt.Sprintf("dependency install failed: %v", err))
		}
	}

	logger.Infow("installed skill",
		"skill", name,
		"files", result.FilesCount,
		"bytes", result.TotalSize,
		"risk", scan.RiskLevel)

	return result, nil
}

// Uninstall removes an installed skill directory. Calling it twice yields
// NotFound on the second call; that is surfaced, not swallowed.
func (ins *Installer) Uninstall(name string) error {
	targetPath, err := SafeSkillPath(ins.rootDir, name)
	if err != nil {
		return err
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewNotFoundError(name)
		}
		return fmt.Errorf("stat skill '%s': %w", name, err)
	}
	if !info.IsDir() {
		return NewNotFoundError(name)
	}

	if err := os.RemoveAll(targetPath); err != nil {
		return fmt.Errorf("remove skill '%s': %w", name, err)
	}

	logger.Infow("uninstalled skill", "skill", name)
	return nil
}

// runDependencyInstall invokes the external package-manager step with
// lifecycle scripts disabled. Treated as an opaque pass/fail side effect.
func (ins *Installer) runDependencyInstall(ctx context.Context, dir string) error {
	if ins.npmRunner != nil {
		return ins.npmRunner(ctx, dir)
	}

	npm, err := exec.LookPath("npm")
	if err != nil {
		return fmt.Errorf("npm not found on PATH")
	}

	cmd := exec.CommandContext(ctx, npm, "install", "--ignore-scripts", "--no-audit", "--no-fund")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("npm install: %v (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// safeChildPath joins name under dir and rejects anything that is not a
// plain filename resolving to a strict child of dir.
func safeChildPath(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("empty or relative filename")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("filename contains path separators")
	}

	resolved, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(resolved, dir+string(filepath.Separator)) {
		return "", fmt.Errorf("filename escapes skill directory")
	}
	return resolved, nil
}

// ConcatenateFiles joins file contents with the boundary marker, sorted by
// filename so install-time scanning and registry rescans hash identical
// input for identical content regardless of listing order.
func ConcatenateFiles(files []FetchedFile) string {
	sorted := make([]FetchedFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var sb strings.Builder
	for _, f := range sorted {
		sb.WriteString(fmt.Sprintf(FileBoundaryMarker, f.Name))
		sb.WriteString(f.Content)
	}
	return sb.String()
}
