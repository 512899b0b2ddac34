package core

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/skillsync-dev/skillsync/internal/logger"
	"github.com/skillsync-dev/skillsync/internal/types"
)

// ThreatSignature is one compiled threat pattern. Signatures are immutable
// after catalog construction.
type ThreatSignature struct {
	ID          string
	Pattern     *regexp.Regexp
	Severity    types.Severity
	Description string
	Category    string
	Multiline   bool
}

// Threat categories
const (
	CategoryDestructive  = "destructive"
	CategoryExfiltration = "exfiltration"
	CategoryCredentials  = "credentials"
	CategoryExecution    = "execution"
	CategoryObfuscation  = "obfuscation"
	CategoryNetwork      = "network"
	CategoryPersistence  = "persistence"
	CategoryResource     = "resource"
)

// PatternCatalog is an immutable table of threat signatures, split into the
// sets the scanner evaluates: single-line critical, single-line warning, and
// multiline.
type PatternCatalog struct {
	critical  []ThreatSignature
	warning   []ThreatSignature
	multiline []ThreatSignature
}

// builtinSignatures is the fixed signature table compiled at process start.
// Purely lexical matching: false positives on commented-out or quoted code
// are an accepted tradeoff, documented in the project README.
var builtinSignatures = []ThreatSignature{
	// Critical: destructive filesystem operations
	{
		ID:          "rm-rf-root",
		Pattern:     regexp.MustCompile(`rm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+)+(/|~|\$HOME)(\s|$|['"])`),
		Severity:    types.SeverityCritical,
		Description: "Recursive delete targeting the filesystem root or home directory",
		Category:    CategoryDestructive,
	},
	{
		ID:          "disk-overwrite",
		Pattern:     regexp.MustCompile(`\bdd\s+[^#\n]*of=/dev/(sd[a-z]|nvme|disk|hd[a-z])`),
		Severity:    types.SeverityCritical,
		Description: "Raw write to a block device",
		Category:    CategoryDestructive,
	},
	{
		ID:          "mkfs",
		Pattern:     regexp.MustCompile(`\bmkfs(\.[a-z0-9]+)?\s+/dev/`),
		Severity:    types.SeverityCritical,
		Description: "Filesystem format command against a device",
		Category:    CategoryDestructive,
	},
	{
		ID:          "fork-bomb",
		Pattern:     regexp.MustCompile(`:\(\)\s*\{\s*:\|:&\s*\}\s*;?\s*:`),
		Severity:    types.SeverityCritical,
		Description: "Shell fork bomb",
		Category:    CategoryResource,
	},
	// Critical: remote code execution
	{
		ID:          "curl-pipe-shell",
		Pattern:     regexp.MustCompile(`(curl|wget)\s+[^#\n]*\|\s*(sudo\s+)?(ba)?sh\b`),
		Severity:    types.SeverityCritical,
		Description: "Download piped directly into a shell",
		Category:    CategoryExecution,
	},
	{
		ID:          "reverse-shell",
		Pattern:     regexp.MustCompile(`(nc|ncat|netcat)\s+[^#\n]*\s-e\s+(/bin/)?(ba)?sh|/dev/tcp/\d{1,3}\.\d{1,3}`),
		Severity:    types.SeverityCritical,
		Description: "Reverse shell invocation",
		Category:    CategoryExecution,
	},
	// Critical: credential exfiltration
	{
		ID:          "ssh-key-read",
		Pattern:     regexp.MustCompile(`(cat|cp|curl|scp|tar)\s+[^#\n]*(~|\$HOME|/home/[a-z0-9_-]+)/\.ssh/`),
		Severity:    types.SeverityCritical,
		Description: "Access to SSH private key material",
		Category:    CategoryCredentials,
	},
	{
		ID:          "cloud-credential-read",
		Pattern:     regexp.MustCompile(`(cat|cp|curl|scp|tar)\s+[^#\n]*(~|\$HOME|/home/[a-z0-9_-]+)/\.(aws|config/gcloud|azure|kube)/`),
		Severity:    types.SeverityCritical,
		Description: "Access to cloud provider credentials",
		Category:    CategoryCredentials,
	},
	{
		ID:          "env-exfiltration",
		Pattern:     regexp.MustCompile(`(curl|wget)\s+[^#\n]*(-d|--data|--data-binary)\s+[^#\n]*\$\{?[A-Z_]*(KEY|TOKEN|SECRET|PASSWORD)`),
		Severity:    types.SeverityCritical,
		Description: "Secret-bearing environment variable posted to a remote host",
		Category:    CategoryExfiltration,
	},
	{
		ID:          "history-clear",
		Pattern:     regexp.MustCompile(`(history\s+-c|unset\s+HISTFILE|shred\s+[^#\n]*\.bash_history)`),
		Severity:    types.SeverityCritical,
		Description: "Shell history tampering",
		Category:    CategoryPersistence,
	},

	// Warnings: risky but sometimes legitimate
	{
		ID:          "eval-call",
		Pattern:     regexp.MustCompile(`\beval\s*\(`),
		Severity:    types.SeverityWarning,
		Description: "Dynamic code evaluation via eval()",
		Category:    CategoryExecution,
	},
	{
		ID:          "exec-call",
		Pattern:     regexp.MustCompile(`\b(child_process|subprocess|os\.system|exec(Sync|File)?)\s*(\.|\()`),
		Severity:    types.SeverityWarning,
		Description: "Subprocess or shell execution",
		Category:    CategoryExecution,
	},
	{
		ID:          "base64-decode-exec",
		Pattern:     regexp.MustCompile(`base64\s+(-d|--decode)|atob\s*\(|Buffer\.from\s*\([^)]*['"]base64`),
		Severity:    types.SeverityWarning,
		Description: "Base64 decoding, a common obfuscation step",
		Category:    CategoryObfuscation,
	},
	{
		ID:          "hex-escape-blob",
		Pattern:     regexp.MustCompile(`(\\x[0-9a-fA-F]{2}){8,}`),
		Severity:    types.SeverityWarning,
		Description: "Long hex-escaped byte sequence",
		Category:    CategoryObfuscation,
	},
	{
		ID:          "hardcoded-aws-key",
		Pattern:     regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
		Severity:    types.SeverityWarning,
		Description: "Hardcoded AWS access key ID",
		Category:    CategoryCredentials,
	},
	{
		ID:          "private-key-block",
		Pattern:     regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`),
		Severity:    types.SeverityWarning,
		Description: "Embedded private key block",
		Category:    CategoryCredentials,
	},
	{
		ID:          "sudo-invocation",
		Pattern:     regexp.MustCompile(`\bsudo\s+[a-z]`),
		Severity:    types.SeverityWarning,
		Description: "Privilege escalation via sudo",
		Category:    CategoryExecution,
	},
	{
		ID:          "crontab-write",
		Pattern:     regexp.MustCompile(`crontab\s+(-|[^#\n]*\.cron)|/etc/cron\.(d|daily|hourly)/`),
		Severity:    types.SeverityWarning,
		Description: "Scheduled-task installation",
		Category:    CategoryPersistence,
	},
	{
		ID:          "shell-profile-write",
		Pattern:     regexp.MustCompile(`>>?\s*(~|\$HOME)/\.(bashrc|zshrc|profile|bash_profile)`),
		Severity:    types.SeverityWarning,
		Description: "Shell startup file modification",
		Category:    CategoryPersistence,
	},
	{
		ID:          "raw-ip-url",
		Pattern:     regexp.MustCompile(`https?://\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}[:/]`),
		Severity:    types.SeverityWarning,
		Description: "URL addressing a raw IP instead of a hostname",
		Category:    CategoryNetwork,
	},
	{
		ID:          "chmod-777",
		Pattern:     regexp.MustCompile(`chmod\s+(-[a-zA-Z]+\s+)*0?777\b`),
		Severity:    types.SeverityWarning,
		Description: "World-writable permission change",
		Category:    CategoryDestructive,
	},

	// Multiline patterns, evaluated against the capped full content
	{
		ID:          "staged-payload",
		Pattern:     regexp.MustCompile(`(?s)(curl|wget)[^;&|]{0,200}-[oO]\s+(/tmp/|/var/tmp/)[^\n]{0,100}.{0,400}(chmod\s+\+x|sh\s+/tmp/|bash\s+/tmp/)`),
		Severity:    types.SeverityCritical,
		Description: "Download-then-execute staging sequence",
		Category:    CategoryExecution,
		Multiline:   true,
	},
	{
		ID:          "obfuscated-eval",
		Pattern:     regexp.MustCompile(`(?s)(atob|base64)[^\n]{0,200}.{0,400}\beval\s*\(`),
		Severity:    types.SeverityWarning,
		Description: "Decode step followed by dynamic evaluation",
		Category:    CategoryObfuscation,
		Multiline:   true,
	},
}

// NewPatternCatalog builds the catalog from the builtin signature table.
func NewPatternCatalog() *PatternCatalog {
	return newCatalog(builtinSignatures)
}

func newCatalog(signatures []ThreatSignature) *PatternCatalog {
	c := &PatternCatalog{}
	for _, sig := range signatures {
		switch {
		case sig.Multiline:
			c.multiline = append(c.multiline, sig)
		case sig.Severity == types.SeverityCritical:
			c.critical = append(c.critical, sig)
		default:
			c.warning = append(c.warning, sig)
		}
	}
	return c
}

// Critical returns the single-line critical signatures.
func (c *PatternCatalog) Critical() []ThreatSignature { return c.critical }

// Warning returns the single-line warning signatures.
func (c *PatternCatalog) Warning() []ThreatSignature { return c.warning }

// Multiline returns the multiline signatures.
func (c *PatternCatalog) Multiline() []ThreatSignature { return c.multiline }

// Len returns the total number of signatures in the catalog.
func (c *PatternCatalog) Len() int {
	return len(c.critical) + len(c.warning) + len(c.multiline)
}

// signatureOverlay is the YAML shape of a per-scope signatures.yml file.
type signatureOverlay struct {
	Signatures []overlayEntry `yaml:"signatures"`
}

type overlayEntry struct {
	ID          string `yaml:"id"`
	Pattern     string `yaml:"pattern"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Multiline   bool   `yaml:"multiline,omitempty"`
}

// LoadCatalogWithOverlay builds the catalog from the builtin table plus any
// valid entries found in the scope's signatures.yml. A missing overlay file
// is normal; invalid entries are logged and skipped, never fatal.
func LoadCatalogWithOverlay(overlayPath string) *PatternCatalog {
	data, err := os.ReadFile(overlayPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("signature overlay unreadable, using builtin catalog: %v", err)
		}
		return NewPatternCatalog()
	}

	var overlay signatureOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		logger.Warnf("signature overlay malformed, using builtin catalog: %v", err)
		return NewPatternCatalog()
	}

	signatures := make([]ThreatSignature, len(builtinSignatures), len(builtinSignatures)+len(overlay.Signatures))
	copy(signatures, builtinSignatures)

	for _, entry := range overlay.Signatures {
		sig, err := compileOverlayEntry(entry)
		if err != nil {
			logger.Warnf("skipping overlay signature %q: %v", entry.ID, err)
			continue
		}
		signatures = append(signatures, sig)
	}

	return newCatalog(signatures)
}

// compileOverlayEntry validates and compiles one overlay signature.
func compileOverlayEntry(entry overlayEntry) (ThreatSignature, error) {
	if entry.ID == "" {
		return ThreatSignature{}, fmt.Errorf("missing id")
	}
	if entry.Pattern == "" {
		return ThreatSignature{}, fmt.Errorf("missing pattern")
	}

	severity := types.Severity(entry.Severity)
	if severity != types.SeverityWarning && severity != types.SeverityCritical {
		return ThreatSignature{}, fmt.Errorf("severity must be %q or %q, got %q",
			types.SeverityWarning, types.SeverityCritical, entry.Severity)
	}

	pattern := entry.Pattern
	if entry.Multiline {
		pattern = "(?s)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return ThreatSignature{}, fmt.Errorf("invalid pattern: %w", err)
	}

	category := entry.Category
	if category == "" {
		category = "custom"
	}

	return ThreatSignature{
		ID:          entry.ID,
		Pattern:     re,
		Severity:    severity,
		Description: entry.Description,
		Category:    category,
		Multiline:   entry.Multiline,
	}, nil
}
