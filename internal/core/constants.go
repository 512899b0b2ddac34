package core

// File and directory names
const (
	// SkillsDir is the per-scope directory holding one subdirectory per
	// installed skill. Skill names double as on-disk directory names, which
	// is why name validation is also the path-traversal defense.
	SkillsDir = "skills"
	// PolicyFile is the per-scope sync policy filename
	PolicyFile = "sync.json"
	// LockFile is the per-scope lock filename
	LockFile = "skills.lock.json"
	// SignatureOverlayFile is the optional per-scope extra-signatures file
	SignatureOverlayFile = "signatures.yml"
	// ManifestFile is the skill manifest filename (matched case-insensitively)
	ManifestFile = "SKILL.md"
	// DependencyManifest triggers the external dependency-install step
	DependencyManifest = "package.json"
	// DefaultScope is the scope used when none is given
	DefaultScope = "default"
)

// Scan limits
const (
	// MaxScanLineLength caps per-line pattern evaluation. Longer lines are
	// recorded as a synthetic warning and skipped, so an adversarially long
	// line cannot stall the scanner.
	MaxScanLineLength = 10_000
	// MaxMultilineScanBytes is the hard ceiling for multiline pattern
	// evaluation. A fixed prefix, not a sliding window.
	MaxMultilineScanBytes = 512_000
)

// Fetch and local-scan budgets
const (
	// MaxFilesPerSkill caps how many files one skill may contain
	MaxFilesPerSkill = 50
	// MaxFileSize caps a single skill file (1 MB)
	MaxFileSize = 1 << 20
	// MaxSkillSize caps the cumulative byte budget per skill (5 MB)
	MaxSkillSize = 5 << 20
)

// FileBoundaryMarker separates file contents when a skill directory is
// concatenated into one scan unit. Distinctive on purpose: a multiline
// pattern spanning the marker is an accepted false-positive surface.
const FileBoundaryMarker = "\n--- FILE: %s ---\n"

// AllowedSourceHosts is the fixed allowlist for skill source URLs. Enforced
// before any network call (SSRF defense).
var AllowedSourceHosts = []string{
	"github.com",
	"www.github.com",
}

// AllowedDownloadHosts is the allowlist for download URLs returned by the
// source-hosting API. A compromised listing response must not be able to
// redirect downloads off-host.
var AllowedDownloadHosts = []string{
	"raw.githubusercontent.com",
	"objects.githubusercontent.com",
	"codeload.github.com",
}

// TextFileExtensions lists the extensions included when scanning a skill.
// Extensionless files are included too; everything else is excluded and
// reported as unscanned.
var TextFileExtensions = []string{
	".md", ".markdown", ".txt", ".json", ".yml", ".yaml", ".toml",
	".js", ".mjs", ".cjs", ".ts", ".tsx", ".jsx",
	".py", ".rb", ".sh", ".bash", ".zsh", ".fish",
	".go", ".rs", ".java", ".c", ".h", ".cpp", ".hpp",
	".html", ".css", ".xml", ".csv", ".sql", ".env.example",
}

// BinaryFileExtensions lists extensions skipped outright at fetch time.
var BinaryFileExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico", ".svg",
	".pdf", ".zip", ".tar", ".gz", ".bz2", ".xz", ".7z",
	".exe", ".dll", ".so", ".dylib", ".bin", ".wasm",
	".woff", ".woff2", ".ttf", ".otf", ".eot",
	".mp3", ".mp4", ".wav", ".avi", ".mov",
	".db", ".sqlite", ".pyc", ".class", ".jar",
}
