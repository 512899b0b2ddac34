package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/skillsync-dev/skillsync/internal/types"
)

// ContentScanner evaluates text content against a PatternCatalog and
// produces a risk classification. Scan is a pure function of the content and
// the catalog: no I/O, deterministic, re-entrant, and it never fails for any
// input. Scan results gate installation of untrusted content, so the scanner
// itself must not be a crash or denial-of-service vector.
type ContentScanner struct {
	catalog *PatternCatalog
}

// NewContentScanner creates a scanner over the given catalog.
func NewContentScanner(catalog *PatternCatalog) *ContentScanner {
	return &ContentScanner{catalog: catalog}
}

// Scan classifies content and returns the full scan result, including the
// SHA-256 hex digest of the exact input bytes.
func (s *ContentScanner) Scan(content string) types.ScanResult {
	var threats []types.Threat

	// seen suppresses duplicate hits per distinct pattern: only the first
	// matching line of each signature is recorded.
	seen := make(map[string]bool)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lineNo := i + 1

		// Long lines are skipped entirely: evaluating user-supplied regexes
		// against adversarially long input is how scanners get stalled. One
		// synthetic warning per offending line, and no other pattern runs.
		if len(line) > MaxScanLineLength {
			threats = append(threats, types.Threat{
				PatternID:   "excessive-line-length",
				Severity:    types.SeverityWarning,
				Description: fmt.Sprintf("Line exceeds %d characters and was not pattern-scanned", MaxScanLineLength),
				Category:    CategoryObfuscation,
				Line:        lineNo,
			})
			continue
		}

		// Critical set first, then warnings. Evaluation order does not
		// change the classification, only which threat is recorded first.
		for _, sig := range s.catalog.Critical() {
			if !seen[sig.ID] && sig.Pattern.MatchString(line) {
				seen[sig.ID] = true
				threats = append(threats, threatFor(sig, lineNo))
			}
		}
		for _, sig := range s.catalog.Warning() {
			if !seen[sig.ID] && sig.Pattern.MatchString(line) {
				seen[sig.ID] = true
				threats = append(threats, threatFor(sig, lineNo))
			}
		}
	}

	// Multiline patterns run against a fixed-size prefix of the content.
	// A hard ceiling, not a sliding window: threats past it go undetected,
	// which is the documented tradeoff for bounded scan cost.
	capped := content
	if len(capped) > MaxMultilineScanBytes {
		capped = capped[:MaxMultilineScanBytes]
	}
	for _, sig := range s.catalog.Multiline() {
		if !seen[sig.ID] && sig.Pattern.MatchString(capped) {
			seen[sig.ID] = true
			threats = append(threats, threatFor(sig, 0))
		}
	}

	criticalCount, warningCount := 0, 0
	for _, t := range threats {
		if t.Severity == types.SeverityCritical {
			criticalCount++
		} else {
			warningCount++
		}
	}

	riskLevel, safe := classifyRisk(criticalCount, warningCount)

	sum := sha256.Sum256([]byte(content))

	return types.ScanResult{
		Safe:           safe,
		RiskLevel:      riskLevel,
		Threats:        threats,
		Recommendation: recommendationFor(riskLevel),
		ContentHash:    hex.EncodeToString(sum[:]),
	}
}

// HashContent returns the SHA-256 hex digest Scan would attach for content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// classifyRisk maps threat counts to the risk level and safe flag. The two
// intentionally diverge: a low-risk result is still safe==true. Flagged for
// product review, preserved as-is because existing behavior depends on it.
func classifyRisk(criticalCount, warningCount int) (types.RiskLevel, bool) {
	safe := criticalCount == 0 && warningCount < 3

	switch {
	case criticalCount > 0:
		return types.RiskCritical, safe
	case warningCount >= 5:
		return types.RiskHigh, safe
	case warningCount >= 3:
		return types.RiskMedium, safe
	case warningCount >= 1:
		return types.RiskLow, safe
	default:
		return types.RiskSafe, safe
	}
}

func threatFor(sig ThreatSignature, line int) types.Threat {
	return types.Threat{
		PatternID:   sig.ID,
		Severity:    sig.Severity,
		Description: sig.Description,
		Category:    sig.Category,
		Line:        line,
	}
}

func recommendationFor(level types.RiskLevel) string {
	switch level {
	case types.RiskCritical:
		return "Do not install. Critical threat patterns were detected; installation cannot be forced."
	case types.RiskHigh:
		return "Installation blocked by default. Review every flagged line before considering --force."
	case types.RiskMedium:
		return "Installation blocked by default. Review the flagged patterns before considering --force."
	case types.RiskLow:
		return "Proceed with caution: one or more warning patterns matched."
	default:
		return "No threat patterns detected."
	}
}
