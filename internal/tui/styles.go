// Package tui renders human-facing command output. Styling degrades to
// plain text when stdout is not a terminal, and JSON mode bypasses this
// package entirely.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/skillsync-dev/skillsync/internal/types"
)

var (
	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	styleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	styleErr      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	styleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	styleCritical = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))
	styleDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
)

// IsTerminal reports whether stdout is an interactive terminal.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// styled applies the style only when stdout is a terminal.
func styled(style lipgloss.Style, s string) string {
	if !IsTerminal() {
		return s
	}
	return style.Render(s)
}

// riskStyle picks a style for a risk level.
func riskStyle(level types.RiskLevel) lipgloss.Style {
	switch level {
	case types.RiskCritical:
		return styleCritical
	case types.RiskHigh:
		return styleErr
	case types.RiskMedium, types.RiskLow:
		return styleWarn
	default:
		return styleSuccess
	}
}

// Title renders a section heading.
func Title(s string) string {
	return styled(styleTitle, s)
}

// Success renders a success line with a check mark.
func Success(format string, args ...interface{}) string {
	return styled(styleSuccess, "✓ "+fmt.Sprintf(format, args...))
}

// Failure renders a failure line with a cross mark.
func Failure(format string, args ...interface{}) string {
	return styled(styleErr, "✗ "+fmt.Sprintf(format, args...))
}

// Warning renders a warning line.
func Warning(format string, args ...interface{}) string {
	return styled(styleWarn, "! "+fmt.Sprintf(format, args...))
}

// RenderScanResult renders one scan result with its threat list.
func RenderScanResult(name string, result types.ScanResult) string {
	var b strings.Builder

	b.WriteString(Title(fmt.Sprintf("Scan: %s", name)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Risk: %s\n", styled(riskStyle(result.RiskLevel), string(result.RiskLevel))))
	b.WriteString(fmt.Sprintf("  Threats: %d\n", len(result.Threats)))

	for _, threat := range result.Threats {
		line := fmt.Sprintf("    [%s] %s: %s", threat.Severity, threat.PatternID, threat.Description)
		if threat.Line > 0 {
			line += fmt.Sprintf(" (line %d)", threat.Line)
		}
		if threat.Severity == types.SeverityCritical {
			b.WriteString(styled(styleCritical, line))
		} else {
			b.WriteString(styled(styleWarn, line))
		}
		b.WriteString("\n")
	}

	if result.Recommendation != "" {
		b.WriteString(fmt.Sprintf("  %s\n", result.Recommendation))
	}
	b.WriteString(styled(styleDim, fmt.Sprintf("  hash: %s", result.ContentHash)))
	b.WriteString("\n")

	return b.String()
}

// RenderSkillList renders installed skills as an aligned table.
func RenderSkillList(skills []*types.InstalledSkill) string {
	if len(skills) == 0 {
		return styled(styleDim, "no skills installed") + "\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-24s %-10s %6s %9s  %s\n", "NAME", "RISK", "FILES", "SIZE", "MANIFEST"))
	for _, skill := range skills {
		manifest := "yes"
		if !skill.HasManifest {
			manifest = "no"
		}
		risk := styled(riskStyle(skill.Scan.RiskLevel), fmt.Sprintf("%-10s", skill.Scan.RiskLevel))
		b.WriteString(fmt.Sprintf("%-24s %s %6d %9s  %s\n",
			skill.Name, risk, skill.FilesCount, humanSize(skill.TotalSize), manifest))
		for _, unscanned := range skill.Unscanned {
			b.WriteString(styled(styleDim, fmt.Sprintf("  unscanned: %s", unscanned)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderSearchResults renders marketplace search results.
func RenderSearchResults(resp *types.SearchResponse) string {
	if len(resp.Skills) == 0 {
		return styled(styleDim, "no results") + "\n"
	}

	var b strings.Builder
	b.WriteString(Title(fmt.Sprintf("%d result(s), %d total", len(resp.Skills), resp.Total)))
	b.WriteString("\n")
	for _, skill := range resp.Skills {
		b.WriteString(fmt.Sprintf("  %s", styled(styleTitle, skill.Name)))
		if skill.Author != "" {
			b.WriteString(styled(styleDim, " by "+skill.Author))
		}
		if skill.Stars > 0 {
			b.WriteString(fmt.Sprintf(" (★ %d)", skill.Stars))
		}
		b.WriteString("\n")
		if skill.Description != "" {
			b.WriteString(fmt.Sprintf("    %s\n", skill.Description))
		}
		b.WriteString(styled(styleDim, "    "+skill.SourceURL))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSyncReport renders a sync report action by action.
func RenderSyncReport(report *types.SyncReport) string {
	var b strings.Builder

	header := fmt.Sprintf("Sync [%s]", report.Scope)
	if report.DryRun {
		header += " (dry run)"
	}
	b.WriteString(Title(header))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  discovered: %d, actions: %d\n", report.Discovered, len(report.Actions)))

	for _, action := range report.Actions {
		line := fmt.Sprintf("  %-8s %-10s %s", action.Type, action.Status, action.Skill)
		if action.Message != "" {
			line += ": " + action.Message
		}
		switch action.Status {
		case types.StatusFailed:
			b.WriteString(styled(styleErr, line))
		case types.StatusRiskSkipped:
			b.WriteString(styled(styleWarn, line))
		case types.StatusPlanned:
			b.WriteString(styled(styleDim, line))
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	if errs := report.Errors(); len(errs) > 0 {
		b.WriteString(Failure("%d action(s) failed", len(errs)))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSubscriptions renders the subscription list for one scope.
func RenderSubscriptions(subs []types.Subscription) string {
	if len(subs) == 0 {
		return styled(styleDim, "no subscriptions") + "\n"
	}

	var b strings.Builder
	for _, sub := range subs {
		state := "enabled"
		if !sub.Enabled {
			state = "disabled"
		}
		b.WriteString(fmt.Sprintf("  %s  %q (%s)\n", sub.ID, sub.Query, state))
		if len(sub.Authors) > 0 {
			b.WriteString(styled(styleDim, "    authors: "+strings.Join(sub.Authors, ", ")))
			b.WriteString("\n")
		}
		if len(sub.Tags) > 0 {
			b.WriteString(styled(styleDim, "    tags: "+strings.Join(sub.Tags, ", ")))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
