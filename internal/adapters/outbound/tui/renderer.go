package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/autoci/autoci/internal/domain"
)

// ── Warm palette ──
var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	info    = lipgloss.Color("#8B949E") // soft blue-gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	errorTagStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnTagStyle  = lipgloss.NewStyle().Foreground(warning).Bold(true)
	infoTagStyle  = lipgloss.NewStyle().Foreground(info)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	catNameStyle  = lipgloss.NewStyle().Bold(true).Foreground(fg)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

var categoryTitles = map[domain.Category]string{
	domain.CategoryLanguage:       "Languages",
	domain.CategoryFramework:      "Frameworks",
	domain.CategoryBuildTool:      "Build tools",
	domain.CategoryTestTool:       "Test tools",
	domain.CategoryContainer:      "Containers",
	domain.CategoryIaC:            "Infrastructure as code",
	domain.CategoryPackageManager: "Package managers",
	domain.CategoryCI:             "Existing CI",
}

// RenderAnalysis formats a scan result for the terminal.
func RenderAnalysis(a *domain.RepoAnalysis) string {
	var b strings.Builder

	title := headerStyle.Render("autoci")
	subtitle := dimStyle.Render("Repository Analysis")
	primary := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(a.PrimaryLanguage)
	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + "primary language  " + primary))
	b.WriteString("\n")
	b.WriteString("  " + fileStyle.Render(a.RootPath) + "\n\n")

	found := false
	for _, c := range domain.Categories {
		techs := a.In(c)
		if len(techs) == 0 {
			continue
		}
		found = true
		b.WriteString("  " + catNameStyle.Render(categoryTitles[c]) + "\n")
		for _, t := range techs {
			renderTechnology(&b, t)
		}
		b.WriteString("\n")
	}
	if !found {
		b.WriteString("  " + dimStyle.Render("No technologies detected.") + "\n\n")
	}

	renderWarnings(&b, a.Warnings)
	return b.String()
}

// renderWarnings lists files the scan could not read.
func renderWarnings(b *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString("  " + separatorLine + "\n\n")
	b.WriteString("  " + titleStyle.Render("Warnings") + "  " +
		warnTagStyle.Render(fmt.Sprintf("%d", len(warnings))) + "\n\n")
	for _, w := range warnings {
		fmt.Fprintf(b, "    %s %s\n", severityTag(domain.SeverityWarning), dimStyle.Render(w))
	}
	b.WriteString("\n")
}

func renderTechnology(b *strings.Builder, t domain.Technology) {
	pct := int(t.Confidence*100 + 0.5)
	name := padRight(t.Name, 18)
	version := ""
	if t.Version != "" {
		version = "  " + dimStyle.Render(t.Version)
	}
	fmt.Fprintf(b, "    %s %s %s%s\n", name, coloredBar(pct, 20), dimStyle.Render(fmt.Sprintf("%3d%%", pct)), version)
	if len(t.Files) > 0 {
		fmt.Fprintf(b, "      %s\n", faintStyle.Render(strings.Join(t.Files, ", ")))
	}
}

// RenderAudit formats audit recommendations for the terminal.
func RenderAudit(r domain.AuditReport) string {
	var b strings.Builder

	title := headerStyle.Render("autoci")
	subtitle := dimStyle.Render("Pipeline Audit")
	b.WriteString(boxStyle.Render(title + "\n" + subtitle))
	b.WriteString("\n\n")

	if len(r.Recommendations) == 0 {
		b.WriteString("  " + passStyle.Render("No recommendations. The stack is fully covered.") + "\n\n")
		renderWarnings(&b, r.Warnings)
		return b.String()
	}

	errorCount, warnCount, infoCount := r.Count(domain.SeverityError), r.Count(domain.SeverityWarning), r.Count(domain.SeverityInfo)
	b.WriteString("  ")
	b.WriteString(titleStyle.Render("Recommendations"))
	b.WriteString("  ")
	if errorCount > 0 {
		b.WriteString(errorTagStyle.Render(fmt.Sprintf("%d errors", errorCount)))
		b.WriteString("  ")
	}
	if warnCount > 0 {
		b.WriteString(warnTagStyle.Render(fmt.Sprintf("%d warnings", warnCount)))
		b.WriteString("  ")
	}
	if infoCount > 0 {
		b.WriteString(infoTagStyle.Render(fmt.Sprintf("%d info", infoCount)))
	}
	b.WriteString("\n\n")

	for _, rec := range r.Recommendations {
		label := rec.Category
		if rec.Technology != "" {
			label += " · " + rec.Technology
		}
		fmt.Fprintf(&b, "    %s %s\n", severityTag(rec.Severity), fileStyle.Render(label))
		fmt.Fprintf(&b, "          %s\n", dimStyle.Render(rec.Message))
	}
	b.WriteString("\n")
	renderWarnings(&b, r.Warnings)
	return b.String()
}

// RenderGenerated summarizes a generated pipeline. written is the file the
// pipeline was saved to, empty when nothing was written.
func RenderGenerated(g *domain.GeneratedPipeline, spec *domain.PipelineSpec, written string) string {
	var b strings.Builder

	title := headerStyle.Render("autoci")
	subtitle := dimStyle.Render(g.Platform.DisplayName() + " pipeline")
	b.WriteString(boxStyle.Render(title + "\n" + subtitle))
	b.WriteString("\n\n")

	for _, stage := range spec.StagesUsed() {
		b.WriteString("  " + catNameStyle.Render(string(stage)) + "\n")
		for _, j := range spec.Jobs {
			if j.Stage != stage {
				continue
			}
			renderJob(&b, j)
		}
		b.WriteString("\n")
	}

	b.WriteString("  " + separatorLine + "\n\n")
	if written != "" {
		b.WriteString("  " + passStyle.Render("✓") + " wrote " + fileStyle.Render(written) + "\n\n")
	} else {
		b.WriteString("  " + dimStyle.Render("dry run: nothing written ("+g.Path+")") + "\n\n")
	}
	if g.Analysis != nil {
		renderWarnings(&b, g.Analysis.Warnings)
	}
	return b.String()
}

func renderJob(b *strings.Builder, j domain.Job) {
	var notes []string
	if j.Matrix != nil {
		notes = append(notes, fmt.Sprintf("%s: %s", j.Matrix.Axis, strings.Join(j.Matrix.Values, ", ")))
	} else if j.Version != "" {
		notes = append(notes, j.Toolchain+" "+j.Version)
	}
	if j.HasCache() {
		notes = append(notes, "cached")
	}
	if j.Parallel {
		notes = append(notes, "parallel")
	}
	if j.Trigger != nil && j.Trigger.PushOnly {
		notes = append(notes, "push to "+strings.Join(j.Trigger.PushBranches, ", "))
	}

	icon := passStyle.Render("●")
	if j.Stage == domain.StageDeploy {
		icon = warnStyle.Render("●")
	}
	line := fmt.Sprintf("    %s %s", icon, padRight(j.Name, 26))
	if len(notes) > 0 {
		line += " " + dimStyle.Render(strings.Join(notes, " · "))
	}
	b.WriteString(line + "\n")
	if len(j.Needs) > 0 {
		fmt.Fprintf(b, "      %s\n", faintStyle.Render("needs "+strings.Join(j.Needs, ", ")))
	}
}

func severityTag(severity string) string {
	switch severity {
	case domain.SeverityError:
		return errorTagStyle.Render("error")
	case domain.SeverityWarning:
		return warnTagStyle.Render("warn ")
	default:
		return infoTagStyle.Render("info ")
	}
}

func coloredBar(score, width int) string {
	filled := max(0, min(score*width/100, width))
	empty := width - filled

	color := scoreColor(score)
	filledStr := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	emptyStr := lipgloss.NewStyle().Foreground(faint).Render(strings.Repeat("░", empty))
	return filledStr + emptyStr
}

func scoreColor(score int) lipgloss.Color {
	switch {
	case score >= 80:
		return success
	case score >= 60:
		return lipgloss.Color("#A3E635") // lime
	case score >= 30:
		return warning
	default:
		return danger
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
