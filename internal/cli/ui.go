package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/fieldtrial/pkg/pipeline"
)

// Terminal palette. Numbers are ANSI 256 colors.
var (
	colorAccent = lipgloss.Color("36")
	colorOK     = lipgloss.Color("35")
	colorWarn   = lipgloss.Color("220")
	colorBad    = lipgloss.Color("167")
	colorCmd    = lipgloss.Color("75")
	colorText   = lipgloss.Color("255")
	colorMuted  = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	StyleTitle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleDim      = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue    = lipgloss.NewStyle().Foreground(colorText)
	StyleWarning  = lipgloss.NewStyle().Foreground(colorWarn)
	StyleConflict = lipgloss.NewStyle().Bold(true).Foreground(colorBad)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleKey         = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
	styleHeader      = lipgloss.NewStyle().Foreground(colorMuted).Bold(true).Padding(0, 1)
	styleCell        = lipgloss.NewStyle().Padding(0, 1)
)

// status is the leading marker of a one-line message.
type status struct {
	icon  string
	style lipgloss.Style
}

var (
	statusOK   = status{"✓", lipgloss.NewStyle().Foreground(colorOK)}
	statusFail = status{"✗", lipgloss.NewStyle().Foreground(colorBad)}
	statusWarn = status{"!", lipgloss.NewStyle().Foreground(colorWarn)}
	statusInfo = status{"›", lipgloss.NewStyle().Foreground(colorMuted)}
)

func (s status) line(text string) string {
	return s.style.Render(s.icon) + " " + text
}

func printSuccess(format string, args ...any) {
	fmt.Println(statusOK.line(fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Println(statusFail.line(fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Println(statusWarn.line(StyleWarning.Render(fmt.Sprintf(format, args...))))
}

func printInfo(format string, args ...any) {
	fmt.Println(statusInfo.line(fmt.Sprintf(format, args...)))
}

func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Println("  " + StyleDim.Render("→") + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// statsLine summarizes a run, e.g. "61 blocks · 480 cells · 12 entries · cached".
func statsLine(s pipeline.Stats, cached bool) string {
	parts := []string{
		plural(s.Blocks, "block", "blocks"),
		plural(s.Cells, "cell", "cells"),
		plural(s.Entries, "entry", "entries"),
	}
	if s.Unassigned > 0 {
		parts = append(parts, fmt.Sprintf("%d unassigned", s.Unassigned))
	}
	for i := range parts {
		parts[i] = StyleDim.Render(parts[i])
	}
	origin := lipgloss.NewStyle().Foreground(colorMuted).Render("fresh")
	if cached {
		origin = lipgloss.NewStyle().Foreground(colorOK).Render("cached")
	}
	return "  " + strings.Join(append(parts, origin), StyleDim.Render(" · "))
}

func printStats(s pipeline.Stats, cached bool) {
	fmt.Println(statsLine(s, cached))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + lipgloss.NewStyle().Foreground(colorCmd).Render(cmd))
}

func printNewline() {
	fmt.Println()
}

// renderTable draws rows under headers in a rounded border.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			return styleCell
		}).
		Render()
}

// swatch renders text on a background taken from a hex color. Empty colors
// render plain.
func swatch(hex, text string) string {
	if hex == "" {
		return text
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Foreground(lipgloss.Color("0")).Render(text)
}
