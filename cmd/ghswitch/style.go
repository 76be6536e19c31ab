package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/randalmurphal/ghswitch/scan"
	"github.com/randalmurphal/ghswitch/validate"
)

var (
	titleCase = cases.Title(language.English, cases.NoLower)

	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func heading(s string) string {
	return headingStyle.Render(s)
}

func renderError(err error) string {
	return errStyle.Render("Error:") + " " + err.Error()
}

func renderStatus(s scan.Status) string {
	label := titleCase.String(string(s))
	switch s {
	case scan.StatusBound:
		return okStyle.Render(label)
	case scan.StatusError, scan.StatusUnrecognizedAlias:
		return errStyle.Render(label)
	case scan.StatusNonGitHub, scan.StatusNoRemote:
		return dimStyle.Render(label)
	default:
		return warnStyle.Render(label)
	}
}

func renderFinding(f validate.Finding) string {
	var mark string
	switch {
	case f.Valid:
		mark = okStyle.Render("ok")
	case f.Severity == validate.SeverityError:
		mark = errStyle.Render(titleCase.String(string(f.Severity)))
	default:
		mark = warnStyle.Render(titleCase.String(string(f.Severity)))
	}

	var sb strings.Builder
	sb.WriteString("[" + mark + "] ")
	if f.Account != "" {
		sb.WriteString(f.Account + ": ")
	}
	sb.WriteString(f.Message)
	if !f.Valid && f.Fix != "" {
		sb.WriteString("\n      " + dimStyle.Render("fix: "+f.Fix))
	}
	return sb.String()
}

// orDash renders empty optional values.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
