package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cudaconf/internal/fault"
	"cudaconf/internal/store"
	"cudaconf/internal/toolchain"
	"cudaconf/internal/toolkit"
	"cudaconf/internal/version"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00d7ff"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd700")).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#87d7af")).Width(22)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff"))
	absentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaf00"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafff"))
)

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	if value == "" {
		b.WriteString(absentStyle.Render("none"))
	} else {
		b.WriteString(valueStyle.Render(value))
	}
	b.WriteString("\n")
}

func versions(vs []version.Version) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}

func renderConfiguration(c store.Configuration, path string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("CUDA Toolchain"))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(path))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Versions"))
	b.WriteString("\n")
	row(&b, "driver (CUDA)", c.Driver.String())
	row(&b, "LLVM", c.Backend.String())
	row(&b, "toolkit", fmt.Sprintf("%s (%s)", c.Toolkit, c.ToolkitSource))
	row(&b, "toolkit roots", strings.Join(c.ToolkitRoots, " "))

	b.WriteString(sectionStyle.Render("Capabilities"))
	b.WriteString("\n")
	row(&b, "device targets", versions(c.Targets))
	row(&b, "PTX ISA versions", versions(c.ISAs))

	b.WriteString(sectionStyle.Render("Components"))
	b.WriteString("\n")
	for _, comp := range toolkit.Components {
		p, _ := c.Path(comp)
		row(&b, string(comp), p)
	}

	return b.String()
}

func renderResolved(r *toolchain.Resolved, status string) string {
	var b strings.Builder
	b.WriteString(renderConfiguration(r.Configuration(), status))

	if len(r.Warnings) > 0 {
		b.WriteString(sectionStyle.Render("Warnings"))
		b.WriteString("\n")
		for _, w := range r.Warnings {
			b.WriteString(warnStyle.Render("⚠ " + w.String()))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderError(err error) string {
	msg := err.Error()
	if fault.KindOf(err) == "" {
		msg = "error: " + msg
	}
	return errorStyle.Render("✗ " + msg)
}
