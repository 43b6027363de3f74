package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors shared by every terminal surface.
const (
	ColorTitle lipgloss.Color = "#7D56F4"
	ColorOK    lipgloss.Color = "#04B575"
	ColorError lipgloss.Color = "#FF0000"
	ColorWarn  lipgloss.Color = "#FFA500"
	ColorMuted lipgloss.Color = "#626262"
)

var styles = NewPalette(ColorTitle, ColorOK, ColorError, ColorWarn, ColorMuted)

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h lipgloss.Color) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(fg)
}

func NewBold(fg lipgloss.Color) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg lipgloss.Color) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
