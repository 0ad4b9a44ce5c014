// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyui

import "github.com/charmbracelet/lipgloss"

// Tone selects the accent color of a screen.
type Tone int

const (
	ToneInfo Tone = iota
	ToneSuccess
	ToneWarning
	ToneError
)

// Theme is the palette for key retrieval screens. Colors are ANSI
// 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	TitleText  lipgloss.Color

	Info    lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	// Detail lines (device ID, Hub address) stand out from body text.
	DetailText lipgloss.Color
}

// Accent returns the color for tone.
func (theme Theme) Accent(tone Tone) lipgloss.Color {
	switch tone {
	case ToneSuccess:
		return theme.Success
	case ToneWarning:
		return theme.Warning
	case ToneError:
		return theme.Error
	default:
		return theme.Info
	}
}

// DefaultTheme targets dark terminals.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),
	TitleText:  lipgloss.Color("255"),

	Info:    lipgloss.Color("75"),  // blue
	Success: lipgloss.Color("114"), // green
	Warning: lipgloss.Color("220"), // amber
	Error:   lipgloss.Color("196"), // red

	DetailText: lipgloss.Color("141"), // light purple
}
