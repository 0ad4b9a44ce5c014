// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyui

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/hubkey/lib/hubkey"
)

// defaultWidth is the box width when the terminal width is unknown.
const defaultWidth = 72

// Options describe the device and vault being shown.
type Options struct {
	// DeviceID is shown on screens that ask for device registration.
	DeviceID string

	// HubURL is where the user goes to act on a screen. Optional.
	HubURL string

	// Vault names the vault in the waiting view. Optional.
	Vault string

	Theme   Theme
	Profile termenv.Profile
	Width   int
}

func (o Options) withDefaults() Options {
	if o.Theme == (Theme{}) {
		o.Theme = DefaultTheme
	}
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	return o
}

// DetectProfile returns the color profile to use for writer. Non
// terminals and NO_COLOR get termenv.Ascii.
func DetectProfile(writer io.Writer) termenv.Profile {
	return termenv.NewOutput(writer).EnvColorProfile()
}

// Message is the content of one screen.
type Message struct {
	Title  string
	Body   string
	Detail []string
	Tone   Tone
}

// MessageFor returns the content shown for screen. ScreenNone has no
// message.
func MessageFor(screen hubkey.Screen, options Options) (Message, bool) {
	var details []string
	if options.DeviceID != "" {
		details = append(details, "Device ID: "+options.DeviceID)
	}
	if options.HubURL != "" {
		details = append(details, "Hub: "+options.HubURL)
	}

	switch screen {
	case hubkey.ScreenSetupDevice:
		return Message{
			Title: "Set up this device",
			Body: "Hub does not know this device yet. Sign in to Hub in your browser, " +
				"add this device to your account, then unlock the vault again.",
			Detail: details,
			Tone:   ToneWarning,
		}, true
	case hubkey.ScreenRegisterDevice:
		return Message{
			Title: "Register this device",
			Body: "This vault still uses the legacy Hub protocol. Register this device " +
				"in Hub and ask a vault owner to grant it access.",
			Detail: details,
			Tone:   ToneWarning,
		}, true
	case hubkey.ScreenUnauthorized:
		return Message{
			Title:  "Access denied",
			Body:   "You are not allowed to unlock this vault. Ask a vault owner for access.",
			Detail: details,
			Tone:   ToneError,
		}, true
	case hubkey.ScreenLicenseExceeded:
		return Message{
			Title: "Hub license exceeded",
			Body: "This Hub has more users than its license allows. " +
				"Ask your Hub administrator to update the license.",
			Tone: ToneError,
		}, true
	case hubkey.ScreenClose:
		return Message{
			Title: "Vault key received",
			Body:  "Hub released the key for this vault.",
			Tone:  ToneSuccess,
		}, true
	}
	return Message{}, false
}

// styles are the lipgloss styles for one renderer and theme.
type styles struct {
	box    lipgloss.Style
	title  lipgloss.Style
	body   lipgloss.Style
	detail lipgloss.Style
	faint  lipgloss.Style
}

func newStyles(renderer *lipgloss.Renderer, theme Theme, tone Tone, width int) styles {
	accent := theme.Accent(tone)
	return styles{
		box: renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1).
			Width(width - 2),
		title:  renderer.NewStyle().Bold(true).Foreground(accent),
		body:   renderer.NewStyle().Foreground(theme.NormalText),
		detail: renderer.NewStyle().Foreground(theme.DetailText),
		faint:  renderer.NewStyle().Foreground(theme.FaintText),
	}
}

// newRenderer builds a renderer for writer pinned to profile. Without
// the explicit SetColorProfile, lipgloss re-detects from the writer.
func newRenderer(writer io.Writer, profile termenv.Profile) *lipgloss.Renderer {
	renderer := lipgloss.NewRenderer(writer, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return renderer
}

// Render draws message as a bordered box.
func Render(renderer *lipgloss.Renderer, theme Theme, message Message, width int) string {
	style := newStyles(renderer, theme, message.Tone, width)

	lines := []string{style.title.Render(message.Title), ""}
	lines = append(lines, style.body.Render(message.Body))
	if len(message.Detail) > 0 {
		lines = append(lines, "")
		for _, detail := range message.Detail {
			lines = append(lines, style.detail.Render(detail))
		}
	}
	return style.box.Render(strings.Join(lines, "\n"))
}
