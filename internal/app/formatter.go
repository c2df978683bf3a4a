package app

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
)

// zeroWidthSpace breaks mention parsing without changing the rendered text.
const zeroWidthSpace = "\u200b"

// timestampStyles are the Discord timestamp directives, rendered in the reader's timezone.
//
//	t 14:30   T 14:30:00   d 02/21/2026   D February 21, 2026
//	f February 21, 2026 14:30   F Saturday, February 21, 2026 14:30   R 5 minutes ago
const timestampStyles = "tTdDfFR"

var mentionPattern = regexp.MustCompile(`@(?:everyone|here)|<@[!&]?[0-9]+>`)

// DisplayConfig selects which event fields appear in a formatted line.
type DisplayConfig struct {
	ShowCharacterName bool
	ShowKind          bool
	ShowLocation      bool
	ShowChannel       bool

	// TimestampStyle is one of t, T, d, D, f, F, R. Empty disables the timestamp.
	TimestampStyle string
}

// DefaultDisplayConfig returns the stock display settings.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		ShowCharacterName: true,
		ShowKind:          true,
		ShowLocation:      false,
		ShowChannel:       true,
		TimestampStyle:    "T",
	}
}

// ValidTimestampStyle reports whether s is a supported timestamp directive.
func ValidTimestampStyle(s string) bool {
	return s == "" || (len(s) == 1 && strings.Contains(timestampStyles, s))
}

// Formatter turns raw events into display lines. It is safe for concurrent use.
type Formatter struct {
	cfg DisplayConfig
}

// NewFormatter creates a formatter. An invalid timestamp style disables the timestamp.
func NewFormatter(cfg DisplayConfig) *Formatter {
	if !ValidTimestampStyle(cfg.TimestampStyle) {
		cfg.TimestampStyle = ""
	}
	return &Formatter{cfg: cfg}
}

// Config returns the display settings in use.
func (f *Formatter) Config() DisplayConfig {
	return f.cfg
}

// Format renders ev as a single display line with mentions neutralized.
// It returns false when the event carries no text.
func (f *Formatter) Format(ev domain.RawEvent) (string, bool) {
	if strings.TrimSpace(ev.Text) == "" {
		return "", false
	}

	sender := ev.Sender
	if sender == "" {
		sender = "Unknown"
	}
	kind := strings.ToLower(ev.Kind)
	if kind == "" {
		kind = "say"
	}

	var b strings.Builder

	if f.cfg.TimestampStyle != "" && !ev.ReceivedAt.IsZero() {
		fmt.Fprintf(&b, "<t:%d:%s> ", ev.ReceivedAt.Unix(), f.cfg.TimestampStyle)
	}

	b.WriteString("**")
	b.WriteString(sender)
	b.WriteString("**")
	if f.cfg.ShowCharacterName && ev.Character != "" && ev.Character != sender {
		b.WriteString(" (")
		b.WriteString(ev.Character)
		b.WriteString(")")
	}

	if f.cfg.ShowKind {
		b.WriteString(" [")
		b.WriteString(capitalize(kind))
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(ev.Text)

	var footer []string
	if f.cfg.ShowLocation && ev.Location != "" {
		footer = append(footer, "Location: "+ev.Location)
	}
	if f.cfg.ShowChannel && ev.Channel != "" {
		footer = append(footer, "Channel: "+ev.Channel)
	}
	if len(footer) > 0 {
		b.WriteString("\n-# ")
		b.WriteString(strings.Join(footer, " | "))
	}

	return NeutralizeMentions(b.String()), true
}

// NeutralizeMentions defuses @everyone, @here and user/role mentions by
// inserting a zero-width space after the '@'. Every other byte is preserved.
func NeutralizeMentions(s string) string {
	return mentionPattern.ReplaceAllStringFunc(s, func(m string) string {
		i := strings.IndexByte(m, '@')
		return m[:i+1] + zeroWidthSpace + m[i+1:]
	})
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
