package app

import (
	"strings"
	"testing"
	"time"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
)

func TestFormatter_Format(t *testing.T) {
	at := time.Unix(1700000000, 0)
	all := DisplayConfig{
		ShowCharacterName: true,
		ShowKind:          true,
		ShowLocation:      true,
		ShowChannel:       true,
		TimestampStyle:    "R",
	}

	tests := []struct {
		name string
		cfg  DisplayConfig
		ev   domain.RawEvent
		want string
	}{
		{
			name: "all fields",
			cfg:  all,
			ev: domain.RawEvent{
				Text: "hello", Sender: "Alice", Character: "Conan", Kind: "SHOUT",
				Location: "Sepermeru", Channel: "Global", ReceivedAt: at,
			},
			want: "<t:1700000000:R> **Alice** (Conan) [Shout]: hello\n-# Location: Sepermeru | Channel: Global",
		},
		{
			name: "defaults for sender and kind",
			cfg:  all,
			ev:   domain.RawEvent{Text: "hi"},
			want: "**Unknown** [Say]: hi",
		},
		{
			name: "character equal to sender is hidden",
			cfg:  all,
			ev:   domain.RawEvent{Text: "hi", Sender: "Bob", Character: "Bob", Kind: "whisper"},
			want: "**Bob** [Whisper]: hi",
		},
		{
			name: "everything disabled",
			cfg:  DisplayConfig{},
			ev: domain.RawEvent{
				Text: "hi", Sender: "Bob", Character: "Thrall", Kind: "say",
				Location: "Den", Channel: "Local", ReceivedAt: at,
			},
			want: "**Bob**: hi",
		},
		{
			name: "channel only footer",
			cfg:  DefaultDisplayConfig(),
			ev:   domain.RawEvent{Text: "hi", Sender: "Bob", Location: "Den", Channel: "Local"},
			want: "**Bob** [Say]: hi\n-# Channel: Local",
		},
		{
			name: "invalid timestamp style disables timestamp",
			cfg:  DisplayConfig{TimestampStyle: "x"},
			ev:   domain.RawEvent{Text: "hi", Sender: "Bob", ReceivedAt: at},
			want: "**Bob**: hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewFormatter(tt.cfg).Format(tt.ev)
			if !ok {
				t.Fatal("Format() ok = false, want true")
			}
			if got != tt.want {
				t.Errorf("Format() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestFormatter_EmptyText(t *testing.T) {
	f := NewFormatter(DefaultDisplayConfig())

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, ok := f.Format(domain.RawEvent{Text: text, Sender: "Bob"}); ok {
			t.Errorf("Format(%q) ok = true, want false", text)
		}
	}
}

func TestFormatter_NeutralizesEveryone(t *testing.T) {
	f := NewFormatter(DefaultDisplayConfig())

	got, ok := f.Format(domain.RawEvent{Text: "@everyone raid now", Sender: "Raider"})
	if !ok {
		t.Fatal("Format() ok = false")
	}
	if strings.Contains(got, "@everyone") {
		t.Errorf("Format() = %q still contains a live mention", got)
	}
	if !strings.Contains(got, "@\u200beveryone raid now") {
		t.Errorf("Format() = %q, want neutralized text preserved", got)
	}
}

func TestNeutralizeMentions(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"@here look", "@\u200bhere look"},
		{"ping <@123>", "ping <@\u200b123>"},
		{"ping <@!123>", "ping <@\u200b!123>"},
		{"role <@&42>", "role <@\u200b&42>"},
		{"mail me at bob@example.com", "mail me at bob@example.com"},
		{"@everyone and @here", "@\u200beveryone and @\u200bhere"},
		{"no mentions", "no mentions"},
	}

	for _, tt := range tests {
		if got := NeutralizeMentions(tt.in); got != tt.want {
			t.Errorf("NeutralizeMentions(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidTimestampStyle(t *testing.T) {
	for _, s := range []string{"", "t", "T", "d", "D", "f", "F", "R"} {
		if !ValidTimestampStyle(s) {
			t.Errorf("ValidTimestampStyle(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"x", "TT", "r "} {
		if ValidTimestampStyle(s) {
			t.Errorf("ValidTimestampStyle(%q) = true, want false", s)
		}
	}
}
