package app

import (
	"reflect"
	"testing"
)

func TestChannelFilter(t *testing.T) {
	tests := []struct {
		name     string
		channels []string
		channel  string
		want     bool
	}{
		{"empty list allows all", nil, "Global", true},
		{"blank entries only allows all", []string{" ", ""}, "Local", true},
		{"listed channel", []string{"Global", "Clan"}, "Clan", true},
		{"unlisted channel", []string{"Global", "Clan"}, "Local", false},
		{"entries are trimmed", []string{" Global "}, "Global", true},
		{"match is case sensitive", []string{"Global"}, "global", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewChannelFilter(tt.channels).Allow(tt.channel); got != tt.want {
				t.Errorf("Allow(%q) = %v, want %v", tt.channel, got, tt.want)
			}
		})
	}
}

func TestChannelFilter_Channels(t *testing.T) {
	f := NewChannelFilter([]string{"Global", "", "Clan", "Global"})

	want := []string{"Global", "Clan"}
	if got := f.Channels(); !reflect.DeepEqual(got, want) {
		t.Errorf("Channels() = %v, want %v", got, want)
	}
}
