package app

import "strings"

// ChannelFilter admits events from an allow-list of channels.
// An empty list admits everything.
type ChannelFilter struct {
	allowed  map[string]struct{}
	channels []string
}

// NewChannelFilter builds a filter; blank entries are ignored.
func NewChannelFilter(channels []string) *ChannelFilter {
	f := &ChannelFilter{allowed: make(map[string]struct{}, len(channels))}
	for _, ch := range channels {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			continue
		}
		if _, dup := f.allowed[ch]; dup {
			continue
		}
		f.allowed[ch] = struct{}{}
		f.channels = append(f.channels, ch)
	}
	return f
}

// Allow reports whether events from channel should be relayed.
func (f *ChannelFilter) Allow(channel string) bool {
	if len(f.allowed) == 0 {
		return true
	}
	_, ok := f.allowed[channel]
	return ok
}

// Channels returns the allow-list in configuration order.
func (f *ChannelFilter) Channels() []string {
	return append([]string(nil), f.channels...)
}
