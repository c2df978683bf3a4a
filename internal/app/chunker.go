package app

import (
	"strings"
	"unicode/utf8"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
)

const truncationMarker = "..."

// Chunk is one outbound payload: an ordered run of messages joined by newlines.
type Chunk struct {
	Messages []domain.Message
	Text     string

	// Truncated is set when a single oversized message was cut to fit.
	Truncated bool
}

// Chunker packs messages greedily into payloads without reordering them.
type Chunker struct {
	packLength int
	maxLength  int
	maxEntries int
}

// NewChunker creates a chunker. Lengths are measured in characters.
// packLength bounds a chunk of several messages and sits below the hard
// maxLength so the username prefix Discord adds never tips a full batch over
// the limit; zero or a value above maxLength packs to maxLength. maxEntries
// caps the number of messages per chunk (0 means no cap).
func NewChunker(packLength, maxLength, maxEntries int) *Chunker {
	if packLength <= 0 || packLength > maxLength {
		packLength = maxLength
	}
	return &Chunker{packLength: packLength, maxLength: maxLength, maxEntries: maxEntries}
}

// Split groups msgs into chunks. Each line costs its length plus one for the
// separator; a new chunk starts when the next line would push the running cost
// past packLength or the chunk already holds maxEntries messages. A message
// longer than packLength travels alone, and one longer than maxLength becomes
// a single truncated chunk.
func (c *Chunker) Split(msgs []domain.Message) []Chunk {
	var (
		chunks []Chunk
		cur    []domain.Message
		lines  []string
		cost   int
	)

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, Chunk{Messages: cur, Text: strings.Join(lines, "\n")})
		cur, lines, cost = nil, nil, 0
	}

	for _, m := range msgs {
		n := utf8.RuneCountInString(m.Text)

		if n > c.maxLength {
			flush()
			chunks = append(chunks, Chunk{
				Messages:  []domain.Message{m},
				Text:      truncate(m.Text, c.maxLength),
				Truncated: true,
			})
			continue
		}

		full := c.maxEntries > 0 && len(cur) >= c.maxEntries
		if len(cur) > 0 && (cost+n+1 > c.packLength || full) {
			flush()
		}

		cur = append(cur, m)
		lines = append(lines, m.Text)
		cost += n + 1
	}
	flush()

	return chunks
}

// truncate cuts s to at most max characters, ending with a marker when room allows.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(truncationMarker) {
		return string(runes[:max])
	}
	return string(runes[:max-len(truncationMarker)]) + truncationMarker
}
