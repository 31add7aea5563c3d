package documents

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 256
	DefaultChunkOverlap = 0
	DefaultSeparator    = "\n\n"
)

// Splitter cuts text on a separator and greedily merges the pieces into
// chunks of at most ChunkSize characters, carrying up to ChunkOverlap
// characters of trailing pieces into the next chunk.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

// NewSplitter returns a splitter with the default separator. Non-positive
// sizes fall back to the defaults and the overlap is capped below the size.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap, Separator: DefaultSeparator}
}

// Split returns the chunks of text in order. Empty input yields no chunks.
func (s *Splitter) Split(text string) []string {
	var pieces []string
	for _, p := range strings.Split(text, s.Separator) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if runeLen(p) > s.ChunkSize {
			pieces = append(pieces, s.splitWords(p)...)
			continue
		}
		pieces = append(pieces, p)
	}
	return s.merge(pieces)
}

// merge packs pieces into chunks joined by the separator.
func (s *Splitter) merge(pieces []string) []string {
	sepLen := runeLen(s.Separator)
	var (
		chunks  []string
		current []string
		total   int
	)
	joinedLen := func(n int) int {
		if len(current) > 0 {
			return total + n + sepLen
		}
		return n
	}

	for _, p := range pieces {
		n := runeLen(p)
		if joinedLen(n) > s.ChunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, s.Separator))
			for total > s.ChunkOverlap || (joinedLen(n) > s.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		total = joinedLen(n)
		current = append(current, p)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, s.Separator))
	}
	return chunks
}

// splitWords breaks an oversized piece on whitespace. Single words longer
// than the chunk size are cut by rune count.
func (s *Splitter) splitWords(p string) []string {
	var (
		out []string
		cur strings.Builder
		n   int
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for _, w := range strings.Fields(p) {
		for runeLen(w) > s.ChunkSize {
			flush()
			head, tail := cutRunes(w, s.ChunkSize)
			out = append(out, head)
			w = tail
		}
		wl := runeLen(w)
		if n > 0 && n+1+wl > s.ChunkSize {
			flush()
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(w)
		n += wl
	}
	flush()
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func cutRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}
