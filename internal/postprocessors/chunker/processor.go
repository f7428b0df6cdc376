// Package chunker splits document text into overlapping, sentence-aware chunks.
package chunker

import "strings"

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// boundaryThreshold is the fraction of a window that must precede a sentence
// terminator before the window is shortened to end on it.
const boundaryThreshold = 0.7

// Processor splits text into chunks of at most chunkSize characters.
// Consecutive chunks share overlap characters.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Split divides text into chunks.
//
// Text no longer than the chunk size is returned as a single chunk, unchanged.
// Otherwise a window of chunkSize characters is slid across the text. When a
// '.', '?' or '!' occurs late enough in the window, the window is shortened to
// end just after it. Each chunk is trimmed and empty chunks are dropped. The
// next window starts overlap characters before the previous window's end.
//
// Positions are counted in runes so multi-byte text is never split mid-character.
func (p *Processor) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n <= p.chunkSize {
		return []string{text}
	}

	minBoundary := float64(p.chunkSize) * boundaryThreshold
	chunks := make([]string, 0, n/(p.chunkSize-p.overlap)+1)

	start := 0
	for start < n {
		end := start + p.chunkSize
		if end < n {
			if best := lastTerminator(runes, end); best >= 0 && float64(best) > float64(start)+minBoundary {
				end = best + 1
			}
		}
		if end > n {
			end = n
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		// A window reaching the end of the text covers everything left.
		if end >= n {
			break
		}

		next := end - p.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// lastTerminator returns the index of the last sentence terminator at or
// before pos, or -1.
func lastTerminator(runes []rune, pos int) int {
	if pos >= len(runes) {
		pos = len(runes) - 1
	}
	for i := pos; i >= 0; i-- {
		switch runes[i] {
		case '.', '?', '!':
			return i
		}
	}
	return -1
}
