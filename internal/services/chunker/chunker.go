package chunker

import (
	"iter"
	"regexp"
	"strings"
)

const (
	// DefaultMaxSize is the chunk flush threshold in bytes.
	DefaultMaxSize = 1000
	// DefaultOverlap is the continuity window reclaimed between chunks.
	DefaultOverlap = 250
)

// unitPattern tokenizes text into sentence-like runs ending in terminal
// punctuation, falling back to whitespace-delimited tokens for trailing text
// without any.
var unitPattern = regexp.MustCompile(`[^.!?]+[.!?]+|\S+`)

// Split turns raw text into a lazy sequence of bounded, overlapping chunks.
// Sentence-like units accumulate into a buffer; when the next unit would push
// the buffer past maxSize the buffer is flushed and whole words are reclaimed
// off its end to seed the next chunk, giving consecutive chunks a continuity
// window of roughly overlap bytes. Units that alone exceed maxSize are
// hard-split at the last space before the limit.
//
// Every emitted chunk is trimmed and non-empty, never longer than maxSize
// except when a single indivisible token alone exceeds it, and output order
// preserves input order.
func Split(text string, maxSize, overlap int) iter.Seq[string] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if overlap < 0 {
		overlap = 0
	}
	// Clamped so the reclaimed window can never swallow a whole chunk.
	if overlap >= maxSize {
		overlap = maxSize - 1
	}

	return func(yield func(string) bool) {
		emit := func(chunk string) bool {
			chunk = strings.TrimSpace(chunk)
			if chunk == "" {
				return true
			}
			return yield(chunk)
		}

		var buffer string
		for _, unit := range unitPattern.FindAllString(text, -1) {
			unit = strings.TrimSpace(unit)
			if unit == "" {
				continue
			}

			if len(unit) > maxSize {
				// Flush pending buffer first so output order follows input order.
				if buffer != "" {
					if !emit(buffer) {
						return
					}
					buffer = ""
				}
				for len(unit) > maxSize {
					cut := strings.LastIndex(unit[:maxSize], " ")
					if cut <= 0 {
						cut = maxSize
					}
					if !emit(unit[:cut]) {
						return
					}
					unit = strings.TrimSpace(unit[cut:])
				}
				if unit != "" && !emit(unit) {
					return
				}
				continue
			}

			if buffer == "" {
				buffer = unit
				continue
			}

			if len(buffer)+1+len(unit) > maxSize {
				flushed := buffer
				if !emit(flushed) {
					return
				}
				seed := reclaimOverlap(flushed, unit, maxSize, overlap)
				if seed == "" {
					buffer = unit
				} else {
					buffer = seed + " " + unit
				}
			} else {
				buffer += " " + unit
			}
		}

		if buffer != "" {
			emit(buffer)
		}
	}
}

// reclaimOverlap takes whole words off the end of the flushed chunk until the
// reclaimed window reaches the requested overlap, no words remain, or adding
// another word would make the seeded buffer exceed maxSize once the next unit
// is appended.
func reclaimOverlap(flushed, next string, maxSize, overlap int) string {
	if overlap <= 0 {
		return ""
	}

	words := strings.Fields(flushed)
	var seed string
	for i := len(words) - 1; i >= 0; i-- {
		candidate := words[i]
		if seed != "" {
			candidate = candidate + " " + seed
		}
		if len(candidate)+1+len(next) > maxSize {
			break
		}
		seed = candidate
		if len(seed) >= overlap {
			break
		}
	}
	return seed
}
