package generator

import (
	"context"
	"iter"
	"strings"

	"github.com/tobybranson/contexo/internal/models"
	"github.com/tobybranson/contexo/internal/services/chunker"
	"github.com/tobybranson/contexo/internal/services/structurer"
)

// Fetcher retrieves raw page content for URL generation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options tunes document generation.
type Options struct {
	MaxChunkSize int // chunker flush threshold
	ChunkOverlap int // continuity window between chunks
	BufferSize   int // line accumulation limit for raw text
}

// DefaultOptions returns the generation defaults.
func DefaultOptions() Options {
	return Options{
		MaxChunkSize: chunker.DefaultMaxSize,
		ChunkOverlap: chunker.DefaultOverlap,
		BufferSize:   2000,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = chunker.DefaultMaxSize
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 2000
	}
	return o
}

// FromURL produces a lazy, single-pass sequence of documents from one web
// page. The page is fetched and structured once per invocation; sections are
// chunked whenever a heading closes them, and each chunk is prefixed with the
// heading breadcrumb current at that point.
//
// The breadcrumb stack is seeded with the page title. A heading at level n
// truncates the stack to length n before appending its own text, so a heading
// replaces its same-level-and-deeper ancestors rather than stacking on them.
func FromURL(ctx context.Context, fetcher Fetcher, url string, opts Options) iter.Seq2[models.Document, error] {
	opts = opts.withDefaults()

	return func(yield func(models.Document, error) bool) {
		html, err := fetcher.Fetch(ctx, url)
		if err != nil {
			yield(models.Document{}, err)
			return
		}

		elements, err := structurer.Structure(html)
		if err != nil {
			yield(models.Document{}, err)
			return
		}

		var stack []string
		var section string

		flush := func() bool {
			if strings.TrimSpace(section) == "" {
				section = ""
				return true
			}
			breadcrumb := strings.Join(stack, " > ")
			for chunk := range chunker.Split(section, opts.MaxChunkSize, opts.ChunkOverlap) {
				doc := models.Document{
					Content:  breadcrumb + " => " + chunk,
					Metadata: models.Metadata{Source: url},
				}
				if !yield(doc, nil) {
					return false
				}
			}
			section = ""
			return true
		}

		for el := range elements {
			if el.Tag == "title" {
				stack = []string{el.Text}
				continue
			}

			if level := structurer.HeadingLevel(el.Tag); level > 0 {
				// Close the current section before the breadcrumb changes.
				if !flush() {
					return
				}
				if len(stack) > level {
					stack = stack[:level]
				}
				stack = append(stack, el.Text)
				continue
			}

			if section == "" {
				section = el.Text
			} else {
				section += " " + el.Text
			}
		}

		flush()
	}
}

// FromText produces a lazy, single-pass sequence of documents from raw text.
// Trimmed non-empty lines accumulate (newline-terminated) into a buffer;
// whenever appending the next line would push the buffer past BufferSize the
// buffer is flushed through the chunker and reset to just the new line.
// Chunks carry no breadcrumb prefix and are labeled with the contributor's
// source label.
func FromText(text, label string, opts Options) iter.Seq[models.Document] {
	opts = opts.withDefaults()

	return func(yield func(models.Document) bool) {
		flush := func(buffer string) bool {
			for chunk := range chunker.Split(buffer, opts.MaxChunkSize, opts.ChunkOverlap) {
				doc := models.Document{
					Content:  chunk,
					Metadata: models.Metadata{Source: label},
				}
				if !yield(doc) {
					return false
				}
			}
			return true
		}

		var buffer string
		for line := range strings.Lines(text) {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			line += "\n"

			if buffer != "" && len(buffer)+len(line) > opts.BufferSize {
				if !flush(buffer) {
					return
				}
				buffer = line
			} else {
				buffer += line
			}
		}

		if buffer != "" {
			flush(buffer)
		}
	}
}
