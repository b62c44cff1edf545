package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(text string, maxSize, overlap int) []string {
	var chunks []string
	for chunk := range Split(text, maxSize, overlap) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestSplitEmptyInput(t *testing.T) {
	assert.Empty(t, collect("", 100, 20))
	assert.Empty(t, collect("   \n\t  ", 100, 20))
}

func TestSplitSingleSentenceFitsInOneChunk(t *testing.T) {
	chunks := collect("The quick brown fox jumps over the lazy dog.", 100, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", chunks[0])
}

func TestSplitEveryWordSurvives(t *testing.T) {
	text := "Alpha beta gamma. Delta epsilon zeta eta. Theta iota kappa lambda. Mu nu xi omicron pi."
	chunks := collect(text, 40, 10)
	require.NotEmpty(t, chunks)

	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(strings.NewReplacer(".", "").Replace(text)) {
		assert.Contains(t, joined, word)
	}
}

func TestSplitRespectsMaxSize(t *testing.T) {
	text := strings.Repeat("Sentences accumulate until the buffer would overflow. ", 40)
	for _, chunk := range collect(text, 120, 30) {
		assert.LessOrEqual(t, len(chunk), 120, "chunk exceeds max size: %q", chunk)
	}
}

func TestSplitPreservesInputOrder(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third sentence arrives. Fourth sentence closes."
	chunks := collect(text, 50, 0)
	require.GreaterOrEqual(t, len(chunks), 2)

	// With zero overlap each ordinal appears exactly once, in input order.
	joined := strings.Join(chunks, " ")
	first := strings.Index(joined, "First")
	second := strings.Index(joined, "Second")
	third := strings.Index(joined, "Third")
	fourth := strings.Index(joined, "Fourth")
	assert.True(t, first < second && second < third && third < fourth)
}

func TestSplitConsecutiveChunksOverlap(t *testing.T) {
	text := "One two three four five six seven. Eight nine ten eleven twelve thirteen. Fourteen fifteen sixteen seventeen eighteen."
	chunks := collect(text, 60, 20)
	require.GreaterOrEqual(t, len(chunks), 2)

	// The tail words of each flushed chunk reappear at the head of the next.
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		firstWord := strings.Fields(chunks[i])[0]
		assert.Contains(t, prevWords, firstWord,
			"chunk %d does not start inside the tail of chunk %d", i, i-1)
	}
}

func TestSplitOverlapClampedBelowMaxSize(t *testing.T) {
	// An overlap as large as maxSize must not loop forever or swallow chunks.
	text := strings.Repeat("word ", 100)
	chunks := collect(text, 50, 50)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 50)
	}
}

func TestSplitHardSplitsOversizeUnit(t *testing.T) {
	// One sentence far beyond maxSize, splittable at spaces.
	long := "start " + strings.Repeat("filler ", 60) + "end."
	chunks := collect(long, 80, 10)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 80)
	}
	assert.Contains(t, chunks[0], "start")
	assert.Contains(t, chunks[len(chunks)-1], "end.")
}

func TestSplitIndivisibleTokenEmittedWhole(t *testing.T) {
	token := strings.Repeat("x", 70)
	chunks := collect(token, 50, 10)
	require.NotEmpty(t, chunks)
	// No space to cut at: the token splits at the byte limit instead.
	assert.Equal(t, strings.Repeat("x", 50), chunks[0])
	assert.Equal(t, strings.Repeat("x", 20), chunks[1])
}

func TestSplitZeroOverlapNoDuplication(t *testing.T) {
	text := "Aardvark sentence one. Badger sentence two. Cheetah sentence three."
	joined := strings.Join(collect(text, 30, 0), " ")
	assert.Equal(t, 1, strings.Count(joined, "Aardvark"))
	assert.Equal(t, 1, strings.Count(joined, "Badger"))
	assert.Equal(t, 1, strings.Count(joined, "Cheetah"))
}

func TestSplitLazyStopsOnBreak(t *testing.T) {
	text := strings.Repeat("A sentence that keeps going. ", 50)
	count := 0
	for range Split(text, 40, 10) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}
