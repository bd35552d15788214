package chunker_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sethyshola20/T-itw/pkg/chunker"
)

func TestSplitRepeatedText(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{Size: 500, Overlap: 20})

	chunks := c.Chunks("doc-1", strings.Repeat("A", 1200))
	require.Len(t, chunks, 3)

	var lengths, offsets []int
	for _, ch := range chunks {
		lengths = append(lengths, len(ch.Text))
		offsets = append(offsets, ch.Offset)
		assert.Equal(t, "doc-1", ch.DocumentID)
	}
	assert.Equal(t, []int{500, 500, 220}, lengths)
	assert.Equal(t, []int{0, 480, 960}, offsets)
	assert.Equal(t, []int{0, 1, 2}, []int{chunks[0].Index, chunks[1].Index, chunks[2].Index})
}

func TestSplitEmpty(t *testing.T) {
	c := chunker.New()

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split(" \n\t  "))
}

func TestSplitShortText(t *testing.T) {
	c := chunker.New()

	chunks := c.Split("  load   rating\n of the\tbeam ")
	assert.Equal(t, []string{"load rating of the beam"}, chunks)
}

func TestSplitCoverageAndOverlap(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		length  int
	}{
		{"exact multiple", 100, 10, 280},
		{"ragged tail", 50, 5, 333},
		{"no overlap", 64, 0, 1000},
		{"large overlap", 10, 9, 57},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := chunker.NewWithConfig(chunker.ChunkerConfig{Size: tt.size, Overlap: tt.overlap})
			text := sampleText(tt.length)

			chunks := c.Chunks("d", text)
			require.NotEmpty(t, chunks)

			var rebuilt strings.Builder
			rebuilt.WriteString(chunks[0].Text)
			for i := 1; i < len(chunks); i++ {
				prev, cur := chunks[i-1], chunks[i]
				overlap := prev.Offset + len(prev.Text) - cur.Offset
				assert.Equal(t, tt.overlap, overlap, "chunk %d", i)
				assert.Equal(t, prev.Text[len(prev.Text)-overlap:], cur.Text[:overlap])
				rebuilt.WriteString(cur.Text[overlap:])
			}
			assert.Equal(t, text, rebuilt.String())

			if tt.length > tt.size {
				want := int(math.Ceil(float64(tt.length-tt.overlap) / float64(tt.size-tt.overlap)))
				assert.Len(t, chunks, want)
			}
		})
	}
}

func TestSplitDeterministic(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{Size: 40, Overlap: 8})
	text := sampleText(500)

	assert.Equal(t, c.Split(text), c.Split(text))
}

func TestNewWithConfigGuardsOverlap(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{Size: 10, Overlap: 25})
	assert.Less(t, c.Config().Overlap, c.Config().Size)

	chunks := c.Split(strings.Repeat("x", 30))
	assert.Len(t, chunks, 21)
}

func TestSplitMultibyte(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{Size: 4, Overlap: 1})

	chunks := c.Split("éèêëēė")
	assert.Equal(t, []string{"éèêë", "ëēė"}, chunks)
}

func sampleText(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[i%len(alphabet)])
	}
	return b.String()
}
