package og

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

func TestGenerate(t *testing.T) {
	for _, title := range []string{"Hello, cabin", "", strings.Repeat("a very long title ", 30)} {
		data, err := Generate(title, "kumagoya")
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, Width, img.Bounds().Dx())
		assert.Equal(t, Height, img.Bounds().Dy())
	}
}

func TestWrap(t *testing.T) {
	f, err := loadFaces()
	require.NoError(t, err)
	d := &font.Drawer{Face: f.title}
	width := Width - 2*margin

	lines := wrap(d, "short", width)
	assert.Equal(t, []string{"short"}, lines)

	lines = wrap(d, strings.Repeat("word ", 60), width)
	assert.Len(t, lines, maxLines)
	assert.True(t, strings.HasSuffix(lines[maxLines-1], "…"))
	for _, l := range lines {
		assert.LessOrEqual(t, d.MeasureString(l), fixed.I(width))
		assert.NotContains(t, l, "  ")
	}

	lines = wrap(d, strings.Repeat("x", 200), width)
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.LessOrEqual(t, d.MeasureString(l), fixed.I(width))
	}
}
