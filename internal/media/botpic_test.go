package media

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func savePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 40, G: 120, B: 200, A: 255})
	path := filepath.Join(dir, "src.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestPrepareBotpicSquaresImage(t *testing.T) {
	dir := t.TempDir()
	src := savePNG(t, dir, 1024, 512)

	dst, err := PrepareBotpic(src, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "src_botpic.png"), dst)

	out, err := imaging.Open(dst)
	require.NoError(t, err)
	assert.Equal(t, botpicSide, out.Bounds().Dx())
	assert.Equal(t, botpicSide, out.Bounds().Dy())
}

func TestPrepareBotpicRejectsTinySource(t *testing.T) {
	dir := t.TempDir()
	src := savePNG(t, dir, 64, 64)

	_, err := PrepareBotpic(src, dir)
	assert.Error(t, err)
}

func TestPrepareBotpicMissingFile(t *testing.T) {
	_, err := PrepareBotpic(filepath.Join(t.TempDir(), "nope.png"), t.TempDir())
	assert.Error(t, err)
}
