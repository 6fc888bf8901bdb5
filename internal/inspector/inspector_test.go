package inspector

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/logger"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectWithoutEXIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jpg")
	require.NoError(t, imaging.Save(imaging.New(300, 120, color.White), path))

	report, err := NewInspector(logger.Discard()).Inspect(path, compressor.Ratio(0.5))
	require.NoError(t, err)

	assert.Equal(t, "jpeg", report.Format)
	assert.Equal(t, 300, report.Width)
	assert.Equal(t, 120, report.Height)
	assert.Equal(t, 150, report.TargetWidth)
	assert.Equal(t, 60, report.TargetHeight)
	assert.False(t, report.HasEXIF)
	assert.Nil(t, report.DateTime)
	assert.Positive(t, report.Size)
	assert.Contains(t, report.String(), "Target: 150x60")
	assert.Contains(t, report.String(), "EXIF: none")
}

func TestInspectFixedDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.png")
	require.NoError(t, imaging.Save(imaging.New(10, 10, color.Black), path))

	report, err := NewInspector(logger.Discard()).Inspect(path, compressor.Dimension(64, 32))
	require.NoError(t, err)

	assert.Equal(t, "png", report.Format)
	assert.Equal(t, 64, report.TargetWidth)
	assert.Equal(t, 32, report.TargetHeight)
}

func TestInspectErrors(t *testing.T) {
	dir := t.TempDir()
	inspector := NewInspector(logger.Discard())

	_, err := inspector.Inspect(filepath.Join(dir, "missing.jpg"), compressor.Ratio(1))
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(broken, []byte("nope"), 0644))
	_, err = inspector.Inspect(broken, compressor.Ratio(1))
	assert.Error(t, err)
}
