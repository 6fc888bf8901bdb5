package main

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"image-compressor-go/internal/config"

	"github.com/disintegration/imaging"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with a file-less, quiet logging config and
// returns what it printed to stdout. Flag state is reset between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.Flags().VisitAll(reset)
	rootCmd.PersistentFlags().VisitAll(reset)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: error\n  file_path: \"\"\n"), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return out.String(), err
}

func writeJPEG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(imaging.New(width, height, color.White), path))
	return path
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitPartial, exitCode(fmt.Errorf("%w: 1 of 3 failed", errPartialFailure)))
	assert.Equal(t, exitConfigError, exitCode(&config.ValidationError{Field: "scale.dimension", Message: "bad"}))
	assert.Equal(t, exitConfigError, exitCode(fmt.Errorf("wrapped: %w", &config.ValidationError{Field: "quality"})))
	assert.Equal(t, exitPartial, exitCode(errors.New("boom")))
}

func TestCompressFiles(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "small")
	a := writeJPEG(t, src, "a.jpg", 40, 20)
	b := writeJPEG(t, src, "b.jpeg", 10, 10)

	stdout, err := execute(t, "-o", out, "-d", "8x6", "-q", "best", a, b)

	require.NoError(t, err)
	assert.Equal(t, exitOK, exitCode(err))
	assert.Equal(t, "Successfully saved 2 images\n", stdout)

	img, err := imaging.Open(filepath.Join(out, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
	assert.FileExists(t, filepath.Join(out, "b.jpeg"))
}

func TestCompressInputDirectory(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "small")
	writeJPEG(t, src, "a.jpg", 40, 20)
	writeJPEG(t, src, "skip.png", 40, 20)

	stdout, err := execute(t, "-i", src, "-o", out, "-r", "0.5")

	require.NoError(t, err)
	assert.Equal(t, "Successfully saved 1 images\n", stdout)
	assert.FileExists(t, filepath.Join(out, "a.jpg"))
	assert.NoFileExists(t, filepath.Join(out, "skip.png"))
}

func TestCompressPartialFailure(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "small")
	good := writeJPEG(t, src, "good.jpg", 20, 20)
	broken := filepath.Join(src, "broken.jpg")
	require.NoError(t, os.WriteFile(broken, []byte("not a jpeg"), 0644))

	stdout, err := execute(t, "-o", out, "-r", "0.5", broken, good)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errPartialFailure))
	assert.Equal(t, exitPartial, exitCode(err))
	assert.Equal(t, "Successfully saved 1 images\n", stdout)
	assert.FileExists(t, filepath.Join(out, "good.jpg"))
}

func TestConfigErrors(t *testing.T) {
	src := t.TempDir()
	a := writeJPEG(t, src, "a.jpg", 4, 4)

	tests := []struct {
		name string
		args []string
	}{
		{"invalid dimension", []string{"-d", "abcx100", "-i", src}},
		{"zero dimension", []string{"-d", "0x10", a}},
		{"files and input dir", []string{"-i", src, a}},
		{"ratio and dimension", []string{"-r", "0.5", "-d", "10x10", a}},
		{"zero ratio", []string{"-r", "0", a}},
		{"nan ratio", []string{"-r", "NaN", a}},
		{"non numeric ratio", []string{"-r", "half", a}},
		{"invalid quality", []string{"-q", "ultra", a}},
		{"unknown flag", []string{"--nope", a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "small")
			stdout, err := execute(t, append([]string{"-o", out}, tt.args...)...)

			require.Error(t, err)
			assert.Equal(t, exitConfigError, exitCode(err))
			assert.Empty(t, stdout)
			assert.NoDirExists(t, out)
		})
	}
}
