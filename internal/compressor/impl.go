package compressor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"image-compressor-go/internal/metadata"
	"image-compressor-go/internal/statistics"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// ErrNotDirectory is returned when the target path exists but is not a directory.
var ErrNotDirectory = errors.New("target path is not a directory")

// ErrEmptyTarget is returned when the scale produces a zero width or height.
var ErrEmptyTarget = errors.New("target size has a zero dimension")

// ErrTargetTooLarge is returned when the scale produces more than MaxTargetPixels.
var ErrTargetTooLarge = errors.New("target size is too large")

// Options tunes the encoder and optional metadata handling.
type Options struct {
	JPEGQuality int
	Metadata    metadata.Copier
}

// DefaultCompressor is the default implementation of the Compressor interface.
type DefaultCompressor struct {
	logger *logrus.Logger
	stats  *statistics.Statistics
	opts   Options
}

// NewDefaultCompressor creates a new DefaultCompressor instance.
func NewDefaultCompressor(logger *logrus.Logger, stats *statistics.Statistics, opts Options) *DefaultCompressor {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 95
	}
	return &DefaultCompressor{
		logger: logger,
		stats:  stats,
		opts:   opts,
	}
}

// CompressMany compresses all requests in order and returns the number of
// successfully saved images. A failed request never stops the batch.
func (c *DefaultCompressor) CompressMany(reqs []Request) int {
	saved := 0
	for _, req := range reqs {
		if c.CompressOne(req).Success {
			saved++
		}
	}
	return saved
}

// CompressOne compresses a single image according to its request.
func (c *DefaultCompressor) CompressOne(req Request) CompressionResult {
	res := CompressionResult{
		InputPath: req.SourcePath,
		StartedAt: time.Now(),
	}
	c.stats.IncrementRequestsProcessed()

	if err := c.prepareTargetDir(req.TargetDir); err != nil {
		return c.fail(res, "target", err)
	}

	target := TargetPath(req)
	res.OutputPath = target
	c.logger.Infof("Compressing %s to %s", req.SourcePath, target)

	if info, err := os.Stat(req.SourcePath); err == nil {
		res.OriginalSize = info.Size()
	}

	img, err := imaging.Open(req.SourcePath)
	if err != nil {
		return c.fail(res, "decode", fmt.Errorf("could not read image %s: %w", req.SourcePath, err))
	}
	c.stats.AddBytesRead(res.OriginalSize)

	bounds := img.Bounds()
	res.OriginalWidth, res.OriginalHeight = bounds.Dx(), bounds.Dy()
	res.Width, res.Height = req.Scale.TargetSize(res.OriginalWidth, res.OriginalHeight)
	if err := CheckTargetSize(res.Width, res.Height); err != nil {
		return c.fail(res, "resize", fmt.Errorf("%w (from %dx%d with scale %s)",
			err, res.OriginalWidth, res.OriginalHeight, req.Scale))
	}

	resized := imaging.Resize(img, res.Width, res.Height, req.Quality.Filter())

	if err := imaging.Save(resized, target, imaging.JPEGQuality(c.opts.JPEGQuality)); err != nil {
		return c.fail(res, "save", fmt.Errorf("error saving image to %s: %w", target, err))
	}

	if info, err := os.Stat(target); err == nil {
		res.CompressedSize = info.Size()
		c.stats.AddBytesWritten(res.CompressedSize)
	}

	if c.opts.Metadata != nil {
		if err := c.opts.Metadata.Copy(req.SourcePath, target); err != nil {
			res.Message = fmt.Sprintf("warning: metadata not copied: %v", err)
			c.stats.IncrementMetadataWarnings()
			c.logger.Warnf("Could not copy metadata from %s to %s: %v", req.SourcePath, target, err)
		}
	}

	res.Action = "compressed"
	if res.Message == "" {
		res.Message = "Image compressed"
	}
	res.Success = true
	res.FinishedAt = time.Now()
	c.stats.IncrementImagesSaved()
	c.logger.Debugf("Saved %s (%dx%d -> %dx%d)", target,
		res.OriginalWidth, res.OriginalHeight, res.Width, res.Height)
	return res
}

// TargetPath returns the output file path for a request.
func TargetPath(req Request) string {
	name := filepath.Base(req.SourcePath)
	if req.SourcePath == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		name = DefaultFileName
	}
	return filepath.Join(req.TargetDir, name)
}

// prepareTargetDir creates the target directory if it does not exist yet.
// A failed creation is only logged: saving will fail later if the directory
// is really unusable. An existing non-directory is an error.
func (c *DefaultCompressor) prepareTargetDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
		}
		return nil
	case os.IsNotExist(err):
		if err := os.Mkdir(dir, 0755); err != nil {
			c.logger.Errorf("Could not create directory %s: %v", dir, err)
			c.stats.AddError(dir, "directory_creation", err.Error())
			return nil
		}
		c.stats.IncrementDirectoriesCreated()
		c.logger.Debugf("Created directory: %s", dir)
		return nil
	default:
		c.logger.Errorf("Could not access directory %s: %v", dir, err)
		c.stats.AddError(dir, "directory_access", err.Error())
		return nil
	}
}

// fail records a failed request and returns the finished result.
func (c *DefaultCompressor) fail(res CompressionResult, operation string, err error) CompressionResult {
	res.Action = "error"
	res.Message = fmt.Sprintf("%s error: %v", operation, err)
	res.Error = err
	res.Success = false
	res.FinishedAt = time.Now()

	switch operation {
	case "decode":
		c.stats.IncrementDecodeErrors()
	case "resize":
		c.stats.IncrementResizeErrors()
	case "save":
		c.stats.IncrementSaveErrors()
	case "target":
		c.stats.IncrementTargetErrors()
	}
	c.stats.IncrementImagesFailed()
	c.stats.AddError(res.InputPath, operation, err.Error())
	c.logger.Errorf("Compression error for %s: %s", res.InputPath, res.Message)
	return res
}
