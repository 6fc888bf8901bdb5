package compressor

import (
	"time"
)

// DefaultFileName is used when the source path has no file name component.
const DefaultFileName = "compressor_default.jpg"

// Request holds everything needed to compress one image independently.
type Request struct {
	SourcePath string
	TargetDir  string
	Scale      Scale
	Quality    Quality
}

// CompressionResult describes the result of compressing a single file.
type CompressionResult struct {
	InputPath      string
	OutputPath     string
	OriginalWidth  int
	OriginalHeight int
	Width          int
	Height         int
	OriginalSize   int64
	CompressedSize int64
	Action         string
	Message        string
	Success        bool
	StartedAt      time.Time
	FinishedAt     time.Time
	Error          error
}

// Compressor defines the interface for image compression.
type Compressor interface {
	// CompressOne processes a single request. It never panics on bad input;
	// failures are reported through the result.
	CompressOne(req Request) CompressionResult

	// CompressMany processes every request in order and returns how many
	// of them were saved successfully.
	CompressMany(reqs []Request) int
}

// BuildRequest combines the batch settings with one source path.
func BuildRequest(quality Quality, scale Scale, sourcePath, targetDir string) Request {
	return Request{
		SourcePath: sourcePath,
		TargetDir:  targetDir,
		Scale:      scale,
		Quality:    quality,
	}
}
