package batch

import (
	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/discovery"
	"image-compressor-go/internal/logger"
	"image-compressor-go/internal/statistics"

	"github.com/sirupsen/logrus"
)

// Job describes one batch: either an explicit file list or a directory to scan.
type Job struct {
	Files           []string
	InputDirectory  string
	OutputDirectory string
	Scale           compressor.Scale
	Quality         compressor.Quality
}

// Summary is the outcome of a batch.
type Summary struct {
	Requested int
	Saved     int
}

// Failed returns the number of requests that did not produce an image.
func (s Summary) Failed() int {
	return s.Requested - s.Saved
}

// Runner turns jobs into compression requests and runs them one after another.
type Runner struct {
	logger     *logrus.Logger
	stats      *statistics.Statistics
	finder     *discovery.Finder
	compressor compressor.Compressor
}

// NewRunner returns a new Runner.
func NewRunner(
	logger *logrus.Logger,
	stats *statistics.Statistics,
	finder *discovery.Finder,
	comp compressor.Compressor,
) *Runner {
	return &Runner{
		logger:     logger,
		stats:      stats,
		finder:     finder,
		compressor: comp,
	}
}

// Run executes the job and returns how many images were saved.
func (r *Runner) Run(job Job) Summary {
	log := logger.WithOperation(r.logger, "compress")

	paths := job.Files
	if len(paths) == 0 {
		dir := job.InputDirectory
		if dir == "" {
			dir = "."
		}
		log.Infof("Using input dir: %s", dir)
		paths = r.finder.FindImages(dir)
	}

	if len(paths) == 0 {
		log.Info("No images found to compress")
		r.stats.Finalize()
		return Summary{}
	}

	reqs := make([]compressor.Request, 0, len(paths))
	for _, path := range paths {
		log.Debugf("Using file: %s", path)
		reqs = append(reqs, compressor.BuildRequest(job.Quality, job.Scale, path, job.OutputDirectory))
	}
	log.Infof("Saving %d images to %s (scale %s, quality %s)",
		len(reqs), job.OutputDirectory, job.Scale, job.Quality)

	saved := r.compressor.CompressMany(reqs)

	r.stats.Finalize()
	log.Infof("Compression completed: %d of %d images saved", saved, len(reqs))
	return Summary{Requested: len(reqs), Saved: saved}
}
