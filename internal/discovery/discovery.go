package discovery

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"image-compressor-go/internal/statistics"

	"github.com/sirupsen/logrus"
)

// Suffixes accepted by FindImages. Matching is case-sensitive.
var Suffixes = []string{"JPG", "jpg", "jpeg"}

const readBatch = 64

// Finder lists JPEG files in a single directory.
type Finder struct {
	logger *logrus.Logger
	stats  *statistics.Statistics
}

// NewFinder returns a new Finder.
func NewFinder(logger *logrus.Logger, stats *statistics.Statistics) *Finder {
	return &Finder{logger: logger, stats: stats}
}

// FindImages returns the JPEG files directly inside dir without descending
// into subdirectories. Paths come back in directory enumeration order.
// Problems are logged and never returned: an unusable dir yields an empty slice.
func (f *Finder) FindImages(dir string) []string {
	result := []string{}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		f.logger.Warnf("Directory %s is no directory, abort.", dir)
		return result
	}

	d, err := os.Open(dir)
	if err != nil {
		f.logger.Errorf("Cannot read dir %s: %v", dir, err)
		return result
	}
	defer d.Close()

	for {
		entries, err := d.ReadDir(readBatch)
		for _, entry := range entries {
			if path, ok := f.accept(dir, entry.Name()); ok {
				result = append(result, path)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			f.logger.Errorf("Cannot access entries of %s: %v", dir, err)
			break
		}
	}

	return result
}

// accept decides whether a directory entry is a JPEG file to compress.
func (f *Finder) accept(dir, name string) (string, bool) {
	f.stats.IncrementEntriesScanned()
	path := filepath.Join(dir, name)

	if !utf8.ValidString(name) {
		f.logger.Warnf("Illegal characters in file name: %q", path)
		f.stats.IncrementEntriesSkipped()
		return "", false
	}

	if !HasImageSuffix(name) {
		f.logger.Debugf("Skipping %s due to wrong file ending.", name)
		f.stats.IncrementEntriesSkipped()
		return "", false
	}

	f.logger.Infof("Found %s", path)
	f.stats.IncrementImagesFound()
	return path, true
}

// HasImageSuffix reports whether name ends with one of the accepted suffixes.
func HasImageSuffix(name string) bool {
	for _, suffix := range Suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
