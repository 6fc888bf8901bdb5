package statistics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Statistics contains all statistics for a compression run.
type Statistics struct {
	EntriesScanned int64
	ImagesFound    int64
	EntriesSkipped int64

	RequestsProcessed int64
	ImagesSaved       int64
	ImagesFailed      int64
	DecodeErrors      int64
	ResizeErrors      int64
	SaveErrors        int64
	TargetErrors      int64
	MetadataWarnings  int64

	DirectoriesCreated int64

	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
	ImagesPerSecond float64
	BytesRead       int64
	BytesWritten    int64

	Errors []StatError

	mutex sync.RWMutex
}

// StatError represents an error that occurred during processing.
type StatError struct {
	FilePath  string
	Operation string
	Error     string
	Timestamp time.Time
}

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
		Errors:    make([]StatError, 0),
	}
}

// IncrementEntriesScanned increases the count of listed directory entries by 1.
func (s *Statistics) IncrementEntriesScanned() {
	atomic.AddInt64(&s.EntriesScanned, 1)
}

// IncrementImagesFound increases the count of discovered images by 1.
func (s *Statistics) IncrementImagesFound() {
	atomic.AddInt64(&s.ImagesFound, 1)
}

// IncrementEntriesSkipped increases the count of skipped directory entries by 1.
func (s *Statistics) IncrementEntriesSkipped() {
	atomic.AddInt64(&s.EntriesSkipped, 1)
}

// IncrementRequestsProcessed increases the count of processed requests by 1.
func (s *Statistics) IncrementRequestsProcessed() {
	atomic.AddInt64(&s.RequestsProcessed, 1)
}

// IncrementImagesSaved increases the count of saved images by 1.
func (s *Statistics) IncrementImagesSaved() {
	atomic.AddInt64(&s.ImagesSaved, 1)
}

// IncrementImagesFailed increases the count of failed requests by 1.
func (s *Statistics) IncrementImagesFailed() {
	atomic.AddInt64(&s.ImagesFailed, 1)
}

// IncrementDecodeErrors increases the count of decode failures by 1.
func (s *Statistics) IncrementDecodeErrors() {
	atomic.AddInt64(&s.DecodeErrors, 1)
}

// IncrementResizeErrors increases the count of degenerate resize targets by 1.
func (s *Statistics) IncrementResizeErrors() {
	atomic.AddInt64(&s.ResizeErrors, 1)
}

// IncrementSaveErrors increases the count of save failures by 1.
func (s *Statistics) IncrementSaveErrors() {
	atomic.AddInt64(&s.SaveErrors, 1)
}

// IncrementTargetErrors increases the count of unusable target directories by 1.
func (s *Statistics) IncrementTargetErrors() {
	atomic.AddInt64(&s.TargetErrors, 1)
}

// IncrementMetadataWarnings increases the count of failed metadata copies by 1.
func (s *Statistics) IncrementMetadataWarnings() {
	atomic.AddInt64(&s.MetadataWarnings, 1)
}

// IncrementDirectoriesCreated increases the count of created directories by 1.
func (s *Statistics) IncrementDirectoriesCreated() {
	atomic.AddInt64(&s.DirectoriesCreated, 1)
}

// AddBytesRead adds the size of a source file.
func (s *Statistics) AddBytesRead(bytes int64) {
	atomic.AddInt64(&s.BytesRead, bytes)
}

// AddBytesWritten adds the size of a written output file.
func (s *Statistics) AddBytesWritten(bytes int64) {
	atomic.AddInt64(&s.BytesWritten, bytes)
}

// Finalize calculates duration and throughput.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	processed := atomic.LoadInt64(&s.RequestsProcessed)
	if s.Duration.Seconds() > 0 {
		s.ImagesPerSecond = float64(processed) / s.Duration.Seconds()
	}
}

// AddError records an error that occurred during processing.
func (s *Statistics) AddError(filePath, operation, errorMsg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Errors = append(s.Errors, StatError{
		FilePath:  filePath,
		Operation: operation,
		Error:     errorMsg,
		Timestamp: time.Now(),
	})
}

// GetSummary returns a formatted summary of all statistics.
func (s *Statistics) GetSummary() string {
	s.mutex.RLock()
	duration := s.Duration
	perSecond := s.ImagesPerSecond
	s.mutex.RUnlock()

	return fmt.Sprintf(`Compressor Statistics Summary:

Discovery:
		Entries Scanned: %d
		Images Found: %d
		Entries Skipped: %d

Images:
		Processed: %d
		Saved: %d
		Failed: %d
		Decode Errors: %d
		Resize Errors: %d
		Save Errors: %d
		Target Errors: %d
		Metadata Warnings: %d

Performance:
		Duration: %v
		Images/Second: %.2f
		Bytes Read: %s
		Bytes Written: %s

Directories:
		Created: %d`,
		atomic.LoadInt64(&s.EntriesScanned),
		atomic.LoadInt64(&s.ImagesFound),
		atomic.LoadInt64(&s.EntriesSkipped),
		atomic.LoadInt64(&s.RequestsProcessed),
		atomic.LoadInt64(&s.ImagesSaved),
		atomic.LoadInt64(&s.ImagesFailed),
		atomic.LoadInt64(&s.DecodeErrors),
		atomic.LoadInt64(&s.ResizeErrors),
		atomic.LoadInt64(&s.SaveErrors),
		atomic.LoadInt64(&s.TargetErrors),
		atomic.LoadInt64(&s.MetadataWarnings),
		duration,
		perSecond,
		formatBytes(atomic.LoadInt64(&s.BytesRead)),
		formatBytes(atomic.LoadInt64(&s.BytesWritten)),
		atomic.LoadInt64(&s.DirectoriesCreated))
}

// GetErrorSummary returns a summary of errors that occurred during processing.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.Errors) == 0 {
		return "No errors occurred during processing"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(s.Errors))
	for i, err := range s.Errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(s.Errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.FilePath,
			err.Error)
	}
	return result
}

// Snapshot returns the counters as a map suitable for JSON output.
func (s *Statistics) Snapshot() map[string]interface{} {
	s.mutex.RLock()
	errCount := len(s.Errors)
	duration := s.Duration
	s.mutex.RUnlock()

	return map[string]interface{}{
		"images_found":        atomic.LoadInt64(&s.ImagesFound),
		"entries_skipped":     atomic.LoadInt64(&s.EntriesSkipped),
		"requests_processed":  atomic.LoadInt64(&s.RequestsProcessed),
		"images_saved":        atomic.LoadInt64(&s.ImagesSaved),
		"images_failed":       atomic.LoadInt64(&s.ImagesFailed),
		"directories_created": atomic.LoadInt64(&s.DirectoriesCreated),
		"bytes_read":          atomic.LoadInt64(&s.BytesRead),
		"bytes_written":       atomic.LoadInt64(&s.BytesWritten),
		"errors":              errCount,
		"duration":            duration.String(),
	}
}

// formatBytes returns a human-readable string for a byte count.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// GetImagesSaved returns the number of images saved.
func (s *Statistics) GetImagesSaved() int64 {
	return atomic.LoadInt64(&s.ImagesSaved)
}

// GetImagesFailed returns the number of failed requests.
func (s *Statistics) GetImagesFailed() int64 {
	return atomic.LoadInt64(&s.ImagesFailed)
}

// GetDuration returns the total duration of the run.
func (s *Statistics) GetDuration() time.Duration {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Duration
}
