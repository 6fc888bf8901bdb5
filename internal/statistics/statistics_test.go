package statistics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	s := NewStatistics()
	s.IncrementImagesFound()
	s.IncrementImagesFound()
	s.IncrementEntriesSkipped()
	s.IncrementRequestsProcessed()
	s.IncrementRequestsProcessed()
	s.IncrementImagesSaved()
	s.IncrementImagesFailed()
	s.IncrementDecodeErrors()
	s.AddBytesRead(2048)
	s.AddBytesWritten(512)
	s.Finalize()

	assert.EqualValues(t, 2, s.ImagesFound)
	assert.EqualValues(t, 1, s.GetImagesSaved())
	assert.EqualValues(t, 1, s.GetImagesFailed())
	assert.False(t, s.EndTime.IsZero())
	assert.Equal(t, s.EndTime.Sub(s.StartTime), s.GetDuration())

	summary := s.GetSummary()
	assert.Contains(t, summary, "Images Found: 2")
	assert.Contains(t, summary, "Saved: 1")
	assert.Contains(t, summary, "Bytes Read: 2.0 KB")
	assert.Contains(t, summary, "Bytes Written: 512 B")

	snap := s.Snapshot()
	assert.EqualValues(t, 2, snap["requests_processed"])
	assert.EqualValues(t, 0, snap["errors"])
}

func TestErrorSummary(t *testing.T) {
	s := NewStatistics()
	assert.Equal(t, "No errors occurred during processing", s.GetErrorSummary())

	for i := 0; i < 12; i++ {
		s.AddError(fmt.Sprintf("img%d.jpg", i), "decode", "bad data")
	}

	summary := s.GetErrorSummary()
	assert.Contains(t, summary, "Errors (12 total)")
	assert.Contains(t, summary, "decode: img0.jpg - bad data")
	assert.Contains(t, summary, "... and 2 more errors")
	assert.NotContains(t, summary, "img11.jpg")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatBytes(0))
	assert.Equal(t, "1023 B", formatBytes(1023))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "3.0 MB", formatBytes(3*1024*1024))
}
