package inspector

import (
	"fmt"
	"image"
	"os"
	"time"

	// Decoders for DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/logger"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
)

// Report describes an image file and what a scale would turn it into.
type Report struct {
	Path         string
	Format       string
	Width        int
	Height       int
	Size         int64
	TargetWidth  int
	TargetHeight int

	HasEXIF     bool
	DateTime    *time.Time
	Make        string
	Model       string
	Orientation int
}

// Inspector reads image dimensions and EXIF metadata.
type Inspector struct {
	log *logrus.Logger
}

// NewInspector returns a new Inspector.
func NewInspector(log *logrus.Logger) *Inspector {
	return &Inspector{log: log}
}

// Inspect reads the header of filePath and computes the target size for scale.
// Missing EXIF data is not an error.
func (i *Inspector) Inspect(filePath string, scale compressor.Scale) (*Report, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}

	report := &Report{
		Path:   filePath,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   info.Size(),
	}
	report.TargetWidth, report.TargetHeight = scale.TargetSize(cfg.Width, cfg.Height)

	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}
	i.readEXIF(file, report)

	return report, nil
}

// readEXIF fills the EXIF fields of report, leaving them empty when absent.
func (i *Inspector) readEXIF(file *os.File, report *Report) {
	x, err := exif.Decode(file)
	if err != nil {
		logger.WithFile(i.log, report.Path).Debugf("No EXIF data: %v", err)
		return
	}
	report.HasEXIF = true

	if tm, err := x.DateTime(); err == nil {
		report.DateTime = &tm
	}
	report.Make = stringTag(x, exif.Make)
	report.Model = stringTag(x, exif.Model)

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			report.Orientation = v
		}
	}
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	val, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return val
}

// String renders the report for the console.
func (r *Report) String() string {
	out := fmt.Sprintf("File: %s\nFormat: %s\nSize: %d bytes\nDimensions: %dx%d\nTarget: %dx%d\n",
		r.Path, r.Format, r.Size, r.Width, r.Height, r.TargetWidth, r.TargetHeight)
	if !r.HasEXIF {
		return out + "EXIF: none\n"
	}
	if r.DateTime != nil {
		out += fmt.Sprintf("Date: %s\n", r.DateTime.Format("2006-01-02 15:04:05"))
	}
	if r.Make != "" || r.Model != "" {
		out += fmt.Sprintf("Camera: %s %s\n", r.Make, r.Model)
	}
	if r.Orientation != 0 {
		out += fmt.Sprintf("Orientation: %d\n", r.Orientation)
	}
	return out
}
