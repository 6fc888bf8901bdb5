package metadata

import (
	"fmt"

	"github.com/barasher/go-exiftool"
	"github.com/sirupsen/logrus"
)

// Software is written into the Software tag of every output carrying metadata.
const Software = "image-compressor-go"

// preservedTags lists the EXIF tags carried from the source to the resized copy.
// Size and file-system tags describe the source file and must not be copied.
var preservedTags = []string{
	"DateTimeOriginal",
	"CreateDate",
	"ModifyDate",
	"Make",
	"Model",
	"LensModel",
	"Artist",
	"Copyright",
	"ImageDescription",
	"ExposureTime",
	"FNumber",
	"ISO",
	"FocalLength",
	"GPSLatitude",
	"GPSLatitudeRef",
	"GPSLongitude",
	"GPSLongitudeRef",
	"GPSAltitude",
	"GPSAltitudeRef",
}

// Copier copies image metadata from one file to another.
type Copier interface {
	Copy(src, dst string) error
	Close() error
}

// ExiftoolCopier copies metadata with a long running exiftool process.
type ExiftoolCopier struct {
	et     *exiftool.Exiftool
	logger *logrus.Logger
}

// NewExiftoolCopier starts exiftool. It fails when the exiftool binary is not available.
func NewExiftoolCopier(logger *logrus.Logger) (*ExiftoolCopier, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &ExiftoolCopier{et: et, logger: logger}, nil
}

// Copy writes the preserved tags of src into dst and marks dst with Software.
func (c *ExiftoolCopier) Copy(src, dst string) error {
	files := c.et.ExtractMetadata(src)
	if len(files) == 0 {
		return fmt.Errorf("no metadata returned for %s", src)
	}
	if files[0].Err != nil {
		return fmt.Errorf("read metadata: %w", files[0].Err)
	}

	out := exiftool.EmptyFileMetadata()
	out.File = dst
	copied := 0
	for _, tag := range preservedTags {
		val, err := files[0].GetString(tag)
		if err != nil || val == "" {
			continue
		}
		out.SetString(tag, val)
		copied++
	}
	out.SetString("Software", Software)

	written := []exiftool.FileMetadata{out}
	c.et.WriteMetadata(written)
	if written[0].Err != nil {
		return fmt.Errorf("write metadata: %w", written[0].Err)
	}

	c.logger.Debugf("Copied %d metadata tags from %s to %s", copied, src, dst)
	return nil
}

// Close stops the exiftool process.
func (c *ExiftoolCopier) Close() error {
	return c.et.Close()
}
