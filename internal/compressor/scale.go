package compressor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// ScaleKind tells which variant a Scale holds.
type ScaleKind int

const (
	ScaleRatio ScaleKind = iota
	ScaleDimension
)

// Scale is either a ratio applied to both sides of the image or a fixed
// output dimension. The aspect ratio is not preserved for fixed dimensions.
type Scale struct {
	Kind   ScaleKind
	Factor float64
	Width  int
	Height int
}

// Ratio returns a Scale multiplying both image sides by factor.
func Ratio(factor float64) Scale {
	return Scale{Kind: ScaleRatio, Factor: factor}
}

// Dimension returns a Scale resizing to exactly width x height.
func Dimension(width, height int) Scale {
	return Scale{Kind: ScaleDimension, Width: width, Height: height}
}

// MaxTargetPixels bounds the pixel count of a resized image (512 MiB as NRGBA).
const MaxTargetPixels = 1 << 27

// TargetSize returns the output size for an image of the given original size.
// Ratio results are truncated towards zero and saturate at the int32 range;
// NaN yields zero.
func (s Scale) TargetSize(width, height int) (int, int) {
	if s.Kind == ScaleDimension {
		return s.Width, s.Height
	}
	return scaleSide(width, s.Factor), scaleSide(height, s.Factor)
}

func scaleSide(n int, factor float64) int {
	v := float64(n) * factor
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}

// CheckTargetSize reports whether width x height can be allocated as an image.
func CheckTargetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyTarget, width, height)
	}
	if int64(width)*int64(height) > MaxTargetPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTargetTooLarge, width, height, MaxTargetPixels)
	}
	return nil
}

// String returns the command line form of the scale.
func (s Scale) String() string {
	if s.Kind == ScaleDimension {
		return fmt.Sprintf("%dx%d", s.Width, s.Height)
	}
	return strconv.FormatFloat(s.Factor, 'g', -1, 64)
}

// ParseDimension parses a WIDTHxHEIGHT string such as "100x100".
// Both components must be positive integers.
func ParseDimension(s string) (Scale, error) {
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return Scale{}, fmt.Errorf("invalid dimension %q: expected WIDTHxHEIGHT, e.g. 100x100", s)
	}

	var dims [2]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Scale{}, fmt.Errorf("invalid dimension %q: %q is not an integer", s, part)
		}
		if n <= 0 {
			return Scale{}, fmt.Errorf("invalid dimension %q: sides must be greater than zero", s)
		}
		dims[i] = n
	}

	return Dimension(dims[0], dims[1]), nil
}

// Quality selects the resampling filter, trading fidelity for speed.
type Quality int

const (
	Fastest Quality = iota
	Best
)

// ParseQuality parses "fastest" or "best".
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fastest":
		return Fastest, nil
	case "best":
		return Best, nil
	default:
		return Fastest, fmt.Errorf("invalid quality %q (valid: best, fastest)", s)
	}
}

// Filter returns the resampling filter for the quality level.
func (q Quality) Filter() imaging.ResampleFilter {
	if q == Best {
		return imaging.Gaussian
	}
	return imaging.NearestNeighbor
}

// String returns the string representation of the Quality.
func (q Quality) String() string {
	switch q {
	case Best:
		return "best"
	default:
		return "fastest"
	}
}
