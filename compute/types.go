package compute

import "fmt"

// GridID is an opaque handle to a service-resident 3D grid.
type GridID uint64

// ImageID is an opaque handle to a service-resident 2D image.
type ImageID uint64

// KernelID is an opaque handle to a resolved kernel entry point.
type KernelID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Format specifies the per-cell storage format of a grid.
type Format uint32

// Grid formats.
const (
	// FormatR32Float is a single 32-bit float channel (pressure, divergence).
	FormatR32Float Format = iota + 1

	// FormatRGBA32Float is four 32-bit float channels: velocity xyz plus the
	// carried density in w.
	FormatRGBA32Float
)

// Channels returns the number of float32 channels per cell.
func (f Format) Channels() int {
	switch f {
	case FormatR32Float:
		return 1
	case FormatRGBA32Float:
		return 4
	default:
		return 0
	}
}

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatR32Float:
		return "R32Float"
	case FormatRGBA32Float:
		return "RGBA32Float"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// GridDescriptor describes a cubic grid of Resolution³ cells.
type GridDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Resolution is the edge length in cells. Must be positive.
	Resolution int

	// Format is the per-cell storage format.
	Format Format
}

// Cells returns the number of cells in the grid.
func (d GridDescriptor) Cells() int {
	return d.Resolution * d.Resolution * d.Resolution
}

// SizeInBytes returns the storage size of the grid.
func (d GridDescriptor) SizeInBytes() uint64 {
	return uint64(d.Cells()) * uint64(d.Format.Channels()) * 4
}

// Validate reports whether the descriptor can be allocated.
func (d GridDescriptor) Validate() error {
	if d.Resolution <= 0 {
		return fmt.Errorf("%w: resolution %d", ErrInvalidDescriptor, d.Resolution)
	}
	if d.Format.Channels() == 0 {
		return fmt.Errorf("%w: format %s", ErrInvalidDescriptor, d.Format)
	}
	return nil
}

// ImageDescriptor describes a 2D RGBA32Float image, the raymarch target.
type ImageDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the image dimensions in pixels.
	Width, Height int
}

// SizeInBytes returns the storage size of the image.
func (d ImageDescriptor) SizeInBytes() uint64 {
	return uint64(d.Width) * uint64(d.Height) * 4 * 4
}

// Validate reports whether the descriptor can be allocated.
func (d ImageDescriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: image size %dx%d", ErrInvalidDescriptor, d.Width, d.Height)
	}
	return nil
}
