package impostor

import (
	"fmt"
	"math"
	"runtime"
)

// Options is the immutable configuration of a Builder. It is copied into the
// builder at construction.
type Options struct {
	// NormalTolerance is the allowed dot product deviation between corner
	// normals of one face.
	NormalTolerance float64 `yaml:"normal_tolerance"`
	// PlanarityTolerance bounds |z| of a vertex in its face plane.
	PlanarityTolerance float64 `yaml:"planarity_tolerance"`
	// MaxTextureDimension caps both atlas sides.
	MaxTextureDimension int `yaml:"max_texture_dimension"`
	// AtlasWidth is the fixed atlas width, a power of two.
	AtlasWidth int `yaml:"atlas_width"`
	// Margin in pixels, used both as packing gap and as bleed ring.
	Margin int `yaml:"margin"`
	// TexelsPerFace is the pixel width given to the widest face.
	TexelsPerFace int `yaml:"texels_per_face"`
	// CameraDistanceFactor scales max(width, height) of a face into the
	// camera distance from its centre.
	CameraDistanceFactor float64 `yaml:"camera_distance_factor"`
	// MergeAngle in degrees for the coplanar merge.
	MergeAngle float64 `yaml:"merge_angle"`
	// TwoSided accepts corners whose normal is flipped, as found in concave
	// polygons.
	TwoSided bool `yaml:"two_sided"`
	// Workers computing face frames. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`
}

const (
	DefaultNormalTolerance     = 0.001
	DefaultPlanarityTolerance  = 0.01
	DefaultMaxTextureDimension = 1024
)

// DefaultOptions returns the settings used by the command line tool.
func DefaultOptions() Options {
	return Options{
		NormalTolerance:      DefaultNormalTolerance,
		PlanarityTolerance:   DefaultPlanarityTolerance,
		MaxTextureDimension:  DefaultMaxTextureDimension,
		AtlasWidth:           1024,
		Margin:               2,
		TexelsPerFace:        256,
		CameraDistanceFactor: 2,
		MergeAngle:           0.5,
		TwoSided:             true,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.NormalTolerance <= 0 || o.NormalTolerance >= 1 {
		return fmt.Errorf("normal tolerance %g out of range (0,1)", o.NormalTolerance)
	}
	if o.PlanarityTolerance <= 0 {
		return fmt.Errorf("planarity tolerance must be positive, got %g", o.PlanarityTolerance)
	}
	if !IsPowerOfTwo(o.MaxTextureDimension) {
		return fmt.Errorf("max texture dimension %d is not a power of two", o.MaxTextureDimension)
	}
	if !IsPowerOfTwo(o.AtlasWidth) || o.AtlasWidth > o.MaxTextureDimension {
		return fmt.Errorf("atlas width %d must be a power of two not above %d", o.AtlasWidth, o.MaxTextureDimension)
	}
	if o.Margin < 0 {
		return fmt.Errorf("negative margin %d", o.Margin)
	}
	if o.TexelsPerFace <= 0 {
		return fmt.Errorf("texels per face must be positive, got %d", o.TexelsPerFace)
	}
	if o.CameraDistanceFactor <= 0 {
		return fmt.Errorf("camera distance factor must be positive, got %g", o.CameraDistanceFactor)
	}
	if o.MergeAngle < 0 || o.MergeAngle >= 90 {
		return fmt.Errorf("merge angle %g out of range [0,90)", o.MergeAngle)
	}
	if o.Workers < 0 {
		return fmt.Errorf("negative worker count %d", o.Workers)
	}
	return nil
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// mergeTolerance converts MergeAngle into a dot product tolerance.
func (o Options) mergeTolerance() float64 {
	return 1 - math.Cos(o.MergeAngle*math.Pi/180)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 1.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
