package impostor

import (
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// roundTripTolerance bounds the error of Inverse(Forward(p)) for the bbox
// centre.
const roundTripTolerance = 0.001

// computeBounds projects the loop into the face plane, takes the bounding
// rectangle and re-anchors Center on its middle.
func (f *Face) computeBounds(opts Options) error {
	b := Rect2{
		MinX: math.MaxFloat64, MinY: math.MaxFloat64,
		MaxX: -math.MaxFloat64, MaxY: -math.MaxFloat64,
	}
	for i := range f.Loop {
		q := f.Frame.ApplyInverse(f.position(i))
		if math.Abs(q[2]) > opts.PlanarityTolerance {
			return geometryErrorf(f.Index, "face is not planar (vertex %d is %.6f off the plane)", i, q[2])
		}
		b.MinX = math.Min(b.MinX, q[0])
		b.MinY = math.Min(b.MinY, q[1])
		b.MaxX = math.Max(b.MaxX, q[0])
		b.MaxY = math.Max(b.MaxY, q[1])
	}
	if b.Width() < opts.NormalTolerance || b.Height() < opts.NormalTolerance {
		return geometryErrorf(f.Index, "zero-size face (%.6f x %.6f)", b.Width(), b.Height())
	}
	f.Bounds = b

	local := dvec3.T{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2, 0}
	f.Center = f.Frame.Apply(local)

	back := f.Frame.ApplyInverse(f.Center)
	if d := dvec3.Sub(&back, &local); d.Length() > roundTripTolerance {
		return geometryErrorf(f.Index, "face transform round trip drifted by %.6f", d.Length())
	}
	return nil
}

// Fraction returns the position of mesh-space point p inside the face's
// bounding rectangle, (0,0) at MinX/MinY and (1,1) at MaxX/MaxY.
func (f *Face) Fraction(p dvec3.T) (fx, fy float64) {
	q := f.Frame.ApplyInverse(p)
	return (q[0] - f.Bounds.MinX) / f.Bounds.Width(), (q[1] - f.Bounds.MinY) / f.Bounds.Height()
}

// PointAt is the inverse of Fraction for points on the face plane.
func (f *Face) PointAt(fx, fy float64) dvec3.T {
	local := dvec3.T{
		f.Bounds.MinX + fx*f.Bounds.Width(),
		f.Bounds.MinY + fy*f.Bounds.Height(),
		0,
	}
	return f.Frame.Apply(local)
}
