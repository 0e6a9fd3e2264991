package impostor

import (
	"math"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/float64/vec4"
)

// Transform is a rigid transform and its inverse. Matrices are column-major
// as in go3d: m[column][row].
type Transform struct {
	Forward dmat.T
	Inverse dmat.T
}

// NewRigidTransform builds the transform with the given orthonormal axes as
// rotation columns and origin as translation. The inverse is assembled as
// [R^T | -R^T t] instead of a general inversion.
func NewRigidTransform(x, y, z, origin dvec3.T) Transform {
	var t Transform
	t.Forward[0] = vec4.T{x[0], x[1], x[2], 0}
	t.Forward[1] = vec4.T{y[0], y[1], y[2], 0}
	t.Forward[2] = vec4.T{z[0], z[1], z[2], 0}
	t.Forward[3] = vec4.T{origin[0], origin[1], origin[2], 1}

	t.Inverse[0] = vec4.T{x[0], y[0], z[0], 0}
	t.Inverse[1] = vec4.T{x[1], y[1], z[1], 0}
	t.Inverse[2] = vec4.T{x[2], y[2], z[2], 0}
	t.Inverse[3] = vec4.T{
		-dvec3.Dot(&x, &origin),
		-dvec3.Dot(&y, &origin),
		-dvec3.Dot(&z, &origin),
		1,
	}
	return t
}

// Axis returns rotation column i (0=X, 1=Y, 2=Z).
func (t *Transform) Axis(i int) dvec3.T {
	c := t.Forward[i]
	return dvec3.T{c[0], c[1], c[2]}
}

// Origin returns the translation.
func (t *Transform) Origin() dvec3.T {
	c := t.Forward[3]
	return dvec3.T{c[0], c[1], c[2]}
}

// Apply maps a plane-local point to mesh space.
func (t *Transform) Apply(p dvec3.T) dvec3.T {
	return t.Forward.MulVec3(&p)
}

// ApplyInverse maps a mesh-space point into plane-local coordinates.
func (t *Transform) ApplyInverse(p dvec3.T) dvec3.T {
	return t.Inverse.MulVec3(&p)
}

// WithOrigin returns a copy with the same rotation moved to origin.
func (t *Transform) WithOrigin(origin dvec3.T) Transform {
	return NewRigidTransform(t.Axis(0), t.Axis(1), t.Axis(2), origin)
}

// IdentityError returns the largest absolute deviation of Inverse*Forward
// from the identity matrix.
func (t *Transform) IdentityError() float64 {
	var p dmat.T
	p.AssignMul(&t.Inverse, &t.Forward)
	var worst float64
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			want := 0.0
			if col == row {
				want = 1
			}
			worst = math.Max(worst, math.Abs(p[col][row]-want))
		}
	}
	return worst
}
