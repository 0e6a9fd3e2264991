package impostor

import (
	"sync"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// Rect2 is an axis-aligned rectangle in face-plane units.
type Rect2 struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func (r Rect2) Width() float64  { return r.MaxX - r.MinX }
func (r Rect2) Height() float64 { return r.MaxY - r.MinY }

// Face is one planar polygon of the target with its derived frame. It lives
// for a single build.
type Face struct {
	Index  int
	Object *Object
	// Loop holds indices into Object.Mesh.Vertices.
	Loop []uint32

	Normal   dvec3.T
	BaseEdge [2]dvec3.T
	// Centroid is the unweighted vertex mean.
	Centroid dvec3.T
	// Center is the bounding box centre in mesh space, used to aim the camera.
	Center dvec3.T
	// Frame maps plane-local coordinates (X along BaseEdge, Z along Normal)
	// to mesh space. Its origin stays at Centroid.
	Frame  Transform
	Bounds Rect2
}

// Width of the face footprint in world units.
func (f *Face) Width() float64 { return f.Bounds.Width() }

// Height of the face footprint in world units.
func (f *Face) Height() float64 { return f.Bounds.Height() }

func (f *Face) position(i int) dvec3.T {
	return f.Object.ScaledVertex(f.Loop[i])
}

// NewFace derives the frame and bounds of loop, a polygon of obj.Mesh.
func NewFace(obj *Object, index int, loop []uint32, opts Options) (*Face, error) {
	f := &Face{Index: index, Object: obj, Loop: loop}
	if err := f.computeFrame(opts); err != nil {
		return nil, err
	}
	if err := f.computeBounds(opts); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Face) computeFrame(opts Options) error {
	n := len(f.Loop)
	if n < 3 {
		return geometryErrorf(f.Index, "too few vertices (%d)", n)
	}
	tol := opts.NormalTolerance

	var (
		normal   dvec3.T
		newell   dvec3.T
		found    bool
		flipped  bool
		sum      dvec3.T
		longest  = -1.0
		baseEdge [2]dvec3.T
	)
	for i := 0; i < n; i++ {
		v0 := f.position(i)
		v1 := f.position((i + 1) % n)
		v2 := f.position((i + 2) % n)

		e0 := dvec3.Sub(&v1, &v0)
		e1 := dvec3.Sub(&v2, &v1)
		if l := e0.Length(); l > longest {
			longest = l
			baseEdge = [2]dvec3.T{v0, v1}
		}
		sum.Add(&v0)
		area := dvec3.Cross(&v0, &v1)
		newell.Add(&area)

		cross := dvec3.Cross(&e0, &e1)
		l := cross.Length()
		if l < tol {
			continue
		}
		cross.Scale(1 / l)
		if !found {
			normal = cross
			found = true
			continue
		}
		d := dvec3.Dot(&normal, &cross)
		if d >= 1-tol {
			continue
		}
		if opts.TwoSided && -d >= 1-tol {
			flipped = true
			continue
		}
		return geometryErrorf(f.Index, "face is not flat (corner %d deviates by %.6f)", (i+1)%n, 1-d)
	}
	if !found {
		return geometryErrorf(f.Index, "degenerate geometry, cannot compute normal")
	}
	if flipped && dvec3.Dot(&normal, &newell) < 0 {
		normal.Invert()
	}

	f.Normal = normal
	f.BaseEdge = baseEdge
	f.Centroid = sum.Scaled(1 / float64(n))

	x := dvec3.Sub(&baseEdge[1], &baseEdge[0])
	x.Normalize()
	along := normal.Scaled(dvec3.Dot(&x, &normal))
	x.Sub(&along)
	x.Normalize()
	y := dvec3.Cross(&normal, &x)
	f.Frame = NewRigidTransform(x, y, normal, f.Centroid)
	return nil
}

// ComputeFaces derives the frame and bounds of every loop of obj without
// building anything.
func ComputeFaces(obj *Object, opts Options) ([]*Face, error) {
	if err := opts.Validate(); err != nil {
		return nil, inputErrorf("invalid options: %v", err)
	}
	if obj == nil || obj.Mesh == nil || len(obj.Mesh.Loops) == 0 {
		return nil, inputErrorf("object has no faces")
	}
	return computeFaces(obj, opts)
}

// computeFaces derives all faces of obj using a bounded worker pool. The
// error of the lowest failing face index is returned.
func computeFaces(obj *Object, opts Options) ([]*Face, error) {
	loops := obj.Mesh.Loops
	faces := make([]*Face, len(loops))
	errs := make([]error, len(loops))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < opts.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				faces[i], errs[i] = NewFace(obj, i, loops[i], opts)
			}
		}()
	}
	for i := range loops {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return faces, nil
}
