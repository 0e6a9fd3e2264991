package impostor

import (
	"image"
	"image/color"
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"
	"golang.org/x/image/draw"
)

// RasterOptions tunes the software renderer.
type RasterOptions struct {
	// Supersample renders at this multiple of the requested size and scales
	// down afterwards. 1 disables it.
	Supersample int `yaml:"supersample"`
	// Ambient is the light level of surfaces facing away from the sun.
	Ambient float64 `yaml:"ambient"`
	// Background fills pixels no triangle covers.
	Background color.RGBA `yaml:"-"`
}

// DefaultRasterOptions renders with 2x supersampling over a transparent
// background.
func DefaultRasterOptions() RasterOptions {
	return RasterOptions{Supersample: 2, Ambient: 0.25}
}

// RasterRenderer is a z-buffered orthographic scanline rasterizer with flat
// Lambert shading. Polygons are fan triangulated.
type RasterRenderer struct {
	opts RasterOptions
}

// NewRasterRenderer returns a renderer with opts, clamping supersampling to
// at least 1.
func NewRasterRenderer(opts RasterOptions) *RasterRenderer {
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	opts.Ambient = math.Max(0, math.Min(1, opts.Ambient))
	return &RasterRenderer{opts: opts}
}

type screenPoint struct {
	x, y, z float64
}

// Render draws all visible scene objects.
func (r *RasterRenderer) Render(rc *RenderContext, req RenderRequest) (*Capture, error) {
	if err := checkRenderContext(rc, req); err != nil {
		return nil, err
	}
	sun := rc.Light.Direction
	if sun.Length() == 0 {
		return nil, renderErrorf(req.Face, "light has no direction")
	}
	sun.Normalize()
	toSun := sun.Scaled(-1)

	ss := r.opts.Supersample
	w, h := req.Width*ss, req.Height*ss
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if r.opts.Background != (color.RGBA{}) {
		draw.Draw(img, img.Bounds(), image.NewUniform(r.opts.Background), image.Point{}, draw.Src)
	}
	zbuf := make([]float64, w*h)
	for i := range zbuf {
		zbuf[i] = math.Inf(1)
	}

	cam := rc.Camera
	view := cam.ViewDirection()
	var pts []screenPoint
	for _, o := range rc.Scene.Visible() {
		for _, loop := range o.Mesh.Loops {
			if len(loop) < 3 {
				continue
			}
			n, ok := polygonNormal(o, loop)
			if !ok {
				continue
			}
			if dvec3.Dot(&n, &view) > 0 {
				n.Invert()
			}
			col := r.shade(o.Color, math.Max(0, dvec3.Dot(&n, &toSun))*rc.Light.Energy)

			pts = pts[:0]
			for _, vi := range loop {
				local := cam.Frame.ApplyInverse(o.WorldVertex(vi))
				pts = append(pts, screenPoint{
					x: (local[0]/cam.OrthoWidth + 0.5) * float64(w),
					y: (0.5 - local[1]/cam.OrthoHeight) * float64(h),
					z: -local[2],
				})
			}
			for i := 1; i+1 < len(pts); i++ {
				fillTriangleWithDepth(img, zbuf, pts[0], pts[i], pts[i+1], col)
			}
		}
	}

	if ss == 1 {
		return NewCapture(img, nil), nil
	}
	out := image.NewRGBA(image.Rect(0, 0, req.Width, req.Height))
	draw.BiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return NewCapture(out, nil), nil
}

func (r *RasterRenderer) shade(c color.RGBA, lambert float64) color.RGBA {
	k := math.Min(1, r.opts.Ambient+(1-r.opts.Ambient)*lambert)
	return color.RGBA{
		R: uint8(float64(c.R)*k + 0.5),
		G: uint8(float64(c.G)*k + 0.5),
		B: uint8(float64(c.B)*k + 0.5),
		A: 255,
	}
}

// polygonNormal returns the unit Newell normal of loop in world space.
func polygonNormal(o *Object, loop []uint32) (dvec3.T, bool) {
	var n dvec3.T
	for i := range loop {
		a := o.WorldVertex(loop[i])
		b := o.WorldVertex(loop[(i+1)%len(loop)])
		c := dvec3.Cross(&a, &b)
		n.Add(&c)
	}
	l := n.Length()
	if l < 1e-12 {
		return n, false
	}
	n.Scale(1 / l)
	return n, true
}

// fillTriangleWithDepth fills the pixels whose centres lie inside the
// triangle. Depth is interpolated linearly; smaller is closer and points
// behind the camera (z <= 0) are dropped.
func fillTriangleWithDepth(img *image.RGBA, zbuf []float64, a, b, c screenPoint, col color.RGBA) {
	// Sort by y, top to bottom
	if a.y > b.y {
		a, b = b, a
	}
	if b.y > c.y {
		b, c = c, b
	}
	if a.y > b.y {
		a, b = b, a
	}
	width := img.Rect.Dx()
	height := img.Rect.Dy()
	edges := [3][2]screenPoint{{a, b}, {b, c}, {a, c}}

	y0 := int(math.Max(0, math.Ceil(a.y-0.5)))
	y1 := int(math.Min(float64(height-1), math.Floor(c.y-0.5)))
	for y := y0; y <= y1; y++ {
		fy := float64(y) + 0.5

		xStart, xEnd := math.Inf(1), math.Inf(-1)
		var zStart, zEnd float64
		for _, e := range edges {
			p, q := e[0], e[1]
			if p.y == q.y || fy < p.y || fy > q.y {
				continue
			}
			t := (fy - p.y) / (q.y - p.y)
			x := p.x + t*(q.x-p.x)
			z := p.z + t*(q.z-p.z)
			if x < xStart {
				xStart, zStart = x, z
			}
			if x > xEnd {
				xEnd, zEnd = x, z
			}
		}
		if xStart > xEnd {
			continue
		}

		x0 := int(math.Max(0, math.Ceil(xStart-0.5)))
		x1 := int(math.Min(float64(width-1), math.Floor(xEnd-0.5)))
		for x := x0; x <= x1; x++ {
			t := 0.0
			if xEnd != xStart {
				t = (float64(x) + 0.5 - xStart) / (xEnd - xStart)
			}
			z := zStart + t*(zEnd-zStart)
			if z <= 0 {
				continue
			}
			idx := y*width + x
			if z < zbuf[idx] {
				zbuf[idx] = z
				img.SetRGBA(x, y, col)
			}
		}
	}
}
