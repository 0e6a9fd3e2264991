package impostor

import (
	"image"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// Scene is the set of objects a renderer may draw. Hidden objects are
// skipped.
type Scene struct {
	Objects []*Object
}

// Visible returns the objects that are not hidden, in scene order.
func (s *Scene) Visible() []*Object {
	var out []*Object
	for _, o := range s.Objects {
		if o != nil && !o.Hidden && o.Mesh != nil {
			out = append(out, o)
		}
	}
	return out
}

// Camera is an orthographic camera. Frame maps camera space to world space;
// the camera looks down its -Z axis with +Y up.
type Camera struct {
	Frame       Transform
	OrthoWidth  float64
	OrthoHeight float64
}

// Position of the camera in world space.
func (c *Camera) Position() dvec3.T {
	return c.Frame.Origin()
}

// ViewDirection is the unit vector the camera looks along.
func (c *Camera) ViewDirection() dvec3.T {
	z := c.Frame.Axis(2)
	return z.Scaled(-1)
}

// Light is a directional sun. Direction points from the light into the
// scene.
type Light struct {
	Direction dvec3.T
	Energy    float64
}

// RenderContext carries the scene, camera and light for one render call.
type RenderContext struct {
	Scene  *Scene
	Camera *Camera
	Light  *Light
}

// RenderRequest asks for an image of Width x Height pixels. Face is only used
// for error reporting and logging.
type RenderRequest struct {
	Face   int
	Width  int
	Height int
}

// Capture is a rendered image owned by the caller until Release.
type Capture struct {
	Image *image.RGBA

	release func()
	done    bool
}

// NewCapture wraps img. release, if non-nil, runs once on Release.
func NewCapture(img *image.RGBA, release func()) *Capture {
	return &Capture{Image: img, release: release}
}

// Release hands the image buffer back. Releasing twice is a ResourceError.
func (c *Capture) Release() error {
	if c == nil {
		return nil
	}
	if c.done {
		return newError(KindResource, -1, "capture released twice")
	}
	c.done = true
	if c.release != nil {
		c.release()
	}
	c.Image = nil
	return nil
}

// Renderer produces one image of the scene as seen by the context camera.
type Renderer interface {
	Render(rc *RenderContext, req RenderRequest) (*Capture, error)
}

func checkRenderContext(rc *RenderContext, req RenderRequest) error {
	if rc == nil || rc.Scene == nil {
		return renderErrorf(req.Face, "no scene")
	}
	if rc.Camera == nil {
		return renderErrorf(req.Face, "no camera")
	}
	if rc.Light == nil {
		return renderErrorf(req.Face, "no light")
	}
	if req.Width <= 0 || req.Height <= 0 {
		return renderErrorf(req.Face, "invalid image size %dx%d", req.Width, req.Height)
	}
	if rc.Camera.OrthoWidth <= 0 || rc.Camera.OrthoHeight <= 0 {
		return renderErrorf(req.Face, "invalid ortho extent %gx%g", rc.Camera.OrthoWidth, rc.Camera.OrthoHeight)
	}
	return nil
}
