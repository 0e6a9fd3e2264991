package impostor

import (
	"fmt"
	"image"
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Stage is a step of the build state machine. Stages only move forward;
// StageFailed is terminal.
type Stage int

const (
	StageIdle Stage = iota
	StageFramesComputed
	StagePackedDraft
	StageSized
	StagePacked
	StageRendered
	StageComposited
	StageUVAssigned
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageIdle:           "idle",
	StageFramesComputed: "frames-computed",
	StagePackedDraft:    "packed-draft",
	StageSized:          "sized",
	StagePacked:         "packed",
	StageRendered:       "rendered",
	StageComposited:     "composited",
	StageUVAssigned:     "uv-assigned",
	StageDone:           "done",
	StageFailed:         "failed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// BuildRequest selects the impostor target and the detailed objects it is
// captured from.
type BuildRequest struct {
	Target  *Object
	Sources []*Object
}

// Result is everything a build produces. Faces and UVs are indexed like
// Mesh.Loops; UVs[i][j] belongs to loop vertex j of face i.
type Result struct {
	ID            uuid.UUID
	Target        *Object
	Mesh          *Mesh
	Faces         []*Face
	Layout        *Layout
	PixelsPerUnit float64
	Atlas         *image.RGBA
	UVs           [][]UV
}

// MaterialSink receives a finished build.
type MaterialSink interface {
	Publish(r *Result) error
}

// Builder runs impostor builds with a fixed configuration. A Builder runs one
// build at a time.
type Builder struct {
	opts     Options
	renderer Renderer
	sink     MaterialSink
	log      *zap.Logger

	// Simplifier, when set, merges the target's coplanar faces before frames
	// are computed.
	Simplifier Simplifier

	stage Stage
}

// NewBuilder validates opts and returns a builder. sink may be nil, in which
// case results are only returned.
func NewBuilder(opts Options, renderer Renderer, sink MaterialSink, log *zap.Logger) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{opts: opts, renderer: renderer, sink: sink, log: log}, nil
}

// Options returns the builder configuration.
func (b *Builder) Options() Options {
	return b.opts
}

// Stage reports where the last build stopped.
func (b *Builder) Stage() Stage {
	return b.stage
}

func (b *Builder) advance(s Stage, log *zap.Logger) {
	b.stage = s
	log.Debug("stage", zap.Stringer("stage", s))
}

// Build runs the whole pipeline for req. Any failure aborts the build, is
// logged once and returned as *Error.
func (b *Builder) Build(req BuildRequest) (res *Result, err error) {
	id := uuid.New()
	log := b.log.With(zap.String("build", id.String()))
	b.stage = StageIdle

	defer func() {
		if err == nil {
			return
		}
		e := asError(err, KindResource, -1)
		e.Stage = b.stage
		b.stage = StageFailed
		log.Error("impostor build failed",
			zap.Stringer("kind", e.Kind),
			zap.Stringer("stage", e.Stage),
			zap.Int("face", e.Face),
			zap.Error(e))
		res, err = nil, e
	}()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	log.Info("impostor build started",
		zap.String("target", req.Target.Name),
		zap.Int("sources", len(req.Sources)),
		zap.Int("faces", req.Target.Mesh.FaceCount()))

	work := *req.Target
	if b.Simplifier != nil {
		work.Mesh = b.Simplifier.Simplify(req.Target.Mesh, b.opts.MergeAngle)
		log.Debug("target simplified",
			zap.Int("before", req.Target.Mesh.FaceCount()),
			zap.Int("after", work.Mesh.FaceCount()))
	}

	faces, err := computeFaces(&work, b.opts)
	if err != nil {
		return nil, err
	}
	b.advance(StageFramesComputed, log)

	ppu, err := PixelsPerUnit(faces, b.opts.TexelsPerFace)
	if err != nil {
		return nil, err
	}
	sizes := make([]Size, len(faces))
	for i, f := range faces {
		sizes[i] = FaceImageSize(f, ppu, b.opts.Margin)
	}
	layout, err := planAtlas(sizes, b.opts, func(s Stage) { b.advance(s, log) })
	if err != nil {
		return nil, err
	}
	log.Info("atlas planned",
		zap.Int("width", layout.Width),
		zap.Int("height", layout.Height),
		zap.Int("required_height", layout.RequiredHeight),
		zap.Float64("pixels_per_unit", ppu))

	atlas := NewAtlas(layout.Width, layout.Height)
	if err := b.capture(req, &work, faces, sizes, layout, atlas, log); err != nil {
		return nil, err
	}
	b.advance(StageRendered, log)
	img := atlas.Finalize()
	b.advance(StageComposited, log)

	uvs := make([][]UV, len(faces))
	for i, f := range faces {
		uvs[i] = MapFace(f, layout.Rects[i], layout.Margin, layout.Width, layout.Height)
	}
	b.advance(StageUVAssigned, log)

	res = &Result{
		ID:            id,
		Target:        req.Target,
		Mesh:          work.Mesh,
		Faces:         faces,
		Layout:        layout,
		PixelsPerUnit: ppu,
		Atlas:         img,
		UVs:           uvs,
	}
	if b.sink != nil {
		if err := b.sink.Publish(res); err != nil {
			return nil, wrapError(KindResource, -1, err, "publish result")
		}
	}
	b.advance(StageDone, log)
	log.Info("impostor build done", zap.Int("faces", len(faces)))
	return res, nil
}

// capture renders and pastes every face in order with the target hidden.
func (b *Builder) capture(req BuildRequest, work *Object, faces []*Face, sizes []Size, layout *Layout, atlas *Atlas, log *zap.Logger) error {
	restore := hideForCapture(req.Target)
	defer restore()

	objects := make([]*Object, 0, len(req.Sources)+1)
	objects = append(objects, req.Sources...)
	objects = append(objects, req.Target)
	rc := &RenderContext{
		Scene:  &Scene{Objects: objects},
		Camera: &Camera{},
		Light:  &Light{},
	}

	for i, f := range faces {
		size := sizes[i]
		b.aim(rc, f, work.Location, size)

		c, err := b.renderer.Render(rc, RenderRequest{Face: i, Width: size.W, Height: size.H})
		if err != nil {
			return asError(err, KindRender, i)
		}
		if c == nil || c.Image == nil {
			return renderErrorf(i, "renderer returned no image")
		}
		if got := c.Image.Bounds(); got.Dx() != size.W || got.Dy() != size.H {
			err := renderErrorf(i, "rendered %dx%d, requested %dx%d", got.Dx(), got.Dy(), size.W, size.H)
			return releaseCapture(c, i, err)
		}
		rect := layout.Rects[i]
		err = atlas.Paste(c.Image, rect.X0, rect.Y0)
		if err != nil {
			e := asError(err, KindLayout, i)
			e.Face = i
			err = e
		}
		if err := releaseCapture(c, i, err); err != nil {
			return err
		}
		log.Debug("face captured", zap.Int("face", i), zap.Stringer("rect", rect))
	}
	return nil
}

// aim points the camera and sun down the face normal from a distance
// proportional to the face size. The ortho extent covers the face bounds
// plus the bleed ring.
func (b *Builder) aim(rc *RenderContext, f *Face, offset dvec3.T, size Size) {
	m := b.opts.Margin
	cw, ch := size.W-2*m, size.H-2*m
	dist := b.opts.CameraDistanceFactor * math.Max(f.Width(), f.Height())

	pos := dvec3.Add(&f.Center, &offset)
	lift := f.Normal.Scaled(dist)
	pos.Add(&lift)

	rc.Camera.Frame = f.Frame.WithOrigin(pos)
	rc.Camera.OrthoWidth = f.Width() * float64(size.W) / float64(cw)
	rc.Camera.OrthoHeight = f.Height() * float64(size.H) / float64(ch)
	rc.Light.Direction = f.Normal.Scaled(-1)
	rc.Light.Energy = 1
}

// releaseCapture releases c and folds a release failure into err.
func releaseCapture(c *Capture, face int, err error) error {
	rerr := c.Release()
	if rerr == nil {
		return err
	}
	rerr = wrapError(KindResource, face, rerr, "release capture")
	if err == nil {
		return rerr
	}
	e := asError(err, KindResource, face)
	return wrapError(e.Kind, face, multierr.Combine(err, rerr), "capture")
}

func validateRequest(req BuildRequest) error {
	if len(req.Sources) == 0 {
		return inputErrorf("no source objects selected")
	}
	t := req.Target
	if t == nil || t.Mesh == nil {
		return inputErrorf("target is not a mesh object")
	}
	var sourceTriangles int
	for i, s := range req.Sources {
		if s == nil || s.Mesh == nil {
			return inputErrorf("source %d is not a mesh object", i)
		}
		if s == t {
			return inputErrorf("target %q is also selected as a source", t.Name)
		}
		sourceTriangles += s.TriangleCount()
	}
	if t.Scale[0] < 0 || t.Scale[1] < 0 || t.Scale[2] < 0 {
		return inputErrorf("target %q has negative scale %v", t.Name, t.Scale)
	}
	if n := t.TriangleCount(); n > sourceTriangles {
		return inputErrorf("target %q has %d triangles, more than the %d of all sources", t.Name, n, sourceTriangles)
	}
	if t.Mesh.FaceCount() == 0 {
		return inputErrorf("target %q has no faces", t.Name)
	}
	return nil
}
