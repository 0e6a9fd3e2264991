package mst

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	impostor "github.com/flywave/go-impostor"
)

// Output formats written by Sink besides the atlas image formats.
const (
	FormatMST = "mst"
	FormatGLB = "glb"
)

// Sink publishes builds as files in Dir: <name>.mst, <name>.glb and
// <name>_atlas.<ext> for every image format listed in Formats.
type Sink struct {
	Dir     string
	Formats []string
	// Name overrides the target name used for file names.
	Name string

	log *zap.Logger
}

// NewSink returns a sink writing formats into dir.
func NewSink(dir string, formats []string, log *zap.Logger) (*Sink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	for _, f := range formats {
		if !IsOutputFormat(f) {
			return nil, fmt.Errorf("mst: unknown output format %q", f)
		}
	}
	return &Sink{Dir: dir, Formats: formats, log: log}, nil
}

// IsOutputFormat reports whether Sink can write f.
func IsOutputFormat(f string) bool {
	f = strings.ToLower(f)
	if f == FormatMST || f == FormatGLB {
		return true
	}
	for _, img := range ImageFormats {
		if f == img {
			return true
		}
	}
	return false
}

func (s *Sink) baseName(res *impostor.Result) string {
	name := s.Name
	if name == "" && res.Target != nil {
		name = res.Target.Name
	}
	if name == "" {
		name = "impostor"
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '_'
		}
		return r
	}, name)
}

// Publish writes every configured format. A failing format does not stop
// the others; all failures are returned together.
func (s *Sink) Publish(res *impostor.Result) error {
	if err := os.MkdirAll(s.Dir, os.ModePerm); err != nil {
		return err
	}
	ms, err := FromResult(res)
	if err != nil {
		return err
	}
	base := filepath.Join(s.Dir, s.baseName(res))
	log := s.log.With(zap.String("build", res.ID.String()))

	var errs error
	for _, f := range s.Formats {
		var path string
		var werr error
		switch f = strings.ToLower(f); f {
		case FormatMST:
			path = base + MSTEXT
			werr = MeshWriteTo(path, ms)
		case FormatGLB:
			path = base + ".glb"
			werr = writeGlb(path, ms)
		default:
			path = base + "_atlas." + f
			werr = writeImage(path, res, f)
		}
		if werr != nil {
			errs = multierr.Append(errs, fmt.Errorf("write %s: %w", path, werr))
			continue
		}
		log.Info("wrote output", zap.String("format", f), zap.String("path", path))
	}
	return errs
}

func writeGlb(path string, ms *Mesh) error {
	doc := CreateDoc()
	if err := BuildGltf(doc, ms); err != nil {
		return err
	}
	bt, err := GetGltfBinary(doc, 8)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bt, 0o644)
}

func writeImage(path string, res *impostor.Result, format string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	bw := bufio.NewWriter(f)
	if err := EncodeImage(bw, res.Atlas, format); err != nil {
		return err
	}
	return bw.Flush()
}
