package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	impostor "github.com/flywave/go-impostor"
	"github.com/flywave/go-impostor/mst"
	"github.com/flywave/go-impostor/stl"
)

// loadObject reads an STL or MST file. The object is named after the file.
func loadObject(path string) (*impostor.Object, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		model, err := stl.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		obj := model.Object()
		obj.Name = name
		return obj, nil
	case ".mst":
		ms, err := mst.MeshReadFrom(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		obj, err := mst.NewObject(name, ms)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return obj, nil
	}
	return nil, fmt.Errorf("%s: unsupported input, want .stl or .mst", path)
}

// addImpostorFlags registers the option overrides shared by the commands
// that plan an atlas.
func addImpostorFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("atlas-width", 0, "Atlas width in pixels, a power of two")
	f.Int("max-texture", 0, "Largest allowed atlas side")
	f.Int("texels", 0, "Pixel width of the widest face")
	f.Int("margin", 0, "Gap and bleed ring around each face in pixels")
	f.Float64("merge-angle", 0, "Normal deviation in degrees still merged by --merge")
	f.Bool("merge", false, "Merge coplanar triangles of the target into polygons first")
}

// applyImpostorFlags copies the flags the user set over opts.
func applyImpostorFlags(cmd *cobra.Command, opts *impostor.Options) {
	f := cmd.Flags()
	if f.Changed("atlas-width") {
		opts.AtlasWidth, _ = f.GetInt("atlas-width")
	}
	if f.Changed("max-texture") {
		opts.MaxTextureDimension, _ = f.GetInt("max-texture")
	}
	if f.Changed("texels") {
		opts.TexelsPerFace, _ = f.GetInt("texels")
	}
	if f.Changed("margin") {
		opts.Margin, _ = f.GetInt("margin")
	}
	if f.Changed("merge-angle") {
		opts.MergeAngle, _ = f.GetFloat64("merge-angle")
	}
}

// simplifier returns the coplanar merger when --merge is set.
func simplifier(cmd *cobra.Command) impostor.Simplifier {
	if merge, _ := cmd.Flags().GetBool("merge"); merge {
		return impostor.CoplanarMerger{}
	}
	return nil
}

// loadTarget reads a target and applies the simplifier the way a build does.
func loadTarget(cmd *cobra.Command, path string, opts impostor.Options) (*impostor.Object, error) {
	obj, err := loadObject(path)
	if err != nil {
		return nil, err
	}
	if s := simplifier(cmd); s != nil {
		obj.Mesh = s.Simplify(obj.Mesh, opts.MergeAngle)
	}
	return obj, nil
}
