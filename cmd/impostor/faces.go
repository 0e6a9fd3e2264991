package main

import (
	"fmt"

	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/spf13/cobra"

	impostor "github.com/flywave/go-impostor"
)

func newFacesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faces <target>",
		Short: "Show the frame and footprint of each target face",
		Long:  "List every face with its normal, base edge, centre and footprint, as the build would compute them.",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runFaces,
	}
	addImpostorFlags(cmd)
	return cmd
}

func formatVector(v dvec3.T) string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v[0], v[1], v[2])
}

func (a *app) runFaces(cmd *cobra.Command, args []string) error {
	opts := a.cfg.Impostor
	applyImpostorFlags(cmd, &opts)

	obj, err := loadTarget(cmd, args[0], opts)
	if err != nil {
		return err
	}
	faces, err := impostor.ComputeFaces(obj, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d faces, %d triangles\n\n", obj.Name, len(faces), obj.TriangleCount())
	for _, f := range faces {
		edge := dvec3.Sub(&f.BaseEdge[1], &f.BaseEdge[0])
		fmt.Fprintf(out, "Face %d (%d vertices)\n", f.Index, len(f.Loop))
		fmt.Fprintf(out, "  Normal:    %s\n", formatVector(f.Normal))
		fmt.Fprintf(out, "  Base edge: %s -> %s, length %.4f\n",
			formatVector(f.BaseEdge[0]), formatVector(f.BaseEdge[1]), edge.Length())
		fmt.Fprintf(out, "  Center:    %s\n", formatVector(f.Center))
		fmt.Fprintf(out, "  Footprint: %.4f x %.4f\n", f.Width(), f.Height())
	}
	return nil
}
