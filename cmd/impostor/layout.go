package main

import (
	"fmt"

	"github.com/spf13/cobra"

	impostor "github.com/flywave/go-impostor"
)

func newLayoutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout <target>",
		Short: "Plan the atlas of a target without rendering",
		Long:  "Compute face frames, the common pixel scale and the packed atlas layout. Nothing is rendered or written.",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runLayout,
	}
	addImpostorFlags(cmd)
	return cmd
}

func (a *app) runLayout(cmd *cobra.Command, args []string) error {
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
	ppu, err := impostor.PixelsPerUnit(faces, opts.TexelsPerFace)
	if err != nil {
		return err
	}
	sizes := make([]impostor.Size, len(faces))
	for i, f := range faces {
		sizes[i] = impostor.FaceImageSize(f, ppu, opts.Margin)
	}
	layout, err := impostor.PlanAtlas(sizes, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d faces\n", obj.Name, len(faces))
	fmt.Fprintf(out, "Atlas:           %dx%d (rows used %d)\n", layout.Width, layout.Height, layout.RequiredHeight)
	fmt.Fprintf(out, "Pixels per unit: %.4f\n", ppu)
	fmt.Fprintf(out, "Margin:          %d\n\n", layout.Margin)
	for i, r := range layout.Rects {
		fmt.Fprintf(out, "  %4d  %s\n", i, r)
	}
	return nil
}
