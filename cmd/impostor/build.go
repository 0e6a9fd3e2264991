package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	impostor "github.com/flywave/go-impostor"
	"github.com/flywave/go-impostor/internal/watcher"
	"github.com/flywave/go-impostor/mst"
)

const watchDebounce = 300 * time.Millisecond

func newBuildCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <target> <source>...",
		Short: "Build an impostor of target captured from the source models",
		Long: `Build renders each face of the target (.stl or .mst) against the source
models, packs the captures into an atlas and writes the textured target to
the output directory in every configured format.`,
		Args: cobra.MinimumNArgs(2),
		RunE: a.runBuild,
	}
	addImpostorFlags(cmd)
	f := cmd.Flags()
	f.StringP("out", "o", "", "Output directory")
	f.StringSliceP("format", "f", nil, "Output formats: mst, glb, png, tga, bmp, tiff")
	f.String("name", "", "Base name of the output files (default: target file name)")
	f.Bool("watch", false, "Rebuild whenever an input file changes")
	return cmd
}

func (a *app) runBuild(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	applyImpostorFlags(cmd, &cfg.Impostor)
	f := cmd.Flags()
	if f.Changed("out") {
		cfg.Output.Dir, _ = f.GetString("out")
	}
	if f.Changed("format") {
		cfg.Output.Formats, _ = f.GetStringSlice("format")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	raster, err := cfg.Render.RasterOptions()
	if err != nil {
		return err
	}
	sink, err := mst.NewSink(cfg.Output.Dir, cfg.Output.Formats, a.log)
	if err != nil {
		return err
	}
	sink.Name, _ = f.GetString("name")

	builder, err := impostor.NewBuilder(cfg.Impostor, impostor.NewRasterRenderer(raster), sink, a.log)
	if err != nil {
		return err
	}
	builder.Simplifier = simplifier(cmd)

	build := func() error {
		req, err := loadRequest(args[0], args[1:])
		if err != nil {
			return err
		}
		res, err := builder.Build(req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d faces, atlas %dx%d, written to %s\n",
			req.Target.Name, len(res.Faces), res.Layout.Width, res.Layout.Height, cfg.Output.Dir)
		return nil
	}

	watch, _ := f.GetBool("watch")
	if !watch {
		return build()
	}
	if err := build(); err != nil {
		a.logLoadError(err)
	}

	w, err := watcher.New(watchDebounce, a.log)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch(args...); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	a.log.Info("watching inputs", zap.Strings("files", args))
	return w.Run(ctx, func(changed []string) {
		a.log.Info("inputs changed", zap.Strings("files", changed))
		if err := build(); err != nil {
			a.logLoadError(err)
		}
	})
}

// logLoadError logs failures the builder has not logged itself.
func (a *app) logLoadError(err error) {
	var e *impostor.Error
	if !errors.As(err, &e) {
		a.log.Error("cannot load inputs", zap.Error(err))
	}
}

func loadRequest(target string, sources []string) (impostor.BuildRequest, error) {
	req := impostor.BuildRequest{}
	obj, err := loadObject(target)
	if err != nil {
		return req, err
	}
	req.Target = obj
	for _, path := range sources {
		src, err := loadObject(path)
		if err != nil {
			return req, err
		}
		req.Sources = append(req.Sources, src)
	}
	return req, nil
}
