package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flywave/go-impostor/internal/config"
	"github.com/flywave/go-impostor/internal/logger"
)

// app is the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	logFile    string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "impostor",
		Short: "Bake detailed geometry into a textured low-poly impostor",
		Long: `impostor renders every face of a low-poly target from straight ahead,
packs the captures into one texture atlas and writes the textured target
as MST and glTF binary together with the atlas image.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Configuration file (default: ./impostor.yaml or the user config dir)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&a.logFile, "log-file", "", "Also write logs to this rotating file")

	root.AddCommand(newBuildCmd(a), newFacesCmd(a), newLayoutCmd(a), newConfigCmd(a))
	return root
}

// setup loads the configuration with priority defaults < file < flags and
// builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFile != "" {
		cfg.Logging.File = a.logFile
	}
	a.cfg = cfg
	a.log = logger.New(cfg.Logging.Level, cfg.Logging.File)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
