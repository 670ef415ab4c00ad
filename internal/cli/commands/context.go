// Package commands implements the posted subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/PhilippVerpoort/posted-sub000/internal/aggregate"
	"github.com/PhilippVerpoort/posted-sub000/internal/config"
	"github.com/PhilippVerpoort/posted-sub000/internal/engine"
	"github.com/PhilippVerpoort/posted-sub000/internal/registry"
)

// CommandContext bundles what every command needs: the resolved config,
// the definition registry, and an engine over it.
type CommandContext struct {
	Cfg    *config.Config
	Engine *engine.Engine
	Logger *slog.Logger
}

// NewCommandContext loads configuration and constructs the engine.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	defs, err := registry.Load(cfg.DefinitionsDir)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}

	var masks []aggregate.Mask
	for _, path := range cfg.MaskFiles {
		ms, err := aggregate.LoadMasks(path)
		if err != nil {
			return nil, err
		}
		masks = append(masks, ms...)
	}

	return &CommandContext{
		Cfg: cfg,
		Engine: engine.New(engine.Config{
			Registry: defs,
			Masks:    masks,
			Logger:   logger,
		}),
		Logger: logger,
	}, nil
}

// outputFormat resolves the render format: command flag over config.
func (c *CommandContext) outputFormat(cmd *cobra.Command) string {
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		return f
	}
	if c.Cfg.OutputFormat != "" {
		return c.Cfg.OutputFormat
	}
	return config.DefaultOutput
}

// exists reports whether a path exists; used for friendlier errors before
// handing files to the loader.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
