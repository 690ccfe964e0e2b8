package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/skosovsky/toolbox"
	"github.com/skosovsky/toolbox/internal/config"
)

const shutdownTimeout = 5 * time.Second

type app struct {
	configPath string
	logCalls   bool
	logger     *slog.Logger
	reg        *toolbox.Registry
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "toolbox",
		Short: "Inspect and call registered LLM tools",
		Long: `toolbox exposes the tools compiled into this binary.

  toolbox tools                   List tool names and descriptions
  toolbox declarations            Print function declarations as JSON
  toolbox call NAME [ARGS]        Call one tool with JSON arguments
  toolbox call < calls.jsonl      Call a batch of {"id","name","arguments"} lines`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().BoolVar(&a.logCalls, "log-calls", false, "Log every tool call to stderr")

	root.AddCommand(a.toolsCmd(), a.declarationsCmd(), a.callCmd())
	return root, a
}

// execute runs the command tree and then shuts the registry down. Cobra skips
// post-run hooks when RunE fails, so the shutdown lives here.
func execute(ctx context.Context, root *cobra.Command, a *app) error {
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close(context.WithoutCancel(ctx)))
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	opts := append(cfg.RegistryOptions(), toolbox.WithOnAfterCall(func(ctx context.Context, o toolbox.Outcome) {
		a.logger.DebugContext(ctx, "call finished",
			"id", o.Call.ID, "tool", o.Call.Name, "duration", o.Duration, "failed", o.Err != nil)
	}))
	reg, err := toolbox.CollectAll(opts...)
	if err != nil {
		return fmt.Errorf("collect tools: %w", err)
	}
	if cfg.Log.ToolCalls || a.logCalls {
		reg.Use(toolbox.WithLogging(a.logger))
	}
	a.reg = reg
	return nil
}

func (a *app) close(ctx context.Context) error {
	if a.reg == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return a.reg.Shutdown(ctx)
}
