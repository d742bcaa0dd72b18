package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/rtgui"
	"pkt.systems/rtgui/core"
	"pkt.systems/rtgui/internal/appconfig"
	"pkt.systems/rtgui/schema"
)

const stopTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var cfgPath string
	var demo bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the window coordinator until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			logger, closeLog, err := serveLogger(cmd.Context(), cfg.Logging)
			if err != nil {
				return err
			}
			defer closeLog()
			ctx := pslog.ContextWithLogger(cmd.Context(), logger)

			shell, err := rtgui.New(rtgui.ShellConfig{
				Core:            cfg.CoreConfig(),
				ClickToActivate: cfg.Input.ClickToActivate,
			}, rtgui.ShellDeps{Logger: logger}, rtgui.WithInput(), rtgui.WithTimers())
			if err != nil {
				return err
			}
			var demoThread *core.Thread
			if demo {
				demoThread, err = shell.NewThread("demo", rtgui.ThreadOptions{
					Renderer: core.RendererFunc(func(_ context.Context, top *core.Toplevel, req core.PaintRequest) error {
						logger.Info("demo paint", "wid", top.ID(), "rects", len(req.Clip), "full", req.Full)
						return nil
					}),
				})
				if err != nil {
					return err
				}
			}
			if err := shell.Start(ctx); err != nil {
				return err
			}
			if demoThread != nil {
				if err := startDemo(ctx, demoThread, shell.Config().Screen); err != nil {
					logger.Warn("demo start failed", "err", err)
				}
			}

			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := shell.Stop(stopCtx); err != nil {
				return err
			}
			return shell.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config path (default ~/.rtgui/config.yaml)")
	cmd.Flags().BoolVar(&demo, "demo", false, "open a demo window on a demo thread")
	return cmd
}

func startDemo(ctx context.Context, th *core.Thread, screen schema.Rect) error {
	rect := schema.R(0, 0, screen.Dx()/2, screen.Dy()/2).Add(screen.Min)
	top, err := th.CreateWindow(ctx, schema.DefaultGroup, rect, "demo")
	if err != nil {
		return err
	}
	if err := th.Client().Show(ctx, top.ID()); err != nil {
		return err
	}
	return th.Client().Activate(ctx, top.ID())
}

// serveLogger returns the context logger, or a structured file logger when
// logging.file is set.
func serveLogger(ctx context.Context, cfg appconfig.LoggingConfig) (pslog.Logger, func(), error) {
	if cfg.File == "" {
		return pslog.Ctx(ctx), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := pslog.NewWithOptions(f, pslog.Options{
		Mode:     pslog.ModeStructured,
		NoColor:  true,
		MinLevel: pslog.InfoLevel,
	})
	return logger, func() { _ = f.Close() }, nil
}
