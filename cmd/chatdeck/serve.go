package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/chatdeck"
	"pkt.systems/chatdeck/httpapi"
	"pkt.systems/chatdeck/internal/appconfig"
	"pkt.systems/chatdeck/internal/frames"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var headless bool
	var noBrowser bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chatdeck shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if headless {
				cfg.Frames.Headless = true
			}

			serverCfg := chatdeck.ServerConfig{
				Shell:    cfg.ShellConfig(),
				StateDir: cfg.StateDir,
				Frames: frames.Config{
					AppURL:       cfg.App.URL,
					FramePrefix:  cfg.Frames.NamePrefix,
					ChromePath:   cfg.Frames.ChromePath,
					Headless:     cfg.Frames.Headless,
					UserDataDir:  cfg.Frames.UserDataDir,
					WindowWidth:  cfg.Frames.WindowWidth,
					WindowHeight: cfg.Frames.WindowHeight,
				},
				HTTP: httpapi.Config{
					Addr:               cfg.HTTP.Addr,
					DeterministicReady: cfg.QuickEntry.DeterministicReady,
				},
				HubHistory: 1000,
			}

			opts := []chatdeck.ServerOption{chatdeck.WithHTTP()}
			if !noBrowser {
				opts = append(opts, chatdeck.WithBrowser())
			}
			server, err := chatdeck.New(serverCfg, chatdeck.ServerDeps{Logger: logger}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("control api listening", "addr", serverCfg.HTTP.Addr)
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser host headless")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "serve the control API without launching a browser")
	return cmd
}
