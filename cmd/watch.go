// watch.go
// Copyright (C) Andrew Woodlee 2023
// License: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/environment"
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/logging"
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/notify"
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/status"
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/watcher"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	watchListen string

	watchCmd = &cobra.Command{
		Use:   "watch [flags]",
		Short: "Polls the configuration endpoint until stopped.",
		Long: `Watch polls the configuration endpoint at the configured frequency, merges the
result over the local configuration and optionally serves it over HTTP.`,
		Run: watch,
	}
)

func init() {
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "Address of the status server, overrides status.listen")
}

func watch(cmd *cobra.Command, args []string) {
	cfg, log, state := setup()
	if watchListen != "" {
		cfg.Status.Listen = watchListen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.Notify.RedisAddr != "" {
		publisher = notify.NewRedisPublisher(cfg.Notify.RedisAddr, cfg.Notify.Channel)
		log.Info().Str("redis", cfg.Notify.RedisAddr).Str("channel", cfg.Notify.Channel).Msg("Publishing configuration changes")
	}
	defer publisher.Close()

	env := environment.New(log)
	w := watcher.New(state, env, cfg.HTTP.Frequency,
		watcher.WithLocalProperties(cfg.Properties),
		watcher.WithFallback(cfg.HTTP.Fallback),
		watcher.WithPublisher(publisher),
		watcher.WithLogger(log),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Start(ctx)
	})

	if cfg.Status.Listen != "" {
		srv := status.NewServer(state, env, log)
		g.Go(func() error {
			return srv.Listen(cfg.Status.Listen)
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Shutdown()
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logging.ExitWithMSG(fmt.Sprintf("error: %v", err), 1, &log)
	}
}
