package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jot/bundle"
)

var watch bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Write the page with the service URL and key baked in to the dist directory",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		opts := bundle.Options{
			WebDir:  cfg.WebDir,
			DistDir: cfg.DistDir,
			URL:     cfg.URL,
			AnonKey: cfg.AnonKey,
		}

		if !watch {
			if err := bundle.Build(opts); err != nil {
				fatal("Build failed", err)
			}
			return
		}

		if opts.WebDir == "" {
			opts.WebDir = "web"
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := bundle.Watch(ctx, opts); err != nil {
			fatal("Watch failed", err)
		}
	},
}

func init() {
	buildCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild when files in the web directory change")
	rootCmd.AddCommand(buildCmd)
}
