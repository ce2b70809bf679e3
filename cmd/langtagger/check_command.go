package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"langtagger/internal/preflight"
	"langtagger/internal/probecache"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [root-path]",
		Short: "Check ffprobe, directories, and the probe cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root := ""
			if len(args) == 1 {
				root = args[0]
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, "Dependencies:")
			results := preflight.RunAll(cmd.Context(), cfg, root, false)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			fmt.Fprintln(out, renderCacheLine(cmd.Context(), cfg.Cache.Enabled, cfg.Cache.Path, colorize))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func renderCacheLine(ctx context.Context, enabled bool, path string, colorize bool) string {
	if !enabled {
		return renderStatusLine("Probe cache", statusInfo, "disabled", colorize)
	}
	cache, err := probecache.OpenReadOnly(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return renderStatusLine("Probe cache", statusInfo, fmt.Sprintf("%s (not created yet)", path), colorize)
	}
	if err != nil {
		return renderStatusLine("Probe cache", statusWarn, fmt.Sprintf("%s (%v)", path, err), colorize)
	}
	defer cache.Close()
	n, err := cache.Len(ctx)
	if err != nil {
		return renderStatusLine("Probe cache", statusWarn, fmt.Sprintf("%s (%v)", path, err), colorize)
	}
	return renderStatusLine("Probe cache", statusOK, fmt.Sprintf("%s (%d entries)", path, n), colorize)
}
