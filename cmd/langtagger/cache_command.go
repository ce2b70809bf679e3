package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"langtagger/internal/probecache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Probe cache maintenance",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Remove cached probe results for files that no longer exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Cache.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Probe cache is disabled")
				return nil
			}
			cache, err := probecache.Open(cmd.Context(), cfg.Cache.Path)
			if err != nil {
				return fmt.Errorf("open probe cache: %w", err)
			}
			defer cache.Close()
			removed, err := cache.PruneMissing(cmd.Context())
			if err != nil {
				return err
			}
			remaining, err := cache.Len(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale entries; %d remain in %s\n", removed, remaining, cfg.Cache.Path)
			return nil
		},
	})
	return cacheCmd
}
