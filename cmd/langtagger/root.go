package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var flags tagFlags

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "langtagger [root-path]",
		Short: "Tag media folders by audio language",
		Long: "langtagger walks a media library, reads each video's audio track metadata with ffprobe,\n" +
			"and adds language tags to the NFO sidecars Jellyfin, Kodi, and Emby read.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runTagging(cmd, ctx, root, flags)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().StringVarP(&flags.language, "language", "l", "", "Language profile code (default from config, \"de\")")
	rootCmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Report intended sidecar changes without writing anything")
	rootCmd.Flags().BoolVar(&flags.debug, "debug", false, "Log audio tracks, file names, and folder names while scanning")
	rootCmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Probe every file even when a cached result exists")
	rootCmd.Flags().BoolVar(&flags.json, "json", false, "Print the run summary as JSON")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newLanguagesCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}
