package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"langtagger/internal/tagger"
)

func newLanguagesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List language profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := tagger.ProfileRegistry(cfg)
			if err != nil {
				return fmt.Errorf("language profiles: %w", err)
			}
			profiles := registry.Profiles()
			if asJSON {
				return writeJSON(cmd, profiles)
			}
			rows := make([][]string, 0, len(profiles))
			for _, p := range profiles {
				_, custom := cfg.Languages[p.Code]
				def := ""
				if p.Code == cfg.Tagging.DefaultLanguage {
					def = "*"
				}
				rows = append(rows, []string{
					p.Code + def,
					p.Name,
					quoteList(p.SearchPatterns),
					strings.Join(p.TagsToAdd, ", "),
					yesNo(custom),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("", []string{"Code", "Name", "Search patterns", "Tags", "Configured"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print profiles as JSON")
	return cmd
}

// quoteList shows patterns quoted so trailing spaces stay visible.
func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, " ")
}
