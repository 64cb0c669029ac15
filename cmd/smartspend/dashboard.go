package main

import (
	"github.com/Veraticus/smartspend/internal/tui"
	"github.com/Veraticus/smartspend/internal/tui/themes"
	"github.com/spf13/cobra"
)

func dashboardCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Watch category spend against budgets in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			themeName, _ := cmd.Flags().GetString("theme")
			refresh, _ := cmd.Flags().GetDuration("refresh")

			a, err := buildApp(cmd.Context(), opts.cfg, wireLocal)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return tui.Run(cmd.Context(), a.controller,
				tui.WithTheme(themes.ByName(themeName)),
				tui.WithRefreshInterval(refresh))
		},
	}

	cmd.Flags().String("theme", "default", "color theme (default, catppuccin-mocha)")
	cmd.Flags().Duration("refresh", 0, "reload totals at this interval (0 disables)")

	return cmd
}
