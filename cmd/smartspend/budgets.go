package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/smartspend/internal/cli"
	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func budgetsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Show or change category budgets",
	}

	cmd.AddCommand(budgetsListCmd(opts))
	cmd.AddCommand(budgetsSetCmd(opts))

	return cmd
}

func budgetsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the budget limit for every category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd.Context(), opts.cfg, wireLocal)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			limits := a.controller.Budgets()
			categories := make([]string, 0, len(limits))
			width := len("Category")
			for category := range limits {
				categories = append(categories, category)
				width = max(width, len(category))
			}
			sort.Strings(categories)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Budgets"))
			for _, category := range categories {
				fmt.Fprintf(out, "  %-*s  %s\n", width, category, limits[category].StringFixed(2))
			}
			fmt.Fprintf(out, "  %-*s  %s\n", width, "(other)", a.policy.LimitFor("").StringFixed(2))
			return nil
		},
	}
}

func budgetsSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set CATEGORY AMOUNT",
		Short: "Set and persist the budget limit for a category",
		Example: `  smartspend budgets set Alcohol 30
  smartspend budgets set "Dairy" 45.50`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := strings.TrimSpace(args[0])
			if category == "" {
				return common.NewUserError(cli.FormatError("category must not be empty"), common.ErrInvalidConfig)
			}
			limit, err := decimal.NewFromString(strings.TrimSpace(args[1]))
			if err != nil {
				return common.NewUserError(cli.FormatError(fmt.Sprintf("%q is not an amount", args[1])), err)
			}

			a, err := buildApp(cmd.Context(), opts.cfg, wireLocal)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.controller.SetBudget(cmd.Context(), category, limit); err != nil {
				return common.NewUserError(cli.FormatError(err.Error()), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s budget set to %s", category, model.FormatEuro(limit))))
			return nil
		},
	}
}
