package main

import (
	"encoding/json"
	"fmt"

	"github.com/Veraticus/smartspend/internal/cli"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func totalsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Show cumulative spend per category against its budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			a, err := buildApp(cmd.Context(), opts.cfg, wireLocal)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			totals, err := a.controller.CumulativeCategoryTotals(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read totals: %w", err)
			}
			lines := budgetLines(totals, a.policy)

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(lines)
			}

			if totals.Len() == 0 {
				fmt.Fprintln(out, cli.FormatInfo("The ledger is empty. Process a receipt with 'smartspend run'."))
				return nil
			}
			fmt.Fprintln(out, cli.FormatTitle("Cumulative spend"))
			fmt.Fprintln(out, cli.RenderBudgetTable(lines, true))
			fmt.Fprintf(out, "Total: %s\n", model.FormatEuro(totals.Total()))
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print totals as JSON")

	return cmd
}

type limitClassifier interface {
	LimitFor(category string) decimal.Decimal
	Classify(category string, spent decimal.Decimal) model.AlertTier
}

// budgetLines pairs each category total with its limit and tier, in ledger order.
func budgetLines(totals model.CategoryTotals, limits limitClassifier) []cli.BudgetLine {
	lines := make([]cli.BudgetLine, 0, totals.Len())
	totals.Each(func(category string, spent decimal.Decimal) {
		lines = append(lines, cli.BudgetLine{
			Category: category,
			Tier:     limits.Classify(category, spent),
			Spent:    spent,
			Limit:    limits.LimitFor(category),
		})
	})
	return lines
}
