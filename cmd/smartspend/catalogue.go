package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/smartspend/internal/cli"
	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/spf13/cobra"
)

func catalogueCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogue",
		Short: "Inspect the product catalogue",
	}

	cmd.AddCommand(catalogueListCmd(opts))
	cmd.AddCommand(catalogueLookupCmd(opts))

	return cmd
}

func catalogueListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every catalogue product",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadCatalogue(opts.cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Catalogue (%d products)", c.Len())))
			for _, p := range c.Products() {
				bonus := ""
				if p.IsPromotional {
					bonus = " " + cli.FormatWarning("bonus")
				}
				fmt.Fprintf(out, "  %-20s %-40s %-12s %8s%s\n", p.Key, p.Name, p.Category, p.Price.StringFixed(2), bonus)
			}
			return nil
		},
	}
}

func catalogueLookupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup NAME",
		Short: "Resolve a receipt name the way a run would",
		Long: `Resolve NAME exactly as printed on the receipt. With --llm the LLM
fallback is consulted when the catalogue has no match and one is configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useLLM, _ := cmd.Flags().GetBool("llm")
			mode := wireLocal
			if useLLM {
				mode = wireFull
			}

			a, err := buildApp(cmd.Context(), opts.cfg, mode)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			product, err := a.lookup.LookupProduct(cmd.Context(), args[0])
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(cli.FormatWarning(fmt.Sprintf("%q is not in the catalogue; a run would file it under %q", args[0], model.UncategorizedCategory)), err)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(product.Name))
			fmt.Fprintf(out, "  Category: %s\n", product.Category)
			fmt.Fprintf(out, "  Price:    %s\n", product.Price.StringFixed(2))
			if product.IsPromotional {
				fmt.Fprintln(out, "  Bonus:    yes")
			}
			return nil
		},
	}

	cmd.Flags().Bool("llm", false, "consult the LLM fallback when configured")

	return cmd
}
