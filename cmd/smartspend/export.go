package main

import (
	"fmt"
	"path/filepath"

	"github.com/Veraticus/smartspend/internal/cli"
	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/config"
	"github.com/Veraticus/smartspend/internal/sheets"
	"github.com/spf13/cobra"
)

func defaultTokenFile() string {
	return filepath.Join(config.DefaultConfigDir(), "sheets_token.json")
}

func exportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger and budgets to Google Sheets",
		Long: `Write every ledger transaction and the per-category budget position to
a Google Sheets spreadsheet. The spreadsheet is created on first export
unless sheets.spreadsheet_id is set.

Authenticate with a service account (sheets.service_account_path) or run
'smartspend export auth' once to store an OAuth2 refresh token.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokenFile, _ := cmd.Flags().GetString("token-file")
			ctx := cmd.Context()

			sheetsCfg := opts.cfg.Sheets
			if sheetsCfg.RefreshToken == "" && sheetsCfg.ServiceAccountPath == "" {
				if token, err := sheets.LoadToken(tokenFile); err == nil {
					sheetsCfg.RefreshToken = token.RefreshToken
				}
			}
			if err := sheetsCfg.Validate(); err != nil {
				return common.NewUserError(cli.FormatError("Google Sheets is not configured: "+err.Error()+". Run 'smartspend export auth' first."), err)
			}

			a, err := buildApp(ctx, opts.cfg, wireLocal)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			writer, err := sheets.NewWriter(ctx, sheetsCfg, nil)
			if err != nil {
				return fmt.Errorf("failed to create sheets writer: %w", err)
			}

			spreadsheetID, err := sheets.Export(ctx, writer, a.ledger, a.policy)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess("Export complete"))
			fmt.Fprintf(out, "  https://docs.google.com/spreadsheets/d/%s\n", spreadsheetID)
			return nil
		},
	}

	cmd.PersistentFlags().String("token-file", defaultTokenFile(), "OAuth2 token file")
	cmd.AddCommand(exportAuthCmd(opts))

	return cmd
}

func exportAuthCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Sheets access with OAuth2",
		Long: `Open the Google consent page and store the resulting refresh token.

Requires sheets.client_id and sheets.client_secret (or GOOGLE_SHEETS_CLIENT_ID
and GOOGLE_SHEETS_CLIENT_SECRET) from a desktop OAuth2 client.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokenFile, _ := cmd.Flags().GetString("token-file")
			addr, _ := cmd.Flags().GetString("callback-addr")

			sheetsCfg := opts.cfg.Sheets
			if sheetsCfg.ClientID == "" || sheetsCfg.ClientSecret == "" {
				return common.NewUserError(
					cli.FormatError("sheets.client_id and sheets.client_secret are required for OAuth2"),
					common.MissingConfig("Google Sheets", "client_id/client_secret"))
			}

			token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
				ClientID:     sheetsCfg.ClientID,
				ClientSecret: sheetsCfg.ClientSecret,
				TokenFile:    tokenFile,
				CallbackAddr: addr,
			})
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}
			if token.RefreshToken == "" {
				return fmt.Errorf("authorization returned no refresh token; revoke the app's access and try again")
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Google Sheets authorized. Token stored in "+tokenFile))
			return nil
		},
	}

	cmd.Flags().String("callback-addr", "127.0.0.1:8080", "local address for the OAuth2 redirect")

	return cmd
}
