package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/groupcart/catalog-cli/internal/export"
	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/store"
)

var exportFlags struct {
	out      string
	platform string
	category string
	limit    int
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored listings to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		platform, ok := model.ParsePlatform(exportFlags.platform)
		if !ok {
			return eris.Errorf("unknown platform %q", exportFlags.platform)
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := export.XLSX(cmd.Context(), st, store.Filter{
			Platform: platform,
			Category: exportFlags.category,
		}, exportFlags.limit, exportFlags.out)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d listings to %s\n", n, exportFlags.out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.out, "out", "listings.xlsx", "output file path")
	exportCmd.Flags().StringVar(&exportFlags.platform, "platform", "all", "platform selector (all, alibaba, aliexpress)")
	exportCmd.Flags().StringVar(&exportFlags.category, "category", "", "restrict to one category leaf")
	exportCmd.Flags().IntVar(&exportFlags.limit, "limit", 0, "cap exported rows (0 = all)")
	rootCmd.AddCommand(exportCmd)
}
