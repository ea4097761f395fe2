package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/groupcart/catalog-cli/internal/seed"
)

var importFlags struct {
	path     string
	sheet    string
	category string
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import listings from an xlsx file into the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		records, err := seed.ReadXLSX(importFlags.path, seed.XLSXOptions{
			SheetName: importFlags.sheet,
			Category:  importFlags.category,
		})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return eris.Errorf("no importable listings in %s", importFlags.path)
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		written, err := st.UpsertListings(cmd.Context(), records)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int("parsed", len(records)),
			zap.Int("written", written),
			zap.String("file", importFlags.path),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFlags.path, "file", "", "path to xlsx file (required)")
	importCmd.Flags().StringVar(&importFlags.sheet, "sheet", "", "sheet name (default first sheet)")
	importCmd.Flags().StringVar(&importFlags.category, "category", "", "category leaf to tag imported listings with")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
