package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/search"
)

var searchFlags struct {
	platform string
	offset   int
	limit    int
	minPrice float64
	maxPrice float64
	minMOQ   int
	maxMOQ   int
	headless bool
	nocache  bool
	debug    bool
	asJSON   bool
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search marketplaces and print the filtered listings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		platform, ok := model.ParsePlatform(searchFlags.platform)
		if !ok {
			return eris.Errorf("unknown platform %q", searchFlags.platform)
		}

		svc := initSearchService()
		result, err := svc.Search(cmd.Context(), search.Params{
			Q:        args[0],
			Platform: platform,
			Offset:   searchFlags.offset,
			Limit:    searchFlags.limit,
			MinPrice: searchFlags.minPrice,
			MaxPrice: searchFlags.maxPrice,
			MinMOQ:   searchFlags.minMOQ,
			MaxMOQ:   searchFlags.maxMOQ,
			Headless: searchFlags.headless,
			NoCache:  searchFlags.nocache,
			Debug:    searchFlags.debug,
		})
		if err != nil {
			return err
		}

		if searchFlags.asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		return printListings(cmd.OutOrStdout(), result)
	},
}

func printListings(w io.Writer, result *search.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLATFORM\tPRICE\tMOQ\tTITLE\tURL")
	for _, item := range result.Items {
		price := "-"
		if item.ParsedPrice != nil {
			price = fmt.Sprintf("%.2f", *item.ParsedPrice)
		}
		moq := "-"
		if item.ParsedMOQ != nil {
			moq = fmt.Sprintf("%d", *item.ParsedMOQ)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			item.Platform, price, moq, truncate(item.Title, 60), item.CanonicalURL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d of %d listings\n", len(result.Items), result.Total)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	searchCmd.Flags().StringVar(&searchFlags.platform, "platform", "all", "platform selector (all, alibaba, aliexpress)")
	searchCmd.Flags().IntVar(&searchFlags.offset, "offset", 0, "pagination offset")
	searchCmd.Flags().IntVar(&searchFlags.limit, "limit", 0, "page size (default from config)")
	searchCmd.Flags().Float64Var(&searchFlags.minPrice, "min-price", 0, "minimum parsed price")
	searchCmd.Flags().Float64Var(&searchFlags.maxPrice, "max-price", 0, "maximum parsed price")
	searchCmd.Flags().IntVar(&searchFlags.minMOQ, "min-moq", 0, "minimum order quantity floor")
	searchCmd.Flags().IntVar(&searchFlags.maxMOQ, "max-moq", 0, "maximum order quantity ceiling")
	searchCmd.Flags().BoolVar(&searchFlags.headless, "headless", false, "route HTML fetches through the rendering proxy")
	searchCmd.Flags().BoolVar(&searchFlags.nocache, "nocache", false, "bypass the result cache")
	searchCmd.Flags().BoolVar(&searchFlags.debug, "debug", false, "include cache metadata in the result")
	searchCmd.Flags().BoolVar(&searchFlags.asJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(searchCmd)
}
