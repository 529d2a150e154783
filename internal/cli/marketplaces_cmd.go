package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/commtamo10-tech/skatebaypublisher/internal/ebay"
	"github.com/commtamo10-tech/skatebaypublisher/internal/pricing"
)

// MarketplacesCmd lists the supported marketplaces.
func MarketplacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "marketplaces",
		Short: "List supported marketplaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			bold := color.New(color.Bold)
			bold.Printf("%-10s %-15s %-5s %-9s %-9s %s\n", "ID", "NAME", "SITE", "CURRENCY", "LANGUAGE", "DEFAULT")
			for _, mp := range ebay.AllMarketplaces() {
				fmt.Printf("%-10s %-15s %-5s %-9s %-9s %s\n", mp.ID, mp.Name, mp.SiteID, mp.Currency, mp.Language,
					pricing.FormatPrice(mp.DefaultPrice, mp.Currency, mp.Language))
			}
			return nil
		},
	}
}

// RatesCmd fetches and prints the current EUR-based exchange rates.
func RatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Fetch the current EUR-based exchange rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := pricing.NewStore(pricing.Options{})
			live := true
			if err := store.Refresh(context.Background()); err != nil {
				fmt.Println(color.New(color.FgYellow).Sprintf("feed unavailable (%v), showing fallback rates", err))
				live = false
			}
			rates := store.Rates(context.Background())

			currencies := make([]string, 0, len(rates))
			for cur := range rates {
				currencies = append(currencies, cur)
			}
			sort.Strings(currencies)
			for _, cur := range currencies {
				fmt.Printf("%s  %.4f\n", cur, rates[cur])
			}
			if live {
				fmt.Printf("fetched at %s\n", store.FetchedAt().Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}
