package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/commtamo10-tech/skatebaypublisher/internal/cli"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "skatectl",
		Short: "Operations tool for the skatebay publisher",
		Long: `skatectl inspects and configures a running skatebay publisher deployment.

It talks directly to the database configured via DATABASE_URL, so it can be
used to set marketplace policies before the first publish and to inspect
supported marketplaces and exchange rates.`,
	}

	rootCmd.AddCommand(cli.PoliciesCmd())
	rootCmd.AddCommand(cli.MarketplacesCmd())
	rootCmd.AddCommand(cli.RatesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
