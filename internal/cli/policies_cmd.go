package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/commtamo10-tech/skatebaypublisher/internal/adapter/repo"
	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/ebay"
)

// PoliciesCmd returns the policies command group.
func PoliciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Inspect and set per-marketplace business policies",
	}
	cmd.AddCommand(policiesShowCmd())
	cmd.AddCommand(policiesSetCmd())
	return cmd
}

func policiesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the policy configuration of every supported marketplace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			runner, cleanup, err := connect(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			settings := repo.NewSettingsRepository(runner)

			ok := color.New(color.FgGreen).Sprint("CONFIGURED")
			missing := color.New(color.FgRed).Sprint("MISSING   ")
			partial := color.New(color.FgYellow).Sprint("INCOMPLETE")

			for _, mp := range ebay.AllMarketplaces() {
				policies, err := settings.MarketplacePolicies(ctx, mp.ID)
				switch {
				case errors.Is(err, domain.ErrNotConfigured):
					fmt.Printf("%s  %s\n", missing, mp.ID)
					continue
				case err != nil:
					return err
				}
				status := ok
				if !policies.Complete() {
					status = partial
				}
				fmt.Printf("%s  %s\n", status, mp.ID)
				fmt.Printf("            fulfillment: %s\n", policies.FulfillmentPolicyID)
				fmt.Printf("            payment:     %s\n", policies.PaymentPolicyID)
				fmt.Printf("            return:      %s\n", policies.ReturnPolicyID)
				fmt.Printf("            location:    %s\n", policies.LocationKey)
			}
			return nil
		},
	}
}

func policiesSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set MARKETPLACE_ID",
		Short: "Store the business policy identifiers for one marketplace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			marketplaceID := args[0]
			if _, ok := ebay.MarketplaceByID(marketplaceID); !ok {
				return fmt.Errorf("unsupported marketplace %q", marketplaceID)
			}
			fulfillment, _ := cmd.Flags().GetString("fulfillment")
			payment, _ := cmd.Flags().GetString("payment")
			returns, _ := cmd.Flags().GetString("return")
			location, _ := cmd.Flags().GetString("location")

			ctx := context.Background()
			runner, cleanup, err := connect(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			settings := repo.NewSettingsRepository(runner)

			policies := &domain.MarketplacePolicies{
				MarketplaceID:       marketplaceID,
				FulfillmentPolicyID: fulfillment,
				PaymentPolicyID:     payment,
				ReturnPolicyID:      returns,
				LocationKey:         location,
			}
			if err := settings.UpsertMarketplacePolicies(ctx, policies); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", color.New(color.FgGreen).Sprint("saved"), marketplaceID)
			if !policies.Complete() {
				fmt.Println(color.New(color.FgYellow).Sprint("warning: configuration is incomplete; publishing will fail"))
			}
			return nil
		},
	}
	cmd.Flags().String("fulfillment", "", "Fulfillment policy id")
	cmd.Flags().String("payment", "", "Payment policy id")
	cmd.Flags().String("return", "", "Return policy id")
	cmd.Flags().String("location", "", "Merchant location key")
	return cmd
}
