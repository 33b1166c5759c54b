package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"craftcloud/internal/payment"
	"craftcloud/internal/updater"

	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Buy credits",
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credit packages",
	Run: func(cmd *cobra.Command, args []string) {
		handleListPackages()
	},
}

var buyProvider string

var storeBuyCmd = &cobra.Command{
	Use:   "buy [package]",
	Short: "Open the checkout page for a credit package",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireSession()
		handleBuy(args[0], buyProvider)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for updates",
	Run: func(cmd *cobra.Command, args []string) {
		handleCheckUpdates()
	},
}

func init() {
	storeBuyCmd.Flags().StringVar(&buyProvider, "provider", payment.ProviderStripe, "Payment provider (stripe, paypal)")
	storeCmd.AddCommand(storeListCmd, storeBuyCmd)

	RootCmd.AddCommand(storeCmd, updateCmd)
}

func handleListPackages() {
	fmt.Println("\n--- CREDIT PACKAGES ---")
	for _, p := range payment.Packages {
		fmt.Printf("- %-13s %-13s %5d credits  $%.2f\n", p.ID, p.Name, p.Credits, p.PriceUSD)
	}
}

func handleBuy(packageID, provider string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url, err := payment.NewStore(Session, Logger).Buy(ctx, packageID, provider)
	if err != nil {
		if url != "" {
			fmt.Printf("Could not open a browser. Continue the payment here:\n%s\n", url)
			return
		}
		if errors.Is(err, payment.ErrUnknownPackage) || errors.Is(err, payment.ErrUnknownProvider) {
			log.Fatalf("Error: %v", err)
		}
		log.Fatalf("Payment failed: %v", err)
	}
	fmt.Printf("Redirecting to %s...\n", provider)
}

func handleCheckUpdates() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	info, err := updater.NewChecker().CheckForUpdates(ctx)
	if err != nil {
		log.Fatalf("Error checking updates: %v", err)
	}

	fmt.Println("\n--- UPDATE CHECK ---")
	fmt.Printf("Current version: %s\n", info.CurrentVersion)
	fmt.Printf("Latest version:  %s\n", info.LatestVersion)

	if info.UpdateAvailable {
		fmt.Println("\nUpdate available!")
		fmt.Printf("Download it here: %s\n", info.ReleaseURL)
	} else {
		fmt.Println("\nYou are up to date.")
	}
}
