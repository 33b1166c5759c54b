package cmd

import (
	"fmt"
	"log"

	"craftcloud/internal/catalog"
	"craftcloud/internal/cli/ui"
	"craftcloud/internal/dashboard"

	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the live dashboard",
	Run: func(cmd *cobra.Command, args []string) {
		RunDashboard()
	},
}

func init() {
	RootCmd.AddCommand(dashboardCmd)
}

func RunDashboard() {
	requireSession()

	result, err := ui.RunDashboard(ui.Options{
		Session:   Session,
		Refresher: dashboard.NewOrchestrator(Session, Logger),
		Catalog:   catalog.Default(),
		Interval:  Config.HeartbeatInterval(),
		Logger:    Logger,
	})
	if err != nil {
		log.Fatalf("Error running dashboard: %v", err)
	}
	if result.SessionExpired {
		fmt.Println("Session expired, please login again.")
	}
}
