package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"craftcloud/internal/catalog"
	"craftcloud/internal/dashboard"
	"craftcloud/internal/deploy"
	"craftcloud/internal/domain"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage servers",
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all servers with live usage",
	Run: func(cmd *cobra.Command, args []string) {
		requireSession()
		handleList()
	},
}

var serverStartCmd = &cobra.Command{
	Use:   "start [id]",
	Short: "Start a server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireSession()
		handlePower(args[0], "start")
	},
}

var serverStopCmd = &cobra.Command{
	Use:   "stop [id]",
	Short: "Stop a server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireSession()
		handlePower(args[0], "stop")
	},
}

var deployConfig map[string]string

var serverDeployCmd = &cobra.Command{
	Use:   "deploy [template]",
	Short: "Deploy a new server from a game template",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireSession()
		handleDeploy(args[0], deployConfig)
	},
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List deployable game templates",
	Run: func(cmd *cobra.Command, args []string) {
		handleTemplates()
	},
}

func init() {
	serverDeployCmd.Flags().StringToStringVar(&deployConfig, "set", nil, "Template setting KEY=VALUE (repeatable)")

	serverCmd.AddCommand(serverListCmd, serverStartCmd, serverStopCmd, serverDeployCmd)
	RootCmd.AddCommand(serverCmd, templatesCmd)
}

func newOrchestrator() *dashboard.Orchestrator {
	return dashboard.NewOrchestrator(Session, Logger)
}

func handleList() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	printSnapshot(newOrchestrator().Refresh(ctx))
}

func printSnapshot(snap domain.Snapshot) {
	if snap.User != nil {
		fmt.Printf("User: %s  |  Credits: %.2f\n", snap.User.Username, snap.User.Credits)
	}
	fmt.Println("Servers:")
	if len(snap.Servers) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, s := range snap.Servers {
		usage := "-"
		if u, ok := s.Usage(); ok {
			usage = fmt.Sprintf("CPU %.1f%%  RAM %.1f%%  Players %d", u.CPU, u.RAM, u.Players)
		}
		fmt.Printf("- %s (%s) [%s] %s\n", s.Name, s.ID, s.Status, usage)
	}
}

func handlePower(id, action string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ack, err := Session.Power(ctx, id, action)
	if err != nil {
		log.Fatalf("Error sending %s: %v", action, err)
	}
	fmt.Printf("%s command sent (%s).\n", action, ack.Status)
}

func handleDeploy(templateID string, overrides map[string]string) {
	games := catalog.Default()
	template, ok := games.Get(templateID)
	if !ok {
		log.Fatalf("Unknown template %q. Run 'craftcloud templates' to see the catalog.", templateID)
	}

	settings := template.Defaults()
	for k, v := range overrides {
		settings[k] = v
	}

	// One out-of-band refresh after success prints the updated fleet.
	refresher := dashboard.NewHeartbeat(dashboard.HeartbeatConfig{
		Refresher: newOrchestrator(),
		Sink:      printSnapshot,
		Logger:    Logger,
	})
	tracker := deploy.NewTracker(deploy.TrackerConfig{
		Catalog:   games,
		Deployer:  Session,
		Refresher: refresher,
		Observer: func(tr deploy.Transition) {
			fmt.Printf("[%s] %s -> %s\n", tr.TemplateID, tr.From, tr.To)
		},
		Logger: Logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	attempt, err := tracker.Trigger(ctx, templateID, settings)
	if err != nil {
		var missing *catalog.MissingConfigError
		if errors.As(err, &missing) {
			log.Fatalf("Missing settings for %s: %v", templateID, missing.Keys)
		}
		log.Fatalf("Error deploying %s: %v", templateID, err)
	}
	fmt.Printf("%s deployed! Container: %s\n", template.Name, attempt.Ack.ContainerID)
	refresher.Wait()
}

func handleTemplates() {
	fmt.Println("\n--- GAME CATALOG ---")
	for _, t := range catalog.Default().All() {
		fmt.Printf("%s %-10s %-12s version %s\n", t.Icon, t.ID, t.Name, t.Version)
		if !t.Configurable() {
			continue
		}
		fields := append([]catalog.Field(nil), t.Fields...)
		sort.SliceStable(fields, func(i, j int) bool { return fields[i].Required && !fields[j].Required })
		for _, f := range fields {
			marker := " "
			if f.Required {
				marker = "*"
			}
			fmt.Printf("    %s %-28s default %q\n", marker, f.Key, f.Default)
		}
	}
}
