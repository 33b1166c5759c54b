package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"craftcloud/internal/config"
	"craftcloud/internal/domain"
	"craftcloud/internal/storage"
	"craftcloud/pkg/sdk"

	"github.com/spf13/cobra"
)

var (
	Client  *sdk.Client
	Session *sdk.Session
	Config  *config.Config
	Logger  *slog.Logger

	BaseURL   string
	ConfigDir string
	Ephemeral bool

	store   *storage.GormStore
	logFile *os.File
)

var RootCmd = &cobra.Command{
	Use:   "craftcloud",
	Short: "CLI for the CraftCloud game server panel",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
	Run: func(cmd *cobra.Command, args []string) {
		RunDashboard()
	},
}

func Execute() {
	RootCmd.PersistentFlags().StringVar(&BaseURL, "url", "", "URL of the CraftCloud API (overrides config)")
	RootCmd.PersistentFlags().StringVar(&ConfigDir, "config", "", "Configuration directory")
	RootCmd.PersistentFlags().BoolVar(&Ephemeral, "ephemeral", false, "Keep the session in memory only")

	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setup() {
	dir := ConfigDir
	if dir == "" {
		var err error
		dir, err = config.Dir()
		if err != nil {
			log.Fatalf("Error resolving config directory: %v", err)
		}
	}

	cfg, err := config.LoadConfig(dir)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if BaseURL != "" {
		cfg.APIURL = BaseURL
	}
	Config = cfg
	Logger = newLogger(cfg)

	var credentials domain.CredentialRepository
	if Ephemeral {
		credentials = sdk.NewMemoryStore("")
	} else {
		store, err = storage.NewGormStore(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Error opening credential store: %v", err)
		}
		credentials = store
	}

	Client, err = sdk.NewClient(sdk.ClientConfig{BaseURL: cfg.APIURL, Logger: Logger})
	if err != nil {
		log.Fatalf("Error creating client: %v", err)
	}
	Session, err = Client.NewSession(credentials)
	if err != nil {
		log.Fatalf("Error loading session: %v", err)
	}
}

func teardown() {
	if store != nil {
		store.Close()
	}
	if logFile != nil {
		logFile.Close()
	}
}

// newLogger writes to the log file so the dashboard keeps the terminal.
func newLogger(cfg *config.Config) *slog.Logger {
	options := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	file, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	logFile = file
	return slog.New(slog.NewTextHandler(file, options))
}

func requireSession() {
	if !Session.Active() {
		log.Fatal("Not logged in. Run 'craftcloud login <username>' first.")
	}
}
