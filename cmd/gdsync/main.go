package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gdsync/internal/app"
	"gdsync/internal/config"
	"gdsync/internal/gdsync"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the config file named by the environment defaults.
func loadConfig() (*app.Defaults, *config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	return defaults, cfg, nil
}

var rootCmd = &cobra.Command{
	Use:          "gdsync",
	Short:        "Two-way sync between a local folder and a cloud folder",
	SilenceUsage: true,
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize a local folder with a remote folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, _ := cmd.Flags().GetString("folder")
		remoteID, _ := cmd.Flags().GetString("remote-folder-id")
		pullOnly, _ := cmd.Flags().GetBool("pull-only")
		noIndex, _ := cmd.Flags().GetBool("no-index")
		verbose, _ := cmd.Flags().GetBool("verbose")

		defaults, cfg, err := loadConfig()
		if err != nil {
			return err
		}

		params := app.SyncParams{
			Folder:         folder,
			RemoteFolderID: remoteID,
			PullOnly:       pullOnly,
			NoIndex:        noIndex,
			Verbose:        verbose,
			Passphrase: func() (string, error) {
				return app.ReadPassphrase(defaults.Passphrase, "Passphrase: ", false)
			},
			Reporter: app.NewConsoleReporter(cmd.OutOrStdout(), verbose),
		}
		if term.IsTerminal(int(os.Stderr.Fd())) {
			params.Progress = app.NewConsoleProgress(os.Stderr)
		}

		a, err := app.NewGDApp(cmd.Context(), cfg, params)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Sync(cmd.Context())
		if summary != nil {
			fmt.Fprintln(cmd.OutOrStdout(), app.FormatSummary(summary))
		}
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		cfg.Sync.Folder, _ = cmd.Flags().GetString("folder")
		cfg.Sync.RemoteFolderID, _ = cmd.Flags().GetString("remote-folder-id")

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		fmt.Printf("Remote:   %s (credentials: %s)\n", cfg.Remote.Type, cfg.Remote.DriveCredentialsPath)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Index:       %s %s\n", cfg.Index.Type, cfg.Index.DataDir)
		fmt.Printf("Remote:      %s\n", cfg.Remote.Type)
		switch cfg.Remote.Type {
		case "drive":
			fmt.Printf("  credentials: %s\n", cfg.Remote.DriveCredentialsPath)
		case "s3":
			fmt.Printf("  bucket:      %s\n", cfg.Remote.S3Bucket)
			fmt.Printf("  prefix:      %s\n", cfg.Remote.S3Prefix)
			if cfg.Remote.S3Endpoint != "" {
				fmt.Printf("  endpoint:    %s\n", cfg.Remote.S3Endpoint)
			}
		case "filesystem":
			fmt.Printf("  root:        %s\n", cfg.Remote.FSRoot)
		}
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		fmt.Printf("Log Dir:     %s (%s)\n", cfg.Log.Dir, cfg.Log.Level)
		if cfg.Sync.Folder != "" || cfg.Sync.RemoteFolderID != "" {
			fmt.Printf("Sync:        %s <-> %s\n", cfg.Sync.Folder, cfg.Sync.RemoteFolderID)
		}
		return nil
	},
}

var configKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, cfg, err := loadConfig()
		if err != nil {
			return err
		}

		passphrase, err := app.ReadPassphrase(defaults.Passphrase, "New passphrase: ", true)
		if err != nil {
			return err
		}
		if err := app.Keygen(cfg, passphrase); err != nil {
			return err
		}

		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the sync index",
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked files",
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, _ := cmd.Flags().GetString("folder")
		remoteID, _ := cmd.Flags().GetString("remote-folder-id")

		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}

		records, err := app.ListRecords(cfg, folder, remoteID)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No files tracked.")
			return nil
		}

		for _, r := range records {
			fmt.Printf("%s  %s  %s\n", r.LastSyncedModified.Local().Format("2006-01-02 15:04:05.000"), r.RemoteID, r.LocalPath)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View sync run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, _ := cmd.Flags().GetString("folder")
		remoteID, _ := cmd.Flags().GetString("remote-folder-id")
		limit, _ := cmd.Flags().GetInt("limit")

		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}

		runs, err := app.ListRuns(cfg, folder, remoteID, limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No sync runs recorded.")
			return nil
		}

		for _, run := range runs {
			duration := ""
			if run.FinishedAt != nil {
				duration = run.FinishedAt.Sub(run.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %s  %-8s  %-10s  %s\n",
				run.ID,
				run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				run.Status,
				duration,
				app.FormatSummary(&gdsync.Summary{Counts: run.Counts}),
			)
		}
		return nil
	},
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("folder", "", "Local folder to sync (defaults to [sync] folder)")
	cmd.Flags().String("remote-folder-id", "", "Remote folder id (defaults to [sync] remote_folder_id)")
}

func init() {
	// sync
	addTargetFlags(syncCmd)
	syncCmd.Flags().Bool("pull-only", false, "Only copy remote changes to the local folder")
	syncCmd.Flags().Bool("no-index", false, "Do not read or write the sync index")
	syncCmd.Flags().BoolP("verbose", "v", false, "Log debug detail and report skipped files")

	// config subcommands
	addTargetFlags(configInitCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeygenCmd)

	// index subcommands
	addTargetFlags(indexListCmd)
	indexCmd.AddCommand(indexListCmd)

	// history
	addTargetFlags(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(historyCmd)
}
