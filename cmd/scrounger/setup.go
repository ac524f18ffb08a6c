package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vanastassiou/scrounger-sub002/internal/config"
	"github.com/vanastassiou/scrounger-sub002/internal/remote"
	"github.com/vanastassiou/scrounger-sub002/internal/ui"
)

var (
	setupProvider    string
	setupFolder      string
	setupCredentials string
	setupAuthCode    string
	setupNoAuto      bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure remote sync",
	Long: `Configure remote sync and write the config file.

Google Drive needs a one-time authorization: download an OAuth client
secret JSON from the Google Cloud console, point setup at it, and paste the
code Google shows after you approve access. The granted token is cached
next to the database.

Run interactively in a terminal, or pass --provider and friends in
scripts.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		flagged := cmd.Flags().Changed("provider") || cmd.Flags().Changed("folder") ||
			cmd.Flags().Changed("credentials")
		switch {
		case flagged:
			applySetupFlags(cmd, cfg)
		case ui.IsTTY():
			runSetupForm(cfg)
		default:
			fmt.Fprintf(os.Stderr, "Error: no terminal; pass --provider, --folder, and --credentials\n")
			os.Exit(1)
		}

		if cfg.Remote.Provider == "drive" {
			if err := authorizeDrive(ctx, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Error authorizing Drive: %v\n", err)
				os.Exit(1)
			}
		}

		path := configPath
		if path == "" {
			path = cfg.Path()
		}
		if err := cfg.Write(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", ui.Accent(path))

		if cfg.SyncConfigured() {
			fmt.Printf("Run %s to push this device, or %s on a device that already has data\n",
				ui.Accent("scrounger sync"), ui.Accent("scrounger sync --restore"))
		} else {
			fmt.Println("Local-only mode; run setup again to enable sync later")
		}
	},
}

// applySetupFlags configures from flags for scripted setup.
func applySetupFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("provider") {
		cfg.Remote.Provider = setupProvider
	}
	if cmd.Flags().Changed("folder") {
		cfg.Remote.Folder = setupFolder
	}
	if cmd.Flags().Changed("credentials") {
		cfg.Remote.CredentialsFile = setupCredentials
	}
	cfg.Sync.Auto = !setupNoAuto

	if cfg.Remote.Provider != "drive" && cfg.Remote.Provider != "none" {
		fmt.Fprintf(os.Stderr, "Error: --provider must be drive or none\n")
		os.Exit(1)
	}
}

// runSetupForm walks the operator through the choices interactively.
func runSetupForm(cfg *config.Config) {
	if cfg.Remote.Provider == "" {
		cfg.Remote.Provider = "drive"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Sync provider").
				Description("None keeps everything on this device").
				Options(
					huh.NewOption("Google Drive", "drive"),
					huh.NewOption("None (local only)", "none"),
				).
				Value(&cfg.Remote.Provider),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Remote folder name").
				Description("Created at the top of your Drive if missing").
				Value(&cfg.Remote.Folder),
			huh.NewInput().
				Title("OAuth credentials file").
				Description("Client secret JSON from the Google Cloud console").
				Value(&cfg.Remote.CredentialsFile),
			huh.NewConfirm().
				Title("Sync automatically after edits?").
				Value(&cfg.Sync.Auto),
		).WithHideFunc(func() bool { return cfg.Remote.Provider != "drive" }),
	)

	if err := form.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// authorizeDrive runs the OAuth flow unless a cached token already exists.
func authorizeDrive(ctx context.Context, cfg *config.Config) error {
	if _, err := os.Stat(cfg.Remote.CredentialsFile); err != nil {
		return fmt.Errorf("credentials file %s: %w", cfg.Remote.CredentialsFile, err)
	}
	if _, err := os.Stat(cfg.Remote.TokenFile); err == nil {
		fmt.Println("Using cached Drive token")
		return nil
	}

	url, err := remote.AuthURL(cfg.Remote.CredentialsFile)
	if err != nil {
		return err
	}

	fmt.Printf("\nOpen this link and approve access:\n\n  %s\n\n", url)

	code := setupAuthCode
	if code == "" {
		if !ui.IsTTY() {
			return fmt.Errorf("no terminal to prompt for the code; pass --auth-code")
		}
		err := huh.NewInput().
			Title("Authorization code").
			Description("Paste the code Google shows after approval").
			Value(&code).
			Run()
		if err != nil {
			return err
		}
	}

	if err := remote.ExchangeCode(ctx, cfg.Remote.CredentialsFile, cfg.Remote.TokenFile, code); err != nil {
		return err
	}
	fmt.Printf("%s Drive authorized\n", ui.Good("OK:"))
	return nil
}

func init() {
	setupCmd.Flags().StringVar(&setupProvider, "provider", "", "drive or none")
	setupCmd.Flags().StringVar(&setupFolder, "folder", "", "remote folder name")
	setupCmd.Flags().StringVar(&setupCredentials, "credentials", "", "OAuth client secret JSON path")
	setupCmd.Flags().StringVar(&setupAuthCode, "auth-code", "", "authorization code (skips the prompt)")
	setupCmd.Flags().BoolVar(&setupNoAuto, "no-auto", false, "disable automatic sync after edits")
	rootCmd.AddCommand(setupCmd)
}
