package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pstalker/internal/app"
	"pstalker/internal/config"
	"pstalker/internal/platform"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when none
// has been written yet.
func loadConfig() (*config.Config, app.Defaults, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, app.Defaults{}, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults.ConfigPath, defaults.BaseDir)
	if err != nil {
		return nil, defaults, fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults, nil
}

// newApp reads the config and creates a TrackerApp. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Report", "RestoreBackup").
func newApp(cmd *cobra.Command, operation string, opts app.Options) (*app.TrackerApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewTrackerApp(cmd.Context(), cfg, operation, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "pstalker",
	Short:        "Track how long you spend in each application",
	SilenceUsage: true,
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

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults.BaseDir)

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Fprintf(out, "Host ID:  %s\n", hostID)
		fmt.Fprintf(out, "Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration from %s:\n\n", defaults.ConfigPath)
		renderConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracking status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Status", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Status(cmd.Context())
		if err != nil {
			return err
		}
		renderStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

func setTrackingCmd(use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, "SetTrackingEnabled", app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.SetTrackingEnabled(cmd.Context(), enabled); err != nil {
				return err
			}
			if enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Tracking enabled.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Tracking disabled.")
			}
			return nil
		},
	}
}

var (
	enableCmd  = setTrackingCmd("enable", "Resume recording usage", true)
	disableCmd = setTrackingCmd("disable", "Pause recording usage", false)
)

// track command
var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Sample the focused application until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		a, err := newApp(cmd, "Track", app.Options{LogMirror: cmd.ErrOrStderr()})
		if err != nil {
			return err
		}
		defer a.Close()

		detector := platform.New()
		defer detector.Close()

		return a.Track(ctx, detector)
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage backup encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "SetupKeys", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readNewPassphrase(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if err := a.SetupKeys(passphrase); err != nil {
			return err
		}

		cfg := a.Config()
		fmt.Fprintf(cmd.OutOrStdout(), "Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Fprintf(cmd.OutOrStdout(), "Private key: %s (sealed with your passphrase)\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(keysCmd)
}
