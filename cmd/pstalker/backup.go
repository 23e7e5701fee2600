package main

import (
	"fmt"

	"pstalker/internal/app"
	"pstalker/internal/backup"

	"github.com/spf13/cobra"
)

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage database backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Copy the database into the backup directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prune, _ := cmd.Flags().GetBool("prune")

		a, err := newApp(cmd, "CreateBackup", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.CreateBackup(cmd.Context())
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)

		if prune {
			removed, err := a.PruneBackups()
			if err != nil {
				return err
			}
			printRemoved(cmd, removed)
		}
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local backups, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListBackups", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		backups, err := a.ListBackups()
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No backups.")
			return nil
		}
		renderBackups(cmd.OutOrStdout(), backups)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore BACKUP",
	Short: "Replace the database with a backup",
	Long: `Replace the database with a backup.

BACKUP is a file name from 'pstalker backup list' or a path. Stop
'pstalker track' first; restore refuses to run while it holds the store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(),
				fmt.Sprintf("Replace all recorded usage with %s?", args[0]))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		a, err := newApp(cmd, "RestoreBackup", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RestoreBackup(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", args[0])
		return nil
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete backups beyond backup.retention",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "PruneBackups", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.PruneBackups()
		if err != nil {
			return err
		}
		printRemoved(cmd, removed)
		return nil
	},
}

var backupPushCmd = &cobra.Command{
	Use:   "push BACKUP",
	Short: "Upload a local backup to the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "PushBackup", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.PushBackup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s\n", name)
		return nil
	},
}

var backupPullCmd = &cobra.Command{
	Use:   "pull NAME",
	Short: "Download a backup from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "PullBackup", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		var passphrase string
		if backup.NeedsPassphrase(args[0]) {
			passphrase, err = readPassphrase(cmd.InOrStdin(), cmd.ErrOrStderr(), "Passphrase: ")
			if err != nil {
				return err
			}
		}

		path, err := a.PullBackup(cmd.Context(), args[0], passphrase)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pulled to %s\n", path)
		return nil
	},
}

var backupRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "List this host's backups in the vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListRemoteBackups", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListRemoteBackups(cmd.Context())
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No remote backups.")
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func printRemoved(cmd *cobra.Command, removed []string) {
	for _, path := range removed {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d backup(s)\n", len(removed))
}

func init() {
	backupCreateCmd.Flags().Bool("prune", false, "Apply backup.retention afterwards")
	backupRestoreCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupPruneCmd)
	backupCmd.AddCommand(backupPushCmd)
	backupCmd.AddCommand(backupPullCmd)
	backupCmd.AddCommand(backupRemoteCmd)

	rootCmd.AddCommand(backupCmd)
}
