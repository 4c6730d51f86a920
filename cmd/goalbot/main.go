// Package main contains the goalbot command: the bot process itself and the
// administration commands that seed accounts, boards and categories.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "goalbot",
		Short:         "Goal tracking chat bot",
		Long:          "goalbot lets verified Telegram chats list and create goals on the boards their account participates in.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(opts.envFile)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./config.yaml", "path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the configuration")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newUserCmd(opts))
	cmd.AddCommand(newBoardCmd(opts))
	cmd.AddCommand(newCategoryCmd(opts))
	cmd.AddCommand(newGoalCmd(opts))
	cmd.AddCommand(newVerifyCmd(opts))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "goalbot %s (commit: %s)\n", Version, Commit)
		},
	}
}

// loadEnvFile exports the variables of path without overriding the ones
// already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func execute(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, newRootCmd())
	stop()
	os.Exit(code)
}
