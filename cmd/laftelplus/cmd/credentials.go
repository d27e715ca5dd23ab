package cmd

import (
	"context"
	"io"

	"github.com/DOCHIS/laftel-plus/internal/credentials"
	"github.com/spf13/cobra"
)

// newCredentialsCmd creates the 'credentials' subcommand for session token management
func newCredentialsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	credentialsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the Laftel session token",
		Long:  "Store, inspect and remove the Laftel session token kept in the system keyring.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	credentialsCmd.AddCommand(newCredentialsSetCmd(stdout, cfg))
	credentialsCmd.AddCommand(newCredentialsGetCmd(stdout, cfg))
	credentialsCmd.AddCommand(newCredentialsDeleteCmd(stdout, cfg))

	return credentialsCmd
}

// newCredentialsSetCmd creates the 'credentials set' subcommand
func newCredentialsSetCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Store the session token in the system keyring",
		Long:  "Prompt for the session token (the at_amss-Co cookie of laftel.net) and store it in the system keyring.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tty := cfg.TTY
			if tty == nil && cfg.Stdin == nil {
				tty = credentials.StdinTerminal()
			}
			handler := credentials.NewCLIHandler(tokenManager(cfg), stdinOf(cfg), stdout, tty)
			if err := handler.Set(context.Background()); err != nil {
				return err
			}
			printResult(cfg, stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newCredentialsGetCmd creates the 'credentials get' subcommand
func newCredentialsGetCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show where the session token comes from",
		Long:  "Look the token up in the keyring and then LAFTELPLUS_TOKEN and show the source. The token itself is never printed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput := isJSON(cmd)
			handler := credentials.NewCLIHandler(tokenManager(cfg), nil, stdout, nil)
			if err := handler.Get(context.Background(), jsonOutput); err != nil {
				return err
			}
			if !jsonOutput {
				printResult(cfg, stdout, ResultInfoOnly)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newCredentialsDeleteCmd creates the 'credentials delete' subcommand
func newCredentialsDeleteCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the session token from the system keyring",
		Long:  "Remove the stored token. LAFTELPLUS_TOKEN is not affected.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			handler := credentials.NewCLIHandler(tokenManager(cfg), nil, stdout, nil)
			if err := handler.Delete(context.Background()); err != nil {
				return err
			}
			printResult(cfg, stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
