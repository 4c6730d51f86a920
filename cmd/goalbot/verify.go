package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/goalbot/internal/logger"
	"github.com/edgard/goalbot/internal/telegram"
	"github.com/edgard/goalbot/internal/verification"
)

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <username> <code>",
		Short: "Link the chat holding a verification code to an account",
		Long: "Completes a chat verification out of band. When a Telegram token is configured\n" +
			"the chat is told that it has been linked.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, env *adminEnv) error {
				user, err := env.store.GetUserByUsername(ctx, args[0])
				if err != nil {
					return fmt.Errorf("user %q: %w", args[0], err)
				}

				log := logger.New(cmd.ErrOrStderr(), env.cfg.Logger.Level, env.cfg.Logger.JSON)
				deps := verification.Deps{Logger: log, Config: env.cfg, Store: env.store}
				if env.cfg.Telegram.Token != "" {
					tg, err := telegram.New(env.cfg.Telegram, log)
					if err != nil {
						return err
					}
					deps.Sender = tg
				}

				session, err := verification.NewGate(deps).Complete(ctx, user.ID, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Chat %d (%s) linked to user %s\n", session.ChatID, session.Username, user.Username)
				return nil
			})
		},
	}
}
