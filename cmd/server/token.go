package main

import (
	"fmt"
	"time"

	"github.com/acai-travel/events-calendar/internal/cal/auth"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <actor>",
	Short: "Mint a session token for an editor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := auth.New(cfg.Auth.JWTSecret, cfg.Auth.CookieName).Issue(args[0], ttl)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().Duration("ttl", 30*24*time.Hour, "How long the token stays valid")
}
