package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Another0Noob/mangadex-progress/internal/mangadexapi"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with the stored username and password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds := mangadexapi.LoadCredentials(store)
		if _, err := client.Tokens().Authenticate(cmd.Context(), creds); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}

		log.Info().
			Str("username", creds.Username).
			Str("path", store.Path()).
			Msg("Logged in, tokens saved")
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the stored refresh token for a new access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := client.Tokens().Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}

		log.Info().
			Str("path", store.Path()).
			Msg("Access token refreshed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(refreshCmd)
}
