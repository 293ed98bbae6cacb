package commands

import (
	"context"
	"fmt"
	"obsgrades/internal/scrapers/obs"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Checks that the configured credentials can log into OBS.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(context.Context, *obs.Client) error {
			fmt.Fprintln(cmd.OutOrStdout(), "login successful")
			return nil
		})
	},
}
