package commands

import (
	"context"
	"obsgrades/internal/components/serviceutil"
	"obsgrades/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dumpHttp   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "obsgrades",
	Short: "obsgrades reads grades and class averages off the Inonu University OBS portal.",

	SilenceErrors: true,
	SilenceUsage:  true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "obsgrades.json5", "The config file to read credentials and options from.")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every request/response pair into this directory.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug reports.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		serviceutil.Fatal("obsgrades failed", err)
	}
}
