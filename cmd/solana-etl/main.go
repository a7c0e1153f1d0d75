package main

import (
	"github.com/spf13/cobra"

	"github.com/fystack/solana-etl/pkg/common/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "solana-etl",
		Short:         "Transform raw Solana getBlock payloads into tabular rows.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(transformCmd(), inspectCmd(), failedCmd())

	if err := root.Execute(); err != nil {
		logger.Fatal("Command failed", "err", err)
	}
}
