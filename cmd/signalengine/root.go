package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ashare-signal-engine/internal/engine"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "signalengine",
		Short:         "A 股日线交易信号引擎",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "配置文件路径（为空时使用默认值）")

	root.AddCommand(newEvaluateCmd())
	root.AddCommand(newStrategiesCmd())
	return root
}

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "列出可用策略",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, k := range engine.Kinds() {
				fmt.Fprintln(cmd.OutOrStdout(), k.String())
			}
			return nil
		},
	}
}
