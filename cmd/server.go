package cmd

import (
	"ArtistHub/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动ArtistHub服务器",
	Long:  `启动HTTP API服务，同时监听处理流水线的结果目录`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
