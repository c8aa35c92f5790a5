// Package main 是应用程序的入口点。
package main

import (
	"os"

	"github.com/spf13/cobra"

	"prima-facie-go/internal/config"
	"prima-facie-go/pkg/log"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "prima-facie",
	Short: "Prima Facie EVA assistant service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 1. 初始化配置
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		config.Conf = cfg
		// 2. 初始化日志记录器
		return log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, notifyCmd, tokenCmd, reindexCmd, scanDeadlinesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
