package cmd

import (
	"fmt"

	"ArtistHub/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "同步数据库表结构",
	Long:  `根据模型自动创建或更新 users 和 releases 表。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("连接数据库 %s:%s/%s...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
		gormDB, err := db.ConnectGormDB(cfg)
		if err != nil {
			return err
		}
		defer db.CloseGormDB(gormDB)

		if err := db.AutoMigrate(gormDB); err != nil {
			return err
		}
		fmt.Println("数据库迁移完成！")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
