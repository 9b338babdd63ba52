package cmd

import (
	"context"
	"fmt"
	"time"

	"ArtistHub/db"
	"ArtistHub/model"
	"ArtistHub/repository"
	"ArtistHub/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	minioUser      int64
	minioPrune     bool
	minioDryRun    bool
	minioOlderThan time.Duration
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO封面存储管理",
	Long:  `列出存储桶中的封面图并显示统计信息，可清理不再被任何发行引用的封面。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
		client, err := storage.InitMinio(ctx, cfg)
		if err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}
		store := storage.NewArtworkStore(client, cfg.MinioBucket)

		objects, stats, err := store.ListArtwork(ctx, minioUser)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s (前缀: %s)\n", stats, storage.ArtworkPrefix(minioUser))
		if !minioPrune {
			for _, obj := range objects {
				fmt.Printf("  %-70s %10s  %s\n", obj.Key, humanize.IBytes(uint64(obj.Size)), humanize.Time(obj.LastModified))
			}
			return nil
		}

		gormDB, err := db.ConnectGormDB(cfg)
		if err != nil {
			return err
		}
		defer db.CloseGormDB(gormDB)

		referenced, err := referencedArtwork(ctx, repository.NewGormReleaseRepository(gormDB))
		if err != nil {
			return err
		}

		// 跳过最近上传的对象，它们的发行记录可能还没写入
		cutoff := time.Now().Add(-minioOlderThan)
		var settled []storage.ObjectInfo
		for _, obj := range objects {
			if obj.LastModified.Before(cutoff) {
				settled = append(settled, obj)
			}
		}
		orphans := storage.FindOrphans(settled, referenced)
		fmt.Printf("发现 %d 个未被引用的封面\n", len(orphans))
		for _, key := range orphans {
			fmt.Printf("  %s\n", key)
		}
		if minioDryRun || len(orphans) == 0 {
			return nil
		}
		if err := store.RemoveKeys(ctx, orphans); err != nil {
			return err
		}
		fmt.Println("清理完成！")
		return nil
	},
}

// referencedArtwork collects the object keys of every stored release's artwork.
func referencedArtwork(ctx context.Context, releases repository.ReleaseRepository) (map[string]struct{}, error) {
	referenced := make(map[string]struct{})
	for _, status := range model.Statuses {
		list, err := releases.ListByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s releases: %w", status, err)
		}
		for _, rel := range list {
			if key, ok := storage.KeyFromReference(rel.Artwork()); ok {
				referenced[key] = struct{}{}
			}
		}
	}
	return referenced, nil
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().Int64VarP(&minioUser, "user", "u", 0, "只查看指定用户的封面 (0 表示全部)")
	minioCmd.Flags().BoolVar(&minioPrune, "prune", false, "删除未被任何发行引用的封面")
	minioCmd.Flags().BoolVar(&minioDryRun, "dry-run", false, "配合 --prune 使用，只列出不删除")
	minioCmd.Flags().DurationVar(&minioOlderThan, "older-than", time.Hour, "只清理早于该时长的对象")

	minioCmd.Example = `  # 列出所有封面
  artisthub minio

  # 查看用户 42 的封面
  artisthub minio -u 42

  # 预览可清理的封面
  artisthub minio --prune --dry-run

  # 清理一天前上传且未被引用的封面
  artisthub minio --prune --older-than 24h`
}
