package cmd

import (
	"context"
	"fmt"
	"time"

	"ArtistHub/cache"
	"ArtistHub/core/release"
	"ArtistHub/db"
	"ArtistHub/model"
	"ArtistHub/repository"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	queuePeekLimit  int64
	queueDrainLimit int64
)

var takedownsCmd = &cobra.Command{
	Use:   "takedowns",
	Short: "查看待处理的下架请求",
	Long:  `列出所有处于 takedown_requested 状态的发行，以及它们是否还能被撤销。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		gormDB, err := db.ConnectGormDB(cfg)
		if err != nil {
			return err
		}
		defer db.CloseGormDB(gormDB)

		pending, err := repository.NewGormReleaseRepository(gormDB).ListByStatus(ctx, model.StatusTakedownRequested)
		if err != nil {
			return err
		}
		fmt.Printf("%d 个待处理的下架请求\n", len(pending))

		now := time.Now().UTC()
		for _, rel := range pending {
			state := "final"
			if release.CanCancelTakedown(rel, now, cfg.TakedownWindow) {
				deadline, _ := release.TakedownDeadline(rel, cfg.TakedownWindow)
				state = "cancellable until " + humanize.Time(deadline)
			}
			requested := "-"
			if rel.TakedownRequestedAt != nil {
				requested = humanize.Time(*rel.TakedownRequestedAt)
			}
			fmt.Printf("  %s  user=%d  %q by %s  requested %s  (%s)\n",
				rel.ID, rel.UserID, rel.Title, rel.Artist, requested, state)
		}
		return nil
	},
}

var takedownQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "查看Redis中的下架通知队列",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTakedownQueue(func(ctx context.Context, queue *cache.TakedownQueue) error {
			size, err := queue.Len(ctx)
			if err != nil {
				return err
			}
			events, err := queue.Peek(ctx, queuePeekLimit)
			if err != nil {
				return err
			}
			fmt.Printf("队列中共 %d 条，显示最早的 %d 条\n", size, len(events))
			for _, e := range events {
				printTakedownEvent(e)
			}
			return nil
		})
	},
}

var takedownDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "取出并确认队列中的下架通知",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTakedownQueue(func(ctx context.Context, queue *cache.TakedownQueue) error {
			var drained int64
			for queueDrainLimit <= 0 || drained < queueDrainLimit {
				e, ok, err := queue.Pop(ctx)
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				printTakedownEvent(e)
				drained++
			}
			fmt.Printf("已取出 %d 条\n", drained)
			return nil
		})
	},
}

func withTakedownQueue(fn func(ctx context.Context, queue *cache.TakedownQueue) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := db.ConnectRedis(cfg)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(ctx, cache.NewTakedownQueue(client))
}

func printTakedownEvent(e release.Event) {
	fmt.Printf("  %s  user=%d  release=%s  %q\n", e.At.Format(time.RFC3339), e.UserID, e.ReleaseID, e.Title)
}

func init() {
	rootCmd.AddCommand(takedownsCmd)
	takedownsCmd.AddCommand(takedownQueueCmd, takedownDrainCmd)

	takedownQueueCmd.Flags().Int64VarP(&queuePeekLimit, "limit", "n", 20, "最多显示的条数")
	takedownDrainCmd.Flags().Int64VarP(&queueDrainLimit, "limit", "n", 0, "最多取出的条数 (0 表示全部)")
}
