package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/IlliaSobcko/AIBI-Project/assistant"
	"github.com/IlliaSobcko/AIBI-Project/chat"
	"github.com/IlliaSobcko/AIBI-Project/internal/statepaths"
	"github.com/IlliaSobcko/AIBI-Project/internal/worker"
	"github.com/IlliaSobcko/AIBI-Project/knowledge"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant daemon: reviewer bot, debounced intake and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if svc.Bot != nil {
				go func() {
					if err := svc.Bot.Run(ctx); err != nil && ctx.Err() == nil {
						slog.Error("review_bot_stopped", "error", err.Error())
					}
				}()
			}

			// One lane per chat, one unit in flight overall: units stay
			// sequential while no chat can starve another's ordering.
			pool := worker.NewKeyedPool(ctx, 1, 16, func(ctx context.Context, chatID int64, h chat.History) {
				defer func() {
					if r := recover(); r != nil {
						slog.Error("unit_panic", "chat_id", chatID, "error", fmt.Sprint(r))
					}
				}()
				var sum assistant.Summary
				svc.Assistant.ProcessUnit(ctx, uuid.NewString(), h, &sum)
				slog.Info("debounced_unit_done", "chat_id", chatID, "summary", sum.String())
			})

			go func() {
				ticker := time.NewTicker(time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						for _, h := range svc.Accumulator.Due() {
							if err := pool.Enqueue(ctx, h.ChatID, h); err != nil {
								return
							}
						}
					}
				}
			}()

			if viper.GetBool("scheduler.enabled") {
				sched, err := assistant.NewScheduler(ctx, svc.Assistant, regenerateFAQ(svc))
				if err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()
			}

			slog.Info("aibi_started",
				"review_bot", svc.Bot != nil,
				"scheduler", viper.GetBool("scheduler.enabled"),
				"db", svc.DB != nil)
			<-ctx.Done()
			slog.Info("aibi_stopping")
			return nil
		},
	}
}

// regenerateFAQ is the weekly self-learning pass. An empty knowledge
// library is the normal cold-start case, not a failure.
func regenerateFAQ(svc *services) assistant.FAQRegenerator {
	return func() error {
		res, err := svc.Knowledge.GenerateFAQ(statepaths.DynamicInstructionsPath())
		if errors.Is(err, knowledge.ErrNoPatterns) {
			slog.Info("faq_skipped", "reason", "no approved replies yet")
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("faq_regenerated", "patterns", res.TotalPatterns, "topics", res.Topics, "path", res.Path)
		return nil
	}
}
