package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"botfleet/internal/di"
	"botfleet/internal/infrastructure/env"
	"botfleet/internal/supervisor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Запустить менеджер с чат-интерфейсом",
	RunE: func(cmd *cobra.Command, _ []string) error {
		envService := env.NewEnvService()
		token := envService.MustGet("MANAGER_BOT_TOKEN")
		adminID := envService.GetInt64("ADMIN_ID", 0)
		if adminID == 0 {
			return fmt.Errorf("ENV ADMIN_ID is required")
		}

		c, err := di.NewContainer(di.Config{
			ConfigPath: cfgPath,
			BotToken:   token,
			AdminID:    adminID,
		})
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// правки списка ботов подхватываются без рестарта менеджера
		go func() {
			err := supervisor.WatchBotList(ctx, c.Cfg.BotsFile, c.Logger, c.Frontend.SetBots)
			if err != nil && !errors.Is(err, context.Canceled) {
				c.Logger.Warn("bot list watcher stopped", "error", err)
			}
		}()

		u := tgbotapi.NewUpdate(0)
		u.Timeout = c.Cfg.Frontend.LongPollTimeout
		updates := c.API.GetUpdatesChan(u)

		color.Green("Менеджер запущен: %d ботов в списке, админ %d", len(c.Bots), adminID)
		c.Logger.Info("manager started", "bots", len(c.Bots), "admin", adminID)

		if err := c.Frontend.Run(ctx, updates); !errors.Is(err, context.Canceled) {
			return err
		}
		color.Yellow("Останавливаюсь.")
		return nil
	},
}
