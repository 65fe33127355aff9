package main

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "botfleet",
	Short: "Менеджер парка Telegram-ботов",
	Long: `botfleet запускает и обслуживает парк ботов: процессы, конфиги,
регистрация новых ботов через @BotFather и чат-интерфейс для админа.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "botfleet.yaml",
		"путь к файлу конфигурации")
	rootCmd.AddCommand(runCmd, statusCmd, startCmd, restartCmd)
}
