package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"botfleet/internal/di"
	"botfleet/internal/supervisor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать состояние процессов парка",
	RunE: func(*cobra.Command, []string) error {
		c, err := di.NewContainer(di.Config{ConfigPath: cfgPath})
		if err != nil {
			return err
		}
		defer c.Close()

		alive := 0
		for _, st := range c.Supervisor.Statuses(c.Bots) {
			name := filepath.Base(st.Dir)
			if st.Alive {
				alive++
				color.Green("● %-24s PID %d", name, st.PID)
			} else if st.PID > 0 {
				color.Red("● %-24s PID %d мёртв", name, st.PID)
			} else {
				color.Red("● %-24s не запущен", name)
			}
		}
		fmt.Printf("\nЖивых: %d из %d\n", alive, len(c.Bots))
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Поднять всех ботов списка",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := di.NewContainer(di.Config{ConfigPath: cfgPath})
		if err != nil {
			return err
		}
		defer c.Close()

		results := c.Supervisor.StartAll(cmd.Context(), c.Bots)
		printResults(results)
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart <номер|папка>",
	Short: "Перезапустить одного бота",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := di.NewContainer(di.Config{ConfigPath: cfgPath})
		if err != nil {
			return err
		}
		defer c.Close()

		dir, err := resolveBot(c.Bots, args[0])
		if err != nil {
			return err
		}
		printResults([]supervisor.StartResult{c.Supervisor.RestartOne(cmd.Context(), dir)})
		return nil
	},
}

// resolveBot принимает номер из status (с единицы) либо имя папки.
func resolveBot(dirs []string, arg string) (string, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(dirs) {
			return "", fmt.Errorf("нет бота с номером %d, в списке %d", n, len(dirs))
		}
		return dirs[n-1], nil
	}
	for _, dir := range dirs {
		if filepath.Base(dir) == arg || dir == arg {
			return dir, nil
		}
	}
	return "", fmt.Errorf("бот %q не найден в списке", arg)
}

func printResults(results []supervisor.StartResult) {
	ok := 0
	for _, r := range results {
		name := filepath.Base(r.Dir)
		if r.Username != "" {
			name = "@" + r.Username
		}
		if r.OK {
			ok++
			color.Green("● %-24s PID %d", name, r.PID)
			continue
		}
		color.Red("● %-24s %v", name, r.Err)
	}
	fmt.Printf("\nПоднято: %d из %d\n", ok, len(results))
}
