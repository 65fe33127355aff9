package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration — длительность, понимающая в yaml и "15s"/"500ms", и голое
// число наносекунд.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if parsed, err := time.ParseDuration(s); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration %q", s)
}

// Std — обычный time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config — конфигурация менеджера парка. Секреты (токены, ID админа)
// сюда не входят — они приходят из окружения.
type Config struct {
	// BotsFile — список путей к папкам ботов, по одному на строку.
	BotsFile string `yaml:"bots_file"`
	// PidsFile — json-карта «папка бота → PID».
	PidsFile string `yaml:"pids_file"`

	Log LogConfig `yaml:"log"`

	Launch LaunchConfig `yaml:"launch"`

	// Vars — классы переменных для патчера конфигов.
	Vars VarClasses `yaml:"vars"`

	BotFather BotFatherConfig `yaml:"botfather"`

	Frontend FrontendConfig `yaml:"frontend"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type LaunchConfig struct {
	// Command запускается с рабочей директорией бота.
	Command []string `yaml:"command"`
	// Grace — пауза после старта перед проверкой, что процесс жив.
	Grace Duration `yaml:"grace"`
	// StartConcurrency — сколько ботов поднимать одновременно.
	StartConcurrency int `yaml:"start_concurrency"`
}

type VarClasses struct {
	URL    []string `yaml:"url"`
	Int    []string `yaml:"int"`
	Secret []string `yaml:"secret"`
}

type BotFatherConfig struct {
	Peer        string        `yaml:"peer"`
	ReportTail  int           `yaml:"report_tail"`
	TurnTimeout Duration `yaml:"turn_timeout"`
	FileTimeout Duration `yaml:"file_timeout"`
}

type FrontendConfig struct {
	LongPollTimeout int `yaml:"long_poll_timeout"`
	// RestartCols — сколько кнопок-ботов в ряду меню рестарта.
	RestartCols int `yaml:"restart_cols"`
}

func Default() Config {
	return Config{
		BotsFile: "bots.txt",
		PidsFile: "pids.json",
		Log: LogConfig{
			Level:      "info",
			File:       "logs/botfleet.log",
			MaxSizeMB:  20,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Launch: LaunchConfig{
			Command:          []string{"python", "main.py"},
			Grace:            Duration(1500 * time.Millisecond),
			StartConcurrency: 4,
		},
		Vars: VarClasses{
			URL:    []string{"WEBAPP_URL_1", "WEBAPP_URL_2", "PROMOCODE_WEBAPP_URL"},
			Int:    []string{"ADMIN_ID", "REFERRAL_NOTIFY_CHAT_ID"},
			Secret: []string{"BOT_TOKEN"},
		},
		BotFather: BotFatherConfig{
			Peer:        "BotFather",
			ReportTail:  12,
			TurnTimeout: Duration(15 * time.Second),
			FileTimeout: Duration(60 * time.Second),
		},
		Frontend: FrontendConfig{
			LongPollTimeout: 25,
			RestartCols:     2,
		},
	}
}

// Load читает yaml-файл поверх значений по умолчанию. Отсутствующий
// файл — не ошибка: работаем на дефолтах.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Launch.Command) == 0 {
		return cfg, fmt.Errorf("config %s: launch.command is empty", path)
	}
	return cfg, nil
}
