package di

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"botfleet/internal/application/port/output"
	"botfleet/internal/botfather"
	"botfleet/internal/config"
	"botfleet/internal/confpatch"
	"botfleet/internal/frontend"
	"botfleet/internal/infrastructure/logger"
	"botfleet/internal/supervisor"
)

type Container struct {
	Cfg        config.Config
	Logger     output.LoggerPort
	Store      *supervisor.Store
	Supervisor *supervisor.Supervisor
	Patcher    *confpatch.Patcher
	BotFather  *botfather.Client // nil, если сессия аккаунта не настроена
	API        *tgbotapi.BotAPI  // nil без Frontend
	Frontend   *frontend.Frontend
	Bots       []string
}

type Config struct {
	ConfigPath string
	// BotToken — токен управляющего бота; пустой — без чат-интерфейса.
	BotToken string
	AdminID  int64
	// Dialer — транспорт диалога с BotFather; nil выключает эти операции.
	Dialer output.Dialer
}

func NewContainer(cfg Config) (*Container, error) {
	fileCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLoggerAdapter(logger.Config{
		Level:      fileCfg.Log.Level,
		File:       fileCfg.Log.File,
		MaxSizeMB:  fileCfg.Log.MaxSizeMB,
		MaxBackups: fileCfg.Log.MaxBackups,
		MaxAgeDays: fileCfg.Log.MaxAgeDays,
		Console:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store := supervisor.NewStore(fileCfg.PidsFile)
	sup := supervisor.New(fileCfg.Launch, store, log)
	patcher := confpatch.NewPatcher(confpatch.Classes{
		URL:    fileCfg.Vars.URL,
		Int:    fileCfg.Vars.Int,
		Secret: fileCfg.Vars.Secret,
	}, log)

	bots, err := supervisor.LoadBotList(fileCfg.BotsFile)
	if err != nil {
		log.Warn("bot list unavailable", "file", fileCfg.BotsFile, "error", err)
		bots = nil
	}

	c := &Container{
		Cfg:        fileCfg,
		Logger:     log,
		Store:      store,
		Supervisor: sup,
		Patcher:    patcher,
		Bots:       bots,
	}

	if cfg.Dialer != nil {
		bfCfg := botfather.DefaultConfig()
		bfCfg.Peer = fileCfg.BotFather.Peer
		bfCfg.ReportTail = fileCfg.BotFather.ReportTail
		if fileCfg.BotFather.TurnTimeout > 0 {
			bfCfg.Timeouts.Turn = fileCfg.BotFather.TurnTimeout.Std()
		}
		if fileCfg.BotFather.FileTimeout > 0 {
			bfCfg.Timeouts.File = fileCfg.BotFather.FileTimeout.Std()
		}
		c.BotFather = botfather.NewClient(cfg.Dialer, bfCfg, log)
	}

	if cfg.BotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			log.Close()
			return nil, fmt.Errorf("failed to create manager bot: %w", err)
		}
		c.API = api

		// типизированный nil в интерфейсе молча «включил» бы операции
		var reg frontend.Registrar
		if c.BotFather != nil {
			reg = c.BotFather
		}
		c.Frontend = frontend.New(frontend.Deps{
			API:       api,
			AdminID:   cfg.AdminID,
			Fleet:     sup,
			Registrar: reg,
			Patcher:   patcher,
			Bots:      bots,
			VarNames:  varNames(fileCfg.Vars),
			Config:    fileCfg.Frontend,
			Log:       log,
		})
	}

	return c, nil
}

// varNames — все редактируемые из меню переменные; секретные тоже
// доступны, их значения патчер маскирует при показе.
func varNames(v config.VarClasses) []string {
	out := make([]string, 0, len(v.URL)+len(v.Int)+len(v.Secret))
	out = append(out, v.URL...)
	out = append(out, v.Int...)
	out = append(out, v.Secret...)
	return out
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
