// Package frontend — чат управления парком: единственный админ получает
// меню, статусы и многошаговые сценарии работы с BotFather.
package frontend

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"botfleet/internal/confpatch"
	"botfleet/internal/config"
	"botfleet/internal/domain/entity"
	"botfleet/internal/media"
	"botfleet/internal/supervisor"

	"botfleet/internal/application/port/output"
)

// configFileName — файл конфигурации внутри папки бота, который правит
// патчер.
const configFileName = "config.py"

// Fleet — операции над процессами парка.
type Fleet interface {
	StartAll(ctx context.Context, dirs []string) []supervisor.StartResult
	RestartOne(ctx context.Context, dir string) supervisor.StartResult
	Statuses(dirs []string) []supervisor.BotStatus
}

// Registrar — операции через BotFather.
type Registrar interface {
	ListBots(ctx context.Context) (bool, []string, string)
	Create(ctx context.Context, name, username string) (bool, string, string)
	Token(ctx context.Context, username string) (bool, string, string)
	ApplyProfile(ctx context.Context, profile entity.BotProfile) (bool, string)
	SetMenuButton(ctx context.Context, username, url, title string) (bool, string)
}

// Patcher — точечная правка конфигов ботов.
type Patcher interface {
	SetValue(path, name, value string) (confpatch.Status, error)
	// Display маскирует значения секретных переменных перед показом.
	Display(name, value string) string
}

// chatAPI — нужная нам часть tgbotapi.BotAPI.
type chatAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Deps struct {
	API       chatAPI
	AdminID   int64
	Fleet     Fleet
	Registrar Registrar // nil — операции BotFather недоступны
	Patcher   Patcher
	Bots      []string
	VarNames  []string // переменные, доступные из меню
	Config    config.FrontendConfig
	Log       output.LoggerPort
}

type Frontend struct {
	api     chatAPI
	adminID int64
	fleet   Fleet
	reg     Registrar
	patch   Patcher
	cfg     config.FrontendConfig
	vars    []string
	log     output.LoggerPort

	sessions *sessions

	mu   sync.Mutex
	dirs []string

	// bfMu сериализует операции BotFather: удалённый диалог один.
	bfMu sync.Mutex
	wg   sync.WaitGroup

	ctx context.Context
}

func New(d Deps) *Frontend {
	return &Frontend{
		api:      d.API,
		adminID:  d.AdminID,
		fleet:    d.Fleet,
		reg:      d.Registrar,
		patch:    d.Patcher,
		cfg:      d.Config,
		vars:     d.VarNames,
		log:      d.Log,
		sessions: newSessions(),
		dirs:     d.Bots,
		ctx:      context.Background(),
	}
}

// SetBots обновляет список ботов (вотчер списка зовёт его на лету).
func (f *Frontend) SetBots(dirs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs = dirs
}

func (f *Frontend) bots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.dirs))
	copy(out, f.dirs)
	return out
}

// Run обрабатывает апдейты до отмены контекста. Фоновые операции
// дожидаются завершения перед возвратом.
func (f *Frontend) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	f.ctx = ctx
	defer f.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			f.dispatch(upd)
		}
	}
}

func (f *Frontend) dispatch(upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		if upd.CallbackQuery.From == nil || upd.CallbackQuery.From.ID != f.adminID {
			return
		}
		f.handleCallback(upd.CallbackQuery)
	case upd.Message != nil:
		if upd.Message.From == nil || upd.Message.From.ID != f.adminID {
			f.log.Debug("message from non-admin ignored", "from", upd.Message.From)
			return
		}
		f.handleMessage(upd.Message)
	}
}

func (f *Frontend) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if len(msg.Photo) > 0 {
		f.handlePhoto(chatID, msg.Photo)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start" || text == "/menu":
		f.sessions.clear(chatID)
		f.sendMenu(chatID, "Менеджер парка на связи. Что делаем?")
	case text == "/status":
		f.sendStatus(chatID, f.bots())
	case text == "/cancel":
		f.sessions.clear(chatID)
		f.sendHTML(chatID, "Отменено.")
	case strings.HasPrefix(text, "/profile"):
		f.handleProfileCommand(chatID, text)
	default:
		if p, ok := f.sessions.take(chatID); ok {
			f.continuePending(chatID, p, text)
			return
		}
		f.sendMenu(chatID, "Не понял. Выберите действие:")
	}
}

func (f *Frontend) handleProfileCommand(chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		f.sendHTML(chatID, "Использование: <code>/profile @username</code>")
		return
	}
	handle := strings.TrimPrefix(fields[1], "@")
	f.sendKeyboard(chatID, "Профиль @"+handle+":", profileKeyboard(handle))
}

func (f *Frontend) handleCallback(cb *tgbotapi.CallbackQuery) {
	if _, err := f.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		f.log.Debug("callback ack failed", "error", err)
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data
	dirs := f.bots()

	switch {
	case data == cbCancel:
		f.sessions.clear(chatID)
		f.sendHTML(chatID, "Отменено.")
	case data == cbStatus:
		f.sendStatus(chatID, dirs)
	case data == cbStartAll:
		f.sendHTML(chatID, fmt.Sprintf("Запускаю %d ботов…", len(dirs)))
		f.async(func(ctx context.Context) {
			f.sendHTML(chatID, supervisor.StartReportHTML(f.fleet.StartAll(ctx, dirs)))
		})
	case data == cbRestartMenu:
		f.sendKeyboard(chatID, "Кого перезапустить?", botsKeyboard(dirs, cbRestartOne, f.cfg.RestartCols))
	case data == cbNewBot:
		if f.reg == nil {
			f.sendHTML(chatID, bfUnavailable)
			return
		}
		f.sessions.set(chatID, pendingCreateName{})
		f.sendHTML(chatID, "Имя нового бота (display name)?")
	case data == cbListBots:
		if f.reg == nil {
			f.sendHTML(chatID, bfUnavailable)
			return
		}
		f.runBotFather(chatID, func(ctx context.Context) {
			ok, usernames, report := f.reg.ListBots(ctx)
			if !ok {
				f.sendHTML(chatID, report)
				return
			}
			var b strings.Builder
			fmt.Fprintf(&b, "<b>Боты аккаунта</b> (%d):\n", len(usernames))
			for _, u := range usernames {
				b.WriteString("• <code>" + html.EscapeString(u) + "</code>\n")
			}
			f.sendHTML(chatID, b.String())
		})
	case data == cbToken:
		if f.reg == nil {
			f.sendHTML(chatID, bfUnavailable)
			return
		}
		f.sessions.set(chatID, pendingTokenBot{})
		f.sendHTML(chatID, "Для какого бота нужен токен? Пришлите @username.")
	case data == cbVarMenu:
		f.sendKeyboard(chatID, "Какую переменную меняем?", varKeyboard(f.vars))
	case strings.HasPrefix(data, cbVarPick):
		name := strings.TrimPrefix(data, cbVarPick)
		f.sessions.set(chatID, pendingVarBot{name: name})
		f.sendKeyboard(chatID, "В каком боте?", botsKeyboard(dirs, cbVarBot, f.cfg.RestartCols))
	case strings.HasPrefix(data, cbVarBot):
		f.handleVarBotPick(chatID, data, dirs)
	case strings.HasPrefix(data, cbRestartOne):
		idx, ok := parseIndexCallback(data, cbRestartOne, len(dirs))
		if !ok {
			f.sendHTML(chatID, "Список ботов изменился, откройте меню заново.")
			return
		}
		dir := dirs[idx]
		f.sendHTML(chatID, "Перезапускаю <code>"+html.EscapeString(filepath.Base(dir))+"</code>…")
		f.async(func(ctx context.Context) {
			f.sendHTML(chatID, supervisor.StartReportHTML([]supervisor.StartResult{
				f.fleet.RestartOne(ctx, dir),
			}))
		})
	case strings.HasPrefix(data, cbAbout):
		f.sessions.set(chatID, pendingAbout{handle: strings.TrimPrefix(data, cbAbout)})
		f.sendHTML(chatID, fmt.Sprintf("Новый About (до %d символов)?", entity.AboutMaxLen))
	case strings.HasPrefix(data, cbDescription):
		f.sessions.set(chatID, pendingDescription{handle: strings.TrimPrefix(data, cbDescription)})
		f.sendHTML(chatID, fmt.Sprintf("Новое описание (до %d символов)?", entity.DescriptionMaxLen))
	case strings.HasPrefix(data, cbAvatar):
		f.sessions.set(chatID, pendingAvatar{handle: strings.TrimPrefix(data, cbAvatar)})
		f.sendHTML(chatID, "Пришлите фото для аватара.")
	case strings.HasPrefix(data, cbMenuButton):
		f.sessions.set(chatID, pendingMenuURL{handle: strings.TrimPrefix(data, cbMenuButton)})
		f.sendHTML(chatID, "URL для кнопки меню? Отправьте <code>-</code>, чтобы сбросить на стандартный.")
	default:
		f.log.Debug("unknown callback", "data", data)
	}
}

// cbVarBot — выбор бота после выбора переменной.
const cbVarBot = "var_bot:"

const bfUnavailable = "Операции BotFather не настроены: нет сессии аккаунта."

func (f *Frontend) handleVarBotPick(chatID int64, data string, dirs []string) {
	p, ok := f.sessions.take(chatID)
	varPick, isVar := p.(pendingVarBot)
	if !ok || !isVar {
		f.sendHTML(chatID, "Сначала выберите переменную.")
		return
	}
	idx, ok := parseIndexCallback(data, cbVarBot, len(dirs))
	if !ok {
		f.sendHTML(chatID, "Список ботов изменился, откройте меню заново.")
		return
	}
	f.sessions.set(chatID, pendingVarValue{dir: dirs[idx], name: varPick.name})
	f.sendHTML(chatID, fmt.Sprintf("Новое значение <code>%s</code> для <code>%s</code>?",
		html.EscapeString(varPick.name), html.EscapeString(filepath.Base(dirs[idx]))))
}

func (f *Frontend) continuePending(chatID int64, p pending, text string) {
	switch p := p.(type) {
	case pendingCreateName:
		if text == "" {
			f.sendHTML(chatID, "Имя не может быть пустым. Попробуйте ещё раз.")
			f.sessions.set(chatID, p)
			return
		}
		f.sessions.set(chatID, pendingCreateHandle{name: text})
		f.sendHTML(chatID, "Username (должен оканчиваться на <code>bot</code>)?")
	case pendingCreateHandle:
		f.runBotFather(chatID, func(ctx context.Context) {
			_, _, report := f.reg.Create(ctx, p.name, text)
			f.sendHTML(chatID, report)
		})
	case pendingTokenBot:
		f.runBotFather(chatID, func(ctx context.Context) {
			_, _, report := f.reg.Token(ctx, text)
			f.sendHTML(chatID, report)
		})
	case pendingAbout:
		about := text
		f.runBotFather(chatID, func(ctx context.Context) {
			_, report := f.reg.ApplyProfile(ctx, entity.BotProfile{Username: p.handle, About: &about})
			f.sendHTML(chatID, report)
		})
	case pendingDescription:
		desc := text
		f.runBotFather(chatID, func(ctx context.Context) {
			_, report := f.reg.ApplyProfile(ctx, entity.BotProfile{Username: p.handle, Description: &desc})
			f.sendHTML(chatID, report)
		})
	case pendingAvatar:
		f.sessions.set(chatID, p)
		f.sendHTML(chatID, "Жду именно фото, не текст. /cancel — отменить.")
	case pendingMenuURL:
		url := text
		if url == "-" {
			url = ""
		}
		f.sessions.set(chatID, pendingMenuTitle{handle: p.handle, url: url})
		f.sendHTML(chatID, "Заголовок кнопки? Отправьте <code>-</code>, чтобы оставить стандартный.")
	case pendingMenuTitle:
		title := text
		if title == "-" {
			title = ""
		}
		f.runBotFather(chatID, func(ctx context.Context) {
			_, report := f.reg.SetMenuButton(ctx, p.handle, p.url, title)
			f.sendHTML(chatID, report)
		})
	case pendingVarValue:
		status, err := f.patch.SetValue(filepath.Join(p.dir, configFileName), p.name, text)
		if err != nil {
			f.sendHTML(chatID, "🔴 "+html.EscapeString(err.Error()))
			return
		}
		f.sendHTML(chatID, fmt.Sprintf("Переменная <code>%s</code> = <code>%s</code>: %s.",
			html.EscapeString(p.name),
			html.EscapeString(f.patch.Display(p.name, text)),
			varStatusText(status)))
	default:
		f.sendHTML(chatID, "Сценарий прерван, начните заново через /menu.")
	}
}

func varStatusText(s confpatch.Status) string {
	switch s {
	case confpatch.StatusUpdated:
		return "обновлена ✅"
	case confpatch.StatusAdded:
		return "добавлена ✅"
	case confpatch.StatusSame:
		return "уже имеет это значение"
	}
	return "не обновлена 🔴"
}

// handlePhoto завершает сценарий смены аватара: скачивает самое крупное
// фото, готовит квадрат и уходит в BotFather.
func (f *Frontend) handlePhoto(chatID int64, photos []tgbotapi.PhotoSize) {
	p, ok := f.sessions.take(chatID)
	avatar, isAvatar := p.(pendingAvatar)
	if !ok || !isAvatar {
		f.sendHTML(chatID, "Фото сейчас не ждал. /menu — список действий.")
		return
	}
	if f.reg == nil {
		f.sendHTML(chatID, bfUnavailable)
		return
	}

	largest := photos[len(photos)-1]
	f.runBotFather(chatID, func(ctx context.Context) {
		path, err := f.downloadPhoto(ctx, largest.FileID)
		if err != nil {
			f.sendHTML(chatID, "🔴 Не удалось скачать фото: "+html.EscapeString(err.Error()))
			return
		}
		defer os.RemoveAll(filepath.Dir(path))

		prepared, err := media.PrepareBotpic(path, filepath.Dir(path))
		if err != nil {
			f.sendHTML(chatID, "🔴 "+html.EscapeString(err.Error()))
			return
		}
		_, report := f.reg.ApplyProfile(ctx, entity.BotProfile{
			Username:   avatar.handle,
			BotpicPath: prepared,
		})
		f.sendHTML(chatID, report)
	})
}

func (f *Frontend) downloadPhoto(ctx context.Context, fileID string) (string, error) {
	url, err := f.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("скачивание фото: HTTP %d", resp.StatusCode)
	}

	dir, err := os.MkdirTemp("", "botfleet-avatar-*")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "avatar.jpg")
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", err
	}
	return path, nil
}

// runBotFather выполняет операцию BotFather в фоне; параллельные
// операции отбиваются сразу, а не ставятся в очередь.
func (f *Frontend) runBotFather(chatID int64, fn func(ctx context.Context)) {
	if !f.bfMu.TryLock() {
		f.sendHTML(chatID, "⏳ Предыдущая операция BotFather ещё идёт, подождите.")
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer f.bfMu.Unlock()
		fn(f.ctx)
	}()
}

// async — фоновые операции парка (запуски долгие, апдейты ждать не
// должны).
func (f *Frontend) async(fn func(ctx context.Context)) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		fn(f.ctx)
	}()
}

// sendStatus шлёт сводку по парку; большой парк уходит несколькими
// сообщениями, чтобы не упереться в лимит длины.
func (f *Frontend) sendStatus(chatID int64, dirs []string) {
	for _, page := range supervisor.StatusHTMLPages(f.fleet.Statuses(dirs), 0) {
		f.sendHTML(chatID, page)
	}
}

func (f *Frontend) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := f.api.Send(msg); err != nil {
		f.log.Error("send failed", "error", err)
	}
}

func (f *Frontend) sendMenu(chatID int64, text string) {
	f.sendKeyboard(chatID, text, mainMenu())
}

func (f *Frontend) sendKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	if _, err := f.api.Send(msg); err != nil {
		f.log.Error("send failed", "error", err)
	}
}
