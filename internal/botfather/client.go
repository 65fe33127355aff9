package botfather

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"botfleet/internal/application/port/output"
	"botfleet/internal/domain/entity"
)

// Config — параметры клиента автоматизации BotFather.
type Config struct {
	// Peer — фиксированный, общеизвестный собеседник.
	Peer string
	// ReportTail — сколько последних записей журнала попадает в отчёт.
	ReportTail int
	Lexicon    Lexicon
	Timeouts   Timeouts
}

func DefaultConfig() Config {
	return Config{
		Peer:       "BotFather",
		ReportTail: 12,
		Lexicon:    DefaultLexicon(),
		Timeouts:   DefaultTimeouts(),
	}
}

// Client — оркестратор диалоговой автоматизации: составляет операции из
// движка ходов, классификатора ответов и навигатора меню. Каждая
// операция владеет собственной парой сессия+разговор, открываемой и
// закрываемой внутри вызова; параллельный запуск операций на одном
// аккаунте не поддерживается — удалённый диалог строго линейный.
type Client struct {
	dialer output.Dialer
	cfg    Config
	log    output.LoggerPort
}

func NewClient(dialer output.Dialer, cfg Config, log output.LoggerPort) *Client {
	if cfg.Peer == "" {
		cfg.Peer = "BotFather"
	}
	if cfg.ReportTail <= 0 {
		cfg.ReportTail = 12
	}
	return &Client{dialer: dialer, cfg: cfg, log: log}
}

// op — рабочее состояние одной операции.
type op struct {
	turns *turns
	nav   *navigator
	trail *entity.Transcript
}

// run открывает сессию и разговор, выполняет обязательный ресет и
// передаёт управление операции. Сессия освобождается на любом пути
// выхода ровно один раз.
func (c *Client) run(ctx context.Context, name string, trail *entity.Transcript, fn func(o *op) error) error {
	log := c.log.WithFields(map[string]any{"op": name, "op_id": uuid.NewString()})
	log.Info("botfather operation started")

	sess, err := c.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer sess.Close()

	conv, err := sess.Conversation(ctx, c.cfg.Peer)
	if err != nil {
		return fmt.Errorf("open conversation with %s: %w", c.cfg.Peer, err)
	}
	defer conv.Close()

	t := newTurns(conv, trail, c.cfg.Timeouts, log)
	if err := t.Reset(ctx); err != nil {
		return err
	}

	err = fn(&op{turns: t, nav: newNavigator(t, c.cfg.Lexicon), trail: trail})
	if err != nil {
		log.Error("botfather operation failed", "error", err)
		return err
	}
	log.Info("botfather operation finished")
	return nil
}

// errorReport сводит любую ошибку операции к человекочитаемому отчёту.
// Наружу никогда не уходит сырое исключение — только текст с хвостом
// диалога.
func (c *Client) errorReport(err error, trail *entity.Transcript) string {
	var msg string
	switch {
	case errors.Is(err, output.ErrTimeout):
		msg = "🔴 Таймаут ожидания ответа от @BotFather."
	case errors.Is(err, ErrNotFound):
		msg = "🔴 Не удалось найти карточку бота. Проверьте @username."
	default:
		msg = "🔴 Ошибка: " + html.EscapeString(err.Error())
	}
	return msg + "\n" + formatTranscript(trail, c.cfg.ReportTail)
}

// ListBots снимает список ботов аккаунта со всех страниц меню.
func (c *Client) ListBots(ctx context.Context) (bool, []string, string) {
	trail := &entity.Transcript{}
	var usernames []string
	seen := make(map[string]bool)

	err := c.run(ctx, "list_bots", trail, func(o *op) error {
		page, err := o.nav.Open(ctx)
		if err != nil {
			return err
		}
		for pageIdx := 0; pageIdx < maxMenuPages; pageIdx++ {
			for _, u := range usernamesFromReply(page.reply) {
				if !seen[u] {
					seen[u] = true
					usernames = append(usernames, u)
				}
			}
			next, ok, err := o.nav.Advance(ctx, page)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			page = next
		}
		return nil
	})
	if err != nil {
		return false, nil, c.errorReport(err, trail)
	}
	return true, usernames, formatTranscript(trail, c.cfg.ReportTail)
}

// Create создаёт бота: /newbot → имя → @username. Отклонённый username
// завершает операцию с подсказкой — автоматических повторов нет, выбор
// нового имени остаётся за оператором.
func (c *Client) Create(ctx context.Context, name, username string) (bool, string, string) {
	unameAt := atUsername(username)
	if problems := ValidateHandle(username); len(problems) > 0 {
		return false, "", "🔴 Username не пройдёт проверку: " + strings.Join(problems, "; ")
	}

	trail := &entity.Transcript{}
	var (
		token    string
		rejected Outcome
		lastMsg  string
	)
	err := c.run(ctx, "create", trail, func(o *op) error {
		if _, err := o.turns.Step(ctx, "/newbot"); err != nil {
			return err
		}
		if _, err := o.turns.Step(ctx, name); err != nil {
			return err
		}
		msg, err := o.turns.Step(ctx, unameAt)
		if err != nil {
			return err
		}
		lastMsg = msg

		outcome := c.cfg.Lexicon.ClassifyOutcome(msg)
		if outcome == OutcomeTaken || outcome == OutcomeInvalid || strings.Contains(strings.ToLower(msg), "sorry") {
			rejected = outcome
			return nil
		}

		// иногда токен уже в этом ответе — тогда дополнительных ходов
		// не нужно
		if tok, ok := ExtractToken(msg); ok {
			token = tok
			return nil
		}
		if _, err := o.turns.Step(ctx, "/token"); err != nil {
			return err
		}
		msg, err = o.turns.Step(ctx, unameAt)
		if err != nil {
			return err
		}
		lastMsg = msg
		if tok, ok := ExtractToken(msg); ok {
			token = tok
		}
		return nil
	})
	if err != nil {
		return false, "", c.errorReport(err, trail)
	}

	if rejected != OutcomeNone || token == "" {
		hint := c.cfg.Lexicon.Hint(c.cfg.Lexicon.ClassifyOutcome(lastMsg), username)
		fail := "🔴 Ошибка при установке username."
		if rejected == OutcomeNone {
			fail = "🔴 BotFather не выдал токен."
		}
		report := formatTranscript(trail, c.cfg.ReportTail) + "\n\n" + fail
		if hint != "" {
			report += "\n" + hint
		}
		return false, "", report
	}

	report := fmt.Sprintf(
		"<b>Бот создан</b> 🎉\n• Name: <code>%s</code>\n• Username: <code>%s</code>\n• Token: <code>%s</code>",
		html.EscapeString(name), html.EscapeString(unameAt), token,
	)
	return true, token, report
}

// Token запрашивает токен существующего бота: /token → @username.
func (c *Client) Token(ctx context.Context, username string) (bool, string, string) {
	unameAt := atUsername(username)
	trail := &entity.Transcript{}
	var token string

	err := c.run(ctx, "token", trail, func(o *op) error {
		if _, err := o.turns.Step(ctx, "/token"); err != nil {
			return err
		}
		msg, err := o.turns.Step(ctx, unameAt)
		if err != nil {
			return err
		}
		if tok, ok := ExtractToken(msg); ok {
			token = tok
		}
		return nil
	})
	if err != nil {
		return false, "", c.errorReport(err, trail)
	}
	if token == "" {
		return false, "", "🔴 BotFather не выдал токен.\n" + formatTranscript(trail, c.cfg.ReportTail)
	}
	report := fmt.Sprintf("🔑 Token для <code>%s</code>:\n<code>%s</code>", html.EscapeString(unameAt), token)
	return true, token, report
}

// SetAbout устанавливает короткий текст «о боте» (обрезается до лимита).
func (c *Client) SetAbout(ctx context.Context, username, about string) (bool, string) {
	return c.setTextField(ctx, "set_about", FieldAbout, "/setabouttext", username,
		truncateRunes(about, entity.AboutMaxLen), "About")
}

// SetDescription устанавливает длинное описание (обрезается до лимита).
func (c *Client) SetDescription(ctx context.Context, username, description string) (bool, string) {
	return c.setTextField(ctx, "set_description", FieldDescription, "/setdescription", username,
		truncateRunes(description, entity.DescriptionMaxLen), "Description")
}

func (c *Client) setTextField(ctx context.Context, opName string, field ProfileField, command, username, value, title string) (bool, string) {
	unameAt := atUsername(username)
	trail := &entity.Transcript{}
	var ok bool

	err := c.run(ctx, opName, trail, func(o *op) error {
		if _, err := o.turns.Step(ctx, command); err != nil {
			return err
		}
		if _, err := o.turns.Step(ctx, unameAt); err != nil {
			return err
		}
		msg, err := o.turns.Step(ctx, value)
		if err != nil {
			return err
		}
		ok = c.cfg.Lexicon.SuccessFor(field, msg)
		return nil
	})
	if err != nil {
		return false, c.errorReport(err, trail)
	}
	if !ok {
		return false, fmt.Sprintf("🔴 Не удалось обновить %s.\n%s", title, formatTranscript(trail, c.cfg.ReportTail))
	}
	return true, fmt.Sprintf("✅ %s обновлён.", title)
}

// SetAvatar загружает аватар бота: /setuserpic → @username → файл.
func (c *Client) SetAvatar(ctx context.Context, username, photoPath string) (bool, string) {
	unameAt := atUsername(username)
	trail := &entity.Transcript{}
	var ok bool

	err := c.run(ctx, "set_avatar", trail, func(o *op) error {
		if _, err := o.turns.Step(ctx, "/setuserpic"); err != nil {
			return err
		}
		if _, err := o.turns.Step(ctx, unameAt); err != nil {
			return err
		}
		msg, err := o.turns.StepFile(ctx, photoPath)
		if err != nil {
			return err
		}
		ok = c.cfg.Lexicon.SuccessFor(FieldBotpic, msg)
		return nil
	})
	if err != nil {
		return false, c.errorReport(err, trail)
	}
	if !ok {
		return false, "🔴 Не удалось установить аватар.\n" + formatTranscript(trail, c.cfg.ReportTail)
	}
	return true, "✅ Аватар установлен."
}

// ApplyProfile применяет about/description/аватар одной операцией: один
// ресет, одна пара сессия+разговор. Отказ отдельного поля не прерывает
// остальные; общий успех — только если удались все затронутые поля.
func (c *Client) ApplyProfile(ctx context.Context, profile entity.BotProfile) (bool, string) {
	if !profile.HasAnyField() {
		return true, "ℹ️ В профиле нет полей для применения."
	}

	unameAt := atUsername(profile.Username)
	trail := &entity.Transcript{}
	overall := true

	err := c.run(ctx, "apply_profile", trail, func(o *op) error {
		if profile.About != nil {
			if !c.applyField(ctx, o, FieldAbout, "/setabouttext", unameAt,
				truncateRunes(*profile.About, entity.AboutMaxLen)) {
				overall = false
			}
		}
		if profile.Description != nil {
			if !c.applyField(ctx, o, FieldDescription, "/setdescription", unameAt,
				truncateRunes(*profile.Description, entity.DescriptionMaxLen)) {
				overall = false
			}
		}
		if profile.BotpicPath != "" {
			if !c.applyBotpic(ctx, o, unameAt, profile.BotpicPath) {
				overall = false
			}
		}
		return nil
	})
	if err != nil {
		return false, c.errorReport(err, trail)
	}

	title := "✅ Профиль обновлён"
	if !overall {
		title = "⚠️ Профиль обновлён частично"
	}
	return overall, "<b>" + title + "</b>\n" + formatTranscript(trail, c.cfg.ReportTail)
}

// applyField — одно текстовое поле внутри пакетного применения. Любая
// ошибка (включая фатальный таймаут хода) гасится в запись журнала,
// чтобы остальные поля получили свой шанс.
func (c *Client) applyField(ctx context.Context, o *op, field ProfileField, command, unameAt, value string) bool {
	if _, err := o.turns.Step(ctx, command); err != nil {
		o.trail.Remote(fmt.Sprintf("<%s error: %v>", field, err))
		return false
	}
	if _, err := o.turns.Step(ctx, unameAt); err != nil {
		o.trail.Remote(fmt.Sprintf("<%s error: %v>", field, err))
		return false
	}
	msg, err := o.turns.Step(ctx, value)
	if err != nil {
		o.trail.Remote(fmt.Sprintf("<%s error: %v>", field, err))
		return false
	}
	return c.cfg.Lexicon.SuccessFor(field, msg)
}

func (c *Client) applyBotpic(ctx context.Context, o *op, unameAt, path string) bool {
	if _, err := o.turns.Step(ctx, "/setuserpic"); err != nil {
		o.trail.Remote(fmt.Sprintf("<botpic error: %v>", err))
		return false
	}
	if _, err := o.turns.Step(ctx, unameAt); err != nil {
		o.trail.Remote(fmt.Sprintf("<botpic error: %v>", err))
		return false
	}
	msg, err := o.turns.StepFile(ctx, path)
	if err != nil {
		o.trail.Remote(fmt.Sprintf("<botpic error: %v>", err))
		return false
	}
	return c.cfg.Lexicon.SuccessFor(FieldBotpic, msg)
}

// SetMenuButton настраивает кнопку меню через вложенный диалог:
// карточка бота → Bot Settings → Menu Button → URL → Title. Пустые URL
// и заголовок заменяются на /empty («использовать по умолчанию»). Срыв
// любого под-шага завершает операцию с частичным журналом, без
// повторов.
func (c *Client) SetMenuButton(ctx context.Context, username, url, title string) (bool, string) {
	trail := &entity.Transcript{}
	var (
		ok        bool
		finalText string
	)

	err := c.run(ctx, "set_menu_button", trail, func(o *op) error {
		card, err := o.nav.Locate(ctx, username)
		if err != nil {
			return err
		}

		o.trail.System("Открываю Bot Settings")
		act := o.nav.ClickMatching(ctx, card, c.cfg.Lexicon.IsSettingsButton)
		if act.State != ClickedReply {
			return errors.New("не удалось открыть Bot Settings")
		}

		o.trail.System("Открываю Menu Button")
		act = o.nav.ClickMatching(ctx, act.Reply, c.cfg.Lexicon.IsMenuButtonButton)
		if act.State != ClickedReply {
			return errors.New("в Bot Settings не нашёлся пункт «Menu Button»")
		}

		toURL := emptyOr(url)
		o.trail.System("Отправляю URL: " + toURL)
		if _, err := o.turns.Step(ctx, toURL); err != nil {
			return err
		}

		toTitle := emptyOr(title)
		o.trail.System("Отправляю Title: " + toTitle)
		final, err := o.turns.Step(ctx, toTitle)
		if err != nil {
			return err
		}
		finalText = final
		ok = matchesAny(final, c.cfg.Lexicon.SuccessCommon)
		return nil
	})
	if err != nil {
		return false, c.errorReport(err, trail)
	}

	report := formatTranscript(trail, 40)
	if !ok {
		return false, fmt.Sprintf("⚠️ Ответ BotFather: <code>%s</code>\n%s", html.EscapeString(finalText), report)
	}
	return true, "✅ Menu Button обновлён.\n" + report
}

// emptyOr — экранирующее значение «по умолчанию/пусто» для вложенного
// диалога.
func emptyOr(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "/empty"
	}
	return v
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
