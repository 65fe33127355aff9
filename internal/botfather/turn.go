package botfather

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"botfleet/internal/application/port/output"
	"botfleet/internal/domain/entity"
)

// Timeouts — окна ожидания ответа по типам ходов. Таймаут всегда
// пошаговый: предел операции по стенным часам — сумма таймаутов её
// ходов плюс накладные расходы ресета.
type Timeouts struct {
	Turn  time.Duration // обычный текстовый ход
	File  time.Duration // отправка файла
	Reset time.Duration // ответы на /start и /cancel
	Click time.Duration // ответ после клика по кнопке
	// Send — минимальная пауза между исходящими отправками.
	Send time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Turn:  15 * time.Second,
		File:  60 * time.Second,
		Reset: 6 * time.Second,
		Click: 12 * time.Second,
		Send:  sendInterval,
	}
}

// sendInterval — пауза между отправками: удалённый агент троттлит
// слишком частые сообщения.
const sendInterval = 600 * time.Millisecond

// turns — движок ходов: одна отправка, одно ожидание ответа, журнал.
// Не потокобезопасен — разговор строго пошаговый по контракту.
type turns struct {
	conv    output.Conversation
	trail   *entity.Transcript
	limiter *rate.Limiter
	tm      Timeouts
	log     output.LoggerPort
}

func newTurns(conv output.Conversation, trail *entity.Transcript, tm Timeouts, log output.LoggerPort) *turns {
	interval := tm.Send
	if interval <= 0 {
		interval = sendInterval
	}
	return &turns{
		conv:    conv,
		trail:   trail,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		tm:      tm,
		log:     log,
	}
}

// Reset нормализует состояние удалённого диалога: /start, затем /cancel,
// ответы на оба вычитываются (их отсутствие — не ошибка). Удалённый
// агент не знает про «операции», у него один линейный диалог, поэтому
// каждая операция начинается с ресета.
func (t *turns) Reset(ctx context.Context) error {
	t.trail.System("сброс сессии: /start + /cancel")
	for _, cmd := range []string{"/start", "/cancel"} {
		if err := t.send(ctx, cmd); err != nil {
			return err
		}
		reply, err := t.conv.Response(ctx, t.tm.Reset)
		switch {
		case err == nil:
			t.trail.Remote(strings.TrimSpace(reply.Text))
		case errors.Is(err, output.ErrTimeout):
			t.trail.Remote("")
		default:
			return err
		}
	}
	return nil
}

// Step — один ход с авто-повтором: при таймауте выполняется один ресет
// сессии и отправка повторяется ровно один раз. Второй таймаут уходит
// наверх как фатальный для операции.
func (t *turns) Step(ctx context.Context, text string) (string, error) {
	reply, err := t.StepReply(ctx, text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.Text), nil
}

// StepReply — как Step, но отдаёт ответ целиком, с клавиатурой.
func (t *turns) StepReply(ctx context.Context, text string) (*entity.Reply, error) {
	for attempt := 1; attempt <= 2; attempt++ {
		if err := t.send(ctx, text); err != nil {
			return nil, err
		}
		t.trail.Local(text)

		reply, err := t.conv.Response(ctx, t.tm.Turn)
		if err == nil {
			t.trail.Remote(strings.TrimSpace(reply.Text))
			return reply, nil
		}
		if !errors.Is(err, output.ErrTimeout) {
			return nil, err
		}
		if attempt == 1 {
			t.log.Warn("turn timed out, resetting session", "text", text)
			if rerr := t.Reset(ctx); rerr != nil {
				return nil, rerr
			}
			continue
		}
		return nil, fmt.Errorf("turn %q: %w", text, err)
	}
	return nil, output.ErrTimeout // недостижимо
}

// StepFile — ход с файлом; в журнал вместо байтов попадает плейсхолдер
// с именем файла.
func (t *turns) StepFile(ctx context.Context, path string) (string, error) {
	placeholder := fmt.Sprintf("<file:%s>", filepath.Base(path))
	for attempt := 1; attempt <= 2; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", err
		}
		if err := t.conv.SendFile(ctx, path); err != nil {
			return "", fmt.Errorf("send file: %w", err)
		}
		t.trail.Local(placeholder)

		reply, err := t.conv.Response(ctx, t.tm.File)
		if err == nil {
			msg := strings.TrimSpace(reply.Text)
			t.trail.Remote(msg)
			return msg, nil
		}
		if !errors.Is(err, output.ErrTimeout) {
			return "", err
		}
		if attempt == 1 {
			t.log.Warn("file turn timed out, resetting session", "file", path)
			if rerr := t.Reset(ctx); rerr != nil {
				return "", rerr
			}
			continue
		}
		return "", fmt.Errorf("file turn %s: %w", placeholder, err)
	}
	return "", output.ErrTimeout // недостижимо
}

// Await вычитывает следующий ответ без отправки (после кликов).
func (t *turns) Await(ctx context.Context, timeout time.Duration) (*entity.Reply, error) {
	reply, err := t.conv.Response(ctx, timeout)
	if err != nil {
		return nil, err
	}
	t.trail.Remote(strings.TrimSpace(reply.Text))
	return reply, nil
}

func (t *turns) send(ctx context.Context, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := t.conv.SendText(ctx, text); err != nil {
		return fmt.Errorf("send %q: %w", text, err)
	}
	return nil
}
