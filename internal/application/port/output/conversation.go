package output

import (
	"context"
	"errors"
	"time"

	"botfleet/internal/domain/entity"
)

// ErrTimeout возвращается транспортом, когда удалённый агент не ответил
// в отведённое окно. Движок ходов опирается на эту ошибку для
// reset-and-retry, поэтому транспорт обязан возвращать именно её
// (возможно, обёрнутую).
var ErrTimeout = errors.New("conversation: no reply within timeout")

// Conversation — ограниченный диалоговый контекст с одним собеседником.
// Контракт строго пошаговый: следующая отправка не выполняется, пока
// предыдущий ответ не вычитан или не истёк по таймауту.
type Conversation interface {
	SendText(ctx context.Context, text string) error
	SendFile(ctx context.Context, path string) error

	// Response блокируется до следующего входящего сообщения собеседника
	// либо до истечения timeout (тогда возвращается ErrTimeout).
	Response(ctx context.Context, timeout time.Duration) (*entity.Reply, error)

	// ClickText нажимает inline-кнопку сообщения reply по её тексту.
	ClickText(ctx context.Context, reply *entity.Reply, label string) error
	// ClickData нажимает кнопку по callback-payload (fallback-стратегия).
	ClickData(ctx context.Context, reply *entity.Reply, data []byte) error

	Close() error
}

// Session — одно открытое подключение аккаунта автоматизации.
type Session interface {
	Conversation(ctx context.Context, peer string) (Conversation, error)
	Close() error
}

// Dialer открывает сессии. Авторизация и хранение учётных данных —
// забота реализации, ядро про них ничего не знает.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}
