package botfather

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"botfleet/internal/application/port/output"
	"botfleet/internal/domain/entity"
	"botfleet/internal/infrastructure/logger"
)

// fakeConv — скриптуемый разговор для тестов: отправка кладёт ответ в
// очередь согласно сценарию, Response вычитывает очередь, пустая
// очередь означает таймаут.
type fakeConv struct {
	onText  func(text string) *entity.Reply
	onFile  func(path string) *entity.Reply
	onClick func(reply *entity.Reply, label string) (*entity.Reply, bool)

	textClicksFail bool // имитация транспорта без клика по тексту

	pending []*entity.Reply
	sent    []string
	files   []string
	clicks  []string
	closed  bool
}

func (c *fakeConv) SendText(_ context.Context, text string) error {
	c.sent = append(c.sent, text)
	if c.onText != nil {
		if r := c.onText(text); r != nil {
			c.pending = append(c.pending, r)
		}
	}
	return nil
}

func (c *fakeConv) SendFile(_ context.Context, path string) error {
	c.files = append(c.files, path)
	if c.onFile != nil {
		if r := c.onFile(path); r != nil {
			c.pending = append(c.pending, r)
		}
	}
	return nil
}

func (c *fakeConv) Response(_ context.Context, _ time.Duration) (*entity.Reply, error) {
	if len(c.pending) == 0 {
		return nil, output.ErrTimeout
	}
	r := c.pending[0]
	c.pending = c.pending[1:]
	return r, nil
}

func (c *fakeConv) ClickText(_ context.Context, reply *entity.Reply, label string) error {
	if c.textClicksFail {
		return errors.New("text clicks unsupported")
	}
	return c.click(reply, label, "text:"+label)
}

func (c *fakeConv) ClickData(_ context.Context, reply *entity.Reply, data []byte) error {
	for _, b := range reply.FlatButtons() {
		if len(b.Data) > 0 && bytes.Equal(b.Data, data) {
			return c.click(reply, b.Label, "data:"+b.Label)
		}
	}
	return errors.New("no button with such payload")
}

func (c *fakeConv) click(reply *entity.Reply, label, record string) error {
	c.clicks = append(c.clicks, record)
	if c.onClick == nil {
		return errors.New("clicks not scripted")
	}
	r, ok := c.onClick(reply, label)
	if !ok {
		return errors.New("button rejected the click")
	}
	if r != nil {
		c.pending = append(c.pending, r)
	}
	return nil
}

func (c *fakeConv) Close() error {
	c.closed = true
	return nil
}

// sentCount — сколько раз отправлялся данный текст.
func (c *fakeConv) sentCount(text string) int {
	n := 0
	for _, s := range c.sent {
		if s == text {
			n++
		}
	}
	return n
}

type fakeSession struct {
	conv   *fakeConv
	closed bool
}

func (s *fakeSession) Conversation(_ context.Context, _ string) (output.Conversation, error) {
	return s.conv, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeDialer struct {
	conv  *fakeConv
	dials int
}

func (d *fakeDialer) Dial(_ context.Context) (output.Session, error) {
	d.dials++
	return &fakeSession{conv: d.conv}, nil
}

// scriptedReplies — сценарий «текст → очередь ответов»: каждый вопрос
// снимает следующий заготовленный ответ, исчерпанная очередь молчит.
func scriptedReplies(script map[string][]*entity.Reply) func(string) *entity.Reply {
	return func(text string) *entity.Reply {
		q := script[text]
		if len(q) == 0 {
			return nil
		}
		script[text] = q[1:]
		return q[0]
	}
}

func textReply(text string) *entity.Reply {
	return &entity.Reply{Text: text}
}

func testTimeouts() Timeouts {
	return Timeouts{
		Turn:  100 * time.Millisecond,
		File:  100 * time.Millisecond,
		Reset: 50 * time.Millisecond,
		Click: 100 * time.Millisecond,
		Send:  time.Millisecond,
	}
}

func newTestTurns(conv *fakeConv) (*turns, *entity.Transcript) {
	trail := &entity.Transcript{}
	return newTurns(conv, trail, testTimeouts(), logger.Nop()), trail
}

func newTestClient(conv *fakeConv) (*Client, *fakeDialer) {
	d := &fakeDialer{conv: conv}
	cfg := DefaultConfig()
	cfg.Timeouts = testTimeouts()
	return NewClient(d, cfg, logger.Nop()), d
}

// menuWorld — постраничное меню /mybots с карточками и детальными
// видами, как его отдаёт удалённый агент.
type menuWorld struct {
	pages    [][]entity.Button
	details  map[string]*entity.Reply // детальный вид по подписи карточки
	clickMap map[string]*entity.Reply // ответы на клики вне меню

	menuFetches int
	pagesSeen   map[int]bool
}

func newMenuWorld(pages [][]entity.Button) *menuWorld {
	return &menuWorld{
		pages:     pages,
		details:   make(map[string]*entity.Reply),
		clickMap:  make(map[string]*entity.Reply),
		pagesSeen: make(map[int]bool),
	}
}

// cardsPage строит страницу карточек с подписями вида prefix+NN.
func cardsPage(labels ...string) []entity.Button {
	out := make([]entity.Button, len(labels))
	for i, l := range labels {
		out[i] = entity.Button{Label: l, Data: []byte(l)}
	}
	return out
}

func (w *menuWorld) pageReply(idx int) *entity.Reply {
	w.pagesSeen[idx] = true
	rows := make([][]entity.Button, 0, len(w.pages[idx])+1)
	for _, card := range w.pages[idx] {
		rows = append(rows, []entity.Button{card})
	}
	var nav []entity.Button
	if idx > 0 {
		nav = append(nav, entity.Button{Label: "«", Data: []byte(fmt.Sprintf("page:%d", idx-1))})
	}
	if idx < len(w.pages)-1 {
		nav = append(nav, entity.Button{Label: "»", Data: []byte(fmt.Sprintf("page:%d", idx+1))})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return &entity.Reply{
		Text:    "Choose a bot from the list below:",
		Buttons: rows,
		Ref:     idx,
	}
}

func (w *menuWorld) handleText(text string) *entity.Reply {
	if text == menuCommand {
		w.menuFetches++
		return w.pageReply(0)
	}
	return nil
}

func (w *menuWorld) handleClick(reply *entity.Reply, label string) (*entity.Reply, bool) {
	if idx, ok := reply.Ref.(int); ok {
		switch label {
		case "»":
			return w.pageReply(idx + 1), true
		case "«":
			return w.pageReply(idx - 1), true
		}
		if d, ok := w.details[label]; ok {
			return d, true
		}
		return nil, false
	}
	if r, ok := w.clickMap[label]; ok {
		return r, true
	}
	return nil, false
}

func (w *menuWorld) conv() *fakeConv {
	return &fakeConv{onText: w.handleText, onClick: w.handleClick}
}

// endlessMenu — враждебное меню: каждая страница несёт кнопку «дальше»,
// пагинация никогда не заканчивается.
type endlessMenu struct {
	maxPage int // наибольший запрошенный номер страницы
	fetches int
}

func (w *endlessMenu) page(idx int) *entity.Reply {
	w.fetches++
	if idx > w.maxPage {
		w.maxPage = idx
	}
	label := fmt.Sprintf("Loop %02d", idx)
	return &entity.Reply{
		Text: fmt.Sprintf("Choose a bot: @loop%02dbot", idx),
		Buttons: [][]entity.Button{
			{{Label: label, Data: []byte(label)}},
			{{Label: "»", Data: []byte(fmt.Sprintf("page:%d", idx+1))}},
		},
		Ref: idx,
	}
}

func (w *endlessMenu) conv() *fakeConv {
	return &fakeConv{
		onText: func(text string) *entity.Reply {
			if text == menuCommand {
				return w.page(0)
			}
			return nil
		},
		onClick: func(reply *entity.Reply, label string) (*entity.Reply, bool) {
			idx, ok := reply.Ref.(int)
			if !ok {
				return nil, false
			}
			if label == "»" {
				return w.page(idx + 1), true
			}
			return &entity.Reply{Text: fmt.Sprintf("Here it is: @loop%02dxbot.", idx)}, true
		},
	}
}
