package botfather

import (
	"context"
	"errors"

	"botfleet/internal/application/port/output"
	"botfleet/internal/domain/entity"
)

// menuCommand открывает список ботов аккаунта.
const menuCommand = "/mybots"

// ActivationState — явный трёхзначный исход клика по кнопке. Сорвавшийся
// клик — ожидаемая ветка (содержимое меню на сервере могло сдвинуться
// между запросами), а не исключение.
type ActivationState int

const (
	// NotClickable — кнопку не удалось нажать ни по тексту, ни по
	// payload. Мягкий промах: вызывающий перечитывает меню и продолжает.
	NotClickable ActivationState = iota
	// ClickedNoReply — клик прошёл, но ответа в окно не пришло.
	ClickedNoReply
	// ClickedReply — клик прошёл и ответ получен.
	ClickedReply
)

type Activation struct {
	State ActivationState
	Reply *entity.Reply
}

// menuPage — одна страница меню: карточки ботов отдельно от
// навигационных и сервисных кнопок. Страница не хранится между
// запросами — содержимое на сервере может измениться.
type menuPage struct {
	reply *entity.Reply
	cards []entity.Button
	nav   []entity.Button
}

// CardLabels — подписи карточек в порядке появления.
func (p *menuPage) CardLabels() []string {
	out := make([]string, len(p.cards))
	for i, b := range p.cards {
		out[i] = b.Label
	}
	return out
}

// navigator ходит по постраничному меню удалённого агента.
type navigator struct {
	t   *turns
	lex Lexicon
}

func newNavigator(t *turns, lex Lexicon) *navigator {
	return &navigator{t: t, lex: lex}
}

// Open запрашивает первую страницу меню.
func (n *navigator) Open(ctx context.Context) (*menuPage, error) {
	reply, err := n.t.StepReply(ctx, menuCommand)
	if err != nil {
		return nil, err
	}
	return n.classify(reply), nil
}

// classify раскладывает кнопки страницы: сервисные и навигационные — в
// nav, остальные — карточки ботов.
func (n *navigator) classify(reply *entity.Reply) *menuPage {
	page := &menuPage{reply: reply}
	for _, b := range reply.FlatButtons() {
		if n.lex.IsServiceButton(b.Label) || n.lex.IsNavButton(b.Label) {
			page.nav = append(page.nav, b)
		} else {
			page.cards = append(page.cards, b)
		}
	}
	return page
}

// Activate нажимает кнопку страницы: сначала по тексту, при неудаче — по
// payload, если он есть. Кнопка, которой на актуальной странице уже нет,
// считается ненажимаемой.
func (n *navigator) Activate(ctx context.Context, page *menuPage, btn entity.Button) Activation {
	if _, ok := page.reply.FindButton(btn.Label); !ok {
		return Activation{State: NotClickable}
	}
	if err := n.t.conv.ClickText(ctx, page.reply, btn.Label); err != nil {
		if len(btn.Data) == 0 {
			return Activation{State: NotClickable}
		}
		if err := n.t.conv.ClickData(ctx, page.reply, btn.Data); err != nil {
			return Activation{State: NotClickable}
		}
	}
	reply, err := n.t.Await(ctx, n.t.tm.Click)
	if err != nil {
		if errors.Is(err, output.ErrTimeout) {
			return Activation{State: ClickedNoReply}
		}
		return Activation{State: ClickedNoReply}
	}
	return Activation{State: ClickedReply, Reply: reply}
}

// NextButton находит навигационную кнопку «вперёд». Её отсутствие
// означает, что текущая страница — последняя.
func (n *navigator) NextButton(page *menuPage) (entity.Button, bool) {
	for _, b := range page.nav {
		if n.lex.IsNextButton(b.Label) {
			return b, true
		}
	}
	return entity.Button{}, false
}

// Advance листает меню на следующую страницу.
func (n *navigator) Advance(ctx context.Context, page *menuPage) (*menuPage, bool, error) {
	next, ok := n.NextButton(page)
	if !ok {
		return nil, false, nil
	}
	act := n.Activate(ctx, page, next)
	if act.State != ClickedReply {
		return nil, false, errors.New("page advance: next button did not yield a page")
	}
	return n.classify(act.Reply), true, nil
}

// ClickMatching нажимает первую кнопку ответа, подпись которой проходит
// предикат.
func (n *navigator) ClickMatching(ctx context.Context, reply *entity.Reply, match func(string) bool) Activation {
	for _, b := range reply.FlatButtons() {
		if match(b.Label) {
			return n.Activate(ctx, &menuPage{reply: reply, cards: []entity.Button{b}}, b)
		}
	}
	return Activation{State: NotClickable}
}
