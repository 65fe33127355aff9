package botfather

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"botfleet/internal/domain/entity"
)

// maxMenuPages — жёсткий потолок обхода страниц: защита от
// бесконечно листающегося или враждебного меню.
const maxMenuPages = 20

// ErrNotFound: целевая карточка не встретилась ни на одной странице.
var ErrNotFound = errors.New("botfather: bot card not found in menu")

// Locate перебором ищет карточку бота с нужным username: открывает
// меню, кликает каждую непосещённую карточку, проверяет открывшийся
// детальный вид, при промахе возвращается в меню и продолжает;
// исчерпав страницу — листает дальше. Совпадение завершает весь поиск
// сразу. Карточка, подпись которой уже не совпадает с увиденной при
// первом чтении страницы, молча пропускается в этом проходе.
func (n *navigator) Locate(ctx context.Context, target string) (*entity.Reply, error) {
	core := handleCore(target)
	visited := make(map[string]bool)

	n.t.trail.System(fmt.Sprintf("Ищу карточку %s через %s", atUsername(target), menuCommand))
	page, err := n.Open(ctx)
	if err != nil {
		return nil, err
	}

	for pageIdx := 0; pageIdx < maxMenuPages; pageIdx++ {
		n.t.trail.System(fmt.Sprintf("Страница меню №%d: карточек %d, навигационных %d",
			pageIdx+1, len(page.cards), len(page.nav)))

		for _, label := range page.CardLabels() {
			if visited[label] {
				continue
			}
			visited[label] = true

			act := n.Activate(ctx, page, page.mustButton(label))
			if act.State != ClickedReply {
				// транспортный срыв или исчезнувшая кнопка — меню
				// открываем заново и продолжаем со следующей карточки
				n.t.trail.System(fmt.Sprintf("Клик по «%s» не удался — перечитываю меню", label))
				page, err = n.reopen(ctx, pageIdx)
				if err != nil {
					return nil, err
				}
				continue
			}

			if replyMentions(act.Reply, core) {
				n.t.trail.System("Найдена карточка нужного бота")
				return act.Reply, nil
			}

			page, err = n.reopen(ctx, pageIdx)
			if err != nil {
				return nil, err
			}
		}

		nextPage, ok, err := n.Advance(ctx, page)
		if err != nil {
			return nil, err
		}
		if !ok {
			break // страниц больше нет
		}
		page = nextPage
	}

	n.t.trail.System("Карточка не нашлась ни на одной странице")
	return nil, ErrNotFound
}

// reopen возвращает меню на страницу pageIdx после ухода в карточку:
// заново открывает список и долистывает до нужной страницы.
func (n *navigator) reopen(ctx context.Context, pageIdx int) (*menuPage, error) {
	page, err := n.Open(ctx)
	if err != nil {
		return nil, err
	}
	for i := 0; i < pageIdx; i++ {
		nextPage, ok, err := n.Advance(ctx, page)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		page = nextPage
	}
	return page, nil
}

// mustButton — кнопка страницы по подписи; при отсутствии возвращается
// пустая кнопка, которую Activate классифицирует как ненажимаемую.
func (p *menuPage) mustButton(label string) entity.Button {
	for _, b := range p.cards {
		if b.Label == label {
			return b
		}
	}
	return entity.Button{Label: label}
}

// replyMentions: детальный вид упоминает целевой username (в тексте или
// на кнопках, с @ или без).
func replyMentions(reply *entity.Reply, core string) bool {
	if core == "" || reply == nil {
		return false
	}
	if strings.Contains(strings.ToLower(reply.Text), core) {
		return true
	}
	for _, b := range reply.FlatButtons() {
		if strings.Contains(strings.ToLower(b.Label), core) {
			return true
		}
	}
	return false
}
