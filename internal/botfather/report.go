package botfather

import (
	"html"
	"strings"

	"botfleet/internal/domain/entity"
)

// formatTranscript — человекочитаемый HTML-хвост диалога для отчёта
// оператору. Текст реплик экранируется, роли размечаются как в старом
// интерфейсе: «Вы:», «BF:», «•».
func formatTranscript(trail *entity.Transcript, lastN int) string {
	out := []string{"<b>Диалог с @BotFather</b> (последние сообщения):"}
	for _, e := range trail.Tail(lastN) {
		switch e.Role {
		case entity.RoleLocal:
			out = append(out, "Вы: <code>"+html.EscapeString(e.Text)+"</code>")
		case entity.RoleRemote:
			out = append(out, "BF: <code>"+html.EscapeString(e.Text)+"</code>")
		default:
			out = append(out, "• "+html.EscapeString(e.Text))
		}
	}
	return strings.Join(out, "\n")
}
