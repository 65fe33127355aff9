package supervisor

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"
)

// statusPageSize — ботов на одну страницу чатной сводки: одно длинное
// сообщение упирается в лимит Telegram на больших парках.
const statusPageSize = 5

// StatusHTML — сводка по парку для чата: строка на бота плюс итоги.
func StatusHTML(statuses []BotStatus) string {
	var b strings.Builder
	b.WriteString("<b>Состояние парка</b>\n")

	alive := 0
	for _, st := range statuses {
		alive += statusLine(&b, st)
	}

	fmt.Fprintf(&b, "\nЖивых: %d из %d", alive, len(statuses))
	return b.String()
}

// StatusHTMLPages — та же сводка, порезанная на сообщения по perPage
// ботов; perPage <= 0 берёт значение по умолчанию. Итоги идут на
// последней странице.
func StatusHTMLPages(statuses []BotStatus, perPage int) []string {
	if perPage <= 0 {
		perPage = statusPageSize
	}
	total := (len(statuses) + perPage - 1) / perPage
	if total <= 1 {
		return []string{StatusHTML(statuses)}
	}

	alive := 0
	pages := make([]string, 0, total)
	for p := 0; p < total; p++ {
		chunk := statuses[p*perPage : min((p+1)*perPage, len(statuses))]
		var b strings.Builder
		fmt.Fprintf(&b, "<b>Состояние парка</b> — стр. %d/%d\n", p+1, total)
		for _, st := range chunk {
			alive += statusLine(&b, st)
		}
		if p == total-1 {
			fmt.Fprintf(&b, "\nЖивых: %d из %d", alive, len(statuses))
		}
		pages = append(pages, b.String())
	}
	return pages
}

// statusLine пишет строку по одному боту и возвращает 1 для живого.
func statusLine(b *strings.Builder, st BotStatus) int {
	mark := "🔴"
	detail := "не запущен"
	alive := 0
	if st.Alive {
		mark = "🟢"
		alive = 1
		detail = fmt.Sprintf("PID %d", st.PID)
	} else if st.PID > 0 {
		detail = fmt.Sprintf("PID %d мёртв", st.PID)
	}
	fmt.Fprintf(b, "%s <code>%s</code> — %s\n", mark, html.EscapeString(filepath.Base(st.Dir)), detail)
	return alive
}

// StartReportHTML — отчёт о массовом запуске.
func StartReportHTML(results []StartResult) string {
	var b strings.Builder
	b.WriteString("<b>Запуск парка</b>\n")

	ok := 0
	for _, r := range results {
		name := filepath.Base(r.Dir)
		if r.Username != "" {
			name = "@" + r.Username
		}
		if r.OK {
			ok++
			fmt.Fprintf(&b, "🟢 <code>%s</code> — PID %d\n", html.EscapeString(name), r.PID)
			continue
		}
		reason := "неизвестная ошибка"
		if r.Err != nil {
			reason = r.Err.Error()
		}
		fmt.Fprintf(&b, "🔴 <code>%s</code> — %s\n", html.EscapeString(name), html.EscapeString(reason))
	}

	fmt.Fprintf(&b, "\nПоднято: %d из %d", ok, len(results))
	return b.String()
}
