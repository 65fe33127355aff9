package botfather

import (
	"fmt"
	"regexp"
	"strings"

	"botfleet/internal/domain/entity"
)

var (
	// tokenRe — лексический образ токена бота в свободном тексте ответа.
	tokenRe = regexp.MustCompile(`\b(\d+:[A-Za-z0-9_-]{20,})\b`)
	// usernameRe — явные @username.
	usernameRe = regexp.MustCompile(`@([A-Za-z0-9_]{5,32})\b`)
	// tmeRe — ссылки вида t.me/<name>.
	tmeRe = regexp.MustCompile(`(?i)t\.me/(@?[A-Za-z0-9_]{5,32})`)
)

// ExtractToken возвращает первый токен из текста как есть.
func ExtractToken(text string) (string, bool) {
	m := tokenRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractUsernames собирает @username из текста: сначала явные @mentions,
// затем ссылки t.me. Дубликаты убираются с сохранением порядка первого
// появления, все значения нормализованы к форме с @.
func ExtractUsernames(text string) []string {
	if text == "" {
		return nil
	}
	var found []string
	seen := make(map[string]bool)
	add := func(u string) {
		if !strings.HasPrefix(u, "@") {
			u = "@" + u
		}
		if !seen[u] {
			seen[u] = true
			found = append(found, u)
		}
	}
	for _, m := range usernameRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range tmeRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return found
}

// usernamesFromReply достаёт @username из текста ответа и подписей его
// кнопок.
func usernamesFromReply(reply *entity.Reply) []string {
	if reply == nil {
		return nil
	}
	var found []string
	seen := make(map[string]bool)
	collect := func(text string) {
		for _, u := range ExtractUsernames(text) {
			if !seen[u] {
				seen[u] = true
				found = append(found, u)
			}
		}
	}
	collect(reply.Text)
	for _, b := range reply.FlatButtons() {
		collect(b.Label)
	}
	return found
}

// Outcome — классификация ответа удалённого агента.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeTaken
	OutcomeInvalid
	OutcomeTooLongAbout
	OutcomeTooLongDescription
)

// ClassifyOutcome сопоставляет ответ сигналам отказа. Совпасть могут
// несколько наборов; исход определяет первое правило в порядке
// приоритета: занят → некорректен → длинный about → длинный description.
func (lex Lexicon) ClassifyOutcome(text string) Outcome {
	switch {
	case matchesAny(text, lex.Taken):
		return OutcomeTaken
	case matchesAny(text, lex.Invalid):
		return OutcomeInvalid
	case matchesAny(text, lex.TooLong) && matchesAny(text, lex.AboutField):
		return OutcomeTooLongAbout
	case matchesAny(text, lex.TooLong) && matchesAny(text, lex.DescriptionField):
		return OutcomeTooLongDescription
	}
	return OutcomeNone
}

// ProfileField — поле профиля, к которому относится операция.
type ProfileField int

const (
	FieldAbout ProfileField = iota
	FieldDescription
	FieldBotpic
)

func (f ProfileField) String() string {
	switch f {
	case FieldAbout:
		return "about"
	case FieldDescription:
		return "description"
	case FieldBotpic:
		return "botpic"
	}
	return "unknown"
}

// SuccessFor: ответ похож на подтверждение обновления поля. Набор
// ключевых слов у каждого поля свой.
func (lex Lexicon) SuccessFor(field ProfileField, text string) bool {
	if matchesAny(text, lex.SuccessCommon) {
		return true
	}
	switch field {
	case FieldAbout:
		return matchesAny(text, lex.SuccessAbout)
	case FieldDescription:
		return matchesAny(text, lex.SuccessDesc)
	case FieldBotpic:
		return matchesAny(text, lex.SuccessPhoto)
	}
	return false
}

// Hint — подсказка оператору по сигналу отказа. Для занятого username
// предлагаются варианты с заменой суффикса.
func (lex Lexicon) Hint(o Outcome, username string) string {
	switch o {
	case OutcomeTaken:
		base := strings.TrimPrefix(username, "@")
		if strings.HasSuffix(strings.ToLower(base), "bot") {
			base = base[:len(base)-3]
		}
		alts := []string{
			base + "AppBot", base + "HelperBot", base + "OfficialBot",
			base + "XBot", base + "123Bot",
		}
		return "Похоже, юзернейм занят. Попробуйте варианты:\n• @" +
			strings.Join(alts, "\n• @")
	case OutcomeInvalid:
		return "Юзернейм некорректен. Разрешены латинские буквы/цифры/подчёркивания, " +
			"длина 5–32, суффикс — <code>bot</code>, первый символ — буква."
	case OutcomeTooLongAbout:
		return fmt.Sprintf("Поле About слишком длинное. Ограничение ~%d символов.", entity.AboutMaxLen)
	case OutcomeTooLongDescription:
		return fmt.Sprintf("Поле Description слишком длинное. Ограничение ~%d символов.", entity.DescriptionMaxLen)
	}
	return ""
}
