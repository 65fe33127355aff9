package botfather

import (
	"regexp"
	"strings"
)

var handleCharsRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateHandle проверяет username локально, до единого удалённого
// хода. Возвращает список нарушений; их может быть несколько сразу.
func ValidateHandle(raw string) []string {
	uname := strings.TrimPrefix(strings.TrimSpace(raw), "@")
	var problems []string
	if !strings.HasSuffix(strings.ToLower(uname), "bot") {
		problems = append(problems, "должен оканчиваться на <code>bot</code>")
	}
	if len(uname) < 5 || len(uname) > 32 {
		problems = append(problems, "длина 5–32 символа")
	}
	if !handleCharsRe.MatchString(uname) {
		problems = append(problems, "только латинские буквы, цифры и подчёркивания; первый символ — буква")
	}
	return problems
}

// atUsername нормализует username к форме с @.
func atUsername(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "@") {
		return u
	}
	return "@" + u
}

// handleCore — username без @, в нижнем регистре, для сравнения.
func handleCore(u string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(u), "@"))
}
