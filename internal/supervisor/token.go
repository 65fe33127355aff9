package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// tokenLineRe — присваивание BOT_TOKEN в конфиге бота; кавычки
	// любые, отступов нет.
	tokenLineRe = regexp.MustCompile(`(?m)^BOT_TOKEN\s*=\s*["']?(\d+:[A-Za-z0-9_-]+)["']?`)
	// tokenFormatRe — структурная проверка токена до похода в сеть.
	tokenFormatRe = regexp.MustCompile(`^\d{6,}:[A-Za-z0-9_-]{20,}$`)
)

// tokenFiles — где в папке бота искать токен, в порядке предпочтения.
var tokenFiles = []string{"config.py", ".env", "config.env"}

// ReadToken достаёт BOT_TOKEN из конфигов папки бота. Файлы,
// сохранённые Windows-редакторами, начинаются с BOM — он срезается до
// разбора.
func ReadToken(dir string) (string, error) {
	for _, name := range tokenFiles {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		text := strings.TrimPrefix(string(raw), "\uFEFF")
		if m := tokenLineRe.FindStringSubmatch(text); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("BOT_TOKEN не найден в %s", dir)
}

// ValidTokenFormat: строка похожа на токен бота.
func ValidTokenFormat(token string) bool {
	return tokenFormatRe.MatchString(token)
}
