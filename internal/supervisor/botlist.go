package supervisor

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadBotList читает список папок ботов: по одному пути на строку,
// пустые строки и строки с # пропускаются, дубликаты схлопываются с
// сохранением порядка.
func LoadBotList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bot list: %w", err)
	}
	defer f.Close()

	var dirs []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\uFEFF"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			dirs = append(dirs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read bot list: %w", err)
	}
	return dirs, nil
}
