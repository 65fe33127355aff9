// Package confpatch точечно правит переменные в конфигурационных файлах
// ботов вида NAME = value, не трогая остальной текст файла.
package confpatch

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"botfleet/internal/application/port/output"
)

// Status — исход правки одной переменной.
type Status int

const (
	// StatusUpdated — переменная найдена, значение заменено.
	StatusUpdated Status = iota
	// StatusAdded — переменной не было, строка дописана в конец файла.
	StatusAdded
	// StatusSame — значение уже такое, файл не перезаписывался.
	StatusSame
	// StatusFailed — значение не прошло типовую проверку либо файл
	// недоступен.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUpdated:
		return "updated"
	case StatusAdded:
		return "added"
	case StatusSame:
		return "same"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Classes — разбиение имён переменных по типам значений. Имена вне всех
// классов считаются строками.
type Classes struct {
	URL    []string
	Int    []string
	Secret []string
}

func (c Classes) isURL(name string) bool    { return contains(c.URL, name) }
func (c Classes) isInt(name string) bool    { return contains(c.Int, name) }
func (c Classes) isSecret(name string) bool { return contains(c.Secret, name) }

func contains(list []string, name string) bool {
	for _, v := range list {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

var (
	intValueRe = regexp.MustCompile(`^-?\d+$`)
	schemeRe   = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*://`)
)

type Patcher struct {
	classes Classes
	log     output.LoggerPort
}

func NewPatcher(classes Classes, log output.LoggerPort) *Patcher {
	return &Patcher{classes: classes, log: log}
}

// Display — значение в виде, пригодном для показа оператору и логов:
// переменные секретного класса маскируются.
func (p *Patcher) Display(name, value string) string {
	if p.classes.isSecret(name) {
		return "******"
	}
	return value
}

// SetValue выставляет переменной name значение value в файле path.
// Перед перезаписью создаётся резервная копия path.bak; совпадающее
// значение файл не трогает.
func (p *Patcher) SetValue(path, name, value string) (Status, error) {
	rendered, err := p.render(name, value)
	if err != nil {
		return StatusFailed, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return StatusFailed, fmt.Errorf("read config: %w", err)
	}
	text := string(raw)

	line := name + " = " + rendered
	re, err := varLineRe(name)
	if err != nil {
		return StatusFailed, err
	}

	status := StatusAdded
	var next string
	if loc := re.FindStringIndex(text); loc != nil {
		if text[loc[0]:loc[1]] == line {
			p.log.Debug("config value unchanged", "file", path, "var", name)
			return StatusSame, nil
		}
		next = text[:loc[0]] + line + text[loc[1]:]
		status = StatusUpdated
	} else {
		next = text
		if next != "" && !strings.HasSuffix(next, "\n") {
			next += "\n"
		}
		next += line + "\n"
	}

	if err := os.WriteFile(path+".bak", raw, 0o644); err != nil {
		return StatusFailed, fmt.Errorf("write backup: %w", err)
	}
	if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
		return StatusFailed, fmt.Errorf("write config: %w", err)
	}

	p.log.Info("config value set",
		"file", path, "var", name,
		"value", p.Display(name, rendered),
		"status", status.String())
	return status, nil
}

// render приводит значение к виду, допустимому для класса переменной.
func (p *Patcher) render(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case p.classes.isInt(name):
		if !intValueRe.MatchString(value) {
			return "", fmt.Errorf("переменная %s ожидает целое число, получено %q", name, value)
		}
		return value, nil
	case p.classes.isURL(name):
		if intValueRe.MatchString(value) {
			return "", fmt.Errorf("переменная %s ожидает URL, получено число %q", name, value)
		}
		return quote(normalizeURL(value)), nil
	default:
		return quote(value), nil
	}
}

// normalizeURL дополняет схему и завершающий слэш.
func normalizeURL(v string) string {
	if !schemeRe.MatchString(v) {
		v = "https://" + v
	}
	if !strings.HasSuffix(v, "/") {
		v += "/"
	}
	return v
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// varLineRe — строка присваивания переменной в начале строки файла.
func varLineRe(name string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?m)^` + regexp.QuoteMeta(name) + `[ \t]*=[^\n]*`)
}
