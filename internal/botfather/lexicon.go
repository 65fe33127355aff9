package botfather

import "strings"

// Lexicon — таблицы ключевых фраз, по которым классифицируются кнопки и
// ответы удалённого агента. Агент отвечает свободным текстом на одном из
// двух языков, поэтому ничего структурнее регистронезависимого поиска
// подстроки здесь нет; таблицы — данные, новые локали добавляются без
// правки кода.
type Lexicon struct {
	// Service — сервисные кнопки меню: создать нового, назад, закрыть
	// сессию, отмена.
	Service []string
	// Nav — навигация в любом направлении: слова и стрелочные глифы.
	Nav []string
	// Next — подмножество Nav: «вперёд».
	Next []string

	// Settings и MenuButton — пункты вложенного меню настроек.
	Settings   []string
	MenuButton []string

	// Сигналы исхода.
	Taken   []string
	Invalid []string
	TooLong []string
	// AboutField/DescriptionField уточняют, о каком поле шла речь в
	// ответе «слишком длинно».
	AboutField       []string
	DescriptionField []string

	// Сигналы успеха: общие и по-полевые добавки.
	SuccessCommon []string
	SuccessAbout  []string
	SuccessDesc   []string
	SuccessPhoto  []string
}

// DefaultLexicon — английская и русская локали BotFather.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Service: []string{
			"создать нового", "назад", "закрыть сессию", "отмена",
			"create a new bot", "back", "close session", "cancel",
		},
		Nav: []string{
			"next", "далее", "вперёд", "вперед", "›", "»", ">>", "⏭", "⏩",
			"previous", "назад", "‹", "«", "<<", "⏮", "⏪",
		},
		Next: []string{"next", "дале", "›", "»", "⏩"},

		Settings:   []string{"bot settings", "настройки бота"},
		MenuButton: []string{"menu button", "кнопка меню", "меню"},

		Taken:   []string{"already taken", "уже занят"},
		Invalid: []string{"invalid", "некоррект", "недопустим"},
		TooLong: []string{"too long", "слишком длин"},

		AboutField:       []string{"about", "о боте"},
		DescriptionField: []string{"description", "описани"},

		SuccessCommon: []string{"success", "updated", "успешно", "обновл"},
		SuccessAbout:  []string{"about"},
		SuccessDesc:   []string{"description", "описани"},
		SuccessPhoto:  []string{"profile photo", "фото"},
	}
}

// matchesAny — регистронезависимое вхождение любой из фраз.
func matchesAny(text string, phrases []string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	for _, p := range phrases {
		if strings.Contains(t, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// IsServiceButton: кнопка не представляет бота, а выполняет сервисное
// действие.
func (lex Lexicon) IsServiceButton(label string) bool {
	return matchesAny(label, lex.Service)
}

// IsNavButton: кнопка листает меню.
func (lex Lexicon) IsNavButton(label string) bool {
	return matchesAny(label, lex.Nav)
}

// IsNextButton: кнопка листает вперёд. Absence такой кнопки на странице
// означает, что страница последняя.
func (lex Lexicon) IsNextButton(label string) bool {
	return lex.IsNavButton(label) && matchesAny(label, lex.Next)
}

func (lex Lexicon) IsSettingsButton(label string) bool {
	return matchesAny(label, lex.Settings)
}

func (lex Lexicon) IsMenuButtonButton(label string) bool {
	return matchesAny(label, lex.MenuButton)
}
