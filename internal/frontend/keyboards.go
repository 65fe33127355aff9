package frontend

import (
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback-префиксы. Индексы вместо путей: payload кнопки ограничен
// 64 байтами, пути ботов туда не влезают.
const (
	cbStatus      = "status"
	cbStartAll    = "start_all"
	cbRestartMenu = "restart_menu"
	cbRestartOne  = "restart:"
	cbNewBot      = "new_bot"
	cbListBots    = "list_bots"
	cbAbout       = "about:"
	cbDescription = "desc:"
	cbAvatar      = "avatar:"
	cbMenuButton  = "menu_btn:"
	cbToken       = "token"
	cbVarMenu     = "var_menu"
	cbVarPick     = "var:"
	cbCancel      = "cancel"
)

func mainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статус", cbStatus),
			tgbotapi.NewInlineKeyboardButtonData("🚀 Запустить всех", cbStartAll),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Перезапуск бота", cbRestartMenu),
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Переменные", cbVarMenu),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Новый бот", cbNewBot),
			tgbotapi.NewInlineKeyboardButtonData("📋 Мои боты", cbListBots),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔑 Токен", cbToken),
		),
	)
}

// botsKeyboard раскладывает кнопки ботов по cols в ряд; payload — префикс
// плюс индекс бота в текущем списке.
func botsKeyboard(dirs []string, prefix string, cols int) tgbotapi.InlineKeyboardMarkup {
	if cols <= 0 {
		cols = 2
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, dir := range dirs {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			filepath.Base(dir), prefix+strconv.Itoa(i)))
		if len(row) == cols {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("✖️ Отмена", cbCancel),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// profileKeyboard — действия над конкретным ботом по его username.
func profileKeyboard(handle string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 About", cbAbout+handle),
			tgbotapi.NewInlineKeyboardButtonData("📄 Описание", cbDescription+handle),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🖼 Аватар", cbAvatar+handle),
			tgbotapi.NewInlineKeyboardButtonData("🧩 Menu Button", cbMenuButton+handle),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Отмена", cbCancel),
		),
	)
}

// parseIndexCallback разбирает payload вида prefix+N.
func parseIndexCallback(data, prefix string, max int) (int, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil || idx < 0 || idx >= max {
		return 0, false
	}
	return idx, true
}

// varKeyboard — список известных переменных для правки.
func varKeyboard(names []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, name := range names {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(name, cbVarPick+name),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("✖️ Отмена", cbCancel),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}
