package entity

// Пределы длины полей профиля на стороне удалённого сервиса.
const (
	AboutMaxLen       = 120
	DescriptionMaxLen = 512
)

// BotProfile — желаемое состояние профиля управляемого бота. Локально
// ничего не хранится: оркестратор лишь сводит удалённое состояние к этим
// значениям. nil-поле означает «не трогать».
type BotProfile struct {
	Name        string
	Username    string // с @ или без — выравнивается перед использованием
	About       *string
	Description *string
	BotpicPath  string // пусто — аватар не задан
}

// HasAnyField сообщает, есть ли в профиле хоть одно поле для применения.
func (p BotProfile) HasAnyField() bool {
	return p.About != nil || p.Description != nil || p.BotpicPath != ""
}
