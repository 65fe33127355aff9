package entity

// Button — одна inline-кнопка в сообщении удалённого агента.
// Data — непрозрачный callback-payload, URL — для URL-кнопок; любое из
// полей может отсутствовать.
type Button struct {
	Label string
	Data  []byte
	URL   string
}

// Reply — одно сообщение удалённого агента вместе с его клавиатурой.
// Ref — непрозрачная ссылка транспорта на это сообщение: она нужна,
// чтобы кликнуть кнопку именно этого сообщения, и больше нигде не
// интерпретируется.
type Reply struct {
	Text    string
	Buttons [][]Button
	Ref     any
}

// FlatButtons — все кнопки сообщения в порядке рядов.
func (r *Reply) FlatButtons() []Button {
	if r == nil {
		return nil
	}
	var out []Button
	for _, row := range r.Buttons {
		out = append(out, row...)
	}
	return out
}

// FindButton ищет кнопку по точному тексту.
func (r *Reply) FindButton(label string) (Button, bool) {
	for _, b := range r.FlatButtons() {
		if b.Label == label {
			return b, true
		}
	}
	return Button{}, false
}
