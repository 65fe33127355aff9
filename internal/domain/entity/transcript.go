package entity

type TranscriptRole string

const (
	// RoleLocal — сообщение, отправленное нами.
	RoleLocal TranscriptRole = "you"
	// RoleRemote — ответ удалённого агента.
	RoleRemote TranscriptRole = "bf"
	// RoleSystem — служебная пометка о ручном шаге (человеческий лог).
	RoleSystem TranscriptRole = "sys"
)

type TranscriptEntry struct {
	Role TranscriptRole
	Text string
}

// Transcript — упорядоченный журнал одного разговора. Записи только
// добавляются, никогда не изменяются и не удаляются: из хвоста журнала
// собирается итоговый отчёт оператору.
type Transcript struct {
	entries []TranscriptEntry
}

func (t *Transcript) Local(text string) {
	t.append(RoleLocal, text)
}

func (t *Transcript) Remote(text string) {
	t.append(RoleRemote, text)
}

func (t *Transcript) System(text string) {
	t.append(RoleSystem, text)
}

func (t *Transcript) append(role TranscriptRole, text string) {
	t.entries = append(t.entries, TranscriptEntry{Role: role, Text: text})
}

// Entries возвращает копию журнала в порядке добавления.
func (t *Transcript) Entries() []TranscriptEntry {
	out := make([]TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Tail возвращает последние n записей (или меньше, если журнал короче).
func (t *Transcript) Tail(n int) []TranscriptEntry {
	if n <= 0 || n >= len(t.entries) {
		return t.Entries()
	}
	out := make([]TranscriptEntry, n)
	copy(out, t.entries[len(t.entries)-n:])
	return out
}

// Last возвращает последнюю запись журнала.
func (t *Transcript) Last() (TranscriptEntry, bool) {
	if len(t.entries) == 0 {
		return TranscriptEntry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

func (t *Transcript) Len() int {
	return len(t.entries)
}
