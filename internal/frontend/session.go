package frontend

import "sync"

// pending — ожидание следующего сообщения админа в многошаговом
// сценарии. Варианты несут контекст, накопленный предыдущими шагами.
type pending interface{ isPending() }

type pendingCreateName struct{}

type pendingCreateHandle struct{ name string }

type pendingAbout struct{ handle string }

type pendingDescription struct{ handle string }

type pendingAvatar struct{ handle string }

type pendingMenuURL struct{ handle string }

type pendingMenuTitle struct {
	handle string
	url    string
}

type pendingVarBot struct{ name string }

type pendingVarValue struct {
	dir  string
	name string
}

type pendingTokenBot struct{}

func (pendingCreateName) isPending()   {}
func (pendingCreateHandle) isPending() {}
func (pendingAbout) isPending()        {}
func (pendingDescription) isPending()  {}
func (pendingAvatar) isPending()       {}
func (pendingMenuURL) isPending()      {}
func (pendingMenuTitle) isPending()    {}
func (pendingVarBot) isPending()       {}
func (pendingVarValue) isPending()     {}
func (pendingTokenBot) isPending()     {}

// sessions хранит незавершённые сценарии по chat ID. Горутина опроса
// одна, но операции дописывают состояние из фоновых горутин.
type sessions struct {
	mu sync.Mutex
	m  map[int64]pending
}

func newSessions() *sessions {
	return &sessions{m: make(map[int64]pending)}
}

func (s *sessions) set(chatID int64, p pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = p
}

// take снимает и возвращает ожидание; второй результат — было ли оно.
func (s *sessions) take(chatID int64) (pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[chatID]
	if ok {
		delete(s.m, chatID)
	}
	return p, ok
}

func (s *sessions) clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}
