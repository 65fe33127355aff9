package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store — json-карта «папка бота → PID». Файл переживает рестарты
// менеджера, поэтому осиротевшие процессы находятся и после падения.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load читает карту; отсутствующий файл — пустая карта.
func (s *Store) Load() (map[string]int, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("read pid store: %w", err)
	}
	pids := map[string]int{}
	if err := json.Unmarshal(raw, &pids); err != nil {
		return nil, fmt.Errorf("parse pid store %s: %w", s.path, err)
	}
	return pids, nil
}

// Save пишет карту атомарно: во временный файл, затем rename.
func (s *Store) Save(pids map[string]int) error {
	raw, err := json.MarshalIndent(pids, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pid store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create pid store dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write pid store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace pid store: %w", err)
	}
	return nil
}

// Set запоминает PID процесса бота.
func (s *Store) Set(dir string, pid int) error {
	pids, err := s.Load()
	if err != nil {
		return err
	}
	pids[dir] = pid
	return s.Save(pids)
}

// Delete забывает PID бота.
func (s *Store) Delete(dir string) error {
	pids, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := pids[dir]; !ok {
		return nil
	}
	delete(pids, dir)
	return s.Save(pids)
}

// Get возвращает PID бота, 0 — если не записан.
func (s *Store) Get(dir string) (int, error) {
	pids, err := s.Load()
	if err != nil {
		return 0, err
	}
	return pids[dir], nil
}
