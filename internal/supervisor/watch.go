package supervisor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"botfleet/internal/application/port/output"
)

// debounce гасит пачки событий от редакторов, пишущих файл в несколько
// приёмов.
const watchDebounce = 300 * time.Millisecond

// WatchBotList следит за файлом списка ботов и зовёт onChange со свежим
// списком после каждой его правки. Блокируется до отмены контекста.
// Следим за каталогом, а не за файлом: редакторы часто заменяют файл
// через rename, и watch на сам файл после этого слепнет.
func WatchBotList(ctx context.Context, path string, log output.LoggerPort, onChange func([]string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	base := filepath.Base(path)

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("bot list watcher error", "error", err)
		case <-fire:
			dirs, err := LoadBotList(path)
			if err != nil {
				log.Warn("bot list reload failed", "error", err)
				continue
			}
			log.Info("bot list reloaded", "bots", len(dirs))
			onChange(dirs)
		}
	}
}
