package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botfleet/internal/infrastructure/logger"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state", "pids.json"))

	// пустой стор читается как пустая карта
	pids, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, pids)

	require.NoError(t, store.Set("/bots/alpha", 100))
	require.NoError(t, store.Set("/bots/beta", 200))
	require.NoError(t, store.Delete("/bots/alpha"))

	pids, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"/bots/beta": 200}, pids)

	pid, err := store.Get("/bots/beta")
	require.NoError(t, err)
	assert.Equal(t, 200, pid)
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pids.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}

func TestReadToken(t *testing.T) {
	dir := t.TempDir()
	content := "\uFEFF# bot config\nBOT_TOKEN = '" + testToken + "'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.py"), []byte(content), 0o644))

	token, err := ReadToken(dir)
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
}

func TestReadTokenFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("BOT_TOKEN="+testToken+"\n"), 0o644))

	token, err := ReadToken(dir)
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
}

func TestReadTokenMissing(t *testing.T) {
	_, err := ReadToken(t.TempDir())
	assert.Error(t, err)
}

func TestValidTokenFormat(t *testing.T) {
	assert.True(t, ValidTokenFormat(testToken))
	assert.False(t, ValidTokenFormat("123:short"))
	assert.False(t, ValidTokenFormat("not a token"))
}

func TestLoadBotList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bots.txt")
	content := "\uFEFF# парк\n/bots/alpha\n\n/bots/beta\n/bots/alpha\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	dirs, err := LoadBotList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/bots/alpha", "/bots/beta"}, dirs)
}

func TestStatusHTML(t *testing.T) {
	got := StatusHTML([]BotStatus{
		{Dir: "/bots/alpha", PID: 10, Alive: true},
		{Dir: "/bots/beta", PID: 11, Alive: false},
		{Dir: "/bots/gamma"},
	})
	assert.Contains(t, got, "🟢 <code>alpha</code>")
	assert.Contains(t, got, "🔴 <code>beta</code>")
	assert.Contains(t, got, "Живых: 1 из 3")
}

func TestStatusHTMLPagesSplitsLargeFleet(t *testing.T) {
	var sts []BotStatus
	for i := 0; i < 12; i++ {
		sts = append(sts, BotStatus{
			Dir:   fmt.Sprintf("/bots/bot%02d", i),
			PID:   100 + i,
			Alive: i%2 == 0,
		})
	}

	pages := StatusHTMLPages(sts, 5)
	require.Len(t, pages, 3)

	assert.Contains(t, pages[0], "стр. 1/3")
	assert.Contains(t, pages[0], "bot00")
	assert.Contains(t, pages[1], "bot05")
	assert.Contains(t, pages[2], "bot11")
	// итоги только на последней странице
	assert.NotContains(t, pages[0], "Живых")
	assert.NotContains(t, pages[1], "Живых")
	assert.Contains(t, pages[2], "Живых: 6 из 12")
}

func TestStatusHTMLPagesSmallFleetSinglePage(t *testing.T) {
	sts := []BotStatus{
		{Dir: "/bots/alpha", PID: 10, Alive: true},
		{Dir: "/bots/beta"},
	}

	pages := StatusHTMLPages(sts, 0)
	require.Len(t, pages, 1)
	assert.Equal(t, StatusHTML(sts), pages[0])
	assert.NotContains(t, pages[0], "стр.")
}

func TestStartReportHTML(t *testing.T) {
	got := StartReportHTML([]StartResult{
		{Dir: "/bots/alpha", PID: 10, Username: "alpha_fleet_bot", OK: true},
		{Dir: "/bots/beta", Err: assert.AnError},
	})
	assert.Contains(t, got, "@alpha_fleet_bot")
	assert.Contains(t, got, "PID 10")
	assert.Contains(t, got, "Поднято: 1 из 2")
}

func TestWatchBotListReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bots.txt")
	require.NoError(t, os.WriteFile(path, []byte("/bots/alpha\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan []string, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = WatchBotList(ctx, path, logger.Nop(), func(dirs []string) {
			changes <- dirs
		})
	}()

	// даём вотчеру встать на каталог
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("/bots/alpha\n/bots/beta\n"), 0o644))

	select {
	case dirs := <-changes:
		assert.Equal(t, []string{"/bots/alpha", "/bots/beta"}, dirs)
	case <-time.After(5 * time.Second):
		t.Fatal("перечитывание списка не произошло")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("вотчер не завершился по отмене контекста")
	}
}
