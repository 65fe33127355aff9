package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botfleet/internal/config"
	"botfleet/internal/infrastructure/logger"
)

const testToken = "7123456789:AAHfleetBotTokenValue_0123456789ab"

func writeBotDir(t *testing.T, token string) string {
	t.Helper()
	dir := t.TempDir()
	content := "BOT_TOKEN = \"" + token + "\"\nADMIN_ID = 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.py"), []byte(content), 0o644))
	return dir
}

func testLaunch() config.LaunchConfig {
	return config.LaunchConfig{
		Command:          []string{"true"},
		Grace:            config.Duration(10 * time.Millisecond),
		StartConcurrency: 2,
	}
}

func TestStartOneHappyPath(t *testing.T) {
	dir := writeBotDir(t, testToken)
	store := NewStore(filepath.Join(t.TempDir(), "pids.json"))

	s := New(testLaunch(), store, logger.Nop(),
		WithProbe(func(context.Context, string) (string, error) { return "demofleetbot", nil }),
		WithAlive(func(pid int) bool { return pid == 4242 }),
		WithStarter(func(string) (int, error) { return 4242, nil }),
	)

	res := s.StartOne(context.Background(), dir)
	require.NoError(t, res.Err)
	assert.True(t, res.OK)
	assert.Equal(t, 4242, res.PID)
	assert.Equal(t, "demofleetbot", res.Username)

	pid, err := store.Get(dir)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
}

func TestStartOneRejectsMalformedToken(t *testing.T) {
	dir := writeBotDir(t, "123:short")
	store := NewStore(filepath.Join(t.TempDir(), "pids.json"))

	started := false
	s := New(testLaunch(), store, logger.Nop(),
		WithAlive(func(int) bool { return false }),
		WithStarter(func(string) (int, error) { started = true; return 1, nil }),
	)

	res := s.StartOne(context.Background(), dir)
	assert.Error(t, res.Err)
	assert.False(t, res.OK)
	assert.False(t, started, "процесс не должен запускаться с кривым токеном")
}

func TestStartOneDetectsEarlyDeath(t *testing.T) {
	dir := writeBotDir(t, testToken)
	store := NewStore(filepath.Join(t.TempDir(), "pids.json"))

	s := New(testLaunch(), store, logger.Nop(),
		WithProbe(func(context.Context, string) (string, error) { return "demofleetbot", nil }),
		WithAlive(func(int) bool { return false }), // умер в grace-паузу
		WithStarter(func(string) (int, error) { return 7777, nil }),
	)

	res := s.StartOne(context.Background(), dir)
	assert.Error(t, res.Err)
	assert.False(t, res.OK)

	pid, err := store.Get(dir)
	require.NoError(t, err)
	assert.Zero(t, pid, "мёртвый процесс не должен попадать в карту PID")
}

func TestStartOneSurvivesProbeFailure(t *testing.T) {
	dir := writeBotDir(t, testToken)
	store := NewStore(filepath.Join(t.TempDir(), "pids.json"))

	s := New(testLaunch(), store, logger.Nop(),
		WithProbe(func(context.Context, string) (string, error) {
			return "", assert.AnError
		}),
		WithAlive(func(int) bool { return true }),
		WithStarter(func(string) (int, error) { return 555, nil }),
	)

	res := s.StartOne(context.Background(), dir)
	require.NoError(t, res.Err)
	assert.True(t, res.OK)
	assert.Empty(t, res.Username)
}

func TestStartAllKeepsOrderAndLimit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "pids.json"))

	dirs := make([]string, 4)
	for i := range dirs {
		dirs[i] = writeBotDir(t, testToken)
	}

	var (
		mu      sync.Mutex
		nextPID = 100
		inGrace atomic.Int32
		maxSeen atomic.Int32
	)
	s := New(testLaunch(), store, logger.Nop(),
		WithProbe(func(context.Context, string) (string, error) { return "x", nil }),
		WithAlive(func(int) bool { return true }),
		WithStarter(func(string) (int, error) {
			cur := inGrace.Add(1)
			for {
				seen := maxSeen.Load()
				if cur <= seen || maxSeen.CompareAndSwap(seen, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inGrace.Add(-1)

			mu.Lock()
			defer mu.Unlock()
			nextPID++
			return nextPID, nil
		}),
	)

	results := s.StartAll(context.Background(), dirs)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, dirs[i], r.Dir, "результаты должны идти в порядке списка")
		assert.True(t, r.OK)
	}
	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
}

func TestStatuses(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "pids.json"))
	require.NoError(t, store.Set("/bots/alpha", 10))
	require.NoError(t, store.Set("/bots/beta", 11))

	s := New(testLaunch(), store, logger.Nop(),
		WithAlive(func(pid int) bool { return pid == 10 }),
	)

	got := s.Statuses([]string{"/bots/alpha", "/bots/beta", "/bots/gamma"})
	require.Len(t, got, 3)
	assert.True(t, got[0].Alive)
	assert.False(t, got[1].Alive)
	assert.Equal(t, 11, got[1].PID)
	assert.Zero(t, got[2].PID)
}
