// Package supervisor запускает, останавливает и опрашивает процессы
// ботов парка.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/errgroup"

	"botfleet/internal/application/port/output"
	"botfleet/internal/config"
)

// Probe проверяет токен через API и возвращает username бота.
type Probe func(ctx context.Context, token string) (string, error)

// starter запускает процесс бота в его папке и возвращает PID.
type starter func(dir string) (int, error)

// StartResult — итог запуска одного бота.
type StartResult struct {
	Dir      string
	PID      int
	Username string
	OK       bool
	Err      error
}

// BotStatus — текущее состояние одного бота парка.
type BotStatus struct {
	Dir   string
	PID   int
	Alive bool
}

type Supervisor struct {
	cfg   config.LaunchConfig
	store *Store
	log   output.LoggerPort

	probe Probe
	alive func(pid int) bool
	start starter
	stop  func(ctx context.Context, pid int)
}

type Option func(*Supervisor)

// WithProbe подменяет сетевую проверку токена (для тестов).
func WithProbe(p Probe) Option { return func(s *Supervisor) { s.probe = p } }

// WithAlive подменяет проверку живости процесса (для тестов).
func WithAlive(f func(pid int) bool) Option { return func(s *Supervisor) { s.alive = f } }

// WithStarter подменяет запуск процесса (для тестов).
func WithStarter(f starter) Option { return func(s *Supervisor) { s.start = f } }

// WithStopper подменяет остановку процесса (для тестов).
func WithStopper(f func(ctx context.Context, pid int)) Option {
	return func(s *Supervisor) { s.stop = f }
}

func New(cfg config.LaunchConfig, store *Store, log output.LoggerPort, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:   cfg,
		store: store,
		log:   log,
		probe: telegramProbe,
		alive: pidAlive,
	}
	s.start = s.spawn
	s.stop = s.killPid
	for _, o := range opts {
		o(s)
	}
	return s
}

// StartAll поднимает всех ботов списка, не больше StartConcurrency
// одновременно. Результаты — в порядке входного списка; ошибка одного
// бота не останавливает остальных.
func (s *Supervisor) StartAll(ctx context.Context, dirs []string) []StartResult {
	results := make([]StartResult, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	limit := s.cfg.StartConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, dir := range dirs {
		g.Go(func() error {
			results[i] = s.StartOne(gctx, dir)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// StartOne запускает одного бота: гасит прежний процесс, проверяет
// токен, стартует команду в папке бота и убеждается, что процесс
// пережил grace-паузу.
func (s *Supervisor) StartOne(ctx context.Context, dir string) StartResult {
	res := StartResult{Dir: dir}
	log := s.log.WithField("bot_dir", dir)

	if prev, err := s.store.Get(dir); err == nil && prev > 0 && s.alive(prev) {
		log.Info("stopping previous process", "pid", prev)
		s.StopPid(ctx, prev)
	}

	token, err := ReadToken(dir)
	if err != nil {
		res.Err = err
		return res
	}
	if !ValidTokenFormat(token) {
		res.Err = fmt.Errorf("токен в %s не похож на токен бота", dir)
		return res
	}

	username, err := s.probeWithRetries(ctx, token)
	if err != nil {
		// сеть могла мигнуть — стартуем, но без подтверждённого username
		log.Warn("token probe failed, starting anyway", "error", err)
	}
	res.Username = username

	pid, err := s.start(dir)
	if err != nil {
		res.Err = fmt.Errorf("запуск %s: %w", dir, err)
		return res
	}
	res.PID = pid
	log.Info("bot process started", "pid", pid)

	grace := s.cfg.Grace.Std()
	if grace <= 0 {
		grace = time.Second
	}
	select {
	case <-ctx.Done():
		res.Err = ctx.Err()
		return res
	case <-time.After(grace):
	}

	if !s.alive(pid) {
		res.Err = fmt.Errorf("процесс %d умер сразу после старта", pid)
		return res
	}
	if err := s.store.Set(dir, pid); err != nil {
		res.Err = err
		return res
	}
	res.OK = true
	return res
}

// RestartOne — остановка и повторный запуск одного бота.
func (s *Supervisor) RestartOne(ctx context.Context, dir string) StartResult {
	s.StopDir(ctx, dir)
	return s.StartOne(ctx, dir)
}

// StopDir гасит процесс бота по записи из карты PID.
func (s *Supervisor) StopDir(ctx context.Context, dir string) {
	pid, err := s.store.Get(dir)
	if err != nil || pid == 0 {
		return
	}
	s.StopPid(ctx, pid)
	_ = s.store.Delete(dir)
}

// StopPid гасит процесс бота.
func (s *Supervisor) StopPid(ctx context.Context, pid int) {
	s.stop(ctx, pid)
}

// killPid мягко завершает процесс, при игнорировании SIGTERM — убивает.
func (s *Supervisor) killPid(ctx context.Context, pid int) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return // процесса уже нет
	}
	if err := p.TerminateWithContext(ctx); err != nil {
		s.log.Debug("terminate failed", "pid", pid, "error", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !s.alive(pid) {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err := p.KillWithContext(ctx); err != nil {
		s.log.Warn("kill failed", "pid", pid, "error", err)
	}
}

// Statuses снимает живость всех ботов списка по карте PID.
func (s *Supervisor) Statuses(dirs []string) []BotStatus {
	out := make([]BotStatus, 0, len(dirs))
	for _, dir := range dirs {
		st := BotStatus{Dir: dir}
		if pid, err := s.store.Get(dir); err == nil && pid > 0 {
			st.PID = pid
			st.Alive = s.alive(pid)
		}
		out = append(out, st)
	}
	return out
}

// IsAlive: процесс с таким PID существует.
func (s *Supervisor) IsAlive(pid int) bool {
	return s.alive(pid)
}

// spawn запускает команду запуска в папке бота; stdout и stderr
// процесса уходят в bot.log внутри папки. Wait вычитывается в фоне,
// чтобы завершившийся бот не остался зомби.
func (s *Supervisor) spawn(dir string) (int, error) {
	logFile, err := os.OpenFile(filepath.Join(dir, "bot.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open bot log: %w", err)
	}

	cmd := exec.Command(s.cfg.Command[0], s.cfg.Command[1:]...)
	cmd.Dir = dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		logFile.Close()
		return 0, err
	}
	pid := cmd.Process.Pid
	go func() {
		_ = cmd.Wait()
		logFile.Close()
	}()
	return pid, nil
}

func (s *Supervisor) probeWithRetries(ctx context.Context, token string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		username, err := s.probe(ctx, token)
		if err == nil {
			return username, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return "", lastErr
}

// telegramProbe дёргает getMe живым API.
func telegramProbe(_ context.Context, token string) (string, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return "", fmt.Errorf("getMe: %w", err)
	}
	return api.Self.UserName, nil
}

func pidAlive(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}
