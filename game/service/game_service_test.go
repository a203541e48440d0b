package service_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/cardguess/game/assets"
	"github.com/wricardo/cardguess/game/config"
	"github.com/wricardo/cardguess/game/engine"
	"github.com/wricardo/cardguess/game/service"
	"github.com/wricardo/cardguess/game/session"
)

// recorder is a Notifier that keeps every message it receives
type recorder struct {
	mu   sync.Mutex
	msgs []service.Message
	ch   chan service.Message
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan service.Message, 256)}
}

func (r *recorder) Notify(ctx context.Context, scopeID string, msg service.Message) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	select {
	case r.ch <- msg:
	default:
	}
	return nil
}

func (r *recorder) events() []service.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]service.Event, len(r.msgs))
	for i, msg := range r.msgs {
		out[i] = msg.Event
	}
	return out
}

func (r *recorder) count(event service.Event) int {
	n := 0
	for _, e := range r.events() {
		if e == event {
			n++
		}
	}
	return n
}

func (r *recorder) waitFor(t *testing.T, event service.Event) service.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-r.ch:
			if msg.Event == event {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %s message received, got %v", event, r.events())
			return service.Message{}
		}
	}
}

type fixture struct {
	svc       service.GameService
	notes     *recorder
	registry  *session.Registry
	reaper    *assets.Reaper
	teaserDir string
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 8), A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newFixture(t *testing.T, opts service.Options, images ...string) *fixture {
	t.Helper()

	assetDir := t.TempDir()
	for _, name := range images {
		writePNG(t, filepath.Join(assetDir, name))
	}

	aliases, err := config.NewManager(filepath.Join(t.TempDir(), "aliases.json"))
	require.NoError(t, err)

	pool := assets.NewPool(assetDir, 1)
	_, err = pool.Rescan()
	require.NoError(t, err)

	teaserDir := t.TempDir()
	reaper := assets.NewReaper()
	registry := session.NewRegistry()
	notes := newRecorder()

	if opts.AllowList == nil {
		opts.AllowList = []string{"*"}
	}

	svc := service.NewGameService(service.Dependencies{
		Registry:  registry,
		Scheduler: session.NewScheduler(),
		Pool:      pool,
		Generator: assets.NewGenerator(assets.GeneratorOptions{Dir: teaserDir, CropSize: 16, Policy: config.CropCenter, Reaper: reaper}),
		Reaper:    reaper,
		Aliases:   aliases,
		Notifier:  notes,
	}, opts)

	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	return &fixture{svc: svc, notes: notes, registry: registry, reaper: reaper, teaserDir: teaserDir}
}

func (f *fixture) teaserFiles(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.teaserDir)
	require.NoError(t, err)
	return len(entries)
}

func TestStartRound_CorrectGuessResolves(t *testing.T) {
	f := newFixture(t, service.Options{MaxAttempts: 5, Timeout: 10 * time.Second}, "初音未来.png")
	ctx := context.Background()

	start, err := f.svc.StartRound(ctx, "group-1")
	require.NoError(t, err)
	assert.Equal(t, engine.Active, start.Round.State)
	assert.Empty(t, start.Round.Answer)
	assert.Contains(t, start.Prompt, "10")
	assert.Equal(t, "/api/scopes/group-1/round/teaser", start.TeaserURL)

	teaser := f.notes.waitFor(t, service.EventTeaser)
	assert.FileExists(t, teaser.ImagePath)

	path, err := f.svc.TeaserPath(ctx, "group-1")
	require.NoError(t, err)
	assert.Equal(t, teaser.ImagePath, path)

	result, err := f.svc.SubmitGuess(ctx, "group-1", "alice", "Miku")
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, engine.Resolved, result.State)
	assert.Equal(t, "初音未来", result.Round.Answer)
	assert.Equal(t, "alice", result.Round.Winner)
	assert.Contains(t, result.Message, "alice")
	assert.NotEmpty(t, result.RevealURL)

	reveal := f.notes.waitFor(t, service.EventCorrect)
	assert.Equal(t, result.RevealURL, reveal.Image)
	assert.FileExists(t, reveal.ImagePath, "the full image is revealed, not deleted")

	assert.NoFileExists(t, teaser.ImagePath)
	assert.Zero(t, f.teaserFiles(t))
	assert.Empty(t, f.reaper.Tracked())

	_, err = f.svc.GetRound(ctx, "group-1")
	assert.ErrorIs(t, err, engine.ErrNoActiveRound)

	_, err = f.svc.SubmitGuess(ctx, "group-1", "bob", "miku")
	assert.ErrorIs(t, err, engine.ErrNoActiveRound)
}

func TestSubmitGuess_ExhaustsAttempts(t *testing.T) {
	f := newFixture(t, service.Options{MaxAttempts: 2, Timeout: 10 * time.Second}, "初音未来.png")
	ctx := context.Background()

	_, err := f.svc.StartRound(ctx, "group-1")
	require.NoError(t, err)

	result, err := f.svc.SubmitGuess(ctx, "group-1", "alice", "rin")
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.Equal(t, engine.Active, result.State)
	assert.Equal(t, 1, result.Remaining)
	assert.Empty(t, result.Round.Answer, "answer stays hidden on a miss")
	f.notes.waitFor(t, service.EventWrong)

	result, err = f.svc.SubmitGuess(ctx, "group-1", "bob", "len")
	require.NoError(t, err)
	assert.Equal(t, engine.Exhausted, result.State)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, "初音未来", result.Round.Answer)
	f.notes.waitFor(t, service.EventExhausted)

	assert.Zero(t, f.teaserFiles(t))
	assert.Zero(t, f.registry.Count())
}

func TestRound_TimesOut(t *testing.T) {
	f := newFixture(t, service.Options{MaxAttempts: 5, Timeout: 50 * time.Millisecond}, "初音未来.png")
	ctx := context.Background()

	_, err := f.svc.StartRound(ctx, "group-1")
	require.NoError(t, err)

	msg := f.notes.waitFor(t, service.EventTimedOut)
	assert.Equal(t, engine.TimedOut, msg.Round.State)
	assert.Equal(t, "初音未来", msg.Round.Answer)
	assert.Contains(t, msg.Text, "初音未来")

	require.Eventually(t, func() bool { return f.registry.Count() == 0 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, f.teaserFiles(t))

	_, err = f.svc.SubmitGuess(ctx, "group-1", "alice", "miku")
	assert.ErrorIs(t, err, engine.ErrNoActiveRound)

	// a fresh round can start once the old one is gone
	_, err = f.svc.StartRound(ctx, "group-1")
	assert.NoError(t, err)
}

func TestStartRound_RejectsWhileActive(t *testing.T) {
	f := newFixture(t, service.Options{Timeout: 10 * time.Second}, "初音未来.png")
	ctx := context.Background()

	first, err := f.svc.StartRound(ctx, "group-1")
	require.NoError(t, err)

	_, err = f.svc.StartRound(ctx, "group-1")
	assert.ErrorIs(t, err, engine.ErrRoundAlreadyActive)
	assert.Equal(t, "当前已有游戏在进行中，请稍后再试", service.UserMessage(err))

	info, err := f.svc.GetRound(ctx, "group-1")
	require.NoError(t, err)
	assert.Equal(t, first.Round.ID, info.ID)
	assert.Equal(t, 1, f.notes.count(service.EventTeaser))
	assert.Equal(t, 1, f.teaserFiles(t))
}

func TestStartRound_ConcurrentStartsSingleRound(t *testing.T) {
	f := newFixture(t, service.Options{Timeout: 10 * time.Second}, "初音未来.png", "KAITO.png")

	var (
		wins atomic.Int32
		wg   sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.StartRound(context.Background(), "group-1")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, engine.ErrRoundAlreadyActive):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, f.registry.Count())
	assert.Equal(t, 1, f.teaserFiles(t), "losing starts must reap their teasers")
}

func TestStartRound_ScopeNotAllowed(t *testing.T) {
	f := newFixture(t, service.Options{AllowList: []string{"group-1"}}, "初音未来.png")

	_, err := f.svc.StartRound(context.Background(), "group-2")
	assert.ErrorIs(t, err, engine.ErrScopeNotAllowed)
	assert.Equal(t, "本群未开通猜卡面游戏功能", service.UserMessage(err))
	assert.Empty(t, f.notes.events(), "rejections are not broadcast")

	_, err = f.svc.StartRound(context.Background(), "group-1")
	assert.NoError(t, err)
}

func TestStartRound_EmptyAllowListAdmitsNobody(t *testing.T) {
	f := newFixture(t, service.Options{AllowList: []string{}}, "初音未来.png")

	_, err := f.svc.StartRound(context.Background(), "group-1")
	assert.ErrorIs(t, err, engine.ErrScopeNotAllowed)
}

func TestStartRound_PoolEmpty(t *testing.T) {
	f := newFixture(t, service.Options{})

	_, err := f.svc.StartRound(context.Background(), "group-1")
	assert.ErrorIs(t, err, engine.ErrPoolEmpty)
	assert.Equal(t, "游戏资源加载失败，请联系管理员", service.UserMessage(err))
	assert.Zero(t, f.registry.Count())
}

func TestStartRound_AssetUnreadable(t *testing.T) {
	f := newFixture(t, service.Options{})
	assetDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "broken.png"), []byte("not a png"), 0644))

	pool := assets.NewPool(assetDir, 1)
	_, err := pool.Rescan()
	require.NoError(t, err)
	aliases, err := config.NewManager(filepath.Join(t.TempDir(), "aliases.json"))
	require.NoError(t, err)

	svc := service.NewGameService(service.Dependencies{
		Registry:  f.registry,
		Scheduler: session.NewScheduler(),
		Pool:      pool,
		Generator: assets.NewGenerator(assets.GeneratorOptions{Dir: f.teaserDir}),
		Reaper:    f.reaper,
		Aliases:   aliases,
		Notifier:  f.notes,
	}, service.Options{AllowList: []string{"*"}})

	_, err = svc.StartRound(context.Background(), "group-1")
	assert.ErrorIs(t, err, engine.ErrAssetUnreadable)
	assert.Equal(t, "图片处理失败，请重试", service.UserMessage(err))
	assert.Zero(t, f.registry.Count())
}

func TestTimerAfterResolveIsNoop(t *testing.T) {
	f := newFixture(t, service.Options{Timeout: 40 * time.Millisecond}, "初音未来.png")
	ctx := context.Background()

	_, err := f.svc.StartRound(ctx, "group-1")
	require.NoError(t, err)
	_, err = f.svc.SubmitGuess(ctx, "group-1", "alice", "初音未来")
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)

	assert.Equal(t, 1, f.notes.count(service.EventCorrect))
	assert.Zero(t, f.notes.count(service.EventTimedOut))
}

func TestGuessTimeoutRaceResolvesOnce(t *testing.T) {
	f := newFixture(t, service.Options{Timeout: time.Millisecond}, "初音未来.png")
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		require.Eventually(t, func() bool { return f.registry.Count() == 0 }, time.Second, time.Millisecond)

		_, err := f.svc.StartRound(ctx, "group-1")
		require.NoError(t, err)

		_, err = f.svc.SubmitGuess(ctx, "group-1", "alice", "miku")
		if err != nil {
			assert.ErrorIs(t, err, engine.ErrNoActiveRound)
		}
	}
	require.Eventually(t, func() bool { return f.registry.Count() == 0 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	terminal := f.notes.count(service.EventCorrect) + f.notes.count(service.EventTimedOut)
	assert.Equal(t, 30, terminal, "every round ends exactly once")
	assert.Zero(t, f.teaserFiles(t))
}

func TestScopesAreIndependent(t *testing.T) {
	f := newFixture(t, service.Options{Timeout: 10 * time.Second}, "初音未来.png")
	ctx := context.Background()

	_, err := f.svc.StartRound(ctx, "group-1")
	require.NoError(t, err)
	_, err = f.svc.StartRound(ctx, "group-2")
	require.NoError(t, err)

	rounds, err := f.svc.ListRounds(ctx)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, "group-1", rounds[0].ScopeID)

	_, err = f.svc.SubmitGuess(ctx, "group-1", "alice", "miku")
	require.NoError(t, err)

	info, err := f.svc.GetRound(ctx, "group-2")
	require.NoError(t, err)
	assert.Equal(t, engine.Active, info.State)
}

func TestShutdown(t *testing.T) {
	f := newFixture(t, service.Options{Timeout: 50 * time.Millisecond}, "初音未来.png")
	ctx := context.Background()

	_, err := f.svc.StartRound(ctx, "group-1")
	require.NoError(t, err)
	_, err = f.svc.StartRound(ctx, "group-2")
	require.NoError(t, err)
	require.Equal(t, 2, f.teaserFiles(t))

	require.NoError(t, f.svc.Shutdown(ctx))
	assert.Zero(t, f.registry.Count())
	assert.Zero(t, f.teaserFiles(t))

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, f.notes.count(service.EventTimedOut), "shutdown never reveals")

	_, err = f.svc.StartRound(ctx, "group-1")
	assert.ErrorIs(t, err, service.ErrShuttingDown)
	assert.NoError(t, f.svc.Shutdown(ctx), "second shutdown is a no-op")
}

func TestAssetsAndAliases(t *testing.T) {
	f := newFixture(t, service.Options{}, "初音未来.png", "镜音连/card_01.png")
	ctx := context.Background()

	candidates, err := f.svc.ListCandidates(ctx)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)

	path, err := f.svc.AssetPath(ctx, "镜音连/card_01.png")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = f.svc.AssetPath(ctx, "../secret.png")
	assert.ErrorIs(t, err, service.ErrAssetNotFound)

	aliases, err := f.svc.GetAliases(ctx, "镜音连")
	require.NoError(t, err)
	assert.Contains(t, aliases, "len")

	_, err = f.svc.GetAliases(ctx, "nobody")
	assert.ErrorIs(t, err, config.ErrAliasNotFound)

	n, err := f.svc.RescanPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
