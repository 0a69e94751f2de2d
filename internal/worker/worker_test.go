package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sticktock/mirror/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	updates []database.UpdateVideoHLSParams
	err     error
}

func (f *fakeStore) UpdateVideoHLS(ctx context.Context, arg database.UpdateVideoHLSParams) (database.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, arg)
	return database.Video{PostID: arg.PostID, HlsPath: arg.HlsPath}, f.err
}

func (f *fakeStore) calls() []database.UpdateVideoHLSParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]database.UpdateVideoHLSParams(nil), f.updates...)
}

type fakeTranscoder struct {
	err   error
	delay time.Duration
}

func (f *fakeTranscoder) TranscodeToStreaming(ctx context.Context, src, outDir string, done func(string, error)) {
	go func() {
		time.Sleep(f.delay)
		if f.err != nil {
			done("", f.err)
			return
		}
		done(outDir+"/output.m3u8", nil)
		done(outDir+"/output.m3u8", nil)
	}()
}

func TestTranscode_SingleUpdateOnSuccess(t *testing.T) {
	store := &fakeStore{}
	w := NewWorker(store, &fakeTranscoder{delay: 10 * time.Millisecond}, 2)
	w.Start()

	postID := uuid.New()
	w.Transcode(postID, "/public/videos/7300.mp4", "/public/hls/"+postID.String(), "/hls/"+postID.String()+"/output.m3u8")
	w.Stop()

	calls := store.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, postID, calls[0].PostID)
	assert.Equal(t, "/hls/"+postID.String()+"/output.m3u8", calls[0].HlsPath.String)
	assert.True(t, calls[0].HlsPath.Valid)
}

func TestTranscode_FailureLeavesVideoUntouched(t *testing.T) {
	store := &fakeStore{}
	w := NewWorker(store, &fakeTranscoder{err: errors.New("ffmpeg exited 1")}, 2)
	w.Start()

	w.Transcode(uuid.New(), "src.mp4", "out", "/hls/x/output.m3u8")
	w.Stop()

	assert.Empty(t, store.calls())
}

func TestTranscode_NoTranscoder(t *testing.T) {
	store := &fakeStore{}
	w := NewWorker(store, nil, 1)
	w.Start()
	w.Transcode(uuid.New(), "src.mp4", "out", "/hls/x/output.m3u8")
	w.Stop()

	assert.Empty(t, store.calls())
}

func TestTranscode_NoTranscoderRacingStop(t *testing.T) {
	w := NewWorker(nil, nil, 1)
	w.Start()

	var callers sync.WaitGroup
	for i := 0; i < 32; i++ {
		callers.Add(1)
		go func() {
			defer callers.Done()
			w.Transcode(uuid.New(), "src.mp4", "out", "/hls/x/output.m3u8")
		}()
	}

	assert.NotPanics(t, func() {
		w.Stop()
		callers.Wait()
	})
	assert.False(t, w.IsActive())
}

func TestGo_RecoversPanicsAndKeepsRunning(t *testing.T) {
	w := NewWorker(nil, nil, 1)
	w.Start()

	var ran atomic.Bool
	w.Go("explode", func(ctx context.Context) error { panic("boom") })
	w.Go("fail", func(ctx context.Context) error { return errors.New("audio download failed") })
	w.Go("ok", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	w.Stop()

	assert.True(t, ran.Load())
	assert.False(t, w.IsActive())
}

func TestGo_RespectsCap(t *testing.T) {
	w := NewWorker(nil, nil, 2)
	w.Start()
	defer w.Stop()

	var current, peak atomic.Int32
	release := make(chan struct{})

	for i := 0; i < 6; i++ {
		w.Go("task", func(ctx context.Context) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			current.Add(-1)
			return nil
		})
	}

	require.Eventually(t, func() bool { return current.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), peak.Load())

	close(release)
	w.Wait()
	assert.Equal(t, int32(2), peak.Load())
}

func TestWorker_InlineWhenNotStarted(t *testing.T) {
	store := &fakeStore{}
	w := NewWorker(store, &fakeTranscoder{}, 1)

	postID := uuid.New()
	w.Transcode(postID, "src.mp4", "out", "/hls/p/output.m3u8")
	w.Wait()

	require.Len(t, store.calls(), 1)
	assert.Equal(t, postID, store.calls()[0].PostID)
}

func TestWorker_ShutdownCancelsQueuedTasks(t *testing.T) {
	w := NewWorker(nil, nil, 1)
	w.Start()

	started := make(chan struct{})
	w.Go("long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	var queuedRan atomic.Bool
	w.Go("queued", func(ctx context.Context) error {
		queuedRan.Store(true)
		return nil
	})

	w.Shutdown()
	assert.False(t, queuedRan.Load())
}
