// SPDX-License-Identifier: AGPL-3.0-only
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/sticktock/mirror/internal/database"
	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/sticktock/mirror/internal/transcoder"
	"golang.org/x/sync/semaphore"
)

const DefaultMaxTasks = 8

type HLSStore interface {
	UpdateVideoHLS(ctx context.Context, arg database.UpdateVideoHLSParams) (database.Video, error)
}

// Worker runs detached background tasks under a global cap and funnels their
// outcomes through a single event loop.
type Worker struct {
	DB         HLSStore
	Transcoder transcoder.Transcoder

	sem      *semaphore.Weighted
	events   chan Event
	loopDone chan struct{}
	tasks    sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	active   bool
}

func NewWorker(db HLSStore, t transcoder.Transcoder, maxTasks int) *Worker {
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		DB:         db,
		Transcoder: t,
		sem:        semaphore.NewWeighted(int64(maxTasks)),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active {
		log.Println("Worker: Already active")
		return
	}

	w.events = make(chan Event, 64)
	w.loopDone = make(chan struct{})
	w.active = true

	go w.loop(w.events, w.loopDone)
	log.Println("Background worker started")
}

// Stop waits for every submitted task, drains pending events and stops the
// event loop.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		log.Println("Worker: Not active")
		return
	}
	w.active = false
	events, loopDone := w.events, w.loopDone
	w.mu.Unlock()

	w.tasks.Wait()
	close(events)
	<-loopDone
	log.Println("Background worker stopped")
}

// Shutdown abandons queued work and cancels running tasks before stopping.
func (w *Worker) Shutdown() {
	w.cancel()
	w.Stop()
}

func (w *Worker) IsActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Wait blocks until every submitted task has finished.
func (w *Worker) Wait() {
	w.tasks.Wait()
}

// Go runs fn detached from the caller. Failures and panics are reported as
// TaskFailed events.
func (w *Worker) Go(name string, fn func(ctx context.Context) error) {
	w.tasks.Add(1)
	go func() {
		defer w.tasks.Done()

		if err := w.sem.Acquire(w.ctx, 1); err != nil {
			w.emit(Event{Kind: TaskFailed, Name: name, Err: err})
			return
		}
		defer w.sem.Release(1)

		if err := w.run(name, fn); err != nil {
			w.emit(Event{Kind: TaskFailed, Name: name, Err: err})
		}
	}()
}

func (w *Worker) run(name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker: Panic in task %s: %v", name, r)
			err = fmt.Errorf("panic in task %s: %v", name, r)
		}
	}()
	return fn(w.ctx)
}

// Transcode converts src into HLS under outDir. On success the video of postID
// gets manifestPath as its HLS path.
func (w *Worker) Transcode(postID uuid.UUID, src, outDir, manifestPath string) {
	name := "transcode " + postID.String()

	if w.Transcoder == nil {
		w.tasks.Add(1)
		defer w.tasks.Done()
		w.emit(Event{Kind: TaskFailed, Name: name, PostID: postID, Err: fmt.Errorf("%w: no transcoder configured", common.ErrTranscodeFailed)})
		return
	}

	w.tasks.Add(1)
	go func() {
		defer w.tasks.Done()

		if err := w.sem.Acquire(w.ctx, 1); err != nil {
			w.emit(Event{Kind: TaskFailed, Name: name, PostID: postID, Err: err})
			return
		}
		defer w.sem.Release(1)

		settled := make(chan struct{})
		var once sync.Once

		w.Transcoder.TranscodeToStreaming(w.ctx, src, outDir, func(_ string, err error) {
			once.Do(func() {
				defer close(settled)
				if err != nil {
					w.emit(Event{Kind: TaskFailed, Name: name, PostID: postID, Err: fmt.Errorf("%w: %w", common.ErrTranscodeFailed, err)})
					return
				}
				w.emit(Event{Kind: TranscodeDone, Name: name, PostID: postID, Manifest: manifestPath})
			})
		})

		<-settled
	}()
}
