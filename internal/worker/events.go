// SPDX-License-Identifier: AGPL-3.0-only
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sticktock/mirror/internal/database"
)

type EventKind int

const (
	TaskFailed EventKind = iota
	TranscodeDone
)

type Event struct {
	Kind     EventKind
	Name     string
	PostID   uuid.UUID
	Manifest string
	Err      error
}

const updateTimeout = 10 * time.Second

func (w *Worker) emit(ev Event) {
	w.mu.Lock()
	active, events := w.active, w.events
	w.mu.Unlock()

	if !active {
		w.handle(ev)
		return
	}
	events <- ev
}

func (w *Worker) loop(events <-chan Event, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		w.handle(ev)
	}
}

func (w *Worker) handle(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker: Panic handling event %s: %v", ev.Name, r)
			sentry.CurrentHub().Recover(r)
		}
	}()

	switch ev.Kind {
	case TaskFailed:
		if errors.Is(ev.Err, context.Canceled) {
			log.Printf("Worker: Task %s cancelled", ev.Name)
			return
		}
		log.Printf("Worker: Task %s failed: %v", ev.Name, ev.Err)
		sentry.CaptureException(fmt.Errorf("background task %s: %w", ev.Name, ev.Err))

	case TranscodeDone:
		if w.DB == nil {
			log.Printf("Worker: No store for HLS update of post %s", ev.PostID)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
		defer cancel()

		_, err := w.DB.UpdateVideoHLS(ctx, database.UpdateVideoHLSParams{
			PostID:  ev.PostID,
			HlsPath: sql.NullString{String: ev.Manifest, Valid: true},
		})
		if err != nil {
			log.Printf("Worker: Failed to set HLS path for post %s: %v", ev.PostID, err)
			sentry.CaptureException(fmt.Errorf("update hls for post %s: %w", ev.PostID, err))
			return
		}
		log.Printf("Worker: HLS ready for post %s", ev.PostID)
	}
}
