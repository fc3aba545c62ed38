package persistence

import (
	"context"
	"log/slog"
	"time"

	"github.com/talgya/world-api/internal/environment"
)

// Recorder is an environment listener that writes every notification to
// the change log. Notifications are queued and written in batches by Run so
// the frame loop never waits on the database.
type Recorder struct {
	db    *DB
	frame func() uint64
	queue chan Change
}

// NewRecorder creates a recorder. frame reports the current frame number
// and may be nil.
func NewRecorder(db *DB, frame func() uint64, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	return &Recorder{db: db, frame: frame, queue: make(chan Change, buffer)}
}

// OnEnvironmentChanged implements environment.Listener. A full queue drops
// the entry.
func (r *Recorder) OnEnvironmentChanged(args environment.ChangeArgs) error {
	c := Change{At: time.Now().UTC(), Mask: args.Mask}
	if r.frame != nil {
		c.Frame = r.frame()
	}
	select {
	case r.queue <- c:
	default:
		slog.Warn("change log queue full, dropping entry", "mask", args.Mask.String())
	}
	return nil
}

// Run writes queued changes until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var batch []Change
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := r.db.RecordChanges(ctx, batch); err != nil {
			slog.Error("failed to write change log", "error", err, "entries", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case c := <-r.queue:
			batch = append(batch, c)
			if len(batch) >= cap(r.queue) {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			for {
				select {
				case c := <-r.queue:
					batch = append(batch, c)
				default:
					flush(context.WithoutCancel(ctx))
					return
				}
			}
		}
	}
}
