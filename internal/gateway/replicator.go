package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
)

// Replicator доставляет локальную запись на сервер. Результат доставки
// никогда не откатывает локальное состояние.
type Replicator interface {
	Replicate(ctx context.Context, op string, call func(ctx context.Context) error)
}

// InlineReplicator выполняет вызов сразу, в горутине вызывающего.
// Длительность ограничена таймаутом клиента.
type InlineReplicator struct {
	Log *slog.Logger
}

func (r InlineReplicator) Replicate(ctx context.Context, op string, call func(ctx context.Context) error) {
	if err := call(ctx); err != nil {
		r.Log.Warn("remote write failed, kept locally", sl.Op(op), sl.Err(err))
	}
}

// BackgroundReplicator выполняет вызовы в фоне. Wait дожидается завершения всех начатых.
type BackgroundReplicator struct {
	log *slog.Logger
	wg  sync.WaitGroup
}

// NewBackgroundReplicator создаёт BackgroundReplicator.
func NewBackgroundReplicator(log *slog.Logger) *BackgroundReplicator {
	return &BackgroundReplicator{log: log}
}

func (r *BackgroundReplicator) Replicate(ctx context.Context, op string, call func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := call(ctx); err != nil {
			r.log.Warn("remote write failed, kept locally", sl.Op(op), sl.Err(err))
		}
	}()
}

// Wait блокируется, пока не завершатся все запущенные вызовы.
func (r *BackgroundReplicator) Wait() {
	r.wg.Wait()
}
