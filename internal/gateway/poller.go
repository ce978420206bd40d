package gateway

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultDebounce     = 60 * time.Second
)

// Poller периодически обновляет данные, пропуская тик, если пользователь
// действовал недавно: свежие правки не затираются устаревшим снимком.
type Poller struct {
	interval time.Duration
	debounce time.Duration
	now      func() time.Time

	mu         sync.Mutex
	lastAction time.Time
}

// NewPoller создаёт Poller. Нулевые значения заменяются значениями по умолчанию.
func NewPoller(interval, debounce time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Poller{interval: interval, debounce: debounce, now: time.Now}
}

// Touch отмечает действие пользователя.
func (p *Poller) Touch() {
	p.mu.Lock()
	p.lastAction = p.now()
	p.mu.Unlock()
}

// ShouldPoll сообщает, прошло ли окно подавления с последнего действия.
func (p *Poller) ShouldPoll() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAction.IsZero() || p.now().Sub(p.lastAction) >= p.debounce
}

// Run вызывает fn на каждом тике до отмены ctx. Вызовы не перекрываются.
func (p *Poller) Run(ctx context.Context, fn func(ctx context.Context)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.ShouldPoll() {
				fn(ctx)
			}
		}
	}
}
