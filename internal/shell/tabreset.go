package shell

import (
	"log/slog"
	"sync"

	"github.com/stridefit/stride/internal/tabroute"
)

type resetSub struct {
	id int
	fn func(rootPath string)
}

// TabResetBus decouples "tab re-selected" gestures from the view
// instances that must react by returning to their root path. Delivery
// is synchronous and in registration order on the publishing goroutine;
// an event published while a tab has no subscriber is dropped, which is
// fine because it only matters while the tab's view is mounted.
type TabResetBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[tabroute.Tab][]resetSub
	logger *slog.Logger
}

func NewTabResetBus(logger *slog.Logger) *TabResetBus {
	return &TabResetBus{
		subs:   make(map[tabroute.Tab][]resetSub),
		logger: logger,
	}
}

// Subscribe registers a callback for a tab. Multiple subscribers per
// tab are allowed; the steady state is one mounted controller.
func (b *TabResetBus) Subscribe(tab tabroute.Tab, fn func(rootPath string)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[tab] = append(b.subs[tab], resetSub{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		kept := b.subs[tab][:0]
		for _, s := range b.subs[tab] {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(b.subs, tab)
		} else {
			b.subs[tab] = kept
		}
	}
}

// Publish invokes every subscriber registered for the tab with the
// tab's root path.
func (b *TabResetBus) Publish(tab tabroute.Tab, rootPath string) {
	b.mu.RLock()
	subs := make([]resetSub, len(b.subs[tab]))
	copy(subs, b.subs[tab])
	b.mu.RUnlock()

	b.logger.Debug("tab reset",
		"tab", tab,
		"root", rootPath,
		"subscribers", len(subs),
	)
	for _, s := range subs {
		s.fn(rootPath)
	}
}
