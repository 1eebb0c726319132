package ui

import (
	"sync"
	"time"
)

// noticeTTL is how long a notice stays visible in the footer.
const noticeTTL = 5 * time.Second

// Notice is one transient user-facing message, usually the single
// notification produced by a failed or reverted action.
type Notice struct {
	Message string
	At      time.Time
}

// Notices is a small thread-safe message board. Reconciliation callbacks
// post from background goroutines; the render path reads on the UI tick.
type Notices struct {
	mu    sync.Mutex
	items []Notice
}

// NewNotices builds an empty board.
func NewNotices() *Notices {
	return &Notices{}
}

// Add posts a message.
func (n *Notices) Add(message string) {
	if message == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, Notice{Message: message, At: time.Now()})
}

// Active returns the messages still within their display window, oldest
// first, and prunes the rest.
func (n *Notices) Active(now time.Time) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	kept := n.items[:0]
	var messages []string
	for _, item := range n.items {
		if now.Sub(item.At) > noticeTTL {
			continue
		}
		kept = append(kept, item)
		messages = append(messages, item.Message)
	}
	n.items = kept
	return messages
}
