// Package notify holds the single transient message an admin desk shows.
package notify

import (
	"sync"
	"time"
)

// Kind is the styling class of a notification.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

// DismissAfter is how long a notification stays up.
const DismissAfter = 5 * time.Second

// Notification is one message.
type Notification struct {
	Message string
	Kind    Kind
	At      time.Time
}

// Center shows at most one notification and clears it after a delay.
// A newer notification is never cleared by an older one's timer.
type Center struct {
	mu      sync.Mutex
	current *Notification
	seq     uint64
	after   time.Duration
	onShow  func(Notification)
}

// NewCenter returns a center that calls onShow (if set) for every message.
func NewCenter(onShow func(Notification)) *Center {
	return &Center{after: DismissAfter, onShow: onShow}
}

// Show replaces the current notification.
func (c *Center) Show(kind Kind, msg string) {
	n := Notification{Message: msg, Kind: kind, At: time.Now()}
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.current = &n
	after := c.after
	c.mu.Unlock()

	time.AfterFunc(after, func() { c.expire(seq) })
	if c.onShow != nil {
		c.onShow(n)
	}
}

func (c *Center) expire(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == seq {
		c.current = nil
	}
}

// Current returns the visible notification, if any.
func (c *Center) Current() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Notification{}, false
	}
	return *c.current, true
}

// Dismiss clears the notification now.
func (c *Center) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.current = nil
}
