// Package queueboard keeps the lobby queue board current by polling the
// student list.
package queueboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"regportal/internal/domain"
)

// DefaultInterval is the poll period.
const DefaultInterval = 5 * time.Second

// Lister fetches every student.
type Lister interface {
	ListStudents(ctx context.Context) ([]domain.Student, error)
}

// State is what the board shows.
type State struct {
	Groups    []Group
	Loaded    bool
	Err       error
	UpdatedAt time.Time
}

// ConnectionError reports a failure with nothing to show yet.
func (s State) ConnectionError() bool { return s.Err != nil && !s.Loaded }

// Stale reports a failure while older data is still on screen.
func (s State) Stale() bool { return s.Err != nil && s.Loaded }

// Waiting counts every queued student.
func (s State) Waiting() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Students)
	}
	return n
}

// DepartmentView is one row of the board: who is next and how many wait
// behind them.
type DepartmentView struct {
	Department string         `json:"department"`
	Next       domain.Student `json:"next"`
	Remaining  int            `json:"remaining"`
}

// View reduces the groups to the rows the board renders.
func (s State) View() []DepartmentView {
	rows := make([]DepartmentView, 0, len(s.Groups))
	for _, g := range s.Groups {
		if len(g.Students) == 0 {
			continue
		}
		rows = append(rows, DepartmentView{Department: g.Department, Next: g.Students[0], Remaining: len(g.Students) - 1})
	}
	return rows
}

// Metrics are the board's poll counters.
type Metrics struct {
	polls   *prometheus.CounterVec
	waiting *prometheus.GaugeVec
}

// NewMetrics registers the board collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regportal",
			Subsystem: "queue",
			Name:      "polls_total",
			Help:      "Queue polls by result.",
		}, []string{"result"}),
		waiting: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "regportal",
			Subsystem: "queue",
			Name:      "waiting",
			Help:      "Students waiting per department.",
		}, []string{"department"}),
	}
	reg.MustRegister(m.polls, m.waiting)
	return m
}

func (m *Metrics) poll(result string) {
	if m != nil {
		m.polls.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) setWaiting(groups []Group) {
	if m == nil {
		return
	}
	m.waiting.Reset()
	for _, g := range groups {
		m.waiting.WithLabelValues(g.Department).Set(float64(len(g.Students)))
	}
}

// Board polls the backend and holds the latest grouped queue.
type Board struct {
	api      Lister
	interval time.Duration
	log      logrus.FieldLogger
	metrics  *Metrics
	now      func() time.Time
	onUpdate func(State)

	inFlight atomic.Bool

	mu    sync.RWMutex
	state State
}

// Option configures a Board.
type Option func(*Board)

// WithInterval overrides the poll period.
func WithInterval(d time.Duration) Option {
	return func(b *Board) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithMetrics records polls.
func WithMetrics(m *Metrics) Option { return func(b *Board) { b.metrics = m } }

// OnUpdate is called with the new state after every completed poll.
func OnUpdate(fn func(State)) Option { return func(b *Board) { b.onUpdate = fn } }

// New builds a board over api.
func New(api Lister, log logrus.FieldLogger, opts ...Option) *Board {
	b := &Board{api: api, interval: DefaultInterval, log: log, now: time.Now}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run polls immediately and then every interval until ctx ends.
func (b *Board) Run(ctx context.Context) error {
	b.log.WithField("interval", b.interval).Info("queue board polling")
	b.tick(ctx)
	t := time.NewTicker(b.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			b.tick(ctx)
		}
	}
}

// tick runs a poll without blocking the ticker; a tick that lands while a
// poll is outstanding is skipped.
func (b *Board) tick(ctx context.Context) {
	if !b.inFlight.CompareAndSwap(false, true) {
		b.metrics.poll("skipped")
		b.log.Debug("previous queue poll still running, skipping tick")
		return
	}
	go func() {
		defer b.inFlight.Store(false)
		b.fetch(ctx)
	}()
}

// Refresh polls now and waits for the result. It reports false when a poll
// was already outstanding and nothing new was fetched.
func (b *Board) Refresh(ctx context.Context) (bool, error) {
	if !b.inFlight.CompareAndSwap(false, true) {
		b.metrics.poll("skipped")
		return false, nil
	}
	defer b.inFlight.Store(false)
	return true, b.fetch(ctx)
}

func (b *Board) fetch(ctx context.Context) error {
	students, err := b.api.ListStudents(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	b.mu.Lock()
	if err != nil {
		b.state.Err = err
		b.log.WithError(err).Warn("queue poll failed")
		b.metrics.poll("error")
	} else {
		groups := GroupStudents(Sanitize(students, b.log))
		b.state = State{Groups: groups, Loaded: true, UpdatedAt: b.now()}
		b.metrics.poll("ok")
		b.metrics.setWaiting(groups)
	}
	st := b.state
	b.mu.Unlock()

	if b.onUpdate != nil {
		b.onUpdate(st)
	}
	return err
}

// State returns the latest board state.
func (b *Board) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}
