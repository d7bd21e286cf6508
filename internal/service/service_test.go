package service

import (
	"sync"
	"time"

	"mediradar-api-server/internal/lifecycle"
	"mediradar-api-server/internal/store/memory"

	"go.uber.org/zap"
)

type published struct {
	Topic string
	Type  string
	Data  any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(topic, eventType string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{Topic: topic, Type: eventType, Data: data})
}

func (n *recordingNotifier) types(topic string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		if e.Topic == topic {
			out = append(out, e.Type)
		}
	}
	return out
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) Event(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[name]++
}

func (r *countingRecorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

// fakeClock is a settable time source shared by the store and services.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	clock    *fakeClock
	store    *memory.Store
	notifier *recordingNotifier
	recorder *countingRecorder
	requests *RequestService
}

var athens, _ = time.LoadLocation("Europe/Athens")

func newFixture() *fixture {
	clock := &fakeClock{now: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)}
	s := memory.New().WithClock(clock.Now)
	n := &recordingNotifier{}
	rec := &countingRecorder{}
	policy := lifecycle.DefaultPolicy()
	policy.Location = athens
	return &fixture{
		clock:    clock,
		store:    s,
		notifier: n,
		recorder: rec,
		requests: NewRequestService(s, policy, n, rec, zap.NewNop()).WithClock(clock.Now),
	}
}
