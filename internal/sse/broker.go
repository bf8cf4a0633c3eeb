// Package sse implements a Server-Sent Events broker for live corpus updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types emitted over the stream.
const (
	EventDocCreated = "doc.created"
	EventDocUpdated = "doc.updated"
	EventDocDeleted = "doc.deleted"
	EventNavUpdated = "nav.updated"
)

const (
	clientBuf  = 64
	pendingBuf = 256

	// Proxies tend to cut idle streams; a comment frame keeps them open.
	heartbeatEvery = 30 * time.Second
)

// Event is one SSE message before wire encoding.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame encodes an event as an SSE wire frame.
func frame(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", e.Type, payload), nil
}

type docChange struct {
	kind string
	path string
}

// Broker fans out corpus change events to SSE clients.
//
// A single loop goroutine owns the client set and the nav throttle clock.
// The exported methods talk to it over channels only, and every send also
// selects on the stopped channel so no call can block after Close.
type Broker struct {
	navEvery time.Duration

	register   chan chan []byte
	deregister chan chan []byte
	events     chan Event
	docEvents  chan docChange
	counts     chan chan int

	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts the broker loop. navThrottle caps how often nav.updated
// is rebroadcast alongside document events.
func NewBroker(navThrottle time.Duration) *Broker {
	if navThrottle <= 0 {
		navThrottle = 2 * time.Second
	}

	b := &Broker{
		navEvery:   navThrottle,
		register:   make(chan chan []byte),
		deregister: make(chan chan []byte),
		events:     make(chan Event, pendingBuf),
		docEvents:  make(chan docChange, pendingBuf),
		counts:     make(chan chan int),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}

	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastNav time.Time

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	send := func(raw []byte) {
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop the frame rather than stall the loop.
			}
		}
	}
	emit := func(e Event) {
		raw, err := frame(e)
		if err != nil {
			return
		}
		send(raw)
	}

	for {
		select {
		case <-b.stop:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.register:
			clients[ch] = struct{}{}

		case ch := <-b.deregister:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case e := <-b.events:
			emit(e)

		case chg := <-b.docEvents:
			var typ string
			switch chg.kind {
			case "created":
				typ = EventDocCreated
			case "updated":
				typ = EventDocUpdated
			case "deleted":
				typ = EventDocDeleted
			default:
				continue
			}
			emit(Event{Type: typ, Data: map[string]string{"path": chg.path}})

			if now := time.Now(); now.Sub(lastNav) >= b.navEvery {
				lastNav = now
				emit(Event{Type: EventNavUpdated, Data: map[string]string{}})
			}

		case <-heartbeat.C:
			send([]byte(": ping\n\n"))

		case resp := <-b.counts:
			resp <- len(clients)
		}
	}
}

// offer sends v on ch unless stopped closes first.
func offer[T any](stopped <-chan struct{}, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-stopped:
		return false
	}
}

// Close stops the loop and closes every client channel. It blocks until
// the loop has exited and is safe to call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.stopped
}

// Subscribe registers a client and returns its frame channel. The channel
// is closed by Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuf)
	if b.closed.Load() || !offer(b.stopped, b.register, ch) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel. Safe after Close.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	offer(b.stopped, b.deregister, ch)
}

// ClientCount reports connected clients; it is 0 after Close.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	if !offer(b.stopped, b.counts, resp) {
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts an arbitrary event to all connected clients.
func (b *Broker) Publish(e Event) {
	if b.closed.Load() {
		return
	}
	offer(b.stopped, b.events, e)
}

// PublishDocEvent broadcasts a document change (kind is created, updated
// or deleted) plus a throttled nav.updated.
func (b *Broker) PublishDocEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	offer(b.stopped, b.docEvents, docChange{kind: kind, path: path})
}

// ServeHTTP streams broker events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(raw); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
