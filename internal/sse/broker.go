// Package sse implements a Server-Sent Events broker that pushes office
// state changes to connected browsers.
package sse

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	clientBuffer     = 64
	defaultKeepAlive = 25 * time.Second
	// retryMillis is the reconnect delay suggested to EventSource clients.
	retryMillis = 3000
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ChangeData is the payload of a collection change event.
type ChangeData struct {
	ID     string   `json:"id,omitempty"`
	Origin string   `json:"origin"`
	Keys   []string `json:"keys,omitempty"`
}

// StatsFunc returns the payload of the "stats.updated" event.
type StatsFunc func() any

// Option configures a Broker.
type Option func(*Broker)

// WithStats sets the source of "stats.updated" payloads. Without it the
// event carries an empty object and clients refetch.
func WithStats(fn StatsFunc) Option {
	return func(b *Broker) { b.stats = fn }
}

// WithKeepAlive sets the interval of comment frames sent to idle streams.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// Broker fans events out to subscribed streams.
//
// One goroutine owns the subscriber set, the event sequence and the stats
// throttle; every public method talks to it over channels.
type Broker struct {
	statsMin  time.Duration
	stats     StatsFunc
	keepAlive time.Duration

	joinCh  chan chan []byte
	leaveCh chan chan []byte
	eventCh chan outgoing
	countCh chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// outgoing is an event queued for the loop. change events may be followed
// by a throttled stats event.
type outgoing struct {
	event  Event
	change bool
}

// NewBroker starts a broker. statsThrottle bounds how often
// "stats.updated" follows a change event.
func NewBroker(statsThrottle time.Duration, opts ...Option) *Broker {
	if statsThrottle <= 0 {
		statsThrottle = 2 * time.Second
	}
	b := &Broker{
		statsMin:  statsThrottle,
		keepAlive: defaultKeepAlive,
		joinCh:    make(chan chan []byte),
		leaveCh:   make(chan chan []byte),
		eventCh:   make(chan outgoing, 256),
		countCh:   make(chan chan int),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	if b.keepAlive <= 0 {
		b.keepAlive = defaultKeepAlive
	}
	go b.loop()
	return b
}

// frame encodes one SSE message with its sequence id.
func frame(seq uint64, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(seq, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(ev.Type)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

func (b *Broker) loop() {
	defer close(b.stopped)

	subs := make(map[chan []byte]struct{})
	var seq uint64
	var lastStats time.Time

	send := func(ev Event) {
		seq++
		msg, err := frame(seq, ev)
		if err != nil {
			slog.Warn("sse: dropping unencodable event",
				slog.String("type", ev.Type),
				slog.String("error", err.Error()))
			return
		}
		for ch := range subs {
			select {
			case ch <- msg:
			default:
				// slow subscriber; it resyncs on the next stats event
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-b.joinCh:
			subs[ch] = struct{}{}

		case ch := <-b.leaveCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case out := <-b.eventCh:
			send(out.event)
			if !out.change {
				continue
			}
			if now := time.Now(); now.Sub(lastStats) >= b.statsMin {
				lastStats = now
				var data any = struct{}{}
				if b.stats != nil {
					data = b.stats()
				}
				send(Event{Type: "stats.updated", Data: data})
			}

		case resp := <-b.countCh:
			resp <- len(subs)
		}
	}
}

// Close stops the loop and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a new stream. The channel is closed on Unsubscribe
// or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.joinCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes ch and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leaveCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of open streams.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

func (b *Broker) enqueue(out outgoing) {
	if b.closed.Load() {
		return
	}
	select {
	case b.eventCh <- out:
	case <-b.stopped:
	}
}

// Publish sends event to every stream.
func (b *Broker) Publish(event Event) {
	b.enqueue(outgoing{event: event})
}

// PublishChange broadcasts "<collection>.<op>", or "state.<op>" when a
// change spans several collections, then a throttled "stats.updated".
func (b *Broker) PublishChange(collection, op string, data ChangeData) {
	typ := "state." + op
	if collection != "" {
		typ = collection + "." + op
	}
	b.enqueue(outgoing{event: Event{Type: typ, Data: data}, change: true})
}

// ServeHTTP streams events until the client disconnects (GET /api/events).
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
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: " + strconv.Itoa(retryMillis) + "\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
