// Package chat implements the broadcast chat multiplexer. One loop goroutine
// owns every connection's state and the history; connection goroutines only
// move bytes.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/metrics"
	"classroom-quiz-service/internal/wire"
)

// ErrClosed is returned by Attach after Run has returned.
var ErrClosed = errors.New("chat multiplexer closed")

const readChunk = 4096

type eventKind int

const (
	evAttach eventKind = iota
	evData
	evClose
)

type event struct {
	kind eventKind
	id   uint64
	peer *peer
	data []byte
	err  error
}

type peer struct {
	id     uint64
	remote string
	conn   io.ReadWriteCloser
	out    chan []byte
	name   string
	buf    []byte
}

func (p *peer) registered() bool { return p.name != "" }

// Multiplexer relays chat frames between every attached connection.
type Multiplexer struct {
	now      func() time.Time
	outbound int
	nextID   atomic.Uint64

	events chan event
	calls  chan func()
	done   chan struct{}

	// owned by the loop
	peers   map[uint64]*peer
	history []domain.ChatMessage
	frames  [][]byte // encoded history, index-aligned
}

// New builds a multiplexer whose peers each buffer up to outbound pending
// writes before being dropped as too slow.
func New(outbound int) *Multiplexer {
	if outbound <= 0 {
		outbound = 256
	}
	return &Multiplexer{
		now:      time.Now,
		outbound: outbound,
		events:   make(chan event),
		calls:    make(chan func()),
		done:     make(chan struct{}),
		peers:    make(map[uint64]*peer),
	}
}

// Run is the control loop. It returns when ctx is cancelled, after closing
// every connection.
func (m *Multiplexer) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			for _, p := range m.peers {
				m.release(p)
			}
			return
		case ev := <-m.events:
			m.apply(ev)
		case fn := <-m.calls:
			fn()
		}
	}
}

// Serve attaches every connection accepted on ln until ctx is cancelled.
func (m *Multiplexer) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	log.Printf("chat listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("chat accept failed: %v", err)
			continue
		}
		if err := m.Attach(conn, conn.RemoteAddr().String()); err != nil {
			conn.Close()
			return nil
		}
	}
}

// Attach hands a connection to the loop. The connection is closed by the
// multiplexer when the peer leaves.
func (m *Multiplexer) Attach(conn io.ReadWriteCloser, remote string) error {
	p := &peer{
		id:     m.nextID.Add(1),
		remote: remote,
		conn:   conn,
		out:    make(chan []byte, m.outbound),
	}
	if !m.post(event{kind: evAttach, id: p.id, peer: p}) {
		return ErrClosed
	}
	go m.write(p)
	go m.read(p)
	return nil
}

// History returns a copy of the chat history.
func (m *Multiplexer) History() []domain.ChatMessage {
	var out []domain.ChatMessage
	m.call(func() {
		out = make([]domain.ChatMessage, len(m.history))
		copy(out, m.history)
	})
	return out
}

// Peers lists the names of registered participants.
func (m *Multiplexer) Peers() []string {
	var out []string
	m.call(func() {
		for _, p := range m.peers {
			if p.registered() {
				out = append(out, p.name)
			}
		}
	})
	return out
}

func (m *Multiplexer) call(fn func()) {
	wait := make(chan struct{})
	select {
	case m.calls <- func() { fn(); close(wait) }:
		<-wait
	case <-m.done:
	}
}

func (m *Multiplexer) post(ev event) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

func (m *Multiplexer) read(p *peer) {
	buf := make([]byte, readChunk)
	for {
		n, err := p.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !m.post(event{kind: evData, id: p.id, data: chunk}) {
				return
			}
		}
		if err != nil {
			m.post(event{kind: evClose, id: p.id, err: err})
			return
		}
	}
}

func (m *Multiplexer) write(p *peer) {
	defer p.conn.Close()
	for chunk := range p.out {
		if _, err := p.conn.Write(chunk); err != nil {
			log.Printf("chat: write to %s failed: %v", p.remote, err)
			return
		}
	}
}

func (m *Multiplexer) apply(ev event) {
	switch ev.kind {
	case evAttach:
		m.peers[ev.id] = ev.peer
		log.Printf("chat: connection from %s", ev.peer.remote)
	case evData:
		p, ok := m.peers[ev.id]
		if !ok {
			return
		}
		p.buf = append(p.buf, ev.data...)
		frames, rest, err := wire.SplitFrames(p.buf)
		p.buf = rest
		for _, frame := range frames {
			m.receive(p, frame)
			if _, live := m.peers[p.id]; !live {
				return
			}
		}
		if err != nil {
			log.Printf("chat: dropping %s: %v", p.remote, err)
			m.drop(p)
		}
	case evClose:
		if p, ok := m.peers[ev.id]; ok {
			if ev.err != nil && !errors.Is(ev.err, io.EOF) {
				log.Printf("chat: read from %s failed: %v", p.remote, ev.err)
			}
			m.drop(p)
		}
	}
}

func (m *Multiplexer) receive(p *peer, frame []byte) {
	if !p.registered() {
		m.register(p, string(frame))
		return
	}
	var msg domain.ChatMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		log.Printf("chat: undecodable message from %s skipped: %v", p.name, err)
		return
	}
	if msg.Sender == "" {
		msg.Sender = p.name
	}
	if msg.Kind == "" {
		msg.Kind = domain.ChatUser
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}
	m.publish(msg, p.id)
}

func (m *Multiplexer) register(p *peer, identity string) {
	name := strings.TrimSpace(identity)
	if name == "" {
		name = p.remote
	}
	var replay []byte
	for _, frame := range m.frames {
		replay = append(replay, frame...)
	}

	p.name = name
	metrics.ChatPeers.Inc()
	log.Printf("chat: %s joined from %s", name, p.remote)
	m.publish(domain.NewSystemMessage(name+" joined the chat", m.now()), p.id)

	if len(replay) == 0 {
		return
	}
	if !m.enqueue(p, replay) {
		m.dropSlow([]*peer{p})
	}
}

// publish appends msg to history and sends it to every registered peer but
// the one with id except. A message that cannot be framed is neither kept
// nor sent.
func (m *Multiplexer) publish(msg domain.ChatMessage, except uint64) {
	frame, err := encode(msg)
	if err != nil {
		log.Printf("chat: message from %s dropped: %v", msg.Sender, err)
		return
	}
	m.history = append(m.history, msg)
	m.frames = append(m.frames, frame)
	metrics.ChatMessages.WithLabelValues(string(msg.Kind)).Inc()

	var slow []*peer
	for id, p := range m.peers {
		if id == except || !p.registered() {
			continue
		}
		if !m.enqueue(p, frame) {
			slow = append(slow, p)
		}
	}
	m.dropSlow(slow)
}

func (m *Multiplexer) enqueue(p *peer, chunk []byte) bool {
	select {
	case p.out <- chunk:
		return true
	default:
		return false
	}
}

func (m *Multiplexer) dropSlow(slow []*peer) {
	for _, p := range slow {
		if _, ok := m.peers[p.id]; !ok {
			continue
		}
		log.Printf("chat: %s is not keeping up, disconnecting", p.remote)
		metrics.ChatDropped.Inc()
		m.drop(p)
	}
}

// drop removes p; a registered peer's departure is announced to the rest.
func (m *Multiplexer) drop(p *peer) {
	m.release(p)
	if !p.registered() {
		return
	}
	metrics.ChatPeers.Dec()
	log.Printf("chat: %s left", p.name)
	m.publish(domain.NewSystemMessage(p.name+" left the chat", m.now()), p.id)
}

func (m *Multiplexer) release(p *peer) {
	delete(m.peers, p.id)
	p.buf = nil
	close(p.out)
	// Unblocks a writer stuck on a slow peer and ends the reader.
	p.conn.Close()
}

func encode(msg domain.ChatMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return wire.EncodeFrame(body)
}
