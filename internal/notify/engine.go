// Package notify implements the best-effort datagram notification engine:
// a registry of clients, per-student countdowns, routed quiz events, ad-hoc
// announcements and quick polls, plus the control channel that drives them.
package notify

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/metrics"
)

// Sender writes one datagram to addr.
type Sender interface {
	Send(addr *net.UDPAddr, payload []byte) error
}

// UDPSender sends from an existing socket, normally the registration listener.
type UDPSender struct {
	Conn *net.UDPConn
}

func (s UDPSender) Send(addr *net.UDPAddr, payload []byte) error {
	_, err := s.Conn.WriteToUDP(payload, addr)
	return err
}

// Options configure an Engine.
type Options struct {
	// Duration is the exam length D the countdown is built for.
	Duration time.Duration
	// RetryDelay is how long a start waits for a missing registration.
	RetryDelay time.Duration
	// ClientPort is where REGISTER_CLIENT registrations receive datagrams.
	ClientPort int
	// PollPort is where clients listen for QUICK_POLL datagrams.
	PollPort int
	// BroadcastAddr, when set, additionally receives ad-hoc notifications and
	// polls. It is an optional, non-portable path.
	BroadcastAddr *net.UDPAddr
}

// Engine owns the exam-side registry (REGISTER), the ad-hoc client registry
// (REGISTER_CLIENT), every student countdown and the quick poll.
type Engine struct {
	opts      Options
	sender    Sender
	clock     Clock
	steps     []Step
	exam      *Registry
	clients   *Registry
	scheduler *Scheduler
	polls     *PollManager

	mu      sync.Mutex
	retries map[string]domain.TimerHandle
}

func NewEngine(opts Options, sender Sender, clock Clock) *Engine {
	if opts.Duration <= 0 {
		opts.Duration = 300 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Engine{
		opts:      opts,
		sender:    sender,
		clock:     clock,
		steps:     Countdown(opts.Duration),
		exam:      NewRegistry(),
		clients:   NewRegistry(),
		scheduler: NewScheduler(clock),
		polls:     NewPollManager(clock.Now),
		retries:   make(map[string]domain.TimerHandle),
	}
}

// HandleInbound decodes a client datagram and applies it.
func (e *Engine) HandleInbound(payload []byte, from *net.UDPAddr) {
	msg, err := ParseInbound(payload)
	if err != nil {
		log.Printf("notify: dropping datagram from %s: %v", from, err)
		return
	}
	switch m := msg.(type) {
	case Register:
		e.Register(m.Name, from.IP, m.Port, m.Role)
	case RegisterClient:
		e.RegisterClient(m.Name, from.IP)
	case PollAnswer:
		if err := e.polls.Answer(from.IP.String(), m.Responder, m.Option); err != nil {
			log.Printf("notify: poll answer from %s (%s) rejected: %v", m.Responder, from.IP, err)
		}
	}
}

// HandleControl decodes a control datagram and applies it.
func (e *Engine) HandleControl(payload []byte, from *net.UDPAddr) {
	cmd, err := ParseCommand(payload)
	if err != nil {
		log.Printf("notify: dropping control datagram from %s: %v", from, err)
		return
	}
	e.Apply(cmd)
}

// Apply executes one control command.
func (e *Engine) Apply(cmd Command) {
	switch c := cmd.(type) {
	case StartTimer:
		err := e.StartCountdown(c.Student)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrStartDeferred):
			log.Printf("notify: student %q not registered yet, retrying in %s", c.Student, e.opts.RetryDelay)
		default:
			log.Printf("notify: countdown for %q not started: %v", c.Student, err)
		}
	case StopTimer:
		e.StopCountdown(c.Student)
	case Event:
		e.RouteEvent(c)
	}
}

// Register creates or replaces an exam-side registration. Students receive a
// one-shot welcome; teachers are registered silently.
func (e *Engine) Register(name string, ip net.IP, port int, role domain.Role) domain.Registration {
	reg := e.exam.Put(domain.Registration{Name: name, IP: ip, Port: port, Role: role})
	if reg.IsTeacher() {
		log.Printf("notify: teacher registered: %s (%s)", name, reg.Address())
		return reg
	}
	log.Printf("notify: student registered: %s (%s)", name, reg.Address())
	e.send(e.exam, reg, Notification{
		Kind: KindNotification,
		Text: "Welcome " + name + "! Your timer will start automatically when you begin the quiz.",
	})
	return reg
}

// RegisterClient adds an ad-hoc notification listener at the client port.
func (e *Engine) RegisterClient(name string, ip net.IP) domain.Registration {
	reg := e.clients.Put(domain.Registration{Name: name, IP: ip, Port: e.opts.ClientPort, Role: domain.RoleForName(name)})
	log.Printf("notify: client registered: %s (%s)", name, reg.Address())
	e.send(e.clients, reg, Notification{Kind: KindRegistrationAck, Text: "Welcome to UDP notifications!"})
	return reg
}

// StartCountdown starts (or restarts) a student's countdown. When the student
// has not registered yet a single retry is armed and ErrStartDeferred is
// returned; the retry gives up for good if the registration is still missing.
func (e *Engine) StartCountdown(student string) error {
	e.cancelRetry(student)
	if _, ok := e.exam.Get(student); ok {
		return e.startNow(student)
	}

	h := e.scheduler.NewHandle()
	e.mu.Lock()
	e.retries[student] = h
	e.mu.Unlock()
	e.scheduler.Arm(h, e.opts.RetryDelay, func() {
		if !e.takeRetry(student, h) {
			return
		}
		if err := e.startNow(student); err != nil {
			log.Printf("notify: giving up on countdown for %q: %v", student, err)
		}
	})
	return domain.ErrStartDeferred
}

func (e *Engine) startNow(student string) error {
	reg, ok := e.exam.Get(student)
	if !ok {
		return domain.ErrNotRegistered
	}
	if reg.IsTeacher() {
		return domain.ErrNotStudent
	}

	h := e.scheduler.NewHandle()
	var prev domain.TimerHandle
	reg, ok = e.exam.Update(student, func(r *domain.Registration) {
		prev = r.Timer
		r.Timer = h
		r.QuizStartedAt = e.clock.Now()
	})
	if !ok {
		e.scheduler.Cancel(h)
		return domain.ErrNotRegistered
	}
	if prev != 0 {
		e.scheduler.Cancel(prev)
	} else {
		metrics.ActiveCountdowns.Inc()
	}

	log.Printf("notify: starting %s countdown for %s", e.opts.Duration, student)
	e.send(e.exam, reg, StartNotice(e.opts.Duration))
	for _, step := range e.steps {
		step := step
		e.scheduler.Arm(h, step.At, func() { e.fire(student, h, step) })
	}
	return nil
}

func (e *Engine) fire(student string, h domain.TimerHandle, step Step) {
	reg, ok := e.exam.Get(student)
	if !ok || reg.Timer != h {
		return
	}
	e.send(e.exam, reg, step.Note)
	left := e.opts.Duration - step.At
	log.Printf("notify: sent %s to %s (time left %d:%02d)", step.Level, student, int(left.Minutes()), int(left.Seconds())%60)
	if step.Level == LevelEnd {
		e.finish(student, h)
	}
}

func (e *Engine) finish(student string, h domain.TimerHandle) {
	e.scheduler.Cancel(h)
	cleared := false
	e.exam.Update(student, func(r *domain.Registration) {
		if r.Timer == h {
			r.Timer = 0
			cleared = true
		}
	})
	if cleared {
		metrics.ActiveCountdowns.Dec()
	}
}

// StopCountdown cancels every pending send of the student's countdown (and a
// pending start retry). It reports false when nothing was armed.
func (e *Engine) StopCountdown(student string) bool {
	retried := e.cancelRetry(student)

	var h domain.TimerHandle
	reg, ok := e.exam.Update(student, func(r *domain.Registration) {
		h = r.Timer
		r.Timer = 0
	})
	if !ok || h == 0 {
		if !retried {
			log.Printf("notify: no active countdown for %s", student)
		}
		return retried
	}
	e.scheduler.Cancel(h)
	metrics.ActiveCountdowns.Dec()
	log.Printf("notify: countdown stopped for %s", student)
	e.send(e.exam, reg, StopNotice)
	return true
}

// Active reports whether the student has an armed countdown.
func (e *Engine) Active(student string) bool {
	reg, ok := e.exam.Get(student)
	return ok && reg.Timer != 0
}

func (e *Engine) cancelRetry(student string) bool {
	e.mu.Lock()
	h, ok := e.retries[student]
	delete(e.retries, student)
	e.mu.Unlock()
	if ok {
		e.scheduler.Cancel(h)
	}
	return ok
}

func (e *Engine) takeRetry(student string, h domain.TimerHandle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.retries[student] != h {
		return false
	}
	delete(e.retries, student)
	e.scheduler.Cancel(h)
	return true
}

// RouteEvent delivers an ad-hoc quiz event: starts reach teachers only,
// scores reach the named student and teachers, anything else reaches
// everyone. It returns the number of datagrams sent.
func (e *Engine) RouteEvent(ev Event) int {
	note := Notification{Kind: KindNotification, Text: ev.Text}
	switch ev.Scope {
	case EventStarted:
		return e.deliver(e.exam, note, func(r domain.Registration) bool { return r.IsTeacher() })
	case EventScore:
		return e.deliver(e.exam, note, func(r domain.Registration) bool {
			return r.IsTeacher() || r.Name == ev.Student
		})
	}
	return e.deliver(e.exam, note, nil)
}

// Notify sends NOTIFICATION:<text> to every exam-side registration.
func (e *Engine) Notify(text string) int {
	return e.deliver(e.exam, Notification{Kind: KindNotification, Text: text}, nil)
}

// Announce sends ANNOUNCEMENT:<time> - <text> to every listener.
func (e *Engine) Announce(text string) int {
	return e.Broadcast(Notification{Kind: KindAnnouncement, Text: e.stamp() + " - " + text})
}

// Remind sends QUIZ_REMINDER:<time> - <text> to every listener.
func (e *Engine) Remind(text string) int {
	return e.Broadcast(Notification{Kind: KindQuizReminder, Text: e.stamp() + " - " + text})
}

// Broadcast delivers n to both registries and, when configured, the
// broadcast address. A client listed in both registries at the same address
// receives it once.
func (e *Engine) Broadcast(n Notification) int {
	seen := make(map[string]bool)
	sent := 0
	for _, reg := range []*Registry{e.exam, e.clients} {
		sent += e.deliver(reg, n, func(r domain.Registration) bool {
			if seen[r.Address()] {
				return false
			}
			seen[r.Address()] = true
			return true
		})
	}
	e.sendBroadcast(n, 0)
	return sent
}

// RunClock sends SYSTEM_TIME updates every interval until ctx is done.
// Each tick re-arms the next one on the engine's clock.
func (e *Engine) RunClock(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	var (
		mu   sync.Mutex
		next Timer
		tick func()
	)
	tick = func() {
		if ctx.Err() != nil {
			return
		}
		e.Broadcast(Notification{Kind: KindSystemTime, Text: "⏰ Time Update: " + e.stamp()})
		mu.Lock()
		if ctx.Err() == nil {
			next = e.clock.AfterFunc(interval, tick)
		}
		mu.Unlock()
	}

	mu.Lock()
	next = e.clock.AfterFunc(interval, tick)
	mu.Unlock()

	<-ctx.Done()
	mu.Lock()
	next.Stop()
	mu.Unlock()
}

// StartPoll opens a quick poll and sends it to every known host on the poll port.
func (e *Engine) StartPoll(question string, options []string) (domain.PollTally, error) {
	tally, err := e.polls.Start(question, options)
	if err != nil {
		return tally, err
	}
	ann, _ := e.polls.Announcement()
	hosts := make(map[string]net.IP)
	for _, reg := range append(e.exam.Snapshot(), e.clients.Snapshot()...) {
		hosts[reg.IP.String()] = reg.IP
	}
	for _, ip := range hosts {
		if err := e.sender.Send(&net.UDPAddr{IP: ip, Port: e.opts.PollPort}, ann.Encode()); err != nil {
			log.Printf("notify: poll to %s failed: %v", ip, err)
			continue
		}
		metrics.NotificationsSent.WithLabelValues(string(ann.Kind)).Inc()
	}
	e.sendBroadcast(ann, e.opts.PollPort)
	log.Printf("notify: poll %s sent to %d host(s)", tally.ID, len(hosts))
	return tally, nil
}

// Tally reports the current (or last closed) poll.
func (e *Engine) Tally() (domain.PollTally, error) {
	return e.polls.Tally()
}

// ClosePoll ends the active poll and returns its final tally.
func (e *Engine) ClosePoll() (domain.PollTally, error) {
	tally, err := e.polls.Close()
	if err == nil {
		log.Printf("notify: poll %s closed with %d response(s)", tally.ID, tally.Responses)
	}
	return tally, err
}

// Registrations returns the exam-side and ad-hoc registries.
func (e *Engine) Registrations() (exam, clients []domain.Registration) {
	return e.exam.Snapshot(), e.clients.Snapshot()
}

func (e *Engine) deliver(reg *Registry, n Notification, match func(domain.Registration) bool) int {
	sent := 0
	for _, r := range reg.Snapshot() {
		if match != nil && !match(r) {
			continue
		}
		if e.send(reg, r, n) {
			sent++
		}
	}
	return sent
}

// send is fire-and-forget; a failure is taken as the client having left.
func (e *Engine) send(reg *Registry, r domain.Registration, n Notification) bool {
	if err := e.sender.Send(r.UDPAddr(), n.Encode()); err != nil {
		log.Printf("notify: send to %s (%s) failed, dropping registration: %v", r.Name, r.Address(), err)
		metrics.NotificationFailures.Inc()
		if removed, ok := reg.Remove(r.Name, r.Address()); ok && removed.Timer != 0 {
			if e.scheduler.Cancel(removed.Timer) {
				metrics.ActiveCountdowns.Dec()
			}
		}
		return false
	}
	metrics.NotificationsSent.WithLabelValues(string(n.Kind)).Inc()
	return true
}

func (e *Engine) sendBroadcast(n Notification, port int) {
	if e.opts.BroadcastAddr == nil {
		return
	}
	addr := *e.opts.BroadcastAddr
	if port != 0 {
		addr.Port = port
	}
	if err := e.sender.Send(&addr, n.Encode()); err != nil {
		log.Printf("notify: broadcast to %s failed: %v", addr.String(), err)
	}
}

func (e *Engine) stamp() string {
	return e.clock.Now().Format("15:04:05")
}
