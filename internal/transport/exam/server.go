// Package exam serves the length-framed TCP exam protocol: one connection
// carries exactly one exam lifecycle, for a student or a result-watching
// teacher.
package exam

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/notify"
)

// ControlSender delivers commands to the notification engine.
type ControlSender interface {
	Send(cmd notify.Command) error
}

// Options tune connection handling.
type Options struct {
	// AnswerGrace is added to the exam duration to form the answer read deadline.
	AnswerGrace time.Duration
	// Liveness is the keep-alive probe period of teacher connections.
	Liveness time.Duration
}

type Server struct {
	service *app.ExamService
	control ControlSender
	opts    Options
	wg      sync.WaitGroup
}

func NewServer(service *app.ExamService, control ControlSender, opts Options) *Server {
	if opts.AnswerGrace <= 0 {
		opts.AnswerGrace = 30 * time.Second
	}
	if opts.Liveness <= 0 {
		opts.Liveness = 5 * time.Second
	}
	return &Server{service: service, control: control, opts: opts}
}

// Serve accepts connections until ctx is cancelled, then closes the listener
// and every open connection and waits for their handlers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer s.wg.Wait()

	log.Printf("exam server listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("exam accept failed: %v", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			done := make(chan struct{})
			defer close(done)
			go func() {
				select {
				case <-ctx.Done():
					conn.Close()
				case <-done:
				}
			}()
			s.handle(ctx, conn)
		}()
	}
}

// notifyControl is best-effort; the exam never waits on the timer engine.
func (s *Server) notifyControl(cmd notify.Command) {
	if s.control == nil {
		return
	}
	if err := s.control.Send(cmd); err != nil {
		log.Printf("control send %q failed: %v", cmd.Encode(), err)
	}
}
