package exam

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"time"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/metrics"
	"classroom-quiz-service/internal/notify"
	"classroom-quiz-service/internal/wire"
)

const (
	msgInvalidRequest     = "Invalid initial request."
	msgInvalidCredentials = "Invalid credentials"
	msgQuizUnavailable    = "Quiz unavailable"
)

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	var cred domain.Credential
	if err := wire.Expect(conn, wire.TypeCredential, &cred); err != nil {
		log.Printf("exam %s: bad initial request: %v", remote, err)
		reject(conn, msgInvalidRequest)
		return
	}

	role, err := s.service.Authenticate(cred)
	if err != nil {
		log.Printf("exam %s: login rejected for %q", remote, cred.Username)
		reject(conn, msgInvalidCredentials)
		return
	}

	if role == domain.RoleTeacher {
		s.observe(ctx, conn, cred.Username)
		return
	}
	s.examine(ctx, conn, cred.Username)
}

func reject(conn net.Conn, message string) {
	metrics.ExamSessions.WithLabelValues("rejected").Inc()
	if err := wire.Send(conn, wire.TypeLoginResult, wire.LoginResult{Success: false, Message: message}); err != nil {
		log.Printf("exam %s: send rejection: %v", conn.RemoteAddr(), err)
	}
}

// observe holds a teacher connection open, pushing the full result list on
// subscribe and after every append, until the teacher disconnects.
func (s *Server) observe(ctx context.Context, conn net.Conn, teacher string) {
	updates, cancel := s.service.Board().Subscribe()
	defer cancel()

	if err := wire.Send(conn, wire.TypeLoginResult, wire.LoginResult{Success: true, Message: "Teacher login successful"}); err != nil {
		return
	}
	metrics.ExamSessions.WithLabelValues("observer").Inc()
	log.Printf("exam: teacher %s watching results from %s", teacher, conn.RemoteAddr())

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(s.opts.Liveness)
	}

	// Teachers send nothing after login; a read returning is the disconnect.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_, _ = io.Copy(io.Discard, conn)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			log.Printf("exam: teacher %s disconnected", teacher)
			return
		case records := <-updates:
			if err := wire.Send(conn, wire.TypeResults, wire.Results{Records: records}); err != nil {
				log.Printf("exam: dropping teacher %s: %v", teacher, err)
				return
			}
		}
	}
}

// examine runs one student's exam lifecycle.
func (s *Server) examine(ctx context.Context, conn net.Conn, student string) {
	session, err := s.service.StartSession(ctx, student)
	if err != nil {
		log.Printf("exam: cannot start session for %s: %v", student, err)
		metrics.ExamSessions.WithLabelValues("failed").Inc()
		_ = wire.Send(conn, wire.TypeLoginResult, wire.LoginResult{Success: false, Message: msgQuizUnavailable})
		return
	}
	defer func() {
		if err := s.service.EndSession(context.Background(), student); err != nil {
			log.Printf("exam: clear session for %s: %v", student, err)
		}
	}()

	if err := wire.Send(conn, wire.TypeLoginResult, wire.LoginResult{Success: true, Message: "Login successful"}); err != nil {
		return
	}
	if err := wire.Send(conn, wire.TypeQuestions, wire.NewQuestions(session.Questions)); err != nil {
		return
	}
	duration := s.service.Duration()
	if err := wire.Send(conn, wire.TypeSessionStart, wire.SessionStart{DurationSeconds: int(duration / time.Second)}); err != nil {
		return
	}
	s.notifyControl(notify.StartTimer{Student: student})
	s.notifyControl(notify.StudentStarted(student))
	log.Printf("exam: %s started (%d questions)", student, len(session.Questions))

	_ = conn.SetReadDeadline(time.Now().Add(duration + s.opts.AnswerGrace))
	var answers wire.Answers
	if err := wire.Expect(conn, wire.TypeAnswers, &answers); err != nil {
		outcome := "aborted"
		if errors.Is(err, domain.ErrUnexpectedMessage) {
			outcome = "protocol_error"
		}
		metrics.ExamSessions.WithLabelValues(outcome).Inc()
		log.Printf("exam: %s aborted before submitting: %v", student, err)
		s.notifyControl(notify.StopTimer{Student: student})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	record := s.service.Complete(session, answers.Answers)
	metrics.ExamSessions.WithLabelValues("completed").Inc()
	log.Printf("exam: %s scored %d/%d", student, record.Score, record.Total)

	if err := wire.Send(conn, wire.TypeScore, wire.Score{Score: record.Score, Total: record.Total}); err != nil {
		log.Printf("exam: send score to %s: %v", student, err)
	}
	s.notifyControl(notify.StopTimer{Student: student})
	s.notifyControl(notify.StudentScored(student, record.Score, record.Total))
}
