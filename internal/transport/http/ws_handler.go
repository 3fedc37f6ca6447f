package http

import (
	"io"
	"log"
	"net/http"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// ChatAttacher takes ownership of a chat participant's byte stream.
type ChatAttacher interface {
	Attach(conn io.ReadWriteCloser, remote string) error
}

type WSHandler struct {
	exams    *app.ExamService
	chat     ChatAttacher
	upgrader websocket.Upgrader
}

func NewWSHandler(exams *app.ExamService, chat ChatAttacher) *WSHandler {
	return &WSHandler{
		exams: exams,
		chat:  chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeResults is the browser equivalent of a teacher exam connection: after
// the teacher credential check it pushes the full result list on connect and
// after every append.
func (h *WSHandler) ServeResults(w http.ResponseWriter, r *http.Request) {
	cred := domain.Credential{
		Username: r.URL.Query().Get("username"),
		Password: r.URL.Query().Get("password"),
		Role:     string(domain.RoleTeacher),
	}
	if _, err := h.exams.Authenticate(cred); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.exams.Board().Subscribe()
	defer cancel()

	// The observer never sends; the read loop only notices the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case records := <-updates:
			if err := conn.WriteJSON(outboundMessage[[]domain.ResultRecord]{Type: "results", Payload: records}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}
}

// ServeChat attaches a WebSocket as a chat participant. Binary messages carry
// the same length-prefixed frames as the TCP chat port.
func (h *WSHandler) ServeChat(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	if err := h.chat.Attach(&wsStream{conn: conn}, "ws:"+r.RemoteAddr); err != nil {
		log.Printf("ws chat attach failed: %v", err)
		conn.Close()
	}
}

// wsStream presents a WebSocket as a byte stream. Message boundaries are not
// significant; frames may span or share messages.
type wsStream struct {
	conn *websocket.Conn
	cur  io.Reader
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.cur == nil {
			typ, r, err := s.conn.NextReader()
			if err != nil {
				return 0, err
			}
			if typ != websocket.BinaryMessage {
				continue
			}
			s.cur = r
		}
		n, err := s.cur.Read(p)
		if err == io.EOF {
			s.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}
