package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/memory"
	"classroom-quiz-service/internal/notify"
	"classroom-quiz-service/internal/transport/chat"
	"classroom-quiz-service/internal/wire"
	"github.com/gorilla/websocket"
)

type countingSender struct {
	mu    sync.Mutex
	count int
}

func (s *countingSender) Send(_ *net.UDPAddr, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

type fixture struct {
	server *httptest.Server
	exams  *app.ExamService
	engine *notify.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	quiz := domain.Quiz{ID: "quiz-1", Questions: []domain.Question{{Text: "2+2?", Options: []string{"3", "4"}, Correct: 1}}}
	repo := memory.NewQuestionRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": quiz}), time.Minute)
	exams := app.NewExamService(app.Policy{
		QuizID:          "quiz-1",
		Duration:        time.Minute,
		TeacherUsername: "admin",
		TeacherPassword: "123",
		StudentPassword: "student",
	}, repo, memory.NewSessionTracker(), app.NewResultBoard())

	mux := chat.New(16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mux.Run(ctx)
		close(done)
	}()

	engine := notify.NewEngine(notify.Options{ClientPort: 5003, PollPort: 5006}, &countingSender{}, notify.SystemClock())
	server := httptest.NewServer(NewMux(NewAdminHandler(exams, engine), NewWSHandler(exams, mux)))
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return &fixture{server: server, exams: exams, engine: engine}
}

func (f *fixture) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + path
}

func TestResultsFeed(t *testing.T) {
	f := newFixture(t)
	f.exams.Board().Append(domain.ResultRecord{Student: "ada", Score: 1, Total: 1})

	_, resp, err := websocket.DefaultDialer.Dial(f.wsURL("/ws/results?username=admin&password=wrong"), nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got err=%v resp=%v", err, resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL("/ws/results?username=admin&password=123"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readResults(t, conn)
	if len(first) != 1 || first[0].Student != "ada" {
		t.Fatalf("expected initial list with ada, got %+v", first)
	}

	f.exams.Board().Append(domain.ResultRecord{Student: "bo", Score: 0, Total: 1})
	second := readResults(t, conn)
	if len(second) != 2 || second[1].Student != "bo" {
		t.Fatalf("expected appended list, got %+v", second)
	}
}

func readResults(t *testing.T, conn *websocket.Conn) []domain.ResultRecord {
	t.Helper()
	var msg struct {
		Type    string                `json:"type"`
		Payload []domain.ResultRecord `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "results" {
		t.Fatalf("expected results, got %s", msg.Type)
	}
	return msg.Payload
}

func TestWebSocketChat(t *testing.T) {
	f := newFixture(t)

	alice := dialChat(t, f, "alice")
	bob := dialChat(t, f, "bob")

	if got := readChat(t, alice); got.Content != "bob joined the chat" {
		t.Fatalf("alice expected bob's join, got %+v", got)
	}
	if got := readChat(t, bob); got.Content != "alice joined the chat" {
		t.Fatalf("bob expected the replay, got %+v", got)
	}

	body, _ := json.Marshal(domain.ChatMessage{Sender: "bob", Content: "hi", Kind: domain.ChatUser})
	sendFrame(t, bob, body)
	if got := readChat(t, alice); got.Sender != "bob" || got.Content != "hi" {
		t.Fatalf("unexpected message %+v", got)
	}
}

func dialChat(t *testing.T, f *fixture, name string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL("/ws/chat"), nil)
	if err != nil {
		t.Fatalf("dial chat: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	sendFrame(t, conn, []byte(name))
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, payload []byte) {
	t.Helper()
	frame, err := wire.EncodeFrame(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readChat(t *testing.T, conn *websocket.Conn) domain.ChatMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	frames, _, err := wire.SplitFrames(data)
	if err != nil || len(frames) != 1 {
		t.Fatalf("expected one frame, got %d (%v)", len(frames), err)
	}
	var msg domain.ChatMessage
	if err := json.Unmarshal(frames[0], &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestAdminAPI(t *testing.T) {
	f := newFixture(t)
	f.exams.Board().Append(domain.ResultRecord{Student: "ada", Score: 7, Total: 10})
	f.engine.Register("ada", net.ParseIP("127.0.0.1"), 6001, domain.RoleStudent)

	resp, err := http.Get(f.server.URL + "/api/results")
	if err != nil {
		t.Fatalf("get results: %v", err)
	}
	var records []domain.ResultRecord
	_ = json.NewDecoder(resp.Body).Decode(&records)
	resp.Body.Close()
	if len(records) != 1 || records[0].Score != 7 {
		t.Fatalf("unexpected results %+v", records)
	}

	resp = post(t, f.server.URL+"/api/notifications", `{"kind":"announce","text":"exam at noon"}`)
	var sent map[string]int
	_ = json.NewDecoder(resp.Body).Decode(&sent)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted || sent["sent"] != 1 {
		t.Fatalf("expected one announcement, got %d %+v", resp.StatusCode, sent)
	}
	if resp := post(t, f.server.URL+"/api/notifications", `{"kind":"shout","text":"x"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", resp.StatusCode)
	}

	if resp := post(t, f.server.URL+"/api/polls", `{"question":"Go?","options":["yes","no"]}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if resp := post(t, f.server.URL+"/api/polls", `{"question":"Again?","options":["yes","no"]}`); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while a poll is active, got %d", resp.StatusCode)
	}
	if resp := post(t, f.server.URL+"/api/polls/current/close", ``); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on close, got %d", resp.StatusCode)
	}
	if resp := post(t, f.server.URL+"/api/polls/current/close", ``); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 closing twice, got %d", resp.StatusCode)
	}

	resp = post(t, f.server.URL+"/api/quiz/reload", ``)
	var reloaded map[string]int
	_ = json.NewDecoder(resp.Body).Decode(&reloaded)
	if resp.StatusCode != http.StatusOK || reloaded["questions"] != 1 {
		t.Fatalf("expected reload of 1 question, got %d %+v", resp.StatusCode, reloaded)
	}

	resp, err = http.Get(f.server.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
