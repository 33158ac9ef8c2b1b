package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

func TestWebSocketGameFlow(t *testing.T) {
	server, _ := newTestServer(t)

	hostConn := dial(t, server)
	send(t, hostConn, "create-session", map[string]any{})
	_, created := readUntil(t, hostConn, app.EventSessionCreated)
	pin, _ := created["pin"].(string)
	if len(pin) != domain.PinLength {
		t.Fatalf("expected a 6-digit pin, got %v", created)
	}
	if created["totalQuestions"] != float64(5) {
		t.Fatalf("expected 5 questions, got %v", created["totalQuestions"])
	}

	player := dial(t, server)
	send(t, player, "join", map[string]any{"pin": pin, "nickname": "Alice"})
	_, joined := readUntil(t, player, app.EventJoinResult)
	if joined["success"] != true || joined["nickname"] != "Alice" {
		t.Fatalf("unexpected join result %v", joined)
	}
	_, roster := readUntil(t, hostConn, app.EventRosterUpdate)
	if roster["count"] != float64(1) {
		t.Fatalf("unexpected roster %v", roster)
	}

	send(t, player, "start", map[string]any{"pin": pin, "answerTimeLimit": 20})
	_, denied := readUntil(t, player, app.EventError)
	if denied["reason"] != "unauthorized" {
		t.Fatalf("expected unauthorized, got %v", denied)
	}

	send(t, hostConn, "start", map[string]any{"pin": pin, "answerTimeLimit": 20})
	_, shown := readUntil(t, hostConn, app.EventQuestionShown)
	if shown["question"] != "What is the capital of France?" || shown["timeLimit"] != float64(20) {
		t.Fatalf("unexpected question %v", shown)
	}
	_, begin := readUntil(t, player, app.EventBeginAnswering)
	if begin["questionNumber"] != float64(1) {
		t.Fatalf("unexpected begin-answering %v", begin)
	}

	send(t, player, "submit-answer", map[string]any{"pin": pin, "optionIndex": 1.5})
	send(t, player, "submit-answer", map[string]any{"pin": pin, "optionIndex": 2})
	_, confirmed := readUntil(t, player, app.EventAnswerConfirmed)
	if confirmed["questionNumber"] != float64(1) {
		t.Fatalf("unexpected confirmation %v", confirmed)
	}
	_, revealed := readUntil(t, hostConn, app.EventAnswerRevealed)
	if revealed["correctOptionText"] != "Paris" {
		t.Fatalf("unexpected reveal %v", revealed)
	}

	send(t, hostConn, "request-results", map[string]any{"pin": pin})
	_, results := readUntil(t, player, app.EventQuestionResults)
	board, _ := results["leaderboard"].([]any)
	if len(board) != 1 {
		t.Fatalf("unexpected leaderboard %v", results)
	}
	if first := board[0].(map[string]any); first["nickname"] != "Alice" || first["score"].(float64) < 1900 {
		t.Fatalf("unexpected leader %v", first)
	}

	send(t, hostConn, "end-session", map[string]any{"pin": pin})
	readUntil(t, player, app.EventGameEnded)

	_ = hostConn.Close()
}

func TestWebSocketErrors(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server)

	send(t, conn, "join", map[string]any{"pin": "999999", "nickname": "Bob"})
	_, joined := readUntil(t, conn, app.EventJoinResult)
	if joined["success"] != false || joined["reason"] != "not_found" {
		t.Fatalf("unexpected join result %v", joined)
	}

	send(t, conn, "join", map[string]any{"pin": "12"})
	_, joined = readUntil(t, conn, app.EventJoinResult)
	if joined["reason"] != "invalid_pin" {
		t.Fatalf("expected invalid pin, got %v", joined)
	}

	send(t, conn, "create-session", map[string]any{"questions": []any{}})
	_, failed := readUntil(t, conn, app.EventError)
	if failed["reason"] != "invalid_question_set" {
		t.Fatalf("expected invalid question set, got %v", failed)
	}

	send(t, conn, "create-session", map[string]any{"quizId": "missing"})
	_, failed = readUntil(t, conn, app.EventError)
	if failed["reason"] != "provider_failure" {
		t.Fatalf("expected provider failure, got %v", failed)
	}

	send(t, conn, "dance", map[string]any{})
	_, failed = readUntil(t, conn, app.EventError)
	if failed["message"] != "unsupported message type" {
		t.Fatalf("unexpected error %v", failed)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"start","payload":"oops"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, failed = readUntil(t, conn, app.EventError)
	if failed["reason"] != "validation" {
		t.Fatalf("expected validation error, got %v", failed)
	}
}

func TestHostDisconnectNotifiesPlayers(t *testing.T) {
	server, svc := newTestServer(t)

	hostConn := dial(t, server)
	send(t, hostConn, "create-session", map[string]any{})
	_, created := readUntil(t, hostConn, app.EventSessionCreated)
	pin := created["pin"].(string)

	player := dial(t, server)
	send(t, player, "join", map[string]any{"pin": pin, "nickname": "Alice"})
	readUntil(t, player, app.EventJoinResult)

	_ = hostConn.Close()
	readUntil(t, player, app.EventHostDisconnected)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := svc.Snapshot(context.Background(), pin); err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session survived host disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSessionReadAPI(t *testing.T) {
	server, svc := newTestServer(t)
	pin, err := svc.CreateSession(context.Background(), "host-x", app.QuestionSource{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resp := get(t, server.URL+"/api/sessions/"+pin)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var snap app.SessionSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if snap.PIN != pin || snap.State != app.StateLobby || snap.TotalQuestions != 5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if resp := get(t, server.URL+"/api/sessions/999999"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp := get(t, server.URL+"/api/sessions/abc"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	qr := get(t, server.URL+"/api/sessions/"+pin+"/qr")
	defer qr.Body.Close()
	if qr.StatusCode != http.StatusOK || qr.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected qr response %d %s", qr.StatusCode, qr.Header.Get("Content-Type"))
	}
	body, _ := io.ReadAll(qr.Body)
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Fatalf("expected png body")
	}

	health := get(t, server.URL+"/healthz")
	if health.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy, got %d", health.StatusCode)
	}
}

func TestJoinURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/sessions/123456/qr", nil)
	r.Host = "quiz.local:8080"
	if got := joinURL(r, "", "123456"); got != "http://quiz.local:8080/play?pin=123456" {
		t.Fatalf("unexpected url %s", got)
	}
	r.Header.Set("X-Forwarded-Proto", "https")
	if got := joinURL(r, "", "123456"); got != "https://quiz.local:8080/play?pin=123456" {
		t.Fatalf("unexpected forwarded url %s", got)
	}
	if got := joinURL(r, "https://play.example.com/", "123456"); got != "https://play.example.com/play?pin=123456" {
		t.Fatalf("unexpected public url %s", got)
	}
}

func TestOptionIndex(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	cases := []struct {
		in   *float64
		want int
	}{
		{nil, -1},
		{f(2), 2},
		{f(0), 0},
		{f(1.5), -1},
		{f(-3), -3},
		{f(1e12), -1},
	}
	for _, tc := range cases {
		if got := optionIndex(tc.in); got != tc.want {
			t.Fatalf("optionIndex(%v): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.GameService) {
	t.Helper()
	hub := NewHub(0)
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		memory.FallbackQuizID: memory.FallbackQuiz(),
	}), time.Minute)
	svc := app.NewGameService(memory.NewSessionStore(), quizRepo, hub, app.Options{
		Fallback: memory.FallbackQuestions(),
	})
	server := httptest.NewServer(NewRouter(NewWSHandler(svc, hub), svc, RouterOptions{}))
	t.Cleanup(func() {
		server.Close()
		svc.Close()
	})
	return server, svc
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips messages until one of type expect arrives.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", expect, err)
		}
		if msg.Type == expect {
			return msg.Type, msg.Payload
		}
	}
	t.Fatalf("no %s message within 20 reads", expect)
	return "", nil
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
