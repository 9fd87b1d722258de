package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/infra/memory"
	"pubquiz-service/internal/quizspec"
)

type wsMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	store := memory.NewSessionStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]string{
		quizspec.ExampleID: quizspec.ExampleDocument,
	}), quizspec.Validator{}, time.Minute)
	service := app.NewQuizService(store, quizRepo, app.WithLogger(logger))

	server := httptest.NewServer(NewAPI(service, quizspec.Validator{}, logger).Routes())
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, what string, match func(wsMessage) bool) wsMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg wsMessage
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read while waiting for %s: %v", what, err)
		}
		if match(msg) {
			return msg
		}
	}
	t.Fatalf("never received %s", what)
	return wsMessage{}
}

func isState(pred func(map[string]any) bool) func(wsMessage) bool {
	return func(m wsMessage) bool { return m.Type == "state" && pred(m.Payload) }
}

func TestWebSocketHostAndPlayerFlow(t *testing.T) {
	server := newTestServer(t)

	hostConn := dial(t, server, "room=rome&role=host")
	readUntil(t, hostConn, "initial state", isState(func(p map[string]any) bool {
		return p["room"] == "ROME" && p["phase"] == "idle"
	}))

	send(t, hostConn, "load_quiz", map[string]any{"quizId": quizspec.ExampleID})
	readUntil(t, hostConn, "loaded quiz", isState(func(p map[string]any) bool {
		return p["quizSpec"] != nil && p["questionCount"] == float64(3)
	}))

	send(t, hostConn, "add_team", map[string]any{"name": "Gauls", "color": "#0a0"})
	teamState := readUntil(t, hostConn, "team added", isState(func(p map[string]any) bool {
		teams, _ := p["teams"].([]any)
		return len(teams) == 1
	}))
	team := teamState.Payload["teams"].([]any)[0].(map[string]any)["id"].(string)

	playerConn := dial(t, server, "room=ROME&teamId="+team)
	readUntil(t, playerConn, "player initial state", isState(func(p map[string]any) bool { return true }))

	send(t, playerConn, "buzz", nil)
	readUntil(t, playerConn, "rejected buzz", func(m wsMessage) bool {
		return m.Type == "rejected" && m.Payload["command"] == "buzz"
	})

	send(t, hostConn, "start", nil)
	readUntil(t, playerConn, "showing", isState(func(p map[string]any) bool { return p["phase"] == "showing" }))

	send(t, playerConn, "buzz", map[string]any{"teamId": "someone-else"})
	readUntil(t, hostConn, "buzz", isState(func(p map[string]any) bool { return p["buzzedBy"] == team }))

	send(t, playerConn, "lock", map[string]any{"answer": 2})
	readUntil(t, hostConn, "lock", isState(func(p map[string]any) bool {
		locks, _ := p["lockedAnswers"].(map[string]any)
		return locks[team] == float64(2)
	}))

	send(t, playerConn, "advance", nil)
	readUntil(t, playerConn, "forbidden", func(m wsMessage) bool {
		return m.Type == "error" && m.Payload["command"] == "advance"
	})

	send(t, hostConn, "teleport", nil)
	readUntil(t, hostConn, "unknown command", func(m wsMessage) bool {
		return m.Type == "error" && strings.Contains(m.Payload["message"].(string), "unknown command")
	})

	send(t, hostConn, "load_document", map[string]any{"document": "title: 7\n"})
	diag := readUntil(t, hostConn, "diagnostics", func(m wsMessage) bool { return m.Type == "diagnostics" })
	if errs, _ := diag.Payload["errors"].([]any); len(errs) != 2 {
		t.Fatalf("expected 2 diagnostics, got %v", diag.Payload["errors"])
	}
}

func TestWebSocketRejectsBadQuery(t *testing.T) {
	server := newTestServer(t)
	for _, query := range []string{"", "room=ROME&role=admin"} {
		u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
		_, resp, err := websocket.DefaultDialer.Dial(u, nil)
		if err == nil {
			t.Fatalf("expected dial failure for %q", query)
		}
		if resp == nil || resp.StatusCode != 400 {
			t.Fatalf("expected 400 for %q, got %v", query, resp)
		}
	}
}

func payloadJSON(t *testing.T, m wsMessage) string {
	t.Helper()
	raw, err := json.Marshal(m.Payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(raw)
}

func TestWebSocketPlayerSeesNoAnswersBeforeReveal(t *testing.T) {
	server := newTestServer(t)

	hostConn := dial(t, server, "room=PARI&role=host")
	send(t, hostConn, "load_quiz", map[string]any{"quizId": quizspec.ExampleID})
	send(t, hostConn, "add_team", map[string]any{"name": "Gauls"})
	send(t, hostConn, "add_team", map[string]any{"name": "Britons"})
	teamsState := readUntil(t, hostConn, "two teams", isState(func(p map[string]any) bool {
		teams, _ := p["teams"].([]any)
		return len(teams) == 2
	}))
	teams := teamsState.Payload["teams"].([]any)
	gauls := teams[0].(map[string]any)["id"].(string)
	britons := teams[1].(map[string]any)["id"].(string)

	gaulConn := dial(t, server, "room=PARI&teamId="+gauls)
	britonConn := dial(t, server, "room=PARI&teamId="+britons)
	readUntil(t, gaulConn, "gaul initial state", isState(func(p map[string]any) bool { return true }))
	readUntil(t, britonConn, "briton initial state", isState(func(p map[string]any) bool { return true }))

	send(t, hostConn, "start", nil)
	readUntil(t, hostConn, "host showing", isState(func(p map[string]any) bool { return p["phase"] == "showing" }))
	send(t, britonConn, "lock", map[string]any{"answer": 1})
	readUntil(t, hostConn, "briton lock", isState(func(p map[string]any) bool {
		locks, _ := p["lockedAnswers"].(map[string]any)
		return locks[britons] == float64(1)
	}))
	send(t, gaulConn, "lock", map[string]any{"answer": 0})

	showing := readUntil(t, gaulConn, "own lock while showing", isState(func(p map[string]any) bool {
		locks, _ := p["lockedAnswers"].(map[string]any)
		return p["phase"] == "showing" && locks[gauls] == float64(0)
	}))
	body := payloadJSON(t, showing)
	if strings.Contains(body, "correctAnswer") || strings.Contains(body, "explanation") {
		t.Fatalf("player state leaks answers while showing: %s", body)
	}
	if locks := showing.Payload["lockedAnswers"].(map[string]any); len(locks) != 1 {
		t.Fatalf("expected only the team's own lock, got %v", locks)
	}

	send(t, hostConn, "reveal", nil)
	revealed := readUntil(t, gaulConn, "revealed", isState(func(p map[string]any) bool { return p["phase"] == "revealed" }))
	question, _ := revealed.Payload["question"].(map[string]any)
	if question["correctAnswer"] != float64(0) {
		t.Fatalf("expected the current answer after reveal, got %v", question)
	}
	if spec, _ := json.Marshal(revealed.Payload["quizSpec"]); strings.Contains(string(spec), "correctAnswer") {
		t.Fatalf("quiz answers leaked after reveal: %s", spec)
	}
}
