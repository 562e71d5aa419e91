package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 5*time.Second, log.New())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative/only"} {
		if _, err := New(raw, time.Second, log.New()); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestReplayUnwrapsEnvelope(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/event-sourcing/e1/replay" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Write([]byte(`{"success":true,"data":{"entityId":"e1","currentState":{"name":"x"},"eventHistory":[{"eventName":"UserCreated","createdAt":"2026-03-01T10:00:00Z"}],"totalEvents":1},"timestamp":"2026-03-01T10:00:01Z"}`))
	}))

	got, err := c.Replay(context.Background(), "tok", "e1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if got.EntityID != "e1" || got.TotalEvents != 1 || len(got.EventHistory) != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.EventHistory[0].EventName != "UserCreated" {
		t.Fatalf("unexpected event: %+v", got.EventHistory[0])
	}
}

func TestBarePayloadFallback(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"u1","name":"Ada","email":"ada@example.com"}]`))
	}))

	users, err := c.Users(context.Background(), "tok")
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u1" {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestEnvelopeFailureBecomesServerError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"entity not found"}`))
	}))

	_, err := c.Timeline(context.Background(), "tok", "e1")
	if KindOf(err) != KindServer {
		t.Fatalf("expected server kind, got %v", err)
	}
	var ue *Error
	if !errors.As(err, &ue) || ue.Message != "entity not found" {
		t.Fatalf("expected upstream message, got %v", err)
	}
}

func TestUnauthorizedBecomesAuthError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.Statistics(context.Background(), "tok", "e1")
	if !IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestServerStatusPassesThrough(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no such entity"}`))
	}))

	_, err := c.Replay(context.Background(), "tok", "missing")
	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ue.Kind != KindServer || ue.Status != http.StatusNotFound || ue.Message != "no such entity" {
		t.Fatalf("unexpected error: %+v", ue)
	}
}

func TestConnectionFailureBecomesNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(srv.URL, time.Second, log.New())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	srv.Close()

	_, err = c.Timeline(context.Background(), "tok", "e1")
	if !IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestMalformedBodyBecomesDecodeError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<!doctype html><html>gateway</html>`))
	}))

	_, err := c.Statistics(context.Background(), "tok", "e1")
	if KindOf(err) != KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestEnvelopeWithoutDataIsDecodeError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"timestamp":"2026-03-01T10:00:00Z"}`))
	}))

	_, err := c.Replay(context.Background(), "tok", "e1")
	if KindOf(err) != KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestStateAtSendsTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("timestamp"); got != ts.Format(time.RFC3339) {
			t.Errorf("unexpected timestamp param %q", got)
		}
		w.Write([]byte(`{"success":true,"data":{"entityId":"e1","timestamp":"2026-03-01T12:00:00Z","state":{},"eventsApplied":4}}`))
	}))

	got, err := c.StateAt(context.Background(), "tok", "e1", ts)
	if err != nil {
		t.Fatalf("state-at: %v", err)
	}
	if got.EventsApplied != 4 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestUnreadCount(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notifications/unread-count" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"count":7}}`))
	}))

	count, err := c.UnreadCount(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected 7, got %d", count)
	}
}

func TestMarkNotificationReadUsesPost(t *testing.T) {
	var gotMethod, gotPath string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.Write([]byte(`{"success":true,"data":{}}`))
	}))

	if err := c.MarkNotificationRead(context.Background(), "tok", "n1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/notifications/n1/read" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestHealthDefaultsStatusAndStampsTime(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("health check must not carry a token")
		}
		w.Write([]byte(`{"version":"1.4.2"}`))
	}))

	got, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if got.Status != "ok" || got.Version != "1.4.2" {
		t.Fatalf("unexpected health: %+v", got)
	}
	if got.CheckedAt.IsZero() {
		t.Fatal("expected CheckedAt to be stamped")
	}
}

func TestTotalEventsAcrossEntitiesSums(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users":
			w.Write([]byte(`[{"id":"a"},{"id":"b"},{"id":"c"}]`))
		case "/api/event-sourcing/a/statistics":
			w.Write([]byte(`{"success":true,"data":{"totalEvents":2,"eventsByType":{}}}`))
		case "/api/event-sourcing/b/statistics":
			w.Write([]byte(`{"success":true,"data":{"totalEvents":5,"eventsByType":{}}}`))
		case "/api/event-sourcing/c/statistics":
			w.Write([]byte(`{"success":true,"data":{"totalEvents":1,"eventsByType":{}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	got, err := c.TotalEventsAcrossEntities(context.Background(), "tok")
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if got.TotalEntities != 3 || got.TotalEvents != 8 {
		t.Fatalf("unexpected overview: %+v", got)
	}
}

func TestTotalEventsAcrossEntitiesPropagatesFailure(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users" {
			w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
			return
		}
		if r.URL.Path == "/api/event-sourcing/b/statistics" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"success":true,"data":{"totalEvents":2,"eventsByType":{}}}`))
	}))

	_, err := c.TotalEventsAcrossEntities(context.Background(), "tok")
	if KindOf(err) != KindServer {
		t.Fatalf("expected server error, got %v", err)
	}
}

func TestServerMessageFallbacks(t *testing.T) {
	if got := serverMessage([]byte(`{"message":"rate limited"}`)); got != "rate limited" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := serverMessage([]byte("  plain text  ")); got != "plain text" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := serverMessage(nil); got != "request failed" {
		t.Fatalf("unexpected message %q", got)
	}
}
