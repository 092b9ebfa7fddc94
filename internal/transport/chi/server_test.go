package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/domain"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/domain/task"
	"github.com/kailas-cloud/portalsearch/internal/events"
	"github.com/kailas-cloud/portalsearch/internal/i18n"
	healthuc "github.com/kailas-cloud/portalsearch/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/portalsearch/internal/usecase/session"
)

type staticProvider struct {
	hits []hit.Hit
}

func (p *staticProvider) Name() string       { return "tree" }
func (p *staticProvider) Tasks() []task.Task { return []task.Task{task.Tree} }
func (p *staticProvider) MinChars() int      { return 3 }

func (p *staticProvider) Search(_ context.Context, _ string, sink domain.Sink) error {
	sink.Push(hit.Relevance, p.hits...)
	sink.Done(task.Tree)
	return nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return context.DeadlineExceeded }

type fixture struct {
	ts       *httptest.Server
	sessions *sessionuc.Service
}

func newFixture(t *testing.T, providers []domain.Provider, health *healthuc.Service) *fixture {
	t.Helper()
	labels, err := i18n.New(nil, "de")
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	hub := events.NewHub(16)
	sessions := sessionuc.New(providers, sessionuc.Options{
		Settings: sessionuc.Settings{
			Preferred:   []hit.Type{hit.Known(hit.KindAddress), hit.Known(hit.KindTopic)},
			Recommended: 3,
		},
		Events: events.NewBridge(hub, nil),
	})
	if health == nil {
		health = healthuc.New()
	}
	r := chi.NewRouter()
	NewServer(sessions, hub, health, labels, nil, zap.NewNop()).Routes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		ts.Close()
		_ = sessions.Shutdown(context.Background())
	})
	return &fixture{ts: ts, sessions: sessions}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func (f *fixture) open(t *testing.T, query string) SessionResource {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/sessions", CreateSessionRequest{Query: query})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d", resp.StatusCode)
	}
	return decodeBody[SessionResource](t, resp)
}

func TestCreateSession_InitialSearch(t *testing.T) {
	f := newFixture(t, []domain.Provider{&staticProvider{hits: []hit.Hit{
		{ID: "t1", Name: "Parks", Type: hit.Known(hit.KindTopic)},
	}}}, nil)

	s := f.open(t, "park")
	if s.ID == "" {
		t.Fatal("missing id")
	}
	if _, err := f.sessions.Await(context.Background(), s.ID); err != nil {
		t.Fatalf("Await: %v", err)
	}

	resp := f.do(t, http.MethodGet, "/sessions/"+s.ID, nil, "Accept-Language", "en-GB,en;q=0.9")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	got := decodeBody[SessionResource](t, resp)
	if got.Initial != "finished" || got.Query != "park" {
		t.Errorf("unexpected session %+v", got)
	}
	if len(got.Recommended) != 1 || got.Recommended[0].Label != "Topic" {
		t.Errorf("recommended = %+v", got.Recommended)
	}
}

func TestCreateSession_EmptyBody(t *testing.T) {
	f := newFixture(t, nil, nil)
	req, _ := http.NewRequest(http.MethodPost, f.ts.URL+"/sessions", http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || resp.Header.Get("Location") == "" {
		t.Fatalf("status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestPushHits_LabelsAndOrdering(t *testing.T) {
	f := newFixture(t, nil, nil)
	s := f.open(t, "")

	resp := f.do(t, http.MethodPost, "/sessions/"+s.ID+"/hits", PushHitsRequest{Hits: []HitResource{
		{ID: "1", Name: "Umwelt", Type: "Thema"},
		{ID: "2", Name: "Hauptstraße 1", Type: "address"},
		{ID: "3", Name: "Spielplatz", Type: "Spielplätze"},
	}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	got := decodeBody[SessionResource](t, resp)
	if len(got.Recommended) != 3 {
		t.Fatalf("recommended = %+v", got.Recommended)
	}
	wantTypes := []string{"address", "topic", "Spielplätze"}
	wantLabels := []string{"Adresse", "Thema", "Spielplätze"}
	for i, h := range got.Recommended {
		if h.Type != wantTypes[i] || h.Label != wantLabels[i] {
			t.Errorf("recommended[%d] = %s/%s, want %s/%s", i, h.Type, h.Label, wantTypes[i], wantLabels[i])
		}
	}
}

func TestPushHits_Validation(t *testing.T) {
	f := newFixture(t, nil, nil)
	s := f.open(t, "")

	tests := []struct {
		name string
		body PushHitsRequest
		code ErrorCode
	}{
		{"unknown list", PushHitsRequest{List: "other"}, CodeValidationFailed},
		{"unknown origin", PushHitsRequest{Origin: "drop"}, CodeValidationFailed},
		{"nameless hit", PushHitsRequest{Hits: []HitResource{{ID: "x", Type: "place"}}}, CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/sessions/"+s.ID+"/hits", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status %d", resp.StatusCode)
			}
			if got := decodeBody[ErrorResponse](t, resp); got.Code != tt.code {
				t.Errorf("code = %s", got.Code)
			}
		})
	}
}

func TestRemoveHits(t *testing.T) {
	f := newFixture(t, nil, nil)
	s := f.open(t, "")
	f.do(t, http.MethodPost, "/sessions/"+s.ID+"/hits", PushHitsRequest{Hits: []HitResource{
		{ID: "1", Name: "A", Type: "address"},
		{ID: "2", Name: "B", Type: "topic"},
	}})

	resp := f.do(t, http.MethodDelete, "/sessions/"+s.ID+"/hits?type=Adresse", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := decodeBody[RemoveHitsResponse](t, resp); got.Removed != 1 {
		t.Errorf("removed = %d", got.Removed)
	}

	resp = f.do(t, http.MethodDelete, "/sessions/"+s.ID+"/hits", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty filter: status %d", resp.StatusCode)
	}
}

func TestListGroups(t *testing.T) {
	f := newFixture(t, nil, nil)
	s := f.open(t, "")
	f.do(t, http.MethodPost, "/sessions/"+s.ID+"/hits", PushHitsRequest{Hits: []HitResource{
		{ID: "1", Name: "T1", Type: "topic"},
		{ID: "2", Name: "A1", Type: "address"},
		{ID: "3", Name: "T2", Type: "topic"},
	}})

	resp := f.do(t, http.MethodGet, "/sessions/"+s.ID+"/groups", nil)
	all := decodeBody[GroupsResponse](t, resp)
	if len(all.Groups) != 2 || all.Groups[0].Type != "address" || all.Groups[1].Count != 2 {
		t.Fatalf("groups = %+v", all.Groups)
	}

	resp = f.do(t, http.MethodGet, "/sessions/"+s.ID+"/groups?type=Thema&limit=1", nil)
	one := decodeBody[GroupsResponse](t, resp)
	if len(one.Groups) != 1 || one.Groups[0].Type != "topic" || len(one.Groups[0].Hits) != 1 {
		t.Errorf("filtered groups = %+v", one.Groups)
	}

	resp = f.do(t, http.MethodGet, "/sessions/"+s.ID+"/groups?limit=abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit: status %d", resp.StatusCode)
	}
}

func TestSessionNotFound(t *testing.T) {
	f := newFixture(t, nil, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/sessions/missing"},
		{http.MethodPut, "/sessions/missing/query"},
		{http.MethodDelete, "/sessions/missing"},
		{http.MethodGet, "/sessions/missing/groups"},
		{http.MethodGet, "/sessions/missing/events"},
	} {
		var body any
		if tc.method == http.MethodPut {
			body = SetQueryRequest{Query: "x"}
		}
		resp := f.do(t, tc.method, tc.path, body)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s %s: status %d", tc.method, tc.path, resp.StatusCode)
			continue
		}
		if got := decodeBody[ErrorResponse](t, resp); got.Code != CodeSessionNotFound {
			t.Errorf("%s %s: code %s", tc.method, tc.path, got.Code)
		}
	}
}

func TestSetQueryAndClose(t *testing.T) {
	f := newFixture(t, []domain.Provider{&staticProvider{}}, nil)
	s := f.open(t, "")

	resp := f.do(t, http.MethodPut, "/sessions/"+s.ID+"/query", SetQueryRequest{Query: "schule"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := decodeBody[SessionResource](t, resp); got.Generation != 1 || got.Query != "schule" {
		t.Errorf("session = %+v", got)
	}

	if resp := f.do(t, http.MethodDelete, "/sessions/"+s.ID, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("close: status %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodGet, "/sessions/"+s.ID, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("closed session: status %d", resp.StatusCode)
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, nil, healthuc.New(healthuc.Component{Name: "cache", Pinger: failingPinger{}}))
	resp := f.do(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d", resp.StatusCode)
	}
	got := decodeBody[HealthResponse](t, resp)
	if got.Status != "degraded" || got.Checks["cache"] != "error" {
		t.Errorf("health = %+v", got)
	}
}

func TestStreamEvents(t *testing.T) {
	f := newFixture(t, nil, nil)
	s := f.open(t, "")

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/sessions/" + s.ID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Accept-Language": {"en"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() EventResource {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var e EventResource
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("read: %v", err)
		}
		return e
	}

	if e := read(); e.Kind != "recommended_list_changed" {
		t.Fatalf("first event = %+v", e)
	}

	f.do(t, http.MethodPost, "/sessions/"+s.ID+"/hits", PushHitsRequest{
		Origin: "paste",
		Hits:   []HitResource{{ID: "p", Name: "53.55, 9.99", Type: "place"}},
	})
	e := read()
	if e.Kind != "zoom_to" || e.Hit == nil || e.Hit.Label != "Place" {
		t.Fatalf("paste event = %+v", e)
	}

	f.do(t, http.MethodDelete, "/sessions/"+s.ID, nil)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
}
