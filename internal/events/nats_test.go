package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs []published
	err  error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, published{subject: subject, data: data})
	return nil
}

func TestNATSPublisher_Subject(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "portalsearch.sessions.abc.zoom_to"},
		{"portal.events.", "portal.events.abc.zoom_to"},
		{" search ", "search.abc.zoom_to"},
	}
	for _, tt := range tests {
		p := newNATSPublisher(&fakeConn{}, tt.prefix, zap.NewNop())
		if got := p.Subject("abc", aggregate.EventZoomTo); got != tt.want {
			t.Errorf("prefix %q: got %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, "ps", zap.NewNop())
	p.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	snap := &aggregate.Snapshot{
		Query:       "rathaus",
		Generation:  2,
		Recommended: []hit.Hit{{ID: "1", Name: "Rathausmarkt", Type: hit.Known(hit.KindStreet)}},
		Final:       []hit.Hit{{ID: "1"}, {ID: "2"}},
		Initial:     aggregate.Finished,
	}
	p.Publish("s1", aggregate.Event{Kind: aggregate.EventRecommendedListChanged, Snapshot: snap})

	if len(conn.msgs) != 1 {
		t.Fatalf("published %d messages", len(conn.msgs))
	}
	if conn.msgs[0].subject != "ps.s1.recommended_list_changed" {
		t.Errorf("subject = %q", conn.msgs[0].subject)
	}
	var m Message
	if err := json.Unmarshal(conn.msgs[0].data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Query != "rathaus" || m.Total != 2 || m.Initial != "finished" || len(m.Recommended) != 1 {
		t.Errorf("unexpected message %+v", m)
	}
	if m.Recommended[0].Type != hit.Known(hit.KindStreet) {
		t.Errorf("type = %v", m.Recommended[0].Type)
	}
}

func TestNATSPublisher_PublishErrorIsSwallowed(t *testing.T) {
	p := newNATSPublisher(&fakeConn{err: errors.New("nats: connection closed")}, "", zap.NewNop())
	p.Publish("s1", aggregate.Event{Kind: aggregate.EventNoInitialResults, Dismiss: 3 * time.Second})
}

func TestNewMessage_Dismiss(t *testing.T) {
	m := NewMessage("s1", aggregate.Event{Kind: aggregate.EventNoInitialResults, Dismiss: 3 * time.Second}, time.Now())
	if m.DismissMS != 3000 || m.Kind != "no_initial_results" {
		t.Errorf("unexpected message %+v", m)
	}
}
