package reminder

import (
	"context"
	"strings"
	"testing"
	"time"

	"senseibot/internal/events"
	"senseibot/internal/storage"
	"senseibot/internal/store"
	"senseibot/internal/transport"
	logx "senseibot/pkg/logx"
)

type captureEnqueuer struct {
	sent []transport.Notification
}

func (c *captureEnqueuer) Enqueue(ctx context.Context, n transport.Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func TestWindowFor(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want Window
	}{
		{24 * time.Hour, WindowDay},
		{23*time.Hour + time.Minute, WindowDay},
		{24*time.Hour + 59*time.Minute, WindowDay},
		{23 * time.Hour, WindowNone},  // boundary is exclusive
		{25 * time.Hour, WindowNone},  // boundary is exclusive
		{28 * time.Hour, WindowNone},
		{60 * time.Minute, WindowHour},
		{56 * time.Minute, WindowHour},
		{64 * time.Minute, WindowHour},
		{55 * time.Minute, WindowNone}, // boundary is exclusive
		{65 * time.Minute, WindowNone}, // boundary is exclusive
		{30 * time.Minute, WindowNone},
		{-time.Hour, WindowNone},
	}
	for _, tc := range cases {
		if got := windowFor(tc.d); got != tc.want {
			t.Errorf("windowFor(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func newTestService(t *testing.T, st storage.Store, enq Enqueuer, targets []int64) (*Service, *events.Catalog, time.Time) {
	t.Helper()
	recs, err := store.New(t.TempDir(), logx.Nop())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	catalog := events.NewCatalog(recs, logx.Nop())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	svc := New(Config{Enabled: true, Targets: targets}, catalog, enq, st, logx.Nop())
	svc.now = func() time.Time { return now }
	return svc, catalog, now
}

func TestSweepAnnouncesWindowedEvents(t *testing.T) {
	enq := &captureEnqueuer{}
	svc, catalog, now := newTestService(t, nil, enq, []int64{100, 200})

	add := func(name string, at time.Time) {
		if _, err := catalog.Add(name, at.Format(store.TimeLayout), "d", "u"); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	add("standup", now.Add(24*time.Hour))
	add("lunch-and-learn", now.Add(time.Hour))
	add("conference", now.Add(72*time.Hour))
	add("retro", now.Add(-time.Hour))

	svc.Sweep(context.Background())

	// Two windowed events, each announced to both targets.
	if len(enq.sent) != 4 {
		t.Fatalf("sent = %d notifications, want 4", len(enq.sent))
	}
	names := map[string]bool{}
	for _, n := range enq.sent {
		if n.Options == nil || n.Options.ParseMode != "HTML" {
			t.Fatal("announcement should use HTML parse mode")
		}
		if strings.Contains(n.Text, "standup") {
			names["standup"] = true
		}
		if strings.Contains(n.Text, "lunch-and-learn") {
			names["lunch-and-learn"] = true
		}
		if strings.Contains(n.Text, "conference") || strings.Contains(n.Text, "retro") {
			t.Fatalf("out-of-window event announced: %q", n.Text)
		}
	}
	if !names["standup"] || !names["lunch-and-learn"] {
		t.Fatalf("missing announcements: %v", names)
	}
}

func TestSweepMarkerPreventsRepeat(t *testing.T) {
	st, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   t.TempDir() + "/state.db",
	}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	defer st.Close()

	enq := &captureEnqueuer{}
	svc, catalog, now := newTestService(t, st, enq, []int64{100})

	if _, err := catalog.Add("tomorrow", now.Add(24*time.Hour).Format(store.TimeLayout), "d", "u"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx := context.Background()
	svc.Sweep(ctx)
	svc.Sweep(ctx)

	if len(enq.sent) != 1 {
		t.Fatalf("sent = %d, want 1 (second sweep deduped)", len(enq.sent))
	}
}

func TestSweepWithoutStoreRepeats(t *testing.T) {
	enq := &captureEnqueuer{}
	svc, catalog, now := newTestService(t, nil, enq, []int64{100})

	if _, err := catalog.Add("tomorrow", now.Add(24*time.Hour).Format(store.TimeLayout), "d", "u"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx := context.Background()
	svc.Sweep(ctx)
	svc.Sweep(ctx)

	// At-least-once without durable markers.
	if len(enq.sent) != 2 {
		t.Fatalf("sent = %d, want 2", len(enq.sent))
	}
}

func TestRenderAnnouncement(t *testing.T) {
	ev := events.Event{
		Name:        "Go meetup <3",
		Date:        "2025-06-02 12:00",
		Description: "talks & pizza",
		URL:         "https://example.com/meetup",
	}
	got := RenderAnnouncement(ev, WindowDay)

	if !strings.Contains(got, "tomorrow") {
		t.Fatalf("day window head missing: %q", got)
	}
	if !strings.Contains(got, "Go meetup &lt;3") {
		t.Fatalf("name not escaped: %q", got)
	}
	if !strings.Contains(got, "online") {
		t.Fatalf("empty location should render as online: %q", got)
	}
	if !strings.Contains(got, `<a href="https://example.com/meetup">`) {
		t.Fatalf("link missing: %q", got)
	}

	hour := RenderAnnouncement(ev, WindowHour)
	if !strings.Contains(hour, "starting soon") {
		t.Fatalf("hour window head missing: %q", hour)
	}
}
