package bot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"senseibot/internal/events"
	"senseibot/internal/resources"
	"senseibot/internal/storage"
	"senseibot/internal/store"
	"senseibot/internal/transport"
	logx "senseibot/pkg/logx"
)

func transportTarget() transport.ChatTarget { return transport.ChatTarget{ChatID: 10} }

func itoa(v int) string { return strconv.Itoa(v) }

func newTestHandlers(t *testing.T) (*Handlers, *recordingAdapter) {
	t.Helper()
	recs, err := store.New(t.TempDir(), logx.Nop())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	ev := events.NewCatalog(recs, logx.Nop())
	rs := resources.NewCatalog(recs, logx.Nop())
	h := NewHandlers(ev, rs, nil, nil, logx.Nop())
	h.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.Local) }
	return h, &recordingAdapter{}
}

func testRequest(ad *recordingAdapter, args ...string) *Request {
	return &Request{
		Chat:     transportTarget(),
		FromID:   1,
		FromName: "tester",
		Args:     args,
		Adapter:  ad,
		Logger:   logx.Nop(),
	}
}

func TestEventAddAndList(t *testing.T) {
	h, ad := newTestHandlers(t)
	ctx := context.Background()

	req := testRequest(ad, "Go meetup", "2025-05-02 18:00", "monthly talks")
	if err := h.eventAdd(ctx, req); err != nil {
		t.Fatalf("eventAdd: %v", err)
	}
	if err := h.eventList(ctx, testRequest(ad)); err != nil {
		t.Fatalf("eventList: %v", err)
	}

	got := ad.texts()
	if len(got) != 2 {
		t.Fatalf("sent = %d messages", len(got))
	}
	if !strings.Contains(got[0], "Event added") {
		t.Fatalf("add reply = %q", got[0])
	}
	if !strings.Contains(got[1], "Go meetup") {
		t.Fatalf("list reply missing event: %q", got[1])
	}
}

func TestEventAddRejectsBadDate(t *testing.T) {
	h, ad := newTestHandlers(t)
	if err := h.eventAdd(context.Background(), testRequest(ad, "x", "someday", "d")); err != nil {
		t.Fatalf("eventAdd: %v", err)
	}
	got := ad.texts()
	if len(got) != 1 || !strings.Contains(got[0], "2025-04-01 18:00") {
		t.Fatalf("reply = %v, want date format hint", got)
	}
	if h.events.Len() != 0 {
		t.Fatal("bad date should not create an event")
	}
}

func TestEventListCapsAtFive(t *testing.T) {
	h, ad := newTestHandlers(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		at := time.Date(2025, 5, 2+i, 18, 0, 0, 0, time.Local)
		if _, err := h.events.Add("ev", at.Format(store.TimeLayout), "d", "u"); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	if err := h.eventList(ctx, testRequest(ad)); err != nil {
		t.Fatalf("eventList: %v", err)
	}
	got := ad.texts()[0]
	if !strings.Contains(got, "and 2 more") {
		t.Fatalf("list should cap at 5 and mention the rest: %q", got)
	}
}

func TestEventDeleteNotFoundReply(t *testing.T) {
	h, ad := newTestHandlers(t)
	if err := h.eventDelete(context.Background(), testRequest(ad, "99")); err != nil {
		t.Fatalf("eventDelete: %v", err)
	}
	got := ad.texts()
	if len(got) != 1 || !strings.Contains(got[0], "no event with id 99") {
		t.Fatalf("reply = %v", got)
	}
}

func TestEventUpdateInvalidFieldReply(t *testing.T) {
	h, ad := newTestHandlers(t)
	ctx := context.Background()
	if _, err := h.events.Add("ev", "2025-05-02 18:00", "d", "u"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := h.eventUpdate(ctx, testRequest(ad, "1", "id", "5")); err != nil {
		t.Fatalf("eventUpdate: %v", err)
	}
	got := ad.texts()
	if len(got) != 1 || !strings.Contains(got[0], "valid fields") {
		t.Fatalf("reply = %v", got)
	}
}

func TestResourceSearchCapsAtTen(t *testing.T) {
	h, ad := newTestHandlers(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		if _, err := h.resources.Add("go", "go tutorial", "https://x.test", "", "", "u"); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	if err := h.resourceSearch(ctx, testRequest(ad, "go", "tutorial")); err != nil {
		t.Fatalf("resourceSearch: %v", err)
	}
	got := ad.texts()[0]
	if !strings.Contains(got, "and 2 more") {
		t.Fatalf("search should cap at 10 and mention the rest: %q", got)
	}
}

func TestResourceUpdateCategoryMoveReply(t *testing.T) {
	h, ad := newTestHandlers(t)
	ctx := context.Background()
	r, err := h.resources.Add("origin", "movable", "https://x.test", "", "", "u")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := h.resourceUpdate(ctx, testRequest(ad, itoa(r.ID), "category", "destination")); err != nil {
		t.Fatalf("resourceUpdate: %v", err)
	}
	got := ad.texts()
	if len(got) != 1 || !strings.Contains(got[0], "destination") || !strings.Contains(got[0], "origin") {
		t.Fatalf("reply = %v", got)
	}
}

func TestTopicSuggestsKnownTopic(t *testing.T) {
	h, ad := newTestHandlers(t)
	if err := h.topic(context.Background(), testRequest(ad)); err != nil {
		t.Fatalf("topic: %v", err)
	}
	got := ad.texts()[0]
	found := false
	for _, topic := range studyTopics {
		if strings.Contains(got, topic) {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("reply did not include a known topic: %q", got)
	}
}

func TestHelpHidesAdminCommands(t *testing.T) {
	h, _ := newTestHandlers(t)
	all := h.Commands()

	member := renderHelp(all, false)
	admin := renderHelp(all, true)
	if strings.Contains(member, "/event add") {
		t.Fatalf("member help should hide admin commands: %q", member)
	}
	if !strings.Contains(admin, "/event add") {
		t.Fatalf("admin help should include admin commands: %q", admin)
	}
	if !strings.Contains(member, "/event list") {
		t.Fatalf("member help missing public command: %q", member)
	}
}

func TestMutationsAppendAuditEntries(t *testing.T) {
	dir := t.TempDir()
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(dir, "store")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}

	recs, err := store.New(t.TempDir(), logx.Nop())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	h := NewHandlers(events.NewCatalog(recs, logx.Nop()), resources.NewCatalog(recs, logx.Nop()), nil, st, logx.Nop())
	h.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.Local) }

	ad := &recordingAdapter{}
	ctx := context.Background()
	if err := h.eventAdd(ctx, testRequest(ad, "Go meetup", "2025-05-02 18:00", "talks")); err != nil {
		t.Fatalf("eventAdd: %v", err)
	}
	if err := h.eventDelete(ctx, testRequest(ad, "99")); err != nil {
		t.Fatalf("eventDelete: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("storage close: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "store.audit.jsonl"))
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("audit lines = %d, want 2", len(lines))
	}

	var add storage.AuditEntry
	if err := json.Unmarshal([]byte(lines[0]), &add); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if add.Catalog != "events" || add.Action != "add" || add.Target != "Go meetup" || add.Error != "" {
		t.Fatalf("add entry = %+v", add)
	}

	var del storage.AuditEntry
	if err := json.Unmarshal([]byte(lines[1]), &del); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if del.Action != "delete" || del.Error == "" {
		t.Fatalf("failed delete should record the error: %+v", del)
	}
}

func TestEventAddPersistsOptionalFields(t *testing.T) {
	h, ad := newTestHandlers(t)

	req := testRequest(ad, "Go meetup", "2025-05-02 18:00", "talks", "room 5", "https://example.com/meetup")
	if err := h.eventAdd(context.Background(), req); err != nil {
		t.Fatalf("eventAdd: %v", err)
	}

	ev, err := h.events.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ev.Location != "room 5" || ev.URL != "https://example.com/meetup" {
		t.Fatalf("optional fields not saved: %+v", ev)
	}
	if got := ad.texts()[0]; strings.Contains(got, "could not be saved") {
		t.Fatalf("clean add should not warn: %q", got)
	}
}

func TestRenderEventAddedNotesUnsavedFields(t *testing.T) {
	ev := events.Event{Name: "Go meetup", Date: "2025-05-02 18:00"}
	ev.ID = 1

	clean := renderEventAdded(ev, nil)
	if strings.Contains(clean, "could not be saved") {
		t.Fatalf("clean render should not warn: %q", clean)
	}

	got := renderEventAdded(ev, []string{"location", "url"})
	if !strings.Contains(got, "location and url could not be saved") {
		t.Fatalf("render = %q, want unsaved note", got)
	}
	if !strings.Contains(got, "Event added") {
		t.Fatalf("render lost the confirmation: %q", got)
	}
}
