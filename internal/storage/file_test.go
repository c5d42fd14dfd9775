package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "senseibot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	st, err := Open(Config{Driver: "none"}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st != nil {
		t.Fatal("disabled driver should return nil store")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver should error")
	}
}

func TestFileMarkerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	until := time.Now().Add(time.Hour)
	if err := st.PutMarker(ctx, "event:3:day", until); err != nil {
		t.Fatalf("PutMarker: %v", err)
	}

	got, ok, err := st.GetMarker(ctx, "event:3:day")
	if err != nil || !ok {
		t.Fatalf("GetMarker: ok=%v err=%v", ok, err)
	}
	if got.UnixMilli() != until.UnixMilli() {
		t.Fatalf("until = %v, want %v", got, until)
	}

	if _, ok, _ := st.GetMarker(ctx, "event:99:hour"); ok {
		t.Fatal("unknown marker should miss")
	}
}

func TestFileMarkerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.PutMarker(ctx, "event:7:hour", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("PutMarker: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	if _, ok, _ := st2.GetMarker(ctx, "event:7:hour"); !ok {
		t.Fatal("marker lost across reopen")
	}
}

func TestFileExpiredMarkerPrunedOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	st, _ := Open(Config{Driver: "file", Path: path}, logx.Nop())
	_ = st.PutMarker(ctx, "event:1:day", time.Now().Add(-time.Minute))
	_ = st.Close()

	st2, _ := Open(Config{Driver: "file", Path: path}, logx.Nop())
	defer st2.Close()
	if _, ok, _ := st2.GetMarker(ctx, "event:1:day"); ok {
		t.Fatal("expired marker should be pruned on open")
	}
}

func TestFileExpiredMarkerReadsAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if err := st.PutMarker(ctx, "event:4:day", time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatalf("PutMarker: %v", err)
	}
	if _, ok, _ := st.GetMarker(ctx, "event:4:day"); ok {
		t.Fatal("expired marker should read as absent")
	}

	// A fresh marker under the same key is honored again.
	if err := st.PutMarker(ctx, "event:4:day", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("PutMarker: %v", err)
	}
	if _, ok, _ := st.GetMarker(ctx, "event:4:day"); !ok {
		t.Fatal("live marker should be found")
	}
}

func TestFileAuditAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	e := AuditEntry{
		At:      time.Now(),
		ActorID: 42,
		Catalog: "events",
		Action:  "add",
		Target:  "1",
	}
	if err := st.AppendAudit(context.Background(), e); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
}
