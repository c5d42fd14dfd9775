package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"senseibot/internal/transport"
	logx "senseibot/pkg/logx"
)

type recordingAdapter struct {
	mu   sync.Mutex
	sent []string
}

func (a *recordingAdapter) Start(ctx context.Context, out chan<- transport.Update) error { return nil }
func (a *recordingAdapter) Stop(ctx context.Context) error                               { return nil }

func (a *recordingAdapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, text)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(a.sent)}, nil
}

func (a *recordingAdapter) texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.sent...)
}

func runRouter(t *testing.T, r *Router, ups ...transport.Update) {
	t.Helper()
	updates := make(chan transport.Update, len(ups))
	for _, up := range ups {
		updates <- up
	}
	close(updates)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.DispatchLoop(ctx, updates, nil)
}

func msgUpdate(fromID int64, text string) transport.Update {
	return transport.Update{
		Kind: transport.UpdateMessage,
		Message: &transport.Message{
			ChatID:       10,
			FromID:       fromID,
			FromUsername: "tester",
			Text:         text,
		},
	}
}

func TestRouterMatchesTwoTokenRoute(t *testing.T) {
	ad := &recordingAdapter{}
	r := NewRouter(ad, nil, logx.Nop())

	var gotArgs []string
	r.Register([]Command{{
		Route: "event list",
		Handle: func(ctx context.Context, req *Request) error {
			gotArgs = req.Args
			return req.Reply(ctx, "ok")
		},
	}})

	runRouter(t, r, msgUpdate(1, "/event list extra"))

	if len(gotArgs) != 1 || gotArgs[0] != "extra" {
		t.Fatalf("args = %v, want [extra]", gotArgs)
	}
	if got := ad.texts(); len(got) != 1 || got[0] != "ok" {
		t.Fatalf("sent = %v", got)
	}
}

func TestRouterAliasAndBotSuffix(t *testing.T) {
	ad := &recordingAdapter{}
	r := NewRouter(ad, nil, logx.Nop())

	calls := 0
	r.Register([]Command{{
		Route:   "event list",
		Aliases: []string{"events"},
		Handle: func(ctx context.Context, req *Request) error {
			calls++
			return nil
		},
	}})

	runRouter(t, r,
		msgUpdate(1, "/events"),
		msgUpdate(1, "/event_list"),
		msgUpdate(1, "/events@senseibot"),
	)

	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRouterUnknownCommand(t *testing.T) {
	ad := &recordingAdapter{}
	r := NewRouter(ad, nil, logx.Nop())
	r.Register([]Command{{Route: "topic", Handle: func(ctx context.Context, req *Request) error { return nil }}})

	runRouter(t, r, msgUpdate(1, "/nope"))

	got := ad.texts()
	if len(got) != 1 || got[0] != "Unknown command. Try /help" {
		t.Fatalf("sent = %v", got)
	}
}

func TestRouterAdminGate(t *testing.T) {
	ad := &recordingAdapter{}
	r := NewRouter(ad, []int64{77}, logx.Nop())

	calls := 0
	r.Register([]Command{{
		Route:  "event add",
		Access: AccessAdminOnly,
		Handle: func(ctx context.Context, req *Request) error {
			calls++
			return nil
		},
	}})

	runRouter(t, r,
		msgUpdate(1, `/event add "x" "2025-01-01 10:00" "d"`),
		msgUpdate(77, `/event add "x" "2025-01-01 10:00" "d"`),
	)

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1 (non-admin refused)", calls)
	}
	got := ad.texts()
	if len(got) != 1 || got[0] != "This command is for admins only." {
		t.Fatalf("sent = %v", got)
	}
}

func TestRouterIgnoresPlainText(t *testing.T) {
	ad := &recordingAdapter{}
	r := NewRouter(ad, nil, logx.Nop())
	r.Register([]Command{{Route: "topic", Handle: func(ctx context.Context, req *Request) error { return nil }}})

	runRouter(t, r, msgUpdate(1, "just chatting"))

	if got := ad.texts(); len(got) != 0 {
		t.Fatalf("plain text should be ignored, sent = %v", got)
	}
}

func TestRouterPanicRecovered(t *testing.T) {
	ad := &recordingAdapter{}
	r := NewRouter(ad, nil, logx.Nop())
	r.Register([]Command{{
		Route:  "boom",
		Handle: func(ctx context.Context, req *Request) error { panic("kaboom") },
	}})

	runRouter(t, r, msgUpdate(1, "/boom"))

	got := ad.texts()
	if len(got) != 1 || got[0] != "Something went wrong. Check the logs." {
		t.Fatalf("sent = %v", got)
	}
}
