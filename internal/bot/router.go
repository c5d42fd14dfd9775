package bot

import (
	"context"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"senseibot/internal/transport"
	logx "senseibot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessAdminOnly
)

type Command struct {
	// Route is a space-separated command path, e.g. "event add".
	Route       string
	Aliases     []string
	Description string
	Usage       string
	Access      Access

	Timeout time.Duration // optional per-command override
	Handle  HandlerFunc
}

type Request struct {
	Chat     transport.ChatTarget
	FromID   int64
	FromName string
	Command  string
	Args     []string
	ReqID    string

	Adapter transport.Adapter
	Logger  logx.Logger
	IsAdmin bool
}

// Reply sends HTML-formatted text back to the requesting chat.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, &transport.SendOptions{
		ParseMode:      "HTML",
		DisablePreview: true,
	})
	return err
}

// Router matches slash commands against a fixed registry and runs their
// handlers on a bounded worker pool.
type Router struct {
	mu      sync.RWMutex
	routes  map[string]*Command // route key ("event add") -> command
	aliases map[string]string   // alias -> route key

	admins  []int64
	adapter transport.Adapter
	log     logx.Logger

	defaultTimeout time.Duration

	jobs chan func()
}

func NewRouter(adapter transport.Adapter, admins []int64, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		routes:         map[string]*Command{},
		aliases:        map[string]string{},
		admins:         append([]int64(nil), admins...),
		adapter:        adapter,
		log:            log,
		defaultTimeout: 30 * time.Second,
		jobs:           make(chan func(), 256),
	}
}

// SetAdmins swaps the admin list. Safe to call during hot-reload.
func (r *Router) SetAdmins(admins []int64) {
	cp := append([]int64(nil), admins...)
	r.mu.Lock()
	r.admins = cp
	r.mu.Unlock()
}

func (r *Router) isAdmin(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.admins {
		if id == userID {
			return true
		}
	}
	return false
}

// Register installs commands. Multi-token routes get an automatic
// underscore alias ("event add" -> "event_add") for Telegram menus.
func (r *Router) Register(cmds []Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range cmds {
		c := cmds[i]
		key := strings.Join(strings.Fields(strings.ToLower(c.Route)), " ")
		if key == "" || c.Handle == nil {
			continue
		}
		r.routes[key] = &c
		if parts := strings.Fields(key); len(parts) > 1 {
			auto := strings.Join(parts, "_")
			if _, exists := r.aliases[auto]; !exists {
				r.aliases[auto] = key
			}
		}
		for _, a := range c.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			r.aliases[a] = key
		}
	}
}

// Commands returns the registered commands sorted by route.
func (r *Router) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Command, 0, len(keys))
	for _, k := range keys {
		out = append(out, *r.routes[k])
	}
	return out
}

// DispatchLoop consumes transport updates until ctx is cancelled or the
// channel closes.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan transport.Update, onJoin func(ctx context.Context, j *transport.UserJoined)) {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	r.log.Info("command dispatcher started", logx.Int("workers", workers))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		idx := i
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error("panic in command worker",
						logx.Int("worker", idx),
						logx.Any("panic", rec),
						logx.String("stack", string(debug.Stack())))
				}
			}()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-r.jobs:
					if !ok {
						return
					}
					job()
				}
			}
		}()
	}
	defer func() {
		close(r.jobs)
		wg.Wait()
		r.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			switch up.Kind {
			case transport.UpdateMessage:
				r.routeMessage(ctx, up.Message)
			case transport.UpdateUserJoined:
				if onJoin != nil && up.Joined != nil {
					j := up.Joined
					r.enqueue(func() { onJoin(ctx, j) })
				}
			}
		}
	}
}

func (r *Router) enqueue(job func()) {
	select {
	case r.jobs <- job:
	default:
		r.log.Warn("command queue full, dropping request")
	}
}

func (r *Router) routeMessage(ctx context.Context, msg *transport.Message) {
	if msg == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	parts := tokenize(text)
	if len(parts) == 0 {
		return
	}
	word := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	// Strip the @botname suffix used in groups.
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	args := parts[1:]

	r.mu.RLock()
	cmd, matchedArgs := r.matchLocked(word, args)
	r.mu.RUnlock()

	chat := transport.ChatTarget{ChatID: msg.ChatID}
	if cmd == nil {
		_, _ = r.adapter.SendText(ctx, chat, "Unknown command. Try /help", nil)
		return
	}

	if cmd.Access == AccessAdminOnly && !r.isAdmin(msg.FromID) {
		_, _ = r.adapter.SendText(ctx, chat, "This command is for admins only.", nil)
		return
	}

	rid := newReqID()
	req := &Request{
		Chat:     chat,
		FromID:   msg.FromID,
		FromName: senderName(msg),
		Command:  cmd.Route,
		Args:     matchedArgs,
		ReqID:    rid,
		Adapter:  r.adapter,
		IsAdmin:  r.isAdmin(msg.FromID),
		Logger: r.log.With(
			logx.String("rid", rid),
			logx.String("cmd", cmd.Route)),
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	h := Chain(cmd.Handle, MWRequestLog(r.log), MWPanicRecover(r.log), MWTimeout(timeout))
	r.enqueue(func() {
		if err := h(ctx, req); err != nil {
			_ = req.Reply(ctx, "Something went wrong. Check the logs.")
		}
	})
}

// matchLocked resolves a command word plus args against aliases, then the
// longest registered route.
func (r *Router) matchLocked(word string, args []string) (*Command, []string) {
	if key, ok := r.aliases[word]; ok {
		return r.routes[key], args
	}
	if len(args) > 0 {
		two := word + " " + strings.ToLower(args[0])
		if c, ok := r.routes[two]; ok {
			return c, args[1:]
		}
	}
	if c, ok := r.routes[word]; ok {
		return c, args
	}
	return nil, nil
}

func senderName(msg *transport.Message) string {
	if msg.FromUsername != "" {
		return msg.FromUsername
	}
	if msg.FromName != "" {
		return msg.FromName
	}
	return "unknown"
}
