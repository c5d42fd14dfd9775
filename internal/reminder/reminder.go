package reminder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"senseibot/internal/events"
	"senseibot/internal/notify"
	"senseibot/internal/storage"
	"senseibot/internal/transport"
	logx "senseibot/pkg/logx"
	"senseibot/pkg/tgui"
)

// Window identifies which reminder an event is due for.
type Window string

const (
	WindowNone Window = ""
	WindowDay  Window = "day"
	WindowHour Window = "hour"
)

// windowFor maps the time left until an event to a reminder window.
// The bands are wider than the sweep interval so an hourly sweep cannot
// step over them.
func windowFor(d time.Duration) Window {
	switch {
	case d > 23*time.Hour && d < 25*time.Hour:
		return WindowDay
	case d > 55*time.Minute && d < 65*time.Minute:
		return WindowHour
	default:
		return WindowNone
	}
}

// Config tunes the sweep loop.
type Config struct {
	Enabled  bool
	Interval time.Duration // between sweeps; default 1h
	Targets  []int64       // chat ids that receive announcements
}

// Enqueuer queues announcements for async delivery.
// *notify.Service satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, n transport.Notification) error
}

var _ Enqueuer = (*notify.Service)(nil)

// Service periodically sweeps the event catalog and announces events that
// enter a reminder window. Delivery is at-least-once; when a store is
// present, a per-window marker prevents repeats across restarts.
type Service struct {
	cfg      Config
	catalog  *events.Catalog
	notifier Enqueuer
	store    storage.Store // may be nil
	log      logx.Logger
	now      func() time.Time

	mu      sync.Mutex
	c       *cron.Cron
	entryID cron.EntryID
}

func New(cfg Config, catalog *events.Catalog, notifier Enqueuer, store storage.Store, log logx.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg,
		catalog:  catalog,
		notifier: notifier,
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

// Start runs one immediate sweep, then sweeps on the configured interval
// until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("reminders disabled")
		return nil
	}
	if len(s.cfg.Targets) == 0 {
		s.log.Warn("reminders enabled but no announce chats configured")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	c := cron.New()
	id, err := c.AddFunc(fmt.Sprintf("@every %s", s.cfg.Interval), func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule reminder sweep: %w", err)
	}
	s.c = c
	s.entryID = id
	c.Start()
	s.log.Info("reminder loop started", logx.Duration("interval", s.cfg.Interval))

	go s.Sweep(ctx)
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the sweep schedule. A sweep already in flight finishes.
func (s *Service) Stop() {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
		s.log.Info("reminder loop stopped")
	}
}

// Sweep checks every upcoming event once and announces those inside a
// reminder window.
func (s *Service) Sweep(ctx context.Context) {
	now := s.now()
	upcoming := s.catalog.Upcoming(now)
	s.log.Debug("reminder sweep", logx.Int("upcoming", len(upcoming)))

	for _, up := range upcoming {
		w := windowFor(up.At.Sub(now))
		if w == WindowNone {
			continue
		}
		if s.alreadyAnnounced(ctx, up.Event.ID, w) {
			continue
		}
		text := RenderAnnouncement(up.Event, w)
		sent := false
		for _, chatID := range s.cfg.Targets {
			err := s.notifier.Enqueue(ctx, transport.Notification{
				Target:  transport.ChatTarget{ChatID: chatID},
				Text:    text,
				Options: &transport.SendOptions{ParseMode: "HTML"},
			})
			if err != nil {
				s.log.Warn("reminder enqueue failed",
					logx.Int("event_id", up.Event.ID),
					logx.Int64("chat_id", chatID),
					logx.Err(err))
				continue
			}
			sent = true
		}
		if sent {
			s.log.Info("reminder announced",
				logx.Int("event_id", up.Event.ID),
				logx.String("window", string(w)))
			s.markAnnounced(ctx, up.Event.ID, w, up.At)
		}
	}
}

func markerKey(eventID int, w Window) string {
	return fmt.Sprintf("event:%d:%s", eventID, w)
}

func (s *Service) alreadyAnnounced(ctx context.Context, eventID int, w Window) bool {
	if s.store == nil {
		return false
	}
	_, ok, err := s.store.GetMarker(ctx, markerKey(eventID, w))
	if err != nil {
		s.log.Warn("reminder marker read failed", logx.Int("event_id", eventID), logx.Err(err))
		return false
	}
	return ok
}

func (s *Service) markAnnounced(ctx context.Context, eventID int, w Window, eventAt time.Time) {
	if s.store == nil {
		return
	}
	// The marker is useless once the event has started.
	if err := s.store.PutMarker(ctx, markerKey(eventID, w), eventAt); err != nil {
		s.log.Warn("reminder marker write failed", logx.Int("event_id", eventID), logx.Err(err))
	}
}

// RenderAnnouncement builds the HTML reminder text for one event.
func RenderAnnouncement(ev events.Event, w Window) string {
	var head string
	switch w {
	case WindowDay:
		head = "Reminder: event tomorrow!"
	case WindowHour:
		head = "Reminder: event starting soon!"
	default:
		head = "Event reminder"
	}

	location := strings.TrimSpace(ev.Location)
	if location == "" {
		location = "online"
	}

	lines := []tgui.H{
		tgui.B(head),
		tgui.JoinH(" ", tgui.Raw("📅"), tgui.B(ev.Name)),
		tgui.JoinH(" ", tgui.Esc("When:"), tgui.Esc(ev.Date)),
		tgui.JoinH(" ", tgui.Esc("Where:"), tgui.Esc(location)),
	}
	if strings.TrimSpace(ev.Description) != "" {
		lines = append(lines, tgui.Esc(ev.Description))
	}
	if strings.TrimSpace(ev.URL) != "" {
		lines = append(lines, tgui.Link("Details", ev.URL))
	}
	return tgui.JoinH("\n", lines...).String()
}
