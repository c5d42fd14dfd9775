package events

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"senseibot/internal/store"
	logx "senseibot/pkg/logx"
)

const fileName = "events"

// Event is a dated community event. Date is a naive local timestamp in
// "YYYY-MM-DD HH:MM" form; an unparseable date keeps the record stored but
// excludes it from listing and reminders until corrected.
type Event struct {
	store.Meta  `yaml:",inline"`
	Name        string `yaml:"name"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Location    string `yaml:"location,omitempty"`
	URL         string `yaml:"url,omitempty"`
}

// ParseDate parses an event date in the stored layout.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(store.TimeLayout, strings.TrimSpace(s), time.Local)
}

// UpdatableFields is the allow-list for Update.
var UpdatableFields = []string{"name", "date", "description", "location", "url"}

// Upcoming pairs an event with its parsed start time.
type Upcoming struct {
	Event Event
	At    time.Time
}

// Catalog is the in-memory, file-persisted collection of events.
// All operations serialize through one mutex; every mutation saves
// immediately and fails the operation when the save fails.
type Catalog struct {
	mu  sync.Mutex
	st  *store.Store
	log logx.Logger
	now func() time.Time

	items []Event
}

func NewCatalog(st *store.Store, log logx.Logger) *Catalog {
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Catalog{st: st, log: log, now: time.Now}
	c.st.Load(fileName, &c.items)
	c.log.Info("events loaded", logx.Int("count", len(c.items)))
	return c
}

func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// All returns a snapshot of every stored event, including ones with
// unparseable dates.
func (c *Catalog) All() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.items...)
}

// Add appends a new event and persists. The date format is not validated
// here; a bad date keeps the record inert until an update corrects it.
func (c *Catalog) Add(name, date, description, createdBy string) (Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev := Event{
		Name:        name,
		Date:        date,
		Description: description,
	}
	ev.ID = c.nextIDLocked()
	ev.TouchCreated(createdBy, c.now())

	c.items = append(c.items, ev)
	if err := c.st.Save(fileName, c.items); err != nil {
		c.items = c.items[:len(c.items)-1]
		c.log.Error("event save failed", logx.Int("id", ev.ID), logx.Err(err))
		return Event{}, fmt.Errorf("persist events: %w", err)
	}
	c.log.Info("event added", logx.Int("id", ev.ID), logx.String("name", ev.Name))
	return ev, nil
}

// Upcoming returns events with a parseable date strictly after now, sorted
// ascending by start time. Unparseable dates are skipped with a warning.
// Callers limit how many entries they display.
func (c *Catalog) Upcoming(now time.Time) []Upcoming {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Upcoming, 0, len(c.items))
	for _, ev := range c.items {
		at, err := ParseDate(ev.Date)
		if err != nil {
			c.log.Warn("event has invalid date", logx.Int("id", ev.ID), logx.String("date", ev.Date))
			continue
		}
		if !at.After(now) {
			continue
		}
		out = append(out, Upcoming{Event: ev, At: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// Get returns the event with the given id.
func (c *Catalog) Get(id int) (Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			return c.items[i], nil
		}
	}
	return Event{}, &NotFoundError{ID: id}
}

// Delete removes the event with the given id and persists.
func (c *Catalog) Delete(id int) (Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i := range c.items {
		if c.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Event{}, &NotFoundError{ID: id}
	}
	ev := c.items[idx]
	next := append(append([]Event(nil), c.items[:idx]...), c.items[idx+1:]...)
	if err := c.st.Save(fileName, next); err != nil {
		c.log.Error("event save failed", logx.Int("id", id), logx.Err(err))
		return Event{}, fmt.Errorf("persist events: %w", err)
	}
	c.items = next
	c.log.Info("event deleted", logx.Int("id", id), logx.String("name", ev.Name))
	return ev, nil
}

// Update sets one allow-listed field, stamps the updater, and persists.
// It returns the updated event and the field's previous value.
func (c *Catalog) Update(id int, field, value, updatedBy string) (Event, string, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	if !fieldAllowed(field) {
		return Event{}, "", &InvalidFieldError{Field: field, Allowed: UpdatableFields}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i := range c.items {
		if c.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Event{}, "", &NotFoundError{ID: id}
	}

	prev := c.items[idx]
	ev := &c.items[idx]
	var old string
	switch field {
	case "name":
		old, ev.Name = ev.Name, value
	case "date":
		old, ev.Date = ev.Date, value
	case "description":
		old, ev.Description = ev.Description, value
	case "location":
		old, ev.Location = ev.Location, value
	case "url":
		old, ev.URL = ev.URL, value
	}
	ev.TouchUpdated(updatedBy, c.now())

	if err := c.st.Save(fileName, c.items); err != nil {
		c.items[idx] = prev
		c.log.Error("event save failed", logx.Int("id", id), logx.Err(err))
		return Event{}, "", fmt.Errorf("persist events: %w", err)
	}
	c.log.Info("event updated", logx.Int("id", id), logx.String("field", field))
	return *ev, old, nil
}

// nextIDLocked computes max live id + 1 (1 when empty), so deleting a
// mid-list record never shifts the ids of later ones.
func (c *Catalog) nextIDLocked() int {
	maxID := 0
	for i := range c.items {
		if c.items[i].ID > maxID {
			maxID = c.items[i].ID
		}
	}
	return maxID + 1
}

func fieldAllowed(f string) bool {
	for _, a := range UpdatableFields {
		if f == a {
			return true
		}
	}
	return false
}
