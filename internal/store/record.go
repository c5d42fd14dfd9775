package store

import "time"

// TimeLayout is the timestamp format used across stored records, both for
// audit stamps and for event dates. It is a naive local time with no zone.
const TimeLayout = "2006-01-02 15:04"

// Meta carries the base record fields shared by every catalog entry.
// ID is assigned once at creation and never changes for a live record.
type Meta struct {
	ID        int    `yaml:"id"`
	CreatedBy string `yaml:"created_by,omitempty"`
	CreatedAt string `yaml:"created_at,omitempty"`
	UpdatedBy string `yaml:"updated_by,omitempty"`
	UpdatedAt string `yaml:"updated_at,omitempty"`
}

// Stamp formats t in the shared record layout.
func Stamp(t time.Time) string { return t.Format(TimeLayout) }

// TouchCreated fills creator identity and creation time.
func (m *Meta) TouchCreated(by string, at time.Time) {
	m.CreatedBy = by
	m.CreatedAt = Stamp(at)
}

// TouchUpdated stamps updater identity and update time.
func (m *Meta) TouchUpdated(by string, at time.Time) {
	m.UpdatedBy = by
	m.UpdatedAt = Stamp(at)
}
