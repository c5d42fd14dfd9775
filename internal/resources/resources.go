package resources

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"senseibot/internal/store"
	logx "senseibot/pkg/logx"
)

const (
	fileName = "resources"

	// DefaultDifficulty is applied when an add omits the difficulty.
	DefaultDifficulty = "intermediate"
)

// Resource is one learning link filed under a category bucket.
type Resource struct {
	store.Meta  `yaml:",inline"`
	Title       string   `yaml:"title"`
	URL         string   `yaml:"url"`
	Description string   `yaml:"description,omitempty"`
	Difficulty  string   `yaml:"difficulty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// UpdatableFields is the allow-list for Update. Setting "category" moves the
// record between buckets instead of writing a struct field.
var UpdatableFields = []string{"title", "url", "description", "difficulty", "category"}

// Found pairs a resource with the category it currently lives in.
type Found struct {
	Category string
	Resource Resource
}

// Catalog is the category-keyed, file-persisted collection of resources.
// Categories exist only while non-empty; ids are unique across all buckets.
type Catalog struct {
	mu  sync.Mutex
	st  *store.Store
	log logx.Logger
	now func() time.Time

	byCategory map[string][]Resource
}

func NewCatalog(st *store.Store, log logx.Logger) *Catalog {
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Catalog{st: st, log: log, now: time.Now, byCategory: map[string][]Resource{}}
	if !c.st.Load(fileName, &c.byCategory) || c.count() == 0 {
		c.byCategory = defaultCatalog()
		if err := c.st.Save(fileName, c.byCategory); err != nil {
			c.log.Warn("seeding default resources failed", logx.Err(err))
		} else {
			c.log.Info("seeded default resources", logx.Int("count", c.count()))
		}
	}
	c.log.Info("resources loaded",
		logx.Int("categories", len(c.byCategory)),
		logx.Int("count", c.count()))
	return c
}

func (c *Catalog) count() int {
	n := 0
	for _, rs := range c.byCategory {
		n += len(rs)
	}
	return n
}

// CategorySummary names a live category and how many resources it holds.
type CategorySummary struct {
	Name  string
	Count int
}

// Categories returns the live categories sorted by name.
func (c *Catalog) Categories() []CategorySummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CategorySummary, 0, len(c.byCategory))
	for _, name := range c.categoryNamesLocked() {
		out = append(out, CategorySummary{Name: name, Count: len(c.byCategory[name])})
	}
	return out
}

// ByCategory returns a snapshot of one category's resources. An unknown
// category yields a NotFoundError listing the valid names.
func (c *Catalog) ByCategory(category string) ([]Resource, error) {
	category = normalizeCategory(category)
	c.mu.Lock()
	defer c.mu.Unlock()

	rs, ok := c.byCategory[category]
	if !ok {
		return nil, &NotFoundError{Category: category, Valid: c.categoryNamesLocked()}
	}
	return append([]Resource(nil), rs...), nil
}

// Add files a resource under category, creating the bucket on first use.
// Difficulty defaults to DefaultDifficulty and tags are seeded with the
// category name.
func (c *Catalog) Add(category, title, url, description, difficulty, createdBy string) (Resource, error) {
	category = normalizeCategory(category)
	if difficulty == "" {
		difficulty = DefaultDifficulty
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r := Resource{
		Title:       title,
		URL:         url,
		Description: description,
		Difficulty:  strings.ToLower(difficulty),
		Tags:        []string{category},
	}
	r.ID = c.nextIDLocked()
	r.TouchCreated(createdBy, c.now())

	c.byCategory[category] = append(c.byCategory[category], r)
	if err := c.st.Save(fileName, c.byCategory); err != nil {
		if rs := c.byCategory[category]; len(rs) == 1 {
			delete(c.byCategory, category)
		} else {
			c.byCategory[category] = rs[:len(rs)-1]
		}
		c.log.Error("resource save failed", logx.Int("id", r.ID), logx.Err(err))
		return Resource{}, fmt.Errorf("persist resources: %w", err)
	}
	c.log.Info("resource added",
		logx.Int("id", r.ID),
		logx.String("category", category),
		logx.String("title", r.Title))
	return r, nil
}

// Search returns every resource whose title, description, or any tag
// contains term case-insensitively, across all categories.
func (c *Catalog) Search(term string) []Found {
	needle := strings.ToLower(strings.TrimSpace(term))
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Found
	for _, category := range c.categoryNamesLocked() {
		for _, r := range c.byCategory[category] {
			if matches(r, needle) {
				out = append(out, Found{Category: category, Resource: r})
			}
		}
	}
	return out
}

func matches(r Resource, needle string) bool {
	if strings.Contains(strings.ToLower(r.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Description), needle) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Delete removes the resource with the given id, pruning its category when
// it becomes empty, and persists.
func (c *Catalog) Delete(id int) (Found, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	category, idx := c.locateLocked(id)
	if idx < 0 {
		return Found{}, &NotFoundError{ID: id}
	}
	rs := c.byCategory[category]
	r := rs[idx]
	rest := append(append([]Resource(nil), rs[:idx]...), rs[idx+1:]...)
	if len(rest) == 0 {
		delete(c.byCategory, category)
	} else {
		c.byCategory[category] = rest
	}

	if err := c.st.Save(fileName, c.byCategory); err != nil {
		c.byCategory[category] = rs
		c.log.Error("resource save failed", logx.Int("id", id), logx.Err(err))
		return Found{}, fmt.Errorf("persist resources: %w", err)
	}
	c.log.Info("resource deleted", logx.Int("id", id), logx.String("category", category))
	return Found{Category: category, Resource: r}, nil
}

// Update sets one allow-listed field and persists. Updating "category"
// moves the record to the named bucket, creating it when missing and
// pruning the old one when it empties.
func (c *Catalog) Update(id int, field, value, updatedBy string) (Found, string, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	if !fieldAllowed(field) {
		return Found{}, "", &InvalidFieldError{Field: field, Allowed: UpdatableFields}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	category, idx := c.locateLocked(id)
	if idx < 0 {
		return Found{}, "", &NotFoundError{ID: id}
	}

	var old string
	var undo func()
	if field == "category" {
		dest := normalizeCategory(value)
		src := category
		srcRs := c.byCategory[src]
		destRs, destExisted := c.byCategory[dest]
		r := srcRs[idx]
		old = src

		rest := append(append([]Resource(nil), srcRs[:idx]...), srcRs[idx+1:]...)
		if len(rest) == 0 {
			delete(c.byCategory, src)
		} else {
			c.byCategory[src] = rest
		}
		r.TouchUpdated(updatedBy, c.now())
		c.byCategory[dest] = append(c.byCategory[dest], r)
		category = dest
		idx = len(c.byCategory[dest]) - 1
		undo = func() {
			if destExisted {
				c.byCategory[dest] = destRs
			} else {
				delete(c.byCategory, dest)
			}
			c.byCategory[src] = srcRs
		}
	} else {
		prev := c.byCategory[category][idx]
		r := &c.byCategory[category][idx]
		switch field {
		case "title":
			old, r.Title = r.Title, value
		case "url":
			old, r.URL = r.URL, value
		case "description":
			old, r.Description = r.Description, value
		case "difficulty":
			old, r.Difficulty = r.Difficulty, strings.ToLower(value)
		}
		r.TouchUpdated(updatedBy, c.now())
		cat := category
		i := idx
		undo = func() { c.byCategory[cat][i] = prev }
	}

	if err := c.st.Save(fileName, c.byCategory); err != nil {
		undo()
		c.log.Error("resource save failed", logx.Int("id", id), logx.Err(err))
		return Found{}, "", fmt.Errorf("persist resources: %w", err)
	}
	c.log.Info("resource updated", logx.Int("id", id), logx.String("field", field))
	return Found{Category: category, Resource: c.byCategory[category][idx]}, old, nil
}

func (c *Catalog) locateLocked(id int) (string, int) {
	for category, rs := range c.byCategory {
		for i := range rs {
			if rs[i].ID == id {
				return category, i
			}
		}
	}
	return "", -1
}

// nextIDLocked computes max id across every category + 1 (1 when empty).
func (c *Catalog) nextIDLocked() int {
	maxID := 0
	for _, rs := range c.byCategory {
		for i := range rs {
			if rs[i].ID > maxID {
				maxID = rs[i].ID
			}
		}
	}
	return maxID + 1
}

func (c *Catalog) categoryNamesLocked() []string {
	names := make([]string, 0, len(c.byCategory))
	for name := range c.byCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func fieldAllowed(f string) bool {
	for _, a := range UpdatableFields {
		if f == a {
			return true
		}
	}
	return false
}
