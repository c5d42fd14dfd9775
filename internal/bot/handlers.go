package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"senseibot/internal/events"
	"senseibot/internal/llm"
	"senseibot/internal/resources"
	"senseibot/internal/storage"
	"senseibot/internal/transport"
	logx "senseibot/pkg/logx"
)

const (
	// maxEventsShown caps /event list output.
	maxEventsShown = 5
	// maxSearchShown caps /resource search output.
	maxSearchShown = 10
)

// Handlers owns the command implementations and their dependencies.
type Handlers struct {
	events    *events.Catalog
	resources *resources.Catalog
	ask       *llm.Client  // nil when the LLM is disabled
	store     storage.Store // nil when storage is disabled
	log       logx.Logger
	now       func() time.Time
}

func NewHandlers(ev *events.Catalog, rs *resources.Catalog, ask *llm.Client, store storage.Store, log logx.Logger) *Handlers {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handlers{
		events:    ev,
		resources: rs,
		ask:       ask,
		store:     store,
		log:       log,
		now:       time.Now,
	}
}

// Commands returns the full command registry.
func (h *Handlers) Commands() []Command {
	cmds := []Command{
		{
			Route:       "event list",
			Aliases:     []string{"events"},
			Description: "show upcoming events",
			Usage:       "/event list",
			Handle:      h.eventList,
		},
		{
			Route:       "event add",
			Description: "add an event",
			Usage:       `/event add "<name>" "<YYYY-MM-DD HH:MM>" "<description>"`,
			Access:      AccessAdminOnly,
			Handle:      h.eventAdd,
		},
		{
			Route:       "event delete",
			Description: "delete an event by id",
			Usage:       "/event delete <id>",
			Access:      AccessAdminOnly,
			Handle:      h.eventDelete,
		},
		{
			Route:       "event update",
			Description: "update one event field",
			Usage:       `/event update <id> <field> "<value>"`,
			Access:      AccessAdminOnly,
			Handle:      h.eventUpdate,
		},
		{
			Route:       "resource list",
			Aliases:     []string{"resources"},
			Description: "list resource categories or one category",
			Usage:       "/resource list [category]",
			Handle:      h.resourceList,
		},
		{
			Route:       "resource add",
			Description: "add a learning resource",
			Usage:       `/resource add <category> "<title>" <url> ["<description>"] [difficulty]`,
			Access:      AccessAdminOnly,
			Handle:      h.resourceAdd,
		},
		{
			Route:       "resource search",
			Description: "search resources by keyword",
			Usage:       "/resource search <term>",
			Handle:      h.resourceSearch,
		},
		{
			Route:       "resource delete",
			Description: "delete a resource by id",
			Usage:       "/resource delete <id>",
			Access:      AccessAdminOnly,
			Handle:      h.resourceDelete,
		},
		{
			Route:       "resource update",
			Description: "update one resource field",
			Usage:       `/resource update <id> <field> "<value>"`,
			Access:      AccessAdminOnly,
			Handle:      h.resourceUpdate,
		},
		{
			Route:       "topic",
			Description: "suggest a random study topic",
			Usage:       "/topic",
			Handle:      h.topic,
		},
		{
			Route:       "about",
			Description: "about this bot",
			Usage:       "/about",
			Handle:      h.about,
		},
		{
			Route:       "ask",
			Description: "ask the teaching assistant a question",
			Usage:       "/ask <question>",
			Timeout:     2 * time.Minute,
			Handle:      h.askQuestion,
		},
	}
	return cmds
}

func (h *Handlers) audit(ctx context.Context, req *Request, catalog, action, target string, opErr error) {
	if h.store == nil {
		return
	}
	e := storage.AuditEntry{
		At:        h.now(),
		ActorID:   req.FromID,
		ActorName: req.FromName,
		ChatID:    req.Chat.ChatID,
		Catalog:   catalog,
		Action:    action,
		Target:    target,
	}
	if opErr != nil {
		e.Error = opErr.Error()
	}
	if err := h.store.AppendAudit(ctx, e); err != nil {
		h.log.Warn("audit append failed", logx.Err(err))
	}
}

func (h *Handlers) eventList(ctx context.Context, req *Request) error {
	upcoming := h.events.Upcoming(h.now())
	return req.Reply(ctx, renderEventList(upcoming, maxEventsShown))
}

func (h *Handlers) eventAdd(ctx context.Context, req *Request) error {
	if len(req.Args) < 3 {
		return req.Reply(ctx, usageText(`/event add "<name>" "<YYYY-MM-DD HH:MM>" "<description>"`))
	}
	name, date, description := req.Args[0], req.Args[1], req.Args[2]
	if _, err := events.ParseDate(date); err != nil {
		return req.Reply(ctx, "Date must look like 2025-04-01 18:00")
	}

	ev, err := h.events.Add(name, date, description, req.FromName)
	h.audit(ctx, req, "events", "add", name, err)
	if err != nil {
		return err
	}

	var unsaved []string
	if len(req.Args) > 3 {
		if _, _, uerr := h.events.Update(ev.ID, "location", req.Args[3], req.FromName); uerr != nil {
			h.log.Warn("event location not saved", logx.Int("id", ev.ID), logx.Err(uerr))
			unsaved = append(unsaved, "location")
		}
	}
	if len(req.Args) > 4 {
		if _, _, uerr := h.events.Update(ev.ID, "url", req.Args[4], req.FromName); uerr != nil {
			h.log.Warn("event url not saved", logx.Int("id", ev.ID), logx.Err(uerr))
			unsaved = append(unsaved, "url")
		}
	}
	if got, gerr := h.events.Get(ev.ID); gerr == nil {
		ev = got
	}
	return req.Reply(ctx, renderEventAdded(ev, unsaved))
}

func (h *Handlers) eventDelete(ctx context.Context, req *Request) error {
	if len(req.Args) < 1 {
		return req.Reply(ctx, usageText("/event delete <id>"))
	}
	id, ok := parseID(req.Args[0])
	if !ok {
		return req.Reply(ctx, "The id must be a positive number.")
	}

	ev, err := h.events.Delete(id)
	h.audit(ctx, req, "events", "delete", req.Args[0], err)
	var nf *events.NotFoundError
	if errors.As(err, &nf) {
		return req.Reply(ctx, nf.Error())
	}
	if err != nil {
		return err
	}
	return req.Reply(ctx, fmt.Sprintf("Deleted event #%d (%s).", ev.ID, ev.Name))
}

func (h *Handlers) eventUpdate(ctx context.Context, req *Request) error {
	if len(req.Args) < 3 {
		return req.Reply(ctx, usageText(`/event update <id> <field> "<value>"`))
	}
	id, ok := parseID(req.Args[0])
	if !ok {
		return req.Reply(ctx, "The id must be a positive number.")
	}
	field := req.Args[1]
	value := strings.Join(req.Args[2:], " ")
	if field == "date" {
		if _, err := events.ParseDate(value); err != nil {
			return req.Reply(ctx, "Date must look like 2025-04-01 18:00")
		}
	}

	ev, old, err := h.events.Update(id, field, value, req.FromName)
	h.audit(ctx, req, "events", "update", fmt.Sprintf("%d.%s", id, field), err)
	var nf *events.NotFoundError
	var inv *events.InvalidFieldError
	switch {
	case errors.As(err, &nf):
		return req.Reply(ctx, nf.Error())
	case errors.As(err, &inv):
		return req.Reply(ctx, inv.Error())
	case err != nil:
		return err
	}
	return req.Reply(ctx, renderEventUpdated(ev, field, old))
}

func (h *Handlers) resourceList(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return req.Reply(ctx, renderCategories(h.resources.Categories()))
	}
	category := req.Args[0]
	rs, err := h.resources.ByCategory(category)
	var nf *resources.NotFoundError
	if errors.As(err, &nf) {
		return req.Reply(ctx, nf.Error())
	}
	if err != nil {
		return err
	}
	return req.Reply(ctx, renderCategory(category, rs))
}

func (h *Handlers) resourceAdd(ctx context.Context, req *Request) error {
	if len(req.Args) < 3 {
		return req.Reply(ctx, usageText(`/resource add <category> "<title>" <url> ["<description>"] [difficulty]`))
	}
	category, title, url := req.Args[0], req.Args[1], req.Args[2]
	var description, difficulty string
	if len(req.Args) > 3 {
		description = req.Args[3]
	}
	if len(req.Args) > 4 {
		difficulty = req.Args[4]
	}

	r, err := h.resources.Add(category, title, url, description, difficulty, req.FromName)
	h.audit(ctx, req, "resources", "add", title, err)
	if err != nil {
		return err
	}
	return req.Reply(ctx, renderResourceAdded(category, r))
}

func (h *Handlers) resourceSearch(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return req.Reply(ctx, usageText("/resource search <term>"))
	}
	term := strings.Join(req.Args, " ")
	found := h.resources.Search(term)
	return req.Reply(ctx, renderSearchResults(term, found, maxSearchShown))
}

func (h *Handlers) resourceDelete(ctx context.Context, req *Request) error {
	if len(req.Args) < 1 {
		return req.Reply(ctx, usageText("/resource delete <id>"))
	}
	id, ok := parseID(req.Args[0])
	if !ok {
		return req.Reply(ctx, "The id must be a positive number.")
	}

	f, err := h.resources.Delete(id)
	h.audit(ctx, req, "resources", "delete", req.Args[0], err)
	var nf *resources.NotFoundError
	if errors.As(err, &nf) {
		return req.Reply(ctx, nf.Error())
	}
	if err != nil {
		return err
	}
	return req.Reply(ctx, fmt.Sprintf("Deleted resource #%d (%s) from %s.", f.Resource.ID, f.Resource.Title, f.Category))
}

func (h *Handlers) resourceUpdate(ctx context.Context, req *Request) error {
	if len(req.Args) < 3 {
		return req.Reply(ctx, usageText(`/resource update <id> <field> "<value>"`))
	}
	id, ok := parseID(req.Args[0])
	if !ok {
		return req.Reply(ctx, "The id must be a positive number.")
	}
	field := req.Args[1]
	value := strings.Join(req.Args[2:], " ")

	f, old, err := h.resources.Update(id, field, value, req.FromName)
	h.audit(ctx, req, "resources", "update", fmt.Sprintf("%d.%s", id, field), err)
	var nf *resources.NotFoundError
	var inv *resources.InvalidFieldError
	switch {
	case errors.As(err, &nf):
		return req.Reply(ctx, nf.Error())
	case errors.As(err, &inv):
		return req.Reply(ctx, inv.Error())
	case err != nil:
		return err
	}
	return req.Reply(ctx, renderResourceUpdated(f, field, old))
}

// studyTopics feeds /topic suggestions.
var studyTopics = []string{
	"machine learning", "deep learning", "natural language processing",
	"computer vision", "reinforcement learning", "generative AI",
	"AI models", "neural networks", "data science", "ethical AI",
	"applied AI", "transformers", "large language models",
	"AI and society", "autonomous systems",
}

func (h *Handlers) topic(ctx context.Context, req *Request) error {
	t := studyTopics[rand.Intn(len(studyTopics))]
	return req.Reply(ctx, renderTopic(t))
}

func (h *Handlers) about(ctx context.Context, req *Request) error {
	return req.Reply(ctx, renderAbout())
}

func (h *Handlers) askQuestion(ctx context.Context, req *Request) error {
	if h.ask == nil {
		return req.Reply(ctx, "The teaching assistant is not configured on this bot.")
	}
	if len(req.Args) == 0 {
		return req.Reply(ctx, usageText("/ask <question>"))
	}
	question := strings.Join(req.Args, " ")
	answer, err := h.ask.Ask(ctx, question)
	if err != nil {
		h.log.Warn("llm ask failed", logx.Err(err))
		return req.Reply(ctx, llm.FriendlyError)
	}
	return req.Reply(ctx, renderAnswer(answer))
}

// welcomeMessages greet new group members; one is picked at random.
var welcomeMessages = []string{
	"Welcome to the community! Let's learn AI together.",
	"Glad to have a new member on board. Ask anything, anytime.",
	"Welcome aboard! Your questions and ideas make this community better.",
}

// OnJoin returns the dispatcher callback that greets new group members.
func (h *Handlers) OnJoin(adapter transport.Adapter) func(ctx context.Context, j *transport.UserJoined) {
	return func(ctx context.Context, j *transport.UserJoined) {
		for _, u := range j.Users {
			text := renderWelcome(u, welcomeMessages[rand.Intn(len(welcomeMessages))])
			if _, err := adapter.SendText(ctx, transport.ChatTarget{ChatID: j.ChatID}, text, &transport.SendOptions{ParseMode: "HTML"}); err != nil {
				h.log.Warn("welcome message failed",
					logx.Int64("chat_id", j.ChatID),
					logx.Err(err))
			}
		}
	}
}
