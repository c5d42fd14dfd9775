package bot

import (
	"fmt"
	"strings"

	"senseibot/internal/events"
	"senseibot/internal/resources"
	"senseibot/internal/transport"
	"senseibot/pkg/tgui"
)

func usageText(usage string) string {
	return tgui.JoinH(" ", tgui.Esc("Usage:"), tgui.Code(usage)).String()
}

func renderEventList(upcoming []events.Upcoming, limit int) string {
	if len(upcoming) == 0 {
		return tgui.Esc("No upcoming events. Admins can add one with /event add.").String()
	}
	shown := upcoming
	if len(shown) > limit {
		shown = shown[:limit]
	}

	lines := []tgui.H{tgui.B("Upcoming events")}
	for _, up := range shown {
		ev := up.Event
		location := strings.TrimSpace(ev.Location)
		if location == "" {
			location = "online"
		}
		head := tgui.JoinH(" ",
			tgui.Raw("📅"),
			tgui.B(fmt.Sprintf("#%d %s", ev.ID, ev.Name)),
			tgui.Esc("("+ev.Date+")"))
		detail := tgui.JoinH(" ", tgui.I(location), tgui.Esc(ev.Description))
		if strings.TrimSpace(ev.URL) != "" {
			detail = tgui.JoinH(" ", detail, tgui.Link("details", ev.URL))
		}
		lines = append(lines, head, detail)
	}
	if len(upcoming) > limit {
		lines = append(lines, tgui.I(fmt.Sprintf("...and %d more", len(upcoming)-limit)))
	}
	return tgui.JoinH("\n", lines...).String()
}

// renderEventAdded confirms the add. unsaved names optional fields whose
// follow-up write failed; the event itself is already persisted.
func renderEventAdded(ev events.Event, unsaved []string) string {
	note := tgui.H("")
	if len(unsaved) > 0 {
		note = tgui.Esc(fmt.Sprintf("The event was added, but %s could not be saved.", strings.Join(unsaved, " and ")))
	}
	return tgui.JoinH("\n",
		tgui.JoinH(" ", tgui.Raw("✅"), tgui.B("Event added")),
		tgui.Esc(fmt.Sprintf("#%d %s", ev.ID, ev.Name)),
		tgui.Esc("When: "+ev.Date),
		note,
	).String()
}

func renderEventUpdated(ev events.Event, field, old string) string {
	return tgui.JoinH("\n",
		tgui.B(fmt.Sprintf("Event #%d updated", ev.ID)),
		tgui.JoinH(" ", tgui.Code(field+":"), tgui.Esc(old), tgui.Raw("→"), tgui.Esc(fieldValue(ev, field))),
	).String()
}

func fieldValue(ev events.Event, field string) string {
	switch field {
	case "name":
		return ev.Name
	case "date":
		return ev.Date
	case "description":
		return ev.Description
	case "location":
		return ev.Location
	case "url":
		return ev.URL
	}
	return ""
}

func renderCategories(cats []resources.CategorySummary) string {
	if len(cats) == 0 {
		return tgui.Esc("No resources yet. Admins can add one with /resource add.").String()
	}
	lines := []tgui.H{tgui.B("Resource categories")}
	for _, c := range cats {
		lines = append(lines, tgui.JoinH(" ",
			tgui.Raw("📚"),
			tgui.Code(c.Name),
			tgui.Esc(fmt.Sprintf("(%d)", c.Count))))
	}
	lines = append(lines, tgui.I("Use /resource list <category> to see entries."))
	return tgui.JoinH("\n", lines...).String()
}

func renderCategory(category string, rs []resources.Resource) string {
	lines := []tgui.H{tgui.B("Resources: " + category)}
	for _, r := range rs {
		lines = append(lines, tgui.Raw(renderResourceLine(r)))
	}
	return tgui.JoinH("\n", lines...).String()
}

func renderResourceLine(r resources.Resource) string {
	parts := []tgui.H{
		tgui.Esc(fmt.Sprintf("#%d", r.ID)),
		tgui.Link(r.Title, r.URL),
		tgui.I("[" + r.Difficulty + "]"),
	}
	if strings.TrimSpace(r.Description) != "" {
		parts = append(parts, tgui.Esc("- "+r.Description))
	}
	return tgui.JoinH(" ", parts...).String()
}

func renderResourceAdded(category string, r resources.Resource) string {
	return tgui.JoinH("\n",
		tgui.JoinH(" ", tgui.Raw("✅"), tgui.B("Resource added to "+category)),
		tgui.Raw(renderResourceLine(r)),
	).String()
}

func renderResourceUpdated(f resources.Found, field, old string) string {
	return tgui.JoinH("\n",
		tgui.B(fmt.Sprintf("Resource #%d updated", f.Resource.ID)),
		tgui.JoinH(" ", tgui.Code(field+":"), tgui.Esc(old), tgui.Raw("→"), tgui.Esc(resourceFieldValue(f, field))),
	).String()
}

func resourceFieldValue(f resources.Found, field string) string {
	switch field {
	case "title":
		return f.Resource.Title
	case "url":
		return f.Resource.URL
	case "description":
		return f.Resource.Description
	case "difficulty":
		return f.Resource.Difficulty
	case "category":
		return f.Category
	}
	return ""
}

func renderSearchResults(term string, found []resources.Found, limit int) string {
	if len(found) == 0 {
		return tgui.Esc(fmt.Sprintf("Nothing found for %q.", term)).String()
	}
	shown := found
	if len(shown) > limit {
		shown = shown[:limit]
	}
	lines := []tgui.H{tgui.B(fmt.Sprintf("Search results for %q", term))}
	for _, f := range shown {
		lines = append(lines, tgui.JoinH(" ",
			tgui.Code(f.Category),
			tgui.Raw(renderResourceLine(f.Resource))))
	}
	if len(found) > limit {
		lines = append(lines, tgui.I(fmt.Sprintf("...and %d more", len(found)-limit)))
	}
	return tgui.JoinH("\n", lines...).String()
}

func renderTopic(topic string) string {
	return tgui.JoinH(" ",
		tgui.Raw("💡"),
		tgui.Esc("Today's study topic:"),
		tgui.B(topic)).String()
}

func renderAbout() string {
	return tgui.JoinH("\n",
		tgui.B("senseibot"),
		tgui.Esc("A community bot for AI learners: event reminders, curated resources, and a teaching assistant."),
		tgui.Esc("Try /help to see what I can do."),
	).String()
}

func renderAnswer(answer string) string {
	return tgui.Esc(answer).String()
}

func renderWelcome(u transport.JoinedUser, message string) string {
	return tgui.JoinH("\n",
		tgui.JoinH(" ", tgui.Raw("🌟"), tgui.B("Welcome!"), tgui.Mention(u.Name, u.ID)),
		tgui.Esc(message),
		tgui.I("Type /help to get started."),
	).String()
}

// renderHelp lists commands the requester can run.
func renderHelp(cmds []Command, isAdmin bool) string {
	lines := []tgui.H{tgui.B("Commands")}
	for _, c := range cmds {
		if c.Access == AccessAdminOnly && !isAdmin {
			continue
		}
		usage := c.Usage
		if usage == "" {
			usage = "/" + c.Route
		}
		lines = append(lines, tgui.JoinH(" ", tgui.Code(usage), tgui.Raw("—"), tgui.Esc(c.Description)))
	}
	return tgui.JoinH("\n", lines...).String()
}
