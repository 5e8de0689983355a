package locale

import (
	"fmt"
	"time"
)

// messages holds every user-visible string, keyed by language then message
// key. User-facing failures are always a single short line from this table.
var messages = map[string]map[string]string{
	"en": {
		"error.load":           "Could not load tasks",
		"error.read":           "Could not read %s",
		"error.write":          "Could not write %s",
		"error.create":         "Could not create %s",
		"error.create_task":    "Could not create the task",
		"error.toggle":         "Could not update the task",
		"error.editor":         "Could not open the editor",
		"error.prompt_missing": "Task creation needs the index service",
		"notice.created":       "Task added to %s",
		"prompt.placeholder":   "New task for %s",
		"label.overdue":        "Overdue",
		"label.due":            "Due",
		"label.completed":      "Completed",
		"label.more":           "+%d more",
		"help.month":           "arrows move · enter open · h/l month · t today · a add · c done · r reload · q quit",
		"help.detail":          "j/k move · space toggle · ←/→ day · e edit · o open · esc close",
	},
	"de": {
		"error.load":           "Aufgaben konnten nicht geladen werden",
		"error.read":           "Konnte %s nicht lesen",
		"error.write":          "Konnte %s nicht schreiben",
		"error.create":         "Konnte %s nicht erstellen",
		"error.create_task":    "Aufgabe konnte nicht erstellt werden",
		"error.toggle":         "Aufgabe konnte nicht aktualisiert werden",
		"error.editor":         "Editor konnte nicht geöffnet werden",
		"error.prompt_missing": "Neue Aufgaben brauchen den Index-Dienst",
		"notice.created":       "Aufgabe in %s eingetragen",
		"prompt.placeholder":   "Neue Aufgabe für %s",
		"label.overdue":        "Überfällig",
		"label.due":            "Fällig",
		"label.completed":      "Erledigt",
		"label.more":           "+%d weitere",
		"help.month":           "Pfeile bewegen · Enter öffnen · h/l Monat · t heute · a neu · c erledigt · r neu laden · q beenden",
		"help.detail":          "j/k bewegen · Leertaste umschalten · ←/→ Tag · e bearbeiten · o öffnen · Esc schließen",
	},
}

var weekdayHeaders = map[string][]string{
	"en": {"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"},
	"de": {"Mo", "Di", "Mi", "Do", "Fr", "Sa", "So"},
}

var germanMonths = map[time.Month]string{
	time.January: "Januar", time.February: "Februar", time.March: "März",
	time.April: "April", time.May: "Mai", time.June: "Juni",
	time.July: "Juli", time.August: "August", time.September: "September",
	time.October: "Oktober", time.November: "November", time.December: "Dezember",
}

// T returns the localized message for key, formatted with args. Unknown
// languages fall back to English; unknown keys come back verbatim so a
// missing translation is visible instead of silent.
func T(lang, key string, args ...any) string {
	table, ok := messages[lang]
	if !ok {
		table = messages["en"]
	}
	msg, ok := table[key]
	if !ok {
		if msg, ok = messages["en"][key]; !ok {
			return key
		}
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// WeekdayHeaders returns the Monday-first column headers.
func WeekdayHeaders(lang string) []string {
	if h, ok := weekdayHeaders[lang]; ok {
		return h
	}
	return weekdayHeaders["en"]
}

// MonthName returns the localized month name for the grid's title label.
func MonthName(lang string, m time.Month) string {
	if lang == "de" {
		return germanMonths[m]
	}
	return m.String()
}
