// Package render turns a stored message into the text served to clients.
package render

import (
	"fmt"
	"strings"
	"terminal-messenger/domain"
	"terminal-messenger/domain/theme"
	"time"
	"unicode/utf8"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"
)

// TimestampLayout mimics the en-US locale rendering browsers produce.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

type Renderer struct {
	catalog  theme.Catalog
	location *time.Location
}

func NewRenderer(catalog theme.Catalog, location *time.Location) Renderer {
	if location == nil {
		location = time.UTC
	}
	return Renderer{catalog: catalog, location: location}
}

// Render substitutes the message into its theme and returns the display lines.
//
// The first wrapped line fills every {message} placeholder. The remaining
// wrapped lines are inserted right after the first template line holding the
// placeholder, each one a copy of that template line. The insertion point is
// the template line index, found on the raw template, so no wrapped line can
// get lost whatever the substituted text looks like.
//
// Boxed themes wrap by terminal display width so that wide characters keep
// the right border aligned. A single word wider than the box still overflows.
func (r Renderer) Render(msg domain.Message, colored bool) []string {
	tpl := r.catalog.Resolve(msg.Theme)
	wrapped := lo.Ternary(tpl.Boxed, WrapDisplay, Wrap)(msg.Content, theme.Width)
	timestamp := r.Timestamp(msg.CreatedAt)

	substitute := func(line, text string) string {
		if tpl.Boxed {
			text = runewidth.FillRight(text, theme.Width)
		}
		return strings.NewReplacer(
			theme.PlaceholderMessage, text,
			theme.PlaceholderID, msg.ID,
			theme.PlaceholderTimestamp, timestamp,
		).Replace(line)
	}

	lines := make([]string, 0, len(tpl.Lines)+len(wrapped)-1)
	inserted := false
	for _, line := range tpl.Lines {
		lines = append(lines, substitute(line, wrapped[0]))
		if inserted || !strings.Contains(line, theme.PlaceholderMessage) {
			continue
		}
		inserted = true
		for _, extra := range wrapped[1:] {
			lines = append(lines, substitute(line, extra))
		}
	}

	if colored {
		return Colorize(tpl.Color, lines)
	}
	return lines
}

// Plain is the undecorated rendering: the raw content and a newline.
func (r Renderer) Plain(msg domain.Message) string {
	return msg.Content + "\n"
}

// NotFound returns the panel shown to command-line clients for missing messages.
func (r Renderer) NotFound(colored bool) []string {
	lines := append([]string(nil), theme.NotFound.Lines...)
	if colored {
		return Colorize(theme.NotFound.Color, lines)
	}
	return lines
}

func (r Renderer) Timestamp(t time.Time) string {
	return t.In(r.location).Format(TimestampLayout)
}

// Catalog exposes the catalog the renderer resolves themes against.
func (r Renderer) Catalog() theme.Catalog {
	return r.catalog
}

// Colorize applies one terminal colour to every line. It writes the escape
// codes itself rather than going through color.Render, which strips them
// when the server process has no TTY attached.
func Colorize(c color.Color, lines []string) []string {
	return lo.Map(lines, func(line string, _ int) string {
		return fmt.Sprintf(color.FullColorTpl, c.Code(), line)
	})
}

// Wrap splits text into lines of at most width runes, breaking only between
// words. A word longer than width gets a line of its own and overflows.
// Explicit newlines are kept as line breaks; other whitespace runs collapse
// into single spaces. The result always has at least one line.
func Wrap(text string, width int) []string {
	return wrap(text, width, utf8.RuneCountInString)
}

// WrapDisplay is Wrap measuring terminal columns instead of runes, so an East
// Asian wide character counts for two.
func WrapDisplay(text string, width int) []string {
	return wrap(text, width, runewidth.StringWidth)
}

func wrap(text string, width int, measure func(string) int) []string {
	var out []string
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if measure(line)+1+measure(word) > width {
				out = append(out, line)
				line = word
				continue
			}
			line += " " + word
		}
		out = append(out, line)
	}
	return out
}
