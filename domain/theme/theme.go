// Package theme holds the static catalog of ASCII-art templates a message
// can be rendered with. The catalog is data: adding a theme means adding an
// entry to the table below, nothing else.
package theme

import (
	"fmt"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"
)

const (
	PlaceholderMessage   = "{message}"
	PlaceholderID        = "{id}"
	PlaceholderTimestamp = "{timestamp}"

	// Width is the column budget of a wrapped message line. Boxed templates
	// are drawn for exactly this width.
	Width = 50

	DefaultID = "classic"
)

// Template is one entry of the catalog.
type Template struct {
	ID          string
	DisplayName string
	Color       color.Color
	// Boxed templates have a right border after the message placeholder,
	// so message lines get padded to Width.
	Boxed bool
	Lines []string
}

var templates = []Template{
	{
		ID:          "classic",
		DisplayName: "Classic",
		Color:       color.FgCyan,
		Boxed:       true,
		Lines: []string{
			rule("╭", "─", "╮"),
			row("│", "📨 Terminal Message", "│"),
			rule("├", "─", "┤"),
			messageRow("│", "│"),
			rule("╰", "─", "╯"),
			"  id: " + PlaceholderID + "  ·  " + PlaceholderTimestamp,
		},
	},
	{
		ID:          "heart",
		DisplayName: "Heart",
		Color:       color.FgMagenta,
		Lines: []string{
			`    .-~~-.   .-~~-.`,
			`   /      \ /      \`,
			`   \       v       /`,
			`    '.    love   .'`,
			`      '.       .'`,
			`        '.   .'`,
			`          '.'`,
			``,
			`  ♥ ` + PlaceholderMessage,
			``,
			`  sent with love · ` + PlaceholderID + ` · ` + PlaceholderTimestamp,
		},
	},
	{
		ID:          "retro",
		DisplayName: "Retro Terminal",
		Color:       color.FgGreen,
		Boxed:       true,
		Lines: []string{
			rule("+", "-", "+"),
			row("|", ">>> INCOMING TRANSMISSION", "|"),
			rule("+", "-", "+"),
			messageRow("|", "|"),
			rule("+", "-", "+"),
			"  [" + PlaceholderID + "] " + PlaceholderTimestamp,
			"  >>> END OF TRANSMISSION_",
		},
	},
	{
		ID:          "cat",
		DisplayName: "Cat Says",
		Color:       color.FgYellow,
		Boxed:       true,
		Lines: []string{
			rule(" ", "_", " "),
			messageRow("<", ">"),
			rule(" ", "-", " "),
			`        \`,
			`         \  /\_/\`,
			`           ( o.o )   ` + PlaceholderID,
			`            > ^ <    ` + PlaceholderTimestamp,
		},
	},
	{
		ID:          "minimal",
		DisplayName: "Minimal",
		Color:       color.FgWhite,
		Lines: []string{
			PlaceholderMessage,
			"",
			"-- " + PlaceholderID + " · " + PlaceholderTimestamp,
		},
	},
	{
		ID:          "alert",
		DisplayName: "Alert",
		Color:       color.FgRed,
		Boxed:       true,
		Lines: []string{
			rule("┏", "━", "┓"),
			row("┃", "/!\\ ATTENTION /!\\", "┃"),
			rule("┣", "━", "┫"),
			messageRow("┃", "┃"),
			rule("┗", "━", "┛"),
			"  " + PlaceholderID + " · " + PlaceholderTimestamp,
		},
	},
}

// NotFound is the panel served to command-line clients for unknown or
// expired identifiers. It has no placeholders.
var NotFound = Template{
	ID:          "not-found",
	DisplayName: "Not Found",
	Color:       color.FgRed,
	Lines: []string{
		rule("╭", "─", "╮"),
		row("│", "✗ Message not found or expired", "│"),
		row("│", "Links only live for a limited time.", "│"),
		rule("╰", "─", "╯"),
	},
}

func rule(left, fill, right string) string {
	return left + strings.Repeat(fill, Width+2) + right
}

func row(left, text, right string) string {
	return left + " " + runewidth.FillRight(text, Width) + " " + right
}

func messageRow(left, right string) string {
	return left + " " + PlaceholderMessage + " " + right
}

// Catalog resolves theme identifiers against the static table.
type Catalog struct {
	byID      map[string]Template
	defaultID string
}

// NewCatalog builds the catalog and checks that defaultID names a known theme.
// An empty defaultID selects DefaultID.
func NewCatalog(defaultID string) (Catalog, error) {
	if defaultID == "" {
		defaultID = DefaultID
	}
	byID := lo.KeyBy(templates, func(t Template) string { return t.ID })
	if _, ok := byID[defaultID]; !ok {
		return Catalog{}, fmt.Errorf("default theme %q is not in the catalog", defaultID)
	}
	return Catalog{byID: byID, defaultID: defaultID}, nil
}

// MustCatalog is NewCatalog for the built-in default.
func MustCatalog() Catalog {
	c, err := NewCatalog(DefaultID)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

func (c Catalog) Lookup(id string) (Template, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Resolve never fails: unset or unknown identifiers fall back to the default theme.
func (c Catalog) Resolve(id string) Template {
	if t, ok := c.byID[id]; ok {
		return t
	}
	return c.byID[c.defaultID]
}

func (c Catalog) Default() Template {
	return c.byID[c.defaultID]
}

// All returns the templates in catalog order.
func (c Catalog) All() []Template {
	return lo.Filter(templates, func(t Template, _ int) bool { return c.Has(t.ID) })
}
