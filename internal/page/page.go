// Package page binds filter widgets to a server-rendered quote page.
//
// The markup contract: every widget container is immediately preceded by
// its backing <select>, whose id names the filter group, and holds a search
// input, an option list and a selected-options display. The page carries a
// csrf meta tag, a results container and an apply control.
package page

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jask/quotefilter/internal/filter"
)

// Selectors names the elements of the markup contract. Class names for the
// per-widget parts, ids for the page-level controls.
type Selectors struct {
	Widget   string
	Search   string
	Options  string
	Selected string
	Results  string
	Apply    string
	CSRFMeta string
}

func (s Selectors) Validate() error {
	fields := []struct{ name, val string }{
		{"widget", s.Widget},
		{"search", s.Search},
		{"options", s.Options},
		{"selected", s.Selected},
		{"results", s.Results},
		{"apply", s.Apply},
		{"csrf meta", s.CSRFMeta},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.val) == "" {
			return fmt.Errorf("page: %s selector is empty", f.name)
		}
	}
	return nil
}

// MissingElementError reports a page-level element the client cannot work
// without.
type MissingElementError struct {
	Element  string
	Selector string
}

func (e *MissingElementError) Error() string {
	return fmt.Sprintf("page: missing %s (%s)", e.Element, e.Selector)
}

// InstanceError describes a widget instance that could not be bound.
// Instances are numbered from zero in document order.
type InstanceError struct {
	Index  int
	Group  string
	Reason string
}

func (e *InstanceError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("page: widget #%d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("page: widget #%d (%s): %s", e.Index, e.Group, e.Reason)
}

// Page is what the filter client learns from one page load.
type Page struct {
	Widgets   []filter.WidgetConfig
	Skipped   []error
	CSRFToken string
	// Results is the results container's content, re-rendered from the
	// parsed tree.
	Results string
	ApplyID string
}

// Parse reads a page and binds its widgets. Page-level elements are
// required; a broken widget instance is recorded in Skipped and the rest
// still bind.
func Parse(r io.Reader, sel Selectors) (*Page, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("page: parse: %w", err)
	}

	var (
		token     *string
		results   *html.Node
		apply     *html.Node
		instances []*html.Node
	)
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if n.DataAtom == atom.Meta && attr(n, "name") == sel.CSRFMeta && token == nil {
			v := attr(n, "content")
			token = &v
		}
		if id := attr(n, "id"); id != "" {
			if id == sel.Results && results == nil {
				results = n
			}
			if id == sel.Apply && apply == nil {
				apply = n
			}
		}
		if hasClass(n, sel.Widget) {
			instances = append(instances, n)
			return false
		}
		return true
	})

	if token == nil || strings.TrimSpace(*token) == "" {
		return nil, &MissingElementError{Element: "anti-forgery token", Selector: `meta[name="` + sel.CSRFMeta + `"]`}
	}
	if results == nil {
		return nil, &MissingElementError{Element: "results container", Selector: "#" + sel.Results}
	}
	if apply == nil {
		return nil, &MissingElementError{Element: "apply control", Selector: "#" + sel.Apply}
	}

	p := &Page{
		CSRFToken: strings.TrimSpace(*token),
		ApplyID:   sel.Apply,
	}
	p.Results, err = innerHTML(results)
	if err != nil {
		return nil, fmt.Errorf("page: render results: %w", err)
	}

	claimed := make(map[string]int)
	for i, n := range instances {
		cfg, err := bindInstance(i, n, sel)
		if err != nil {
			p.Skipped = append(p.Skipped, err)
			continue
		}
		if first, dup := claimed[cfg.Group]; dup {
			p.Skipped = append(p.Skipped, &InstanceError{
				Index:  i,
				Group:  cfg.Group,
				Reason: fmt.Sprintf("group already bound by widget #%d", first),
			})
			continue
		}
		claimed[cfg.Group] = i
		p.Widgets = append(p.Widgets, cfg)
	}
	return p, nil
}

func bindInstance(i int, n *html.Node, sel Selectors) (filter.WidgetConfig, error) {
	backing := prevElement(n)
	if backing == nil || backing.DataAtom != atom.Select {
		return filter.WidgetConfig{}, &InstanceError{Index: i, Reason: "no backing select precedes the widget"}
	}
	group := strings.TrimSpace(attr(backing, "id"))
	if group == "" {
		return filter.WidgetConfig{}, &InstanceError{Index: i, Reason: "backing select has no id"}
	}
	parts := []struct {
		name string
		find func(*html.Node) bool
	}{
		{"search input", func(c *html.Node) bool { return c.DataAtom == atom.Input && hasClass(c, sel.Search) }},
		{"option list", func(c *html.Node) bool { return hasClass(c, sel.Options) }},
		{"selected display", func(c *html.Node) bool { return hasClass(c, sel.Selected) }},
	}
	for _, part := range parts {
		if findDescendant(n, part.find) == nil {
			return filter.WidgetConfig{}, &InstanceError{Index: i, Group: group, Reason: "missing " + part.name}
		}
	}

	cfg := filter.WidgetConfig{Group: group}
	seen := make(map[string]bool)
	walk(backing, func(c *html.Node) bool {
		if c.Type != html.ElementNode || c.DataAtom != atom.Option {
			return true
		}
		label := strings.Join(strings.Fields(textContent(c)), " ")
		value, ok := attrOK(c, "value")
		if !ok {
			value = label
		}
		// values are unique within a group; later duplicates are dropped
		if !seen[value] {
			seen[value] = true
			cfg.Options = append(cfg.Options, filter.Option{Label: label, Value: value})
		}
		return false
	})
	return cfg, nil
}

// Bind turns a parsed page into widget handles, skipping any instance the
// filter package rejects.
func (p *Page) Bind() ([]*filter.Widget, []error) {
	var (
		widgets []*filter.Widget
		errs    []error
	)
	for _, cfg := range p.Widgets {
		w, err := filter.NewWidget(cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		widgets = append(widgets, w)
	}
	return widgets, errs
}

// SkippedErr joins every skip reason, nil when all instances bound.
func (p *Page) SkippedErr() error {
	return errors.Join(p.Skipped...)
}

func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findDescendant(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := findDescendant(c, match); found != nil {
			return found
		}
	}
	return nil
}

// prevElement mirrors the DOM's previousElementSibling.
func prevElement(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

func innerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
