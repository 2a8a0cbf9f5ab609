package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// State is the visibility of a widget's option list.
type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	default:
		return "closed"
	}
}

// Option is one entry sourced from the backing selector.
type Option struct {
	Label string
	Value string
}

// WidgetConfig describes one widget instance: the backing selector's id and
// its options in document order.
type WidgetConfig struct {
	Group   string
	Options []Option
}

// Entry is a read-only view of one list item.
type Entry struct {
	Option
	Selected bool
	Visible  bool
}

type entry struct {
	opt      Option
	selected bool
	hidden   bool
}

// Widget is the handle for one multiselect dropdown bound to one group.
type Widget struct {
	group   string
	entries []entry
	query   string
	state   State
}

var errEmptyGroup = errors.New("filter: widget group id is empty")

// NewWidget builds a closed widget with nothing selected. The group must be
// non-empty and option values unique.
func NewWidget(cfg WidgetConfig) (*Widget, error) {
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		return nil, errEmptyGroup
	}
	seen := make(map[string]bool, len(cfg.Options))
	entries := make([]entry, 0, len(cfg.Options))
	for _, opt := range cfg.Options {
		if seen[opt.Value] {
			return nil, fmt.Errorf("filter: group %q: duplicate option value %q", group, opt.Value)
		}
		seen[opt.Value] = true
		entries = append(entries, entry{opt: opt})
	}
	return &Widget{group: group, entries: entries}, nil
}

// Group is the backing selector's id.
func (w *Widget) Group() string {
	if w == nil {
		return ""
	}
	return w.group
}

// State reports whether the option list is shown.
func (w *Widget) State() State {
	if w == nil {
		return Closed
	}
	return w.state
}

// IsOpen is shorthand for State() == Open.
func (w *Widget) IsOpen() bool { return w.State() == Open }

// Focus is the search field's focus-in: it reveals the option list.
func (w *Widget) Focus() {
	if w == nil {
		return
	}
	w.state = Open
}

// Close hides the option list. Selection and query are kept.
func (w *Widget) Close() {
	if w == nil {
		return
	}
	w.state = Closed
}

// Len is the number of options, hidden ones included.
func (w *Widget) Len() int {
	if w == nil {
		return 0
	}
	return len(w.entries)
}

// Entry returns entry i, false when i is out of range.
func (w *Widget) Entry(i int) (Entry, bool) {
	if w == nil || i < 0 || i >= len(w.entries) {
		return Entry{}, false
	}
	e := w.entries[i]
	return Entry{Option: e.opt, Selected: e.selected, Visible: !e.hidden}, true
}

// Entries returns every entry in option order.
func (w *Widget) Entries() []Entry {
	if w == nil {
		return nil
	}
	out := make([]Entry, len(w.entries))
	for i, e := range w.entries {
		out[i] = Entry{Option: e.opt, Selected: e.selected, Visible: !e.hidden}
	}
	return out
}

// VisibleIndexes returns the indexes of entries not hidden by the query.
func (w *Widget) VisibleIndexes() []int {
	if w == nil {
		return nil
	}
	out := make([]int, 0, len(w.entries))
	for i, e := range w.entries {
		if !e.hidden {
			out = append(out, i)
		}
	}
	return out
}

// Toggle flips entry i. It is a no-op unless the widget is open and the
// entry is visible. It never changes the open/closed state.
func (w *Widget) Toggle(i int) bool {
	if w == nil || w.state != Open || i < 0 || i >= len(w.entries) {
		return false
	}
	if w.entries[i].hidden {
		return false
	}
	w.entries[i].selected = !w.entries[i].selected
	return true
}

// Query is the current search text.
func (w *Widget) Query() string {
	if w == nil {
		return ""
	}
	return w.query
}

// SetQuery hides every entry whose label does not contain q, ignoring case.
// Selection is untouched.
func (w *Widget) SetQuery(q string) {
	if w == nil {
		return
	}
	w.query = q
	needle := strings.ToLower(q)
	for i := range w.entries {
		label := strings.ToLower(w.entries[i].opt.Label)
		w.entries[i].hidden = !strings.Contains(label, needle)
	}
}

// Clear unselects every entry.
func (w *Widget) Clear() {
	if w == nil {
		return
	}
	for i := range w.entries {
		w.entries[i].selected = false
	}
}

// Selected is the widget's selection set in option order.
func (w *Widget) Selected() []Option {
	if w == nil {
		return nil
	}
	var out []Option
	for _, e := range w.entries {
		if e.selected {
			out = append(out, e.opt)
		}
	}
	return out
}

// SelectedValues is what the widget contributes to a filter request.
func (w *Widget) SelectedValues() []string {
	sel := w.Selected()
	if len(sel) == 0 {
		return nil
	}
	out := make([]string, len(sel))
	for i, o := range sel {
		out[i] = o.Value
	}
	return out
}

// SelectedLabels is what the "selected options" display shows.
func (w *Widget) SelectedLabels() []string {
	sel := w.Selected()
	if len(sel) == 0 {
		return nil
	}
	out := make([]string, len(sel))
	for i, o := range sel {
		out[i] = o.Label
	}
	return out
}

// Suggestion returns the label closest to the query when the query hides
// every entry.
func (w *Widget) Suggestion() (string, bool) {
	if w == nil || w.query == "" || len(w.entries) == 0 {
		return "", false
	}
	if len(w.VisibleIndexes()) > 0 {
		return "", false
	}
	q := strings.ToLower(w.query)
	best, bestDist := "", -1
	for _, e := range w.entries {
		d := levenshtein.ComputeDistance(q, strings.ToLower(e.opt.Label))
		if bestDist < 0 || d < bestDist {
			best, bestDist = e.opt.Label, d
		}
	}
	// Only hint when the query is a plausible typo of the label.
	if bestDist > max(2, len([]rune(q))/2) {
		return "", false
	}
	return best, true
}
