package filter

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Payload maps a group id to its selected values in option order.
// Groups with nothing selected are absent.
type Payload map[string][]string

// MarshalJSON always yields an object, "{}" for an empty payload.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string][]string(p))
}

// Request is one Apply: the payload and the sequence it was issued under.
type Request struct {
	Seq     uint64
	Payload Payload
}

// Controller owns every widget instance on a page, the single outside-click
// dispatcher and the results container.
type Controller struct {
	widgets []*Widget
	byGroup map[string]*Widget
	seq     uint64
	results string
	applied uint64
	logger  *slog.Logger
}

// NewController binds the widgets in page order. initial is the results
// container's content as rendered by the server.
func NewController(widgets []*Widget, initial string, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		byGroup: make(map[string]*Widget, len(widgets)),
		results: initial,
		logger:  logger,
	}
	for _, w := range widgets {
		if w == nil {
			continue
		}
		if _, dup := c.byGroup[w.Group()]; dup {
			return nil, fmt.Errorf("filter: duplicate group %q", w.Group())
		}
		c.byGroup[w.Group()] = w
		c.widgets = append(c.widgets, w)
	}
	return c, nil
}

// Widgets returns the bound widgets in page order.
func (c *Controller) Widgets() []*Widget {
	return append([]*Widget(nil), c.widgets...)
}

// Widget looks up the widget bound to group.
func (c *Controller) Widget(group string) (*Widget, bool) {
	w, ok := c.byGroup[group]
	return w, ok
}

// Click dispatches one pointer press. owner is the widget containing the
// press, nil when it landed outside every widget; entry is the pressed list
// item or -1. Every widget other than owner closes. It reports whether an
// entry was toggled.
func (c *Controller) Click(owner *Widget, entry int) bool {
	for _, w := range c.widgets {
		if w != owner {
			w.Close()
		}
	}
	if owner == nil || entry < 0 {
		return false
	}
	return owner.Toggle(entry)
}

// CloseAll is a press outside every widget.
func (c *Controller) CloseAll() { c.Click(nil, -1) }

// ClearAll unselects every entry of every widget.
func (c *Controller) ClearAll() {
	for _, w := range c.widgets {
		w.Clear()
	}
}

// Payload aggregates the current selection of every widget.
func (c *Controller) Payload() Payload {
	p := Payload{}
	for _, w := range c.widgets {
		values := w.SelectedValues()
		if len(values) == 0 {
			continue
		}
		p[w.Group()] = values
	}
	return p
}

// Apply builds a payload and issues the next sequence number for it.
func (c *Controller) Apply() Request {
	c.seq++
	req := Request{Seq: c.seq, Payload: c.Payload()}
	c.logger.Debug("filter apply", "seq", req.Seq, "groups", len(req.Payload))
	return req
}

// Latest is the sequence of the most recent Apply, 0 before the first.
func (c *Controller) Latest() uint64 { return c.seq }

// Resolve applies the outcome of request seq. A failed request leaves the
// results untouched. A successful one replaces them only if seq is still
// the latest issued; older responses are dropped.
func (c *Controller) Resolve(seq uint64, body string, err error) bool {
	if err != nil {
		c.logger.Error("filter request failed", "seq", seq, "err", err)
		return false
	}
	if seq != c.seq {
		c.logger.Debug("dropping stale filter response", "seq", seq, "latest", c.seq)
		return false
	}
	c.results = body
	c.applied = seq
	return true
}

// Results is the results container's current markup, verbatim.
func (c *Controller) Results() string { return c.results }

// Applied is the sequence whose response is currently displayed, 0 for the
// server's initial rendering.
func (c *Controller) Applied() uint64 { return c.applied }
