package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/quotefilter/internal/filter"
	"github.com/jask/quotefilter/internal/page"
)

const (
	defaultWidth  = 80
	maxListRows   = 8
	// rows the results pane keeps when the widget block has to scroll
	minResultRows = 3
)

type targetKind int

const (
	targetNone targetKind = iota
	// targetInside is a row inside a widget that is neither its search
	// field nor an entry.
	targetInside
	targetSearch
	targetEntry
	targetApply
)

// target is what a press on one rendered row hits.
type target struct {
	kind   targetKind
	widget int
	entry  int
	// x0..x1 bounds the hit columns; x1 == 0 means the whole row.
	x0, x1 int
}

var noTarget = target{kind: targetNone, widget: -1, entry: -1}

func targetAt(targets []target, x, y int) target {
	if y < 0 || y >= len(targets) {
		return noTarget
	}
	t := targets[y]
	if t.x1 > 0 && (x < t.x0 || x >= t.x1) {
		return noTarget
	}
	return t
}

func (a *App) View() string {
	lines, _ := a.layout()
	return strings.Join(append(lines, a.renderFooter()), "\n")
}

// rows is a run of rendered lines with the target each one hits.
type rows struct {
	width   int
	lines   []string
	targets []target
}

func (r *rows) add(line string, t target) {
	r.lines = append(r.lines, ansi.Truncate(line, r.width, "…"))
	r.targets = append(r.targets, t)
}

func (r *rows) append(o rows) {
	r.lines = append(r.lines, o.lines...)
	r.targets = append(r.targets, o.targets...)
}

func (r rows) slice(from, to int) rows {
	return rows{width: r.width, lines: r.lines[from:to], targets: r.targets[from:to]}
}

// layout renders the page row by row and records what each row hits, so
// View and mouse handling always agree. With a known height the result
// never exceeds the terminal: the widget block scrolls to keep the focused
// widget's cursor in view and the results pane takes what is left.
func (a *App) layout() ([]string, []target) {
	width := a.width
	if width <= 0 {
		width = defaultWidth
	}

	head := rows{width: width}
	head.add(titleStyle.Render("Quote filters")+"  "+infoStyle.Render(a.source), noTarget)
	if n := len(a.skipped); n > 0 {
		head.add(skippedStyle.Render(fmt.Sprintf("%d filter(s) on this page could not be bound, see the log", n)), noTarget)
	}
	head.add("", noTarget)

	block, anchorStart, anchorEnd := a.widgetRows(width)

	tail := rows{width: width}
	button := applyStyle.Render("[ Apply filters ]")
	tail.add(button+"  "+a.renderStatus(), target{kind: targetApply, widget: -1, entry: -1, x0: 0, x1: lipgloss.Width(button)})
	tail.add("", noTarget)
	mode := "text"
	if a.rawResults {
		mode = "raw"
	}
	tail.add(resultsTitleStyle.Render("Results")+searchPromptStyle.Render(" ("+mode+")"), noTarget)

	body := rows{width: width}
	lines := a.resultLines()
	if len(lines) == 0 {
		body.add(noneStyle.Render("  (empty)"), noTarget)
	} else {
		for _, line := range lines[min(a.resultsOffset, len(lines)-1):] {
			body.add(resultsStyle.Render("  "+line), noTarget)
		}
	}

	budget := 0
	if a.height > 0 {
		budget = max(a.height-lipgloss.Height(a.renderFooter()), 1)
		fixed := len(head.lines) + len(tail.lines)
		blockRoom := max(budget-fixed-min(len(body.lines), minResultRows), 0)
		if len(block.lines) > blockRoom {
			top := scrollTop(len(block.lines), blockRoom, anchorStart, anchorEnd)
			block = block.slice(top, top+blockRoom)
		}
		bodyRoom := max(budget-fixed-len(block.lines), 0)
		body = body.slice(0, min(len(body.lines), bodyRoom))
	}

	out := head
	out.append(block)
	out.append(tail)
	out.append(body)
	if budget > 0 && len(out.lines) > budget {
		out = out.slice(0, budget)
	}
	return out.lines, out.targets
}

// widgetRows renders every widget. anchorStart..anchorEnd spans the
// focused widget from its header to its cursor row, -1 when nothing has
// focus.
func (a *App) widgetRows(width int) (rows, int, int) {
	block := rows{width: width}
	anchorStart, anchorEnd := -1, -1
	for i, w := range a.ctrl.Widgets() {
		inside := target{kind: targetInside, widget: i, entry: -1}
		if i == a.focus {
			anchorStart = len(block.lines)
		}
		block.add(a.renderHeader(i, w), inside)
		block.add(searchPromptStyle.Render("  search: ")+a.inputs[i].View(), target{kind: targetSearch, widget: i, entry: -1})
		if i == a.focus {
			anchorEnd = len(block.lines) - 1
		}
		if w.IsOpen() {
			visible := w.VisibleIndexes()
			if len(visible) == 0 {
				hint := "    no matches"
				if s, ok := w.Suggestion(); ok {
					hint += ", did you mean " + strconv.Quote(s) + "?"
				}
				block.add(hintStyle.Render(hint), inside)
			}
			start, end := listWindow(len(visible), a.cursor[i], maxListRows)
			for pos := start; pos < end; pos++ {
				e, _ := w.Entry(visible[pos])
				isCursor := i == a.focus && pos == a.cursor[i]
				if isCursor {
					anchorEnd = len(block.lines)
				}
				block.add(renderEntry(e, isCursor), target{kind: targetEntry, widget: i, entry: visible[pos]})
			}
		}
		block.add("", noTarget)
	}
	return block, anchorStart, anchorEnd
}

// scrollTop picks the first of n rows to show in a window of size rows so
// that anchorEnd is visible, and anchorStart too when both fit.
func scrollTop(n, size, anchorStart, anchorEnd int) int {
	if size <= 0 || n <= size || anchorStart < 0 {
		return 0
	}
	if anchorEnd-anchorStart+1 > size {
		return anchorEnd - size + 1
	}
	return min(anchorStart, n-size)
}

func (a *App) resultLines() []string {
	markup := a.ctrl.Results()
	if a.rawResults {
		if strings.TrimSpace(markup) == "" {
			return nil
		}
		return strings.Split(strings.ReplaceAll(markup, "\t", "  "), "\n")
	}
	return page.TextRows(markup)
}

func (a *App) renderHeader(i int, w *filter.Widget) string {
	marker := "▸ "
	if w.IsOpen() {
		marker = "▾ "
	}
	style := groupStyle
	if i == a.focus {
		style = groupFocusStyle
	}
	head := style.Render(marker + w.Group())

	labels := w.SelectedLabels()
	if len(labels) == 0 {
		return head + "  " + noneStyle.Render("none selected")
	}
	badges := make([]string, len(labels))
	for j, l := range labels {
		badges[j] = badgeStyle.Render(l)
	}
	return head + "  " + strings.Join(badges, " ")
}

func renderEntry(e filter.Entry, isCursor bool) string {
	mark := "[ ] "
	style := entryStyle
	if e.Selected {
		mark = "[x] "
		style = entrySelectedStyle
	}
	row := style.Render("    " + mark + e.Label)
	if isCursor {
		row = entryCursorStyle.Render("  > " + mark + e.Label)
	}
	return row
}

func (a *App) renderStatus() string {
	switch {
	case a.inFlight > 0:
		return pendingStyle.Render("loading…")
	case a.ctrl.Applied() > 0:
		return appliedStyle.Render(fmt.Sprintf("showing request #%d", a.ctrl.Applied()))
	default:
		return noneStyle.Render("showing server rendering")
	}
}

func (a *App) renderFooter() string {
	parts := make([]string, 0, len(a.keys.ShortHelp()))
	for _, b := range a.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	content := strings.Join(parts, "  ")
	if a.width == 0 {
		return footerStyle.Render(content)
	}
	return footerStyle.Width(a.width).Render(ansi.Truncate(content, max(a.width-4, 1), "…"))
}

// listWindow returns the slice of n entries to show so that cursor stays
// in view.
func listWindow(n, cursor, size int) (int, int) {
	if n <= size {
		return 0, n
	}
	start := min(max(cursor-size+1, 0), n-size)
	return start, start + size
}
