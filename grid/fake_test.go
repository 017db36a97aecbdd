package grid

import (
	"context"
	"fmt"
	"strings"
	"time"
)

var testLocators = map[Role]Locator{
	RoleBusyIndicator:  XPath("//div[@class='loader']"),
	RoleGridContainer:  CSS("#grid"),
	RoleRowCollection:  CSS("tbody tr"),
	RoleNextButton:     CSS("button.next"),
	RolePreviousButton: CSS("button.prev"),
}

func mustLocators() Locators {
	locs, err := NewLocators(testLocators)
	if err != nil {
		panic(err)
	}
	return locs
}

// fakeTable is an in-memory paginated table driven through the Browser
// interface.
type fakeTable struct {
	pages [][][]string
	page  int

	noContainer bool
	noButtons   bool
	stuck       bool
	endless     bool
	lag         int
	pending     int
	failRows    error

	waits         int
	waitLoc       Locator
	waitTimeout   time.Duration
	nextClicks    int
	buttonFinds   int
	disabledReads int
	actions    []string
	checked    map[string]bool
}

func newFakeTable(pages ...[][]string) *fakeTable {
	return &fakeTable{pages: pages, checked: map[string]bool{}}
}

func (t *fakeTable) WaitAbsent(ctx context.Context, loc Locator, timeout time.Duration) error {
	t.waits++
	t.waitLoc = loc
	t.waitTimeout = timeout
	if t.pending > 0 {
		t.pending--
		if t.pending == 0 {
			t.page = (t.page + 1) % len(t.pages)
		}
	}
	return nil
}

func (t *fakeTable) Find(ctx context.Context, loc Locator) (Element, error) {
	if loc == testLocators[RoleGridContainer] && !t.noContainer {
		return &fakeElement{t: t, kind: "container"}, nil
	}
	return nil, ErrNotFound
}

func (t *fakeTable) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	el, err := t.Find(ctx, loc)
	if err != nil {
		return nil, nil
	}
	return []Element{el}, nil
}

type fakeElement struct {
	t    *fakeTable
	kind string
	row  int
	col  int
	text string
}

func (e *fakeElement) Find(ctx context.Context, loc Locator) (Element, error) {
	t := e.t
	switch e.kind {
	case "container":
		t.buttonFinds++
		if t.noButtons {
			return nil, ErrNotFound
		}
		switch loc {
		case testLocators[RoleNextButton]:
			return &fakeElement{t: t, kind: "next"}, nil
		case testLocators[RolePreviousButton]:
			return &fakeElement{t: t, kind: "prev"}, nil
		}
	case "cell":
		switch loc {
		case XPath(".//a"):
			return &fakeElement{t: t, kind: "anchor", row: e.row, col: e.col}, nil
		case XPath(".//input[@type='checkbox']"):
			return &fakeElement{t: t, kind: "checkbox", row: e.row, col: e.col}, nil
		}
	}
	return nil, ErrNotFound
}

func (e *fakeElement) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	t := e.t
	switch {
	case e.kind == "container" && loc == testLocators[RoleRowCollection]:
		if t.failRows != nil {
			return nil, t.failRows
		}
		var rows []Element
		for i, cells := range t.pages[t.page] {
			rows = append(rows, &fakeElement{t: t, kind: "row", row: i, text: strings.Join(cells, " ")})
		}
		return rows, nil
	case e.kind == "row" && loc == cellLocator:
		var cells []Element
		for j, text := range t.pages[t.page][e.row] {
			cells = append(cells, &fakeElement{t: t, kind: "cell", row: e.row, col: j, text: text})
		}
		return cells, nil
	}
	return nil, nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	return e.text, nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if name != "disabled" {
		return "", false, nil
	}
	e.t.disabledReads++
	switch e.kind {
	case "next":
		if e.t.page == len(e.t.pages)-1 && !e.t.endless {
			return "true", true, nil
		}
	case "prev":
		if e.t.page == 0 {
			return "", true, nil
		}
	}
	return "", false, nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	t := e.t
	switch e.kind {
	case "next":
		t.nextClicks++
		switch {
		case t.stuck:
		case t.lag > 0:
			t.pending = t.lag
		default:
			t.page = (t.page + 1) % len(t.pages)
		}
	case "anchor", "checkbox":
		t.actions = append(t.actions, fmt.Sprintf("click %s page=%d row=%d col=%d", e.kind, t.page+1, e.row+1, e.col))
	}
	return nil
}

func (e *fakeElement) SetChecked(ctx context.Context, checked bool) error {
	key := fmt.Sprintf("page=%d row=%d", e.t.page+1, e.row+1)
	e.t.checked[key] = checked
	e.t.actions = append(e.t.actions, fmt.Sprintf("check page=%d row=%d col=%d", e.t.page+1, e.row+1, e.col))
	return nil
}

func (e *fakeElement) ScrollIntoView(ctx context.Context) error {
	return nil
}

func noSleep(ctx context.Context, d time.Duration) error {
	return nil
}

// sleepLog records requested pauses without waiting.
type sleepLog []time.Duration

func (l *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	*l = append(*l, d)
	return nil
}
