package grid

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Variant identifies a table layout and its row selection convention.
type Variant int

const (
	VariantGyupo9 Variant = iota
	VariantMDBootstrap
)

var variantNames = map[Variant]string{
	VariantGyupo9:      "gyupo9",
	VariantMDBootstrap: "mdbootstrap",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ParseVariant maps a variant name such as "mdbootstrap" to its Variant.
func ParseVariant(s string) (Variant, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for v, name := range variantNames {
		if name == want {
			return v, nil
		}
	}
	return 0, invalid("unknown grid variant %q", s)
}

// Mode names the column or control used to select a found row.
type Mode int

const (
	ModeNone Mode = iota
	ModeName
	ModeID
	ModeStatus
	ModeTitle
	ModeLocation
	ModeSelectCheckbox
)

var modeNames = map[Mode]string{
	ModeNone:           "none",
	ModeName:           "name",
	ModeID:             "id",
	ModeStatus:         "status",
	ModeTitle:          "title",
	ModeLocation:       "location",
	ModeSelectCheckbox: "select-checkbox",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps a mode name such as "select-checkbox" to its Mode.
func ParseMode(s string) (Mode, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == want {
			return m, nil
		}
	}
	return 0, invalid("unknown selection mode %q", s)
}

// Control is the kind of element that selects a row.
type Control int

const (
	ControlAnchor Control = iota
	ControlCheckbox
)

// Selection says how to act on a row: which cell, which control inside the
// cell, and whether to click it or check it.
type Selection struct {
	Column  int
	Locator Locator
	Control Control
}

type selectionKey struct {
	variant Variant
	mode    Mode
}

// Adding a grid variant means adding rows here.
var selections = map[selectionKey]Selection{
	{VariantGyupo9, ModeName}:                {Column: 0, Locator: XPath(".//a"), Control: ControlAnchor},
	{VariantGyupo9, ModeSelectCheckbox}:      {Column: 0, Locator: XPath(".//input[@type='checkbox']"), Control: ControlCheckbox},
	{VariantMDBootstrap, ModeName}:           {Column: 0, Locator: XPath(".//a"), Control: ControlAnchor},
	{VariantMDBootstrap, ModeSelectCheckbox}: {Column: 0, Locator: XPath(".//input[@type='checkbox']"), Control: ControlCheckbox},
}

// SelectionFor returns the selection for variant and mode. ok is false for
// combinations that select nothing.
func SelectionFor(variant Variant, mode Mode) (sel Selection, ok bool) {
	sel, ok = selections[selectionKey{variant, mode}]
	return sel, ok
}

// SelectRow acts on rows[rowIndex-1] according to variant and mode.
// rowIndex is a value returned by FindRow for the same rows.
func SelectRow(ctx context.Context, rows []Element, variant Variant, mode Mode, rowIndex int) error {
	if rowIndex < 1 || rowIndex > len(rows) {
		return invalid("row index %d out of range [1, %d]", rowIndex, len(rows))
	}
	sel, ok := SelectionFor(variant, mode)
	if !ok {
		return nil
	}
	return ChooseColumn(ctx, rows[rowIndex-1], sel)
}

// ChooseColumn finds the control in cell sel.Column of row and clicks or
// checks it.
func ChooseColumn(ctx context.Context, row Element, sel Selection) error {
	cells, err := row.FindAll(ctx, cellLocator)
	if err != nil {
		return automation("find cells", err)
	}
	if sel.Column < 0 || sel.Column >= len(cells) {
		return automation("select row", errors.Wrapf(ErrNotFound, "column %d of %d", sel.Column, len(cells)))
	}
	control, err := cells[sel.Column].Find(ctx, sel.Locator)
	if err != nil {
		return automation("find "+sel.Locator.String(), err)
	}
	switch sel.Control {
	case ControlCheckbox:
		return automation("check", control.SetChecked(ctx, true))
	default:
		return automation("click", control.Click(ctx))
	}
}
