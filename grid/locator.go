package grid

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Strategy is the query language of a Locator.
type Strategy int

const (
	ByCSS Strategy = iota
	ByXPath
)

func (s Strategy) String() string {
	switch s {
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Locator is an element-locating expression.
type Locator struct {
	Strategy Strategy
	Expr     string
}

// CSS locates elements by CSS selector.
func CSS(expr string) Locator {
	return Locator{Strategy: ByCSS, Expr: expr}
}

// XPath locates elements by XPath expression. Relative expressions such as
// ".//a" are evaluated against the element they are looked up from.
func XPath(expr string) Locator {
	return Locator{Strategy: ByXPath, Expr: expr}
}

// ParseLocator accepts "css=..." and "xpath=..." prefixes. Without a prefix,
// expressions starting with "/", "./" or "(" are XPath and anything else is CSS.
func ParseLocator(s string) Locator {
	expr := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(expr, "xpath="):
		return XPath(strings.TrimSpace(strings.TrimPrefix(expr, "xpath=")))
	case strings.HasPrefix(expr, "css="):
		return CSS(strings.TrimSpace(strings.TrimPrefix(expr, "css=")))
	case strings.HasPrefix(expr, "/"), strings.HasPrefix(expr, "./"), strings.HasPrefix(expr, "("):
		return XPath(expr)
	default:
		return CSS(expr)
	}
}

func (l Locator) String() string {
	return l.Strategy.String() + "=" + l.Expr
}

// IsZero reports whether the locator has no expression.
func (l Locator) IsZero() bool {
	return strings.TrimSpace(l.Expr) == ""
}

// Role is the logical name of a locator in a Locators set.
type Role string

const (
	RoleBusyIndicator  Role = "busy-indicator"
	RoleGridContainer  Role = "grid-container"
	RoleRowCollection  Role = "row-collection"
	RoleNextButton     Role = "next-button"
	RolePreviousButton Role = "previous-button"
)

// Roles lists every role a Locators set must carry, in validation order.
var Roles = []Role{
	RoleBusyIndicator,
	RoleGridContainer,
	RoleRowCollection,
	RoleNextButton,
	RolePreviousButton,
}

// Locators is an immutable set of locators keyed by role.
type Locators struct {
	byRole map[Role]Locator
}

// NewLocators copies m and checks that every role in Roles is present.
func NewLocators(m map[Role]Locator) (Locators, error) {
	byRole := make(map[Role]Locator, len(Roles))
	for _, role := range Roles {
		loc, ok := m[role]
		if !ok || loc.IsZero() {
			return Locators{}, errors.Wrap(ErrMissingLocator, string(role))
		}
		byRole[role] = loc
	}
	return Locators{byRole: byRole}, nil
}

// Get returns the locator for role. The zero Locators returns zero locators.
func (l Locators) Get(role Role) Locator {
	return l.byRole[role]
}

func (l Locators) valid() bool {
	return len(l.byRole) == len(Roles)
}
