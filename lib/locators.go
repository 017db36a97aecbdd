package lib

import (
	"os"
	"strings"

	"github.com/nathants/gridsearch/grid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LocatorFile maps role names to locator strings, for example:
//
//	busy-indicator: xpath=//div[@class='loader']
//	grid-container: "#dtBasicExample_wrapper"
//	row-collection: tbody tr
//	next-button: a.page-link[data-dt-idx=next]
//	previous-button: a.page-link[data-dt-idx=previous]
type LocatorFile map[string]string

func ReadLocatorFile(path string) (LocatorFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLocatorFile(data)
}

func ParseLocatorFile(data []byte) (LocatorFile, error) {
	var file LocatorFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parse locator file")
	}
	known := make(map[string]bool, len(grid.Roles))
	for _, role := range grid.Roles {
		known[string(role)] = true
	}
	for key := range file {
		if !known[key] {
			return nil, errors.Errorf("unknown locator role %q", key)
		}
	}
	return file, nil
}

// Locators builds a grid.Locators from f with overrides applied on top.
// Blank overrides are ignored.
func (f LocatorFile) Locators(overrides map[grid.Role]string) (grid.Locators, error) {
	m := make(map[grid.Role]grid.Locator, len(grid.Roles))
	for _, role := range grid.Roles {
		expr := f[string(role)]
		if o := strings.TrimSpace(overrides[role]); o != "" {
			expr = o
		}
		if strings.TrimSpace(expr) == "" {
			continue
		}
		m[role] = grid.ParseLocator(expr)
	}
	return grid.NewLocators(m)
}
