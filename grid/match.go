package grid

import (
	"context"
	"html"
	"strings"

	"golang.org/x/text/cases"
)

var cellLocator = CSS("td")

// NormalizeCriteria drops blank entries and trims the rest.
func NormalizeCriteria(criteria []string) ([]string, error) {
	var out []string
	for _, c := range criteria {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, invalid("no criteria")
	}
	return out, nil
}

// FindRow returns the 1-based index of the first row whose cells satisfy
// criteria, or 0 when no row does.
func FindRow(ctx context.Context, rows []Element, criteria []string, matchAll, exact bool) (int, error) {
	normalized, err := NormalizeCriteria(criteria)
	if err != nil {
		return 0, err
	}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		cells, err := cellTexts(ctx, row)
		if err != nil {
			return 0, err
		}
		if MatchCells(cells, normalized, matchAll, exact) {
			return i + 1, nil
		}
	}
	return 0, nil
}

// MatchCells reports whether one row's cell texts satisfy criteria.
//
// With matchAll false the first criterion found in any cell is enough. With
// matchAll true every criterion must be found in some cell, and the first
// criterion without a match rejects the row. Exact compares whole cells,
// otherwise a criterion matches any cell containing it. Comparison ignores
// case. Criteria are expected to be normalized already.
func MatchCells(cells []string, criteria []string, matchAll, exact bool) bool {
	fold := cases.Fold()
	folded := make([]string, len(cells))
	for i, cell := range cells {
		folded[i] = fold.String(cell)
	}

	isMatch := false
	for _, criterion := range criteria {
		want := fold.String(criterion)
		isMatch = false
		for _, cell := range folded {
			if exact {
				isMatch = cell == want
			} else {
				isMatch = strings.Contains(cell, want)
			}
			if isMatch {
				if !matchAll {
					return true
				}
				break
			}
		}
		if matchAll && !isMatch {
			return false
		}
	}
	return isMatch
}

func cellTexts(ctx context.Context, row Element) ([]string, error) {
	cells, err := row.FindAll(ctx, cellLocator)
	if err != nil {
		return nil, automation("find cells", err)
	}
	texts := make([]string, 0, len(cells))
	for _, cell := range cells {
		text, err := cell.Text(ctx)
		if err != nil {
			return nil, automation("read cell text", err)
		}
		texts = append(texts, decodeAndTrim(text))
	}
	return texts, nil
}

func decodeAndTrim(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}

func containsFold(s, substr string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(substr))
}
