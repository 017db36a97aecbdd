package grid

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultBusyTimeout = 1 * time.Second
	DefaultSettleDelay = 250 * time.Millisecond
	DefaultMaxPages    = 1000
	DefaultStallChecks = 3
)

const noRecordsMarker = "no records"

// Options tunes a Searcher. Zero values take the defaults above.
type Options struct {
	// BusyTimeout bounds the wait for the busy indicator to disappear.
	BusyTimeout time.Duration

	// SettleDelay is the pause after scrolling the grid into view. Negative
	// disables it.
	SettleDelay time.Duration

	// MaxPages bounds the number of pages visited by one search.
	MaxPages int

	// StallChecks is how many consecutive times the rows may read the same
	// as the page "next" was clicked on before the search gives up.
	StallChecks int

	// ExactMatch requires whole-cell equality instead of containment.
	ExactMatch bool

	// Sleep pauses for d. Tests replace it to avoid real waits.
	Sleep func(ctx context.Context, d time.Duration) error

	// Logger receives per-page debug events. Nil discards them.
	Logger *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = DefaultBusyTimeout
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	} else if o.SettleDelay == 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.StallChecks <= 0 {
		o.StallChecks = DefaultStallChecks
	}
	if o.Sleep == nil {
		o.Sleep = sleep
	}
	return o
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Searcher runs grid searches with a fixed set of Options.
type Searcher struct {
	opts Options
	log  zerolog.Logger
}

// NewSearcher fills unset options with their defaults.
func NewSearcher(opts Options) *Searcher {
	opts = opts.withDefaults()
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Searcher{opts: opts, log: log}
}

// Search pages through the grid until a row matching criteria is found and
// selected, or no page is left. It reports whether a row was found.
//
// A missing grid container and a "no records" row both end the search with
// false and no error, as does a pager whose rows stop changing after "next"
// is clicked. Failures raised by the browser are returned as *AutomationError.
func (s *Searcher) Search(ctx context.Context, b Browser, locs Locators, variant Variant, mode Mode, criteria []string, matchAll bool) (bool, error) {
	if !locs.valid() {
		return false, invalid("locators not built with NewLocators")
	}
	normalized, err := NormalizeCriteria(criteria)
	if err != nil {
		return false, err
	}

	log := s.log.With().
		Str("variant", variant.String()).
		Str("mode", mode.String()).
		Strs("criteria", normalized).
		Bool("match_all", matchAll).
		Logger()
	scan := &pageScan{
		opts:     s.opts,
		b:        b,
		locs:     locs,
		variant:  variant,
		mode:     mode,
		criteria: normalized,
		matchAll: matchAll,
		log:      log,
	}

	stalls := 0
	for page := 1; ; page++ {
		if page > s.opts.MaxPages {
			log.Warn().Int("max_pages", s.opts.MaxPages).Msg("page limit reached")
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, errors.Wrap(err, "search")
		}

		res, err := scan.page(ctx)
		if err != nil {
			return false, err
		}
		log.Debug().
			Int("page", page).
			Int("rows", res.rows).
			Bool("unchanged", res.unchanged).
			Bool("next_disabled", res.nextDisabled).
			Bool("prev_disabled", res.prevDisabled).
			Int("row", res.row).
			Msg("scanned page")

		if res.done {
			return res.row > 0, nil
		}
		if res.unchanged {
			stalls++
			if stalls >= s.opts.StallChecks {
				log.Warn().Int("page", page).Int("checks", stalls).Msg("pager did not advance")
				return false, nil
			}
			continue
		}
		stalls = 0
	}
}

type pageResult struct {
	rows         int
	row          int
	nextDisabled bool
	prevDisabled bool
	unchanged    bool
	done         bool
}

// pageScan holds the state of one search across its pages.
type pageScan struct {
	opts     Options
	b        Browser
	locs     Locators
	variant  Variant
	mode     Mode
	criteria []string
	matchAll bool
	log      zerolog.Logger

	// rows text of the page on which "next" was last clicked
	clickedOn *string
}

func (p *pageScan) page(ctx context.Context) (pageResult, error) {
	var res pageResult

	if err := p.b.WaitAbsent(ctx, p.locs.Get(RoleBusyIndicator), p.opts.BusyTimeout); err != nil {
		return res, automation("wait for busy indicator", err)
	}

	container, err := p.b.Find(ctx, p.locs.Get(RoleGridContainer))
	if errors.Is(err, ErrNotFound) {
		p.log.Debug().Msg("grid container not found")
		res.done = true
		return res, nil
	}
	if err != nil {
		return res, automation("find grid container", err)
	}

	if err := container.ScrollIntoView(ctx); err != nil {
		return res, automation("scroll grid into view", err)
	}
	if err := p.opts.Sleep(ctx, p.opts.SettleDelay); err != nil {
		return res, errors.Wrap(err, "settle")
	}

	rows, err := container.FindAll(ctx, p.locs.Get(RoleRowCollection))
	if err != nil {
		return res, automation("find rows", err)
	}
	res.rows = len(rows)
	texts := make([]string, 0, len(rows))
	for _, row := range rows {
		text, err := row.Text(ctx)
		if err != nil {
			return res, automation("read row text", err)
		}
		if containsFold(text, noRecordsMarker) {
			p.log.Debug().Msg("grid reports no records")
			res.done = true
			return res, nil
		}
		texts = append(texts, text)
	}
	fingerprint := strings.Join(texts, "\x1f")
	if p.clickedOn != nil && *p.clickedOn == fingerprint {
		res.unchanged = true
		return res, nil
	}

	next, err := optional(container.Find(ctx, p.locs.Get(RoleNextButton)))
	if err != nil {
		return res, automation("find next button", err)
	}
	prev, err := optional(container.Find(ctx, p.locs.Get(RolePreviousButton)))
	if err != nil {
		return res, automation("find previous button", err)
	}
	if res.nextDisabled, err = disabled(ctx, next); err != nil {
		return res, automation("read next button state", err)
	}
	if res.prevDisabled, err = disabled(ctx, prev); err != nil {
		return res, automation("read previous button state", err)
	}

	res.row, err = FindRow(ctx, rows, p.criteria, p.matchAll, p.opts.ExactMatch)
	if err != nil {
		return res, err
	}
	if res.row > 0 {
		if err := SelectRow(ctx, rows, p.variant, p.mode, res.row); err != nil {
			return res, err
		}
	}

	switch {
	case res.nextDisabled && res.prevDisabled:
		// single page
		res.done = true
	case res.prevDisabled:
		// first of many
		res.done = res.row > 0
	case res.nextDisabled:
		// last page
		res.done = true
	default:
		res.done = res.row > 0
	}
	if res.done {
		return res, nil
	}

	if err := next.Click(ctx); err != nil {
		return res, automation("click next", err)
	}
	p.clickedOn = &fingerprint
	return res, nil
}

func optional(el Element, err error) (Element, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return el, err
}

// disabled treats a missing button as disabled.
func disabled(ctx context.Context, button Element) (bool, error) {
	if button == nil {
		return true, nil
	}
	value, present, err := button.Attribute(ctx, "disabled")
	if err != nil {
		return false, err
	}
	return present && value != "false", nil
}

// Search runs one search with default options.
func Search(ctx context.Context, b Browser, locs Locators, variant Variant, mode Mode, criteria []string, matchAll bool) (bool, error) {
	return NewSearcher(Options{}).Search(ctx, b, locs, variant, mode, criteria, matchAll)
}
