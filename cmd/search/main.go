// search finds and selects a row in a paginated table of a Chrome tab
package search

import (
	"fmt"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/nathants/gridsearch/grid"
	"github.com/nathants/gridsearch/lib"
	"github.com/rs/zerolog"
)

const (
	exitNotFound = 2
)

func init() {
	lib.Commands["search"] = search
	lib.Args["search"] = searchArgs{}
}

type searchArgs struct {
	lib.TargetArgs
	Locators    string        `arg:"-l,--locators,env:GRIDSEARCH_LOCATORS" help:"YAML file mapping roles to locators"`
	Busy        string        `arg:"--busy" help:"busy indicator locator"`
	Container   string        `arg:"--container" help:"grid container locator"`
	Rows        string        `arg:"--rows" help:"row locator, relative to the container"`
	Next        string        `arg:"--next" help:"next button locator, relative to the container"`
	Previous    string        `arg:"--previous" help:"previous button locator, relative to the container"`
	Variant     string        `arg:"--variant" default:"gyupo9" help:"grid variant: gyupo9, mdbootstrap"`
	Mode        string        `arg:"-m,--mode" default:"none" help:"how to select the row: name, select-checkbox, none, ..."`
	All         bool          `arg:"-a,--all" help:"every criterion must match (default: any one)"`
	Exact       bool          `arg:"--exact" help:"criteria must equal a whole cell"`
	BusyTimeout time.Duration `arg:"--busy-timeout" default:"1s" help:"how long to wait for the busy indicator"`
	Settle      time.Duration `arg:"--settle" default:"250ms" help:"pause after scrolling the grid into view"`
	MaxPages    int           `arg:"--max-pages" default:"1000" help:"stop after this many pages"`
	StallChecks int           `arg:"--stall-checks" default:"3" help:"give up after next leaves the rows unchanged this many times"`
	Timeout     time.Duration `arg:"--timeout" default:"5m" help:"overall timeout"`
	ShotDir     string        `arg:"--screenshot-dir,env:GRIDSEARCH_SCREENSHOTS" help:"write a PNG of the tab here when a search misses or fails"`
	ShotAlways  bool          `arg:"--screenshot-always" help:"with --screenshot-dir, also capture found searches"`
	Verbose     bool          `arg:"-v,--verbose" help:"log every page scanned"`
	Criteria    []string      `arg:"positional,required" help:"text to find in the row's cells"`
}

func (searchArgs) Description() string {
	return `search - Find and select a row in a paginated table

Reads the visible page of the grid, looks for the first row whose cells
contain the criteria (case-insensitive), and selects it by --mode. When no
row matches it clicks "next" and tries again, until the last page.

Prints "found" and exits 0, or prints "not found" and exits 2.

Locators are CSS selectors, or XPath when prefixed with xpath= or starting
with "/", "./" or "(". Rows, next and previous are looked up inside the
container; use ".//" XPath to stay inside it.

With --screenshot-dir, a miss or a failure leaves a PNG named after the
outcome, e.g. 20261015-101502.120-failed-click-next.png.

Example:
  gridsearch search --locators mdb.yaml --variant mdbootstrap --all "Prescott Bartlett" "Technical Author"
  gridsearch search -t http://localhost:3000 --container "#grid" --rows "tbody tr" \
    --next "button.next" --previous "button.prev" --busy ".loader" -m name Antonietta`
}

func search() {
	var args searchArgs
	arg.MustParse(&args)

	level := zerolog.InfoLevel
	if args.Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	locs, err := locators(args)
	if err != nil {
		fail(err)
	}
	variant, err := grid.ParseVariant(args.Variant)
	if err != nil {
		fail(err)
	}
	mode, err := grid.ParseMode(args.Mode)
	if err != nil {
		fail(err)
	}

	ctx, cancel, err := lib.SetupContext(args.TargetArgs.Selector(), args.Timeout)
	if err != nil {
		fail(err)
	}
	defer cancel()

	settle := args.Settle
	if settle == 0 {
		settle = -1
	}
	searcher := grid.NewSearcher(grid.Options{
		BusyTimeout: args.BusyTimeout,
		SettleDelay: settle,
		MaxPages:    args.MaxPages,
		StallChecks: args.StallChecks,
		ExactMatch:  args.Exact,
		Logger:      &logger,
	})
	found, err := searcher.Search(ctx, lib.NewPage(), locs, variant, mode, args.Criteria, args.All)

	shots := lib.Shots{Dir: args.ShotDir, Always: args.ShotAlways}
	if path := shots.Path(time.Now(), found, err); path != "" {
		if err := lib.CaptureScreenshot(ctx, args.TargetArgs.Selector(), path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("screenshot failed")
		} else {
			logger.Info().Str("path", path).Msg("screenshot")
		}
	}

	if err != nil {
		cancel()
		fail(err)
	}
	if !found {
		fmt.Println("not found")
		cancel()
		os.Exit(exitNotFound)
	}
	fmt.Println("found")
}

func locators(args searchArgs) (grid.Locators, error) {
	file := lib.LocatorFile{}
	if args.Locators != "" {
		var err error
		file, err = lib.ReadLocatorFile(args.Locators)
		if err != nil {
			return grid.Locators{}, err
		}
	}
	return file.Locators(map[grid.Role]string{
		grid.RoleBusyIndicator:  args.Busy,
		grid.RoleGridContainer:  args.Container,
		grid.RoleRowCollection:  args.Rows,
		grid.RoleNextButton:     args.Next,
		grid.RolePreviousButton: args.Previous,
	})
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
