// lib holds what the gridsearch commands share: command registration, the
// chromedp session, tab targeting, locator files and screenshots.
//
// SESSION:
// - Remote mode: Chrome already listening on ChromeURL, attach to a tab
// - Headless mode: no Chrome listening, launch one for the command
// - Cancelling a remote tab context does NOT close the tab
//
// TARGET RESOLUTION:
// - URL prefix (case-insensitive) from -t or CHROME_TARGET
// - otherwise the attached page tab, then the first page tab
// - chrome:// and chrome-untrusted:// tabs are never targets
package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

const DefaultTimeout = 5 * time.Minute

var cdpHTTPClient = &http.Client{Timeout: 5 * time.Second}

type ArgsStruct interface {
	Description() string
}

var Commands = make(map[string]func())
var Args = map[string]ArgsStruct{}

// ChromeURL is the remote debugging endpoint, CHROME_URL overrides it.
func ChromeURL() string {
	if u := strings.TrimSpace(os.Getenv("CHROME_URL")); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:9222"
}

type ChromeTarget struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	Title                string `json:"title"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// TargetArgs provides -t/--target for tab selection. Embed it in command args.
type TargetArgs struct {
	Target string `arg:"-t,--target,env:CHROME_TARGET" help:"URL prefix to select tab (first match wins)"`
}

func (t TargetArgs) Selector() string {
	return strings.TrimSpace(t.Target)
}

// SetupContext returns a tab context for selector. With timeout <= 0 the
// context has no deadline.
func SetupContext(selector string, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	if IsChromeRunning() {
		id, reason, err := ResolveTarget(selector)
		if err != nil {
			cancel()
			return nil, nil, err
		}
		if id == "" {
			cancel()
			return nil, nil, errors.New(reason)
		}
		allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, ChromeURL())
		// The tab context is not cancelled so the tab outlives the command.
		tabCtx, _ := chromedp.NewContext(allocCtx, chromedp.WithTargetID(target.ID(id)))
		return tabCtx, func() {
			allocCancel()
			cancel()
		}, nil
	}

	if selector != "" {
		cancel()
		return nil, nil, fmt.Errorf("target selection requires Chrome on %s", ChromeURL())
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	return browserCtx, func() {
		browserCancel()
		allocCancel()
		cancel()
	}, nil
}

func IsChromeRunning() bool {
	resp, err := cdpHTTPClient.Get(ChromeURL() + "/json/version")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func FetchTargets() ([]ChromeTarget, error) {
	resp, err := cdpHTTPClient.Get(ChromeURL() + "/json/list")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var targets []ChromeTarget
	if err := json.Unmarshal(body, &targets); err != nil {
		return nil, errors.Wrap(err, "decode targets")
	}
	return targets, nil
}

// ResolveTarget returns the id of the tab selected by selector, falling back
// to CHROME_TARGET. An empty id comes with the reason nothing matched.
func ResolveTarget(selector string) (string, string, error) {
	selected := strings.TrimSpace(selector)
	if selected == "" {
		selected = strings.TrimSpace(os.Getenv("CHROME_TARGET"))
	}

	targets, err := FetchTargets()
	if err != nil {
		return "", "", err
	}
	pages := filterPageTargets(targets)
	if len(pages) == 0 {
		return "", "no page targets", nil
	}

	if selected != "" {
		if id := matchTargetBySelector(pages, selected); id != "" {
			return id, fmt.Sprintf("matched selector %q", selected), nil
		}
		var urls []string
		for _, p := range pages {
			urls = append(urls, p.URL)
		}
		return "", fmt.Sprintf("no tab URL starts with %q. Available: %s", selected, strings.Join(urls, ", ")), nil
	}

	if infos, err := fetchTargetInfos(); err == nil {
		if id := selectAttached(pages, infos); id != "" {
			return id, "attached tab", nil
		}
	}
	return pages[0].ID, "first page tab", nil
}

func filterPageTargets(targets []ChromeTarget) []ChromeTarget {
	var pages []ChromeTarget
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if strings.HasPrefix(t.URL, "chrome://") || strings.HasPrefix(t.URL, "chrome-untrusted://") {
			continue
		}
		pages = append(pages, t)
	}
	return pages
}

func matchTargetBySelector(pages []ChromeTarget, selector string) string {
	if selector == "" {
		return ""
	}
	prefix := strings.ToLower(selector)
	for _, t := range pages {
		if strings.HasPrefix(strings.ToLower(t.URL), prefix) {
			return t.ID
		}
	}
	return ""
}

func selectAttached(pages []ChromeTarget, infos []*target.Info) string {
	known := make(map[string]bool, len(pages))
	for _, p := range pages {
		known[p.ID] = true
	}
	for _, info := range infos {
		if info == nil || info.Type != "page" || !info.Attached {
			continue
		}
		if id := info.TargetID.String(); known[id] {
			return id
		}
	}
	return ""
}

func fetchTargetInfos() ([]*target.Info, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, ChromeURL())
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()
	return chromedp.Targets(browserCtx)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// ListTabs writes the page tabs to w, marking the one a search would target.
func ListTabs(w io.Writer) error {
	if !IsChromeRunning() {
		return fmt.Errorf("Chrome not running on %s", ChromeURL())
	}
	targets, err := FetchTargets()
	if err != nil {
		return err
	}
	pages := filterPageTargets(targets)
	if len(pages) == 0 {
		fmt.Fprintln(w, "no page tabs")
		return nil
	}
	preferred, _, _ := ResolveTarget("")
	for _, page := range pages {
		marker := " "
		if page.ID == preferred {
			marker = "*"
		}
		title := page.Title
		if title == "" {
			title = "(no title)"
		}
		fmt.Fprintf(w, "%s[%s] %s\n  %s\n", marker, shortID(page.ID), title, page.URL)
	}
	return nil
}
