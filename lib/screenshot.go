package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gorilla/websocket"
	"github.com/nathants/gridsearch/grid"
	"github.com/pkg/errors"
)

const shotTimeout = 10 * time.Second

// Shots decides when a search leaves a screenshot behind and where.
type Shots struct {
	Dir string

	// Always captures found searches too. Misses and failures are always
	// captured.
	Always bool
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// ShotName describes a search outcome for a file name: "found", "not-found",
// or "failed-" plus the step that failed.
func ShotName(found bool, err error) string {
	var ae *grid.AutomationError
	switch {
	case errors.As(err, &ae):
		return "failed-" + strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(ae.Op), "-"), "-")
	case err != nil:
		return "failed"
	case found:
		return "found"
	default:
		return "not-found"
	}
}

// Path returns the file for a search outcome, or "" when none is wanted.
func (s Shots) Path(now time.Time, found bool, err error) string {
	if s.Dir == "" || (found && err == nil && !s.Always) {
		return ""
	}
	return filepath.Join(s.Dir, fmt.Sprintf("%s-%s.png", now.Format("20060102-150405.000"), ShotName(found, err)))
}

// CaptureScreenshot writes a PNG of the tab to path. With Chrome on
// ChromeURL the tab selected by selector is captured over its own debugger
// socket, so a search that ran out of time can still be pictured.
// Otherwise ctx must be the tab context.
func CaptureScreenshot(ctx context.Context, selector string, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return err
	}

	var png []byte
	if IsChromeRunning() {
		png, _ = captureTab(selector)
	}
	if png == nil {
		if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&png)); err != nil {
			return errors.Wrap(err, "capture screenshot")
		}
	}
	return os.WriteFile(absPath, png, 0644)
}

func captureTab(selector string) ([]byte, error) {
	id, reason, err := ResolveTarget(selector)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.New(reason)
	}
	targets, err := FetchTargets()
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		if t.ID == id && t.WebSocketDebuggerURL != "" {
			return captureOverSocket(strings.TrimSpace(t.WebSocketDebuggerURL), shotTimeout)
		}
	}
	return nil, errors.Errorf("tab %s has no debugger socket", shortID(id))
}

type socketReply struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int64  `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// captureOverSocket sends one Page.captureScreenshot and skips any event
// pushed before its reply.
func captureOverSocket(wsURL string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "dial tab")
	}
	defer conn.Close()
	deadline, _ := ctx.Deadline()
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)

	const id = 1
	err = conn.WriteJSON(map[string]any{
		"id":     id,
		"method": "Page.captureScreenshot",
		"params": map[string]any{"format": "png"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "send capture")
	}
	for {
		var reply socketReply
		if err := conn.ReadJSON(&reply); err != nil {
			return nil, errors.Wrap(err, "read capture")
		}
		if reply.Method != "" || reply.ID != id {
			continue
		}
		if reply.Error != nil {
			return nil, errors.Errorf("tab refused capture: %s (%d)", reply.Error.Message, reply.Error.Code)
		}
		var shot struct {
			Data []byte `json:"data"`
		}
		if err := json.Unmarshal(reply.Result, &shot); err != nil {
			return nil, errors.Wrap(err, "decode capture")
		}
		if len(shot.Data) == 0 {
			return nil, errors.New("tab returned no image")
		}
		return shot.Data, nil
	}
}
