package lib

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/nathants/gridsearch/grid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tablePage = `<!doctype html>
<html><body>
<div class="loader">loading</div>
<div id="grid">
  <table><tbody id="rows"></tbody></table>
  <button class="prev">&lt;</button>
  <button class="next">&gt;</button>
</div>
<script>
const data = [
  [["Tiger Nixon", "System Architect"], ["Garrett Winters", "Accountant"]],
  [["Ashton Cox", "Junior Technical Author"], ["Cedric Kelly", "Senior Javascript Developer"]],
  [["Airi Satou", "Accountant"]],
];
let page = 0;
window.selected = "";
window.checked = "";
function render() {
  const body = document.getElementById("rows");
  body.innerHTML = "";
  for (const row of data[page]) {
    const tr = document.createElement("tr");
    row.forEach((text, i) => {
      const td = document.createElement("td");
      if (i === 0) {
        const cb = document.createElement("input");
        cb.type = "checkbox";
        cb.addEventListener("change", () => { window.checked = text; });
        td.appendChild(cb);
        const a = document.createElement("a");
        a.href = "#";
        a.textContent = text;
        a.addEventListener("click", e => { e.preventDefault(); window.selected = text; });
        td.appendChild(a);
      } else {
        td.textContent = text;
      }
      tr.appendChild(td);
    });
    body.appendChild(tr);
  }
  document.querySelector(".prev").disabled = page === 0;
  document.querySelector(".next").disabled = page === data.length - 1;
}
document.querySelector(".next").addEventListener("click", () => { page++; render(); });
document.querySelector(".prev").addEventListener("click", () => { page--; render(); });
render();
setTimeout(() => document.querySelector(".loader").remove(), 200);
</script>
</body></html>`

const emptyPage = `<!doctype html>
<html><body>
<div id="grid"><table><tbody><tr><td>No records found</td></tr></tbody></table></div>
</body></html>`

func findChrome() string {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func browserContext(t *testing.T) context.Context {
	path := findChrome()
	if path == "" {
		t.Skip("chrome not installed")
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(path),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	t.Cleanup(func() {
		tabCancel()
		allocCancel()
		cancel()
	})
	return tabCtx
}

func serve(t *testing.T, body string) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func testLocators(t *testing.T) grid.Locators {
	locs, err := grid.NewLocators(map[grid.Role]grid.Locator{
		grid.RoleBusyIndicator:  grid.XPath("//div[@class='loader']"),
		grid.RoleGridContainer:  grid.CSS("#grid"),
		grid.RoleRowCollection:  grid.CSS("tbody tr"),
		grid.RoleNextButton:     grid.CSS("button.next"),
		grid.RolePreviousButton: grid.CSS("button.prev"),
	})
	require.NoError(t, err)
	return locs
}

func TestPageSearchSelectsOnSecondPage(t *testing.T) {
	ctx := browserContext(t)
	require.NoError(t, chromedp.Run(ctx, chromedp.Navigate(serve(t, tablePage))))

	searcher := grid.NewSearcher(grid.Options{SettleDelay: 50 * time.Millisecond})
	found, err := searcher.Search(ctx, NewPage(), testLocators(t), grid.VariantGyupo9, grid.ModeName, []string{"cedric kelly", "javascript"}, true)
	require.NoError(t, err)
	assert.True(t, found)

	var selected string
	require.NoError(t, chromedp.Run(ctx, chromedp.Evaluate(`window.selected`, &selected)))
	assert.Equal(t, "Cedric Kelly", selected)
}

func TestPageSearchChecksOnLastPage(t *testing.T) {
	ctx := browserContext(t)
	require.NoError(t, chromedp.Run(ctx, chromedp.Navigate(serve(t, tablePage))))

	searcher := grid.NewSearcher(grid.Options{SettleDelay: 50 * time.Millisecond})
	found, err := searcher.Search(ctx, NewPage(), testLocators(t), grid.VariantMDBootstrap, grid.ModeSelectCheckbox, []string{"Airi"}, false)
	require.NoError(t, err)
	assert.True(t, found)

	var checked string
	require.NoError(t, chromedp.Run(ctx, chromedp.Evaluate(`window.checked`, &checked)))
	assert.Equal(t, "Airi Satou", checked)
}

func TestPageSearchNotFound(t *testing.T) {
	ctx := browserContext(t)
	require.NoError(t, chromedp.Run(ctx, chromedp.Navigate(serve(t, tablePage))))

	searcher := grid.NewSearcher(grid.Options{SettleDelay: 50 * time.Millisecond})
	found, err := searcher.Search(ctx, NewPage(), testLocators(t), grid.VariantMDBootstrap, grid.ModeName, []string{"Prescott Bartlett", "Technical Author"}, true)
	require.NoError(t, err)
	assert.False(t, found)

	var selected string
	require.NoError(t, chromedp.Run(ctx, chromedp.Evaluate(`window.selected`, &selected)))
	assert.Empty(t, selected)
}

func TestPageSearchNoRecords(t *testing.T) {
	ctx := browserContext(t)
	require.NoError(t, chromedp.Run(ctx, chromedp.Navigate(serve(t, emptyPage))))

	found, err := grid.Search(ctx, NewPage(), testLocators(t), grid.VariantGyupo9, grid.ModeName, []string{"anything"}, false)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPageFind(t *testing.T) {
	ctx := browserContext(t)
	require.NoError(t, chromedp.Run(ctx, chromedp.Navigate(serve(t, tablePage))))
	page := NewPage()

	_, err := page.Find(ctx, grid.CSS("#missing"))
	assert.True(t, errors.Is(err, grid.ErrNotFound))

	container, err := page.Find(ctx, grid.CSS("#grid"))
	require.NoError(t, err)
	rows, err := container.FindAll(ctx, grid.CSS("tbody tr"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	text, err := rows[0].Text(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "Tiger Nixon")

	prev, err := container.Find(ctx, grid.CSS("button.prev"))
	require.NoError(t, err)
	_, present, err := prev.Attribute(ctx, "disabled")
	require.NoError(t, err)
	assert.True(t, present)

	rows, err = container.FindAll(ctx, grid.XPath("//table/tbody/tr"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	cells, err := rows[1].FindAll(ctx, grid.XPath("./td"))
	require.NoError(t, err)
	assert.Len(t, cells, 2)
	anchor, err := cells[0].Find(ctx, grid.XPath(".//a"))
	require.NoError(t, err)
	text, err = anchor.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Garrett Winters", text)

	_, err = cells[1].Find(ctx, grid.XPath(".//a"))
	assert.True(t, errors.Is(err, grid.ErrNotFound))

	next, err := container.Find(ctx, grid.XPath(".//button[.='>']"))
	require.NoError(t, err)
	_, present, err = next.Attribute(ctx, "disabled")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestPageSearchXPathLocators(t *testing.T) {
	ctx := browserContext(t)
	require.NoError(t, chromedp.Run(ctx, chromedp.Navigate(serve(t, tablePage))))

	locs, err := grid.NewLocators(map[grid.Role]grid.Locator{
		grid.RoleBusyIndicator:  grid.XPath("//div[@class='loader']"),
		grid.RoleGridContainer:  grid.XPath("//div[@id='grid']"),
		grid.RoleRowCollection:  grid.XPath(".//tbody/tr"),
		grid.RoleNextButton:     grid.XPath(".//button[@class='next']"),
		grid.RolePreviousButton: grid.XPath(".//button[@class='prev']"),
	})
	require.NoError(t, err)

	searcher := grid.NewSearcher(grid.Options{SettleDelay: 50 * time.Millisecond})
	found, err := searcher.Search(ctx, NewPage(), locs, grid.VariantGyupo9, grid.ModeName, []string{"Airi"}, false)
	require.NoError(t, err)
	assert.True(t, found)

	var selected string
	require.NoError(t, chromedp.Run(ctx, chromedp.Evaluate(`window.selected`, &selected)))
	assert.Equal(t, "Airi Satou", selected)
}
