package templates

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/profiler/internal/core"
	"github.com/JonMunkholm/profiler/internal/history"
	"github.com/JonMunkholm/profiler/internal/session"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestPage_Idle(t *testing.T) {
	html := render(t, Page(session.ViewState{}))

	assert.Contains(t, html, "<title>Gen AI based Data profiling</title>")
	assert.Contains(t, html, `action="/select/pdf"`)
	assert.Contains(t, html, `action="/select/csv"`)
	assert.Contains(t, html, `<button type="submit" class="btn">Upload Files</button>`)
	assert.NotContains(t, html, `http-equiv="refresh"`)
	assert.NotContains(t, html, "Processing...")
	assert.NotContains(t, html, `class="responses"`)
}

func TestPage_BusyRefreshesAndDisables(t *testing.T) {
	html := render(t, Page(session.ViewState{Busy: true}))

	assert.Contains(t, html, `<meta http-equiv="refresh" content="2">`)
	assert.Contains(t, html, `<button type="submit" class="btn" disabled>Upload Files</button>`)
	assert.Contains(t, html, "Processing...")
}

func TestPage_EscapesUserText(t *testing.T) {
	v := session.ViewState{
		Notice: "<b>hi</b>",
		PDF:    session.NewFileHandle(session.KindPDF, `a"<x>.pdf`, "application/pdf", []byte("%PDF")),
	}
	html := render(t, Page(v))

	assert.Contains(t, html, "&lt;b&gt;hi&lt;/b&gt;")
	assert.Contains(t, html, "Selected: a&#34;&lt;x&gt;.pdf (")
	assert.NotContains(t, html, "<b>hi</b>")
}

func TestResult(t *testing.T) {
	now := time.Now()

	t.Run("empty renders nothing", func(t *testing.T) {
		assert.Empty(t, render(t, Result(core.Result{})))
	})

	t.Run("succeeded renders panels with export links", func(t *testing.T) {
		html := render(t, Result(core.SucceededResult("rule a", "", nil, now)))

		assert.Contains(t, html, `id="panel-rules"`)
		assert.Contains(t, html, "<h3>Generated Rules</h3><pre>rule a</pre>")
		assert.Contains(t, html, `href="/export/rules" download="rules_generated.csv"`)
		assert.NotContains(t, html, "panel-validation")
	})

	t.Run("failed renders error panel with code", func(t *testing.T) {
		html := render(t, Result(core.FailedResult(errors.New("Request failed with status code 500"), now)))

		assert.Contains(t, html, "Upload Failed")
		assert.Contains(t, html, "Request failed with status code 500</pre>")
		assert.Contains(t, html, "(Code: EP003)")
		assert.NotContains(t, html, "/export/")
	})
}

func TestErrorPage(t *testing.T) {
	html := render(t, ErrorPage("Something broke", "Try again", "ERR000"))

	assert.Contains(t, html, "<title>Error | Gen AI based Data profiling</title>")
	assert.Contains(t, html, "<h3>Something broke</h3>")
	assert.Contains(t, html, `<p class="hint">Try again</p>`)
	assert.Contains(t, html, `<p class="hint">Code: ERR000</p>`)
}

func TestHistoryPage(t *testing.T) {
	assert.Contains(t, render(t, HistoryPage(nil)), "No uploads yet.")

	entries := []history.Entry{
		{PDFName: "regs.pdf", CSVName: "data.csv", Outcome: "succeeded", RulesLength: 3, ValidationLength: 2, Duration: 1500 * time.Millisecond},
		{PDFName: "b.pdf", CSVName: "b.csv", Outcome: "failed", Error: "no such host"},
	}
	html := render(t, HistoryPage(entries))

	assert.Contains(t, html, "<td>regs.pdf</td><td>data.csv</td>")
	assert.Contains(t, html, `<td class="ok">succeeded (3 / 2 chars)</td>`)
	assert.Contains(t, html, `<td class="fail" title="no such host">failed</td>`)
	assert.Contains(t, html, "<td>1.5s</td>")
}
