// Package browsertest provides an in-memory ports.Page backed by static HTML
// documents. Clicking the next control swaps the rendered document after a
// configurable number of reads, which mimics client-side re-rendering.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"DirectoryHarvester/internal/ports"
)

const (
	// NextEnabled is an enabled next control.
	NextEnabled = `<button class="slds-button slds-button_neutral">Next</button>`
	// NextDisabledClass is a next control disabled through a class token.
	NextDisabledClass = `<button class="slds-button slds-button_neutral slds-is-disabled">Next</button>`
	// NextDisabledAttr is a next control disabled through the native attribute.
	NextDisabledAttr = `<button class="slds-button slds-button_neutral" disabled>Next</button>`
)

// Row renders a directory row with a header cell and data cells.
func Row(name string, cells ...string) string {
	var b strings.Builder
	b.WriteString("<tr><th scope=\"row\">")
	b.WriteString(name)
	b.WriteString("</th>")
	for _, c := range cells {
		b.WriteString("<td>")
		b.WriteString(c)
		b.WriteString("</td>")
	}
	b.WriteString("</tr>")
	return b.String()
}

// Document renders a full directory page with the given rows and next control markup.
func Document(rows []string, next string) string {
	return `<html><body><table class="slds-table"><thead><tr><th>Name</th><th>Designations</th>` +
		`<th>Employer</th><th>City</th></tr></thead><tbody>` + strings.Join(rows, "") +
		`</tbody></table><div class="pager">` + next + `</div></body></html>`
}

// Options tune how the fake reacts to clicks.
type Options struct {
	// RenderDelay is the number of query calls after a click before the
	// next document becomes visible. Zero swaps immediately.
	RenderDelay int
	// BlankWhileRendering hides the table body until the swap happens.
	BlankWhileRendering bool
	// IgnoreClicks leaves the current document in place forever.
	IgnoreClicks bool
	// ClickErr is returned by every Click call.
	ClickErr error
	// QueryErr is returned by QuerySelectorAll.
	QueryErr error
	// RenderedText makes InnerText follow the browser's innerText: block
	// children end up on separate lines and hidden elements are left out.
	// Without it InnerText returns the raw text content.
	RenderedText bool
}

// Page is the fake page. It is safe for use from one goroutine at a time,
// the mutex only guards inspection from tests.
type Page struct {
	mu        sync.Mutex
	docs      []string
	opts      Options
	current   int
	pending   int
	countdown int
	url       string
	clicks    int
	slept     []time.Duration
}

var _ ports.Page = (*Page)(nil)

// New builds a fake page that renders docs in order as the next control is clicked.
func New(opts Options, docs ...string) *Page {
	return &Page{docs: docs, opts: opts, pending: -1}
}

// Current returns the index of the rendered document.
func (p *Page) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Clicks returns how many times an element was clicked.
func (p *Page) Clicks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicks
}

// URL returns the last navigated URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Slept returns every WaitForTimeout duration requested.
func (p *Page) Slept() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.slept...)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.current = 0
	p.pending = -1
	return ctx.Err()
}

func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (ports.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := p.find(selector)
	if err != nil {
		return nil, err
	}
	if sel.Length() == 0 {
		return nil, fmt.Errorf("wait %s for %q: %w", timeout, selector, ports.ErrTimeout)
	}
	return &Element{sel: sel.First(), page: p}, nil
}

func (p *Page) QuerySelector(ctx context.Context, selector string) (ports.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.tick()
	sel, err := p.find(selector)
	if err != nil {
		return nil, err
	}
	if sel.Length() == 0 {
		return nil, fmt.Errorf("query %q: %w", selector, ports.ErrElementNotFound)
	}
	return &Element{sel: sel.First(), page: p}, nil
}

func (p *Page) QuerySelectorAll(ctx context.Context, selector string) ([]ports.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.opts.QueryErr != nil {
		return nil, p.opts.QueryErr
	}
	p.tick()
	sel, err := p.find(selector)
	if err != nil {
		return nil, err
	}
	elements := make([]ports.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &Element{sel: s, page: p})
	})
	return elements, nil
}

func (p *Page) WaitForTimeout(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.slept = append(p.slept, d)
	p.mu.Unlock()
	return ctx.Err()
}

func (p *Page) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending < 0 {
		return
	}
	p.countdown--
	if p.countdown <= 0 {
		p.current = p.pending
		p.pending = -1
	}
}

func (p *Page) click() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks++
	if p.opts.ClickErr != nil {
		return p.opts.ClickErr
	}
	if p.opts.IgnoreClicks || p.current+1 >= len(p.docs) {
		return nil
	}
	if p.opts.RenderDelay <= 0 {
		p.current++
		return nil
	}
	p.pending = p.current + 1
	p.countdown = p.opts.RenderDelay
	return nil
}

func (p *Page) find(selector string) (*goquery.Selection, error) {
	p.mu.Lock()
	var html string
	if p.current < len(p.docs) {
		html = p.docs[p.current]
	}
	blank := p.pending >= 0 && p.opts.BlankWhileRendering
	p.mu.Unlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse fake document: %w", err)
	}
	if blank {
		doc.Find("tbody").Empty()
	}
	return doc.Find(selector), nil
}

// Element wraps a goquery selection.
type Element struct {
	sel  *goquery.Selection
	page *Page
}

var _ ports.Element = (*Element)(nil)

func (e *Element) InnerText() (string, error) {
	if !e.page.opts.RenderedText {
		return e.sel.Text(), nil
	}
	var lines []string
	for _, line := range strings.Split(renderedText(e.sel), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Element) Attribute(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *Element) Disabled() (bool, error) {
	_, ok := e.sel.Attr("disabled")
	return ok, nil
}

func (e *Element) Click() error {
	return e.page.click()
}

func (e *Element) HTML() (string, error) {
	return goquery.OuterHtml(e.sel)
}

var blockTags = map[string]bool{
	"br": true, "div": true, "li": true, "p": true, "section": true, "ul": true, "ol": true,
}

func renderedText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case name == "#text":
			b.WriteString(c.Text())
		case strings.HasPrefix(name, "#"):
		case c.AttrOr("hidden", "-") != "-",
			strings.Contains(strings.ReplaceAll(c.AttrOr("style", ""), " ", ""), "display:none"):
		case blockTags[name]:
			b.WriteString("\n")
			b.WriteString(renderedText(c))
			b.WriteString("\n")
		default:
			b.WriteString(renderedText(c))
		}
	})
	return b.String()
}
