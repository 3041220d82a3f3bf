package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"DirectoryHarvester/internal/ports"
)

// Page adapts a rod page to ports.Page.
type Page struct {
	p             *rod.Page
	navTimeout    time.Duration
	actionTimeout time.Duration
}

var _ ports.Page = (*Page)(nil)

func newPage(p *rod.Page, navTimeout, actionTimeout time.Duration) *Page {
	return &Page{p: p, navTimeout: navTimeout, actionTimeout: actionTimeout}
}

func (pg *Page) Navigate(ctx context.Context, url string) error {
	nav := pg.p.Context(ctx).Timeout(pg.navTimeout)
	if err := nav.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := nav.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", url, err)
	}
	return nil
}

func (pg *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (ports.Element, error) {
	scoped := pg.p.Context(ctx).Timeout(timeout)
	el, err := scoped.Element(selector)
	if err == nil {
		err = el.WaitVisible()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("wait %s for %q: %w", timeout, selector, ports.ErrTimeout)
		}
		return nil, fmt.Errorf("wait for %q: %w", selector, err)
	}
	return pg.wrap(el.CancelTimeout()), nil
}

func (pg *Page) QuerySelector(ctx context.Context, selector string) (ports.Element, error) {
	has, el, err := pg.p.Context(ctx).Timeout(pg.actionTimeout).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if !has {
		return nil, fmt.Errorf("query %q: %w", selector, ports.ErrElementNotFound)
	}
	return pg.wrap(el.CancelTimeout()), nil
}

func (pg *Page) QuerySelectorAll(ctx context.Context, selector string) ([]ports.Element, error) {
	els, err := pg.p.Context(ctx).Timeout(pg.actionTimeout).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query all %q: %w", selector, err)
	}
	out := make([]ports.Element, 0, len(els))
	for _, el := range els {
		out = append(out, pg.wrap(el.CancelTimeout()))
	}
	return out, nil
}

func (pg *Page) WaitForTimeout(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (pg *Page) close() error {
	return pg.p.Close()
}

func (pg *Page) wrap(el *rod.Element) *Element {
	return &Element{el: el, timeout: pg.actionTimeout}
}

// Element adapts a rod element to ports.Element. Every call is bounded by the action timeout.
type Element struct {
	el      *rod.Element
	timeout time.Duration
}

var _ ports.Element = (*Element)(nil)

func (e *Element) InnerText() (string, error) {
	return e.el.Timeout(e.timeout).Text()
}

func (e *Element) Attribute(name string) (string, bool, error) {
	v, err := e.el.Timeout(e.timeout).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *Element) Disabled() (bool, error) {
	return e.el.Timeout(e.timeout).Disabled()
}

func (e *Element) Click() error {
	return e.el.Timeout(e.timeout).Click(proto.InputMouseButtonLeft, 1)
}

func (e *Element) HTML() (string, error) {
	return e.el.Timeout(e.timeout).HTML()
}
