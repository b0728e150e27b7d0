package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"debate/internal/selectors"
)

// rodPage adapts a rod page to the PageController interface.
type rodPage struct {
	page *rod.Page
}

// NewRodController wraps a rod page in a PageController.
func NewRodController(page *rod.Page) PageController {
	return &rodPage{page: page}
}

func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return p.page.Context(ctx).Timeout(timeout).Navigate(url)
}

func (p *rodPage) WaitLoad(ctx context.Context, timeout time.Duration) error {
	return p.page.Context(ctx).Timeout(timeout).WaitLoad()
}

func (p *rodPage) Reload(ctx context.Context) error {
	return p.page.Context(ctx).Reload()
}

func (p *rodPage) Query(ctx context.Context, loc selectors.Locator) (Element, bool, error) {
	page := p.page.Context(ctx)

	var (
		has bool
		el  *rod.Element
		err error
	)
	switch loc.Kind {
	case selectors.KindText:
		has, el, err = page.HasX(textXPath(loc.Value))
	default:
		has, el, err = page.Has(cssFor(loc))
	}
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	return &rodElement{el: el}, true, nil
}

func (p *rodPage) QueryAll(ctx context.Context, loc selectors.Locator) ([]Element, error) {
	page := p.page.Context(ctx)

	var (
		els rod.Elements
		err error
	)
	switch loc.Kind {
	case selectors.KindText:
		els, err = page.ElementsX(textXPath(loc.Value))
	default:
		els, err = page.Elements(cssFor(loc))
	}
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (p *rodPage) WaitVisible(ctx context.Context, loc selectors.Locator, timeout time.Duration) (Element, error) {
	page := p.page.Context(ctx).Timeout(timeout)

	var (
		el  *rod.Element
		err error
	)
	switch loc.Kind {
	case selectors.KindText:
		el, err = page.ElementX(textXPath(loc.Value))
	default:
		el, err = page.Element(cssFor(loc))
	}
	if err != nil {
		return nil, err
	}
	if err := el.WaitVisible(); err != nil {
		return nil, err
	}
	// Detach the element from the wait deadline so later interaction does
	// not fail once the deadline passes.
	return &rodElement{el: el.CancelTimeout()}, nil
}

func (p *rodPage) InsertText(ctx context.Context, text string, perCharDelay time.Duration) error {
	page := p.page.Context(ctx)
	for _, r := range text {
		if err := page.InsertText(string(r)); err != nil {
			return err
		}
		if perCharDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(perCharDelay):
			}
		}
	}
	return nil
}

func (p *rodPage) Cookies(ctx context.Context) ([]Cookie, error) {
	res, err := proto.NetworkGetCookies{}.Call(p.page.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	out := make([]Cookie, 0, len(res.Cookies))
	for _, c := range res.Cookies {
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out, nil
}

func (p *rodPage) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		})
	}
	if len(params) == 0 {
		return nil
	}
	return p.page.Context(ctx).SetCookies(params)
}

// cssFor renders CSS and role locators as CSS selector strings.
func cssFor(loc selectors.Locator) string {
	if loc.Kind == selectors.KindRole {
		return fmt.Sprintf("[role='%s']", loc.Value)
	}
	return loc.Value
}

// textXPath builds an XPath matching any element containing the given text.
func textXPath(text string) string {
	return fmt.Sprintf("//*[contains(normalize-space(text()), %s)]", xpathLiteral(text))
}

// xpathLiteral quotes a string for embedding in an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	return `concat('` + strings.ReplaceAll(s, `'`, `', "'", '`) + `')`
}

// rodElement adapts a rod element to the Element interface.
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

// setTextJS replaces the element content and fires an input event so the
// page's framework notices the change. `this` is the element.
const setTextJS = `(text) => {
	if (this.isContentEditable) {
		this.innerText = text;
	} else {
		this.value = text;
	}
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
}`

func (e *rodElement) SetText(text string) error {
	_, err := e.el.Eval(setTextJS, text)
	return err
}

func (e *rodElement) Input(text string) error {
	return e.el.Input(text)
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Visible() (bool, error) {
	return e.el.Visible()
}
