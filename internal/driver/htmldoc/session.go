package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/scientia/internal/driver"
)

// Session holds the current document of one fetch-and-parse view
type Session struct {
	engine *Engine
	url    string
	doc    *html.Node
	values map[*html.Node]string // filled input values
	gen    int                   // bumped on every navigation
	closed bool
}

// Navigate fetches rawURL and makes it the current document
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	if s.closed {
		return ErrClosed
	}

	target, err := s.resolve(rawURL)
	if err != nil {
		return err
	}

	p, err := s.engine.load(ctx, target)
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}

	doc, err := htmlquery.Parse(bytes.NewReader(p.Body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", p.URL, err)
	}

	s.url = p.URL
	s.doc = doc
	s.values = make(map[*html.Node]string)
	s.gen++
	return nil
}

// ContainsText reports whether the document body text contains needle
func (s *Session) ContainsText(ctx context.Context, needle string) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	if s.doc == nil {
		return false, nil
	}

	root := htmlquery.FindOne(s.doc, "//body")
	if root == nil {
		root = s.doc
	}
	return strings.Contains(htmlquery.InnerText(root), needle), nil
}

// FindElement returns the first node matching locator, or nil
func (s *Session) FindElement(ctx context.Context, locator string) (driver.Element, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.doc == nil {
		return nil, nil
	}
	return s.query(s.doc, locator)
}

// FindElements returns every node matching locator in document order
func (s *Session) FindElements(ctx context.Context, locator string) ([]driver.Element, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.doc == nil {
		return nil, nil
	}

	nodes, err := htmlquery.QueryAll(s.doc, locator)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", locator, err)
	}

	elements := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, s.wrap(n))
	}
	return elements, nil
}

// CurrentURL returns the URL of the current document after redirects
func (s *Session) CurrentURL() string {
	return s.url
}

// Close releases the document. Further calls fail with ErrClosed.
func (s *Session) Close() error {
	s.closed = true
	s.doc = nil
	s.values = nil
	return nil
}

func (s *Session) query(top *html.Node, locator string) (driver.Element, error) {
	node, err := htmlquery.Query(top, locator)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", locator, err)
	}
	if node == nil {
		return nil, nil
	}
	return s.wrap(node), nil
}

func (s *Session) wrap(n *html.Node) *element {
	return &element{s: s, node: n, gen: s.gen}
}

// resolve makes ref absolute against the current document
func (s *Session) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}

	base, err := url.Parse(s.url)
	if err != nil || !base.IsAbs() {
		return "", fmt.Errorf("relative URL %q without a current document", ref)
	}
	return base.ResolveReference(u).String(), nil
}

// element is a node of the document that was current when it was found
type element struct {
	s    *Session
	node *html.Node
	gen  int
}

func (e *element) check() error {
	if e.s.closed {
		return ErrClosed
	}
	if e.gen != e.s.gen {
		return fmt.Errorf("stale element <%s>: document has changed", e.node.Data)
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return htmlquery.InnerText(e.node), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return htmlquery.SelectAttr(e.node, name), nil
}

func (e *element) Find(ctx context.Context, locator string) (driver.Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	return e.s.query(e.node, locator)
}

func (e *element) Fill(ctx context.Context, value string) error {
	if err := e.check(); err != nil {
		return err
	}
	if e.node.DataAtom != atom.Input && e.node.DataAtom != atom.Textarea {
		return fmt.Errorf("fill: <%s> is not an input", e.node.Data)
	}
	e.s.values[e.node] = value
	return nil
}

// Submit sends the enclosing form as a GET request
func (e *element) Submit(ctx context.Context) error {
	if err := e.check(); err != nil {
		return err
	}

	form := e.node
	for form != nil && form.DataAtom != atom.Form {
		form = form.Parent
	}
	if form == nil {
		return fmt.Errorf("submit: <%s> is not inside a form", e.node.Data)
	}

	if method := htmlquery.SelectAttr(form, "method"); method != "" && !strings.EqualFold(method, "get") {
		return fmt.Errorf("submit: unsupported form method %q", method)
	}

	action := htmlquery.SelectAttr(form, "action")
	if action == "" {
		action = e.s.url
	}
	target, err := e.s.resolve(action)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	u.RawQuery = e.s.formValues(form).Encode()

	return e.s.Navigate(ctx, u.String())
}

// Activate follows a link, or submits the form of a submit control
func (e *element) Activate(ctx context.Context) error {
	if err := e.check(); err != nil {
		return err
	}

	for n := e.node; n != nil; n = n.Parent {
		if n.DataAtom == atom.A {
			href := htmlquery.SelectAttr(n, "href")
			if href == "" {
				return fmt.Errorf("activate: link has no href")
			}
			return e.s.Navigate(ctx, href)
		}
	}

	switch e.node.DataAtom {
	case atom.Button:
		return e.Submit(ctx)
	case atom.Input:
		if t := strings.ToLower(htmlquery.SelectAttr(e.node, "type")); t == "submit" || t == "image" {
			return e.Submit(ctx)
		}
	}

	return fmt.Errorf("activate: <%s> is not a link or submit control", e.node.Data)
}

// formValues collects successful controls the way a browser would for an
// implicit (Enter key) submission, without a submitter
func (s *Session) formValues(form *html.Node) url.Values {
	values := url.Values{}
	for _, in := range htmlquery.Find(form, ".//input[@name] | .//textarea[@name]") {
		if hasAttr(in, "disabled") {
			continue
		}
		name := htmlquery.SelectAttr(in, "name")

		value, filled := s.values[in]
		if !filled {
			if in.DataAtom == atom.Textarea {
				value = htmlquery.InnerText(in)
			} else {
				value = htmlquery.SelectAttr(in, "value")
			}
		}

		switch strings.ToLower(htmlquery.SelectAttr(in, "type")) {
		case "submit", "button", "image", "reset", "file":
			continue
		case "checkbox", "radio":
			if !hasAttr(in, "checked") {
				continue
			}
			if value == "" {
				value = "on"
			}
		}

		values.Add(name, value)
	}
	return values
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}
