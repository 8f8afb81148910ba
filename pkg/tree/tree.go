package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Boundary reports the encapsulated root hosted by a node. A node hosts at
// most one nested root; nil means the node is not a host.
type Boundary interface {
	NestedRoot(n *html.Node) *html.Node
}

// DeclarativeShadow treats a <template shadowrootmode> child as the shadow
// root of its parent element.
type DeclarativeShadow struct{}

// NestedRoot returns the first declarative shadow template under n.
func (DeclarativeShadow) NestedRoot(n *html.Node) *html.Node {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsShadowTemplate(c) {
			return c
		}
	}
	return nil
}

// IsShadowTemplate reports whether n is a declarative shadow root template.
func IsShadowTemplate(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || n.DataAtom != atom.Template {
		return false
	}
	_, open := Attr(n, "shadowrootmode")
	_, legacy := Attr(n, "shadowroot")
	return open || legacy
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// ParseString is Parse over an in-memory document.
func ParseString(s string) (*html.Node, error) {
	return Parse(strings.NewReader(s))
}

// Render writes the document back out as HTML.
func Render(w io.Writer, doc *html.Node) error {
	return html.Render(w, doc)
}

// Searcher runs queries over a document, crossing encapsulated boundaries.
type Searcher struct {
	boundary Boundary
	log      logrus.FieldLogger
	cache    *selectorCache
}

// NewSearcher returns a Searcher over declarative shadow roots.
func NewSearcher(log logrus.FieldLogger) *Searcher {
	return NewSearcherWithBoundary(DeclarativeShadow{}, log)
}

// NewSearcherWithBoundary returns a Searcher that crosses the boundaries
// reported by b.
func NewSearcherWithBoundary(b Boundary, log logrus.FieldLogger) *Searcher {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Searcher{boundary: b, log: log, cache: newSelectorCache()}
}

// QueryAll returns every element under root matching m, including elements
// inside nested roots hosted by root or any of its descendants. root itself
// is never part of the result.
func (s *Searcher) QueryAll(root *html.Node, m Matcher) []*html.Node {
	if root == nil || m == nil {
		return nil
	}

	var results []*html.Node
	s.walkLight(root, func(n *html.Node) {
		if s.match(m, n) {
			results = append(results, n)
		}
	})

	if nested := s.nestedRoot(root); nested != nil {
		results = append(results, s.QueryAll(nested, m)...)
	}
	s.walkLight(root, func(n *html.Node) {
		if nested := s.nestedRoot(n); nested != nil {
			results = append(results, s.QueryAll(nested, m)...)
		}
	})
	return results
}

// Query returns the first element QueryAll would return.
func (s *Searcher) Query(root *html.Node, m Matcher) (*html.Node, bool) {
	all := s.QueryAll(root, m)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// QuerySelectorAll compiles sel and runs QueryAll. An invalid selector
// matches nothing.
func (s *Searcher) QuerySelectorAll(root *html.Node, sel string) []*html.Node {
	m, err := s.cache.compile(sel)
	if err != nil {
		s.log.WithField("selector", sel).WithError(err).Debug("invalid selector")
		return nil
	}
	return s.QueryAll(root, m)
}

// QuerySelector is the single-result form of QuerySelectorAll.
func (s *Searcher) QuerySelector(root *html.Node, sel string) (*html.Node, bool) {
	all := s.QuerySelectorAll(root, sel)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// Find searches root's own tree only, without crossing into nested roots.
func (s *Searcher) Find(root *html.Node, sel string) (*html.Node, bool) {
	m, err := s.cache.compile(sel)
	if err != nil {
		s.log.WithField("selector", sel).WithError(err).Debug("invalid selector")
		return nil, false
	}
	var found *html.Node
	s.walkLight(root, func(n *html.Node) {
		if found == nil && s.match(m, n) {
			found = n
		}
	})
	return found, found != nil
}

// ElementByID finds an element by id anywhere in the reachable tree.
func (s *Searcher) ElementByID(root *html.Node, id string) (*html.Node, bool) {
	return s.Query(root, MatcherFunc(func(n *html.Node) bool {
		v, ok := Attr(n, "id")
		return ok && v == id
	}))
}

// Closest returns n or its nearest ancestor matching sel. The walk stops at
// the root of the tree n lives in.
func (s *Searcher) Closest(n *html.Node, sel string) (*html.Node, bool) {
	m, err := s.cache.compile(sel)
	if err != nil {
		return nil, false
	}
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if s.opaque(cur) {
			break
		}
		if s.match(m, cur) {
			return cur, true
		}
	}
	return nil, false
}

// walkLight visits root's element descendants in document order, skipping
// nested roots and inert template contents.
func (s *Searcher) walkLight(root *html.Node, visit func(*html.Node)) {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || s.opaque(c) {
			continue
		}
		visit(c)
		s.walkLight(c, visit)
	}
}

func (s *Searcher) nestedRoot(n *html.Node) *html.Node {
	if s.boundary == nil {
		return nil
	}
	return s.boundary.NestedRoot(n)
}

func (s *Searcher) opaque(n *html.Node) bool {
	if n.Type == html.ElementNode && n.DataAtom == atom.Template {
		return true
	}
	return n.Parent != nil && s.nestedRoot(n.Parent) == n
}

// match runs one matcher against one node. A panicking matcher counts as a
// miss for that node only.
func (s *Searcher) match(m Matcher, n *html.Node) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Debug("matcher failed")
			ok = false
		}
	}()
	return m.Match(n)
}
