package tree

import (
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Matcher decides whether a node belongs to a query result.
type Matcher interface {
	Match(n *html.Node) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(n *html.Node) bool

// Match calls f(n).
func (f MatcherFunc) Match(n *html.Node) bool { return f(n) }

// Compile parses a CSS selector group such as `a[href*="/x/"], .card`.
func Compile(sel string) (Matcher, error) {
	group, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, err
	}
	return group, nil
}

type selectorCache struct {
	mu    sync.Mutex
	byKey map[string]Matcher
}

func newSelectorCache() *selectorCache {
	return &selectorCache{byKey: make(map[string]Matcher)}
}

func (c *selectorCache) compile(sel string) (Matcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.byKey[sel]; ok {
		return m, nil
	}
	m, err := Compile(sel)
	if err != nil {
		return nil, err
	}
	c.byKey[sel] = m
	return m, nil
}
