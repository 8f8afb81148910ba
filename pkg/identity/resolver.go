package identity

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/mattsolo1/nb-tagger/pkg/tree"
)

var (
	notebookPathPattern = regexp.MustCompile(`/notebook/([a-zA-Z0-9_-]+)`)
	projectAttrPattern  = regexp.MustCompile(`project-([a-zA-Z0-9-]+)-(?:title|emoji|subtitle|sharing|menu)`)
)

const (
	notebookLinkSelector = `a[href*="/notebook/"]`
	projectAttrSelector  = `[id*="project-"], [aria-labelledby*="project-"]`
	featuredClass        = "featured-project"
	featuredAncestors    = ".featured-project, .featured-project-card"
)

// Resolver extracts notebook identifiers from item containers.
type Resolver struct {
	search *tree.Searcher
}

// NewResolver returns a Resolver that queries through s.
func NewResolver(s *tree.Searcher) *Resolver {
	return &Resolver{search: s}
}

// Resolve returns the identifier of the item rendered by container. Links to
// the notebook are preferred over the project-* attribute convention.
// Featured items never resolve.
func (r *Resolver) Resolve(container *html.Node) (string, bool) {
	if container == nil || r.IsFeatured(container) {
		return "", false
	}
	if id, ok := r.fromLink(container); ok {
		return id, true
	}
	return r.fromAttributes(container)
}

// IsFeatured reports whether the host marks n as promotional content, on the
// node itself, a descendant, or an ancestor.
func (r *Resolver) IsFeatured(n *html.Node) bool {
	if tree.HasClass(n, featuredClass) {
		return true
	}
	if _, ok := r.search.Find(n, "."+featuredClass); ok {
		return true
	}
	_, ok := r.search.Closest(n, featuredAncestors)
	return ok
}

func (r *Resolver) fromLink(container *html.Node) (string, bool) {
	link, ok := r.search.QuerySelector(container, notebookLinkSelector)
	if !ok {
		return "", false
	}
	href, _ := tree.Attr(link, "href")
	return FromLocation(href)
}

func (r *Resolver) fromAttributes(container *html.Node) (string, bool) {
	candidates := r.search.QuerySelectorAll(container, projectAttrSelector)
	if id, _ := tree.Attr(container, "id"); strings.Contains(id, "project-") {
		candidates = append(candidates, container)
	}

	for _, el := range candidates {
		ref, _ := tree.Attr(el, "id")
		if ref == "" {
			ref, _ = tree.Attr(el, "aria-labelledby")
		}
		if ref == "" {
			continue
		}
		if m := projectAttrPattern.FindStringSubmatch(ref); m != nil && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

// FromLocation extracts the notebook identifier from a URL or path.
func FromLocation(location string) (string, bool) {
	m := notebookPathPattern.FindStringSubmatch(location)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsDetailLocation reports whether location points inside one notebook.
func IsDetailLocation(location string) bool {
	return strings.Contains(location, "/notebook/")
}
