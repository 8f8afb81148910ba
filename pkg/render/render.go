// Package render keeps the injected tag UI in step with the host document.
// Renderers are idempotent: running one twice over the same document and
// store leaves the same result as running it once.
package render

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/mattsolo1/nb-tagger/pkg/bulk"
	"github.com/mattsolo1/nb-tagger/pkg/identity"
	"github.com/mattsolo1/nb-tagger/pkg/tagstore"
	"github.com/mattsolo1/nb-tagger/pkg/tree"
)

// Prompter asks the user things. It stands in for the browser's prompt,
// confirm and alert dialogs.
type Prompter interface {
	// Prompt asks for free text. ok is false when the user cancels.
	Prompt(message, defaultValue string) (value string, ok bool)
	Confirm(message string) bool
	Alert(message string)
}

// Downloader hands a generated file to the user.
type Downloader interface {
	Download(filename string, data []byte) error
}

// Mode selects which renderer handles a location.
type Mode string

const (
	ModeDashboard Mode = "dashboard"
	ModeDetail    Mode = "detail"
)

// ModeFor picks the mode for a navigation location.
func ModeFor(location string) Mode {
	if identity.IsDetailLocation(location) {
		return ModeDetail
	}
	return ModeDashboard
}

// Frame is the per-cycle context handed to renderers by the dispatch loop:
// the current document root and navigation location.
type Frame struct {
	Doc      *html.Node
	Location string
}

// DefaultHeadings are the section titles the tag cloud is mounted under.
var DefaultHeadings = []string{
	"最近のノートブック",
	"Recent notebooks",
	"マイ ノートブック",
	"My notebooks",
	"My Notebooks",
}

// Options tune rendering.
type Options struct {
	Headings     []string
	ExportPrefix string
}

// Env holds the collaborators shared by both renderers.
type Env struct {
	Store      *tagstore.Store
	Search     *tree.Searcher
	Resolver   *identity.Resolver
	Prompter   Prompter
	Downloader Downloader
	Log        logrus.FieldLogger
	Now        func() time.Time
	Options    Options
}

// NewEnv wires an Env around store with default options.
func NewEnv(store *tagstore.Store, prompter Prompter, downloader Downloader, log logrus.FieldLogger) *Env {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	search := tree.NewSearcher(log)
	return &Env{
		Store:      store,
		Search:     search,
		Resolver:   identity.NewResolver(search),
		Prompter:   prompter,
		Downloader: downloader,
		Log:        log,
		Now:        time.Now,
		Options: Options{
			Headings:     DefaultHeadings,
			ExportPrefix: bulk.DefaultExportPrefix,
		},
	}
}

// View dispatches a frame to the renderer for its mode.
type View struct {
	Dashboard *Dashboard
	Detail    *Detail
}

// NewView builds both renderers over env.
func NewView(env *Env) *View {
	return &View{Dashboard: NewDashboard(env), Detail: NewDetail(env)}
}

// Render runs one render cycle.
func (v *View) Render(ctx context.Context, f Frame) {
	if f.Doc == nil {
		return
	}
	switch ModeFor(f.Location) {
	case ModeDetail:
		v.Detail.Render(ctx, f)
	default:
		v.Dashboard.Render(ctx, f)
	}
}
