package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/mattsolo1/nb-tagger/pkg/bulk"
	"github.com/mattsolo1/nb-tagger/pkg/kv"
	"github.com/mattsolo1/nb-tagger/pkg/render"
	"github.com/mattsolo1/nb-tagger/pkg/tagger"
	"github.com/mattsolo1/nb-tagger/pkg/tagstore"
	"github.com/mattsolo1/nb-tagger/pkg/tree"
)

// Service is the core tag service behind the CLI.
type Service struct {
	Store   *tagstore.Store
	Config  *Config
	backend kv.Backend
	log     logrus.FieldLogger
}

// Config holds service configuration
type Config struct {
	DataDir     string
	Backend     kv.Kind
	QuietPeriod time.Duration
	Render      render.Options
}

// TagCount is one entry of the tag cloud.
type TagCount struct {
	Tag   string `json:"tag" yaml:"tag"`
	Count int    `json:"count" yaml:"count"`
}

// New opens the configured backend.
func New(config *Config, log logrus.FieldLogger) (*Service, error) {
	backend, err := kv.Open(config.Backend, config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return NewWithBackend(config, backend, log), nil
}

// NewWithBackend wraps an already open backend.
func NewWithBackend(config *Config, backend kv.Backend, log logrus.FieldLogger) *Service {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Service{
		Store:   tagstore.New(backend, log),
		Config:  config,
		backend: backend,
		log:     log,
	}
}

// Close releases the backend.
func (s *Service) Close() error {
	return s.backend.Close()
}

// Log is the service logger.
func (s *Service) Log() logrus.FieldLogger {
	return s.log
}

// Env builds a render environment using the configured options.
func (s *Service) Env(prompter render.Prompter, downloader render.Downloader) *render.Env {
	env := render.NewEnv(s.Store, prompter, downloader, s.log)
	if len(s.Config.Render.Headings) > 0 {
		env.Options.Headings = s.Config.Render.Headings
	}
	if s.Config.Render.ExportPrefix != "" {
		env.Options.ExportPrefix = s.Config.Render.ExportPrefix
	}
	return env
}

// List returns the whole tag map, or only id's entry when id is set.
func (s *Service) List(ctx context.Context, id string) (tagstore.Map, error) {
	if id == "" {
		return s.Store.GetAll(ctx)
	}
	tags, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return tagstore.Map{id: tags}, nil
}

// AddTags appends tags to id, skipping empties and ones already present.
func (s *Service) AddTags(ctx context.Context, id string, tags ...string) ([]string, error) {
	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changed := false
	for _, t := range tags {
		var added bool
		current, added = tagstore.Append(current, t)
		changed = changed || added
	}
	if !changed {
		return current, nil
	}
	if err := s.Store.SetMany(ctx, tagstore.Map{id: current}); err != nil {
		return nil, err
	}
	return current, nil
}

// RemoveTag drops tag from id. The bool reports whether it was there.
func (s *Service) RemoveTag(ctx context.Context, id, tag string) ([]string, bool, error) {
	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !tagstore.Contains(current, tag) {
		return current, false, nil
	}
	next := tagstore.Without(current, tag)
	if err := s.Store.SetMany(ctx, tagstore.Map{id: next}); err != nil {
		return nil, false, err
	}
	return next, true, nil
}

// Rename renames a tag across every notebook.
func (s *Service) Rename(ctx context.Context, oldName, newName string) (int, error) {
	return bulk.Rename(ctx, s.Store, oldName, newName)
}

// Cloud lists the distinct tags in cloud order with how many notebooks use
// each.
func (s *Service) Cloud(ctx context.Context) ([]TagCount, error) {
	all, err := s.Store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	counts := tagstore.Counts(all)
	var out []TagCount
	for _, t := range tagstore.Distinct(all) {
		out = append(out, TagCount{Tag: t, Count: counts[t]})
	}
	return out, nil
}

// Export writes the dated export file through downloader.
func (s *Service) Export(ctx context.Context, downloader render.Downloader) (string, error) {
	data, err := bulk.Export(ctx, s.Store)
	if err != nil {
		return "", err
	}
	name := bulk.ExportFilename(s.exportPrefix(), time.Now())
	if err := downloader.Download(name, data); err != nil {
		return "", err
	}
	return name, nil
}

// Import parses r and, if prompter agrees, merges it into the store.
func (s *Service) Import(ctx context.Context, r io.Reader, prompter render.Prompter) error {
	return render.NewDashboard(s.Env(prompter, nil)).Import(ctx, render.Frame{}, r)
}

// RenderSnapshot runs one render cycle over a saved host page and, on the
// dashboard, applies filter when it is set.
func (s *Service) RenderSnapshot(ctx context.Context, r io.Reader, location, filter string) (*html.Node, error) {
	doc, err := tree.Parse(r)
	if err != nil {
		return nil, err
	}
	view := render.NewView(s.Env(nil, nil))
	frame := render.Frame{Doc: doc, Location: location}
	view.Render(ctx, frame)

	if filter != "" && render.ModeFor(location) == render.ModeDashboard {
		if !view.Dashboard.SelectFilter(ctx, frame, filter) {
			return nil, fmt.Errorf("tag %q is not in the tag cloud", filter)
		}
	}
	return doc, nil
}

// NewSession prepares a live session over page.
func (s *Service) NewSession(page *tagger.Page, prompter render.Prompter, downloader render.Downloader, onRender func(*tagger.Page)) *tagger.Session {
	view := render.NewView(s.Env(prompter, downloader))
	return tagger.NewSession(page, view, s.log, tagger.Options{
		QuietPeriod: s.Config.QuietPeriod,
		OnRender:    onRender,
	})
}

func (s *Service) exportPrefix() string {
	if s.Config.Render.ExportPrefix != "" {
		return s.Config.Render.ExportPrefix
	}
	return bulk.DefaultExportPrefix
}
