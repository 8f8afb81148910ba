package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/mattsolo1/nb-tagger/pkg/bulk"
	"github.com/mattsolo1/nb-tagger/pkg/tagstore"
	"github.com/mattsolo1/nb-tagger/pkg/tree"
)

const (
	cloudID        = "my-tag-cloud"
	cloudClass     = "tag-cloud-container"
	cloudTagClass  = "cloud-tag"
	activeClass    = "active"
	allLabel       = "All"
	separatorClass = "tag-cloud-separator"
	exportClass    = "export-btn"
	importClass    = "import-btn"
	hiddenClass    = "notebook-hidden"
	footerClass    = "card-tags-row"
	miniTagClass   = "card-mini-tag"

	listViewSelector   = "mat-table, .project-table"
	projectsSelector   = ".my-projects-container"
	headingSelector    = ".projects-header"
	itemSelector       = "project-button"
	itemFallback       = "mat-card"
	footerHostSelector = "mat-card"
)

// Dashboard renders the tag cloud and filters notebook cards on the list
// page. The active filter lives in the document as the highlighted cloud
// selector.
type Dashboard struct {
	env *Env
}

// NewDashboard returns a dashboard renderer.
func NewDashboard(env *Env) *Dashboard {
	return &Dashboard{env: env}
}

// Render runs one dashboard cycle: place the cloud, fill it if it is empty,
// then filter the cards. Backend failures leave the page as it was.
func (d *Dashboard) Render(ctx context.Context, f Frame) {
	cloud := d.ensureCloud(f.Doc)
	if cloud == nil {
		return
	}
	if len(tree.ElementChildren(cloud)) == 0 {
		d.rebuildCloud(ctx, f.Doc)
	}

	filter := d.ActiveFilter(f.Doc)
	all, err := d.env.Store.GetAll(ctx)
	if err != nil {
		d.env.Log.WithError(err).Debug("dashboard refresh skipped")
		return
	}
	d.applyFilter(f.Doc, all, filter)
}

// ActiveFilter returns the highlighted tag, or "" when All is selected or
// there is no cloud.
func (d *Dashboard) ActiveFilter(doc *html.Node) string {
	cloud, ok := d.env.Search.ElementByID(doc, cloudID)
	if !ok {
		return ""
	}
	active, ok := d.env.Search.Find(cloud, "."+cloudTagClass+"."+activeClass)
	if !ok {
		return ""
	}
	if text := tree.TextContent(active); text != allLabel {
		return text
	}
	return ""
}

// SelectFilter highlights tag ("" for All) and re-filters the cards. It
// reports false when the cloud has no such selector.
func (d *Dashboard) SelectFilter(ctx context.Context, f Frame, tag string) bool {
	cloud, ok := d.env.Search.ElementByID(f.Doc, cloudID)
	if !ok {
		return false
	}
	label := tag
	if label == "" {
		label = allLabel
	}

	var target *html.Node
	for _, c := range tree.ElementChildren(cloud) {
		if tree.HasClass(c, cloudTagClass) && tree.TextContent(c) == label {
			target = c
			break
		}
	}
	if target == nil {
		return false
	}
	for _, c := range tree.ElementChildren(cloud) {
		tree.RemoveClass(c, activeClass)
	}
	tree.AddClass(target, activeClass)

	all, err := d.env.Store.GetAll(ctx)
	if err != nil {
		d.env.Log.WithError(err).Debug("filter refresh skipped")
		return true
	}
	d.applyFilter(f.Doc, all, tag)
	return true
}

// Rename asks for a new name for oldName and renames it everywhere.
func (d *Dashboard) Rename(ctx context.Context, f Frame, oldName string) error {
	newName, ok := d.env.Prompter.Prompt(fmt.Sprintf("Rename tag %q to:", oldName), oldName)
	if !ok || newName == "" || newName == oldName {
		return nil
	}
	return d.RenameTo(ctx, f, oldName, newName)
}

// RenameTo renames oldName to newName in every notebook, then rebuilds the
// cloud and shows every card.
func (d *Dashboard) RenameTo(ctx context.Context, f Frame, oldName, newName string) error {
	changed, err := bulk.Rename(ctx, d.env.Store, oldName, newName)
	if err != nil {
		d.env.Prompter.Alert(fmt.Sprintf("Rename failed: %v", err))
		return err
	}
	if changed == 0 {
		return nil
	}
	d.env.Prompter.Alert(fmt.Sprintf("Renamed: %s -> %s", oldName, newName))
	d.refresh(ctx, f)
	return nil
}

// Export offers the tag map as a dated JSON download.
func (d *Dashboard) Export(ctx context.Context) error {
	data, err := bulk.Export(ctx, d.env.Store)
	if err != nil {
		d.env.Prompter.Alert(fmt.Sprintf("Export failed: %v", err))
		return err
	}
	name := bulk.ExportFilename(d.env.Options.ExportPrefix, d.env.Now())
	if err := d.env.Downloader.Download(name, data); err != nil {
		d.env.Prompter.Alert(fmt.Sprintf("Export failed: %v", err))
		return fmt.Errorf("download %s: %w", name, err)
	}
	return nil
}

// Import reads an exported document, asks for confirmation and merges it
// into the store. Nothing is written unless the whole document parses and
// the user agrees.
func (d *Dashboard) Import(ctx context.Context, f Frame, r io.Reader) error {
	m, summary, err := bulk.ParseImport(r)
	if err != nil {
		if errors.Is(err, bulk.ErrNoTagData) {
			d.env.Prompter.Alert("No valid tag data found")
		} else {
			d.env.Prompter.Alert(fmt.Sprintf("Failed to read JSON file: %v", err))
		}
		return err
	}

	counts := fmt.Sprintf("Notebooks: %d\nTags: %d", summary.Notebooks, summary.Tags)
	if !d.env.Prompter.Confirm("Import tags?\n" + counts + "\n\nExisting data will be overwritten.") {
		return nil
	}

	if err := bulk.Apply(ctx, d.env.Store, m); err != nil {
		d.env.Prompter.Alert(fmt.Sprintf("Import failed: %v", err))
		return err
	}
	d.env.Prompter.Alert("Import complete!\n" + counts)
	d.refresh(ctx, f)
	return nil
}

// refresh rebuilds the cloud (resetting the filter to All) and shows every
// card with its current tags.
func (d *Dashboard) refresh(ctx context.Context, f Frame) {
	d.rebuildCloud(ctx, f.Doc)
	all, err := d.env.Store.GetAll(ctx)
	if err != nil {
		d.env.Log.WithError(err).Debug("refresh skipped")
		return
	}
	d.applyFilter(f.Doc, all, "")
}

// ensureCloud keeps the cloud directly after the visible notebooks heading,
// creating it if needed. It removes the cloud and returns nil when the page
// has no such heading or shows the list layout.
func (d *Dashboard) ensureCloud(doc *html.Node) *html.Node {
	cloud, _ := d.env.Search.ElementByID(doc, cloudID)

	if _, isList := d.env.Search.QuerySelector(doc, listViewSelector); isList {
		tree.Remove(cloud)
		return nil
	}

	anchor := d.findAnchor(doc)
	if anchor == nil {
		tree.Remove(cloud)
		return nil
	}

	if cloud == nil {
		cloud = tree.NewElement("div", "id", cloudID, "class", cloudClass)
	}
	if cloud.Parent != anchor.Parent || cloud.PrevSibling != anchor {
		tree.InsertAfter(anchor, cloud)
	}
	return cloud
}

func (d *Dashboard) findAnchor(doc *html.Node) *html.Node {
	for _, region := range d.env.Search.QuerySelectorAll(doc, projectsSelector) {
		headers := d.env.Search.QuerySelectorAll(region, headingSelector)
		for _, want := range d.env.Options.Headings {
			want = norm.NFC.String(want)
			for _, h := range headers {
				if strings.Contains(norm.NFC.String(tree.TextContent(h)), want) && tree.IsVisible(h) {
					return h
				}
			}
		}
	}
	return nil
}

// rebuildCloud empties the cloud and fills it from the whole store. The
// cloud is looked up again after the read; if it is gone there is nothing
// to fill.
func (d *Dashboard) rebuildCloud(ctx context.Context, doc *html.Node) {
	if cloud, ok := d.env.Search.ElementByID(doc, cloudID); ok {
		tree.ClearChildren(cloud)
	}

	all, err := d.env.Store.GetAll(ctx)
	if err != nil {
		d.env.Log.WithError(err).Debug("tag cloud left empty")
		return
	}

	cloud, ok := d.env.Search.ElementByID(doc, cloudID)
	if !ok {
		return
	}
	tree.ClearChildren(cloud)

	cloud.AppendChild(cloudTag(allLabel, true))
	for _, t := range tagstore.Distinct(all) {
		cloud.AppendChild(cloudTag(t, false))
	}
	d.appendTransferButtons(cloud)
}

func (d *Dashboard) appendTransferButtons(cloud *html.Node) {
	if _, ok := d.env.Search.Find(cloud, "."+exportClass+", ."+importClass); ok {
		return
	}
	cloud.AppendChild(tree.NewElement("span", "class", separatorClass))

	export := tree.NewElement("button", "class", exportClass, "title", "Export tag data as JSON")
	tree.AppendText(export, "📥 Export")
	cloud.AppendChild(export)

	imp := tree.NewElement("button", "class", importClass, "title", "Import tag data from a JSON file")
	tree.AppendText(imp, "📤 Import")
	cloud.AppendChild(imp)
}

func cloudTag(label string, active bool) *html.Node {
	class := cloudTagClass
	if active {
		class += " " + activeClass
	}
	n := tree.NewElement("span", "class", class)
	tree.AppendText(n, label)
	return n
}

// Items returns the notebook cards on the page, featured ones included.
func (d *Dashboard) Items(doc *html.Node) []*html.Node {
	cards := d.env.Search.QuerySelectorAll(doc, itemSelector)
	if len(cards) == 0 {
		cards = d.env.Search.QuerySelectorAll(doc, itemFallback)
	}
	return cards
}

func (d *Dashboard) applyFilter(doc *html.Node, all tagstore.Map, filter string) {
	for _, card := range d.Items(doc) {
		id, ok := d.env.Resolver.Resolve(card)
		if !ok {
			continue
		}
		tags := all[id]

		if filter != "" && !tagstore.Contains(tags, filter) {
			tree.AddClass(card, hiddenClass)
			tree.SetStyle(card, "display", "none")
			continue
		}
		tree.RemoveClass(card, hiddenClass)
		tree.SetStyle(card, "display", "")
		d.updateFooter(card, tags)
	}
}

func (d *Dashboard) updateFooter(card *html.Node, tags []string) {
	target, ok := d.env.Search.QuerySelector(card, footerHostSelector)
	if !ok {
		target = card
	}
	row, hasRow := d.env.Search.Find(target, "."+footerClass)

	if len(tags) == 0 {
		if hasRow {
			tree.Remove(row)
		}
		return
	}

	if !hasRow {
		row = tree.NewElement("div", "class", footerClass)
		target.AppendChild(row)
	}
	tree.ClearChildren(row)
	for _, t := range tags {
		chip := tree.NewElement("span", "class", miniTagClass)
		tree.AppendText(chip, t)
		row.AppendChild(chip)
	}
}
