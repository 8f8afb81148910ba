package render

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/mattsolo1/nb-tagger/pkg/identity"
	"github.com/mattsolo1/nb-tagger/pkg/tagstore"
	"github.com/mattsolo1/nb-tagger/pkg/tree"
)

const (
	tagContainerID    = "my-tag-container"
	tagContainerClass = "header-tag-container"
	headerTagClass    = "header-tag"
	headerDeleteClass = "header-tag-delete"
	addButtonClass    = "header-tag-btn"
	detailHeader      = "notebook-header"
)

// Detail renders the tag chips under a notebook's header.
type Detail struct {
	env *Env
}

// NewDetail returns a detail renderer.
func NewDetail(env *Env) *Detail {
	return &Detail{env: env}
}

// Render injects and fills the tag container once per page. It does nothing
// when there is no header yet or the container is already there.
func (d *Detail) Render(ctx context.Context, f Frame) {
	id, ok := identity.FromLocation(f.Location)
	if !ok {
		return
	}
	header, ok := d.env.Search.QuerySelector(f.Doc, detailHeader)
	if !ok {
		return
	}
	if _, exists := d.env.Search.ElementByID(f.Doc, tagContainerID); exists {
		return
	}

	container := tree.NewElement("div", "id", tagContainerID, "class", tagContainerClass)
	tree.InsertAfter(header, container)

	if err := d.populate(ctx, f.Doc, id); err != nil {
		// drop the half-built container so the next cycle tries again
		tree.Remove(container)
		d.env.Log.WithError(err).WithField("id", id).Debug("detail tags unavailable")
	}
}

// Tags returns the chips currently shown, in order.
func (d *Detail) Tags(doc *html.Node) []string {
	container, ok := d.env.Search.ElementByID(doc, tagContainerID)
	if !ok {
		return nil
	}
	var out []string
	for _, c := range tree.ElementChildren(container) {
		if tree.HasClass(c, headerTagClass) {
			out = append(out, chipLabel(c))
		}
	}
	return out
}

// AddTag prompts for a tag and adds it to the current notebook.
func (d *Detail) AddTag(ctx context.Context, f Frame) error {
	t, ok := d.env.Prompter.Prompt("Add tag:", "")
	if !ok {
		return nil
	}
	_, err := d.AddTagValue(ctx, f, t)
	return err
}

// AddTagValue appends t to the current notebook's tags. Empty tags and
// duplicates are rejected without a write; the bool reports whether the tag
// was added.
func (d *Detail) AddTagValue(ctx context.Context, f Frame, t string) (bool, error) {
	id, ok := identity.FromLocation(f.Location)
	if !ok {
		return false, fmt.Errorf("no notebook in location %q", f.Location)
	}

	tags, err := d.env.Store.Get(ctx, id)
	if err != nil {
		d.env.Prompter.Alert(fmt.Sprintf("Could not load tags: %v", err))
		return false, err
	}
	next, added := tagstore.Append(tags, t)
	if !added {
		return false, nil
	}
	if err := d.env.Store.SetMany(ctx, tagstore.Map{id: next}); err != nil {
		d.env.Prompter.Alert(fmt.Sprintf("Could not save tag: %v", err))
		return false, err
	}
	d.repopulate(ctx, f.Doc, id)
	return true, nil
}

// DeleteTag removes t from the current notebook after confirmation.
func (d *Detail) DeleteTag(ctx context.Context, f Frame, t string) error {
	id, ok := identity.FromLocation(f.Location)
	if !ok {
		return fmt.Errorf("no notebook in location %q", f.Location)
	}
	if !d.env.Prompter.Confirm(fmt.Sprintf("Delete tag %q?", t)) {
		return nil
	}

	tags, err := d.env.Store.Get(ctx, id)
	if err != nil {
		d.env.Prompter.Alert(fmt.Sprintf("Could not load tags: %v", err))
		return err
	}
	if err := d.env.Store.SetMany(ctx, tagstore.Map{id: tagstore.Without(tags, t)}); err != nil {
		d.env.Prompter.Alert(fmt.Sprintf("Could not delete tag: %v", err))
		return err
	}
	d.repopulate(ctx, f.Doc, id)
	return nil
}

func (d *Detail) repopulate(ctx context.Context, doc *html.Node, id string) {
	if err := d.populate(ctx, doc, id); err != nil {
		d.env.Log.WithError(err).WithField("id", id).Debug("detail refresh skipped")
	}
}

// populate redraws the container from the stored tags. The container is
// looked up after the read, so a container the host removed meanwhile is
// left alone.
func (d *Detail) populate(ctx context.Context, doc *html.Node, id string) error {
	tags, err := d.env.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	container, ok := d.env.Search.ElementByID(doc, tagContainerID)
	if !ok {
		return nil
	}

	tree.ClearChildren(container)
	for _, t := range tags {
		chip := tree.NewElement("span", "class", headerTagClass, "data-tag", t)
		tree.AppendText(chip, t+" ")
		del := tree.NewElement("span", "class", headerDeleteClass, "title", "Delete")
		tree.AppendText(del, "×")
		chip.AppendChild(del)
		container.AppendChild(chip)
	}

	add := tree.NewElement("button", "class", addButtonClass)
	tree.AppendText(add, "+ Tag")
	container.AppendChild(add)
	return nil
}

func chipLabel(chip *html.Node) string {
	if v, ok := tree.Attr(chip, "data-tag"); ok {
		return v
	}
	return tree.TextContent(chip)
}
