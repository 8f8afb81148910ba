package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/mattsolo1/nb-tagger/pkg/kv"
	"github.com/mattsolo1/nb-tagger/pkg/tagstore"
	"github.com/mattsolo1/nb-tagger/pkg/tree"
)

type scriptedPrompter struct {
	answers  []string
	confirm  bool
	prompts  []string
	confirms []string
	alerts   []string
}

func (p *scriptedPrompter) Prompt(message, _ string) (string, bool) {
	p.prompts = append(p.prompts, message)
	if len(p.answers) == 0 {
		return "", false
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, true
}

func (p *scriptedPrompter) Confirm(message string) bool {
	p.confirms = append(p.confirms, message)
	return p.confirm
}

func (p *scriptedPrompter) Alert(message string) {
	p.alerts = append(p.alerts, message)
}

type recordingDownloader struct {
	name string
	data []byte
}

func (r *recordingDownloader) Download(name string, data []byte) error {
	r.name, r.data = name, data
	return nil
}

type fixture struct {
	doc      *html.Node
	mem      *kv.Memory
	store    *tagstore.Store
	prompter *scriptedPrompter
	download *recordingDownloader
	env      *Env
	view     *View
}

func newFixture(t *testing.T, page string, seed tagstore.Map) *fixture {
	t.Helper()
	doc, err := tree.ParseString(page)
	require.NoError(t, err)

	mem := kv.NewMemory()
	store := tagstore.New(mem, nil)
	require.NoError(t, store.SetMany(context.Background(), seed))

	f := &fixture{
		doc:      doc,
		mem:      mem,
		store:    store,
		prompter: &scriptedPrompter{},
		download: &recordingDownloader{},
	}
	f.env = NewEnv(store, f.prompter, f.download, nil)
	f.env.Now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	f.view = NewView(f.env)
	return f
}

func (f *fixture) frame(location string) Frame {
	return Frame{Doc: f.doc, Location: location}
}

func (f *fixture) html(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tree.Render(&buf, f.doc))
	return buf.String()
}

func (f *fixture) byID(t *testing.T, id string) *html.Node {
	t.Helper()
	n, ok := f.env.Search.ElementByID(f.doc, id)
	require.True(t, ok, "no element #%s", id)
	return n
}

func (f *fixture) cloudLabels(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, c := range tree.ElementChildren(f.byID(t, cloudID)) {
		if tree.HasClass(c, cloudTagClass) {
			out = append(out, tree.TextContent(c))
		}
	}
	return out
}

func footer(f *fixture, card *html.Node) []string {
	row, ok := f.env.Search.QuerySelector(card, "."+footerClass)
	if !ok {
		return nil
	}
	var out []string
	for _, c := range tree.ElementChildren(row) {
		out = append(out, tree.TextContent(c))
	}
	return out
}

func hidden(card *html.Node) bool {
	return tree.HasClass(card, hiddenClass) && tree.Style(card, "display") == "none"
}

const dashboardPage = `<html><body>
<app-root>
  <template shadowrootmode="open">
    <div class="my-projects-container">
      <h2 class="projects-header" style="display: none">Recent notebooks</h2>
      <h2 class="projects-header" id="heading">Recent notebooks</h2>
      <div class="grid">
        <project-button id="card1"><mat-card><a href="/notebook/nb1">One</a></mat-card></project-button>
        <project-button id="card2"><mat-card><span id="project-nb2-title">Two</span></mat-card></project-button>
        <project-button id="card3"><mat-card><a href="/notebook/nb3">Three</a></mat-card></project-button>
        <project-button id="featured" class="featured-project"><mat-card><a href="/notebook/promo">Promo</a></mat-card></project-button>
      </div>
    </div>
  </template>
</app-root>
</body></html>`

func TestDashboardBuildsCloudAfterVisibleHeading(t *testing.T) {
	f := newFixture(t, dashboardPage, tagstore.Map{"nb1": {"research", "draft"}, "nb2": {"research"}})
	f.view.Render(context.Background(), f.frame("/"))

	cloud := f.byID(t, cloudID)
	assert.Same(t, f.byID(t, "heading"), cloud.PrevSibling)
	assert.Equal(t, []string{"All", "draft", "research"}, f.cloudLabels(t))
	assert.Equal(t, "", f.view.Dashboard.ActiveFilter(f.doc))

	_, ok := f.env.Search.Find(cloud, "."+exportClass)
	assert.True(t, ok)
	_, ok = f.env.Search.Find(cloud, "."+importClass)
	assert.True(t, ok)

	assert.Equal(t, []string{"research", "draft"}, footer(f, f.byID(t, "card1")))
	assert.Equal(t, []string{"research"}, footer(f, f.byID(t, "card2")))
	assert.Nil(t, footer(f, f.byID(t, "card3")))
	assert.Nil(t, footer(f, f.byID(t, "featured")))
}

func TestDashboardFilterScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, tagstore.Map{"nb1": {"research", "draft"}, "nb2": {"research"}})
	f.view.Render(ctx, f.frame("/"))

	require.True(t, f.view.Dashboard.SelectFilter(ctx, f.frame("/"), "research"))
	assert.Equal(t, "research", f.view.Dashboard.ActiveFilter(f.doc))
	assert.False(t, hidden(f.byID(t, "card1")))
	assert.False(t, hidden(f.byID(t, "card2")))
	assert.True(t, hidden(f.byID(t, "card3")))
	assert.False(t, hidden(f.byID(t, "featured")))
	assert.Equal(t, []string{"research", "draft"}, footer(f, f.byID(t, "card1")))
	assert.Equal(t, []string{"research"}, footer(f, f.byID(t, "card2")))

	require.True(t, f.view.Dashboard.SelectFilter(ctx, f.frame("/"), "draft"))
	assert.False(t, hidden(f.byID(t, "card1")))
	assert.True(t, hidden(f.byID(t, "card2")))

	// the filter survives a later render cycle
	f.view.Render(ctx, f.frame("/"))
	assert.True(t, hidden(f.byID(t, "card2")))

	require.True(t, f.view.Dashboard.SelectFilter(ctx, f.frame("/"), ""))
	for _, id := range []string{"card1", "card2", "card3"} {
		card := f.byID(t, id)
		assert.False(t, tree.HasClass(card, hiddenClass), id)
		assert.Empty(t, tree.Style(card, "display"), id)
	}

	assert.False(t, f.view.Dashboard.SelectFilter(ctx, f.frame("/"), "unknown"))
}

func TestDashboardRenderIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, tagstore.Map{"nb1": {"a"}, "nb2": {"b"}})

	f.view.Render(ctx, f.frame("/"))
	f.view.Dashboard.SelectFilter(ctx, f.frame("/"), "a")
	first := f.html(t)

	f.view.Render(ctx, f.frame("/"))
	f.view.Render(ctx, f.frame("/"))
	assert.Equal(t, first, f.html(t))
	assert.Len(t, f.env.Search.QuerySelectorAll(f.doc, "#"+cloudID), 1)
}

func TestDashboardRemovesCloudInListView(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, tagstore.Map{"nb1": {"a"}})
	f.view.Render(ctx, f.frame("/"))
	f.byID(t, cloudID)

	grid, ok := f.env.Search.QuerySelector(f.doc, ".grid")
	require.True(t, ok)
	grid.AppendChild(tree.NewElement("mat-table"))

	f.view.Render(ctx, f.frame("/"))
	_, ok = f.env.Search.ElementByID(f.doc, cloudID)
	assert.False(t, ok)
}

func TestDashboardMovesCloudWithHeading(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, tagstore.Map{"nb1": {"a"}})
	f.view.Render(ctx, f.frame("/"))

	heading := f.byID(t, "heading")
	grid, ok := f.env.Search.QuerySelector(f.doc, ".grid")
	require.True(t, ok)
	tree.InsertAfter(grid, heading)

	f.view.Render(ctx, f.frame("/"))
	cloud := f.byID(t, cloudID)
	assert.Same(t, heading, cloud.PrevSibling)
	assert.Equal(t, []string{"All", "a"}, f.cloudLabels(t))
}

func TestDashboardWithoutVisibleHeading(t *testing.T) {
	page := strings.Replace(dashboardPage, `id="heading"`, `id="heading" hidden`, 1)
	f := newFixture(t, page, tagstore.Map{"nb1": {"a"}})
	f.view.Render(context.Background(), f.frame("/"))

	_, ok := f.env.Search.ElementByID(f.doc, cloudID)
	assert.False(t, ok)
	assert.Nil(t, footer(f, f.byID(t, "card1")))
}

func TestDashboardLocalizedHeading(t *testing.T) {
	page := strings.Replace(dashboardPage, `id="heading">Recent notebooks`, `id="heading">最近のノートブック`, 1)
	f := newFixture(t, page, tagstore.Map{"nb1": {"a"}})
	f.view.Render(context.Background(), f.frame("/"))

	assert.Same(t, f.byID(t, "heading"), f.byID(t, cloudID).PrevSibling)
}

func TestDashboardBackendFailureLeavesPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, tagstore.Map{"nb1": {"a"}})
	f.view.Render(ctx, f.frame("/"))
	f.view.Dashboard.SelectFilter(ctx, f.frame("/"), "a")
	before := f.html(t)

	f.mem.Fail(errors.New("unreachable"))
	f.view.Render(ctx, f.frame("/"))
	assert.Equal(t, before, f.html(t))
	assert.Empty(t, f.prompter.alerts)
}

func TestDashboardEmptyCloudRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, tagstore.Map{"nb1": {"a"}})
	f.mem.Fail(errors.New("unreachable"))
	f.view.Render(ctx, f.frame("/"))
	assert.Empty(t, tree.ElementChildren(f.byID(t, cloudID)))

	f.mem.Fail(nil)
	f.view.Render(ctx, f.frame("/"))
	assert.Equal(t, []string{"All", "a"}, f.cloudLabels(t))
}

func TestDashboardRename(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, tagstore.Map{"nb1": {"A", "B"}, "nb2": {"A"}})
	f.view.Render(ctx, f.frame("/"))
	f.view.Dashboard.SelectFilter(ctx, f.frame("/"), "A")

	f.prompter.answers = []string{"B"}
	require.NoError(t, f.view.Dashboard.Rename(ctx, f.frame("/"), "A"))

	all, err := f.store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, tagstore.Map{"nb1": {"B"}, "nb2": {"B"}}, all)
	assert.Equal(t, []string{"All", "B"}, f.cloudLabels(t))
	assert.Equal(t, "", f.view.Dashboard.ActiveFilter(f.doc))
	assert.Equal(t, []string{"B"}, footer(f, f.byID(t, "card1")))
	assert.Equal(t, []string{"Renamed: A -> B"}, f.prompter.alerts)
}

func TestDashboardRenameCancelled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, tagstore.Map{"nb1": {"A"}})
	f.view.Render(ctx, f.frame("/"))
	writes := f.mem.SetCalls()

	require.NoError(t, f.view.Dashboard.Rename(ctx, f.frame("/"), "A"))
	f.prompter.answers = []string{"A"}
	require.NoError(t, f.view.Dashboard.Rename(ctx, f.frame("/"), "A"))

	assert.Equal(t, writes, f.mem.SetCalls())
	assert.Empty(t, f.prompter.alerts)
}

func TestDashboardRenameFailureAlerts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, tagstore.Map{"nb1": {"A"}})
	f.view.Render(ctx, f.frame("/"))
	before := f.html(t)

	f.mem.Fail(errors.New("quota"))
	err := f.view.Dashboard.RenameTo(ctx, f.frame("/"), "A", "B")
	assert.ErrorIs(t, err, kv.ErrBackend)
	assert.Len(t, f.prompter.alerts, 1)
	assert.Equal(t, before, f.html(t))
}

func TestDashboardExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, tagstore.Map{"nb1": {"a"}})

	require.NoError(t, f.view.Dashboard.Export(ctx))
	assert.Equal(t, "notebooklm-tags-2026-10-18.json", f.download.name)
	assert.JSONEq(t, `{"nb1":["a"]}`, string(f.download.data))
}

func TestDashboardImportScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, tagstore.Map{"nb2": {"keep"}})
	f.view.Render(ctx, f.frame("/"))
	f.prompter.confirm = true

	err := f.view.Dashboard.Import(ctx, f.frame("/"), strings.NewReader(`{"nb1": ["x"], "bad": "not-an-array"}`))
	require.NoError(t, err)

	require.Len(t, f.prompter.confirms, 1)
	assert.Contains(t, f.prompter.confirms[0], "Notebooks: 1\nTags: 1")

	all, err := f.store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, tagstore.Map{"nb1": {"x"}, "nb2": {"keep"}}, all)
	assert.Equal(t, []string{"All", "keep", "x"}, f.cloudLabels(t))
	assert.Equal(t, []string{"x"}, footer(f, f.byID(t, "card1")))
}

func TestDashboardImportDeclined(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, nil)
	writes := f.mem.SetCalls()

	err := f.view.Dashboard.Import(ctx, f.frame("/"), strings.NewReader(`{"nb1": ["x"]}`))
	require.NoError(t, err)
	assert.Equal(t, writes, f.mem.SetCalls())
}

func TestDashboardImportMalformed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dashboardPage, nil)
	f.prompter.confirm = true
	writes := f.mem.SetCalls()

	assert.Error(t, f.view.Dashboard.Import(ctx, f.frame("/"), strings.NewReader(`not json`)))
	assert.Error(t, f.view.Dashboard.Import(ctx, f.frame("/"), strings.NewReader(`{"bad": 1}`)))

	assert.Equal(t, writes, f.mem.SetCalls())
	assert.Empty(t, f.prompter.confirms)
	require.Len(t, f.prompter.alerts, 2)
	assert.Equal(t, "No valid tag data found", f.prompter.alerts[1])
}

const detailPage = `<html><body>
<app-root><template shadowrootmode="open">
  <section><notebook-header id="header">Title</notebook-header><div id="after"></div></section>
</template></app-root>
</body></html>`

func TestDetailAddTagScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, detailPage, nil)
	frame := f.frame("/notebook/nb3")

	f.view.Render(ctx, frame)
	container := f.byID(t, tagContainerID)
	assert.Same(t, f.byID(t, "header"), container.PrevSibling)
	assert.Empty(t, f.view.Detail.Tags(f.doc))

	f.prompter.answers = []string{"ideas"}
	require.NoError(t, f.view.Detail.AddTag(ctx, frame))

	all, err := f.store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, tagstore.Map{"nb3": {"ideas"}}, all)
	assert.Equal(t, []string{"ideas"}, f.view.Detail.Tags(f.doc))

	writes := f.mem.SetCalls()
	added, err := f.view.Detail.AddTagValue(ctx, frame, "ideas")
	require.NoError(t, err)
	assert.False(t, added)
	added, err = f.view.Detail.AddTagValue(ctx, frame, "")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, writes, f.mem.SetCalls())
}

func TestDetailRenderIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, detailPage, tagstore.Map{"nb3": {"a", "b"}})
	frame := f.frame("/notebook/nb3")

	f.view.Render(ctx, frame)
	first := f.html(t)
	f.view.Render(ctx, frame)
	f.view.Render(ctx, frame)

	assert.Equal(t, first, f.html(t))
	assert.Len(t, f.env.Search.QuerySelectorAll(f.doc, "#"+tagContainerID), 1)
	assert.Equal(t, []string{"a", "b"}, f.view.Detail.Tags(f.doc))

	add, ok := f.env.Search.QuerySelector(f.doc, "."+addButtonClass)
	require.True(t, ok)
	assert.Equal(t, "+ Tag", tree.TextContent(add))
	assert.Len(t, f.env.Search.QuerySelectorAll(f.doc, "."+headerDeleteClass), 2)
}

func TestDetailWithoutHeaderDoesNothing(t *testing.T) {
	f := newFixture(t, `<html><body><p>loading</p></body></html>`, tagstore.Map{"nb3": {"a"}})
	f.view.Render(context.Background(), f.frame("/notebook/nb3"))

	_, ok := f.env.Search.ElementByID(f.doc, tagContainerID)
	assert.False(t, ok)
}

func TestDetailDeleteTag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, detailPage, tagstore.Map{"nb3": {"a", "b"}})
	frame := f.frame("/notebook/nb3")
	f.view.Render(ctx, frame)

	require.NoError(t, f.view.Detail.DeleteTag(ctx, frame, "a"))
	assert.Equal(t, []string{"a", "b"}, f.view.Detail.Tags(f.doc))

	f.prompter.confirm = true
	require.NoError(t, f.view.Detail.DeleteTag(ctx, frame, "a"))
	assert.Equal(t, []string{"b"}, f.view.Detail.Tags(f.doc))

	got, err := f.store.Get(ctx, "nb3")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got)
}

func TestDetailRetriesAfterBackendFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, detailPage, tagstore.Map{"nb3": {"a"}})
	frame := f.frame("/notebook/nb3")

	f.mem.Fail(errors.New("unreachable"))
	f.view.Render(ctx, frame)
	_, ok := f.env.Search.ElementByID(f.doc, tagContainerID)
	assert.False(t, ok)

	f.mem.Fail(nil)
	f.view.Render(ctx, frame)
	assert.Equal(t, []string{"a"}, f.view.Detail.Tags(f.doc))
}

func TestDetailSkipsPatchWhenContainerVanished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, detailPage, nil)
	frame := f.frame("/notebook/nb3")
	f.view.Render(ctx, frame)

	tree.Remove(f.byID(t, tagContainerID))
	added, err := f.view.Detail.AddTagValue(ctx, frame, "late")
	require.NoError(t, err)
	assert.True(t, added)

	_, ok := f.env.Search.ElementByID(f.doc, tagContainerID)
	assert.False(t, ok)
	got, err := f.store.Get(ctx, "nb3")
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, got)
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, ModeDashboard, ModeFor("/"))
	assert.Equal(t, ModeDetail, ModeFor("/notebook/abc"))
}
