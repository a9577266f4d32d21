package render

import (
	"strings"
	"testing"
	"time"

	"github.com/Corphon/CampaignDesk/internal/models"
	"github.com/Corphon/CampaignDesk/internal/platform"
	"github.com/Corphon/CampaignDesk/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func mustRender(t *testing.T, n *html.Node) string {
	t.Helper()
	out, err := Render(n)
	require.NoError(t, err)
	return out
}

func TestBreaksRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"one\ntwo",
		"\nleading",
		"trailing\n",
		"a\n\nb",
		"<b>&amp; \"quoted\"</b>\r\n tabs\t",
		"emoji 🚀\nunicode ü",
	}
	for _, in := range inputs {
		div := Append(Element("div"), Breaks(in)...)
		assert.Equal(t, in, Flatten(div), "round trip of %q", in)
		assert.Len(t, FindAll(div, "br", ""), strings.Count(in, "\n"))
	}
}

func TestBreaksEscapeOnlyOnSerialization(t *testing.T) {
	div := Append(Element("div"), Breaks("<script>x</script>\nok")...)
	assert.Equal(t, "<script>x</script>", div.FirstChild.Data)
	assert.Equal(t, "<div>&lt;script&gt;x&lt;/script&gt;<br/>ok</div>", mustRender(t, div))
}

func TestIdeasPanelRowsCarryIdeaData(t *testing.T) {
	p := workflow.IdeasPanel{
		Visible: true,
		Status:  workflow.StatusSuccess,
		Topic:   "coffee",
		Ideas:   []models.Idea{{ID: 1, Text: "Cold brew"}, {ID: 7, Text: "Latte art"}},
	}
	root := IdeasPanel(p)

	rows := FindAll(root, "li", "idea")
	require.Len(t, rows, 2)
	buttons := FindAll(root, "button", "write-draft")
	require.Len(t, buttons, 2)

	id, _ := Attr(buttons[1], "data-idea-id")
	text, _ := Attr(buttons[1], "data-idea-text")
	assert.Equal(t, "7", id)
	assert.Equal(t, "Latte art", text)
	assert.Equal(t, WriteDraftLabel, Flatten(buttons[1]))

	_, hidden := Attr(root, "hidden")
	assert.False(t, hidden)
}

func TestIdeasPanelErrorIsSingleRow(t *testing.T) {
	root := IdeasPanel(workflow.IdeasPanel{Visible: true, Status: workflow.StatusError, Error: workflow.IdeasErrorMessage})

	assert.Empty(t, FindAll(root, "li", ""))
	errs := FindAll(root, "p", "error")
	require.Len(t, errs, 1)
	assert.Equal(t, workflow.IdeasErrorMessage, Flatten(errs[0]))
	assert.Empty(t, FindAll(root, "p", "loading"))
}

func TestHiddenUntilVisible(t *testing.T) {
	_, hidden := Attr(IdeasPanel(workflow.IdeasPanel{Status: workflow.StatusIdle}), "hidden")
	assert.True(t, hidden)
	_, hidden = Attr(SpecialistPanel(workflow.SpecialistPanel{}), "hidden")
	assert.True(t, hidden)

	loadingPanel := IdeasPanel(workflow.IdeasPanel{Status: workflow.StatusLoading})
	_, hidden = Attr(loadingPanel, "hidden")
	assert.False(t, hidden)
	assert.Len(t, FindAll(loadingPanel, "p", "loading"), 1)
}

func TestDraftPanelConvertsNewlines(t *testing.T) {
	root := DraftPanel(workflow.DraftPanel{
		Visible: true,
		Status:  workflow.StatusSuccess,
		Idea:    &models.Idea{ID: 3, Text: "X"},
		DraftID: models.NewDraftID("42"),
		Text:    "Para one\nPara two",
	})
	body := FindAll(root, "div", "draft-text")
	require.Len(t, body, 1)
	assert.Len(t, FindAll(body[0], "br", ""), 1)
	assert.Equal(t, "Para one\nPara two", Flatten(body[0]))
}

func specialistFixture() workflow.SpecialistPanel {
	reg := platform.Default()
	twitter, _ := reg.Lookup("twitter")
	tiktok, _ := reg.Lookup("tiktok")
	return workflow.SpecialistPanel{
		Visible:   true,
		DraftID:   models.NewDraftID("42"),
		DraftText: "draft",
		Platforms: reg.All(),
		Results: map[string]*workflow.SpecializationResult{
			"tiktok":  {Platform: tiktok, Status: workflow.StatusError, Error: workflow.SpecializationErrorMessage("tiktok")},
			"twitter": {Platform: twitter, Status: workflow.StatusSuccess, Text: "line1\nline2"},
		},
	}
}

func TestSpecialistPanelControlsAndResults(t *testing.T) {
	root := SpecialistPanel(specialistFixture())

	buttons := FindAll(root, "button", "specialize")
	require.Len(t, buttons, 5)
	var labels []string
	for _, b := range buttons {
		labels = append(labels, Flatten(b))
		draftID, _ := Attr(b, "data-draft-id")
		assert.Equal(t, "42", draftID)
	}
	assert.Equal(t, []string{"Twitter", "Instagram", "Facebook", "TikTok", "Blog"}, labels)
	key, _ := Attr(buttons[3], "data-platform")
	assert.Equal(t, "tiktok", key)

	boxes := FindAll(root, "div", "specialist-result")
	require.Len(t, boxes, 2)
	// platform order, not map order
	id, _ := Attr(boxes[0], "id")
	assert.Equal(t, "specialist-result-twitter", id)
	assert.Equal(t, "Twitter", Flatten(FindAll(boxes[0], "h4", "")[0]))
	assert.Equal(t, "line1\nline2", Flatten(FindAll(boxes[0], "div", "specialized-text")[0]))
	assert.Equal(t, "Failed to generate the Tiktok version. Please try again.", Flatten(boxes[1]))
}

func TestSpecialistPanelWithoutResults(t *testing.T) {
	p := specialistFixture()
	p.Results = map[string]*workflow.SpecializationResult{}
	root := SpecialistPanel(p)
	assert.Len(t, FindAll(root, "button", "specialize"), 5)
	assert.Empty(t, FindAll(root, "div", "specialist-result"))
}

func TestDocumentEnsureIsIdempotent(t *testing.T) {
	root := Element("div", "id", ResultsID)
	doc := NewDocument(root)

	first := doc.Ensure(ResultID("Twitter"))
	second := doc.Ensure(ResultID("twitter"))
	assert.Same(t, first, second)
	assert.Len(t, FindAll(root, "div", ""), 2)

	fixture := specialistFixture()
	require.NoError(t, doc.Replace(ResultID("twitter"), SpecializationResult(fixture.Results["twitter"])))
	fixture.Results["twitter"].Text = "updated"
	require.NoError(t, doc.Replace(ResultID("twitter"), SpecializationResult(fixture.Results["twitter"])))

	got, ok := doc.Get(ResultID("twitter"))
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Len(t, FindAll(root, "div", "specialist-result"), 1)
	assert.Equal(t, "updated", Flatten(FindAll(got, "div", "specialized-text")[0]))

	assert.Error(t, doc.Replace("missing", Element("div")))
}

func historyFixture() []models.Campaign {
	return []models.Campaign{
		{
			Topic:     "Spring launch",
			CreatedAt: models.ParseTimestamp("2024-03-01 14:30:00"),
			Ideas: []models.CampaignIdea{{
				IdeaText: "Behind the scenes",
				Drafts: []models.CampaignDraft{
					{DraftText: "first\nsecond"},
					{DraftText: "with variants", SpecializedDrafts: []models.SpecializedDraft{
						{Platform: "instagram", SpecializedText: "caption"},
					}},
				},
			}},
		},
		{Topic: "Older", CreatedAt: models.ParseTimestamp("not a date")},
	}
}

func TestHistoryPanel(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	root := HistoryPanel(workflow.HistoryPanel{Status: workflow.StatusSuccess, Campaigns: historyFixture()},
		Options{Location: loc, TimestampLayout: "2006-01-02 15:04"})

	cards := FindAll(root, "article", "campaign")
	require.Len(t, cards, 2)
	assert.Equal(t, "Spring launch", Flatten(FindAll(cards[0], "h3", "")[0]))

	when := FindAll(cards[0], "time", "")[0]
	assert.Equal(t, "2024-03-01 16:30", Flatten(when))
	dt, _ := Attr(when, "datetime")
	assert.Equal(t, "2024-03-01T14:30:00Z", dt)
	assert.Equal(t, "not a date", Flatten(FindAll(cards[1], "time", "")[0]))

	drafts := FindAll(cards[0], "div", "campaign-draft")
	require.Len(t, drafts, 2)
	// no specialized block for a draft without variants
	assert.Empty(t, FindAll(drafts[0], "div", "specialized-drafts"))
	assert.Equal(t, "first\nsecond", Flatten(FindAll(drafts[0], "div", "draft-text")[0]))
	require.Len(t, FindAll(drafts[1], "div", "specialized-drafts"), 1)
	assert.Equal(t, "Instagram", Flatten(FindAll(drafts[1], "h5", "")[0]))
}

func TestHistoryPanelEmptyAndError(t *testing.T) {
	empty := HistoryPanel(workflow.HistoryPanel{Status: workflow.StatusSuccess, Campaigns: []models.Campaign{}}, Options{})
	assert.Empty(t, FindAll(empty, "article", "campaign"))
	assert.Equal(t, NoCampaignsText, Flatten(empty))

	failed := HistoryPanel(workflow.HistoryPanel{Status: workflow.StatusError, Error: workflow.HistoryErrorMessage}, Options{})
	assert.Empty(t, FindAll(failed, "article", "campaign"))
	assert.Equal(t, workflow.HistoryErrorMessage, Flatten(failed))
}

func TestPageContainsEveryPanel(t *testing.T) {
	st := workflow.NewState()
	out := mustRender(t, Page(st, Options{}))
	for _, id := range []string{IdeasPanelID, DraftPanelID, SpecialistPanelID, HistoryPanelID, "topic-form"} {
		assert.Contains(t, out, `id="`+id+`"`)
	}
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, ScriptPath)
}

func TestFragments(t *testing.T) {
	st := workflow.NewState()
	st.Specialist = specialistFixture()

	frags, err := Fragments(st, Options{}, SpecialistPanelID, ResultID("twitter"), ResultID("blog"), "nope")
	require.NoError(t, err)
	assert.Len(t, frags, 2)
	assert.Contains(t, frags[ResultID("twitter")], "line1<br/>line2")
	assert.Equal(t, ResultID("blog"), PanelID(workflow.PanelResult, "Blog"))
}

func TestTextRendering(t *testing.T) {
	st := workflow.NewState()
	st.Ideas = workflow.IdeasPanel{Visible: true, Status: workflow.StatusSuccess, Topic: "coffee", Ideas: []models.Idea{{ID: 2, Text: "Cold brew"}}}
	st.Draft = workflow.DraftPanel{Visible: true, Status: workflow.StatusSuccess, DraftID: models.NewDraftID("9"), Text: "a\nb"}
	st.Specialist = specialistFixture()
	st.History = workflow.HistoryPanel{Status: workflow.StatusSuccess}

	out := Text(st, Options{})
	assert.Contains(t, out, "[2] Cold brew")
	assert.Contains(t, out, "Draft 9:\na\nb\n")
	assert.Contains(t, out, "== Twitter ==\nline1\nline2\n")
	assert.Contains(t, out, "Failed to generate the Tiktok version.")
	assert.Contains(t, out, NoCampaignsText)
	assert.Less(t, strings.Index(out, "Twitter"), strings.Index(out, "Tiktok"))
}
