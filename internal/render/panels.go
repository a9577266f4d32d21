// internal/render/panels.go
package render

import (
	"strconv"
	"time"

	"github.com/Corphon/CampaignDesk/internal/config"
	"github.com/Corphon/CampaignDesk/internal/models"
	"github.com/Corphon/CampaignDesk/internal/platform"
	"github.com/Corphon/CampaignDesk/internal/workflow"
	"golang.org/x/net/html"
)

// Panel container ids.
const (
	IdeasPanelID      = "ideas-panel"
	DraftPanelID      = "draft-panel"
	SpecialistPanelID = "specialist-panel"
	ResultsID         = "specialist-results"
	HistoryPanelID    = "history-panel"

	resultIDPrefix = "specialist-result-"
)

// Fixed copy shown by the panels.
const (
	WriteDraftLabel   = "Write Draft"
	NoCampaignsText   = "No campaigns yet."
	ideasLoadingText  = "Generating ideas..."
	draftLoadingText  = "Writing draft..."
	historyLoadingTxt = "Loading history..."
)

// ResultID returns the container id of one platform's result box.
func ResultID(platformKey string) string {
	return resultIDPrefix + platform.Key(platformKey)
}

// Options controls locale-dependent output.
type Options struct {
	Location        *time.Location
	TimestampLayout string
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.TimestampLayout == "" {
		o.TimestampLayout = config.DefaultTimestampLayout
	}
	return o
}

func panel(id string, visible bool, status workflow.PanelStatus) *html.Node {
	n := Element("section", "id", id, "class", "panel", "data-status", string(status))
	if !visible && !status.Loading() {
		n.Attr = append(n.Attr, html.Attribute{Key: "hidden"})
	}
	return n
}

func loading(text string) *html.Node {
	return Append(Element("p", "class", "loading"), TextNode(text))
}

func errorLine(text string) *html.Node {
	return Append(Element("p", "class", "error"), TextNode(text))
}

func multiline(tag, class, s string) *html.Node {
	return Append(Element(tag, "class", class), Breaks(s)...)
}

// IdeasPanel renders the idea list with one draft control per idea.
func IdeasPanel(p workflow.IdeasPanel) *html.Node {
	root := panel(IdeasPanelID, p.Visible, p.Status)
	switch p.Status {
	case workflow.StatusLoading:
		Append(root, loading(ideasLoadingText))
	case workflow.StatusError:
		Append(root, errorLine(p.Error))
	case workflow.StatusSuccess:
		list := Element("ul", "class", "ideas")
		for _, idea := range p.Ideas {
			button := Append(Element("button",
				"type", "button",
				"class", "write-draft",
				"data-idea-id", strconv.Itoa(idea.ID),
				"data-idea-text", idea.Text,
			), TextNode(WriteDraftLabel))
			Append(list, Append(Element("li", "class", "idea"),
				Append(Element("span", "class", "idea-text"), TextNode(idea.Text)),
				button,
			))
		}
		Append(root, list)
	}
	return root
}

// DraftPanel renders the draft for the chosen idea.
func DraftPanel(p workflow.DraftPanel) *html.Node {
	root := panel(DraftPanelID, p.Visible, p.Status)
	switch p.Status {
	case workflow.StatusLoading:
		Append(root, loading(draftLoadingText))
	case workflow.StatusError:
		Append(root, errorLine(p.Error))
	case workflow.StatusSuccess:
		if p.Idea != nil {
			Append(root, Append(Element("h3"), TextNode(p.Idea.Text)))
		}
		Append(root, multiline("div", "draft-text", p.Text))
	}
	return root
}

// SpecialistPanel renders one control per platform followed by the result
// boxes requested so far, in platform order.
func SpecialistPanel(p workflow.SpecialistPanel) *html.Node {
	root := Element("section", "id", SpecialistPanelID, "class", "panel")
	if !p.Visible {
		root.Attr = append(root.Attr, html.Attribute{Key: "hidden"})
		return root
	}

	controls := Element("div", "class", "platform-controls")
	for _, pl := range p.Platforms {
		Append(controls, Append(Element("button",
			"type", "button",
			"class", "specialize",
			"data-platform", pl.Key,
			"data-draft-id", p.DraftID.String(),
			"title", pl.Capability,
		), TextNode(pl.Label)))
	}

	results := Element("div", "id", ResultsID, "class", "specialist-results")
	doc := NewDocument(results)
	for _, pl := range p.Platforms {
		result, ok := p.Results[pl.Key]
		if !ok {
			continue
		}
		id := ResultID(pl.Key)
		doc.Ensure(id)
		_ = doc.Replace(id, SpecializationResult(result))
	}
	return Append(root, controls, results)
}

// SpecializationResult renders one platform's result box.
func SpecializationResult(r *workflow.SpecializationResult) *html.Node {
	heading := platform.Heading(r.Platform.Key)
	root := Element("div",
		"id", ResultID(r.Platform.Key),
		"class", "specialist-result",
		"data-platform", r.Platform.Key,
		"data-status", string(r.Status),
	)
	switch r.Status {
	case workflow.StatusLoading:
		Append(root, loading("Generating "+heading+" version..."))
	case workflow.StatusError:
		Append(root, errorLine(r.Error))
	case workflow.StatusSuccess:
		Append(root,
			Append(Element("h4"), TextNode(heading)),
			multiline("div", "specialized-text", r.Text),
		)
	}
	return root
}

// HistoryPanel renders past campaigns in server order.
func HistoryPanel(p workflow.HistoryPanel, opts Options) *html.Node {
	opts = opts.withDefaults()
	root := Element("section", "id", HistoryPanelID, "class", "panel", "data-status", string(p.Status))
	switch p.Status {
	case workflow.StatusLoading:
		Append(root, loading(historyLoadingTxt))
	case workflow.StatusError:
		Append(root, errorLine(p.Error))
	case workflow.StatusSuccess:
		if len(p.Campaigns) == 0 {
			return Append(root, Append(Element("p", "class", "empty"), TextNode(NoCampaignsText)))
		}
		for _, c := range p.Campaigns {
			Append(root, campaign(c, opts))
		}
	}
	return root
}

func campaign(c models.Campaign, opts Options) *html.Node {
	when := Element("time")
	if c.CreatedAt.Valid() {
		when.Attr = append(when.Attr, html.Attribute{Key: "datetime", Val: c.CreatedAt.Time.Format(time.RFC3339)})
	}
	Append(when, TextNode(c.CreatedAt.Format(opts.Location, opts.TimestampLayout)))

	card := Append(Element("article", "class", "campaign"),
		Append(Element("header"), Append(Element("h3"), TextNode(c.Topic)), when),
	)
	for _, idea := range c.Ideas {
		block := Append(Element("div", "class", "campaign-idea"), Append(Element("h4"), TextNode(idea.IdeaText)))
		for _, d := range idea.Drafts {
			draft := Append(Element("div", "class", "campaign-draft"), multiline("div", "draft-text", d.DraftText))
			if len(d.SpecializedDrafts) > 0 {
				specialized := Element("div", "class", "specialized-drafts")
				for _, sd := range d.SpecializedDrafts {
					Append(specialized, Append(Element("div", "class", "specialized-draft"),
						Append(Element("h5"), TextNode(platform.Heading(sd.Platform))),
						multiline("div", "specialized-text", sd.SpecializedText),
					))
				}
				Append(draft, specialized)
			}
			Append(block, draft)
		}
		Append(card, block)
	}
	return card
}
