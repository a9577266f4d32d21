// internal/render/page.go
package render

import (
	"strings"

	"github.com/Corphon/CampaignDesk/internal/workflow"
	"golang.org/x/net/html"
)

// ScriptPath is where the console serves its client script.
const ScriptPath = "/static/app.js"

// Page renders the full console document for a session state.
func Page(st workflow.State, opts Options) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	head := Append(Element("head"),
		Element("meta", "charset", "utf-8"),
		Append(Element("title"), TextNode("CampaignDesk")),
		Element("script", "src", ScriptPath, "defer", ""),
	)

	form := Append(Element("form", "id", "topic-form", "method", "post", "action", "/ui/ideas"),
		Element("input", "id", "topic-input", "name", "topic", "type", "text", "placeholder", "Campaign topic"),
		Append(Element("button", "type", "submit"), TextNode("Generate Ideas")),
	)

	body := Append(Element("body"),
		Append(Element("main", "id", "workspace"),
			Append(Element("h1"), TextNode("CampaignDesk")),
			form,
			IdeasPanel(st.Ideas),
			DraftPanel(st.Draft),
			SpecialistPanel(st.Specialist),
		),
		Append(Element("aside", "id", "history"),
			Append(Element("h2"), TextNode("Campaign History")),
			HistoryPanel(st.History, opts),
		),
	)

	Append(doc, Append(Element("html", "lang", "en"), head, body))
	return doc
}

// Fragments renders the named panels of st keyed by container id, as sent
// to the browser for in-place replacement.
func Fragments(st workflow.State, opts Options, ids ...string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		n := Fragment(st, opts, id)
		if n == nil {
			continue
		}
		s, err := Render(n)
		if err != nil {
			return nil, err
		}
		out[id] = s
	}
	return out, nil
}

// Fragment renders the container with id, or nil when id names nothing.
// Result box ids resolve to that platform's box; a box that was never
// requested renders nil.
func Fragment(st workflow.State, opts Options, id string) *html.Node {
	switch id {
	case IdeasPanelID:
		return IdeasPanel(st.Ideas)
	case DraftPanelID:
		return DraftPanel(st.Draft)
	case SpecialistPanelID:
		return SpecialistPanel(st.Specialist)
	case HistoryPanelID:
		return HistoryPanel(st.History, opts)
	}
	if key := strings.TrimPrefix(id, resultIDPrefix); key != id {
		if r, ok := st.Specialist.Results[key]; ok {
			return SpecializationResult(r)
		}
	}
	return nil
}

// PanelID maps a workflow panel name (and platform key for result boxes)
// to its container id.
func PanelID(panel, key string) string {
	switch panel {
	case workflow.PanelIdeas:
		return IdeasPanelID
	case workflow.PanelDraft:
		return DraftPanelID
	case workflow.PanelSpecialist:
		return SpecialistPanelID
	case workflow.PanelResult:
		return ResultID(key)
	case workflow.PanelHistory:
		return HistoryPanelID
	}
	return ""
}
