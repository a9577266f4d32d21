// internal/render/text.go
package render

import (
	"fmt"
	"strings"

	"github.com/Corphon/CampaignDesk/internal/platform"
	"github.com/Corphon/CampaignDesk/internal/workflow"
)

// Text renders every visible panel of st as plain text. Newlines in
// generated content are kept as-is.
func Text(st workflow.State, opts Options) string {
	var sections []string
	for _, s := range []string{
		IdeasText(st.Ideas),
		DraftText(st.Draft),
		SpecialistText(st.Specialist),
		HistoryText(st.History, opts),
	} {
		if s != "" {
			sections = append(sections, s)
		}
	}
	return strings.Join(sections, "\n")
}

// IdeasText lists the ideas with their ids.
func IdeasText(p workflow.IdeasPanel) string {
	var b strings.Builder
	switch p.Status {
	case workflow.StatusLoading:
		b.WriteString(ideasLoadingText + "\n")
	case workflow.StatusError:
		b.WriteString(p.Error + "\n")
	case workflow.StatusSuccess:
		fmt.Fprintf(&b, "Ideas for %q:\n", p.Topic)
		for _, idea := range p.Ideas {
			fmt.Fprintf(&b, "  [%d] %s\n", idea.ID, idea.Text)
		}
	}
	return b.String()
}

// DraftText prints the draft id and body.
func DraftText(p workflow.DraftPanel) string {
	var b strings.Builder
	switch p.Status {
	case workflow.StatusLoading:
		b.WriteString(draftLoadingText + "\n")
	case workflow.StatusError:
		b.WriteString(p.Error + "\n")
	case workflow.StatusSuccess:
		fmt.Fprintf(&b, "Draft %s:\n%s\n", p.DraftID.String(), p.Text)
	}
	return b.String()
}

// SpecialistText prints each requested platform variant in platform order.
func SpecialistText(p workflow.SpecialistPanel) string {
	if !p.Visible {
		return ""
	}
	var b strings.Builder
	for _, pl := range p.Platforms {
		r, ok := p.Results[pl.Key]
		if !ok {
			continue
		}
		b.WriteString(ResultText(r))
	}
	return b.String()
}

// ResultText prints one platform's result box.
func ResultText(r *workflow.SpecializationResult) string {
	heading := platform.Heading(r.Platform.Key)
	switch r.Status {
	case workflow.StatusLoading:
		return "Generating " + heading + " version...\n"
	case workflow.StatusError:
		return r.Error + "\n"
	case workflow.StatusSuccess:
		return "== " + heading + " ==\n" + r.Text + "\n"
	}
	return ""
}

// HistoryText prints past campaigns in server order.
func HistoryText(p workflow.HistoryPanel, opts Options) string {
	opts = opts.withDefaults()
	var b strings.Builder
	switch p.Status {
	case workflow.StatusLoading:
		b.WriteString(historyLoadingTxt + "\n")
	case workflow.StatusError:
		b.WriteString(p.Error + "\n")
	case workflow.StatusSuccess:
		if len(p.Campaigns) == 0 {
			b.WriteString(NoCampaignsText + "\n")
			break
		}
		for _, c := range p.Campaigns {
			fmt.Fprintf(&b, "# %s (%s)\n", c.Topic, c.CreatedAt.Format(opts.Location, opts.TimestampLayout))
			for _, idea := range c.Ideas {
				fmt.Fprintf(&b, "## %s\n", idea.IdeaText)
				for _, d := range idea.Drafts {
					b.WriteString(d.DraftText + "\n")
					for _, sd := range d.SpecializedDrafts {
						fmt.Fprintf(&b, "### %s\n%s\n", platform.Heading(sd.Platform), sd.SpecializedText)
					}
				}
			}
		}
	}
	return b.String()
}
