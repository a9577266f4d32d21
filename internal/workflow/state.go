// internal/workflow/state.go
package workflow

import (
	"github.com/Corphon/CampaignDesk/internal/models"
	"github.com/Corphon/CampaignDesk/internal/platform"
)

// PanelStatus is the shared panel state machine:
// idle -> loading -> (success | error) -> idle.
type PanelStatus string

const (
	StatusIdle    PanelStatus = "idle"
	StatusLoading PanelStatus = "loading"
	StatusSuccess PanelStatus = "success"
	StatusError   PanelStatus = "error"
)

// Loading reports whether the panel's loading indicator is shown.
func (s PanelStatus) Loading() bool { return s == StatusLoading }

// Panel names, also used as PanelUpdate.Panel.
const (
	PanelIdeas      = "ideas"
	PanelDraft      = "draft"
	PanelSpecialist = "specialist"
	PanelResult     = "result" // one specialization result box, Key is the platform
	PanelHistory    = "history"
)

// User-visible failure lines. Every error kind collapses into one of these.
const (
	IdeasErrorMessage   = "Sorry, no ideas could be generated for this topic. Please try again."
	DraftErrorMessage   = "Failed to generate the draft. Please try again."
	HistoryErrorMessage = "Could not load campaign history."
)

// SpecializationErrorMessage is the platform-specific failure line.
func SpecializationErrorMessage(platformKey string) string {
	return "Failed to generate the " + platform.Heading(platformKey) + " version. Please try again."
}

// IdeasPanel is the idea list produced for one topic.
type IdeasPanel struct {
	Visible bool          `json:"visible"`
	Status  PanelStatus   `json:"status"`
	Topic   string        `json:"topic"`
	Ideas   []models.Idea `json:"ideas"`
	Error   string        `json:"error,omitempty"`
}

// DraftPanel holds the draft written for the chosen idea.
type DraftPanel struct {
	Visible bool           `json:"visible"`
	Status  PanelStatus    `json:"status"`
	Topic   string         `json:"topic"`
	Idea    *models.Idea   `json:"idea,omitempty"`
	DraftID models.DraftID `json:"draft_id"`
	Text    string         `json:"text"`
	Error   string         `json:"error,omitempty"`
}

// SpecializationResult is one platform's result box.
type SpecializationResult struct {
	Platform platform.Platform `json:"platform"`
	Status   PanelStatus       `json:"status"`
	Text     string            `json:"text,omitempty"`
	Error    string            `json:"error,omitempty"`
	// Seq is the request sequence number whose response is displayed (or awaited while loading).
	Seq uint64 `json:"seq"`
}

// SpecialistPanel exposes one control per platform once a draft exists.
type SpecialistPanel struct {
	Visible   bool                             `json:"visible"`
	DraftID   models.DraftID                   `json:"draft_id"`
	DraftText string                           `json:"draft_text"`
	Platforms []platform.Platform              `json:"platforms"`
	Results   map[string]*SpecializationResult `json:"results"`
	// Epoch changes whenever the panel is rebuilt; responses from an older
	// epoch belong to a draft that is no longer on screen.
	Epoch uint64 `json:"epoch"`
}

// Ready reports whether specializations can be requested.
func (p SpecialistPanel) Ready() bool {
	return p.Visible && !p.DraftID.IsZero()
}

// HistoryPanel is the read-only campaign history.
type HistoryPanel struct {
	Status    PanelStatus       `json:"status"`
	Campaigns []models.Campaign `json:"campaigns"`
	Error     string            `json:"error,omitempty"`
}

// State is the whole client-side model; render functions are computed from it.
type State struct {
	Ideas      IdeasPanel      `json:"ideas"`
	Draft      DraftPanel      `json:"draft"`
	Specialist SpecialistPanel `json:"specialist"`
	History    HistoryPanel    `json:"history"`
}

// NewState returns the state of a freshly loaded page.
func NewState() State {
	return State{
		Ideas:      IdeasPanel{Status: StatusIdle},
		Draft:      DraftPanel{Status: StatusIdle},
		Specialist: SpecialistPanel{Results: map[string]*SpecializationResult{}},
		History:    HistoryPanel{Status: StatusIdle},
	}
}

// Clone deep-copies the state so snapshots can be rendered without holding the session lock.
func (s State) Clone() State {
	out := s
	out.Ideas.Ideas = append([]models.Idea(nil), s.Ideas.Ideas...)
	if s.Draft.Idea != nil {
		idea := *s.Draft.Idea
		out.Draft.Idea = &idea
	}
	out.Specialist.Platforms = append([]platform.Platform(nil), s.Specialist.Platforms...)
	out.Specialist.Results = make(map[string]*SpecializationResult, len(s.Specialist.Results))
	for key, result := range s.Specialist.Results {
		r := *result
		out.Specialist.Results[key] = &r
	}
	// campaigns are replaced wholesale on every load, never mutated in place
	out.History.Campaigns = append([]models.Campaign(nil), s.History.Campaigns...)
	return out
}
