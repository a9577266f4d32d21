// internal/models/content.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Idea is one candidate content headline generated for a topic.
type Idea struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// DraftID identifies a draft. The backend may send it as a JSON number or a
// JSON string; it is sent back in the same form.
type DraftID struct {
	raw     string
	numeric bool
}

// NewDraftID builds an id from user input. Digit-only input is treated as numeric.
func NewDraftID(s string) DraftID {
	if s == "" {
		return DraftID{}
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return DraftID{raw: s, numeric: true}
	}
	return DraftID{raw: s}
}

func (d DraftID) String() string { return d.raw }

// IsZero reports whether no id was set.
func (d DraftID) IsZero() bool { return d.raw == "" }

func (d DraftID) MarshalJSON() ([]byte, error) {
	if d.raw == "" {
		return []byte("null"), nil
	}
	if d.numeric {
		return []byte(d.raw), nil
	}
	return json.Marshal(d.raw)
}

func (d *DraftID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = DraftID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = DraftID{raw: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("draft_id must be a number or a string: %w", err)
	}
	*d = DraftID{raw: n.String(), numeric: true}
	return nil
}

// Draft is a long-form post generated from one idea.
type Draft struct {
	DraftID DraftID `json:"draft_id"`
	Draft   string  `json:"draft"`
}

// Specialization is a platform-adapted rewrite of a draft.
type Specialization struct {
	Platform         string `json:"platform"`
	SpecializedDraft string `json:"specialized_draft"`
}

// IdeasRequest is the body of POST /generate-ideas.
type IdeasRequest struct {
	Topic string `json:"topic"`
}

// IdeasResponse is the success body of POST /generate-ideas.
type IdeasResponse struct {
	GeneratedIdeas []Idea `json:"generated_ideas"`
}

// DraftRequest is the body of POST /generate-draft.
type DraftRequest struct {
	Topic    string `json:"topic"`
	IdeaID   int    `json:"idea_id"`
	IdeaText string `json:"idea_text"`
}

// DraftResponse is the success body of POST /generate-draft.
type DraftResponse = Draft

// SpecializeRequest is the body of POST /specialize-draft.
type SpecializeRequest struct {
	DraftID   DraftID `json:"draft_id"`
	DraftText string  `json:"draft_text"`
	Platform  string  `json:"platform"`
}

// SpecializeResponse is the success body of POST /specialize-draft.
type SpecializeResponse struct {
	SpecializedDraft string `json:"specialized_draft"`
}
