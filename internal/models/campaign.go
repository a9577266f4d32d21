// internal/models/campaign.go
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Campaign is one history record: a topic with everything generated from it.
type Campaign struct {
	Topic     string         `json:"topic"`
	CreatedAt Timestamp      `json:"created_at"`
	Ideas     []CampaignIdea `json:"ideas"`
}

// CampaignIdea is an idea as it appears in history.
type CampaignIdea struct {
	IdeaText string          `json:"idea_text"`
	Drafts   []CampaignDraft `json:"drafts"`
}

// CampaignDraft is a draft as it appears in history.
type CampaignDraft struct {
	DraftText         string             `json:"draft_text"`
	SpecializedDrafts []SpecializedDraft `json:"specialized_drafts,omitempty"`
}

// SpecializedDraft is a stored platform variant.
type SpecializedDraft struct {
	Platform        string `json:"platform"`
	SpecializedText string `json:"specialized_text"`
}

// Timestamp is a history creation time. The backend stores SQLite
// CURRENT_TIMESTAMP values ("2006-01-02 15:04:05", UTC) but RFC3339 is
// accepted too. Unparseable values are kept verbatim in Raw.
type Timestamp struct {
	Time time.Time
	Raw  string
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"Mon, 02 Jan 2006 15:04:05 MST", // RFC1123, what Flask's jsonify emits for datetimes
}

// ParseTimestamp never fails; callers check Valid.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Raw: s}
		}
	}
	return Timestamp{Raw: s}
}

// Valid reports whether Raw parsed into Time.
func (t Timestamp) Valid() bool {
	return !t.Time.IsZero()
}

// Format renders t in loc; unparseable timestamps are returned as received.
func (t Timestamp) Format(loc *time.Location, layout string) string {
	if !t.Valid() {
		return t.Raw
	}
	if loc == nil {
		loc = time.Local
	}
	return t.Time.In(loc).Format(layout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw == "" && t.Valid() {
		return json.Marshal(t.Time.Format(time.RFC3339))
	}
	return json.Marshal(t.Raw)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// numeric epoch seconds
		var secs float64
		if numErr := json.Unmarshal(data, &secs); numErr != nil {
			return err
		}
		*t = Timestamp{Time: time.Unix(int64(secs), 0).UTC(), Raw: string(data)}
		return nil
	}
	*t = ParseTimestamp(s)
	return nil
}
