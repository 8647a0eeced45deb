package models

import (
	"sort"
	"strings"
)

// RawParticipant is a single entry of the externally-owned participant list.
// The media SDK populates whichever name field it has; none are guaranteed.
type RawParticipant struct {
	ID              string `json:"id,omitempty" msgpack:"id,omitempty"`
	Name            string `json:"name,omitempty" msgpack:"name,omitempty"`
	DisplayName     string `json:"display_name,omitempty" msgpack:"displayName,omitempty"`
	ParticipantName string `json:"participant_name,omitempty" msgpack:"participantName,omitempty"`
	Muted           bool   `json:"muted,omitempty" msgpack:"muted,omitempty"`
}

// ParticipantSnapshot is the canonical, comparable form of one participant.
type ParticipantSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Muted bool   `json:"muted"`
}

// displayName picks the first non-blank name variant the SDK provided.
func (p RawParticipant) displayName() string {
	for _, name := range []string{p.Name, p.DisplayName, p.ParticipantName} {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// NormalizeParticipants converts a raw participant list into a canonical,
// order-stable snapshot slice. The ID defaults to the trimmed name when the
// raw ID is absent, and malformed entries degrade to empty-string fields
// rather than failing. Ordering is ascending case-insensitive on ID, then
// name, so the same set of participants always normalizes identically
// regardless of input order.
func NormalizeParticipants(raw []RawParticipant) []ParticipantSnapshot {
	out := make([]ParticipantSnapshot, 0, len(raw))
	for _, rp := range raw {
		name := rp.displayName()
		id := strings.TrimSpace(rp.ID)
		if id == "" {
			id = name
		}
		out = append(out, ParticipantSnapshot{
			ID:    id,
			Name:  name,
			Muted: rp.Muted,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].ID), strings.ToLower(out[j].ID)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	return out
}

// SnapshotsEqual reports whether two normalized snapshots are identical:
// same length and pairwise equal at every ordered position.
func SnapshotsEqual(prev, next []ParticipantSnapshot) bool {
	if len(prev) != len(next) {
		return false
	}
	for i := range prev {
		if prev[i] != next[i] {
			return false
		}
	}
	return true
}
