// Package catalog parses a broadcast's track catalog, the JSON document a
// publisher makes available (conventionally as a track named "catalog" or
// "catalog.json") describing which tracks currently exist. Two shapes are
// recognized: the standard {"tracks":[...]} shape, and the HANG shape used
// by moq-clock-style publishers, keyed by media kind with named renditions.
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/stinkydev/moqgo/moq"
)

// TrackDefinition is one entry in a catalog, normalized regardless of which
// wire shape it was parsed from.
type TrackDefinition struct {
	Name     moq.TrackName
	Kind     string // "video", "audio", or a HANG group's custom key
	Priority moq.TrackPriority
}

// Snapshot is a fully parsed catalog: the set of tracks a broadcast
// currently advertises. A new Snapshot replaces the previous one wholesale;
// catalogs are not diffed incrementally.
type Snapshot struct {
	Tracks map[moq.TrackName]TrackDefinition
}

// Available reports whether name is present in the snapshot.
func (s Snapshot) Available(name moq.TrackName) bool {
	_, ok := s.Tracks[name]
	return ok
}

type standardCatalog struct {
	Tracks []standardTrack `json:"tracks"`
}

type standardTrack struct {
	TrackName string `json:"trackName"`
	Type      string `json:"type"`
	Priority  int    `json:"priority"`
}

type hangCatalog map[string]hangGroup

type hangGroup struct {
	Priority   *int                     `json:"priority"`
	Renditions map[string]hangRendition `json:"renditions"`
}

type hangRendition struct {
	Bitrate *int64  `json:"bitrate,omitempty"`
	Codec   *string `json:"codec,omitempty"`
}

const defaultHangPriority = 50

// Parse sniffs data's shape and returns the normalized snapshot. Standard
// catalogs are tried first: a document with a top-level "tracks" array
// parses as standard even if it would also happen to parse as HANG (an
// empty HANG catalog is valid JSON for almost anything).
func Parse(data []byte) (Snapshot, error) {
	var std standardCatalog
	if err := json.Unmarshal(data, &std); err == nil && std.Tracks != nil {
		return fromStandard(std), nil
	}

	var hang hangCatalog
	if err := json.Unmarshal(data, &hang); err == nil && looksLikeHang(hang) {
		return fromHang(hang), nil
	}

	return Snapshot{}, fmt.Errorf("catalog: unrecognized catalog format")
}

// ParseStandard parses data as a standard catalog directly, skipping format
// sniffing. Used when a publisher's catalog type hint names the format
// ahead of time.
func ParseStandard(data []byte) (Snapshot, error) {
	var std standardCatalog
	if err := json.Unmarshal(data, &std); err != nil {
		return Snapshot{}, fmt.Errorf("catalog: standard: %w", err)
	}
	return fromStandard(std), nil
}

// ParseHang parses data as a HANG catalog directly, skipping format
// sniffing.
func ParseHang(data []byte) (Snapshot, error) {
	var hang hangCatalog
	if err := json.Unmarshal(data, &hang); err != nil {
		return Snapshot{}, fmt.Errorf("catalog: hang: %w", err)
	}
	return fromHang(hang), nil
}

// looksLikeHang distinguishes a genuine HANG document (at least one group
// carrying renditions) from an unrelated JSON object that happens to
// unmarshal into the same permissive map shape.
func looksLikeHang(c hangCatalog) bool {
	for _, group := range c {
		if group.Renditions != nil {
			return true
		}
	}
	return false
}

func fromStandard(c standardCatalog) Snapshot {
	tracks := make(map[moq.TrackName]TrackDefinition, len(c.Tracks))
	for _, t := range c.Tracks {
		name := moq.TrackName(t.TrackName)
		tracks[name] = TrackDefinition{
			Name:     name,
			Kind:     t.Type,
			Priority: clampPriority(t.Priority),
		}
	}
	return Snapshot{Tracks: tracks}
}

func fromHang(c hangCatalog) Snapshot {
	tracks := make(map[moq.TrackName]TrackDefinition)
	for kind, group := range c {
		priority := defaultHangPriority
		if group.Priority != nil {
			priority = *group.Priority
		}
		for renditionName := range group.Renditions {
			name := moq.TrackName(renditionName)
			tracks[name] = TrackDefinition{
				Name:     name,
				Kind:     kind,
				Priority: clampPriority(priority),
			}
		}
	}
	return Snapshot{Tracks: tracks}
}

func clampPriority(p int) moq.TrackPriority {
	if p < 0 {
		return 0
	}
	if p > 255 {
		return 255
	}
	return moq.TrackPriority(p)
}
