// Package domain defines the records flowing through the stats pipeline.
package domain

import "encoding/json"

// Character identifies one clan member's in-game avatar, the unit of
// stats aggregation. The source query returns it as a single jsonb value.
type Character struct {
	GroupID               int64  `json:"group_id"`
	ClanID                int64  `json:"clan_id"`
	MemberID              int64  `json:"member_id"`
	CharacterID           string `json:"character_id"`
	DestinyMembershipType int    `json:"destiny_membership_type"`
	DestinyID             string `json:"destiny_id"`

	// Attached during a run; never persisted.
	RequestURL string          `json:"-"`
	Stats      *AggregateStats `json:"-"`
}

// AggregateStats mirrors the aggregate activity stats API response.
type AggregateStats struct {
	Response AggregateResponse `json:"Response"`
}

// AggregateResponse is the payload envelope inside an API response.
type AggregateResponse struct {
	Activities []Activity `json:"activities"`
}

// Activity is one completed game session with its named stat values.
// Stat values stay opaque; the loader never interprets them.
type Activity struct {
	ActivityHash int64                      `json:"activityHash"`
	Values       map[string]json.RawMessage `json:"values"`
}

// ActivityStatRow is one flattened (activity, stat) pair, matching the
// column order of stats.t_aggregate_activity_stats. Written once, never
// mutated.
type ActivityStatRow struct {
	GroupID      int64
	ClanID       int64
	MemberID     int64
	CharacterID  string
	ActivityHash int64
	StatID       string
	Stat         string
}
