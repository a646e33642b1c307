package domain

import (
	"fmt"
	"sort"
)

// Flatten expands each character's fetched stats into one row per
// (activity, stat) pair. A character with N activities of M stats each
// contributes exactly N*M rows, all carrying the character's IDs
// unchanged. Stat names are emitted in sorted order so the output is
// stable across runs.
func Flatten(characters []Character) ([]ActivityStatRow, error) {
	rows := make([]ActivityStatRow, 0, len(characters))

	for _, character := range characters {
		if character.Stats == nil {
			return nil, fmt.Errorf("character %s: no stats attached", character.CharacterID)
		}

		for _, activity := range character.Stats.Response.Activities {
			statIDs := make([]string, 0, len(activity.Values))
			for statID := range activity.Values {
				statIDs = append(statIDs, statID)
			}
			sort.Strings(statIDs)

			for _, statID := range statIDs {
				rows = append(rows, ActivityStatRow{
					GroupID:      character.GroupID,
					ClanID:       character.ClanID,
					MemberID:     character.MemberID,
					CharacterID:  character.CharacterID,
					ActivityHash: activity.ActivityHash,
					StatID:       statID,
					Stat:         string(activity.Values[statID]),
				})
			}
		}
	}

	return rows, nil
}
