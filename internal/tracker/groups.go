package tracker

import "strings"

type MuscleGroup string

const (
	GroupChest      MuscleGroup = "chest"
	GroupShoulders  MuscleGroup = "shoulders"
	GroupBack       MuscleGroup = "back"
	GroupAbs        MuscleGroup = "abs"
	GroupBiceps     MuscleGroup = "biceps"
	GroupTriceps    MuscleGroup = "triceps"
	GroupQuads      MuscleGroup = "quads"
	GroupHamstrings MuscleGroup = "hamstrings"
	GroupCalves     MuscleGroup = "calves"
	GroupGlutes     MuscleGroup = "glutes"
)

// DefaultGroups is applied to a machine saved without any group tag.
var DefaultGroups = []MuscleGroup{GroupQuads, GroupHamstrings, GroupCalves}

var canonicalGroups = map[MuscleGroup]struct{}{
	GroupChest:      {},
	GroupShoulders:  {},
	GroupBack:       {},
	GroupAbs:        {},
	GroupBiceps:     {},
	GroupTriceps:    {},
	GroupQuads:      {},
	GroupHamstrings: {},
	GroupCalves:     {},
	GroupGlutes:     {},
}

// groupAliases maps coarse tags to their canonical member sets.
var groupAliases = map[MuscleGroup][]MuscleGroup{
	"arms": {GroupBiceps, GroupTriceps},
	"legs": {GroupQuads, GroupHamstrings, GroupCalves},
}

var groupLabels = map[MuscleGroup]string{
	GroupChest:      "Chest",
	GroupShoulders:  "Shoulders",
	GroupBack:       "Back",
	GroupAbs:        "Abs",
	GroupBiceps:     "Biceps",
	GroupTriceps:    "Triceps",
	GroupQuads:      "Quads",
	GroupHamstrings: "Hamstrings",
	GroupCalves:     "Calves",
	GroupGlutes:     "Glutes",
}

func GroupLabel(g MuscleGroup) string {
	if label, ok := groupLabels[g]; ok {
		return label
	}
	return string(g)
}

// NormalizeGroups expands aliases, lowercases, drops unknown tags and
// duplicates, and preserves first-seen order. An empty result falls back
// to DefaultGroups, so every machine carries at least one group tag.
func NormalizeGroups(groups []MuscleGroup) []MuscleGroup {
	var normalized []MuscleGroup
	seen := make(map[MuscleGroup]struct{})

	appendGroup := func(g MuscleGroup) {
		if _, ok := canonicalGroups[g]; !ok {
			return
		}
		if _, ok := seen[g]; ok {
			return
		}
		seen[g] = struct{}{}
		normalized = append(normalized, g)
	}

	for _, g := range groups {
		g = MuscleGroup(strings.ToLower(strings.TrimSpace(string(g))))
		if members, ok := groupAliases[g]; ok {
			for _, member := range members {
				appendGroup(member)
			}
			continue
		}
		appendGroup(g)
	}

	if len(normalized) == 0 {
		normalized = append(normalized, DefaultGroups...)
	}

	return normalized
}
