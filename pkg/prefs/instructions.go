package prefs

import "strings"

// Clause fragments combined by BuildInstructions. Keyed by the resolved
// preference values; unknown values fall back to the default clause.
var levelClauses = map[DetailLevel]string{
	LevelBeginner:     "Assume no prior knowledge. Explain concepts from first principles, avoid jargon, and include a short example where it helps.",
	LevelIntermediate: "Assume working familiarity with the domain. Explain non-obvious concepts briefly and skip the basics.",
	LevelAdvanced:     "Assume expert knowledge. Be precise and dense; include edge cases and trade-offs, and skip introductory material.",
}

var styleClauses = map[Style]string{
	StyleCasual:       "Use a friendly, conversational tone.",
	StyleProfessional: "Use a courteous, professional tone.",
	StyleTechnical:    "Use precise technical language and correct terminology throughout.",
}

// BuildInstructions composes the steering instruction text from the
// bot's domain preamble and the resolved preferences. The output is
// deterministic for the same inputs and is regenerated on every call,
// because ad hoc overrides may change the resolved values per request.
func BuildInstructions(preamble string, p Preferences) string {
	parts := make([]string, 0, 4)

	if preamble != "" {
		parts = append(parts, preamble)
	}

	level, ok := levelClauses[p.DetailLevel]
	if !ok {
		level = levelClauses[DefaultLevel]
	}
	parts = append(parts, level)

	style, ok := styleClauses[p.Style]
	if !ok {
		style = styleClauses[DefaultStyle]
	}
	parts = append(parts, style)

	if p.Nickname != "" {
		parts = append(parts, "Address the user as "+p.Nickname+".")
	}

	return strings.Join(parts, "\n\n")
}
