// Package respcache caches upstream answers under normalized question
// keys with class-dependent freshness, so recurring and generic
// questions are answered without a paid upstream call.
package respcache

import "strings"

// Class is the cacheability class of a question. It selects the entry
// TTL and whether the key is shared across users.
type Class string

const (
	// ClassGeneric questions are user-independent (definitions, "how
	// does X work") and shared across all users of a bot.
	ClassGeneric Class = "generic"

	// ClassTechnical questions concern procedures, code, or tooling.
	ClassTechnical Class = "technical"

	// ClassRegulatory questions concern compliance or legal matters.
	ClassRegulatory Class = "regulatory"

	// ClassPersonalized is the default for everything else.
	ClassPersonalized Class = "personalized"
)

// Keyword tables are matched against the normalized question text.
// They are package-level and immutable after init; classification is
// deterministic and case/punctuation-insensitive.
var (
	genericMarkers = []string{
		"what is", "what are", "definition", "define", "meaning of",
		"how does", "how do", "explain", "difference between", "overview of",
	}
	technicalMarkers = []string{
		"code", "error", "install", "configure", "configuration", "api",
		"function", "deploy", "debug", "script", "command", "integration",
		"endpoint", "sdk", "setup", "timeout",
	}
	regulatoryMarkers = []string{
		"compliance", "compliant", "regulation", "regulatory", "legal",
		"law", "gdpr", "hipaa", "policy", "audit", "data protection",
		"privacy", "contract",
	}
)

// Classify assigns a question to a cache class using static keyword
// matching on the normalized text. Classes are checked in order:
// generic, technical, regulatory; anything unmatched is personalized.
func Classify(question string) Class {
	q := Normalize(question)

	if containsAny(q, genericMarkers) {
		return ClassGeneric
	}
	if containsAny(q, technicalMarkers) {
		return ClassTechnical
	}
	if containsAny(q, regulatoryMarkers) {
		return ClassRegulatory
	}
	return ClassPersonalized
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
