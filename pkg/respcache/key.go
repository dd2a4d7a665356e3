package respcache

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// KeyPrefix is the namespace shared by all response cache entries.
const KeyPrefix = "bot:"

// Normalize lowercases the question, strips punctuation, and collapses
// whitespace. Two questions that normalize identically share one cache
// entry.
func Normalize(question string) string {
	var b strings.Builder
	b.Grow(len(question))

	lastSpace := true
	for _, r := range strings.ToLower(question) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			// punctuation dropped
		}
	}
	return strings.TrimSpace(b.String())
}

// Fingerprint returns a stable fixed-length hash of the normalized
// question text.
func Fingerprint(normalized string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalized))
}

// BuildKey composes the cache key for a question. Generic entries omit
// the style/level segment so they are shared across all users of a bot;
// every other class is salted with the requester's resolved style and
// detail level.
//
// Layout: bot:<botID>:<class>:[<style>-<level>:]<fingerprint>
func BuildKey(botID, question, style, detailLevel string) (string, Class) {
	class := Classify(question)
	fp := Fingerprint(Normalize(question))

	if class == ClassGeneric {
		return fmt.Sprintf("%s%s:%s:%s", KeyPrefix, botID, class, fp), class
	}
	return fmt.Sprintf("%s%s:%s:%s-%s:%s", KeyPrefix, botID, class, style, detailLevel, fp), class
}
