package respcache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "what is x", Normalize("  What   is X?! "))
	assert.Equal(t, "hello world", Normalize("Hello, World."))
	assert.Equal(t, "", Normalize("?!..."))
}

func TestFingerprint_StableAndFixedLength(t *testing.T) {
	a := Fingerprint("what is x")
	b := Fingerprint("what is x")
	c := Fingerprint("what is y")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestBuildKey_GenericOmitsStyleSegment(t *testing.T) {
	key1, class1 := BuildKey("support", "What is a widget?", "casual", "beginner")
	key2, class2 := BuildKey("support", "what is a widget", "technical", "advanced")

	assert.Equal(t, ClassGeneric, class1)
	assert.Equal(t, ClassGeneric, class2)
	assert.Equal(t, key1, key2, "generic entries are shared across styles and levels")
	assert.True(t, strings.HasPrefix(key1, "bot:support:generic:"))
}

func TestBuildKey_PersonalizedIsSalted(t *testing.T) {
	key1, class1 := BuildKey("support", "why was my invoice rejected", "casual", "beginner")
	key2, _ := BuildKey("support", "why was my invoice rejected", "casual", "advanced")

	assert.Equal(t, ClassPersonalized, class1)
	assert.NotEqual(t, key1, key2, "personalized entries are isolated per detail level")
	assert.Contains(t, key1, ":casual-beginner:")
}

func TestBuildKey_PerBotNamespace(t *testing.T) {
	key1, _ := BuildKey("support", "what is a widget", "casual", "beginner")
	key2, _ := BuildKey("legal", "what is a widget", "casual", "beginner")
	assert.NotEqual(t, key1, key2)
}

func TestBuildKey_NormalizationCollapsesVariants(t *testing.T) {
	key1, _ := BuildKey("support", "What is a Widget?", "casual", "beginner")
	key2, _ := BuildKey("support", "what   is a widget!!", "casual", "beginner")
	assert.Equal(t, key1, key2)
}
