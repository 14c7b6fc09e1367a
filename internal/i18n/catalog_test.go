package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguage(t *testing.T) {
	cases := map[string]Language{
		"":            English,
		"english":     English,
		"hebrew":      Hebrew,
		"HEBREW":      Hebrew,
		"he":          Hebrew,
		"he-IL":       Hebrew,
		"iw":          Hebrew,
		"he_IL.UTF-8": Hebrew,
		"en_US.UTF-8": English,
		"fr":          English,
		"klingon!!":   English,
	}
	for in, want := range cases {
		assert.Equal(t, want, Parse(in), "Parse(%q)", in)
	}
}

func TestDirection(t *testing.T) {
	assert.Equal(t, RightToLeft, Hebrew.Direction())
	assert.Equal(t, LeftToRight, English.Direction())
	assert.Equal(t, "rtl", Hebrew.Direction().String())
	assert.Equal(t, "he-IL", Hebrew.SpeechTag())
}

func TestCatalogsDefineTheSameKeys(t *testing.T) {
	english := Keys(English)
	require.NotEmpty(t, english)

	for _, lang := range Languages() {
		for _, key := range english {
			_, ok := Lookup(lang, key)
			assert.True(t, ok, "%s missing %s", lang, key)
		}
		assert.Len(t, Keys(lang), len(english), "%s has extra keys", lang)
	}
}

func TestResolverFollowsActiveLanguage(t *testing.T) {
	lang := English
	r := NewResolver(func() Language { return lang })

	assert.Equal(t, "Send", r.T(ComposerSend))
	lang = Hebrew
	assert.Equal(t, "שליחה", r.T(ComposerSend))
	assert.Equal(t, RightToLeft, r.Direction())
	assert.Equal(t, "שלום, נועה!", r.Tf(HeaderGreeting, "נועה"))
}

func TestResolverFallsBackToEnglishForInvalidLanguage(t *testing.T) {
	r := NewResolver(func() Language { return Language("klingon") })
	assert.Equal(t, English, r.Language())

	var zero Resolver
	assert.Equal(t, English, zero.Language())
}

func TestMissingKeyRendersKey(t *testing.T) {
	assert.Equal(t, "no.such.key", T(English, Key("no.such.key")))
}

func TestSuggestionsAreLocalized(t *testing.T) {
	en := Suggestions(English)
	he := Suggestions(Hebrew)
	require.Len(t, en, 4)
	require.Len(t, he, 4)
	for i := range en {
		assert.NotEqual(t, en[i], he[i])
	}
}
