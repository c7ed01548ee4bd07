package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFrameRate(t *testing.T) {
	assert.Equal(t, 24, parseFrameRate("24/1"))
	assert.Equal(t, 30, parseFrameRate("30000/1000"))
	assert.Equal(t, 0, parseFrameRate("garbage"))
	assert.Equal(t, 0, parseFrameRate("1/0"))
}

func TestParseHMS(t *testing.T) {
	secs, ok := parseHMS("01:02:03.500000000")
	assert.True(t, ok)
	assert.Equal(t, 3723, secs)

	_, ok = parseHMS("not-a-duration")
	assert.False(t, ok)
}

func TestStreamLanguagePrefersTag(t *testing.T) {
	assert.Equal(t, "eng", streamLanguage(map[string]string{"language": "eng"}))
}

func TestStreamLanguageDerivedFromDurationTag(t *testing.T) {
	assert.Equal(t, "jpn", streamLanguage(map[string]string{"DURATION-jpn": "00:10:00"}))
}

func TestStreamLanguageDefaultsToUnd(t *testing.T) {
	assert.Equal(t, "und", streamLanguage(map[string]string{}))
}

func TestParseDurationFromFloatField(t *testing.T) {
	assert.Equal(t, 90, parseDuration(ffprobeStream{Duration: "90.5"}))
}

func TestParseDurationFromTags(t *testing.T) {
	s := ffprobeStream{Tags: map[string]string{"DURATION": "00:01:30.000000000"}}
	assert.Equal(t, 90, parseDuration(s))
}
