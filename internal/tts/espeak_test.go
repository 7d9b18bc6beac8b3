package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVoiceFor(t *testing.T) {
	assert.Equal(t, "en-us", voiceFor("en-US"))
	assert.Equal(t, "en-us", voiceFor(""))
	assert.Equal(t, "en-gb", voiceFor("en_GB"))
	assert.Equal(t, "ru", voiceFor(" ru "))
}
