package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	c, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, "Riya", c.Assistant)
	assert.Equal(t, 10*time.Second, c.PhraseLimit)
}

func TestFromEnv_Overrides(t *testing.T) {
	c, err := FromEnv(env(map[string]string{
		"OPENAI_API_KEY":  "sk-test",
		"ASSISTANT_NAME":  " Jarvis ",
		"USERNAME":        "Tony",
		"ASSISTANT_RATE":  "-15%",
		"TTS_PROVIDER":    "espeak",
		"MIC_ENABLED":     "false",
		"PHRASE_LIMIT":    "6s",
		"WEATHER_API_KEY": "",
	}))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", c.OpenAIKey)
	assert.Equal(t, "Jarvis", c.Assistant)
	assert.Equal(t, "Tony", c.User)
	assert.Equal(t, "-15%", c.Rate)
	assert.Equal(t, "espeak", c.TTSProvider)
	assert.False(t, c.MicEnabled)
	assert.Equal(t, 6*time.Second, c.PhraseLimit)
	assert.Empty(t, c.WeatherKey)
}

func TestFromEnv_BadValues(t *testing.T) {
	_, err := FromEnv(env(map[string]string{
		"MIC_ENABLED":       "maybe",
		"HTTP_TIMEOUT":      "soon",
		"LONG_ANSWER_CHARS": "many",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIC_ENABLED")
	assert.Contains(t, err.Error(), "HTTP_TIMEOUT")
	assert.Contains(t, err.Error(), "LONG_ANSWER_CHARS")
}

func TestValidate(t *testing.T) {
	c := Default()
	c.OpenAIKey = "sk-test"
	require.NoError(t, c.Validate())

	c.OpenAIKey = ""
	c.TTSProvider = "sapi"
	c.Rate = "fast"
	c.Pitch = "+2"
	c.Language = "???"
	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"OPENAI_API_KEY", "TTS_PROVIDER", "ASSISTANT_RATE", "ASSISTANT_PITCH", "INPUT_LANGUAGE"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RIYA_TEST_UNUSED=1\nASSISTANT_NAME=Friday\n"), 0o600))
	t.Setenv("ASSISTANT_NAME", "")
	os.Unsetenv("ASSISTANT_NAME")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Friday", c.Assistant)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}
