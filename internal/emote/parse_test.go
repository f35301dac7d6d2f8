package emote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmotes(t *testing.T) {
	body := `{
  "id": "123",
  "emote_set": {
    "emotes": [
      {"name": "KEKW", "data": {"host": {"url": "//cdn.7tv.app/emote/01", "files": [
        {"name": "1x.webp"}, {"name": "4x.webp"}
      ]}}},
      {"name": "", "data": {"host": {"url": "//cdn.7tv.app/emote/02", "files": [{"name": "1x.gif"}]}}},
      {"name": "NoData"},
      {"name": "NoFiles", "data": {"host": {"url": "//cdn.7tv.app/emote/03", "files": []}}},
      {"name": "NoHost", "data": {"host": {"files": [{"name": "1x.gif"}]}}},
      {"name": "pepeD", "data": {"host": {"url": "cdn.7tv.app/emote/04", "files": [{"name": "2x.gif"}]}}},
      {"name": "KEKW", "data": {"host": {"url": "//cdn.7tv.app/emote/05", "files": [{"name": "3x.avif"}]}}}
    ]
  }
}`

	emotes, err := ParseEmotes([]byte(body))
	require.NoError(t, err)
	require.Equal(t, []Emote{
		{Name: "KEKW", URL: "https://cdn.7tv.app/emote/05/3x.avif"},
		{Name: "pepeD", URL: "https://cdn.7tv.app/emote/04/2x.gif"},
	}, emotes)
}

func TestParseEmotesWithoutEmoteSet(t *testing.T) {
	emotes, err := ParseEmotes([]byte(`{"id": "123", "emote_set": null}`))
	require.NoError(t, err)
	require.Empty(t, emotes)
}

func TestParseEmotesRejectsInvalidJSON(t *testing.T) {
	_, err := ParseEmotes([]byte(`<html>rate limited</html>`))
	require.ErrorIs(t, err, ErrInvalidResponse)
}
