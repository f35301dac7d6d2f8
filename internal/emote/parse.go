// Package emote talks to the 7TV emote provider.
package emote

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// Emote is one provider emote reduced to its name and best file URL.
type Emote struct {
	Name string
	URL  string
}

// ErrInvalidResponse marks a provider body that is not JSON.
var ErrInvalidResponse = errors.New("invalid provider response")

// ParseEmotes extracts emote_set.emotes in provider order.
//
// Entries without a name, host URL, or at least one file are dropped. Repeated names keep
// their first position and the last URL seen.
func ParseEmotes(body []byte) ([]Emote, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidResponse
	}

	emotes := make([]Emote, 0)
	position := make(map[string]int)

	gjson.GetBytes(body, "emote_set.emotes").ForEach(func(_, entry gjson.Result) bool {
		name := entry.Get("name")
		host := entry.Get("data.host.url")
		files := entry.Get("data.host.files").Array()
		if name.Type != gjson.String || name.String() == "" || host.Type != gjson.String || len(files) == 0 {
			return true
		}
		file := files[len(files)-1].Get("name")
		if file.Type != gjson.String || file.String() == "" {
			return true
		}

		e := Emote{
			Name: name.String(),
			URL:  "https://" + strings.TrimLeft(host.String(), "/") + "/" + file.String(),
		}
		if i, ok := position[e.Name]; ok {
			emotes[i].URL = e.URL
			return true
		}
		position[e.Name] = len(emotes)
		emotes = append(emotes, e)
		return true
	})
	return emotes, nil
}
