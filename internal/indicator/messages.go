package indicator

import "fmt"

// messages is the user-facing notification copy.
type messages struct {
	listening string
	stopped   string
	failed    string
	pasted    string
}

var defaultMessages = messages{
	listening: "Emote triggers active",
	stopped:   "Emote triggers stopped",
	failed:    "Emote replacement failed",
	pasted:    "%s pasted",
}

func (m messages) pastedFor(key string) string {
	return fmt.Sprintf(m.pasted, key)
}
