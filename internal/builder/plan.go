package builder

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rbright/mojify/internal/emote"
)

const defaultExtension = ".gif"

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Job is one planned emote download with its final file name.
type Job struct {
	Emote   emote.Emote
	Name    string
	Trigger string
	Path    string
}

// SanitizeFilename replaces characters that are invalid in file names with underscores.
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// Plan assigns unique file names under dir in emote order.
//
// Names that collide case-insensitively after sanitizing get an _N suffix, counted per batch.
func Plan(emotes []emote.Emote, dir string) []Job {
	seen := make(map[string]int, len(emotes))
	jobs := make([]Job, 0, len(emotes))

	for _, e := range emotes {
		name := SanitizeFilename(e.Name)
		base := strings.ToLower(name)
		suffix := seen[base]
		seen[base] = suffix + 1
		if suffix > 0 {
			name = name + "_" + strconv.Itoa(suffix)
		}

		jobs = append(jobs, Job{
			Emote:   e,
			Name:    name,
			Trigger: ":" + name + ":",
			Path:    filepath.Join(dir, name+extensionOf(e.URL)),
		})
	}
	return jobs
}

func extensionOf(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if ext := path.Ext(p); ext != "" {
		return ext
	}
	return defaultExtension
}
