package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rbright/mojify/internal/emote"
	"github.com/rbright/mojify/internal/mapping"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu        sync.Mutex
	channels  map[string][]emote.Emote
	delays    map[string]time.Duration
	failURLs  map[string]bool
	fetchErr  map[string]error
	downloads []string
}

func (f *fakeProvider) FetchChannel(_ context.Context, channelID string) ([]emote.Emote, error) {
	if d := f.delays[channelID]; d > 0 {
		time.Sleep(d)
	}
	if err := f.fetchErr[channelID]; err != nil {
		return nil, err
	}
	return f.channels[channelID], nil
}

func (f *fakeProvider) Download(_ context.Context, rawURL, dest string) (int64, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, rawURL)
	f.mu.Unlock()

	if f.failURLs[rawURL] {
		return 0, fmt.Errorf("download %s: unexpected status 404 Not Found", rawURL)
	}
	body := []byte("bytes:" + rawURL)
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return 0, err
	}
	return int64(len(body)), nil
}

func (f *fakeProvider) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.downloads)
}

func newTestBuilder(t *testing.T, root string, provider Provider, channels ...string) *Builder {
	t.Helper()
	return New(Options{
		Provider:    provider,
		ChannelIDs:  channels,
		OutputDir:   filepath.Join(root, "7tv_emotes"),
		MappingFile: filepath.Join(root, "emote_mapping.json"),
	})
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	files := make([]string, 0)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func TestRunDownloadsAndWritesMapping(t *testing.T) {
	root := t.TempDir()
	provider := &fakeProvider{channels: map[string][]emote.Emote{
		"111": {
			{Name: "KEKW", URL: "https://cdn/e/1/4x.webp"},
			{Name: "pepeD", URL: "https://cdn/e/2/4x.gif"},
			{Name: "broken", URL: "https://cdn/e/3/4x.gif"},
		},
	}, failURLs: map[string]bool{"https://cdn/e/3/4x.gif": true}}

	summary, err := newTestBuilder(t, root, provider, "111").Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, summary.Downloaded)
	require.Equal(t, 0, summary.Skipped)
	require.Equal(t, 1, summary.Failed)
	require.True(t, summary.MappingChanged)
	require.Len(t, summary.Channels, 1)
	require.Len(t, summary.Channels[0].Failures, 1)
	require.Equal(t, "broken", summary.Channels[0].Failures[0].Name)

	table, err := mapping.Load(filepath.Join(root, "emote_mapping.json"))
	require.NoError(t, err)
	require.Equal(t, []string{":KEKW:", ":pepeD:"}, table.Keys())
	path, _ := table.Get(":KEKW:")
	require.Equal(t, "7tv_emotes/111/KEKW.webp", path)

	require.Equal(t, []string{"111/KEKW.webp", "111/pepeD.gif"}, listFiles(t, filepath.Join(root, "7tv_emotes")))
}

func TestRunSecondPassSkipsEverything(t *testing.T) {
	root := t.TempDir()
	provider := &fakeProvider{channels: map[string][]emote.Emote{
		"111": {
			{Name: "KEKW", URL: "https://cdn/e/1/4x.webp"},
			{Name: "kekw", URL: "https://cdn/e/2/4x.webp"},
		},
	}}
	builder := newTestBuilder(t, root, provider, "111")

	first, err := builder.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, first.Downloaded)
	filesBefore := listFiles(t, filepath.Join(root, "7tv_emotes"))

	mappingPath := filepath.Join(root, "emote_mapping.json")
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(mappingPath, past, past))

	second, err := builder.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, second.Downloaded)
	require.Equal(t, 2, second.Skipped)
	require.Equal(t, 0, second.Failed)
	require.False(t, second.MappingChanged)
	require.Equal(t, 2, provider.downloadCount())
	require.Equal(t, filesBefore, listFiles(t, filepath.Join(root, "7tv_emotes")))

	info, err := os.Stat(mappingPath)
	require.NoError(t, err)
	require.True(t, info.ModTime().Equal(past))
}

func TestRunLaterChannelWinsOnTriggerCollision(t *testing.T) {
	root := t.TempDir()
	provider := &fakeProvider{
		channels: map[string][]emote.Emote{
			"first":  {{Name: "Shared", URL: "https://cdn/a/4x.gif"}, {Name: "OnlyA", URL: "https://cdn/a2/4x.gif"}},
			"second": {{Name: "Shared", URL: "https://cdn/b/4x.png"}},
		},
		// The first channel answers last; merge order must still follow configuration.
		delays: map[string]time.Duration{"first": 30 * time.Millisecond},
	}

	_, err := newTestBuilder(t, root, provider, "first", "second").Run(context.Background())
	require.NoError(t, err)

	table, err := mapping.Load(filepath.Join(root, "emote_mapping.json"))
	require.NoError(t, err)
	require.Equal(t, []string{":Shared:", ":OnlyA:"}, table.Keys())
	path, _ := table.Get(":Shared:")
	require.Equal(t, "7tv_emotes/second/Shared.png", path)
}

func TestRunKeepsExistingEntriesAndSurvivesBadChannels(t *testing.T) {
	root := t.TempDir()
	mappingPath := filepath.Join(root, "emote_mapping.json")
	require.NoError(t, os.WriteFile(mappingPath, []byte(`{":old:": "7tv_emotes/0/old.gif"}`), 0o644))

	provider := &fakeProvider{
		channels: map[string][]emote.Emote{
			"good": {{Name: "new", URL: "https://cdn/n/4x.gif"}},
		},
		fetchErr: map[string]error{"bad": errors.New("fetch channel bad: unexpected status 404 Not Found")},
	}

	summary, err := newTestBuilder(t, root, provider, "bad", "empty", "good").Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.ChannelErrors())
	require.Len(t, summary.Channels, 3)
	require.Contains(t, summary.Channels[0].String(), "error")
	require.Contains(t, summary.Channels[1].String(), "no emotes found")
	require.Equal(t, 2, summary.MappingEntries)

	table, err := mapping.Load(mappingPath)
	require.NoError(t, err)
	require.Equal(t, []string{":old:", ":new:"}, table.Keys())
}

func TestRunInvalidExistingMappingStartsEmpty(t *testing.T) {
	root := t.TempDir()
	mappingPath := filepath.Join(root, "emote_mapping.json")
	require.NoError(t, os.WriteFile(mappingPath, []byte(`{broken`), 0o644))

	provider := &fakeProvider{channels: map[string][]emote.Emote{"c": {{Name: "x", URL: "https://cdn/x.gif"}}}}
	_, err := newTestBuilder(t, root, provider, "c").Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(mappingPath)
	require.NoError(t, err)
	require.Equal(t, "{\n    \":x:\": \"7tv_emotes/c/x.gif\"\n}\n", string(data))
}

func TestRunWithoutChannels(t *testing.T) {
	_, err := newTestBuilder(t, t.TempDir(), &fakeProvider{}).Run(context.Background())
	require.ErrorIs(t, err, ErrNoChannels)
}

func TestRunCanceledDoesNotSave(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &fakeProvider{channels: map[string][]emote.Emote{"c": {{Name: "x", URL: "https://cdn/x.gif"}}}}
	_, err := newTestBuilder(t, root, provider, "c").Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(filepath.Join(root, "emote_mapping.json"))
	require.True(t, os.IsNotExist(statErr))
}
