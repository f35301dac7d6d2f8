// Package builder scrapes channel emote sets into local files and the trigger mapping.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/rbright/mojify/internal/emote"
	"github.com/rbright/mojify/internal/mapping"
)

// ErrNoChannels is returned when no channel IDs are configured.
var ErrNoChannels = errors.New("no channel IDs configured (set CHANNEL_IDS)")

// Provider is the emote source the builder scrapes.
type Provider interface {
	FetchChannel(ctx context.Context, channelID string) ([]emote.Emote, error)
	Download(ctx context.Context, rawURL, dest string) (int64, error)
}

// Options configures one builder run.
type Options struct {
	Provider        Provider
	ChannelIDs      []string
	OutputDir       string
	Root            string
	MappingFile     string
	ChannelWorkers  int
	DownloadWorkers int
	Logger          *slog.Logger
}

// Builder runs the scrape/download/merge/save sequence.
type Builder struct {
	opts   Options
	logger *slog.Logger
}

// New returns a Builder. Non-positive pool sizes fall back to 5 channel and 10 download workers.
func New(opts Options) *Builder {
	if opts.ChannelWorkers <= 0 {
		opts.ChannelWorkers = 5
	}
	if opts.DownloadWorkers <= 0 {
		opts.DownloadWorkers = 10
	}
	if opts.Root == "" {
		opts.Root = filepath.Dir(opts.OutputDir)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{opts: opts, logger: logger}
}

type fetched struct {
	emotes []emote.Emote
	err    error
}

// Run queries every channel, downloads their emotes, and persists the merged mapping.
//
// Channels are queried concurrently but downloaded and merged in configured order, so a
// trigger produced by two channels resolves to the later channel's file.
func (b *Builder) Run(ctx context.Context) (Summary, error) {
	summary := Summary{MappingFile: b.opts.MappingFile}
	if len(b.opts.ChannelIDs) == 0 {
		return summary, ErrNoChannels
	}

	global, err := mapping.Load(b.opts.MappingFile)
	if err != nil {
		b.logger.Warn("existing mapping unreadable; starting empty", "path", b.opts.MappingFile, "error", err.Error())
		global = mapping.NewTable()
	}

	if err := os.MkdirAll(b.opts.OutputDir, 0o755); err != nil {
		return summary, fmt.Errorf("create output dir: %w", err)
	}

	queries := b.queryChannels(ctx)

	for i, channelID := range b.opts.ChannelIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		channel := ChannelSummary{ChannelID: channelID}
		q := queries[i]
		switch {
		case q.err != nil:
			channel.Err = q.err
			b.logger.Error("channel query failed", "channel", channelID, "error", q.err.Error())
		case len(q.emotes) == 0:
			b.logger.Info("no emotes found", "channel", channelID)
		default:
			table, err := b.downloadChannel(ctx, channelID, q.emotes, &channel)
			if err != nil {
				channel.Err = err
				b.logger.Error("channel download failed", "channel", channelID, "error", err.Error())
				break
			}
			global.Merge(table)
		}
		summary.add(channel)
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	changed, err := mapping.Save(b.opts.MappingFile, global)
	if err != nil {
		return summary, fmt.Errorf("save mapping: %w", err)
	}
	summary.MappingChanged = changed
	summary.MappingEntries = global.Len()

	b.logger.Info("mapping build finished",
		"channels", len(summary.Channels),
		"downloaded", summary.Downloaded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"bytes", humanize.IBytes(uint64(summary.Bytes)),
		"mapping_changed", changed,
	)
	return summary, nil
}

func (b *Builder) queryChannels(ctx context.Context) []fetched {
	results := make([]fetched, len(b.opts.ChannelIDs))

	var g errgroup.Group
	g.SetLimit(b.opts.ChannelWorkers)
	for i, channelID := range b.opts.ChannelIDs {
		g.Go(func() error {
			b.logger.Debug("fetching channel emotes", "channel", channelID)
			emotes, err := b.opts.Provider.FetchChannel(ctx, channelID)
			results[i] = fetched{emotes: emotes, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (b *Builder) downloadChannel(ctx context.Context, channelID string, emotes []emote.Emote, channel *ChannelSummary) (*mapping.Table, error) {
	dir := filepath.Join(b.opts.OutputDir, SanitizeFilename(channelID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create channel dir: %w", err)
	}

	jobs := Plan(emotes, dir)
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(b.opts.DownloadWorkers)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = b.fetchOne(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	table := mapping.NewTable()
	for i, result := range results {
		channel.record(result)
		if result.Status == StatusFailed {
			b.logger.Warn("emote download failed", "channel", channelID, "emote", result.Name, "error", result.Err.Error())
			continue
		}
		rel, err := b.relative(jobs[i].Path)
		if err != nil {
			return nil, err
		}
		table.Set(jobs[i].Trigger, rel)
	}

	b.logger.Info("channel processed",
		"channel", channelID,
		"downloaded", channel.Downloaded,
		"skipped", channel.Skipped,
		"failed", channel.Failed,
		"bytes", humanize.IBytes(uint64(channel.Bytes)),
	)
	return table, nil
}

func (b *Builder) fetchOne(ctx context.Context, job Job) Result {
	result := Result{Name: job.Emote.Name, Path: job.Path}

	if _, err := os.Stat(job.Path); err == nil {
		result.Status = StatusSkipped
		return result
	}

	n, err := b.opts.Provider.Download(ctx, job.Emote.URL, job.Path)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}
	result.Status = StatusDownloaded
	result.Bytes = n
	return result
}

func (b *Builder) relative(path string) (string, error) {
	rel, err := filepath.Rel(b.opts.Root, path)
	if err != nil {
		return "", fmt.Errorf("relativize %q: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}
