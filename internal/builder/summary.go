package builder

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Status is the outcome of one emote download.
type Status int

const (
	StatusDownloaded Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDownloaded:
		return "downloaded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result records one emote download.
type Result struct {
	Name   string
	Path   string
	Status Status
	Bytes  int64
	Err    error
}

// ChannelSummary aggregates one channel's downloads.
type ChannelSummary struct {
	ChannelID  string
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
	Failures   []Result
	// Err is set when the channel could not be queried or prepared.
	Err error
}

func (c *ChannelSummary) record(r Result) {
	switch r.Status {
	case StatusDownloaded:
		c.Downloaded++
		c.Bytes += r.Bytes
	case StatusSkipped:
		c.Skipped++
	case StatusFailed:
		c.Failed++
		c.Failures = append(c.Failures, r)
	}
}

// String renders a one-line human summary.
func (c ChannelSummary) String() string {
	if c.Err != nil {
		return fmt.Sprintf("%s: error: %v", c.ChannelID, c.Err)
	}
	if c.Downloaded+c.Skipped+c.Failed == 0 {
		return fmt.Sprintf("%s: no emotes found", c.ChannelID)
	}
	return fmt.Sprintf("%s: downloaded %d (%s), skipped %d, failed %d",
		c.ChannelID, c.Downloaded, humanize.IBytes(uint64(c.Bytes)), c.Skipped, c.Failed)
}

// Summary aggregates a whole run.
type Summary struct {
	Channels       []ChannelSummary
	Downloaded     int
	Skipped        int
	Failed         int
	Bytes          int64
	MappingFile    string
	MappingEntries int
	MappingChanged bool
}

func (s *Summary) add(c ChannelSummary) {
	s.Channels = append(s.Channels, c)
	s.Downloaded += c.Downloaded
	s.Skipped += c.Skipped
	s.Failed += c.Failed
	s.Bytes += c.Bytes
}

// ChannelErrors counts channels that could not be processed.
func (s Summary) ChannelErrors() int {
	n := 0
	for _, c := range s.Channels {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// String renders the totals line.
func (s Summary) String() string {
	return fmt.Sprintf("total: downloaded %d (%s), skipped %d, failed %d; mapping %s (%d entries)",
		s.Downloaded, humanize.IBytes(uint64(s.Bytes)), s.Skipped, s.Failed, s.mappingState(), s.MappingEntries)
}

func (s Summary) mappingState() string {
	if s.MappingChanged {
		return "saved"
	}
	return "unchanged"
}
