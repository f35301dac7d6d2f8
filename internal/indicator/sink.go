package indicator

import (
	"fmt"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Sink describes the Pulse output that audio cues play through.
type Sink struct {
	ID          string
	Description string
	Muted       bool
}

// DefaultSink reports the server's default output sink.
func DefaultSink() (Sink, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("mojify"),
		pulse.ClientApplicationIconName("face-smile"),
	)
	if err != nil {
		return Sink{}, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return Sink{}, fmt.Errorf("read default sink: %w", err)
	}

	var sinkInfos pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &sinkInfos); err != nil {
		return Sink{}, fmt.Errorf("list sinks: %w", err)
	}

	sink := Sink{ID: defaultSink.ID(), Description: defaultSink.Name()}
	for _, info := range sinkInfos {
		if info != nil && info.SinkName == sink.ID {
			sink.Muted = info.Mute
			break
		}
	}
	return sink, nil
}
