package buildpipeline

import (
	"sync"
	"time"
)

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// RecordingSink keeps every event in memory.
type RecordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *RecordingSink) OnEvent(evt Event) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (s *RecordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func emit(sink ProgressSink, evt Event) {
	if sink == nil {
		return
	}
	sink.OnEvent(evt)
}

func emitQueued(sink ProgressSink, names []string) {
	for _, name := range names {
		emit(sink, Event{Resource: name, Stage: StageLoad, Status: StatusQueued})
	}
}

func emitStage(sink ProgressSink, names []string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	for _, name := range names {
		sink.OnEvent(Event{Resource: name, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	}
}
