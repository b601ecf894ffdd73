package events

import "testing"

type countingSink struct {
	calls []string
}

func (s *countingSink) Publish(eventType string, payload any) {
	s.calls = append(s.calls, eventType)
}

func TestFanoutPublishesToAllSinks(t *testing.T) {
	a := &countingSink{}
	b := &countingSink{}

	Fanout{a, b}.Publish(OrderCreated, map[string]any{"id": "o-1"})

	for i, sink := range []*countingSink{a, b} {
		if len(sink.calls) != 1 || sink.calls[0] != OrderCreated {
			t.Errorf("sink %d calls = %v", i, sink.calls)
		}
	}
}

func TestFanoutEmpty(t *testing.T) {
	// Publishing with no sinks configured is a no-op.
	Fanout{}.Publish(OrderStatusUpdated, nil)
}
