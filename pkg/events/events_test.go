package events

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterClassify(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	monitored := func(name string) bool { return strings.HasPrefix(name, "shop_bi_") }

	tests := []struct {
		name     string
		event    RawEvent
		wantHint bool
	}{
		{
			name:     "die on monitored container",
			event:    RawEvent{Category: "container", Action: "die", Attributes: map[string]string{"name": "shop_bi_api"}, Time: at},
			wantHint: true,
		},
		{
			name:     "health transition",
			event:    RawEvent{Category: "container", Action: "health_status: unhealthy", Attributes: map[string]string{"name": "shop_bi_api"}, Time: at},
			wantHint: true,
		},
		{
			name:     "unpause",
			event:    RawEvent{Category: "container", Action: "unpause", Attributes: map[string]string{"name": "shop_bi_db"}, Time: at},
			wantHint: true,
		},
		{
			name:     "exec events are noise",
			event:    RawEvent{Category: "container", Action: "exec_start: sh", Attributes: map[string]string{"name": "shop_bi_api"}, Time: at},
			wantHint: false,
		},
		{
			name:     "destroy is not in the allow-list",
			event:    RawEvent{Category: "container", Action: "destroy", Attributes: map[string]string{"name": "shop_bi_api"}, Time: at},
			wantHint: false,
		},
		{
			name:     "unmonitored container",
			event:    RawEvent{Category: "container", Action: "stop", Attributes: map[string]string{"name": "postgres"}, Time: at},
			wantHint: false,
		},
		{
			name:     "network category",
			event:    RawEvent{Category: "network", Action: "start", Attributes: map[string]string{"name": "shop_bi_net"}, Time: at},
			wantHint: false,
		},
		{
			name:     "missing name",
			event:    RawEvent{Category: "container", Action: "start", Time: at},
			wantHint: false,
		},
	}

	filter := NewFilter(monitored)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint, ok := filter.Classify(tt.event)
			assert.Equal(t, tt.wantHint, ok)
			if tt.wantHint {
				assert.Equal(t, tt.event.Attributes["name"], hint.Name)
				assert.Equal(t, at, hint.At)
			}
		})
	}
}

func TestFilterWithoutPredicateAcceptsAll(t *testing.T) {
	filter := NewFilter(nil)
	hint, ok := filter.Classify(RawEvent{Category: "container", Action: "kill", Attributes: map[string]string{"name": "anything"}})
	require.True(t, ok)
	assert.Equal(t, "anything", hint.Name)
}

func TestHintQueueDropsNewestWhenFull(t *testing.T) {
	q := NewHintQueue(2)

	assert.True(t, q.Offer(Hint{Name: "a"}))
	assert.True(t, q.Offer(Hint{Name: "b"}))
	assert.False(t, q.Offer(Hint{Name: "c"}))
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, "a", (<-q.C()).Name)
	assert.Equal(t, "b", (<-q.C()).Name)
}

func TestHintQueueClose(t *testing.T) {
	q := NewHintQueue(4)
	require.True(t, q.Offer(Hint{Name: "a"}))

	q.Close()
	q.Close()

	assert.False(t, q.Offer(Hint{Name: "b"}))

	h, ok := <-q.C()
	assert.True(t, ok)
	assert.Equal(t, "a", h.Name)

	_, ok = <-q.C()
	assert.False(t, ok)
}

func TestHintQueueDefaultSize(t *testing.T) {
	q := NewHintQueue(0)
	assert.Equal(t, DefaultQueueSize, cap(q.ch))
}
