package publish

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mixer/internal/clip"
	"github.com/roach88/mixer/internal/engine"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic   string
	payload string
}

// fakeBroker records publishes. While gate is non-nil each Publish waits
// for a value on it.
type fakeBroker struct {
	mu       sync.Mutex
	messages []published
	err      error
	timeout  bool
	gate     chan struct{}
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if b.gate != nil {
		<-b.gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, published{topic: topic, payload: string(payload.([]byte))})
	return &fakeToken{err: b.err, timeout: b.timeout}
}

func (b *fakeBroker) Messages() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.messages...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_TopicsAndPayloads(t *testing.T) {
	broker := &fakeBroker{}
	p := New(broker, Config{TopicPrefix: "studio"}, "s1", quietLogger())

	p.Observe(engine.Event{Iteration: 1, Time: 0, Type: engine.EventFrameBegin})
	p.Observe(engine.Event{
		Iteration: 1,
		Time:      0.5,
		Type:      engine.EventTriggered,
		Kind:      clip.KindTriggerable,
		Handle:    "chime",
	})
	p.Close()

	msgs := broker.Messages()
	require.Len(t, msgs, 1, "frame events are skipped by default")
	assert.Equal(t, "studio/s1/triggered", msgs[0].topic)
	assert.Equal(t,
		`{"handle":"chime","iteration":1,"kind":"triggerable","time":"0.5","type":"triggered"}`,
		msgs[0].payload)
	assert.Equal(t, Stats{Published: 1}, p.Stats())
}

func TestPublisher_IncludeFrames(t *testing.T) {
	broker := &fakeBroker{}
	p := New(broker, Config{IncludeFrames: true}, "s1", quietLogger())

	p.Observe(engine.Event{Iteration: 1, Type: engine.EventFrameBegin})
	p.Observe(engine.Event{Iteration: 1, Type: engine.EventFrameEnd})
	p.Close()

	msgs := broker.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "mixer/s1/frame_begin", msgs[0].topic)
	assert.Equal(t, "mixer/s1/frame_end", msgs[1].topic)
}

func TestPublisher_DropsWhenQueueFull(t *testing.T) {
	broker := &fakeBroker{gate: make(chan struct{})}
	p := New(broker, Config{QueueSize: 1}, "s1", quietLogger())

	ev := engine.Event{Iteration: 1, Type: engine.EventTriggered, Kind: clip.KindTriggerable, Handle: "a"}

	// The sender takes the first event and blocks on the gate, the second
	// fills the queue, the rest are dropped.
	p.Observe(ev)
	require.Eventually(t, func() bool { return len(p.queue) == 0 }, time.Second, time.Millisecond)
	p.Observe(ev)
	p.Observe(ev)
	p.Observe(ev)

	close(broker.gate)
	p.Close()

	assert.Equal(t, Stats{Published: 2, Dropped: 2}, p.Stats())
}

func TestPublisher_CountsFailures(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		broker := &fakeBroker{err: errors.New("not connected")}
		p := New(broker, Config{}, "s1", quietLogger())
		p.Observe(engine.Event{Iteration: 1, Type: engine.EventRunStarted, Kind: clip.KindSequential, Handle: "a"})
		p.Close()
		assert.Equal(t, Stats{Failed: 1}, p.Stats())
	})

	t.Run("timeout", func(t *testing.T) {
		broker := &fakeBroker{timeout: true}
		p := New(broker, Config{}, "s1", quietLogger())
		p.Observe(engine.Event{Iteration: 1, Type: engine.EventRunStarted, Kind: clip.KindSequential, Handle: "a"})
		p.Close()
		assert.Equal(t, Stats{Failed: 1}, p.Stats())
	})
}

func TestPublisher_AsDriverObserver(t *testing.T) {
	broker := &fakeBroker{}
	p := New(broker, Config{}, "s1", quietLogger())

	d := engine.New(engine.WithObserver(p), engine.WithLogger(quietLogger()))
	clips := []clip.Clip{{
		Handle: "chime",
		Start:  0,
		Weight: 1,
		Behaviour: clip.Triggerable{
			Fire: func() error { return nil },
		},
	}}
	require.NoError(t, d.Evaluate(0, clips))
	p.Close()

	msgs := broker.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "mixer/s1/triggered", msgs[0].topic)
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	p := New(&fakeBroker{}, Config{}, "s1", quietLogger())
	p.Close()
	assert.NotPanics(t, p.Close)
}

func TestConfig_Defaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, "tcp://localhost:1883", c.BrokerURL)
	assert.Equal(t, "mixer", c.ClientID)
	assert.Equal(t, "mixer", c.TopicPrefix)
	assert.Equal(t, 256, c.QueueSize)
	assert.Equal(t, 10*time.Second, c.Timeout)
}
