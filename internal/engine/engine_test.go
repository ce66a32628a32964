package engine

import (
	"net"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestMemoryNotifiesOnChangeOnly(t *testing.T) {
	m := NewMemory(quietLogger())

	var got []float64
	m.Subscribe("[Channel1]", "loop_enabled", func(v float64, group, key string) {
		assert.Equal(t, "[Channel1]", group)
		assert.Equal(t, "loop_enabled", key)
		got = append(got, v)
	})

	m.Set("[Channel1]", "loop_enabled", 1)
	m.Set("[Channel1]", "loop_enabled", 1)
	m.Set("[Channel1]", "loop_enabled", 0)

	assert.Equal(t, []float64{1, 0}, got)
	assert.Equal(t, []float64{1, 1, 0}, m.WritesTo("[Channel1]", "loop_enabled"))
}

func TestMemoryUnsubscribe(t *testing.T) {
	m := NewMemory(quietLogger())

	calls := 0
	sub := m.Subscribe("[Sampler1]", "play", func(float64, string, string) { calls++ })
	other := m.Subscribe("[Sampler1]", "play", func(float64, string, string) {})
	require.Equal(t, 2, m.Subscribers("[Sampler1]", "play"))

	m.Unsubscribe(sub)
	m.Unsubscribe(sub)
	m.Set("[Sampler1]", "play", 1)

	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, m.TotalSubscribers())

	m.Unsubscribe(other)
	assert.Equal(t, 0, m.TotalSubscribers())
}

func TestMemoryDelivererDefersCallbacks(t *testing.T) {
	m := NewMemory(quietLogger())

	var queue []func()
	m.SetDeliverer(func(fn func()) { queue = append(queue, fn) })

	fired := false
	m.Subscribe("[Channel2]", "track_loaded", func(float64, string, string) { fired = true })
	m.Set("[Channel2]", "track_loaded", 1)

	assert.False(t, fired)
	require.Len(t, queue, 1)
	queue[0]()
	assert.True(t, fired)
}

func TestMemoryScratchLifecycle(t *testing.T) {
	m := NewMemory(quietLogger())

	m.BeginScratch(1, 720, 33+1.0/3, 1.0/8, 1.0/256)
	p, ok := m.Scratching(1)
	require.True(t, ok)
	assert.Equal(t, 720, p.Resolution)

	m.ScratchTick(1, 10)
	m.EndScratch(1)

	_, ok = m.Scratching(1)
	assert.False(t, ok)
	assert.Equal(t, []ScratchTick{{Deck: 1, Delta: 10}}, m.Ticks)
	assert.Equal(t, []int{1}, m.EndedScratch)
}

func TestMemoryPresetIsSilent(t *testing.T) {
	m := NewMemory(quietLogger())
	calls := 0
	m.Subscribe("[Channel1]", "play", func(float64, string, string) { calls++ })

	m.Preset("[Channel1]", "play", 1)

	assert.Equal(t, 1.0, m.Get("[Channel1]", "play"))
	assert.Empty(t, m.Writes)
	assert.Equal(t, 0, calls)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		args    []interface{}
		want    float64
		wantErr bool
	}{
		{name: "float32", args: []interface{}{"[Channel1]", "rate", float32(0.5)}, want: 0.5},
		{name: "int32", args: []interface{}{"[Channel1]", "play", int32(1)}, want: 1},
		{name: "bool", args: []interface{}{"[Channel1]", "play", true}, want: 1},
		{name: "missing value", args: []interface{}{"[Channel1]", "play"}, wantErr: true},
		{name: "numeric group", args: []interface{}{int32(1), "play", int32(1)}, wantErr: true},
		{name: "string value", args: []interface{}{"[Channel1]", "play", "on"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := osc.NewMessage(AddrValue, tt.args...)
			group, key, v, err := parseValue(msg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "[Channel1]", group)
			assert.NotEmpty(t, key)
			assert.InDelta(t, tt.want, v, 1e-6)
		})
	}
}

func TestOSCValueUpdatesNotifySubscribers(t *testing.T) {
	e := NewOSC(OSCConfig{Host: "127.0.0.1", SendPort: 1, ListenAddr: "127.0.0.1:0"}, quietLogger())

	var got []float64
	e.Subscribe("[Channel1]", "VuMeter", func(v float64, _, _ string) { got = append(got, v) })

	e.handleValue(osc.NewMessage(AddrValue, "[Channel1]", "VuMeter", float32(0.25)))
	e.handleValue(osc.NewMessage(AddrValue, "[Channel1]", "VuMeter", float32(0.25)))
	e.handleValue(osc.NewMessage(AddrValue, "[Channel1]", "VuMeter"))

	assert.Equal(t, []float64{0.25}, got)
	assert.InDelta(t, 0.25, e.Get("[Channel1]", "VuMeter"), 1e-6)
}

// newLoopback bridges an OSC engine to a Memory served by a Host on loopback
func newLoopback(t *testing.T) (*OSC, *Memory) {
	t.Helper()
	mem := NewMemory(quietLogger())
	host := NewHost(mem, quietLogger())
	require.NoError(t, host.Listen("127.0.0.1:0"))
	t.Cleanup(func() { _ = host.Close() })

	e := NewOSC(OSCConfig{
		Host:         "127.0.0.1",
		SendPort:     host.Port(),
		ListenAddr:   "127.0.0.1:0",
		QueryTimeout: time.Second,
	}, quietLogger())
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Close() })
	require.NoError(t, host.ReplyTo(e.LocalAddr().String()))
	return e, mem
}

func TestOSCGetAsksHost(t *testing.T) {
	e, mem := newLoopback(t)
	mem.Preset("[Sampler1]", "track_loaded", 1)
	mem.Preset("[Channel1]", "hotcue_3_position", -1)
	mem.Preset("[Channel1]", "loop_start_position", 44100)

	assert.Equal(t, 1.0, e.Get("[Sampler1]", "track_loaded"))
	assert.Equal(t, -1.0, e.Get("[Channel1]", "hotcue_3_position"))
	assert.Equal(t, 44100.0, e.Get("[Channel1]", "loop_start_position"))

	mem.Preset("[Channel1]", "loop_start_position", 48000)
	assert.Equal(t, 48000.0, e.Get("[Channel1]", "loop_start_position"))
}

func TestOSCWritesReachHost(t *testing.T) {
	e, mem := newLoopback(t)

	e.Set("[Channel1]", "rate", 0.5)
	e.SoftTakeover("[Channel1]", "rate", true)
	e.BeginScratch(1, 720, 33+1.0/3, 1.0/8, 1.0/256)

	require.Eventually(t, func() bool {
		_, scratching := mem.Scratching(1)
		return scratching && mem.SoftTakeoverEnabled("[Channel1]", "rate") &&
			len(mem.WritesTo("[Channel1]", "rate")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []float64{0.5}, mem.WritesTo("[Channel1]", "rate"))

	e.EndScratch(1)
	require.Eventually(t, func() bool {
		_, scratching := mem.Scratching(1)
		return !scratching
	}, time.Second, 5*time.Millisecond)
}

func TestOSCSubscriptionIsPushed(t *testing.T) {
	e, mem := newLoopback(t)

	got := make(chan float64, 4)
	e.Subscribe("[Channel2]", "loop_enabled", func(v float64, _, _ string) { got <- v })
	require.Eventually(t, func() bool {
		return mem.Subscribers("[Channel2]", "loop_enabled") == 1
	}, time.Second, 5*time.Millisecond)

	mem.Set("[Channel2]", "loop_enabled", 1)
	select {
	case v := <-got:
		assert.Equal(t, 1.0, v)
	case <-time.After(time.Second):
		t.Fatal("no value pushed for subscribed parameter")
	}
	assert.Equal(t, 1.0, e.Get("[Channel2]", "loop_enabled"))
}

func TestOSCGetFallsBackWhenHostIsSilent(t *testing.T) {
	silent, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer silent.Close()

	e := NewOSC(OSCConfig{
		Host:         "127.0.0.1",
		SendPort:     silent.LocalAddr().(*net.UDPAddr).Port,
		ListenAddr:   "127.0.0.1:0",
		QueryTimeout: 20 * time.Millisecond,
	}, quietLogger())
	require.NoError(t, e.Start())
	defer e.Close()

	e.Set("[Channel1]", "rateRange", 0.16)
	assert.Equal(t, 0.16, e.Get("[Channel1]", "rateRange"))
	assert.Equal(t, 0.0, e.Get("[Channel1]", "waveform_zoom"))
}
