package engine

import (
	"net"
	"strconv"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Host serves a Memory engine over the protocol OSC speaks. It applies /set,
// answers /get and pushes /value for subscribed parameters. Dry runs pair it
// with an OSC bridge on loopback so the whole bridge path is exercised
// without a mixing engine.
type Host struct {
	engine     *Memory
	dispatcher *osc.StandardDispatcher

	mu     sync.Mutex
	conn   net.PacketConn
	client *osc.Client
	subs   map[param]Subscription

	log logrus.FieldLogger
}

// NewHost wraps eng. Call Listen, then ReplyTo with the bridge's address.
func NewHost(eng *Memory, log logrus.FieldLogger) *Host {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &Host{
		engine:     eng,
		dispatcher: osc.NewStandardDispatcher(),
		subs:       make(map[param]Subscription),
		log:        log.WithField("component", "engine-host"),
	}

	handlers := map[string]osc.HandlerFunc{
		AddrSet:          h.handleSet,
		AddrGet:          h.handleGet,
		AddrSubscribe:    h.handleSubscribe,
		AddrUnsubscribe:  h.handleUnsubscribe,
		AddrScratchBegin: h.handleScratchBegin,
		AddrScratchTick:  h.handleScratchTick,
		AddrScratchEnd:   h.handleScratchEnd,
		AddrTakeover:     h.handleTakeover,
		AddrTakeoverSkip: h.handleTakeoverSkip,
	}
	for addr, fn := range handlers {
		if err := h.dispatcher.AddMsgHandler(addr, fn); err != nil {
			h.log.Errorf("Failed to register %s handler: %v", addr, err)
		}
	}
	return h
}

// Listen starts serving requests on addr, e.g. "127.0.0.1:0"
func (h *Host) Listen(addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", addr)
	}
	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()

	go serve(conn, h.dispatcher, h.log)
	return nil
}

// Port is the UDP port requests are served on, 0 before Listen
func (h *Host) Port() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return 0
	}
	if udp, ok := h.conn.LocalAddr().(*net.UDPAddr); ok {
		return udp.Port
	}
	return 0
}

// ReplyTo sets where answers and value updates go, as "host:port"
func (h *Host) ReplyTo(addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.Wrapf(err, "invalid reply address %q", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return errors.Wrapf(err, "invalid reply port %q", portStr)
	}
	h.mu.Lock()
	h.client = osc.NewClient(host, port)
	h.mu.Unlock()
	return nil
}

// Close stops serving and drops every subscription
func (h *Host) Close() error {
	h.mu.Lock()
	conn := h.conn
	h.conn = nil
	subs := h.subs
	h.subs = make(map[param]Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		h.engine.Unsubscribe(sub)
	}
	if conn == nil {
		return nil
	}
	return errors.Wrap(conn.Close(), "closing OSC host")
}

func (h *Host) push(group, key string, value float64) {
	h.mu.Lock()
	client := h.client
	h.mu.Unlock()
	if client == nil {
		h.log.Debugf("No reply address for %s %s", group, key)
		return
	}
	if err := client.Send(osc.NewMessage(AddrValue, group, key, float32(value))); err != nil {
		h.log.Warnf("Failed to send %s: %v", AddrValue, err)
	}
}

func (h *Host) handleSet(msg *osc.Message) {
	group, key, value, err := parseValue(msg)
	if err != nil {
		h.log.Debugf("Dropping malformed %s: %v", AddrSet, err)
		return
	}
	h.engine.Set(group, key, value)
}

func (h *Host) handleGet(msg *osc.Message) {
	group, key, err := parseParam(msg.Arguments)
	if err != nil {
		h.log.Debugf("Dropping malformed %s: %v", AddrGet, err)
		return
	}
	h.push(group, key, h.engine.Get(group, key))
}

func (h *Host) handleSubscribe(msg *osc.Message) {
	group, key, err := parseParam(msg.Arguments)
	if err != nil {
		h.log.Debugf("Dropping malformed %s: %v", AddrSubscribe, err)
		return
	}
	p := param{group, key}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[p]; ok {
		return
	}
	h.subs[p] = h.engine.Subscribe(group, key, func(v float64, group, key string) {
		h.push(group, key, v)
	})
}

func (h *Host) handleUnsubscribe(msg *osc.Message) {
	group, key, err := parseParam(msg.Arguments)
	if err != nil {
		h.log.Debugf("Dropping malformed %s: %v", AddrUnsubscribe, err)
		return
	}
	p := param{group, key}
	h.mu.Lock()
	sub, ok := h.subs[p]
	delete(h.subs, p)
	h.mu.Unlock()
	if ok {
		h.engine.Unsubscribe(sub)
	}
}

// numbers converts every argument of msg, which must all be numeric
func numbers(msg *osc.Message, want int) ([]float64, error) {
	if len(msg.Arguments) != want {
		return nil, errors.Errorf("expected %d arguments, got %d", want, len(msg.Arguments))
	}
	out := make([]float64, want)
	for i, arg := range msg.Arguments {
		v, err := number(arg)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (h *Host) handleScratchBegin(msg *osc.Message) {
	args, err := numbers(msg, 5)
	if err != nil {
		h.log.Debugf("Dropping malformed %s: %v", AddrScratchBegin, err)
		return
	}
	h.engine.BeginScratch(int(args[0]), int(args[1]), args[2], args[3], args[4])
}

func (h *Host) handleScratchTick(msg *osc.Message) {
	args, err := numbers(msg, 2)
	if err != nil {
		h.log.Debugf("Dropping malformed %s: %v", AddrScratchTick, err)
		return
	}
	h.engine.ScratchTick(int(args[0]), args[1])
}

func (h *Host) handleScratchEnd(msg *osc.Message) {
	args, err := numbers(msg, 1)
	if err != nil {
		h.log.Debugf("Dropping malformed %s: %v", AddrScratchEnd, err)
		return
	}
	h.engine.EndScratch(int(args[0]))
}

func (h *Host) handleTakeover(msg *osc.Message) {
	group, key, value, err := parseValue(msg)
	if err != nil {
		h.log.Debugf("Dropping malformed %s: %v", AddrTakeover, err)
		return
	}
	h.engine.SoftTakeover(group, key, Bool(value))
}

func (h *Host) handleTakeoverSkip(msg *osc.Message) {
	group, key, err := parseParam(msg.Arguments)
	if err != nil {
		h.log.Debugf("Dropping malformed %s: %v", AddrTakeoverSkip, err)
		return
	}
	h.engine.SoftTakeoverIgnoreNextValue(group, key)
}
