package engine

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// OSC address space spoken with the engine host
const (
	AddrSet          = "/set"
	AddrGet          = "/get"
	AddrValue        = "/value"
	AddrSubscribe    = "/subscribe"
	AddrUnsubscribe  = "/unsubscribe"
	AddrScratchBegin = "/scratch/begin"
	AddrScratchTick  = "/scratch/tick"
	AddrScratchEnd   = "/scratch/end"
	AddrTakeover     = "/softtakeover"
	AddrTakeoverSkip = "/softtakeover/ignore"
)

// DefaultQueryTimeout bounds how long Get waits for the host to answer
const DefaultQueryTimeout = 50 * time.Millisecond

// OSCConfig locates the engine host
type OSCConfig struct {
	Host         string        // engine host address
	SendPort     int           // port the engine host listens on
	ListenAddr   string        // local address for value updates, e.g. ":9001"
	QueryTimeout time.Duration // 0 uses DefaultQueryTimeout
}

// OSC bridges the Engine interface to an engine host over OSC/UDP.
//
// Writes are sent as /set messages. Get asks the host with /get and waits for
// the /value answer, except for subscribed parameters: the host pushes those
// on every change, so the cached value is current once it has been seen. When
// the host does not answer in time Get falls back to the last known value.
type OSC struct {
	cfg        OSCConfig
	client     *osc.Client
	dispatcher *osc.StandardDispatcher

	mu      sync.Mutex
	conn    net.PacketConn
	values  map[param]float64
	subs    map[param][]subscriber
	waiting map[param][]chan float64
	deliver Deliverer

	log logrus.FieldLogger
}

// NewOSC creates a bridge. Call Start to receive value updates.
func NewOSC(cfg OSCConfig, log logrus.FieldLogger) *OSC {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	e := &OSC{
		cfg:        cfg,
		client:     osc.NewClient(cfg.Host, cfg.SendPort),
		dispatcher: osc.NewStandardDispatcher(),
		values:     make(map[param]float64),
		subs:       make(map[param][]subscriber),
		waiting:    make(map[param][]chan float64),
		deliver:    inline,
		log:        log.WithField("component", "engine-osc"),
	}
	if err := e.dispatcher.AddMsgHandler(AddrValue, e.handleValue); err != nil {
		e.log.Errorf("Failed to register %s handler: %v", AddrValue, err)
	}
	return e
}

// SetDeliverer routes notifications through d
func (e *OSC) SetDeliverer(d Deliverer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d == nil {
		d = inline
	}
	e.deliver = d
}

// Start listens for value updates from the engine host
func (e *OSC) Start() error {
	conn, err := net.ListenPacket("udp", e.cfg.ListenAddr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", e.cfg.ListenAddr)
	}
	e.mu.Lock()
	e.conn = conn
	e.mu.Unlock()

	e.log.Infof("Listening for engine updates on %s", conn.LocalAddr())
	go serve(conn, e.dispatcher, e.log)
	return nil
}

// LocalAddr is the address value updates are received on, nil before Start
func (e *OSC) LocalAddr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	return e.conn.LocalAddr()
}

// Close stops receiving value updates
func (e *OSC) Close() error {
	e.mu.Lock()
	conn := e.conn
	e.conn = nil
	e.mu.Unlock()
	if conn == nil {
		return nil
	}
	return errors.Wrap(conn.Close(), "closing OSC listener")
}

// serve reads packets until conn is closed and dispatches them in arrival
// order, unlike osc.Server.Serve which gives each packet its own goroutine
func serve(conn net.PacketConn, d osc.Dispatcher, log logrus.FieldLogger) {
	server := &osc.Server{}
	for {
		packet, err := server.ReceivePacket(conn)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Debug("OSC listener closed")
				return
			}
			log.Debugf("Dropping unreadable OSC packet: %v", err)
			continue
		}
		d.Dispatch(packet)
	}
}

func (e *OSC) send(addr string, args ...interface{}) {
	msg := osc.NewMessage(addr, args...)
	if err := e.client.Send(msg); err != nil {
		e.log.Warnf("Failed to send %s: %v", addr, err)
	}
}

// Get returns the engine's current value of group/key
func (e *OSC) Get(group, key string) float64 {
	p := param{group, key}

	e.mu.Lock()
	cached, known := e.values[p]
	if e.conn == nil || (known && len(e.subs[p]) > 0) {
		e.mu.Unlock()
		return cached
	}
	reply := make(chan float64, 1)
	e.waiting[p] = append(e.waiting[p], reply)
	e.mu.Unlock()

	e.send(AddrGet, group, key)

	timeout := time.NewTimer(e.cfg.QueryTimeout)
	defer timeout.Stop()
	select {
	case v := <-reply:
		return v
	case <-timeout.C:
	}

	e.mu.Lock()
	e.dropWaiter(p, reply)
	cached = e.values[p]
	e.mu.Unlock()

	// the answer may have landed while we were taking the lock
	select {
	case v := <-reply:
		return v
	default:
	}
	e.log.Debugf("No answer for %s %s, using %v", group, key, cached)
	return cached
}

func (e *OSC) dropWaiter(p param, reply chan float64) {
	list := e.waiting[p]
	for i, ch := range list {
		if ch == reply {
			e.waiting[p] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(e.waiting[p]) == 0 {
		delete(e.waiting, p)
	}
}

func (e *OSC) Set(group, key string, value float64) {
	e.send(AddrSet, group, key, float32(value))
	e.store(group, key, value)
}

func (e *OSC) Subscribe(group, key string, cb Callback) Subscription {
	e.mu.Lock()
	p := param{group, key}
	sub := Subscription{ID: uuid.New(), Group: group, Key: key}
	first := len(e.subs[p]) == 0
	e.subs[p] = append(e.subs[p], subscriber{id: sub.ID, cb: cb})
	e.mu.Unlock()

	if first {
		e.send(AddrSubscribe, group, key)
	}
	return sub
}

func (e *OSC) Unsubscribe(sub Subscription) {
	e.mu.Lock()
	p := param{sub.Group, sub.Key}
	list := e.subs[p]
	for i, s := range list {
		if s.id == sub.ID {
			e.subs[p] = append(list[:i], list[i+1:]...)
			break
		}
	}
	last := len(e.subs[p]) == 0
	if last {
		delete(e.subs, p)
	}
	e.mu.Unlock()

	if last {
		e.send(AddrUnsubscribe, sub.Group, sub.Key)
	}
}

func (e *OSC) BeginScratch(deck, resolution int, rpm, alpha, beta float64) {
	e.send(AddrScratchBegin, int32(deck), int32(resolution), float32(rpm), float32(alpha), float32(beta))
}

func (e *OSC) ScratchTick(deck int, delta float64) {
	e.send(AddrScratchTick, int32(deck), float32(delta))
}

func (e *OSC) EndScratch(deck int) {
	e.send(AddrScratchEnd, int32(deck))
}

func (e *OSC) SoftTakeover(group, key string, enable bool) {
	var flag int32
	if enable {
		flag = 1
	}
	e.send(AddrTakeover, group, key, flag)
}

func (e *OSC) SoftTakeoverIgnoreNextValue(group, key string) {
	e.send(AddrTakeoverSkip, group, key)
}

func (e *OSC) handleValue(msg *osc.Message) {
	group, key, value, err := parseValue(msg)
	if err != nil {
		e.log.Debugf("Dropping malformed %s: %v", AddrValue, err)
		return
	}
	e.store(group, key, value)
}

// store caches value, answers pending lookups and notifies subscribers when
// the value changed
func (e *OSC) store(group, key string, value float64) {
	e.mu.Lock()
	p := param{group, key}
	old, known := e.values[p]
	e.values[p] = value
	for _, reply := range e.waiting[p] {
		reply <- value
	}
	delete(e.waiting, p)
	var subs []subscriber
	if !known || old != value {
		subs = append(subs, e.subs[p]...)
	}
	deliver := e.deliver
	e.mu.Unlock()

	for _, s := range subs {
		cb := s.cb
		deliver(func() { cb(value, group, key) })
	}
}

func parseValue(msg *osc.Message) (string, string, float64, error) {
	if len(msg.Arguments) != 3 {
		return "", "", 0, errors.Errorf("expected 3 arguments, got %d", len(msg.Arguments))
	}
	group, key, err := parseParam(msg.Arguments[:2])
	if err != nil {
		return "", "", 0, err
	}
	value, err := number(msg.Arguments[2])
	if err != nil {
		return "", "", 0, err
	}
	return group, key, value, nil
}

// parseParam reads the group and key arguments every parameter message starts with
func parseParam(args []interface{}) (string, string, error) {
	if len(args) < 2 {
		return "", "", errors.Errorf("expected group and key, got %d arguments", len(args))
	}
	group, ok := args[0].(string)
	if !ok {
		return "", "", errors.New("group is not a string")
	}
	key, ok := args[1].(string)
	if !ok {
		return "", "", errors.New("key is not a string")
	}
	return group, key, nil
}

func number(arg interface{}) (float64, error) {
	switch v := arg.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		return FromBool(v), nil
	default:
		return 0, errors.Errorf("unsupported value type %T", v)
	}
}
