package lights

// Message is one light command captured by a Recorder
type Message struct {
	Status, Data1, Value uint8
}

// Recorder is an Output that keeps every message in memory. It backs dry runs
// and tests.
type Recorder struct {
	Sent  []Message
	SysEx [][]byte
}

// SendLight implements Output
func (r *Recorder) SendLight(status, data1, value uint8) error {
	r.Sent = append(r.Sent, Message{Status: status, Data1: data1, Value: value})
	return nil
}

// SendSysEx implements SysExOutput
func (r *Recorder) SendSysEx(data []byte) error {
	r.SysEx = append(r.SysEx, append([]byte(nil), data...))
	return nil
}

// Last returns the most recent value sent to addr
func (r *Recorder) Last(addr Address) (uint8, bool) {
	for i := len(r.Sent) - 1; i >= 0; i-- {
		m := r.Sent[i]
		if m.Status == addr.Status && m.Data1 == addr.Data1 {
			return m.Value, true
		}
	}
	return 0, false
}

// History returns every value sent to addr, oldest first
func (r *Recorder) History(addr Address) []uint8 {
	var values []uint8
	for _, m := range r.Sent {
		if m.Status == addr.Status && m.Data1 == addr.Data1 {
			values = append(values, m.Value)
		}
	}
	return values
}

// Reset drops the captured messages
func (r *Recorder) Reset() {
	r.Sent = nil
	r.SysEx = nil
}
