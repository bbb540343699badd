// Package notify implements the cross-thread notification protocol by
// which the debug-API callback goroutine (the producer) wakes the host
// debugger's wait-for-signal loop (the consumer) without races, duplicate
// deliveries, or missed events (spec.md §4.4). It is grounded line-for-line
// on _examples/original_source/gdb/cuda-notifications.c.
package notify

import "sync"

// Data is the payload a producer passes to Notify: which host thread to
// target, whether this call is a timeout-driven resend, and whatever event
// data the consumer needs once it wakes.
type Data struct {
	ThreadID uint32
	Timeout  bool
	Payload  any
}

// Signaler delivers the actual stop signal. Production code backs this with
// package notify's unix tgkill implementation; tests use a fake that
// records calls.
type Signaler interface {
	// SignalThread attempts to deliver a stop signal to tid, reporting
	// success.
	SignalThread(tid uint32) bool
	// FirstLiveThread iterates the host debugger's live threads and
	// delivers to the first one that accepts the signal, returning its
	// tid and whether delivery succeeded.
	FirstLiveThread() (tid uint32, ok bool)
}

// WaitStatus is the minimal shape Analyze needs from the host debugger's
// wait-status report.
type WaitStatus struct {
	Stopped     bool
	Trap        bool
	TrapExpected bool
}

// Machine is the shared notification record of spec.md §4.4, guarded by one
// mutex. Every transition acquires it; signal delivery happens inside the
// critical section, which is safe because delivery is asynchronous and the
// consumer cannot acquire the same lock while blocked in its wait primitive
// (spec.md §4.4 "Concurrency").
type Machine struct {
	mu sync.Mutex

	blocked      bool
	pendingSend  bool
	aliasedEvent bool
	sent         bool
	received     bool
	tid          uint32
	pendingData  Data

	signaler Signaler
}

// New builds a notification machine in its ready/none state.
func New(signaler Signaler) *Machine {
	return &Machine{signaler: signaler}
}

// Reset returns the machine to its initial state, e.g. on debugger restart.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked = false
	m.pendingSend = false
	m.aliasedEvent = false
	m.sent = false
	m.received = false
	m.tid = 0
	m.pendingData = Data{}
}

// Block marks the machine blocked: a send attempted while blocked is
// postponed to PendingSend rather than delivered immediately.
func (m *Machine) Block() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked = true
}

// Accept unblocks the machine, sending any postponed notification now.
func (m *Machine) Accept() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked = false
	if m.pendingSend {
		m.send(m.pendingData)
		m.pendingSend = false
		m.pendingData = Data{}
	}
}

// Notify is the producer's single entry point, implementing spec.md §4.4's
// exact transition table.
func (m *Machine) Notify(data Data) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case data.Timeout:
		if m.sent && !m.received {
			m.send(data)
		}
	case m.sent:
		m.aliasedEvent = true
	case m.pendingSend:
		// Another notification is already pending; drop this one.
	case m.blocked:
		m.pendingSend = true
		m.pendingData = data
	default:
		m.send(data)
	}
}

// send delivers the stop signal, preferring data's thread id and falling
// back to the first host thread that accepts it (spec.md §4.4's "Send"
// definition). Caller must hold mu.
func (m *Machine) send(data Data) {
	if data.ThreadID != 0 && m.signaler.SignalThread(data.ThreadID) {
		m.tid = data.ThreadID
		m.sent = true
		return
	}
	if tid, ok := m.signaler.FirstLiveThread(); ok {
		m.tid = tid
		m.sent = true
	}
}

// AliasedEvent reports whether a second event arrived before the first was
// drained.
func (m *Machine) AliasedEvent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aliasedEvent
}

// ResetAliasedEvent clears the aliased-event flag once the consumer has
// drained a second time.
func (m *Machine) ResetAliasedEvent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliasedEvent = false
}

// Pending reports the consumer's PENDING_RX state: sent but not yet
// received.
func (m *Machine) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent && !m.received
}

func (m *Machine) Received() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

// Analyze marks a notification received when its corresponding SIGTRAP is
// the reason the consumer stopped (spec.md §4.4).
func (m *Machine) Analyze(stoppedTID uint32, ws WaitStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent && m.tid == stoppedTID && ws.Stopped && ws.Trap && !ws.TrapExpected {
		m.received = true
	}
}

// MarkConsumed clears sent/received/tid once the consumer has fully
// processed a received notification.
func (m *Machine) MarkConsumed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.received {
		m.sent = false
		m.received = false
		m.tid = 0
	}
}

// ConsumePending clears a postponed send without actually sending it.
func (m *Machine) ConsumePending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingSend = false
}
