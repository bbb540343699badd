package notify

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// LiveThreads is the narrow view of the host debugger's thread list a
// Signaler needs to pick a fallback target.
type LiveThreads interface {
	// EachThreadID calls fn for every live host thread id, in the host
	// debugger's own iteration order, stopping early if fn returns false.
	EachThreadID(fn func(tid uint32) bool)
}

// ThreadSignaler delivers stop signals via tgkill, falling back to kill when
// tgkill is unavailable, matching cuda-notifications.c's
// notify_send()/send_sig() pair.
type ThreadSignaler struct {
	pid     int
	signal  syscall.Signal
	threads LiveThreads
}

func NewThreadSignaler(pid int, signal syscall.Signal, threads LiveThreads) *ThreadSignaler {
	return &ThreadSignaler{pid: pid, signal: signal, threads: threads}
}

// SignalThread implements Signaler.
func (s *ThreadSignaler) SignalThread(tid uint32) bool {
	if err := unix.Tgkill(s.pid, int(tid), s.signal); err == nil {
		return true
	}
	return syscall.Kill(int(tid), s.signal) == nil
}

// FirstLiveThread implements Signaler.
func (s *ThreadSignaler) FirstLiveThread() (uint32, bool) {
	var (
		found uint32
		ok    bool
	)
	s.threads.EachThreadID(func(tid uint32) bool {
		if s.SignalThread(tid) {
			found, ok = tid, true
			return false
		}
		return true
	})
	return found, ok
}
