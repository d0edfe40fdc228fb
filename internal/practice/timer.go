package practice

// stuckTimerDuration is the countdown length, in Tick units, granted when a
// word reaches its hint threshold, and the amount one Extend adds.
const stuckTimerDuration = 5

// stuckTimer counts down toward hint escalation for one stuck word. At most
// one exists per session, always attached to the current word.
type stuckTimer struct {
	position  int
	remaining int
}

func newStuckTimer(position int) *stuckTimer {
	return &stuckTimer{position: position, remaining: stuckTimerDuration}
}

// tick consumes one time unit and reports whether the timer expired.
func (t *stuckTimer) tick() bool {
	t.remaining--
	return t.remaining <= 0
}

func (t *stuckTimer) extend() {
	t.remaining += stuckTimerDuration
}
