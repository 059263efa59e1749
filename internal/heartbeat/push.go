package heartbeat

// Sink is whatever the wire layer uses to deliver a RESP3 push frame to
// one client (`>2\r\n$<len>\r\n<name>\r\n:<value>\r\n`-shaped, per
// heartbeatSystime/heartbeatMkps's addReplyPushLen(c,2) pair). Accepting
// an interface here keeps this package independent of any concrete wire
// protocol type.
type Sink interface {
	PushHeartbeat(id ClientID, action Action, value int64) error
}

// ValueSource supplies the value to push for each action: the current
// server time in milliseconds for ActionSystime, and modified-keys-per-
// second for ActionMKPS (the latter is owned by whatever tracks the
// server's keyspace mutation rate, outside this package's scope).
type ValueSource struct {
	NowMs func() int64
	Mkps  func() int64
}

// Run pushes every due heartbeat from Tick(nowMs) through sink, skipping
// (not erroring out the whole tick on) a client whose push fails — a
// single broken connection shouldn't stop the rest from receiving theirs,
// matching ctripHeartbeat's per-client independence.
func (r *Registry) Run(nowMs int64, values ValueSource, sink Sink) []error {
	due := r.Tick(nowMs)
	if len(due) == 0 {
		return nil
	}

	var errs []error
	for _, d := range due {
		var value int64
		switch d.Action {
		case ActionSystime:
			if values.NowMs != nil {
				value = values.NowMs()
			} else {
				value = nowMs
			}
		case ActionMKPS:
			if values.Mkps != nil {
				value = values.Mkps()
			}
		}
		if err := sink.PushHeartbeat(d.Client, d.Action, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
