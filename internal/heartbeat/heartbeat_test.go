package heartbeat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnableThenTickFiresAfterPeriodElapses(t *testing.T) {
	r := NewRegistry()
	r.Enable(1, map[Action]int64{ActionSystime: 1}, 0) // 1 second period

	require.Empty(t, r.Tick(500))
	due := r.Tick(1000)
	require.Equal(t, []Due{{Client: 1, Action: ActionSystime}}, due)
}

func TestTickResetsLastSent(t *testing.T) {
	r := NewRegistry()
	r.Enable(1, map[Action]int64{ActionSystime: 1}, 0)

	require.Len(t, r.Tick(1000), 1)
	require.Empty(t, r.Tick(1500))
	require.Len(t, r.Tick(2000), 1)
}

func TestDisableRemovesClient(t *testing.T) {
	r := NewRegistry()
	r.Enable(1, map[Action]int64{ActionMKPS: 1}, 0)
	require.True(t, r.Enabled(1))
	require.Equal(t, 1, r.ClientCount())

	r.Disable(1)
	require.False(t, r.Enabled(1))
	require.Equal(t, 0, r.ClientCount())
	require.Empty(t, r.Tick(10000))
}

func TestZeroPeriodNeverFires(t *testing.T) {
	r := NewRegistry()
	r.Enable(1, map[Action]int64{ActionSystime: 0}, 0)
	require.False(t, r.Enabled(1))
	require.Empty(t, r.Tick(100000))
}

type fakeSink struct {
	pushed []Due
	values []int64
}

func (f *fakeSink) PushHeartbeat(id ClientID, action Action, value int64) error {
	f.pushed = append(f.pushed, Due{Client: id, Action: action})
	f.values = append(f.values, value)
	return nil
}

func TestRunPushesDueHeartbeatsWithSourcedValues(t *testing.T) {
	r := NewRegistry()
	r.Enable(7, map[Action]int64{ActionSystime: 1, ActionMKPS: 1}, 0)

	sink := &fakeSink{}
	errs := r.Run(1000, ValueSource{
		NowMs: func() int64 { return 1000 },
		Mkps:  func() int64 { return 42 },
	}, sink)

	require.Empty(t, errs)
	require.Len(t, sink.pushed, 2)
}
