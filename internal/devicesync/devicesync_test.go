package devicesync

import (
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintcoach/sprintcoach/internal/session"
	"github.com/sprintcoach/sprintcoach/internal/workout"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func snapAt(phase workout.Phase, at time.Time, origin workout.DeviceID) workout.Snapshot {
	return workout.Snapshot{Phase: phase, LastUpdated: at, Origin: origin, Running: true}
}

func TestReplicaMerge(t *testing.T) {
	r := &Replica{}
	t0 := time.Unix(1000, 0)

	require.True(t, r.Apply(snapAt(workout.PhaseDrills, t0, workout.DeviceWrist)))

	// Older snapshot from the other device: dropped, even though its phase
	// looks further along.
	assert.False(t, r.Apply(snapAt(workout.PhaseSprints, t0.Add(-time.Second), workout.DeviceHandheld)))
	cur, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, workout.PhaseDrills, cur.Phase)

	// Newer snapshot wins regardless of origin.
	assert.True(t, r.Apply(snapAt(workout.PhaseStrides, t0.Add(time.Second), workout.DeviceHandheld)))
	cur, _ = r.Current()
	assert.Equal(t, workout.PhaseStrides, cur.Phase)
}

func TestReplicaConvergence(t *testing.T) {
	// Two replicas fed the same snapshots in different orders end up
	// identical: the merge rule is order-independent.
	t0 := time.Unix(1000, 0)
	snaps := []workout.Snapshot{
		snapAt(workout.PhaseWarmup, t0, workout.DeviceWrist),
		snapAt(workout.PhaseStretch, t0.Add(time.Second), workout.DeviceHandheld),
		snapAt(workout.PhaseDrills, t0.Add(2*time.Second), workout.DeviceWrist),
		snapAt(workout.PhaseStretch, t0.Add(time.Second), workout.DeviceHandheld), // duplicate
	}

	a, b := &Replica{}, &Replica{}
	for _, s := range snaps {
		a.Apply(s)
	}
	for i := len(snaps) - 1; i >= 0; i-- {
		b.Apply(snaps[i])
	}

	av, _ := a.Current()
	bv, _ := b.Current()
	assert.Equal(t, av, bv)
	assert.Equal(t, workout.PhaseDrills, av.Phase)
}

func TestPairDelivers(t *testing.T) {
	a, b := NewPair()
	defer a.Close()
	defer b.Close()

	got := make(chan workout.Snapshot, 4)
	b.OnReceive(func(s workout.Snapshot) { got <- s })

	want := snapAt(workout.PhaseSprints, time.Now(), workout.DeviceWrist)
	require.NoError(t, a.Publish(want))

	select {
	case s := <-got:
		assert.Equal(t, want.Phase, s.Phase)
	case <-time.After(time.Second):
		t.Fatal("snapshot not delivered")
	}
}

func TestPairClosedEndRejectsPublish(t *testing.T) {
	a, b := NewPair()
	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Publish(workout.Snapshot{}), ErrClosed)
	// The open end publishes into the void without error semantics beyond
	// drop; the closed peer simply never sees it.
	assert.NoError(t, b.Publish(workout.Snapshot{}))
}

func TestOrchestratorDrivesReplicaOverPair(t *testing.T) {
	a, b := NewPair()
	defer a.Close()
	defer b.Close()

	replica := &Replica{}
	b.OnReceive(func(s workout.Snapshot) { replica.Apply(s) })

	plan := session.Plan{
		WarmupSeconds:   0.05,
		StretchSeconds:  0.05,
		CooldownSeconds: 0.05,
	}
	o := workout.New(testLogger(), plan, workout.Config{TickEvery: 5 * time.Millisecond},
		workout.Deps{Publisher: a})
	defer o.Shutdown()

	o.Start()
	require.Eventually(t, func() bool {
		cur, ok := replica.Current()
		return ok && cur.Phase == workout.PhaseComplete
	}, 5*time.Second, 2*time.Millisecond, "replica follows the workout to completion")
}

func TestWSLinkRoundTrip(t *testing.T) {
	ln, err := NewListener(testLogger(), "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	dl := NewDialer(testLogger(), "ws://"+ln.Addr()+"/sync")
	defer dl.Close()

	fromDialer := make(chan workout.Snapshot, 4)
	fromListener := make(chan workout.Snapshot, 4)
	ln.OnReceive(func(s workout.Snapshot) { fromDialer <- s })
	dl.OnReceive(func(s workout.Snapshot) { fromListener <- s })

	// Dialer side connects on first publish.
	want := snapAt(workout.PhaseStrides, time.Now().UTC().Truncate(time.Millisecond), workout.DeviceHandheld)
	require.NoError(t, dl.Publish(want))

	select {
	case s := <-fromDialer:
		assert.Equal(t, want.Phase, s.Phase)
		assert.Equal(t, want.Origin, s.Origin)
	case <-time.After(2 * time.Second):
		t.Fatal("listener never received the snapshot")
	}

	// And the listener can answer on the same connection.
	reply := snapAt(workout.PhaseSprints, time.Now().UTC().Truncate(time.Millisecond), workout.DeviceWrist)
	require.Eventually(t, func() bool { return ln.Publish(reply) == nil },
		2*time.Second, 10*time.Millisecond)

	select {
	case s := <-fromListener:
		assert.Equal(t, workout.PhaseSprints, s.Phase)
	case <-time.After(2 * time.Second):
		t.Fatal("dialer never received the reply")
	}
}

func TestWSLinkUnresponsivePeerDoesNotStallWorkout(t *testing.T) {
	// A peer that accepts TCP but never answers the websocket handshake:
	// the worst network for a synchronous sender.
	raw, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer raw.Close()
	go func() {
		for {
			conn, err := raw.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	dl := NewDialer(testLogger(), "ws://"+raw.Addr().String()+"/sync")
	defer dl.Close()

	start := time.Now()
	require.NoError(t, dl.Publish(workout.Snapshot{Phase: workout.PhaseWarmup}))
	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"publish must hand off to the sender, not touch the network")

	// An orchestrator publishing through the dead link still walks its
	// phases on schedule.
	plan := session.Plan{
		WarmupSeconds:   0.05,
		StretchSeconds:  0.05,
		CooldownSeconds: 0.05,
	}
	o := workout.New(testLogger(), plan, workout.Config{TickEvery: 5 * time.Millisecond},
		workout.Deps{Publisher: dl})
	defer o.Shutdown()

	o.Start()
	require.Eventually(t, func() bool { return o.GetState().Phase == workout.PhaseComplete },
		2*time.Second, 2*time.Millisecond, "phase transitions must not wait on the peer")
}

func TestWSLinkPublishWithoutPeer(t *testing.T) {
	ln, err := NewListener(testLogger(), "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	assert.ErrorIs(t, ln.Publish(workout.Snapshot{}), ErrNoPeer)
}
