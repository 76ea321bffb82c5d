package hub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Conn) [][]byte {
	var frames [][]byte
	for {
		select {
		case f, ok := <-c.Out():
			if !ok {
				return frames
			}
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func TestHub_BroadcastReachesEveryRole(t *testing.T) {
	h := New(4)
	p := h.Attach(RoleParticipant, "u1")
	s := h.Attach(RoleSpectator, "")

	n := h.Broadcast([]byte("snap"))
	assert.Equal(t, 2, n)
	assert.Equal(t, [][]byte{[]byte("snap")}, drain(p))
	assert.Equal(t, [][]byte{[]byte("snap")}, drain(s))
}

func TestConn_SlowConsumerKeepsLatest(t *testing.T) {
	h := New(2)
	c := h.Attach(RoleSpectator, "")

	for _, f := range []string{"v1", "v2", "v3", "v4"} {
		require.True(t, c.Send([]byte(f)))
	}

	got := drain(c)
	require.Len(t, got, 2)
	assert.Equal(t, "v3", string(got[0]))
	assert.Equal(t, "v4", string(got[1]))
	assert.Equal(t, 2, c.Dropped())
}

func TestHub_DetachClosesOutbox(t *testing.T) {
	h := New(2)
	c := h.Attach(RoleParticipant, "u1")

	require.True(t, h.Detach(c.ID))
	assert.False(t, h.Detach(c.ID))

	_, ok := <-c.Out()
	assert.False(t, ok, "outbox should be closed")
	assert.False(t, c.Send([]byte("late")))
	assert.Equal(t, 0, h.Len())
}

func TestHub_CountsAndInfos(t *testing.T) {
	h := New(2)
	p1 := h.Attach(RoleParticipant, "u1")
	h.Attach(RoleParticipant, "u2")
	h.Attach(RoleSpectator, "")

	assert.Equal(t, 2, h.Count(RoleParticipant))
	assert.Equal(t, 1, h.Count(RoleSpectator))

	infos := h.Infos(RoleParticipant)
	require.Contains(t, infos, p1.ID)
	assert.Equal(t, "u1", infos[p1.ID].UserID)
	assert.Len(t, h.IDs(), 3)
}

func TestHub_ConcurrentSendAndClose(t *testing.T) {
	h := New(1)
	c := h.Attach(RoleSpectator, "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Send([]byte("x"))
			}
		}()
	}
	h.CloseAll()
	wg.Wait()

	assert.Equal(t, 0, h.Len())
}
