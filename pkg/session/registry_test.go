package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateDoesNotActivate(t *testing.T) {
	r := NewRegistry()
	a := r.Create("f1", 3, "a.pdf")
	b := r.Create("f2", 0, "b.pdf")

	assert.Equal(t, "tab_0", a)
	assert.Equal(t, "tab_1", b)
	assert.Empty(t, r.ActiveID())

	sess, ok := r.Get(a)
	require.True(t, ok)
	assert.Equal(t, Session{TabID: a, FileID: "f1", PageCount: 3, CurrentPage: 1, Scale: 1.0, Filename: "a.pdf"}, sess)

	sess, _ = r.Get(b)
	assert.Equal(t, 1, sess.PageCount)
}

func TestRegistry_Activate(t *testing.T) {
	r := NewRegistry()
	a := r.Create("f1", 3, "a.pdf")
	b := r.Create("f2", 3, "b.pdf")

	assert.False(t, r.Activate("tab_99"))
	assert.Empty(t, r.ActiveID())

	assert.True(t, r.Activate(a))
	assert.False(t, r.Activate(a), "re-activating the active tab is a no-op")
	assert.Equal(t, uint64(0), r.epochOf(a))

	assert.True(t, r.Activate(b))
	assert.Equal(t, b, r.ActiveID())
	assert.Equal(t, uint64(1), r.epochOf(a))
	assert.Equal(t, uint64(0), r.epochOf(b))
}

func TestRegistry_CloseLastTabRefused(t *testing.T) {
	r := NewRegistry()
	a := r.Create("f1", 3, "a.pdf")
	r.Activate(a)

	_, err := r.Close(a)
	var lastTab *LastTabError
	require.True(t, errors.As(err, &lastTab))
	assert.Equal(t, 1, r.count())
	assert.Equal(t, a, r.ActiveID())
}

func TestRegistry_CloseActivatesSurvivor(t *testing.T) {
	r := NewRegistry()
	a := r.Create("f1", 3, "a.pdf")
	b := r.Create("f2", 5, "b.pdf")
	r.Activate(a)
	before, _ := r.Get(b)

	next, err := r.Close(a)
	require.NoError(t, err)
	assert.Equal(t, b, next)
	assert.Equal(t, b, r.ActiveID())

	after, ok := r.Get(b)
	require.True(t, ok)
	assert.Equal(t, before, after)

	_, ok = r.Get(a)
	assert.False(t, ok)
}

func TestRegistry_CloseInactiveKeepsActive(t *testing.T) {
	r := NewRegistry()
	a := r.Create("f1", 3, "a.pdf")
	b := r.Create("f2", 5, "b.pdf")
	c := r.Create("f3", 5, "c.pdf")
	r.Activate(c)

	next, err := r.Close(a)
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Equal(t, c, r.ActiveID())

	snap := r.Snapshot()
	require.Len(t, snap.Sessions, 2)
	assert.Equal(t, b, snap.Sessions[0].TabID)
	assert.Equal(t, c, snap.Sessions[1].TabID)

	_, err = r.Close("nope")
	assert.ErrorIs(t, err, ErrUnknownTab)
}

func TestRegistry_TicketGoesStale(t *testing.T) {
	r := NewRegistry()
	a := r.Create("f1", 3, "a.pdf")
	b := r.Create("f2", 3, "b.pdf")

	_, _, err := r.Begin(a)
	assert.ErrorIs(t, err, ErrInactiveTab)
	_, _, err = r.Begin("nope")
	assert.ErrorIs(t, err, ErrUnknownTab)

	r.Activate(a)
	ticket, sess, err := r.Begin(a)
	require.NoError(t, err)
	assert.Equal(t, "f1", sess.FileID)
	assert.True(t, r.Valid(ticket))

	// A round trip through another tab still invalidates the ticket
	r.Activate(b)
	r.Activate(a)
	assert.False(t, r.Valid(ticket))

	err = r.Commit(ticket, func(s *Session) { s.PageCount = 99 })
	assert.True(t, IsRaceAbort(err))
	sess, _ = r.Get(a)
	assert.Equal(t, 3, sess.PageCount)
}

func TestRegistry_CommitNormalizes(t *testing.T) {
	r := NewRegistry()
	a := r.Create("f1", 3, "a.pdf")
	r.Activate(a)
	ticket, _, err := r.Begin(a)
	require.NoError(t, err)

	require.NoError(t, r.Commit(ticket, func(s *Session) {
		s.CurrentPage = 7
		s.PageCount = 2
		s.Scale = 9
	}))
	sess, _ := r.Get(a)
	assert.Equal(t, 2, sess.CurrentPage)
	assert.Equal(t, MaxScale, sess.Scale)
}

func TestRegistry_AttachClosedOnDeactivate(t *testing.T) {
	r := NewRegistry()
	a := r.Create("f1", 3, "a.pdf")
	b := r.Create("f2", 3, "b.pdf")
	r.Activate(a)
	ticket, _, _ := r.Begin(a)

	closed := 0
	require.NoError(t, r.Attach(ticket, closerFunc(func() error { closed++; return nil })))
	assert.Zero(t, closed)

	r.Activate(b)
	assert.Equal(t, 1, closed)

	err := r.Attach(ticket, closerFunc(func() error { closed++; return nil }))
	assert.True(t, IsRaceAbort(err))
	assert.Equal(t, 2, closed, "a stale attach closes the resource immediately")
}

func TestRegistry_SelectAndScale(t *testing.T) {
	r := NewRegistry()
	a := r.Create("f1", 3, "a.pdf")

	assert.False(t, r.Select(a, 2), "inactive tab")
	r.Activate(a)
	assert.True(t, r.Select(a, 2))
	assert.False(t, r.Select(a, 2), "unchanged")
	assert.False(t, r.Select(a, 4), "out of range")
	assert.False(t, r.Select(a, 0), "out of range")

	tests := []struct {
		in   float64
		want float64
	}{
		{1.44, 1.44},
		{0.1, MinScale},
		{12, MaxScale},
	}
	for _, tt := range tests {
		got, ok := r.SetScale(a, tt.in)
		require.True(t, ok)
		assert.InDelta(t, tt.want, got, 1e-9)
	}
}

func TestRegistry_OnChange(t *testing.T) {
	r := NewRegistry()
	changes := 0
	r.OnChange(func() { changes++ })

	a := r.Create("f1", 3, "a.pdf")
	r.Activate(a)
	r.Activate(a)
	assert.Equal(t, 2, changes)
}
