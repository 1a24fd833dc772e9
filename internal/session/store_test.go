package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/profiler/internal/endpoint"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestStore_GetOrCreate(t *testing.T) {
	st := NewStore(nil, time.Hour)

	s, created := st.GetOrCreate("")
	require.True(t, created)
	_, err := uuid.Parse(s.ID())
	require.NoError(t, err)

	again, created := st.GetOrCreate(s.ID())
	assert.False(t, created)
	assert.Same(t, s, again)

	// Unknown but well-formed ids are honored; garbage is replaced.
	id := uuid.NewString()
	s2, created := st.GetOrCreate(id)
	assert.True(t, created)
	assert.Equal(t, id, s2.ID())

	s3, created := st.GetOrCreate("../../etc/passwd")
	assert.True(t, created)
	assert.NotEqual(t, "../../etc/passwd", s3.ID())

	assert.Equal(t, 3, st.Len())
}

func TestStore_PeekDoesNotStore(t *testing.T) {
	st := NewStore(nil, time.Hour)

	blank, stored := st.Peek("")
	assert.False(t, stored)
	assert.False(t, blank.Snapshot().Ready())

	_, stored = st.Peek(uuid.NewString())
	assert.False(t, stored)
	assert.Zero(t, st.Len())

	s, _ := st.GetOrCreate("")
	got, stored := st.Peek(s.ID())
	assert.True(t, stored)
	assert.Same(t, s, got)
	assert.Equal(t, 1, st.Len())
}

func TestStore_SweepExpiresIdleSessions(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	st := NewStore(&Deps{Now: clock.now}, time.Hour)

	idle, _ := st.GetOrCreate("")
	clock.advance(50 * time.Minute)
	active, _ := st.GetOrCreate("")

	clock.advance(20 * time.Minute)
	assert.Equal(t, 1, st.Sweep())

	_, ok := st.Get(idle.ID())
	assert.False(t, ok)
	_, ok = st.Get(active.ID())
	assert.True(t, ok)
}

func TestStore_SweepKeepsBusySessions(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	up := &fakeUploader{
		resp:    &endpoint.Response{},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	st := NewStore(&Deps{Now: clock.now, Uploader: up}, time.Hour)

	s, _ := st.GetOrCreate("")
	s.SelectPDF(pdfHandle())
	s.SelectCSV(csvHandle())
	require.NoError(t, s.StartUpload(context.Background()))
	<-up.entered

	clock.advance(2 * time.Hour)
	assert.Equal(t, 0, st.Sweep())

	close(up.gate)
	s.Wait()
}
