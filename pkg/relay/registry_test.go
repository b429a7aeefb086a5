package relay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry(nopLogger{})

	const n = 100
	ids := make(chan string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- r.Register(NewSession(RoleViewer, "test", 8))
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate client ID %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry(nopLogger{})

	s := NewSession(RoleSender, "test", 8)
	id := r.Register(s)

	_, exists := r.Get(id)
	require.True(t, exists)

	r.Unregister(id)
	_, exists = r.Get(id)
	assert.False(t, exists)

	// Second unregister is a no-op, not an error.
	r.Unregister(id)
	r.Unregister("never-registered")
}

func TestViewersSnapshot(t *testing.T) {
	r := NewRegistry(nopLogger{})

	r.Register(NewSession(RoleSender, "phone", 8))
	v1 := NewSession(RoleViewer, "desk1", 8)
	v2 := NewSession(RoleViewer, "desk2", 8)
	r.Register(v1)
	r.Register(v2)

	viewers := r.Viewers()
	assert.Len(t, viewers, 2)
	for _, v := range viewers {
		assert.Equal(t, RoleViewer, v.Role)
	}

	// Unregistering after the snapshot does not invalidate it.
	r.Unregister(v1.ID)
	assert.Len(t, viewers, 2)
	assert.Len(t, r.Viewers(), 1)
}

func TestCounts(t *testing.T) {
	r := NewRegistry(nopLogger{})

	senders, viewers := r.Counts()
	assert.Zero(t, senders)
	assert.Zero(t, viewers)

	r.Register(NewSession(RoleSender, "phone", 8))
	v := NewSession(RoleViewer, "desk", 8)
	r.Register(v)
	r.Register(NewSession(RoleViewer, "desk2", 8))

	senders, viewers = r.Counts()
	assert.Equal(t, 1, senders)
	assert.Equal(t, 2, viewers)

	r.Unregister(v.ID)
	senders, viewers = r.Counts()
	assert.Equal(t, 1, senders)
	assert.Equal(t, 1, viewers)
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	r := NewRegistry(nopLogger{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewSession(RoleViewer, "test", 8)
			id := r.Register(s)
			r.Viewers()
			r.Counts()
			r.Unregister(id)
		}()
	}
	wg.Wait()

	senders, viewers := r.Counts()
	assert.Zero(t, senders)
	assert.Zero(t, viewers)
}
