package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
	contract "github.com/aretw0/weft/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunResultStoreContract(t, memory.NewStore())
}

func TestMemoryStore_CopiesData(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	data := []byte("abc")
	require.NoError(t, s.Save(ctx, "k", data))
	data[0] = 'x'

	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, 1, s.Len())
}

func TestInMemoryLoader_Contract(t *testing.T) {
	want := map[string]domain.Traits{
		"Queue":   {Name: "Queue", PortCount: "1/1", Processing: "h/l"},
		"Discard": {Name: "Discard", PortCount: "1/0", Processing: "a/a"},
	}
	loader, err := memory.NewLoader(want["Queue"], want["Discard"])
	require.NoError(t, err)
	contract.ElementMapLoaderContractTest(t, loader, want)

	_, err = memory.NewLoader(domain.Traits{})
	assert.Error(t, err)
}

func TestLocker_Contention(t *testing.T) {
	l := memory.NewLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "key", time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "key", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Lock(ctx, "other", time.Second)
	require.NoError(t, err, "different keys do not contend")
	require.NoError(t, other(ctx))

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(ctx, "key", time.Second)
		if err == nil {
			_ = u(ctx)
		}
		close(acquired)
	}()
	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx), "unlocking twice is harmless")

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter did not acquire the lock after release")
	}
}
