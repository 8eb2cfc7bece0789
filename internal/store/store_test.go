package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	UUID  string `json:"uuid"`
	Title string `json:"title"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var got []item
	ok, err := s.Get(ctx, "allCourses", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "allCourses", []item{{UUID: "c-1"}}))

	ok, err = s.Get(ctx, "allCourses", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []item{{UUID: "c-1"}}, got)

	entries, err := s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "allCourses", entries[0].Name)

	require.NoError(t, s.Delete(ctx, "allCourses"))
	ok, err = s.Get(ctx, "allCourses", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Durable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, AllSubjects, []item{{UUID: "s-1"}}))
	require.NoError(t, s.Close())

	ro, err := OpenReadOnly(dir)
	require.NoError(t, err)
	defer ro.Close()

	raw, err := ro.Raw(AllSubjects)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"uuid":"s-1","title":""}]`, string(raw))
}

func TestGetOrFetch_HitSkipsFetch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Set(ctx, AllCourses, []item{{UUID: "cached"}}))

	c := NewCollections(s, nil)
	got, err := GetOrFetch(ctx, c, AllCourses, func(context.Context) ([]item, error) {
		t.Fatal("fetch must not run on a cache hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []item{{UUID: "cached"}}, got)
}

func TestGetOrFetch_MissStoresResult(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := NewCollections(s, nil)

	calls := 0
	fetch := func(context.Context) ([]item, error) {
		calls++
		return []item{{UUID: "c-1"}, {UUID: "c-2"}}, nil
	}

	first, err := GetOrFetch(ctx, c, AllCourses, fetch)
	require.NoError(t, err)
	second, err := GetOrFetch(ctx, c, AllCourses, fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetch_EmptyIsMiss(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Set(ctx, AllPrograms, []item{}))

	c := NewCollections(s, nil)
	got, err := GetOrFetch(ctx, c, AllPrograms, func(context.Context) ([]item, error) {
		return []item{{UUID: "p-1"}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGetOrFetch_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := NewCollections(s, nil)

	boom := errors.New("boom")
	_, err := GetOrFetch(ctx, c, AllCourses, func(context.Context) ([]item, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	var stored []item
	ok, err := s.Get(ctx, AllCourses, &stored)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOrFetch_ConcurrentCallsShareFetch(t *testing.T) {
	ctx := context.Background()
	c := NewCollections(newTestStore(t), nil)

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) ([]item, error) {
		calls.Add(1)
		<-release
		return []item{{UUID: "c-1"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := GetOrFetch(ctx, c, AllCourses, fetch)
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrFetchBlob(t *testing.T) {
	ctx := context.Background()
	c := NewCollections(newTestStore(t), nil)

	type blob struct {
		ByPartner map[string][]string `json:"byPartner"`
	}
	calls := 0
	fetch := func(context.Context) (blob, error) {
		calls++
		return blob{ByPartner: map[string][]string{"MITx": {"h-1"}}}, nil
	}

	first, err := GetOrFetchBlob(ctx, c, AllSearchResults, fetch)
	require.NoError(t, err)
	second, err := GetOrFetchBlob(ctx, c, AllSearchResults, fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetch_SameNameDifferentTypes(t *testing.T) {
	ctx := context.Background()
	c := NewCollections(newTestStore(t), nil)

	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		got, err := GetOrFetch(ctx, c, AllCourses, func(context.Context) ([]item, error) {
			calls.Add(1)
			<-release
			return []item{{UUID: "c-1"}}, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, []item{{UUID: "c-1"}}, got)
	}()
	go func() {
		defer wg.Done()
		got, err := GetOrFetchBlob(ctx, c, AllCourses, func(context.Context) (map[string]int, error) {
			calls.Add(1)
			<-release
			return map[string]int{"c-1": 1}, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, map[string]int{"c-1": 1}, got)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(2), calls.Load())
}
