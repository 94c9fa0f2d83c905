package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/pans/engagement"
	"github.com/cppla/pans/models"
	"github.com/cppla/pans/store"
	"github.com/cppla/pans/store/storetest"
)

var testUsers = store.StaticUserDirectory{
	"alice": {ID: "alice", Name: "Alice", Avatar: "a.png"},
	"bob":   {ID: "bob", Name: "Bob", Avatar: "b.png"},
	"carol": {ID: "carol", Name: "Carol", Avatar: "c.png"},
}

func newService(st store.PanStore, opts ...Option) *PanService {
	opts = append([]Option{WithBackoff(0)}, opts...)
	return NewPanService(st, testUsers, nil, nil, opts...)
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemoryStore())

	pan, err := svc.CreatePan(ctx, "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Alice", pan.AuthorName)
	assert.Equal(t, "a.png", pan.AuthorAvatar)
	assert.Empty(t, pan.Likes)
	assert.Empty(t, pan.Comments)
	assert.EqualValues(t, 0, pan.Version)

	likes, err := svc.Like(ctx, "bob", pan.ID)
	require.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, "bob", likes[0].UserID)

	_, err = svc.Like(ctx, "bob", pan.ID)
	assert.ErrorIs(t, err, engagement.ErrAlreadyLiked)

	comments, err := svc.AddComment(ctx, "carol", pan.ID, "hi")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "carol", comments[0].AuthorID)
	assert.Equal(t, "Carol", comments[0].AuthorName)
	assert.Equal(t, "hi", comments[0].Text)

	_, err = svc.DeleteComment(ctx, "alice", pan.ID, comments[0].ID)
	assert.ErrorIs(t, err, engagement.ErrNotCommentOwner)

	comments, err = svc.DeleteComment(ctx, "carol", pan.ID, comments[0].ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	got, err := svc.GetPan(ctx, pan.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, 1)
	assert.EqualValues(t, 3, got.Version)
}

func TestCreatePanRejectsBlankAndUnknownAuthor(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := newService(st)

	for _, text := range []string{"", "   ", "<script>alert(1)</script>"} {
		_, err := svc.CreatePan(ctx, "alice", text)
		assert.ErrorIs(t, err, engagement.ErrEmptyText, "text %q", text)
	}

	_, err := svc.CreatePan(ctx, "nobody", "hello")
	assert.ErrorIs(t, err, ErrUnauthorized)

	pans, err := svc.ListPans(ctx)
	require.NoError(t, err)
	assert.Empty(t, pans)
}

func TestTextIsStoredVerbatim(t *testing.T) {
	texts := []string{
		"Tom & Jerry",
		"x <y",
		"if a<b and c>d",
		`it's "quoted"`,
		"<b>hello</b>",
	}
	backends := map[string]store.PanStore{
		"memory": store.NewMemoryStore(),
		"gorm":   store.NewGormStore(storetest.SQLite(t)),
	}
	for name, st := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := newService(st)
			for _, text := range texts {
				pan, err := svc.CreatePan(ctx, "alice", text)
				require.NoError(t, err, "text %q", text)
				assert.Equal(t, text, pan.Text)

				comments, err := svc.AddComment(ctx, "bob", pan.ID, text)
				require.NoError(t, err)
				assert.Equal(t, text, comments[0].Text)

				got, err := svc.GetPan(ctx, pan.ID)
				require.NoError(t, err)
				assert.Equal(t, text, got.Text)
				assert.Equal(t, text, got.Comments[0].Text)
			}
		})
	}
}

func TestMarkupOnlyCommentIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemoryStore())
	pan, err := svc.CreatePan(ctx, "alice", "hello")
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, "bob", pan.ID, "<i></i>")
	assert.ErrorIs(t, err, engagement.ErrEmptyText)
}

func TestUnlike(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemoryStore())
	pan, err := svc.CreatePan(ctx, "alice", "hello")
	require.NoError(t, err)

	_, err = svc.Unlike(ctx, "bob", pan.ID)
	assert.ErrorIs(t, err, engagement.ErrNotLiked)

	_, err = svc.Like(ctx, "bob", pan.ID)
	require.NoError(t, err)
	likes, err := svc.Unlike(ctx, "bob", pan.ID)
	require.NoError(t, err)
	assert.Empty(t, likes)
}

func TestMutationsOnMissingPan(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemoryStore())

	_, err := svc.GetPan(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Like(ctx, "bob", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Unlike(ctx, "bob", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.AddComment(ctx, "bob", "missing", "hi")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.DeleteComment(ctx, "bob", "missing", "c1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, svc.DeletePan(ctx, "bob", "missing"), store.ErrNotFound)
}

func TestAddCommentValidatesBeforeLookup(t *testing.T) {
	svc := newService(store.NewMemoryStore())
	_, err := svc.AddComment(context.Background(), "bob", "missing", " ")
	assert.ErrorIs(t, err, engagement.ErrEmptyText)
}

func TestDeletePan(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemoryStore())
	pan, err := svc.CreatePan(ctx, "alice", "hello")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, "bob", pan.ID, "nice")
	require.NoError(t, err)
	_, err = svc.Like(ctx, "carol", pan.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeletePan(ctx, "bob", pan.ID), ErrUnauthorized)

	require.NoError(t, svc.DeletePan(ctx, "alice", pan.ID))
	_, err = svc.GetPan(ctx, pan.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteCommentRemovesOnlyNamedComment(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemoryStore())
	pan, err := svc.CreatePan(ctx, "alice", "hello")
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		comments, err := svc.AddComment(ctx, "bob", pan.ID, fmt.Sprintf("bob-%d", i))
		require.NoError(t, err)
		ids = append(ids, comments[0].ID)
	}

	comments, err := svc.DeleteComment(ctx, "bob", pan.ID, ids[0])
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "bob-2", comments[0].Text)
	assert.Equal(t, "bob-1", comments[1].Text)
}

func TestConcurrentLikesFromDistinctActors(t *testing.T) {
	const actors = 24
	backends := map[string]store.PanStore{
		"memory": store.NewMemoryStore(),
		"gorm":   store.NewGormStore(storetest.SQLite(t)),
	}
	for name, st := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			// a loser only conflicts when another actor's like landed, so
			// one attempt per actor always suffices
			svc := newService(st, WithMaxAttempts(actors))
			pan, err := svc.CreatePan(ctx, "alice", "hello")
			require.NoError(t, err)

			var wg sync.WaitGroup
			errs := make(chan error, actors)
			for i := 0; i < actors; i++ {
				wg.Add(1)
				go func(actor string) {
					defer wg.Done()
					if _, err := svc.Like(ctx, actor, pan.ID); err != nil {
						errs <- err
					}
				}(fmt.Sprintf("user-%d", i))
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				t.Errorf("like failed: %v", err)
			}

			got, err := svc.GetPan(ctx, pan.ID)
			require.NoError(t, err)
			assert.Len(t, got.Likes, actors)
			assertUniqueLikes(t, got)
			assert.EqualValues(t, actors, got.Version)
		})
	}
}

func TestConcurrentLikeStormFromOneActor(t *testing.T) {
	const attempts = 16
	ctx := context.Background()
	svc := newService(store.NewMemoryStore(), WithMaxAttempts(attempts))
	pan, err := svc.CreatePan(ctx, "alice", "hello")
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Like(ctx, "bob", pan.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				oks++
			case errors.Is(err, engagement.ErrAlreadyLiked):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	assert.Equal(t, attempts-1, dups)
	got, err := svc.GetPan(ctx, pan.ID)
	require.NoError(t, err)
	assertUniqueLikes(t, got)
	assert.Len(t, got.Likes, 1)
}

func assertUniqueLikes(t *testing.T, pan *models.Pan) {
	t.Helper()
	seen := map[string]bool{}
	for _, l := range pan.Likes {
		assert.False(t, seen[l.UserID], "duplicate like from %s", l.UserID)
		seen[l.UserID] = true
	}
}

// conflictingStore loses every compare-and-swap.
type conflictingStore struct {
	store.PanStore
	mu    sync.Mutex
	swaps int
}

func (s *conflictingStore) CompareAndSwap(ctx context.Context, id string, v int64, next *models.Pan) error {
	s.mu.Lock()
	s.swaps++
	s.mu.Unlock()
	return store.ErrVersionConflict
}

func TestContentionAfterBoundedRetries(t *testing.T) {
	ctx := context.Background()
	st := &conflictingStore{PanStore: store.NewMemoryStore()}
	svc := newService(st, WithMaxAttempts(3))
	pan, err := svc.CreatePan(ctx, "alice", "hello")
	require.NoError(t, err)

	_, err = svc.Like(ctx, "bob", pan.ID)
	assert.ErrorIs(t, err, ErrContention)
	assert.Equal(t, 3, st.swaps)
}

func TestRetryHonoursContextCancellation(t *testing.T) {
	st := &conflictingStore{PanStore: store.NewMemoryStore()}
	svc := NewPanService(st, testUsers, nil, nil, WithBackoff(time.Hour))
	pan, err := svc.CreatePan(context.Background(), "alice", "hello")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = svc.Like(ctx, "bob", pan.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, st.swaps)
}

// brokenStore fails every read.
type brokenStore struct {
	store.PanStore
}

func (brokenStore) GetByID(context.Context, string) (*models.Pan, error) {
	return nil, fmt.Errorf("%w: connection refused", store.ErrStorage)
}

func TestStorageFailureSurfaces(t *testing.T) {
	svc := newService(brokenStore{PanStore: store.NewMemoryStore()})
	_, err := svc.Like(context.Background(), "bob", "p1")
	assert.ErrorIs(t, err, store.ErrStorage)
	assert.NotErrorIs(t, err, ErrContention)
}

func TestCacheInvalidatedOnMutation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	svc := NewPanService(store.NewMemoryStore(), testUsers, store.NewRedisCache(rc, time.Minute, nil), nil, WithBackoff(0))
	pan, err := svc.CreatePan(ctx, "alice", "hello")
	require.NoError(t, err)

	cached, err := svc.GetPan(ctx, pan.ID)
	require.NoError(t, err)
	assert.Empty(t, cached.Likes)
	list, err := svc.ListPans(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.Like(ctx, "bob", pan.ID)
	require.NoError(t, err)

	fresh, err := svc.GetPan(ctx, pan.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.Likes, 1)
	list, err = svc.ListPans(ctx)
	require.NoError(t, err)
	assert.Len(t, list[0].Likes, 1)

	require.NoError(t, svc.DeletePan(ctx, "alice", pan.ID))
	_, err = svc.GetPan(ctx, pan.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// parkingStore holds the first armed GetByID after it has read, until release
// is closed.
type parkingStore struct {
	store.PanStore
	armed   atomic.Bool
	parked  chan struct{}
	release chan struct{}
}

func (s *parkingStore) GetByID(ctx context.Context, id string) (*models.Pan, error) {
	pan, err := s.PanStore.GetByID(ctx, id)
	if s.armed.CompareAndSwap(true, false) {
		close(s.parked)
		<-s.release
	}
	return pan, err
}

func newCachedService(t *testing.T, st store.PanStore) *PanService {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewPanService(st, testUsers, store.NewRedisCache(rc, time.Hour, nil), nil, WithBackoff(0))
}

func TestCachedReadRacingDeleteIsNotResurrected(t *testing.T) {
	ctx := context.Background()
	st := &parkingStore{PanStore: store.NewMemoryStore(), parked: make(chan struct{}), release: make(chan struct{})}
	svc := newCachedService(t, st)

	pan, err := svc.CreatePan(ctx, "alice", "hello")
	require.NoError(t, err)

	st.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		_, err := svc.GetPan(ctx, pan.ID)
		done <- err
	}()
	<-st.parked

	require.NoError(t, svc.DeletePan(ctx, "alice", pan.ID))
	close(st.release)
	require.NoError(t, <-done, "the parked read saw the pan before it was deleted")

	_, err = svc.GetPan(ctx, pan.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	pans, err := svc.ListPans(ctx)
	require.NoError(t, err)
	assert.Empty(t, pans)
}

func TestCachedReadRacingLikeServesFreshSnapshot(t *testing.T) {
	ctx := context.Background()
	st := &parkingStore{PanStore: store.NewMemoryStore(), parked: make(chan struct{}), release: make(chan struct{})}
	svc := newCachedService(t, st)

	pan, err := svc.CreatePan(ctx, "alice", "hello")
	require.NoError(t, err)

	st.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		_, err := svc.GetPan(ctx, pan.ID)
		done <- err
	}()
	<-st.parked

	_, err = svc.Like(ctx, "bob", pan.ID)
	require.NoError(t, err)
	close(st.release)
	require.NoError(t, <-done)

	got, err := svc.GetPan(ctx, pan.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, 1)
}
