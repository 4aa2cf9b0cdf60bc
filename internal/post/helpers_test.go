package post

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feed/internal/storage"
)

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// createTestService returns a service over a fresh SQLite database.
func createTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()
	ctx := context.Background()
	sess, err := storage.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	require.NoError(t, sess.Migrate(ctx))

	clock := newTestClock()
	return NewService(sess, WithClock(clock.Now)), clock
}

func mustCreatePost(t *testing.T, s *Service, userName, content string) Post {
	t.Helper()
	p, err := s.CreatePost(context.Background(), userName, content)
	require.NoError(t, err)
	return p
}

func countRows(t *testing.T, s *Service, table string, postID int64) int64 {
	t.Helper()
	var n int64
	b := s.sess.Builder().Select("COUNT(*)").From(table).Where("post_id = ?", postID)
	require.NoError(t, s.sess.GetBuilder(context.Background(), "count", &n, b))
	return n
}

func countAll(t *testing.T, s *Service, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.sess.GetBuilder(context.Background(), "count", &n,
		s.sess.Builder().Select("COUNT(*)").From(table)))
	return n
}

// assertCounters checks that every post's counters equal its row counts.
func assertCounters(t *testing.T, s *Service) {
	t.Helper()
	posts, err := s.ListPosts(context.Background())
	require.NoError(t, err)
	for _, p := range posts {
		assert.Equal(t, countRows(t, s, likesTable, p.ID), p.LikeCount, "likeCount of post %d", p.ID)
		assert.Equal(t, countRows(t, s, commentsTable, p.ID), p.CommentCount, "commentCount of post %d", p.ID)
	}
}
