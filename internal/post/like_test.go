package post

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feed/internal/common"
)

func likeCount(t *testing.T, s *Service, postID int64) int64 {
	t.Helper()
	p, err := s.GetPost(context.Background(), postID)
	require.NoError(t, err)
	return p.LikeCount
}

func TestLikePost(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestService(t)
	p := mustCreatePost(t, s, "alice", "hello")

	like, created, err := s.LikePost(ctx, p.ID, "carol")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, like.ID)
	assert.Equal(t, p.ID, like.PostID)
	assert.Equal(t, "carol", like.UserName)
	assert.Equal(t, int64(1), likeCount(t, s, p.ID))

	_, created, err = s.LikePost(ctx, p.ID, "dave")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(2), likeCount(t, s, p.ID))

	likes, err := s.ListLikes(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, likes, 2)
	assert.Equal(t, "carol", likes[0].UserName)
	assert.Equal(t, "dave", likes[1].UserName)
}

func TestLikePost_DuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestService(t)
	p := mustCreatePost(t, s, "alice", "hello")

	first, created, err := s.LikePost(ctx, p.ID, "carol")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := s.LikePost(ctx, p.ID, "carol")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	assert.Equal(t, int64(1), likeCount(t, s, p.ID))
	assert.Equal(t, int64(1), countRows(t, s, likesTable, p.ID))
}

func TestLikePost_Errors(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestService(t)

	_, _, err := s.LikePost(ctx, 5, "carol")
	assert.True(t, common.IsNotFound(err), "got %v", err)
	assert.Zero(t, countAll(t, s, likesTable))

	p := mustCreatePost(t, s, "alice", "hello")
	_, _, err = s.LikePost(ctx, p.ID, " ")
	assert.True(t, common.IsValidation(err), "got %v", err)
	assert.Zero(t, likeCount(t, s, p.ID))
}

func TestUnlikePost_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestService(t)
	p := mustCreatePost(t, s, "alice", "hello")
	_, _, err := s.LikePost(ctx, p.ID, "carol")
	require.NoError(t, err)
	_, _, err = s.LikePost(ctx, p.ID, "dave")
	require.NoError(t, err)

	removed, err := s.UnlikePost(ctx, p.ID, "carol")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, int64(1), likeCount(t, s, p.ID))

	removed, err = s.UnlikePost(ctx, p.ID, "carol")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, int64(1), likeCount(t, s, p.ID))

	likes, err := s.ListLikes(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, "dave", likes[0].UserName)
}

func TestUnlikePost_NeverUnderflows(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestService(t)
	p := mustCreatePost(t, s, "alice", "hello")

	for i := 0; i < 3; i++ {
		removed, err := s.UnlikePost(ctx, p.ID, "nobody")
		require.NoError(t, err)
		assert.False(t, removed)
	}
	assert.Zero(t, likeCount(t, s, p.ID))
}

func TestUnlikePost_Errors(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestService(t)

	_, err := s.UnlikePost(ctx, 5, "carol")
	assert.True(t, common.IsNotFound(err))

	p := mustCreatePost(t, s, "alice", "hello")
	_, err = s.UnlikePost(ctx, p.ID, "")
	assert.True(t, common.IsValidation(err))
}

func TestLikeAfterUnlike(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestService(t)
	p := mustCreatePost(t, s, "alice", "hello")

	_, _, err := s.LikePost(ctx, p.ID, "carol")
	require.NoError(t, err)
	_, err = s.UnlikePost(ctx, p.ID, "carol")
	require.NoError(t, err)
	_, created, err := s.LikePost(ctx, p.ID, "carol")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), likeCount(t, s, p.ID))
}

func TestConcurrentLikes(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestService(t)
	p := mustCreatePost(t, s, "alice", "popular")

	const users = 20
	var wg sync.WaitGroup
	errs := make(chan error, users*2)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user-%d", i)
			// Each user likes twice; only one like may count.
			for j := 0; j < 2; j++ {
				if _, _, err := s.LikePost(ctx, p.ID, name); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("LikePost() failed: %v", err)
	}

	assert.Equal(t, int64(users), likeCount(t, s, p.ID))
	assertCounters(t, s)
}
