package post

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"feed/internal/common"
)

// TestCountersMatchRows drives a random mix of operations and checks after
// each one that likeCount and commentCount equal the referencing rows.
func TestCountersMatchRows(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestService(t)
	rng := rand.New(rand.NewSource(7))

	users := []string{"alice", "bob", "carol", "dave"}
	var postIDs []int64
	comments := map[int64][]int64{}

	pickPost := func() int64 {
		if len(postIDs) == 0 || rng.Intn(10) == 0 {
			// occasionally target a post that does not exist
			return 10_000 + rng.Int63n(100)
		}
		return postIDs[rng.Intn(len(postIDs))]
	}

	for step := 0; step < 300; step++ {
		user := users[rng.Intn(len(users))]
		var err error

		switch op := rng.Intn(8); op {
		case 0:
			var p Post
			p, err = s.CreatePost(ctx, user, "post")
			if err == nil {
				postIDs = append(postIDs, p.ID)
			}
		case 1:
			var c Comment
			postID := pickPost()
			c, err = s.CreateComment(ctx, postID, user, "comment")
			if err == nil {
				comments[postID] = append(comments[postID], c.ID)
			}
		case 2:
			postID := pickPost()
			if ids := comments[postID]; len(ids) > 0 {
				i := rng.Intn(len(ids))
				err = s.DeleteComment(ctx, postID, ids[i])
				comments[postID] = append(ids[:i], ids[i+1:]...)
			}
		case 3, 4:
			_, _, err = s.LikePost(ctx, pickPost(), user)
		case 5:
			_, err = s.UnlikePost(ctx, pickPost(), user)
		case 6:
			if rng.Intn(4) == 0 && len(postIDs) > 0 {
				i := rng.Intn(len(postIDs))
				err = s.DeletePost(ctx, postIDs[i])
				delete(comments, postIDs[i])
				postIDs = append(postIDs[:i], postIDs[i+1:]...)
			}
		case 7:
			_, err = s.UpdatePost(ctx, pickPost(), "edited")
		}

		if err != nil {
			require.True(t, common.IsNotFound(err), "step %d: unexpected error %v", step, err)
		}
		assertCounters(t, s)
	}

	// Rows left behind by deleted posts would break the cascade invariant.
	var orphans int64
	require.NoError(t, s.sess.Get(ctx, "orphans", &orphans, `
		SELECT (SELECT COUNT(*) FROM comments WHERE post_id NOT IN (SELECT id FROM posts))
		     + (SELECT COUNT(*) FROM likes WHERE post_id NOT IN (SELECT id FROM posts))`))
	require.Zero(t, orphans)
}
