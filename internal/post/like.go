package post

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"feed/internal/common"
	"feed/internal/storage"
)

// ListLikes returns the likes of a post in creation order.
func (s *Service) ListLikes(ctx context.Context, postID int64) ([]Like, error) {
	likes := []Like{}
	b := s.sess.Builder().
		Select(likeCols...).
		From(likesTable).
		Where(sq.Eq{"post_id": postID}).
		OrderBy("id")
	if err := s.sess.SelectBuilder(ctx, "list_likes", &likes, b); err != nil {
		return nil, common.DataBaseError(err)
	}
	return likes, nil
}

// LikePost records that userName likes the post. A user likes a post at most
// once: repeating the call returns the existing like, reports created as
// false and leaves like_count unchanged.
func (s *Service) LikePost(ctx context.Context, postID int64, userName string) (like Like, created bool, err error) {
	userName, err = validateUserName(userName)
	if err != nil {
		return Like{}, false, err
	}

	like = Like{PostID: postID, UserName: userName}
	err = s.sess.Transaction(ctx, func(tx *storage.Session) error {
		if _, err := findPost(ctx, tx, postID); err != nil {
			return err
		}

		err := tx.GetBuilder(ctx, "insert_like", &like.ID, tx.Builder().
			Insert(likesTable).
			Columns("post_id", "user_name").
			Values(postID, userName).
			Suffix(tx.Dialect().InsertIgnore("post_id", "user_name")+" RETURNING id"))
		if errors.Is(err, sql.ErrNoRows) {
			return tx.GetBuilder(ctx, "get_like", &like, tx.Builder().
				Select(likeCols...).
				From(likesTable).
				Where(sq.Eq{"post_id": postID, "user_name": userName}))
		}
		if err != nil {
			return err
		}

		created = true
		_, err = adjustCounter(ctx, tx, "like_count", postID, 1)
		return err
	})
	if err != nil {
		return Like{}, false, dbError(err)
	}
	return like, created, nil
}

// UnlikePost removes userName's like. Unliking a post the user has not
// liked succeeds without changes; removed reports whether a like existed.
func (s *Service) UnlikePost(ctx context.Context, postID int64, userName string) (removed bool, err error) {
	userName, err = validateUserName(userName)
	if err != nil {
		return false, err
	}

	err = s.sess.Transaction(ctx, func(tx *storage.Session) error {
		if _, err := findPost(ctx, tx, postID); err != nil {
			return err
		}

		res, err := tx.ExecBuilder(ctx, "delete_like", tx.Builder().
			Delete(likesTable).
			Where(sq.Eq{"post_id": postID, "user_name": userName}))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		removed = true
		_, err = adjustCounter(ctx, tx, "like_count", postID, -1)
		return err
	})
	if err != nil {
		return false, dbError(err)
	}
	return removed, nil
}
