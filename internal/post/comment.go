package post

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"feed/internal/common"
	"feed/internal/storage"
)

// ListComments returns the comments of a post in creation order. A missing
// post yields an empty list.
func (s *Service) ListComments(ctx context.Context, postID int64) ([]Comment, error) {
	comments := []Comment{}
	b := s.sess.Builder().
		Select(commentCols...).
		From(commentsTable).
		Where(sq.Eq{"post_id": postID}).
		OrderBy("id")
	if err := s.sess.SelectBuilder(ctx, "list_comments", &comments, b); err != nil {
		return nil, common.DataBaseError(err)
	}
	return comments, nil
}

func (s *Service) CreateComment(ctx context.Context, postID int64, userName, content string) (Comment, error) {
	userName, content, err := validateEntry(userName, content)
	if err != nil {
		return Comment{}, err
	}

	now := s.now()
	c := Comment{
		PostID:    postID,
		UserName:  userName,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.sess.Transaction(ctx, func(tx *storage.Session) error {
		// The counter update doubles as the existence check: it matches no
		// row when the post is gone.
		ok, err := adjustCounter(ctx, tx, "comment_count", postID, 1)
		if err != nil {
			return err
		}
		if !ok {
			return common.NotFoundError(nil, "post not found")
		}
		return tx.GetBuilder(ctx, "insert_comment", &c.ID, tx.Builder().
			Insert(commentsTable).
			Columns("post_id", "user_name", "content", "created_at", "updated_at").
			Values(c.PostID, c.UserName, c.Content, c.CreatedAt, c.UpdatedAt).
			Suffix("RETURNING id"))
	})
	if err != nil {
		return Comment{}, dbError(err)
	}
	return c, nil
}

// GetComment returns the comment only when it belongs to postID.
func (s *Service) GetComment(ctx context.Context, postID, commentID int64) (Comment, error) {
	return findComment(ctx, s.sess, postID, commentID)
}

func (s *Service) UpdateComment(ctx context.Context, postID, commentID int64, content string) (Comment, error) {
	content, err := validateContent(content)
	if err != nil {
		return Comment{}, err
	}

	var c Comment
	err = s.sess.Transaction(ctx, func(tx *storage.Session) error {
		res, err := tx.ExecBuilder(ctx, "update_comment", tx.Builder().
			Update(commentsTable).
			Set("content", content).
			Set("updated_at", s.now()).
			Where(sq.Eq{"id": commentID, "post_id": postID}))
		if err != nil {
			return err
		}
		if err := expectRows(res, "comment not found"); err != nil {
			return err
		}
		c, err = findComment(ctx, tx, postID, commentID)
		return err
	})
	if err != nil {
		return Comment{}, dbError(err)
	}
	return c, nil
}

// DeleteComment removes the comment and decrements the parent's
// comment_count. A parent that no longer exists is not an error.
func (s *Service) DeleteComment(ctx context.Context, postID, commentID int64) error {
	err := s.sess.Transaction(ctx, func(tx *storage.Session) error {
		res, err := tx.ExecBuilder(ctx, "delete_comment", tx.Builder().
			Delete(commentsTable).
			Where(sq.Eq{"id": commentID, "post_id": postID}))
		if err != nil {
			return err
		}
		if err := expectRows(res, "comment not found"); err != nil {
			return err
		}
		_, err = adjustCounter(ctx, tx, "comment_count", postID, -1)
		return err
	})
	return dbError(err)
}

func findComment(ctx context.Context, sess *storage.Session, postID, commentID int64) (Comment, error) {
	var c Comment
	b := sess.Builder().
		Select(commentCols...).
		From(commentsTable).
		Where(sq.Eq{"id": commentID, "post_id": postID})
	if err := sess.GetBuilder(ctx, "get_comment", &c, b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Comment{}, common.NotFoundError(err, "comment not found")
		}
		return Comment{}, common.DataBaseError(err)
	}
	return c, nil
}
