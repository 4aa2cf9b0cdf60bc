// Package post is the entity repository for posts, comments and likes.
//
// Every mutation that touches more than one row runs in a single storage
// transaction, and the derived counters on posts (like_count,
// comment_count) are adjusted with storage-level arithmetic in the same
// transaction as the row they count.
package post

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"feed/internal/common"
	"feed/internal/storage"
)

type Service struct {
	sess *storage.Session
	now  func() time.Time
}

type Option func(*Service)

// WithClock replaces the time source used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(sess *storage.Session, opts ...Option) *Service {
	s := &Service{
		sess: sess,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPosts returns every post in creation order.
func (s *Service) ListPosts(ctx context.Context) ([]Post, error) {
	posts := []Post{}
	b := s.sess.Builder().
		Select(postCols...).
		From(postsTable).
		OrderBy("id")
	if err := s.sess.SelectBuilder(ctx, "list_posts", &posts, b); err != nil {
		return nil, common.DataBaseError(err)
	}
	return posts, nil
}

func (s *Service) CreatePost(ctx context.Context, userName, content string) (Post, error) {
	userName, content, err := validateEntry(userName, content)
	if err != nil {
		return Post{}, err
	}

	now := s.now()
	p := Post{
		UserName:  userName,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b := s.sess.Builder().
		Insert(postsTable).
		Columns("user_name", "content", "created_at", "updated_at", "like_count", "comment_count").
		Values(p.UserName, p.Content, p.CreatedAt, p.UpdatedAt, 0, 0).
		Suffix("RETURNING id")
	if err := s.sess.GetBuilder(ctx, "insert_post", &p.ID, b); err != nil {
		return Post{}, common.DataBaseError(err)
	}
	return p, nil
}

func (s *Service) GetPost(ctx context.Context, id int64) (Post, error) {
	return findPost(ctx, s.sess, id)
}

// UpdatePost replaces the content and refreshes updatedAt. Counters and
// createdAt are left untouched.
func (s *Service) UpdatePost(ctx context.Context, id int64, content string) (Post, error) {
	content, err := validateContent(content)
	if err != nil {
		return Post{}, err
	}

	var p Post
	err = s.sess.Transaction(ctx, func(tx *storage.Session) error {
		res, err := tx.ExecBuilder(ctx, "update_post", tx.Builder().
			Update(postsTable).
			Set("content", content).
			Set("updated_at", s.now()).
			Where(sq.Eq{"id": id}))
		if err != nil {
			return err
		}
		if err := expectRows(res, "post not found"); err != nil {
			return err
		}
		p, err = findPost(ctx, tx, id)
		return err
	})
	if err != nil {
		return Post{}, dbError(err)
	}
	return p, nil
}

// DeletePost removes the post together with all of its comments and likes.
func (s *Service) DeletePost(ctx context.Context, id int64) error {
	err := s.sess.Transaction(ctx, func(tx *storage.Session) error {
		if _, err := findPost(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecBuilder(ctx, "delete_post_comments", tx.Builder().
			Delete(commentsTable).
			Where(sq.Eq{"post_id": id})); err != nil {
			return err
		}
		if _, err := tx.ExecBuilder(ctx, "delete_post_likes", tx.Builder().
			Delete(likesTable).
			Where(sq.Eq{"post_id": id})); err != nil {
			return err
		}
		_, err := tx.ExecBuilder(ctx, "delete_post", tx.Builder().
			Delete(postsTable).
			Where(sq.Eq{"id": id}))
		return err
	})
	return dbError(err)
}

func findPost(ctx context.Context, sess *storage.Session, id int64) (Post, error) {
	var p Post
	b := sess.Builder().
		Select(postCols...).
		From(postsTable).
		Where(sq.Eq{"id": id})
	if err := sess.GetBuilder(ctx, "get_post", &p, b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, common.NotFoundError(err, "post not found")
		}
		return Post{}, common.DataBaseError(err)
	}
	return p, nil
}

// adjustCounter adds delta to one of the post's counters inside the
// statement itself. A decrement never takes the counter below zero. The
// result reports whether a row was changed.
func adjustCounter(ctx context.Context, tx *storage.Session, column string, postID, delta int64) (bool, error) {
	b := tx.Builder().
		Update(postsTable).
		Set(column, sq.Expr(column+" + ?", delta)).
		Where(sq.Eq{"id": postID})
	if delta < 0 {
		b = b.Where(sq.Gt{column: 0})
	}
	res, err := tx.ExecBuilder(ctx, "adjust_"+column, b)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func expectRows(res sql.Result, message string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.NotFoundError(nil, message)
	}
	return nil
}

// dbError keeps *common.AppError values as they are and reports anything
// else as a database failure.
func dbError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return common.DataBaseError(err)
}
