package post

import "time"

type Post struct {
	ID           int64     `db:"id" json:"id"`
	UserName     string    `db:"user_name" json:"userName"`
	Content      string    `db:"content" json:"content"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
	LikeCount    int64     `db:"like_count" json:"likeCount"`
	CommentCount int64     `db:"comment_count" json:"commentCount"`
}

type Comment struct {
	ID        int64     `db:"id" json:"id"`
	PostID    int64     `db:"post_id" json:"postId"`
	UserName  string    `db:"user_name" json:"userName"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type Like struct {
	ID       int64  `db:"id" json:"id"`
	PostID   int64  `db:"post_id" json:"postId"`
	UserName string `db:"user_name" json:"userName"`
}

const (
	postsTable    = "posts"
	commentsTable = "comments"
	likesTable    = "likes"
)

var (
	postCols    = []string{"id", "user_name", "content", "created_at", "updated_at", "like_count", "comment_count"}
	commentCols = []string{"id", "post_id", "user_name", "content", "created_at", "updated_at"}
	likeCols    = []string{"id", "post_id", "user_name"}
)
