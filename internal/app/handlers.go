package app

import (
	"net/http"

	"feed/internal/live"
)

type entryRequest struct {
	UserName string `json:"userName"`
	Content  string `json:"content"`
}

type contentRequest struct {
	Content string `json:"content"`
}

type likeRequest struct {
	UserName string `json:"userName"`
}

//Post handlers

func (a *App) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.postService.ListPosts(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (a *App) createPost(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.handleError(w, r, err)
		return
	}

	p, err := a.postService.CreatePost(r.Context(), req.UserName, req.Content)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	a.logger.InfoContext(r.Context(), "new post added", "post_id", p.ID)
	a.hub.Publish(live.Event{Action: live.PostCreated, PostID: p.ID, UserName: p.UserName, Post: &p})
	writeJSON(w, http.StatusCreated, p)
}

func (a *App) getPost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	p, err := a.postService.GetPost(r.Context(), postID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) updatePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.handleError(w, r, err)
		return
	}

	p, err := a.postService.UpdatePost(r.Context(), postID, req.Content)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	a.hub.Publish(live.Event{Action: live.PostUpdated, PostID: p.ID, Post: &p})
	writeJSON(w, http.StatusOK, p)
}

func (a *App) deletePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	if err := a.postService.DeletePost(r.Context(), postID); err != nil {
		a.handleError(w, r, err)
		return
	}

	a.logger.InfoContext(r.Context(), "post deleted", "post_id", postID)
	a.hub.Publish(live.Event{Action: live.PostDeleted, PostID: postID})
	w.WriteHeader(http.StatusNoContent)
}

//Comment handlers

func (a *App) listComments(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	comments, err := a.postService.ListComments(r.Context(), postID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (a *App) createComment(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.handleError(w, r, err)
		return
	}

	c, err := a.postService.CreateComment(r.Context(), postID, req.UserName, req.Content)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	a.hub.Publish(live.Event{Action: live.CommentCreated, PostID: postID, CommentID: c.ID, UserName: c.UserName, Comment: &c})
	writeJSON(w, http.StatusCreated, c)
}

func (a *App) getComment(w http.ResponseWriter, r *http.Request) {
	postID, commentID, err := commentPath(r)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	c, err := a.postService.GetComment(r.Context(), postID, commentID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *App) updateComment(w http.ResponseWriter, r *http.Request) {
	postID, commentID, err := commentPath(r)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.handleError(w, r, err)
		return
	}

	c, err := a.postService.UpdateComment(r.Context(), postID, commentID, req.Content)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	a.hub.Publish(live.Event{Action: live.CommentUpdated, PostID: postID, CommentID: c.ID, Comment: &c})
	writeJSON(w, http.StatusOK, c)
}

func (a *App) deleteComment(w http.ResponseWriter, r *http.Request) {
	postID, commentID, err := commentPath(r)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	if err := a.postService.DeleteComment(r.Context(), postID, commentID); err != nil {
		a.handleError(w, r, err)
		return
	}

	a.hub.Publish(live.Event{Action: live.CommentDeleted, PostID: postID, CommentID: commentID})
	w.WriteHeader(http.StatusNoContent)
}

func commentPath(r *http.Request) (postID, commentID int64, err error) {
	if postID, err = pathID(r, "postId"); err != nil {
		return 0, 0, err
	}
	if commentID, err = pathID(r, "commentId"); err != nil {
		return 0, 0, err
	}
	return postID, commentID, nil
}

//Like handlers

func (a *App) listLikes(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	likes, err := a.postService.ListLikes(r.Context(), postID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, likes)
}

func (a *App) likePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	var req likeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.handleError(w, r, err)
		return
	}

	like, created, err := a.postService.LikePost(r.Context(), postID, req.UserName)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	if created {
		a.hub.Publish(live.Event{Action: live.PostLiked, PostID: postID, UserName: like.UserName, Like: &like})
	} else {
		a.logger.InfoContext(r.Context(), "post already liked", "post_id", postID, "user_name", like.UserName)
	}
	writeJSON(w, http.StatusCreated, like)
}

// unlikePost takes the user name from the JSON body or, for clients that
// send DELETE without a body, from the userName query parameter.
func (a *App) unlikePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	var req likeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.handleError(w, r, err)
		return
	}
	if req.UserName == "" {
		req.UserName = r.URL.Query().Get("userName")
	}

	removed, err := a.postService.UnlikePost(r.Context(), postID, req.UserName)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	if removed {
		a.hub.Publish(live.Event{Action: live.PostUnliked, PostID: postID, UserName: req.UserName})
	}
	w.WriteHeader(http.StatusNoContent)
}
