package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"feed/internal/common"
	"feed/internal/config"
	"feed/internal/live"
	"feed/internal/post"
	"feed/internal/storage"
)

const maxBodyBytes = 1 << 20

type App struct {
	cfg         config.ServerConfig
	session     *storage.Session
	postService *post.Service
	hub         *live.Hub
	logger      *slog.Logger
	router      *http.ServeMux
}

func New(cfg config.ServerConfig, session *storage.Session, postService *post.Service, hub *live.Hub, logger *slog.Logger) *App {
	a := &App{
		cfg:         cfg,
		session:     session,
		postService: postService,
		hub:         hub,
		logger:      logger,
		router:      http.NewServeMux(),
	}

	//post endpoints
	a.router.HandleFunc("GET /api/posts", a.listPosts)
	a.router.HandleFunc("POST /api/posts", a.createPost)
	a.router.HandleFunc("GET /api/posts/{postId}", a.getPost)
	a.router.HandleFunc("PATCH /api/posts/{postId}", a.updatePost)
	a.router.HandleFunc("DELETE /api/posts/{postId}", a.deletePost)

	//comment endpoints
	a.router.HandleFunc("GET /api/posts/{postId}/comments", a.listComments)
	a.router.HandleFunc("POST /api/posts/{postId}/comments", a.createComment)
	a.router.HandleFunc("GET /api/posts/{postId}/comments/{commentId}", a.getComment)
	a.router.HandleFunc("PATCH /api/posts/{postId}/comments/{commentId}", a.updateComment)
	a.router.HandleFunc("DELETE /api/posts/{postId}/comments/{commentId}", a.deleteComment)

	//like endpoints
	a.router.HandleFunc("GET /api/posts/{postId}/likes", a.listLikes)
	a.router.HandleFunc("POST /api/posts/{postId}/likes", a.likePost)
	a.router.HandleFunc("DELETE /api/posts/{postId}/likes", a.unlikePost)

	a.router.Handle("GET /api/ws", a.hub)
	a.router.HandleFunc("GET /healthz", a.health)

	return a
}

// Handler returns the router wrapped in the middleware chain.
func (a *App) Handler() http.Handler {
	return a.requestID(a.accessLog(a.recoverPanic(corsMW(a.cfg.AllowedOrigins, a.router))))
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.Addr(),
		Handler:      a.Handler(),
		ErrorLog:     slog.NewLogLogger(a.logger.Handler(), slog.LevelError),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting the application", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.hub.Close()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if err := a.session.Ping(r.Context()); err != nil {
		a.handleError(w, r, common.DataBaseError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func setHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	setHeaders(w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return common.InvalidArgumentError(err, "invalid json body")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, common.InvalidArgumentError(err, name+" must be an integer")
	}
	return id, nil
}

//Error handler
func (a *App) handleError(w http.ResponseWriter, r *http.Request, err error) {
	setHeaders(w)

	var appErr *common.AppError
	if errors.As(err, &appErr) {
		attrs := []any{"status", appErr.StatusCode, "request_id", requestIDFrom(r.Context())}
		if appErr.Err != nil {
			attrs = append(attrs, "error", appErr.Err)
		}
		level := slog.LevelInfo
		if appErr.StatusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		a.logger.Log(r.Context(), level, appErr.Message, attrs...)
		w.WriteHeader(appErr.StatusCode)
		w.Write(appErr.Marshal())
		return
	}

	a.logger.ErrorContext(r.Context(), "unhandled error occurred", "error", err, "request_id", requestIDFrom(r.Context()))
	w.WriteHeader(http.StatusInternalServerError)
	w.Write(common.SystemError(err).Marshal())
}
