package handlers

import (
	"net/http"
	"time"

	"picstream/pkg/logger"
	authrepo "picstream/services/auth/repository"
	postrepo "picstream/services/post/repository"

	"github.com/gin-gonic/gin"
)

// unknownAuthor is reported when a post references a user that no longer
// exists in the user table.
const unknownAuthor = "Unknown"

type FeedHandler struct {
	postRepo postrepo.PostRepository
	userRepo authrepo.UserRepository
	logger   *logger.Logger
}

func NewFeedHandler(postRepo postrepo.PostRepository, userRepo authrepo.UserRepository, logger *logger.Logger) *FeedHandler {
	return &FeedHandler{
		postRepo: postRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetFeed godoc
// @Summary      Get the global feed
// @Description  Get all posts newest-first, annotated with the author email and whether the requester owns each post.
// @Tags         feed
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /feed [get]
func (h *FeedHandler) GetFeed(c *gin.Context) {
	userID := c.GetString("user_id")

	posts, err := h.postRepo.ListAll()
	if err != nil {
		h.logger.Error("Failed to list posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feed"})
		return
	}

	users, err := h.userRepo.List()
	if err != nil {
		h.logger.Error("Failed to list users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feed"})
		return
	}

	emails := make(map[string]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}

	items := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		email, ok := emails[post.UserID]
		if !ok {
			email = unknownAuthor
		}
		items = append(items, gin.H{
			"id":         post.ID,
			"user_id":    post.UserID,
			"caption":    post.Caption,
			"url":        post.URL,
			"file_type":  post.FileType,
			"file_name":  post.FileName,
			"created_at": formatTimestamp(post.CreatedAt),
			"is_owner":   post.UserID == userID,
			"email":      email,
		})
	}

	c.JSON(http.StatusOK, gin.H{"posts": items})
}

func formatTimestamp(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
