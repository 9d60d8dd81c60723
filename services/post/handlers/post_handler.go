package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"picstream/pkg/logger"
	"picstream/pkg/mediastore"
	"picstream/pkg/models"
	"picstream/services/post/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaStore is the upload target. A single long-lived client is injected at
// startup; see mediastore.Client.
type MediaStore interface {
	Upload(file io.Reader, fileName, contentType string) (*mediastore.UploadResult, error)
}

type PostHandler struct {
	postRepo repository.PostRepository
	store    MediaStore
	logger   *logger.Logger

	// tempDir overrides the staging directory; empty means the OS default.
	tempDir string
}

func NewPostHandler(postRepo repository.PostRepository, store MediaStore, logger *logger.Logger) *PostHandler {
	return &PostHandler{
		postRepo: postRepo,
		store:    store,
		logger:   logger,
	}
}

// Upload godoc
// @Summary      Upload a media file
// @Description  Upload an image or video with an optional caption. The file is forwarded to the media store and a post is created for the authenticated user.
// @Tags         posts
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Media file"
// @Param        caption formData string false "Post caption"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /upload [post]
func (h *PostHandler) Upload(c *gin.Context) {
	userID := c.GetString("user_id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	caption := c.PostForm("caption")

	src, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Upload failed: %v", err)})
		return
	}
	defer src.Close()

	// Stage the upload into a temporary file so receiving from the client is
	// decoupled from sending to the media store. Removal is best-effort and
	// runs on every exit path, including client disconnects.
	tmp, err := os.CreateTemp(h.tempDir, "upload-*"+filepath.Ext(fileHeader.Filename))
	if err != nil {
		h.logger.Error("Failed to create staging file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Upload failed: %v", err)})
		return
	}
	tmpPath := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpPath); statErr == nil {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		h.logger.Error("Failed to stage uploaded file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Upload failed: %v", err)})
		return
	}
	if err := tmp.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Upload failed: %v", err)})
		return
	}

	staged, err := os.Open(tmpPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Upload failed: %v", err)})
		return
	}
	defer staged.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := h.store.Upload(staged, fileHeader.Filename, contentType)
	if err != nil {
		h.logger.Error("Failed to upload file to media store: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Upload failed: %v", err)})
		return
	}

	post := &models.Post{
		UserID:   userID,
		Caption:  caption,
		URL:      result.URL,
		FileType: models.FileTypeFromContentType(contentType),
		FileName: result.Name,
	}

	if err := h.postRepo.Create(post); err != nil {
		h.logger.Error("Failed to create post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Upload failed: %v", err)})
		return
	}

	// Reload to pick up server-assigned fields
	saved, err := h.postRepo.GetByID(post.ID)
	if err != nil {
		h.logger.Error("Failed to reload post %s: %v", post.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Upload failed: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         saved.ID,
		"user_id":    saved.UserID,
		"caption":    saved.Caption,
		"url":        saved.URL,
		"file_type":  saved.FileType,
		"file_name":  saved.FileName,
		"created_at": formatTimestamp(saved.CreatedAt),
	})
}

// Delete godoc
// @Summary      Delete a post
// @Description  Delete a post. Only the owner can delete their own posts.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        post_id path string true "Post ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /posts/{post_id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	postID := c.Param("post_id")
	userID := c.GetString("user_id")

	if _, err := uuid.Parse(postID); err != nil {
		// Malformed ids surface as 500, matching the flattened error handling
		// of the rest of the delete path.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	post, err := h.postRepo.GetByID(postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if post.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to delete this post"})
		return
	}

	if err := h.postRepo.Delete(postID); err != nil {
		h.logger.Error("Failed to delete post %s: %v", postID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Post deleted successfully"})
}

func formatTimestamp(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
