package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"picstream/pkg/logger"
	"picstream/pkg/mediastore"
	"picstream/pkg/models"
	"picstream/services/post/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockPostRepository is a mock implementation of repository.PostRepository
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(post *models.Post) error {
	args := m.Called(post)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(id string) (*models.Post, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) ListAll() ([]*models.Post, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostRepository) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

var _ repository.PostRepository = (*MockPostRepository)(nil)

// MockMediaStore is a mock implementation of MediaStore
type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) Upload(file io.Reader, fileName, contentType string) (*mediastore.UploadResult, error) {
	args := m.Called(file, fileName, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mediastore.UploadResult), args.Error(1)
}

var _ MediaStore = (*MockMediaStore)(nil)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func uploadRequest(t *testing.T, fileName, contentType, caption string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	assert.NoError(t, err)
	_, err = part.Write([]byte("file contents"))
	assert.NoError(t, err)

	if caption != "" {
		assert.NoError(t, writer.WriteField("caption", caption))
	}
	assert.NoError(t, writer.Close())

	req, _ := http.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Empty(t, entries, "staged temporary files must not outlive the request")
}

func TestUpload_Success(t *testing.T) {
	mockRepo := new(MockPostRepository)
	mockStore := new(MockMediaStore)
	handler := NewPostHandler(mockRepo, mockStore, logger.New())
	handler.tempDir = t.TempDir()

	userID := uuid.New().String()
	router := setupTestRouter()
	router.POST("/upload", func(c *gin.Context) {
		c.Set("user_id", userID)
		handler.Upload(c)
	})

	storedName := uuid.New().String() + ".png"
	mockStore.On("Upload", mock.Anything, "photo.png", "image/png").
		Return(&mediastore.UploadResult{
			URL:  "https://picstream-media.s3.us-east-1.amazonaws.com/uploads/" + storedName,
			Name: storedName,
		}, nil)

	var created *models.Post
	var saved models.Post
	mockRepo.On("Create", mock.AnythingOfType("*models.Post")).
		Run(func(args mock.Arguments) {
			created = args.Get(0).(*models.Post)
			created.ID = uuid.New().String()
		}).
		Return(nil)
	mockRepo.On("GetByID", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			saved = *created
			saved.CreatedAt = time.Now()
		}).
		Return(&saved, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "photo.png", "image/png", "my cat"))

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	_, err := uuid.Parse(response["id"].(string))
	assert.NoError(t, err)
	assert.Equal(t, userID, response["user_id"])
	assert.Equal(t, "my cat", response["caption"])
	assert.Equal(t, "image", response["file_type"])
	assert.Equal(t, storedName, response["file_name"])
	_, err = time.Parse(time.RFC3339Nano, response["created_at"].(string))
	assert.NoError(t, err)

	assertDirEmpty(t, handler.tempDir)
	mockStore.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestUpload_VideoContentType(t *testing.T) {
	mockRepo := new(MockPostRepository)
	mockStore := new(MockMediaStore)
	handler := NewPostHandler(mockRepo, mockStore, logger.New())
	handler.tempDir = t.TempDir()

	router := setupTestRouter()
	router.POST("/upload", func(c *gin.Context) {
		c.Set("user_id", "user-123")
		handler.Upload(c)
	})

	mockStore.On("Upload", mock.Anything, "clip.mp4", "video/mp4").
		Return(&mediastore.UploadResult{URL: "https://example.com/clip", Name: "clip-stored.mp4"}, nil)

	var created *models.Post
	var saved models.Post
	mockRepo.On("Create", mock.AnythingOfType("*models.Post")).
		Run(func(args mock.Arguments) {
			created = args.Get(0).(*models.Post)
			created.ID = uuid.New().String()
		}).
		Return(nil)
	mockRepo.On("GetByID", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			saved = *created
			saved.CreatedAt = time.Now()
		}).
		Return(&saved, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "clip.mp4", "video/mp4", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.FileTypeVideo, created.FileType)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "video", response["file_type"])
	assert.Equal(t, "", response["caption"])
}

func TestUpload_UnknownContentTypeDefaultsToImage(t *testing.T) {
	mockRepo := new(MockPostRepository)
	mockStore := new(MockMediaStore)
	handler := NewPostHandler(mockRepo, mockStore, logger.New())
	handler.tempDir = t.TempDir()

	router := setupTestRouter()
	router.POST("/upload", func(c *gin.Context) {
		c.Set("user_id", "user-123")
		handler.Upload(c)
	})

	mockStore.On("Upload", mock.Anything, "doc.pdf", "application/pdf").
		Return(&mediastore.UploadResult{URL: "https://example.com/doc", Name: "doc-stored.pdf"}, nil)

	var created *models.Post
	var saved models.Post
	mockRepo.On("Create", mock.AnythingOfType("*models.Post")).
		Run(func(args mock.Arguments) {
			created = args.Get(0).(*models.Post)
			created.ID = uuid.New().String()
		}).
		Return(nil)
	mockRepo.On("GetByID", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			saved = *created
			saved.CreatedAt = time.Now()
		}).
		Return(&saved, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "doc.pdf", "application/pdf", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.FileTypeImage, created.FileType)
}

func TestUpload_MissingFile(t *testing.T) {
	mockRepo := new(MockPostRepository)
	mockStore := new(MockMediaStore)
	handler := NewPostHandler(mockRepo, mockStore, logger.New())

	router := setupTestRouter()
	router.POST("/upload", func(c *gin.Context) {
		c.Set("user_id", "user-123")
		handler.Upload(c)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/upload", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockStore.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_MediaStoreFailure(t *testing.T) {
	mockRepo := new(MockPostRepository)
	mockStore := new(MockMediaStore)
	handler := NewPostHandler(mockRepo, mockStore, logger.New())
	handler.tempDir = t.TempDir()

	router := setupTestRouter()
	router.POST("/upload", func(c *gin.Context) {
		c.Set("user_id", "user-123")
		handler.Upload(c)
	})

	mockStore.On("Upload", mock.Anything, "photo.png", "image/png").
		Return(nil, errors.New("connection refused"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "photo.png", "image/png", ""))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Upload failed")

	// Cleanup is unconditional, even when forwarding fails
	assertDirEmpty(t, handler.tempDir)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestUpload_PersistenceFailure(t *testing.T) {
	mockRepo := new(MockPostRepository)
	mockStore := new(MockMediaStore)
	handler := NewPostHandler(mockRepo, mockStore, logger.New())
	handler.tempDir = t.TempDir()

	router := setupTestRouter()
	router.POST("/upload", func(c *gin.Context) {
		c.Set("user_id", "user-123")
		handler.Upload(c)
	})

	mockStore.On("Upload", mock.Anything, "photo.png", "image/png").
		Return(&mediastore.UploadResult{URL: "https://example.com/p", Name: "p.png"}, nil)
	mockRepo.On("Create", mock.AnythingOfType("*models.Post")).
		Return(errors.New("insert failed"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "photo.png", "image/png", ""))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Upload failed")
	assertDirEmpty(t, handler.tempDir)
}

func TestDelete_Owner(t *testing.T) {
	mockRepo := new(MockPostRepository)
	handler := NewPostHandler(mockRepo, nil, logger.New())

	userID := uuid.New().String()
	postID := uuid.New().String()

	router := setupTestRouter()
	router.DELETE("/posts/:post_id", func(c *gin.Context) {
		c.Set("user_id", userID)
		handler.Delete(c)
	})

	mockRepo.On("GetByID", postID).Return(&models.Post{ID: postID, UserID: userID}, nil)
	mockRepo.On("Delete", postID).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/posts/"+postID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "Post deleted successfully", response["message"])
	mockRepo.AssertExpectations(t)
}

func TestDelete_NotOwner(t *testing.T) {
	mockRepo := new(MockPostRepository)
	handler := NewPostHandler(mockRepo, nil, logger.New())

	ownerID := uuid.New().String()
	postID := uuid.New().String()

	router := setupTestRouter()
	router.DELETE("/posts/:post_id", func(c *gin.Context) {
		c.Set("user_id", uuid.New().String())
		handler.Delete(c)
	})

	mockRepo.On("GetByID", postID).Return(&models.Post{ID: postID, UserID: ownerID}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/posts/"+postID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockRepo.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestDelete_NotFound(t *testing.T) {
	mockRepo := new(MockPostRepository)
	handler := NewPostHandler(mockRepo, nil, logger.New())

	postID := uuid.New().String()

	router := setupTestRouter()
	router.DELETE("/posts/:post_id", func(c *gin.Context) {
		c.Set("user_id", "user-123")
		handler.Delete(c)
	})

	mockRepo.On("GetByID", postID).Return(nil, gorm.ErrRecordNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/posts/"+postID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete_MalformedID(t *testing.T) {
	mockRepo := new(MockPostRepository)
	handler := NewPostHandler(mockRepo, nil, logger.New())

	router := setupTestRouter()
	router.DELETE("/posts/:post_id", func(c *gin.Context) {
		c.Set("user_id", "user-123")
		handler.Delete(c)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/posts/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	mockRepo.AssertNotCalled(t, "GetByID", mock.Anything)
}
