package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"picstream/pkg/config"
	"picstream/pkg/database"
	"picstream/pkg/logger"
	"picstream/pkg/mediastore"
	"picstream/pkg/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	store, err := mediastore.NewClient(cfg)
	if err != nil {
		log.Error("Failed to create media store client: %v", err)
		panic(err)
	}

	if err := seedDatabase(db, store, log); err != nil {
		log.Error("Failed to seed database: %v", err)
		panic(err)
	}

	log.Info("Database seeded successfully!")
}

func seedDatabase(db *gorm.DB, store *mediastore.Client, log *logger.Logger) error {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	testUsers := []struct {
		email    string
		password string
	}{
		{"alice@test.com", "password123"},
		{"bob@test.com", "password123"},
		{"charlie@test.com", "password123"},
	}

	for i, userData := range testUsers {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(userData.password), bcrypt.DefaultCost)

		user := &models.User{
			Email:    userData.email,
			Password: string(hashedPassword),
		}

		var existingUser models.User
		result := db.Where("email = ?", user.Email).First(&existingUser)
		if result.Error == nil {
			log.Info("User %s already exists, skipping", user.Email)
			continue
		}

		if err := db.Create(user).Error; err != nil {
			log.Error("Failed to create user %s: %v", user.Email, err)
			continue
		}

		log.Info("Created user: %s", user.Email)

		postsCount := 2 + i%2
		for j := 0; j < postsCount; j++ {
			if err := createPostWithCatImage(db, store, httpClient, user, j, log); err != nil {
				log.Error("Failed to create post %d for user %s: %v", j+1, user.Email, err)
				continue
			}
			time.Sleep(200 * time.Millisecond)
		}
	}

	return nil
}

func createPostWithCatImage(db *gorm.DB, store *mediastore.Client, httpClient *http.Client, user *models.User, index int, log *logger.Logger) error {
	cataasURL := "https://cataas.com/cat"

	log.Info("Fetching cat image from %s", cataasURL)
	resp, err := httpClient.Get(cataasURL)
	if err != nil {
		return fmt.Errorf("failed to fetch cat image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cataas API returned status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read image data: %w", err)
	}

	if len(imageData) == 0 {
		return fmt.Errorf("received empty image data")
	}

	log.Info("Downloaded image: %d bytes", len(imageData))

	result, err := store.Upload(bytes.NewReader(imageData), fmt.Sprintf("seed_%d.jpg", index), "image/jpeg")
	if err != nil {
		return fmt.Errorf("failed to upload image to media store: %w", err)
	}

	log.Info("Image uploaded successfully: %s", result.URL)

	post := &models.Post{
		UserID:   user.ID,
		Caption:  fmt.Sprintf("Cat #%d from %s", index+1, user.Email),
		URL:      result.URL,
		FileType: models.FileTypeImage,
		FileName: result.Name,
	}

	if err := db.Create(post).Error; err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	log.Info("Created post %s for %s", post.ID, user.Email)
	return nil
}
