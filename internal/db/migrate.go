package db

import (
	"clipshelf/internal/field"
	"clipshelf/internal/item"
	"clipshelf/internal/tag"
	"clipshelf/internal/user"
	"clipshelf/internal/workspace"
	"context"
	"log"
)

// Migrate runs database migrations
func Migrate() {
	err := AppDb.AutoMigrate(
		&user.User{},
		&workspace.Workspace{},
		&item.Item{},
		&tag.Tag{},
		&tag.ItemTag{},
		&field.CustomField{},
		&field.FieldSchema{},
		&field.SchemaField{},
		&field.FieldValue{},
	)

	if err != nil {
		log.Fatal(err)
	}

	log.Println("Database schema migrated successfully")
}

// SeedData seeds the database with initial data (for development only)
func SeedData() {
	ctx := context.Background()
	userRepo := user.NewRepository(AppDb)

	testUser := &user.User{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "password123",
		IsActive: true,
	}

	_, err := userRepo.FindByEmail(ctx, testUser.Email)
	if err != nil {
		userService := user.NewService(userRepo)
		if err := userService.Register(ctx, testUser); err != nil {
			log.Printf("Error creating test user: %v", err)
		} else {
			log.Printf("Created test user: %s", testUser.Email)
		}
	} else {
		log.Printf("Test user already exists: %s", testUser.Email)
	}
}
