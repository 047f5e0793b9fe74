package main

import (
	"clipshelf/internal/cache"
	"clipshelf/internal/config"
	"clipshelf/internal/db"
	"clipshelf/internal/field"
	"clipshelf/internal/item"
	"clipshelf/internal/middleware"
	"clipshelf/internal/oembed"
	"clipshelf/internal/snapshot"
	"clipshelf/internal/tag"
	"clipshelf/internal/user"
	"clipshelf/internal/worker"
	"clipshelf/internal/workspace"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// newSnapshotStore picks the snapshot backend. Redis is opt-in and falls back
// to the file store when the client is unavailable.
func newSnapshotStore(redisClient *redis.Client) snapshot.Store {
	if config.AppConfig.SnapshotBackend == "redis" && redisClient != nil {
		return snapshot.NewRedisStore(redisClient)
	}

	store, err := snapshot.NewFileStore(config.AppConfig.SnapshotDir)
	if err != nil {
		log.Fatalf("can't initialize snapshot store at %s: %v", config.AppConfig.SnapshotDir, err)
	}
	return store
}

func main() {
	// Load configuration
	config.LoadConfig()

	// Connect to database
	db.ConnectDb()
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	// Seed database with initial data (for development)
	if config.AppConfig.Environment == "development" {
		db.SeedData()
	}

	// Redis backs the listing cache and, optionally, the snapshot store. The
	// cache degrades to a no-op when Redis is unreachable.
	redisClient := cache.Connect()
	listCache := cache.NewCache(redisClient)

	snapStore := newSnapshotStore(redisClient)

	pool := worker.NewWorkerPool(4)
	defer pool.Shutdown()

	// Repositories
	userRepo := user.NewRepository(db.AppDb)
	workspaceRepo := workspace.NewRepository(db.AppDb)
	itemRepo := item.NewRepository(db.AppDb)
	tagRepo := tag.NewRepository(db.AppDb)
	fieldRepo := field.NewRepository(db.AppDb)

	// Services
	userService := user.NewService(userRepo)
	fieldService := field.NewService(fieldRepo, tagRepo)
	workspaceService := workspace.NewService(workspaceRepo, fieldService)
	tagService := tag.NewService(tagRepo, fieldService, snapStore)

	var titles item.TitleResolver
	if config.AppConfig.OEmbedAddress != "" {
		titles = oembed.NewClient(config.AppConfig.OEmbedAddress)
	}
	itemService := item.NewService(itemRepo, fieldService, titles, tagService, listCache, pool)

	// Handlers
	guard := func(ctx context.Context, workspaceID, ownerID uint64) error {
		_, err := workspaceService.RequireOwned(ctx, workspaceID, ownerID)
		return err
	}
	userHandler := user.NewHandler(userService)
	workspaceHandler := workspace.NewHandler(workspaceService)
	fieldHandler := field.NewHandler(fieldService, field.GuardFunc(guard))
	tagHandler := tag.NewHandler(tagService)
	itemHandler := item.NewHandler(itemService, item.GuardFunc(guard))

	authn := &middleware.Auth{Users: userService}

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	// User routes
	router.POST("/register", userHandler.Register)
	router.POST("/login", userHandler.Login)

	authed := router.Group("/", authn.AuthMiddleWare())

	authed.DELETE("/logout", userHandler.Logout)
	authed.GET("/profile", userHandler.GetProfile)

	// Workspace routes
	authed.POST("/workspaces", workspaceHandler.CreateWorkspace)
	authed.GET("/workspaces", workspaceHandler.ListWorkspaces)
	authed.GET("/workspaces/:id", workspaceHandler.GetWorkspace)
	authed.PUT("/workspaces/:id", workspaceHandler.RenameWorkspace)
	authed.PUT("/workspaces/:id/default-schema", workspaceHandler.SetDefaultSchema)
	authed.DELETE("/workspaces/:id", workspaceHandler.DeleteWorkspace)

	// Field catalog and schemas
	authed.POST("/workspaces/:id/fields", fieldHandler.CreateField)
	authed.GET("/workspaces/:id/fields", fieldHandler.ListFields)
	authed.PUT("/fields/:id", fieldHandler.UpdateField)
	authed.DELETE("/fields/:id", fieldHandler.DeleteField)
	authed.POST("/workspaces/:id/schemas", fieldHandler.CreateSchema)
	authed.GET("/workspaces/:id/schemas", fieldHandler.ListSchemas)
	authed.DELETE("/schemas/:id", fieldHandler.DeleteSchema)
	authed.GET("/schemas/:id/fields", fieldHandler.ListSchemaFields)
	authed.POST("/schemas/:id/fields", fieldHandler.AddSchemaField)
	authed.PUT("/schemas/:id/fields", fieldHandler.ReorderSchema)
	authed.DELETE("/schemas/:id/fields/:fieldId", fieldHandler.RemoveSchemaField)

	// Tags
	authed.POST("/workspaces/:id/tags", tagHandler.CreateTag)
	authed.GET("/workspaces/:id/tags", tagHandler.ListTags)
	authed.PUT("/tags/:id", tagHandler.UpdateTag)
	authed.DELETE("/tags/:id", tagHandler.DeleteTag)

	// Items
	authed.POST("/workspaces/:id/items", itemHandler.CreateItem)
	authed.GET("/workspaces/:id/items", itemHandler.ListItems)
	authed.GET("/items/:id", itemHandler.GetItem)
	authed.PUT("/items/:id", itemHandler.UpdateItem)
	authed.DELETE("/items/:id", itemHandler.DeleteItem)

	// Item fields and values
	authed.GET("/items/:id/fields", fieldHandler.ShowItemFields)
	authed.GET("/items/:id/values", fieldHandler.ShowItemValues)
	authed.PUT("/items/:id/values/:fieldId", fieldHandler.SetItemValue)
	authed.DELETE("/items/:id/values/:fieldId", fieldHandler.ClearItemValue)

	// Item tags, category and snapshots
	authed.GET("/items/:id/tags", tagHandler.ListItemTags)
	authed.POST("/items/:id/tags", tagHandler.AssignTags)
	authed.DELETE("/items/:id/tags/:tagId", tagHandler.DetachTag)
	authed.GET("/items/:id/category", tagHandler.GetCategory)
	authed.PUT("/items/:id/category", tagHandler.SetCategory)
	authed.GET("/items/:id/backups", tagHandler.ListBackups)
	authed.POST("/items/:id/backups/:categoryId/restore", tagHandler.RestoreBackup)
	authed.DELETE("/items/:id/backups/:categoryId", tagHandler.DeleteBackup)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Printf("Server listening on port %s", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}
