// Image studio backend: accepts image uploads and AI generation requests,
// stages files in the storage bucket, and reconciles submissions against
// the tiered records kept in the external table.
package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"image-studio-backend/internal/airtable"
	"image-studio-backend/internal/config"
	"image-studio-backend/internal/handlers"
	"image-studio-backend/internal/middleware"
	"image-studio-backend/internal/openai"
	"image-studio-backend/internal/pipeline"
	"image-studio-backend/internal/reconcile"
	"image-studio-backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// External clients, injected at construction; nothing reads the
	// environment past this point.
	openaiClient := openai.NewClient(cfg.OpenAIAPIBaseURL, cfg.OpenAIAPIKey)
	recordClient := airtable.NewClient(cfg.AirtableAPIBaseURL, cfg.AirtableBaseID, cfg.AirtableTableName, cfg.AirtableAPIKey)
	uploader := storage.NewUploader(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket, cfg.StoragePublicURL)

	generationPipeline := pipeline.New(openaiClient)
	reconciler := reconcile.New(recordClient)

	generateHandler := handlers.NewGenerateHandler(generationPipeline)
	submissionsHandler := handlers.NewSubmissionsHandler(uploader, reconciler)
	uploadsHandler := handlers.NewUploadsHandler(uploader, reconciler)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())

	router.HandleMethodNotAllowed = true
	router.NoMethod(handlers.MethodNotAllowed)

	router.GET("/health", handlers.HealthHandler)
	router.POST("/ai", generateHandler.Generate)
	router.POST("/airtable", submissionsHandler.SaveSubmission)
	router.POST("/upload_images", uploadsHandler.Upload)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
