package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hrdesk/backend/internal/config"
	"github.com/hrdesk/backend/internal/database"
	"github.com/hrdesk/backend/internal/handlers"
	"github.com/hrdesk/backend/internal/middleware"
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/permissions"
	"github.com/hrdesk/backend/internal/services"
	"github.com/hrdesk/backend/internal/storage"
	"github.com/hrdesk/backend/pkg/logger"
	"github.com/hrdesk/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	auditService := services.NewAuditService(db)
	documentService := services.NewDocumentService(db, storageClient)

	documentsHandler := handlers.NewDocumentsHandler(db, documentService, auditService)
	foldersHandler := handlers.NewFoldersHandler(db, documentService, auditService)
	employeeDocsHandler := handlers.NewEmployeeDocumentsHandler(db, documentService, auditService)
	departmentsHandler := handlers.NewDepartmentsHandler(db, auditService)
	employeesHandler := handlers.NewEmployeesHandler(db, documentService, auditService)
	usersHandler := handlers.NewUsersHandler(db, documentService, auditService)

	authMiddleware := middleware.NewAuthMiddleware(db)
	guards := middleware.NewGuardMiddleware(auditService)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	documentRoutes := api.Group("/documents", authMiddleware.RequireAuth)
	documentRoutes.Post("/upload", documentsHandler.Upload)
	documentRoutes.Get("/", documentsHandler.List)
	documentRoutes.Get("/:id/download", documentsHandler.Download)
	documentRoutes.Get("/:id/download-url", documentsHandler.DownloadURL)
	documentRoutes.Put("/:id/visibility", documentsHandler.UpdateVisibility)
	documentRoutes.Delete("/:id", documentsHandler.Delete)

	folderRoutes := api.Group("/folders", authMiddleware.RequireAuth)
	folderRoutes.Post("/", foldersHandler.Create)
	folderRoutes.Get("/", foldersHandler.List)
	folderRoutes.Delete("/:id", foldersHandler.Delete)

	departmentRoutes := api.Group("/departments", authMiddleware.RequireAuth)
	departmentRoutes.Get("/", departmentsHandler.List)
	departmentRoutes.Get("/:id", guards.RequireCapability(permissions.CapDepartmentsView), departmentsHandler.Get)
	departmentRoutes.Post("/", guards.RequireCapability(permissions.CapDepartmentsManage), departmentsHandler.Create)
	departmentRoutes.Put("/:id", guards.RequireCapability(permissions.CapDepartmentsManage), departmentsHandler.Update)
	departmentRoutes.Delete("/:id", guards.RequireCapability(permissions.CapDepartmentsManage), departmentsHandler.Delete)

	employeeRoutes := api.Group("/employees", authMiddleware.RequireAuth)
	employeeRoutes.Get("/", guards.RequireCapability(permissions.CapEmployeesView), employeesHandler.List)
	employeeRoutes.Get("/:id", guards.RequireCapability(permissions.CapEmployeesView), employeesHandler.Get)
	employeeRoutes.Post("/", guards.RequireCapability(permissions.CapEmployeesManage), employeesHandler.Create)
	employeeRoutes.Put("/:id", guards.RequireCapability(permissions.CapEmployeesManage), employeesHandler.Update)
	employeeRoutes.Delete("/:id", guards.RequireCapability(permissions.CapEmployeesManage), employeesHandler.Delete)

	employeeRoutes.Post("/:employeeID/documents", guards.RequireCapability(permissions.CapDocumentsManage), employeeDocsHandler.Upload)
	employeeRoutes.Get("/:employeeID/documents", employeeDocsHandler.List)

	employeeDocRoutes := api.Group("/employee-documents", authMiddleware.RequireAuth)
	employeeDocRoutes.Get("/:id/download", employeeDocsHandler.Download)
	employeeDocRoutes.Get("/:id/download-url", employeeDocsHandler.DownloadURL)
	employeeDocRoutes.Delete("/:id", employeeDocsHandler.Delete)

	adminOnly := guards.RequireRoles(models.RoleITManager, models.RoleGeneralDirector)
	userRoutes := api.Group("/users", authMiddleware.RequireAuth, adminOnly)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Post("/", usersHandler.Create)
	userRoutes.Put("/:id", usersHandler.Update)
	userRoutes.Delete("/:id", usersHandler.Delete)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
