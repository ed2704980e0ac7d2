package handlers

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/hrdesk/backend/internal/middleware"
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/permissions"
	"github.com/hrdesk/backend/internal/services"
	"github.com/hrdesk/backend/pkg/logger"
	"github.com/hrdesk/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	storage *fakeStorage
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Department{},
		&models.Employee{},
		&models.Folder{},
		&models.UserDocument{},
		&models.EmployeeDocument{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	store := newFakeStorage()
	auditService := services.NewAuditService(db)
	documentService := services.NewDocumentService(db, store)

	documentsHandler := NewDocumentsHandler(db, documentService, auditService)
	foldersHandler := NewFoldersHandler(db, documentService, auditService)
	employeeDocsHandler := NewEmployeeDocumentsHandler(db, documentService, auditService)
	departmentsHandler := NewDepartmentsHandler(db, auditService)
	employeesHandler := NewEmployeesHandler(db, documentService, auditService)
	usersHandler := NewUsersHandler(db, documentService, auditService)

	authMiddleware := middleware.NewAuthMiddleware(db)
	guards := middleware.NewGuardMiddleware(auditService)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

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

	return &testEnv{app: app, db: db, storage: store}
}

// fakeStorage mirrors the production MinIO client against an in-memory
// map.
type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failDelete map[string]bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects:    make(map[string][]byte),
		failDelete: make(map[string]bool),
	}
}

func (f *fakeStorage) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[objectName] = data
	return nil
}

func (f *fakeStorage) Download(_ context.Context, objectName string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[objectName]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Delete(_ context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[objectName] {
		return errors.New("delete failed")
	}
	delete(f.objects, objectName)
	return nil
}

func (f *fakeStorage) PresignedGetURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	return "https://storage.test/" + objectName, nil
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.Role) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword("secret-password")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestEmployee(t *testing.T, db *gorm.DB, userID *uuid.UUID) *models.Employee {
	t.Helper()

	employee := &models.Employee{
		FirstName: "Jan",
		LastName:  "Kowalski",
		Email:     fmt.Sprintf("%s@hrdesk.local", uuid.New().String()[:8]),
		UserID:    userID,
	}
	if err := db.Create(employee).Error; err != nil {
		t.Fatalf("failed creating test employee: %v", err)
	}
	return employee
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

// performUpload posts a multipart form with the given files and extra
// fields against an upload route.
func performUpload(t *testing.T, app *fiber.App, path, token string, files map[string]string, fields map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("failed creating form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("failed writing form file: %v", err)
		}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed writing form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	headers := authHeaders(token)
	headers["Content-Type"] = writer.FormDataContentType()
	return performRequest(t, app, http.MethodPost, path, &buf, headers)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func dataSlice(t *testing.T, body map[string]any) []any {
	t.Helper()
	if body["data"] == nil {
		return nil
	}
	items, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %T", body["data"])
	}
	return items
}
