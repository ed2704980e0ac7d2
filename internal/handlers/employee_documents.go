package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hrdesk/backend/internal/access"
	"github.com/hrdesk/backend/internal/middleware"
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/services"
	"github.com/hrdesk/backend/pkg/logger"
	"github.com/hrdesk/backend/pkg/utils"
	"gorm.io/gorm"
)

// EmployeeDocumentsHandler serves the HR-side document family. Writes sit
// behind the documents.manage capability at the route level; reads go
// through the same visibility resolver as personal documents, with the
// employee's linked login acting as owner.
type EmployeeDocumentsHandler struct {
	DB    *gorm.DB
	Docs  *services.DocumentService
	Audit *services.AuditService
}

func NewEmployeeDocumentsHandler(db *gorm.DB, docs *services.DocumentService, audit *services.AuditService) *EmployeeDocumentsHandler {
	return &EmployeeDocumentsHandler{DB: db, Docs: docs, Audit: audit}
}

// Upload attaches one or more files to an employee record.
func (h *EmployeeDocumentsHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	employee, errResp := h.loadEmployee(c)
	if employee == nil {
		return errResp
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "multipart form is required")
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "at least one file is required")
	}

	allowedUsers, err := parseUUIDList(c.FormValue("allowedUserIDs"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid allowedUserIDs")
	}
	allowedDepartments, err := parseUUIDList(c.FormValue("allowedDepartmentIDs"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid allowedDepartmentIDs")
	}

	visibility, err := services.ResolveVisibility(middleware.CurrentIdentity(c), services.VisibilityRequest{
		Mode:                 c.FormValue("visibility"),
		AllowedUserIDs:       allowedUsers,
		AllowedRoles:         parseRoleList(c.FormValue("allowedRoles")),
		AllowedDepartmentIDs: allowedDepartments,
	})
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "unknown visibility mode")
	}

	uploads := make([]services.Upload, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		filename := filepath.Base(strings.TrimSpace(fh.Filename))
		if filename == "" || filename == "." {
			return utils.Error(c, fiber.StatusBadRequest, "invalid filename")
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(filename))
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		uploads = append(uploads, services.Upload{
			Filename:     filename,
			ContentType:  contentType,
			Size:         fh.Size,
			DocumentType: strings.TrimSpace(c.FormValue("documentType")),
			Open:         func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	docs, err := h.Docs.BulkUploadEmployeeDocuments(c.Context(), employee.ID, uploads, visibility)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed uploading documents")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "employee_document.upload",
		ResourceType: "employee_document",
		Details: map[string]interface{}{
			"employee_id": employee.ID.String(),
			"count":       len(docs),
			"visibility":  string(visibility.Mode),
		},
		IPAddress: c.IP(),
		RequestID: requestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, docs)
}

// List returns the employee's documents the caller may read.
func (h *EmployeeDocumentsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	employee, errResp := h.loadEmployee(c)
	if employee == nil {
		return errResp
	}

	var docs []models.EmployeeDocument
	if err := h.DB.Where("employee_id = ?", employee.ID).Order("created_at DESC").Find(&docs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing documents")
	}

	visible := access.VisibleEmployeeDocuments(middleware.CurrentIdentity(c), employee, docs)
	return utils.Success(c, fiber.StatusOK, visible)
}

func (h *EmployeeDocumentsHandler) Download(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, employee, errResp := h.loadDocument(c)
	if doc == nil {
		return errResp
	}

	if !access.CanRead(middleware.CurrentIdentity(c), access.EmployeeDocumentResource(doc, employee)) {
		return h.deny(c, currentUser, doc, "read")
	}

	stream, err := h.Docs.Storage.Download(c.Context(), doc.StoragePath)
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "file not found in storage")
	}

	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Set(fiber.HeaderContentType, doc.MimeType)
	return c.SendStream(stream)
}

func (h *EmployeeDocumentsHandler) DownloadURL(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, employee, errResp := h.loadDocument(c)
	if doc == nil {
		return errResp
	}

	if !access.CanRead(middleware.CurrentIdentity(c), access.EmployeeDocumentResource(doc, employee)) {
		return h.deny(c, currentUser, doc, "read")
	}

	url, err := h.Docs.Storage.PresignedGetURL(c.Context(), doc.StoragePath, 15*time.Minute)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating download url")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"url": url})
}

// Delete is governed by ownership or privilege. The owner is the
// employee's linked login, so an unlinked employee's documents can only
// be deleted by privileged roles.
func (h *EmployeeDocumentsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, employee, errResp := h.loadDocument(c)
	if doc == nil {
		return errResp
	}

	if !access.CanDelete(middleware.CurrentIdentity(c), access.EmployeeDocumentResource(doc, employee)) {
		return h.deny(c, currentUser, doc, "delete")
	}

	if err := h.Docs.DeleteEmployeeDocument(c.Context(), doc); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting document")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "employee_document.delete",
		ResourceType: "employee_document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"employee_id": doc.EmployeeID.String(),
			"filename":    doc.Filename,
		},
		IPAddress: c.IP(),
		RequestID: requestID(c),
	})

	return utils.Message(c, fiber.StatusOK, "document deleted")
}

func (h *EmployeeDocumentsHandler) loadEmployee(c *fiber.Ctx) (*models.Employee, error) {
	id, err := parseUUID(c.Params("employeeID"))
	if err != nil {
		return nil, utils.Error(c, fiber.StatusBadRequest, "invalid employee id")
	}

	var employee models.Employee
	if err := h.DB.First(&employee, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.Error(c, fiber.StatusNotFound, "employee not found")
		}
		return nil, utils.Error(c, fiber.StatusInternalServerError, "failed loading employee")
	}
	return &employee, nil
}

func (h *EmployeeDocumentsHandler) loadDocument(c *fiber.Ctx) (*models.EmployeeDocument, *models.Employee, error) {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, nil, utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var doc models.EmployeeDocument
	if err := h.DB.First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return nil, nil, utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}

	var employee models.Employee
	if err := h.DB.First(&employee, "id = ?", doc.EmployeeID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.Error(c, fiber.StatusInternalServerError, "failed loading employee")
		}
		// Orphaned document; treat as unlinked so only privileged
		// roles can manage it.
		return &doc, nil, nil
	}
	return &doc, &employee, nil
}

func (h *EmployeeDocumentsHandler) deny(c *fiber.Ctx, user *models.User, doc *models.EmployeeDocument, action string) error {
	logger.WarnWithUser(user.ID.String(), "document_access_denied", map[string]interface{}{
		"document_id": doc.ID.String(),
		"role":        string(user.Role),
		"required":    action,
	})
	return utils.Error(c, fiber.StatusForbidden, "access denied")
}
