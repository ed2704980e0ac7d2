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
	"github.com/google/uuid"
	"github.com/hrdesk/backend/internal/access"
	"github.com/hrdesk/backend/internal/middleware"
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/services"
	"github.com/hrdesk/backend/pkg/logger"
	"github.com/hrdesk/backend/pkg/utils"
	"gorm.io/gorm"
)

type DocumentsHandler struct {
	DB    *gorm.DB
	Docs  *services.DocumentService
	Audit *services.AuditService
}

func NewDocumentsHandler(db *gorm.DB, docs *services.DocumentService, audit *services.AuditService) *DocumentsHandler {
	return &DocumentsHandler{DB: db, Docs: docs, Audit: audit}
}

// Upload stores one or more files under the caller's identity. The whole
// batch shares one visibility setting; metadata is all-or-nothing.
func (h *DocumentsHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	identity := middleware.CurrentIdentity(c)

	form, err := c.MultipartForm()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "multipart form is required")
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "at least one file is required")
	}

	var folderID *uuid.UUID
	if raw := strings.TrimSpace(c.FormValue("folderID")); raw != "" {
		parsed, parseErr := parseUUID(raw)
		if parseErr != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid folderID")
		}

		var folder models.Folder
		if err := h.DB.First(&folder, "id = ?", parsed).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.Error(c, fiber.StatusNotFound, "folder not found")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
		}
		if folder.OwnerID != currentUser.ID {
			return utils.Error(c, fiber.StatusForbidden, "folder belongs to another user")
		}
		folderID = &parsed
	}

	allowedUsers, err := parseUUIDList(c.FormValue("allowedUserIDs"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid allowedUserIDs")
	}
	allowedDepartments, err := parseUUIDList(c.FormValue("allowedDepartmentIDs"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid allowedDepartmentIDs")
	}

	visibility, err := services.ResolveVisibility(identity, services.VisibilityRequest{
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

	docs, err := h.Docs.BulkUploadUserDocuments(c.Context(), currentUser.ID, folderID, uploads, visibility)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed uploading documents")
	}

	logger.InfoWithUser(currentUser.ID.String(), "documents_uploaded", map[string]interface{}{
		"count":      len(docs),
		"visibility": string(visibility.Mode),
	})
	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "document.upload",
		ResourceType: "user_document",
		Details: map[string]interface{}{
			"count":      len(docs),
			"visibility": string(visibility.Mode),
		},
		IPAddress: c.IP(),
		RequestID: requestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, docs)
}

// List returns every document the caller may read, owned or not. The
// filter is the resolver applied document by document.
func (h *DocumentsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var docs []models.UserDocument
	if err := h.DB.Preload("Folder").Order("created_at DESC").Find(&docs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing documents")
	}

	visible := access.VisibleUserDocuments(middleware.CurrentIdentity(c), docs)
	return utils.Success(c, fiber.StatusOK, visible)
}

func (h *DocumentsHandler) Download(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, errResp := h.loadDocument(c)
	if doc == nil {
		return errResp
	}

	if !access.CanRead(middleware.CurrentIdentity(c), access.UserDocumentResource(doc)) {
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

func (h *DocumentsHandler) DownloadURL(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, errResp := h.loadDocument(c)
	if doc == nil {
		return errResp
	}

	if !access.CanRead(middleware.CurrentIdentity(c), access.UserDocumentResource(doc)) {
		return h.deny(c, currentUser, doc, "read")
	}

	url, err := h.Docs.Storage.PresignedGetURL(c.Context(), doc.StoragePath, 15*time.Minute)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating download url")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"url": url})
}

type updateVisibilityRequest struct {
	Visibility           string   `json:"visibility"`
	AllowedUserIDs       []string `json:"allowedUserIDs"`
	AllowedRoles         []string `json:"allowedRoles"`
	AllowedDepartmentIDs []string `json:"allowedDepartmentIDs"`
}

// UpdateVisibility replaces a document's mode and allow-lists. Only the
// owner or a privileged role may change visibility.
func (h *DocumentsHandler) UpdateVisibility(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, errResp := h.loadDocument(c)
	if doc == nil {
		return errResp
	}

	identity := middleware.CurrentIdentity(c)
	if !access.CanDelete(identity, access.UserDocumentResource(doc)) {
		return h.deny(c, currentUser, doc, "manage")
	}

	var req updateVisibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	allowedUsers, err := parseUUIDStrings(req.AllowedUserIDs)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid allowedUserIDs")
	}
	allowedDepartments, err := parseUUIDStrings(req.AllowedDepartmentIDs)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid allowedDepartmentIDs")
	}
	roles := make(models.RoleList, 0, len(req.AllowedRoles))
	for _, r := range req.AllowedRoles {
		roles = append(roles, models.NormalizeRole(r))
	}

	visibility, err := services.ResolveVisibility(identity, services.VisibilityRequest{
		Mode:                 req.Visibility,
		AllowedUserIDs:       allowedUsers,
		AllowedRoles:         roles,
		AllowedDepartmentIDs: allowedDepartments,
	})
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "unknown visibility mode")
	}

	doc.Visibility = visibility.Mode
	doc.AllowedUserIDs = visibility.AllowedUserIDs
	doc.AllowedRoles = visibility.AllowedRoles
	doc.AllowedDepartmentIDs = visibility.AllowedDepartmentIDs

	if err := h.DB.Save(doc).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating visibility")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "document.visibility_update",
		ResourceType: "user_document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"visibility": string(visibility.Mode),
		},
		IPAddress: c.IP(),
		RequestID: requestID(c),
	})

	return utils.Success(c, fiber.StatusOK, doc)
}

// Delete is governed by ownership or privilege, never by visibility mode.
func (h *DocumentsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, errResp := h.loadDocument(c)
	if doc == nil {
		return errResp
	}

	if !access.CanDelete(middleware.CurrentIdentity(c), access.UserDocumentResource(doc)) {
		return h.deny(c, currentUser, doc, "delete")
	}

	if err := h.Docs.DeleteUserDocument(c.Context(), doc); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting document")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "document.delete",
		ResourceType: "user_document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"filename": doc.Filename,
		},
		IPAddress: c.IP(),
		RequestID: requestID(c),
	})

	return utils.Message(c, fiber.StatusOK, "document deleted")
}

func (h *DocumentsHandler) loadDocument(c *fiber.Ctx) (*models.UserDocument, error) {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var doc models.UserDocument
	if err := h.DB.First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return nil, utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}
	return &doc, nil
}

func (h *DocumentsHandler) deny(c *fiber.Ctx, user *models.User, doc *models.UserDocument, action string) error {
	logger.WarnWithUser(user.ID.String(), "document_access_denied", map[string]interface{}{
		"document_id": doc.ID.String(),
		"role":        string(user.Role),
		"required":    action,
	})
	return utils.Error(c, fiber.StatusForbidden, "access denied")
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestID").(string); ok {
		return id
	}
	return ""
}
