package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/hrdesk/backend/internal/middleware"
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/permissions"
	"github.com/hrdesk/backend/internal/services"
	"github.com/hrdesk/backend/pkg/logger"
	"github.com/hrdesk/backend/pkg/utils"
	"gorm.io/gorm"
)

type FoldersHandler struct {
	DB    *gorm.DB
	Docs  *services.DocumentService
	Audit *services.AuditService
}

func NewFoldersHandler(db *gorm.DB, docs *services.DocumentService, audit *services.AuditService) *FoldersHandler {
	return &FoldersHandler{DB: db, Docs: docs, Audit: audit}
}

type createFolderRequest struct {
	Name string `json:"name"`
}

// Create adds a folder for the caller. Names are unique per owner; two
// users may each have a "Contracts" folder.
func (h *FoldersHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	folder, err := h.Docs.CreateFolder(c.Context(), currentUser.ID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFolderNameRequired):
			return utils.Error(c, fiber.StatusBadRequest, "folder name is required")
		case errors.Is(err, services.ErrDuplicateFolder):
			return utils.Error(c, fiber.StatusConflict, "folder with this name already exists")
		default:
			return utils.Error(c, fiber.StatusInternalServerError, "failed creating folder")
		}
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "folder.create",
		ResourceType: "folder",
		ResourceID:   &folder.ID,
		Details:      map[string]interface{}{"name": folder.Name},
		IPAddress:    c.IP(),
		RequestID:    requestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, folder)
}

// List returns the caller's own folders only. Folders are a namespace,
// not a sharing surface; other users' folders are never listed.
func (h *FoldersHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var folders []models.Folder
	if err := h.DB.Where("owner_id = ?", currentUser.ID).Order("name ASC").Find(&folders).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing folders")
	}

	return utils.Success(c, fiber.StatusOK, folders)
}

// Delete cascades through the folder's documents. Only the owner or a
// privileged role may delete a folder.
func (h *FoldersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var folder models.Folder
	if err := h.DB.First(&folder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "folder not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
	}

	if folder.OwnerID != currentUser.ID && !permissions.IsPrivileged(currentUser.Role) {
		logger.WarnWithUser(currentUser.ID.String(), "folder_access_denied", map[string]interface{}{
			"folder_id": folder.ID.String(),
			"role":      string(currentUser.Role),
		})
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	if err := h.Docs.DeleteFolder(c.Context(), &folder); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting folder")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "folder.delete",
		ResourceType: "folder",
		ResourceID:   &folder.ID,
		Details:      map[string]interface{}{"name": folder.Name},
		IPAddress:    c.IP(),
		RequestID:    requestID(c),
	})

	return utils.Message(c, fiber.StatusOK, "folder deleted")
}
