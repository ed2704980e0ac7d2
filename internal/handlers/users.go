package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hrdesk/backend/internal/middleware"
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/permissions"
	"github.com/hrdesk/backend/internal/services"
	"github.com/hrdesk/backend/pkg/utils"
	"gorm.io/gorm"
)

// UsersHandler is the account administration surface. Every route sits
// behind the privileged role list.
type UsersHandler struct {
	DB    *gorm.DB
	Docs  *services.DocumentService
	Audit *services.AuditService
}

func NewUsersHandler(db *gorm.DB, docs *services.DocumentService, audit *services.AuditService) *UsersHandler {
	return &UsersHandler{DB: db, Docs: docs, Audit: audit}
}

type createUserRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	DepartmentID string `json:"departmentID"`
	Position     string `json:"position"`
	Phone        string `json:"phone"`
}

type updateUserRequest struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	DepartmentID string `json:"departmentID"`
	Position     string `json:"position"`
	Phone        string `json:"phone"`
	IsActive     *bool  `json:"isActive"`
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}

	var users []models.User
	err := h.DB.Preload("Department").
		Order("email ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}

	return utils.Paginated(c, users, page, limit, total)
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.Preload("Department").First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

func (h *UsersHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email, password and name are required")
	}

	role := models.NormalizeRole(req.Role)
	if permissions.CapabilitiesFor(role) == nil {
		return utils.Error(c, fiber.StatusBadRequest, "unknown role")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed hashing password")
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		Position:     strings.TrimSpace(req.Position),
		Phone:        strings.TrimSpace(req.Phone),
		IsActive:     true,
	}

	if raw := strings.TrimSpace(req.DepartmentID); raw != "" {
		id, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid departmentID")
		}
		user.DepartmentID = &id
	}

	if err := h.DB.Create(&user).Error; err != nil {
		if services.IsDuplicateKey(err) {
			return utils.Error(c, fiber.StatusConflict, "user with this email already exists")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "user.create",
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details:      map[string]interface{}{"email": user.Email, "role": string(user.Role)},
		IPAddress:    c.IP(),
		RequestID:    requestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, user)
}

func (h *UsersHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if v := strings.TrimSpace(req.Name); v != "" {
		user.Name = v
	}
	if v := strings.TrimSpace(req.Role); v != "" {
		role := models.NormalizeRole(v)
		if permissions.CapabilitiesFor(role) == nil {
			return utils.Error(c, fiber.StatusBadRequest, "unknown role")
		}
		user.Role = role
	}
	if raw := strings.TrimSpace(req.DepartmentID); raw != "" {
		id, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid departmentID")
		}
		user.DepartmentID = &id
	}
	if v := strings.TrimSpace(req.Position); v != "" {
		user.Position = v
	}
	if v := strings.TrimSpace(req.Phone); v != "" {
		user.Phone = v
	}
	if req.IsActive != nil {
		// Admins cannot lock themselves out.
		if user.ID == currentUser.ID && !*req.IsActive {
			return utils.Error(c, fiber.StatusBadRequest, "cannot deactivate your own account")
		}
		user.IsActive = *req.IsActive
	}

	if err := h.DB.Save(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating user")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "user.update",
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details:      map[string]interface{}{"email": user.Email, "role": string(user.Role)},
		IPAddress:    c.IP(),
		RequestID:    requestID(c),
	})

	return utils.Success(c, fiber.StatusOK, user)
}

// Delete removes the account with its folders and personal documents.
// Employee records linked to the account stay, unlinked.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}
	if id == currentUser.ID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot delete your own account")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	if err := h.DB.Model(&models.Employee{}).Where("user_id = ?", user.ID).Update("user_id", nil).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting user")
	}

	if err := h.Docs.DeleteUserCascade(c.Context(), &user); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting user")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "user.delete",
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details:      map[string]interface{}{"email": user.Email},
		IPAddress:    c.IP(),
		RequestID:    requestID(c),
	})

	return utils.Message(c, fiber.StatusOK, "user deleted")
}
