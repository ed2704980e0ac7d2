package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hrdesk/backend/internal/middleware"
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/services"
	"github.com/hrdesk/backend/pkg/utils"
	"gorm.io/gorm"
)

// DepartmentsHandler exposes the department directory. Listing is open to
// any authenticated user; writes sit behind the departments.manage
// capability at the route level.
type DepartmentsHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewDepartmentsHandler(db *gorm.DB, audit *services.AuditService) *DepartmentsHandler {
	return &DepartmentsHandler{DB: db, Audit: audit}
}

type departmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	var departments []models.Department
	if err := h.DB.Order("name ASC").Find(&departments).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing departments")
	}
	return utils.Success(c, fiber.StatusOK, departments)
}

func (h *DepartmentsHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid department id")
	}

	var department models.Department
	if err := h.DB.Preload("Employees").First(&department, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "department not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading department")
	}
	return utils.Success(c, fiber.StatusOK, department)
}

func (h *DepartmentsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req departmentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "department name is required")
	}

	department := models.Department{Name: req.Name, Description: req.Description}
	if err := h.DB.Create(&department).Error; err != nil {
		if services.IsDuplicateKey(err) {
			return utils.Error(c, fiber.StatusConflict, "department with this name already exists")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating department")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "department.create",
		ResourceType: "department",
		ResourceID:   &department.ID,
		Details:      map[string]interface{}{"name": department.Name},
		IPAddress:    c.IP(),
		RequestID:    requestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, department)
}

func (h *DepartmentsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid department id")
	}

	var department models.Department
	if err := h.DB.First(&department, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "department not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading department")
	}

	var req departmentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		department.Name = name
	}
	department.Description = req.Description

	if err := h.DB.Save(&department).Error; err != nil {
		if services.IsDuplicateKey(err) {
			return utils.Error(c, fiber.StatusConflict, "department with this name already exists")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating department")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "department.update",
		ResourceType: "department",
		ResourceID:   &department.ID,
		Details:      map[string]interface{}{"name": department.Name},
		IPAddress:    c.IP(),
		RequestID:    requestID(c),
	})

	return utils.Success(c, fiber.StatusOK, department)
}

// Delete detaches members instead of cascading; an employee without a
// department is valid.
func (h *DepartmentsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid department id")
	}

	var department models.Department
	if err := h.DB.First(&department, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "department not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading department")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Employee{}).Where("department_id = ?", department.ID).Update("department_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("department_id = ?", department.ID).Update("department_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&department).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting department")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "department.delete",
		ResourceType: "department",
		ResourceID:   &department.ID,
		Details:      map[string]interface{}{"name": department.Name},
		IPAddress:    c.IP(),
		RequestID:    requestID(c),
	})

	return utils.Message(c, fiber.StatusOK, "department deleted")
}
