package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hrdesk/backend/internal/middleware"
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/services"
	"github.com/hrdesk/backend/pkg/utils"
	"gorm.io/gorm"
)

// EmployeesHandler manages HR employee records. Reads sit behind the
// employees.view capability, writes behind employees.manage, both at the
// route level.
type EmployeesHandler struct {
	DB    *gorm.DB
	Docs  *services.DocumentService
	Audit *services.AuditService
}

func NewEmployeesHandler(db *gorm.DB, docs *services.DocumentService, audit *services.AuditService) *EmployeesHandler {
	return &EmployeesHandler{DB: db, Docs: docs, Audit: audit}
}

type employeeRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Position     string `json:"position"`
	DepartmentID string `json:"departmentID"`
	UserID       string `json:"userID"`
}

func (h *EmployeesHandler) List(c *fiber.Ctx) error {
	query := h.DB.Preload("Department").Order("last_name ASC, first_name ASC")

	if raw := strings.TrimSpace(c.Query("departmentID")); raw != "" {
		id, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid departmentID")
		}
		query = query.Where("department_id = ?", id)
	}

	var employees []models.Employee
	if err := query.Find(&employees).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing employees")
	}
	return utils.Success(c, fiber.StatusOK, employees)
}

func (h *EmployeesHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid employee id")
	}

	var employee models.Employee
	if err := h.DB.Preload("Department").First(&employee, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "employee not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading employee")
	}
	return utils.Success(c, fiber.StatusOK, employee)
}

func (h *EmployeesHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req employeeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.FirstName == "" || req.LastName == "" || req.Email == "" {
		return utils.Error(c, fiber.StatusBadRequest, "firstName, lastName and email are required")
	}

	employee := models.Employee{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Position:  strings.TrimSpace(req.Position),
	}

	departmentID, userID, errResp := h.parseLinks(c, req)
	if errResp != nil {
		return errResp
	}
	employee.DepartmentID = departmentID
	employee.UserID = userID

	if err := h.DB.Create(&employee).Error; err != nil {
		if services.IsDuplicateKey(err) {
			return utils.Error(c, fiber.StatusConflict, "employee with this email already exists")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating employee")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "employee.create",
		ResourceType: "employee",
		ResourceID:   &employee.ID,
		Details:      map[string]interface{}{"email": employee.Email},
		IPAddress:    c.IP(),
		RequestID:    requestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, employee)
}

func (h *EmployeesHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid employee id")
	}

	var employee models.Employee
	if err := h.DB.First(&employee, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "employee not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading employee")
	}

	var req employeeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if v := strings.TrimSpace(req.FirstName); v != "" {
		employee.FirstName = v
	}
	if v := strings.TrimSpace(req.LastName); v != "" {
		employee.LastName = v
	}
	if v := strings.TrimSpace(strings.ToLower(req.Email)); v != "" {
		employee.Email = v
	}
	if v := strings.TrimSpace(req.Position); v != "" {
		employee.Position = v
	}

	departmentID, userID, errResp := h.parseLinks(c, req)
	if errResp != nil {
		return errResp
	}
	if departmentID != nil {
		employee.DepartmentID = departmentID
	}
	if userID != nil {
		employee.UserID = userID
	}

	if err := h.DB.Save(&employee).Error; err != nil {
		if services.IsDuplicateKey(err) {
			return utils.Error(c, fiber.StatusConflict, "employee with this email already exists")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating employee")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "employee.update",
		ResourceType: "employee",
		ResourceID:   &employee.ID,
		Details:      map[string]interface{}{"email": employee.Email},
		IPAddress:    c.IP(),
		RequestID:    requestID(c),
	})

	return utils.Success(c, fiber.StatusOK, employee)
}

// Delete removes the employee record and its HR documents. The linked
// login account survives.
func (h *EmployeesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid employee id")
	}

	var employee models.Employee
	if err := h.DB.First(&employee, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "employee not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading employee")
	}

	if err := h.Docs.DeleteEmployeeCascade(c.Context(), &employee); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting employee")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "employee.delete",
		ResourceType: "employee",
		ResourceID:   &employee.ID,
		Details:      map[string]interface{}{"email": employee.Email},
		IPAddress:    c.IP(),
		RequestID:    requestID(c),
	})

	return utils.Message(c, fiber.StatusOK, "employee deleted")
}

func (h *EmployeesHandler) parseLinks(c *fiber.Ctx, req employeeRequest) (*uuid.UUID, *uuid.UUID, error) {
	var departmentID, userID *uuid.UUID

	if raw := strings.TrimSpace(req.DepartmentID); raw != "" {
		id, err := parseUUID(raw)
		if err != nil {
			return nil, nil, utils.Error(c, fiber.StatusBadRequest, "invalid departmentID")
		}
		var department models.Department
		if err := h.DB.First(&department, "id = ?", id).Error; err != nil {
			return nil, nil, utils.Error(c, fiber.StatusBadRequest, "department not found")
		}
		departmentID = &id
	}

	if raw := strings.TrimSpace(req.UserID); raw != "" {
		id, err := parseUUID(raw)
		if err != nil {
			return nil, nil, utils.Error(c, fiber.StatusBadRequest, "invalid userID")
		}
		var user models.User
		if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
			return nil, nil, utils.Error(c, fiber.StatusBadRequest, "user not found")
		}
		userID = &id
	}

	return departmentID, userID, nil
}
