package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hrdesk/backend/internal/access"
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/permissions"
	"github.com/hrdesk/backend/pkg/logger"
	"gorm.io/gorm"
)

// ObjectStorage is the file-storage collaborator as this service needs it.
// storage.MinIOClient satisfies it in production; tests substitute fakes.
type ObjectStorage interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
	PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

var (
	ErrDuplicateFolder    = errors.New("folder with this name already exists")
	ErrFolderNameRequired = errors.New("folder name is required")
	ErrUnknownVisibility  = errors.New("unknown visibility mode")
)

// Upload is one file in a (possibly bulk) upload request.
type Upload struct {
	Filename     string
	ContentType  string
	Size         int64
	DocumentType string
	Open         func() (io.ReadCloser, error)
}

type DocumentService struct {
	DB      *gorm.DB
	Storage ObjectStorage
}

func NewDocumentService(db *gorm.DB, storageClient ObjectStorage) *DocumentService {
	return &DocumentService{DB: db, Storage: storageClient}
}

// VisibilityRequest is what the uploader asked for, before policy.
type VisibilityRequest struct {
	Mode                 string
	AllowedUserIDs       models.UUIDList
	AllowedRoles         models.RoleList
	AllowedDepartmentIDs models.UUIDList
}

// ResolvedVisibility is the mode actually stored. Only the list matching
// the active mode is kept; the others are cleared even if the client sent
// them.
type ResolvedVisibility struct {
	Mode                 models.Visibility
	AllowedUserIDs       models.UUIDList
	AllowedRoles         models.RoleList
	AllowedDepartmentIDs models.UUIDList
}

// ResolveVisibility normalizes an upload's visibility request and applies
// policy: an employee asking for a shared document is forced into roles
// mode restricted to the privileged set.
func ResolveVisibility(identity access.Identity, req VisibilityRequest) (ResolvedVisibility, error) {
	raw := req.Mode
	if strings.TrimSpace(raw) == "" {
		raw = string(models.VisibilityPrivate)
	}

	mode, ok := models.ParseVisibility(raw)
	if !ok {
		return ResolvedVisibility{}, ErrUnknownVisibility
	}

	if mode == models.VisibilityShared && identity.Role.Equal(models.RoleEmployee) {
		return ResolvedVisibility{
			Mode:         models.VisibilityRoles,
			AllowedRoles: models.RoleList(permissions.PrivilegedRoles),
		}, nil
	}

	resolved := ResolvedVisibility{Mode: mode}
	switch mode {
	case models.VisibilityUsers:
		resolved.AllowedUserIDs = req.AllowedUserIDs
	case models.VisibilityRoles:
		resolved.AllowedRoles = req.AllowedRoles
	case models.VisibilityDepartments:
		resolved.AllowedDepartmentIDs = req.AllowedDepartmentIDs
	}
	return resolved, nil
}

// CreateFolder relies on the composite unique index for (owner, name);
// there is no check-then-insert race.
func (s *DocumentService) CreateFolder(ctx context.Context, ownerID uuid.UUID, name string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrFolderNameRequired
	}

	folder := models.Folder{Name: name, OwnerID: ownerID}
	if err := s.DB.WithContext(ctx).Create(&folder).Error; err != nil {
		if IsDuplicateKey(err) {
			return nil, ErrDuplicateFolder
		}
		return nil, err
	}
	return &folder, nil
}

// DeleteFolder cascades: backing files first (a missing object is logged
// and skipped, never aborts the cascade), then all metadata rows and the
// folder itself in one transaction.
func (s *DocumentService) DeleteFolder(ctx context.Context, folder *models.Folder) error {
	var docs []models.UserDocument
	if err := s.DB.WithContext(ctx).Where("folder_id = ?", folder.ID).Find(&docs).Error; err != nil {
		return err
	}

	for i := range docs {
		if err := s.Storage.Delete(ctx, docs[i].StoragePath); err != nil {
			logger.Warn("folder_cascade_file_delete_failed", map[string]interface{}{
				"folder_id":   folder.ID.String(),
				"document_id": docs[i].ID.String(),
				"object_name": docs[i].StoragePath,
			})
		}
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("folder_id = ?", folder.ID).Delete(&models.UserDocument{}).Error; err != nil {
			return err
		}
		return tx.Delete(folder).Error
	})
}

// BulkUploadUserDocuments streams every file to object storage, then
// inserts all metadata rows in a single transaction. On insert failure the
// batch rolls back and already-stored objects are removed best-effort;
// objects that survive removal are logged for manual cleanup and are
// unreachable through the system.
func (s *DocumentService) BulkUploadUserDocuments(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID, uploads []Upload, visibility ResolvedVisibility) ([]models.UserDocument, error) {
	docs := make([]models.UserDocument, 0, len(uploads))
	stored := make([]string, 0, len(uploads))

	for _, up := range uploads {
		stream, err := up.Open()
		if err != nil {
			s.cleanupStored(ctx, stored)
			return nil, err
		}

		objectName := "user-documents/" + ownerID.String() + "/" + uuid.New().String() + "/" + up.Filename
		err = s.Storage.Upload(ctx, objectName, stream, up.Size, up.ContentType)
		stream.Close()
		if err != nil {
			s.cleanupStored(ctx, stored)
			return nil, err
		}
		stored = append(stored, objectName)

		docs = append(docs, models.UserDocument{
			OwnerID:              ownerID,
			FolderID:             folderID,
			Filename:             up.Filename,
			StoragePath:          objectName,
			MimeType:             up.ContentType,
			Size:                 up.Size,
			DocumentType:         up.DocumentType,
			Visibility:           visibility.Mode,
			AllowedUserIDs:       visibility.AllowedUserIDs,
			AllowedRoles:         visibility.AllowedRoles,
			AllowedDepartmentIDs: visibility.AllowedDepartmentIDs,
		})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range docs {
			if err := tx.Create(&docs[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.cleanupStored(ctx, stored)
		return nil, err
	}

	return docs, nil
}

// BulkUploadEmployeeDocuments is the HR-side counterpart of
// BulkUploadUserDocuments, with the same rollback behavior.
func (s *DocumentService) BulkUploadEmployeeDocuments(ctx context.Context, employeeID uuid.UUID, uploads []Upload, visibility ResolvedVisibility) ([]models.EmployeeDocument, error) {
	docs := make([]models.EmployeeDocument, 0, len(uploads))
	stored := make([]string, 0, len(uploads))

	for _, up := range uploads {
		stream, err := up.Open()
		if err != nil {
			s.cleanupStored(ctx, stored)
			return nil, err
		}

		objectName := "employee-documents/" + employeeID.String() + "/" + uuid.New().String() + "/" + up.Filename
		err = s.Storage.Upload(ctx, objectName, stream, up.Size, up.ContentType)
		stream.Close()
		if err != nil {
			s.cleanupStored(ctx, stored)
			return nil, err
		}
		stored = append(stored, objectName)

		docs = append(docs, models.EmployeeDocument{
			EmployeeID:           employeeID,
			Filename:             up.Filename,
			StoragePath:          objectName,
			MimeType:             up.ContentType,
			Size:                 up.Size,
			DocumentType:         up.DocumentType,
			Visibility:           visibility.Mode,
			AllowedUserIDs:       visibility.AllowedUserIDs,
			AllowedRoles:         visibility.AllowedRoles,
			AllowedDepartmentIDs: visibility.AllowedDepartmentIDs,
		})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range docs {
			if err := tx.Create(&docs[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.cleanupStored(ctx, stored)
		return nil, err
	}

	return docs, nil
}

// DeleteEmployeeCascade removes an employee together with their HR
// documents, backing files included. The linked login account, if any,
// is untouched.
func (s *DocumentService) DeleteEmployeeCascade(ctx context.Context, employee *models.Employee) error {
	var docs []models.EmployeeDocument
	if err := s.DB.WithContext(ctx).Where("employee_id = ?", employee.ID).Find(&docs).Error; err != nil {
		return err
	}

	for i := range docs {
		if err := s.Storage.Delete(ctx, docs[i].StoragePath); err != nil {
			logger.Warn("employee_cascade_file_delete_failed", map[string]interface{}{
				"employee_id": employee.ID.String(),
				"document_id": docs[i].ID.String(),
				"object_name": docs[i].StoragePath,
			})
		}
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", employee.ID).Delete(&models.EmployeeDocument{}).Error; err != nil {
			return err
		}
		return tx.Delete(employee).Error
	})
}

func (s *DocumentService) cleanupStored(ctx context.Context, objectNames []string) {
	for _, name := range objectNames {
		if err := s.Storage.Delete(ctx, name); err != nil {
			logger.Warn("orphaned_file_on_rollback", map[string]interface{}{
				"object_name": name,
			})
		}
	}
}

// DeleteUserDocument removes the backing object and then the row. A
// storage failure is logged but does not keep the metadata alive.
func (s *DocumentService) DeleteUserDocument(ctx context.Context, doc *models.UserDocument) error {
	if err := s.Storage.Delete(ctx, doc.StoragePath); err != nil {
		logger.Warn("document_file_delete_failed", map[string]interface{}{
			"document_id": doc.ID.String(),
			"object_name": doc.StoragePath,
		})
	}
	return s.DB.WithContext(ctx).Delete(doc).Error
}

func (s *DocumentService) DeleteEmployeeDocument(ctx context.Context, doc *models.EmployeeDocument) error {
	if err := s.Storage.Delete(ctx, doc.StoragePath); err != nil {
		logger.Warn("document_file_delete_failed", map[string]interface{}{
			"document_id": doc.ID.String(),
			"object_name": doc.StoragePath,
		})
	}
	return s.DB.WithContext(ctx).Delete(doc).Error
}

// DeleteUserCascade removes a user together with their folders and
// documents, backing files included.
func (s *DocumentService) DeleteUserCascade(ctx context.Context, user *models.User) error {
	var docs []models.UserDocument
	if err := s.DB.WithContext(ctx).Where("owner_id = ?", user.ID).Find(&docs).Error; err != nil {
		return err
	}

	for i := range docs {
		if err := s.Storage.Delete(ctx, docs[i].StoragePath); err != nil {
			logger.Warn("user_cascade_file_delete_failed", map[string]interface{}{
				"user_id":     user.ID.String(),
				"document_id": docs[i].ID.String(),
				"object_name": docs[i].StoragePath,
			})
		}
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", user.ID).Delete(&models.UserDocument{}).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", user.ID).Delete(&models.Folder{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
}

// IsDuplicateKey detects unique-constraint violations across the postgres
// and sqlite dialects; not every driver translates to gorm.ErrDuplicatedKey.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
