package handlers

import (
	"strings"

	"github.com/google/uuid"
	"github.com/hrdesk/backend/internal/models"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// parseUUIDList accepts a comma-separated list of ids, as submitted by the
// visibility forms. Empty entries are skipped; a malformed id fails the
// whole list.
func parseUUIDList(raw string) (models.UUIDList, error) {
	var out models.UUIDList
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// parseUUIDStrings is the JSON-body counterpart of parseUUIDList.
func parseUUIDStrings(values []string) (models.UUIDList, error) {
	var out models.UUIDList
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func parseRoleList(raw string) models.RoleList {
	var out models.RoleList
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, models.NormalizeRole(part))
	}
	return out
}
