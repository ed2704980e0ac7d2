package handlers

import (
	"io"
	"net/http"
	"testing"

	"github.com/hrdesk/backend/internal/models"
)

func uploadOneDocument(t *testing.T, env *testEnv, token string, fields map[string]string) models.UserDocument {
	t.Helper()

	resp := performUpload(t, env.app, "/api/documents/upload", token, map[string]string{"report.txt": "contents"}, fields)
	assertStatus(t, resp, http.StatusCreated)
	body := decodeJSONMap(t, resp)
	items := dataSlice(t, body)
	if len(items) != 1 {
		t.Fatalf("expected 1 uploaded document, got %d", len(items))
	}

	var doc models.UserDocument
	id, _ := items[0].(map[string]any)["id"].(string)
	if err := env.db.First(&doc, "id = ?", id).Error; err != nil {
		t.Fatalf("failed loading uploaded document: %v", err)
	}
	return doc
}

func TestDocumentUploadRequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	resp := performRequest(t, env.app, http.MethodPost, "/api/documents/upload", nil, nil)
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestDocumentUploadDefaultsToPrivate(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "alice@hrdesk.local", models.RoleEmployee)

	doc := uploadOneDocument(t, env, token, nil)
	if doc.Visibility != models.VisibilityPrivate {
		t.Fatalf("visibility = %q, want private", doc.Visibility)
	}
	if doc.Filename != "report.txt" {
		t.Fatalf("filename = %q", doc.Filename)
	}
}

func TestDocumentUploadRejectsUnknownVisibility(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "alice@hrdesk.local", models.RoleEmployee)

	resp := performUpload(t, env.app, "/api/documents/upload", token, map[string]string{"report.txt": "contents"}, map[string]string{"visibility": "everyone"})
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestDocumentUploadEmployeeSharedIsRestricted(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "alice@hrdesk.local", models.RoleEmployee)

	doc := uploadOneDocument(t, env, token, map[string]string{"visibility": "shared"})
	if doc.Visibility != models.VisibilityRoles {
		t.Fatalf("visibility = %q, want roles", doc.Visibility)
	}
	if !doc.AllowedRoles.Contains(models.RoleGeneralDirector) || !doc.AllowedRoles.Contains(models.RoleITManager) {
		t.Fatalf("allowed roles = %v", doc.AllowedRoles)
	}
}

func TestDocumentUploadManagerSharedStaysShared(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "mark@hrdesk.local", models.RoleManager)

	doc := uploadOneDocument(t, env, token, map[string]string{"visibility": "shared"})
	if doc.Visibility != models.VisibilityShared {
		t.Fatalf("visibility = %q, want shared", doc.Visibility)
	}
}

func TestDocumentUploadIntoForeignFolderForbidden(t *testing.T) {
	env := setupTestEnv(t)
	_, aliceToken := createTestUser(t, env.db, "alice@hrdesk.local", models.RoleEmployee)
	bob, _ := createTestUser(t, env.db, "bob@hrdesk.local", models.RoleEmployee)

	folder := models.Folder{Name: "Contracts", OwnerID: bob.ID}
	if err := env.db.Create(&folder).Error; err != nil {
		t.Fatalf("failed creating folder: %v", err)
	}

	resp := performUpload(t, env.app, "/api/documents/upload", aliceToken,
		map[string]string{"report.txt": "contents"},
		map[string]string{"folderID": folder.ID.String()})
	assertStatus(t, resp, http.StatusForbidden)
}

func TestDocumentListFiltersByVisibility(t *testing.T) {
	env := setupTestEnv(t)
	_, aliceToken := createTestUser(t, env.db, "alice@hrdesk.local", models.RoleEmployee)
	_, bobToken := createTestUser(t, env.db, "bob@hrdesk.local", models.RoleManager)

	uploadOneDocument(t, env, aliceToken, nil)                                                    // private to alice
	uploadOneDocument(t, env, aliceToken, map[string]string{"visibility": "shared"})              // becomes roles: privileged only
	uploadOneDocument(t, env, bobToken, map[string]string{"visibility": "shared"})                // shared with everyone
	uploadOneDocument(t, env, bobToken, map[string]string{"visibility": "roles", "allowedRoles": "manager"}) // bob's role list

	// Alice reads her private doc and bob's shared doc. Her restricted
	// doc ended up in roles mode and her own role is not listed, so she
	// cannot read it back.
	resp := performRequest(t, env.app, http.MethodGet, "/api/documents/", nil, authHeaders(aliceToken))
	assertStatus(t, resp, http.StatusOK)
	items := dataSlice(t, decodeJSONMap(t, resp))
	if len(items) != 2 {
		t.Fatalf("alice sees %d documents, want 2", len(items))
	}

	// Bob reads his shared doc and his roles doc, nothing of alice's.
	resp = performRequest(t, env.app, http.MethodGet, "/api/documents/", nil, authHeaders(bobToken))
	assertStatus(t, resp, http.StatusOK)
	items = dataSlice(t, decodeJSONMap(t, resp))
	if len(items) != 2 {
		t.Fatalf("bob sees %d documents, want 2", len(items))
	}
}

func TestDocumentDownload(t *testing.T) {
	env := setupTestEnv(t)
	_, aliceToken := createTestUser(t, env.db, "alice@hrdesk.local", models.RoleEmployee)
	_, bobToken := createTestUser(t, env.db, "bob@hrdesk.local", models.RoleManager)

	doc := uploadOneDocument(t, env, aliceToken, nil)

	resp := performRequest(t, env.app, http.MethodGet, "/api/documents/"+doc.ID.String()+"/download", nil, authHeaders(aliceToken))
	assertStatus(t, resp, http.StatusOK)
	payload, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(payload) != "contents" {
		t.Fatalf("downloaded body = %q", payload)
	}

	resp = performRequest(t, env.app, http.MethodGet, "/api/documents/"+doc.ID.String()+"/download", nil, authHeaders(bobToken))
	assertStatus(t, resp, http.StatusForbidden)
}

func TestDocumentDownloadURL(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "alice@hrdesk.local", models.RoleEmployee)

	doc := uploadOneDocument(t, env, token, nil)

	resp := performRequest(t, env.app, http.MethodGet, "/api/documents/"+doc.ID.String()+"/download-url", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	if url, _ := data["url"].(string); url == "" {
		t.Fatalf("expected presigned url, got %+v", body)
	}
}

func TestDocumentUpdateVisibility(t *testing.T) {
	env := setupTestEnv(t)
	alice, aliceToken := createTestUser(t, env.db, "alice@hrdesk.local", models.RoleEmployee)
	_, bobToken := createTestUser(t, env.db, "bob@hrdesk.local", models.RoleManager)
	_, itToken := createTestUser(t, env.db, "it@hrdesk.local", models.RoleITManager)

	doc := uploadOneDocument(t, env, aliceToken, nil)
	path := "/api/documents/" + doc.ID.String() + "/visibility"

	// A non-owner without privilege cannot change visibility.
	resp := performJSONRequest(t, env.app, http.MethodPut, path, map[string]any{"visibility": "shared"}, authHeaders(bobToken))
	assertStatus(t, resp, http.StatusForbidden)

	// The owner can.
	resp = performJSONRequest(t, env.app, http.MethodPut, path, map[string]any{
		"visibility":     "users",
		"allowedUserIDs": []string{alice.ID.String()},
	}, authHeaders(aliceToken))
	assertStatus(t, resp, http.StatusOK)

	var updated models.UserDocument
	if err := env.db.First(&updated, "id = ?", doc.ID).Error; err != nil {
		t.Fatalf("failed reloading document: %v", err)
	}
	if updated.Visibility != models.VisibilityUsers || len(updated.AllowedUserIDs) != 1 {
		t.Fatalf("visibility = %q, allowed = %v", updated.Visibility, updated.AllowedUserIDs)
	}

	// A privileged role can too.
	resp = performJSONRequest(t, env.app, http.MethodPut, path, map[string]any{"visibility": "private"}, authHeaders(itToken))
	assertStatus(t, resp, http.StatusOK)
}

func TestDocumentDelete(t *testing.T) {
	env := setupTestEnv(t)
	_, aliceToken := createTestUser(t, env.db, "alice@hrdesk.local", models.RoleEmployee)
	_, bobToken := createTestUser(t, env.db, "bob@hrdesk.local", models.RoleGeneralManager)
	_, directorToken := createTestUser(t, env.db, "dir@hrdesk.local", models.RoleGeneralDirector)

	doc := uploadOneDocument(t, env, aliceToken, map[string]string{"visibility": "shared"})

	// Readable is not deletable: a general manager can read the shared
	// document but cannot remove it.
	resp := performRequest(t, env.app, http.MethodDelete, "/api/documents/"+doc.ID.String(), nil, authHeaders(bobToken))
	assertStatus(t, resp, http.StatusForbidden)

	// A privileged role can delete any document.
	resp = performRequest(t, env.app, http.MethodDelete, "/api/documents/"+doc.ID.String(), nil, authHeaders(directorToken))
	assertStatus(t, resp, http.StatusOK)

	var count int64
	env.db.Model(&models.UserDocument{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected document removed, %d remain", count)
	}

	// Owner delete on a fresh document.
	doc = uploadOneDocument(t, env, aliceToken, nil)
	resp = performRequest(t, env.app, http.MethodDelete, "/api/documents/"+doc.ID.String(), nil, authHeaders(aliceToken))
	assertStatus(t, resp, http.StatusOK)
}

func TestDocumentDeleteNotFound(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "alice@hrdesk.local", models.RoleEmployee)

	resp := performRequest(t, env.app, http.MethodDelete, "/api/documents/00000000-0000-0000-0000-000000000001", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusNotFound)

	resp = performRequest(t, env.app, http.MethodDelete, "/api/documents/not-a-uuid", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusBadRequest)
}
