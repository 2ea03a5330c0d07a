package subjects

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/studyhub/pkg/studyhub/auth"
	"github.com/mikepea/studyhub/pkg/studyhub/database"
	"github.com/mikepea/studyhub/pkg/studyhub/membership"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
	"gorm.io/gorm"
)

var tokens = auth.NewTokenService("subjects-test-secret")

type fixture struct {
	db      *gorm.DB
	router  *gin.Engine
	group   models.StudyGroup
	users   map[models.Role]models.User
	outside models.User
}

func setup(t *testing.T) *fixture {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	f := &fixture{db: db, users: map[models.Role]models.User{}}
	for _, role := range models.Roles {
		f.users[role] = createUser(t, db, role.String())
	}
	f.outside = createUser(t, db, "outsider")

	f.group = models.StudyGroup{Name: "Algebra", OwnerID: f.users[models.RoleCreator].ID}
	if err := db.Create(&f.group).Error; err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	reg := membership.NewRegistry(db)
	for role, user := range f.users {
		if _, err := reg.Create(context.Background(), user.ID, f.group.ID, role); err != nil {
			t.Fatalf("Failed to create membership: %v", err)
		}
	}

	gin.SetMode(gin.TestMode)
	f.router = gin.New()
	protected := f.router.Group("/study-groups")
	protected.Use(auth.AuthMiddleware(tokens, db))
	NewHandler(NewService(db)).RegisterRoutes(protected)
	return f
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	user := models.User{Email: username + "@example.com", Username: username, PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func (f *fixture) do(method, path string, body interface{}, user models.User) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	token, _ := tokens.Issue(user.Username, user.ID)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func (f *fixture) subjectsPath() string {
	return fmt.Sprintf("/study-groups/%d/subjects", f.group.ID)
}

func TestCreateSubjectPermissions(t *testing.T) {
	f := setup(t)

	cases := []struct {
		user   models.User
		name   string
		status int
	}{
		{f.users[models.RoleMember], "By Member", http.StatusForbidden},
		{f.outside, "By Outsider", http.StatusForbidden},
		{f.users[models.RoleAdmin], "By Admin", http.StatusCreated},
		{f.users[models.RoleCreator], "By Creator", http.StatusCreated},
	}
	for _, tc := range cases {
		resp := f.do("POST", f.subjectsPath(), CreateSubjectRequest{Name: tc.name}, tc.user)
		if resp.Code != tc.status {
			t.Errorf("%s: expected status %d, got %d: %s", tc.name, tc.status, resp.Code, resp.Body.String())
		}
	}

	resp := f.do("POST", "/study-groups/999/subjects", CreateSubjectRequest{Name: "Nowhere"}, f.users[models.RoleCreator])
	if resp.Code != http.StatusNotFound {
		t.Errorf("Missing group: expected status 404, got %d", resp.Code)
	}
}

func TestCreateSubjectDuplicate(t *testing.T) {
	f := setup(t)
	creator := f.users[models.RoleCreator]

	if resp := f.do("POST", f.subjectsPath(), CreateSubjectRequest{Name: "Matrices"}, creator); resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.Code)
	}

	resp := f.do("POST", f.subjectsPath(), CreateSubjectRequest{Name: "Matrices"}, creator)
	if resp.Code != http.StatusConflict {
		t.Errorf("Exact duplicate: expected status 409, got %d", resp.Code)
	}
	var payload map[string]string
	json.Unmarshal(resp.Body.Bytes(), &payload)
	if payload["error"] != "Duplicate subject is not allowed." {
		t.Errorf("Unexpected message %q", payload["error"])
	}

	// Uniqueness is exact, so a different case is a different subject
	if resp := f.do("POST", f.subjectsPath(), CreateSubjectRequest{Name: "matrices"}, creator); resp.Code != http.StatusCreated {
		t.Errorf("Different case: expected status 201, got %d", resp.Code)
	}

	// The same name in another group is allowed
	other := models.StudyGroup{Name: "Physics", OwnerID: creator.ID}
	f.db.Create(&other)
	membership.NewRegistry(f.db).Create(context.Background(), creator.ID, other.ID, models.RoleCreator)
	path := fmt.Sprintf("/study-groups/%d/subjects", other.ID)
	if resp := f.do("POST", path, CreateSubjectRequest{Name: "Matrices"}, creator); resp.Code != http.StatusCreated {
		t.Errorf("Other group: expected status 201, got %d", resp.Code)
	}
}

func TestCreateSubjectValidation(t *testing.T) {
	f := setup(t)
	resp := f.do("POST", f.subjectsPath(), CreateSubjectRequest{Name: "ab"}, f.users[models.RoleCreator])
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", resp.Code)
	}
}

func TestListSubjects(t *testing.T) {
	f := setup(t)
	creator := f.users[models.RoleCreator]
	f.do("POST", f.subjectsPath(), CreateSubjectRequest{Name: "Vectors"}, creator)
	f.do("POST", f.subjectsPath(), CreateSubjectRequest{Name: "Matrices"}, creator)

	resp := f.do("GET", f.subjectsPath(), nil, f.users[models.RoleMember])
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var subjects []SubjectResponse
	json.Unmarshal(resp.Body.Bytes(), &subjects)
	if len(subjects) != 2 || subjects[0].Name != "Matrices" || subjects[0].GroupID != f.group.ID {
		t.Errorf("Unexpected subjects %+v", subjects)
	}

	if resp := f.do("GET", f.subjectsPath(), nil, f.outside); resp.Code != http.StatusForbidden {
		t.Errorf("Outsider: expected status 403, got %d", resp.Code)
	}
}

func TestDeleteSubject(t *testing.T) {
	f := setup(t)
	creator := f.users[models.RoleCreator]

	subject := models.Subject{Name: "Matrices", GroupID: f.group.ID}
	f.db.Create(&subject)
	f.db.Create(&models.StudySession{
		Title: "Intro", DateTime: time.Now(), Duration: 45,
		Status: models.SessionScheduled, SubjectID: subject.ID, CreatedByID: creator.ID,
	})
	path := fmt.Sprintf("%s/%d", f.subjectsPath(), subject.ID)

	if resp := f.do("DELETE", path, nil, f.users[models.RoleMember]); resp.Code != http.StatusForbidden {
		t.Errorf("Member: expected status 403, got %d", resp.Code)
	}

	if resp := f.do("DELETE", path, nil, f.users[models.RoleAdmin]); resp.Code != http.StatusNoContent {
		t.Fatalf("Admin: expected status 204, got %d", resp.Code)
	}

	var count int64
	f.db.Model(&models.StudySession{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected sessions removed with subject, got %d", count)
	}

	if resp := f.do("DELETE", path, nil, creator); resp.Code != http.StatusNotFound {
		t.Errorf("Second delete: expected status 404, got %d", resp.Code)
	}
}

func TestSubjectOfAnotherGroupIsNotFound(t *testing.T) {
	f := setup(t)
	creator := f.users[models.RoleCreator]

	other := models.StudyGroup{Name: "Physics", OwnerID: f.outside.ID}
	f.db.Create(&other)
	foreign := models.Subject{Name: "Optics", GroupID: other.ID}
	f.db.Create(&foreign)

	path := fmt.Sprintf("%s/%d", f.subjectsPath(), foreign.ID)
	resp := f.do("DELETE", path, nil, creator)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}

	var count int64
	f.db.Model(&models.Subject{}).Where("id = ?", foreign.ID).Count(&count)
	if count != 1 {
		t.Error("Subject of another group must not be deleted")
	}
}

func TestCreateSubjectNameCountsCharacters(t *testing.T) {
	f := setup(t)
	creator := f.users[models.RoleCreator]

	if resp := f.do("POST", f.subjectsPath(), CreateSubjectRequest{Name: strings.Repeat("ü", 200)}, creator); resp.Code != http.StatusCreated {
		t.Errorf("200 characters: expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp := f.do("POST", f.subjectsPath(), CreateSubjectRequest{Name: " üü "}, creator); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("2 characters after trim: expected status 422, got %d", resp.Code)
	}
}
