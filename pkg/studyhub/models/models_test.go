package models

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) User {
	user := User{Email: username + "@example.com", Username: username, PasswordHash: "hash"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func createGroup(t *testing.T, db *gorm.DB, name string, owner User) StudyGroup {
	group := StudyGroup{Name: name, OwnerID: owner.ID}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	return group
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	tables := []string{"users", "study_groups", "memberships", "subjects", "study_sessions"}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestUserUniqueness(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "alice")
	if user.ID == 0 {
		t.Error("Expected user ID to be set after create")
	}

	dupEmail := User{Email: "alice@example.com", Username: "other", PasswordHash: "hash"}
	if err := db.Create(&dupEmail).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected ErrDuplicatedKey for duplicate email, got %v", err)
	}

	dupName := User{Email: "other@example.com", Username: "alice", PasswordHash: "hash"}
	if err := db.Create(&dupName).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected ErrDuplicatedKey for duplicate username, got %v", err)
	}
}

func TestGroupNameKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Math", "math"},
		{"  Algebra 101 ", "algebra 101"},
		{"already lower", "already lower"},
	}
	for _, tt := range tests {
		if got := GroupNameKey(tt.in); got != tt.want {
			t.Errorf("GroupNameKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGroupNameCaseInsensitiveUnique(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "alice")

	group := createGroup(t, db, "Math", owner)
	if group.NameKey != "math" {
		t.Errorf("Expected NameKey %q, got %q", "math", group.NameKey)
	}

	dup := StudyGroup{Name: "math", OwnerID: owner.ID}
	if err := db.Create(&dup).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected ErrDuplicatedKey for case-folded duplicate, got %v", err)
	}

	// NameKey follows renames
	group.Name = "Physics"
	if err := db.Save(&group).Error; err != nil {
		t.Fatalf("Failed to rename group: %v", err)
	}
	var reloaded StudyGroup
	db.First(&reloaded, group.ID)
	if reloaded.NameKey != "physics" {
		t.Errorf("Expected NameKey %q after rename, got %q", "physics", reloaded.NameKey)
	}
}

func TestMembershipRolePersistence(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "alice")
	group := createGroup(t, db, "Math", owner)

	m := Membership{UserID: owner.ID, GroupID: group.ID, Role: RoleCreator}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("Failed to create membership: %v", err)
	}

	var raw string
	db.Raw("SELECT role FROM memberships WHERE user_id = ? AND group_id = ?", owner.ID, group.ID).Scan(&raw)
	if raw != "Creator" {
		t.Errorf("Expected role stored as %q, got %q", "Creator", raw)
	}

	var loaded Membership
	if err := db.Where("user_id = ? AND group_id = ?", owner.ID, group.ID).First(&loaded).Error; err != nil {
		t.Fatalf("Failed to load membership: %v", err)
	}
	if loaded.Role != RoleCreator {
		t.Errorf("Expected RoleCreator, got %v", loaded.Role)
	}

	dup := Membership{UserID: owner.ID, GroupID: group.ID, Role: RoleMember}
	if err := db.Create(&dup).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected ErrDuplicatedKey for second membership, got %v", err)
	}
}

func TestSubjectUniquePerGroup(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "alice")
	math := createGroup(t, db, "Math", owner)
	physics := createGroup(t, db, "Physics", owner)

	if err := db.Create(&Subject{Name: "Algebra", GroupID: math.ID}).Error; err != nil {
		t.Fatalf("Failed to create subject: %v", err)
	}
	if err := db.Create(&Subject{Name: "Algebra", GroupID: math.ID}).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected ErrDuplicatedKey for duplicate subject, got %v", err)
	}
	if err := db.Create(&Subject{Name: "Algebra", GroupID: physics.ID}).Error; err != nil {
		t.Errorf("Same subject name in another group should be allowed: %v", err)
	}
	if err := db.Create(&Subject{Name: "algebra", GroupID: math.ID}).Error; err != nil {
		t.Errorf("Subject names are compared exactly: %v", err)
	}
}

func TestStudySessionConstraints(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "alice")
	group := createGroup(t, db, "Math", owner)
	subject := Subject{Name: "Algebra", GroupID: group.ID}
	db.Create(&subject)

	session := StudySession{
		Title:       "Linear equations",
		DateTime:    time.Date(2030, 1, 2, 15, 0, 0, 0, time.UTC),
		Duration:    60,
		Status:      SessionScheduled,
		SubjectID:   subject.ID,
		CreatedByID: owner.ID,
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	var loaded StudySession
	db.First(&loaded, session.ID)
	if loaded.Status != SessionScheduled {
		t.Errorf("Expected status %q, got %q", SessionScheduled, loaded.Status)
	}

	zero := session
	zero.ID = 0
	zero.Duration = 0
	if err := db.Create(&zero).Error; err == nil {
		t.Error("Expected error for zero duration")
	}

	bad := session
	bad.ID = 0
	bad.Status = "Postponed"
	if err := db.Create(&bad).Error; err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestRole(t *testing.T) {
	for _, r := range Roles {
		parsed, err := ParseRole(r.String())
		if err != nil || parsed != r {
			t.Errorf("ParseRole(%q) = %v, %v", r.String(), parsed, err)
		}
	}

	if _, err := ParseRole("admin"); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("Expected ErrUnknownRole for lowercase name, got %v", err)
	}
	if !RoleCreator.AtLeast(RoleAdmin) || RoleMember.AtLeast(RoleAdmin) {
		t.Error("Unexpected role ordering")
	}
	if Role(7).Valid() {
		t.Error("Role(7) should be invalid")
	}
	if _, err := Role(7).Value(); err == nil {
		t.Error("Expected error storing an invalid role")
	}

	var r Role
	if err := r.Scan([]byte("Admin")); err != nil || r != RoleAdmin {
		t.Errorf("Scan([]byte) = %v, %v", r, err)
	}
	if err := r.Scan(int64(1)); err == nil {
		t.Error("Expected error scanning an integer")
	}
}

func TestSessionStatusScan(t *testing.T) {
	var s SessionStatus
	if err := s.Scan("In Progress"); err != nil || s != SessionInProgress {
		t.Errorf("Scan(string) = %q, %v", s, err)
	}
	if err := s.Scan([]byte("Cancelled")); err != nil || s != SessionCancelled {
		t.Errorf("Scan([]byte) = %q, %v", s, err)
	}
	if err := s.Scan("Unknown"); !errors.Is(err, ErrUnknownSessionStatus) {
		t.Errorf("Expected ErrUnknownSessionStatus, got %v", err)
	}
}
