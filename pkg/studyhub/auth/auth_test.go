package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mikepea/studyhub/pkg/studyhub/database"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func setupTestRouter(db *gorm.DB, tokens *TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	credentials := NewCredentialStore(db, NewBcryptHasher(bcrypt.MinCost))
	handler := NewHandler(db, credentials, tokens)
	handler.RegisterRoutes(r.Group("/auth"))

	r.GET("/whoami", AuthMiddleware(tokens, db), func(c *gin.Context) {
		identity, _ := GetIdentity(c)
		c.JSON(http.StatusOK, identity)
	})
	return r
}

// fakeClock is a settable time source
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func register(t *testing.T, router *gin.Engine, email, username, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(RegisterRequest{Email: email, Username: username, Password: password})
	req, _ := http.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func login(router *gin.Engine, username, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}}
	req, _ := http.NewRequest("POST", "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPasswordHashing(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	password := "testpassword123"

	hash, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if hash == password {
		t.Error("Hash should not equal plain password")
	}

	if !hasher.Verify(password, hash) {
		t.Error("Verify should return true for correct password")
	}

	if hasher.Verify("wrongpassword", hash) {
		t.Error("Verify should return false for incorrect password")
	}

	again, _ := hasher.Hash(password)
	if again == hash {
		t.Error("Hashes of the same password should be salted differently")
	}
}

func TestBcryptHasherCostFallback(t *testing.T) {
	if got := NewBcryptHasher(0).Cost; got != bcrypt.DefaultCost {
		t.Errorf("Expected default cost, got %d", got)
	}
	if got := NewBcryptHasher(bcrypt.MinCost).Cost; got != bcrypt.MinCost {
		t.Errorf("Expected min cost, got %d", got)
	}
}

func TestJWTToken(t *testing.T) {
	tokens := NewTokenService(testSecret)
	token, err := tokens.Issue("alice", 7)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	identity, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if identity != (Identity{Username: "alice", UserID: 7}) {
		t.Errorf("Unexpected identity %+v", identity)
	}
}

func TestTokenExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	tokens := NewTokenService(testSecret, WithClock(clock.Now))

	token, err := tokens.Issue("alice", 1)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	clock.now = clock.now.Add(DefaultTokenTTL - time.Second)
	if _, err := tokens.Validate(token); err != nil {
		t.Fatalf("Token should still be valid: %v", err)
	}

	clock.now = clock.now.Add(time.Second)
	if _, err := tokens.Validate(token); err != ErrExpiredToken {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, _ := NewTokenService("one-secret").Issue("alice", 1)
	if _, err := NewTokenService("another-secret").Validate(token); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestInvalidToken(t *testing.T) {
	tokens := NewTokenService(testSecret)
	for _, raw := range []string{"", "invalid-token", "a.b.c"} {
		if _, err := tokens.Validate(raw); err != ErrInvalidToken {
			t.Errorf("Validate(%q): expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestTokenMissingClaims(t *testing.T) {
	tokens := NewTokenService(testSecret)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))
	uid := uint(3)

	cases := map[string]*Claims{
		"missing subject": {UserID: &uid, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}},
		"missing user_id": {RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", ExpiresAt: exp}},
		"missing exp":     {UserID: &uid, RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}},
	}
	for name, claims := range cases {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("%s: sign failed: %v", name, err)
		}
		if _, err := tokens.Validate(signed); err != ErrInvalidToken {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	uid := uint(1)
	claims := &Claims{UserID: &uid, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if _, err := NewTokenService(testSecret).Validate(signed); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for HS512, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, NewTokenService(testSecret))

	resp := register(t, router, "test@example.com", "tester", "password123")
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response UserResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.ID == 0 || response.Email != "test@example.com" || response.Username != "tester" {
		t.Errorf("Unexpected response %+v", response)
	}
	if response.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}
	if strings.Contains(resp.Body.String(), "password") {
		t.Error("Response must not include password data")
	}

	var user models.User
	db.First(&user, response.ID)
	if user.PasswordHash == "password123" || user.PasswordHash == "" {
		t.Error("Expected stored password to be hashed")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, NewTokenService(testSecret))

	register(t, router, "test@example.com", "tester", "password123")

	if resp := register(t, router, "test@example.com", "other", "password123"); resp.Code != http.StatusBadRequest {
		t.Errorf("Duplicate email: expected status 400, got %d", resp.Code)
	}
	if resp := register(t, router, "other@example.com", "tester", "password123"); resp.Code != http.StatusBadRequest {
		t.Errorf("Duplicate username: expected status 400, got %d", resp.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, NewTokenService(testSecret))

	cases := []RegisterRequest{
		{Email: "not-an-email", Username: "tester", Password: "password123"},
		{Email: "test@example.com", Username: "ab", Password: "password123"},
		{Email: "test@example.com", Username: "tester", Password: ""},
		{Email: "test@example.com", Username: "  ab  ", Password: "password123"},
	}
	for _, c := range cases {
		if resp := register(t, router, c.Email, c.Username, c.Password); resp.Code != http.StatusUnprocessableEntity {
			t.Errorf("%+v: expected status 422, got %d", c, resp.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenService(testSecret)
	router := setupTestRouter(db, tokens)

	register(t, router, "test@example.com", "tester", "password123")

	resp := login(router, "tester", "password123")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response TokenResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.TokenType != "bearer" {
		t.Errorf("Expected token_type bearer, got %s", response.TokenType)
	}
	identity, err := tokens.Validate(response.AccessToken)
	if err != nil {
		t.Fatalf("Issued token did not validate: %v", err)
	}
	if identity.Username != "tester" || identity.UserID == 0 {
		t.Errorf("Unexpected identity %+v", identity)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, NewTokenService(testSecret))

	register(t, router, "test@example.com", "tester", "password123")

	wrong := login(router, "tester", "wrongpassword")
	unknown := login(router, "nobody", "password123")

	for _, resp := range []*httptest.ResponseRecorder{wrong, unknown} {
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", resp.Code)
		}
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Errorf("Unknown user and wrong password must look the same: %s vs %s", wrong.Body.String(), unknown.Body.String())
	}
}

func TestMiddleware(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenService(testSecret)
	router := setupTestRouter(db, tokens)

	register(t, router, "test@example.com", "tester", "password123")
	var user models.User
	db.Where("username = ?", "tester").First(&user)

	valid, _ := tokens.Issue(user.Username, user.ID)
	expired, _ := tokens.IssueWithTTL(user.Username, user.ID, -time.Minute)
	ghost, _ := tokens.Issue("ghost", user.ID+100)

	cases := map[string]struct {
		header string
		status int
	}{
		"valid":          {"Bearer " + valid, http.StatusOK},
		"lowercase":      {"bearer " + valid, http.StatusOK},
		"missing header": {"", http.StatusUnauthorized},
		"wrong scheme":   {"Basic " + valid, http.StatusUnauthorized},
		"garbage":        {"Bearer garbage", http.StatusUnauthorized},
		"expired":        {"Bearer " + expired, http.StatusUnauthorized},
		"deleted user":   {"Bearer " + ghost, http.StatusUnauthorized},
	}

	for name, tc := range cases {
		req, _ := http.NewRequest("GET", "/whoami", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != tc.status {
			t.Errorf("%s: expected status %d, got %d", name, tc.status, resp.Code)
		}
		if tc.status == http.StatusUnauthorized && resp.Body.String() != `{"error":"Authentication failed!"}` {
			t.Errorf("%s: expected generic message, got %s", name, resp.Body.String())
		}
	}
}

func TestNormalizePassword(t *testing.T) {
	store := NewCredentialStore(nil, NewBcryptHasher(bcrypt.MinCost))
	hash, err := store.Hash(" secret1 ")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	user := &models.User{PasswordHash: hash}
	for _, pw := range []string{"secret1", " secret1 ", "\tsecret1\n"} {
		if !store.Verify(user, pw) {
			t.Errorf("Verify(%q) should succeed", pw)
		}
	}
	if store.Verify(user, "secret") {
		t.Error("Verify should reject a different password")
	}
}

func TestMiddlewareStoreFailure(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenService(testSecret)
	router := setupTestRouter(db, tokens)

	register(t, router, "test@example.com", "tester", "password123")
	var user models.User
	db.Where("username = ?", "tester").First(&user)
	token, _ := tokens.Issue(user.Username, user.ID)

	if err := database.Close(db); err != nil {
		t.Fatalf("Failed to close database: %v", err)
	}

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500 when the store is unavailable, got %d", resp.Code)
	}
}
