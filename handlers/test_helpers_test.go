package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/Faaiz-uddin/CloudDrive/mailer"
)

var loggerOnce sync.Once

// testTime returns a fixed timestamp for row fixtures
func testTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

// TestContext holds common test dependencies
type TestContext struct {
	DB       *sql.DB
	Mock     sqlmock.Sqlmock
	Echo     *echo.Echo
	Recorder *httptest.ResponseRecorder
}

// SetupTest creates a new test context with a mocked database
func SetupTest(t *testing.T) *TestContext {
	t.Helper()

	loggerOnce.Do(func() { InitLogger(true) })

	// Set JWT secret for tests
	os.Setenv("JWT_SECRET", "test-jwt-secret-for-testing-only-32chars")

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	e := echo.New()
	rec := httptest.NewRecorder()

	return &TestContext{
		DB:       db,
		Mock:     mock,
		Echo:     e,
		Recorder: rec,
	}
}

// Cleanup closes the database connection
func (tc *TestContext) Cleanup() {
	tc.DB.Close()
}

// NewJSONRequest creates a new HTTP request with JSON body
func NewJSONRequest(method, path string, body interface{}) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	} else {
		bodyReader = bytes.NewReader([]byte{})
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, nil
}

// NewMultipartRequest creates an upload request with a category field and
// one file part.
func NewMultipartRequest(path, category, filename string, content []byte) (*http.Request, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("category", category); err != nil {
		return nil, err
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req, nil
}

// ParseJSONResponse parses the response body as JSON
func ParseJSONResponse(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}

// AssertStatus checks if the response status code matches expected
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rec.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, rec.Code, rec.Body.String())
	}
}

// AssertJSONError checks if the response contains an error field with expected message
func AssertJSONError(t *testing.T, rec *httptest.ResponseRecorder, expectedError string) {
	t.Helper()
	var resp map[string]interface{}
	if err := ParseJSONResponse(rec, &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	errMsg, ok := resp["error"].(string)
	if !ok {
		t.Errorf("Response does not contain 'error' field. Response: %v", resp)
		return
	}

	if errMsg != expectedError {
		t.Errorf("Expected error '%s', got '%s'", expectedError, errMsg)
	}
}

// fakeMailer records outgoing mail instead of sending it
type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (f *fakeMailer) Send(email mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeMailer) Sent() []mailer.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Email{}, f.sent...)
}

// NewTestLimiter builds a limiter backed only by the local cache
func NewTestLimiter() *LoginLimiter {
	return &LoginLimiter{
		config:       DefaultLoginLimiterConfig(),
		keyPrefix:    "cd:login:",
		redisEnabled: false,
	}
}

// CreateTestAuthHandler creates an AuthHandler with a mocked database,
// a recording mailer, no settings handler and a local-only limiter
func CreateTestAuthHandler(db *sql.DB) (*AuthHandler, *fakeMailer) {
	mail := &fakeMailer{}
	return &AuthHandler{
		db:        db,
		jwtSecret: []byte("test-jwt-secret-for-testing-only-32chars"),
		mail:      mail,
		limiter:   NewTestLimiter(),
	}, mail
}

// CreateAuthenticatedContext creates an echo.Context with JWT claims set
func CreateAuthenticatedContext(e *echo.Echo, rec *httptest.ResponseRecorder, req *http.Request, userID, email, role string) echo.Context {
	c := e.NewContext(req, rec)
	claims := &JWTClaims{
		UserID: userID,
		Name:   "Test User",
		Email:  email,
		Role:   role,
	}
	claims.ID = "test-token-id"
	c.Set("user", claims)
	return c
}
