package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"homeguard/internal/auth"
	"homeguard/internal/http/middleware"
	"homeguard/internal/model"
	"homeguard/internal/service"
	serviceMocks "homeguard/internal/service/mocks"
)

type readyFlag bool

func (r readyFlag) Ready() bool { return bool(r) }

// withUser attaches a user identity the way middleware.Auth does.
func withUser(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.IdentityLocalKey, auth.Identity{UserID: id, Email: id + "@example.com"})
		return c.Next()
	}
}

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.RequestID())
	return app
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	t.Run("healthy", func(t *testing.T) {
		app := newApp()
		app.Get("/health", HealthCheck(db, readyFlag(true)))
		dbMock.ExpectPing().WillReturnError(nil)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("database down", func(t *testing.T) {
		app := newApp()
		app.Get("/health", HealthCheck(db, readyFlag(true)))
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
		assert.Equal(t, "error", body.Status)
		assert.NotEmpty(t, body.RequestID)
	})

	t.Run("storage initializing", func(t *testing.T) {
		app := newApp()
		app.Get("/health", HealthCheck(db, readyFlag(false)))
		dbMock.ExpectPing().WillReturnError(nil)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "storage initializing", decodeError(t, resp).Error.Message)
	})

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMocks func(m *serviceMocks.MockUserService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "success",
			body: `{"email":"a@x.com","password":"pw1"}`,
			setupMocks: func(m *serviceMocks.MockUserService) {
				m.On("Signup", mock.Anything, "a@x.com", "pw1").Return(&service.AuthResult{Token: "tok", Email: "a@x.com"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "email taken",
			body: `{"email":"a@x.com","password":"pw1"}`,
			setupMocks: func(m *serviceMocks.MockUserService) {
				m.On("Signup", mock.Anything, "a@x.com", "pw1").Return(nil, service.ErrEmailTaken)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "EMAIL_TAKEN",
		},
		{
			name: "missing fields",
			body: `{"email":""}`,
			setupMocks: func(m *serviceMocks.MockUserService) {
				m.On("Signup", mock.Anything, "", "").Return(nil, service.ErrInvalidInput)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "malformed json",
			body:       `{"email":`,
			setupMocks: func(m *serviceMocks.MockUserService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name: "store failure",
			body: `{"email":"a@x.com","password":"pw1"}`,
			setupMocks: func(m *serviceMocks.MockUserService) {
				m.On("Signup", mock.Anything, "a@x.com", "pw1").Return(nil, errors.New("conn refused"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(serviceMocks.MockUserService)
			tt.setupMocks(m)
			app := newApp()
			app.Post("/auth/signup", Signup(m))

			resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/signup", tt.body))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				body := decodeError(t, resp)
				assert.Equal(t, tt.wantCode, body.Error.Code)
				assert.NotContains(t, body.Error.Message, "conn refused")
			} else {
				var body authResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "tok", body.Token)
				assert.Equal(t, "a@x.com", body.Email)
				assert.Equal(t, "User created successfully", body.Message)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestLogin(t *testing.T) {
	m := new(serviceMocks.MockUserService)
	app := newApp()
	app.Post("/auth/login", Login(m))

	t.Run("success", func(t *testing.T) {
		m.On("Login", mock.Anything, "a@x.com", "pw1").Return(&service.AuthResult{Token: "tok2", Email: "a@x.com"}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"pw1"}`))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body authResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Logged in successfully", body.Message)
	})

	t.Run("bad credentials", func(t *testing.T) {
		m.On("Login", mock.Anything, "a@x.com", "nope").Return(nil, service.ErrInvalidCredentials).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"nope"}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "INVALID_CREDENTIALS", body.Error.Code)
		assert.Equal(t, "Invalid Email/Password", body.Error.Message)
	})

	m.AssertExpectations(t)
}

func TestVerifyTokenAndLogout(t *testing.T) {
	m := new(serviceMocks.MockUserService)
	last := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.On("Profile", mock.Anything, "u1").Return(&model.UserProfile{
		User:  model.User{ID: "u1", Email: "u1@example.com", LastLogin: &last},
		Files: []string{"f1"},
	}, nil)

	app := newApp()
	app.Post("/verify-user", withUser("u1"), VerifyToken(m))
	app.Post("/verify-person", func(c *fiber.Ctx) error {
		c.Locals(middleware.IdentityLocalKey, auth.Identity{RecognizedName: "Alice"})
		return c.Next()
	}, VerifyToken(m))
	app.Post("/logout", Logout())

	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/verify-user", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var user struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, "u1@example.com", user.User["email"])
	assert.Equal(t, []any{"f1"}, user.User["files"])
	assert.NotContains(t, user.User, "PasswordHash")

	resp, _ = app.Test(httptest.NewRequest(http.MethodPost, "/verify-person", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"user":{"recognizedName":"Alice"}}`, string(b))

	resp, _ = app.Test(httptest.NewRequest(http.MethodPost, "/logout", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVerifyToken_ProfileMissing(t *testing.T) {
	m := new(serviceMocks.MockUserService)
	m.On("Profile", mock.Anything, "gone").Return(nil, service.ErrNotFound)
	app := newApp()
	app.Post("/verify", withUser("gone"), VerifyToken(m))

	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/verify", nil))

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.Equal(t, "User not found", body.Error.Message)
	m.AssertExpectations(t)
}

func multipartUpload(t *testing.T, path, field, name string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func TestUploadFile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := new(serviceMocks.MockFileService)
		m.On("Upload", mock.Anything, "u1", mock.Anything, "cat.jpg", "application/octet-stream", int64(4)).
			Return(&model.BlobFile{ID: "f1", Filename: "1700000000000-cat.jpg"}, nil)
		app := newApp()
		app.Post("/upload", withUser("u1"), UploadFile(m))

		resp, _ := app.Test(multipartUpload(t, "/upload", "file", "cat.jpg", []byte("meow")))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body uploadResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "f1", body.FileID)
		assert.Equal(t, "1700000000000-cat.jpg", body.Filename)
		assert.Equal(t, "File uploaded successfully", body.Message)
		m.AssertExpectations(t)
	})

	t.Run("no file part", func(t *testing.T) {
		m := new(serviceMocks.MockFileService)
		app := newApp()
		app.Post("/upload", withUser("u1"), UploadFile(m))

		resp, _ := app.Test(multipartUpload(t, "/upload", "other", "cat.jpg", []byte("meow")))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
		m.AssertNotCalled(t, "Upload")
	})

	errCases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{service.ErrFileRequired, http.StatusBadRequest, "FILE_REQUIRED"},
		{service.ErrUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{service.ErrLedgerUpdate, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range errCases {
		t.Run(tc.wantCode, func(t *testing.T) {
			m := new(serviceMocks.MockFileService)
			m.On("Upload", mock.Anything, "u1", mock.Anything, "cat.jpg", mock.Anything, mock.Anything).Return(nil, tc.err)
			app := newApp()
			app.Post("/upload", withUser("u1"), UploadFile(m))

			resp, _ := app.Test(multipartUpload(t, "/upload", "file", "cat.jpg", []byte("meow")))

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, tc.wantCode, decodeError(t, resp).Error.Code)
		})
	}
}

func TestListFiles(t *testing.T) {
	m := new(serviceMocks.MockFileService)
	app := newApp()
	app.Get("/files", withUser("u1"), ListFiles(m))

	t.Run("success", func(t *testing.T) {
		uploaded := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		m.On("List", mock.Anything, "u1").Return([]model.BlobFile{{
			ID: "f1", Filename: "1-cat.jpg", OwnerID: "u1", OriginalName: "cat.jpg",
			Mimetype: "image/jpeg", Size: 10, ChunkCount: 1, UploadDate: uploaded,
		}}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		b, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `[{"id":"f1","filename":"1-cat.jpg","originalName":"cat.jpg","mimetype":"image/jpeg","size":10,"uploadDate":"2024-05-01T12:00:00Z"}]`, string(b))
	})

	t.Run("empty list is an array", func(t *testing.T) {
		m.On("List", mock.Anything, "u1").Return([]model.BlobFile{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files", nil))

		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "[]", string(b))
	})

	t.Run("storage not ready", func(t *testing.T) {
		m.On("List", mock.Anything, "u1").Return(nil, service.ErrUnavailable).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
	m.AssertExpectations(t)
}

func TestDownloadFile(t *testing.T) {
	t.Run("streams content with headers", func(t *testing.T) {
		m := new(serviceMocks.MockFileService)
		m.On("Download", mock.Anything, "u1", "my cat.jpg").Return(
			io.NopCloser(strings.NewReader("0123456789")),
			&model.BlobFile{ID: "f1", OriginalName: "my cat.jpg", Mimetype: "image/jpeg", Size: 10},
			nil,
		)
		app := newApp()
		app.Get("/download/:filename", withUser("u1"), DownloadFile(m))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/download/my%20cat.jpg", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/jpeg", resp.Header.Get(fiber.HeaderContentType))
		assert.Equal(t, `attachment; filename="my cat.jpg"`, resp.Header.Get(fiber.HeaderContentDisposition))
		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "0123456789", string(b))
	})

	cases := []struct {
		err        error
		wantStatus int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			m := new(serviceMocks.MockFileService)
			m.On("Download", mock.Anything, "u1", "x.jpg").Return(nil, nil, tc.err)
			app := newApp()
			app.Get("/download/:filename", withUser("u1"), DownloadFile(m))

			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/download/x.jpg", nil))

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestDeleteFile(t *testing.T) {
	id := uuid.NewString()
	m := new(serviceMocks.MockFileService)
	app := newApp()
	app.Delete("/files/:fileId", withUser("u1"), DeleteFile(m, "fileId"))

	m.On("Delete", mock.Anything, "u1", id).Return(&model.BlobFile{ID: id}, nil).Once()
	m.On("Delete", mock.Anything, "u1", id).Return(nil, service.ErrNotFound).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/files/"+id, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body messageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "File deleted successfully", body.Message)

	resp, _ = app.Test(httptest.NewRequest(http.MethodDelete, "/files/"+id, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	m.AssertExpectations(t)
}

func TestSendAlert(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff}
	encoded := `{"image":"/9j/","timestamp":"2024-05-01 10:00"}`

	t.Run("success", func(t *testing.T) {
		m := new(serviceMocks.MockAlertService)
		m.On("SendUnknownFaceAlert", mock.Anything, service.Alert{Image: img, Timestamp: "2024-05-01 10:00", ReportedBy: "Alice"}).Return(nil)
		app := newApp()
		app.Post("/send-alert", func(c *fiber.Ctx) error {
			c.Locals(middleware.IdentityLocalKey, auth.Identity{RecognizedName: "Alice"})
			return c.Next()
		}, SendAlert(m))

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/send-alert", encoded))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		b, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"status":"success","message":"Alert email sent successfully"}`, string(b))
		m.AssertExpectations(t)
	})

	t.Run("transport failure", func(t *testing.T) {
		m := new(serviceMocks.MockAlertService)
		m.On("SendUnknownFaceAlert", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
		app := newApp()
		app.Post("/send-alert", SendAlert(m))

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/send-alert", encoded))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var body alertResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "error", body.Status)
	})

	for name, payload := range map[string]string{
		"empty image":    `{"image":"","timestamp":"t"}`,
		"invalid base64": `{"image":"%%%","timestamp":"t"}`,
		"malformed json": `{"image":`,
	} {
		t.Run(name, func(t *testing.T) {
			m := new(serviceMocks.MockAlertService)
			app := newApp()
			app.Post("/send-alert", SendAlert(m))

			resp, _ := app.Test(jsonRequest(http.MethodPost, "/send-alert", payload))

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			m.AssertNotCalled(t, "SendUnknownFaceAlert")
		})
	}
}

func TestErrorHandler(t *testing.T) {
	app := newApp()
	app.Get("/unauth", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusUnauthorized, "Please log in first")
	})
	app.Get("/panic-free", func(c *fiber.Ctx) error {
		return errors.New("secret internal detail")
	})

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/unauth", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, "UNAUTHENTICATED", body.Error.Code)
	assert.Equal(t, "Please log in first", body.Error.Message)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/panic-free", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body = decodeError(t, resp)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.NotContains(t, body.Error.Message, "secret")

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
}
