package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tagithq/tagit/internal/audit"
	"github.com/tagithq/tagit/internal/auth"
	"github.com/tagithq/tagit/internal/document"
	"github.com/tagithq/tagit/internal/encryption"
	"github.com/tagithq/tagit/internal/notify"
	"github.com/tagithq/tagit/internal/profile"
)

var _ auth.Service = (*stubAuthService)(nil)

// stubAuthService validates tokens of the form "token-<user id>" so handler
// tests can exercise the owner routes without a database or real JWTs.
type stubAuthService struct {
	users map[string]string // email -> user id
}

func newStubAuthService() *stubAuthService {
	return &stubAuthService{users: make(map[string]string)}
}

func (s *stubAuthService) Register(_ context.Context, email, _ string) (*auth.User, error) {
	if _, exists := s.users[email]; exists {
		return nil, auth.ErrEmailTaken
	}
	id := fmt.Sprintf("user-%d", len(s.users)+1)
	s.users[email] = id
	return &auth.User{ID: id, Email: email}, nil
}

func (s *stubAuthService) Login(_ context.Context, email, _ string) (*auth.LoginResponse, error) {
	id, ok := s.users[email]
	if !ok {
		return nil, auth.ErrInvalidCredentials
	}
	return &auth.LoginResponse{Token: "token-" + id, User: &auth.User{ID: id, Email: email}}, nil
}

func (s *stubAuthService) ValidateToken(_ context.Context, tokenString string) (*auth.Claims, error) {
	userID := strings.TrimPrefix(tokenString, "token-")
	if userID == tokenString || userID == "" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: userID}, nil
}

func (s *stubAuthService) Initialize(_ context.Context) error { return nil }

var _ notify.Channel = (*recordingChannel)(nil)

type recordingChannel struct {
	phones   []string
	messages []string
}

func (r *recordingChannel) Send(_ context.Context, phone, message string) error {
	r.phones = append(r.phones, phone)
	r.messages = append(r.messages, message)
	return nil
}

type testEnv struct {
	router         *gin.Engine
	authService    *stubAuthService
	profileService profile.Service
	channel        *recordingChannel
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	encryptService, err := encryption.NewService()
	require.NoError(t, err)

	nop := audit.NewNop()
	authService := newStubAuthService()
	profileService := profile.NewService(profile.NewInMemoryStore(), encryptService, nop)
	documentService := document.NewService(document.NewInMemoryStore(), "", nop)
	channel := &recordingChannel{}
	dispatcher := notify.NewDispatcher(channel, zap.NewNop())

	handler := NewHandler(authService, profileService, documentService, dispatcher, nop)
	router := NewRouter(handler, authService).SetupRouter(zap.NewNop())

	return &testEnv{
		router:         router,
		authService:    authService,
		profileService: profileService,
		channel:        channel,
	}
}

// registerOwner creates an account plus profile and returns the profile and a
// bearer token for the owner.
func (e *testEnv) registerOwner(t *testing.T, email, name, phone string) (*profile.Profile, string) {
	t.Helper()
	user, err := e.authService.Register(context.Background(), email, "irrelevant")
	require.NoError(t, err)

	p, err := e.profileService.Create(context.Background(), profile.CreateParams{
		OwnerID: user.ID,
		Email:   email,
		Name:    name,
		Phone:   phone,
	})
	require.NoError(t, err)
	return p, "token-" + user.ID
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestRegisterCreatesAccountAndProfile(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "asha@example.com",
		"password": "long-enough-pw",
		"name":     "Asha",
		"phone":    "+911234567890",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Profile profile.Profile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Profile.ID)
	assert.Equal(t, "Asha", resp.Profile.Name)

	// Same email again conflicts.
	w = env.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "asha@example.com",
		"password": "long-enough-pw",
		"name":     "Asha",
		"phone":    "+911234567890",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterRejectsBlankNameWithoutCreatingAccount(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "asha@example.com",
		"password": "long-enough-pw",
		"name":     "   ",
		"phone":    "+911234567890",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	// The email is still free, so a corrected registration goes through.
	w = env.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "asha@example.com",
		"password": "long-enough-pw",
		"name":     "Asha",
		"phone":    "+911234567890",
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestOwnerRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPut, "/api/profile/basic", "not-a-token", gin.H{"age": "30"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetMyProfileReturnsFullRecord(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerOwner(t, "asha@example.com", "Asha", "+911234567890")

	w := env.do(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "asha@example.com")
}

func TestPublicProfileShowsContactsButNotAccountFields(t *testing.T) {
	env := newTestEnv(t)
	p, token := env.registerOwner(t, "asha@example.com", "Asha", "+911234567890")

	w := env.do(http.MethodPut, "/api/profile/contacts", token, gin.H{
		"emergency_contacts": []gin.H{
			{"name": "Ravi", "phone": "+919876543210", "relationship": "Spouse"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPut, "/api/profile/basic", token, gin.H{"blood_group": "O+"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Anonymous responder view.
	w = env.do(http.MethodGet, "/api/public/profiles/"+p.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := w.Body.String()
	assert.Contains(t, body, "Ravi")
	assert.Contains(t, body, "O+")
	assert.NotContains(t, body, "asha@example.com")
	assert.NotContains(t, body, p.OwnerID)
}

func TestPublicProfileUnknownID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/public/profiles/no-such-id", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerSOSDispatchesToAllContacts(t *testing.T) {
	env := newTestEnv(t)
	p, token := env.registerOwner(t, "asha@example.com", "Asha", "+911234567890")

	w := env.do(http.MethodPut, "/api/profile/contacts", token, gin.H{
		"emergency_contacts": []gin.H{
			{"name": "Ravi", "phone": "+919876543210"},
			{"name": "Meera", "phone": "+919811111111"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPost, "/api/public/profiles/"+p.ID+"/sos", "", gin.H{
		"latitude":  12.9716,
		"longitude": 77.5946,
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp struct {
		Dispatched int `json:"dispatched"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Dispatched)
	require.Len(t, env.channel.messages, 2)
	assert.Contains(t, env.channel.messages[0], "https://www.google.com/maps?q=12.9716,77.5946")
}

func TestTriggerSOSWithoutBody(t *testing.T) {
	env := newTestEnv(t)
	p, token := env.registerOwner(t, "asha@example.com", "Asha", "+911234567890")

	w := env.do(http.MethodPut, "/api/profile/contacts", token, gin.H{
		"emergency_contacts": []gin.H{{"name": "Ravi", "phone": "+919876543210"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/public/profiles/"+p.ID+"/sos", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Len(t, env.channel.messages, 1)
	assert.NotContains(t, env.channel.messages[0], "google.com/maps")
}

func multipartUpload(t *testing.T, name, docType, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	require.NoError(t, mw.WriteField("name", name))
	require.NoError(t, mw.WriteField("type", docType))

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return buf, mw.FormDataContentType()
}

func TestUploadDocumentAndResolve(t *testing.T) {
	env := newTestEnv(t)
	p, token := env.registerOwner(t, "asha@example.com", "Asha", "+911234567890")

	data := []byte("%PDF-1.4 test payload")
	body, contentType := multipartUpload(t, "blood report", "Medical Report", "report.pdf", "application/pdf", data)

	req := httptest.NewRequest(http.MethodPost, "/api/profile/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Document profile.DocumentRef `json:"document"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, profile.DocMedicalReport, resp.Document.Type)
	assert.Equal(t, int64(len(data)), resp.Document.FileSizeBytes)
	require.NotEmpty(t, resp.Document.URL)

	// Reference lands on the profile.
	fetched, err := env.profileService.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, fetched.MedicalDocuments, 1)
	assert.Equal(t, resp.Document.ID, fetched.MedicalDocuments[0].ID)

	// The issued URL serves back the identical bytes.
	w = env.do(http.MethodGet, resp.Document.URL, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestUploadDocumentDefaultsNameFromFilename(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerOwner(t, "asha@example.com", "Asha", "+911234567890")

	body, contentType := multipartUpload(t, "", "Prescription", "amoxicillin.pdf", "application/pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/profile/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Document profile.DocumentRef `json:"document"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "amoxicillin", resp.Document.Name)
}

func TestUploadDocumentRejectsInvalidType(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerOwner(t, "asha@example.com", "Asha", "+911234567890")

	body, contentType := multipartUpload(t, "notes", "Selfie", "notes.pdf", "application/pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/profile/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadDocumentRejectsUnsupportedContentType(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerOwner(t, "asha@example.com", "Asha", "+911234567890")

	body, contentType := multipartUpload(t, "notes", "Other", "notes.txt", "text/plain", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/profile/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestUpdateContactsFilteredToEmptyIsRejected(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerOwner(t, "asha@example.com", "Asha", "+911234567890")

	w := env.do(http.MethodPut, "/api/profile/contacts", token, gin.H{
		"emergency_contacts": []gin.H{{"name": "", "phone": ""}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
