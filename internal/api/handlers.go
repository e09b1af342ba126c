package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tagithq/tagit/internal/access"
	"github.com/tagithq/tagit/internal/audit"
	"github.com/tagithq/tagit/internal/auth"
	"github.com/tagithq/tagit/internal/document"
	"github.com/tagithq/tagit/internal/notify"
	"github.com/tagithq/tagit/internal/profile"
)

type Handler struct {
	authService     auth.Service
	profileService  profile.Service
	documentService document.Service
	dispatcher      *notify.Dispatcher
	auditService    audit.Service
}

func NewHandler(
	authService auth.Service,
	profileService profile.Service,
	documentService document.Service,
	dispatcher *notify.Dispatcher,
	auditService audit.Service,
) *Handler {
	return &Handler{
		authService:     authService,
		profileService:  profileService,
		documentService: documentService,
		dispatcher:      dispatcher,
		auditService:    auditService,
	}
}

// Authentication handlers

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

// Register creates the account and its profile in one step; a profile exists
// for every owner from the moment of registration.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Profile fields are checked before the account is created, so a
	// rejected profile cannot leave an account behind with no profile.
	// A storage failure after registration still can; that surfaces as a
	// 500 and needs the user row removed before the email can re-register.
	draft := profile.Profile{Name: req.Name, Phone: req.Phone}
	if err := draft.Validate(); err != nil {
		h.writeProfileError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	p, err := h.profileService.Create(c.Request.Context(), profile.CreateParams{
		OwnerID: user.ID,
		Email:   req.Email,
		Name:    req.Name,
		Phone:   req.Phone,
	})
	if err != nil {
		h.writeProfileError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":    user,
		"profile": p,
	})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// Owner profile handlers

func (h *Handler) GetMyProfile(c *gin.Context) {
	p, err := h.profileService.GetByOwner(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		h.writeProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateBasicInfo(c *gin.Context) {
	var upd profile.BasicInfoUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.ownProfile(c)
	if err != nil {
		return
	}

	updated, err := h.profileService.UpdateBasicInfo(c.Request.Context(), p.ID, upd)
	if err != nil {
		h.writeProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) UpdateMedicalInfo(c *gin.Context) {
	var upd profile.MedicalInfoUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.ownProfile(c)
	if err != nil {
		return
	}

	updated, err := h.profileService.UpdateMedicalInfo(c.Request.Context(), p.ID, upd)
	if err != nil {
		h.writeProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) UpdateContacts(c *gin.Context) {
	var upd profile.ContactsUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.ownProfile(c)
	if err != nil {
		return
	}

	updated, err := h.profileService.UpdateContacts(c.Request.Context(), p.ID, upd)
	if err != nil {
		h.writeProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// UploadDocument stores the binary first and appends the reference only
// after the store confirms the final URL, so the profile never carries a
// dangling document reference.
func (h *Handler) UploadDocument(c *gin.Context) {
	p, err := h.ownProfile(c)
	if err != nil {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	displayName := c.PostForm("name")
	if displayName == "" {
		displayName = strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
	}

	docType := profile.DocumentType(c.PostForm("type"))
	if !profile.ValidDocumentType(docType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document type"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read file"})
		return
	}
	defer file.Close()

	// Read one byte past the limit so oversize uploads fail without
	// buffering the whole payload.
	data, err := io.ReadAll(io.LimitReader(file, document.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read file"})
		return
	}

	upload, err := h.documentService.Store(c.Request.Context(),
		p.OwnerID, displayName, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		h.writeDocumentError(c, err)
		return
	}

	ref := profile.DocumentRef{
		ID:            upload.ID,
		Name:          displayName,
		Type:          docType,
		URL:           upload.URL,
		FileSizeBytes: upload.SizeBytes,
		UploadedAt:    upload.UploadedAt,
	}

	updated, err := h.profileService.AppendDocument(c.Request.Context(), p.ID, ref)
	if err != nil {
		// The binary is stored but unreferenced; cleaned up out of band.
		h.writeProfileError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"document": ref,
		"profile":  updated,
	})
}

// Public handlers

// GetPublicProfile returns the anonymous-responder view of a profile. Every
// public read is recorded as an emergency access event.
func (h *Handler) GetPublicProfile(c *gin.Context) {
	p, err := h.profileService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeProfileError(c, err)
		return
	}

	h.auditService.LogEvent(c.Request.Context(), &audit.AuditEvent{
		EventType:  audit.EventEmergencyAccess,
		Action:     "READ",
		Resource:   "profile",
		ResourceID: p.ID,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
		RequestID:  c.GetString("request_id"),
		Status:     "success",
	})

	c.JSON(http.StatusOK, access.PublicView(p))
}

type SOSRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// TriggerSOS fans an alert out to the profile's emergency contacts. The
// responder already holds the public view; no authentication is required.
func (h *Handler) TriggerSOS(c *gin.Context) {
	var req SOSRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	p, err := h.profileService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeProfileError(c, err)
		return
	}

	var loc *notify.Location
	if req.Latitude != nil && req.Longitude != nil {
		loc = &notify.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	dispatched, err := h.dispatcher.SendAlert(c.Request.Context(), access.PublicView(p), loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.auditService.LogEvent(c.Request.Context(), &audit.AuditEvent{
		EventType:  audit.EventSOS,
		Action:     "DISPATCH",
		Resource:   "profile",
		ResourceID: p.ID,
		IPAddress:  c.ClientIP(),
		RequestID:  c.GetString("request_id"),
		Status:     "success",
	})

	c.JSON(http.StatusAccepted, gin.H{"dispatched": dispatched})
}

// ResolveFile serves a stored binary; the URL itself is the capability.
func (h *Handler) ResolveFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	obj, err := h.documentService.Resolve(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve document"})
		return
	}

	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}

// Helpers

// ownProfile resolves the caller's profile and verifies write authorization.
// It writes the error response itself and returns a non-nil error to signal
// the handler to stop. With writes routed by the caller's own account id the
// owner check cannot fail today; it stays so any future route that resolves
// the profile by id or tag goes through the same gate.
func (h *Handler) ownProfile(c *gin.Context) (*profile.Profile, error) {
	userID := auth.GetUserID(c)
	p, err := h.profileService.GetByOwner(c.Request.Context(), userID)
	if err != nil {
		h.writeProfileError(c, err)
		return nil, err
	}
	if err := access.AuthorizeWrite(userID, p); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, err
	}
	return p, nil
}

func (h *Handler) writeProfileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
	case errors.Is(err, profile.ErrDuplicateOwner):
		c.JSON(http.StatusConflict, gin.H{"error": "profile already exists"})
	case profile.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (h *Handler) writeDocumentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, document.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document exceeds 10 MiB limit"})
	case errors.Is(err, document.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only PDF, JPEG and PNG uploads are allowed"})
	case errors.Is(err, document.ErrMissingName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
	}
}
