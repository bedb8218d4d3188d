package scorm

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"scormhub/internal/pkg/response"
	"scormhub/internal/pkg/session"
	"scormhub/internal/pkg/validator"
)

// multipart overhead allowed on top of the package size ceiling
const formOverheadBytes = 1 << 20

// Handler serves the SCORM API. The caller is always resolved through the
// injected CurrentUserProvider.
type Handler struct {
	packages *Service
	content  *ContentService
	stats    *StatsService
	attempts *AttemptService
	users    session.CurrentUserProvider
	log      zerolog.Logger
}

func NewHandler(packages *Service, content *ContentService, stats *StatsService, attempts *AttemptService,
	users session.CurrentUserProvider, log zerolog.Logger) *Handler {
	return &Handler{
		packages: packages,
		content:  content,
		stats:    stats,
		attempts: attempts,
		users:    users,
		log:      log.With().Str("component", "scorm_http").Logger(),
	}
}

type uploadRequest struct {
	CourseID       string `json:"course_id" validate:"required,max=64,identifier"`
	OrganizationID string `json:"organization_id" validate:"required,max=64,identifier"`
}

type statusRequest struct {
	Status PackageStatus `json:"status" validate:"required,oneof=active inactive processing"`
}

// Upload godoc
// @Summary Upload a SCORM package
// @Tags SCORM
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "SCORM zip"
// @Param course_id formData string true "Course ID"
// @Param organization_id formData string true "Organization ID"
// @Success 201 {object} map[string]interface{}
// @Failure 400,401,403,500 {object} map[string]interface{}
// @Router /scorm/upload [post]
func (h *Handler) Upload(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	limit := h.packages.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formOverheadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, http.StatusBadRequest, ErrFileTooLarge.Error()+": limit is "+HumanSize(limit))
			return
		}
		h.fail(c, http.StatusBadRequest, "no file provided")
		return
	}

	req := uploadRequest{
		CourseID:       firstNonEmpty(c.PostForm("course_id"), c.PostForm("courseId")),
		OrganizationID: firstNonEmpty(c.PostForm("organization_id"), c.PostForm("organizationId")),
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "course_id and organization_id must be non-empty ids", errs)
		return
	}

	// reject before touching the body
	if fileHeader.Size > limit {
		h.fail(c, http.StatusBadRequest, ErrFileTooLarge.Error()+": limit is "+HumanSize(limit))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	defer file.Close()

	pkg, err := h.packages.Upload(c.Request.Context(), user, UploadInput{
		OrganizationID: req.OrganizationID,
		CourseID:       req.CourseID,
		FileName:       fileHeader.Filename,
		Size:           fileHeader.Size,
		File:           file,
	})
	if err != nil {
		h.handleError(c, err, "upload failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "package": pkg})
}

// ListPackages godoc
// @Summary List SCORM packages visible to the caller
// @Tags SCORM
// @Produce json
// @Security BearerAuth
// @Param organization_id query string false "Organization ID"
// @Param course_id query string false "Course ID"
// @Success 200 {object} map[string]interface{}
// @Router /scorm/packages [get]
func (h *Handler) ListPackages(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	pkgs, err := h.packages.List(c.Request.Context(), user, PackageFilter{
		OrganizationID: firstNonEmpty(c.Query("organization_id"), c.Query("organizationId")),
		CourseID:       firstNonEmpty(c.Query("course_id"), c.Query("courseId")),
	})
	if err != nil {
		h.handleError(c, err, "failed to list packages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "packages": pkgs})
}

// GetPackage godoc
// @Summary Get SCORM package
// @Tags SCORM
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /scorm/packages/{id} [get]
func (h *Handler) GetPackage(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	pkg, err := h.packages.GetByID(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.handleError(c, err, "failed to load package")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "package": pkg})
}

// UpdateStatus godoc
// @Summary Activate or deactivate a SCORM package
// @Tags SCORM
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400,403,404 {object} map[string]interface{}
// @Router /scorm/packages/{id}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(c, errs)
		return
	}
	pkg, err := h.packages.UpdateStatus(c.Request.Context(), user, c.Param("id"), req.Status)
	if err != nil {
		h.handleError(c, err, "failed to update package")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "package": pkg})
}

// DeletePackage godoc
// @Summary Delete a SCORM package and its files
// @Tags SCORM
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403,404,500 {object} map[string]interface{}
// @Router /scorm/packages/{id} [delete]
func (h *Handler) DeletePackage(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if err := h.packages.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		h.handleError(c, err, "delete failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "deleted"})
}

// GetStats godoc
// @Summary Attempt statistics of a SCORM package
// @Tags SCORM
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Param refresh query bool false "Bypass cache"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /scorm/packages/{id}/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	st, err := h.stats.Get(c.Request.Context(), user, c.Param("id"), refresh)
	if err != nil {
		h.handleError(c, err, "failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": st})
}

// StartAttempt godoc
// @Summary Start a new attempt of a SCORM package
// @Tags SCORM
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Success 201 {object} map[string]interface{}
// @Router /scorm/packages/{id}/attempts [post]
func (h *Handler) StartAttempt(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	a, err := h.attempts.Start(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.handleError(c, err, "failed to start attempt")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "attempt": a})
}

// ListAttempts godoc
// @Summary List the caller's attempts of a SCORM package
// @Tags SCORM
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Success 200 {object} map[string]interface{}
// @Router /scorm/packages/{id}/attempts [get]
func (h *Handler) ListAttempts(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	list, err := h.attempts.ListMine(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.handleError(c, err, "failed to list attempts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attempts": list})
}

// CommitAttempt godoc
// @Summary Commit CMI progress for an attempt
// @Tags SCORM
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Attempt ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400,403,404 {object} map[string]interface{}
// @Router /scorm/attempts/{id} [put]
func (h *Handler) CommitAttempt(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	var in CommitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validator.Validate(in); errs != nil {
		response.ValidationError(c, errs)
		return
	}
	a, err := h.attempts.Commit(c.Request.Context(), user, c.Param("id"), in)
	if err != nil {
		h.handleError(c, err, "failed to save attempt")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attempt": a})
}

// Content godoc
// @Summary Serve a file of a SCORM package
// @Tags SCORM
// @Security BearerAuth
// @Param path path string true "{organizationId}/{packageId}/{file path}"
// @Success 200 {file} file
// @Failure 400,401,404 {string} string
// @Router /scorm/content/{path} [get]
func (h *Handler) Content(c *gin.Context) {
	user, ok := h.users.CurrentUser(c.Request.Context())
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}

	content, err := h.content.Open(c.Request.Context(), user, c.Param("path"))
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidPath):
		c.String(http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrPackageNotFound), errors.Is(err, ErrFileNotFound):
		c.Status(http.StatusNotFound)
		return
	default:
		h.log.Error().Err(err).Str("path", c.Param("path")).Msg("content proxy failed")
		c.Status(http.StatusInternalServerError)
		return
	}
	defer content.Body.Close()

	header := c.Writer.Header()
	header.Set("Cache-Control", ContentCacheControl)
	header.Set("X-Content-Type-Options", "nosniff")
	if content.Markup {
		header.Set("Content-Security-Policy", ContentSecurityPolicy)
	}

	if content.Text {
		text, rest, ok, err := content.ReadText()
		if err != nil {
			h.log.Error().Err(err).Str("path", content.Path).Msg("content read failed")
			c.Status(http.StatusInternalServerError)
			return
		}
		if ok {
			c.Data(http.StatusOK, content.ContentType+"; charset=utf-8", text)
			return
		}
		c.DataFromReader(http.StatusOK, content.Size, content.ContentType+"; charset=utf-8", rest, nil)
		return
	}

	c.DataFromReader(http.StatusOK, content.Size, content.ContentType, content.Body, nil)
}

// Health godoc
// @Summary Liveness probe
// @Tags System
// @Router /healthz [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) currentUser(c *gin.Context) (session.User, bool) {
	user, ok := h.users.CurrentUser(c.Request.Context())
	if !ok {
		h.fail(c, http.StatusUnauthorized, "unauthorized")
		return session.User{}, false
	}
	return user, true
}

func (h *Handler) fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func (h *Handler) handleError(c *gin.Context, err error, fallback string) {
	switch {
	case IsValidation(err):
		h.fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTimespan), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidID):
		h.fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotMember),
		errors.Is(err, ErrNotAttemptOwner), errors.Is(err, ErrPackageInactive):
		h.fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrPackageNotFound), errors.Is(err, ErrAttemptNotFound):
		h.fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPackageExists):
		h.fail(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(fallback)
		h.fail(c, http.StatusInternalServerError, fallback)
	}
}
