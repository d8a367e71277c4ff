package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"checkin-dashboard/models"
	"checkin-dashboard/services"
	"checkin-dashboard/utils"
	"checkin-dashboard/views"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// imageFormField is the multipart field carrying the check-in image.
const imageFormField = "image"

// DashboardController serves the dashboard page and its JSON twin.
type DashboardController struct {
	Dashboard *services.DashboardService
	Log       *zap.Logger
}

func NewDashboardController(svc *services.DashboardService, logger *zap.Logger) *DashboardController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardController{Dashboard: svc, Log: logger}
}

// ----------------------------------------------------------------------
// HTML page
// ----------------------------------------------------------------------

// Mount (GET /) loads the collection into a new page session.
func (dc *DashboardController) Mount(c *gin.Context) {
	sess, err := dc.Dashboard.Mount(c.Request.Context())
	if err != nil {
		dc.Log.Error("mount dashboard failed", zap.Error(err))
		c.HTML(http.StatusBadGateway, "error.tmpl", gin.H{"Message": "The check-ins could not be loaded."})
		return
	}
	c.Redirect(http.StatusSeeOther, pagePath(sess.ID))
}

// Show (GET /s/:id) renders a page session.
func (dc *DashboardController) Show(c *gin.Context) {
	sess, err := dc.Dashboard.Session(c.Request.Context(), c.Param("id"))
	if errors.Is(err, services.ErrSessionNotFound) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if err != nil {
		dc.Log.Error("load session failed", zap.String("session", c.Param("id")), zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error.tmpl", gin.H{"Message": "The dashboard could not be loaded."})
		return
	}
	c.HTML(http.StatusOK, "dashboard.tmpl", views.NewDashboard(sess, pagePath(sess.ID)+"/form/preview"))
}

func (dc *DashboardController) PageOpenForm(c *gin.Context) {
	dc.pageAction(c, dc.Dashboard.OpenForm)
}

func (dc *DashboardController) PageCancelForm(c *gin.Context) {
	dc.pageAction(c, dc.Dashboard.CancelForm)
}

func (dc *DashboardController) PageDismissNotice(c *gin.Context) {
	dc.pageAction(c, dc.Dashboard.DismissNotice)
}

func (dc *DashboardController) PageConfirmBasic(c *gin.Context) {
	in, err := dc.basicInput(c)
	if err != nil {
		dc.pageFail(c, err)
		return
	}
	dc.pageAction(c, func(ctx context.Context, id string) (*services.PageSession, error) {
		return dc.Dashboard.ConfirmBasic(ctx, id, in)
	})
}

func (dc *DashboardController) PageConfirmDetail(c *gin.Context) {
	in := services.FormInput{Fields: postedFields(c, detailFields)}
	dc.pageAction(c, func(ctx context.Context, id string) (*services.PageSession, error) {
		return dc.Dashboard.ConfirmDetail(ctx, id, in)
	})
}

// pageAction runs a form action and sends the browser back to the page,
// where validation errors and notices are rendered from the session.
func (dc *DashboardController) pageAction(c *gin.Context, action func(context.Context, string) (*services.PageSession, error)) {
	id := c.Param("id")
	_, err := action(c.Request.Context(), id)
	switch {
	case err == nil,
		errors.Is(err, services.ErrSubmitFailed),
		errors.Is(err, services.ErrFormClosed),
		errors.Is(err, services.ErrWrongStage),
		errors.Is(err, services.ErrSubmitting):
		if err != nil {
			dc.Log.Info("form action ended early", zap.String("session", id), zap.Error(err))
		}
		c.Redirect(http.StatusSeeOther, pagePath(id))
	default:
		dc.pageFail(c, err)
	}
}

func (dc *DashboardController) pageFail(c *gin.Context, err error) {
	if errors.Is(err, services.ErrSessionNotFound) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	status, msg := statusFor(err)
	if status >= 500 {
		dc.Log.Error("form action failed", zap.String("session", c.Param("id")), zap.Error(err))
	}
	c.HTML(status, "error.tmpl", gin.H{"Message": msg})
}

// ----------------------------------------------------------------------
// JSON API
// ----------------------------------------------------------------------

// CreateSession (POST /api/sessions) is the JSON mount.
func (dc *DashboardController) CreateSession(c *gin.Context) {
	sess, err := dc.Dashboard.Mount(c.Request.Context())
	if err != nil {
		dc.Log.Error("mount dashboard failed", zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "Failed to load check-ins")
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, dc.view(sess))
}

// GetSession (GET /api/sessions/:id)
func (dc *DashboardController) GetSession(c *gin.Context) {
	sess, err := dc.Dashboard.Session(c.Request.Context(), c.Param("id"))
	dc.respond(c, sess, err)
}

func (dc *DashboardController) OpenForm(c *gin.Context) {
	sess, err := dc.Dashboard.OpenForm(c.Request.Context(), c.Param("id"))
	dc.respond(c, sess, err)
}

func (dc *DashboardController) CancelForm(c *gin.Context) {
	sess, err := dc.Dashboard.CancelForm(c.Request.Context(), c.Param("id"))
	dc.respond(c, sess, err)
}

func (dc *DashboardController) DismissNotice(c *gin.Context) {
	sess, err := dc.Dashboard.DismissNotice(c.Request.Context(), c.Param("id"))
	dc.respond(c, sess, err)
}

// UpdateFields (PATCH /api/sessions/:id/form/fields) applies typed values as
// one change: an unknown or rejected field leaves the draft as it was.
func (dc *DashboardController) UpdateFields(c *gin.Context) {
	fields, err := bindFields(c)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := dc.Dashboard.SetFields(c.Request.Context(), c.Param("id"), fields)
	dc.respond(c, sess, err)
}

type imagePayload struct {
	FileName string `json:"fileName"`
	Data     string `json:"data"`
}

// AttachImage (PUT /api/sessions/:id/form/image) takes a multipart "image"
// part, or JSON carrying the file as base64 or a data URI.
func (dc *DashboardController) AttachImage(c *gin.Context) {
	var (
		img *models.ImageFile
		err error
	)
	if strings.HasPrefix(c.ContentType(), "application/json") {
		img, err = bindImagePayload(c)
	} else {
		img, err = dc.readImage(c)
	}
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := dc.Dashboard.AttachImage(c.Request.Context(), c.Param("id"), img)
	dc.respondForm(c, sess, err)
}

// ConfirmBasic (POST /api/sessions/:id/form/basic) takes multipart title + image.
func (dc *DashboardController) ConfirmBasic(c *gin.Context) {
	in, err := dc.basicInput(c)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := dc.Dashboard.ConfirmBasic(c.Request.Context(), c.Param("id"), in)
	dc.respondForm(c, sess, err)
}

// ConfirmDetail (POST /api/sessions/:id/form/detail) takes JSON or form fields.
func (dc *DashboardController) ConfirmDetail(c *gin.Context) {
	fields, err := bindFields(c)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := dc.Dashboard.ConfirmDetail(c.Request.Context(), c.Param("id"), services.FormInput{Fields: fields})
	if errors.Is(err, services.ErrSubmitFailed) && sess != nil {
		utils.JSONInvalid(c, http.StatusBadGateway, sess.Form.Notice, sess.Form.Errors, dc.view(sess))
		return
	}
	if errors.Is(err, services.ErrFormClosed) {
		utils.JSONError(c, http.StatusConflict, err.Error())
		return
	}
	dc.respondForm(c, sess, err)
}

// Preview serves the image attached to the open draft.
func (dc *DashboardController) Preview(c *gin.Context) {
	img, err := dc.Dashboard.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		status, msg := statusFor(err)
		c.String(status, msg)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

func (dc *DashboardController) view(sess *services.PageSession) views.Dashboard {
	return views.NewDashboard(sess, "/api/sessions/"+sess.ID+"/form/preview")
}

func (dc *DashboardController) respond(c *gin.Context, sess *services.PageSession, err error) {
	if err != nil {
		status, msg := statusFor(err)
		if status >= 500 {
			dc.Log.Error("dashboard request failed", zap.String("session", c.Param("id")), zap.Error(err))
		}
		utils.JSONError(c, status, msg)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, dc.view(sess))
}

// respondForm answers 422 while the form holds validation errors.
func (dc *DashboardController) respondForm(c *gin.Context, sess *services.PageSession, err error) {
	if err == nil && len(sess.Form.Errors) > 0 {
		utils.JSONInvalid(c, http.StatusUnprocessableEntity, "validation failed", sess.Form.Errors, dc.view(sess))
		return
	}
	dc.respond(c, sess, err)
}

func (dc *DashboardController) basicInput(c *gin.Context) (services.FormInput, error) {
	img, err := dc.readImage(c)
	if err != nil {
		return services.FormInput{}, err
	}
	fields := map[string]string{}
	if title, ok := c.GetPostForm(services.FieldTitle); ok {
		fields[services.FieldTitle] = title
	}
	return services.FormInput{Fields: fields, Image: img}, nil
}

// readImage reads the optional image part. At most one byte past the size
// limit is read, so the service can tell an oversized file apart.
func (dc *DashboardController) readImage(c *gin.Context) (*models.ImageFile, error) {
	file, header, err := c.Request.FormFile(imageFormField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	defer file.Close()
	// Browsers send an empty part when no file was picked.
	if header.Filename == "" && header.Size == 0 {
		return nil, nil
	}

	limit := dc.Dashboard.MaxImageBytes
	if limit <= 0 {
		limit = services.DefaultMaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &models.ImageFile{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func bindImagePayload(c *gin.Context) (*models.ImageFile, error) {
	var payload imagePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		return nil, fmt.Errorf("invalid request payload: %w", err)
	}
	if strings.TrimSpace(payload.Data) == "" {
		return &models.ImageFile{FileName: payload.FileName}, nil
	}
	data, contentType, err := utils.DecodeImageData(payload.Data)
	if err != nil {
		return nil, err
	}
	return &models.ImageFile{FileName: payload.FileName, ContentType: contentType, Data: data}, nil
}

var detailFields = []string{
	services.FieldName,
	services.FieldBookingID,
	services.FieldRooms,
	services.FieldGuests,
	services.FieldBookedDate,
}

var allFields = []string{
	services.FieldTitle,
	services.FieldName,
	services.FieldBookingID,
	services.FieldRooms,
	services.FieldGuests,
	services.FieldBookedDate,
}

func postedFields(c *gin.Context, names []string) map[string]string {
	out := map[string]string{}
	for _, name := range names {
		if v, ok := c.GetPostForm(name); ok {
			out[name] = v
		}
	}
	return out
}

// bindFields reads field values from a JSON object or a form body. JSON
// numbers are accepted for the counts and turned back into text so they go
// through the same parsing as typed input.
func bindFields(c *gin.Context) (map[string]string, error) {
	if !strings.HasPrefix(c.ContentType(), "application/json") {
		return postedFields(c, allFields), nil
	}

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		return nil, fmt.Errorf("invalid request payload: %w", err)
	}
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		switch vv := v.(type) {
		case string:
			out[k] = vv
		case float64:
			out[k] = strconv.FormatFloat(vv, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(vv)
		case nil:
			out[k] = ""
		default:
			return nil, fmt.Errorf("field %q must be a string or number", k)
		}
	}
	return out, nil
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, services.ErrNoImage):
		return http.StatusNotFound, "No image attached"
	case errors.Is(err, services.ErrUnknownField):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrWrongStage),
		errors.Is(err, services.ErrFieldNotEditable),
		errors.Is(err, services.ErrSubmitting),
		errors.Is(err, services.ErrFormClosed):
		return http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrSubmitFailed):
		return http.StatusBadGateway, err.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

func pagePath(id string) string {
	return "/s/" + id
}
