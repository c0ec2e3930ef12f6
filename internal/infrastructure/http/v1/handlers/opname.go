package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"backoffice/internal/core/apperror"
	appctx "backoffice/internal/core/context"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/auth"
	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/http/v1/dto"
	"backoffice/internal/infrastructure/tabular"
)

const (
	// MaxImportSize caps uploaded count sheets.
	MaxImportSize = 10 << 20

	// multipartOverhead covers part headers and boundaries around the file.
	multipartOverhead = 4 << 10

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// OpnameHandler serves /stock-opname.
type OpnameHandler struct {
	*BaseHandler
	service *opname.Service
	review  *opname.ReviewService
	history opname.HistoryReader
	ledger  opname.MovementLedger

	maxImport int64
}

// NewOpnameHandler creates the handler. history may be nil.
func NewOpnameHandler(base *BaseHandler, service *opname.Service, review *opname.ReviewService, history opname.HistoryReader) *OpnameHandler {
	return &OpnameHandler{
		BaseHandler: base,
		service:     service,
		review:      review,
		history:     history,
		maxImport:   MaxImportSize,
	}
}

// WithMaxImportSize overrides MaxImportSize. Non-positive values are ignored.
func (h *OpnameHandler) WithMaxImportSize(n int64) *OpnameHandler {
	if n > 0 {
		h.maxImport = n
	}
	return h
}

// WithLedger enables GET /:id/movements.
func (h *OpnameHandler) WithLedger(l opname.MovementLedger) *OpnameHandler {
	h.ledger = l
	return h
}

// RegisterRoutes mounts the endpoints on rg. requireReview guards reviewer-only routes.
func (h *OpnameHandler) RegisterRoutes(rg *gin.RouterGroup, requireReview gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/pending", requireReview, h.Pending)

	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Discard)
	rg.GET("/:id/history", h.History)
	rg.GET("/:id/movements", h.Movements)

	rg.POST("/:id/items", h.AddItem)
	rg.DELETE("/:id/items/:itemId", h.RemoveItem)

	rg.POST("/:id/submit", h.Submit)
	rg.POST("/:id/approve", requireReview, h.Approve)
	rg.POST("/:id/reject", requireReview, h.Reject)

	rg.GET("/:id/export", h.Export)
	rg.POST("/:id/import", h.Import)
}

func isReviewer(u *appctx.UserContext) bool {
	return u.HasPermission(auth.PermOpnameReview)
}

// scoped loads the :id session header. Sessions of other branches are
// reported as missing to branch staff.
func (h *OpnameHandler) scoped(c *gin.Context) (*opname.Session, bool) {
	sessionID, ok := h.ParamID(c, "id")
	if !ok {
		return nil, false
	}
	sess, err := h.service.GetSessionHeader(c.Request.Context(), sessionID)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	user := h.User(c)
	if !isReviewer(user) && sess.BranchID != user.BranchID {
		h.Error(c, apperror.NewNotFound("opname_session", sessionID.String()))
		return nil, false
	}
	return sess, true
}

// List handles GET /stock-opname
func (h *OpnameHandler) List(c *gin.Context) {
	var q dto.ListSessionsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	user := h.User(c)
	switch {
	case isReviewer(user) && (q.BranchID == "" || q.BranchID == "all"):
	case isReviewer(user):
		branchID, err := id.Parse(q.BranchID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid branchId").WithDetail("branchId", q.BranchID))
			return
		}
		filter.BranchID = &branchID
	default:
		if q.BranchID != "" && q.BranchID != user.BranchID.String() {
			h.Error(c, apperror.NewForbidden("listing other branches requires review permission"))
			return
		}
		own := user.BranchID
		filter.BranchID = &own
	}

	page, err := h.review.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPage(page, dto.FromSummary))
}

// Pending handles GET /stock-opname/pending
func (h *OpnameHandler) Pending(c *gin.Context) {
	var q struct {
		Page    int `form:"page"`
		PerPage int `form:"perPage"`
	}
	if !h.BindQuery(c, &q) {
		return
	}
	page, err := h.review.PendingReview(c.Request.Context(), q.Page, q.PerPage)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPage(page, dto.FromSummary))
}

// Create handles POST /stock-opname
func (h *OpnameHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user := h.User(c)
	branchID := user.BranchID
	if req.BranchID != "" {
		requested, err := id.Parse(req.BranchID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid branchId").WithDetail("field", "branchId"))
			return
		}
		if requested != user.BranchID && !isReviewer(user) {
			h.Error(c, apperror.NewForbidden("cannot open a session for another branch"))
			return
		}
		branchID = requested
	}

	sess, err := h.service.CreateSession(c.Request.Context(), branchID, user.UserID, req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSession(sess))
}

// Get handles GET /stock-opname/:id
func (h *OpnameHandler) Get(c *gin.Context) {
	header, ok := h.scoped(c)
	if !ok {
		return
	}
	sess, err := h.service.GetSession(c.Request.Context(), header.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSession(sess))
}

// Discard handles DELETE /stock-opname/:id
func (h *OpnameHandler) Discard(c *gin.Context) {
	sess, ok := h.scoped(c)
	if !ok {
		return
	}
	if err := h.service.DiscardDraft(c.Request.Context(), sess.ID, h.User(c).UserID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// AddItem handles POST /stock-opname/:id/items
func (h *OpnameHandler) AddItem(c *gin.Context) {
	sess, ok := h.scoped(c)
	if !ok {
		return
	}
	var req dto.AddItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId").WithDetail("field", "productId"))
		return
	}

	item, err := h.service.AddItem(c.Request.Context(), sess.ID, productID, *req.CountedQuantity, req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.ItemResponse{Item: *item, DifferenceValue: item.DifferenceValue()})
}

// RemoveItem handles DELETE /stock-opname/:id/items/:itemId
func (h *OpnameHandler) RemoveItem(c *gin.Context) {
	sess, ok := h.scoped(c)
	if !ok {
		return
	}
	itemID, ok := h.ParamID(c, "itemId")
	if !ok {
		return
	}
	if err := h.service.RemoveItem(c.Request.Context(), sess.ID, itemID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Submit handles POST /stock-opname/:id/submit
func (h *OpnameHandler) Submit(c *gin.Context) {
	sess, ok := h.scoped(c)
	if !ok {
		return
	}
	submitted, err := h.service.Submit(c.Request.Context(), sess.ID, h.User(c).UserID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSession(submitted))
}

// Approve handles POST /stock-opname/:id/approve
func (h *OpnameHandler) Approve(c *gin.Context) {
	sessionID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	sess, err := h.service.Approve(c.Request.Context(), sessionID, h.User(c).UserID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSession(sess))
}

// Reject handles POST /stock-opname/:id/reject
func (h *OpnameHandler) Reject(c *gin.Context) {
	sessionID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.RejectRequest
	if !h.BindJSON(c, &req) {
		return
	}
	sess, err := h.service.Reject(c.Request.Context(), sessionID, h.User(c).UserID, req.AdminNotes)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSession(sess))
}

// Export handles GET /stock-opname/:id/export?format=csv|xlsx
func (h *OpnameHandler) Export(c *gin.Context) {
	sess, ok := h.scoped(c)
	if !ok {
		return
	}
	format, err := tabular.ParseFormat(c.Query("format"))
	if err != nil {
		h.Error(c, err)
		return
	}

	// Encode fully before writing so a failure still gets a JSON error.
	var buf bytes.Buffer
	if err := tabular.Encode(&buf, format, h.service.ExportRows(c.Request.Context(), sess.ID)); err != nil {
		h.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, sess.Code, format))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// Import handles POST /stock-opname/:id/import (multipart field "file")
func (h *OpnameHandler) Import(c *gin.Context) {
	sess, ok := h.scoped(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImport+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, apperror.NewValidation("file is too large").WithDetail("max", h.maxImport))
			return
		}
		h.Error(c, apperror.NewValidation("multipart field \"file\" is required"))
		return
	}
	if fh.Size > h.maxImport {
		h.Error(c, apperror.NewValidation("file is too large").
			WithDetail("size", fh.Size).
			WithDetail("max", h.maxImport))
		return
	}

	format, err := tabular.FormatFromFilename(fh.Filename)
	if q := c.Query("format"); q != "" {
		format, err = tabular.ParseFormat(q)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.Error(c, apperror.NewValidation("cannot read upload").WithCause(err))
		return
	}
	defer f.Close()

	lines, err := tabular.Decode(f, format)
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.ImportLines(c.Request.Context(), sess.ID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromImportReport(report))
}

// History handles GET /stock-opname/:id/history
func (h *OpnameHandler) History(c *gin.Context) {
	if h.history == nil {
		h.Error(c, apperror.NewNotFound("history", "backend"))
		return
	}
	sess, ok := h.scoped(c)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			h.Error(c, apperror.NewValidation("invalid limit").
				WithDetail("limit", v).
				WithDetail("max", maxHistoryLimit))
			return
		}
		limit = n
	}

	entries, err := h.history.SessionHistory(c.Request.Context(), sess.ID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"data": entries})
}

// Movements handles GET /stock-opname/:id/movements
func (h *OpnameHandler) Movements(c *gin.Context) {
	if h.ledger == nil {
		h.Error(c, apperror.NewNotFound("movements", "backend"))
		return
	}
	sess, ok := h.scoped(c)
	if !ok {
		return
	}

	movements, err := h.ledger.SessionMovements(c.Request.Context(), sess.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"data": movements})
}
