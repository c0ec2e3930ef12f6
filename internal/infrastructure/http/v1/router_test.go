package v1_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	appctx "backoffice/internal/core/context"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/auth"
	"backoffice/internal/domain/opname"
	v1 "backoffice/internal/infrastructure/http/v1"
	"backoffice/internal/infrastructure/http/v1/dto"
	"backoffice/internal/infrastructure/http/v1/handlers"
	"backoffice/internal/infrastructure/storage/memory"
	"backoffice/pkg/logger"
)

type api struct {
	t        *testing.T
	router   *gin.Engine
	store    *memory.Store
	b1, b2   id.ID
	p1       opname.Product
	staff1   string
	staff2   string
	reviewer string
}

func newAPI(t *testing.T, opts ...func(*v1.RouterConfig)) *api {
	t.Helper()
	store := memory.New()
	svc := opname.NewService(store, store, store, store, store, opname.DefaultConfig())
	svc.SetAuditRecorder(store)
	svc.SetMovementLedger(store)

	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	a := &api{
		t:     t,
		store: store,
		b1:    id.New(),
		b2:    id.New(),
		p1:    opname.Product{ID: id.New(), SKU: "P1", Name: "Widget", UnitCost: types.MustMoney("2.00")},
	}
	store.AddProduct(a.p1)
	store.SetQuantity(a.b1, a.p1.ID, 10)

	token := func(u appctx.UserContext) string {
		s, _, err := jwtSvc.GenerateAccessToken(u)
		require.NoError(t, err)
		return s
	}
	a.staff1 = token(appctx.UserContext{UserID: "staff-1", BranchID: a.b1, Roles: []string{auth.RoleBranchStaff}})
	a.staff2 = token(appctx.UserContext{UserID: "staff-2", BranchID: a.b2, Roles: []string{auth.RoleBranchStaff}})
	a.reviewer = token(appctx.UserContext{UserID: "rev-1", Roles: []string{auth.RoleReviewer}, Permissions: []string{auth.PermOpnameReview}})

	cfg := v1.RouterConfig{
		Logger:       logger.NewNop(),
		JWTValidator: jwtSvc,
		Opname:       svc,
		Review:       opname.NewReviewService(store),
		History:      store,
		Ledger:       store,
		Health:       handlers.NewHealthHandler("test", "memory"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	a.router = v1.NewRouter(cfg)
	return a
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type sessionBody struct {
	ID     string        `json:"id"`
	Code   string        `json:"code"`
	Status string        `json:"status"`
	Items  []opname.Item `json:"items"`
	Totals opname.Totals `json:"totals"`
}

func (a *api) createDraft(token string) sessionBody {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/stock-opname", token, dto.CreateSessionRequest{Notes: "shelf A"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[sessionBody](a.t, w)
}

func (a *api) addItem(token, sessionID string, qty int64) *httptest.ResponseRecorder {
	a.t.Helper()
	return a.do(http.MethodPost, "/api/v1/stock-opname/"+sessionID+"/items", token, dto.AddItemRequest{
		ProductID:       a.p1.ID.String(),
		CountedQuantity: &qty,
	})
}

func TestAPI_RequiresToken(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/api/v1/stock-opname", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperror.CodeUnauthorized, decode[dto.ErrorResponse](t, w).Code)

	w = a.do(http.MethodGet, "/api/v1/stock-opname", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_Lifecycle(t *testing.T) {
	a := newAPI(t)

	sess := a.createDraft(a.staff1)
	assert.Equal(t, "DRAFT", sess.Status)
	assert.True(t, strings.HasPrefix(sess.Code, "SO-"))

	w := a.addItem(a.staff1, sess.ID, 13)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	item := decode[dto.ItemResponse](t, w)
	assert.Equal(t, int64(10), item.SystemQuantity)
	assert.Equal(t, int64(3), item.Difference)
	assert.Equal(t, "6", item.DifferenceValue.String())

	w = a.addItem(a.staff1, sess.ID, 1)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeDuplicate, decode[dto.ErrorResponse](t, w).Code)

	// Branch staff cannot approve.
	w = a.do(http.MethodPost, "/api/v1/stock-opname/"+sess.ID+"/submit", a.staff1, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	submitted := decode[sessionBody](t, w)
	assert.Equal(t, "SUBMIT", submitted.Status)
	assert.Len(t, submitted.Items, 1)
	assert.Equal(t, 1, submitted.Totals.TotalItems)
	assert.Equal(t, int64(3), submitted.Totals.TotalPositiveAdjustment)
	assert.Equal(t, "6", submitted.Totals.TotalAdjustmentValue.String())

	w = a.do(http.MethodPost, "/api/v1/stock-opname/"+sess.ID+"/approve", a.staff1, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/api/v1/stock-opname/"+sess.ID+"/approve", a.reviewer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	approved := decode[sessionBody](t, w)
	assert.Equal(t, "APPROVED", approved.Status)
	assert.Equal(t, int64(3), approved.Totals.TotalPositiveAdjustment)
	assert.Equal(t, int64(13), a.store.Quantity(a.b1, a.p1.ID))

	w = a.do(http.MethodPost, "/api/v1/stock-opname/"+sess.ID+"/approve", a.reviewer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeConcurrentModification, decode[dto.ErrorResponse](t, w).Code)
	assert.Equal(t, int64(13), a.store.Quantity(a.b1, a.p1.ID))

	w = a.do(http.MethodGet, "/api/v1/stock-opname/"+sess.ID+"/history", a.staff1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		Data []opname.HistoryEntry `json:"data"`
	}](t, w)
	require.Len(t, history.Data, 2)
	assert.Equal(t, opname.StatusApproved, history.Data[0].To)

	w = a.do(http.MethodGet, "/api/v1/stock-opname/"+sess.ID+"/movements", a.staff1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	movements := decode[struct {
		Data []opname.Movement `json:"data"`
	}](t, w)
	require.Len(t, movements.Data, 1)
	assert.Equal(t, int64(3), movements.Data[0].Quantity)

	w = a.do(http.MethodGet, "/api/v1/stock-opname/"+sess.ID+"/movements", a.staff2, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_BranchScoping(t *testing.T) {
	a := newAPI(t)
	sess := a.createDraft(a.staff1)

	w := a.do(http.MethodGet, "/api/v1/stock-opname/"+sess.ID, a.staff2, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.addItem(a.staff2, sess.ID, 1)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/v1/stock-opname", a.staff2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[dto.PageResponse[sessionBody]](t, w)
	assert.Empty(t, page.Data)
	assert.Equal(t, int64(0), page.Pagination.Total)

	w = a.do(http.MethodGet, "/api/v1/stock-opname?branchId="+a.b1.String(), a.staff2, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/api/v1/stock-opname", a.staff1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[dto.PageResponse[sessionBody]](t, w).Data, 1)

	w = a.do(http.MethodGet, "/api/v1/stock-opname?branchId=all", a.reviewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[dto.PageResponse[sessionBody]](t, w).Data, 1)

	w = a.do(http.MethodGet, "/api/v1/stock-opname?branchId="+a.b2.String(), a.reviewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[dto.PageResponse[sessionBody]](t, w).Data)

	w = a.do(http.MethodPost, "/api/v1/stock-opname", a.staff2, dto.CreateSessionRequest{BranchID: a.b1.String()})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Head-office reviewers must name the branch.
	w = a.do(http.MethodPost, "/api/v1/stock-opname", a.reviewer, dto.CreateSessionRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(http.MethodPost, "/api/v1/stock-opname", a.reviewer, dto.CreateSessionRequest{BranchID: a.b2.String()})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAPI_ListValidation(t *testing.T) {
	a := newAPI(t)

	for _, q := range []string{"status=OPEN", "perPage=7", "dateFrom=yesterday", "orderBy=notes", "page=x"} {
		w := a.do(http.MethodGet, "/api/v1/stock-opname?"+q, a.staff1, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, apperror.CodeValidation, decode[dto.ErrorResponse](t, w).Code, q)
	}
}

func TestAPI_RejectNeedsNotes(t *testing.T) {
	a := newAPI(t)
	sess := a.createDraft(a.staff1)
	require.Equal(t, http.StatusCreated, a.addItem(a.staff1, sess.ID, 4).Code)
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/v1/stock-opname/"+sess.ID+"/submit", a.staff1, nil).Code)

	w := a.do(http.MethodPost, "/api/v1/stock-opname/"+sess.ID+"/reject", a.reviewer, dto.RejectRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/v1/stock-opname/pending", a.reviewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[dto.PageResponse[sessionBody]](t, w).Data, 1)

	w = a.do(http.MethodPost, "/api/v1/stock-opname/"+sess.ID+"/reject", a.reviewer, dto.RejectRequest{AdminNotes: "data mismatch"})
	require.Equal(t, http.StatusOK, w.Code)
	rejected := decode[sessionBody](t, w)
	assert.Equal(t, "REJECTED", rejected.Status)
	assert.Equal(t, 1, rejected.Totals.TotalItems)
	assert.Equal(t, int64(6), rejected.Totals.TotalNegativeAdjustment)
	assert.Equal(t, int64(10), a.store.Quantity(a.b1, a.p1.ID))
}

func TestAPI_DiscardDraft(t *testing.T) {
	a := newAPI(t)
	sess := a.createDraft(a.staff1)

	w := a.do(http.MethodDelete, "/api/v1/stock-opname/"+sess.ID, a.reviewer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodDelete, "/api/v1/stock-opname/"+sess.ID, a.staff1, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodGet, "/api/v1/stock-opname/"+sess.ID, a.staff1, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_ExportImport(t *testing.T) {
	a := newAPI(t)
	src := a.createDraft(a.staff1)
	require.Equal(t, http.StatusCreated, a.addItem(a.staff1, src.ID, 12).Code)

	w := a.do(http.MethodGet, "/api/v1/stock-opname/"+src.ID+"/export?format=csv", a.staff1, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), src.Code+".csv")

	records, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, opname.Columns, records[0])
	exported := w.Body.Bytes()

	// Append a line for an unknown SKU.
	exported = append(exported, []byte("NOPE,,,5,,\n")...)

	dst := a.createDraft(a.staff1)
	rec := a.upload(a.staff1, dst.ID, "count.csv", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[dto.ImportResponse](t, rec)
	assert.Equal(t, 1, report.AcceptedCount)
	require.Equal(t, 1, report.RejectedCount)
	assert.Equal(t, 3, report.Rejected[0].Line)
	assert.Equal(t, apperror.CodeNotFound, report.Rejected[0].Code)

	w = a.do(http.MethodGet, "/api/v1/stock-opname/"+dst.ID, a.staff1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	imported := decode[sessionBody](t, w)
	require.Len(t, imported.Items, 1)
	assert.Equal(t, a.p1.ID, imported.Items[0].ProductID)
	assert.Equal(t, int64(12), imported.Items[0].CountedQuantity)

	w = a.do(http.MethodGet, "/api/v1/stock-opname/"+src.ID+"/export?format=ods", a.staff1, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (a *api) upload(token, sessionID, filename string, content []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(a.t, err)
	_, err = part.Write(content)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stock-opname/"+sessionID+"/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestAPI_ImportRejectsOversizedFile(t *testing.T) {
	const limit = 1 << 10
	a := newAPI(t, func(cfg *v1.RouterConfig) { cfg.MaxImportSize = limit })
	sess := a.createDraft(a.staff1)

	sheet := func(size int) []byte {
		b := []byte("product_sku,counted_quantity\n")
		for len(b) < size {
			b = append(b, "P1,12\n"...)
		}
		return b
	}

	tests := []struct {
		name string
		size int
	}{
		{"just over the limit", limit + 64},
		{"body cut off while reading", 64 << 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.upload(a.staff1, sess.ID, "count.csv", sheet(tt.size))
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			resp := decode[dto.ErrorResponse](t, w)
			assert.Equal(t, apperror.CodeValidation, resp.Code)
			assert.Equal(t, "file is too large", resp.Message)
		})
	}

	w := a.upload(a.staff1, sess.ID, "count.csv", sheet(limit/2))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[dto.ImportResponse](t, w).AcceptedCount)
}

func TestAPI_ImportRequiresFile(t *testing.T) {
	a := newAPI(t)
	sess := a.createDraft(a.staff1)

	w := a.do(http.MethodPost, "/api/v1/stock-opname/"+sess.ID+"/import", a.staff1, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_Health(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{}}`, w.Body.String())
}
