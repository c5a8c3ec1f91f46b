package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docmon/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, r http.Handler, path string, body map[string]any, token string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return performRequest(r, http.MethodPost, path, bytes.NewReader(b), token, "application/json")
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func setupTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	setupTestEnv(t)
	r := gin.New()
	setupRoutes(r)
	return r
}

func loginAs(t *testing.T, r http.Handler, username, password string) (string, string) {
	t.Helper()
	rec := postJSON(t, r, "/auth/login", map[string]any{"username": username, "password": password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	return body["token"].(string), body["refresh_token"].(string)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	r := setupTestServer(t)

	// register
	rec := postJSON(t, r, "/auth/register", map[string]any{
		"username": "alice", "password": "Secret1!", "email": "alice@x.com",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// duplicate register → 400 with the fixed message
	rec = postJSON(t, r, "/auth/register", map[string]any{
		"username": "alice", "password": "Secret1!", "email": "alice@x.com",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username or email already exists")

	// bad credentials → 401
	rec = postJSON(t, r, "/auth/login", map[string]any{"username": "alice", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	t1, r1 := loginAs(t, r, "alice", "Secret1!")

	// authenticated identity
	rec = performRequest(r, http.MethodGet, "/auth/me", nil, t1, "")
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, "alice@x.com", me["email"])

	// refresh rotates: R1 yields a new pair, then stops working
	rec = postJSON(t, r, "/auth/refresh", map[string]any{"refresh_token": r1}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pair := decodeBody(t, rec)
	r2 := pair["refresh_token"].(string)
	assert.NotEqual(t, r1, r2)

	rec = postJSON(t, r, "/auth/refresh", map[string]any{"refresh_token": r1}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// logout then refresh with the revoked secret
	rec = postJSON(t, r, "/auth/logout", map[string]any{"refresh_token": r2}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = postJSON(t, r, "/auth/logout", map[string]any{"refresh_token": r2}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = postJSON(t, r, "/auth/refresh", map[string]any{"refresh_token": r2}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// no token → 401
	rec = performRequest(r, http.MethodGet, "/auth/me", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordResetOverHTTP(t *testing.T) {
	r := setupTestServer(t)
	rec := postJSON(t, r, "/auth/register", map[string]any{
		"username": "alice", "password": "Secret1!", "email": "alice@x.com",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	oldAccess, _ := loginAs(t, r, "alice", "Secret1!")

	rec = postJSON(t, r, "/auth/generate-reset", map[string]any{"username": "alice"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	reset := decodeBody(t, rec)["reset_token"].(string)
	require.NotEmpty(t, reset)

	rec = postJSON(t, r, "/auth/reset-password", map[string]any{"token": reset, "new_password": "NewPass1!"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// reused reset token → 400
	rec = postJSON(t, r, "/auth/reset-password", map[string]any{"token": reset, "new_password": "Again1!"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// old password dead, new one works
	rec = postJSON(t, r, "/auth/login", map[string]any{"username": "alice", "password": "Secret1!"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, _ = loginAs(t, r, "alice", "NewPass1!")

	// access tokens minted before the reset carry the old stamp
	rec = performRequest(r, http.MethodGet, "/auth/me", nil, oldAccess, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResetTokenHiddenByDefault(t *testing.T) {
	r := setupTestServer(t)
	cfg.ExposeResetToken = false

	rec := postJSON(t, r, "/auth/register", map[string]any{
		"username": "alice", "password": "Secret1!", "email": "alice@x.com",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, r, "/auth/generate-reset", map[string]any{"username": "alice"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	_, exposed := body["reset_token"]
	assert.False(t, exposed, "reset token must not be echoed unless explicitly enabled")

	// unknown subject gets the identical response shape
	rec2 := postJSON(t, r, "/auth/generate-reset", map[string]any{"username": "ghost"}, "")
	assert.Equal(t, rec.Body.String(), rec2.Body.String())
}

func TestInvoiceApprovalFlow(t *testing.T) {
	r := setupTestServer(t)
	adminTok, _ := loginAs(t, r, "admin", "admin123")

	// vendor + budget
	rec := postJSON(t, r, "/vendors", map[string]any{"name": "Acme", "contact_email": "ap@acme.com"}, adminTok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	vendorID := uint(decodeBody(t, rec)["id"].(float64))

	period := time.Now().Format("2006-01")
	rec = postJSON(t, r, "/budgets", map[string]any{"vendor_id": vendorID, "period": period, "amount": 100000}, adminTok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// vendor user submits an invoice
	rec = postJSON(t, r, "/auth/register", map[string]any{
		"username": "bob", "password": "Secret1!", "email": "bob@acme.com", "vendor_id": vendorID,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bobTok, _ := loginAs(t, r, "bob", "Secret1!")

	rec = postJSON(t, r, "/invoices", map[string]any{"number": "INV-1", "amount": 60000}, bobTok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	invID := uint(decodeBody(t, rec)["id"].(float64))

	// duplicate number for the same vendor → 409
	rec = postJSON(t, r, "/invoices", map[string]any{"number": "INV-1", "amount": 100}, bobTok)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// vendor users cannot approve
	rec = postJSON(t, r, fmt.Sprintf("/invoices/%d/approve", invID), map[string]any{}, bobTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// admin approves; budget is charged
	rec = postJSON(t, r, fmt.Sprintf("/invoices/%d/approve", invID), map[string]any{}, adminTok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var budget models.Budget
	require.NoError(t, db.Where("vendor_id = ? AND period = ?", vendorID, period).First(&budget).Error)
	assert.EqualValues(t, 60000, budget.Consumed)

	// approving twice → 409
	rec = postJSON(t, r, fmt.Sprintf("/invoices/%d/approve", invID), map[string]any{}, adminTok)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// a second invoice that would blow the budget → 409, status stays usable
	rec = postJSON(t, r, "/invoices", map[string]any{"number": "INV-2", "amount": 50000}, bobTok)
	require.Equal(t, http.StatusOK, rec.Code)
	inv2 := uint(decodeBody(t, rec)["id"].(float64))
	rec = postJSON(t, r, fmt.Sprintf("/invoices/%d/approve", inv2), map[string]any{}, adminTok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "budget exceeded")

	// the submitter got notified about the approval
	rec = performRequest(r, http.MethodGet, "/notifications?unread=1", nil, bobTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []models.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.NotEmpty(t, notes)
	assert.Equal(t, models.NotifyInvoiceApproved, notes[len(notes)-1].Kind)

	// audit trail is admin-only and contains the approval
	rec = performRequest(r, http.MethodGet, "/audit?entity=invoice", nil, adminTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "approve")
	rec = performRequest(r, http.MethodGet, "/audit", nil, bobTok, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContractFlow(t *testing.T) {
	r := setupTestServer(t)
	adminTok, _ := loginAs(t, r, "admin", "admin123")

	rec := postJSON(t, r, "/vendors", map[string]any{"name": "Acme"}, adminTok)
	require.Equal(t, http.StatusOK, rec.Code)
	vendorID := uint(decodeBody(t, rec)["id"].(float64))

	rec = postJSON(t, r, "/auth/register", map[string]any{
		"username": "bob", "password": "Secret1!", "email": "bob@acme.com", "vendor_id": vendorID,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	bobTok, _ := loginAs(t, r, "bob", "Secret1!")

	start := time.Now().Add(-24 * time.Hour)
	end := time.Now().Add(-time.Hour) // already over: exercises computed expiry
	rec = postJSON(t, r, "/contracts", map[string]any{
		"title":      "Maintenance 2026",
		"start_date": start.Format(time.RFC3339),
		"end_date":   end.Format(time.RFC3339),
		"value":      250000,
	}, bobTok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ctID := uint(decodeBody(t, rec)["id"].(float64))

	rec = postJSON(t, r, fmt.Sprintf("/contracts/%d/reject", ctID), map[string]any{"reason": "missing signature"}, adminTok)
	require.Equal(t, http.StatusOK, rec.Code)

	// rejecting again → 409
	rec = postJSON(t, r, fmt.Sprintf("/contracts/%d/reject", ctID), map[string]any{}, adminTok)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = performRequest(r, http.MethodGet, fmt.Sprintf("/contracts/%d", ctID), nil, bobTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, models.ContractStatusRejected, got["effective_status"])

	// an approved contract past its end date reads as expired
	var ct models.Contract
	require.NoError(t, db.First(&ct, ctID).Error)
	db.Model(&ct).Update("status", models.ContractStatusApproved)
	rec = performRequest(r, http.MethodGet, fmt.Sprintf("/contracts/%d", ctID), nil, bobTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeBody(t, rec)
	assert.Equal(t, models.ContractStatusExpired, got["effective_status"])
}

func TestAttachmentUpload(t *testing.T) {
	r := setupTestServer(t)
	adminTok, _ := loginAs(t, r, "admin", "admin123")

	rec := postJSON(t, r, "/vendors", map[string]any{"name": "Acme"}, adminTok)
	require.Equal(t, http.StatusOK, rec.Code)
	vendorID := uint(decodeBody(t, rec)["id"].(float64))

	rec = postJSON(t, r, "/auth/register", map[string]any{
		"username": "bob", "password": "Secret1!", "email": "bob@acme.com", "vendor_id": vendorID,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	bobTok, _ := loginAs(t, r, "bob", "Secret1!")

	rec = postJSON(t, r, "/invoices", map[string]any{"number": "INV-1", "amount": 500}, bobTok)
	require.Equal(t, http.StatusOK, rec.Code)
	invID := uint(decodeBody(t, rec)["id"].(float64))

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	_ = mw.WriteField("invoice_id", fmt.Sprint(invID))
	w, _ := mw.CreateFormFile("file", "invoice.txt")
	_, _ = w.Write([]byte("INVOICE INV-1 TOTAL 5.00"))
	_ = mw.Close()
	rec = performRequest(r, http.MethodPost, "/attachments", buf, bobTok, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	attID := uint(decodeBody(t, rec)["id"].(float64))

	// neither or both parents → 400
	buf = &bytes.Buffer{}
	mw = multipart.NewWriter(buf)
	w, _ = mw.CreateFormFile("file", "x.txt")
	_, _ = w.Write([]byte("x"))
	_ = mw.Close()
	rec = performRequest(r, http.MethodPost, "/attachments", buf, bobTok, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(r, http.MethodGet, fmt.Sprintf("/attachments/%d", attID), nil, bobTok, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = performRequest(r, http.MethodGet, "/attachments", nil, bobTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []models.Attachment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 1)
}

func TestVendorCRUDRequiresAdmin(t *testing.T) {
	r := setupTestServer(t)
	rec := postJSON(t, r, "/auth/register", map[string]any{
		"username": "alice", "password": "Secret1!", "email": "alice@x.com",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	tok, _ := loginAs(t, r, "alice", "Secret1!")

	rec = postJSON(t, r, "/vendors", map[string]any{"name": "Acme"}, tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminTok, _ := loginAs(t, r, "admin", "admin123")
	rec = postJSON(t, r, "/vendors", map[string]any{"name": "Acme"}, adminTok)
	require.Equal(t, http.StatusOK, rec.Code)
	id := uint(decodeBody(t, rec)["id"].(float64))

	// duplicate name → 409
	rec = postJSON(t, r, "/vendors", map[string]any{"name": "Acme"}, adminTok)
	assert.Equal(t, http.StatusConflict, rec.Code)

	req, _ := http.NewRequest(http.MethodPut, fmt.Sprintf("/vendors/%d", id), bytes.NewReader([]byte(`{"phone":"555-0101"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminTok)
	recPut := httptest.NewRecorder()
	r.ServeHTTP(recPut, req)
	require.Equal(t, http.StatusOK, recPut.Code)

	req, _ = http.NewRequest(http.MethodDelete, fmt.Sprintf("/vendors/%d", id), nil)
	req.Header.Set("Authorization", "Bearer "+adminTok)
	recDel := httptest.NewRecorder()
	r.ServeHTTP(recDel, req)
	require.Equal(t, http.StatusOK, recDel.Code)

	rec = performRequest(r, http.MethodGet, fmt.Sprintf("/vendors/%d", id), nil, adminTok, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUserOverHTTP(t *testing.T) {
	r := setupTestServer(t)
	rec := postJSON(t, r, "/auth/register", map[string]any{
		"username": "alice", "password": "Secret1!", "email": "alice@x.com",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var u models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&u).Error)

	adminTok, _ := loginAs(t, r, "admin", "admin123")
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("/users/%d", u.ID), nil)
	req.Header.Set("Authorization", "Bearer "+adminTok)
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	// the freed username can register again
	rec = postJSON(t, r, "/auth/register", map[string]any{
		"username": "alice", "password": "Other1!", "email": "alice@x.com",
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
