package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/service/internal/response"
)

type testAPI struct {
	router http.Handler
	repo   *countingRepo
	store  *fakeGateway
}

func newTestAPI(t *testing.T, maxFileBytes int64) *testAPI {
	t.Helper()
	repo := &countingRepo{MemoryRepository: NewMemoryRepository()}
	store := &fakeGateway{}
	svc := NewService(repo, store, Config{MaxFileBytes: maxFileBytes}, nil, nil)

	r := chi.NewRouter()
	r.Mount("/api/orders", NewHandler(svc, maxFileBytes, nil).Routes())
	return &testAPI{router: r, repo: repo, store: store}
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

type formFile struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, file *formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile("file", file.name)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeOrder(t *testing.T, rec *httptest.ResponseRecorder) orderBody {
	t.Helper()
	var body orderBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler_CreateGetListDelete(t *testing.T) {
	api := newTestAPI(t, 1<<20)

	rec := api.do(multipartRequest(t, http.MethodPost, "/api/orders",
		map[string]string{"customerName": "Alice", "amount": "100.00"},
		&formFile{name: "invoice.pdf", data: []byte("%PDF-1.4")},
	))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeOrder(t, rec)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Alice", created.CustomerName)
	assert.Equal(t, json.Number("100.00"), created.Amount)
	assert.True(t, strings.HasSuffix(created.FileURL, "-invoice.pdf"))

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/orders/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.FileURL, decodeOrder(t, rec).FileURL)

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []orderBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/orders/1/download-url", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var link downloadLinkBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	assert.NotEqual(t, created.FileURL, link.URL)
	assert.True(t, strings.HasPrefix(link.URL, created.FileURL+"?"))
	assert.False(t, link.ExpiresAt.IsZero())

	rec = api.do(httptest.NewRequest(http.MethodDelete, "/api/orders/1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/orders/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, response.CodeOrderNotFound, decodeError(t, rec).Code)

	rec = api.do(httptest.NewRequest(http.MethodDelete, "/api/orders/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/orders/1/download-url", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, response.CodeOrderNotFound, decodeError(t, rec).Code)
}

func TestHandler_CreateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		file   *formFile
	}{
		{name: "missing file", fields: map[string]string{"customerName": "a", "amount": "1"}},
		{name: "empty file", fields: map[string]string{"customerName": "a", "amount": "1"}, file: &formFile{name: "a.pdf"}},
		{name: "missing amount", fields: map[string]string{"customerName": "a"}, file: &formFile{name: "a.pdf", data: []byte("x")}},
		{name: "non-numeric amount", fields: map[string]string{"customerName": "a", "amount": "ten"}, file: &formFile{name: "a.pdf", data: []byte("x")}},
		{name: "negative amount", fields: map[string]string{"customerName": "a", "amount": "-1"}, file: &formFile{name: "a.pdf", data: []byte("x")}},
		{name: "missing customer", fields: map[string]string{"amount": "1"}, file: &formFile{name: "a.pdf", data: []byte("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, 1<<20)

			rec := api.do(multipartRequest(t, http.MethodPost, "/api/orders", tt.fields, tt.file))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, response.CodeValidationFailed, body.Code)
			assert.Equal(t, http.StatusBadRequest, body.Status)
			assert.Zero(t, api.store.putCount())
			assert.Zero(t, api.repo.saves)
		})
	}
}

func TestHandler_CreateRejectsNonMultipart(t *testing.T) {
	api := newTestAPI(t, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"customerName":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := api.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeValidationFailed, decodeError(t, rec).Code)
}

func TestHandler_CreateFileTooLarge(t *testing.T) {
	api := newTestAPI(t, 16)

	rec := api.do(multipartRequest(t, http.MethodPost, "/api/orders",
		map[string]string{"customerName": "a", "amount": "1"},
		&formFile{name: "big.bin", data: bytes.Repeat([]byte("x"), 2<<20)},
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeFileTooLarge, decodeError(t, rec).Code)
	assert.Zero(t, api.store.putCount())
}

func TestHandler_CreateUploadFailure(t *testing.T) {
	api := newTestAPI(t, 1<<20)
	api.store.putErr = errors.New("no route to host")

	rec := api.do(multipartRequest(t, http.MethodPost, "/api/orders",
		map[string]string{"customerName": "a", "amount": "1"},
		&formFile{name: "a.pdf", data: []byte("x")},
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, response.CodeFileUploadFailed, body.Code)
	assert.NotContains(t, body.Message, "no route to host")
	assert.Zero(t, api.repo.saves)
}

func TestHandler_Update(t *testing.T) {
	api := newTestAPI(t, 1<<20)

	rec := api.do(multipartRequest(t, http.MethodPost, "/api/orders",
		map[string]string{"customerName": "Alice", "amount": "10"},
		&formFile{name: "invoice.pdf", data: []byte("v1")},
	))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeOrder(t, rec)

	rec = api.do(multipartRequest(t, http.MethodPut, "/api/orders/1",
		map[string]string{"customerName": "Alice Smith", "amount": "12.5"}, nil,
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeOrder(t, rec)
	assert.Equal(t, "Alice Smith", updated.CustomerName)
	assert.Equal(t, json.Number("12.50"), updated.Amount)
	assert.Equal(t, created.FileURL, updated.FileURL)

	rec = api.do(multipartRequest(t, http.MethodPut, "/api/orders/1",
		map[string]string{"customerName": "Alice Smith", "amount": "12.5"},
		&formFile{name: "invoice-v2.pdf", data: []byte("v2")},
	))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasSuffix(decodeOrder(t, rec).FileURL, "-invoice-v2.pdf"))

	rec = api.do(multipartRequest(t, http.MethodPut, "/api/orders/999",
		map[string]string{"customerName": "Ghost", "amount": "1"},
		&formFile{name: "ghost.pdf", data: []byte("x")},
	))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 2, api.store.putCount(), "no upload for a missing order")
}

func TestHandler_InvalidID(t *testing.T) {
	api := newTestAPI(t, 1<<20)

	for _, target := range []string{"/api/orders/abc", "/api/orders/0", "/api/orders/-3/download-url"} {
		rec := api.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, response.CodeValidationFailed, decodeError(t, rec).Code, target)
	}
}

func TestHandler_DownloadURLNoFile(t *testing.T) {
	api := newTestAPI(t, 1<<20)
	_, err := api.repo.MemoryRepository.Save(context.Background(), Order{CustomerName: "Legacy"})
	require.NoError(t, err)

	rec := api.do(httptest.NewRequest(http.MethodGet, "/api/orders/1/download-url", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, response.CodeNoFileAttached, decodeError(t, rec).Code)
}

func TestHandler_InternalErrorHidesCause(t *testing.T) {
	api := newTestAPI(t, 1<<20)
	api.repo.saveErr = errors.New("pq: password authentication failed")

	rec := api.do(multipartRequest(t, http.MethodPost, "/api/orders",
		map[string]string{"customerName": "a", "amount": "1"},
		&formFile{name: "a.pdf", data: []byte("x")},
	))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, response.CodeInternal, body.Code)
	assert.NotContains(t, body.Message, "password")
}
