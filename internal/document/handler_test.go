package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *recordingStorage) {
	t.Helper()
	svc, store, _ := newTestService(t)
	r := chi.NewRouter()
	NewHandler(svc).Routes(r)
	return r, store
}

// fileForm builds a multipart body with a single file part.
func fileForm(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, h http.Handler, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, target, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := fileForm(t, "file", filename, content)
	return do(t, h, http.MethodPost, target, body, ct)
}

func TestUpload_Success(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := upload(t, h, "/upload/docs", "report.PDF", "%PDF-1.7")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"File 'report.PDF' uploaded successfully"}`, rec.Body.String())
}

func TestUpload_NoFilePart(t *testing.T) {
	h, store := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("comment", "no file here"))
	require.NoError(t, mw.Close())

	rec := do(t, h, http.MethodPost, "/upload", &buf, mw.FormDataContentType())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file part in the request"}`, rec.Body.String())
	assert.Zero(t, store.total())
}

func TestUpload_FileFieldWithoutFilenameIsNotAFilePart(t *testing.T) {
	h, _ := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("file", "plain value"))
	require.NoError(t, mw.Close())

	rec := do(t, h, http.MethodPost, "/upload", &buf, mw.FormDataContentType())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file part in the request"}`, rec.Body.String())
}

func TestUpload_NotMultipart(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/upload", bytes.NewBufferString(`{"file":"x"}`), "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file part in the request"}`, rec.Body.String())
}

func TestUpload_EmptyFilename(t *testing.T) {
	h, store := newTestRouter(t)

	rec := upload(t, h, "/upload", "", "data")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file selected for uploading"}`, rec.Body.String())
	assert.Zero(t, store.total())
}

func TestUpload_DisallowedExtensions(t *testing.T) {
	for _, name := range []string{"README", "photo.png", "script.sh", "doc.pdf.exe"} {
		t.Run(name, func(t *testing.T) {
			h, store := newTestRouter(t)

			rec := upload(t, h, "/upload/docs", name, "data")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"File type not allowed. Only pdf, doc, docx, and txt are supported"}`, rec.Body.String())
			assert.Zero(t, store.total())
		})
	}
}

func TestUpload_SkipsOtherPartsAndKeepsContentType(t *testing.T) {
	h, store := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("comment", "first"))
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="letter.docx"`)
	hdr.Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	pw, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = pw.Write([]byte("PK"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(t, h, http.MethodPost, "/upload/docs", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code)

	mem := store.Storage.(interface {
		Content(bucket, name string) ([]byte, string, bool)
	})
	data, ct, ok := mem.Content("docs", "letter.docx")
	require.True(t, ok)
	assert.Equal(t, "PK", string(data))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", ct)
}

func TestUpload_StoreErrorPassedThrough(t *testing.T) {
	h, store := newTestRouter(t)
	store.failOn, store.failErr = "put", errors.New("Storage backend has reached its minimum free drive threshold.")

	rec := upload(t, h, "/upload/docs", "a.txt", "x")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Storage backend has reached its minimum free drive threshold."}`, rec.Body.String())
}

func TestListETags_DefaultBucket(t *testing.T) {
	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, h, "/upload", "a.txt", "alpha").Code)

	rec := do(t, h, http.MethodGet, "/files", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files":["`+etagOf("alpha")+`"]}`, rec.Body.String())
}

func TestListFiles_Bucket(t *testing.T) {
	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, h, "/upload/reports", "q1.pdf", "q1").Code)
	require.Equal(t, http.StatusOK, upload(t, h, "/upload/reports", "q2.pdf", "q2").Code)

	rec := do(t, h, http.MethodGet, "/files/reports", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got fileList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.ElementsMatch(t, []fileEntry{
		{FileName: "q1.pdf", ETag: etagOf("q1")},
		{FileName: "q2.pdf", ETag: etagOf("q2")},
	}, got.Files)
}

func TestListFiles_EmptyBucketIsEmptyArray(t *testing.T) {
	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, h, "/upload/reports", "q1.pdf", "q1").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/delete/reports/"+etagOf("q1"), nil, "").Code)

	rec := do(t, h, http.MethodGet, "/files/reports", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files":[]}`, rec.Body.String())
}

func TestList_StoreError(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/files/never-created", nil, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "the specified bucket does not exist")
}

func TestUpload_OverwriteLeavesSingleEntry(t *testing.T) {
	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, h, "/upload/docs", "same.txt", "one").Code)
	require.Equal(t, http.StatusOK, upload(t, h, "/upload/docs", "same.txt", "two").Code)

	rec := do(t, h, http.MethodGet, "/files/docs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got fileList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Files, 1)
	assert.Equal(t, fileEntry{FileName: "same.txt", ETag: etagOf("two")}, got.Files[0])
}

func TestDelete_Found(t *testing.T) {
	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, h, "/upload/docs", "a.txt", "alpha").Code)
	etag := etagOf("alpha")

	rec := do(t, h, http.MethodDelete, "/delete/docs/"+etag, nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"File with etag '`+etag+`' deleted successfully"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/files/docs", nil, "")
	assert.JSONEq(t, `{"files":[]}`, rec.Body.String())
}

func TestDelete_DefaultBucket(t *testing.T) {
	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, h, "/upload", "a.txt", "alpha").Code)

	rec := do(t, h, http.MethodDelete, "/delete/"+etagOf("alpha"), nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDelete_NotFound(t *testing.T) {
	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, h, "/upload/docs", "a.txt", "alpha").Code)

	rec := do(t, h, http.MethodDelete, "/delete/docs/"+strings.Repeat("0", 32), nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"File with the specified etag not found"}`, rec.Body.String())
}

func TestDelete_StoreError(t *testing.T) {
	h, store := newTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, h, "/upload/docs", "a.txt", "alpha").Code)
	store.failOn, store.failErr = "remove", errors.New("Access Denied.")

	rec := do(t, h, http.MethodDelete, "/delete/docs/"+etagOf("alpha"), nil, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Access Denied."}`, rec.Body.String())
}
