package document

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docgate/service/internal/response"
)

const (
	msgNoFilePart     = "No file part in the request"
	msgNoFileSelected = "No file selected for uploading"
	msgTypeNotAllowed = "File type not allowed. Only pdf, doc, docx, and txt are supported"
	msgETagNotFound   = "File with the specified etag not found"
)

// formField is the multipart field carrying the uploaded file.
const formField = "file"

// Handler holds HTTP handlers for the document endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new document Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers both the default-bucket and the bucket-scoped endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Post("/upload/{bucket}", h.Upload)
	r.Get("/files", h.ListETags)
	r.Get("/files/{bucket}", h.ListFiles)
	r.Delete("/delete/{etag}", h.Delete)
	r.Delete("/delete/{bucket}/{etag}", h.Delete)
}

type fileEntry struct {
	FileName string `json:"file_name" example:"report.pdf"`
	ETag     string `json:"etag"      example:"5d41402abc4b2a76b9719d911017c592"`
}

type etagList struct {
	Files []string `json:"files"`
}

type fileList struct {
	Files []fileEntry `json:"files"`
}

// Upload godoc
//
//	@Summary		Upload a document
//	@Description	Streams the "file" part into the bucket under its original name, creating the bucket if needed. Allowed extensions: pdf, doc, docx, txt. Existing objects with the same name are overwritten.
//	@Tags			documents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			bucket	path		string	false	"Bucket name (default bucket when omitted)"
//	@Param			file	formData	file	true	"Document to upload"
//	@Success		200		{object}	response.Message
//	@Failure		400		{object}	response.Error
//	@Failure		500		{object}	response.Error
//	@Router			/upload/{bucket} [post]
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		response.BadRequest(w, msgNoFilePart)
		return
	}

	part, err := nextFilePart(mr)
	if err != nil {
		response.BadRequest(w, msgNoFilePart)
		return
	}
	defer part.Close()

	filename := part.FileName()
	err = h.svc.Upload(r.Context(), chi.URLParam(r, "bucket"), filename, part.Header.Get("Content-Type"), part)
	switch {
	case errors.Is(err, ErrNoFileSelected):
		response.BadRequest(w, msgNoFileSelected)
	case errors.Is(err, ErrTypeNotAllowed):
		response.BadRequest(w, msgTypeNotAllowed)
	case err != nil:
		response.InternalError(w, err)
	default:
		response.OKMessage(w, fmt.Sprintf("File '%s' uploaded successfully", filename))
	}
}

// nextFilePart advances to the first part named formField that was sent as a
// file, i.e. whose Content-Disposition has a filename parameter, even an empty one.
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			if err == io.EOF {
				return nil, errors.New("no file part")
			}
			return nil, err
		}
		if part.FormName() == formField && hasFilename(part) {
			return part, nil
		}
		part.Close()
	}
}

func hasFilename(part *multipart.Part) bool {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}

// ListETags godoc
//
//	@Summary		List default bucket
//	@Description	Returns the etag of every object in the default bucket, in store order.
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	etagList
//	@Failure		500	{object}	response.Error
//	@Router			/files [get]
func (h *Handler) ListETags(w http.ResponseWriter, r *http.Request) {
	objects, err := h.svc.List(r.Context(), chi.URLParam(r, "bucket"))
	if err != nil {
		response.InternalError(w, err)
		return
	}

	out := etagList{Files: make([]string, 0, len(objects))}
	for _, obj := range objects {
		out.Files = append(out.Files, obj.ETag)
	}
	response.OK(w, out)
}

// ListFiles godoc
//
//	@Summary		List bucket
//	@Description	Returns the name and etag of every object in the bucket, in store order.
//	@Tags			documents
//	@Produce		json
//	@Param			bucket	path		string	true	"Bucket name"
//	@Success		200		{object}	fileList
//	@Failure		500		{object}	response.Error
//	@Router			/files/{bucket} [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	objects, err := h.svc.List(r.Context(), chi.URLParam(r, "bucket"))
	if err != nil {
		response.InternalError(w, err)
		return
	}

	out := fileList{Files: make([]fileEntry, 0, len(objects))}
	for _, obj := range objects {
		out.Files = append(out.Files, fileEntry{FileName: obj.Name, ETag: obj.ETag})
	}
	response.OK(w, out)
}

// Delete godoc
//
//	@Summary		Delete by etag
//	@Description	Scans the bucket listing and deletes the first object whose etag matches.
//	@Tags			documents
//	@Produce		json
//	@Param			bucket	path		string	false	"Bucket name (default bucket when omitted)"
//	@Param			etag	path		string	true	"Object etag"
//	@Success		200		{object}	response.Message
//	@Failure		404		{object}	response.Error
//	@Failure		500		{object}	response.Error
//	@Router			/delete/{bucket}/{etag} [delete]
//	@Router			/delete/{etag} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	etag := chi.URLParam(r, "etag")

	_, err := h.svc.DeleteByETag(r.Context(), chi.URLParam(r, "bucket"), etag)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, msgETagNotFound)
		return
	}
	if err != nil {
		response.InternalError(w, err)
		return
	}

	response.OKMessage(w, fmt.Sprintf("File with etag '%s' deleted successfully", etag))
}
