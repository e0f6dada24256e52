package http

import (
	"net/http"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/storage"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/service/file"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

// FileHandler serves stored export artifacts to the user that produced them
type FileHandler interface {
	DownloadExport(w http.ResponseWriter, r *http.Request)
	DeleteExport(w http.ResponseWriter, r *http.Request)
}

type fileHandlerImpl struct {
	fileService file.FileService
}

func NewFileHandler(fileService file.FileService) FileHandler {
	return &fileHandlerImpl{fileService: fileService}
}

// ownExport returns the caller and the requested file name. Another user's
// directory answers exactly like a missing file.
func (h *fileHandlerImpl) ownExport(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	_, claims, _ := jwtauth.FromContext(r.Context())
	userID := jwt.UserIDFromClaims(claims)
	if userID == "" {
		response.HandleError(w, report.ErrMissingPrincipal)
		return "", "", false
	}

	if chi.URLParam(r, "owner") != file.OwnerDir(userID) {
		response.HandleError(w, storage.ErrNotFound)
		return "", "", false
	}
	return userID, chi.URLParam(r, "name"), true
}

// DownloadExport handles GET /files/exports/{owner}/{name}
func (h *fileHandlerImpl) DownloadExport(w http.ResponseWriter, r *http.Request) {
	userID, name, ok := h.ownExport(w, r)
	if !ok {
		return
	}

	artifact, err := h.fileService.OpenExport(r.Context(), userID, name)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer artifact.Body.Close()

	response.Stream(w, artifact.Filename, artifact.ContentType, artifact.Body)
}

// DeleteExport handles DELETE /files/exports/{owner}/{name}
func (h *fileHandlerImpl) DeleteExport(w http.ResponseWriter, r *http.Request) {
	userID, name, ok := h.ownExport(w, r)
	if !ok {
		return
	}

	if err := h.fileService.DeleteExport(r.Context(), userID, name); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Export deleted", nil)
}
