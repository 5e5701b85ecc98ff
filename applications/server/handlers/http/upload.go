package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"

	"github.com/donmikel/gitdrop/applications/server"
	"github.com/donmikel/gitdrop/applications/server/config"
	"github.com/donmikel/gitdrop/applications/server/domain"
	"github.com/donmikel/gitdrop/applications/server/interfaces"
)

const multipartMemoryLimit = 32 << 20 // 32 MB

func NewRouter(svc server.UploadService, conf config.Upload, logger log.Logger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", InfoHandler()).Methods(http.MethodGet)
	r.HandleFunc("/upload", UploadHandler(svc, conf, logger)).Methods(http.MethodPost)
	r.HandleFunc("/uploads", ListUploadsHandler(svc, logger)).Methods(http.MethodGet)
	r.HandleFunc("/uploads/{id}", GetUploadHandler(svc, logger)).Methods(http.MethodGet)
	r.HandleFunc("/uploads/{id}", DeleteUploadHandler(svc, logger)).Methods(http.MethodDelete)
	return r
}

func InfoHandler() http.HandlerFunc {
	info := map[string]interface{}{
		"service": "gitdrop",
		"endpoints": map[string]string{
			"/upload":       "POST - upload a file",
			"/uploads":      "GET - list uploads",
			"/uploads/{id}": "GET - download upload, DELETE - delete upload",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, info)
	}
}

func UploadHandler(svc server.UploadService, conf config.Upload, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(multipartMemoryLimit)

		file, header, err := r.FormFile("file")
		if err != nil {
			writeErr(w, http.StatusBadRequest, "no file provided")
			return
		}
		defer file.Close()

		if header.Filename == "" {
			writeErr(w, http.StatusBadRequest, "no file selected")
			return
		}

		if conf.MaxSizeBytes > 0 && header.Size > conf.MaxSizeBytes {
			writeErr(w, http.StatusBadRequest, "file size exceeds limit")
			return
		}

		tempPath, err := stage(file)
		if err != nil {
			level.Error(logger).Log("msg", "can't stage upload",
				"filename", header.Filename,
				"err", err,
			)
			writeErr(w, http.StatusInternalServerError, "Upload failed.")
			return
		}

		up, err := svc.Relay(r.Context(), domain.IncomingUpload{
			OriginalName: header.Filename,
			TempPath:     tempPath,
		})
		if err != nil {
			level.Error(logger).Log("msg", "Relay error",
				"filename", header.Filename,
				"err", err,
			)

			// API-level rejections carry the upstream body through to the
			// client for diagnostics; everything else stays opaque.
			var rejected *interfaces.RejectedError
			if errors.As(err, &rejected) {
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: rejected.Body})
				return
			}

			writeErr(w, http.StatusInternalServerError, "Upload failed.")
			return
		}

		writeJSON(w, http.StatusOK, uploadResponse{
			Success: true,
			ID:      up.ID,
			URL:     up.URL,
		})
	}
}

func ListUploadsHandler(svc server.UploadService, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uploads, err := svc.Uploads(r.Context())
		if err != nil {
			level.Error(logger).Log("msg", "Uploads error", "err", err)
			writeErr(w, http.StatusInternalServerError, "can't list uploads")
			return
		}

		writeJSON(w, http.StatusOK, listResponse{Uploads: uploads})
	}
}

func GetUploadHandler(svc server.UploadService, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		up, data, err := svc.Download(r.Context(), id)
		if err != nil {
			if errors.Is(err, interfaces.ErrUploadNotFound) {
				writeErr(w, http.StatusNotFound, "upload not found")
				return
			}

			level.Error(logger).Log("msg", "Download error", "id", id, "err", err)
			writeErr(w, http.StatusInternalServerError, "can't download upload")
			return
		}

		contentType := mime.TypeByExtension(filepath.Ext(up.Path))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if _, err = w.Write(data); err != nil {
			level.Error(logger).Log("msg", "error body write", "err", err)
		}
	}
}

func DeleteUploadHandler(svc server.UploadService, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := svc.Delete(r.Context(), id); err != nil {
			if errors.Is(err, interfaces.ErrUploadNotFound) {
				writeErr(w, http.StatusNotFound, "upload not found")
				return
			}

			level.Error(logger).Log("msg", "Delete error", "id", id, "err", err)
			writeErr(w, http.StatusInternalServerError, "can't delete upload")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": fmt.Sprintf("upload %s deleted", id),
		})
	}
}

// stage copies the multipart part to a temp file so the service sees the
// same staged-file contract regardless of whether the part was buffered in
// memory or spooled to disk by the multipart reader.
func stage(file io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "gitdrop-*")
	if err != nil {
		return "", fmt.Errorf("can't create temp file: %w", err)
	}

	if _, err = io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("can't write temp file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("can't close temp file: %w", err)
	}

	return tmp.Name(), nil
}

type uploadResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	URL     string `json:"url"`
}

type listResponse struct {
	Uploads []domain.Upload `json:"uploads"`
}

type errorResponse struct {
	Error interface{} `json:"error"`
}

func writeErr(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Println("can't write response ", err)
	}
}
