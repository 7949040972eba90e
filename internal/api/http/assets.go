package http

import (
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-testpad/internal/storage"
)

const maxImageBytes = 10 << 20

var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// UploadImageHandler stores the multipart field "image" and returns its public URL.
func UploadImageHandler(bs storage.BlobStore, publicURL string) http.HandlerFunc {
	base := strings.TrimSuffix(publicURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1<<20)
		f, hdr, err := r.FormFile("image")
		if err != nil {
			writeErr(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		defer f.Close()

		ext := strings.ToLower(path.Ext(hdr.Filename))
		ctype, ok := imageExts[ext]
		if !ok {
			writeErr(w, http.StatusBadRequest, "unsupported image type "+ext)
			return
		}
		if hdr.Size > maxImageBytes {
			writeErr(w, http.StatusBadRequest, "image too large")
			return
		}

		key, err := bs.Put(r.Context(), "images/"+uuid.NewString()+ext, f, hdr.Size, ctype)
		if err != nil {
			log.Printf("upload %s: %v", hdr.Filename, err)
			writeErr(w, http.StatusInternalServerError, "store error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": base + "/assets/" + key})
	}
}

// MountAssets serves GET /* from the blob store, relative to where it is mounted.
func MountAssets(r chi.Router, bs storage.BlobStore) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(r.Context(), key)
		if errors.Is(err, storage.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "not found")
			return
		}
		if err != nil {
			log.Printf("asset %s: %v", key, err)
			writeErr(w, http.StatusInternalServerError, "store error")
			return
		}
		defer rc.Close()
		ctype := mime.TypeByExtension(path.Ext(key))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ctype)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = io.Copy(w, rc)
	})
}
