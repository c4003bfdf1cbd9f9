package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"qurylysBack/utils"
)

const maxUploadSize = 10 << 20 // 10 MB

// UploadHandler stores evidence files (deposit proofs, work photos) in object
// storage and returns the public URL.
type UploadHandler struct{}

func (h *UploadHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "File too large", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	fileName := fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(header.Filename))
	url, err := utils.UploadFileToS3(data, fileName, "evidence", header.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, "Failed to store file", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
