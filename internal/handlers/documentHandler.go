package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/docrag/internal/adapter"
	"github.com/akolanti/docrag/internal/adapter/utils"
	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/internal/rag/extract"
	"github.com/gabriel-vasile/mimetype"
)

// UploadHandler godoc
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, checks its content against its extension, stores it and queues an ingestion job.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file    true  "PDF, DOCX, TXT, CSV, PNG, JPEG or SQLite file"
// @Success      202  {object}  api.UploadResponse "Accepted"
// @Failure      400  {object}  api.JobResponse "Unsupported type, content mismatch or file too large"
// @Failure      500  {object}  api.JobResponse "Storage or write error"
// @Router       /upload [post]
func UploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	log := logRH.WithTrace(ctx)

	targetDir, errString := getTargetDirectory(handlerInstance.uploadDir)
	if errString != "" {
		log.Error("Couldn't get target directory", "error", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("file")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	filename := filepath.Base(fileMetadata.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	docType := commonModels.GetDocType(filename)
	if docType == commonModels.ERR {
		writeRAGError(w, filename, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("unsupported extension %q", ext)))
		return
	}

	detected, err := mimetype.DetectReader(fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, filename, "Could not read file")
		return
	}
	if !contentMatches(detected, docType) {
		log.Warn("content does not match extension", "file", filename, "detected", detected.String())
		writeRAGError(w, filename, ragErrors.Kind(ragErrors.ErrFormat,
			fmt.Errorf("content looks like %s, not %s", detected.String(), ext)))
		return
	}
	if _, err := fileReader.Seek(0, io.SeekStart); err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, filename, "Storage error")
		return
	}

	documentId := utils.GetNewUUID()
	storedPath := filepath.Join(targetDir, documentId+ext)
	size, err := saveUpload(storedPath, fileReader)
	if err != nil {
		log.Error("could not store upload", "path", storedPath, "error", err)
		_ = os.Remove(storedPath)
		WriteErrorResponse(w, http.StatusInternalServerError, filename, "Write error")
		return
	}

	doc := commonModels.Document{
		Id:          documentId,
		Name:        filename,
		Extension:   strings.TrimPrefix(ext, "."),
		SizeBytes:   size,
		Path:        storedPath,
		ContentType: docType,
		Status:      commonModels.DocumentPending,
		CreatedAt:   time.Now().UTC(),
	}
	newJob := newIngestJob(ctx, documentId, filename, storedPath)
	if err := handlerInstance.service.RegisterUpload(ctx, doc, buildJob(newJob)); err != nil {
		log.Error("could not register document", "error", err)
		_ = os.Remove(storedPath)
		WriteErrorResponse(w, http.StatusInternalServerError, filename, "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToUploadResponse(documentId, newJob.id))
}

func saveUpload(path string, src io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

// contentMatches walks the detected type's parents, so csv and plain text both satisfy a text upload.
func contentMatches(detected *mimetype.MIME, docType commonModels.DocType) bool {
	var accepted []string
	switch docType {
	case commonModels.PDF:
		accepted = []string{"application/pdf"}
	case commonModels.DOCX:
		accepted = []string{extract.DocxMIME}
	case commonModels.TXT, commonModels.CSV:
		accepted = []string{"text/plain"}
	case commonModels.PNG:
		accepted = []string{"image/png"}
	case commonModels.JPEG:
		accepted = []string{"image/jpeg"}
	case commonModels.SQLITE:
		accepted = []string{"application/vnd.sqlite3"}
	}
	for m := detected; m != nil; m = m.Parent() {
		for _, a := range accepted {
			if m.Is(a) {
				return true
			}
		}
	}
	return false
}

// DeleteDocumentHandler godoc
// @Summary      Delete a document
// @Description  Removes every indexed chunk, the raw file and the registry entry. An index failure is logged and the registry entry is still removed.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DeleteResponse
// @Failure      404  {object}  api.JobResponse  "Unknown document id"
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	log := logRH.WithTrace(ctx)
	id := utils.GetChiURLParam(r, "id")

	doc, found := handlerInstance.service.DocumentStore.GetDocument(ctx, id)
	if !found {
		writeRAGError(w, id, ragErrors.Kind(ragErrors.ErrNotFound, errors.New("document "+id+" does not exist")))
		return
	}

	removed, err := handlerInstance.ragService.DeleteDocument(ctx, id)
	if err != nil {
		log.Error("index delete failed, continuing with registry cleanup", "document_id", id, "error", err)
	}
	if doc.Path != "" {
		if err := os.Remove(doc.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("could not remove raw file", "path", doc.Path, "error", err)
		}
	}
	if err := handlerInstance.service.DocumentStore.DeleteDocument(ctx, id); err != nil {
		log.Error("could not remove registry entry", "document_id", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDeleteResponse(id, removed))
}

// ListDocumentsHandler godoc
// @Summary      List documents
// @Description  Returns the document registry, newest first.
// @Tags         Documents
// @Produce      json
// @Success      200  {array}  api.DocumentInfo
// @Router       /documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := handlerInstance.service.DocumentStore.ListDocuments(r.Context())
	if err != nil {
		logRH.WithTrace(r.Context()).Error("could not list documents", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentList(docs))
}
