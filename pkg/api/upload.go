package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"statement_analysis/pkg/core/pdf"
	"statement_analysis/pkg/models"
)

// probePageCount is best-effort; a corrupt file still uploads and fails
// later with a useful agent error.
func probePageCount(path string) int {
	reader, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer reader.Close()
	return reader.PageCount()
}

// handleUpload accepts a multipart batch of PDF statements, creates one
// upload group and a document row per file, and stores the files under the
// configured upload directory keyed by document id.
func (h *Handler) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid multipart form: %v", err)})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	maxBytes := h.Cfg.MaxFileSizeMB << 20
	for _, f := range files {
		if !strings.EqualFold(filepath.Ext(f.Filename), ".pdf") {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: only PDF files are accepted", f.Filename)})
			return
		}
		if f.Size > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("%s exceeds the %dMB limit", f.Filename, h.Cfg.MaxFileSizeMB),
			})
			return
		}
	}

	if err := h.Cfg.EnsureUploadDir(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to prepare upload dir: %v", err)})
		return
	}

	ctx := c.Request.Context()
	groupID, err := h.Store.CreateUploadGroup(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	docs := make([]models.Document, 0, len(files))
	for _, f := range files {
		docID := models.NewID()
		stored := docID + ".pdf"
		path := filepath.Join(h.Cfg.UploadDir, stored)

		if err := c.SaveUploadedFile(f, path); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to save %s: %v", f.Filename, err)})
			return
		}

		doc := models.Document{
			ID:               docID,
			Filename:         stored,
			OriginalFilename: f.Filename,
			FilePath:         path,
			FileSize:         f.Size,
			PageCount:        probePageCount(path),
			Status:           models.DocStatusUploaded,
			UploadGroupID:    groupID,
		}
		if err := h.Store.CreateDocument(ctx, &doc); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		docs = append(docs, doc)
	}

	fmt.Printf("Uploaded %d document(s) into group %s\n", len(docs), groupID)
	c.JSON(http.StatusCreated, gin.H{
		"upload_group_id": groupID,
		"documents":       docs,
	})
}
