package handlers

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"case_registry_go/services"

	"github.com/labstack/echo/v4"
)

// uploadMediaType returns the declared media type of an upload without parameters,
// falling back to the file extension when the client sent none
func uploadMediaType(declared, fileName string) string {
	if declared != "" && declared != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" {
		mediaType, _, _ := mime.ParseMediaType(byExt)
		return mediaType
	}
	return declared
}

// UploadAttachmentHandler records a file against a case
func (h *CaseHandler) UploadAttachmentHandler(c echo.Context) error {
	return h.uploadAttachment(c, true)
}

// PublicUploadAttachmentHandler lets a complainant add a file to their case.
// Public uploads are never linked to a tracking entry.
func (h *CaseHandler) PublicUploadAttachmentHandler(c echo.Context) error {
	return h.uploadAttachment(c, false)
}

func (h *CaseHandler) uploadAttachment(c echo.Context, linkEntry bool) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest("File is required")
	}

	src, err := file.Open()
	if err != nil {
		return badRequest("Failed to read uploaded file")
	}
	defer src.Close()

	in := services.AttachmentInput{
		FileName:  file.Filename,
		MediaType: uploadMediaType(file.Header.Get("Content-Type"), file.Filename),
		Size:      file.Size,
		Category:  strings.ToUpper(c.FormValue("category")),
		Content:   src,
	}
	if entryID := strings.TrimSpace(c.FormValue("tracking_entry_id")); linkEntry && entryID != "" {
		in.TrackingEntryID = &entryID
	}

	attachment, err := h.Attachments.RecordAttachment(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, attachment)
}

// ListAttachmentsHandler returns a case's attachments, newest first
func (h *CaseHandler) ListAttachmentsHandler(c echo.Context) error {
	attachments, err := h.Attachments.FindAttachmentsByCase(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, attachments)
}

// DownloadAttachmentHandler streams an attachment's bytes
func (h *CaseHandler) DownloadAttachmentHandler(c echo.Context) error {
	attachment, reader, err := h.Attachments.OpenAttachment(c.Request().Context(), c.Param("id"), c.Param("attachmentId"))
	if err != nil {
		return serviceError(err)
	}
	defer reader.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": attachment.FileName})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Response().Header().Set("Content-Disposition", disposition)
	return c.Stream(http.StatusOK, attachment.MediaType, reader)
}
