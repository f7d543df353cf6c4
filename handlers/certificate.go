package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// readCertificate takes the PDF from a multipart "file" field or, failing that, the raw request body
func (h *CaseHandler) readCertificate(c echo.Context) ([]byte, error) {
	var src io.Reader = c.Request().Body
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}
	return io.ReadAll(io.LimitReader(src, h.MaxUploadSize+1))
}

// SendCertificateHandler emails the registration certificate to the complainant
func (h *CaseHandler) SendCertificateHandler(c echo.Context) error {
	document, err := h.readCertificate(c)
	if err != nil {
		return badRequest("Failed to read certificate")
	}
	if int64(len(document)) > h.MaxUploadSize {
		return badRequest("Certificate exceeds the maximum upload size")
	}

	if err := h.Cases.SendCertificate(c.Request().Context(), c.Param("id"), document); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Certificate sent"})
}
