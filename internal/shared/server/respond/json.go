package respond

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/util"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Created writes a 201 response carrying the new resource.
func Created(c *gin.Context, payload any) {
	JSON(c, http.StatusCreated, payload)
}

// NoContent writes an empty 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Attachment sends body as a download named filename.
func Attachment(c *gin.Context, contentType, filename string, body []byte) {
	c.Header("Content-Disposition", disposition("attachment", filename))
	c.Data(http.StatusOK, contentType, body)
}

// Inline streams rc for display in the browser. The caller closes rc.
func Inline(c *gin.Context, contentType, filename string, rc io.Reader) {
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Content-Disposition": disposition("inline", filename),
	})
}

func disposition(kind, filename string) string {
	return fmt.Sprintf(`%s; filename="%s"`, kind, util.DispositionName(filename))
}
