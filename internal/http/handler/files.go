package handler

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"homeguard/internal/http/middleware"
	"homeguard/internal/service"
)

type uploadResponse struct {
	Message  string `json:"message"`
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
}

func userID(c *fiber.Ctx) string {
	id, _ := middleware.IdentityFrom(c)
	return id.UserID
}

// UploadFile godoc
// @Summary Upload a file
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to store"
// @Success 200 {object} uploadResponse
// @Failure 400 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /api/files/upload [post]
func UploadFile(files service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeServiceError(c, service.ErrFileRequired)
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get(fiber.HeaderContentType)
		if ct == "" {
			ct = fiber.MIMEOctetStream
		}

		stored, err := files.Upload(c.UserContext(), userID(c), f, fh.Filename, ct, fh.Size)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(uploadResponse{
			Message:  "File uploaded successfully",
			FileID:   stored.ID,
			Filename: stored.Filename,
		})
	}
}

// ListFiles godoc
// @Summary List the caller's files
// @Tags files
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.BlobFile
// @Failure 503 {object} errorPayload
// @Router /api/files [get]
func ListFiles(files service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := files.List(c.UserContext(), userID(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(list)
	}
}

// DownloadFile godoc
// @Summary Download a file by id or original name
// @Tags files
// @Produce octet-stream
// @Security BearerAuth
// @Param filename path string true "File id or original name"
// @Success 200 {file} file
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/files/download/{filename} [get]
func DownloadFile(files service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, f, err := files.Download(c.UserContext(), userID(c), param(c, "filename"))
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Set(fiber.HeaderContentType, f.Mimetype)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", f.OriginalName))
		// fasthttp closes the stream once the body is written
		return c.SendStream(rc, int(f.Size))
	}
}

// DeleteFile godoc
// @Summary Delete a file by id or original name
// @Tags files
// @Produce json
// @Security BearerAuth
// @Param fileId path string true "File id or original name"
// @Success 200 {object} messageResponse
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/files/{fileId} [delete]
// @Router /api/files/delete/{fileId} [delete]
func DeleteFile(files service.FileService, name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := files.Delete(c.UserContext(), userID(c), param(c, name)); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(messageResponse{Message: "File deleted successfully"})
	}
}

// param returns a path parameter with percent-encoding removed.
func param(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
