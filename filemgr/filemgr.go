package filemgr

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

const (
	uploadDir  = "static/uploads/products"
	thumbWidth = 200
)

// SaveProductImage stores an uploaded product photo and writes a resized
// thumbnail next to it. Returns the public paths of both.
func SaveProductImage(file multipart.File, header *multipart.FileHeader) (imagePath, thumbPath string, err error) {
	ext := filepath.Ext(header.Filename)
	name := fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)
	dst := filepath.Join(uploadDir, name)

	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return "", "", err
	}
	out.Close()

	img, err := imaging.Open(dst)
	if err != nil {
		return "", "", err
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos) // maintain aspect ratio
	thumbName := "thumb_" + name
	thumbDst := filepath.Join(uploadDir, thumbName)
	if err := imaging.Save(thumb, thumbDst); err != nil {
		return "", "", err
	}

	return "/uploads/products/" + name, "/uploads/products/" + thumbName, nil
}
