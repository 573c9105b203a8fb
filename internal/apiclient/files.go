package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"citizenconnect/webclient/internal/domain"
)

type FilesAPI struct {
	c *Client
}

func (a *FilesAPI) Upload(ctx context.Context, filename string, r io.Reader) (domain.UploadedFile, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return domain.UploadedFile{}, fmt.Errorf("upload filename is required")
	}
	if r == nil {
		return domain.UploadedFile{}, fmt.Errorf("upload content is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return domain.UploadedFile{}, fmt.Errorf("copy upload content: %w", err)
	}
	if err := w.Close(); err != nil {
		return domain.UploadedFile{}, fmt.Errorf("close multipart body: %w", err)
	}

	raw, _, err := a.c.send(ctx, http.MethodPost, "/files/upload", nil, &buf, w.FormDataContentType())
	if err != nil {
		return domain.UploadedFile{}, err
	}
	var out domain.UploadedFile
	if err := decodeData(raw, &out); err != nil {
		return domain.UploadedFile{}, err
	}
	return out, nil
}

func (a *FilesAPI) Download(ctx context.Context, filename string) ([]byte, string, error) {
	raw, header, err := a.c.send(ctx, http.MethodGet, "/files/download/"+url.PathEscape(filename), nil, nil, "")
	if err != nil {
		return nil, "", err
	}
	return raw, header.Get("Content-Type"), nil
}

func (a *FilesAPI) Delete(ctx context.Context, filename string) error {
	return a.c.call(ctx, http.MethodDelete, "/files/"+url.PathEscape(filename), nil, nil, nil)
}
