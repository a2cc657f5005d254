package labapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"labdesk/internal/models"
)

func (c *Client) GetSettings(ctx context.Context) (*models.Settings, error) {
	var out models.Settings
	if err := c.call(ctx, http.MethodGet, "/settings", "/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSettings(ctx context.Context, s models.Settings) (*models.Settings, error) {
	var out models.Settings
	if err := c.call(ctx, http.MethodPut, "/settings", "/settings", nil, s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadLogo posts the image as multipart field "logo" and returns the
// stored file path.
func (c *Client) UploadLogo(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="logo"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, body); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	resp, err := c.send(ctx, request{
		method:      http.MethodPost,
		endpoint:    "/settings/logo",
		path:        "/settings/logo",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		FilePath string `json:"filePath"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode /settings/logo response: %w", err)
	}
	return out.FilePath, nil
}
