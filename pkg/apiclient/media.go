package apiclient

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"site-cms/pkg/models"
)

const mediaPath = "/admin/uploads/media"

// UploadFile is one file of an upload batch.
type UploadFile struct {
	Name        string
	ContentType string
	Body        io.Reader
}

func (c *Client) ListMedia(ctx context.Context, cred Credential) ([]models.MediaItem, error) {
	raw, err := c.doJSON(ctx, cred, "media", http.MethodGet, mediaPath, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return decodeList[models.MediaItem](raw, "media", "files")
}

func (c *Client) DeleteMedia(ctx context.Context, cred Credential, id string) error {
	if _, err := c.doJSON(ctx, cred, "media", http.MethodDelete, mediaPath+"/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete media %s: %w", id, err)
	}
	return nil
}

// UploadMedia posts a single file under the "file" field.
func (c *Client) UploadMedia(ctx context.Context, cred Credential, file UploadFile) ([]models.MediaItem, error) {
	items, err := c.upload(ctx, cred, mediaPath, "file", []UploadFile{file})
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	return items, nil
}

// UploadMediaMulti posts every file under the "files" field in one request.
func (c *Client) UploadMediaMulti(ctx context.Context, cred Credential, files []UploadFile) ([]models.MediaItem, error) {
	items, err := c.upload(ctx, cred, mediaPath+"/multi", "files", files)
	if err != nil {
		return nil, fmt.Errorf("upload media batch: %w", err)
	}
	return items, nil
}

func (c *Client) upload(ctx context.Context, cred Credential, path, field string, files []UploadFile) ([]models.MediaItem, error) {
	resp, err := c.postMultipart(ctx, cred, "media", path, field, files)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}
	if items, err := decodeList[models.MediaItem](raw, "files", "media"); err == nil {
		return items, nil
	}
	item, err := decodeOne[models.MediaItem](raw, "file", "media")
	if err != nil {
		return nil, err
	}
	if item.ID == "" && item.Src == "" {
		return []models.MediaItem{}, nil
	}
	return []models.MediaItem{item}, nil
}

// postMultipart streams files as multipart/form-data.
func (c *Client) postMultipart(ctx context.Context, cred Credential, resource, path, field string, files []UploadFile) (*http.Response, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		for _, f := range files {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
				field, quoteEscaper.Replace(f.Name)))
			contentType := f.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			h.Set("Content-Type", contentType)

			part, err := mw.CreatePart(h)
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if _, err := io.Copy(part, f.Body); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return c.send(ctx, cred, resource, req)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
