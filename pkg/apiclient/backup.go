package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"
)

const (
	FormatNDJSON  = "ndjson"
	FormatArchive = "archive"
)

// Download is a streamed backup. The caller must close Body.
type Download struct {
	Body          io.ReadCloser
	Filename      string
	ContentType   string
	ContentLength int64
}

func ValidBackupFormat(format string) bool {
	return format == FormatNDJSON || format == FormatArchive
}

// ExportBackup asks the API for a backup and streams it back untouched.
func (c *Client) ExportBackup(ctx context.Context, cred Credential, format string) (*Download, error) {
	if !ValidBackupFormat(format) {
		return nil, fmt.Errorf("unsupported backup format %q", format)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint("/admin/backup/export", url.Values{"format": {format}}), nil)
	if err != nil {
		return nil, fmt.Errorf("build export request: %w", err)
	}
	resp, err := c.send(ctx, cred, "backup", req)
	if err != nil {
		return nil, fmt.Errorf("export backup: %w", err)
	}

	d := &Download{
		Body:          resp.Body,
		Filename:      defaultBackupName(format, time.Now()),
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		d.Filename = params["filename"]
	}
	if d.ContentType == "" {
		d.ContentType = "application/octet-stream"
	}
	return d, nil
}

// ImportBackup uploads a backup file and returns the API's summary as is.
func (c *Client) ImportBackup(ctx context.Context, cred Credential, name string, r io.Reader) (json.RawMessage, error) {
	resp, err := c.postMultipart(ctx, cred, "backup", "/admin/backup/import", "file",
		[]UploadFile{{Name: name, Body: r}})
	if err != nil {
		return nil, fmt.Errorf("import backup: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read import response: %w", err)
	}
	if len(raw) == 0 || !json.Valid(raw) {
		return json.RawMessage(`{}`), nil
	}
	return raw, nil
}

func defaultBackupName(format string, now time.Time) string {
	ext := ".ndjson"
	if format == FormatArchive {
		ext = ".tar.gz"
	}
	return "backup-" + now.UTC().Format("20060102-150405") + ext
}
