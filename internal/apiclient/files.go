package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/healthmate/companion/pkg/model"
)

// FileAPI groups the /files endpoints
type FileAPI struct {
	c *Client
}

// UploadRequest is a report document plus its metadata
type UploadRequest struct {
	FileName   string
	MimeType   string
	Content    io.Reader
	FileType   model.FileType
	ReportDate openapi_types.Date
}

// Upload stores a document and returns the created record
func (f *FileAPI) Upload(ctx context.Context, upload UploadRequest) (*model.FileRecord, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(upload.FileName)))
	mimeType := upload.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return nil, fmt.Errorf("failed to read upload content: %w", err)
	}

	if err := writer.WriteField("fileType", string(upload.FileType)); err != nil {
		return nil, fmt.Errorf("failed to write fileType: %w", err)
	}
	if err := writer.WriteField("reportDate", upload.ReportDate.Format(openapi_types.DateFormat)); err != nil {
		return nil, fmt.Errorf("failed to write reportDate: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var record model.FileRecord
	err = f.c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/files/upload",
		body:        body.Bytes(),
		contentType: writer.FormDataContentType(),
	}, &record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns every file of the current user
func (f *FileAPI) List(ctx context.Context) ([]model.FileRecord, error) {
	var records []model.FileRecord
	if err := f.c.do(ctx, request{method: http.MethodGet, path: "/files"}, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns one file, or nil when the backend answers with empty data
func (f *FileAPI) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	var record *model.FileRecord
	if err := f.c.do(ctx, request{method: http.MethodGet, path: "/files/" + url.PathEscape(id)}, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a file
func (f *FileAPI) Delete(ctx context.Context, id string) error {
	return f.c.do(ctx, request{method: http.MethodDelete, path: "/files/" + url.PathEscape(id)}, nil)
}

func escapeQuotes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
