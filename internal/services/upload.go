package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

const (
	defaultUploadEndpoint = "/music/upload"
	defaultUploadField    = "audio"
)

// HTTPTransport uploads each file as a multipart form to the admin API.
type HTTPTransport struct {
	api      *APIService
	endpoint string
}

// NewHTTPTransport creates a transport posting to endpoint on api.
func NewHTTPTransport(api *APIService, endpoint string) *HTTPTransport {
	if endpoint == "" {
		endpoint = defaultUploadEndpoint
	}
	return &HTTPTransport{api: api, endpoint: endpoint}
}

type uploadResponse struct {
	Success bool   `json:"success"`
	FileURL string `json:"fileUrl"`
	Message string `json:"message"`
}

// Upload streams file under meta.Field with the batch's bearer token and returns the server's file URL.
//
// Progress follows the bytes consumed by the request body.
func (t *HTTPTransport) Upload(ctx context.Context, file tasks.FileRef, meta tasks.Metadata, onProgress func(int)) (string, error) {
	field := meta.Field
	if field == "" {
		field = defaultUploadField
	}

	body, contentType, err := streamForm(nil, []formFile{{field: field, file: file}}, onProgress)
	if err != nil {
		return "", err
	}
	defer body.Close()

	req, err := t.api.NewRequest(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	if meta.Token != "" {
		req.Header.Set("Authorization", "Bearer "+meta.Token)
	}

	status, raw, err := t.api.sendForm(req)
	if err != nil {
		return "", err
	}

	var result uploadResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "Upload failed"
		}
		return "", &shared.APIError{StatusCode: status, Message: msg}
	}

	return result.FileURL, nil
}

// formFile is one file part of a streamed multipart form.
type formFile struct {
	field string
	file  tasks.FileRef
}

// streamForm opens every file, then writes fields followed by the files to a pipe as multipart form data.
// Progress covers the combined size of the files. Closing the returned reader stops the writer.
func streamForm(fields [][2]string, files []formFile, onProgress func(int)) (io.ReadCloser, string, error) {
	sources := make([]io.ReadCloser, 0, len(files))
	closeAll := func() {
		for _, src := range sources {
			src.Close()
		}
	}

	var total int64
	for _, f := range files {
		src, err := f.file.Open()
		if err != nil {
			closeAll()
			return nil, "", fmt.Errorf("failed to open %s: %w", f.file.Name(), err)
		}
		sources = append(sources, src)
		total += f.file.Size()
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	contentType := form.FormDataContentType()

	go func() {
		defer closeAll()
		pw.CloseWithError(writeForm(form, fields, files, sources, &progressReader{total: total, report: onProgress}))
	}()
	return pr, contentType, nil
}

func writeForm(form *multipart.Writer, fields [][2]string, files []formFile, sources []io.ReadCloser, progress *progressReader) error {
	for _, kv := range fields {
		if err := form.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	for i, f := range files {
		part, err := form.CreateFormFile(f.field, filepath.Base(f.file.Name()))
		if err != nil {
			return err
		}
		progress.r = sources[i]
		if _, err := io.Copy(part, progress); err != nil {
			return err
		}
	}
	return form.Close()
}

// sendForm performs a multipart request and returns the status and body of a 2xx response.
func (a *APIService) sendForm(req *http.Request) (int, []byte, error) {
	resp, err := a.Send(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, nil, &shared.APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	return resp.StatusCode, raw, nil
}

// progressReader reports the percentage of total read so far.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.report != nil && p.total > 0 {
			p.report(int(p.read * 100 / p.total))
		}
	}
	return n, err
}
