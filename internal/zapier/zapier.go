// Package zapier forwards dashboard payloads to Zapier catch hooks.
package zapier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

var ErrNotConfigured = errors.New("zapier webhook not configured")

type Forwarder struct {
	http *http.Client
}

func New(hc *http.Client) *Forwarder {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Forwarder{http: hc}
}

// File is an upload passed through to a hook.
type File struct {
	Field       string
	Name        string
	ContentType string
	Body        io.Reader
}

// ForwardJSON posts payload as JSON and returns the hook's response body.
func (f *Forwarder) ForwardJSON(ctx context.Context, url string, payload any) ([]byte, error) {
	if url == "" {
		return nil, ErrNotConfigured
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal zapier payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build zapier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return f.send(req)
}

// ForwardMultipart posts fields and file as multipart/form-data.
func (f *Forwarder) ForwardMultipart(ctx context.Context, url string, fields map[string]string, file File) ([]byte, error) {
	if url == "" {
		return nil, ErrNotConfigured
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("multipart field %s: %w", k, err)
		}
	}
	if file.Body != nil {
		field := file.Field
		if field == "" {
			field = "file"
		}
		part, err := mw.CreateFormFile(field, file.Name)
		if err != nil {
			return nil, fmt.Errorf("multipart file part: %w", err)
		}
		if _, err := io.Copy(part, file.Body); err != nil {
			return nil, fmt.Errorf("copy file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("build zapier request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return f.send(req)
}

func (f *Forwarder) send(req *http.Request) ([]byte, error) {
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zapier post: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, fmt.Errorf("zapier hook returned HTTP %d", resp.StatusCode)
	}
	return body, nil
}
