// Package endpoint is the HTTP client for the external profiling service.
//
// An upload is a single multipart POST with the parts pdf_file and csv_file.
// The service answers with a JSON object whose optional string fields
// rules_generated and validation_response are shown to the user.
package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/JonMunkholm/profiler/internal/config"
	"github.com/JonMunkholm/profiler/internal/logging"
)

// Multipart part names expected by the service.
const (
	PartPDF = "pdf_file"
	PartCSV = "csv_file"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 64 << 20

// File is a selected file as sent to the service.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Response is the decoded body of a successful upload.
type Response struct {
	Rules      string
	Validation string

	// Payload is the full decoded JSON object.
	Payload map[string]any
}

// Uploader sends a PDF and a CSV to the profiling service.
type Uploader interface {
	Upload(ctx context.Context, pdf, csv File) (*Response, error)
}

// ProgressFunc is called as the request body is sent.
type ProgressFunc func(sent, total int64)

// Client posts uploads through a retrying HTTP client.
type Client struct {
	http     *retryablehttp.Client
	url      string
	progress ProgressFunc
}

// New creates a client from the endpoint configuration. RetryMax of zero
// means exactly one attempt.
func New(cfg config.EndpointConfig) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = logging.NewRetryLogger()
	// Hand the last response back so the status code reaches the caller.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		http: rc,
		url:  cfg.URL,
	}
}

// WithProgress returns a copy of the client that reports body progress to fn.
func (c *Client) WithProgress(fn ProgressFunc) *Client {
	cp := *c
	cp.progress = fn
	return &cp
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string { return c.url }

// Upload posts both files and decodes the response.
func (c *Client) Upload(ctx context.Context, pdf, csv File) (*Response, error) {
	body, contentType, err := encodeMultipart(pdf, csv)
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	total := int64(len(body))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url,
		retryablehttp.ReaderFunc(func() (io.Reader, error) {
			return &progressReader{r: bytes.NewReader(body), total: total, fn: c.progress}, nil
		}))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	log := logging.WithFields(ctx, "url", c.url, "pdf", pdf.Name, "csv", csv.Name, "bytes", total)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("upload request failed", "error", err, "duration", time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()

	log.Info("upload response received", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return decodeResponse(data)
}

// decodeResponse parses the service's JSON object. A non-empty error field
// is a failure even on a 2xx status.
func decodeResponse(data []byte) (*Response, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidBody)
	}

	if msg, ok := payload["error"].(string); ok && msg != "" {
		return nil, &ReportedError{Message: msg}
	}

	return &Response{
		Rules:      fieldText(payload["rules_generated"]),
		Validation: fieldText(payload["validation_response"]),
		Payload:    payload,
	}, nil
}

// fieldText renders a response field. Strings are returned as-is. Missing,
// null, false and zero fields are empty. Anything else is shown as its JSON
// encoding.
func fieldText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if !val {
			return ""
		}
	case float64:
		if val == 0 {
			return ""
		}
	case string:
		return val
	}

	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func encodeMultipart(pdf, csv File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	parts := []struct {
		field string
		file  File
	}{
		{PartPDF, pdf},
		{PartCSV, csv},
	}
	for _, p := range parts {
		if err := writePart(w, p.field, p.file); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writePart(w *multipart.Writer, field string, f File) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", field, err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return fmt.Errorf("write %s part: %w", field, err)
	}
	return nil
}

// progressReader reports bytes read to fn. Len lets the retrying client
// compute the Content-Length up front.
type progressReader struct {
	r     *bytes.Reader
	total int64
	sent  int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.fn != nil {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}

func (p *progressReader) Len() int { return p.r.Len() }
