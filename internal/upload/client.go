package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"proctor-camera/internal/dto"
	"proctor-camera/internal/models"
)

// StatusOK is the success sentinel the assessment backend sends verbatim
const StatusOK = "OLKORECT"

const defaultFailureReason = "Upload failed"

// ErrUpload matches every *UploadError
var ErrUpload = errors.New("upload error")

// UploadError is a non-success response or a transport failure
type UploadError struct {
	Reason string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool { return target == ErrUpload }

// Client posts single captured frames to the assessment service
type Client struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		now: time.Now,
	}
}

// CaptureFilename derives the image part filename from the capture time
func CaptureFilename(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return "capture_" + stamp + ".jpg"
}

// Upload sends one image. A nil error means the backend acknowledged it.
func (c *Client) Upload(ctx context.Context, sessionID string, image []byte, trigger models.Trigger, timing models.Timing) error {
	body, contentType, err := c.buildPayload(image, trigger, timing)
	if err != nil {
		return &UploadError{Reason: defaultFailureReason, Err: err}
	}

	endpoint := c.baseURL + "/assessment/camera/upload-single/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return &UploadError{Reason: defaultFailureReason, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return &UploadError{Reason: defaultFailureReason, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UploadError{Reason: defaultFailureReason, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var result dto.UploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return &UploadError{Reason: defaultFailureReason, Err: fmt.Errorf("HTTP %d: invalid response body", resp.StatusCode)}
	}
	if result.Status != StatusOK {
		reason := result.Error
		if reason == "" {
			reason = defaultFailureReason
		}
		return &UploadError{Reason: reason}
	}

	log.Printf("Frame uploaded for session %s (trigger: %s, %d bytes)", sessionID, trigger, len(image))
	return nil
}

func (c *Client) buildPayload(image []byte, trigger models.Trigger, timing models.Timing) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, CaptureFilename(c.now())))
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	if err := writer.WriteField("trigger", string(trigger)); err != nil {
		return nil, "", err
	}

	if timing != nil {
		encoded, err := json.Marshal(timing)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode timing: %w", err)
		}
		if err := writer.WriteField("timing", string(encoded)); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}
