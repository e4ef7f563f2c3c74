// Package files is a client for the external file service that owns
// uploaded files. The content engine only looks files up by id.
package files

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// File is the file service's description of a stored file.
type File struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	UUIDName    string  `json:"uuidName"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Size        float64 `json:"size"`
	MimeType    string  `json:"mimeType"`
	ContentType string  `json:"contentType"`
	Src         string  `json:"src"`
}

// Client calls the file service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type getFilesRequest struct {
	FileIDs []string `json:"fileIds"`
}

type getFilesResponse struct {
	Files []File `json:"files"`
}

// FilesByIDs returns the files of projectID among ids. Unknown ids are
// simply absent from the result.
func (c *Client) FilesByIDs(ctx context.Context, projectID string, ids []string) ([]File, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(getFilesRequest{FileIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("file service marshal: %w", err)
	}

	endpoint := c.baseURL + "/api/get_files_by_ids?projectId=" + url.QueryEscape(projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("file service request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file service http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("file service read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file service error (status %d): %s", resp.StatusCode, string(body))
	}

	var result getFilesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("file service unmarshal: %w", err)
	}
	return result.Files, nil
}
