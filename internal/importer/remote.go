package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benasque-conf/participants/internal/models"
)

// Sink receives a parsed batch. registrations.Repository satisfies it for direct database
// updates; Remote sends the batch to a running server.
type Sink interface {
	ImportBatch(ctx context.Context, records []models.RegistrationRecord) (*models.ImportResult, error)
}

// ImportPath is the server endpoint Remote posts to.
const ImportPath = "/api/registrations/import"

// Remote posts batches to the import endpoint of a directory server.
type Remote struct {
	BaseURL string
	HTTP    *http.Client
}

// NewRemote returns a Remote for baseURL with a bounded HTTP client.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Remote{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{Timeout: timeout}}
}

type importResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	models.ImportResult
	Stats map[string]int `json:"stats"`
}

// ImportBatch sends records as {"registrations": [...]} and returns the server's result.
func (r *Remote) ImportBatch(ctx context.Context, records []models.RegistrationRecord) (*models.ImportResult, error) {
	if records == nil {
		records = []models.RegistrationRecord{}
	}
	body, err := json.Marshal(map[string]interface{}{"registrations": records})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+ImportPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post registrations: %w", err)
	}
	defer resp.Body.Close()

	var out importResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode import response (HTTP %d): %w", resp.StatusCode, err)
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("import rejected (HTTP %d): %s", resp.StatusCode, msg)
	}
	return &out.ImportResult, nil
}
