package submit

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

	"leadterm/internal/lead"
)

// RESTInserter inserts rows through a PostgREST compatible endpoint such as
// Supabase.
type RESTInserter struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTInserter returns an inserter for baseURL with the given timeout.
func NewRESTInserter(baseURL, apiKey string, timeout time.Duration) *RESTInserter {
	return &RESTInserter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

// RemoteError is a non-2xx answer from the REST backend.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("insert failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("insert failed with status %d: %s", e.StatusCode, e.Message)
}

// InsertOne posts rec to /rest/v1/<table>.
func (r *RESTInserter) InsertOne(ctx context.Context, table string, rec lead.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal lead: %w", err)
	}
	endpoint := r.BaseURL + "/rest/v1/" + url.PathEscape(table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	if r.APIKey != "" {
		req.Header.Set("apikey", r.APIKey)
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return &RemoteError{StatusCode: resp.StatusCode, Message: remoteMessage(resp.Body)}
}

func remoteMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
