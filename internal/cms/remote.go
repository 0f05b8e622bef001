package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRemoteTimeout = 5 * time.Second

// RemoteSource reads collections from a headless CMS API:
// GET {base}/collections/{collection} and GET {base}/collections/{collection}/{id}.
type RemoteSource struct {
	baseURL string
	http    *http.Client
}

// NewRemoteSource builds a source for baseURL. A nil client gets a 5s timeout.
func NewRemoteSource(baseURL string, client *http.Client) *RemoteSource {
	if client == nil {
		client = &http.Client{Timeout: defaultRemoteTimeout}
	}
	return &RemoteSource{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    client,
	}
}

func (s *RemoteSource) Name() string { return "remote" }

func (s *RemoteSource) Get(ctx context.Context, collection, id string) (SourceRecord, error) {
	id = sanitizeSlug(id)
	if id == "" {
		return SourceRecord{}, ErrNotFound
	}
	endpoint, err := url.JoinPath(s.baseURL, "collections", collection, id)
	if err != nil {
		return SourceRecord{}, err
	}
	var payload map[string]any
	if err := s.fetch(ctx, endpoint, &payload); err != nil {
		return SourceRecord{}, err
	}
	return SourceRecord{ID: id, Path: endpoint, Record: Record(payload)}, nil
}

func (s *RemoteSource) List(ctx context.Context, collection string) ([]SourceRecord, error) {
	endpoint, err := url.JoinPath(s.baseURL, "collections", collection)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Items []map[string]any `json:"items"`
	}
	if err := s.fetch(ctx, endpoint, &payload); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]SourceRecord, 0, len(payload.Items))
	for _, item := range payload.Items {
		rec := Record(item)
		id := firstNonEmpty(rec.String("slug"), rec.String("id"))
		if id == "" {
			continue
		}
		out = append(out, SourceRecord{ID: id, Path: endpoint + "/" + url.PathEscape(id), Record: rec})
	}
	return out, nil
}

func (s *RemoteSource) fetch(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("cms: remote status %d for %s", resp.StatusCode, endpoint)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("cms: decode %s: %w", endpoint, err)
	}
	return nil
}
