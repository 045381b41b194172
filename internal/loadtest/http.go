package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTP status code constants.
const (
	statusOK       = 200
	statusCreated  = 201
	statusBad      = 400
	statusConflict = 409
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// fetchSchema retrieves the roster the service is configured with.
func fetchSchema(ctx context.Context, client *HTTPClient, baseURL string) (*SchemaDoc, error) {
	resp, err := client.Get(ctx, baseURL+"/schema")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema response: %w", err)
	}
	if resp.StatusCode != statusOK {
		return nil, fmt.Errorf("schema request failed with status: %d", resp.StatusCode)
	}

	var doc SchemaDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	if len(doc.Subjects) == 0 || len(doc.Criteria) == 0 {
		return nil, fmt.Errorf("schema is empty")
	}
	return &doc, nil
}

// fetchRankings retrieves the current aggregate rows.
func fetchRankings(ctx context.Context, client *HTTPClient, baseURL string) ([]RankingRow, error) {
	resp, err := client.Get(ctx, baseURL+"/rankings")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rankings: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read rankings response: %w", err)
	}
	if resp.StatusCode != statusOK {
		return nil, fmt.Errorf("rankings request failed with status: %d", resp.StatusCode)
	}

	var doc RankingsDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode rankings: %w", err)
	}
	return doc.Rankings, nil
}

// submitAll submits every rater's sheet concurrently using a worker pool.
func submitAll(ctx context.Context, config *Config, subs []Submission, stats *Stats) error {
	log.Printf("submitting %d sheets with %d workers...", len(subs), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/ratings"

	var (
		accepted  int64
		duplicate int64
		invalid   int64
		failed    int64
		submitted int64
	)

	subChan := make(chan Submission, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range subChan {
				select {
				case <-ctx.Done():
					return
				default:
					atomic.AddInt64(&submitted, 1)
					switch submitSingle(ctx, client, url, sub) {
					case "accepted":
						atomic.AddInt64(&accepted, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "invalid":
						atomic.AddInt64(&invalid, 1)
					default:
						atomic.AddInt64(&failed, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(subChan)
		for i, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case subChan <- sub:
			}
			// Replay a sample of sheets to confirm the duplicate guard.
			if config.ResubmitEvery > 0 && i%config.ResubmitEvery == 0 {
				select {
				case <-ctx.Done():
					return
				case subChan <- sub:
				}
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Accepted = int(atomic.LoadInt64(&accepted))
	stats.Duplicate = int(atomic.LoadInt64(&duplicate))
	stats.Invalid = int(atomic.LoadInt64(&invalid))
	stats.Failed = int(atomic.LoadInt64(&failed))

	log.Printf(`submission completed:
   Accepted: %d
   Duplicate: %d
   Invalid: %d
   Failed: %d
`, stats.Accepted, stats.Duplicate, stats.Invalid, stats.Failed)

	if stats.Accepted != len(subs) {
		return fmt.Errorf("expected %d accepted sheets, got %d", len(subs), stats.Accepted)
	}
	return nil
}

// submitSingle submits one sheet and classifies the outcome.
func submitSingle(ctx context.Context, client *HTTPClient, url string, sub Submission) string {
	resp, err := client.Post(ctx, url, sub)
	if err != nil {
		return "failed"
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case statusCreated:
		var ack SubmitAck
		if err := json.Unmarshal(body, &ack); err == nil && ack.Status == "accepted" {
			return "accepted"
		}
		return "accepted"
	case statusConflict:
		return "duplicate"
	case statusBad:
		return "invalid"
	default:
		return "failed"
	}
}
