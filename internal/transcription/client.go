package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Job statuses reported by the transcription service
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Job is a transcription job as reported by the service
type Job struct {
	JobID      string `json:"jobId"`
	Status     string `json:"status"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Client talks to the external call-recording transcription service. Jobs are
// asynchronous: submit the recording URL, then poll until the job settles.
type Client struct {
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
	pollMaxWait  time.Duration
	logger       zerolog.Logger
}

// NewClient creates a transcription Client. An empty base URL means the
// feature is not configured; Submit and Poll then fail fast.
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		http:         &http.Client{Timeout: 30 * time.Second},
		pollInterval: 2 * time.Second,
		pollMaxWait:  10 * time.Minute,
		logger:       logger.With().Str("component", "transcription").Logger(),
	}
}

// Configured reports whether a service URL is set
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Submit starts a transcription job for a call recording
func (c *Client) Submit(ctx context.Context, audioURL string) (*Job, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("transcription service not configured")
	}

	body, err := json.Marshal(map[string]string{"audioUrl": audioURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	job, err := c.do(req)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("job_id", job.JobID).Msg("transcription job submitted")
	return job, nil
}

// Poll fetches the current state of a transcription job
func (c *Client) Poll(ctx context.Context, jobID string) (*Job, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("transcription service not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build transcription request: %w", err)
	}

	return c.do(req)
}

// Transcribe submits a recording and polls with exponential backoff until the
// job settles. A failed job is permanent; transient transport errors retry
// until the context expires.
func (c *Client) Transcribe(ctx context.Context, audioURL string) (string, error) {
	job, err := c.Submit(ctx, audioURL)
	if err != nil {
		return "", err
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.pollInterval),
		backoff.WithMaxInterval(30*time.Second),
		backoff.WithMaxElapsedTime(c.pollMaxWait),
	), ctx)

	var transcript string
	operation := func() error {
		current, err := c.Poll(ctx, job.JobID)
		if err != nil {
			return err
		}

		switch current.Status {
		case StatusDone:
			transcript = current.Transcript
			return nil
		case StatusFailed:
			return backoff.Permanent(fmt.Errorf("transcription job %s failed: %s", job.JobID, current.Error))
		default:
			return fmt.Errorf("transcription job %s still %s", job.JobID, current.Status)
		}
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}

	c.logger.Info().Str("job_id", job.JobID).Msg("transcription complete")
	return transcript, nil
}

func (c *Client) do(req *http.Request) (*Job, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("transcription service returned %d: %s", resp.StatusCode, body)
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}
	return &job, nil
}
