package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jaume768/splashmy/internal/domain"
)

// scanner buffer large enough for a base64 image payload in a single event.
const maxStreamLineBytes = 32 << 20

type streamChunk struct {
	Type              string          `json:"type"`
	B64JSON           string          `json:"b64_json"`
	PartialImageIndex int             `json:"partial_image_index"`
	CreatedAt         int64           `json:"created_at"`
	Size              string          `json:"size"`
	Quality           string          `json:"quality"`
	Background        string          `json:"background"`
	OutputFormat      string          `json:"output_format"`
	Usage             json.RawMessage `json:"usage"`
	Error             *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateStream performs a streaming generation call. Each decoded event is
// passed to fn in arrival order; returning an error from fn aborts the
// stream. The final completed event is also normalized into the returned
// Outcome. Streaming requests are not retried at the transport level: a
// broken stream surfaces as a transient error for the worker to retry whole.
func (c *Client) GenerateStream(ctx context.Context, req GenerateRequest, fn func(StreamEvent) error) (*Outcome, error) {
	if c.token == "" {
		return nil, fmt.Errorf("%w: openai api key is missing", domain.ErrPermanent)
	}
	body := imagesRequest{
		Model:             c.model,
		Prompt:            req.Prompt,
		N:                 req.N,
		Size:              req.Size,
		Quality:           req.Quality,
		Background:        req.Background,
		OutputFormat:      req.OutputFormat,
		OutputCompression: req.OutputCompression,
		Moderation:        req.Moderation,
		Stream:            true,
		PartialImages:     req.PartialImages,
		User:              req.User,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrPermanent, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrPermanent, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeResponse(resp, nil)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLineBytes)

	var final *Outcome
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") || strings.HasPrefix(line, "event:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, fmt.Errorf("%w: decode stream event: %v", domain.ErrPermanent, err)
		}

		ev, err := normalizeChunk(chunk)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			if cbErr := fn(ev); cbErr != nil {
				return nil, cbErr
			}
		}
		switch ev.Type {
		case StreamError:
			return nil, ev.Err
		case StreamCompleted:
			data, err := base64.StdEncoding.DecodeString(ev.B64)
			if err != nil {
				return nil, fmt.Errorf("%w: decode final payload: %v", domain.ErrPermanent, err)
			}
			final = &Outcome{
				Images:       []ImagePayload{{B64: ev.B64, Data: data}},
				Usage:        ev.Usage,
				Created:      ev.Created,
				Size:         ev.Size,
				Quality:      ev.Quality,
				Background:   ev.Background,
				OutputFormat: ev.OutputFormat,
				TimingMs:     time.Since(started).Milliseconds(),
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read stream: %v", domain.ErrTransient, err)
	}
	if final == nil {
		return nil, fmt.Errorf("%w: stream ended without a completed event", domain.ErrTransient)
	}
	return final, nil
}

func normalizeChunk(chunk streamChunk) (StreamEvent, error) {
	ev := StreamEvent{
		B64:          chunk.B64JSON,
		PartialIndex: chunk.PartialImageIndex,
		Created:      chunk.CreatedAt,
		Size:         chunk.Size,
		Quality:      chunk.Quality,
		Background:   chunk.Background,
		OutputFormat: chunk.OutputFormat,
		Usage:        chunk.Usage,
	}
	switch {
	case strings.HasSuffix(chunk.Type, ".partial_image"):
		ev.Type = StreamPartialImage
	case strings.HasSuffix(chunk.Type, ".completed"):
		ev.Type = StreamCompleted
	case chunk.Type == "error" || chunk.Error != nil:
		ev.Type = StreamError
		msg := "stream error"
		code := ""
		if chunk.Error != nil {
			msg = chunk.Error.Message
			code = chunk.Error.Code
		}
		ev.Err = &APIError{Status: http.StatusInternalServerError, Code: code, Message: msg}
	default:
		return ev, fmt.Errorf("%w: unknown stream event %q", domain.ErrPermanent, chunk.Type)
	}
	return ev, nil
}
