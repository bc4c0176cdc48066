package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/infra"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-image-1"
	defaultTimeout = 60 * time.Second
	defaultRetries = 3
	retryBackoff   = 2 * time.Second
)

// Options controls how the image API client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
	MaxRetries int
	Logger     *infra.Logger
}

// Client is a thin adapter over the image generation API. It owns request
// construction, response normalization and a small transport-level retry that
// composes with the worker's own retry loop.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
	maxRetries int
	logger     *infra.Logger
}

// NewClient builds a Client from the given options, applying defaults.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultRetries
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
		model:      model,
		maxRetries: retries,
		logger:     opts.Logger,
	}
}

type imagesRequest struct {
	Model             string `json:"model"`
	Prompt            string `json:"prompt"`
	N                 int    `json:"n,omitempty"`
	Size              string `json:"size,omitempty"`
	Quality           string `json:"quality,omitempty"`
	Background        string `json:"background,omitempty"`
	OutputFormat      string `json:"output_format,omitempty"`
	OutputCompression int    `json:"output_compression,omitempty"`
	Moderation        string `json:"moderation,omitempty"`
	Stream            bool   `json:"stream,omitempty"`
	PartialImages     int    `json:"partial_images,omitempty"`
	User              string `json:"user,omitempty"`
}

type imagesResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Usage        json.RawMessage `json:"usage"`
	Size         string          `json:"size"`
	Quality      string          `json:"quality"`
	Background   string          `json:"background"`
	OutputFormat string          `json:"output_format"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate performs a synchronous text-to-image call.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Outcome, error) {
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
		User:              req.User,
	}
	started := time.Now()
	var resp imagesResponse
	if err := c.doJSON(ctx, "/images/generations", body, &resp); err != nil {
		return nil, err
	}
	return normalizeOutcome(resp, time.Since(started))
}

// Edit performs an image-edit call using multipart upload. Only the first
// source image is supported by the API; a mask with mismatched dimensions is
// resized to the source before upload.
func (c *Client) Edit(ctx context.Context, req EditRequest) (*Outcome, error) {
	if c.token == "" {
		return nil, fmt.Errorf("%w: openai api key is missing", domain.ErrPermanent)
	}
	if len(req.Image.Data) == 0 {
		return nil, fmt.Errorf("%w: edit requires a source image", domain.ErrPermanent)
	}
	if req.Mask != nil {
		mask, err := normalizeMask(req.Image, *req.Mask)
		if err != nil {
			return nil, fmt.Errorf("%w: prepare mask: %v", domain.ErrPermanent, err)
		}
		req.Mask = mask
	}

	started := time.Now()
	var resp imagesResponse
	if err := c.doMultipart(ctx, "/images/edits", req, &resp); err != nil {
		return nil, err
	}
	return normalizeOutcome(resp, time.Since(started))
}

func normalizeOutcome(resp imagesResponse, elapsed time.Duration) (*Outcome, error) {
	out := &Outcome{
		Usage:        resp.Usage,
		Created:      resp.Created,
		Size:         resp.Size,
		Quality:      resp.Quality,
		Background:   resp.Background,
		OutputFormat: resp.OutputFormat,
		TimingMs:     elapsed.Milliseconds(),
	}
	for _, item := range resp.Data {
		if item.B64JSON == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("%w: decode image payload: %v", domain.ErrPermanent, err)
		}
		out.Images = append(out.Images, ImagePayload{B64: item.B64JSON, Data: data})
	}
	if len(out.Images) == 0 {
		return nil, fmt.Errorf("%w: response contained no image data", domain.ErrPermanent)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", domain.ErrPermanent, err)
	}
	return c.do(ctx, path, func() (io.Reader, string, error) {
		return bytes.NewReader(payload), "application/json", nil
	}, out)
}

func (c *Client) doMultipart(ctx context.Context, path string, req EditRequest, out any) error {
	build := func() (io.Reader, string, error) {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		if err := writeFilePart(mw, "image", req.Image); err != nil {
			return nil, "", err
		}
		if req.Mask != nil {
			if err := writeFilePart(mw, "mask", *req.Mask); err != nil {
				return nil, "", err
			}
		}
		fields := map[string]string{
			"model":          c.model,
			"prompt":         req.Prompt,
			"size":           req.Size,
			"quality":        req.Quality,
			"input_fidelity": req.InputFidelity,
			"output_format":  req.OutputFormat,
			"user":           req.User,
		}
		if req.N > 0 {
			fields["n"] = strconv.Itoa(req.N)
		}
		if req.OutputCompression > 0 {
			fields["output_compression"] = strconv.Itoa(req.OutputCompression)
		}
		for key, val := range fields {
			if val == "" {
				continue
			}
			if err := mw.WriteField(key, val); err != nil {
				return nil, "", err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return buf, mw.FormDataContentType(), nil
	}
	return c.do(ctx, path, build, out)
}

func writeFilePart(mw *multipart.Writer, field string, img SourceImage) error {
	name := img.Filename
	if name == "" {
		name = field + ".png"
	}
	mime := img.MIME
	if mime == "" {
		mime = "image/png"
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
	header.Set("Content-Type", mime)
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(img.Data)
	return err
}

// do executes the request with transport-level retries on network errors,
// rate limits and server errors. The body is rebuilt per attempt.
func (c *Client) do(ctx context.Context, path string, build func() (io.Reader, string, error), out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", domain.ErrTransient, ctx.Err())
			case <-time.After(retryBackoff):
			}
		}
		body, contentType, err := build()
		if err != nil {
			return fmt.Errorf("%w: build request: %v", domain.ErrPermanent, err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
		if err != nil {
			return fmt.Errorf("%w: build request: %v", domain.ErrPermanent, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", domain.ErrTransient, err)
			continue
		}
		apiErr := c.decodeResponse(resp, out)
		if apiErr == nil {
			return nil
		}
		lastErr = apiErr
		if !errors.Is(apiErr, domain.ErrTransient) {
			return apiErr
		}
	}
	return lastErr
}

func (c *Client) decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope apiErrorEnvelope
		_ = json.Unmarshal(data, &envelope)
		msg := envelope.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(data))
			if len(msg) > 200 {
				msg = msg[:200]
			}
		}
		return &APIError{Status: resp.StatusCode, Code: envelope.Error.Code, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrPermanent, err)
	}
	return nil
}
