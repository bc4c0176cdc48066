package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jaume768/splashmy/internal/domain"
)

func sseHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}
}

func TestGenerateStreamDeliversEvents(t *testing.T) {
	partial := base64.StdEncoding.EncodeToString([]byte("partial"))
	final := base64.StdEncoding.EncodeToString([]byte("final"))
	client, _ := newTestClient(t, sseHandler(
		`data: {"type":"image_generation.partial_image","b64_json":"`+partial+`","partial_image_index":0,"size":"1024x1024"}`,
		`data: {"type":"image_generation.partial_image","b64_json":"`+partial+`","partial_image_index":1,"size":"1024x1024"}`,
		`data: {"type":"image_generation.completed","b64_json":"`+final+`","size":"1024x1024","quality":"high","output_format":"png","usage":{"total_tokens":42}}`,
		`data: [DONE]`,
	))

	var events []StreamEvent
	out, err := client.GenerateStream(context.Background(), GenerateRequest{Prompt: "a red fox", PartialImages: 2}, func(ev StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Type != StreamPartialImage || events[0].PartialIndex != 0 {
		t.Fatalf("event 0 = %+v", events[0])
	}
	if events[1].PartialIndex != 1 {
		t.Fatalf("event 1 index = %d", events[1].PartialIndex)
	}
	if events[2].Type != StreamCompleted {
		t.Fatalf("event 2 = %+v", events[2])
	}

	if len(out.Images) != 1 || string(out.Images[0].Data) != "final" {
		t.Fatalf("outcome images = %+v", out.Images)
	}
	if out.Quality != "high" || out.OutputFormat != "png" {
		t.Fatalf("outcome = %+v", out)
	}
	if len(out.Usage) == 0 {
		t.Fatalf("usage not carried through")
	}
}

func TestGenerateStreamErrorEvent(t *testing.T) {
	client, _ := newTestClient(t, sseHandler(
		`data: {"type":"error","error":{"code":"server_error","message":"generation interrupted"}}`,
	))

	var sawError bool
	_, err := client.GenerateStream(context.Background(), GenerateRequest{Prompt: "x"}, func(ev StreamEvent) error {
		if ev.Type == StreamError {
			sawError = true
		}
		return nil
	})
	if err == nil {
		t.Fatalf("stream succeeded despite error event")
	}
	if !sawError {
		t.Fatalf("error event not delivered to callback")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "server_error" {
		t.Fatalf("error = %v", err)
	}
}

func TestGenerateStreamTruncatedIsTransient(t *testing.T) {
	partial := base64.StdEncoding.EncodeToString([]byte("partial"))
	client, _ := newTestClient(t, sseHandler(
		`data: {"type":"image_generation.partial_image","b64_json":"`+partial+`","partial_image_index":0}`,
	))

	_, err := client.GenerateStream(context.Background(), GenerateRequest{Prompt: "x"}, nil)
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("truncated stream: %v, want transient", err)
	}
}

func TestGenerateStreamCallbackAbort(t *testing.T) {
	partial := base64.StdEncoding.EncodeToString([]byte("partial"))
	client, _ := newTestClient(t, sseHandler(
		`data: {"type":"image_generation.partial_image","b64_json":"`+partial+`","partial_image_index":0}`,
	))

	abort := errors.New("stop")
	_, err := client.GenerateStream(context.Background(), GenerateRequest{Prompt: "x"}, func(StreamEvent) error {
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("abort error = %v", err)
	}
}

func TestGenerateStreamHTTPError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"invalid_prompt","message":"rejected"}}`))
	})

	_, err := client.GenerateStream(context.Background(), GenerateRequest{Prompt: "x"}, nil)
	if !errors.Is(err, domain.ErrPermanent) {
		t.Fatalf("http 400: %v, want permanent", err)
	}
}
