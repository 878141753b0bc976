package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeUpload, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeDuplicate, http.StatusConflict},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeServer, http.StatusInternalServerError},
		{Code("UNKNOWN"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.code); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Code
	}{
		{400, CodeInvalidInput},
		{401, CodeUnauthorized},
		{403, CodeForbidden},
		{404, CodeNotFound},
		{409, CodeDuplicate},
		{429, CodeRateLimited},
		{500, CodeServer},
		{503, CodeServer},
	}
	for _, tt := range tests {
		if got := FromStatus(tt.status, "x").Code; got != tt.want {
			t.Errorf("FromStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(CodeServer) || !Retryable(CodeRateLimited) {
		t.Fatal("server errors and rate limits must be retryable")
	}
	for _, c := range []Code{CodeInvalidInput, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeDuplicate} {
		if Retryable(c) {
			t.Errorf("%s must not be retryable", c)
		}
	}
}

func TestFromUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("outer: %w", Wrap(CodeNotFound, "quote not found", cause))
	ae := From(wrapped)
	if ae.Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND through wrapping, got %s", ae.Code)
	}
	if !errors.Is(ae, cause) {
		t.Fatal("cause should remain reachable via Unwrap")
	}

	plain := From(errors.New("db down"))
	if plain.Code != CodeServer {
		t.Fatalf("unclassified errors default to SERVER_ERROR, got %s", plain.Code)
	}
}
