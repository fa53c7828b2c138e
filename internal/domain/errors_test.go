package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&ResolutionError{PageID: "/movie_1.html", Retryable: true, Err: errors.New("timeout")}))
	assert.False(t, IsRetryable(&ResolutionError{PageID: "/movie_1.html", Err: errors.New("bad json")}))
	assert.True(t, IsRetryable(&ManifestError{URL: "https://x/y/p.m3u8", Retryable: true, Err: errors.New("reset")}))
	assert.False(t, IsRetryable(&ManifestError{URL: "https://x/y/p.m3u8", Err: errors.New("empty")}))
	assert.False(t, IsRetryable(&FetchError{Missing: 2, Total: 10}))
	assert.False(t, IsRetryable(&AssemblyError{OutputPath: "/out/f.mp4", Err: errors.New("disk full")}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestIsRetryable_Wrapped(t *testing.T) {
	inner := &FetchError{Total: 5, Retryable: true, Err: errors.New("no segments retrieved")}
	wrapped := fmt.Errorf("job failed: %w", inner)

	assert.True(t, IsRetryable(wrapped))

	var fe *FetchError
	assert.True(t, errors.As(wrapped, &fe))
	assert.Equal(t, 5, fe.Total)
}

func TestFetchError_Message(t *testing.T) {
	err := &FetchError{Missing: 3, Total: 12}
	assert.Contains(t, err.Error(), "3 of 12 missing")
}
