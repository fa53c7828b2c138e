package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/excreal/soaper-dl-v8/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serveManifest(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestManifestResolve_RelativeReferences(t *testing.T) {
	server := serveManifest(t, "a.ts\n#comment\nb.ts\n")
	resolver := NewManifestResolver(server.Client(), zap.NewNop())

	segments, err := resolver.Resolve(context.Background(), server.URL+"/y/playlist.m3u8")
	require.NoError(t, err)

	require.Len(t, segments, 2)
	assert.Equal(t, 0, segments[0].SequenceIndex)
	assert.Equal(t, server.URL+"/y/a.ts", segments[0].SourceURL)
	assert.Equal(t, 1, segments[1].SequenceIndex)
	assert.Equal(t, server.URL+"/y/b.ts", segments[1].SourceURL)
}

func TestManifestResolve_AbsoluteReferencesKept(t *testing.T) {
	server := serveManifest(t, "#EXTM3U\n#EXTINF:4.0,\nhttps://cdn.example.com/seg/0.ts\n#EXT-X-ENDLIST\n")
	resolver := NewManifestResolver(server.Client(), zap.NewNop())

	segments, err := resolver.Resolve(context.Background(), server.URL+"/y/playlist.m3u8")
	require.NoError(t, err)

	require.Len(t, segments, 1)
	assert.Equal(t, "https://cdn.example.com/seg/0.ts", segments[0].SourceURL)
}

func TestManifestResolve_IndexesMatchLineOrder(t *testing.T) {
	body := "#EXTM3U\n"
	for i := 0; i < 25; i++ {
		body += fmt.Sprintf("#EXTINF:4.0,\nchunk-%d.ts\n", i)
	}
	server := serveManifest(t, body)
	resolver := NewManifestResolver(server.Client(), zap.NewNop())

	segments, err := resolver.Resolve(context.Background(), server.URL+"/y/playlist.m3u8")
	require.NoError(t, err)

	require.Len(t, segments, 25)
	for i, seg := range segments {
		assert.Equal(t, i, seg.SequenceIndex)
		assert.Equal(t, fmt.Sprintf("%s/y/chunk-%d.ts", server.URL, i), seg.SourceURL)
	}
}

func TestManifestResolve_EmptyDocument(t *testing.T) {
	server := serveManifest(t, "")
	resolver := NewManifestResolver(server.Client(), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), server.URL+"/y/playlist.m3u8")

	var me *domain.ManifestError
	require.ErrorAs(t, err, &me)
	assert.False(t, me.Retryable)
}

func TestManifestResolve_CommentsOnly(t *testing.T) {
	server := serveManifest(t, "#EXTM3U\n#EXT-X-VERSION:3\n\n")
	resolver := NewManifestResolver(server.Client(), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), server.URL+"/y/playlist.m3u8")

	var me *domain.ManifestError
	require.ErrorAs(t, err, &me)
}

func TestManifestResolve_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	resolver := NewManifestResolver(&http.Client{}, zap.NewNop())
	_, err := resolver.Resolve(context.Background(), url+"/y/playlist.m3u8")

	var me *domain.ManifestError
	require.ErrorAs(t, err, &me)
	assert.True(t, me.Retryable)
}
