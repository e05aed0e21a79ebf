package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
  <title>Channel uploads</title>
  <entry>
    <id>yt:video:abc123</id>
    <yt:videoId>abc123</yt:videoId>
    <title>Market outlook for March</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=abc123"/>
    <author><name>Finance Creator</name></author>
    <published>2025-03-01T09:00:00+00:00</published>
  </entry>
  <entry>
    <id>yt:video:def456</id>
    <yt:videoId>def456</yt:videoId>
    <title>Why I am selling everything</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=def456"/>
    <author><name>Finance Creator</name></author>
    <published>2025-02-27T09:00:00+00:00</published>
  </entry>
</feed>`

func TestParseFeed(t *testing.T) {
	t.Parallel()

	videos, err := parseFeed([]byte(sampleFeed))
	require.NoError(t, err)
	require.Len(t, videos, 2)

	assert.Equal(t, "abc123", videos[0].ID)
	assert.Equal(t, "Market outlook for March", videos[0].Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", videos[0].URL)
	assert.Equal(t, "Finance Creator", videos[0].Author)
	assert.Equal(t, "2025-03-01T09:00:00+00:00", videos[0].Published)
	assert.Equal(t, "def456", videos[1].ID)
}

func TestParseFeedSkipsEntriesWithoutVideoID(t *testing.T) {
	t.Parallel()

	feed := `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry><title>not a video</title></entry>
</feed>`
	videos, err := parseFeed([]byte(feed))
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestParseFeedSynthesizesURL(t *testing.T) {
	t.Parallel()

	feed := `<?xml version="1.0"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <yt:videoId>xyz789</yt:videoId>
    <title>no alternate link</title>
  </entry>
</feed>`
	videos, err := parseFeed([]byte(feed))
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=xyz789", videos[0].URL)
}

func TestParseFeedRejectsMalformedXML(t *testing.T) {
	t.Parallel()

	_, err := parseFeed([]byte("<feed><entry>"))
	assert.Error(t, err)
}

func TestLatestRejectsNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("UCtest")
	c.feedURL = srv.URL
	_, err := c.Latest(context.Background())
	assert.Error(t, err)
}

func TestLatestParsesServedFeed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("UCtest")
	c.feedURL = srv.URL
	videos, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Len(t, videos, 2)
}

func TestNewSince(t *testing.T) {
	t.Parallel()

	previous := []Video{{ID: "a"}, {ID: "b"}}
	current := []Video{{ID: "c"}, {ID: "b"}, {ID: "a"}}

	fresh := NewSince(current, previous)
	require.Len(t, fresh, 1)
	assert.Equal(t, "c", fresh[0].ID)

	assert.Empty(t, NewSince(previous, previous))
	assert.Len(t, NewSince(current, nil), 3)
}
