// Package rss polls a YouTube channel's Atom feed and tracks which videos
// have already been processed.
package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

const feedURLFormat = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// Video is one feed entry.
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Published string `json:"published"`
	URL       string `json:"url"`
	Author    string `json:"author"`
}

// Client fetches the channel feed.
type Client struct {
	feedURL string
	http    *http.Client
}

func NewClient(channelID string) *Client {
	return &Client{
		feedURL: fmt.Sprintf(feedURLFormat, channelID),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// atomFeed matches the subset of the YouTube Atom schema we consume.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	VideoID   string `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
	Author    struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Rel  string `xml:"rel,attr"`
		Href string `xml:"href,attr"`
	} `xml:"link"`
}

// Latest returns the channel's current feed entries, newest first (the
// order the feed serves them in).
func (c *Client) Latest(ctx context.Context) ([]Video, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feed: %w", err)
	}
	return parseFeed(data)
}

func parseFeed(data []byte) ([]Video, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parsing feed XML: %w", err)
	}

	videos := make([]Video, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if e.VideoID == "" {
			continue
		}
		v := Video{
			ID:        e.VideoID,
			Title:     e.Title,
			Published: e.Published,
			Author:    e.Author.Name,
		}
		for _, l := range e.Links {
			if l.Rel == "alternate" {
				v.URL = l.Href
				break
			}
		}
		if v.URL == "" {
			v.URL = "https://www.youtube.com/watch?v=" + e.VideoID
		}
		videos = append(videos, v)
	}
	return videos, nil
}

// NewSince filters current against previously seen entries.
func NewSince(current, previous []Video) []Video {
	seen := make(map[string]bool, len(previous))
	for _, v := range previous {
		seen[v.ID] = true
	}
	var fresh []Video
	for _, v := range current {
		if !seen[v.ID] {
			fresh = append(fresh, v)
		}
	}
	return fresh
}
