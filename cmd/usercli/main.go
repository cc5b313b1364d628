// Package main provides the user CLI entry point for testing.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/osa030/scrobblescope/internal/api/rest"
	"github.com/osa030/scrobblescope/internal/app/overview"
	"github.com/osa030/scrobblescope/internal/domain/album"
	"github.com/osa030/scrobblescope/internal/domain/artist"
)

var (
	app     = kingpin.New("scrobblescope-usercli", "scrobblescope API client for testing")
	server  = app.Flag("server", "Server base URL").Default("http://localhost:8080/api").Envar("SCROBBLESCOPE_SERVER").String()
	timeout = app.Flag("timeout", "Request timeout").Default("30s").Duration()
	jsonOut = app.Flag("json", "Print raw JSON").Bool()

	// search-artist command
	searchArtistCmd   = app.Command("search-artist", "Search artists")
	searchArtistQuery = searchArtistCmd.Arg("query", "Artist name").Required().String()

	// search-album command
	searchAlbumCmd   = app.Command("search-album", "Search albums")
	searchAlbumQuery = searchAlbumCmd.Arg("query", "Album name").Required().String()

	// artist command
	artistCmd  = app.Command("artist", "Show artist overview")
	artistName = artistCmd.Arg("name", "Artist name").Required().String()

	// album command
	albumCmd    = app.Command("album", "Show album overview")
	albumArtist = albumCmd.Arg("artist", "Artist name").Required().String()
	albumName   = albumCmd.Arg("album", "Album name").Required().String()

	// health command
	healthCmd = app.Command("health", "Check server health")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	c := &client{
		baseURL:    strings.TrimRight(*server, "/"),
		httpClient: &http.Client{Timeout: *timeout},
	}
	ctx := context.Background()

	var err error
	switch command {
	case searchArtistCmd.FullCommand():
		err = searchArtists(ctx, c, *searchArtistQuery)
	case searchAlbumCmd.FullCommand():
		err = searchAlbums(ctx, c, *searchAlbumQuery)
	case artistCmd.FullCommand():
		err = showArtist(ctx, c, *artistName)
	case albumCmd.FullCommand():
		err = showAlbum(ctx, c, *albumArtist, *albumName)
	case healthCmd.FullCommand():
		err = health(ctx, c)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
}

// get fetches path and decodes the JSON body into out.
// Error envelopes are turned into errors carrying the server's code and message.
func (c *client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		var envelope rest.ErrorBody
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
			return errors.Newf("%s (%d %s)", envelope.Error.Message, resp.StatusCode, envelope.Error.Code)
		}
		return errors.Newf("unexpected status %d", resp.StatusCode)
	}

	if *jsonOut {
		fmt.Println(string(body))
		return errRawPrinted
	}

	return errors.Wrap(json.Unmarshal(body, out), "failed to decode response")
}

// errRawPrinted signals that the body was already printed as JSON.
var errRawPrinted = errors.New("raw output printed")

func done(err error) error {
	if errors.Is(err, errRawPrinted) {
		return nil
	}
	return err
}

func searchArtists(ctx context.Context, c *client, query string) error {
	var results []artist.SearchResult
	if err := c.get(ctx, "/search/artist?q="+url.QueryEscape(query), &results); err != nil {
		return done(err)
	}

	if len(results) == 0 {
		fmt.Println("No artists found")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. %-40s %12d listeners  %s\n", i+1, r.Name, r.Listeners, imageOrDash(r.Image))
	}
	return nil
}

func searchAlbums(ctx context.Context, c *client, query string) error {
	var results []album.SearchResult
	if err := c.get(ctx, "/search/album?q="+url.QueryEscape(query), &results); err != nil {
		return done(err)
	}

	if len(results) == 0 {
		fmt.Println("No albums found")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. %-40s by %-25s %s\n", i+1, r.Name, r.Artist, imageOrDash(r.Image))
	}
	return nil
}

func showArtist(ctx context.Context, c *client, name string) error {
	var o overview.ArtistOverview
	if err := c.get(ctx, "/artist/"+url.PathEscape(name)+"/overview", &o); err != nil {
		return done(err)
	}

	fmt.Printf("🎤 %s\n", o.Artist.Name)
	fmt.Printf("   Listeners: %d  Scrobbles: %d\n", o.Artist.Stats.Listeners, o.Artist.Stats.Playcount)
	fmt.Printf("   Image: %s\n", imageOrDash(o.Artist.Image))
	if o.Artist.BioSummary != nil {
		fmt.Printf("   %s\n", *o.Artist.BioSummary)
	}

	fmt.Println("\nTop tracks:")
	for _, t := range o.TopTracks {
		fmt.Printf("  %2d. %-40s %12d plays  %s\n", t.Rank, t.Name, t.Playcount, formatDuration(t.Duration))
	}

	fmt.Println("\nTags:")
	for _, t := range o.Insights.TagDistribution {
		pct := 0.0
		if t.Percent != nil {
			pct = *t.Percent
		}
		fmt.Printf("  %-25s %6.2f%%\n", t.Name, pct)
	}

	fmt.Println("\nSimilar artists:")
	for _, s := range o.SimilarArtists {
		fmt.Printf("  %-40s match %.2f\n", s.Name, s.Match)
	}

	fmt.Printf("\nOutliers (%s): %s\n", o.Insights.Outliers.Method, o.Insights.Outliers.Explanation)
	for _, item := range o.Insights.Outliers.Items {
		fmt.Printf("  ⚡ %s (%s %.2f)\n", item.Name, item.Metric, item.Score)
	}
	if d := o.Insights.DurationExtremes; d != nil && d.Shortest != nil && d.Longest != nil {
		fmt.Printf("\nShortest: %s %s\n", d.Shortest.Name, formatDuration(d.Shortest.Duration))
		fmt.Printf("Longest:  %s %s\n", d.Longest.Name, formatDuration(d.Longest.Duration))
	}
	fmt.Printf("\nTrend: %s\n", o.Insights.Trend.Message)
	for _, f := range o.Insights.FunFacts {
		fmt.Printf("  • %s\n", f)
	}
	return nil
}

func showAlbum(ctx context.Context, c *client, artistName, name string) error {
	q := url.Values{}
	q.Set("artist", artistName)
	q.Set("album", name)

	var o overview.AlbumOverview
	if err := c.get(ctx, "/album/overview?"+q.Encode(), &o); err != nil {
		return done(err)
	}

	fmt.Printf("💿 %s by %s\n", o.Album.Name, o.Album.Artist)
	fmt.Printf("   Listeners: %d  Scrobbles: %d\n", o.Album.Stats.Listeners, o.Album.Stats.Playcount)
	fmt.Printf("   Image: %s\n", imageOrDash(o.Album.Image))
	if o.Album.Summary != nil {
		fmt.Printf("   %s\n", *o.Album.Summary)
	}

	fmt.Println("\nTracks:")
	for _, t := range o.Tracks {
		d := t.Duration
		fmt.Printf("  %2d. %-40s %s\n", t.Rank, t.Name, formatDuration(&d))
	}

	if len(o.Tags) > 0 {
		names := make([]string, 0, len(o.Tags))
		for _, t := range o.Tags {
			names = append(names, t.Name)
		}
		fmt.Printf("\nTags: %s\n", strings.Join(names, ", "))
	}
	return nil
}

func health(ctx context.Context, c *client) error {
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.get(ctx, "/health", &resp); err != nil {
		return done(err)
	}
	if !resp.OK {
		return errors.New("server reported not ok")
	}
	fmt.Println("✅ Server is healthy")
	return nil
}

func imageOrDash(img *string) string {
	if img == nil {
		return "-"
	}
	return *img
}

func formatDuration(seconds *int) string {
	if seconds == nil || *seconds <= 0 {
		return "--:--"
	}
	d := time.Duration(*seconds) * time.Second
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), *seconds%60)
}
