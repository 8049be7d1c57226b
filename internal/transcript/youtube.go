package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"focustube/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

const (
	youtubeBaseURL = "https://www.youtube.com"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
	acceptLanguage = "en-US"

	innertubeClientName    = "ANDROID"
	innertubeClientVersion = "20.10.38"

	consentFormAction  = "https://consent.youtube.com/s"
	consentCookieName  = "CONSENT"
	generatedTrackKind = "asr"

	maxResponseBytes = 16 << 20
)

var (
	innertubeAPIKeyRe = regexp.MustCompile(`"INNERTUBE_API_KEY":\s*"([a-zA-Z0-9_-]+)"`)
	formattingTagRe   = regexp.MustCompile(`(?i)</?(?:strong|em|b|i|mark|small|del|ins|sub|sup|font|c)\b[^>]*>`)
)

type YouTubeClient struct {
	baseURL   string
	client    *http.Client
	languages []string
	log       *slog.Logger
}

func NewYouTubeClient(
	timeout time.Duration,
	languages []string,
	log *slog.Logger,
) *YouTubeClient {
	return &YouTubeClient{
		baseURL:   youtubeBaseURL,
		client:    &http.Client{Timeout: timeout},
		languages: languages,
		log:       log,
	}
}

type watchPage struct {
	apiKey string
	title  string
}

type captionTrack struct {
	baseURL      string
	languageCode string
	name         string
	generated    bool
}

type playerRequest struct {
	Context innertubeContext `json:"context"`
	VideoID string           `json:"videoId"`
}

type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
}

type timedText struct {
	Entries []timedTextEntry `xml:"text"`
}

type timedTextEntry struct {
	Start    string `xml:"start,attr"`
	Duration string `xml:"dur,attr"`
	Inner    string `xml:",innerxml"`
}

// Fetch resolves the caption track of the video and returns its fragments.
func (c *YouTubeClient) Fetch(
	ctx context.Context,
	videoID string,
) (*domain.Transcript, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, ErrEmptyVideoID
	}

	page, err := c.fetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}

	player, err := c.fetchPlayer(ctx, videoID, page.apiKey)
	if err != nil {
		return nil, fmt.Errorf("fetch player: %w", err)
	}

	if err = checkPlayability(player); err != nil {
		return nil, err
	}

	tracks, err := parseCaptionTracks(player)
	if err != nil {
		return nil, err
	}

	track, err := selectTrack(tracks, c.languages)
	if err != nil {
		return nil, err
	}

	fragments, err := c.fetchTimedText(ctx, track.baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch timed text (language = %s): %w", track.languageCode, err)
	}

	c.log.DebugContext(ctx, "Transcript is fetched",
		"videoID", videoID,
		"languageCode", track.languageCode,
		"trackName", track.name,
		"generated", track.generated,
		"fragmentCount", len(fragments))

	return &domain.Transcript{
		VideoID:      videoID,
		Title:        page.title,
		LanguageCode: track.languageCode,
		Generated:    track.generated,
		Fragments:    fragments,
	}, nil
}

func (c *YouTubeClient) fetchWatchPage(
	ctx context.Context,
	videoID string,
) (watchPage, error) {
	body, doc, err := c.getWatchDocument(ctx, videoID, "")
	if err != nil {
		return watchPage{}, err
	}

	if consent := doc.Find(fmt.Sprintf("form[action='%s']", consentFormAction)); consent.Length() > 0 {
		value := strings.TrimSpace(consent.Find("input[name='v']").AttrOr("value", ""))
		if value == "" {
			return watchPage{}, errors.New("consent form has no value")
		}

		body, doc, err = c.getWatchDocument(ctx, videoID, "YES+"+value)
		if err != nil {
			return watchPage{}, err
		}

		if doc.Find(fmt.Sprintf("form[action='%s']", consentFormAction)).Length() > 0 {
			return watchPage{}, errors.New("consent cookie is not accepted")
		}
	}

	if doc.Find(".g-recaptcha").Length() > 0 {
		return watchPage{}, fmt.Errorf("%w: recaptcha is served", ErrRequestBlocked)
	}

	m := innertubeAPIKeyRe.FindSubmatch(body)
	if m == nil {
		return watchPage{}, ErrInnertubeKeyMissing
	}

	title := ""
	if content, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		title = strings.TrimSpace(content)
	}
	if title == "" {
		title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(doc.Find("title").Text()), "- YouTube"))
	}

	return watchPage{apiKey: string(m[1]), title: title}, nil
}

func (c *YouTubeClient) getWatchDocument(
	ctx context.Context,
	videoID string,
	consent string,
) ([]byte, *goquery.Document, error) {
	watchURL := c.baseURL + "/watch?v=" + url.QueryEscape(videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	if consent != "" {
		req.AddCookie(&http.Cookie{Name: consentCookieName, Value: consent})
	}

	body, err := c.do(ctx, req, "getWatchDocument")
	if err != nil {
		return nil, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("create document from reader: %w", err)
	}

	return body, doc, nil
}

func (c *YouTubeClient) fetchPlayer(
	ctx context.Context,
	videoID string,
	apiKey string,
) (gjson.Result, error) {
	payload, err := json.Marshal(playerRequest{
		Context: innertubeContext{
			Client: innertubeClient{
				ClientName:    innertubeClientName,
				ClientVersion: innertubeClientVersion,
			},
		},
		VideoID: videoID,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal request: %w", err)
	}

	playerURL := c.baseURL + "/youtubei/v1/player?key=" + url.QueryEscape(apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, playerURL, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(ctx, req, "fetchPlayer")
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.New("player response is not valid JSON")
	}

	return gjson.ParseBytes(body), nil
}

func (c *YouTubeClient) fetchTimedText(
	ctx context.Context,
	baseURL string,
) ([]domain.Fragment, error) {
	timedTextURL := strings.Replace(baseURL, "&fmt=srv3", "", 1)
	if strings.Contains(timedTextURL, "&exp=xpe") {
		return nil, ErrPoTokenRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, timedTextURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := c.do(ctx, req, "fetchTimedText")
	if err != nil {
		return nil, err
	}

	return parseTimedText(body)
}

func (c *YouTubeClient) do(
	ctx context.Context,
	req *http.Request,
	operation string,
) ([]byte, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := c.client.Do(req) //nolint:gosec // YouTube URL
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			c.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"operation", operation)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: too many requests", ErrRequestBlocked)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

func checkPlayability(player gjson.Result) error {
	status := player.Get("playabilityStatus.status").String()
	reason := strings.TrimSpace(player.Get("playabilityStatus.reason").String())

	switch status {
	case "", "OK":
		return nil
	case "ERROR":
		return fmt.Errorf("%w (reason = %s)", ErrVideoUnavailable, reason)
	case "LOGIN_REQUIRED":
		if strings.Contains(reason, "not a bot") {
			return fmt.Errorf("%w (reason = %s)", ErrRequestBlocked, reason)
		}
	}

	return fmt.Errorf("%w (status = %s, reason = %s)", ErrVideoUnplayable, status, reason)
}

func parseCaptionTracks(player gjson.Result) ([]captionTrack, error) {
	raw := player.Get("captions.playerCaptionsTracklistRenderer.captionTracks")
	if !raw.IsArray() || len(raw.Array()) == 0 {
		return nil, ErrTranscriptsDisabled
	}

	var tracks []captionTrack
	for _, t := range raw.Array() {
		baseURL := strings.TrimSpace(t.Get("baseUrl").String())
		if baseURL == "" {
			continue
		}

		name := t.Get("name.simpleText").String()
		if name == "" {
			name = t.Get("name.runs.0.text").String()
		}

		tracks = append(tracks, captionTrack{
			baseURL:      baseURL,
			languageCode: t.Get("languageCode").String(),
			name:         name,
			generated:    t.Get("kind").String() == generatedTrackKind,
		})
	}

	if len(tracks) == 0 {
		return nil, ErrTranscriptsDisabled
	}

	return tracks, nil
}

// selectTrack walks languages in preference order. Within one language a
// manually created track wins over a generated one.
func selectTrack(tracks []captionTrack, languages []string) (captionTrack, error) {
	for _, lang := range languages {
		var generated *captionTrack

		for i := range tracks {
			if tracks[i].languageCode != lang {
				continue
			}
			if !tracks[i].generated {
				return tracks[i], nil
			}
			if generated == nil {
				generated = &tracks[i]
			}
		}

		if generated != nil {
			return *generated, nil
		}
	}

	available := make([]string, 0, len(tracks))
	for _, t := range tracks {
		available = append(available, t.languageCode)
	}

	return captionTrack{}, fmt.Errorf("%w (requested = %s, available = %s)",
		ErrNoTranscriptFound,
		strings.Join(languages, ","),
		strings.Join(available, ","))
}

func parseTimedText(body []byte) ([]domain.Fragment, error) {
	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode timed text: %w", err)
	}

	fragments := make([]domain.Fragment, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if e.Inner == "" {
			continue
		}

		start, err := parseSeconds(e.Start)
		if err != nil {
			return nil, fmt.Errorf("parse start: %w", err)
		}

		duration, err := parseSeconds(e.Duration)
		if err != nil {
			return nil, fmt.Errorf("parse duration: %w", err)
		}

		// Captions are entity-escaped twice: once by XML and once as HTML.
		text := html.UnescapeString(html.UnescapeString(e.Inner))
		text = formattingTagRe.ReplaceAllString(text, "")

		fragments = append(fragments, domain.Fragment{
			Text:     text,
			Start:    start,
			Duration: duration,
		})
	}

	return fragments, nil
}

func parseSeconds(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	return strconv.ParseFloat(raw, 64)
}
