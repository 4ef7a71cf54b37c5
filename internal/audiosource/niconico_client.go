package audiosource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

var niconicoWatchURLPattern = regexp.MustCompile(`https://www\.nicovideo\.jp/watch/((?:sm|so|nm)\d+)`)

// ValidateNiconicoURL reports whether url points at a niconico watch page.
func ValidateNiconicoURL(url string) bool {
	return niconicoWatchURLPattern.MatchString(url)
}

// NiconicoEndpoints are the hosts the niconico client talks to.
type NiconicoEndpoints struct {
	Watch string
	API   string
}

var DefaultNiconicoEndpoints = NiconicoEndpoints{
	Watch: "https://www.nicovideo.jp",
	API:   "https://nvapi.nicovideo.jp",
}

type niconicoMeta struct {
	Meta struct {
		Status int `json:"status"`
	} `json:"meta"`
	Data struct {
		Response struct {
			Client struct {
				NicoSID      string `json:"nicosid"`
				WatchID      string `json:"watchId"`
				WatchTrackID string `json:"watchTrackId"`
			} `json:"client"`
			Video struct {
				ID          string `json:"id"`
				Title       string `json:"title"`
				Description string `json:"description"`
				Duration    int    `json:"duration"`
				Thumbnail   struct {
					URL    string `json:"url"`
					OGP    string `json:"ogp"`
					Player string `json:"player"`
				} `json:"thumbnail"`
				Count struct {
					View    int `json:"view"`
					Comment int `json:"comment"`
					Mylist  int `json:"mylist"`
					Like    int `json:"like"`
				} `json:"count"`
			} `json:"video"`
			Media struct {
				Domand struct {
					AccessRightKey string          `json:"accessRightKey"`
					Videos         []niconicoVideo `json:"videos"`
					Audios         []niconicoAudio `json:"audios"`
				} `json:"domand"`
			} `json:"media"`
			Owner struct {
				ID       int    `json:"id"`
				Nickname string `json:"nickname"`
				IconURL  string `json:"iconUrl"`
			} `json:"owner"`
		} `json:"response"`
	} `json:"data"`
}

type niconicoVideo struct {
	ID          string `json:"id"`
	IsAvailable bool   `json:"isAvailable"`
	BitRate     int    `json:"bitRate"`
	Label       string `json:"label"`
}

type niconicoAudio struct {
	ID      string `json:"id"`
	BitRate int    `json:"bitRate"`
}

type niconicoHLSInfo struct {
	Meta struct {
		Status int `json:"status"`
	} `json:"meta"`
	Data struct {
		ContentURL string `json:"contentUrl"`
		CreateTime string `json:"createTime"`
		ExpireTime string `json:"expireTime"`
	} `json:"data"`
}

// niconicoClient talks to niconico directly for a single video.
type niconicoClient struct {
	videoID   string
	http      HTTPClient
	limiter   *rate.Limiter
	endpoints NiconicoEndpoints
	info      *niconicoMeta
}

func newNiconicoClient(rawURL string, httpClient HTTPClient, limiter *rate.Limiter, endpoints NiconicoEndpoints) (*niconicoClient, error) {
	m := niconicoWatchURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, errors.New("the requested url is not a niconico watch url")
	}
	return &niconicoClient{
		videoID:   m[1],
		http:      httpClient,
		limiter:   limiter,
		endpoints: endpoints,
	}, nil
}

func (c *niconicoClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// getInfo scrapes the server response embedded in the watch page.
func (c *niconicoClient) getInfo(ctx context.Context) (*niconicoMeta, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.Watch+"/watch/"+c.videoID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{What: "watch page", StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse watch page: %w", err)
	}

	content, ok := doc.Find(`meta[name="server-response"]`).Attr("content")
	if !ok || content == "" {
		return nil, errors.New("failed to fetch audio information (no content)")
	}

	var info niconicoMeta
	if err := json.Unmarshal([]byte(content), &info); err != nil {
		return nil, fmt.Errorf("failed to decode server response: %w", err)
	}

	c.info = &info
	return &info, nil
}

// bestAudioID returns the id of the audio track with the highest bitrate,
// available or not.
func bestAudioID(audios []niconicoAudio) (string, bool) {
	candidates := slices.Clone(audios)
	slices.SortStableFunc(candidates, func(a, b niconicoAudio) int {
		return b.BitRate - a.BitRate
	})
	for _, a := range candidates {
		if a.ID != "" {
			return a.ID, true
		}
	}
	return "", false
}

// fetch asks the access-rights API for an HLS playlist of the best audio track.
func (c *niconicoClient) fetch(ctx context.Context) (contentURL string, cookie string, err error) {
	info := c.info
	if info == nil {
		if info, err = c.getInfo(ctx); err != nil {
			return "", "", err
		}
	}
	res := info.Data.Response

	audioID, ok := bestAudioID(res.Media.Domand.Audios)
	if !ok {
		return "", "", errors.New("failed to detect audio stream")
	}

	outputs := [][2]string{}
	for _, v := range res.Media.Domand.Videos {
		if v.IsAvailable {
			outputs = append(outputs, [2]string{v.ID, audioID})
		}
	}

	body, err := json.Marshal(map[string]any{"outputs": outputs})
	if err != nil {
		return "", "", fmt.Errorf("failed to encode access rights request: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return "", "", err
	}

	endpoint := fmt.Sprintf(
		"%s/v1/watch/%s/access-rights/hls?actionTrackId=%s",
		c.endpoints.API,
		c.videoID,
		url.QueryEscape(res.Client.WatchTrackID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://www.nicovideo.jp")
	req.Header.Set("Referer", "https://www.nicovideo.jp/")
	req.Header.Set("X-Access-Right-Key", res.Media.Domand.AccessRightKey)
	req.Header.Set("X-Request-With", "nicovideo")
	req.Header.Set("X-Frontend-Id", "6")
	req.Header.Set("X-Frontend-Version", "0")
	req.Header.Set("X-Niconico-Language", "ja-jp")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to request stream information: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", &StatusError{What: "stream information", StatusCode: resp.StatusCode}
	}

	var hls niconicoHLSInfo
	if err := json.NewDecoder(resp.Body).Decode(&hls); err != nil {
		return "", "", fmt.Errorf("failed to decode stream information: %w", err)
	}
	if hls.Data.ContentURL == "" {
		return "", "", errors.New("stream information has no content url")
	}

	return hls.Data.ContentURL, cookieHeader(resp.Cookies()), nil
}

// cookieHeader folds response cookies into a single Cookie request header value.
func cookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
