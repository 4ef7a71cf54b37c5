package binary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPClient is an abstraction for making HTTP requests.
// The implementation is usually Go's stdlib http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// LatestRelease fetches the latest release of the managed repository.
func (m *Manager) LatestRelease(ctx context.Context) (*Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/releases/latest", m.opts.APIBaseURL, m.opts.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := m.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch latest release of %s: %s", m.opts.Repo, resp.Status)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release: %w", err)
	}
	return &release, nil
}

// Selector reports whether asset is the one to install.
// defaultSelector matches the asset against the platform specific file name of a tool.
type Selector func(asset Asset, defaultSelector func(name string) bool) bool

// PlatformAssetName is the conventional release asset name of tool on goos.
func PlatformAssetName(goos, tool string) string {
	switch goos {
	case "windows":
		return tool + ".exe"
	case "darwin":
		return tool + "_macos"
	default:
		return tool
	}
}

// YtDlpSelector picks the standalone yt-dlp build for the given platform.
func YtDlpSelector(goos, goarch string) Selector {
	return func(asset Asset, defaultSelector func(name string) bool) bool {
		if goos == "linux" {
			switch goarch {
			case "arm":
				return asset.Name == "yt-dlp_linux_armv7l"
			case "arm64":
				return asset.Name == "yt-dlp_linux_aarch64"
			case "amd64":
				return asset.Name == "yt-dlp_linux"
			}
		}
		return defaultSelector("yt-dlp")
	}
}

func (m *Manager) selectAsset(release *Release) (Asset, bool) {
	for _, asset := range release.Assets {
		defaultSelector := func(name string) bool {
			return asset.Name == PlatformAssetName(m.opts.GOOS, name)
		}
		if m.opts.Select(asset, defaultSelector) {
			return asset, true
		}
	}
	return Asset{}, false
}
