package binary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

type Options struct {
	// Repo is the GitHub repository in owner/name form.
	Repo string
	// LocalName is the file name of the installed binary, without extension.
	LocalName string
	// Dir is where the binary and its version marker live.
	Dir              string
	Select           Selector
	CheckImmediately bool
	UpdateInterval   time.Duration
	HTTPClient       HTTPClient
	APIBaseURL       string
	GOOS             string
}

// Manager installs and runs a single release binary.
// It is safe for concurrent use.
type Manager struct {
	opts Options
	now  func() time.Time

	mu        sync.Mutex
	lastCheck time.Time
}

func NewManager(opts Options) *Manager {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = "https://api.github.com"
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Select == nil {
		local := opts.LocalName
		opts.Select = func(_ Asset, defaultSelector func(string) bool) bool {
			return defaultSelector(local)
		}
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = 24 * time.Hour
	}

	m := &Manager{opts: opts, now: time.Now}
	if opts.CheckImmediately {
		go func() {
			if _, err := m.Ensure(context.Background()); err != nil {
				slog.Warn("initial binary check failed", "repo", opts.Repo, "error", err)
			}
		}()
	}
	return m
}

// Path is where the managed binary is installed.
func (m *Manager) Path() string {
	name := m.opts.LocalName
	if m.opts.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(m.opts.Dir, name)
}

func (m *Manager) versionPath() string {
	return filepath.Join(m.opts.Dir, m.opts.LocalName+".version")
}

// InstalledVersion returns the release tag of the installed binary, or "" if unknown.
func (m *Manager) InstalledVersion() string {
	b, err := os.ReadFile(m.versionPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Ensure makes sure the binary is installed and reasonably fresh and returns its path.
func (m *Manager) Ensure(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.Path()
	_, statErr := os.Stat(path)
	installed := statErr == nil
	now := m.now()

	if installed && now.Sub(m.lastCheck) < m.opts.UpdateInterval {
		return path, nil
	}

	release, err := m.LatestRelease(ctx)
	if err != nil {
		if installed {
			slog.Warn("failed to check for binary update, using installed binary", "repo", m.opts.Repo, "error", err)
			m.lastCheck = now
			return path, nil
		}
		return "", fmt.Errorf("failed to check latest release: %w", err)
	}
	m.lastCheck = now

	if installed && m.InstalledVersion() == release.TagName {
		return path, nil
	}

	asset, ok := m.selectAsset(release)
	if !ok {
		err := fmt.Errorf("no release asset of %s %s matches this platform", m.opts.Repo, release.TagName)
		if installed {
			slog.Warn("keeping installed binary", "error", err)
			return path, nil
		}
		return "", err
	}

	if err := m.download(ctx, asset, path); err != nil {
		if installed {
			slog.Warn("failed to update binary, using installed binary", "asset", asset.Name, "error", err)
			return path, nil
		}
		return "", err
	}
	if err := os.WriteFile(m.versionPath(), []byte(release.TagName+"\n"), 0o644); err != nil {
		slog.Warn("failed to record binary version", "error", err)
	}

	slog.Info("installed binary", "repo", m.opts.Repo, "version", release.TagName, "path", path)
	return path, nil
}

func (m *Manager) download(ctx context.Context, asset Asset, path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create binary directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	slog.Info("downloading binary", "asset", asset.Name, "url", asset.DownloadURL)
	resp, err := m.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: %s", asset.Name, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), m.opts.LocalName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", asset.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", asset.Name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o755); err != nil {
		return fmt.Errorf("failed to mark %s executable: %w", asset.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to install %s: %w", asset.Name, err)
	}
	return nil
}

// Command returns a command running the managed binary with args.
func (m *Manager) Command(ctx context.Context, args ...string) (*exec.Cmd, error) {
	path, err := m.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	return exec.CommandContext(ctx, path, args...), nil
}

// Exec runs the managed binary to completion and returns its standard output.
func (m *Manager) Exec(ctx context.Context, args ...string) ([]byte, error) {
	cmd, err := m.Command(ctx, args...)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s error: %w | %s", m.opts.LocalName, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
