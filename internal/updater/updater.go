// internal/updater/updater.go
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const userAgent = "RSerialDebugAssistant"

// Asset is one downloadable file attached to a release
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               uint64 `json:"size"`
}

// Release is the subset of the GitHub release response the updater needs
type Release struct {
	TagName string  `json:"tag_name"`
	Name    *string `json:"name,omitempty"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// CheckResult is the outcome of an update check
type CheckResult struct {
	HasUpdate      bool    `json:"has_update"`
	CurrentVersion string  `json:"current_version"`
	LatestVersion  string  `json:"latest_version"`
	DownloadURL    *string `json:"download_url,omitempty"`
	DownloadSize   *uint64 `json:"download_size,omitempty"`
	ReleaseURL     string  `json:"release_url"`
	AssetName      *string `json:"asset_name,omitempty"`
}

// Progress reports download progress at roughly 1% granularity
type Progress struct {
	Downloaded uint64 `json:"downloaded"`
	Total      uint64 `json:"total"`
	Percentage uint8  `json:"percentage"`
}

// Updater checks GitHub for newer releases and downloads installers. It is
// an independent, non-concurrent utility with no ties to the serial core.
type Updater struct {
	client  *http.Client
	repo    string
	version string
	logger  *zap.Logger
}

// New creates an updater for the given "owner/repo" and running version
func New(repo, currentVersion string, logger *zap.Logger) *Updater {
	return &Updater{
		client:  &http.Client{Timeout: 30 * time.Second},
		repo:    repo,
		version: currentVersion,
		logger:  logger.With(zap.String("component", "updater")),
	}
}

// Check fetches the latest release and compares versions
func (u *Updater) Check(ctx context.Context) (*CheckResult, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", u.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build release request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no releases available")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api error: %s", resp.Status)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release data: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	current := strings.TrimPrefix(u.version, "v")

	result := &CheckResult{
		HasUpdate:      compareVersions(latest, current) > 0,
		CurrentVersion: current,
		LatestVersion:  latest,
		ReleaseURL:     release.HTMLURL,
	}

	if asset := findInstallerAsset(release.Assets); asset != nil {
		result.DownloadURL = &asset.BrowserDownloadURL
		result.DownloadSize = &asset.Size
		result.AssetName = &asset.Name
	}

	u.logger.Info("Update check completed",
		zap.String("current", current),
		zap.String("latest", latest),
		zap.Bool("has_update", result.HasUpdate),
	)
	return result, nil
}

// Download fetches the installer into the temp directory, invoking
// onProgress whenever the completed percentage advances. Returns the path
// of the downloaded file.
func (u *Updater) Download(ctx context.Context, downloadURL, assetName string, onProgress func(Progress)) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}

	var total uint64
	if resp.ContentLength > 0 {
		total = uint64(resp.ContentLength)
	}

	path := filepath.Join(os.TempDir(), assetName)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer file.Close()

	var downloaded uint64
	var lastPercentage uint8
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return "", fmt.Errorf("failed to write to temp file: %w", err)
			}
			downloaded += uint64(n)

			if onProgress != nil && total > 0 {
				percentage := uint8(downloaded * 100 / total)
				if percentage > lastPercentage {
					lastPercentage = percentage
					onProgress(Progress{Downloaded: downloaded, Total: total, Percentage: percentage})
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("download error: %w", readErr)
		}
	}

	if onProgress != nil {
		onProgress(Progress{Downloaded: downloaded, Total: total, Percentage: 100})
	}

	u.logger.Info("Update downloaded", zap.String("path", path))
	return path, nil
}

// LaunchInstaller spawns the downloaded installer as a detached process.
// The caller is expected to exit afterwards so the installer can replace
// the binary.
func (u *Updater) LaunchInstaller(installerPath string) error {
	cmd := exec.Command(installerPath)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch installer: %w", err)
	}
	u.logger.Info("Installer launched", zap.String("path", installerPath))
	return nil
}

// parseVersion parses "1.2.3" or "v1.2.3" into its three numeric parts
func parseVersion(version string) (parts [3]int, ok bool) {
	fields := strings.Split(strings.TrimPrefix(version, "v"), ".")
	if len(fields) != 3 {
		return parts, false
	}
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return parts, false
		}
		parts[i] = n
	}
	return parts, true
}

// compareVersions returns >0 when a is newer than b, <0 when older, and 0
// when equal or either version is unparseable.
func compareVersions(a, b string) int {
	va, okA := parseVersion(a)
	vb, okB := parseVersion(b)
	if !okA || !okB {
		return 0
	}
	for i := 0; i < 3; i++ {
		if va[i] != vb[i] {
			if va[i] > vb[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// findInstallerAsset picks the .exe installer, skipping .msi packages
func findInstallerAsset(assets []Asset) *Asset {
	for i := range assets {
		name := strings.ToLower(assets[i].Name)
		if strings.HasSuffix(name, ".exe") && !strings.HasSuffix(name, ".msi") {
			return &assets[i]
		}
	}
	return nil
}
