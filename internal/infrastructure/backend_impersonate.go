package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rxvxrsx/revgrab/internal/domain"
)

// percentPattern matches the percentage yt-dlp prints in its human progress
// lines. Impersonated extractors don't honor --progress-template, so the
// human output is all there is to parse.
var percentPattern = regexp.MustCompile(`(\d+\.?\d*)%`)

// ImpersonationBackend drives yt-dlp with browser TLS impersonation for
// platforms that fingerprint clients. Progress arrives as coarse percentages
// rather than byte counts.
type ImpersonationBackend struct {
	cfg     domain.BackendConfig
	profile string
	logger  *zap.Logger
}

// NewImpersonationBackend creates a backend that impersonates the given
// browser profile ("chrome" by default)
func NewImpersonationBackend(cfg domain.BackendConfig, profile string, logger *zap.Logger) *ImpersonationBackend {
	if profile == "" {
		profile = "chrome"
	}
	return &ImpersonationBackend{cfg: cfg, profile: profile, logger: logger}
}

// Resolve fetches flat metadata using the impersonated client
func (b *ImpersonationBackend) Resolve(ctx context.Context, url string, opts domain.ResolveOptions) (*domain.Metadata, error) {
	args := []string{"-J", "--flat-playlist", "--no-warnings", "--impersonate", b.profile}
	if opts.PlaylistEnd > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(opts.PlaylistEnd))
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, b.cfg.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	b.logger.Debug("resolving metadata", zap.String("cmd", ShellEscapeCommand(b.cfg.Binary, args...)))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp resolve failed: %s", firstErrorLine(stderr.String(), err))
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("unexpected yt-dlp metadata: %w", err)
	}

	meta := &domain.Metadata{Title: info.Title, Type: info.Type}
	for _, e := range info.Entries {
		entryURL := e.URL
		if entryURL == "" {
			entryURL = e.ID
		}
		if entryURL == "" {
			continue
		}
		meta.Entries = append(meta.Entries, domain.MetadataEntry{URL: entryURL, Title: e.Title})
	}
	return meta, nil
}

// Download transfers one item, parsing percentages from yt-dlp's human
// output. Percentages are forwarded as synthetic fragment counts so the
// aggregator needs no special case for this backend.
func (b *ImpersonationBackend) Download(ctx context.Context, url string, opts domain.DownloadOptions, onProgress domain.ProgressFunc) (string, error) {
	outputDir := opts.OutputDir
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create download directory: %w", err)
		}
	}

	args := []string{
		"--newline",
		"--no-warnings",
		"--no-playlist",
		"--restrict-filenames",
		"--impersonate", b.profile,
		"--print", "after_move:filepath",
		"--no-simulate",
		"-o", "%(title)s.%(ext)s",
	}
	if outputDir != "" {
		args = append(args, "-P", outputDir)
	}
	if b.cfg.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(b.cfg.SocketTimeout))
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, b.cfg.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to attach stdout: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	b.logger.Debug("starting impersonated download",
		zap.String("profile", b.profile),
		zap.String("cmd", ShellEscapeCommand(b.cfg.Binary, args...)))

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	var filePath string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if percent, ok := parsePercentLine(line); ok {
			if onProgress != nil {
				onProgress(domain.ProgressUpdate{
					Phase:         domain.PhaseDownloading,
					FragmentIndex: int(percent * 10),
					FragmentCount: 1000,
				})
			}
			continue
		}
		if !strings.HasPrefix(line, "[") {
			filePath = line
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp failed: %s", firstErrorLine(stderr.String(), err))
	}

	if onProgress != nil {
		onProgress(domain.ProgressUpdate{Phase: domain.PhaseFinished})
	}
	return filePath, nil
}

// parsePercentLine extracts a 0..100 percentage from a progress line
func parsePercentLine(line string) (float64, bool) {
	if !strings.HasPrefix(line, "[download]") {
		return 0, false
	}
	m := percentPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil || percent < 0 || percent > 100 {
		return 0, false
	}
	return percent, true
}
