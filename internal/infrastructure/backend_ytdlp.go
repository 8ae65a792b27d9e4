package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rxvxrsx/revgrab/internal/domain"
)

// progressTemplate makes yt-dlp emit machine-readable progress lines on
// stdout, one per update. Fields that yt-dlp cannot fill come out as "NA".
const progressTemplate = "PROGRESS|%(progress.downloaded_bytes)s|%(progress.total_bytes)s|%(progress.total_bytes_estimate)s|%(progress.fragment_index)s|%(progress.fragment_count)s"

const progressPrefix = "PROGRESS|"

// YTDLPBackend drives the yt-dlp binary as a subprocess. One Resolve call
// fetches flat metadata; one Download call transfers a single item.
type YTDLPBackend struct {
	cfg    domain.BackendConfig
	logger *zap.Logger
}

// NewYTDLPBackend creates a backend around the configured yt-dlp binary
func NewYTDLPBackend(cfg domain.BackendConfig, logger *zap.Logger) *YTDLPBackend {
	return &YTDLPBackend{cfg: cfg, logger: logger}
}

// ytdlpInfo is the subset of yt-dlp's -J output the resolver needs
type ytdlpInfo struct {
	Type    string       `json:"_type"`
	Title   string       `json:"title"`
	Entries []ytdlpEntry `json:"entries"`
}

type ytdlpEntry struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Resolve fetches flat metadata for a URL without downloading anything
func (b *YTDLPBackend) Resolve(ctx context.Context, url string, opts domain.ResolveOptions) (*domain.Metadata, error) {
	args := []string{"-J", "--flat-playlist", "--no-warnings"}
	if opts.PlaylistEnd > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(opts.PlaylistEnd))
	}
	if b.cfg.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(b.cfg.SocketTimeout))
	}
	if b.cfg.CookieFile != "" && fileExists(b.cfg.CookieFile) {
		args = append(args, "--cookies", b.cfg.CookieFile)
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

// Download transfers one item and returns the final file path
func (b *YTDLPBackend) Download(ctx context.Context, url string, opts domain.DownloadOptions, onProgress domain.ProgressFunc) (string, error) {
	outputDir := opts.OutputDir
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create download directory: %w", err)
		}
	}

	args := b.buildDownloadArgs(url, opts)

	cmd := exec.CommandContext(ctx, b.cfg.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to attach stdout: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	b.logger.Debug("starting download", zap.String("cmd", ShellEscapeCommand(b.cfg.Binary, args...)))

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	// yt-dlp interleaves progress lines with --print output. Progress lines
	// carry the PROGRESS| prefix; the last line without it is the final
	// file path.
	var filePath string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, progressPrefix) {
			if update, ok := parseProgressLine(line); ok && onProgress != nil {
				onProgress(update)
			}
			continue
		}
		filePath = line
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

// buildDownloadArgs maps the user's options to yt-dlp flags
func (b *YTDLPBackend) buildDownloadArgs(url string, opts domain.DownloadOptions) []string {
	args := []string{
		"--newline",
		"--no-warnings",
		"--no-playlist",
		"--restrict-filenames",
		"--progress-template", "download:" + progressTemplate,
		"--print", "after_move:filepath",
		"--no-simulate",
		"-o", "%(title)s.%(ext)s",
	}

	if opts.OutputDir != "" {
		args = append(args, "-P", opts.OutputDir)
	}
	if b.cfg.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(b.cfg.SocketTimeout))
	}
	if b.cfg.CookieFile != "" && fileExists(b.cfg.CookieFile) {
		args = append(args, "--cookies", b.cfg.CookieFile)
	}

	if opts.Type == domain.MediaAudio {
		args = append(args, "-x")
		if opts.AudioFormat != "" {
			args = append(args, "--audio-format", opts.AudioFormat)
		}
		if opts.AudioQuality != "" {
			args = append(args, "--audio-quality", opts.AudioQuality)
		}
	} else {
		if selector := formatSelector(opts.Resolution); selector != "" {
			args = append(args, "-f", selector)
		}
		if opts.VideoFormat != "" {
			args = append(args, "--merge-output-format", opts.VideoFormat)
		}
	}

	if opts.WriteSubtitles {
		args = append(args, "--write-subs", "--write-auto-subs")
		if opts.SubtitleLang != "" {
			args = append(args, "--sub-langs", opts.SubtitleLang)
		}
		if opts.EmbedSubtitles {
			args = append(args, "--embed-subs")
		}
	}
	if opts.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if opts.EmbedMetadata {
		args = append(args, "--embed-metadata")
	}
	if opts.SponsorBlock {
		args = append(args, "--sponsorblock-remove", "sponsor")
	}

	return append(args, url)
}

// formatSelector builds a yt-dlp format expression for a resolution label
func formatSelector(resolution string) string {
	switch strings.ToLower(strings.TrimSuffix(resolution, "p")) {
	case "", "best":
		return "bv*+ba/b"
	default:
		height := strings.TrimSuffix(strings.ToLower(resolution), "p")
		if _, err := strconv.Atoi(height); err != nil {
			return "bv*+ba/b"
		}
		return fmt.Sprintf("bv*[height<=%s]+ba/b[height<=%s]", height, height)
	}
}

// parseProgressLine decodes one PROGRESS| line into an update. Fields yt-dlp
// cannot fill arrive as "NA" and are left zero.
func parseProgressLine(line string) (domain.ProgressUpdate, bool) {
	parts := strings.Split(strings.TrimPrefix(line, progressPrefix), "|")
	if len(parts) != 5 {
		return domain.ProgressUpdate{}, false
	}

	update := domain.ProgressUpdate{Phase: domain.PhaseDownloading}
	update.DownloadedBytes = parseByteField(parts[0])
	update.TotalBytes = parseByteField(parts[1])
	if update.TotalBytes == 0 {
		update.TotalBytes = parseByteField(parts[2])
	}
	update.FragmentIndex = int(parseByteField(parts[3]))
	update.FragmentCount = int(parseByteField(parts[4]))
	return update, true
}

// parseByteField parses a numeric template field, tolerating "NA" and float
// renderings
func parseByteField(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" || s == "None" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// firstErrorLine extracts the most useful line from yt-dlp's stderr
func firstErrorLine(stderr string, fallback error) string {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
	}
	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		lines := strings.Split(stderr, "\n")
		return strings.TrimSpace(lines[len(lines)-1])
	}
	return fallback.Error()
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
