package domain

import "context"

// ProgressPhase indicates what a progress update describes
type ProgressPhase string

const (
	PhaseDownloading ProgressPhase = "downloading"
	PhaseFinished    ProgressPhase = "finished"
)

// ProgressUpdate is one granular progress event for the item being
// downloaded. Not all backends report bytes; fragment counts or nothing at
// all are valid. Byte values for a single item arrive in non-decreasing
// order.
type ProgressUpdate struct {
	Phase           ProgressPhase
	DownloadedBytes int64
	TotalBytes      int64 // 0 when the backend can't estimate extent
	FragmentIndex   int
	FragmentCount   int
}

// ProgressFunc receives backend progress events at backend-determined
// granularity
type ProgressFunc func(ProgressUpdate)

// ResolveOptions bound the cost of metadata resolution
type ResolveOptions struct {
	// PlaylistEnd caps how many playlist entries the backend resolves
	PlaylistEnd int
}

// MetadataEntry describes one resolvable item inside a URL's metadata
type MetadataEntry struct {
	URL   string
	Title string
}

// Metadata is the result of resolving a user-supplied URL
type Metadata struct {
	Title string
	// Type is the backend-reported type tag ("playlist", "video", ...)
	Type    string
	Entries []MetadataEntry
}

// MediaBackend resolves URLs to metadata and transfers single items. The
// engine is transport-agnostic: it never touches the network or the media
// itself, it only orchestrates calls against this contract.
type MediaBackend interface {
	// Resolve returns the metadata for a URL, bounded by opts
	Resolve(ctx context.Context, url string, opts ResolveOptions) (*Metadata, error)

	// Download transfers one item, reporting progress through onProgress.
	// It must honor ctx cancellation promptly, terminating any subprocess.
	Download(ctx context.Context, url string, opts DownloadOptions, onProgress ProgressFunc) (string, error)
}
