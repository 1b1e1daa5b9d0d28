// Copyright 2024-2026 Aiku AI

// Package media implements the relay media pipeline: size guard, download,
// content-hash naming, video transcoding, attachment wrapping and cleanup.
// Local files produced here are owned exclusively by one relay operation and
// never outlive it.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind is a tagged variant of the relayable media types.
type Kind int

const (
	KindPhoto Kind = iota
	KindVideo
	KindDocument
	KindAudio
	KindVoice
	KindSticker
)

func (k Kind) String() string {
	switch k {
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindDocument:
		return "document"
	case KindAudio:
		return "audio"
	case KindVoice:
		return "voice"
	case KindSticker:
		return "sticker"
	default:
		return "unknown"
	}
}

const (
	// maxFileSize is the hard platform-reported size guard. Larger files are
	// never downloaded.
	maxFileSize = 20 * 1024 * 1024
	// maxVideoSize is the threshold above which video files are transcoded.
	maxVideoSize = 10 * 1024 * 1024
	// targetBitrate is the fixed bitrate handed to the transcoder.
	targetBitrate = "1000k"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// ErrTooLarge is reported when a ref's platform-reported size exceeds the
// download guard. The relay substitutes a text placeholder for the file.
var ErrTooLarge = errors.New("media exceeds size limit")

// Ref identifies a downloadable media item attached to an inbound event.
// FileID is platform-specific: a Telegram file_id or a Discord attachment URL.
type Ref struct {
	FileID    string
	Kind      Kind
	SizeBytes int64
	Filename  string
}

// Asset is a materialized media file on local disk.
type Asset struct {
	SourceFileID string
	ContentHash  string
	LocalPath    string
	Kind         Kind
	SizeBytes    int64
}

// Attachment wraps a local file for an outbound platform send.
type Attachment struct {
	Name string
	Path string
	Kind Kind
}

// Fetcher downloads the raw bytes for a media ref. Platform connectors
// implement this over their native file APIs.
type Fetcher interface {
	FetchMedia(ctx context.Context, ref Ref) (data []byte, remoteName string, err error)
}

// Pipeline materializes media refs into local files under a per-process
// scratch directory. Files are named by content hash, so concurrent relays
// of identical content collide benignly.
type Pipeline struct {
	dir    string
	ffmpeg string
	log    zerolog.Logger
}

// NewPipeline creates the scratch directory and returns a ready pipeline.
// ffmpegPath may be empty, in which case videos are relayed untranscoded.
func NewPipeline(scratchDir, ffmpegPath string, log zerolog.Logger) (*Pipeline, error) {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	dir := filepath.Join(scratchDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Pipeline{
		dir:    dir,
		ffmpeg: ffmpegPath,
		log:    log.With().Str("component", "media").Logger(),
	}, nil
}

// Dir returns the pipeline's scratch directory.
func (p *Pipeline) Dir() string {
	return p.dir
}

// GuardSize checks the platform-reported size against the download guard.
func GuardSize(ref Ref) error {
	if ref.SizeBytes > maxFileSize {
		return fmt.Errorf("%w: %s reports %d bytes", ErrTooLarge, ref.Kind, ref.SizeBytes)
	}
	return nil
}

// Materialize downloads a ref and writes it to the scratch directory as
// <hash>.<ext>. Videos over the transcode threshold are compressed; on
// transcoder failure the original file is kept and the failure logged.
func (p *Pipeline) Materialize(ctx context.Context, ref Ref, fetch Fetcher) (*Asset, error) {
	if err := GuardSize(ref); err != nil {
		return nil, err
	}

	data, remoteName, err := fetch.FetchMedia(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s %s: %w", ref.Kind, ref.FileID, err)
	}

	ext := strings.ToLower(filepath.Ext(remoteName))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(ref.Filename))
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	localPath := filepath.Join(p.dir, hash+ext)
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", localPath, err)
	}

	asset := &Asset{
		SourceFileID: ref.FileID,
		ContentHash:  hash,
		LocalPath:    localPath,
		Kind:         ref.Kind,
		SizeBytes:    int64(len(data)),
	}

	if videoExtensions[ext] && asset.SizeBytes > maxVideoSize {
		compressed, err := p.transcode(ctx, localPath)
		if err != nil {
			p.log.Warn().Err(err).
				Str("path", localPath).
				Msg("Video transcode failed, relaying original file")
		} else {
			if err := os.Remove(localPath); err != nil {
				p.log.Warn().Err(err).Str("path", localPath).Msg("Failed to remove pre-transcode file")
			}
			asset.LocalPath = compressed
			if info, err := os.Stat(compressed); err == nil {
				asset.SizeBytes = info.Size()
			}
		}
	}

	return asset, nil
}

// Attach wraps materialized assets as outbound attachments. A file that can
// no longer be wrapped is logged and skipped; partial sets are allowed.
func (p *Pipeline) Attach(assets []*Asset) []Attachment {
	attachments := make([]Attachment, 0, len(assets))
	for _, asset := range assets {
		if _, err := os.Stat(asset.LocalPath); err != nil {
			p.log.Warn().Err(err).
				Str("path", asset.LocalPath).
				Msg("Failed to wrap attachment, skipping")
			continue
		}
		attachments = append(attachments, Attachment{
			Name: filepath.Base(asset.LocalPath),
			Path: asset.LocalPath,
			Kind: asset.Kind,
		})
	}
	return attachments
}

// Cleanup deletes all local files for the given assets. Deletion errors are
// logged, never raised: the send attempt is already over.
func (p *Pipeline) Cleanup(assets []*Asset) {
	for _, asset := range assets {
		if err := os.Remove(asset.LocalPath); err != nil && !os.IsNotExist(err) {
			p.log.Warn().Err(err).Str("path", asset.LocalPath).Msg("Failed to remove media file")
		}
	}
}

// Close removes the pipeline's scratch directory.
func (p *Pipeline) Close() {
	if err := os.RemoveAll(p.dir); err != nil {
		p.log.Warn().Err(err).Str("dir", p.dir).Msg("Failed to remove scratch directory")
	}
}
