// Copyright 2024-2026 Aiku AI

package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// transcode compresses a video file to the fixed target bitrate using the
// external ffmpeg binary. On success it returns the path of the compressed
// file; the caller is responsible for removing the original. On failure no
// partial output file is left behind.
func (p *Pipeline) transcode(ctx context.Context, src string) (string, error) {
	if p.ffmpeg == "" {
		return "", errors.New("no transcoder binary configured")
	}

	ext := filepath.Ext(src)
	out := strings.TrimSuffix(src, ext) + "_compressed.mp4"

	cmd := exec.CommandContext(ctx, p.ffmpeg,
		"-i", src,
		"-b:v", targetBitrate,
		"-bufsize", targetBitrate,
		"-y",
		out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
			p.log.Warn().Err(rmErr).Str("path", out).Msg("Failed to remove partial transcode output")
		}
		return "", fmt.Errorf("ffmpeg failed: %w: %s", err, truncate(string(output), 512))
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
