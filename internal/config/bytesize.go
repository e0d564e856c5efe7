package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ample-stream/ample/internal/protocol"
)

// minFrameBytes is the lower bound an operator can configure for
// max_frame_bytes.
const minFrameBytes = 1024

// resolveMaxFrameBytes parses raw (e.g. "32mb") into a frame-length
// ceiling, defaulting to protocol.MaxFrameLen when raw is empty and
// range-checking against [minFrameBytes, protocol.MaxFrameLen] — an
// operator may tighten the bound read-side defends against, never loosen
// it past the hard ceiling protocol.ReadFrame itself enforces.
func resolveMaxFrameBytes(raw string) (int64, error) {
	if raw == "" {
		return protocol.MaxFrameLen, nil
	}
	n, err := ParseByteSize(raw)
	if err != nil {
		return 0, fmt.Errorf("max_frame_bytes: %w", err)
	}
	if n < minFrameBytes {
		return 0, fmt.Errorf("max_frame_bytes must be at least %d, got %d", minFrameBytes, n)
	}
	if n > protocol.MaxFrameLen {
		return 0, fmt.Errorf("max_frame_bytes must be at most %d, got %d", protocol.MaxFrameLen, n)
	}
	return n, nil
}

// ParseByteSize converts human-readable strings like "256mb", "1gb" to
// bytes. Suffixes are checked longest-first so "mb" never matches as "b".
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	type suffix struct {
		s string
		m int64
	}
	suffixes := []suffix{
		{"gb", 1024 * 1024 * 1024},
		{"mb", 1024 * 1024},
		{"kb", 1024},
		{"b", 1},
	}

	for _, sfx := range suffixes {
		if strings.HasSuffix(s, sfx.s) {
			numStr := strings.TrimSuffix(s, sfx.s)
			num, err := strconv.ParseInt(numStr, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid number %q: %w", numStr, err)
			}
			return num * sfx.m, nil
		}
	}

	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown size format %q", s)
	}
	return num, nil
}
