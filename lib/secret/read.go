// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"os"
)

// ReadFromPath reads key material from a file into a guarded buffer.
// Leading and trailing whitespace is trimmed before storing, so key
// files may end with a newline. Returns an error if the file is empty
// after trimming. The caller must Close the returned buffer.
func ReadFromPath(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, fmt.Errorf("secret: %s is empty", path)
	}

	// NewFromBytes copies into the mmap region and zeros trimmed; the
	// surrounding whitespace bytes are zeroed separately.
	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

// WriteToPath writes key material to a file with mode 0600, creating
// parent-relative paths as given. The buffer is borrowed, not closed.
// A trailing newline is appended so the file is editor- and
// shell-friendly.
func WriteToPath(path string, buffer *Buffer) error {
	contents := append(buffer.Bytes(), '\n')
	err := os.WriteFile(path, contents, 0o600)
	Zero(contents)
	if err != nil {
		return fmt.Errorf("secret: writing %s: %w", path, err)
	}
	return nil
}
