// Package util - helpers for reading detection documents from disk.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FrameFile represents one per-frame detection document.
type FrameFile struct {
	// Path is the path to the document.
	Path string
	// Data is the raw bytes of the document.
	Data []byte
	// Frame is the frame number parsed from the file name.
	Frame int
}

// LoadDirectoryFrameFiles reads all frame-<n>.json documents from a directory.
//
// Arguments:
// - dir: Directory path containing the documents.
//
// Returns:
// - []FrameFile: The documents, ordered by frame number.
// - error: Error if reading fails or a document name carries no frame number.
func LoadDirectoryFrameFiles(dir string) ([]FrameFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var frames []FrameFile
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		path := filepath.Join(dir, file.Name())
		frame, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSuffix(file.Name(), ".json"), "frame-"))
		if err != nil {
			return nil, errors.Wrapf(err, "no frame number in %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		frames = append(frames, FrameFile{
			Path:  path,
			Data:  data,
			Frame: frame,
		})
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Frame < frames[j].Frame
	})

	return frames, nil
}
