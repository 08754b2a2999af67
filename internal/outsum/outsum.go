// Package outsum records and verifies checksums of generated files in a
// dbridge.sum manifest.
package outsum

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"martianoff/dbridge/bridgeerr"
)

// FileName is the manifest written into the output directory.
const FileName = "dbridge.sum"

// File is a parsed dbridge.sum manifest.
type File struct {
	Entries []Entry
}

// Entry is one generated file and its hash.
type Entry struct {
	Path string // slash-separated, relative to the output directory
	Hash string // h1:<base64 sha256>
}

// NewFile creates an empty manifest.
func NewFile() *File {
	return &File{Entries: make([]Entry, 0)}
}

// Add adds or updates the entry for path.
func (f *File) Add(path, hash string) {
	path = filepath.ToSlash(path)
	for i := range f.Entries {
		if f.Entries[i].Path == path {
			f.Entries[i].Hash = hash
			return
		}
	}
	f.Entries = append(f.Entries, Entry{Path: path, Hash: hash})
}

// Get retrieves the entry for path, or nil.
func (f *File) Get(path string) *Entry {
	path = filepath.ToSlash(path)
	for i := range f.Entries {
		if f.Entries[i].Path == path {
			return &f.Entries[i]
		}
	}
	return nil
}

// HashFile computes the h1: hash of a single file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open generated file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("cannot read generated file: %w", err)
	}
	return "h1:" + base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// Record hashes the given files (relative to dir) and writes the manifest.
func Record(dir string, files []string) (*File, error) {
	f := NewFile()
	for _, rel := range files {
		hash, err := HashFile(filepath.Join(dir, rel))
		if err != nil {
			return nil, fmt.Errorf("hashing %s: %w", rel, err)
		}
		f.Add(rel, hash)
	}
	if err := WriteFile(f, filepath.Join(dir, FileName)); err != nil {
		return nil, fmt.Errorf("writing %s: %w", FileName, err)
	}
	return f, nil
}

// Verify re-hashes every file listed in dir's manifest. Every mismatch or
// missing file is reported.
func Verify(dir string) error {
	f, err := ParseFile(filepath.Join(dir, FileName))
	if err != nil {
		return err
	}

	errs := &bridgeerr.MultiError{}
	for _, e := range f.Entries {
		actual, err := HashFile(filepath.Join(dir, filepath.FromSlash(e.Path)))
		if err != nil {
			errs.Errors = append(errs.Errors, fmt.Errorf("%s: %w", e.Path, err))
			continue
		}
		if actual != e.Hash {
			errs.Errors = append(errs.Errors, &HashMismatchError{
				Path:     e.Path,
				Expected: e.Hash,
				Actual:   actual,
			})
		}
	}
	return errs.OrNil()
}

// HashMismatchError is returned when a generated file no longer matches the
// manifest.
type HashMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("%s changed since generation: %s records %s, file hashes to %s",
		e.Path, FileName, e.Expected, e.Actual)
}

// ParseError represents an error during dbridge.sum parsing.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", FileName, e.Line, e.Message)
}

// Parse parses a manifest of "path hash" lines.
func Parse(content string) (*File, error) {
	f := NewFile()
	for lineNum, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, &ParseError{Line: lineNum + 1, Message: "invalid format: expected 'path hash'"}
		}
		if !strings.HasPrefix(parts[1], "h1:") {
			return nil, &ParseError{Line: lineNum + 1, Message: "invalid hash format: expected 'h1:...'"}
		}
		f.Entries = append(f.Entries, Entry{Path: parts[0], Hash: parts[1]})
	}
	return f, nil
}

// ParseFile parses a manifest from disk.
func ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	return Parse(string(content))
}

// Format renders the manifest sorted by path.
func Format(f *File) string {
	entries := make([]Entry, len(f.Entries))
	copy(entries, f.Entries)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.Path)
		sb.WriteString(" ")
		sb.WriteString(e.Hash)
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteFile writes the manifest to path.
func WriteFile(f *File, path string) error {
	return os.WriteFile(path, []byte(Format(f)), 0o644)
}
