// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package edgar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MetadataSuffix is appended to a document path to name its sidecar.
const MetadataSuffix = ".metadata.json"

// FileStore lays out downloaded documents as
// <root>/<CIK>/<accession without dashes>/<file name>.
type FileStore struct {
	root string
}

// NewFileStore creates a new file store rooted at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root returns the store root.
func (s *FileStore) Root() string {
	return s.root
}

// DocumentPath returns where doc is stored.
func (s *FileStore) DocumentPath(doc *Document) string {
	return filepath.Join(s.root, doc.CIK, doc.AccessionDir(), doc.BaseName())
}

// MetadataPath returns where the sidecar of doc is stored.
func (s *FileStore) MetadataPath(doc *Document) string {
	return s.DocumentPath(doc) + MetadataSuffix
}

// Exists checks if a document exists in the file system.
func (s *FileStore) Exists(doc *Document) (bool, error) {
	_, err := os.Stat(s.DocumentPath(doc))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

func (s *FileStore) parentMustExist(doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(s.DocumentPath(doc)), 0o750); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	return nil
}

// SaveDocument stores content as the document file of doc. The content is
// written to a temporary file in the same directory and renamed into place,
// so a failed copy never leaves a partial document behind.
func (s *FileStore) SaveDocument(doc *Document, content io.Reader) (err error) {
	if err := s.parentMustExist(doc); err != nil {
		return err
	}

	path := s.DocumentPath(doc)

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("creating document file: %w", err)
	}

	tmp := f.Name()

	defer func() {
		if err != nil {
			_ = f.Close()

			if rerr := os.Remove(tmp); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
				err = errors.Join(err, fmt.Errorf("removing partial file: %w", rerr))
			}
		}
	}()

	if _, err := io.Copy(f, content); err != nil {
		return fmt.Errorf("writing document file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("moving document file into place: %w", err)
	}

	return nil
}

// SaveMetadata writes the sidecar of doc as indented JSON.
func (s *FileStore) SaveMetadata(doc *Document) error {
	if err := s.parentMustExist(doc); err != nil {
		return err
	}

	output, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(s.MetadataPath(doc), output, 0o600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	return nil
}
