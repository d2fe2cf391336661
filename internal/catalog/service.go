// Copyright (c) 2026 Hemeroteca. All rights reserved.

package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"hemeroteca/internal/platform/apperr"
	"hemeroteca/pkg/normalize"
)

// MaxCoverBytes caps the size of an uploaded cover image.
const MaxCoverBytes = 5 << 20

// recentCount is how many magazines the recent-additions endpoint returns.
const recentCount = 2

// jpegMagic is the SOI marker every JPEG stream starts with.
var jpegMagic = []byte{0xFF, 0xD8, 0xFF}

// coverPattern matches the sequential cover naming scheme revistaNN.jpg.
var coverPattern = regexp.MustCompile(`(?i)^revista(\d+)\.jpg$`)

// Service implements the catalog use cases.
type Service struct {
	repository Repository
	coverDir   string
}

// NewService constructs a new catalog [Service]. coverDir is created if it
// does not exist yet.
func NewService(repository Repository, coverDir string) (*Service, error) {
	if err := os.MkdirAll(coverDir, 0o755); err != nil {
		return nil, fmt.Errorf("catalog_service_cover_dir_failed: %w", err)
	}
	return &Service{repository: repository, coverDir: coverDir}, nil
}

// CoverDir returns the directory covers are served from.
func (service *Service) CoverDir() string {
	return service.coverDir
}

// List returns the whole catalog.
func (service *Service) List(ctx context.Context) ([]Revista, error) {
	return service.repository.List(ctx)
}

// Recent returns the latest additions for the public landing page.
func (service *Service) Recent(ctx context.Context) ([]Revista, error) {
	return service.repository.Recent(ctx, recentCount)
}

// Facet returns the distinct values of a facet column, de-duplicated
// accent- and case-insensitively. Legacy rows carry the same value with
// inconsistent diacritics; the first spelling encountered wins.
func (service *Service) Facet(ctx context.Context, column string) ([]string, error) {
	values, err := service.repository.Distinct(ctx, column)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(values))
	deduped := values[:0]
	for _, value := range values {
		folded := normalize.Fold(value)
		if seen[folded] {
			continue
		}
		seen[folded] = true
		deduped = append(deduped, value)
	}

	return deduped, nil
}

// Insert creates a magazine from a client field map.
//
// Unknown field names are dropped by the allow-list, never reported: the
// caller learns nothing about the table layout. The stored row is returned.
func (service *Service) Insert(ctx context.Context, fields map[string]any) (*Revista, error) {
	canonical := CanonicalizeFields(fields)
	if len(canonical) == 0 {
		return nil, apperr.BadRequest("No fields provided to insert")
	}
	if _, ok := canonical["revista"]; !ok {
		return nil, apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   "revista",
			Message: "This field is required",
		})
	}
	if _, ok := canonical["portada"]; !ok {
		canonical["portada"] = nil
	}

	return service.repository.Insert(ctx, canonical)
}

// Update patches a magazine from a client field map.
func (service *Service) Update(ctx context.Context, id int, fields map[string]any) (*Revista, error) {
	canonical := CanonicalizeFields(fields)
	if len(canonical) == 0 {
		return nil, apperr.BadRequest("No fields provided to update")
	}

	return service.repository.UpdateFields(ctx, id, canonical)
}

// UploadCover stores a new cover image under the next sequential filename
// and records it on the magazine.
//
// Only JPEG payloads are accepted, verified by magic bytes rather than the
// client-declared content type, and the stream is hard-capped at
// [MaxCoverBytes].
func (service *Service) UploadCover(ctx context.Context, id int, image io.Reader) (*Revista, string, error) {
	data, err := io.ReadAll(io.LimitReader(image, MaxCoverBytes+1))
	if err != nil {
		return nil, "", apperr.Internal(fmt.Errorf("catalog_service_read_cover_failed: %w", err))
	}
	if len(data) > MaxCoverBytes {
		return nil, "", apperr.BadRequest("The image exceeds the 5 MB limit")
	}
	if !bytes.HasPrefix(data, jpegMagic) {
		return nil, "", apperr.BadRequest("Only JPEG images are accepted")
	}

	filename, err := service.nextCoverFilename()
	if err != nil {
		return nil, "", err
	}

	path := filepath.Join(service.coverDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, "", apperr.Internal(fmt.Errorf("catalog_service_write_cover_failed: %w", err))
	}

	revista, err := service.repository.SetCover(ctx, id, filename)
	if err != nil {
		// The DB row stays authoritative: discard the orphaned file.
		_ = os.Remove(path)
		return nil, "", err
	}

	return revista, filename, nil
}

// nextCoverFilename scans the cover directory and returns the next name in
// the revistaNN.jpg sequence, zero-padded to two digits.
func (service *Service) nextCoverFilename() (string, error) {
	entries, err := os.ReadDir(service.coverDir)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("catalog_service_scan_covers_failed: %w", err))
	}

	max := 0
	for _, entry := range entries {
		match := coverPattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		var number int
		if _, err := fmt.Sscanf(match[1], "%d", &number); err == nil && number > max {
			max = number
		}
	}

	return fmt.Sprintf("revista%02d.jpg", max+1), nil
}
