// Copyright (c) 2026 Hemeroteca. All rights reserved.

package catalog_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemeroteca/internal/catalog"
	"hemeroteca/internal/platform/apperr"
)

type fakeCatalogRepo struct {
	inserted map[string]any
	updated  map[string]any
	covers   map[int]string
	facets   map[string][]string
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		covers: make(map[int]string),
		facets: make(map[string][]string),
	}
}

func (r *fakeCatalogRepo) List(_ context.Context) ([]catalog.Revista, error) {
	return nil, nil
}

func (r *fakeCatalogRepo) Recent(_ context.Context, _ int) ([]catalog.Revista, error) {
	return nil, nil
}

func (r *fakeCatalogRepo) Distinct(_ context.Context, column string) ([]string, error) {
	return r.facets[column], nil
}

func (r *fakeCatalogRepo) Insert(_ context.Context, fields map[string]any) (*catalog.Revista, error) {
	r.inserted = fields
	name, _ := fields["revista"].(string)
	return &catalog.Revista{ID: 1, Revista: name}, nil
}

func (r *fakeCatalogRepo) UpdateFields(_ context.Context, id int, fields map[string]any) (*catalog.Revista, error) {
	r.updated = fields
	return &catalog.Revista{ID: id}, nil
}

func (r *fakeCatalogRepo) SetCover(_ context.Context, id int, filename string) (*catalog.Revista, error) {
	if id == 404 {
		return nil, apperr.NotFound("Revista")
	}
	r.covers[id] = filename
	return &catalog.Revista{ID: id, Portada: &filename}, nil
}

func newCatalogEnv(t *testing.T) (*catalog.Service, *fakeCatalogRepo, string) {
	t.Helper()
	repo := newFakeCatalogRepo()
	dir := t.TempDir()
	service, err := catalog.NewService(repo, dir)
	require.NoError(t, err)
	return service, repo, dir
}

// jpegBytes returns a minimal payload carrying the JPEG SOI marker.
func jpegBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return data
}

func TestCanonicalizeFields_DropsUnknownColumns(t *testing.T) {
	canonical := catalog.CanonicalizeFields(map[string]any{
		"revista":                 "Ciencia y Tecnología",
		"password_hash":           "sneaky",
		"id":                      99,
		"revista; DROP TABLE x--": "injection",
		"URL":                     "HTTP://EJEMPLO.VE/REVISTA",
	})

	assert.Equal(t, map[string]any{
		"revista": "CIENCIA Y TECNOLOGÍA",
		"url":     "http://ejemplo.ve/revista",
	}, canonical)
}

func TestCanonicalizeFields_CaseConvention(t *testing.T) {
	canonical := catalog.CanonicalizeFields(map[string]any{
		"editorial":      "Fondo Editorial",
		"correo_revista": "Contacto@Revista.VE",
		"correo_editor":  "Editor@Revista.VE",
		"portada":        "Revista03.JPG",
	})

	assert.Equal(t, "FONDO EDITORIAL", canonical["editorial"])
	assert.Equal(t, "contacto@revista.ve", canonical["correo_revista"])
	assert.Equal(t, "editor@revista.ve", canonical["correo_editor"])
	assert.Equal(t, "revista03.jpg", canonical["portada"])
}

func TestInsert_RequiresNameAndDefaultsCover(t *testing.T) {
	service, repo, _ := newCatalogEnv(t)
	ctx := context.Background()

	_, err := service.Insert(ctx, map[string]any{"editorial": "X"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	_, err = service.Insert(ctx, map[string]any{"ignored_column": "X"})
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", apperr.As(err).Code)

	_, err = service.Insert(ctx, map[string]any{"revista": "Gaceta Minera"})
	require.NoError(t, err)
	assert.Equal(t, "GACETA MINERA", repo.inserted["revista"])

	// Absent cover is stored as an explicit null.
	value, ok := repo.inserted["portada"]
	require.True(t, ok)
	assert.Nil(t, value)
}

func TestUpdate_OnlyAllowListedFieldsReachTheStore(t *testing.T) {
	service, repo, _ := newCatalogEnv(t)

	_, err := service.Update(context.Background(), 7, map[string]any{
		"idioma":     "Español",
		"is_revoked": true,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"idioma": "ESPAÑOL"}, repo.updated)
}

func TestFacet_DedupesAccentVariants(t *testing.T) {
	service, repo, _ := newCatalogEnv(t)
	repo.facets["idioma"] = []string{"ESPAÑOL", "ESPANOL", "Inglés", "INGLES", "PORTUGUÉS"}

	values, err := service.Facet(context.Background(), "idioma")
	require.NoError(t, err)
	assert.Equal(t, []string{"ESPAÑOL", "Inglés", "PORTUGUÉS"}, values)
}

func TestUploadCover_SequentialNaming(t *testing.T) {
	service, repo, dir := newCatalogEnv(t)
	ctx := context.Background()

	// Pre-existing covers, including a gap and a stray file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "revista01.jpg"), jpegBytes(16), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "revista07.jpg"), jpegBytes(16), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	_, filename, err := service.UploadCover(ctx, 3, bytes.NewReader(jpegBytes(64)))
	require.NoError(t, err)
	assert.Equal(t, "revista08.jpg", filename)
	assert.Equal(t, "revista08.jpg", repo.covers[3])
	assert.FileExists(t, filepath.Join(dir, "revista08.jpg"))
}

func TestUploadCover_RejectsNonJPEG(t *testing.T) {
	service, _, _ := newCatalogEnv(t)

	png := append([]byte{0x89, 0x50, 0x4E, 0x47}, make([]byte, 32)...)
	_, _, err := service.UploadCover(context.Background(), 1, bytes.NewReader(png))
	require.Error(t, err)
	assert.Equal(t, "Only JPEG images are accepted", apperr.As(err).Message)
}

func TestUploadCover_RejectsOversizedImage(t *testing.T) {
	service, _, _ := newCatalogEnv(t)

	_, _, err := service.UploadCover(context.Background(), 1, bytes.NewReader(jpegBytes(catalog.MaxCoverBytes+1)))
	require.Error(t, err)
	assert.Equal(t, "The image exceeds the 5 MB limit", apperr.As(err).Message)
}

func TestUploadCover_RemovesFileWhenRowMissing(t *testing.T) {
	service, _, dir := newCatalogEnv(t)

	_, _, err := service.UploadCover(context.Background(), 404, bytes.NewReader(jpegBytes(64)))
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
