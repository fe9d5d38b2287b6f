package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/facility-admin-api/internal/models"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
)

type fakeTechnicianRepo struct {
	byEmail map[string]models.Technician
}

func (f *fakeTechnicianRepo) List(context.Context, models.TechnicianFilter) ([]models.Technician, int, error) {
	return nil, 0, nil
}

func (f *fakeTechnicianRepo) FindByID(_ context.Context, id string) (*models.Technician, error) {
	for _, t := range f.byEmail {
		if t.ID == id {
			tech := t
			return &tech, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTechnicianRepo) UpsertByEmail(_ context.Context, t *models.Technician) error {
	if existing, ok := f.byEmail[t.Email]; ok {
		t.ID = existing.ID
	} else if t.ID == "" {
		t.ID = "tech-" + t.Email
	}
	f.byEmail[t.Email] = *t
	return nil
}

func (f *fakeTechnicianRepo) Update(_ context.Context, t *models.Technician) error {
	f.byEmail[t.Email] = *t
	return nil
}

func (f *fakeTechnicianRepo) Delete(_ context.Context, id string) error {
	for email, t := range f.byEmail {
		if t.ID == id {
			delete(f.byEmail, email)
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestTechnicianRegisterHashesAndUpserts(t *testing.T) {
	repo := &fakeTechnicianRepo{byEmail: map[string]models.Technician{}}
	audit := &fakeAudit{}
	svc := NewTechnicianService(repo, audit, nil, nil)
	svc.hashCost = bcrypt.MinCost
	ctx := context.Background()

	first, err := svc.Register(ctx, "admin-1", RegisterTechnicianRequest{Name: "Budi", Email: "Budi@Example.com", Phone: "0812", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "budi@example.com", first.Email)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(first.PasswordHash), []byte("secret1")))

	again, err := svc.Register(ctx, "admin-1", RegisterTechnicianRequest{Name: "Budi S", Email: "budi@example.com", Phone: "0813", Password: "secret2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, repo.byEmail, 1)
	assert.Equal(t, "Budi S", repo.byEmail["budi@example.com"].Name)
	assert.Len(t, audit.entries, 2)
}

func TestTechnicianRegisterValidation(t *testing.T) {
	svc := NewTechnicianService(&fakeTechnicianRepo{byEmail: map[string]models.Technician{}}, nil, nil, nil)

	_, err := svc.Register(context.Background(), "", RegisterTechnicianRequest{Name: "A", Email: "a@example.com", Phone: "1", Password: "123"})
	requireAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Register(context.Background(), "", RegisterTechnicianRequest{Name: "A", Email: "not-an-email", Phone: "1", Password: "123456"})
	requireAppCode(t, err, appErrors.ErrValidation.Code)
}

func TestTechnicianGetAndDeleteUnknown(t *testing.T) {
	svc := NewTechnicianService(&fakeTechnicianRepo{byEmail: map[string]models.Technician{}}, nil, nil, nil)

	_, err := svc.Get(context.Background(), "nope")
	requireAppCode(t, err, appErrors.ErrNotFound.Code)
	requireAppCode(t, svc.Delete(context.Background(), "nope"), appErrors.ErrNotFound.Code)

	list, page, err := svc.List(context.Background(), models.TechnicianFilter{Page: 3, PageSize: 5})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Equal(t, 3, page.Page)
}

type fakeCategoryRepo struct {
	rows map[string]models.Category
}

func (f *fakeCategoryRepo) List(context.Context) ([]models.Category, error) { return nil, nil }

func (f *fakeCategoryRepo) FindByID(_ context.Context, id string) (*models.Category, error) {
	c, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f *fakeCategoryRepo) Create(_ context.Context, c *models.Category) error {
	c.ID = "cat-1"
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeCategoryRepo) Update(_ context.Context, c *models.Category) error {
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeCategoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.rows, id)
	return nil
}

func TestCategoryServiceLifecycle(t *testing.T) {
	repo := &fakeCategoryRepo{rows: map[string]models.Category{}}
	svc := NewCategoryService(repo, nil, nil)
	ctx := context.Background()

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	_, err = svc.Create(ctx, CategoryRequest{})
	requireAppCode(t, err, appErrors.ErrValidation.Code)

	created, err := svc.Create(ctx, CategoryRequest{Lantai: " Lantai 1 "})
	require.NoError(t, err)
	assert.Equal(t, "Lantai 1", created.Lantai)

	updated, err := svc.Update(ctx, created.ID, CategoryRequest{Lantai: "Lantai 2"})
	require.NoError(t, err)
	assert.Equal(t, "Lantai 2", updated.Lantai)

	_, err = svc.Update(ctx, "missing", CategoryRequest{Lantai: "x"})
	requireAppCode(t, err, appErrors.ErrNotFound.Code)

	require.NoError(t, svc.Delete(ctx, created.ID))
	requireAppCode(t, svc.Delete(ctx, created.ID), appErrors.ErrNotFound.Code)
}
