package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/maltedev/ddtech-scraper/internal/models"
	"github.com/maltedev/ddtech-scraper/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockExecutor is a mock for the pool's Exec method
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	called := m.Called(append([]interface{}{ctx, sql}, args...)...)
	return pgconn.NewCommandTag(called.String(0)), called.Error(1)
}

func testRecord(url, title string) *models.ProductRecord {
	rec := models.NewProductRecord(url, time.Date(2025, 8, 30, 18, 30, 15, 0, time.UTC))
	rec.Title = title
	rec.Price = "12,499.00"
	rec.SKU = "4321"
	return rec
}

func TestProductRepository_Migrate(t *testing.T) {
	ctx := context.Background()
	exec := new(MockExecutor)
	exec.On("Exec", ctx, createProductsTable).Return("CREATE TABLE", nil)

	repo := NewProductRepositoryWithExecutor(exec)
	require.NoError(t, repo.Migrate(ctx))

	exec.AssertExpectations(t)
}

func TestProductRepository_SaveBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts every record", func(t *testing.T) {
		exec := new(MockExecutor)
		a := testRecord("https://ddtech.mx/producto/a?id=1", "Laptop A")
		b := testRecord("https://ddtech.mx/producto/b?id=2", "Laptop B")

		for _, rec := range []*models.ProductRecord{a, b} {
			exec.On("Exec", ctx, upsertProduct,
				rec.URL, rec.Title, rec.Price, rec.SKU,
				rec.Description, rec.Availability, rec.ScrapedAt,
			).Return("INSERT 0 1", nil).Once()
		}

		saved, err := NewProductRepositoryWithExecutor(exec).SaveBatch(ctx, []*models.ProductRecord{a, nil, b})
		require.NoError(t, err)
		assert.Equal(t, 2, saved)
		exec.AssertExpectations(t)
	})

	t.Run("stops on first error", func(t *testing.T) {
		exec := new(MockExecutor)
		exec.On("Exec", mock.Anything, upsertProduct,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything,
		).Return("", errors.New("connection reset")).Once()

		saved, err := NewProductRepositoryWithExecutor(exec).SaveBatch(ctx, []*models.ProductRecord{
			testRecord("https://ddtech.mx/producto/a?id=1", "A"),
			testRecord("https://ddtech.mx/producto/b?id=2", "B"),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
		assert.Equal(t, 0, saved)
		exec.AssertNumberOfCalls(t, "Exec", 1)
	})
}

func TestProductRepository_Sink(t *testing.T) {
	repo := NewProductRepositoryWithExecutor(new(MockExecutor))

	assert.Equal(t, "postgres", repo.Name())
	assert.ErrorIs(t, repo.Write(context.Background(), nil), storage.ErrNoRecords)
}
