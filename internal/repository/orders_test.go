package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/entity"
)

func TestOrderCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db, testLogger())
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	o := &entity.Order{
		OrderNumber:        "DOC-AB12CD34",
		PatientFirstName:   ptr("John"),
		PatientLastName:    ptr("Smith"),
		PatientDateOfBirth: ptr("01/15/1980"),
		OrderType:          constants.DefaultOrderType,
		Status:             constants.OrderStatusPending,
		ExtractionMethod:   ptr("pdf_layout"),
		ConfidenceScore:    ptr(0.9),
		CreatedAt:          created,
	}
	require.NoError(t, repo.Create(ctx, o))
	assert.NotEqual(t, uuid.Nil, o.ID, "Create assigns an id")

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "DOC-AB12CD34", got.OrderNumber)
	require.NotNil(t, got.PatientFirstName)
	assert.Equal(t, "John", *got.PatientFirstName)
	require.NotNil(t, got.PatientLastName)
	assert.Equal(t, "Smith", *got.PatientLastName)
	require.NotNil(t, got.PatientDateOfBirth)
	assert.Equal(t, "01/15/1980", *got.PatientDateOfBirth)
	assert.Equal(t, constants.OrderStatusPending, got.Status)
	require.NotNil(t, got.ConfidenceScore)
	assert.InDelta(t, 0.9, *got.ConfidenceScore, 1e-9)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Nil(t, got.TotalAmount)
	assert.Nil(t, got.Notes)
	assert.Nil(t, got.UpdatedAt)

	byNumber, err := repo.GetByNumber(ctx, "DOC-AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byNumber.ID)
}

func TestOrderGetMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db, testLogger())

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.GetByNumber(context.Background(), "DOC-NOPE")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestOrderListFiltersAndPaginates(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db, testLogger())
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		status    constants.OrderStatus
		orderType string
	}{
		{constants.OrderStatusPending, constants.DefaultOrderType},
		{constants.OrderStatusPending, constants.DefaultOrderType},
		{constants.OrderStatusNeedsReview, constants.DefaultOrderType},
		{constants.OrderStatusCompleted, "Lab Report"},
	}
	for i, s := range seed {
		require.NoError(t, repo.Create(ctx, &entity.Order{
			OrderNumber: fmt.Sprintf("DOC-%08d", i),
			OrderType:   s.orderType,
			Status:      s.status,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, total, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, all, 4)
	assert.Equal(t, "DOC-00000003", all[0].OrderNumber, "newest first")

	pending, total, err := repo.List(ctx, ListFilter{Status: string(constants.OrderStatusPending)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, pending, 2)

	lab, total, err := repo.List(ctx, ListFilter{OrderType: "Lab Report"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, lab, 1)
	assert.Equal(t, "DOC-00000003", lab[0].OrderNumber)

	page, total, err := repo.List(ctx, ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total, "total ignores pagination")
	require.Len(t, page, 2)
	assert.Equal(t, "DOC-00000001", page[0].OrderNumber)
}

func TestOrderListBetween(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db, testLogger())
	ctx := context.Background()

	for day := 1; day <= 3; day++ {
		require.NoError(t, repo.Create(ctx, &entity.Order{
			OrderNumber: fmt.Sprintf("DOC-DAY%05d", day),
			OrderType:   constants.DefaultOrderType,
			Status:      constants.OrderStatusPending,
			CreatedAt:   time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC),
		}))
	}

	from := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	got, err := repo.ListBetween(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, got, 1, "from is inclusive, to is exclusive")
	assert.Equal(t, "DOC-DAY00002", got[0].OrderNumber)
}

func TestOrderUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db, testLogger())
	ctx := context.Background()

	o := &entity.Order{
		OrderNumber: "DOC-STATUS01",
		OrderType:   constants.DefaultOrderType,
		Status:      constants.OrderStatusPending,
	}
	require.NoError(t, repo.Create(ctx, o))

	require.NoError(t, repo.UpdateStatus(ctx, o.ID, constants.OrderStatusNeedsReview))
	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusNeedsReview, got.Status)
	assert.NotNil(t, got.UpdatedAt)

	err = repo.UpdateStatus(ctx, uuid.New(), constants.OrderStatusCompleted)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
