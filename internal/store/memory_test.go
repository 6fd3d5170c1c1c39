package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/backend/internal/model"
)

func date(year int, m time.Month, day int) time.Time {
	return time.Date(year, m, day, 0, 0, 0, 0, time.UTC)
}

func TestMemoryStoreTransactions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	txn := &model.Transaction{
		UserID: "u1",
		Date:   date(2024, time.March, 10),
		Kind:   model.TransactionIncome,
		Amount: decimal.NewFromInt(5000),
	}
	require.NoError(t, s.CreateTransaction(ctx, txn))
	assert.NotEmpty(t, txn.ID)
	assert.False(t, txn.CreatedAt.IsZero())

	require.NoError(t, s.CreateTransaction(ctx, &model.Transaction{
		UserID: "u1",
		Date:   date(2024, time.January, 5),
		Kind:   model.TransactionExpense,
		Amount: decimal.NewFromInt(-300),
	}))
	require.NoError(t, s.CreateTransaction(ctx, &model.Transaction{
		UserID: "u2",
		Date:   date(2024, time.February, 5),
		Kind:   model.TransactionIncome,
		Amount: decimal.NewFromInt(100),
	}))

	got, err := s.ListTransactions(ctx, "u1", nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// sorted ascending by date
	assert.Equal(t, date(2024, time.January, 5), got[0].Date)
	assert.Equal(t, date(2024, time.March, 10), got[1].Date)
}

func TestMemoryStoreTransactionDateRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, d := range []time.Time{
		date(2024, time.January, 15),
		date(2024, time.February, 15),
		date(2024, time.March, 15),
	} {
		require.NoError(t, s.CreateTransaction(ctx, &model.Transaction{
			UserID: "u1", Date: d, Kind: model.TransactionIncome, Amount: decimal.NewFromInt(1),
		}))
	}

	start := date(2024, time.February, 1)
	end := date(2024, time.February, 28)
	got, err := s.ListTransactions(ctx, "u1", &start, &end)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, date(2024, time.February, 15), got[0].Date)
}

func TestMemoryStoreListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateTransaction(ctx, &model.Transaction{
		UserID: "u1", Date: date(2024, time.January, 1), Kind: model.TransactionIncome,
		Amount: decimal.NewFromInt(10), Memo: "original",
	}))

	got, err := s.ListTransactions(ctx, "u1", nil, nil)
	require.NoError(t, err)
	got[0].Memo = "mutated"

	again, err := s.ListTransactions(ctx, "u1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Memo)
}

func TestMemoryStoreSnapshots(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreatePortfolioSnapshot(ctx, &model.PortfolioSnapshot{
		UserID: "u1", Date: date(2024, time.February, 28), AssetID: "a1",
		MarketValue: decimal.NewFromInt(10500),
	}))
	require.NoError(t, s.CreatePortfolioSnapshot(ctx, &model.PortfolioSnapshot{
		UserID: "u1", Date: date(2024, time.January, 31), AssetID: "a1",
		MarketValue: decimal.NewFromInt(10000),
	}))

	got, err := s.ListPortfolioSnapshots(ctx, "u1", nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, date(2024, time.January, 31), got[0].Date)
	assert.True(t, got[0].MarketValue.Equal(decimal.NewFromInt(10000)))
}

func TestMemoryStoreMonthlyUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	month := date(2024, time.March, 31)

	require.NoError(t, s.UpsertMonthlyCashFlow(ctx, &model.MonthlyCashFlowRow{
		UserID:  "u1",
		Month:   month,
		Columns: map[string]float64{"income": 100},
	}))
	// same user and month replaces the earlier row
	require.NoError(t, s.UpsertMonthlyCashFlow(ctx, &model.MonthlyCashFlowRow{
		UserID:  "u1",
		Month:   month,
		Columns: map[string]float64{"income": 250},
	}))

	got, err := s.ListMonthlyCashFlow(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 250.0, got[0].Columns["income"])
}

func TestMemoryStoreMonthlyRequiresUser(t *testing.T) {
	s := NewMemoryStore()
	err := s.UpsertMonthlyCashFlow(context.Background(), &model.MonthlyCashFlowRow{
		Month:   date(2024, time.March, 31),
		Columns: map[string]float64{"income": 1},
	})
	assert.Error(t, err)
}

func TestMemoryStoreMonthlySortedByMonth(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, m := range []time.Time{
		date(2024, time.March, 31),
		date(2024, time.January, 31),
		date(2024, time.February, 29),
	} {
		require.NoError(t, s.UpsertMonthlyCashFlow(ctx, &model.MonthlyCashFlowRow{
			UserID: "u1", Month: m, Columns: map[string]float64{"income": 1},
		}))
	}

	got, err := s.ListMonthlyCashFlow(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Month.Before(got[1].Month))
	assert.True(t, got[1].Month.Before(got[2].Month))
}
