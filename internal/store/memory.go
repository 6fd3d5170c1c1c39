package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantfolio/backend/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for local
// development and tests.
type MemoryStore struct {
	mu sync.RWMutex

	transactions map[string]*model.Transaction
	snapshots    map[string]*model.PortfolioSnapshot
	monthly      map[string]*model.MonthlyCashFlowRow
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]*model.Transaction),
		snapshots:    make(map[string]*model.PortfolioSnapshot),
		monthly:      make(map[string]*model.MonthlyCashFlowRow),
	}
}

func (m *MemoryStore) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	cp := *txn
	m.transactions[txn.ID] = &cp
	return nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Transaction
	for _, txn := range m.transactions {
		if txn.UserID != userID {
			continue
		}
		if !inDateRange(txn.Date, startDate, endDate) {
			continue
		}
		cp := *txn
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (m *MemoryStore) CreatePortfolioSnapshot(ctx context.Context, snap *model.PortfolioSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	cp := *snap
	m.snapshots[snap.ID] = &cp
	return nil
}

func (m *MemoryStore) ListPortfolioSnapshots(ctx context.Context, userID string, startDate, endDate *time.Time) ([]*model.PortfolioSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.PortfolioSnapshot
	for _, snap := range m.snapshots {
		if snap.UserID != userID {
			continue
		}
		if !inDateRange(snap.Date, startDate, endDate) {
			continue
		}
		cp := *snap
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (m *MemoryStore) UpsertMonthlyCashFlow(ctx context.Context, row *model.MonthlyCashFlowRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if row.UserID == "" {
		return fmt.Errorf("monthly cash-flow row requires a user ID")
	}
	if row.ID == "" {
		row.ID = monthlyRowID(row.UserID, row.Month)
	}
	cp := *row
	cp.Columns = make(map[string]float64, len(row.Columns))
	for k, v := range row.Columns {
		cp.Columns[k] = v
	}
	cp.ColumnOrder = append([]string(nil), row.ColumnOrder...)
	m.monthly[row.ID] = &cp
	return nil
}

func (m *MemoryStore) ListMonthlyCashFlow(ctx context.Context, userID string) ([]*model.MonthlyCashFlowRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.MonthlyCashFlowRow
	for _, row := range m.monthly {
		if row.UserID != userID {
			continue
		}
		cp := *row
		cp.Columns = make(map[string]float64, len(row.Columns))
		for k, v := range row.Columns {
			cp.Columns[k] = v
		}
		cp.ColumnOrder = append([]string(nil), row.ColumnOrder...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.Before(out[j].Month)
	})
	return out, nil
}

// monthlyRowID keys monthly rows on user+month so writes for the same month
// replace earlier ones.
func monthlyRowID(userID string, month time.Time) string {
	return fmt.Sprintf("%s:%s", userID, month.Format("2006-01"))
}

func inDateRange(d time.Time, start, end *time.Time) bool {
	if start != nil && d.Before(*start) {
		return false
	}
	if end != nil && d.After(*end) {
		return false
	}
	return true
}
