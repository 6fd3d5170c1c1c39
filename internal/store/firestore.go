package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/quantfolio/backend/internal/model"
)

const (
	transactionsCollection = "transactions"
	snapshotsCollection    = "portfolioSnapshots"
	monthlyCollection      = "monthlyCashFlow"
)

// FirestoreStore implements the Store interface using Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{
		client: client,
	}
}

// transactionDoc is the Firestore representation of a transaction. Decimal
// amounts are stored as strings so no precision is lost in the float round
// trip.
type transactionDoc struct {
	ID         string    `firestore:"Id"`
	UserID     string    `firestore:"UserId"`
	Date       time.Time `firestore:"Date"`
	Kind       string    `firestore:"Kind"`
	Amount     string    `firestore:"Amount"`
	Memo       string    `firestore:"Memo"`
	Account    string    `firestore:"Account"`
	AssetName  string    `firestore:"AssetName"`
	AssetClass string    `firestore:"AssetClass"`
	CreatedAt  time.Time `firestore:"CreatedAt"`
}

func toTransactionDoc(txn *model.Transaction) transactionDoc {
	return transactionDoc{
		ID:         txn.ID,
		UserID:     txn.UserID,
		Date:       txn.Date,
		Kind:       string(txn.Kind),
		Amount:     txn.Amount.String(),
		Memo:       txn.Memo,
		Account:    txn.Account,
		AssetName:  txn.AssetName,
		AssetClass: txn.AssetClass,
		CreatedAt:  txn.CreatedAt,
	}
}

func (d transactionDoc) toModel() (*model.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction amount %q: %w", d.Amount, err)
	}
	return &model.Transaction{
		ID:         d.ID,
		UserID:     d.UserID,
		Date:       d.Date,
		Kind:       model.TransactionKind(d.Kind),
		Amount:     amount,
		Memo:       d.Memo,
		Account:    d.Account,
		AssetName:  d.AssetName,
		AssetClass: d.AssetClass,
		CreatedAt:  d.CreatedAt,
	}, nil
}

type snapshotDoc struct {
	ID          string    `firestore:"Id"`
	UserID      string    `firestore:"UserId"`
	Date        time.Time `firestore:"Date"`
	AssetID     string    `firestore:"AssetId"`
	AssetName   string    `firestore:"AssetName"`
	MarketValue string    `firestore:"MarketValue"`
}

func toSnapshotDoc(snap *model.PortfolioSnapshot) snapshotDoc {
	return snapshotDoc{
		ID:          snap.ID,
		UserID:      snap.UserID,
		Date:        snap.Date,
		AssetID:     snap.AssetID,
		AssetName:   snap.AssetName,
		MarketValue: snap.MarketValue.String(),
	}
}

func (d snapshotDoc) toModel() (*model.PortfolioSnapshot, error) {
	value, err := decimal.NewFromString(d.MarketValue)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot value %q: %w", d.MarketValue, err)
	}
	return &model.PortfolioSnapshot{
		ID:          d.ID,
		UserID:      d.UserID,
		Date:        d.Date,
		AssetID:     d.AssetID,
		AssetName:   d.AssetName,
		MarketValue: value,
	}, nil
}

type monthlyDoc struct {
	ID          string             `firestore:"Id"`
	UserID      string             `firestore:"UserId"`
	Month       time.Time          `firestore:"Month"`
	Columns     map[string]float64 `firestore:"Columns"`
	ColumnOrder []string           `firestore:"ColumnOrder"`
}

func (s *FirestoreStore) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	_, err := s.client.Collection(transactionsCollection).Doc(txn.ID).Set(ctx, toTransactionDoc(txn))
	return err
}

func (s *FirestoreStore) ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time) ([]*model.Transaction, error) {
	query := s.client.Collection(transactionsCollection).Query.
		Where("UserId", "==", userID)
	if startDate != nil {
		query = query.Where("Date", ">=", *startDate)
	}
	if endDate != nil {
		query = query.Where("Date", "<=", *endDate)
	}
	query = query.OrderBy("Date", firestore.Asc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*model.Transaction
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list transactions: %w", err)
		}
		var d transactionDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to parse transaction: %w", err)
		}
		txn, err := d.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, nil
}

func (s *FirestoreStore) CreatePortfolioSnapshot(ctx context.Context, snap *model.PortfolioSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	_, err := s.client.Collection(snapshotsCollection).Doc(snap.ID).Set(ctx, toSnapshotDoc(snap))
	return err
}

func (s *FirestoreStore) ListPortfolioSnapshots(ctx context.Context, userID string, startDate, endDate *time.Time) ([]*model.PortfolioSnapshot, error) {
	query := s.client.Collection(snapshotsCollection).Query.
		Where("UserId", "==", userID)
	if startDate != nil {
		query = query.Where("Date", ">=", *startDate)
	}
	if endDate != nil {
		query = query.Where("Date", "<=", *endDate)
	}
	query = query.OrderBy("Date", firestore.Asc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*model.PortfolioSnapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", err)
		}
		var d snapshotDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot: %w", err)
		}
		snap, err := d.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *FirestoreStore) UpsertMonthlyCashFlow(ctx context.Context, row *model.MonthlyCashFlowRow) error {
	if row.UserID == "" {
		return fmt.Errorf("monthly cash-flow row requires a user ID")
	}
	if row.ID == "" {
		row.ID = monthlyRowID(row.UserID, row.Month)
	}
	doc := monthlyDoc{
		ID:          row.ID,
		UserID:      row.UserID,
		Month:       row.Month,
		Columns:     row.Columns,
		ColumnOrder: row.ColumnOrder,
	}
	_, err := s.client.Collection(monthlyCollection).Doc(row.ID).Set(ctx, doc)
	return err
}

func (s *FirestoreStore) ListMonthlyCashFlow(ctx context.Context, userID string) ([]*model.MonthlyCashFlowRow, error) {
	query := s.client.Collection(monthlyCollection).Query.
		Where("UserId", "==", userID).
		OrderBy("Month", firestore.Asc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*model.MonthlyCashFlowRow
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list monthly cash flow: %w", err)
		}
		var d monthlyDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to parse monthly cash flow: %w", err)
		}
		out = append(out, &model.MonthlyCashFlowRow{
			ID:          d.ID,
			UserID:      d.UserID,
			Month:       d.Month,
			Columns:     d.Columns,
			ColumnOrder: d.ColumnOrder,
		})
	}
	return out, nil
}
