package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

const collectionPayouts = "payouts"

// PayoutRepository implements ports.PayoutGateway as an outbox: a transfer is
// complete once its record is stored, and a settlement process outside this
// service picks pending records up.
type PayoutRepository struct {
	col *mongo.Collection
	now func() time.Time
}

var _ ports.PayoutGateway = (*PayoutRepository)(nil)

func NewPayoutRepository(db *mongo.Database) *PayoutRepository {
	return &PayoutRepository{
		col: db.Collection(collectionPayouts),
		now: func() time.Time { return time.Now().UTC() },
	}
}

type payoutDoc struct {
	PayoutID    string    `bson:"payout_id"`
	StoreOwner  string    `bson:"store_owner"`
	Amount      string    `bson:"amount"`
	Status      string    `bson:"status"`
	RequestedAt time.Time `bson:"requested_at"`
}

const payoutPending = "pending"

// Transfer records a pending payout of amount to the store owner.
func (r *PayoutRepository) Transfer(ctx context.Context, to domain.Principal, amount *uint256.Int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := payoutDoc{
		PayoutID:    uuid.NewString(),
		StoreOwner:  to.Hex(),
		Amount:      amount.Dec(),
		Status:      payoutPending,
		RequestedAt: r.now(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}
	return nil
}

// ListByStoreOwner returns the payouts recorded for owner, newest first.
func (r *PayoutRepository) ListByStoreOwner(ctx context.Context, owner domain.Principal) ([]domain.Payout, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"store_owner": owner.Hex()},
		optionsSortDesc("requested_at"))
	if err != nil {
		return nil, fmt.Errorf("find payouts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []payoutDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode payouts: %w", err)
	}

	payouts := make([]domain.Payout, 0, len(docs))
	for _, d := range docs {
		amount, err := uint256.FromDecimal(d.Amount)
		if err != nil {
			return nil, fmt.Errorf("payout %s: amount: %w", d.PayoutID, err)
		}
		payouts = append(payouts, domain.Payout{
			ID:          d.PayoutID,
			StoreOwner:  owner,
			Amount:      amount,
			RequestedAt: d.RequestedAt.UTC(),
		})
	}
	return payouts, nil
}

// EnsureIndexes creates necessary indexes on the payouts collection.
func (r *PayoutRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "payout_id", Value: 1}}, Options: uniqueIndex()},
		{Keys: bson.D{{Key: "store_owner", Value: 1}, {Key: "requested_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
