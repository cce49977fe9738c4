package mongo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

const collectionJournal = "ledger_events"

// JournalRepository implements ports.JournalRepository on the ledger_events
// collection. Events are keyed by seq; amounts and stock are stored as
// decimal strings since they may exceed int64.
type JournalRepository struct {
	col *mongo.Collection
}

var _ ports.JournalRepository = (*JournalRepository)(nil)

func NewJournalRepository(db *mongo.Database) *JournalRepository {
	return &JournalRepository{col: db.Collection(collectionJournal)}
}

type eventDoc struct {
	RecordID    string    `bson:"record_id"`
	Seq         int64     `bson:"seq"`
	Kind        string    `bson:"kind"`
	StoreOwner  string    `bson:"store_owner,omitempty"`
	Admin       string    `bson:"admin,omitempty"`
	Customer    string    `bson:"customer,omitempty"`
	StoreID     string    `bson:"store_id,omitempty"`
	ItemID      string    `bson:"item_id,omitempty"`
	Price       string    `bson:"price,omitempty"`
	Amount      string    `bson:"amount,omitempty"`
	Name        string    `bson:"name,omitempty"`
	Description string    `bson:"description,omitempty"`
	Image       string    `bson:"image,omitempty"`
	Stock       string    `bson:"stock,omitempty"`
	Index       int64     `bson:"index"`
	OccurredAt  time.Time `bson:"occurred_at"`
}

// Append inserts ev unless an event with the same seq is already stored.
func (r *JournalRepository) Append(ctx context.Context, ev domain.ChangeEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toEventDoc(ev)
	doc.RecordID = uuid.NewString()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"seq": doc.Seq},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("journal append seq %d: %w", ev.Seq, err)
	}
	return nil
}

// LoadAll returns the whole journal ordered by seq.
func (r *JournalRepository) LoadAll(ctx context.Context) ([]domain.ChangeEvent, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("journal load: %w", err)
	}
	defer cur.Close(ctx)

	var events []domain.ChangeEvent
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("journal decode: %w", err)
		}
		ev, err := fromEventDoc(doc)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("journal load: %w", err)
	}
	return events, nil
}

// EnsureIndexes creates the unique seq index the upsert in Append relies on.
func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "seq", Value: 1}}, Options: uniqueIndex()},
		{Keys: bson.D{{Key: "store_owner", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "kind", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func toEventDoc(ev domain.ChangeEvent) eventDoc {
	doc := eventDoc{
		Seq:         int64(ev.Seq),
		Kind:        string(ev.Kind),
		StoreOwner:  hexOrEmptyAddr(ev.StoreOwner),
		Admin:       hexOrEmptyAddr(ev.Admin),
		Customer:    hexOrEmptyAddr(ev.Customer),
		StoreID:     hexOrEmptyHash(ev.StoreID),
		ItemID:      hexOrEmptyHash(ev.ItemID),
		Name:        ev.Name,
		Description: ev.Description,
		Index:       int64(ev.Index),
		OccurredAt:  ev.OccurredAt.UTC(),
	}
	if ev.Price != nil {
		doc.Price = ev.Price.Dec()
	}
	if ev.Amount != nil {
		doc.Amount = ev.Amount.Dec()
	}
	if ev.Image != ([32]byte{}) {
		doc.Image = hexutil.Encode(ev.Image[:])
	}
	if ev.Stock != 0 {
		doc.Stock = strconv.FormatUint(ev.Stock, 10)
	}
	return doc
}

func fromEventDoc(doc eventDoc) (domain.ChangeEvent, error) {
	ev := domain.ChangeEvent{
		Seq:         uint64(doc.Seq),
		Kind:        domain.EventKind(doc.Kind),
		StoreOwner:  common.HexToAddress(doc.StoreOwner),
		Admin:       common.HexToAddress(doc.Admin),
		Customer:    common.HexToAddress(doc.Customer),
		StoreID:     common.HexToHash(doc.StoreID),
		ItemID:      common.HexToHash(doc.ItemID),
		Name:        doc.Name,
		Description: doc.Description,
		Index:       uint64(doc.Index),
		OccurredAt:  doc.OccurredAt.UTC(),
	}

	var err error
	if doc.Price != "" {
		if ev.Price, err = uint256.FromDecimal(doc.Price); err != nil {
			return ev, fmt.Errorf("journal seq %d: price: %w", doc.Seq, err)
		}
	}
	if doc.Amount != "" {
		if ev.Amount, err = uint256.FromDecimal(doc.Amount); err != nil {
			return ev, fmt.Errorf("journal seq %d: amount: %w", doc.Seq, err)
		}
	}
	if doc.Image != "" {
		b, err := hexutil.Decode(doc.Image)
		if err != nil || len(b) != len(ev.Image) {
			return ev, fmt.Errorf("journal seq %d: image %q", doc.Seq, doc.Image)
		}
		copy(ev.Image[:], b)
	}
	if doc.Stock != "" {
		if ev.Stock, err = strconv.ParseUint(doc.Stock, 10, 64); err != nil {
			return ev, fmt.Errorf("journal seq %d: stock: %w", doc.Seq, err)
		}
	}
	return ev, nil
}

func hexOrEmptyAddr(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}

func hexOrEmptyHash(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}
