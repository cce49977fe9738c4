package handler

import (
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketplace/internal/core/domain"
)

func toStoreResponse(s *domain.Store) storeResponse {
	return storeResponse{
		ID:          s.ID.Hex(),
		Owner:       s.Owner.Hex(),
		Name:        s.Name,
		Description: s.Description,
		Index:       s.Index,
		Active:      s.Active,
		ItemIDs:     idStrings(s.ItemIDs),
	}
}

func toItemResponse(i *domain.Item) itemResponse {
	resp := itemResponse{
		ID:          i.ID.Hex(),
		StoreID:     i.StoreID.Hex(),
		Name:        i.Name,
		Description: i.Description,
		Price:       i.Price.Dec(),
		Stock:       i.Stock,
		Index:       i.Index,
		Active:      i.Active,
	}
	if i.Image != ([32]byte{}) {
		resp.Image = hexutil.Encode(i.Image[:])
	}
	return resp
}

func toPayoutResponse(p domain.Payout) payoutResponse {
	return payoutResponse{
		ID:          p.ID,
		Amount:      p.Amount.Dec(),
		RequestedAt: p.RequestedAt.UTC().Format(time.RFC3339),
	}
}

func idStrings(ids []domain.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

// pathPrincipal and pathID parse path parameters; malformed values surface
// as ErrInvalidArgument and render as 400.

func pathPrincipal(c echo.Context, name string) (domain.Principal, error) {
	return domain.ParsePrincipal(c.Param(name))
}

func pathID(c echo.Context, name string) (domain.ID, error) {
	return domain.ParseID(c.Param(name))
}

// parseImage decodes an optional 0x-prefixed 32-byte hash.
func parseImage(s string) ([32]byte, error) {
	var img [32]byte
	if s == "" {
		return img, nil
	}
	id, err := domain.ParseID(s)
	if err != nil {
		return img, err
	}
	copy(img[:], id.Bytes())
	return img, nil
}
