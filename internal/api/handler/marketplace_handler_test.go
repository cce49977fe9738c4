package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/marketplace/internal/api/middleware"
	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
	"github.com/99minutos/marketplace/internal/core/service"
)

var (
	ownerAddr    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	adminAddr    = common.HexToAddress("0x0000000000000000000000000000000000000002")
	sellerAddr   = common.HexToAddress("0x0000000000000000000000000000000000000003")
	customerAddr = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

type stubGuard struct {
	claimed    map[string]bool
	released   []string
	releaseErr error
}

func newStubGuard() *stubGuard { return &stubGuard{claimed: map[string]bool{}} }

func (g *stubGuard) Claim(_ context.Context, scope string, caller domain.Principal, key string) (bool, error) {
	k := scope + ":" + caller.Hex() + ":" + key
	if g.claimed[k] {
		return false, nil
	}
	g.claimed[k] = true
	return true, nil
}

func (g *stubGuard) Release(_ context.Context, scope string, caller domain.Principal, key string) error {
	if g.releaseErr != nil {
		return g.releaseErr
	}
	k := scope + ":" + caller.Hex() + ":" + key
	delete(g.claimed, k)
	g.released = append(g.released, key)
	return nil
}

type stubPayoutHistory struct {
	payouts []domain.Payout
}

func (s *stubPayoutHistory) ListByStoreOwner(_ context.Context, owner domain.Principal) ([]domain.Payout, error) {
	var out []domain.Payout
	for _, p := range s.payouts {
		if p.StoreOwner == owner {
			out = append(out, p)
		}
	}
	return out, nil
}

type catalogFixture struct {
	ledger  *service.Ledger
	storeID domain.ID
	itemID  domain.ID
}

// newCatalogFixture builds a ledger with one seller, one store and one item
// priced at 5 with 1 unit in stock.
func newCatalogFixture(t *testing.T) catalogFixture {
	t.Helper()
	ctx := context.Background()
	l := service.NewLedger(ownerAddr, zerolog.Nop())
	if err := l.AddAdmin(ctx, ownerAddr, adminAddr); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if err := l.AddStoreOwner(ctx, adminAddr, sellerAddr); err != nil {
		t.Fatalf("add store owner: %v", err)
	}
	storeID, err := l.AddStore(ctx, sellerAddr, "Books", "used books")
	if err != nil {
		t.Fatalf("add store: %v", err)
	}
	itemID, err := l.AddItem(ctx, sellerAddr, ports.AddItemInput{
		StoreID: storeID,
		Name:    "Dune",
		Price:   uint256.NewInt(5),
		Stock:   1,
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	return catalogFixture{ledger: l, storeID: storeID, itemID: itemID}
}

func newContext(method, target, body string, caller domain.Principal) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if caller != domain.ZeroPrincipal {
		c.Set(middleware.CallerKey, caller)
	}
	return c, rec
}

func purchaseBody(f catalogFixture, payment string) string {
	return `{"store_owner":"` + sellerAddr.Hex() + `","store_id":"` + f.storeID.Hex() +
		`","item_id":"` + f.itemID.Hex() + `","payment":"` + payment + `"}`
}

func TestPurchase_Success(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, rec := newContext(http.MethodPost, "/v1/purchases", purchaseBody(f, "5"), customerAddr)
	if err := h.Purchase(c); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if bal := f.ledger.GetBalance(context.Background(), sellerAddr); bal.Uint64() != 5 {
		t.Fatalf("expected seller balance 5, got %s", bal.Dec())
	}
}

func TestPurchase_WrongPayment(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, _ := newContext(http.MethodPost, "/v1/purchases", purchaseBody(f, "4"), customerAddr)
	if err := h.Purchase(c); !errors.Is(err, domain.ErrInvalidPayment) {
		t.Fatalf("expected ErrInvalidPayment, got %v", err)
	}
}

func TestPurchase_IdempotencyKey(t *testing.T) {
	f := newCatalogFixture(t)
	guard := newStubGuard()
	h := NewMarketplaceHandler(f.ledger, guard, nil)

	c, rec := newContext(http.MethodPost, "/v1/purchases", purchaseBody(f, "5"), customerAddr)
	c.Request().Header.Set("Idempotency-Key", "k1")
	if err := h.Purchase(c); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	c, rec = newContext(http.MethodPost, "/v1/purchases", purchaseBody(f, "5"), customerAddr)
	c.Request().Header.Set("Idempotency-Key", "k1")
	if err := h.Purchase(c); err != nil {
		t.Fatalf("replayed purchase: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on replay, got %d", rec.Code)
	}
	if bal := f.ledger.GetBalance(context.Background(), sellerAddr); bal.Uint64() != 5 {
		t.Fatalf("replay must not charge twice, balance %s", bal.Dec())
	}
}

func TestPurchase_FailureReleasesKey(t *testing.T) {
	f := newCatalogFixture(t)
	guard := newStubGuard()
	h := NewMarketplaceHandler(f.ledger, guard, nil)

	c, _ := newContext(http.MethodPost, "/v1/purchases", purchaseBody(f, "7"), customerAddr)
	c.Request().Header.Set("Idempotency-Key", "k2")
	if err := h.Purchase(c); !errors.Is(err, domain.ErrInvalidPayment) {
		t.Fatalf("expected ErrInvalidPayment, got %v", err)
	}
	if len(guard.released) != 1 || guard.released[0] != "k2" {
		t.Fatalf("expected k2 released, got %v", guard.released)
	}

	c, rec := newContext(http.MethodPost, "/v1/purchases", purchaseBody(f, "5"), customerAddr)
	c.Request().Header.Set("Idempotency-Key", "k2")
	if err := h.Purchase(c); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected retry to go through, got %d", rec.Code)
	}
}

func TestPurchase_ReleaseFailureIsLogged(t *testing.T) {
	f := newCatalogFixture(t)
	guard := newStubGuard()
	guard.releaseErr = errors.New("redis unavailable")
	h := NewMarketplaceHandler(f.ledger, guard, nil)

	var logs bytes.Buffer
	c, _ := newContext(http.MethodPost, "/v1/purchases", purchaseBody(f, "7"), customerAddr)
	c.Request().Header.Set("Idempotency-Key", "k3")
	reqLog := zerolog.New(&logs).With().Str("request_id", "req-1").Logger()
	c.SetRequest(c.Request().WithContext(reqLog.WithContext(c.Request().Context())))

	if err := h.Purchase(c); !errors.Is(err, domain.ErrInvalidPayment) {
		t.Fatalf("the purchase error must be returned, got %v", err)
	}
	out := logs.String()
	for _, want := range []string{`"level":"error"`, "redis unavailable", `"request_id":"req-1"`, `"idempotency_key":"k3"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log, got %s", want, out)
		}
	}
}

func TestPurchase_InvalidPayload(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, _ := newContext(http.MethodPost, "/v1/purchases", `{"store_owner":"bob","payment":"5"}`, customerAddr)
	err := h.Purchase(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestPurchase_RequiresCaller(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, _ := newContext(http.MethodPost, "/v1/purchases", purchaseBody(f, "5"), domain.ZeroPrincipal)
	err := h.Purchase(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestGetStore(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, rec := newContext(http.MethodGet, "/", "", customerAddr)
	c.SetParamNames("owner", "store_id")
	c.SetParamValues(sellerAddr.Hex(), f.storeID.Hex())
	if err := h.GetStore(c); err != nil {
		t.Fatalf("get store: %v", err)
	}

	var resp storeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Name != "Books" || !resp.Active || resp.Owner != sellerAddr.Hex() {
		t.Fatalf("unexpected store: %+v", resp)
	}
	if len(resp.ItemIDs) != 1 || resp.ItemIDs[0] != f.itemID.Hex() {
		t.Fatalf("unexpected item ids: %v", resp.ItemIDs)
	}
}

func TestGetItem(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, rec := newContext(http.MethodGet, "/", "", customerAddr)
	c.SetParamNames("owner", "store_id", "item_id")
	c.SetParamValues(sellerAddr.Hex(), f.storeID.Hex(), f.itemID.Hex())
	if err := h.GetItem(c); err != nil {
		t.Fatalf("get item: %v", err)
	}

	var resp itemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Price != "5" || resp.Stock != 1 || resp.Image != "" {
		t.Fatalf("unexpected item: %+v", resp)
	}
}

func TestGetStore_Unknown(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, _ := newContext(http.MethodGet, "/", "", customerAddr)
	c.SetParamNames("owner", "store_id")
	c.SetParamValues(customerAddr.Hex(), f.storeID.Hex())
	if err := h.GetStore(c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetStore_MalformedID(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, _ := newContext(http.MethodGet, "/", "", customerAddr)
	c.SetParamNames("owner", "store_id")
	c.SetParamValues(sellerAddr.Hex(), "0x1234")
	if err := h.GetStore(c); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAddStore_ReturnsID(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, rec := newContext(http.MethodPost, "/v1/stores", `{"name":"Music","description":"vinyl"}`, sellerAddr)
	if err := h.AddStore(c); err != nil {
		t.Fatalf("add store: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp idResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	ids := f.ledger.GetStoreIDList(context.Background(), sellerAddr)
	if len(ids) != 2 || ids[1].Hex() != resp.ID {
		t.Fatalf("expected new store %s listed second, got %v", resp.ID, ids)
	}
}

func TestAddStore_NotStoreOwner(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, _ := newContext(http.MethodPost, "/v1/stores", `{"name":"Music"}`, customerAddr)
	if err := h.AddStore(c); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestRestockAndChangePrice(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)
	params := []string{f.storeID.Hex(), f.itemID.Hex()}

	c, rec := newContext(http.MethodPost, "/", `{"amount":4}`, sellerAddr)
	c.SetParamNames("store_id", "item_id")
	c.SetParamValues(params...)
	if err := h.Restock(c); err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("restock: %v (%d)", err, rec.Code)
	}

	c, rec = newContext(http.MethodPut, "/", `{"price":"9"}`, sellerAddr)
	c.SetParamNames("store_id", "item_id")
	c.SetParamValues(params...)
	if err := h.ChangePrice(c); err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("change price: %v (%d)", err, rec.Code)
	}

	item, err := f.ledger.GetItem(context.Background(), sellerAddr, f.storeID, f.itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Stock != 5 || item.Price.Uint64() != 9 {
		t.Fatalf("expected stock 5 price 9, got %d %s", item.Stock, item.Price.Dec())
	}
}

func TestRestock_ZeroRejected(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, _ := newContext(http.MethodPost, "/", `{"amount":0}`, sellerAddr)
	c.SetParamNames("store_id", "item_id")
	c.SetParamValues(f.storeID.Hex(), f.itemID.Hex())
	var he *echo.HTTPError
	if err := h.Restock(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGetRoles(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, rec := newContext(http.MethodGet, "/", "", customerAddr)
	c.SetParamNames("address")
	c.SetParamValues(sellerAddr.Hex())
	if err := h.GetRoles(c); err != nil {
		t.Fatalf("get roles: %v", err)
	}
	var resp rolesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Owner || resp.Admin || !resp.StoreOwner {
		t.Fatalf("unexpected roles: %+v", resp)
	}
}

func TestAddAdmin_OwnerOnly(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)
	body := `{"address":"` + customerAddr.Hex() + `"}`

	c, _ := newContext(http.MethodPost, "/v1/admins", body, adminAddr)
	if err := h.AddAdmin(c); !errors.Is(err, domain.ErrCallerNotOwner) {
		t.Fatalf("expected ErrCallerNotOwner, got %v", err)
	}

	c, rec := newContext(http.MethodPost, "/v1/admins", body, ownerAddr)
	if err := h.AddAdmin(c); err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("owner add admin: %v (%d)", err, rec.Code)
	}
	if !f.ledger.IsAdmin(customerAddr) {
		t.Fatalf("expected customer to be admin")
	}
}

func TestWithdraw_AndBalance(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)
	ctx := context.Background()

	err := f.ledger.Purchase(ctx, customerAddr, ports.PurchaseInput{
		StoreOwner: sellerAddr,
		StoreID:    f.storeID,
		ItemID:     f.itemID,
		Payment:    uint256.NewInt(5),
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	c, rec := newContext(http.MethodGet, "/", "", customerAddr)
	c.SetParamNames("owner")
	c.SetParamValues(sellerAddr.Hex())
	if err := h.GetBalance(c); err != nil {
		t.Fatalf("get balance: %v", err)
	}
	var bal balanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &bal); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if bal.Balance != "5" {
		t.Fatalf("expected balance 5, got %s", bal.Balance)
	}

	// No payout gateway is configured, so the transfer fails and the
	// balance is restored.
	c, _ = newContext(http.MethodPost, "/v1/withdrawals", "", sellerAddr)
	if err := h.Withdraw(c); err == nil {
		t.Fatalf("expected withdraw error without a payout gateway")
	}
	if got := f.ledger.GetBalance(ctx, sellerAddr); got.Uint64() != 5 {
		t.Fatalf("expected balance restored to 5, got %s", got.Dec())
	}
}

func TestListPayouts(t *testing.T) {
	f := newCatalogFixture(t)
	history := &stubPayoutHistory{payouts: []domain.Payout{
		{ID: "p1", StoreOwner: sellerAddr, Amount: uint256.NewInt(5), RequestedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{ID: "p2", StoreOwner: customerAddr, Amount: uint256.NewInt(1), RequestedAt: time.Now()},
	}}
	h := NewMarketplaceHandler(f.ledger, nil, history)

	c, rec := newContext(http.MethodGet, "/v1/payouts", "", sellerAddr)
	if err := h.ListPayouts(c); err != nil {
		t.Fatalf("list payouts: %v", err)
	}
	var resp []payoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 1 || resp[0].ID != "p1" || resp[0].Amount != "5" || resp[0].RequestedAt != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected payouts: %+v", resp)
	}
}

func TestListPayouts_NoHistory(t *testing.T) {
	f := newCatalogFixture(t)
	h := NewMarketplaceHandler(f.ledger, nil, nil)

	c, rec := newContext(http.MethodGet, "/v1/payouts", "", sellerAddr)
	if err := h.ListPayouts(c); err != nil {
		t.Fatalf("list payouts: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}
