package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type principalRequest struct {
	Address string `json:"address" validate:"required,eth_addr"`
}

type addStoreRequest struct {
	Name        string `json:"name"        validate:"required,max=256"`
	Description string `json:"description" validate:"max=4096"`
}

type addItemRequest struct {
	Name        string `json:"name"        validate:"required,max=256"`
	Description string `json:"description" validate:"max=4096"`
	// Price in the smallest currency unit, as a base-10 string.
	Price string `json:"price" validate:"required,number"`
	// Image is an optional 0x-prefixed 32-byte content hash.
	Image string `json:"image" validate:"omitempty,len=66"`
	Stock uint64 `json:"stock"`
}

type restockRequest struct {
	Amount uint64 `json:"amount" validate:"required,gt=0"`
}

type changePriceRequest struct {
	Price string `json:"price" validate:"required,number"`
}

type purchaseRequest struct {
	StoreOwner string `json:"store_owner" validate:"required,eth_addr"`
	StoreID    string `json:"store_id"    validate:"required,len=66"`
	ItemID     string `json:"item_id"     validate:"required,len=66"`
	Payment    string `json:"payment"     validate:"required,number"`
}

// --- Response types ---

type idResponse struct {
	ID string `json:"id"`
}

type idListResponse struct {
	IDs []string `json:"ids"`
}

type rolesResponse struct {
	Address    string `json:"address"`
	Owner      bool   `json:"owner"`
	Admin      bool   `json:"admin"`
	StoreOwner bool   `json:"store_owner"`
}

type storeResponse struct {
	ID          string   `json:"id"`
	Owner       string   `json:"owner"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Index       uint64   `json:"index"`
	Active      bool     `json:"active"`
	ItemIDs     []string `json:"item_ids"`
}

type itemResponse struct {
	ID          string `json:"id"`
	StoreID     string `json:"store_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Price       string `json:"price"`
	Stock       uint64 `json:"stock"`
	Index       uint64 `json:"index"`
	Active      bool   `json:"active"`
}

type balanceResponse struct {
	Owner   string `json:"owner"`
	Balance string `json:"balance"`
}

type withdrawalResponse struct {
	Amount string `json:"amount"`
}

type payoutResponse struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	RequestedAt string `json:"requested_at"`
}
