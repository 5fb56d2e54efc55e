package model

// RawListing is one market offer returned by the price API.
type RawListing struct {
	PricePerUnit int64  `json:"pricePerUnit"`
	HighQuality  bool   `json:"hq"`
	SellerName   string `json:"retainerName"`
}

// QualifyingResult pairs an entry with the listing that beat its threshold.
type QualifyingResult struct {
	Entry   *WatchlistEntry `json:"entry"`
	Listing RawListing      `json:"listing"`
}

// RetainerListing is an item the user currently has up for sale.
type RetainerListing struct {
	ItemID      uint32 `json:"item_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Price       int64  `json:"price" validate:"gte=0"`
	HighQuality bool   `json:"hq"`
}
