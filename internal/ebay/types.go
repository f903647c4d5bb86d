package ebay

// ItemSummary represents a single item from the eBay Browse API search response.
type ItemSummary struct {
	ItemID        string     `json:"itemId"`
	Title         string     `json:"title"`
	Price         ItemPrice  `json:"price"`
	ItemWebURL    string     `json:"itemWebUrl"`
	Image         *ItemImage `json:"image,omitempty"`
	Condition     string     `json:"condition"`
	ConditionID   string     `json:"conditionId"`
	BuyingOptions []string   `json:"buyingOptions"`
}

// ItemPrice holds eBay price information. Value is a decimal string.
type ItemPrice struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// ItemImage holds eBay image information.
type ItemImage struct {
	ImageURL string `json:"imageUrl"`
}
