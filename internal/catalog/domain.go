package catalog

// Item is a locally mirrored catalog entry. The mirror is replaced wholesale
// on each pull, so an item has no identity across syncs beyond its code.
type Item struct {
	ItemCode      string  `json:"item_code" db:"item_code"`
	ItemName      string  `json:"item_name" db:"item_name"`
	Description   string  `json:"description" db:"description"`
	StandardRate  float64 `json:"standard_rate" db:"standard_rate"`
	CurrentStock  int     `json:"current_stock" db:"current_stock"`
	Barcode       *string `json:"barcode,omitempty" db:"barcode"`
	ItemGroup     *string `json:"item_group,omitempty" db:"item_group"`
	ScaleItemCode *string `json:"scale_item_code,omitempty" db:"scale_item_code"`
}

// PaymentMethod mirrors a mode of payment configured on the ERP side.
type PaymentMethod struct {
	Name string `json:"name" db:"name"`
	Kind string `json:"kind" db:"kind"`
}

// TaxTemplate mirrors a sales tax template.
type TaxTemplate struct {
	Name string  `json:"name" db:"name"`
	Rate float64 `json:"rate" db:"rate"`
}

// PriceList mirrors a selling price list.
type PriceList struct {
	Name     string `json:"name" db:"name"`
	Currency string `json:"currency" db:"currency"`
}

// SearchItemsRequest filters the item mirror.
type SearchItemsRequest struct {
	Query  string `json:"query" validate:"omitempty,max=100"`
	Group  string `json:"group" validate:"omitempty,max=100"`
	Limit  int    `json:"limit" validate:"gte=0,lte=500"`
	Offset int    `json:"offset" validate:"gte=0"`
}
