package domain

type InventoryRecord struct {
	ProductID         string `json:"product_id"`
	QuantityOnHand    int    `json:"quantity_on_hand"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

func (r InventoryRecord) IsLow() bool {
	return r.QuantityOnHand <= r.LowStockThreshold
}
