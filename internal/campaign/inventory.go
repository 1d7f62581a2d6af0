package campaign

import "github.com/shopspring/decimal"

// Totals is the summed worth and load of a set of inventory entries.
type Totals struct {
	Items  int             `json:"items"`
	Value  decimal.Decimal `json:"value"`
	Weight decimal.Decimal `json:"weight"`
}

// InventoryValue sums value*quantity and weight*quantity. Quantities below one
// count as a single item, matching how the sheet renders them.
func InventoryValue(items []InventoryItem) Totals {
	t := Totals{Value: decimal.Zero, Weight: decimal.Zero}
	for _, it := range items {
		q := it.Quantity
		if q < 1 {
			q = 1
		}
		qty := decimal.NewFromInt(int64(q))
		t.Items += q
		t.Value = t.Value.Add(decimal.NewFromFloat(it.Value).Mul(qty))
		t.Weight = t.Weight.Add(decimal.NewFromFloat(it.Weight).Mul(qty))
	}
	return t
}

// Wealth totals a character's carried inventory plus equipped gear.
func (c Character) Wealth() Totals {
	items := make([]InventoryItem, 0, len(c.Inventory)+len(c.Equipment.Accessories)+3)
	items = append(items, c.Inventory...)
	for _, eq := range []*InventoryItem{c.Equipment.Armor, c.Equipment.Weapon, c.Equipment.Shield} {
		if eq != nil {
			items = append(items, *eq)
		}
	}
	items = append(items, c.Equipment.Accessories...)
	return InventoryValue(items)
}
