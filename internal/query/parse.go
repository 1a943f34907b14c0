package query

import (
	"encoding/json"
	"strings"
)

// ParseFilters decodes a filter JSON array. Empty or malformed input yields
// an empty list.
func ParseFilters(raw string) []Filter {
	var out []Filter
	if !decode(raw, &out) {
		return []Filter{}
	}
	return out
}

// ParseOrders decodes an order JSON array. Empty or malformed input yields
// an empty list.
func ParseOrders(raw string) []Order {
	var out []Order
	if !decode(raw, &out) {
		return []Order{}
	}
	return out
}

func decode(raw string, v any) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

// EncodeFilters renders filters back to their JSON wire form.
func EncodeFilters(filters []Filter) string {
	if len(filters) == 0 {
		return ""
	}
	b, err := json.Marshal(filters)
	if err != nil {
		return ""
	}
	return string(b)
}

// EncodeOrders renders orders back to their JSON wire form.
func EncodeOrders(orders []Order) string {
	if len(orders) == 0 {
		return ""
	}
	b, err := json.Marshal(orders)
	if err != nil {
		return ""
	}
	return string(b)
}
