// Copyright (c) 2023 BVK Chaitanya

package gobs

import (
	"fmt"
)

func NewByTypename(typename string) (any, error) {
	var v any
	switch typename {
	case "KeyValue":
		v = new(KeyValue)
	case "NameData":
		v = new(NameData)
	case "Category":
		v = new(Category)
	case "Product":
		v = new(Product)
	case "ProductVariant":
		v = new(ProductVariant)
	case "User":
		v = new(User)
	case "UserRefreshSession":
		v = new(UserRefreshSession)
	case "Turn":
		v = new(Turn)
	case "Order":
		v = new(Order)
	case "Discount":
		v = new(Discount)
	case "Payment":
		v = new(Payment)
	case "StockReservation":
		v = new(StockReservation)
	case "WebhookEvent":
		v = new(WebhookEvent)
	case "TelegramState":
		v = new(TelegramState)
	default:
		return nil, fmt.Errorf("unsupported type name %q", typename)
	}
	return v, nil
}
