// Copyright (c) 2023 BVK Chaitanya

package db

import (
	"fmt"

	"github.com/bvk/salesd/gobs"
)

func TypeNameValue(typename string) (any, error) {
	var v any
	switch typename {
	case "KeyValue":
		v = new(gobs.KeyValue)
	case "Category":
		v = new(gobs.Category)
	case "Product":
		v = new(gobs.Product)
	case "ProductVariant":
		v = new(gobs.ProductVariant)
	case "User":
		v = new(gobs.User)
	case "UserRefreshSession":
		v = new(gobs.UserRefreshSession)
	case "Turn":
		v = new(gobs.Turn)
	case "Order":
		v = new(gobs.Order)
	case "Discount":
		v = new(gobs.Discount)
	case "Payment":
		v = new(gobs.Payment)
	case "StockReservation":
		v = new(gobs.StockReservation)
	case "WebhookEvent":
		v = new(gobs.WebhookEvent)
	case "TelegramState":
		v = new(gobs.TelegramState)
	default:
		return nil, fmt.Errorf("unsupported type name %q", typename)
	}
	return v, nil
}
