// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvk/salesd/order"
	"github.com/bvkgo/kv"
	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"
)

// OrderNotice is published on the in-process topic whenever an order
// reaches a terminal-ish milestone. The telegram forwarder and tests
// subscribe to it.
type OrderNotice struct {
	// Kind is order_submitted, order_paid, order_cancelled or
	// reservations_expired.
	Kind string

	OrderID string
	Status  string
	Total   decimal.Decimal

	At time.Time
}

func (s *Server) publishNotice(kind string, o *gobs.Order) {
	notice := &OrderNotice{
		Kind: kind,
		At:   time.Now().UTC(),
	}
	if o != nil {
		notice.OrderID = o.ID
		notice.Status = o.Status
		notice.Total = o.TotalAmount
	}
	s.noticeTopic.Send(notice)
}

// notifyPaidOrder loads the order to publish a paid notice with its total.
// Used by the webhook path where only the payment row is at hand.
func (s *Server) notifyPaidOrder(ctx context.Context, orderID string) {
	var o *gobs.Order
	load := func(ctx context.Context, rd kv.Reader) error {
		v, err := order.Get(ctx, rd, orderID)
		if err != nil {
			return err
		}
		o = v
		return nil
	}
	if err := kv.WithReader(ctx, s.db, load); err != nil {
		slog.Warn("could not load order for paid notice (ignored)", "order", orderID, "err", err)
		return
	}
	s.publishNotice("order_paid", o)
}

// Notices subscribes to order notices. The caller owns the receiver.
func (s *Server) Notices() (*topic.Receiver[*OrderNotice], error) {
	return topic.Subscribe(s.noticeTopic, 16, false)
}

// startTelegram wires the notice topic to telegram messages and registers
// the sales summary command.
func (s *Server) startTelegram(ctx context.Context) error {
	recv, err := s.Notices()
	if err != nil {
		return err
	}
	s.cg.Go(func(ctx context.Context) {
		defer recv.Close()
		stopf := context.AfterFunc(ctx, recv.Close)
		defer stopf()

		for ctx.Err() == nil {
			notice, err := recv.Receive()
			if err != nil {
				return
			}
			text := noticeText(notice)
			if len(text) == 0 {
				continue
			}
			if err := s.telegramClient.SendMessage(ctx, notice.At, text); err != nil {
				slog.Warn("could not send telegram notification (ignored)", "err", err)
			}
		}
	})

	return s.telegramClient.AddCommand(ctx, "sales", "Prints sales totals for today and lifetime", s.salesTelegramCmd)
}

func noticeText(n *OrderNotice) string {
	switch n.Kind {
	case "order_submitted":
		return fmt.Sprintf("order %s submitted for %s", n.OrderID, n.Total.StringFixed(2))
	case "order_paid":
		return fmt.Sprintf("order %s paid: %s", n.OrderID, n.Total.StringFixed(2))
	case "order_cancelled":
		return fmt.Sprintf("order %s cancelled", n.OrderID)
	}
	return ""
}

func (s *Server) salesTelegramCmd(ctx context.Context, args []string) (string, error) {
	now := time.Now()
	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	var todayCount, totalCount int
	var todaySum, totalSum decimal.Decimal
	scan := func(ctx context.Context, rd kv.Reader) error {
		begin, end := kvutil.PathRange(order.Keyspace)
		return kvutil.Ascend(ctx, rd, begin, end, func(_ context.Context, _ kv.Reader, _ string, o *gobs.Order) error {
			if o.Status != "paid" {
				return nil
			}
			totalCount++
			totalSum = totalSum.Add(o.TotalAmount)
			if o.PaidAt.After(midnight) {
				todayCount++
				todaySum = todaySum.Add(o.TotalAmount)
			}
			return nil
		})
	}
	if err := kv.WithReader(ctx, s.db, scan); err != nil {
		return "", err
	}
	return fmt.Sprintf("Today: %d orders, %s\nLifetime: %d orders, %s",
		todayCount, todaySum.StringFixed(2), totalCount, totalSum.StringFixed(2)), nil
}
