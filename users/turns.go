// Copyright (c) 2025 BVK Chaitanya

package users

import (
	"context"
	"path"
	"time"

	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvkgo/kv"
	"github.com/google/uuid"
)

const TurnKeyspace = "/turns"

func turnKey(id string) string {
	return path.Join(TurnKeyspace, id)
}

// CreateTurn books an appointment slot for the user.
func CreateTurn(ctx context.Context, rw kv.ReadWriter, userID string, scheduledAt time.Time, notes string) (*gobs.Turn, error) {
	if _, err := Get(ctx, rw, userID); err != nil {
		return nil, err
	}
	t := &gobs.Turn{
		ID:          uuid.New().String(),
		UserID:      userID,
		Status:      "scheduled",
		Notes:       notes,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := kvutil.Set(ctx, rw, turnKey(t.ID), t); err != nil {
		return nil, err
	}
	return t, nil
}
