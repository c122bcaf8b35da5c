package core

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const ctxKeyUploadID contextKey = "upload_id"

// ContextWithUploadID tags ctx with the id of the running ingestion. Stores
// use it to stamp inserted rows.
func ContextWithUploadID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKeyUploadID, id)
}

// UploadIDFromContext returns the ingestion id, or uuid.Nil outside one.
func UploadIDFromContext(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(ctxKeyUploadID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}
