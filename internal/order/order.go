// Package order manages orders and the single uploaded file each order owns.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is an order record. FileURL is the locator of the order's file in the
// object store, or empty if no file was ever attached.
type Order struct {
	ID           int64
	CustomerName string
	Amount       decimal.Decimal
	FileURL      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasFile reports whether a file locator is set.
func (o Order) HasFile() bool {
	return o.FileURL != ""
}

// File is an uploaded payload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Empty reports whether the file carries no bytes.
func (f *File) Empty() bool {
	return f == nil || len(f.Data) == 0
}

// DownloadLink is a signed, time-limited URL to an order's file.
type DownloadLink struct {
	URL       string
	ExpiresAt time.Time
}

// Repository persists order records.
type Repository interface {
	// Save inserts o when o.ID is zero and assigns a new ID; otherwise it
	// replaces the stored record. Returns ErrOrderNotFound if the record to
	// replace is gone.
	Save(ctx context.Context, o Order) (Order, error)
	// FindByID returns ErrOrderNotFound when no record has id.
	FindByID(ctx context.Context, id int64) (Order, error)
	FindAll(ctx context.Context) ([]Order, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	DeleteByID(ctx context.Context, id int64) error
}
