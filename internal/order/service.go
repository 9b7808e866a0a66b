package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/orderdesk/service/internal/metrics"
	"github.com/orderdesk/service/internal/storage"
)

// DefaultDownloadLinkTTL is how long a signed download link stays valid.
const DefaultDownloadLinkTTL = 5 * time.Minute

// Config tunes the Service.
type Config struct {
	DownloadLinkTTL time.Duration
	// MaxFileBytes rejects larger payloads; zero disables the check.
	MaxFileBytes int64
}

// Service keeps order records and their stored files consistent.
//
// Every file is uploaded before the record that points at it is written, so a
// failure between the two steps can orphan an object but never leave a record
// pointing at a missing one. Superseded and deleted files are not removed from
// the store. The Service holds no locks: concurrent writes to one order are
// last-write-wins at the repository.
type Service struct {
	repo    Repository
	store   storage.Gateway
	cfg     Config
	logger  *log.Entry
	metrics *metrics.OrderMetrics
	now     func() time.Time
}

// NewService creates an order Service. logger and m may be nil.
func NewService(repo Repository, store storage.Gateway, cfg Config, logger *log.Entry, m *metrics.OrderMetrics) *Service {
	if cfg.DownloadLinkTTL <= 0 {
		cfg.DownloadLinkTTL = DefaultDownloadLinkTTL
	}
	if logger == nil {
		logger = log.WithField("component", "order")
	}
	return &Service{
		repo:    repo,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Create uploads file and then persists a new order pointing at it.
func (s *Service) Create(ctx context.Context, customerName string, amount decimal.Decimal, file File) (created Order, err error) {
	done := s.track("create")
	defer func() { done(true, err) }()

	customerName = strings.TrimSpace(customerName)
	if err := validateOrder(customerName, amount); err != nil {
		return Order{}, err
	}
	if err := validateFile(&file, s.cfg.MaxFileBytes); err != nil {
		return Order{}, err
	}

	locator, err := s.upload(ctx, &file)
	if err != nil {
		return Order{}, err
	}

	created, err = s.repo.Save(ctx, Order{
		CustomerName: customerName,
		Amount:       amount,
		FileURL:      locator,
	})
	if err != nil {
		s.logger.WithError(err).WithField("file_url", locator).Warn("order not saved, uploaded file is orphaned")
		return Order{}, fmt.Errorf("%w: save order: %w", ErrRepositoryUnavailable, err)
	}

	s.logger.WithFields(log.Fields{"order_id": created.ID, "file_url": locator}).Info("order created")
	return created, nil
}

// Get returns the order with id. found is false when it does not exist.
func (s *Service) Get(ctx context.Context, id int64) (o Order, found bool, err error) {
	done := s.track("get")
	defer func() { done(found, err) }()

	o, err = s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, fmt.Errorf("%w: find order %d: %w", ErrRepositoryUnavailable, id, err)
	}
	return o, true, nil
}

// List returns a snapshot of all orders.
func (s *Service) List(ctx context.Context) (orders []Order, err error) {
	done := s.track("list")
	defer func() { done(true, err) }()

	orders, err = s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", ErrRepositoryUnavailable, err)
	}
	return orders, nil
}

// Update replaces customerName and amount of the order with id. When file is
// non-empty it is uploaded first and becomes the order's file; the previous
// object is left in the store. found is false when the order does not exist.
func (s *Service) Update(ctx context.Context, id int64, customerName string, amount decimal.Decimal, file *File) (updated Order, found bool, err error) {
	done := s.track("update")
	defer func() { done(found, err) }()

	customerName = strings.TrimSpace(customerName)
	if err := validateOrder(customerName, amount); err != nil {
		return Order{}, false, err
	}
	replaceFile := !file.Empty()
	if replaceFile {
		if err := validateFile(file, s.cfg.MaxFileBytes); err != nil {
			return Order{}, false, err
		}
	}

	current, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, fmt.Errorf("%w: find order %d: %w", ErrRepositoryUnavailable, id, err)
	}

	current.CustomerName = customerName
	current.Amount = amount
	previous := current.FileURL
	if replaceFile {
		locator, err := s.upload(ctx, file)
		if err != nil {
			return Order{}, true, err
		}
		current.FileURL = locator
	}

	updated, err = s.repo.Save(ctx, current)
	if errors.Is(err, ErrOrderNotFound) {
		// Deleted concurrently; the new upload, if any, is orphaned.
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, true, fmt.Errorf("%w: save order %d: %w", ErrRepositoryUnavailable, id, err)
	}

	logger := s.logger.WithField("order_id", id)
	if replaceFile && previous != "" {
		logger = logger.WithField("superseded_file_url", previous)
	}
	logger.Info("order updated")
	return updated, true, nil
}

// Delete removes the order record with id and reports whether it existed.
// The order's file is kept in the store.
func (s *Service) Delete(ctx context.Context, id int64) (deleted bool, err error) {
	done := s.track("delete")
	defer func() { done(deleted, err) }()

	exists, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%w: check order %d: %w", ErrRepositoryUnavailable, id, err)
	}
	if !exists {
		return false, nil
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return false, fmt.Errorf("%w: delete order %d: %w", ErrRepositoryUnavailable, id, err)
	}

	s.logger.WithField("order_id", id).Info("order deleted, file retained")
	return true, nil
}

// GetDownloadLink signs a short-lived URL for the order's file. Unlike Get, a
// missing order is an error: ErrOrderNotFound. An order without a file yields
// ErrNoFileAttached.
func (s *Service) GetDownloadLink(ctx context.Context, id int64) (link DownloadLink, err error) {
	done := s.track("download_link")
	defer func() { done(true, err) }()

	o, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return DownloadLink{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	if err != nil {
		return DownloadLink{}, fmt.Errorf("%w: find order %d: %w", ErrRepositoryUnavailable, id, err)
	}
	if !o.HasFile() {
		return DownloadLink{}, fmt.Errorf("order %d: %w", id, ErrNoFileAttached)
	}

	issuedAt := s.now()
	url, err := s.store.SignedGet(ctx, o.FileURL, s.cfg.DownloadLinkTTL)
	if err != nil {
		return DownloadLink{}, fmt.Errorf("%w: sign order %d file: %w", ErrStoreUnavailable, id, err)
	}
	s.metrics.RecordDownloadLink()

	return DownloadLink{URL: url, ExpiresAt: issuedAt.Add(s.cfg.DownloadLinkTTL)}, nil
}

func (s *Service) upload(ctx context.Context, file *File) (string, error) {
	locator, err := s.store.Put(ctx, file.Name, file.ContentType, file.Data)
	s.metrics.RecordUpload(len(file.Data), err)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return locator, nil
}

// track starts timing op; the returned func records the outcome.
func (s *Service) track(op string) func(found bool, err error) {
	start := time.Now()
	return func(found bool, err error) {
		result := metrics.ResultOK
		switch {
		case errors.Is(err, ErrOrderNotFound):
			result = metrics.ResultNotFound
		case err != nil:
			result = metrics.ResultError
		case !found:
			result = metrics.ResultNotFound
		}
		s.metrics.ObserveOperation(op, result, time.Since(start))
	}
}
