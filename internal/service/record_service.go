package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/Kosench/go-url-tracker/internal/errors"
	"github.com/Kosench/go-url-tracker/internal/expiry"
	"github.com/Kosench/go-url-tracker/internal/metrics"
	"github.com/Kosench/go-url-tracker/internal/model"
	"github.com/Kosench/go-url-tracker/internal/repository"
	"github.com/Kosench/go-url-tracker/internal/utils"
)

const DefaultMaxRetries = 5

type RecordService struct {
	repo       repository.RecordRepository
	calc       *expiry.Calculator
	clock      expiry.Clock
	log        *zap.Logger
	metrics    *metrics.Metrics
	maxRetries int
}

type Option func(*RecordService)

// WithMaxRetries bounds how many times an insert is retried after losing
// an ID or URL race.
func WithMaxRetries(n int) Option {
	return func(s *RecordService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *RecordService) {
		s.metrics = m
	}
}

func NewRecordService(repo repository.RecordRepository, calc *expiry.Calculator, clock expiry.Clock, log *zap.Logger, opts ...Option) *RecordService {
	if clock == nil {
		clock = expiry.RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &RecordService{
		repo:       repo,
		calc:       calc,
		clock:      clock,
		log:        log,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register stores req.URL under the lowest free ID, or reports the ID it
// already has. An existing record is never modified.
func (s *RecordService) Register(ctx context.Context, req *model.SaveRecordRequest) (*model.RegisterResult, error) {
	url := req.URL
	if err := validateFields(0, url, req.ActiveStatus); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByURL(ctx, url)
	switch {
	case err == nil:
		s.metrics.RecordRegistration("existing")
		return &model.RegisterResult{Exists: true, ID: existing.ID}, nil
	case !errors.Is(err, apperrors.ErrRecordNotFound):
		return nil, storeError("failed to look up URL", err)
	}

	record := s.completeRecord(url, req.InputDateTime, req.ExpireDateTime, req.ActiveStatus)
	return s.insertWithRetry(ctx, record)
}

func (s *RecordService) insertWithRetry(ctx context.Context, record *model.URLRecord) (*model.RegisterResult, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		ids, err := s.repo.ListIDs(ctx)
		if err != nil {
			return nil, storeError("failed to list record IDs", err)
		}
		record.ID = utils.NextFreeID(ids)

		err = s.repo.Insert(ctx, record)
		switch {
		case err == nil:
			s.metrics.RecordRegistration("created")
			s.log.Info("record registered",
				zap.Int64("id", record.ID),
				zap.String("url", record.URL),
				zap.Time("expire_date_time", record.ExpireDateTime.Time))
			return &model.RegisterResult{ID: record.ID}, nil

		case errors.Is(err, apperrors.ErrIDConflict):
			// Another insert took this ID between ListIDs and Insert.
			s.metrics.RecordAllocationRetry()
			s.log.Debug("id allocation conflict, retrying",
				zap.Int64("id", record.ID),
				zap.Int("attempt", attempt+1))
			continue

		case errors.Is(err, apperrors.ErrURLAlreadyExists):
			winner, lookupErr := s.repo.GetByURL(ctx, record.URL)
			if lookupErr == nil {
				s.metrics.RecordRegistration("existing")
				return &model.RegisterResult{Exists: true, ID: winner.ID}, nil
			}
			if !errors.Is(lookupErr, apperrors.ErrRecordNotFound) {
				return nil, storeError("failed to look up URL", lookupErr)
			}
			// The winner was deleted in the meantime.
			continue

		default:
			return nil, storeError("failed to insert record", err)
		}
	}

	return nil, apperrors.NewAllocationError(s.maxRetries)
}

// Update replaces every field of record id except the id itself.
func (s *RecordService) Update(ctx context.Context, id int64, req *model.UpdateRecordRequest) error {
	if err := utils.ValidateID(id); err != nil {
		return err
	}

	if err := validateFields(id, req.URL, req.ActiveStatus); err != nil {
		return err
	}

	record := s.completeRecord(req.URL, req.InputDateTime, req.ExpireDateTime, req.ActiveStatus)
	record.ID = id

	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, apperrors.ErrRecordNotFound) || errors.Is(err, apperrors.ErrURLAlreadyExists) {
			return err
		}
		return storeError("failed to update record", err)
	}
	return nil
}

func (s *RecordService) Delete(ctx context.Context, id int64) error {
	if err := utils.ValidateID(id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrRecordNotFound) {
			return err
		}
		return storeError("failed to delete record", err)
	}

	s.log.Info("record deleted", zap.Int64("id", id))
	return nil
}

// ListAll returns every record. A store failure is logged and yields an
// empty list instead of an error.
func (s *RecordService) ListAll(ctx context.Context) []model.URLRecord {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		s.log.Error("failed to list records", zap.Error(err))
		return []model.URLRecord{}
	}
	if records == nil {
		return []model.URLRecord{}
	}
	return records
}

// ListExpired is ListAll filtered to inactive records.
func (s *RecordService) ListExpired(ctx context.Context) []model.URLRecord {
	records := s.ListAll(ctx)

	expired := make([]model.URLRecord, 0, len(records))
	for _, record := range records {
		if !record.ActiveStatus.IsActive() {
			expired = append(expired, record)
		}
	}
	return expired
}

// BulkUpdateStatus writes only the status of each listed record. Unknown
// IDs are skipped.
func (s *RecordService) BulkUpdateStatus(ctx context.Context, updates []model.StatusUpdate) error {
	if err := utils.ValidateStatusUpdates(updates); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	changed, err := s.repo.BatchUpdateStatus(ctx, updates)
	if err != nil {
		return storeError("failed to update active status", err)
	}

	s.log.Info("active status updated",
		zap.Int("requested", len(updates)),
		zap.Int64("changed", changed))
	return nil
}

// SubmitEmbed extracts the src URL from an iframe snippet, stamps it with
// the current time and registers it.
func (s *RecordService) SubmitEmbed(ctx context.Context, embedCode string) (*model.SubmitResult, error) {
	url, err := utils.ExtractURL(embedCode)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	expire := s.calc.ExpireAt(now)
	req := &model.SaveRecordRequest{
		URL:            url,
		InputDateTime:  model.NewTimestamp(now),
		ExpireDateTime: model.NewTimestamp(expire),
		ActiveStatus:   expiry.StatusAt(now, expire),
	}

	result, err := s.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.GetByID(ctx, result.ID)
	if err != nil {
		// The registration itself succeeded.
		s.log.Warn("failed to read back submitted record", zap.Int64("id", result.ID), zap.Error(err))
	}

	return &model.SubmitResult{RegisterResult: *result, Record: record}, nil
}

// completeRecord fills timestamps the client left out. Missing expiry is
// derived from the input time and then also decides the status.
func (s *RecordService) completeRecord(url string, input, expire model.Timestamp, status model.ActiveStatus) *model.URLRecord {
	if input.IsZero() {
		input = model.NewTimestamp(s.clock.Now())
	}
	if expire.IsZero() {
		expire = model.NewTimestamp(s.calc.ExpireAt(input.Time))
		status = expiry.StatusAt(s.clock.Now(), expire.Time)
	}

	return &model.URLRecord{
		URL:            url,
		InputDateTime:  input,
		ExpireDateTime: expire,
		ActiveStatus:   status,
	}
}

// validateFields checks what every full-record write carries. The url is
// kept byte for byte.
func validateFields(id int64, url string, status model.ActiveStatus) error {
	if err := utils.ValidateURL(url); err != nil {
		return err
	}
	return utils.ValidateStatus(id, status)
}

// storeError keeps an existing BusinessError and wraps anything else.
func storeError(message string, err error) error {
	if apperrors.GetBusinessError(err) != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", message, err)
	}
	return apperrors.NewStoreError(message, err)
}
