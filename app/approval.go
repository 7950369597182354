package app

import (
	"context"
	"strings"
	"time"

	"rubik/internal/errors"
	"rubik/internal/metrics"
	"rubik/internal/pagination"
	"rubik/models"
	"rubik/ports"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
)

// PendingPageSize is the number of accounts per approval queue page
const PendingPageSize = 15

// PendingListRequest carries the raw dashboard query parameters
type PendingListRequest struct {
	Query string
	Sort  string
	Order string
	Page  string
}

// PendingList is one rendered page of the approval queue with the echoed parameters
type PendingList struct {
	Page  pagination.Page[*models.Account]
	Query string
	Sort  string
	Order string
	Stats QueueStats
}

// QueueStats summarizes how long pending accounts have been waiting
type QueueStats struct {
	Pending     int
	OldestHours float64
	MedianHours float64
	MeanHours   float64
}

// ApprovalService backs the staff approval queue
type ApprovalService struct {
	store  ports.IdentityStore
	logger *zap.Logger
	now    func() time.Time
}

// NewApprovalService creates an approval service
func NewApprovalService(store ports.IdentityStore, logger *zap.Logger) *ApprovalService {
	return &ApprovalService{store: store, logger: logger, now: time.Now}
}

func normalizeListRequest(req PendingListRequest) (models.PendingQuery, PendingListRequest) {
	req.Query = strings.TrimSpace(req.Query)
	sort := models.ParsePendingSort(req.Sort)
	req.Sort = string(sort)
	if req.Order != "desc" {
		req.Order = "asc"
	}
	return models.PendingQuery{
		Filter:     req.Query,
		Sort:       sort,
		Descending: req.Order == "desc",
	}, req
}

// List returns the requested page of inactive accounts. Unusable page values resolve
// to the first page and values past the end to the last page.
func (s *ApprovalService) List(ctx context.Context, req PendingListRequest) (*PendingList, error) {
	query, req := normalizeListRequest(req)
	query.Limit = PendingPageSize

	requested := pagination.ParseNumber(req.Page)
	query.Offset = (requested - 1) * PendingPageSize

	accounts, total, err := s.store.Accounts().ListPending(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending accounts")
	}

	paginator := pagination.New(total, PendingPageSize)
	number := paginator.Clamp(req.Page)
	if number != requested {
		query.Offset, _ = paginator.Bounds(number)
		accounts, total, err = s.store.Accounts().ListPending(ctx, query)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list pending accounts")
		}
		paginator = pagination.New(total, PendingPageSize)
	}

	queueStats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &PendingList{
		Page:  pagination.FromSlice(paginator, number, accounts),
		Query: req.Query,
		Sort:  req.Sort,
		Order: req.Order,
		Stats: queueStats,
	}, nil
}

// ListAll returns every pending account matching the filter and ordering, unpaged
func (s *ApprovalService) ListAll(ctx context.Context, req PendingListRequest) ([]*models.Account, error) {
	query, _ := normalizeListRequest(req)
	accounts, _, err := s.store.Accounts().ListPending(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending accounts")
	}
	return accounts, nil
}

// Stats computes wait-time statistics over the whole queue
func (s *ApprovalService) Stats(ctx context.Context) (QueueStats, error) {
	joined, err := s.store.Accounts().PendingJoinTimes(ctx)
	if err != nil {
		return QueueStats{}, errors.Wrap(err, "failed to load queue statistics")
	}

	metrics.PendingAccounts.Set(float64(len(joined)))
	out := QueueStats{Pending: len(joined)}
	if len(joined) == 0 {
		return out, nil
	}

	now := s.now()
	waits := make(stats.Float64Data, len(joined))
	for i, t := range joined {
		waits[i] = now.Sub(t).Hours()
	}

	oldest, _ := waits.Max()
	median, _ := waits.Median()
	mean, _ := waits.Mean()
	out.OldestHours, _ = stats.Round(oldest, 1)
	out.MedianHours, _ = stats.Round(median, 1)
	out.MeanHours, _ = stats.Round(mean, 1)
	return out, nil
}

// Approve activates the account. Approving an already active account succeeds again.
func (s *ApprovalService) Approve(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.store.Accounts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	account.IsActive = true
	if err := SaveAccount(ctx, s.store, account); err != nil {
		return nil, errors.Wrap(err, "failed to approve account")
	}

	metrics.ApprovalActions.WithLabelValues("approve").Inc()
	s.logger.Info("account approved", zap.Int64("account_id", id), zap.String("username", account.Username))
	return account, nil
}

// Reject deletes the account and, through the cascade, its profile
func (s *ApprovalService) Reject(ctx context.Context, id int64) error {
	if err := s.store.Accounts().Delete(ctx, id); err != nil {
		return err
	}

	metrics.ApprovalActions.WithLabelValues("reject").Inc()
	s.logger.Info("account rejected", zap.Int64("account_id", id))
	return nil
}
