package payment

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/cache"
	"github.com/trezcool/coachdesk/core/listing"
)

var ErrNotFound = errors.New("payment not found")

var dependents = []string{cache.Payments, cache.Dashboard}

type (
	Repository interface {
		// QueryAllPayments returns the payments, latest payment date first, with the student name.
		QueryAllPayments(ctx context.Context) ([]Payment, error)
		QueryPaymentsByStudentID(ctx context.Context, studentID string) ([]Payment, error)
		GetPaymentByID(ctx context.Context, id string) (Payment, error)
		CreatePayment(ctx context.Context, np NewPayment) (Payment, error)
	}

	Service struct {
		repo    Repository
		cache   *cache.QueryCache
		mailSvc core.EmailService
		memo    *listing.Memo[Payment]
	}
)

func NewService(repo Repository, qc *cache.QueryCache, mailSvc core.EmailService) *Service {
	return &Service{
		repo:    repo,
		cache:   qc,
		mailSvc: mailSvc,
		memo:    listing.NewMemo[Payment](),
	}
}

// Query returns the payments matching search (see listing.Filter) and their total amount.
func (svc *Service) Query(ctx context.Context, search string) ([]Payment, float64, error) {
	payments, ver, err := cache.Fetch(ctx, svc.cache, cache.Payments, nil, svc.repo.QueryAllPayments)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying payments")
	}
	filtered := svc.memo.Filter(ver, payments, search)
	return filtered, Total(filtered), nil
}

func (svc *Service) QueryByStudentID(ctx context.Context, studentID string) ([]Payment, error) {
	payments, _, err := cache.Fetch(ctx, svc.cache, cache.Payments, []interface{}{"student", studentID}, func(ctx context.Context) ([]Payment, error) {
		return svc.repo.QueryPaymentsByStudentID(ctx, studentID)
	})
	return payments, errors.Wrap(err, "querying student payments")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Payment, error) {
	p, _, err := cache.Fetch(ctx, svc.cache, cache.Payments, []interface{}{"id", id}, func(ctx context.Context) (Payment, error) {
		return svc.repo.GetPaymentByID(ctx, id)
	})
	return p, errors.Wrap(err, "getting payment")
}

func (svc *Service) Create(ctx context.Context, np NewPayment) (Payment, error) {
	p, err := svc.repo.CreatePayment(ctx, np)
	if err != nil {
		return Payment{}, errors.Wrap(err, "creating payment")
	}
	svc.cache.Invalidate(ctx, dependents...)
	return p, nil
}

// SendReceipt emails the receipt of payment id.
func (svc *Service) SendReceipt(ctx context.Context, id string, to mail.Address) (Payment, error) {
	p, err := svc.GetByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	msg, err := NewReceipt(p, to)
	if err != nil {
		return Payment{}, err
	}
	svc.mailSvc.SendMessages(msg)
	return p, nil
}
