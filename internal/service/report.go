package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
	"github.com/Skotchmaster/handmade_shop/internal/util"
)

type ReportService struct {
	Repo *repo.GormRepo
}

type OrderStats struct {
	TotalOrders  int64           `json:"total_orders"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type RevenuePoint struct {
	Period  string          `json:"period"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int64           `json:"orders"`
}

type PaymentStats struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalPayments int64           `json:"total_payments"`
}

func (s *ReportService) OrderStats(ctx context.Context, from, to *time.Time, paid *bool) (*OrderStats, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	orders, err := s.Repo.OrderAmounts(ctx, repo.OrderFilter{From: from, To: to, IsPaid: paid})
	if err != nil {
		return nil, err
	}
	out := &OrderStats{TotalRevenue: decimal.Zero}
	for _, o := range orders {
		out.TotalOrders++
		out.TotalRevenue = out.TotalRevenue.Add(o.TotalAmount)
	}
	return out, nil
}

// DailyRevenue buckets paid orders by the UTC day they were placed.
func (s *ReportService) DailyRevenue(ctx context.Context, from, to *time.Time) ([]RevenuePoint, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	orders, err := s.Repo.PaidOrders(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return bucket(orders, func(t time.Time) string { return t.UTC().Format(util.DayLayout) }), nil
}

func (s *ReportService) MonthlyRevenue(ctx context.Context, year int) ([]RevenuePoint, error) {
	if year < 2000 || year > 9999 {
		return nil, fmt.Errorf("%w: invalid year %d", ErrValidation, year)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0).Add(-time.Millisecond)
	orders, err := s.Repo.PaidOrders(ctx, &from, &to)
	if err != nil {
		return nil, err
	}
	return bucket(orders, func(t time.Time) string { return t.UTC().Format("2006-01") }), nil
}

func (s *ReportService) PaymentStats(ctx context.Context, from, to *time.Time) (*PaymentStats, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	totals, err := s.Repo.CompletedPaymentTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &PaymentStats{
		TotalRevenue:  totals.TotalRevenue.Round(2),
		TotalPayments: totals.TotalPayments,
	}, nil
}

type PaymentQuery struct {
	From   *time.Time
	To     *time.Time
	Method string
	Status string
	Page   int
	Size   int
}

func (s *ReportService) ListPayments(ctx context.Context, q PaymentQuery) ([]models.Payment, util.Meta, error) {
	if err := checkRange(q.From, q.To); err != nil {
		return nil, util.Meta{}, err
	}
	f := repo.PaymentFilter{From: q.From, To: q.To}
	if q.Method != "" {
		m, ok := models.ParsePaymentMethod(q.Method)
		if !ok {
			return nil, util.Meta{}, fmt.Errorf("%w: unknown payment method %q", ErrValidation, q.Method)
		}
		f.Method = &m
	}
	if q.Status != "" {
		st := models.PaymentStatus(q.Status)
		if !st.Valid() {
			return nil, util.Meta{}, fmt.Errorf("%w: unknown payment status %q", ErrValidation, q.Status)
		}
		f.Status = &st
	}
	f.Offset, f.Limit = util.Calculate(q.Page, q.Size)
	items, total, err := s.Repo.ListPayments(ctx, f)
	if err != nil {
		return nil, util.Meta{}, err
	}
	return items, util.NewMeta(q.Page, f.Limit, total), nil
}

func bucket(orders []models.Order, key func(time.Time) string) []RevenuePoint {
	out := []RevenuePoint{}
	idx := map[string]int{}
	for _, o := range orders {
		k := key(o.CreatedAt)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, RevenuePoint{Period: k, Revenue: decimal.Zero})
		}
		out[i].Revenue = out[i].Revenue.Add(o.TotalAmount)
		out[i].Orders++
	}
	return out
}

func checkRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return fmt.Errorf("%w: from must not be after to", ErrValidation)
	}
	return nil
}
