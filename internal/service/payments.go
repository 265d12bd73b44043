package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/events"
	"upendo/backend/internal/store"
	"upendo/backend/internal/xid"
)

var minimumPayment = decimal.RequireFromString("0.01")

// RecordPayment stores a completed payment against a sale and recomputes the
// sale's payment status from all of its completed payments.
func (s *Service) RecordPayment(ctx context.Context, saleID string, req domain.PaymentRequest) (domain.PaymentResult, error) {
	actor, err := s.authorizeAny(ctx, domain.PermProcessSales, domain.PermManageFinance)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	normalized, err := normalizePayment(req)
	if err != nil {
		return domain.PaymentResult{}, err
	}

	var result domain.PaymentResult
	err = s.withLock(ctx, "sale:"+saleID, func() error {
		return s.inTx(ctx, "record payment", func(tx store.Tx) error {
			sale, err := tx.GetSaleForUpdate(ctx, saleID)
			if err != nil {
				return readErr("load sale", err, domain.ErrSaleNotFound, saleID)
			}
			now := s.now()
			payment, err := s.insertPayment(ctx, tx, sale.ID, normalized, now)
			if err != nil {
				return err
			}
			status, err := s.derivedStatus(ctx, tx, sale.ID, sale.TotalAmount)
			if err != nil {
				return err
			}
			if err := tx.SetSalePaymentStatus(ctx, sale.ID, status, now); err != nil {
				return fmt.Errorf("set sale payment status: %w", err)
			}
			sale.PaymentStatus = status
			sale.UpdatedAt = now
			result = domain.PaymentResult{Payment: payment, Sale: *sale}
			return nil
		})
	})
	if err != nil {
		return domain.PaymentResult{}, err
	}

	s.log.Info("payment recorded",
		zap.String("sale_id", saleID),
		zap.String("payment_id", result.Payment.ID),
		zap.String("method", result.Payment.Method),
		zap.String("amount", result.Payment.Amount.StringFixed(2)),
		zap.String("sale_status", result.Sale.PaymentStatus),
		zap.String("actor", actor.Username),
	)
	s.publish(ctx, events.Event{
		Kind:     events.PaymentRecorded,
		EntityID: result.Payment.ID,
		Labels:   map[string]string{"method": result.Payment.Method, "sale_status": result.Sale.PaymentStatus},
	})
	return result, nil
}

// UpdatePaymentStatus changes the status of one payment record and derives
// the owning sale's status again.
func (s *Service) UpdatePaymentStatus(ctx context.Context, paymentID string, status string) (domain.PaymentResult, error) {
	actor, err := s.authorize(ctx, domain.PermManageFinance)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !domain.IsPaymentRecordStatus(status) {
		return domain.PaymentResult{}, domain.Invalid("status", fmt.Sprintf("unsupported status %q", status))
	}

	current, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return domain.PaymentResult{}, readErr("load payment", err, domain.ErrPaymentNotFound, paymentID)
	}

	var result domain.PaymentResult
	err = s.withLock(ctx, "sale:"+current.SaleID, func() error {
		return s.inTx(ctx, "update payment status", func(tx store.Tx) error {
			payment, err := tx.GetPaymentForUpdate(ctx, paymentID)
			if err != nil {
				return readErr("load payment", err, domain.ErrPaymentNotFound, paymentID)
			}
			sale, err := tx.GetSaleForUpdate(ctx, payment.SaleID)
			if err != nil {
				return readErr("load sale", err, domain.ErrSaleNotFound, payment.SaleID)
			}
			now := s.now()
			if err := tx.UpdatePaymentStatus(ctx, payment.ID, status, now); err != nil {
				return fmt.Errorf("update payment status: %w", err)
			}
			payment.Status = status
			payment.UpdatedAt = now

			saleStatus, err := s.derivedStatus(ctx, tx, sale.ID, sale.TotalAmount)
			if err != nil {
				return err
			}
			if err := tx.SetSalePaymentStatus(ctx, sale.ID, saleStatus, now); err != nil {
				return fmt.Errorf("set sale payment status: %w", err)
			}
			sale.PaymentStatus = saleStatus
			sale.UpdatedAt = now
			result = domain.PaymentResult{Payment: *payment, Sale: *sale}
			return nil
		})
	})
	if err != nil {
		return domain.PaymentResult{}, err
	}

	s.log.Info("payment status changed",
		zap.String("payment_id", paymentID),
		zap.String("status", status),
		zap.String("sale_status", result.Sale.PaymentStatus),
		zap.String("actor", actor.Username),
	)
	s.publish(ctx, events.Event{
		Kind:     events.PaymentStatusChanged,
		EntityID: paymentID,
		Labels:   map[string]string{"method": result.Payment.Method, "sale_status": result.Sale.PaymentStatus},
	})
	return result, nil
}

func (s *Service) ListPayments(ctx context.Context, saleID string) ([]domain.Payment, error) {
	if _, err := s.GetSale(ctx, saleID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, saleID)
	if err != nil {
		return nil, readErr("list payments", err, nil, saleID)
	}
	return payments, nil
}

func (s *Service) insertPayment(ctx context.Context, tx store.Tx, saleID string, req domain.PaymentRequest, now time.Time) (domain.Payment, error) {
	payment := domain.Payment{
		ID:            xid.New("pay"),
		SaleID:        saleID,
		Amount:        req.Amount,
		Method:        req.Method,
		TransactionID: req.TransactionID,
		Status:        domain.PaymentStatusCompleted,
		PaymentDate:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.InsertPayment(ctx, payment); err != nil {
		return domain.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return payment, nil
}

// derivedStatus recomputes a sale's payment status from scratch.
func (s *Service) derivedStatus(ctx context.Context, tx store.Tx, saleID string, total decimal.Decimal) (string, error) {
	payments, err := tx.ListSalePayments(ctx, saleID)
	if err != nil {
		return "", fmt.Errorf("list sale payments: %w", err)
	}
	return domain.DerivePaymentStatus(total, domain.CompletedTotal(payments)), nil
}

func normalizePayment(req domain.PaymentRequest) (domain.PaymentRequest, error) {
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if req.Amount.LessThan(minimumPayment) {
		return req, domain.Invalid("amount", "must be at least 0.01")
	}
	if !domain.IsPaymentMethod(req.Method) {
		return req, domain.Invalid("payment_method", fmt.Sprintf("unsupported method %q", req.Method))
	}
	if domain.RequiresTransactionID(req.Method) && req.TransactionID == "" {
		return req, domain.ErrMissingTransactionID
	}
	if !domain.RequiresTransactionID(req.Method) {
		req.TransactionID = ""
	}
	return req, nil
}

func saleFields(sale domain.Sale, actor domain.Actor) []zap.Field {
	return []zap.Field{
		zap.String("sale_id", sale.ID),
		zap.Int("items", len(sale.Items)),
		zap.String("total", sale.TotalAmount.StringFixed(2)),
		zap.String("payment_status", sale.PaymentStatus),
		zap.String("actor", actor.Username),
	}
}
