package payments

import (
	"context"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/anandkp/shelfwise-backend/internal/orders"
	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/gateway"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
	"github.com/anandkp/shelfwise-backend/pkg/metrics"
)

var phonePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

type gatewayClient interface {
	Initiate(ctx context.Context, req gateway.InitiateRequest) (gateway.InitiateResult, error)
	VerifyCallback(rawBody []byte, signatureHeader string) (gateway.CallbackPayload, error)
}

// Service hands created orders to the payment gateway and reconciles
// asynchronous callbacks against the order ledger.
type Service interface {
	Initiate(ctx context.Context, order *models.Order, payerPhone string) (gateway.InitiateResult, error)
	InitiateByOrderNumber(ctx context.Context, orderNumber string, amount decimal.Decimal, payerPhone string) (gateway.InitiateResult, error)
	HandleCallback(ctx context.Context, rawBody []byte, signatureHeader string) error
}

type service struct {
	gw      gatewayClient
	ledger  orders.Service
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
}

// NewService builds a payment service with the required dependencies.
func NewService(gw gatewayClient, ledger orders.Service, logg *logger.Logger, m *metrics.CheckoutMetrics) (Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{gw: gw, ledger: ledger, logg: logg, metrics: m}, nil
}

// Initiate sends the order total to the gateway and returns the
// redirect URL. The amount comes straight from the ledger's integer
// components; it is never re-derived from a floating total.
func (s *service) Initiate(ctx context.Context, order *models.Order, payerPhone string) (gateway.InitiateResult, error) {
	if order == nil {
		return gateway.InitiateResult{}, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if order.PaymentMethod != enums.PaymentMethodPrepaid {
		return gateway.InitiateResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a prepaid order")
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return gateway.InitiateResult{}, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment already %s", order.PaymentStatus))
	}
	if !phonePattern.MatchString(payerPhone) {
		return gateway.InitiateResult{}, pkgerrors.New(pkgerrors.CodeValidation, "payer phone must be a 10-digit mobile number")
	}

	result, err := s.gw.Initiate(ctx, gateway.InitiateRequest{
		MerchantTransactionID: order.OrderNumber,
		MerchantUserID:        order.UserID.String(),
		AmountPaise:           order.TotalPaise,
		PayerPhone:            payerPhone,
	})
	if err != nil {
		// The order stays pending_payment; a reconciliation sweep owns
		// expiring it.
		s.logg.Error(s.logg.WithOrderNumber(ctx, order.OrderNumber), "gateway initiate failed", err)
		return gateway.InitiateResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initiating payment")
	}

	s.logg.Info(s.logg.WithOrderNumber(ctx, order.OrderNumber), "payment initiated")
	return result, nil
}

// InitiateByOrderNumber serves the public initiate contract: the caller
// supplies the amount in major units, which must match the ledger total
// exactly once converted to paise.
func (s *service) InitiateByOrderNumber(ctx context.Context, orderNumber string, amount decimal.Decimal, payerPhone string) (gateway.InitiateResult, error) {
	if orderNumber == "" {
		return gateway.InitiateResult{}, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	if !amount.IsPositive() {
		return gateway.InitiateResult{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	paise := amount.Mul(decimal.NewFromInt(100))
	if !paise.IsInteger() {
		return gateway.InitiateResult{}, pkgerrors.New(pkgerrors.CodeValidation, "amount has sub-paise precision")
	}

	order, err := s.ledger.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return gateway.InitiateResult{}, err
	}
	if paise.IntPart() != order.TotalPaise {
		return gateway.InitiateResult{}, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("amount does not match order total (expected %d paise)", order.TotalPaise))
	}

	return s.Initiate(ctx, order, payerPhone)
}

// HandleCallback re-validates the gateway signature, then applies the
// reported outcome to the ledger. Nothing in the payload is trusted
// before the signature check passes.
func (s *service) HandleCallback(ctx context.Context, rawBody []byte, signatureHeader string) error {
	payload, err := s.gw.VerifyCallback(rawBody, signatureHeader)
	if err != nil {
		s.metrics.IncPaymentCallback("rejected")
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "callback verification failed")
	}

	ctx = s.logg.WithOrderNumber(ctx, payload.MerchantTransactionID)

	var status enums.PaymentStatus
	switch payload.State {
	case gateway.StateCompleted:
		status = enums.PaymentStatusCompleted
	case gateway.StateFailed:
		status = enums.PaymentStatusFailed
	case gateway.StatePending:
		s.logg.Info(ctx, "gateway callback still pending, ignoring")
		s.metrics.IncPaymentCallback("pending")
		return nil
	default:
		s.metrics.IncPaymentCallback("rejected")
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown gateway state %q", payload.State))
	}

	order, err := s.ledger.FindByOrderNumber(ctx, payload.MerchantTransactionID)
	if err != nil {
		s.metrics.IncPaymentCallback("rejected")
		return err
	}
	if status == enums.PaymentStatusCompleted && payload.Amount != order.TotalPaise {
		s.metrics.IncPaymentCallback("rejected")
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("callback amount %d does not match order total %d", payload.Amount, order.TotalPaise))
	}

	if _, err := s.ledger.SetPaymentStatus(ctx, payload.MerchantTransactionID, status, payload.TransactionID); err != nil {
		return err
	}

	s.metrics.IncPaymentCallback(status.String())
	return nil
}
