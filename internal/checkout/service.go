package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anandkp/shelfwise-backend/internal/checkout/reservation"
	"github.com/anandkp/shelfwise-backend/internal/coupons"
	"github.com/anandkp/shelfwise-backend/internal/identity"
	"github.com/anandkp/shelfwise-backend/internal/orders"
	"github.com/anandkp/shelfwise-backend/internal/pricing"
	"github.com/anandkp/shelfwise-backend/internal/profiles"
	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/gateway"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
	"github.com/anandkp/shelfwise-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productCatalog interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type reservationRunner interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.Request) ([]reservation.Result, error)
}

type paymentInitiator interface {
	Initiate(ctx context.Context, order *models.Order, payerPhone string) (gateway.InitiateResult, error)
}

type reservationEngine struct{}

func (reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.Request) ([]reservation.Result, error) {
	return reservation.Reserve(ctx, tx, requests)
}

// ReviewResult is the computed preview shown before submit.
type ReviewResult struct {
	Items      []pricing.LineItem `json:"items"`
	Totals     pricing.Totals     `json:"totals"`
	CouponCode string             `json:"couponCode,omitempty"`
}

// SubmitResult is the outcome of a successful (or replayed) submit.
type SubmitResult struct {
	Order       *models.Order
	RedirectURL string
}

// Service sequences the checkout flow: cart and step management in the
// session, then one transaction at submit that reserves inventory,
// snapshots the order, and upserts the buyer profile.
type Service interface {
	Get(ctx context.Context, ident identity.Identity) (*Session, error)
	ReplaceCart(ctx context.Context, ident identity.Identity, lines []CartLine) (*Session, error)
	SetAddress(ctx context.Context, ident identity.Identity, input AddressInput) (*Session, error)
	SetPaymentMethod(ctx context.Context, ident identity.Identity, method enums.PaymentMethod) (*Session, error)
	ApplyCoupon(ctx context.Context, ident identity.Identity, code string) (*Session, error)
	RemoveCoupon(ctx context.Context, ident identity.Identity) (*Session, error)
	Review(ctx context.Context, ident identity.Identity) (*ReviewResult, error)
	StartVerification(ctx context.Context, ident identity.Identity) error
	ConfirmVerification(ctx context.Context, ident identity.Identity, code string) (*Session, error)
	Submit(ctx context.Context, ident identity.Identity) (*SubmitResult, error)
}

type service struct {
	sessions      *SessionStore
	tx            txRunner
	catalog       productCatalog
	couponRepo    coupons.Repository
	ledger        orders.Service
	profileRepo   profiles.Repository
	payments      paymentInitiator
	verifications *identity.Verifications
	shipping      *pricing.ShippingTable
	reservations  reservationRunner
	logg          *logger.Logger
	metrics       *metrics.CheckoutMetrics
}

// NewService builds the checkout orchestrator.
func NewService(
	sessions *SessionStore,
	tx txRunner,
	catalog productCatalog,
	couponRepo coupons.Repository,
	ledger orders.Service,
	profileRepo profiles.Repository,
	payments paymentInitiator,
	verifications *identity.Verifications,
	shipping *pricing.ShippingTable,
	logg *logger.Logger,
	m *metrics.CheckoutMetrics,
) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if profileRepo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment initiator required")
	}
	if verifications == nil {
		return nil, fmt.Errorf("verifications required")
	}
	if shipping == nil {
		shipping = pricing.DefaultShippingTable()
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		sessions:      sessions,
		tx:            tx,
		catalog:       catalog,
		couponRepo:    couponRepo,
		ledger:        ledger,
		profileRepo:   profileRepo,
		payments:      payments,
		verifications: verifications,
		shipping:      shipping,
		reservations:  reservationEngine{},
		logg:          logg,
		metrics:       m,
	}, nil
}

func (s *service) Get(ctx context.Context, ident identity.Identity) (*Session, error) {
	if ident.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.sessions.Load(ctx, ident.UserID)
}

// ReplaceCart swaps the cart lines and rotates the attempt nonce: a
// mutated cart can never replay into a previously created order.
func (s *service) ReplaceCart(ctx context.Context, ident identity.Identity, lines []CartLine) (*Session, error) {
	session, err := s.Get(ctx, ident)
	if err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart must have at least one line")
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line product id required")
		}
		ids = append(ids, line.ProductID)
	}

	found, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading products")
	}
	available := make(map[uuid.UUID]bool, len(found))
	for _, product := range found {
		if product.IsActive {
			available[product.ID] = true
		}
	}
	for _, line := range lines {
		if !available[line.ProductID] {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("product %s is not available", line.ProductID))
		}
	}

	session.Items = lines
	session.RotateAttempt()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SetAddress completes the address step. All required fields must pass
// field validation before the flow may advance.
func (s *service) SetAddress(ctx context.Context, ident identity.Identity, input AddressInput) (*Session, error) {
	session, err := s.Get(ctx, ident)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	address := input.ToAddress()
	session.Address = &address
	if session.Step.Index() < enums.CheckoutStepPayment.Index() {
		session.Step = enums.CheckoutStepPayment
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) SetPaymentMethod(ctx context.Context, ident identity.Identity, method enums.PaymentMethod) (*Session, error) {
	session, err := s.Get(ctx, ident)
	if err != nil {
		return nil, err
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if session.Address == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "address step not completed")
	}

	session.PaymentMethod = method
	if session.Step.Index() < enums.CheckoutStepReview.Index() {
		session.Step = enums.CheckoutStepReview
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ApplyCoupon validates the code against the current subtotal before
// storing it; a rejected coupon never sticks to the session.
func (s *service) ApplyCoupon(ctx context.Context, ident identity.Identity, code string) (*Session, error) {
	session, err := s.Get(ctx, ident)
	if err != nil {
		return nil, err
	}
	if len(session.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	coupon, err := s.couponRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	items, err := s.loadLineItems(ctx, session)
	if err != nil {
		return nil, err
	}
	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotal()
	}
	if err := coupons.Validate(coupon, subtotal, time.Now()); err != nil {
		return nil, err
	}

	session.CouponCode = coupon.Code
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) RemoveCoupon(ctx context.Context, ident identity.Identity) (*Session, error) {
	session, err := s.Get(ctx, ident)
	if err != nil {
		return nil, err
	}
	session.CouponCode = ""
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Review computes the totals preview without any side effect.
func (s *service) Review(ctx context.Context, ident identity.Identity) (*ReviewResult, error) {
	session, err := s.Get(ctx, ident)
	if err != nil {
		return nil, err
	}
	if session.Address == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "address step not completed")
	}

	items, err := s.loadLineItems(ctx, session)
	if err != nil {
		return nil, err
	}
	totals, coupon, err := s.computeTotals(ctx, session, items)
	if err != nil {
		return nil, err
	}

	result := &ReviewResult{Items: items, Totals: totals}
	if coupon != nil {
		result.CouponCode = coupon.Code
	}
	return result, nil
}

// StartVerification sends an OTP to the shipping phone. Only required
// when the identity is not yet phone-verified.
func (s *service) StartVerification(ctx context.Context, ident identity.Identity) error {
	session, err := s.Get(ctx, ident)
	if err != nil {
		return err
	}
	if session.Address == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "address step not completed")
	}
	if s.isVerified(ident, session) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "phone already verified")
	}

	if _, err := s.verifications.Start(ctx, ident.UserID, session.Address.Phone); err != nil {
		return err
	}

	session.Step = enums.CheckoutStepVerification
	return s.sessions.Save(ctx, session)
}

func (s *service) ConfirmVerification(ctx context.Context, ident identity.Identity, code string) (*Session, error) {
	session, err := s.Get(ctx, ident)
	if err != nil {
		return nil, err
	}

	if _, err := s.verifications.Resume(ident.UserID).Confirm(ctx, code); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session.VerifiedAt = &now
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Submit runs the one transaction of the flow: reserve stock, freeze
// the order snapshot, upsert the profile. Replays keyed on the attempt
// nonce return the already-created order instead of double-reserving.
func (s *service) Submit(ctx context.Context, ident identity.Identity) (*SubmitResult, error) {
	session, err := s.Get(ctx, ident)
	if err != nil {
		return nil, err
	}
	if err := s.checkSubmittable(ident, session); err != nil {
		return nil, err
	}

	// Replay: the attempt already produced an order.
	if existing, err := s.ledger.FindByAttemptID(ctx, session.AttemptID); err == nil {
		return s.finishSubmit(ctx, session, existing)
	} else if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		return nil, err
	}

	started := time.Now()
	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		requests := make([]reservation.Request, len(session.Items))
		for i, line := range session.Items {
			requests[i] = reservation.Request{ProductID: line.ProductID, Qty: line.Qty}
		}
		reserved, err := s.reservations.Reserve(ctx, tx, requests)
		if err != nil {
			s.countReservationFailure(err)
			return err
		}

		// Totals are derived from the locked reservation snapshots, not
		// from an earlier catalog read: the persisted amounts can never
		// disagree with the persisted items if a price changes mid-flight.
		totals, coupon, err := s.computeTotals(ctx, session, lineItemsFromReservation(reserved))
		if err != nil {
			return err
		}

		order = s.buildOrder(session, ident, reserved, totals, coupon)
		if err := s.ledger.Create(ctx, tx, order); err != nil {
			return err
		}

		return s.profileRepo.WithTx(tx).Upsert(ctx, s.buildProfile(session, ident))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderCreated(order.PaymentMethod.String())
	s.metrics.ObserveSubmitDuration(time.Since(started))
	s.logg.Info(s.logg.WithOrderNumber(ctx, order.OrderNumber), "checkout submitted")

	return s.finishSubmit(ctx, session, order)
}

// finishSubmit records the outcome on the session and, for prepaid
// orders still awaiting a redirect, initiates payment. The gateway call
// happens after the transaction committed: a failure here leaves the
// order pending_payment and the buyer may retry.
func (s *service) finishSubmit(ctx context.Context, session *Session, order *models.Order) (*SubmitResult, error) {
	session.Step = enums.CheckoutStepSubmit
	session.OrderNumber = order.OrderNumber

	needsRedirect := order.PaymentMethod == enums.PaymentMethodPrepaid &&
		order.PaymentStatus == enums.PaymentStatusPending &&
		session.RedirectURL == ""
	if needsRedirect {
		result, err := s.payments.Initiate(ctx, order, session.Address.Phone)
		if err != nil {
			_ = s.sessions.Save(ctx, session)
			return nil, err
		}
		session.RedirectURL = result.RedirectURL
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &SubmitResult{Order: order, RedirectURL: session.RedirectURL}, nil
}

func (s *service) checkSubmittable(ident identity.Identity, session *Session) error {
	if len(session.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if session.Address == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "address step not completed")
	}
	if session.PaymentMethod == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment method not chosen")
	}
	if !s.isVerified(ident, session) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "phone verification required")
	}
	return nil
}

func (s *service) isVerified(ident identity.Identity, session *Session) bool {
	return ident.PhoneVerified || session.VerifiedAt != nil
}

func (s *service) loadLineItems(ctx context.Context, session *Session) ([]pricing.LineItem, error) {
	ids := make([]uuid.UUID, len(session.Items))
	for i, line := range session.Items {
		ids[i] = line.ProductID
	}
	found, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading products")
	}
	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, product := range found {
		byID[product.ID] = product
	}

	items := make([]pricing.LineItem, 0, len(session.Items))
	for _, line := range session.Items {
		product, ok := byID[line.ProductID]
		if !ok || !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("product %s is not available", line.ProductID))
		}
		items = append(items, pricing.LineItem{
			ProductID:      product.ID,
			Title:          product.Title,
			UnitPricePaise: product.UnitPricePaise,
			Quantity:       line.Qty,
			WeightGrams:    product.WeightGrams,
		})
	}
	return items, nil
}

// lineItemsFromReservation converts locked reservation snapshots into
// pricing line items, so totals and item snapshots share one read.
func lineItemsFromReservation(reserved []reservation.Result) []pricing.LineItem {
	items := make([]pricing.LineItem, len(reserved))
	for i, result := range reserved {
		items[i] = pricing.LineItem{
			ProductID:      result.ProductID,
			Title:          result.Title,
			UnitPricePaise: result.UnitPricePaise,
			Quantity:       result.Qty,
			WeightGrams:    result.WeightGrams,
		}
	}
	return items
}

// computeTotals re-validates any applied coupon against the current
// subtotal; an invalid coupon aborts rather than silently dropping the
// discount.
func (s *service) computeTotals(ctx context.Context, session *Session, items []pricing.LineItem) (pricing.Totals, *models.Coupon, error) {
	var coupon *models.Coupon
	if session.CouponCode != "" {
		found, err := s.couponRepo.FindByCode(ctx, session.CouponCode)
		if err != nil {
			return pricing.Totals{}, nil, err
		}
		var subtotal int64
		for _, item := range items {
			subtotal += item.LineTotal()
		}
		if err := coupons.Validate(found, subtotal, time.Now()); err != nil {
			return pricing.Totals{}, nil, err
		}
		coupon = found
	}

	shipping := s.shipping.Quote(session.Address.RegionCode, pricing.ChargeableWeight(items))
	totals, err := pricing.ComputeTotals(items, shipping, coupon)
	if err != nil {
		return pricing.Totals{}, nil, err
	}
	return totals, coupon, nil
}

func (s *service) buildOrder(session *Session, ident identity.Identity, reserved []reservation.Result, totals pricing.Totals, coupon *models.Coupon) *models.Order {
	order := &models.Order{
		UserID:            ident.UserID,
		CheckoutAttemptID: session.AttemptID,
		ShippingAddress:   *session.Address,
		SubtotalPaise:     totals.SubtotalPaise,
		ShippingPaise:     totals.ShippingPaise,
		DiscountPaise:     totals.DiscountPaise,
		TotalPaise:        totals.TotalPaise,
		PaymentMethod:     session.PaymentMethod,
	}
	if coupon != nil {
		order.AppliedCouponCode = &coupon.Code
	}
	// Cash on delivery needs no gateway round trip: the order is placed
	// immediately and payment settles at the door.
	if session.PaymentMethod == enums.PaymentMethodCOD {
		order.Status = enums.OrderStatusPlaced
	}

	order.Items = make([]models.OrderItem, len(reserved))
	for i, result := range reserved {
		order.Items[i] = models.OrderItem{
			ProductID:      result.ProductID,
			Title:          result.Title,
			UnitPricePaise: result.UnitPricePaise,
			Quantity:       result.Qty,
			WeightGrams:    result.WeightGrams,
			LineTotalPaise: result.UnitPricePaise * int64(result.Qty),
		}
	}
	return order
}

func (s *service) buildProfile(session *Session, ident identity.Identity) *models.BuyerProfile {
	profile := &models.BuyerProfile{
		UserID:         ident.UserID,
		FullName:       session.Address.FullName,
		Phone:          session.Address.Phone,
		Email:          session.Address.Email,
		DefaultAddress: *session.Address,
	}
	if session.VerifiedAt != nil {
		profile.PhoneVerifiedAt = session.VerifiedAt
	}
	return profile
}

func (s *service) countReservationFailure(err error) {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeConflict:
		s.metrics.IncReservationFailure("out_of_stock")
	case pkgerrors.CodeNotFound:
		s.metrics.IncReservationFailure("product_missing")
	default:
		s.metrics.IncReservationFailure("error")
	}
}
