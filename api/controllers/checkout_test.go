package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/anandkp/shelfwise-backend/api/middleware"
	"github.com/anandkp/shelfwise-backend/internal/checkout"
	"github.com/anandkp/shelfwise-backend/internal/identity"
	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
)

type stubCheckoutService struct {
	session    *checkout.Session
	review     *checkout.ReviewResult
	submit     *checkout.SubmitResult
	err        error
	lastLines  []checkout.CartLine
	lastMethod enums.PaymentMethod
	lastCoupon string
	lastIdent  identity.Identity
}

func (s *stubCheckoutService) Get(ctx context.Context, ident identity.Identity) (*checkout.Session, error) {
	s.lastIdent = ident
	return s.session, s.err
}

func (s *stubCheckoutService) ReplaceCart(ctx context.Context, ident identity.Identity, lines []checkout.CartLine) (*checkout.Session, error) {
	s.lastIdent = ident
	s.lastLines = lines
	return s.session, s.err
}

func (s *stubCheckoutService) SetAddress(ctx context.Context, ident identity.Identity, input checkout.AddressInput) (*checkout.Session, error) {
	s.lastIdent = ident
	return s.session, s.err
}

func (s *stubCheckoutService) SetPaymentMethod(ctx context.Context, ident identity.Identity, method enums.PaymentMethod) (*checkout.Session, error) {
	s.lastIdent = ident
	s.lastMethod = method
	return s.session, s.err
}

func (s *stubCheckoutService) ApplyCoupon(ctx context.Context, ident identity.Identity, code string) (*checkout.Session, error) {
	s.lastIdent = ident
	s.lastCoupon = code
	return s.session, s.err
}

func (s *stubCheckoutService) RemoveCoupon(ctx context.Context, ident identity.Identity) (*checkout.Session, error) {
	s.lastIdent = ident
	return s.session, s.err
}

func (s *stubCheckoutService) Review(ctx context.Context, ident identity.Identity) (*checkout.ReviewResult, error) {
	s.lastIdent = ident
	return s.review, s.err
}

func (s *stubCheckoutService) StartVerification(ctx context.Context, ident identity.Identity) error {
	s.lastIdent = ident
	return s.err
}

func (s *stubCheckoutService) ConfirmVerification(ctx context.Context, ident identity.Identity, code string) (*checkout.Session, error) {
	s.lastIdent = ident
	s.lastCoupon = code
	return s.session, s.err
}

func (s *stubCheckoutService) Submit(ctx context.Context, ident identity.Identity) (*checkout.SubmitResult, error) {
	s.lastIdent = ident
	return s.submit, s.err
}

func authedRequest(method, target, body string, ident identity.Identity) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithIdentity(req.Context(), ident))
}

func TestCheckoutGetReturnsSession(t *testing.T) {
	t.Parallel()

	ident := identity.Identity{UserID: uuid.New(), Kind: enums.IdentityKindOTP}
	svc := &stubCheckoutService{session: &checkout.Session{
		UserID:    ident.UserID,
		Step:      enums.CheckoutStepAddress,
		AttemptID: uuid.NewString(),
	}}
	handler := CheckoutGet(svc, testLogger(t))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/checkout", "", ident))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastIdent.UserID != ident.UserID {
		t.Fatalf("expected identity forwarded, got %+v", svc.lastIdent)
	}

	var envelope struct {
		Data checkout.Session `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Step != enums.CheckoutStepAddress {
		t.Fatalf("expected address step got %q", envelope.Data.Step)
	}
}

func TestCheckoutReplaceCartForwardsLines(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	svc := &stubCheckoutService{session: &checkout.Session{Step: enums.CheckoutStepAddress}}
	handler := CheckoutReplaceCart(svc, testLogger(t))

	body := `{"items":[{"productId":"` + productID.String() + `","qty":2}]}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPut, "/api/v1/checkout/cart", body, identity.Identity{UserID: uuid.New()}))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.lastLines) != 1 || svc.lastLines[0].ProductID != productID || svc.lastLines[0].Qty != 2 {
		t.Fatalf("expected cart line forwarded, got %+v", svc.lastLines)
	}
}

func TestCheckoutReplaceCartRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	handler := CheckoutReplaceCart(&stubCheckoutService{}, testLogger(t))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPut, "/api/v1/checkout/cart", `{"items":[],"bogus":true}`, identity.Identity{}))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCheckoutSetPaymentMethodRejectsUnknownMethod(t *testing.T) {
	t.Parallel()

	handler := CheckoutSetPaymentMethod(&stubCheckoutService{}, testLogger(t))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout/payment-method", `{"method":"upi_direct"}`, identity.Identity{}))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCheckoutSetPaymentMethodForwardsParsedMethod(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{session: &checkout.Session{Step: enums.CheckoutStepReview}}
	handler := CheckoutSetPaymentMethod(svc, testLogger(t))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout/payment-method", `{"method":"cod"}`, identity.Identity{}))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastMethod != enums.PaymentMethodCOD {
		t.Fatalf("expected cod forwarded, got %q", svc.lastMethod)
	}
}

func TestCheckoutSubmitWrapsOrderView(t *testing.T) {
	t.Parallel()

	coupon := "SAVE10"
	svc := &stubCheckoutService{submit: &checkout.SubmitResult{
		Order: &models.Order{
			OrderNumber:       "SW-20260829-000042",
			Status:            enums.OrderStatusPendingPayment,
			PaymentStatus:     enums.PaymentStatusPending,
			PaymentMethod:     enums.PaymentMethodPrepaid,
			SubtotalPaise:     59800,
			ShippingPaise:     9000,
			DiscountPaise:     5980,
			TotalPaise:        62820,
			AppliedCouponCode: &coupon,
			Items: []models.OrderItem{{
				ProductID:      uuid.New(),
				Title:          "The God of Small Things",
				UnitPricePaise: 29900,
				Quantity:       2,
				LineTotalPaise: 59800,
			}},
		},
		RedirectURL: "https://pay.example.in/redirect/abc",
	}}
	handler := CheckoutSubmit(svc, testLogger(t))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout/submit", "", identity.Identity{UserID: uuid.New()}))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data submitResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order.OrderNumber != "SW-20260829-000042" {
		t.Fatalf("expected order number in payload got %+v", envelope.Data.Order)
	}
	if envelope.Data.Order.AppliedCouponCode != "SAVE10" {
		t.Fatalf("expected coupon code flattened got %+v", envelope.Data.Order)
	}
	if envelope.Data.RedirectURL != "https://pay.example.in/redirect/abc" {
		t.Fatalf("expected redirect url got %q", envelope.Data.RedirectURL)
	}
	if len(envelope.Data.Order.Items) != 1 || envelope.Data.Order.Items[0].LineTotalPaise != 59800 {
		t.Fatalf("expected item view got %+v", envelope.Data.Order.Items)
	}
}

func TestCheckoutSubmitPassesThroughStateConflict(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "phone not verified")}
	handler := CheckoutSubmit(svc, testLogger(t))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout/submit", "", identity.Identity{}))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", resp.Code, resp.Body.String())
	}
}
