package enums

import "fmt"

// CheckoutStep names a position in the checkout flow.
type CheckoutStep string

const (
	CheckoutStepAddress      CheckoutStep = "address"
	CheckoutStepPayment      CheckoutStep = "payment"
	CheckoutStepReview       CheckoutStep = "review"
	CheckoutStepVerification CheckoutStep = "verification"
	CheckoutStepSubmit       CheckoutStep = "submit"
)

var validCheckoutSteps = []CheckoutStep{
	CheckoutStepAddress,
	CheckoutStepPayment,
	CheckoutStepReview,
	CheckoutStepVerification,
	CheckoutStepSubmit,
}

// String implements fmt.Stringer.
func (c CheckoutStep) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutStep.
func (c CheckoutStep) IsValid() bool {
	for _, candidate := range validCheckoutSteps {
		if candidate == c {
			return true
		}
	}
	return false
}

// Index returns the ordinal position of the step in the forward flow.
// The verification step shares the submit boundary and sorts just before it.
func (c CheckoutStep) Index() int {
	for i, candidate := range validCheckoutSteps {
		if candidate == c {
			return i
		}
	}
	return -1
}

// ParseCheckoutStep converts raw input into a CheckoutStep.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for _, candidate := range validCheckoutSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout step %q", value)
}
