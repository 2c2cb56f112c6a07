package enums

import "fmt"

// IdentityKind records how a buyer session was authenticated. Both kinds
// resolve to the same opaque user id downstream.
type IdentityKind string

const (
	IdentityKindOTP      IdentityKind = "otp"
	IdentityKindPassword IdentityKind = "password"
)

var validIdentityKinds = []IdentityKind{
	IdentityKindOTP,
	IdentityKindPassword,
}

// String implements fmt.Stringer.
func (i IdentityKind) String() string {
	return string(i)
}

// IsValid reports whether the value is a known IdentityKind.
func (i IdentityKind) IsValid() bool {
	for _, candidate := range validIdentityKinds {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseIdentityKind converts raw input into an IdentityKind.
func ParseIdentityKind(value string) (IdentityKind, error) {
	for _, candidate := range validIdentityKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid identity kind %q", value)
}
