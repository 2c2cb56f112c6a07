package enums

import "fmt"

// ShippingZone is a shipping-cost bucket derived from the destination region.
type ShippingZone string

const (
	ShippingZoneA ShippingZone = "a"
	ShippingZoneB ShippingZone = "b"
	ShippingZoneC ShippingZone = "c"
)

var validShippingZones = []ShippingZone{
	ShippingZoneA,
	ShippingZoneB,
	ShippingZoneC,
}

// String implements fmt.Stringer.
func (s ShippingZone) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShippingZone.
func (s ShippingZone) IsValid() bool {
	for _, candidate := range validShippingZones {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShippingZone converts raw input into a ShippingZone.
func ParseShippingZone(value string) (ShippingZone, error) {
	for _, candidate := range validShippingZones {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping zone %q", value)
}
