package pricing

import (
	"sort"
	"strings"

	"github.com/anandkp/shelfwise-backend/pkg/enums"
)

// WeightBracket is one ascending step of the shipping-rate table: a
// parcel weighing up to UpToGrams is charged ChargePaise for its zone.
type WeightBracket struct {
	UpToGrams   int
	ChargePaise map[enums.ShippingZone]int64
}

// ShippingTable maps a destination region to a zone and a chargeable
// weight to a flat charge. The table is read-only after construction;
// rates are owned by the out-of-scope admin configuration surface.
type ShippingTable struct {
	zoneByRegion   map[string]enums.ShippingZone
	defaultZone    enums.ShippingZone
	brackets       []WeightBracket
	perExtraKgRate map[enums.ShippingZone]int64
}

// NewShippingTable builds a table from explicit rate data. Brackets are
// sorted ascending by weight; weights beyond the last bracket pay the
// top-bracket charge plus a per-started-kg surcharge.
func NewShippingTable(
	zoneByRegion map[string]enums.ShippingZone,
	defaultZone enums.ShippingZone,
	brackets []WeightBracket,
	perExtraKgRate map[enums.ShippingZone]int64,
) *ShippingTable {
	sorted := make([]WeightBracket, len(brackets))
	copy(sorted, brackets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UpToGrams < sorted[j].UpToGrams })

	normalized := make(map[string]enums.ShippingZone, len(zoneByRegion))
	for region, zone := range zoneByRegion {
		normalized[strings.ToUpper(strings.TrimSpace(region))] = zone
	}

	return &ShippingTable{
		zoneByRegion:   normalized,
		defaultZone:    defaultZone,
		brackets:       sorted,
		perExtraKgRate: perExtraKgRate,
	}
}

// DefaultShippingTable returns the standing rate card used at boot.
func DefaultShippingTable() *ShippingTable {
	return NewShippingTable(
		map[string]enums.ShippingZone{
			// Zone A: metro-adjacent states served from the warehouse.
			"DL": enums.ShippingZoneA,
			"HR": enums.ShippingZoneA,
			"UP": enums.ShippingZoneA,
			"RJ": enums.ShippingZoneA,
			// Zone B: rest of mainland.
			"MH": enums.ShippingZoneB,
			"KA": enums.ShippingZoneB,
			"TN": enums.ShippingZoneB,
			"GJ": enums.ShippingZoneB,
			"WB": enums.ShippingZoneB,
			"MP": enums.ShippingZoneB,
		},
		enums.ShippingZoneC,
		[]WeightBracket{
			{UpToGrams: 500, ChargePaise: map[enums.ShippingZone]int64{
				enums.ShippingZoneA: 4000, enums.ShippingZoneB: 6000, enums.ShippingZoneC: 9000,
			}},
			{UpToGrams: 1000, ChargePaise: map[enums.ShippingZone]int64{
				enums.ShippingZoneA: 6000, enums.ShippingZoneB: 9000, enums.ShippingZoneC: 13000,
			}},
			{UpToGrams: 2000, ChargePaise: map[enums.ShippingZone]int64{
				enums.ShippingZoneA: 9000, enums.ShippingZoneB: 13000, enums.ShippingZoneC: 18000,
			}},
		},
		map[enums.ShippingZone]int64{
			enums.ShippingZoneA: 4000,
			enums.ShippingZoneB: 5000,
			enums.ShippingZoneC: 7000,
		},
	)
}

// ZoneFor resolves a destination region code to its shipping zone.
// Unknown regions fall to the default (most expensive) zone.
func (t *ShippingTable) ZoneFor(regionCode string) enums.ShippingZone {
	if zone, ok := t.zoneByRegion[strings.ToUpper(strings.TrimSpace(regionCode))]; ok {
		return zone
	}
	return t.defaultZone
}

// ChargeableWeight sums line weights across the cart.
func ChargeableWeight(items []LineItem) int {
	var grams int
	for _, item := range items {
		grams += item.WeightGrams * item.Quantity
	}
	return grams
}

// Quote returns the flat shipping charge in paise for a destination
// region and chargeable parcel weight.
func (t *ShippingTable) Quote(regionCode string, weightGrams int) int64 {
	zone := t.ZoneFor(regionCode)
	if weightGrams < 0 {
		weightGrams = 0
	}

	for _, bracket := range t.brackets {
		if weightGrams <= bracket.UpToGrams {
			return bracket.ChargePaise[zone]
		}
	}

	// Open-ended top bracket: top charge plus a surcharge per started kg
	// over the top bracket's limit.
	top := t.brackets[len(t.brackets)-1]
	extraGrams := weightGrams - top.UpToGrams
	extraKg := int64((extraGrams + 999) / 1000)
	return top.ChargePaise[zone] + extraKg*t.perExtraKgRate[zone]
}
