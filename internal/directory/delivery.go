package directory

import "fmt"

// DeliveryEstimate is the expected delivery window for an order
type DeliveryEstimate struct {
	PharmacyID int     `json:"pharmacy_id"`
	DistanceKM float64 `json:"distance_km"`
	MinMinutes int     `json:"min_minutes"`
	MaxMinutes int     `json:"max_minutes"`
	Window     string  `json:"window"`
}

// EstimateWindow maps a distance to a delivery window in minutes:
// under 2 km 20-30, over 5 km 45-60, otherwise 30-45.
func EstimateWindow(distanceKM float64) (minMinutes, maxMinutes int) {
	switch {
	case distanceKM < 2:
		return 20, 30
	case distanceKM > 5:
		return 45, 60
	default:
		return 30, 45
	}
}

// EstimateDelivery returns the delivery window for a pharmacy. A positive
// distanceKM replaces the pharmacy's listed distance.
func (d *Directory) EstimateDelivery(pharmacyID int, distanceKM float64) (DeliveryEstimate, error) {
	p, err := d.Pharmacy(pharmacyID)
	if err != nil {
		return DeliveryEstimate{}, err
	}
	if !p.Delivers {
		return DeliveryEstimate{}, fmt.Errorf("%s: %w", p.Name, ErrNoDelivery)
	}

	if distanceKM <= 0 {
		distanceKM = p.DistanceKM
	}
	lo, hi := EstimateWindow(distanceKM)
	return DeliveryEstimate{
		PharmacyID: p.ID,
		DistanceKM: distanceKM,
		MinMinutes: lo,
		MaxMinutes: hi,
		Window:     fmt.Sprintf("%d-%d minutes", lo, hi),
	}, nil
}
