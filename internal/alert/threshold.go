// Package alert turns monitoring-record updates into low-moisture pushes.
package alert

import (
	"fmt"

	"github.com/hamed0406/moisturealert/internal/domain"
)

// Threshold is the moisture level at or below which a plant needs water.
const Threshold = 20.0

const AlertTitle = "Low Moisture Alert!"

// AlertBody is the notification text for the given plant label.
func AlertBody(plant string) string {
	return fmt.Sprintf("Your plant \"%s\" needs watering.", plant)
}

// CrossedBelow reports a falling edge: above Threshold before, at or below
// it after. An absent reading on either side never crosses.
func CrossedBelow(before, after domain.Reading) bool {
	if !before.Valid || !after.Valid {
		return false
	}
	return before.Value > Threshold && after.Value <= Threshold
}
