package services

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"qurylysBack/internal/models"
)

const otpTTL = 10 * time.Minute

// BuildQuoteItems recomputes line totals from quantity and unit price and
// returns the items together with the quote total. Client-supplied totals are
// never trusted.
func BuildQuoteItems(inputs []models.ReplyItemInput) ([]models.QuoteItem, int64, error) {
	if len(inputs) == 0 {
		return nil, 0, fmt.Errorf("%w: at least one line item is required", models.ErrValidation)
	}
	items := make([]models.QuoteItem, 0, len(inputs))
	var total int64
	for i, in := range inputs {
		if in.Description == "" {
			return nil, 0, fmt.Errorf("%w: item %d is missing a description", models.ErrValidation, i+1)
		}
		if in.Quantity <= 0 {
			return nil, 0, fmt.Errorf("%w: item %d quantity must be positive", models.ErrValidation, i+1)
		}
		if in.UnitPrice < 0 {
			return nil, 0, fmt.Errorf("%w: item %d unit price must not be negative", models.ErrValidation, i+1)
		}
		lineTotal := int64(math.Round(in.Quantity * float64(in.UnitPrice)))
		items = append(items, models.QuoteItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			Unit:        in.Unit,
			UnitPrice:   in.UnitPrice,
			TotalPrice:  lineTotal,
			Category:    in.Category,
		})
		total += lineTotal
	}
	return items, total, nil
}

// DeriveMilestones converts percentage slices into fixed amounts against the
// quote total. Amounts are computed once here and stay immutable afterwards.
// Percentages must sum to exactly 100.
func DeriveMilestones(total int64, inputs []models.ReplyMilestoneInput) ([]models.PaymentMilestone, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one payment milestone is required", models.ErrValidation)
	}
	var pctSum float64
	milestones := make([]models.PaymentMilestone, 0, len(inputs))
	for i, in := range inputs {
		if in.Name == "" {
			return nil, fmt.Errorf("%w: milestone %d is missing a name", models.ErrValidation, i+1)
		}
		if in.Percentage <= 0 || in.Percentage > 100 {
			return nil, fmt.Errorf("%w: milestone %d percentage must be in (0, 100]", models.ErrValidation, i+1)
		}
		pctSum += in.Percentage
		order := in.Order
		if order == 0 {
			order = i + 1
		}
		milestones = append(milestones, models.PaymentMilestone{
			Name:       in.Name,
			Percentage: in.Percentage,
			Amount:     int64(math.Round(float64(total) * in.Percentage / 100)),
			Order:      order,
		})
	}
	if math.Abs(pctSum-100) > 1e-9 {
		return nil, fmt.Errorf("%w: milestone percentages must sum to 100, got %.2f", models.ErrValidation, pctSum)
	}
	return milestones, nil
}

// generateOtpCode returns a cryptographically random 6-digit confirmation code.
func generateOtpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
