package services

import (
	"errors"
	"testing"

	"qurylysBack/internal/models"
)

func TestBuildQuoteItems(t *testing.T) {
	tests := []struct {
		name      string
		inputs    []models.ReplyItemInput
		wantTotal int64
		wantErr   bool
	}{
		{
			name: "single item",
			inputs: []models.ReplyItemInput{
				{Description: "Cement M400", Quantity: 200, Unit: "bag", UnitPrice: 2500},
			},
			wantTotal: 500000,
		},
		{
			name: "multiple items sum",
			inputs: []models.ReplyItemInput{
				{Description: "Rebar 12mm", Quantity: 3.5, Unit: "t", UnitPrice: 400000},
				{Description: "Delivery", Quantity: 1, Unit: "trip", UnitPrice: 60000},
			},
			wantTotal: 1460000,
		},
		{
			name: "fractional quantity rounds",
			inputs: []models.ReplyItemInput{
				{Description: "Sand", Quantity: 0.333, Unit: "t", UnitPrice: 10000},
			},
			wantTotal: 3330,
		},
		{
			name:    "no items",
			inputs:  nil,
			wantErr: true,
		},
		{
			name: "missing description",
			inputs: []models.ReplyItemInput{
				{Quantity: 1, UnitPrice: 100},
			},
			wantErr: true,
		},
		{
			name: "zero quantity",
			inputs: []models.ReplyItemInput{
				{Description: "Bricks", Quantity: 0, UnitPrice: 100},
			},
			wantErr: true,
		},
		{
			name: "negative unit price",
			inputs: []models.ReplyItemInput{
				{Description: "Bricks", Quantity: 1, UnitPrice: -5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := BuildQuoteItems(tt.inputs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, models.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(items) != len(tt.inputs) {
				t.Errorf("items = %d, want %d", len(items), len(tt.inputs))
			}
			var sum int64
			for _, it := range items {
				sum += it.TotalPrice
			}
			if sum != total {
				t.Errorf("line totals sum to %d, total is %d", sum, total)
			}
		})
	}
}

func TestDeriveMilestones(t *testing.T) {
	milestones, err := DeriveMilestones(10000000, []models.ReplyMilestoneInput{
		{Name: "Advance", Percentage: 30},
		{Name: "Completion", Percentage: 70},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(milestones) != 2 {
		t.Fatalf("got %d milestones, want 2", len(milestones))
	}
	if milestones[0].Amount != 3000000 {
		t.Errorf("advance amount = %d, want 3000000", milestones[0].Amount)
	}
	if milestones[1].Amount != 7000000 {
		t.Errorf("completion amount = %d, want 7000000", milestones[1].Amount)
	}
	if milestones[0].Order != 1 || milestones[1].Order != 2 {
		t.Errorf("orders = %d, %d, want 1, 2", milestones[0].Order, milestones[1].Order)
	}
}

func TestDeriveMilestonesValidation(t *testing.T) {
	tests := []struct {
		name   string
		inputs []models.ReplyMilestoneInput
	}{
		{"empty", nil},
		{"missing name", []models.ReplyMilestoneInput{{Percentage: 100}}},
		{"zero percentage", []models.ReplyMilestoneInput{{Name: "A", Percentage: 0}, {Name: "B", Percentage: 100}}},
		{"over hundred", []models.ReplyMilestoneInput{{Name: "A", Percentage: 120}}},
		{"sum below hundred", []models.ReplyMilestoneInput{{Name: "A", Percentage: 30}, {Name: "B", Percentage: 30}}},
		{"sum above hundred", []models.ReplyMilestoneInput{{Name: "A", Percentage: 60}, {Name: "B", Percentage: 50}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveMilestones(1000000, tt.inputs)
			if !errors.Is(err, models.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDeriveMilestonesKeepsExplicitOrder(t *testing.T) {
	milestones, err := DeriveMilestones(500000, []models.ReplyMilestoneInput{
		{Name: "Finish", Percentage: 50, Order: 2},
		{Name: "Start", Percentage: 50, Order: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if milestones[0].Order != 2 || milestones[1].Order != 1 {
		t.Errorf("explicit orders not kept: %d, %d", milestones[0].Order, milestones[1].Order)
	}
}

func TestGenerateOtpCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateOtpCode()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 digits", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains non-digit", code)
			}
		}
	}
}
