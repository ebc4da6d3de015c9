package services

import (
	"context"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/pkg/errors"
	"github.com/shopspring/decimal"
)

// Quote is the priced and costed resolution of one order line unit:
// (menu item, selected variations) against a branch.
type Quote struct {
	UnitPrice           decimal.Decimal
	UnitCost            decimal.Decimal
	EffectiveMultiplier decimal.Decimal // the size variation's multiplier; line multiplier is qty x this
	Requirements        []LeafRequirement
	Variations          []models.OrderLineVariation
	PriceIncludesTax    bool
}

// PricingEngine resolves unit price and unit cost for a menu item with
// selected variations. Price: branch override (or base price) plus the sum of
// variation deltas. Cost: the base recipe flattened and scaled by the size
// multiplier, plus each variant's own cost. Physical requirements all scale
// with the size multiplier; a non-size variant's cost contribution does not.
type PricingEngine struct {
	recipes repositories.RecipeRepository
	costs   *CostEngine
}

func NewPricingEngine(recipes repositories.RecipeRepository, costs *CostEngine) *PricingEngine {
	return &PricingEngine{recipes: recipes, costs: costs}
}

// Quote prices and costs one unit of the line. The caller has already
// resolved the menu item, its branch row (may be nil) and the selected
// variations.
func (p *PricingEngine) Quote(ctx context.Context, t repositories.Tenant, item *models.MenuItem, branchRow *models.BranchMenu, selected []*models.MenuVariation) (*Quote, error) {
	unitPrice := item.Pricing.BasePrice
	if branchRow != nil && branchRow.SellingPrice != nil {
		unitPrice = *branchRow.SellingPrice
	}

	sizeMultiplier := one
	sizeSeen := false

	type resolvedVariation struct {
		variation *models.MenuVariation
		variant   *models.RecipeVariant
	}
	resolved := make([]resolvedVariation, 0, len(selected))

	for _, v := range selected {
		if v.MenuItemID != item.ID {
			return nil, errors.VariationBelongsToOtherMenuItem(v.ID.Hex())
		}
		unitPrice = unitPrice.Add(v.PriceDelta)

		var variant *models.RecipeVariant
		if v.RecipeVariantID != nil {
			var err error
			variant, err = p.recipes.GetVariant(ctx, t, *v.RecipeVariantID)
			if err != nil {
				return nil, errors.Database(err)
			}
			if variant == nil {
				return nil, errors.NotFound("recipe variant").
					WithDetails(map[string]string{"recipe_variant_id": v.RecipeVariantID.Hex()})
			}
			if item.RecipeID == nil || variant.RecipeID != *item.RecipeID {
				return nil, errors.VariantRecipeMismatch(v.ID.Hex())
			}
		}

		if v.Type == models.VariantTypeSize {
			if sizeSeen {
				return nil, errors.DuplicateSizeVariation("at most one size variation may be selected per line")
			}
			sizeSeen = true
			sizeMultiplier = v.SizeMultiplier
			if variant != nil {
				sizeMultiplier = variant.SizeMultiplier
			}
			if !sizeMultiplier.IsPositive() {
				sizeMultiplier = one
			}
		}

		resolved = append(resolved, resolvedVariation{variation: v, variant: variant})
	}

	if unitPrice.IsNegative() {
		return nil, errors.NegativePrice("resolved unit price is negative").
			WithDetails(map[string]string{"menu_item_id": item.ID.Hex()})
	}

	tr := p.costs.NewTraversal()

	unitCost := decimal.Zero
	var requirements []LeafRequirement

	if item.RecipeID != nil {
		base, err := tr.Flatten(ctx, t, *item.RecipeID, sizeMultiplier)
		if err != nil {
			return nil, err
		}
		unitCost = unitCost.Add(base.Cost)
		requirements = append(requirements, base.Leaves...)
	}

	lineVariations := make([]models.OrderLineVariation, 0, len(resolved))
	for _, rv := range resolved {
		v := rv.variation
		variationCost := v.CalculatedCost

		if rv.variant != nil {
			// Additions scale physically with the size multiplier; the cost
			// contribution is the variant's flattened cost plus its base
			// adjustment.
			flat, err := tr.FlattenIngredients(ctx, t, rv.variant.RecipeID, rv.variant.Ingredients, sizeMultiplier)
			if err != nil {
				return nil, err
			}
			requirements = append(requirements, flat.Leaves...)

			unscaled, err := tr.FlattenIngredients(ctx, t, rv.variant.RecipeID, rv.variant.Ingredients, one)
			if err != nil {
				return nil, err
			}
			variationCost = unscaled.Cost.Add(rv.variant.BaseCostAdjustment)
		}

		unitCost = unitCost.Add(variationCost)
		lineVariations = append(lineVariations, models.OrderLineVariation{
			MenuVariationID: v.ID,
			RecipeVariantID: v.RecipeVariantID,
			Name:            v.Name,
			Type:            v.Type,
			PriceDelta:      v.PriceDelta,
			SizeMultiplier:  v.SizeMultiplier,
			CalculatedCost:  money4(variationCost),
		})
	}

	return &Quote{
		UnitPrice:           money4(unitPrice),
		UnitCost:            money4(unitCost),
		EffectiveMultiplier: sizeMultiplier,
		Requirements:        requirements,
		Variations:          lineVariations,
		PriceIncludesTax:    item.Pricing.PriceIncludesTax,
	}, nil
}
