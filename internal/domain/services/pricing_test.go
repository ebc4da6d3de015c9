package services

import (
	"context"
	"testing"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type pricingFixture struct {
	recipes *fakeRecipes
	engine  *PricingEngine

	cheese    primitive.ObjectID
	pepperoni primitive.ObjectID

	pizza      *models.Recipe
	item       *models.MenuItem
	largeVar   *models.RecipeVariant
	large      *models.MenuVariation
	topVariant *models.RecipeVariant
	topping    *models.MenuVariation
}

// The fixture is a pizza priced at 8.00 with a batch cost of 3.00. The large
// size scales by 1.5 and adds 1.00 of base cost; the pepperoni topping adds
// 50g of pepperoni worth 1.00.
func newPricingFixture() *pricingFixture {
	f := &pricingFixture{
		recipes:   newFakeRecipes(),
		cheese:    primitive.NewObjectID(),
		pepperoni: primitive.NewObjectID(),
	}

	f.pizza = f.recipes.add(&models.Recipe{
		Name:        "pizza",
		Yield:       d("1"),
		Ingredients: []models.RecipeIngredient{inv(f.cheese, "100", "0.03")},
	})

	f.largeVar = f.recipes.addVariant(&models.RecipeVariant{
		RecipeID:           f.pizza.ID,
		Name:               "large",
		Type:               models.VariantTypeSize,
		SizeMultiplier:     d("1.5"),
		BaseCostAdjustment: d("1.00"),
	})
	f.topVariant = f.recipes.addVariant(&models.RecipeVariant{
		RecipeID:       f.pizza.ID,
		Name:           "pepperoni",
		Type:           models.VariantTypeAddon,
		SizeMultiplier: d("1"),
		Ingredients:    []models.RecipeIngredient{inv(f.pepperoni, "50", "0.02")},
	})

	recipeID := f.pizza.ID
	f.item = &models.MenuItem{
		ID:       primitive.NewObjectID(),
		Name:     "Pizza",
		Slug:     "pizza",
		RecipeID: &recipeID,
		Pricing:  models.MenuPricing{BasePrice: d("8.00"), Currency: "USD"},
		Active:   true,
	}

	largeVarID := f.largeVar.ID
	f.large = &models.MenuVariation{
		ID:              primitive.NewObjectID(),
		MenuItemID:      f.item.ID,
		RecipeVariantID: &largeVarID,
		Name:            "Large",
		Type:            models.VariantTypeSize,
		PriceDelta:      d("4.00"),
		SizeMultiplier:  d("1.5"),
		Active:          true,
	}
	topVariantID := f.topVariant.ID
	f.topping = &models.MenuVariation{
		ID:              primitive.NewObjectID(),
		MenuItemID:      f.item.ID,
		RecipeVariantID: &topVariantID,
		Name:            "Pepperoni",
		Type:            models.VariantTypeAddon,
		PriceDelta:      d("1.50"),
		SizeMultiplier:  d("1"),
		Active:          true,
	}

	f.engine = NewPricingEngine(f.recipes, NewCostEngine(f.recipes))
	return f
}

func (f *pricingFixture) quote(t *testing.T, selected ...*models.MenuVariation) *Quote {
	t.Helper()
	q, err := f.engine.Quote(context.Background(), newTenant(), f.item, nil, selected)
	require.NoError(t, err)
	return q
}

func TestQuoteBaseItem(t *testing.T) {
	f := newPricingFixture()
	q := f.quote(t)

	assert.True(t, q.UnitPrice.Equal(d("8.00")), "price %s", q.UnitPrice)
	assert.True(t, q.UnitCost.Equal(d("3.00")), "cost %s", q.UnitCost)
	assert.True(t, q.EffectiveMultiplier.Equal(d("1")))
	require.Len(t, q.Requirements, 1)
	assert.True(t, q.Requirements[0].Qty.Equal(d("100")))
}

func TestQuoteLargeWithTopping(t *testing.T) {
	f := newPricingFixture()
	q := f.quote(t, f.large, f.topping)

	// Price stacks the deltas.
	assert.True(t, q.UnitPrice.Equal(d("13.50")), "price %s", q.UnitPrice)

	// Base cost scales with the size; variant cost contributions do not.
	// 3.00*1.5 + 1.00 (large adjustment) + 1.00 (pepperoni) = 6.50.
	assert.True(t, q.UnitCost.Equal(d("6.50")), "cost %s", q.UnitCost)
	assert.True(t, q.EffectiveMultiplier.Equal(d("1.5")))

	// Physical requirements all scale: 150g cheese and 75g pepperoni.
	byItem := map[primitive.ObjectID]decimal.Decimal{}
	for _, req := range q.Requirements {
		byItem[req.ItemID] = req.Qty
	}
	assert.True(t, byItem[f.cheese].Equal(d("150")), "cheese %s", byItem[f.cheese])
	assert.True(t, byItem[f.pepperoni].Equal(d("75")), "pepperoni %s", byItem[f.pepperoni])
}

func TestQuoteVariationSnapshots(t *testing.T) {
	f := newPricingFixture()
	q := f.quote(t, f.large, f.topping)

	require.Len(t, q.Variations, 2)
	assert.Equal(t, "Large", q.Variations[0].Name)
	assert.True(t, q.Variations[0].CalculatedCost.Equal(d("1.00")))
	assert.Equal(t, "Pepperoni", q.Variations[1].Name)
	assert.True(t, q.Variations[1].CalculatedCost.Equal(d("1.00")))
}

func TestQuoteBranchOverridePrice(t *testing.T) {
	f := newPricingFixture()
	override := d("7.00")
	row := &models.BranchMenu{SellingPrice: &override, Available: true}

	q, err := f.engine.Quote(context.Background(), newTenant(), f.item, row, []*models.MenuVariation{f.topping})
	require.NoError(t, err)
	assert.True(t, q.UnitPrice.Equal(d("8.50")), "price %s", q.UnitPrice)
}

func TestQuoteDuplicateSizeRejected(t *testing.T) {
	f := newPricingFixture()
	medium := *f.large
	medium.ID = primitive.NewObjectID()
	medium.Name = "Medium"
	medium.RecipeVariantID = nil
	medium.SizeMultiplier = d("1.2")

	_, err := f.engine.Quote(context.Background(), newTenant(), f.item, nil, []*models.MenuVariation{f.large, &medium})
	assert.True(t, errors.IsKind(err, errors.KindDuplicateSizeVariation))
}

func TestQuoteNegativePriceRejected(t *testing.T) {
	f := newPricingFixture()
	discount := &models.MenuVariation{
		ID:         primitive.NewObjectID(),
		MenuItemID: f.item.ID,
		Name:       "Absurd discount",
		Type:       models.VariantTypeCustom,
		PriceDelta: d("-20.00"),
	}

	_, err := f.engine.Quote(context.Background(), newTenant(), f.item, nil, []*models.MenuVariation{discount})
	assert.True(t, errors.IsKind(err, errors.KindNegativePrice))
}

func TestQuoteForeignVariationRejected(t *testing.T) {
	f := newPricingFixture()
	foreign := *f.topping
	foreign.MenuItemID = primitive.NewObjectID()

	_, err := f.engine.Quote(context.Background(), newTenant(), f.item, nil, []*models.MenuVariation{&foreign})
	assert.True(t, errors.IsKind(err, errors.KindVariationBelongsToOtherMenuItem))
}

func TestQuoteVariantRecipeMismatchRejected(t *testing.T) {
	f := newPricingFixture()
	other := f.recipes.add(&models.Recipe{Name: "other", Yield: d("1")})
	strayVariant := f.recipes.addVariant(&models.RecipeVariant{
		RecipeID:       other.ID,
		Name:           "stray",
		Type:           models.VariantTypeAddon,
		SizeMultiplier: d("1"),
	})

	stray := *f.topping
	stray.RecipeVariantID = &strayVariant.ID

	_, err := f.engine.Quote(context.Background(), newTenant(), f.item, nil, []*models.MenuVariation{&stray})
	assert.True(t, errors.IsKind(err, errors.KindVariantRecipeMismatch))
}

func TestQuoteItemWithoutRecipe(t *testing.T) {
	f := newPricingFixture()
	service := &models.MenuItem{
		ID:      primitive.NewObjectID(),
		Name:    "Delivery",
		Slug:    "delivery",
		Pricing: models.MenuPricing{BasePrice: d("2.50"), Currency: "USD"},
		Active:  true,
	}

	q, err := f.engine.Quote(context.Background(), newTenant(), service, nil, nil)
	require.NoError(t, err)
	assert.True(t, q.UnitPrice.Equal(d("2.50")))
	assert.True(t, q.UnitCost.IsZero())
	assert.Empty(t, q.Requirements)
}

func TestQuoteDisplayMultiplierUsedWithoutRecipeVariant(t *testing.T) {
	f := newPricingFixture()
	sizeOnly := &models.MenuVariation{
		ID:             primitive.NewObjectID(),
		MenuItemID:     f.item.ID,
		Name:           "Family",
		Type:           models.VariantTypeSize,
		PriceDelta:     d("6.00"),
		SizeMultiplier: d("2"),
		Active:         true,
	}

	q := f.quote(t, sizeOnly)
	assert.True(t, q.EffectiveMultiplier.Equal(d("2")))
	assert.True(t, q.UnitCost.Equal(d("6.00")), "cost %s", q.UnitCost)
	assert.True(t, q.Requirements[0].Qty.Equal(d("200")))
}
