package services

import (
	"context"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeafRequirement is one flattened inventory requirement: the leaf item, the
// quantity in its base units, and the recipe the requirement came from.
type LeafRequirement struct {
	ItemID       primitive.ObjectID
	Qty          decimal.Decimal
	FromRecipeID primitive.ObjectID
}

// FlattenResult is the outcome of expanding a recipe (or an ad-hoc
// ingredient list) at a given multiplier.
type FlattenResult struct {
	Leaves []LeafRequirement
	Cost   decimal.Decimal
}

// CostEngine flattens recipe graphs into leaf inventory requirements and
// costs. Results are never cached across requests; within one traversal,
// sub-recipe expansions are memoized per recipe id.
type CostEngine struct {
	recipes repositories.RecipeRepository
}

func NewCostEngine(recipes repositories.RecipeRepository) *CostEngine {
	return &CostEngine{recipes: recipes}
}

// Traversal carries the per-request memo. One traversal spans all the
// flattening done for a single order line (base recipe plus variants).
type Traversal struct {
	engine *CostEngine
	memo   map[primitive.ObjectID]*flatRecipe
}

// flatRecipe is the expansion of one recipe batch.
type flatRecipe struct {
	leaves []LeafRequirement
	cost   decimal.Decimal
	yield  decimal.Decimal
}

func (e *CostEngine) NewTraversal() *Traversal {
	return &Traversal{
		engine: e,
		memo:   make(map[primitive.ObjectID]*flatRecipe),
	}
}

// Flatten expands the recipe and scales the result by multiplier. The
// multiplier is the product of line quantity and the active size multiplier.
func (tr *Traversal) Flatten(ctx context.Context, t repositories.Tenant, recipeID primitive.ObjectID, multiplier decimal.Decimal) (*FlattenResult, error) {
	fr, err := tr.expand(ctx, t, recipeID)
	if err != nil {
		return nil, err
	}
	return fr.scaled(multiplier), nil
}

// FlattenIngredients expands an ad-hoc ingredient list (a recipe variant's
// additions) at the given multiplier. fromRecipeID tags leaves that are
// direct inventory lines of the list.
func (tr *Traversal) FlattenIngredients(ctx context.Context, t repositories.Tenant, fromRecipeID primitive.ObjectID, ingredients []models.RecipeIngredient, multiplier decimal.Decimal) (*FlattenResult, error) {
	fr, err := tr.fold(ctx, t, fromRecipeID, ingredients)
	if err != nil {
		return nil, err
	}
	return fr.scaled(multiplier), nil
}

func (fr *flatRecipe) scaled(multiplier decimal.Decimal) *FlattenResult {
	out := &FlattenResult{
		Leaves: make([]LeafRequirement, len(fr.leaves)),
		Cost:   money4(fr.cost.Mul(multiplier)),
	}
	for i, leaf := range fr.leaves {
		out.Leaves[i] = LeafRequirement{
			ItemID:       leaf.ItemID,
			Qty:          leaf.Qty.Mul(multiplier),
			FromRecipeID: leaf.FromRecipeID,
		}
	}
	return out
}

// expand resolves one recipe batch, depth-first with an explicit stack so
// deeply nested sub-recipes cannot exhaust the goroutine stack.
func (tr *Traversal) expand(ctx context.Context, t repositories.Tenant, rootID primitive.ObjectID) (*flatRecipe, error) {
	if fr, ok := tr.memo[rootID]; ok {
		return fr, nil
	}

	type frame struct {
		rec *models.Recipe
		idx int
	}

	var stack []*frame
	onPath := make(map[primitive.ObjectID]int)

	push := func(id primitive.ObjectID) error {
		rec, err := tr.engine.recipes.GetByID(ctx, t, id)
		if err != nil {
			return errors.Database(err)
		}
		if rec == nil || rec.IsDeleted {
			return errors.NotFound("recipe").WithDetails(map[string]string{"recipe_id": id.Hex()})
		}
		onPath[id] = len(stack)
		stack = append(stack, &frame{rec: rec})
		return nil
	}

	if err := push(rootID); err != nil {
		return nil, err
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		if f.idx == len(f.rec.Ingredients) {
			fr, err := tr.fold(ctx, t, f.rec.ID, f.rec.Ingredients)
			if err != nil {
				return nil, err
			}
			fr.yield = f.rec.Yield
			tr.memo[f.rec.ID] = fr
			delete(onPath, f.rec.ID)
			stack = stack[:len(stack)-1]
			continue
		}

		ing := f.rec.Ingredients[f.idx]
		f.idx++

		if ing.Quantity.IsNegative() {
			return nil, errors.Validation("ingredient quantity must not be negative").
				WithDetails(map[string]string{"recipe_id": f.rec.ID.Hex(), "source_id": ing.SourceID.Hex()})
		}
		if ing.SourceType != models.IngredientSourceRecipe {
			continue
		}
		if _, done := tr.memo[ing.SourceID]; done {
			continue
		}
		if pos, open := onPath[ing.SourceID]; open {
			path := make([]string, 0, len(stack)-pos+1)
			for _, pf := range stack[pos:] {
				path = append(path, pf.rec.ID.Hex())
			}
			path = append(path, ing.SourceID.Hex())
			return nil, errors.RecipeCycleDetected(path)
		}
		if err := push(ing.SourceID); err != nil {
			return nil, err
		}
	}

	return tr.memo[rootID], nil
}

// fold combines an ingredient list into leaves and cost, resolving
// recipe-typed lines from the memo. Sub-recipes are consumed at their own
// yield: quantity Q of a sub-recipe with yield Y takes Q/Y batches.
func (tr *Traversal) fold(ctx context.Context, t repositories.Tenant, fromRecipeID primitive.ObjectID, ingredients []models.RecipeIngredient) (*flatRecipe, error) {
	fr := &flatRecipe{cost: decimal.Zero}

	for _, ing := range ingredients {
		if ing.Quantity.IsNegative() {
			return nil, errors.Validation("ingredient quantity must not be negative").
				WithDetails(map[string]string{"recipe_id": fromRecipeID.Hex(), "source_id": ing.SourceID.Hex()})
		}

		switch ing.SourceType {
		case models.IngredientSourceInventory:
			fr.leaves = append(fr.leaves, LeafRequirement{
				ItemID:       ing.SourceID,
				Qty:          ing.Quantity,
				FromRecipeID: fromRecipeID,
			})
			fr.cost = fr.cost.Add(ing.Quantity.Mul(ing.CostPerUnit))

		case models.IngredientSourceRecipe:
			sub, ok := tr.memo[ing.SourceID]
			if !ok {
				// Reachable only from FlattenIngredients on a list whose
				// sub-recipe was not pre-expanded.
				var err error
				sub, err = tr.expand(ctx, t, ing.SourceID)
				if err != nil {
					return nil, err
				}
			}
			if !sub.yield.IsPositive() {
				return nil, errors.Validation("sub-recipe yield must be positive").
					WithDetails(map[string]string{"recipe_id": ing.SourceID.Hex()})
			}
			batches := ing.Quantity.Div(sub.yield)
			for _, leaf := range sub.leaves {
				fr.leaves = append(fr.leaves, LeafRequirement{
					ItemID:       leaf.ItemID,
					Qty:          leaf.Qty.Mul(batches),
					FromRecipeID: leaf.FromRecipeID,
				})
			}
			fr.cost = fr.cost.Add(sub.cost.Mul(batches))

		default:
			return nil, errors.Validation("unknown ingredient source type").
				WithDetails(map[string]string{"recipe_id": fromRecipeID.Hex(), "source_type": string(ing.SourceType)})
		}
	}

	fr.cost = money4(fr.cost)
	return fr, nil
}
