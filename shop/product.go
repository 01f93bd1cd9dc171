package shop

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	orm "github.com/medatechnology/orderstore"
)

// IngredientRepository stores ingredients.
type IngredientRepository struct {
	*orm.Store[int64, Ingredient, IngredientPatch]
}

func NewIngredientRepository(db orm.Database, logger orm.Logger) *IngredientRepository {
	return &IngredientRepository{orm.NewStore[int64, Ingredient, IngredientPatch](db, TableIngredient, IngredientID, ingredientCodec{}, logger)}
}

// FindByName returns the ingredient whose name equals name ignoring case, the
// oldest one if several do.
func (r *IngredientRepository) FindByName(ctx context.Context, name string) (*Ingredient, error) {
	return r.QueryOne(ctx, r.Executor(), orm.ParameterizedSQL{
		Query:  `SELECT * FROM "ingredient" WHERE LOWER(name) = ? ORDER BY id LIMIT 1`,
		Values: []interface{}{strings.ToLower(name)},
	})
}

// SearchByName lists the ingredients whose name contains name, by name.
func (r *IngredientRepository) SearchByName(ctx context.Context, name string) ([]Ingredient, error) {
	return r.QueryAll(ctx, r.Executor(), orm.ParameterizedSQL{
		Query:  `SELECT * FROM "ingredient" WHERE LOWER(name) LIKE ?` + orm.LikeEscapeClause + ` ORDER BY name, id`,
		Values: []interface{}{orm.ContainsPattern(name)},
	})
}

// ProductRepository stores products and their ingredient sets.
type ProductRepository struct {
	*orm.Store[int64, Product, ProductPatch]
}

func NewProductRepository(db orm.Database, logger orm.Logger) *ProductRepository {
	return &ProductRepository{orm.NewStore[int64, Product, ProductPatch](db, TableProduct, ProductID, productCodec{}, logger)}
}

// FindByName lists the products whose name contains name ignoring case, by
// name.
func (r *ProductRepository) FindByName(ctx context.Context, name string) ([]Product, error) {
	return r.QueryAll(ctx, r.Executor(), orm.ParameterizedSQL{
		Query:  `SELECT * FROM "product" WHERE LOWER(name) LIKE ?` + orm.LikeEscapeClause + ` ORDER BY name, id`,
		Values: []interface{}{orm.ContainsPattern(name)},
	})
}

// FindByPriceRange lists the products priced between low and high inclusive,
// cheapest first.
func (r *ProductRepository) FindByPriceRange(ctx context.Context, low, high decimal.Decimal) ([]Product, error) {
	return r.QueryAll(ctx, r.Executor(), orm.ParameterizedSQL{
		Query:  `SELECT * FROM "product" WHERE price BETWEEN ? AND ? ORDER BY price, id`,
		Values: []interface{}{low, high},
	})
}

// FindByMinRating lists the products rated at least minRating, best first.
func (r *ProductRepository) FindByMinRating(ctx context.Context, minRating float64) ([]Product, error) {
	return r.QueryAll(ctx, r.Executor(), orm.ParameterizedSQL{
		Query:  `SELECT * FROM "product" WHERE rating >= ? ORDER BY rating DESC, id`,
		Values: []interface{}{minRating},
	})
}

// UpdateRating sets the rating and reports whether the product exists.
func (r *ProductRepository) UpdateRating(ctx context.Context, id int64, rating float64) (bool, error) {
	p, err := r.Update(ctx, id, ProductPatch{Rating: &rating})
	return p != nil, err
}

// AddIngredient links an ingredient to the product. Linking twice is a
// no-op; the result says whether a link was created.
func (r *ProductRepository) AddIngredient(ctx context.Context, productID, ingredientID int64) (bool, error) {
	res := r.Executor().ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
		Query: `INSERT INTO "product_ingredient" (product_id, ingredient_id) VALUES (?, ?)
			ON CONFLICT (product_id, ingredient_id) DO NOTHING`,
		Values: []interface{}{productID, ingredientID},
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemoveIngredient unlinks an ingredient and reports whether it was linked.
func (r *ProductRepository) RemoveIngredient(ctx context.Context, productID, ingredientID int64) (bool, error) {
	res := r.Executor().ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
		Query:  `DELETE FROM "product_ingredient" WHERE product_id = ? AND ingredient_id = ?`,
		Values: []interface{}{productID, ingredientID},
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindAllWithIngredients lists every product with its ingredients, by id.
func (r *ProductRepository) FindAllWithIngredients(ctx context.Context) ([]ProductWithIngredients, error) {
	return r.withIngredients(ctx, orm.Condition{}, "p.id")
}

// FindByIDWithIngredients returns the product with its ingredients, or nil.
func (r *ProductRepository) FindByIDWithIngredients(ctx context.Context, id int64) (*ProductWithIngredients, error) {
	products, err := r.withIngredients(ctx, orm.Condition{Field: "p.id", Operator: "=", Value: id}, "p.id")
	if err != nil || len(products) == 0 {
		return nil, err
	}
	return &products[0], nil
}

// Search finds products by a phrase of whitespace separated words. A product
// matches when every word occurs in its name, or when every word occurs in
// the name of one of its ingredients; different words may hit different
// ingredients. Matching ignores case and treats words literally. Results
// are ordered by product name. A phrase without words lists everything, as
// FindAllWithIngredients does.
func (r *ProductRepository) Search(ctx context.Context, phrase string) ([]ProductWithIngredients, error) {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return r.FindAllWithIngredients(ctx)
	}

	byName := make([]orm.Condition, len(words))
	byIngredient := make([]orm.Condition, len(words))
	for i, word := range words {
		pattern := orm.ContainsPattern(word)
		byName[i] = orm.Expr(`LOWER(p.name) LIKE ?`+orm.LikeEscapeClause, pattern)
		byIngredient[i] = orm.Expr(`EXISTS (SELECT 1 FROM "product_ingredient" spi
			JOIN "ingredient" si ON si.id = spi.ingredient_id
			WHERE spi.product_id = p.id AND LOWER(si.name) LIKE ?`+orm.LikeEscapeClause+`)`, pattern)
	}
	return r.withIngredients(ctx, orm.Or(orm.And(byName...), orm.And(byIngredient...)), "p.name, p.id")
}

// withIngredients runs one left join over products and their ingredients and
// folds the rows per product, keeping the row order.
func (r *ProductRepository) withIngredients(ctx context.Context, where orm.Condition, orderBy string) ([]ProductWithIngredients, error) {
	query := `SELECT p.id, p.name, p.price, p.image, p.rating, i.name AS ingredient
		FROM "product" p
		LEFT JOIN "product_ingredient" pin ON pin.product_id = p.id
		LEFT JOIN "ingredient" i ON i.id = pin.ingredient_id`
	var values []interface{}
	if !where.IsEmpty() {
		var clause string
		clause, values = where.ToWhereString()
		query += " WHERE " + clause
	}
	query += " ORDER BY " + orderBy + ", i.name"

	records, err := r.Executor().SelectSQLParameterized(ctx, orm.ParameterizedSQL{Query: query, Values: values})
	if err != nil {
		return nil, err
	}

	products := []ProductWithIngredients{}
	index := map[int64]int{}
	for _, rec := range records {
		id, err := rec.Int64(string(ProductID))
		if err != nil {
			return nil, err
		}
		at, seen := index[id]
		if !seen {
			product, err := r.Codec().Decode(rec)
			if err != nil {
				return nil, err
			}
			at = len(products)
			index[id] = at
			products = append(products, ProductWithIngredients{Product: product, Ingredients: []string{}})
		}
		if rec.Has("ingredient") {
			name, err := rec.String("ingredient")
			if err != nil {
				return nil, err
			}
			products[at].Ingredients = append(products[at].Ingredients, name)
		}
	}
	return products, nil
}
