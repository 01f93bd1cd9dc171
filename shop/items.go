package shop

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	orm "github.com/medatechnology/orderstore"
)

// lineItems is the (parent, product, count) association behind both
// cart_item and order_item.
type lineItems struct {
	table  string
	parent string
}

var (
	cartItems  = lineItems{table: TableCartItem, parent: "cart_id"}
	orderItems = lineItems{table: TableOrderItem, parent: "order_id"}
)

func (l lineItems) quoted() string { return orm.QuoteIdentifier(l.table) }

// add inserts the item, or adds count to the existing one. A count of zero
// or less changes nothing.
func (l lineItems) add(ctx context.Context, exec orm.Executor, parentID, productID int64, count int) (bool, error) {
	if count <= 0 {
		return false, nil
	}
	res := exec.ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
		Query: fmt.Sprintf(
			`INSERT INTO %[1]s (%[2]s, product_id, count) VALUES (?, ?, ?)
			ON CONFLICT (%[2]s, product_id) DO UPDATE SET count = %[1]s.count + excluded.count`,
			l.quoted(), l.parent),
		Values: []interface{}{parentID, productID, count},
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// insertAll writes new items in one statement. An item that already exists
// is a conflict.
func (l lineItems) insertAll(ctx context.Context, exec orm.Executor, parentID int64, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	tuples := make([]string, len(items))
	values := make([]interface{}, 0, 3*len(items))
	for i, item := range items {
		tuples[i] = "(?, ?, ?)"
		values = append(values, parentID, item.ProductID, item.Count)
	}
	res := exec.ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
		Query: fmt.Sprintf("INSERT INTO %s (%s, product_id, count) VALUES %s",
			l.quoted(), l.parent, strings.Join(tuples, ", ")),
		Values: values,
	})
	return res.Error
}

func (l lineItems) remove(ctx context.Context, exec orm.Executor, parentID, productID int64) (bool, error) {
	res := exec.ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
		Query:  fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND product_id = ?", l.quoted(), l.parent),
		Values: []interface{}{parentID, productID},
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// updateCount sets the count of an existing item; a count of zero or less
// removes it.
func (l lineItems) updateCount(ctx context.Context, exec orm.Executor, parentID, productID int64, count int) (bool, error) {
	if count <= 0 {
		return l.remove(ctx, exec, parentID, productID)
	}
	res := exec.ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
		Query:  fmt.Sprintf("UPDATE %s SET count = ? WHERE %s = ? AND product_id = ?", l.quoted(), l.parent),
		Values: []interface{}{count, parentID, productID},
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// clear deletes every item of the parent and returns how many there were.
func (l lineItems) clear(ctx context.Context, exec orm.Executor, parentID int64) (int, error) {
	res := exec.ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
		Query:  fmt.Sprintf("DELETE FROM %s WHERE %s = ?", l.quoted(), l.parent),
		Values: []interface{}{parentID},
	})
	return res.RowsAffected, res.Error
}

// take deletes every item of the parent and returns what was deleted,
// ordered by product id. The rows are gone once this returns, so two
// transactions can never both take the same items.
func (l lineItems) take(ctx context.Context, exec orm.Executor, parentID int64) ([]Item, error) {
	records, err := exec.SelectSQLParameterized(ctx, orm.ParameterizedSQL{
		Query:  fmt.Sprintf("DELETE FROM %s WHERE %s = ? RETURNING product_id, count", l.quoted(), l.parent),
		Values: []interface{}{parentID},
	})
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		item, err := decodeItem(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

// total is the sum of price times count, zero when there are no items. The
// products are added up here rather than in SQL: SQLite keeps NUMERIC as REAL,
// so its SUM drifts while each single price still reads back exactly.
func (l lineItems) total(ctx context.Context, exec orm.Executor, parentID int64) (decimal.Decimal, error) {
	records, err := exec.SelectSQLParameterized(ctx, orm.ParameterizedSQL{
		Query: fmt.Sprintf(`SELECT li.product_id, li.count, p.price
			FROM %s li JOIN "product" p ON p.id = li.product_id
			WHERE li.%s = ?`, l.quoted(), l.parent),
		Values: []interface{}{parentID},
	})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, rec := range records {
		item, err := decodeItem(rec)
		if err != nil {
			return decimal.Zero, err
		}
		price, err := rec.Decimal(string(ProductPrice))
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Count))))
	}
	return total, nil
}

// itemCount is the sum of counts, zero when there are no items.
func (l lineItems) itemCount(ctx context.Context, exec orm.Executor, parentID int64) (int64, error) {
	records, err := exec.SelectSQLParameterized(ctx, orm.ParameterizedSQL{
		Query:  fmt.Sprintf("SELECT COALESCE(SUM(count), 0) AS total_items FROM %s WHERE %s = ?", l.quoted(), l.parent),
		Values: []interface{}{parentID},
	})
	if err != nil {
		return 0, err
	}
	if len(records) != 1 {
		return 0, orm.WrapSelectError(fmt.Errorf("%w: aggregate returned %d rows", orm.ErrIntegrity, len(records)), l.table)
	}
	return records[0].Int64("total_items")
}

// withProducts lists the parent's items with their products, by product name.
func (l lineItems) withProducts(ctx context.Context, exec orm.Executor, parentID int64) ([]LineItem, error) {
	records, err := exec.SelectSQLParameterized(ctx, orm.ParameterizedSQL{
		Query: fmt.Sprintf(`SELECT li.product_id, li.count, p.id, p.name, p.price, p.image, p.rating
			FROM %s li JOIN "product" p ON p.id = li.product_id
			WHERE li.%s = ?
			ORDER BY p.name, p.id`, l.quoted(), l.parent),
		Values: []interface{}{parentID},
	})
	if err != nil {
		return nil, err
	}
	items := make([]LineItem, 0, len(records))
	for _, rec := range records {
		item, err := decodeItem(rec)
		if err != nil {
			return nil, err
		}
		product, err := productCodec{}.Decode(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, LineItem{Item: item, Product: product})
	}
	return items, nil
}

func decodeItem(rec orm.DBRecord) (Item, error) {
	productID, err := rec.Int64("product_id")
	if err != nil {
		return Item{}, err
	}
	count, err := rec.Int("count")
	if err != nil {
		return Item{}, err
	}
	return Item{ProductID: productID, Count: count}, nil
}

// loadOwner reads the user a cart or order belongs to. The foreign key
// guarantees it exists.
func loadOwner(ctx context.Context, exec orm.Executor, userID int64) (User, error) {
	records, err := exec.SelectSQLParameterized(ctx, orm.ParameterizedSQL{
		Query:  `SELECT * FROM "user" WHERE id = ?`,
		Values: []interface{}{userID},
	})
	if err != nil {
		return User{}, err
	}
	if len(records) != 1 {
		return User{}, orm.WrapSelectError(fmt.Errorf("%w: owner %d not found", orm.ErrIntegrity, userID), TableUser)
	}
	return userCodec{}.Decode(records[0])
}
