package shop

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	orm "github.com/medatechnology/orderstore"
)

// ConversionStatus is the outcome of ConvertToOrder.
type ConversionStatus int

const (
	// ConversionCreated means an order was created and the cart emptied.
	ConversionCreated ConversionStatus = iota
	// ConversionCartNotFound means there is no such cart. Nothing was written.
	ConversionCartNotFound
	// ConversionCartEmpty means the cart had no items. Nothing was written.
	ConversionCartEmpty
)

func (s ConversionStatus) String() string {
	switch s {
	case ConversionCreated:
		return "created"
	case ConversionCartNotFound:
		return "cart not found"
	case ConversionCartEmpty:
		return "cart empty"
	default:
		return fmt.Sprintf("ConversionStatus(%d)", int(s))
	}
}

// Conversion is the result of ConvertToOrder. OrderID is set only when
// Status is ConversionCreated.
type Conversion struct {
	Status  ConversionStatus
	OrderID int64
	Items   []Item
}

// CartRepository stores carts and their items.
type CartRepository struct {
	*orm.Store[int64, Cart, CartPatch]
	orders *orm.Store[int64, Order, OrderPatch]
	logger orm.Logger
}

func NewCartRepository(db orm.Database, logger orm.Logger) *CartRepository {
	if logger == nil {
		logger = orm.NewNoopLogger()
	}
	return &CartRepository{
		Store:  orm.NewStore[int64, Cart, CartPatch](db, TableCart, CartID, cartCodec{}, logger),
		orders: orm.NewStore[int64, Order, OrderPatch](db, TableOrder, OrderID, orderCodec{}, logger),
		logger: logger.With(orm.String("repository", "cart")),
	}
}

// FindByUserID returns the user's cart, or nil.
func (r *CartRepository) FindByUserID(ctx context.Context, userID int64) (*Cart, error) {
	return r.FindOneBy(ctx, orm.Where(CartUserID, userID))
}

// FindOrCreateByUserID returns the user's cart, creating it on first use.
// The insert is a no-op when the cart exists, so concurrent first calls for
// the same user end up with the same cart.
func (r *CartRepository) FindOrCreateByUserID(ctx context.Context, userID int64) (Cart, error) {
	res := r.Executor().ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
		Query:  `INSERT INTO "cart" (user_id) VALUES (?) ON CONFLICT (user_id) DO NOTHING`,
		Values: []interface{}{userID},
	})
	if res.Error != nil {
		return Cart{}, res.Error
	}
	cart, err := r.FindByUserID(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	if cart == nil {
		// only possible if the cart was deleted in between
		return Cart{}, orm.WrapSelectError(fmt.Errorf("%w: cart of user %d vanished", orm.ErrIntegrity, userID), TableCart)
	}
	return *cart, nil
}

// FindByIDWithItems returns the cart with its items and owner, or nil.
func (r *CartRepository) FindByIDWithItems(ctx context.Context, id int64) (*CartWithItems, error) {
	cart, err := r.FindByID(ctx, id)
	if err != nil || cart == nil {
		return nil, err
	}
	items, err := cartItems.withProducts(ctx, r.Executor(), id)
	if err != nil {
		return nil, err
	}
	owner, err := loadOwner(ctx, r.Executor(), cart.UserID)
	if err != nil {
		return nil, err
	}
	return &CartWithItems{Cart: *cart, Items: items, User: owner}, nil
}

// AddItem puts count more of the product in the cart.
func (r *CartRepository) AddItem(ctx context.Context, cartID, productID int64, count int) (bool, error) {
	return cartItems.add(ctx, r.Executor(), cartID, productID, count)
}

// RemoveItem takes the product out of the cart and reports whether it was in.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID, productID int64) (bool, error) {
	return cartItems.remove(ctx, r.Executor(), cartID, productID)
}

// UpdateItemCount sets how many of the product are in the cart. Zero or less
// removes it.
func (r *CartRepository) UpdateItemCount(ctx context.Context, cartID, productID int64, count int) (bool, error) {
	return cartItems.updateCount(ctx, r.Executor(), cartID, productID, count)
}

// ClearCart removes every item. Clearing an empty cart is fine.
func (r *CartRepository) ClearCart(ctx context.Context, cartID int64) error {
	_, err := cartItems.clear(ctx, r.Executor(), cartID)
	return err
}

// GetCartTotal is the price of everything in the cart, zero for an empty or
// unknown cart.
func (r *CartRepository) GetCartTotal(ctx context.Context, cartID int64) (decimal.Decimal, error) {
	return cartItems.total(ctx, r.Executor(), cartID)
}

// GetCartItemCount is the number of units in the cart, zero for an empty or
// unknown cart.
func (r *CartRepository) GetCartItemCount(ctx context.Context, cartID int64) (int64, error) {
	return cartItems.itemCount(ctx, r.Executor(), cartID)
}

// ConvertToOrder turns the cart's items into a new order of the cart's owner
// and empties the cart, all in one transaction. The cart row is locked first
// where the dialect can, and the items are taken with a single
// DELETE ... RETURNING, so of two concurrent conversions of one cart only
// one sees the items; the other reports ConversionCartEmpty. The cart itself
// stays and is reused.
func (r *CartRepository) ConvertToOrder(ctx context.Context, cartID int64) (Conversion, error) {
	var result Conversion
	db := r.Executor()
	err := db.RunInTransaction(ctx, func(tx orm.Transaction) error {
		result = Conversion{}

		cart, err := r.QueryOne(ctx, tx, orm.ParameterizedSQL{
			Query:  `SELECT * FROM "cart" WHERE id = ?` + db.Dialect().LockForUpdate(),
			Values: []interface{}{cartID},
		})
		if err != nil {
			return err
		}
		if cart == nil {
			result.Status = ConversionCartNotFound
			return nil
		}

		items, err := cartItems.take(ctx, tx, cartID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			result.Status = ConversionCartEmpty
			return nil
		}

		order, err := r.orders.CreateWith(ctx, tx, OrderPatch{UserID: &cart.UserID})
		if err != nil {
			return err
		}
		if err := orderItems.insertAll(ctx, tx, order.ID, items); err != nil {
			return err
		}

		result = Conversion{Status: ConversionCreated, OrderID: order.ID, Items: items}
		return nil
	})
	if err != nil {
		return Conversion{}, err
	}

	if result.Status == ConversionCreated {
		r.logger.Info("cart converted to order",
			orm.Int64("cart_id", cartID),
			orm.Int64("order_id", result.OrderID),
			orm.Int("items", len(result.Items)),
		)
	}
	return result, nil
}
