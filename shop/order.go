package shop

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	orm "github.com/medatechnology/orderstore"
)

// OrderRepository stores orders and their items.
type OrderRepository struct {
	*orm.Store[int64, Order, OrderPatch]
}

func NewOrderRepository(db orm.Database, logger orm.Logger) *OrderRepository {
	return &OrderRepository{orm.NewStore[int64, Order, OrderPatch](db, TableOrder, OrderID, orderCodec{}, logger)}
}

// FindByUserID lists the user's orders, oldest first.
func (r *OrderRepository) FindByUserID(ctx context.Context, userID int64) ([]Order, error) {
	return r.QueryAll(ctx, r.Executor(), orm.ParameterizedSQL{
		Query:  `SELECT * FROM "order" WHERE user_id = ? ORDER BY id`,
		Values: []interface{}{userID},
	})
}

// FindByIDWithItems returns the order with its items and owner, or nil.
func (r *OrderRepository) FindByIDWithItems(ctx context.Context, id int64) (*OrderWithItems, error) {
	return r.withItems(ctx, r.Executor(), id)
}

func (r *OrderRepository) withItems(ctx context.Context, exec orm.Executor, id int64) (*OrderWithItems, error) {
	order, err := r.QueryOne(ctx, exec, orm.ParameterizedSQL{
		Query:  `SELECT * FROM "order" WHERE id = ?`,
		Values: []interface{}{id},
	})
	if err != nil || order == nil {
		return nil, err
	}
	items, err := orderItems.withProducts(ctx, exec, id)
	if err != nil {
		return nil, err
	}
	owner, err := loadOwner(ctx, exec, order.UserID)
	if err != nil {
		return nil, err
	}
	return &OrderWithItems{Order: *order, Items: items, User: owner}, nil
}

// CreateWithItems creates an order for the user with the given items in one
// transaction. The same product twice is a conflict.
func (r *OrderRepository) CreateWithItems(ctx context.Context, userID int64, items []Item) (*OrderWithItems, error) {
	var created *OrderWithItems
	err := r.Executor().RunInTransaction(ctx, func(tx orm.Transaction) error {
		order, err := r.CreateWith(ctx, tx, OrderPatch{UserID: &userID})
		if err != nil {
			return err
		}
		if err := orderItems.insertAll(ctx, tx, order.ID, items); err != nil {
			return err
		}
		created, err = r.withItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if created == nil {
			return orm.WrapInsertError(fmt.Errorf("%w: order %d not readable after insert", orm.ErrIntegrity, order.ID), TableOrder)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AddItem puts count more of the product in the order.
func (r *OrderRepository) AddItem(ctx context.Context, orderID, productID int64, count int) (bool, error) {
	return orderItems.add(ctx, r.Executor(), orderID, productID, count)
}

// RemoveItem takes the product out of the order.
func (r *OrderRepository) RemoveItem(ctx context.Context, orderID, productID int64) (bool, error) {
	return orderItems.remove(ctx, r.Executor(), orderID, productID)
}

// UpdateItemCount sets the product's count; zero or less removes it.
func (r *OrderRepository) UpdateItemCount(ctx context.Context, orderID, productID int64, count int) (bool, error) {
	return orderItems.updateCount(ctx, r.Executor(), orderID, productID, count)
}

// GetOrderTotal is zero for an empty or unknown order.
func (r *OrderRepository) GetOrderTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	return orderItems.total(ctx, r.Executor(), orderID)
}

// GetOrderItemCount is zero for an empty or unknown order.
func (r *OrderRepository) GetOrderItemCount(ctx context.Context, orderID int64) (int64, error) {
	return orderItems.itemCount(ctx, r.Executor(), orderID)
}
