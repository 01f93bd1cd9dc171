// Package shop is the catalog and ordering domain: users and roles, products
// and their ingredients, per-user carts and the orders they turn into.
package shop

import (
	"github.com/shopspring/decimal"

	orm "github.com/medatechnology/orderstore"
)

// Tables
const (
	TableRole              = "role"
	TableUser              = "user"
	TableProduct           = "product"
	TableIngredient        = "ingredient"
	TableProductIngredient = "product_ingredient"
	TableCart              = "cart"
	TableCartItem          = "cart_item"
	TableOrder             = "order"
	TableOrderItem         = "order_item"
)

// Columns usable in filters, per table.
const (
	RoleName orm.Column = "name"

	UserID           orm.Column = "id"
	UserEmail        orm.Column = "email"
	UserPasswordHash orm.Column = "password_hash"
	UserName         orm.Column = "name"
	UserAddress      orm.Column = "address"
	UserPhone        orm.Column = "phone"
	UserRole         orm.Column = "role"

	ProductID     orm.Column = "id"
	ProductName   orm.Column = "name"
	ProductPrice  orm.Column = "price"
	ProductImage  orm.Column = "image"
	ProductRating orm.Column = "rating"

	IngredientID   orm.Column = "id"
	IngredientName orm.Column = "name"

	CartID     orm.Column = "id"
	CartUserID orm.Column = "user_id"

	OrderID     orm.Column = "id"
	OrderUserID orm.Column = "user_id"
)

// DefaultRoles are seeded by EnsureRoles at startup.
var DefaultRoles = []string{"customer", "admin"}

type Role struct {
	Name string `json:"name"`
}

type RolePatch struct {
	Name *string
}

// User is an account. Email is unique regardless of letter case.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Role         string `json:"role"`
}

// UserPatch holds the fields to write; nil fields are left alone.
type UserPatch struct {
	Email        *string
	PasswordHash *string
	Name         *string
	Address      *string
	Phone        *string
	Role         *string
}

type UserWithRole struct {
	User
	RoleDetails Role `json:"roleDetails"`
}

type Product struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Image  string          `json:"image"`
	Rating float64         `json:"rating"`
}

type ProductPatch struct {
	Name   *string
	Price  *decimal.Decimal
	Image  *string
	Rating *float64
}

// ProductWithIngredients carries the names of the product's ingredients in
// name order. Ingredients is empty, never nil, for a product without any.
type ProductWithIngredients struct {
	Product
	Ingredients []string `json:"ingredients"`
}

type Ingredient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type IngredientPatch struct {
	Name *string
}

// Cart belongs to exactly one user and is reused after every checkout.
type Cart struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"userId"`
}

type CartPatch struct {
	UserID *int64
}

// Order is created from a cart, or directly by CreateWithItems.
type Order struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"userId"`
}

type OrderPatch struct {
	UserID *int64
}

// Item is a product and how many of it, the shape shared by cart and order
// lines.
type Item struct {
	ProductID int64 `json:"productId"`
	Count     int   `json:"count"`
}

// LineItem is an Item with its product.
type LineItem struct {
	Item
	Product Product `json:"product"`
}

type CartWithItems struct {
	Cart
	Items []LineItem `json:"items"`
	User  User       `json:"user"`
}

type OrderWithItems struct {
	Order
	Items []LineItem `json:"items"`
	User  User       `json:"user"`
}
