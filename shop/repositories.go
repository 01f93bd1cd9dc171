package shop

import (
	orm "github.com/medatechnology/orderstore"
)

// Repositories bundles every repository over one database.
type Repositories struct {
	Roles       *RoleRepository
	Users       *UserRepository
	Products    *ProductRepository
	Ingredients *IngredientRepository
	Carts       *CartRepository
	Orders      *OrderRepository
}

func NewRepositories(db orm.Database, logger orm.Logger) *Repositories {
	return &Repositories{
		Roles:       NewRoleRepository(db, logger),
		Users:       NewUserRepository(db, logger),
		Products:    NewProductRepository(db, logger),
		Ingredients: NewIngredientRepository(db, logger),
		Carts:       NewCartRepository(db, logger),
		Orders:      NewOrderRepository(db, logger),
	}
}
