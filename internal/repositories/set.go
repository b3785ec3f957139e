package repositories

import "storefront/internal/database"

// Set bundles the repositories of one store.
type Set struct {
	Users    UserRepository
	Products ProductRepository
	Orders   OrderRepository
}

// NewSet builds the repositories matching the store's driver.
func NewSet(store *database.Store) Set {
	if store.Mongo != nil {
		return Set{
			Users:    NewMongoUserRepository(store.Mongo),
			Products: NewMongoProductRepository(store.Mongo),
			Orders:   NewMongoOrderRepository(store.Mongo),
		}
	}
	return Set{
		Users:    NewGORMUserRepository(store.SQL),
		Products: NewGORMProductRepository(store.SQL),
		Orders:   NewGORMOrderRepository(store.SQL),
	}
}
