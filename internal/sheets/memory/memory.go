// Package memory is an in-process backend used for demos and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"brownies/internal/core"
)

type Store struct {
	mu           sync.Mutex
	shops        map[int64]core.Shop
	varieties    map[int64]core.Variety
	orders       map[int64]core.Order
	nextShop     int64
	nextVariety  int64
	nextOrder    int64
	deletePolicy core.DeletePolicy
}

func New(deletePolicy core.DeletePolicy) *Store {
	return &Store{
		shops:        map[int64]core.Shop{},
		varieties:    map[int64]core.Variety{},
		orders:       map[int64]core.Order{},
		deletePolicy: deletePolicy,
	}
}

// CreateOrder implements sheets.OrderStore
func (s *Store) CreateOrder(_ context.Context, o core.Order) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrder++
	o.ID = s.nextOrder
	s.orders[o.ID] = o
	return o.ID, nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return core.Order{}, core.ErrNotFound
	}
	return o, nil
}

func (s *Store) UpdateOrder(_ context.Context, o core.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; !ok {
		return core.ErrNotFound
	}
	s.orders[o.ID] = o
	return nil
}

func (s *Store) DeleteOrder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *Store) ListOrders(_ context.Context, shopID int64) ([]core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Order
	for _, o := range s.orders {
		if shopID > 0 && o.ShopID != shopID {
			continue
		}
		out = append(out, o)
	}
	sortOrders(out)
	return out, nil
}

func (s *Store) ListOrdersByMonth(_ context.Context, m core.Month) ([]core.Order, error) {
	if _, err := core.NewMonth(m.Year, m.Month); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Order
	for _, o := range s.orders {
		if m.Contains(o.DeliveryDate) {
			out = append(out, o)
		}
	}
	sortOrders(out)
	return out, nil
}

func (s *Store) MarkOrderPaid(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return core.ErrNotFound
	}
	o.PaymentStatus = core.Paid
	o.PaidAmount = o.LineTotal()
	s.orders[id] = o
	return nil
}

func (s *Store) MarkShopOrdersPaid(_ context.Context, shopID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, o := range s.orders {
		if o.ShopID != shopID || o.PaymentStatus == core.Paid {
			continue
		}
		o.PaymentStatus = core.Paid
		o.PaidAmount = o.LineTotal()
		s.orders[id] = o
		n++
	}
	return n, nil
}

func (s *Store) OrderYears(_ context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int]struct{}{}
	for _, o := range s.orders {
		seen[o.DeliveryDate.Year()] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// CreateShop implements sheets.ShopRegistry
func (s *Store) CreateShop(_ context.Context, shop core.Shop) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.shops {
		if existing.Name == shop.Name {
			return 0, core.ErrDuplicateName
		}
	}
	s.nextShop++
	shop.ID = s.nextShop
	s.shops[shop.ID] = shop
	return shop.ID, nil
}

func (s *Store) GetShop(_ context.Context, id int64) (core.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shop, ok := s.shops[id]
	if !ok {
		return core.Shop{}, core.ErrNotFound
	}
	return shop, nil
}

func (s *Store) ListShops(_ context.Context) ([]core.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Shop, 0, len(s.shops))
	for _, shop := range s.shops {
		out = append(out, shop)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateShop(_ context.Context, shop core.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[shop.ID]; !ok {
		return core.ErrNotFound
	}
	for id, existing := range s.shops {
		if id != shop.ID && existing.Name == shop.Name {
			return core.ErrDuplicateName
		}
	}
	s.shops[shop.ID] = shop
	return nil
}

func (s *Store) DeleteShop(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[id]; !ok {
		return core.ErrNotFound
	}
	for oid, o := range s.orders {
		if o.ShopID != id {
			continue
		}
		if s.deletePolicy == core.DeleteBlock {
			return core.ErrReferenced
		}
		delete(s.orders, oid)
	}
	delete(s.shops, id)
	return nil
}

// CreateVariety implements sheets.VarietyRegistry
func (s *Store) CreateVariety(_ context.Context, v core.Variety) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.varieties {
		if existing.Name == v.Name {
			return 0, core.ErrDuplicateName
		}
	}
	s.nextVariety++
	v.ID = s.nextVariety
	s.varieties[v.ID] = v
	return v.ID, nil
}

func (s *Store) GetVariety(_ context.Context, id int64) (core.Variety, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.varieties[id]
	if !ok {
		return core.Variety{}, core.ErrNotFound
	}
	return v, nil
}

func (s *Store) ListVarieties(_ context.Context) ([]core.Variety, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Variety, 0, len(s.varieties))
	for _, v := range s.varieties {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateVariety(_ context.Context, v core.Variety) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.varieties[v.ID]; !ok {
		return core.ErrNotFound
	}
	for id, existing := range s.varieties {
		if id != v.ID && existing.Name == v.Name {
			return core.ErrDuplicateName
		}
	}
	s.varieties[v.ID] = v
	return nil
}

func (s *Store) DeleteVariety(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.varieties[id]; !ok {
		return core.ErrNotFound
	}
	for oid, o := range s.orders {
		if o.VarietyID != id {
			continue
		}
		if s.deletePolicy == core.DeleteBlock {
			return core.ErrReferenced
		}
		delete(s.orders, oid)
	}
	delete(s.varieties, id)
	return nil
}

// Names implements sheets.NameReader
func (s *Store) Names(_ context.Context) (core.NameRegistry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := core.NameRegistry{
		Shops:     make(map[int64]string, len(s.shops)),
		Varieties: make(map[int64]string, len(s.varieties)),
	}
	for id, shop := range s.shops {
		names.Shops[id] = shop.Name
	}
	for id, v := range s.varieties {
		names.Varieties[id] = v.Name
	}
	return names, nil
}

// AppendOrder implements sheets.OrderMirror with a synthetic row reference.
func (s *Store) AppendOrder(_ context.Context, o core.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	return fmt.Sprintf("mem:%d", o.ID), nil
}

// RemoveOrder implements sheets.OrderMirror.
func (s *Store) RemoveOrder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
	return nil
}

func sortOrders(orders []core.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].DeliveryDate.Equal(orders[j].DeliveryDate.Time) {
			return orders[i].DeliveryDate.After(orders[j].DeliveryDate.Time)
		}
		return orders[i].ID > orders[j].ID
	})
}
