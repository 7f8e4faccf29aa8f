package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"brownies/internal/core"
	applog "brownies/internal/log"
)

// shopRow is the template view of one shop with its outstanding balance.
type shopRow struct {
	ID      int64
	Name    string
	Type    string
	Orders  int
	Pending string
	Owes    bool
}

// handleListShops renders the shop registry with per-shop pending balances.
func (s *Server) handleListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := s.shops.ListShops(r.Context())
	if err != nil {
		s.fail(w, r, "list shops", err)
		return
	}

	orders, err := s.getOrders(r.Context(), 0)
	if err != nil {
		s.fail(w, r, "list shops", err)
		return
	}
	counts := make(map[int64]int)
	pending := make(map[int64]decimal.Decimal)
	for _, o := range orders {
		counts[o.ShopID]++
		p, ok := pending[o.ShopID]
		if !ok {
			p = decimal.Zero
		}
		pending[o.ShopID] = p.Add(o.Pending())
	}

	rows := make([]shopRow, 0, len(shops))
	for _, sh := range shops {
		p, ok := pending[sh.ID]
		if !ok {
			p = decimal.Zero
		}
		rows = append(rows, shopRow{
			ID:      sh.ID,
			Name:    sh.Name,
			Type:    string(sh.Type),
			Orders:  counts[sh.ID],
			Pending: core.FormatRupees(p),
			Owes:    p.IsPositive(),
		})
	}
	s.render(w, r, "shops.html", struct{ Shops []shopRow }{Shops: rows})
}

func (s *Server) handleCreateShop(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	shop, err := parseShopForm(r)
	if err != nil {
		s.fail(w, r, "create shop", err)
		return
	}

	id, err := s.shops.CreateShop(r.Context(), shop)
	if err != nil {
		s.fail(w, r, "create shop", err)
		return
	}

	slog.InfoContext(r.Context(), "Shop created", applog.FieldShopID, id, "name", shop.Name)
	http.Redirect(w, r, "/shops", http.StatusSeeOther)
}

func (s *Server) handleEditShopForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "edit shop form", err)
		return
	}
	shop, err := s.shops.GetShop(r.Context(), id)
	if err != nil {
		s.fail(w, r, "edit shop form", err)
		return
	}
	data := struct {
		Title  string
		Action string
		Name   string
		Type   string
	}{
		Title:  "Edit shop",
		Action: "/shops/" + strconv.FormatInt(id, 10) + "/edit",
		Name:   shop.Name,
		Type:   string(shop.Type),
	}
	s.render(w, r, "shop_form.html", data)
}

func (s *Server) handleUpdateShop(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "update shop", err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	shop, err := parseShopForm(r)
	if err != nil {
		s.fail(w, r, "update shop", err)
		return
	}
	shop.ID = id

	if err := s.shops.UpdateShop(r.Context(), shop); err != nil {
		s.fail(w, r, "update shop", err)
		return
	}

	// Names changed, so cached report labels are stale.
	s.reportCache.Purge()
	slog.InfoContext(r.Context(), "Shop updated", applog.FieldShopID, id)
	http.Redirect(w, r, "/shops", http.StatusSeeOther)
}

func (s *Server) handleDeleteShop(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "delete shop", err)
		return
	}

	if err := s.shops.DeleteShop(r.Context(), id); err != nil {
		s.fail(w, r, "delete shop", err)
		return
	}

	// Under the cascade policy orders went with the shop.
	s.invalidateAll()
	slog.InfoContext(r.Context(), "Shop deleted", applog.FieldShopID, id)
	http.Redirect(w, r, "/shops", http.StatusSeeOther)
}

// handleShopBill renders the outstanding orders of one shop with the total
// amount due, ready to be shown to the customer.
func (s *Server) handleShopBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "shop bill", err)
		return
	}
	shop, err := s.shops.GetShop(r.Context(), id)
	if err != nil {
		s.fail(w, r, "shop bill", err)
		return
	}

	orders, err := s.getOrders(r.Context(), id)
	if err != nil {
		s.fail(w, r, "shop bill", err)
		return
	}

	names, err := s.names.Names(r.Context())
	if err != nil {
		s.fail(w, r, "shop bill", err)
		return
	}

	total := decimal.Zero
	rows := make([]orderRow, 0, len(orders))
	for _, o := range orders {
		if o.PaymentStatus == core.Paid {
			continue
		}
		total = total.Add(o.Pending())
		rows = append(rows, toOrderRow(o, names))
	}

	data := struct {
		Shop     core.Shop
		Orders   []orderRow
		TotalDue string
		HasDue   bool
	}{
		Shop:     shop,
		Orders:   rows,
		TotalDue: core.FormatRupees(total),
		HasDue:   total.IsPositive(),
	}
	s.render(w, r, "bill.html", data)
}

func (s *Server) handleMarkShopOrdersPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "mark shop orders paid", err)
		return
	}

	count, err := s.orders.MarkShopOrdersPaid(r.Context(), id)
	if err != nil {
		s.fail(w, r, "mark shop orders paid", err)
		return
	}

	// Settled orders can span many months.
	s.invalidateAll()
	slog.InfoContext(r.Context(), "Shop orders settled",
		applog.FieldShopID, id,
		"settled", count)
	http.Redirect(w, r, "/shops/"+strconv.FormatInt(id, 10)+"/bill", http.StatusSeeOther)
}
