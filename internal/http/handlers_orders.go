package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"brownies/internal/core"
	applog "brownies/internal/log"
)

// orderRow is the template view of one order.
type orderRow struct {
	ID           int64
	Shop         string
	Variety      string
	Quantity     int64
	UnitPrice    string
	LineTotal    string
	Pending      string
	DeliveryDate string
	Status       string
	Unsettled    bool
}

func toOrderRow(o core.Order, names core.NameRegistry) orderRow {
	shop := names.Shops[o.ShopID]
	if shop == "" {
		shop = core.PlaceholderShop
	}
	variety := names.Varieties[o.VarietyID]
	if variety == "" {
		variety = core.PlaceholderVariety
	}
	return orderRow{
		ID:           o.ID,
		Shop:         shop,
		Variety:      variety,
		Quantity:     o.Quantity,
		UnitPrice:    core.FormatRupees(o.UnitPrice),
		LineTotal:    core.FormatRupees(o.LineTotal()),
		Pending:      core.FormatRupees(o.Pending()),
		DeliveryDate: o.DeliveryDate.Format("2006-01-02"),
		Status:       string(o.PaymentStatus),
		Unsettled:    o.PaymentStatus != core.Paid,
	}
}

func (s *Server) orderRows(ctx context.Context, orders []core.Order) ([]orderRow, error) {
	names, err := s.names.Names(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]orderRow, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, toOrderRow(o, names))
	}
	return rows, nil
}

// handleIndex renders the dashboard: current month summary plus the most
// recent orders.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	m := core.Month{Year: now.Year(), Month: int(now.Month())}

	rep, err := s.getMonthlyReport(r.Context(), m)
	if err != nil {
		s.fail(w, r, "index report", err)
		return
	}

	orders, err := s.getOrders(r.Context(), 0)
	if err != nil {
		s.fail(w, r, "index orders", err)
		return
	}
	if len(orders) > 10 {
		orders = orders[:10]
	}
	rows, err := s.orderRows(r.Context(), orders)
	if err != nil {
		s.fail(w, r, "index order rows", err)
		return
	}

	data := struct {
		Year         int
		Month        int
		TotalRevenue string
		TotalMargin  string
		TotalPending string
		OrderCount   int
		Recent       []orderRow
	}{
		Year:         m.Year,
		Month:        m.Month,
		TotalRevenue: core.FormatRupees(rep.TotalRevenue),
		TotalMargin:  core.FormatRupees(rep.TotalMargin),
		TotalPending: core.FormatRupees(rep.TotalPending),
		OrderCount:   rep.OrderCount,
		Recent:       rows,
	}
	s.render(w, r, "index.html", data)
}

// orderGroup is one calendar month of the order history.
type orderGroup struct {
	Label  string
	Orders []orderRow
}

// groupByMonth splits rows into month buckets. Rows arrive newest first, so
// the groups come out newest first too.
func groupByMonth(rows []orderRow) []orderGroup {
	var groups []orderGroup
	for _, row := range rows {
		label := row.DeliveryDate[:7] // YYYY-MM
		if len(groups) == 0 || groups[len(groups)-1].Label != label {
			groups = append(groups, orderGroup{Label: label})
		}
		groups[len(groups)-1].Orders = append(groups[len(groups)-1].Orders, row)
	}
	return groups
}

// handleListOrders renders the order history grouped by month, optionally
// filtered by shop.
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	var shopID int64
	if v := strings.TrimSpace(r.URL.Query().Get("shop")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			s.fail(w, r, "list orders", core.ErrNotFound)
			return
		}
		shopID = id
	}

	orders, err := s.getOrders(r.Context(), shopID)
	if err != nil {
		s.fail(w, r, "list orders", err)
		return
	}
	rows, err := s.orderRows(r.Context(), orders)
	if err != nil {
		s.fail(w, r, "list orders", err)
		return
	}

	shops, err := s.shops.ListShops(r.Context())
	if err != nil {
		s.fail(w, r, "list shops", err)
		return
	}

	data := struct {
		Groups     []orderGroup
		Shops      []core.Shop
		ShopFilter int64
	}{Groups: groupByMonth(rows), Shops: shops, ShopFilter: shopID}
	s.render(w, r, "orders.html", data)
}

type orderFormData struct {
	Title     string
	Action    string
	Shops     []core.Shop
	Varieties []varietyOption
	Order     orderFormValues
}

type varietyOption struct {
	ID           int64
	Name         string
	DefaultPrice string
}

type orderFormValues struct {
	ShopID        int64
	VarietyID     int64
	Quantity      int64
	UnitPrice     string
	DeliveryDate  string
	PaymentStatus string
	PaidAmount    string
}

func (s *Server) orderFormData(ctx context.Context) (orderFormData, error) {
	shops, err := s.shops.ListShops(ctx)
	if err != nil {
		return orderFormData{}, err
	}
	varieties, err := s.varieties.ListVarieties(ctx)
	if err != nil {
		return orderFormData{}, err
	}
	opts := make([]varietyOption, 0, len(varieties))
	for _, v := range varieties {
		opts = append(opts, varietyOption{ID: v.ID, Name: v.Name, DefaultPrice: v.DefaultPrice.StringFixed(2)})
	}
	return orderFormData{Shops: shops, Varieties: opts}, nil
}

func (s *Server) handleNewOrderForm(w http.ResponseWriter, r *http.Request) {
	data, err := s.orderFormData(r.Context())
	if err != nil {
		s.fail(w, r, "order form", err)
		return
	}
	data.Title = "New order"
	data.Action = "/orders/add"
	data.Order = orderFormValues{
		Quantity:      1,
		DeliveryDate:  time.Now().Format("2006-01-02"),
		PaymentStatus: string(core.Unpaid),
	}
	s.render(w, r, "order_form.html", data)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	o, err := s.parseOrderForm(r)
	if err != nil {
		s.fail(w, r, "create order", err)
		return
	}

	id, err := s.orders.CreateOrder(r.Context(), o)
	if err != nil {
		s.fail(w, r, "create order", err)
		return
	}

	s.invalidateOrder(o.ShopID, o.DeliveryDate)
	slog.InfoContext(r.Context(), "Order created",
		applog.FieldOrderID, id,
		applog.FieldShopID, o.ShopID,
		applog.FieldVarietyID, o.VarietyID,
		applog.FieldQuantity, o.Quantity,
		applog.FieldAmount, o.LineTotal().String())
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

func (s *Server) handleEditOrderForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "edit order form", err)
		return
	}
	o, err := s.orders.GetOrder(r.Context(), id)
	if err != nil {
		s.fail(w, r, "edit order form", err)
		return
	}

	data, err := s.orderFormData(r.Context())
	if err != nil {
		s.fail(w, r, "edit order form", err)
		return
	}
	data.Title = "Edit order #" + strconv.FormatInt(id, 10)
	data.Action = "/orders/" + strconv.FormatInt(id, 10) + "/edit"
	data.Order = orderFormValues{
		ShopID:        o.ShopID,
		VarietyID:     o.VarietyID,
		Quantity:      o.Quantity,
		UnitPrice:     o.UnitPrice.StringFixed(2),
		DeliveryDate:  o.DeliveryDate.Format("2006-01-02"),
		PaymentStatus: string(o.PaymentStatus),
		PaidAmount:    o.PaidAmount.StringFixed(2),
	}
	s.render(w, r, "order_form.html", data)
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "update order", err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	// Fetch first so a moved delivery date invalidates the old month too.
	prev, err := s.orders.GetOrder(r.Context(), id)
	if err != nil {
		s.fail(w, r, "update order", err)
		return
	}

	o, err := s.parseOrderForm(r)
	if err != nil {
		s.fail(w, r, "update order", err)
		return
	}
	o.ID = id

	if err := s.orders.UpdateOrder(r.Context(), o); err != nil {
		s.fail(w, r, "update order", err)
		return
	}

	s.invalidateOrder(prev.ShopID, prev.DeliveryDate)
	s.invalidateOrder(o.ShopID, o.DeliveryDate)
	slog.InfoContext(r.Context(), "Order updated", applog.FieldOrderID, id)
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "delete order", err)
		return
	}

	o, err := s.orders.GetOrder(r.Context(), id)
	if err != nil {
		s.fail(w, r, "delete order", err)
		return
	}
	if err := s.orders.DeleteOrder(r.Context(), id); err != nil {
		s.fail(w, r, "delete order", err)
		return
	}

	s.invalidateOrder(o.ShopID, o.DeliveryDate)
	slog.InfoContext(r.Context(), "Order deleted", applog.FieldOrderID, id)
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

func (s *Server) handleMarkOrderPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "mark order paid", err)
		return
	}

	o, err := s.orders.GetOrder(r.Context(), id)
	if err != nil {
		s.fail(w, r, "mark order paid", err)
		return
	}
	if err := s.orders.MarkOrderPaid(r.Context(), id); err != nil {
		s.fail(w, r, "mark order paid", err)
		return
	}

	s.invalidateOrder(o.ShopID, o.DeliveryDate)
	slog.InfoContext(r.Context(), "Order marked paid",
		applog.FieldOrderID, id,
		applog.FieldAmount, o.LineTotal().String())

	_ = r.ParseForm()
	redirect := r.Form.Get("redirect")
	// Local paths only.
	if !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") {
		redirect = "/orders"
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}
