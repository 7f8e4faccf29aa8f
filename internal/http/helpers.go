package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"brownies/internal/core"
	applog "brownies/internal/log"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateName), errors.Is(err, core.ErrReferenced):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidQuantity),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidPayment),
		errors.Is(err, core.ErrUnknownReference):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail logs the error and writes the mapped status with a small HTML body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, op,
			applog.FieldError, err)
	} else {
		slog.WarnContext(r.Context(), "Request rejected",
			applog.FieldOperation, op,
			applog.FieldError, err,
			applog.FieldStatusCode, status)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	msg := err.Error()
	if status >= 500 {
		msg = "internal error"
	}
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) failJSON(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "API request failed",
			applog.FieldOperation, op,
			applog.FieldError, err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// render executes a page template, falling back to a 500 when templates
// failed to parse at startup.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err, "template", name)
	}
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1 // remove character
		}
		return r
	}, s)
	return result
}

// context7 bounds a data read so a slow backend can't hang the page.
func context7(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 7*time.Second)
}

// pathInt extracts a numeric path wildcard.
func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, core.ErrInvalidMonth
	}
	return v, nil
}

// pathID extracts the {id} wildcard as a positive int64.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// queryMonth reads year/month query parameters, defaulting to the current
// calendar month when absent.
func queryMonth(r *http.Request) (core.Month, error) {
	now := time.Now()
	year := now.Year()
	month := int(now.Month())
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Month{}, core.ErrInvalidMonth
		}
		year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Month{}, core.ErrInvalidMonth
		}
		month = m
	}
	return core.NewMonth(year, month)
}

// formInt64 parses a required positive integer form field.
func formInt64(r *http.Request, field string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get(field)), 10, 64)
	if err != nil || v <= 0 {
		return 0, core.ErrUnknownReference
	}
	return v, nil
}

// parseOrderForm builds an order from the entry/edit form. When unit_price
// is left empty it falls back to the selected variety's default price.
func (s *Server) parseOrderForm(r *http.Request) (core.Order, error) {
	shopID, err := formInt64(r, "shop_id")
	if err != nil {
		return core.Order{}, err
	}
	varietyID, err := formInt64(r, "variety_id")
	if err != nil {
		return core.Order{}, err
	}

	quantity, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("quantity")), 10, 64)
	if err != nil || quantity <= 0 {
		return core.Order{}, core.ErrInvalidQuantity
	}

	unitPrice := decimal.Zero
	if v := strings.TrimSpace(r.Form.Get("unit_price")); v != "" {
		unitPrice, err = core.ParseAmount(v)
		if err != nil {
			return core.Order{}, err
		}
	} else {
		variety, err := s.varieties.GetVariety(r.Context(), varietyID)
		if err != nil {
			return core.Order{}, err
		}
		unitPrice = variety.DefaultPrice
	}

	deliveryDate := core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)}
	if v := strings.TrimSpace(r.Form.Get("delivery_date")); v != "" {
		deliveryDate, err = core.ParseDate(v)
		if err != nil {
			return core.Order{}, core.ErrInvalidMonth
		}
	}

	o := core.Order{
		ShopID:        shopID,
		VarietyID:     varietyID,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		DeliveryDate:  deliveryDate,
		PaymentStatus: core.PaymentStatus(strings.TrimSpace(r.Form.Get("payment_status"))),
		PaidAmount:    decimal.Zero,
	}
	if o.PaymentStatus == core.Partial {
		o.PaidAmount, err = core.ParseAmount(r.Form.Get("paid_amount"))
		if err != nil {
			return core.Order{}, core.ErrInvalidPayment
		}
	}
	o.NormalizePayment()
	if err := o.Validate(); err != nil {
		return core.Order{}, err
	}
	return o, nil
}

// parseShopForm builds a shop from the add/edit form.
func parseShopForm(r *http.Request) (core.Shop, error) {
	s := core.Shop{
		Name: sanitizeInput(r.Form.Get("name")),
		Type: core.ShopType(strings.TrimSpace(r.Form.Get("shop_type"))),
	}
	if err := s.Validate(); err != nil {
		return core.Shop{}, err
	}
	return s, nil
}

// parseVarietyForm builds a variety from the add/edit form.
func parseVarietyForm(r *http.Request) (core.Variety, error) {
	price, err := core.ParseAmount(r.Form.Get("default_price"))
	if err != nil {
		return core.Variety{}, err
	}
	v := core.Variety{
		Name:         sanitizeInput(r.Form.Get("name")),
		DefaultPrice: price,
	}
	if err := v.Validate(); err != nil {
		return core.Variety{}, err
	}
	return v, nil
}
