package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"brownies/internal/core"
)

// Worksheet column layouts. Row 1 of every sheet is the header.
var (
	orderHeader   = []any{"ID", "Shop ID", "Variety ID", "Quantity", "Unit Price", "Delivery Date", "Payment Status", "Paid Amount", "Created At"}
	shopHeader    = []any{"ID", "Name", "Type"}
	varietyHeader = []any{"ID", "Name", "Default Price"}
)

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseOrderRow decodes one Orders row. Rows with a blank or non-numeric
// ID column (headers, cleared rows) are skipped, not errors.
func parseOrderRow(cols []string) (core.Order, bool) {
	id, err := strconv.ParseInt(safeGet(cols, 0), 10, 64)
	if err != nil || id <= 0 {
		return core.Order{}, false
	}
	shopID, err := strconv.ParseInt(safeGet(cols, 1), 10, 64)
	if err != nil {
		return core.Order{}, false
	}
	varietyID, err := strconv.ParseInt(safeGet(cols, 2), 10, 64)
	if err != nil {
		return core.Order{}, false
	}
	qty, err := strconv.ParseInt(safeGet(cols, 3), 10, 64)
	if err != nil {
		return core.Order{}, false
	}
	unitPrice, err := parseSheetAmount(safeGet(cols, 4))
	if err != nil {
		return core.Order{}, false
	}
	delivery, err := core.ParseDate(safeGet(cols, 5))
	if err != nil {
		return core.Order{}, false
	}
	status := core.PaymentStatus(strings.ToLower(safeGet(cols, 6)))
	switch status {
	case core.Paid, core.Unpaid, core.Partial:
	default:
		status = core.Unpaid
	}
	paid := decimal.Zero
	if s := safeGet(cols, 7); s != "" {
		if p, err := parseSheetAmount(s); err == nil {
			paid = p
		}
	}

	return core.Order{
		ID:            id,
		ShopID:        shopID,
		VarietyID:     varietyID,
		Quantity:      qty,
		UnitPrice:     unitPrice,
		DeliveryDate:  delivery,
		PaymentStatus: status,
		PaidAmount:    paid,
	}, true
}

func parseShopRow(cols []string) (core.Shop, bool) {
	id, err := strconv.ParseInt(safeGet(cols, 0), 10, 64)
	if err != nil || id <= 0 {
		return core.Shop{}, false
	}
	name := safeGet(cols, 1)
	if name == "" {
		return core.Shop{}, false
	}
	shopType := core.ShopType(strings.ToLower(safeGet(cols, 2)))
	if shopType.Validate() != nil {
		shopType = core.Retail
	}
	return core.Shop{ID: id, Name: name, Type: shopType}, true
}

func parseVarietyRow(cols []string) (core.Variety, bool) {
	id, err := strconv.ParseInt(safeGet(cols, 0), 10, 64)
	if err != nil || id <= 0 {
		return core.Variety{}, false
	}
	name := safeGet(cols, 1)
	if name == "" {
		return core.Variety{}, false
	}
	price, err := parseSheetAmount(safeGet(cols, 2))
	if err != nil {
		return core.Variety{}, false
	}
	return core.Variety{ID: id, Name: name, DefaultPrice: price}, true
}

// parseSheetAmount tolerates decimal commas and currency prefixes that
// spreadsheet formatting sometimes adds.
func parseSheetAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(s)
}

func orderToRow(o core.Order) []any {
	created := ""
	if !o.CreatedAt.IsZero() {
		created = o.CreatedAt.UTC().Format("2006-01-02 15:04:05")
	}
	return []any{
		strconv.FormatInt(o.ID, 10),
		strconv.FormatInt(o.ShopID, 10),
		strconv.FormatInt(o.VarietyID, 10),
		strconv.FormatInt(o.Quantity, 10),
		o.UnitPrice.String(),
		o.DeliveryDate.Format("2006-01-02"),
		string(o.PaymentStatus),
		o.PaidAmount.String(),
		created,
	}
}

func shopToRow(s core.Shop) []any {
	return []any{strconv.FormatInt(s.ID, 10), s.Name, string(s.Type)}
}

func varietyToRow(v core.Variety) []any {
	return []any{strconv.FormatInt(v.ID, 10), v.Name, v.DefaultPrice.String()}
}
