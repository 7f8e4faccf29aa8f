// Package google mirrors the order book into a Google Spreadsheet with
// three worksheets: Orders, Shops and Varieties. It can act as the full
// data backend or as the mirror target of the sync worker.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"brownies/internal/core"
	ports "brownies/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	ordersSheet    string
	shopsSheet     string
	varietiesSheet string
}

// Ensure interface conformance
var (
	_ ports.OrderStore      = (*Client)(nil)
	_ ports.ShopRegistry    = (*Client)(nil)
	_ ports.VarietyRegistry = (*Client)(nil)
	_ ports.NameReader      = (*Client)(nil)
	_ ports.OrderMirror     = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Optional sheet names: GOOGLE_ORDERS_SHEET_NAME (default "Orders"),
// GOOGLE_SHOPS_SHEET_NAME (default "Shops"),
// GOOGLE_VARIETIES_SHEET_NAME (default "Varieties").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	orders := strings.TrimSpace(os.Getenv("GOOGLE_ORDERS_SHEET_NAME"))
	if orders == "" {
		orders = "Orders"
	}
	shops := strings.TrimSpace(os.Getenv("GOOGLE_SHOPS_SHEET_NAME"))
	if shops == "" {
		shops = "Shops"
	}
	varieties := strings.TrimSpace(os.Getenv("GOOGLE_VARIETIES_SHEET_NAME"))
	if varieties == "" {
		varieties = "Varieties"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:            svc,
		spreadsheetID:  spreadsheetID,
		ordersSheet:    orders,
		shopsSheet:     shops,
		varietiesSheet: varieties,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// record pairs a parsed row with its 1-based sheet row number.
type orderRecord struct {
	row   int
	order core.Order
}

func (c *Client) readOrderRecords(ctx context.Context) ([]orderRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:I", c.ordersSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []orderRecord
	for i, row := range resp.Values {
		if o, ok := parseOrderRow(toStrings(row)); ok {
			out = append(out, orderRecord{row: i + 1, order: o})
		}
	}
	return out, nil
}

func (c *Client) findOrderRow(ctx context.Context, id int64) (int, core.Order, error) {
	records, err := c.readOrderRecords(ctx)
	if err != nil {
		return 0, core.Order{}, err
	}
	for _, rec := range records {
		if rec.order.ID == id {
			return rec.row, rec.order, nil
		}
	}
	return 0, core.Order{}, core.ErrNotFound
}

func (c *Client) nextRowAndID(ctx context.Context) (int, int64, error) {
	rng := fmt.Sprintf("%s!A:A", c.ordersSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", rng, err)
	}
	var maxID int64
	for _, row := range resp.Values {
		cols := toStrings(row)
		if id, err := strconv.ParseInt(safeGet(cols, 0), 10, 64); err == nil && id > maxID {
			maxID = id
		}
	}
	return len(resp.Values) + 1, maxID + 1, nil
}

func (c *Client) writeOrderRow(ctx context.Context, row int, o core.Order) error {
	rng := fmt.Sprintf("%s!A%d:I%d", c.ordersSheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{orderToRow(o)}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// CreateOrder implements ports.OrderStore.
func (c *Client) CreateOrder(ctx context.Context, o core.Order) (int64, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	row, id, err := c.nextRowAndID(ctx)
	if err != nil {
		return 0, err
	}
	o.ID = id
	if err := c.writeOrderRow(ctx, row, o); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (core.Order, error) {
	_, o, err := c.findOrderRow(ctx, id)
	return o, err
}

func (c *Client) UpdateOrder(ctx context.Context, o core.Order) error {
	row, _, err := c.findOrderRow(ctx, o.ID)
	if err != nil {
		return err
	}
	return c.writeOrderRow(ctx, row, o)
}

// DeleteOrder clears the row in place. Cleared rows are skipped on read
// and reclaimed only by manual sheet maintenance.
func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	row, _, err := c.findOrderRow(ctx, id)
	if err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!A%d:I%d", c.ordersSheet, row, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) ListOrders(ctx context.Context, shopID int64) ([]core.Order, error) {
	records, err := c.readOrderRecords(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Order
	for _, rec := range records {
		if shopID > 0 && rec.order.ShopID != shopID {
			continue
		}
		out = append(out, rec.order)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeliveryDate.Equal(out[j].DeliveryDate.Time) {
			return out[i].DeliveryDate.After(out[j].DeliveryDate.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (c *Client) ListOrdersByMonth(ctx context.Context, m core.Month) ([]core.Order, error) {
	if _, err := core.NewMonth(m.Year, m.Month); err != nil {
		return nil, err
	}
	orders, err := c.ListOrders(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.Order, 0, len(orders))
	for _, o := range orders {
		if m.Contains(o.DeliveryDate) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (c *Client) MarkOrderPaid(ctx context.Context, id int64) error {
	row, o, err := c.findOrderRow(ctx, id)
	if err != nil {
		return err
	}
	o.PaymentStatus = core.Paid
	o.PaidAmount = o.LineTotal()
	return c.writeOrderRow(ctx, row, o)
}

func (c *Client) MarkShopOrdersPaid(ctx context.Context, shopID int64) (int, error) {
	records, err := c.readOrderRecords(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range records {
		if rec.order.ShopID != shopID || rec.order.PaymentStatus == core.Paid {
			continue
		}
		o := rec.order
		o.PaymentStatus = core.Paid
		o.PaidAmount = o.LineTotal()
		if err := c.writeOrderRow(ctx, rec.row, o); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (c *Client) OrderYears(ctx context.Context) ([]int, error) {
	records, err := c.readOrderRecords(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[int]struct{}{}
	for _, rec := range records {
		seen[rec.order.DeliveryDate.Year()] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// AppendOrder implements ports.OrderMirror. An existing row for the same
// order ID is updated in place so repeated sync messages stay idempotent.
func (c *Client) AppendOrder(ctx context.Context, o core.Order) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	if row, _, err := c.findOrderRow(ctx, o.ID); err == nil {
		if err := c.writeOrderRow(ctx, row, o); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s!A%d:I%d", c.ordersSheet, row, row), nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return "", err
	}

	row, _, err := c.nextRowAndID(ctx)
	if err != nil {
		return "", err
	}
	if err := c.writeOrderRow(ctx, row, o); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s!A%d:I%d", c.ordersSheet, row, row), nil
}

// RemoveOrder implements ports.OrderMirror.
func (c *Client) RemoveOrder(ctx context.Context, id int64) error {
	err := c.DeleteOrder(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Already gone from the sheet, nothing to do.
		return nil
	}
	return err
}

func (c *Client) readShops(ctx context.Context) (map[int]core.Shop, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:C", c.shopsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := map[int]core.Shop{}
	for i, row := range resp.Values {
		if s, ok := parseShopRow(toStrings(row)); ok {
			out[i+1] = s
		}
	}
	return out, nil
}

// CreateShop implements ports.ShopRegistry.
func (c *Client) CreateShop(ctx context.Context, s core.Shop) (int64, error) {
	shops, err := c.readShops(ctx)
	if err != nil {
		return 0, err
	}
	var maxID int64
	for _, existing := range shops {
		if strings.EqualFold(existing.Name, s.Name) {
			return 0, core.ErrDuplicateName
		}
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	s.ID = maxID + 1

	rng := fmt.Sprintf("%s!A:C", c.shopsSheet)
	vr := &gsheet.ValueRange{Values: [][]any{shopToRow(s)}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append shop: %w", err)
	}
	return s.ID, nil
}

func (c *Client) GetShop(ctx context.Context, id int64) (core.Shop, error) {
	shops, err := c.readShops(ctx)
	if err != nil {
		return core.Shop{}, err
	}
	for _, s := range shops {
		if s.ID == id {
			return s, nil
		}
	}
	return core.Shop{}, core.ErrNotFound
}

func (c *Client) ListShops(ctx context.Context) ([]core.Shop, error) {
	shops, err := c.readShops(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Shop, 0, len(shops))
	for _, s := range shops {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Client) UpdateShop(ctx context.Context, s core.Shop) error {
	shops, err := c.readShops(ctx)
	if err != nil {
		return err
	}
	targetRow := 0
	for row, existing := range shops {
		if existing.ID == s.ID {
			targetRow = row
			continue
		}
		if strings.EqualFold(existing.Name, s.Name) {
			return core.ErrDuplicateName
		}
	}
	if targetRow == 0 {
		return core.ErrNotFound
	}
	rng := fmt.Sprintf("%s!A%d:C%d", c.shopsSheet, targetRow, targetRow)
	vr := &gsheet.ValueRange{Values: [][]any{shopToRow(s)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) DeleteShop(ctx context.Context, id int64) error {
	shops, err := c.readShops(ctx)
	if err != nil {
		return err
	}
	targetRow := 0
	for row, s := range shops {
		if s.ID == id {
			targetRow = row
			break
		}
	}
	if targetRow == 0 {
		return core.ErrNotFound
	}

	orders, err := c.ListOrders(ctx, id)
	if err != nil {
		return err
	}
	if len(orders) > 0 {
		return core.ErrReferenced
	}

	rng := fmt.Sprintf("%s!A%d:C%d", c.shopsSheet, targetRow, targetRow)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) readVarieties(ctx context.Context) (map[int]core.Variety, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:C", c.varietiesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := map[int]core.Variety{}
	for i, row := range resp.Values {
		if v, ok := parseVarietyRow(toStrings(row)); ok {
			out[i+1] = v
		}
	}
	return out, nil
}

// CreateVariety implements ports.VarietyRegistry.
func (c *Client) CreateVariety(ctx context.Context, v core.Variety) (int64, error) {
	varieties, err := c.readVarieties(ctx)
	if err != nil {
		return 0, err
	}
	var maxID int64
	for _, existing := range varieties {
		if strings.EqualFold(existing.Name, v.Name) {
			return 0, core.ErrDuplicateName
		}
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	v.ID = maxID + 1

	rng := fmt.Sprintf("%s!A:C", c.varietiesSheet)
	vr := &gsheet.ValueRange{Values: [][]any{varietyToRow(v)}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append variety: %w", err)
	}
	return v.ID, nil
}

func (c *Client) GetVariety(ctx context.Context, id int64) (core.Variety, error) {
	varieties, err := c.readVarieties(ctx)
	if err != nil {
		return core.Variety{}, err
	}
	for _, v := range varieties {
		if v.ID == id {
			return v, nil
		}
	}
	return core.Variety{}, core.ErrNotFound
}

func (c *Client) ListVarieties(ctx context.Context) ([]core.Variety, error) {
	varieties, err := c.readVarieties(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Variety, 0, len(varieties))
	for _, v := range varieties {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Client) UpdateVariety(ctx context.Context, v core.Variety) error {
	varieties, err := c.readVarieties(ctx)
	if err != nil {
		return err
	}
	targetRow := 0
	for row, existing := range varieties {
		if existing.ID == v.ID {
			targetRow = row
			continue
		}
		if strings.EqualFold(existing.Name, v.Name) {
			return core.ErrDuplicateName
		}
	}
	if targetRow == 0 {
		return core.ErrNotFound
	}
	rng := fmt.Sprintf("%s!A%d:C%d", c.varietiesSheet, targetRow, targetRow)
	vr := &gsheet.ValueRange{Values: [][]any{varietyToRow(v)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) DeleteVariety(ctx context.Context, id int64) error {
	varieties, err := c.readVarieties(ctx)
	if err != nil {
		return err
	}
	targetRow := 0
	for row, v := range varieties {
		if v.ID == id {
			targetRow = row
			break
		}
	}
	if targetRow == 0 {
		return core.ErrNotFound
	}

	orders, err := c.ListOrders(ctx, 0)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.VarietyID == id {
			return core.ErrReferenced
		}
	}

	rng := fmt.Sprintf("%s!A%d:C%d", c.varietiesSheet, targetRow, targetRow)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// Names implements ports.NameReader.
func (c *Client) Names(ctx context.Context) (core.NameRegistry, error) {
	names := core.NameRegistry{
		Shops:     map[int64]string{},
		Varieties: map[int64]string{},
	}
	shops, err := c.readShops(ctx)
	if err != nil {
		return names, err
	}
	for _, s := range shops {
		names.Shops[s.ID] = s.Name
	}
	varieties, err := c.readVarieties(ctx)
	if err != nil {
		return names, err
	}
	for _, v := range varieties {
		names.Varieties[v.ID] = v.Name
	}
	return names, nil
}

// EnsureHeaders writes the worksheet header rows when the sheets are empty.
func (c *Client) EnsureHeaders(ctx context.Context) error {
	headers := []struct {
		sheet  string
		cols   string
		header []any
	}{
		{c.ordersSheet, "A1:I1", orderHeader},
		{c.shopsSheet, "A1:C1", shopHeader},
		{c.varietiesSheet, "A1:C1", varietyHeader},
	}
	for _, h := range headers {
		rng := fmt.Sprintf("%s!%s", h.sheet, h.cols)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read %s: %w", rng, err)
		}
		if len(resp.Values) > 0 {
			continue
		}
		vr := &gsheet.ValueRange{Values: [][]any{h.header}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header %s: %w", rng, err)
		}
	}
	return nil
}
