package erpnext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tillbridge/tillbridge/internal/catalog"
	"github.com/tillbridge/tillbridge/internal/customers"
)

const defaultTimeout = 30 * time.Second

// Config carries the remote endpoint, credentials and the optional pull
// filters. Empty filters pull everything.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Warehouse string
	PriceList string
	Territory string
}

// Client talks to an ERPNext instance over its REST API using token
// authentication.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs an ERPNext client.
func NewClient(logger *slog.Logger, cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

type docResponse[T any] struct {
	Data T `json:"data"`
}

type itemDoc struct {
	ItemCode      string  `json:"item_code"`
	ItemName      string  `json:"item_name"`
	Description   string  `json:"description"`
	StandardRate  float64 `json:"standard_rate"`
	ActualQty     float64 `json:"actual_qty"`
	Barcode       *string `json:"barcode"`
	ItemGroup     *string `json:"item_group"`
	ScaleItemCode *string `json:"scale_item_code"`
}

type customerDoc struct {
	Name         string  `json:"name"`
	CustomerName string  `json:"customer_name"`
	MobileNo     string  `json:"mobile_no"`
	EmailID      *string `json:"email_id"`
}

type paymentMethodDoc struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type taxTemplateDoc struct {
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
}

type priceListDoc struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// InvoiceItem is one line of a POS invoice submission.
type InvoiceItem struct {
	ItemCode string  `json:"item_code"`
	Qty      float64 `json:"qty"`
	Rate     float64 `json:"rate"`
	Amount   float64 `json:"amount"`
}

// InvoicePayment is one payment row of a POS invoice submission.
type InvoicePayment struct {
	ModeOfPayment string  `json:"mode_of_payment"`
	Amount        float64 `json:"amount"`
}

// Invoice is the POS invoice document pushed upstream for a recorded sale.
type Invoice struct {
	Customer   string           `json:"customer"`
	IsPOS      int              `json:"is_pos"`
	PosProfile string           `json:"pos_profile,omitempty"`
	Items      []InvoiceItem    `json:"items"`
	Payments   []InvoicePayment `json:"payments"`
	Total      float64          `json:"grand_total"`
}

// TestConnection verifies the base URL and credentials.
func (c *Client) TestConnection(ctx context.Context) error {
	var out struct {
		Message string `json:"message"`
	}
	return c.doJSON(ctx, http.MethodGet, "/api/method/frappe.auth.get_logged_user", nil, "", &out)
}

// Authenticate checks a username and password against the remote. Used at
// login when the till is online.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	body := map[string]string{"usr": username, "pwd": password}
	var out struct {
		Message string `json:"message"`
	}
	return c.doJSON(ctx, http.MethodPost, "/api/method/login", body, "", &out)
}

// FetchItems pulls the item catalog, scoped to the configured warehouse and
// price list when set.
func (c *Client) FetchItems(ctx context.Context) ([]catalog.Item, error) {
	var out listResponse[itemDoc]
	path := "/api/resource/Item?limit_page_length=0&fields=" + url.QueryEscape(
		`["item_code","item_name","description","standard_rate","actual_qty","barcode","item_group","scale_item_code"]`)
	if c.cfg.Warehouse != "" {
		path += "&filters=" + url.QueryEscape(fmt.Sprintf(`[["warehouse","=","%s"]]`, c.cfg.Warehouse))
	}
	if c.cfg.PriceList != "" {
		path += "&price_list=" + url.QueryEscape(c.cfg.PriceList)
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}

	items := make([]catalog.Item, 0, len(out.Data))
	for _, d := range out.Data {
		items = append(items, catalog.Item{
			ItemCode:      d.ItemCode,
			ItemName:      d.ItemName,
			Description:   d.Description,
			StandardRate:  d.StandardRate,
			CurrentStock:  int(d.ActualQty),
			Barcode:       d.Barcode,
			ItemGroup:     d.ItemGroup,
			ScaleItemCode: d.ScaleItemCode,
		})
	}
	return items, nil
}

// FetchCustomers pulls the remote customer list, scoped to the configured
// territory when set.
func (c *Client) FetchCustomers(ctx context.Context) ([]customers.Customer, error) {
	var out listResponse[customerDoc]
	path := "/api/resource/Customer?limit_page_length=0&fields=" + url.QueryEscape(
		`["name","customer_name","mobile_no","email_id"]`)
	if c.cfg.Territory != "" {
		path += "&filters=" + url.QueryEscape(fmt.Sprintf(`[["territory","=","%s"]]`, c.cfg.Territory))
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}

	list := make([]customers.Customer, 0, len(out.Data))
	for _, d := range out.Data {
		if d.MobileNo == "" {
			continue
		}
		id := d.Name
		list = append(list, customers.Customer{
			CustomerName: d.CustomerName,
			Mobile:       d.MobileNo,
			Email:        d.EmailID,
			ERPNextID:    &id,
			Synced:       true,
		})
	}
	return list, nil
}

// FetchPaymentMethods pulls the configured modes of payment.
func (c *Client) FetchPaymentMethods(ctx context.Context) ([]catalog.PaymentMethod, error) {
	var out listResponse[paymentMethodDoc]
	path := "/api/resource/Mode of Payment?limit_page_length=0&fields=" + url.QueryEscape(`["name","type"]`)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}

	methods := make([]catalog.PaymentMethod, 0, len(out.Data))
	for _, d := range out.Data {
		methods = append(methods, catalog.PaymentMethod{Name: d.Name, Kind: d.Type})
	}
	return methods, nil
}

// FetchTaxTemplates pulls the sales tax templates.
func (c *Client) FetchTaxTemplates(ctx context.Context) ([]catalog.TaxTemplate, error) {
	var out listResponse[taxTemplateDoc]
	path := "/api/resource/Sales Taxes and Charges Template?limit_page_length=0&fields=" + url.QueryEscape(`["name","rate"]`)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}

	templates := make([]catalog.TaxTemplate, 0, len(out.Data))
	for _, d := range out.Data {
		templates = append(templates, catalog.TaxTemplate{Name: d.Name, Rate: d.Rate})
	}
	return templates, nil
}

// FetchPriceLists pulls the selling price lists.
func (c *Client) FetchPriceLists(ctx context.Context) ([]catalog.PriceList, error) {
	var out listResponse[priceListDoc]
	path := "/api/resource/Price List?limit_page_length=0&fields=" + url.QueryEscape(`["name","currency"]`)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}

	lists := make([]catalog.PriceList, 0, len(out.Data))
	for _, d := range out.Data {
		lists = append(lists, catalog.PriceList{Name: d.Name, Currency: d.Currency})
	}
	return lists, nil
}

// CreateCustomer pushes a locally registered customer and returns its remote
// identifier.
func (c *Client) CreateCustomer(ctx context.Context, customer customers.Customer) (string, error) {
	body := map[string]any{
		"customer_name": customer.CustomerName,
		"mobile_no":     customer.Mobile,
	}
	if customer.Email != nil {
		body["email_id"] = *customer.Email
	}

	var out docResponse[customerDoc]
	if err := c.doJSON(ctx, http.MethodPost, "/api/resource/Customer", body, "", &out); err != nil {
		return "", err
	}
	return out.Data.Name, nil
}

// CreateInvoice pushes a POS invoice. The idempotency key lets the remote
// deduplicate resubmissions of the same sale.
func (c *Client) CreateInvoice(ctx context.Context, invoice Invoice, idempotencyKey string) (string, error) {
	var out docResponse[struct {
		Name string `json:"name"`
	}]
	if err := c.doJSON(ctx, http.MethodPost, "/api/resource/Sales Invoice", invoice, idempotencyKey, &out); err != nil {
		return "", err
	}
	return out.Data.Name, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("erpnext: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("erpnext: build request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.cfg.APIKey+":"+c.cfg.APISecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrRemoteUnavailable, err)
	}
	if err := classifyStatus(resp.StatusCode, snippet(raw)); err != nil {
		c.logger.Warn("erpnext request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return err
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("erpnext: decode response: %w", err)
		}
	}
	return nil
}

func snippet(raw []byte) string {
	const max = 256
	if len(raw) > max {
		raw = raw[:max]
	}
	return string(raw)
}
