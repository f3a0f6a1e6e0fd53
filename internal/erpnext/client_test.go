package erpnext

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillbridge/tillbridge/internal/customers"
	"github.com/tillbridge/tillbridge/internal/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "token key:secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[
			{"item_code":"ITM-001","item_name":"Milk 1L","standard_rate":0.450,"actual_qty":12,"barcode":"6291041500213"},
			{"item_code":"ITM-TOM","item_name":"Tomato","scale_item_code":"2121"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(testLogger(), Config{BaseURL: srv.URL, APIKey: "key", APISecret: "secret"})
	items, err := client.FetchItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "ITM-001", items[0].ItemCode)
	require.Equal(t, 12, items[0].CurrentStock)
	require.NotNil(t, items[1].ScaleItemCode)
	require.Equal(t, "2121", *items[1].ScaleItemCode)
}

func TestFetchItemsAppliesPullFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Query().Get("filters"), "Main Store")
		require.Equal(t, "Standard Selling", r.URL.Query().Get("price_list"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(testLogger(), Config{
		BaseURL:   srv.URL,
		APIKey:    "key",
		APISecret: "secret",
		Warehouse: "Main Store",
		PriceList: "Standard Selling",
	})
	_, err := client.FetchItems(context.Background())
	require.NoError(t, err)
}

func TestFetchCustomersSkipsMissingMobile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"name":"CUST-0001","customer_name":"Aisha","mobile_no":"96550001122"},
			{"name":"CUST-0002","customer_name":"No Mobile","mobile_no":""}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(testLogger(), Config{BaseURL: srv.URL, APIKey: "key", APISecret: "secret"})
	list, err := client.FetchCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "96550001122", list[0].Mobile)
	require.True(t, list[0].Synced)
}

func TestCreateCustomer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "Aisha", body["customer_name"])
		_, _ = w.Write([]byte(`{"data":{"name":"CUST-0042"}}`))
	}))
	defer srv.Close()

	client := NewClient(testLogger(), Config{BaseURL: srv.URL, APIKey: "key", APISecret: "secret"})
	id, err := client.CreateCustomer(context.Background(), customers.Customer{
		CustomerName: "Aisha",
		Mobile:       "96550001122",
	})
	require.NoError(t, err)
	require.Equal(t, "CUST-0042", id)
}

func TestCreateInvoiceSendsIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "sale-7-key", r.Header.Get("Idempotency-Key"))
		_, _ = w.Write([]byte(`{"data":{"name":"ACC-SINV-0007"}}`))
	}))
	defer srv.Close()

	client := NewClient(testLogger(), Config{BaseURL: srv.URL, APIKey: "key", APISecret: "secret"})
	name, err := client.CreateInvoice(context.Background(), Invoice{
		Customer: "CUST-0001",
		IsPOS:    1,
		Items:    []InvoiceItem{{ItemCode: "ITM-001", Qty: 1, Rate: 0.450, Amount: 0.450}},
		Payments: []InvoicePayment{{ModeOfPayment: "Cash", Amount: 0.450}},
		Total:    0.450,
	}, "sale-7-key")
	require.NoError(t, err)
	require.Equal(t, "ACC-SINV-0007", name)
}

func TestServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testLogger(), Config{BaseURL: srv.URL, APIKey: "key", APISecret: "secret"})
	err := client.TestConnection(context.Background())
	require.ErrorIs(t, err, ErrRemoteUnavailable)
	require.ErrorIs(t, err, shared.ErrRemote)
}

func TestClientErrorIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad doc", http.StatusConflict)
	}))
	defer srv.Close()

	client := NewClient(testLogger(), Config{BaseURL: srv.URL, APIKey: "key", APISecret: "secret"})
	_, err := client.CreateInvoice(context.Background(), Invoice{}, "k")
	require.ErrorIs(t, err, ErrRemoteRejected)
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	client := NewClient(testLogger(), Config{BaseURL: "http://127.0.0.1:1", APIKey: "key", APISecret: "secret"})
	err := client.TestConnection(context.Background())
	require.ErrorIs(t, err, ErrRemoteUnavailable)
}
