package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/tillbridge/tillbridge/internal/catalog"
	"github.com/tillbridge/tillbridge/internal/customers"
	"github.com/tillbridge/tillbridge/internal/erpnext"
	"github.com/tillbridge/tillbridge/internal/sales"
)

// DefaultWalkInCustomer receives invoices for sales recorded without a
// customer.
const DefaultWalkInCustomer = "Walk-in Customer"

// remote is the slice of the ERPNext client the engine needs.
type remote interface {
	TestConnection(ctx context.Context) error
	FetchItems(ctx context.Context) ([]catalog.Item, error)
	FetchCustomers(ctx context.Context) ([]customers.Customer, error)
	FetchPaymentMethods(ctx context.Context) ([]catalog.PaymentMethod, error)
	FetchTaxTemplates(ctx context.Context) ([]catalog.TaxTemplate, error)
	FetchPriceLists(ctx context.Context) ([]catalog.PriceList, error)
	CreateCustomer(ctx context.Context, customer customers.Customer) (string, error)
	CreateInvoice(ctx context.Context, invoice erpnext.Invoice, idempotencyKey string) (string, error)
}

type catalogStore interface {
	ReplaceAll(ctx context.Context, items []catalog.Item) error
	ReplacePaymentMethods(ctx context.Context, methods []catalog.PaymentMethod) error
	ReplaceTaxTemplates(ctx context.Context, templates []catalog.TaxTemplate) error
	ReplacePriceLists(ctx context.Context, lists []catalog.PriceList) error
	Count(ctx context.Context) (int, error)
}

type customerStore interface {
	Get(ctx context.Context, id int64) (*customers.Customer, error)
	ListUnsynced(ctx context.Context) ([]customers.Customer, error)
	MarkSynced(ctx context.Context, id int64, erpnextID string) error
	ReplaceSynced(ctx context.Context, remote []customers.Customer) error
	CountUnsynced(ctx context.Context) (int, error)
}

type saleStore interface {
	ListUnsynced(ctx context.Context) ([]sales.Sale, error)
	MarkSynced(ctx context.Context, id int64) error
	RecordSubmission(ctx context.Context, saleID int64, idempotencyKey string) (string, error)
	AcknowledgeSubmission(ctx context.Context, saleID int64) error
	CountUnsynced(ctx context.Context) (int, error)
}

type statusStore interface {
	Get(ctx context.Context) (*StatusRow, error)
	Save(ctx context.Context, s StatusRow) error
}

// Result summarizes one sync run.
type Result struct {
	ItemsPulled      int      `json:"items_pulled"`
	CustomersPulled  int      `json:"customers_pulled"`
	CustomersPushed  int      `json:"customers_pushed"`
	SalesPushed      int      `json:"sales_pushed"`
	CustomersSkipped int      `json:"customers_skipped"`
	SalesSkipped     int      `json:"sales_skipped"`
	Errors           []string `json:"errors,omitempty"`
}

// Status is the engine state reported to the UI.
type Status struct {
	StatusRow
	Online           bool `json:"online"`
	PendingSales     int  `json:"pending_sales"`
	PendingCustomers int  `json:"pending_customers"`
	ItemCount        int  `json:"item_count"`
}

// Service reconciles the local ledger with ERPNext. Pulls replace the local
// mirrors; pushes drain the unsynced queues at least once each.
type Service struct {
	logger       *slog.Logger
	remote       remote
	catalogRepo  catalogStore
	customerRepo customerStore
	saleRepo     saleStore
	statusRepo   statusStore

	group singleflight.Group
}

// NewService constructs the sync engine.
func NewService(logger *slog.Logger, remote remote, catalogRepo catalogStore, customerRepo customerStore, saleRepo saleStore, statusRepo statusStore) *Service {
	return &Service{
		logger:       logger,
		remote:       remote,
		catalogRepo:  catalogRepo,
		customerRepo: customerRepo,
		saleRepo:     saleRepo,
		statusRepo:   statusRepo,
	}
}

// Run executes a full sync: push local records first, then pull the mirrors.
// Concurrent callers share a single in-flight run.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	v, err, _ := s.group.Do("full", func() (any, error) {
		result := &Result{}
		s.push(ctx, result)
		s.pull(ctx, result)
		s.saveStatus(ctx, result, true)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// Pull refreshes the local mirrors only.
func (s *Service) Pull(ctx context.Context) (*Result, error) {
	v, err, _ := s.group.Do("pull", func() (any, error) {
		result := &Result{}
		s.pull(ctx, result)
		s.saveStatus(ctx, result, true)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// Push drains the unsynced queues only.
func (s *Service) Push(ctx context.Context) (*Result, error) {
	v, err, _ := s.group.Do("push", func() (any, error) {
		result := &Result{}
		s.push(ctx, result)
		s.saveStatus(ctx, result, false)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// Status reports engine state including connectivity and pending queues.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	row, err := s.statusRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{StatusRow: *row}
	status.Online = s.remote.TestConnection(ctx) == nil

	if n, err := s.saleRepo.CountUnsynced(ctx); err == nil {
		status.PendingSales = n
	}
	if n, err := s.customerRepo.CountUnsynced(ctx); err == nil {
		status.PendingCustomers = n
	}
	if n, err := s.catalogRepo.Count(ctx); err == nil {
		status.ItemCount = n
	}
	return status, nil
}

// pull refreshes each mirror independently so one failing entity does not
// block the others.
func (s *Service) pull(ctx context.Context, result *Result) {
	if items, err := s.remote.FetchItems(ctx); err != nil {
		result.fail("pull items", err)
		s.logger.Warn("pull items", slog.Any("error", err))
	} else if err := s.catalogRepo.ReplaceAll(ctx, items); err != nil {
		result.fail("store items", err)
		s.logger.Error("store items", slog.Any("error", err))
	} else {
		result.ItemsPulled = len(items)
	}

	if list, err := s.remote.FetchCustomers(ctx); err != nil {
		result.fail("pull customers", err)
		s.logger.Warn("pull customers", slog.Any("error", err))
	} else if err := s.customerRepo.ReplaceSynced(ctx, list); err != nil {
		result.fail("store customers", err)
		s.logger.Error("store customers", slog.Any("error", err))
	} else {
		result.CustomersPulled = len(list)
	}

	if methods, err := s.remote.FetchPaymentMethods(ctx); err != nil {
		result.fail("pull payment methods", err)
	} else if err := s.catalogRepo.ReplacePaymentMethods(ctx, methods); err != nil {
		result.fail("store payment methods", err)
	}

	if templates, err := s.remote.FetchTaxTemplates(ctx); err != nil {
		result.fail("pull tax templates", err)
	} else if err := s.catalogRepo.ReplaceTaxTemplates(ctx, templates); err != nil {
		result.fail("store tax templates", err)
	}

	if lists, err := s.remote.FetchPriceLists(ctx); err != nil {
		result.fail("pull price lists", err)
	} else if err := s.catalogRepo.ReplacePriceLists(ctx, lists); err != nil {
		result.fail("store price lists", err)
	}
}

// push sends customers before sales so invoices can reference fresh remote
// customer identifiers. Each record fails independently: a rejected or
// unreachable push is skipped and retried on the next run, and only
// cancellation or a failing pending-list query stops a loop.
func (s *Service) push(ctx context.Context, result *Result) {
	if err := s.pushCustomers(ctx, result); err != nil {
		result.fail("push customers", err)
		s.logger.Warn("push customers aborted", slog.Any("error", err))
	}
	if err := s.pushSales(ctx, result); err != nil {
		result.fail("push sales", err)
		s.logger.Warn("push sales aborted", slog.Any("error", err))
	}
}

func (s *Service) pushCustomers(ctx context.Context, result *Result) error {
	pending, err := s.customerRepo.ListUnsynced(ctx)
	if err != nil {
		return err
	}

	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		erpID, err := s.remote.CreateCustomer(ctx, c)
		if err != nil {
			if errors.Is(err, erpnext.ErrRemoteRejected) {
				result.CustomersSkipped++
				s.logger.Warn("customer rejected, skipping",
					slog.Int64("customer_id", c.ID), slog.Any("error", err))
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.CustomersSkipped++
			result.fail(fmt.Sprintf("push customer %d", c.ID), err)
			s.logger.Warn("customer push failed, will retry next run",
				slog.Int64("customer_id", c.ID), slog.Any("error", err))
			continue
		}
		if err := s.customerRepo.MarkSynced(ctx, c.ID, erpID); err != nil {
			result.CustomersSkipped++
			result.fail(fmt.Sprintf("mark customer %d synced", c.ID), err)
			s.logger.Error("mark customer synced",
				slog.Int64("customer_id", c.ID), slog.Any("error", err))
			continue
		}
		result.CustomersPushed++
	}
	return nil
}

func (s *Service) pushSales(ctx context.Context, result *Result) error {
	pending, err := s.saleRepo.ListUnsynced(ctx)
	if err != nil {
		return err
	}

	for _, sale := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Journal the attempt first. If the process dies after the remote
		// accepts but before the synced flag lands, the next run reuses the
		// same key and the remote deduplicates.
		key, err := s.saleRepo.RecordSubmission(ctx, sale.ID, uuid.NewString())
		if err != nil {
			result.SalesSkipped++
			result.fail(fmt.Sprintf("journal sale %d", sale.ID), err)
			s.logger.Error("journal sale submission",
				slog.Int64("sale_id", sale.ID), slog.Any("error", err))
			continue
		}

		invoice, err := s.buildInvoice(ctx, sale)
		if err != nil {
			result.SalesSkipped++
			s.logger.Warn("sale not pushable, skipping",
				slog.Int64("sale_id", sale.ID), slog.Any("error", err))
			continue
		}

		if _, err := s.remote.CreateInvoice(ctx, *invoice, key); err != nil {
			if errors.Is(err, erpnext.ErrRemoteRejected) {
				result.SalesSkipped++
				s.logger.Warn("sale rejected, skipping",
					slog.Int64("sale_id", sale.ID), slog.Any("error", err))
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.SalesSkipped++
			result.fail(fmt.Sprintf("push sale %d", sale.ID), err)
			s.logger.Warn("sale push failed, will retry next run",
				slog.Int64("sale_id", sale.ID), slog.Any("error", err))
			continue
		}
		if err := s.saleRepo.AcknowledgeSubmission(ctx, sale.ID); err != nil {
			result.SalesSkipped++
			result.fail(fmt.Sprintf("acknowledge sale %d", sale.ID), err)
			s.logger.Error("acknowledge sale submission",
				slog.Int64("sale_id", sale.ID), slog.Any("error", err))
			continue
		}
		if err := s.saleRepo.MarkSynced(ctx, sale.ID); err != nil {
			result.SalesSkipped++
			result.fail(fmt.Sprintf("mark sale %d synced", sale.ID), err)
			s.logger.Error("mark sale synced",
				slog.Int64("sale_id", sale.ID), slog.Any("error", err))
			continue
		}
		result.SalesPushed++
	}
	return nil
}

func (s *Service) buildInvoice(ctx context.Context, sale sales.Sale) (*erpnext.Invoice, error) {
	customer := DefaultWalkInCustomer
	if sale.CustomerID != nil {
		c, err := s.customerRepo.Get(ctx, *sale.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("resolve customer %d: %w", *sale.CustomerID, err)
		}
		if c.ERPNextID == nil {
			return nil, fmt.Errorf("customer %d has no remote identifier yet", c.ID)
		}
		customer = *c.ERPNextID
	}

	items := make([]erpnext.InvoiceItem, 0, len(sale.Items))
	for _, line := range sale.Items {
		items = append(items, erpnext.InvoiceItem{
			ItemCode: line.ItemCode,
			Qty:      line.Quantity,
			Rate:     line.Rate,
			Amount:   line.Amount,
		})
	}

	payments := make([]erpnext.InvoicePayment, 0, 2)
	for method, amount := range sale.Payment.AmountsByMethod(sale.TotalAmount) {
		payments = append(payments, erpnext.InvoicePayment{ModeOfPayment: method, Amount: amount})
	}

	return &erpnext.Invoice{
		Customer: customer,
		IsPOS:    1,
		Items:    items,
		Payments: payments,
		Total:    sale.TotalAmount,
	}, nil
}

// saveStatus records the run outcome. The items flag only changes on runs
// that actually pulled; a push-only run carries the previous value forward so
// it cannot mark a healthy mirror stale.
func (s *Service) saveStatus(ctx context.Context, result *Result, pulled bool) {
	now := time.Now()
	row := StatusRow{
		LastSync:        &now,
		CustomersSynced: false,
		SalesSynced:     false,
	}
	if pulled {
		row.ItemsSynced = result.ItemsPulled > 0
	} else if prev, err := s.statusRepo.Get(ctx); err == nil {
		row.ItemsSynced = prev.ItemsSynced
	}
	if n, err := s.customerRepo.CountUnsynced(ctx); err == nil {
		row.CustomersSynced = n == 0
	}
	if n, err := s.saleRepo.CountUnsynced(ctx); err == nil {
		row.SalesSynced = n == 0
	}
	if err := s.statusRepo.Save(ctx, row); err != nil {
		s.logger.Error("save sync status", slog.Any("error", err))
	}
}

func (r *Result) fail(stage string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", stage, err))
}
