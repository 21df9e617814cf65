package testutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// WarehouseFixture represents test warehouse data
type WarehouseFixture struct {
	ID              int64
	Name            string
	LotCode         string
	MaxCapacity     decimal.Decimal
	CurrentCapacity decimal.Decimal
	Active          bool
}

// ProductFixture represents test product data
type ProductFixture struct {
	ID      int64
	Name    string
	LotCode string
	Active  bool
}

// SupplierFixture represents test supplier data
type SupplierFixture struct {
	ID         int64
	Name       string
	OriginCode string
}

// ReceivingFixture represents test receiving data
type ReceivingFixture struct {
	ID            int64
	Ticket        string
	Status        string
	WarehouseID   int64
	ProductID     int64
	SupplierID    int64
	DriverName    string
	Plates        string
	TransportType string
	GrossWeight   decimal.Decimal
	TareWeight    decimal.Decimal
	NetWeight     decimal.Decimal
	CreatedAt     time.Time
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Warehouse creates a warehouse fixture with defaults
func (f *FixtureFactory) Warehouse(opts ...func(*WarehouseFixture)) WarehouseFixture {
	seq := f.nextSeq()

	w := WarehouseFixture{
		ID:              int64(seq),
		Name:            fmt.Sprintf("Warehouse %d", seq),
		LotCode:         fmt.Sprintf("%02d", seq%100),
		MaxCapacity:     decimal.NewFromInt(500000),
		CurrentCapacity: decimal.Zero,
		Active:          true,
	}

	for _, opt := range opts {
		opt(&w)
	}

	return w
}

// WithWarehouseLotCode sets the warehouse lot code segment
func WithWarehouseLotCode(code string) func(*WarehouseFixture) {
	return func(w *WarehouseFixture) {
		w.LotCode = code
	}
}

// Product creates a product fixture with defaults
func (f *FixtureFactory) Product(opts ...func(*ProductFixture)) ProductFixture {
	seq := f.nextSeq()

	p := ProductFixture{
		ID:      int64(seq),
		Name:    fmt.Sprintf("Product %d", seq),
		LotCode: fmt.Sprintf("%02d", seq%100),
		Active:  true,
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

// WithProductLotCode sets the product lot code segment
func WithProductLotCode(code string) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.LotCode = code
	}
}

// Supplier creates a supplier fixture with defaults
func (f *FixtureFactory) Supplier(opts ...func(*SupplierFixture)) SupplierFixture {
	seq := f.nextSeq()

	s := SupplierFixture{
		ID:         int64(seq),
		Name:       fmt.Sprintf("Supplier %d", seq),
		OriginCode: fmt.Sprintf("%02d", seq%100),
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// WithOriginCode sets the supplier origin code
func WithOriginCode(code string) func(*SupplierFixture) {
	return func(s *SupplierFixture) {
		s.OriginCode = code
	}
}

// Receiving creates a receiving fixture with defaults
func (f *FixtureFactory) Receiving(opts ...func(*ReceivingFixture)) ReceivingFixture {
	seq := f.nextSeq()

	r := ReceivingFixture{
		ID:            int64(seq),
		Ticket:        fmt.Sprintf("TK-%05d", seq),
		Status:        "Pending",
		WarehouseID:   1,
		ProductID:     1,
		SupplierID:    1,
		DriverName:    fmt.Sprintf("Driver %d", seq),
		Plates:        fmt.Sprintf("ABC-%03d", seq),
		TransportType: "truck",
		GrossWeight:   decimal.NewFromInt(42500),
		TareWeight:    decimal.NewFromInt(14500),
		NetWeight:     decimal.NewFromInt(28000),
		CreatedAt:     time.Now(),
	}

	for _, opt := range opts {
		opt(&r)
	}

	return r
}

// WithTicket sets the receiving ticket number
func WithTicket(ticket string) func(*ReceivingFixture) {
	return func(r *ReceivingFixture) {
		r.Ticket = ticket
	}
}

// WithReceivingStatus sets the receiving status
func WithReceivingStatus(status string) func(*ReceivingFixture) {
	return func(r *ReceivingFixture) {
		r.Status = status
	}
}

// WithNetWeight sets the receiving weights so net matches gross minus tare
func WithNetWeight(gross, tare decimal.Decimal) func(*ReceivingFixture) {
	return func(r *ReceivingFixture) {
		r.GrossWeight = gross
		r.TareWeight = tare
		r.NetWeight = gross.Sub(tare)
	}
}
