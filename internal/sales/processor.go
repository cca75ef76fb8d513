package sales

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bizdesk/internal/inventory"
)

// Processor turns a cart into the effects of a sale. It never touches storage
// and never mutates the snapshot it is given.
type Processor struct {
	now    func() time.Time
	newID  func() string
	suffix func() string
}

// NewProcessor returns a Processor using the wall clock and random ids.
func NewProcessor() *Processor {
	return &Processor{now: time.Now, newID: uuid.NewString, suffix: randomSuffix}
}

// InvoiceNumber formats INV-YYYYMMDD-HHMMSS-<suffix>.
func InvoiceNumber(at time.Time, suffix string) string {
	return "INV-" + at.UTC().Format("20060102-150405") + "-" + suffix
}

func randomSuffix() string {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	}
	return hex.EncodeToString(b[:])
}

// Process validates every line against snapshot and, only if all pass,
// returns the effects of the sale.
func (p *Processor) Process(cart Cart, snapshot map[string]inventory.Item) (Effects, error) {
	if len(cart.Lines) == 0 {
		return Effects{}, &ValidationError{Reason: ReasonEmptyCart}
	}
	if !cart.Status.Valid() {
		return Effects{}, &ValidationError{Reason: ReasonInvalidStatus}
	}

	demand := make(map[string]int, len(cart.Lines))
	order := make([]string, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		if _, ok := snapshot[line.ProductID]; !ok {
			return Effects{}, &ValidationError{Reason: ReasonUnknownProduct, ProductRef: line.ProductID}
		}
		if line.Quantity <= 0 {
			return Effects{}, &ValidationError{Reason: ReasonInvalidQuantity, ProductRef: line.ProductID}
		}
		if o := line.SalesPriceOverride; o != nil && (*o < 0 || math.IsNaN(*o) || math.IsInf(*o, 0)) {
			return Effects{}, &ValidationError{Reason: ReasonInvalidPrice, ProductRef: line.ProductID}
		}
		if _, seen := demand[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		demand[line.ProductID] += line.Quantity
	}
	for _, id := range order {
		if demand[id] > snapshot[id].Quantity {
			return Effects{}, &ValidationError{Reason: ReasonInsufficientStock, ProductRef: id}
		}
	}

	now := p.now().UTC()
	date := cart.Date
	if date.IsZero() {
		date = now
	}
	invoiceID := p.newID()

	items := make([]LineItem, 0, len(cart.Lines))
	amounts := make([]decimal.Decimal, 0, len(cart.Lines))
	total, profit := decimal.Zero, decimal.Zero
	for i, line := range cart.Lines {
		stock := snapshot[line.ProductID]
		price := stock.SalesPrice
		if line.SalesPriceOverride != nil {
			price = *line.SalesPriceOverride
		}
		serial := line.SerialNumber
		if serial == "" {
			serial = stock.IMEI
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		amount := qty.Mul(decimal.NewFromFloat(price))
		total = total.Add(amount)
		profit = profit.Add(qty.Mul(decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(stock.CostPrice))))
		amounts = append(amounts, amount)
		items = append(items, LineItem{
			ID:           p.newID(),
			InvoiceID:    invoiceID,
			Position:     i + 1,
			ProductID:    line.ProductID,
			ProductName:  stock.ProductName,
			Quantity:     line.Quantity,
			CostPrice:    stock.CostPrice,
			SalesPrice:   price,
			SerialNumber: serial,
		})
	}

	outstanding, err := invoiceOutstanding(cart, total)
	if err != nil {
		return Effects{}, err
	}

	invoice := Invoice{
		ID:            invoiceID,
		InvoiceNumber: InvoiceNumber(now, p.suffix()),
		CustomerID:    cart.CustomerID,
		CustomerName:  cart.CustomerName,
		Items:         items,
		TotalAmount:   total.InexactFloat64(),
		TotalProfit:   profit.InexactFloat64(),
		Status:        cart.Status,
		Outstanding:   outstanding.InexactFloat64(),
		Date:          date,
		CreatedAt:     now,
	}

	shares := allocate(outstanding, amounts, total)
	records := make([]SaleRecord, len(items))
	for i, item := range items {
		records[i] = SaleRecord{
			ID:           p.newID(),
			InvoiceID:    invoiceID,
			Date:         date,
			CustomerID:   cart.CustomerID,
			CustomerName: cart.CustomerName,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			SerialNumber: item.SerialNumber,
			Quantity:     item.Quantity,
			CostPrice:    item.CostPrice,
			SalesPrice:   item.SalesPrice,
			Status:       cart.Status,
			Outstanding:  shares[i].InexactFloat64(),
			CreatedAt:    now,
		}
	}

	decrements := make([]StockDecrement, len(order))
	for i, id := range order {
		decrements[i] = StockDecrement{ProductID: id, Quantity: demand[id]}
	}

	return Effects{
		Invoice:         invoice,
		LineItems:       items,
		StockDecrements: decrements,
		PromoteCustomer: cart.CustomerID,
		Sales:           records,
	}, nil
}

// invoiceOutstanding applies the status policy: Paid owes nothing, Unpaid owes
// the total, Part Payment owes the caller's figure which must lie strictly
// between 0 and the total.
func invoiceOutstanding(cart Cart, total decimal.Decimal) (decimal.Decimal, error) {
	switch cart.Status {
	case StatusPaid:
		return decimal.Zero, nil
	case StatusUnpaid:
		return total, nil
	}
	o := cart.Outstanding
	if math.IsNaN(o) || math.IsInf(o, 0) {
		return decimal.Zero, &ValidationError{Reason: ReasonInvalidOutstanding}
	}
	out := decimal.NewFromFloat(o)
	if !out.IsPositive() || out.GreaterThanOrEqual(total) {
		return decimal.Zero, &ValidationError{Reason: ReasonInvalidOutstanding}
	}
	return out, nil
}

// allocate splits outstanding across lines in proportion to their amounts,
// rounded to 2 places. Shares always sum to outstanding exactly.
func allocate(outstanding decimal.Decimal, amounts []decimal.Decimal, total decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(amounts))
	if outstanding.IsZero() || total.IsZero() {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		return shares
	}
	if outstanding.Equal(total) {
		copy(shares, amounts)
		return shares
	}
	// Round down, then hand leftover cents to the trailing lines with room.
	allocated := decimal.Zero
	for i, amount := range amounts {
		shares[i] = outstanding.Mul(amount).Div(total).RoundDown(2)
		allocated = allocated.Add(shares[i])
	}
	rest := outstanding.Sub(allocated)
	for i := len(amounts) - 1; i >= 0 && rest.IsPositive(); i-- {
		room := amounts[i].Sub(shares[i])
		if !room.IsPositive() {
			continue
		}
		add := decimal.Min(room, rest)
		shares[i] = shares[i].Add(add)
		rest = rest.Sub(add)
	}
	return shares
}
