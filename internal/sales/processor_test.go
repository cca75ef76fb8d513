package sales

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizdesk/internal/inventory"
)

func fixedProcessor() *Processor {
	n := 0
	return &Processor{
		now: func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) },
		newID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
		suffix: func() string { return "a1b2c3" },
	}
}

func snapshotOf(items ...inventory.Item) map[string]inventory.Item {
	snap := make(map[string]inventory.Item, len(items))
	for _, it := range items {
		snap[it.ID] = it
	}
	return snap
}

func TestProcessInsufficientStockLeavesSnapshot(t *testing.T) {
	snap := snapshotOf(inventory.Item{ID: "p1", ProductName: "Phone", Quantity: 3, CostPrice: 80, SalesPrice: 100})

	eff, err := fixedProcessor().Process(Cart{
		Status: StatusPaid,
		Lines:  []CartLine{{ProductID: "p1", Quantity: 5}},
	}, snap)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonInsufficientStock, verr.Reason)
	assert.Equal(t, "p1", verr.ProductRef)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Empty(t, eff.LineItems)
	assert.Empty(t, eff.StockDecrements)
	assert.Equal(t, 3, snap["p1"].Quantity)
}

func TestProcessTwoLineCart(t *testing.T) {
	snap := snapshotOf(
		inventory.Item{ID: "a", ProductName: "Charger", Quantity: 10, CostPrice: 600, SalesPrice: 1000},
		inventory.Item{ID: "b", ProductName: "Case", Quantity: 4, CostPrice: 200, SalesPrice: 500},
	)

	eff, err := fixedProcessor().Process(Cart{
		CustomerID:   "cust-1",
		CustomerName: "Ada",
		Status:       StatusUnpaid,
		Lines: []CartLine{
			{ProductID: "a", Quantity: 2},
			{ProductID: "b", Quantity: 1},
		},
	}, snap)
	require.NoError(t, err)

	assert.Equal(t, 2500.0, eff.Invoice.TotalAmount)
	assert.Equal(t, 1100.0, eff.Invoice.TotalProfit)
	assert.Equal(t, 2500.0, eff.Invoice.Outstanding)
	require.Len(t, eff.LineItems, 2)
	assert.Equal(t, eff.Invoice.Items, eff.LineItems)
	assert.Equal(t, []StockDecrement{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 1}}, eff.StockDecrements)
	assert.Equal(t, "cust-1", eff.PromoteCustomer)
	assert.Equal(t, 10, snap["a"].Quantity)

	require.Len(t, eff.Sales, 2)
	assert.Equal(t, 2000.0, eff.Sales[0].Outstanding)
	assert.Equal(t, 500.0, eff.Sales[1].Outstanding)
	for _, s := range eff.Sales {
		assert.Equal(t, eff.Invoice.ID, s.InvoiceID)
	}
}

func TestProcessTotalEqualsSumOfLines(t *testing.T) {
	snap := snapshotOf(
		inventory.Item{ID: "a", Quantity: 100, CostPrice: 0.1, SalesPrice: 0.3},
		inventory.Item{ID: "b", Quantity: 100, CostPrice: 0.2, SalesPrice: 0.7},
	)
	eff, err := fixedProcessor().Process(Cart{
		Status: StatusPaid,
		Lines:  []CartLine{{ProductID: "a", Quantity: 7}, {ProductID: "b", Quantity: 3}},
	}, snap)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, li := range eff.LineItems {
		sum = sum.Add(decimal.NewFromInt(int64(li.Quantity)).Mul(decimal.NewFromFloat(li.SalesPrice)))
	}
	assert.Equal(t, sum.InexactFloat64(), eff.Invoice.TotalAmount)
	assert.Equal(t, 4.2, eff.Invoice.TotalAmount)
	assert.Equal(t, 0.0, eff.Invoice.Outstanding)
}

func TestProcessAggregatesSameProductAcrossLines(t *testing.T) {
	snap := snapshotOf(inventory.Item{ID: "a", Quantity: 3, SalesPrice: 10})

	_, err := fixedProcessor().Process(Cart{
		Status: StatusPaid,
		Lines:  []CartLine{{ProductID: "a", Quantity: 2}, {ProductID: "a", Quantity: 2}},
	}, snap)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonInsufficientStock, verr.Reason)

	eff, err := fixedProcessor().Process(Cart{
		Status: StatusPaid,
		Lines:  []CartLine{{ProductID: "a", Quantity: 2}, {ProductID: "a", Quantity: 1}},
	}, snap)
	require.NoError(t, err)
	assert.Len(t, eff.LineItems, 2)
	assert.Equal(t, []StockDecrement{{ProductID: "a", Quantity: 3}}, eff.StockDecrements)
}

func TestProcessValidationReasons(t *testing.T) {
	snap := snapshotOf(inventory.Item{ID: "a", Quantity: 3, SalesPrice: 10})
	neg := -1.0

	cases := []struct {
		name   string
		cart   Cart
		reason string
		ref    string
	}{
		{"empty", Cart{Status: StatusPaid}, ReasonEmptyCart, ""},
		{"status", Cart{Status: "Later", Lines: []CartLine{{ProductID: "a", Quantity: 1}}}, ReasonInvalidStatus, ""},
		{"unknown", Cart{Status: StatusPaid, Lines: []CartLine{{ProductID: "a", Quantity: 1}, {ProductID: "zz", Quantity: 1}}}, ReasonUnknownProduct, "zz"},
		{"zero qty", Cart{Status: StatusPaid, Lines: []CartLine{{ProductID: "a", Quantity: 0}}}, ReasonInvalidQuantity, "a"},
		{"negative price", Cart{Status: StatusPaid, Lines: []CartLine{{ProductID: "a", Quantity: 1, SalesPriceOverride: &neg}}}, ReasonInvalidPrice, "a"},
		{"part payment too high", Cart{Status: StatusPartPayment, Outstanding: 10, Lines: []CartLine{{ProductID: "a", Quantity: 1}}}, ReasonInvalidOutstanding, ""},
		{"part payment zero", Cart{Status: StatusPartPayment, Lines: []CartLine{{ProductID: "a", Quantity: 1}}}, ReasonInvalidOutstanding, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fixedProcessor().Process(tc.cart, snap)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.reason, verr.Reason)
			assert.Equal(t, tc.ref, verr.ProductRef)
		})
	}
}

func TestProcessPartPaymentAllocation(t *testing.T) {
	snap := snapshotOf(
		inventory.Item{ID: "a", Quantity: 5, SalesPrice: 100},
		inventory.Item{ID: "b", Quantity: 5, SalesPrice: 200},
	)
	eff, err := fixedProcessor().Process(Cart{
		Status:      StatusPartPayment,
		Outstanding: 100,
		Lines:       []CartLine{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 1}},
	}, snap)
	require.NoError(t, err)
	assert.Equal(t, 100.0, eff.Invoice.Outstanding)
	assert.Equal(t, 33.33, eff.Sales[0].Outstanding)
	assert.Equal(t, 66.67, eff.Sales[1].Outstanding)
}

func TestProcessPartPaymentAllocationWithFreeLine(t *testing.T) {
	free := 0.0
	snap := snapshotOf(
		inventory.Item{ID: "a", Quantity: 5, SalesPrice: 1},
		inventory.Item{ID: "b", Quantity: 5, SalesPrice: 1},
		inventory.Item{ID: "c", Quantity: 5, SalesPrice: 50},
	)
	eff, err := fixedProcessor().Process(Cart{
		Status:      StatusPartPayment,
		Outstanding: 0.01,
		Lines: []CartLine{
			{ProductID: "a", Quantity: 1},
			{ProductID: "b", Quantity: 1},
			{ProductID: "c", Quantity: 1, SalesPriceOverride: &free},
		},
	}, snap)
	require.NoError(t, err)
	require.Len(t, eff.Sales, 3)

	sum := decimal.Zero
	for _, row := range eff.Sales {
		assert.GreaterOrEqual(t, row.Outstanding, 0.0, row.ProductID)
		assert.LessOrEqual(t, row.Outstanding, row.SalesPrice, row.ProductID)
		sum = sum.Add(decimal.NewFromFloat(row.Outstanding))
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("0.01")), sum.String())
	assert.Equal(t, 0.0, eff.Sales[2].Outstanding)
}

func TestAllocateNeverExceedsLineAmounts(t *testing.T) {
	amounts := []decimal.Decimal{
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("0.01"),
		decimal.Zero,
	}
	shares := allocate(decimal.RequireFromString("0.02"), amounts, decimal.RequireFromString("0.03"))
	sum := decimal.Zero
	for i, share := range shares {
		assert.False(t, share.IsNegative(), i)
		assert.True(t, share.LessThanOrEqual(amounts[i]), i)
		sum = sum.Add(share)
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("0.02")), sum.String())
}

func TestProcessSnapshotsPrices(t *testing.T) {
	override := 1200.0
	snap := snapshotOf(inventory.Item{ID: "a", ProductName: "Phone", IMEI: "3567", Quantity: 5, CostPrice: 700, SalesPrice: 1000})

	eff, err := fixedProcessor().Process(Cart{
		Status: StatusPaid,
		Lines:  []CartLine{{ProductID: "a", Quantity: 1, SalesPriceOverride: &override}},
	}, snap)
	require.NoError(t, err)
	li := eff.LineItems[0]
	assert.Equal(t, 1200.0, li.SalesPrice)
	assert.Equal(t, 700.0, li.CostPrice)
	assert.Equal(t, "Phone", li.ProductName)
	assert.Equal(t, "3567", li.SerialNumber)
	assert.Equal(t, "", eff.PromoteCustomer)
}

func TestInvoiceNumberFormat(t *testing.T) {
	eff, err := fixedProcessor().Process(Cart{
		Status: StatusPaid,
		Lines:  []CartLine{{ProductID: "a", Quantity: 1}},
	}, snapshotOf(inventory.Item{ID: "a", Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, "INV-20240309-140507-a1b2c3", eff.Invoice.InvoiceNumber)

	re := regexp.MustCompile(`^INV-\d{8}-\d{6}-[0-9a-f]{6}$`)
	assert.Regexp(t, re, InvoiceNumber(time.Now(), randomSuffix()))
}
