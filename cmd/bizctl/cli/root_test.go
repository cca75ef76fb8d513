package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizdesk/internal/shared"
	"github.com/odyssey-erp/bizdesk/internal/tax"
	"github.com/odyssey-erp/bizdesk/jobs"
)

const ownerID = "7d2c6f0e-1f0a-4c55-9a3e-3c1b8f1e2a90"

type stubReporter struct {
	principal shared.Principal
	period    shared.Period
}

func (s *stubReporter) Report(_ context.Context, principal shared.Principal, period shared.Period, _ time.Time) (tax.Report, error) {
	s.principal = principal
	s.period = period
	return tax.Report{Period: period, Stats: tax.Stats{TotalSales: 1000, TaxOwed: 0, SmallCompany: true}}, nil
}

type stubQueue struct {
	owner, invoice string
	err            error
}

func (s *stubQueue) RenderReceipt(_ context.Context, ownerID, invoiceID string) error {
	s.owner, s.invoice = ownerID, invoiceID
	return s.err
}

func (s *stubQueue) InspectQueues(context.Context) ([]jobs.QueueDepth, error) {
	return []jobs.QueueDepth{{Queue: jobs.QueueReceipts, Pending: 2}, {Queue: jobs.QueueMaintenance}}, nil
}

type stubRegistrar struct{ email string }

func (s *stubRegistrar) Register(_ context.Context, email, _ string) (string, error) {
	s.email = email
	return "new-user", nil
}

func run(t *testing.T, env Env, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(env)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func taxEnv(r *stubReporter) Env {
	return Env{Tax: func(context.Context) (TaxReporter, func(), error) { return r, func() {}, nil }}
}

func TestTaxCommandPrintsStats(t *testing.T) {
	reporter := &stubReporter{}
	out, err := run(t, taxEnv(reporter), "tax", "--owner", ownerID, "--period", "quarter")
	require.NoError(t, err)
	assert.Equal(t, ownerID, reporter.principal.ID)
	assert.Equal(t, shared.PeriodQuarter, reporter.period)
	assert.Contains(t, out, "Total Sales")
	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "Small Company")
}

func TestTaxCommandCSV(t *testing.T) {
	out, err := run(t, taxEnv(&stubReporter{}), "tax", "--owner", ownerID, "--format", "csv")
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, []string{"Type", "Date", "Description", "Category", "Amount"}, records[0])
}

func TestTaxCommandValidatesFlags(t *testing.T) {
	_, err := run(t, taxEnv(&stubReporter{}), "tax", "--owner", "not-a-uuid")
	require.Error(t, err)

	_, err = run(t, taxEnv(&stubReporter{}), "tax", "--owner", ownerID, "--period", "decade")
	require.ErrorIs(t, err, shared.ErrInvalidPeriod)

	_, err = run(t, taxEnv(&stubReporter{}), "tax", "--owner", ownerID, "--format", "xlsx")
	require.Error(t, err)
}

func TestJobsRenderReceipt(t *testing.T) {
	q := &stubQueue{}
	env := Env{Jobs: func(context.Context) (ReceiptQueue, func(), error) { return q, func() {}, nil }}

	out, err := run(t, env, "jobs", "render-receipt", "inv-42", "--owner", ownerID)
	require.NoError(t, err)
	assert.Equal(t, ownerID, q.owner)
	assert.Equal(t, "inv-42", q.invoice)
	assert.Contains(t, out, "inv-42")

	q.err = errors.New("redis down")
	_, err = run(t, env, "jobs", "render-receipt", "inv-42", "--owner", ownerID)
	require.Error(t, err)

	out, err = run(t, env, "jobs", "stats")
	require.NoError(t, err)
	assert.Regexp(t, `receipts\s+2\s+0\s+0\s+0`, out)
	assert.Contains(t, out, "maintenance")
}

func TestUsersAdd(t *testing.T) {
	reg := &stubRegistrar{}
	env := Env{Users: func(context.Context) (UserRegistrar, func(), error) { return reg, func() {}, nil }}
	out, err := run(t, env, "users", "add", "--email", "owner@shop.ng", "--password", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "owner@shop.ng", reg.email)
	assert.Contains(t, out, "new-user")
}

func TestMigrate(t *testing.T) {
	called := false
	out, err := run(t, Env{Migrate: func(context.Context) error { called = true; return nil }}, "migrate")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, out, "schema up to date")
}
