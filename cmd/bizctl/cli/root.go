package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/bizdesk/internal/shared"
	"github.com/odyssey-erp/bizdesk/internal/tax"
	"github.com/odyssey-erp/bizdesk/jobs"
)

// TaxReporter builds a tax report for a principal.
type TaxReporter interface {
	Report(ctx context.Context, principal shared.Principal, period shared.Period, now time.Time) (tax.Report, error)
}

// ReceiptQueue queues receipt rendering.
type ReceiptQueue interface {
	RenderReceipt(ctx context.Context, ownerID, invoiceID string) error
	InspectQueues(ctx context.Context) ([]jobs.QueueDepth, error)
}

// UserRegistrar creates login accounts.
type UserRegistrar interface {
	Register(ctx context.Context, email, password string) (string, error)
}

// Env supplies lazily opened backends to commands. Each opener returns a
// cleanup func that releases what it opened.
type Env struct {
	Tax     func(ctx context.Context) (TaxReporter, func(), error)
	Jobs    func(ctx context.Context) (ReceiptQueue, func(), error)
	Users   func(ctx context.Context) (UserRegistrar, func(), error)
	Migrate func(ctx context.Context) error
	Now     func() time.Time
}

// NewRootCommand assembles the bizctl command tree.
func NewRootCommand(env Env) *cobra.Command {
	if env.Now == nil {
		env.Now = time.Now
	}
	root := &cobra.Command{
		Use:           "bizctl",
		Short:         "Operate a bizdesk deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTaxCommand(env), newJobsCommand(env), newUsersCommand(env), newMigrateCommand(env))
	return root
}

// Execute runs the command tree against os.Args and exits non-zero on error.
func Execute(env Env) {
	cmd := NewRootCommand(env)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bizctl:", err)
		os.Exit(1)
	}
}

func requireOwner(owner string) error {
	if _, err := uuid.Parse(owner); err != nil {
		return fmt.Errorf("--owner must be a uuid: %w", err)
	}
	return nil
}

func newTaxCommand(env Env) *cobra.Command {
	var (
		owner  string
		period string
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "tax",
		Short: "Compute the tax position of an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwner(owner); err != nil {
				return err
			}
			p, err := shared.ParsePeriod(period)
			if err != nil {
				return err
			}
			if env.Tax == nil {
				return errors.New("tax backend not configured")
			}
			reporter, cleanup, err := env.Tax(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			rep, err := reporter.Report(cmd.Context(), shared.Principal{ID: owner}, p, env.Now())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			switch strings.ToLower(format) {
			case "table":
				return printStats(w, rep)
			case "csv":
				return tax.WriteCSV(w, rep)
			case "xlsx":
				if out == "" {
					return errors.New("xlsx output needs --out")
				}
				return tax.WriteXLSX(w, rep)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner user id")
	cmd.Flags().StringVar(&period, "period", string(shared.PeriodMonth), "month, quarter, year or all")
	cmd.Flags().StringVar(&format, "format", "table", "table, csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func printStats(w io.Writer, rep tax.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	s := rep.Stats
	rows := [][2]string{
		{"Period", string(rep.Period)},
		{"Total Sales", formatAmount(s.TotalSales)},
		{"Total Cost", formatAmount(s.TotalCost)},
		{"Total Expenses", formatAmount(s.TotalExpenses)},
		{"Assessable Profit", formatAmount(s.AssessableProfit)},
		{"Small Company", fmt.Sprintf("%t", s.SmallCompany)},
		{"CIT", formatAmount(s.CIT)},
		{"Development Levy", formatAmount(s.DevelopmentLevy)},
		{"Total Tax Owed", formatAmount(s.TaxOwed)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func newJobsCommand(env Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}

	var owner string
	render := &cobra.Command{
		Use:   "render-receipt <invoice-id>",
		Short: "Queue receipt rendering for an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwner(owner); err != nil {
				return err
			}
			if env.Jobs == nil {
				return errors.New("jobs backend not configured")
			}
			q, cleanup, err := env.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			if err := q.RenderReceipt(cmd.Context(), owner, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued receipt for invoice %s\n", args[0])
			return nil
		},
	}
	render.Flags().StringVar(&owner, "owner", "", "owner user id")
	_ = render.MarkFlagRequired("owner")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show worker queue backlog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Jobs == nil {
				return errors.New("jobs backend not configured")
			}
			q, cleanup, err := env.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			queues, err := q.InspectQueues(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY")
			for _, s := range queues {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(render, stats)
	return cmd
}

func newUsersCommand(env Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage login accounts",
	}
	var email, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Users == nil {
				return errors.New("users backend not configured")
			}
			reg, cleanup, err := env.Users(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			id, err := reg.Register(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s\n", id)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "login email")
	add.Flags().StringVar(&password, "password", "", "login password")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("password")
	cmd.AddCommand(add)
	return cmd
}

func newMigrateCommand(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Migrate == nil {
				return errors.New("database not configured")
			}
			if err := env.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
