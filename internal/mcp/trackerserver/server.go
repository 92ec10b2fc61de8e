package trackerserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/logging"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/internal/version"
	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

// NewServer constructs an MCP server exposing the tracker to assistants.
// Callers are trusted: the HTTP transport authenticates before requests reach
// the server and the stdio transport is local.
func NewServer(tracker service.TrackerService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "allowance-tracker-mcp",
		Version: version.Version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})

	addChildTools(server, tracker)
	addTransactionTools(server, tracker)
	addChoreTools(server, tracker)
	addExpenditureTools(server, tracker)
	addReportTools(server, tracker)

	return server
}

type ChildrenResult struct {
	Children []models.Child `json:"children"`
}

type createChildArgs struct {
	Name            string  `json:"name" jsonschema:"the child's name"`
	Age             int     `json:"age,omitempty" jsonschema:"age in years"`
	WeeklyAllowance float64 `json:"weekly_allowance,omitempty" jsonschema:"weekly allowance amount"`
}

type idArgs struct {
	ID string `json:"id"`
}

func addChildTools(server *mcp.Server, tracker service.TrackerService) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_children",
		Description: "List all children with their current balances",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, ChildrenResult, error) {
		children, err := tracker.ListChildren(ctx)
		if err != nil {
			return nil, ChildrenResult{}, toolError(ctx, "list_children", err)
		}
		out := ChildrenResult{Children: make([]models.Child, len(children))}
		for i, c := range children {
			out.Children[i] = *c
		}
		return nil, out, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_child",
		Description: "Fetch a single child by id",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args idArgs) (*mcp.CallToolResult, models.Child, error) {
		if args.ID == "" {
			return nil, models.Child{}, errors.New("id is required")
		}
		child, err := tracker.GetChild(ctx, args.ID)
		if err != nil {
			return nil, models.Child{}, toolError(ctx, "get_child", err)
		}
		return nil, *child, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_child",
		Description: "Add a child with an optional age and weekly allowance",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args createChildArgs) (*mcp.CallToolResult, models.Child, error) {
		child, err := tracker.CreateChild(ctx, &models.Child{
			Name:            args.Name,
			Age:             args.Age,
			WeeklyAllowance: args.WeeklyAllowance,
		})
		if err != nil {
			return nil, models.Child{}, toolError(ctx, "create_child", err)
		}
		return nil, *child, nil
	})
}

type TransactionsResult struct {
	Transactions []models.Transaction `json:"transactions"`
}

type listTransactionsArgs struct {
	ChildID string `json:"child_id,omitempty" jsonschema:"only transactions of this child"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of transactions, newest first"`
}

type recordTransactionArgs struct {
	ChildID     string  `json:"child_id"`
	Amount      float64 `json:"amount" jsonschema:"positive amount; adjustments may be negative"`
	Type        string  `json:"transaction_type" jsonschema:"one of allowance, chore, spending, adjustment"`
	Description string  `json:"description,omitempty"`
}

func addTransactionTools(server *mcp.Server, tracker service.TrackerService) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_transactions",
		Description: "List transactions, newest first, optionally for one child",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args listTransactionsArgs) (*mcp.CallToolResult, TransactionsResult, error) {
		filter := &database.TransactionFilter{Limit: clampLimit(args.Limit)}
		if args.ChildID != "" {
			filter.ChildID = &args.ChildID
		}
		txns, err := tracker.ListTransactions(ctx, filter)
		if err != nil {
			return nil, TransactionsResult{}, toolError(ctx, "list_transactions", err)
		}
		out := TransactionsResult{Transactions: make([]models.Transaction, len(txns))}
		for i, t := range txns {
			out.Transactions[i] = *t
		}
		return nil, out, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_transaction",
		Description: "Record a transaction and apply it to the child's balance",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args recordTransactionArgs) (*mcp.CallToolResult, models.Transaction, error) {
		txn, err := tracker.CreateTransaction(ctx, &models.Transaction{
			ChildID:     args.ChildID,
			Amount:      args.Amount,
			Type:        models.TransactionType(args.Type),
			Description: args.Description,
		})
		if err != nil {
			return nil, models.Transaction{}, toolError(ctx, "record_transaction", err)
		}
		return nil, *txn, nil
	})
}

type ChoresResult struct {
	Chores []models.Chore `json:"chores"`
}

type listChoresArgs struct {
	AssignedTo string `json:"assigned_to,omitempty" jsonschema:"only chores assigned to this child id"`
	Completed  *bool  `json:"completed,omitempty" jsonschema:"filter by completion"`
}

type createChoreArgs struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Value       float64 `json:"value,omitempty" jsonschema:"amount paid to the assigned child on completion"`
	AssignedTo  string  `json:"assigned_to,omitempty" jsonschema:"child id"`
}

type CompletionResult struct {
	Chore       models.Chore        `json:"chore"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Balance     *float64            `json:"balance,omitempty"`
}

func addChoreTools(server *mcp.Server, tracker service.TrackerService) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_chores",
		Description: "List chores, optionally filtered by child or completion",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args listChoresArgs) (*mcp.CallToolResult, ChoresResult, error) {
		filter := &database.ChoreFilter{Completed: args.Completed}
		if args.AssignedTo != "" {
			filter.AssignedTo = &args.AssignedTo
		}
		chores, err := tracker.ListChores(ctx, filter)
		if err != nil {
			return nil, ChoresResult{}, toolError(ctx, "list_chores", err)
		}
		out := ChoresResult{Chores: make([]models.Chore, len(chores))}
		for i, c := range chores {
			out.Chores[i] = *c
		}
		return nil, out, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_chore",
		Description: "Create a chore, optionally assigned to a child",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args createChoreArgs) (*mcp.CallToolResult, models.Chore, error) {
		chore, err := tracker.CreateChore(ctx, &models.Chore{
			Name:        args.Name,
			Description: args.Description,
			Value:       args.Value,
			AssignedTo:  args.AssignedTo,
		})
		if err != nil {
			return nil, models.Chore{}, toolError(ctx, "create_chore", err)
		}
		return nil, *chore, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_chore",
		Description: "Mark a chore completed and pay its value to the assigned child",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args idArgs) (*mcp.CallToolResult, CompletionResult, error) {
		if args.ID == "" {
			return nil, CompletionResult{}, errors.New("id is required")
		}
		done, err := tracker.CompleteChore(ctx, args.ID)
		if err != nil {
			return nil, CompletionResult{}, toolError(ctx, "complete_chore", err)
		}
		out := CompletionResult{Chore: *done.Chore, Transaction: done.Transaction}
		if done.Child != nil {
			balance := done.Child.CurrentBalance
			out.Balance = &balance
		}
		return nil, out, nil
	})
}

type ExpendituresResult struct {
	Expenditures []models.Expenditure `json:"expenditures"`
	Total        float64              `json:"total"`
}

type listExpendituresArgs struct {
	ChildName string `json:"child_name,omitempty" jsonschema:"only expenditures of this child"`
}

type recordExpenditureArgs struct {
	ChildName   string  `json:"child_name,omitempty"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date" jsonschema:"purchase date, e.g. 2025-06-01"`
	Description string  `json:"description"`
}

func addExpenditureTools(server *mcp.Server, tracker service.TrackerService) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_expenditures",
		Description: "List recorded expenditures and their total",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args listExpendituresArgs) (*mcp.CallToolResult, ExpendituresResult, error) {
		exps, err := tracker.ListExpenditures(ctx, args.ChildName)
		if err != nil {
			return nil, ExpendituresResult{}, toolError(ctx, "list_expenditures", err)
		}
		out := ExpendituresResult{Expenditures: make([]models.Expenditure, len(exps))}
		for i, e := range exps {
			out.Expenditures[i] = *e
			out.Total += e.Amount
		}
		return nil, out, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_expenditure",
		Description: "Record a purchase; amount, date and description are required",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args recordExpenditureArgs) (*mcp.CallToolResult, models.Expenditure, error) {
		exp, err := tracker.CreateExpenditure(ctx, &models.Expenditure{
			ChildName:   args.ChildName,
			Amount:      args.Amount,
			Date:        args.Date,
			Description: args.Description,
		})
		if err != nil {
			return nil, models.Expenditure{}, toolError(ctx, "record_expenditure", err)
		}
		return nil, *exp, nil
	})
}

func addReportTools(server *mcp.Server, tracker service.TrackerService) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "summary",
		Description: "Totals across all children plus per-child balances and recent transactions",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, models.Summary, error) {
		summary, err := tracker.Summary(ctx)
		if err != nil {
			return nil, models.Summary{}, toolError(ctx, "summary", err)
		}
		return nil, *summary, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "tracker_health",
		Description: "Simple health check for the tracker MCP bridge",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, map[string]string, error) {
		if err := tracker.Ping(ctx); err != nil {
			return nil, nil, toolError(ctx, "tracker_health", err)
		}
		return nil, map[string]string{"status": "ok"}, nil
	})
}

// toolError hides internal failures from the client the same way the HTTP
// API does.
func toolError(ctx context.Context, tool string, err error) error {
	if !errs.KindOf(err).Safe() {
		slog.ErrorContext(ctx, "tool call failed", logging.Tool(tool), logging.Err(err))
	}
	return fmt.Errorf("%s: %s", tool, errs.Message(err))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		return maxTransactionLimit
	}
	return limit
}
