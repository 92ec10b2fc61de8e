package trackerserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "github.com/scottsaenz/child-allowance-tracker/internal/tracker/database"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
)

func connect(t *testing.T, tracker service.TrackerService) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(tracker)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err, "connect MCP server")

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err, "connect MCP client")

	t.Cleanup(func() {
		_ = clientSession.Close()
		_ = serverSession.Wait()
	})
	return clientSession
}

func callTool[T any](t *testing.T, session *mcp.ClientSession, name string, args map[string]any) T {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "call %s", name)
	require.False(t, res.IsError, "tool %s returned an error: %+v", name, res.Content)
	require.NotNil(t, res.StructuredContent, "structured output present")

	var out T
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestListTools(t *testing.T) {
	session := connect(t, service.NewTrackerService(internaldb.NewMemory()))

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_children", "get_child", "create_child",
		"list_transactions", "record_transaction",
		"list_chores", "create_chore", "complete_chore",
		"list_expenditures", "record_expenditure",
		"summary", "tracker_health",
	}, names)
}

func TestChildAndTransactionTools(t *testing.T) {
	session := connect(t, service.NewTrackerService(internaldb.NewMemory()))

	child := callTool[models.Child](t, session, "create_child", map[string]any{"name": "Alice", "weekly_allowance": 5})
	require.NotEmpty(t, child.ID)

	txn := callTool[models.Transaction](t, session, "record_transaction", map[string]any{
		"child_id": child.ID, "amount": 5, "transaction_type": "allowance",
	})
	assert.Equal(t, models.TransactionTypeAllowance, txn.Type)

	got := callTool[models.Child](t, session, "get_child", map[string]any{"id": child.ID})
	assert.InDelta(t, 5.0, got.CurrentBalance, 1e-9)

	list := callTool[ChildrenResult](t, session, "list_children", nil)
	require.Len(t, list.Children, 1)

	txns := callTool[TransactionsResult](t, session, "list_transactions", map[string]any{"child_id": child.ID})
	assert.Len(t, txns.Transactions, 1)

	summary := callTool[models.Summary](t, session, "summary", nil)
	assert.Equal(t, 1, summary.Totals.TotalChildren)
}

func TestChoreTools(t *testing.T) {
	session := connect(t, service.NewTrackerService(internaldb.NewMemory()))

	child := callTool[models.Child](t, session, "create_child", map[string]any{"name": "Bob"})
	chore := callTool[models.Chore](t, session, "create_chore", map[string]any{
		"name": "Dishes", "value": 2, "assigned_to": child.ID,
	})

	pending := callTool[ChoresResult](t, session, "list_chores", map[string]any{"completed": false})
	require.Len(t, pending.Chores, 1)

	done := callTool[CompletionResult](t, session, "complete_chore", map[string]any{"id": chore.ID})
	assert.True(t, done.Chore.Completed)
	require.NotNil(t, done.Transaction)
	require.NotNil(t, done.Balance)
	assert.InDelta(t, 2.0, *done.Balance, 1e-9)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "complete_chore",
		Arguments: map[string]any{"id": chore.ID},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestExpenditureTools(t *testing.T) {
	session := connect(t, service.NewTrackerService(internaldb.NewMemory()))

	callTool[models.Expenditure](t, session, "record_expenditure", map[string]any{
		"child_name": "Alice", "amount": 4.5, "date": "2025-06-01", "description": "Stickers",
	})
	callTool[models.Expenditure](t, session, "record_expenditure", map[string]any{
		"child_name": "Bob", "amount": 1, "date": "2025-06-02", "description": "Gum",
	})

	alice := callTool[ExpendituresResult](t, session, "list_expenditures", map[string]any{"child_name": "Alice"})
	require.Len(t, alice.Expenditures, 1)
	assert.InDelta(t, 4.5, alice.Total, 1e-9)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "record_expenditure",
		Arguments: map[string]any{"amount": 0, "date": "2025-06-01", "description": "Nothing"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestToolErrorsAreSanitized(t *testing.T) {
	session := connect(t, service.NewTrackerService(internaldb.NewMemory()))

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_child",
		Arguments: map[string]any{"id": "child_missing"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "child not found")
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultTransactionLimit, clampLimit(0))
	assert.Equal(t, 10, clampLimit(10))
	assert.Equal(t, maxTransactionLimit, clampLimit(10_000))
}
