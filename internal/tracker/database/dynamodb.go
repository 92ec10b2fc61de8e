package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Single table layout. Every item carries pk, sk and an entity attribute.
const (
	entityUser        = "user"
	entityChild       = "child"
	entityTransaction = "transaction"
	entityChore       = "chore"
	entityExpenditure = "expenditure"

	profileSK = "PROFILE"
)

func userPK(email string) string       { return "USER#" + email }
func childPK(id string) string         { return "CHILD#" + id }
func chorePK(id string) string         { return "CHORE#" + id }
func expenditurePK(name string) string { return "EXPENDITURE#" + name }

// sortable timestamp prefix so begins_with queries come back in time order
func timeSK(prefix string, t time.Time, id string) string {
	return fmt.Sprintf("%s#%s#%s", prefix, t.UTC().Format("2006-01-02T15:04:05.000000000Z"), id)
}

type itemKey struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
}

type userItem struct {
	itemKey
	Entity    string    `dynamodbav:"entity"`
	Email     string    `dynamodbav:"email"`
	Name      string    `dynamodbav:"name"`
	GoogleID  string    `dynamodbav:"google_id"`
	Picture   *string   `dynamodbav:"picture,omitempty"`
	IsActive  bool      `dynamodbav:"is_active"`
	IsAdmin   bool      `dynamodbav:"is_admin"`
	CreatedAt time.Time `dynamodbav:"created_at"`
}

type childItem struct {
	itemKey
	Entity          string    `dynamodbav:"entity"`
	ID              string    `dynamodbav:"id"`
	Name            string    `dynamodbav:"name"`
	Age             int       `dynamodbav:"age"`
	WeeklyAllowance float64   `dynamodbav:"weekly_allowance"`
	CurrentBalance  float64   `dynamodbav:"current_balance"`
	CreatedAt       time.Time `dynamodbav:"created_at"`
}

type transactionItem struct {
	itemKey
	Entity      string    `dynamodbav:"entity"`
	ID          string    `dynamodbav:"id"`
	ChildID     string    `dynamodbav:"child_id"`
	Amount      float64   `dynamodbav:"amount"`
	Description string    `dynamodbav:"description"`
	Type        string    `dynamodbav:"transaction_type"`
	Date        time.Time `dynamodbav:"date"`
}

type choreItem struct {
	itemKey
	Entity        string     `dynamodbav:"entity"`
	ID            string     `dynamodbav:"id"`
	Name          string     `dynamodbav:"name"`
	Description   string     `dynamodbav:"description"`
	Value         float64    `dynamodbav:"value"`
	AssignedTo    string     `dynamodbav:"assigned_to"`
	Completed     bool       `dynamodbav:"completed"`
	CompletedDate *time.Time `dynamodbav:"completed_date,omitempty"`
	CreatedAt     time.Time  `dynamodbav:"created_at"`
}

type expenditureItem struct {
	itemKey
	Entity      string    `dynamodbav:"entity"`
	ID          string    `dynamodbav:"id"`
	ChildName   string    `dynamodbav:"child_name"`
	Amount      float64   `dynamodbav:"amount"`
	Date        string    `dynamodbav:"date"`
	Description string    `dynamodbav:"description"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
}

func newUserItem(u *models.User) userItem {
	return userItem{
		itemKey:   itemKey{PK: userPK(u.Email), SK: profileSK},
		Entity:    entityUser,
		Email:     u.Email,
		Name:      u.Name,
		GoogleID:  u.GoogleID,
		Picture:   u.Picture,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func (i userItem) model() *models.User {
	return &models.User{
		Email:     i.Email,
		Name:      i.Name,
		GoogleID:  i.GoogleID,
		Picture:   i.Picture,
		IsActive:  i.IsActive,
		IsAdmin:   i.IsAdmin,
		CreatedAt: i.CreatedAt.UTC(),
	}
}

func newChildItem(c *models.Child) childItem {
	return childItem{
		itemKey:         itemKey{PK: childPK(c.ID), SK: profileSK},
		Entity:          entityChild,
		ID:              c.ID,
		Name:            c.Name,
		Age:             c.Age,
		WeeklyAllowance: c.WeeklyAllowance,
		CurrentBalance:  c.CurrentBalance,
		CreatedAt:       c.CreatedAt,
	}
}

func (i childItem) model() *models.Child {
	return &models.Child{
		ID:              i.ID,
		Name:            i.Name,
		Age:             i.Age,
		WeeklyAllowance: i.WeeklyAllowance,
		CurrentBalance:  i.CurrentBalance,
		CreatedAt:       i.CreatedAt.UTC(),
	}
}

func newTransactionItem(t *models.Transaction) transactionItem {
	return transactionItem{
		itemKey:     itemKey{PK: childPK(t.ChildID), SK: timeSK("TXN", t.Date, t.ID)},
		Entity:      entityTransaction,
		ID:          t.ID,
		ChildID:     t.ChildID,
		Amount:      t.Amount,
		Description: t.Description,
		Type:        string(t.Type),
		Date:        t.Date,
	}
}

func (i transactionItem) model() *models.Transaction {
	return &models.Transaction{
		ID:          i.ID,
		ChildID:     i.ChildID,
		Amount:      i.Amount,
		Description: i.Description,
		Type:        models.TransactionType(i.Type),
		Date:        i.Date.UTC(),
	}
}

func newChoreItem(c *models.Chore) choreItem {
	return choreItem{
		itemKey:       itemKey{PK: chorePK(c.ID), SK: profileSK},
		Entity:        entityChore,
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		Value:         c.Value,
		AssignedTo:    c.AssignedTo,
		Completed:     c.Completed,
		CompletedDate: c.CompletedDate,
		CreatedAt:     c.CreatedAt,
	}
}

func (i choreItem) model() *models.Chore {
	c := &models.Chore{
		ID:          i.ID,
		Name:        i.Name,
		Description: i.Description,
		Value:       i.Value,
		AssignedTo:  i.AssignedTo,
		Completed:   i.Completed,
		CreatedAt:   i.CreatedAt.UTC(),
	}
	if i.CompletedDate != nil {
		d := i.CompletedDate.UTC()
		c.CompletedDate = &d
	}
	return c
}

func newExpenditureItem(e *models.Expenditure) expenditureItem {
	return expenditureItem{
		itemKey:     itemKey{PK: expenditurePK(e.ChildName), SK: timeSK("EXPENDITURE", e.CreatedAt, e.ID)},
		Entity:      entityExpenditure,
		ID:          e.ID,
		ChildName:   e.ChildName,
		Amount:      e.Amount,
		Date:        e.Date,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}

func (i expenditureItem) model() *models.Expenditure {
	return &models.Expenditure{
		ID:          i.ID,
		ChildName:   i.ChildName,
		Amount:      i.Amount,
		Date:        i.Date,
		Description: i.Description,
		CreatedAt:   i.CreatedAt.UTC(),
	}
}

// DynamoDB is an implementation of the Database interface on a single
// DynamoDB table with a generic pk/sk key schema.
type DynamoDB struct {
	client DynamoDBAPI
	table  string
}

var _ database.Database = (*DynamoDB)(nil)

// DynamoDBOptions configures NewDynamoDB.
type DynamoDBOptions struct {
	Table    string
	Region   string
	Endpoint string // optional, e.g. DynamoDB Local
}

// NewDynamoDB creates a store using the default AWS credential chain.
func NewDynamoDB(ctx context.Context, opts DynamoDBOptions) (*DynamoDB, error) {
	if opts.Table == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewDynamoDBWithClient(client, opts.Table), nil
}

// NewDynamoDBWithClient wraps an existing client.
func NewDynamoDBWithClient(client DynamoDBAPI, table string) *DynamoDB {
	return &DynamoDB{client: client, table: table}
}

func keyOf(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: pk},
		"sk": &types.AttributeValueMemberS{Value: sk},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func mapDynamoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", database.ErrDatabase, err)
}

func (d *DynamoDB) getItem(ctx context.Context, pk, sk string, out any) error {
	res, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            keyOf(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return mapDynamoError(err)
	}
	if len(res.Item) == 0 {
		return database.ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("%w: decode item: %w", database.ErrDatabase, err)
	}
	return nil
}

// putNew writes item only if its key is not taken yet.
func (d *DynamoDB) putNew(ctx context.Context, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("%w: encode item: %w", database.ErrInvalidInput, err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if isConditionFailed(err) {
		return database.ErrAlreadyExists
	}
	return mapDynamoError(err)
}

func (d *DynamoDB) scanEntity(ctx context.Context, entity string, out any) error {
	p := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName:                aws.String(d.table),
		FilterExpression:         aws.String("#entity = :entity"),
		ExpressionAttributeNames: map[string]string{"#entity": "entity"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entity": &types.AttributeValueMemberS{Value: entity},
		},
	})
	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return mapDynamoError(err)
		}
		items = append(items, page.Items...)
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("%w: decode items: %w", database.ErrDatabase, err)
	}
	return nil
}

func (d *DynamoDB) queryPrefix(ctx context.Context, pk, skPrefix string, out any) error {
	p := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: pk},
			":prefix": &types.AttributeValueMemberS{Value: skPrefix},
		},
		ScanIndexForward: aws.Bool(false),
	})
	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return mapDynamoError(err)
		}
		items = append(items, page.Items...)
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("%w: decode items: %w", database.ErrDatabase, err)
	}
	return nil
}

func (d *DynamoDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var item userItem
	if err := d.getItem(ctx, userPK(email), profileSK, &item); err != nil {
		return nil, err
	}
	return item.model(), nil
}

func (d *DynamoDB) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil || user.Email == "" {
		return database.ErrInvalidInput
	}
	return d.putNew(ctx, newUserItem(user))
}

func (d *DynamoDB) UpdateUser(ctx context.Context, user *models.User) error {
	av, err := attributevalue.MarshalMap(newUserItem(user))
	if err != nil {
		return fmt.Errorf("%w: encode item: %w", database.ErrInvalidInput, err)
	}
	existing, err := d.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	createdAt, err := attributevalue.Marshal(existing.CreatedAt)
	if err != nil {
		return fmt.Errorf("encode created_at: %w", err)
	}
	av["created_at"] = createdAt

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(pk)"),
	})
	if isConditionFailed(err) {
		return database.ErrNotFound
	}
	return mapDynamoError(err)
}

func (d *DynamoDB) ListUsers(ctx context.Context) ([]*models.User, error) {
	var items []userItem
	if err := d.scanEntity(ctx, entityUser, &items); err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(items))
	for _, i := range items {
		out = append(out, i.model())
	}
	sortUsers(out)
	return out, nil
}

func (d *DynamoDB) CreateChild(ctx context.Context, child *models.Child) error {
	return d.putNew(ctx, newChildItem(child))
}

func (d *DynamoDB) GetChild(ctx context.Context, id string) (*models.Child, error) {
	var item childItem
	if err := d.getItem(ctx, childPK(id), profileSK, &item); err != nil {
		return nil, err
	}
	return item.model(), nil
}

func (d *DynamoDB) ListChildren(ctx context.Context) ([]*models.Child, error) {
	var items []childItem
	if err := d.scanEntity(ctx, entityChild, &items); err != nil {
		return nil, err
	}
	out := make([]*models.Child, 0, len(items))
	for _, i := range items {
		out = append(out, i.model())
	}
	sortChildren(out)
	return out, nil
}

func (d *DynamoDB) UpdateChild(ctx context.Context, child *models.Child) error {
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(d.table),
		Key:                      keyOf(childPK(child.ID), profileSK),
		UpdateExpression:         aws.String("SET #name = :name, age = :age, weekly_allowance = :wa, current_balance = :bal"),
		ConditionExpression:      aws.String("attribute_exists(pk)"),
		ExpressionAttributeNames: map[string]string{"#name": "name"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: child.Name},
			":age":  &types.AttributeValueMemberN{Value: fmt.Sprint(child.Age)},
			":wa":   &types.AttributeValueMemberN{Value: formatNumber(child.WeeklyAllowance)},
			":bal":  &types.AttributeValueMemberN{Value: formatNumber(child.CurrentBalance)},
		},
	})
	if isConditionFailed(err) {
		return database.ErrNotFound
	}
	return mapDynamoError(err)
}

func (d *DynamoDB) DeleteChild(ctx context.Context, id string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(d.table),
		Key:                 keyOf(childPK(id), profileSK),
		ConditionExpression: aws.String("attribute_exists(pk)"),
	})
	if isConditionFailed(err) {
		return database.ErrNotFound
	}
	return mapDynamoError(err)
}

func (d *DynamoDB) ApplyTransaction(ctx context.Context, txn *models.Transaction) (*models.Child, error) {
	av, err := attributevalue.MarshalMap(newTransactionItem(txn))
	if err != nil {
		return nil, fmt.Errorf("%w: encode item: %w", database.ErrInvalidInput, err)
	}

	_, err = d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(d.table),
					Item:                av,
					ConditionExpression: aws.String("attribute_not_exists(pk)"),
				},
			},
			{
				Update: &types.Update{
					TableName:           aws.String(d.table),
					Key:                 keyOf(childPK(txn.ChildID), profileSK),
					UpdateExpression:    aws.String("ADD current_balance :delta"),
					ConditionExpression: aws.String("attribute_exists(pk)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":delta": &types.AttributeValueMemberN{Value: formatNumber(txn.Type.BalanceDelta(txn.Amount))},
					},
				},
			},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			reasons := canceled.CancellationReasons
			if len(reasons) == 2 && aws.ToString(reasons[1].Code) == "ConditionalCheckFailed" {
				return nil, fmt.Errorf("child %s: %w", txn.ChildID, database.ErrNotFound)
			}
			if len(reasons) > 0 && aws.ToString(reasons[0].Code) == "ConditionalCheckFailed" {
				return nil, database.ErrAlreadyExists
			}
		}
		return nil, mapDynamoError(err)
	}

	return d.GetChild(ctx, txn.ChildID)
}

func (d *DynamoDB) ListTransactions(ctx context.Context, filter *database.TransactionFilter) ([]*models.Transaction, error) {
	var items []transactionItem
	var err error
	if filter != nil && filter.ChildID != nil {
		err = d.queryPrefix(ctx, childPK(*filter.ChildID), "TXN#", &items)
	} else {
		err = d.scanEntity(ctx, entityTransaction, &items)
	}
	if err != nil {
		return nil, err
	}

	out := make([]*models.Transaction, 0, len(items))
	for _, i := range items {
		out = append(out, i.model())
	}
	sortTransactions(out)
	if filter != nil && filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (d *DynamoDB) CreateChore(ctx context.Context, chore *models.Chore) error {
	return d.putNew(ctx, newChoreItem(chore))
}

func (d *DynamoDB) GetChore(ctx context.Context, id string) (*models.Chore, error) {
	var item choreItem
	if err := d.getItem(ctx, chorePK(id), profileSK, &item); err != nil {
		return nil, err
	}
	return item.model(), nil
}

func (d *DynamoDB) ListChores(ctx context.Context, filter *database.ChoreFilter) ([]*models.Chore, error) {
	var items []choreItem
	if err := d.scanEntity(ctx, entityChore, &items); err != nil {
		return nil, err
	}
	out := make([]*models.Chore, 0, len(items))
	for _, i := range items {
		c := i.model()
		if choreMatches(c, filter) {
			out = append(out, c)
		}
	}
	sortChores(out)
	return out, nil
}

func (d *DynamoDB) MarkChoreCompleted(ctx context.Context, id string, at time.Time) (*models.Chore, error) {
	completedAt, err := attributevalue.Marshal(at.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: encode completed_date: %w", database.ErrInvalidInput, err)
	}

	res, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(d.table),
		Key:                 keyOf(chorePK(id), profileSK),
		UpdateExpression:    aws.String("SET completed = :true, completed_date = :at"),
		ConditionExpression: aws.String("attribute_exists(pk) AND completed = :false"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true":  &types.AttributeValueMemberBOOL{Value: true},
			":false": &types.AttributeValueMemberBOOL{Value: false},
			":at":    completedAt,
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		// Either missing or already done; tell them apart with a read.
		if _, getErr := d.GetChore(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, database.ErrAlreadyCompleted
	}
	if err != nil {
		return nil, mapDynamoError(err)
	}

	var item choreItem
	if err := attributevalue.UnmarshalMap(res.Attributes, &item); err != nil {
		return nil, fmt.Errorf("%w: decode item: %w", database.ErrDatabase, err)
	}
	return item.model(), nil
}

func (d *DynamoDB) CreateExpenditure(ctx context.Context, exp *models.Expenditure) error {
	return d.putNew(ctx, newExpenditureItem(exp))
}

func (d *DynamoDB) ListExpenditures(ctx context.Context, filter *database.ExpenditureFilter) ([]*models.Expenditure, error) {
	var items []expenditureItem
	var err error
	if filter != nil && filter.ChildName != nil {
		err = d.queryPrefix(ctx, expenditurePK(*filter.ChildName), "EXPENDITURE#", &items)
	} else {
		err = d.scanEntity(ctx, entityExpenditure, &items)
	}
	if err != nil {
		return nil, err
	}

	out := make([]*models.Expenditure, 0, len(items))
	for _, i := range items {
		out = append(out, i.model())
	}
	sortExpenditures(out)
	return out, nil
}

func (d *DynamoDB) Ping(ctx context.Context) error {
	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)})
	return mapDynamoError(err)
}

// Close is a no-op; the SDK client holds no connections that need releasing.
func (d *DynamoDB) Close() error {
	return nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
