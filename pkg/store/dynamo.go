package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/propdesk/leadadmin/pkg/models"
)

// recordType is the constant partition key of the by-date GSI, giving a
// single date_time-ordered partition to query leads from.
const recordType = "lead"

// transactLimit is the DynamoDB TransactWriteItems item cap.
const transactLimit = MaxBatch

// Dynamo implements LeadStore and UserStore over DynamoDB.
type Dynamo struct {
	db          *dynamodb.Client
	leadsTable  string
	usersTable  string
	byDateIndex string
}

// DynamoConfig names the tables and index the store uses.
type DynamoConfig struct {
	LeadsTable  string
	UsersTable  string
	ByDateIndex string
}

// NewDynamo creates a store over an initialized DynamoDB client.
func NewDynamo(db *dynamodb.Client, cfg DynamoConfig) *Dynamo {
	return &Dynamo{
		db:          db,
		leadsTable:  cfg.LeadsTable,
		usersTable:  cfg.UsersTable,
		byDateIndex: cfg.ByDateIndex,
	}
}

// dynamoCursor round-trips the ExclusiveStartKey of the by-date index.
type dynamoCursor struct {
	ID       string `json:"id"`
	DateTime string `json:"dt"`
}

func encodeCursor(key map[string]types.AttributeValue) Cursor {
	cur := dynamoCursor{}
	if v, ok := key["id"].(*types.AttributeValueMemberS); ok {
		cur.ID = v.Value
	}
	if v, ok := key["date_time"].(*types.AttributeValueMemberS); ok {
		cur.DateTime = v.Value
	}
	raw, err := json.Marshal(cur)
	if err != nil {
		return ""
	}
	return Cursor(base64.RawURLEncoding.EncodeToString(raw))
}

func decodeCursor(c Cursor) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	var cur dynamoCursor
	if err := json.Unmarshal(raw, &cur); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	if cur.ID == "" || cur.DateTime == "" {
		return nil, ErrBadCursor
	}
	return map[string]types.AttributeValue{
		"id":          &types.AttributeValueMemberS{Value: cur.ID},
		"record_type": &types.AttributeValueMemberS{Value: recordType},
		"date_time":   &types.AttributeValueMemberS{Value: cur.DateTime},
	}, nil
}

func (d *Dynamo) leadQueryInput(q LeadQuery) *dynamodb.QueryInput {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.leadsTable),
		IndexName:              aws.String(d.byDateIndex),
		KeyConditionExpression: aws.String("record_type = :rt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rt": &types.AttributeValueMemberS{Value: recordType},
		},
		ScanIndexForward: aws.Bool(false), // date_time descending
	}
	if q.AssignedTo != "" {
		input.FilterExpression = aws.String("contains(assigned_to, :assignee)")
		input.ExpressionAttributeValues[":assignee"] = &types.AttributeValueMemberS{Value: q.AssignedTo}
	}
	return input
}

// List fetches one page of leads ordered by date_time descending.
func (d *Dynamo) List(ctx context.Context, q LeadQuery) (*LeadPage, error) {
	input := d.leadQueryInput(q)
	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}
	if q.StartAfter != "" {
		key, err := decodeCursor(q.StartAfter)
		if err != nil {
			return nil, err
		}
		input.ExclusiveStartKey = key
	}

	out, err := d.db.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("querying leads: %w", err)
	}

	leads := make([]*models.Lead, 0, len(out.Items))
	for _, item := range out.Items {
		var l models.Lead
		if err := attributevalue.UnmarshalMap(item, &l); err != nil {
			return nil, fmt.Errorf("unmarshaling lead: %w", err)
		}
		l.Normalize()
		leads = append(leads, &l)
	}

	page := &LeadPage{Leads: leads}
	if out.LastEvaluatedKey != nil {
		page.Next = encodeCursor(out.LastEvaluatedKey)
	}
	return page, nil
}

// Count runs a server-side count over the same constraints as List. It
// pages through COUNT results because a single query response is capped.
func (d *Dynamo) Count(ctx context.Context, q LeadQuery) (int, error) {
	input := d.leadQueryInput(q)
	input.Select = types.SelectCount

	total := 0
	for {
		out, err := d.db.Query(ctx, input)
		if err != nil {
			return 0, fmt.Errorf("counting leads: %w", err)
		}
		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return total, nil
}

// Get fetches a single lead by id.
func (d *Dynamo) Get(ctx context.Context, id string) (*models.Lead, error) {
	out, err := d.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.leadsTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting lead %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var l models.Lead
	if err := attributevalue.UnmarshalMap(out.Item, &l); err != nil {
		return nil, fmt.Errorf("unmarshaling lead: %w", err)
	}
	l.Normalize()
	return &l, nil
}

func leadItem(l *models.Lead) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(l)
	if err != nil {
		return nil, fmt.Errorf("marshaling lead: %w", err)
	}
	item["record_type"] = &types.AttributeValueMemberS{Value: recordType}
	return item, nil
}

// Put inserts or replaces a single lead.
func (d *Dynamo) Put(ctx context.Context, lead *models.Lead) error {
	item, err := leadItem(lead)
	if err != nil {
		return err
	}
	_, err = d.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.leadsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("putting lead %s: %w", lead.ID, err)
	}
	return nil
}

// Update applies a partial update to an existing lead. name, status and
// notes are reserved words in DynamoDB expressions, so all attribute names
// go through placeholders.
func (d *Dynamo) Update(ctx context.Context, id string, upd *models.LeadUpdate) error {
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	expr := ""

	set := func(attr string, v types.AttributeValue) {
		placeholder := fmt.Sprintf("#f%d", len(names))
		names[placeholder] = attr
		valueKey := fmt.Sprintf(":v%d", len(values))
		values[valueKey] = v
		if expr != "" {
			expr += ", "
		}
		expr += placeholder + " = " + valueKey
	}
	setString := func(attr string, v *string) {
		if v != nil {
			set(attr, &types.AttributeValueMemberS{Value: *v})
		}
	}
	setList := func(attr string, v *[]string) {
		if v == nil {
			return
		}
		av, err := attributevalue.Marshal(*v)
		if err == nil {
			set(attr, av)
		}
	}

	setString("date_of_calling", upd.DateOfCalling)
	setString("followup1", upd.Followup1)
	setString("followup2", upd.Followup2)
	setString("followup3", upd.Followup3)
	setString("status", upd.Status)
	setString("lead_color", upd.LeadColor)
	setList("notes", upd.Notes)
	setList("assigned_to", upd.AssignedTo)
	set("updated_at", &types.AttributeValueMemberS{Value: upd.UpdatedAt.Format(time.RFC3339Nano)})

	_, err := d.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.leadsTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:          aws.String("SET " + expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(id)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return ErrNotFound
		}
		return fmt.Errorf("updating lead %s: %w", id, err)
	}
	return nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Delete removes a lead by id.
func (d *Dynamo) Delete(ctx context.Context, id string) error {
	_, err := d.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.leadsTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting lead %s: %w", id, err)
	}
	return nil
}

// BatchPut inserts the leads in a single TransactWriteItems call, which
// caps out at transactLimit items. Larger batches are rejected outright
// rather than chained, since a chain can half-land when a later chunk
// fails.
func (d *Dynamo) BatchPut(ctx context.Context, leads []*models.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	if len(leads) > transactLimit {
		return fmt.Errorf("batch inserting %d leads: %w (max %d)", len(leads), ErrBatchTooLarge, transactLimit)
	}

	items := make([]types.TransactWriteItem, 0, len(leads))
	for _, l := range leads {
		item, err := leadItem(l)
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(d.leadsTable),
				Item:      item,
			},
		})
	}

	if _, err := d.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	}); err != nil {
		return fmt.Errorf("batch inserting leads: %w", err)
	}
	return nil
}

// BulkAssign atomically points assigned_to at one user on every given lead.
func (d *Dynamo) BulkAssign(ctx context.Context, ids []string, assignee string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > transactLimit {
		return fmt.Errorf("bulk assigning %d leads: %w (max %d)", len(ids), ErrBatchTooLarge, transactLimit)
	}

	assigned, err := attributevalue.Marshal([]string{assignee})
	if err != nil {
		return fmt.Errorf("marshaling assignee: %w", err)
	}
	now := &types.AttributeValueMemberS{Value: nowRFC3339()}

	items := make([]types.TransactWriteItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName: aws.String(d.leadsTable),
				Key: map[string]types.AttributeValue{
					"id": &types.AttributeValueMemberS{Value: id},
				},
				UpdateExpression: aws.String("SET assigned_to = :a, updated_at = :u"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":a": assigned,
					":u": now,
				},
				ConditionExpression: aws.String("attribute_exists(id)"),
			},
		})
	}

	if _, err := d.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	}); err != nil {
		return fmt.Errorf("bulk assigning leads: %w", err)
	}
	return nil
}

// GetByEmail looks up a user document by email.
func (d *Dynamo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	out, err := d.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.usersTable),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", email, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var u models.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshaling user: %w", err)
	}
	return &u, nil
}

// ListByRole enumerates users with the given role. The users collection is
// small, so a filtered scan is fine here.
func (d *Dynamo) ListByRole(ctx context.Context, role string) ([]*models.User, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(d.usersTable),
		FilterExpression: aws.String("#r = :role"),
		ExpressionAttributeNames: map[string]string{
			"#r": "role",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":role": &types.AttributeValueMemberS{Value: role},
		},
	}

	var users []*models.User
	for {
		out, err := d.db.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("listing %s users: %w", role, err)
		}
		for _, item := range out.Items {
			var u models.User
			if err := attributevalue.UnmarshalMap(item, &u); err != nil {
				return nil, fmt.Errorf("unmarshaling user: %w", err)
			}
			users = append(users, &u)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return users, nil
}

// PutUser inserts or replaces a user document.
func (d *Dynamo) PutUser(ctx context.Context, u *models.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshaling user: %w", err)
	}
	_, err = d.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.usersTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("putting user %s: %w", u.Email, err)
	}
	return nil
}
