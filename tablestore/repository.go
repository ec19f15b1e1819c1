/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/logger"
	"github.com/suparena/entityrepo/query"
	"github.com/suparena/entityrepo/repository"
)

const backendName = "table store"

// Repository stores T as items addressed by partition and row. The backend
// neither filters nor sorts: Retrieve scans the whole table and applies the
// query in memory.
type Repository[T repository.Entity[Key]] struct {
	api       API
	table     string
	typeName  string
	validator *repository.Validator
	now       func() time.Time
	maxWait   time.Duration
	log       logger.Logger
}

// Option configures a Repository
type Option func(*options)

type options struct {
	log       logger.Logger
	validator *repository.Validator
	now       func() time.Time
	maxWait   time.Duration
}

// WithLogger sets the repository logger
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithValidator replaces the entity validator. Passing nil disables validation.
func WithValidator(v *repository.Validator) Option {
	return func(o *options) {
		o.validator = v
	}
}

// WithClock sets the source of item timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTableWait bounds how long construction waits for a new table.
func WithTableWait(d time.Duration) Option {
	return func(o *options) {
		o.maxWait = d
	}
}

// New parses connectionString, connects and ensures table exists. Malformed
// connection strings fail with a ConfigFormatError.
func New[T repository.Entity[Key]](ctx context.Context, connectionString, table string, opts ...Option) (*Repository[T], error) {
	settings, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}
	client, err := NewClient(ctx, settings)
	if err != nil {
		return nil, errors.NewRepositoryError("connect", repository.TypeName[T](), "", err)
	}
	return NewWithClient[T](ctx, client, table, opts...)
}

// NewWithClient builds a repository on an existing client and ensures table exists.
func NewWithClient[T repository.Entity[Key]](ctx context.Context, api API, table string, opts ...Option) (*Repository[T], error) {
	if api == nil {
		return nil, errors.NewArgumentError("api", "must not be nil")
	}
	if table == "" {
		return nil, errors.NewArgumentError("table", "must not be blank")
	}
	o := options{
		log:       logger.Discard(),
		validator: repository.NewValidator(),
		now:       time.Now,
		maxWait:   DefaultTableWait,
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Repository[T]{
		api:       api,
		table:     table,
		typeName:  repository.TypeName[T](),
		validator: o.validator,
		now:       o.now,
		maxWait:   o.maxWait,
		log:       o.log.With("entity", repository.TypeName[T](), "table", table),
	}
	if _, err := EnsureTable(ctx, api, table, r.maxWait, r.log); err != nil {
		return nil, r.translate("ensure table", "", err)
	}
	return r, nil
}

// record is an item decoded together with its write timestamp.
type record[T any] struct {
	entity    T
	timestamp time.Time
}

// Count returns the number of items of T. Without a filter the table counts
// them; with one every item is scanned and matched.
func (r *Repository[T]) Count(ctx context.Context, filter *query.Filter[T]) (int, error) {
	if filter != nil {
		records, err := r.scan(ctx)
		if err != nil {
			return 0, err
		}
		var n int64
		for _, rec := range records {
			ok, err := filter.Matches(rec.entity)
			if err != nil {
				return 0, err
			}
			if ok {
				n++
			}
		}
		return repository.CheckCount(n, r.typeName)
	}

	var total int64
	paginator := sdk.NewScanPaginator(r.api, r.scanInput(types.SelectCount))
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isResourceNotFound(err) {
				return 0, nil
			}
			return 0, r.translate("count", "", err)
		}
		total += int64(page.Count)
	}
	return repository.CheckCount(total, r.typeName)
}

// Exists reports whether an item is stored under key.
func (r *Repository[T]) Exists(ctx context.Context, key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	out, err := r.api.GetItem(ctx, &sdk.GetItemInput{
		TableName:                aws.String(r.table),
		Key:                      key.attributes(),
		ProjectionExpression:     aws.String("#type"),
		ExpressionAttributeNames: map[string]string{"#type": AttrEntityType},
	})
	if err != nil {
		if isResourceNotFound(err) {
			return false, nil
		}
		return false, r.translate("exists", key.String(), err)
	}
	return r.owns(out.Item), nil
}

// Retrieve scans every item of T, then filters, sorts and pages in memory.
// Without a sort, items are ordered by write timestamp, newest first.
func (r *Repository[T]) Retrieve(ctx context.Context, q query.Query[T]) ([]T, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(q.Includes) > 0 {
		return nil, errors.NewNotImplementedError("includes", backendName)
	}

	records, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].timestamp.After(records[j].timestamp) })

	items := make([]T, len(records))
	for i, rec := range records {
		items[i] = rec.entity
	}
	// a caller sort is stable, so equal elements keep newest-first order
	return query.Apply(items, q)
}

// RetrieveByKey returns the item stored under key, or nil when absent.
func (r *Repository[T]) RetrieveByKey(ctx context.Context, key Key, includes ...string) (*T, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if len(includes) > 0 {
		return nil, errors.NewNotImplementedError("includes", backendName)
	}
	out, err := r.api.GetItem(ctx, &sdk.GetItemInput{
		TableName: aws.String(r.table),
		Key:       key.attributes(),
	})
	if err != nil {
		if isResourceNotFound(err) {
			return nil, nil
		}
		return nil, r.translate("retrieve", key.String(), err)
	}
	if !r.owns(out.Item) {
		return nil, nil
	}
	rec, err := r.decode(out.Item)
	if err != nil {
		return nil, errors.NewRepositoryError("retrieve", r.typeName, key.String(), err)
	}
	return &rec.entity, nil
}

// owns reports whether item is present and was written for T.
func (r *Repository[T]) owns(item map[string]types.AttributeValue) bool {
	if item == nil {
		return false
	}
	v, ok := item[AttrEntityType].(*types.AttributeValueMemberS)
	return ok && v.Value == r.typeName
}

// ownedCondition matches a stored item of T. Items of another type under the
// same key read as absent.
func (r *Repository[T]) ownedCondition() (*string, map[string]string, map[string]types.AttributeValue) {
	return aws.String(fmt.Sprintf("attribute_exists(%s) AND #type = :type", AttrPartition)),
		map[string]string{"#type": AttrEntityType},
		map[string]types.AttributeValue{":type": &types.AttributeValueMemberS{Value: r.typeName}}
}

// Create stores entity unless its key is taken. A key holds one item, so an
// item of another type under the same key also fails with AlreadyExists.
func (r *Repository[T]) Create(ctx context.Context, entity T) error {
	return r.put(ctx, "create", entity, &sdk.PutItemInput{
		ConditionExpression: aws.String(fmt.Sprintf("attribute_not_exists(%s)", AttrPartition)),
	})
}

// Update replaces the stored item. An absent key, or one holding another
// type, fails with NotFound.
func (r *Repository[T]) Update(ctx context.Context, entity T) error {
	cond, names, values := r.ownedCondition()
	return r.put(ctx, "update", entity, &sdk.PutItemInput{
		ConditionExpression:       cond,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
}

// Delete removes the stored item. An absent key fails with NotFound.
func (r *Repository[T]) Delete(ctx context.Context, entity T) error {
	if err := repository.CheckEntity[T, Key](entity); err != nil {
		return err
	}
	key := entity.Key()
	cond, names, values := r.ownedCondition()
	_, err := r.api.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:                 aws.String(r.table),
		Key:                       key.attributes(),
		ConditionExpression:       cond,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionFailed(err) || isResourceNotFound(err) {
			return errors.NewNotFoundError(r.typeName, key.String())
		}
		return r.translate("delete", key.String(), err)
	}
	r.log.Debug("deleted", "key", key.String())
	return nil
}

func (r *Repository[T]) put(ctx context.Context, op string, entity T, in *sdk.PutItemInput) error {
	if err := repository.CheckEntity[T, Key](entity); err != nil {
		return err
	}
	key := entity.Key()
	if err := r.validator.Check(entity, r.typeName, key.String()); err != nil {
		return err
	}
	item, err := r.encode(entity)
	if err != nil {
		return errors.NewRepositoryError(op, r.typeName, key.String(), err)
	}

	in.TableName = aws.String(r.table)
	in.Item = item
	_, err = r.api.PutItem(ctx, in)
	if err != nil {
		switch {
		case op == "create" && (isConditionFailed(err) || statusCode(err) == http.StatusConflict):
			return &errors.AlreadyExistsError{Type: r.typeName, Key: key.String(), Err: err}
		case op == "update" && (isConditionFailed(err) || isResourceNotFound(err)):
			return errors.NewNotFoundError(r.typeName, key.String())
		}
		return r.translate(op, key.String(), err)
	}
	r.log.Debug(op+"d", "key", key.String())
	return nil
}

// CreateBulk is not supported by the table store.
func (r *Repository[T]) CreateBulk(context.Context, []T) error {
	return errors.NewNotImplementedError("CreateBulk", backendName)
}

// UpdateBulk is not supported by the table store.
func (r *Repository[T]) UpdateBulk(context.Context, []T) error {
	return errors.NewNotImplementedError("UpdateBulk", backendName)
}

// DeleteBulk is not supported by the table store.
func (r *Repository[T]) DeleteBulk(context.Context, []T) error {
	return errors.NewNotImplementedError("DeleteBulk", backendName)
}

func (r *Repository[T]) scanInput(sel types.Select) *sdk.ScanInput {
	return &sdk.ScanInput{
		TableName:                 aws.String(r.table),
		Select:                    sel,
		FilterExpression:          aws.String("#type = :type"),
		ExpressionAttributeNames:  map[string]string{"#type": AttrEntityType},
		ExpressionAttributeValues: map[string]types.AttributeValue{":type": &types.AttributeValueMemberS{Value: r.typeName}},
	}
}

// scan reads every item of T in table order.
func (r *Repository[T]) scan(ctx context.Context) ([]record[T], error) {
	var records []record[T]
	paginator := sdk.NewScanPaginator(r.api, r.scanInput(types.SelectAllAttributes))
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isResourceNotFound(err) {
				return nil, nil
			}
			return nil, r.translate("retrieve", "", err)
		}
		for _, item := range page.Items {
			rec, err := r.decode(item)
			if err != nil {
				return nil, errors.NewRepositoryError("retrieve", r.typeName, "", err)
			}
			records = append(records, rec)
		}
	}
	r.log.Debug("scanned", "count", len(records))
	return records, nil
}

func (r *Repository[T]) encode(entity T) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	for name, value := range entity.Key().attributes() {
		item[name] = value
	}
	item[AttrEntityType] = &types.AttributeValueMemberS{Value: r.typeName}
	item[AttrTimestamp] = &types.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339Nano)}
	return item, nil
}

func (r *Repository[T]) decode(item map[string]types.AttributeValue) (record[T], error) {
	var rec record[T]
	if err := attributevalue.UnmarshalMap(item, &rec.entity); err != nil {
		return rec, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	if ts, ok := item[AttrTimestamp].(*types.AttributeValueMemberS); ok {
		parsed, err := time.Parse(time.RFC3339Nano, ts.Value)
		if err != nil {
			return rec, fmt.Errorf("failed to parse %s attribute: %w", AttrTimestamp, err)
		}
		rec.timestamp = parsed
	}
	return rec, nil
}

// translate wraps service faults as Repository faults carrying the HTTP
// status. Anything else, such as context cancellation, is returned unchanged.
func (r *Repository[T]) translate(op, key string, err error) error {
	var apiErr smithy.APIError
	code := statusCode(err)
	if code == 0 && !stderrors.As(err, &apiErr) {
		return err
	}
	return &errors.RepositoryError{Op: op, Type: r.typeName, Key: key, StatusCode: code, Err: err}
}

func statusCode(err error) int {
	var re *smithyhttp.ResponseError
	if stderrors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

func isConditionFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return stderrors.As(err, &cfe)
}

func isResourceNotFound(err error) bool {
	var rnf *types.ResourceNotFoundException
	return stderrors.As(err, &rnf)
}
