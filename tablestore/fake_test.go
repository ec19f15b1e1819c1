/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is an in-memory table honoring the condition and filter
// expressions the repository sends.
type fakeAPI struct {
	mu       sync.Mutex
	exists   bool
	creates  int
	order    []string
	items    map[string]map[string]types.AttributeValue
	pageSize int
	scans    int
	// fail, when set, is returned by the next data-plane call.
	fail error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue), pageSize: 2}
}

func itemKey(key map[string]types.AttributeValue) string {
	return str(key[AttrPartition]) + "|" + str(key[AttrRow])
}

func str(v types.AttributeValue) string {
	if s, ok := v.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeAPI) takeFailure() error {
	err := f.fail
	f.fail = nil
	return err
}

func (f *fakeAPI) tableMissing(name *string) error {
	if !f.exists {
		return &types.ResourceNotFoundException{Message: name}
	}
	return nil
}

func (f *fakeAPI) condition(expr *string, values map[string]types.AttributeValue, k string) error {
	if expr == nil {
		return nil
	}
	item, present := f.items[k]
	if want := str(values[":type"]); present && want != "" && str(item[AttrEntityType]) != want {
		present = false
	}
	switch {
	case strings.HasPrefix(*expr, "attribute_not_exists") && present,
		strings.HasPrefix(*expr, "attribute_exists") && !present:
		return &types.ConditionalCheckFailedException{}
	}
	return nil
}

func (f *fakeAPI) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	if err := f.tableMissing(in.TableName); err != nil {
		return nil, err
	}
	return &sdk.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	if err := f.tableMissing(in.TableName); err != nil {
		return nil, err
	}
	k := itemKey(in.Item)
	if err := f.condition(in.ConditionExpression, in.ExpressionAttributeValues, k); err != nil {
		return nil, err
	}
	if _, ok := f.items[k]; !ok {
		f.order = append(f.order, k)
	}
	f.items[k] = in.Item
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	if err := f.tableMissing(in.TableName); err != nil {
		return nil, err
	}
	k := itemKey(in.Key)
	if err := f.condition(in.ConditionExpression, in.ExpressionAttributeValues, k); err != nil {
		return nil, err
	}
	delete(f.items, k)
	for i, o := range f.order {
		if o == k {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return &sdk.DeleteItemOutput{}, nil
}

func (f *fakeAPI) Scan(_ context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	if err := f.tableMissing(in.TableName); err != nil {
		return nil, err
	}

	start := 0
	if in.ExclusiveStartKey != nil {
		last := itemKey(in.ExclusiveStartKey)
		for i, k := range f.order {
			if k == last {
				start = i + 1
				break
			}
		}
	}
	size := f.pageSize
	if in.Limit != nil {
		size = int(*in.Limit)
	}
	end := start + size
	if end > len(f.order) {
		end = len(f.order)
	}

	wantType := str(in.ExpressionAttributeValues[":type"])
	out := &sdk.ScanOutput{}
	for _, k := range f.order[start:end] {
		item := f.items[k]
		if wantType != "" && str(item[AttrEntityType]) != wantType {
			continue
		}
		out.Count++
		if in.Select != types.SelectCount {
			out.Items = append(out.Items, item)
		}
	}
	if end < len(f.order) {
		last := f.items[f.order[end-1]]
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			AttrPartition: last[AttrPartition],
			AttrRow:       last[AttrRow],
		}
	}
	return out, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *sdk.DescribeTableInput, _ ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.tableMissing(in.TableName); err != nil {
		return nil, err
	}
	return &sdk.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (f *fakeAPI) CreateTable(_ context.Context, in *sdk.CreateTableInput, _ ...func(*sdk.Options)) (*sdk.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exists {
		return nil, &types.ResourceInUseException{Message: in.TableName}
	}
	if len(in.KeySchema) != 2 {
		return nil, fmt.Errorf("unexpected key schema %v", in.KeySchema)
	}
	f.exists = true
	f.creates++
	return &sdk.CreateTableOutput{}, nil
}

var _ API = (*fakeAPI)(nil)
