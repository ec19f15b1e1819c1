/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entityrepo/errors"
)

// Attribute names written on every item.
const (
	AttrPartition  = "PK"
	AttrRow        = "SK"
	AttrEntityType = "EntityType"
	AttrTimestamp  = "Timestamp"
)

// Key addresses one item by partition and row.
type Key struct {
	Partition string
	Row       string
}

// Validate reports which half of the key is missing.
func (k Key) Validate() error {
	if strings.TrimSpace(k.Partition) == "" {
		return errors.NewArgumentError("key.partition", "must not be blank")
	}
	if strings.TrimSpace(k.Row) == "" {
		return errors.NewArgumentError("key.row", "must not be blank")
	}
	return nil
}

func (k Key) String() string {
	return k.Partition + "|" + k.Row
}

func (k Key) attributes() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPartition: &types.AttributeValueMemberS{Value: k.Partition},
		AttrRow:       &types.AttributeValueMemberS{Value: k.Row},
	}
}
