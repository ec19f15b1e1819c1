/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_SendsEachCallOnce(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/x-amz-json-1.0")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"__type":"com.amazonaws.dynamodb.v20120810#InternalServerError","message":"boom"}`))
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), Settings{
		Region:      "us-east-1",
		AccountName: "tester",
		AccountKey:  "secretkey",
		Endpoint:    srv.URL,
	})
	require.NoError(t, err)

	_, err = client.GetItem(context.Background(), &sdk.GetItemInput{
		TableName: aws.String("entities"),
		Key:       Key{Partition: "ana", Row: "1"}.attributes(),
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load(), "a failed call is not retried")
}
