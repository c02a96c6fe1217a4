package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/syssam/derive"
	"github.com/syssam/derive/bind"
)

// Client is the subset of the DynamoDB API used to run statements.
// *dynamodb.Client implements it.
type Client interface {
	ExecuteStatement(ctx context.Context, in *dynamodb.ExecuteStatementInput, opts ...func(*dynamodb.Options)) (*dynamodb.ExecuteStatementOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

// Encode marshals bound arguments into attribute values.
func Encode(args []any) ([]types.AttributeValue, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]types.AttributeValue, len(args))
	for i, a := range args {
		av, err := attributevalue.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: encode argument %d: %w", i+1, err)
		}
		out[i] = av
	}
	return out, nil
}

// Decode unmarshals returned items into plain maps.
func Decode(items []map[string]types.AttributeValue) ([]map[string]any, error) {
	var out []map[string]any
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, fmt.Errorf("dynamodb: decode items: %w", err)
	}
	return out, nil
}

func input(ex *bind.Executable) (*dynamodb.ExecuteStatementInput, error) {
	params, err := Encode(ex.Args)
	if err != nil {
		return nil, err
	}
	return &dynamodb.ExecuteStatementInput{
		Statement:  aws.String(ex.Text),
		Parameters: params,
	}, nil
}

// Exec runs a bound insert, update or delete. A guarded mutation whose
// condition fails returns derive.ErrStale.
func Exec(ctx context.Context, c Client, ex *bind.Executable) error {
	in, err := input(ex)
	if err != nil {
		return err
	}
	_, err = c.ExecuteStatement(ctx, in)
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) && ex.Statement.Guarded {
		return derive.ErrStale
	}
	return err
}

// each runs a bound query, following pagination tokens, and calls fn for
// every returned item until fn returns false.
func each(ctx context.Context, c Client, ex *bind.Executable, fn func(map[string]types.AttributeValue) bool) error {
	in, err := input(ex)
	if err != nil {
		return err
	}
	for {
		out, err := c.ExecuteStatement(ctx, in)
		if err != nil {
			return err
		}
		for _, item := range out.Items {
			if !fn(item) {
				return nil
			}
		}
		if out.NextToken == nil {
			return nil
		}
		in.NextToken = out.NextToken
	}
}

// Query runs a bound query and returns the decoded items, applying the
// statement's paging window.
func Query(ctx context.Context, c Client, ex *bind.Executable) ([]map[string]any, error) {
	var (
		items        []map[string]types.AttributeValue
		skip, remain = 0, -1
	)
	if p := ex.Statement.Paging; p != nil {
		skip = p.Offset
		if p.Limit > 0 {
			remain = p.Limit
		}
	}
	err := each(ctx, c, ex, func(item map[string]types.AttributeValue) bool {
		if remain == 0 {
			return false
		}
		if skip > 0 {
			skip--
			return true
		}
		items = append(items, item)
		if remain > 0 {
			remain--
		}
		return remain != 0
	})
	if err != nil {
		return nil, err
	}
	return Decode(items)
}

// Count runs a bound count statement and counts the returned items.
func Count(ctx context.Context, c Client, ex *bind.Executable) (int64, error) {
	var n int64
	err := each(ctx, c, ex, func(map[string]types.AttributeValue) bool {
		n++
		return true
	})
	return n, err
}

// Exists runs a bound existence statement.
func Exists(ctx context.Context, c Client, ex *bind.Executable) (bool, error) {
	var found bool
	err := each(ctx, c, ex, func(map[string]types.AttributeValue) bool {
		found = true
		return false
	})
	return found, err
}
