package dynamo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is an in-memory table that understands the expressions the store
// builds: attribute_(not_)exists conditions, SET/REMOVE updates and a single
// equality key condition on an index partition.
type fakeAPI struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	exists   bool
	created  *dynamodb.CreateTableInput
	pageSize int
	puts     int
	updates  int
	queries  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue), exists: true}
}

func sval(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func itemKey(k map[string]types.AttributeValue) string {
	return sval(k[attrPK]) + "|" + sval(k[attrSK])
}

func copyItem(it map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemKey(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(it)}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	k := itemKey(in.Item)
	if _, ok := f.items[k]; ok && in.ConditionExpression != nil && strings.Contains(*in.ConditionExpression, "attribute_not_exists") {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	f.items[k] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	k := itemKey(in.Key)
	it, ok := f.items[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	it = copyItem(it)

	tokens := strings.Fields(strings.ReplaceAll(aws.ToString(in.UpdateExpression), ",", " "))
	mode := ""
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "SET", "REMOVE":
			mode = tokens[i]
			continue
		}
		name := in.ExpressionAttributeNames[tokens[i]]
		if mode == "SET" {
			it[name] = in.ExpressionAttributeValues[tokens[i+2]]
			i += 2
			continue
		}
		delete(it, name)
	}
	f.items[k] = it
	return &dynamodb.UpdateItemOutput{Attributes: copyItem(it)}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++

	var want string
	for _, v := range in.ExpressionAttributeValues {
		want = sval(v)
	}

	var matched []map[string]types.AttributeValue
	for _, it := range f.items {
		if sval(it[attrGSI1PK]) == want {
			matched = append(matched, it)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := sval(matched[i][attrGSI1SK]), sval(matched[j][attrGSI1SK])
		if a != b {
			return a < b
		}
		return sval(matched[i][attrPK]) < sval(matched[j][attrPK])
	})

	if in.ExclusiveStartKey != nil {
		after := itemKey(in.ExclusiveStartKey)
		for i, it := range matched {
			if itemKey(it) == after {
				matched = matched[i+1:]
				break
			}
		}
	}

	out := &dynamodb.QueryOutput{}
	if f.pageSize > 0 && len(matched) > f.pageSize {
		matched = matched[:f.pageSize]
		last := matched[len(matched)-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			attrPK:     last[attrPK],
			attrSK:     last[attrSK],
			attrGSI1PK: last[attrGSI1PK],
			attrGSI1SK: last[attrGSI1SK],
		}
	}
	for _, it := range matched {
		projected := copyItem(it)
		delete(projected, "editToken")
		out.Items = append(out.Items, projected)
	}
	return out, nil
}

func (f *fakeAPI) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exists {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists")}
	}
	f.created = in
	f.exists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}
