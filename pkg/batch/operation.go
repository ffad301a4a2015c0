package batch

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablerow/pkg/key"
	"github.com/theory-cloud/tablerow/pkg/model"
)

// Operation is one write in a batch: a put of a full item or a delete by key.
type Operation struct {
	item  map[string]types.AttributeValue
	key   key.KeyValue
	table string
}

// Insert puts item into table.
func Insert(table string, item map[string]types.AttributeValue) Operation {
	return Operation{table: table, item: item}
}

// Delete removes the item under kv from table.
func Delete(table string, kv key.KeyValue) Operation {
	return Operation{table: table, key: kv}
}

// InsertRecord encodes record with mapper and puts it into the record's table.
func InsertRecord(mapper *model.Mapper, record any) (Operation, error) {
	item, err := mapper.Encode(record)
	if err != nil {
		return Operation{}, err
	}
	return Insert(mapper.TableName(), item), nil
}

// DeleteRecord removes the item stored for record from the record's table.
func DeleteRecord(mapper *model.Mapper, record any) (Operation, error) {
	kv, err := mapper.KeyValue(record)
	if err != nil {
		return Operation{}, err
	}
	return Delete(mapper.TableName(), kv), nil
}

// Table returns the table the operation targets.
func (o Operation) Table() string {
	return o.table
}

// IsDelete reports whether the operation is a delete.
func (o Operation) IsDelete() bool {
	return o.item == nil
}

func (o Operation) writeRequest() types.WriteRequest {
	if o.IsDelete() {
		return types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: o.key.ToMap()}}
	}
	return types.WriteRequest{PutRequest: &types.PutRequest{Item: o.item}}
}

// chunk splits ops into request maps of at most size writes, grouped by table.
func chunk(ops []Operation, size int) []map[string][]types.WriteRequest {
	var chunks []map[string][]types.WriteRequest
	for start := 0; start < len(ops); start += size {
		end := min(start+size, len(ops))
		requests := make(map[string][]types.WriteRequest)
		for _, op := range ops[start:end] {
			requests[op.table] = append(requests[op.table], op.writeRequest())
		}
		chunks = append(chunks, requests)
	}
	return chunks
}

func merge(dst, src map[string][]types.WriteRequest) {
	for table, requests := range src {
		dst[table] = append(dst[table], requests...)
	}
}

func count(requests map[string][]types.WriteRequest) int {
	total := 0
	for _, r := range requests {
		total += len(r)
	}
	return total
}
