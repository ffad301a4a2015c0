package table

import (
	"github.com/aws/aws-lambda-go/events"

	"github.com/theory-cloud/tablerow/pkg/attr"
)

// DecodeStreamImage decodes a stream record image delivered to a Lambda
// handler into a record.
func (t *Table[T]) DecodeStreamImage(image map[string]events.DynamoDBAttributeValue) (T, error) {
	var record T
	if err := t.mapper.Decode(attr.FromStreamImage(image), &record); err != nil {
		return record, err
	}
	return record, nil
}

// DecodeStreamRecord decodes both images of a stream record. An image the
// stream view type did not include is returned as nil.
func (t *Table[T]) DecodeStreamRecord(record events.DynamoDBEventRecord) (newImage, oldImage *T, err error) {
	if len(record.Change.NewImage) > 0 {
		decoded, err := t.DecodeStreamImage(record.Change.NewImage)
		if err != nil {
			return nil, nil, err
		}
		newImage = &decoded
	}
	if len(record.Change.OldImage) > 0 {
		decoded, err := t.DecodeStreamImage(record.Change.OldImage)
		if err != nil {
			return nil, nil, err
		}
		oldImage = &decoded
	}
	return newImage, oldImage, nil
}
