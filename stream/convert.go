package stream

import (
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablekit/pkg/core"
	"github.com/theory-cloud/tablekit/pkg/marshal"
)

// ConvertImage converts a stream image from a Lambda event into a DynamoDB
// item. A nil or empty image converts to nil.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) core.Item {
	if len(image) == 0 {
		return nil
	}
	item := make(core.Item, len(image))
	for k, v := range image {
		item[k] = convertAttributeValue(v)
	}
	return item
}

// UnmarshalImage decodes a stream image into dest.
//
//	func handle(record events.DynamoDBEventRecord) error {
//	    var order Order
//	    return stream.UnmarshalImage(record.Change.NewImage, &order)
//	}
func UnmarshalImage(image map[string]events.DynamoDBAttributeValue, dest any) error {
	return marshal.FromStoreItem(ConvertImage(image), dest)
}

func convertAttributeValue(attr events.DynamoDBAttributeValue) types.AttributeValue {
	switch attr.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: attr.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: attr.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: attr.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: attr.Boolean()}
	case events.DataTypeList:
		list := make([]types.AttributeValue, 0, len(attr.List()))
		for _, v := range attr.List() {
			list = append(list, convertAttributeValue(v))
		}
		return &types.AttributeValueMemberL{Value: list}
	case events.DataTypeMap:
		m := make(map[string]types.AttributeValue, len(attr.Map()))
		for k, v := range attr.Map() {
			m[k] = convertAttributeValue(v)
		}
		return &types.AttributeValueMemberM{Value: m}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: attr.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: attr.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: attr.BinarySet()}
	default:
		return &types.AttributeValueMemberNULL{Value: true}
	}
}
