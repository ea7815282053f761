package orders

import "strconv"

const (
	TopicOrderSubmitted     = "storefront.order.submitted"
	TopicOrderStatusChanged = "storefront.order.status"
	TopicOrderDeleted       = "storefront.order.deleted"
)

// TopicFor maps an event type to its topic; unknown types map to "".
func TopicFor(eventType string) string {
	switch eventType {
	case EventOrderSubmitted:
		return TopicOrderSubmitted
	case EventOrderStatusChanged:
		return TopicOrderStatusChanged
	case EventOrderDeleted:
		return TopicOrderDeleted
	}
	return ""
}

// Partition key = order_id, so the events of one order stay ordered.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
