package events

import (
	"encoding/json"
	"time"
)

// ChangeType names what happened to a product.
type ChangeType string

const (
	ProductCreated         ChangeType = "created"
	ProductUpdated         ChangeType = "updated"
	ProductQuantityChanged ChangeType = "quantity_changed"
	ProductDeleted         ChangeType = "deleted"
)

const (
	subjectPrefix = "inventory.products."

	// ProductSubjects matches every product change subject.
	ProductSubjects = subjectPrefix + ">"
)

type ProductChangedEvent struct {
	Type       ChangeType `json:"type"`
	ProductID  string     `json:"product_id"`
	Name       string     `json:"name,omitempty"`
	Barcode    string     `json:"barcode,omitempty"`
	Quantity   int        `json:"quantity"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func (e ProductChangedEvent) Subject() string {
	return subjectPrefix + string(e.Type)
}

func (e ProductChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
