package domain

// Record is a single logged nursery event as returned by the backend. It is
// the superset of the per-entity field sets; which fields are meaningful for
// a given record is determined by the entity it was fetched from. Records
// are owned by the backend: the client only holds transient list snapshots.
type Record struct {
	ID   string `json:"_id"`
	Date string `json:"date"`
	Type string `json:"type"`

	Quantity int `json:"quantity,omitempty"`

	// seedlings-received
	Supplier  string  `json:"supplier,omitempty"`
	Price     float64 `json:"price,omitempty"`
	LotNumber string  `json:"lot_number,omitempty"`

	// delivery-notes
	ExpectedQuantity int `json:"expected_quantity,omitempty"`
	ActualQuantity   int `json:"actual_quantity,omitempty"`

	// nursery-produced
	ParentPlant       string `json:"parent_plant,omitempty"`
	PropagationMethod string `json:"propagation_method,omitempty"`

	// distributed-seedlings
	Destination string `json:"destination,omitempty"`
	Location    string `json:"location,omitempty"`

	UserID    string `json:"user_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}
