package records

import (
	"fmt"
	"strconv"

	"nursery-tracker/internal/domain"
)

// FieldKind selects the validation and JSON encoding applied to a form field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldDate
	FieldInt
	FieldFloat
)

// Field describes one input of an entity's creation form. Every field is
// required; the backend has no optional create fields.
type Field struct {
	Key   string
	Label string
	Kind  FieldKind
}

// Entity parameterizes the generic record controller: endpoint path, the
// field set of the creation form, and list display formatting. There is no
// entity-specific behavior beyond this descriptor.
type Entity struct {
	Name    string
	Title   string
	Path    string
	Fields  []Field
	Columns []string
	Row     func(domain.Record) []string
}

// Entities lists the six record categories in dashboard order.
var Entities = []Entity{
	{
		Name:  "received",
		Title: "Seedlings Received",
		Path:  "/api/seedlings-received",
		Fields: []Field{
			{Key: "date", Label: "Date", Kind: FieldDate},
			{Key: "type", Label: "Type", Kind: FieldText},
			{Key: "supplier", Label: "Supplier", Kind: FieldText},
			{Key: "price", Label: "Price", Kind: FieldFloat},
			{Key: "lot_number", Label: "Lot Number", Kind: FieldText},
			{Key: "quantity", Label: "Quantity", Kind: FieldInt},
		},
		Columns: []string{"ID", "Date", "Type", "Supplier", "Price", "Lot", "Quantity"},
		Row: func(r domain.Record) []string {
			return []string{r.ID, r.Date, r.Type, r.Supplier, formatPrice(r.Price), r.LotNumber, strconv.Itoa(r.Quantity)}
		},
	},
	{
		Name:  "delivery",
		Title: "Delivery Notes",
		Path:  "/api/delivery-notes",
		Fields: []Field{
			{Key: "date", Label: "Date", Kind: FieldDate},
			{Key: "type", Label: "Type", Kind: FieldText},
			{Key: "expected_quantity", Label: "Expected Quantity", Kind: FieldInt},
			{Key: "actual_quantity", Label: "Actual Quantity", Kind: FieldInt},
		},
		Columns: []string{"ID", "Date", "Type", "Expected", "Actual", "Difference"},
		Row: func(r domain.Record) []string {
			d := Difference(r.ExpectedQuantity, r.ActualQuantity)
			diff := fmt.Sprintf("%s (%s)", FormatDifference(d), matchLabel(d))
			return []string{r.ID, r.Date, r.Type, strconv.Itoa(r.ExpectedQuantity), strconv.Itoa(r.ActualQuantity), diff}
		},
	},
	{
		Name:  "dead",
		Title: "Dead Seedlings",
		Path:  "/api/dead-seedlings",
		Fields: []Field{
			{Key: "date", Label: "Date", Kind: FieldDate},
			{Key: "type", Label: "Type", Kind: FieldText},
			{Key: "quantity", Label: "Quantity", Kind: FieldInt},
		},
		Columns: []string{"ID", "Date", "Type", "Quantity"},
		Row: func(r domain.Record) []string {
			return []string{r.ID, r.Date, r.Type, strconv.Itoa(r.Quantity)}
		},
	},
	{
		Name:  "discarded",
		Title: "Discarded Seedlings",
		Path:  "/api/discarded-seedlings",
		Fields: []Field{
			{Key: "date", Label: "Date", Kind: FieldDate},
			{Key: "type", Label: "Type", Kind: FieldText},
			{Key: "quantity", Label: "Quantity", Kind: FieldInt},
		},
		Columns: []string{"ID", "Date", "Type", "Quantity"},
		Row: func(r domain.Record) []string {
			return []string{r.ID, r.Date, r.Type, strconv.Itoa(r.Quantity)}
		},
	},
	{
		Name:  "produced",
		Title: "Nursery Produced",
		Path:  "/api/nursery-produced",
		Fields: []Field{
			{Key: "date", Label: "Date", Kind: FieldDate},
			{Key: "type", Label: "Type", Kind: FieldText},
			{Key: "quantity", Label: "Quantity", Kind: FieldInt},
			{Key: "parent_plant", Label: "Parent Plant", Kind: FieldText},
			{Key: "propagation_method", Label: "Propagation Method", Kind: FieldText},
		},
		Columns: []string{"ID", "Date", "Type", "Quantity", "Parent Plant", "Method"},
		Row: func(r domain.Record) []string {
			return []string{r.ID, r.Date, r.Type, strconv.Itoa(r.Quantity), r.ParentPlant, r.PropagationMethod}
		},
	},
	{
		Name:  "distributed",
		Title: "Distributed Seedlings",
		Path:  "/api/distributed-seedlings",
		Fields: []Field{
			{Key: "date", Label: "Date", Kind: FieldDate},
			{Key: "type", Label: "Type", Kind: FieldText},
			{Key: "quantity", Label: "Quantity", Kind: FieldInt},
			{Key: "destination", Label: "Destination", Kind: FieldText},
			{Key: "location", Label: "Location", Kind: FieldText},
		},
		Columns: []string{"ID", "Date", "Type", "Quantity", "Destination", "Location"},
		Row: func(r domain.Record) []string {
			return []string{r.ID, r.Date, r.Type, strconv.Itoa(r.Quantity), r.Destination, r.Location}
		},
	},
}

// ByName finds an entity descriptor by its CLI name.
func ByName(name string) (Entity, bool) {
	for _, e := range Entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

// Difference is the delivery-note delta between what arrived and what was
// announced. Display only, never persisted.
func Difference(expected, actual int) int {
	return actual - expected
}

// FormatDifference renders a delta with an explicit sign on surpluses.
func FormatDifference(d int) string {
	if d > 0 {
		return "+" + strconv.Itoa(d)
	}
	return strconv.Itoa(d)
}

// Matches reports whether a delivery arrived exactly as announced.
func Matches(d int) bool {
	return d == 0
}

func matchLabel(d int) string {
	if Matches(d) {
		return "match"
	}
	return "mismatch"
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
