package models

// Column names of the unified table, in persisted order.
const (
	ColTitle     = "item"
	ColPrice     = "price"
	ColURL       = "url"
	ColImage     = "img"
	ColCondition = "condition"
)

// Columns is the canonical schema of every unified table.
var Columns = []string{ColTitle, ColPrice, ColURL, ColImage, ColCondition}

// UnknownCondition is used when a marketplace does not report item condition.
const UnknownCondition = "unknown"

type Listing struct {
	Title     string
	Price     float64
	URL       string
	Image     string
	Condition string
}

// Table is an ordered set of listings with a fixed schema.
type Table struct {
	Columns []string
	Rows    []Listing
}

// NewTable wraps rows in the canonical schema. Rows is never nil.
func NewTable(rows []Listing) Table {
	if rows == nil {
		rows = []Listing{}
	}
	cols := make([]string, len(Columns))
	copy(cols, Columns)
	return Table{Columns: cols, Rows: rows}
}

func (t Table) Len() int {
	return len(t.Rows)
}

// Batch is what one marketplace adapter produced for a query.
// Fields lists the columns the adapter actually extracted; anything
// missing is filled in during reconciliation.
type Batch struct {
	Source   string
	HomeURL  string
	Fields   []string
	Listings []Listing
	Skipped  int
}

func (b Batch) Has(field string) bool {
	for _, f := range b.Fields {
		if f == field {
			return true
		}
	}
	return false
}
