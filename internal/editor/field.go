package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mmcdole/estate/internal/domain"
)

// State is the edit lifecycle of one field
type State int

const (
	Viewing State = iota
	Editing
	Committing
	RolledBack
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Committing:
		return "committing"
	case RolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FieldType decides how buffered input is interpreted
type FieldType int

const (
	Text FieldType = iota
	Number
)

// normalize converts v into the canonical value of the type:
// string for Text, float64 for Number.
func (t FieldType) normalize(v any) (any, error) {
	switch t {
	case Number:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidValue, n)
			}
			return f, nil
		}
	default:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected %T", domain.ErrInvalidValue, v)
}

// Field is one editable key/value of an entity
type Field struct {
	Key   string
	Label string
	Type  FieldType
	Value any
}

// FieldState is a field together with its edit state
type FieldState struct {
	Field
	State   State
	Buffer  any // input being edited, set while Editing
	Pending any // value submitted to the server, set while Committing
}

// Display returns the value the field should show right now
func (f FieldState) Display() any {
	switch f.State {
	case Editing:
		return f.Buffer
	case Committing:
		return f.Pending
	default:
		return f.Value
	}
}

// ListingFields returns the editable fields of a listing in display order
func ListingFields(l domain.Listing) []Field {
	return []Field{
		{Key: domain.FieldTitle, Label: "Title", Type: Text, Value: l.Title},
		{Key: domain.FieldPrice, Label: "Price", Type: Number, Value: l.Price},
		{Key: domain.FieldLocation, Label: "Location", Type: Text, Value: l.Location},
		{Key: domain.FieldStreet, Label: "Street", Type: Text, Value: l.Street},
		{Key: domain.FieldArea, Label: "Area", Type: Number, Value: l.Area},
		{Key: domain.FieldPropertyType, Label: "Property type", Type: Text, Value: string(l.PropertyType)},
		{Key: domain.FieldTransactionType, Label: "Transaction type", Type: Text, Value: string(l.TransactionType)},
		{Key: domain.FieldDescription, Label: "Description", Type: Text, Value: l.Description},
		{Key: domain.FieldFloor, Label: "Floor", Type: Text, Value: l.Floor},
		{Key: domain.FieldNumOfFloors, Label: "Floors in building", Type: Text, Value: l.NumOfFloors},
		{Key: domain.FieldBuildYear, Label: "Build year", Type: Text, Value: l.BuildYear},
	}
}
