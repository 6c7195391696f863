package domain

import "fmt"

// Wire names of the editable listing fields
const (
	FieldTitle           = "title"
	FieldPrice           = "price"
	FieldLocation        = "location"
	FieldStreet          = "street"
	FieldArea            = "area"
	FieldPropertyType    = "property_type"
	FieldTransactionType = "transaction_type"
	FieldDescription     = "description"
	FieldFloor           = "floor"
	FieldNumOfFloors     = "num_of_floors"
	FieldBuildYear       = "build_year"
)

// Apply sets the field named by c.Key to c.Value.
// Text fields take a string, numeric fields a float64.
func (l *Listing) Apply(c Change) error {
	switch c.Key {
	case FieldPrice, FieldArea:
		v, ok := c.Value.(float64)
		if !ok {
			return fmt.Errorf("%w: %s wants a number, got %T", ErrInvalidValue, c.Key, c.Value)
		}
		if c.Key == FieldPrice {
			l.Price = v
		} else {
			l.Area = v
		}
		l.PricePerArea = 0
		l.PricePerArea = l.ComputedPricePerArea()
		return nil
	}

	v, ok := c.Value.(string)
	if !ok {
		return fmt.Errorf("%w: %s wants text, got %T", ErrInvalidValue, c.Key, c.Value)
	}
	switch c.Key {
	case FieldTitle:
		l.Title = v
	case FieldLocation:
		l.Location = v
	case FieldStreet:
		l.Street = v
	case FieldPropertyType:
		l.PropertyType = PropertyType(v)
	case FieldTransactionType:
		l.TransactionType = TransactionType(v)
	case FieldDescription:
		l.Description = v
	case FieldFloor:
		l.Floor = v
	case FieldNumOfFloors:
		l.NumOfFloors = v
	case FieldBuildYear:
		l.BuildYear = v
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, c.Key)
	}
	return nil
}
