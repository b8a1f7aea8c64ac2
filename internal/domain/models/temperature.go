package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Temperature is an optional daily mean temperature in degrees Celsius.
// The zero value is absent.
type Temperature struct {
	value   float64
	present bool
}

// Celsius returns a present temperature.
func Celsius(v float64) Temperature {
	return Temperature{value: v, present: true}
}

// Absent returns a temperature with no value.
func Absent() Temperature {
	return Temperature{}
}

// Get returns the value and whether it is present.
func (t Temperature) Get() (float64, bool) {
	return t.value, t.present
}

// Present reports whether a value is set.
func (t Temperature) Present() bool {
	return t.present
}

func (t Temperature) String() string {
	if !t.present {
		return "absent"
	}
	return fmt.Sprintf("%.3f", t.value)
}

// MarshalJSON encodes an absent temperature as null.
func (t Temperature) MarshalJSON() ([]byte, error) {
	if !t.present {
		return []byte("null"), nil
	}
	return json.Marshal(t.value)
}

// UnmarshalJSON accepts a number or null.
func (t *Temperature) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*t = Absent()
		return nil
	}
	*t = Celsius(*v)
	return nil
}

// MarshalBSONValue stores an absent temperature as BSON null.
func (t Temperature) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !t.present {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(t.value)
}

// UnmarshalBSONValue accepts a double, an integer, null or undefined.
func (t *Temperature) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: typ, Value: data}
	switch typ {
	case bson.TypeNull, bson.TypeUndefined:
		*t = Absent()
	case bson.TypeDouble:
		*t = Celsius(raw.Double())
	case bson.TypeInt32:
		*t = Celsius(float64(raw.Int32()))
	case bson.TypeInt64:
		*t = Celsius(float64(raw.Int64()))
	default:
		return fmt.Errorf("cannot decode %s into temperature", typ)
	}
	return nil
}

// TemperatureMap maps ISO dates to daily mean temperatures.
type TemperatureMap map[string]Temperature

// Lookup returns the temperature for a date, absent when the date is missing.
func (m TemperatureMap) Lookup(date string) Temperature {
	if m == nil {
		return Absent()
	}
	return m[date]
}
