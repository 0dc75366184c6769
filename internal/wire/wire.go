// Package wire holds the JSON representation of ledger entries shared by the
// HTTP API, order events and ledger archives.
package wire

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/barista-pos/internal/domain/order"
)

// TimeLayout renders timestamps in UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FieldError reports a request field with a missing or mistyped value.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// EncodeTime writes t as a UTC timestamp string.
func EncodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(TimeLayout))
}

// EncodeLine writes one order line.
func EncodeLine(e *jx.Encoder, l order.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int(l.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
		e.Field("price", func(e *jx.Encoder) { e.Int64(l.Price) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
	})
}

// EncodeLines writes lines as an array. A nil slice is written as [].
func EncodeLines(e *jx.Encoder, lines []order.Line) {
	e.Arr(func(e *jx.Encoder) {
		for _, l := range lines {
			EncodeLine(e, l)
		}
	})
}

// EncodeOwner writes the owner of an order.
func EncodeOwner(e *jx.Encoder, o order.Owner) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(o.Name) })
		e.Field("email", func(e *jx.Encoder) { e.Str(o.Email) })
	})
}

// EncodeOrder writes a ledger entry.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Str(o.Owner.ID) })
		e.Field("items", func(e *jx.Encoder) { EncodeLines(e, o.Lines) })
		e.Field("totalAmount", func(e *jx.Encoder) { e.Int64(o.TotalAmount) })
		e.Field("itemCount", func(e *jx.Encoder) { e.Int(o.ItemCount) })
		e.Field("createdAt", func(e *jx.Encoder) { EncodeTime(e, o.CreatedAt) })
		e.Field("user", func(e *jx.Encoder) { EncodeOwner(e, o.Owner) })
	})
}

// EncodeOrders writes orders as an array. A nil slice is written as [].
func EncodeOrders(e *jx.Encoder, orders []order.Order) {
	e.Arr(func(e *jx.Encoder) {
		for i := range orders {
			EncodeOrder(e, &orders[i])
		}
	})
}

func expect(d *jx.Decoder, field string, want jx.Type, desc string) error {
	if got := d.Next(); got != want {
		return &FieldError{Field: field, Message: "must be " + desc}
	}
	return nil
}

// DecodeInt reads an integer field value.
func DecodeInt(d *jx.Decoder, field string) (int, error) {
	if err := expect(d, field, jx.Number, "an integer"); err != nil {
		return 0, err
	}
	v, err := d.Int()
	if err != nil {
		return 0, &FieldError{Field: field, Message: "must be an integer"}
	}
	return v, nil
}

// DecodeInt64 reads a 64-bit integer field value.
func DecodeInt64(d *jx.Decoder, field string) (int64, error) {
	if err := expect(d, field, jx.Number, "an integer"); err != nil {
		return 0, err
	}
	v, err := d.Int64()
	if err != nil {
		return 0, &FieldError{Field: field, Message: "must be an integer"}
	}
	return v, nil
}

// DecodeStr reads a string field value.
func DecodeStr(d *jx.Decoder, field string) (string, error) {
	if err := expect(d, field, jx.String, "a string"); err != nil {
		return "", err
	}
	v, err := d.Str()
	if err != nil {
		return "", errors.Wrap(err, field)
	}
	return v, nil
}

// DecodeLine reads one order line. Every field is required.
func DecodeLine(d *jx.Decoder, prefix string) (order.Line, error) {
	if err := expect(d, prefix, jx.Object, "an object"); err != nil {
		return order.Line{}, err
	}
	var (
		l    order.Line
		seen = make(map[string]bool, 4)
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		field := prefix + "." + key
		var err error
		switch key {
		case "id":
			l.ID, err = DecodeInt(d, field)
		case "name":
			l.Name, err = DecodeStr(d, field)
		case "price":
			l.Price, err = DecodeInt64(d, field)
		case "quantity":
			l.Quantity, err = DecodeInt(d, field)
		default:
			return d.Skip()
		}
		seen[key] = true
		return err
	}); err != nil {
		return order.Line{}, err
	}
	for _, key := range []string{"id", "name", "price", "quantity"} {
		if !seen[key] {
			return order.Line{}, &FieldError{Field: prefix + "." + key, Message: "is required"}
		}
	}
	return l, nil
}

// DecodeLines reads an array of order lines.
func DecodeLines(d *jx.Decoder, field string) ([]order.Line, error) {
	if err := expect(d, field, jx.Array, "an array"); err != nil {
		return nil, err
	}
	lines := make([]order.Line, 0)
	if err := d.Arr(func(d *jx.Decoder) error {
		l, err := DecodeLine(d, fmt.Sprintf("%s[%d]", field, len(lines)))
		if err != nil {
			return err
		}
		lines = append(lines, l)
		return nil
	}); err != nil {
		return nil, err
	}
	return lines, nil
}

// DecodeOrder reads a ledger entry written by EncodeOrder.
func DecodeOrder(d *jx.Decoder) (order.Order, error) {
	var o order.Order
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = DecodeStr(d, key)
		case "userId":
			o.Owner.ID, err = DecodeStr(d, key)
		case "items":
			o.Lines, err = DecodeLines(d, key)
		case "totalAmount":
			o.TotalAmount, err = DecodeInt64(d, key)
		case "itemCount":
			o.ItemCount, err = DecodeInt(d, key)
		case "createdAt":
			var s string
			if s, err = DecodeStr(d, key); err != nil {
				return err
			}
			o.CreatedAt, err = time.Parse(TimeLayout, s)
		case "user":
			return d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "name":
					o.Owner.Name, err = DecodeStr(d, "user.name")
				case "email":
					o.Owner.Email, err = DecodeStr(d, "user.email")
				default:
					return d.Skip()
				}
				return err
			})
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return order.Order{}, errors.Wrap(err, "decode order")
	}
	return o, nil
}
