// Package ledger exports the order ledger to compressed archives and audits
// them.
package ledger

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"

	"github.com/xenking/barista-pos/internal/domain/order"
	"github.com/xenking/barista-pos/internal/wire"
)

// maxLine bounds a single archived order.
const maxLine = 4 << 20

// Source streams ledger entries created in [from, to), oldest first.
type Source interface {
	Scan(ctx context.Context, from, to time.Time, fn func(*order.Order) error) error
}

// Export writes the orders of [from, to) to w as gzip-compressed NDJSON, one
// order per line, and returns how many were written.
func Export(ctx context.Context, w io.Writer, src Source, from, to time.Time) (int, error) {
	zw := pgzip.NewWriter(w)
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	var n int
	err := src.Scan(ctx, from, to, func(o *order.Order) error {
		e.Reset()
		wire.EncodeOrder(e, o)
		if _, err := zw.Write(append(e.Bytes(), '\n')); err != nil {
			return errors.Wrapf(err, "write order %s", o.ID)
		}
		n++
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return n, err
	}
	if err := zw.Close(); err != nil {
		return n, errors.Wrap(err, "close gzip")
	}
	return n, nil
}

// Read decodes a gzip NDJSON archive and calls fn for every order in it.
// Blank lines are skipped.
func Read(r io.Reader, fn func(order.Order) error) error {
	zr, err := pgzip.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "open gzip")
	}
	defer func() { _ = zr.Close() }()

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		o, err := wire.DecodeOrder(jx.DecodeBytes(sc.Bytes()))
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "read archive")
	}
	return nil
}
