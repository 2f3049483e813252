package sqlite

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// A JSONL record is one row keyed by column name. Null columns are written as
// JSON null; BLOB columns as base64 strings; dates keep their stored unix
// millisecond integers.
type record map[string]any

// rowRecord converts scanned column values into a record.
func rowRecord(cols []types.Column, vals []any) record {
	rec := make(record, len(cols))
	for i, c := range cols {
		switch v := vals[i].(type) {
		case []byte:
			if c.Type == types.TypeBlob {
				rec[c.Name] = base64.StdEncoding.EncodeToString(v)
			} else {
				rec[c.Name] = string(v)
			}
		default:
			rec[c.Name] = v
		}
	}
	return rec
}

// parseRecord decodes one JSONL line. Numbers are kept as json.Number so
// integers survive without a float round trip.
func parseRecord(line json.RawMessage) (record, error) {
	var rec record
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// columnValue converts a decoded JSON value into the driver value for c.
func columnValue(c types.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case types.TypeInteger:
		switch n := v.(type) {
		case json.Number:
			return n.Int64()
		case bool:
			if n {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case types.TypeReal:
		if n, ok := v.(json.Number); ok {
			return n.Float64()
		}
	case types.TypeText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case types.TypeBlob:
		if s, ok := v.(string); ok {
			return base64.StdEncoding.DecodeString(s)
		}
	}
	return nil, fmt.Errorf("column %s: cannot use %T as %s", c.Name, v, c.Type)
}
