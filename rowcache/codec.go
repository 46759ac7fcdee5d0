package rowcache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/cayleygraph/quad"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/CaliLuke/go-sparqlorm/driver"
)

// Term kinds in the stored encoding.
const (
	kindIRI uint8 = iota + 1
	kindBNode
	kindString
	kindTyped
	kindLang
	kindInt
	kindFloat
	kindBool
	kindTime
)

// term is the msgpack form of one quad.Value.
type term struct {
	Kind     uint8   `msgpack:"k"`
	Value    string  `msgpack:"v,omitempty"`
	Datatype string  `msgpack:"d,omitempty"`
	Lang     string  `msgpack:"l,omitempty"`
	Int      int64   `msgpack:"i,omitempty"`
	Float    float64 `msgpack:"f,omitempty"`
	Bool     bool    `msgpack:"b,omitempty"`
}

// Key returns the cache key for a query and its initial bindings against
// the store named by scope: the hex SHA-256 of the scope, the query text,
// and each binding in name order.
func Key(scope, query string, bindings map[string]quad.Value) (string, error) {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write([]byte(query))
	for _, name := range names {
		nt, err := driver.EncodeTerm(bindings[name])
		if err != nil {
			return "", fmt.Errorf("binding %s: %w", name, err)
		}
		h.Write([]byte{0})
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(nt))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func encodeTerm(v quad.Value) (term, error) {
	switch t := v.(type) {
	case quad.IRI:
		return term{Kind: kindIRI, Value: string(t)}, nil
	case quad.BNode:
		return term{Kind: kindBNode, Value: string(t)}, nil
	case quad.String:
		return term{Kind: kindString, Value: string(t)}, nil
	case quad.TypedString:
		return term{Kind: kindTyped, Value: string(t.Value), Datatype: string(t.Type)}, nil
	case quad.LangString:
		return term{Kind: kindLang, Value: string(t.Value), Lang: t.Lang}, nil
	case quad.Int:
		return term{Kind: kindInt, Int: int64(t)}, nil
	case quad.Float:
		return term{Kind: kindFloat, Float: float64(t)}, nil
	case quad.Bool:
		return term{Kind: kindBool, Bool: bool(t)}, nil
	case quad.Time:
		return term{Kind: kindTime, Value: time.Time(t).Format(time.RFC3339Nano)}, nil
	default:
		return term{}, fmt.Errorf("unsupported term type %T", v)
	}
}

func (t term) value() (quad.Value, error) {
	switch t.Kind {
	case kindIRI:
		return quad.IRI(t.Value), nil
	case kindBNode:
		return quad.BNode(t.Value), nil
	case kindString:
		return quad.String(t.Value), nil
	case kindTyped:
		return quad.TypedString{Value: quad.String(t.Value), Type: quad.IRI(t.Datatype)}, nil
	case kindLang:
		return quad.LangString{Value: quad.String(t.Value), Lang: t.Lang}, nil
	case kindInt:
		return quad.Int(t.Int), nil
	case kindFloat:
		return quad.Float(t.Float), nil
	case kindBool:
		return quad.Bool(t.Bool), nil
	case kindTime:
		ts, err := time.Parse(time.RFC3339Nano, t.Value)
		if err != nil {
			return nil, err
		}
		return quad.Time(ts), nil
	default:
		return nil, fmt.Errorf("unknown term kind %d", t.Kind)
	}
}

// encodeRows serializes rows with msgpack.
func encodeRows(rows []map[string]quad.Value) ([]byte, error) {
	out := make([]map[string]term, len(rows))
	for i, row := range rows {
		enc := make(map[string]term, len(row))
		for name, v := range row {
			t, err := encodeTerm(v)
			if err != nil {
				return nil, fmt.Errorf("row %d %s: %w", i, name, err)
			}
			enc[name] = t
		}
		out[i] = enc
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeRows is the inverse of encodeRows.
func decodeRows(data []byte) ([]map[string]quad.Value, error) {
	var stored []map[string]term
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&stored); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	rows := make([]map[string]quad.Value, len(stored))
	for i, row := range stored {
		dec := make(map[string]quad.Value, len(row))
		for name, t := range row {
			v, err := t.value()
			if err != nil {
				return nil, fmt.Errorf("row %d %s: %w", i, name, err)
			}
			dec[name] = v
		}
		rows[i] = dec
	}
	return rows, nil
}
