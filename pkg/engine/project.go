package engine

import (
	"strconv"
	"strings"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// projectRecord shapes one stored record into the operation's output.
// Fields in the output shape that the document lacks project as explicit
// nulls; the key field and, when the contract versions updates, the
// concurrency token are always stamped.
func projectRecord(c *resource.Contract, op resource.Operation, fields []string, rec *resource.StoredRecord) resource.Document {
	out := c.Op(op).Output
	narrow := fieldSelection(c, fields)

	doc := resource.Document{}
	for i := range c.Fields {
		f := &c.Fields[i]
		if !out[f.APIName] {
			continue
		}
		if narrow != nil && !narrow[strings.ToLower(f.APIName)] && !f.IsKey {
			continue
		}
		if f.IsKey {
			doc[f.APIName] = keyValue(c, rec.RecordID)
			continue
		}
		v, ok := rec.Document[f.APIName]
		if !ok {
			doc[f.APIName] = nil
			continue
		}
		doc[f.APIName] = v
	}

	if cc := c.Op(resource.OpUpdate).Concurrency; cc != nil && out[cc.TokenField] {
		if narrow == nil || narrow[strings.ToLower(cc.TokenField)] {
			doc[cc.TokenField] = rec.Version
		}
	}
	return doc
}

// fieldSelection lowercases an explicit field list, or returns nil when
// the caller asked for the full shape.
func fieldSelection(c *resource.Contract, fields []string) map[string]bool {
	if len(fields) == 0 {
		return nil
	}
	sel := make(map[string]bool, len(fields))
	for _, name := range fields {
		if f, ok := c.Field(name); ok {
			sel[strings.ToLower(f.APIName)] = true
		}
	}
	return sel
}

// keyValue renders the record id in the key field's logical type. Int
// keys surface as int64; everything else stays a string.
func keyValue(c *resource.Contract, recordID string) any {
	switch c.KeyType {
	case resource.TypeInt32, resource.TypeInt64:
		if n, err := strconv.ParseInt(recordID, 10, 64); err == nil {
			return n
		}
	}
	return recordID
}
