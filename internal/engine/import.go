package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"shop-backend/internal/metadata"
)

// Outcome keys of items that were not saved.
const (
	OutcomeWrongModelName = "NEULOZENO, wrong_model_name %d"
	OutcomeWrongData      = "NEULOZENO, wrong_data %d"
	OutcomeUpdateFail     = "NEULOZENO, update_fail %d"
	OutcomeCreateFail     = "NEULOZENO, create_fail %d"
)

// Importer upserts a batch of kind-tagged payloads, one item at a time.
type Importer struct {
	service *Service
}

func NewImporter(svc *Service) *Importer {
	return &Importer{service: svc}
}

// Import processes body, a JSON array of single-key objects such as
// {"Product": {...}}. Every position gets exactly one outcome entry and a
// failing item never stops the batch. An object body contributes its keys as
// bare string items, any other value is a single item. Only undecodable JSON
// is an error.
func (im *Importer) Import(ctx context.Context, body []byte) (*Outcome, error) {
	out := &Outcome{}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return out, nil
	}
	if !json.Valid(body) {
		return nil, InvalidPayloadError("Invalid JSON body")
	}

	items, err := batchItems(body)
	if err != nil {
		return nil, InvalidPayloadError("Invalid JSON body")
	}
	for i, raw := range items {
		im.importItem(ctx, out, i, raw)
	}
	return out, nil
}

func (im *Importer) importItem(ctx context.Context, out *Outcome, i int, raw json.RawMessage) {
	tag, inner, ok := splitTagged(raw)
	if tag != "" {
		if _, known := im.service.Registry().Lookup(tag); !known {
			out.add(fmt.Sprintf(OutcomeWrongModelName, i), raw)
			return
		}
	}
	if !ok {
		out.add(fmt.Sprintf(OutcomeWrongData, i), raw)
		return
	}

	res, err := im.service.Upsert(ctx, tag, inner)
	if err != nil {
		log.Printf("ERROR: import item %d (%s): %v", i, tag, err)
		fe := metadata.FieldErrors{}
		fe.Add(metadata.NonFieldErrors, "Internal error")
		out.add(failKey(res, i), fe)
		return
	}
	if res.Errors != nil {
		out.add(failKey(res, i), res.Errors)
		return
	}
	out.add(strconv.Itoa(i), res.Record)
}

// batchItems splits the body into items: array elements, object keys or the
// value itself.
func batchItems(body []byte) ([]json.RawMessage, error) {
	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
		return items, nil
	case '{':
		keys, err := objectKeys(body)
		if err != nil {
			return nil, err
		}
		items := make([]json.RawMessage, len(keys))
		for i, k := range keys {
			b, _ := json.Marshal(k)
			items[i] = b
		}
		return items, nil
	}
	return []json.RawMessage{body}, nil
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// splitTagged reads {"Kind": {...}}. tag is the concatenated keys of an
// object or the item itself when it is a bare string. ok is true only for a
// single-key object whose value is an object.
func splitTagged(raw json.RawMessage) (tag string, inner map[string]any, ok bool) {
	var item any
	if err := json.Unmarshal(raw, &item); err != nil {
		return "", nil, false
	}
	switch v := item.(type) {
	case string:
		return v, nil, false
	case map[string]any:
		keys, err := objectKeys(raw)
		if err != nil {
			return "", nil, false
		}
		tag = strings.Join(keys, "")
		if len(v) != 1 {
			return tag, nil, false
		}
		inner, ok = v[keys[0]].(map[string]any)
		return tag, inner, ok
	}
	return "", nil, false
}

func failKey(res *UpsertResult, i int) string {
	if res != nil && !res.Created {
		return fmt.Sprintf(OutcomeUpdateFail, i)
	}
	return fmt.Sprintf(OutcomeCreateFail, i)
}

// Outcome is the per-item result mapping of an import, kept in input order.
type Outcome struct {
	entries []outcomeEntry
}

type outcomeEntry struct {
	key   string
	value any
}

func (o *Outcome) add(key string, value any) {
	o.entries = append(o.entries, outcomeEntry{key: key, value: value})
}

// Len returns the number of entries.
func (o *Outcome) Len() int { return len(o.entries) }

// Keys returns the entry keys in input order.
func (o *Outcome) Keys() []string {
	keys := make([]string, len(o.entries))
	for i, e := range o.entries {
		keys[i] = e.key
	}
	return keys
}

// Get returns the value stored under key.
func (o *Outcome) Get(key string) (any, bool) {
	for _, e := range o.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// MarshalJSON writes the entries as one JSON object in input order.
func (o *Outcome) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range o.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
