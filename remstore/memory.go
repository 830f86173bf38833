package remstore

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// Memory is an in-process Store used by tests and local development. It keeps
// the marshalled document bytes so reads decode fresh copies, the same as the
// remote store would.
type Memory struct {
	mu    sync.Mutex
	colls map[string]map[string][]byte

	// failures simulate transport errors for tests.
	failures map[string]*failPlan
}

type failPlan struct {
	after int // number of calls that still succeed first
	err   error
}

func NewMemory() *Memory {
	return &Memory{
		colls:    make(map[string]map[string][]byte),
		failures: make(map[string]*failPlan),
	}
}

// FailNextOn makes the next call on the named collection return err.
func (m *Memory) FailNextOn(collection string, err error) {
	m.FailAfterOn(collection, 0, err)
}

// FailAfterOn lets `after` calls on the collection succeed, then fails the
// following one with err.
func (m *Memory) FailAfterOn(collection string, after int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[collection] = &failPlan{after: after, err: err}
}

func (m *Memory) takeFailure(collection string) error {
	plan, ok := m.failures[collection]
	if !ok {
		return nil
	}
	if plan.after > 0 {
		plan.after--
		return nil
	}
	delete(m.failures, collection)
	return plan.err
}

func (m *Memory) docs(collection string) map[string][]byte {
	if m.colls[collection] == nil {
		m.colls[collection] = make(map[string][]byte)
	}
	return m.colls[collection]
}

func (m *Memory) Get(ctx context.Context, collection, id string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(collection); err != nil {
		return err
	}
	raw, ok := m.docs(collection)[id]
	if !ok {
		return ErrNotFound
	}
	return bson.Unmarshal(raw, out)
}

func (m *Memory) Set(ctx context.Context, collection, id string, doc any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(collection); err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs(collection)[id] = raw
	return nil
}

func (m *Memory) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(collection); err != nil {
		return err
	}
	doc, err := m.load(collection, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	return m.store(collection, id, doc)
}

func (m *Memory) Increment(ctx context.Context, collection, id, field string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(collection); err != nil {
		return err
	}
	doc, err := m.load(collection, id)
	if err != nil {
		return err
	}
	doc[field] = asInt(doc[field]) + delta
	return m.store(collection, id, doc)
}

func (m *Memory) IncrementWhere(ctx context.Context, collection, id, field string, delta, min int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(collection); err != nil {
		return false, err
	}
	doc, err := m.load(collection, id)
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	current := asInt(doc[field])
	if current < min {
		return false, nil
	}
	doc[field] = current + delta
	if err := m.store(collection, id, doc); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) QueryEqual(ctx context.Context, collection, field string, value any, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(collection); err != nil {
		return err
	}

	slice := reflect.ValueOf(out)
	if slice.Kind() != reflect.Ptr || slice.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("QueryEqual: out must be a pointer to a slice, got %T", out)
	}
	elemType := slice.Elem().Type().Elem()
	result := reflect.MakeSlice(slice.Elem().Type(), 0, 0)

	want := fmt.Sprintf("%v", value)
	for _, raw := range m.docs(collection) {
		var doc bson.M
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return err
		}
		if fmt.Sprintf("%v", doc[field]) != want {
			continue
		}
		elem := reflect.New(elemType)
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, elem.Elem())
	}
	slice.Elem().Set(result)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(collection); err != nil {
		return err
	}
	delete(m.docs(collection), id)
	return nil
}

// load and store expect the lock to be held.
func (m *Memory) load(collection, id string) (bson.M, error) {
	raw, ok := m.docs(collection)[id]
	if !ok {
		return nil, ErrNotFound
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (m *Memory) store(collection, id string, doc bson.M) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs(collection)[id] = raw
	return nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
