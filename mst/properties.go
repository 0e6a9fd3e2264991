package mst

import (
	"fmt"
)

type PropsType int

const (
	PROP_TYPE_STRING = iota
	PROP_TYPE_INT
	PROP_TYPE_FLOAT
	PROP_TYPE_BOOL
	PROP_TYPE_ARRAY
	PROP_TYPE_MAP
)

// PropsValue is a typed property value. Value holds a string, int64,
// float64, bool, []PropsValue or Properties matching Type.
type PropsValue struct {
	Type  PropsType
	Value interface{}
}

// Properties carries free-form metadata on meshes and nodes.
type Properties map[string]PropsValue

func StringProp(s string) PropsValue { return PropsValue{Type: PROP_TYPE_STRING, Value: s} }
func IntProp(v int64) PropsValue { return PropsValue{Type: PROP_TYPE_INT, Value: v} }
func FloatProp(v float64) PropsValue { return PropsValue{Type: PROP_TYPE_FLOAT, Value: v} }
func BoolProp(v bool) PropsValue { return PropsValue{Type: PROP_TYPE_BOOL, Value: v} }
func MapProp(p Properties) PropsValue { return PropsValue{Type: PROP_TYPE_MAP, Value: p} }
func ArrayProp(a ...PropsValue) PropsValue {
	return PropsValue{Type: PROP_TYPE_ARRAY, Value: a}
}

func (w *littleWriter) properties(props Properties) {
	w.put(uint32(len(props)))
	for _, k := range sortedKeys(props) {
		v := props[k]
		w.str(k)
		w.put(uint32(v.Type))
		w.propValue(v)
	}
}

func (w *littleWriter) propValue(v PropsValue) {
	if w.err != nil {
		return
	}
	var ok bool
	switch v.Type {
	case PROP_TYPE_STRING:
		var s string
		if s, ok = v.Value.(string); ok {
			w.str(s)
		}
	case PROP_TYPE_INT:
		var i int64
		if i, ok = v.Value.(int64); ok {
			w.put(i)
		}
	case PROP_TYPE_FLOAT:
		var f float64
		if f, ok = v.Value.(float64); ok {
			w.put(f)
		}
	case PROP_TYPE_BOOL:
		var b bool
		if b, ok = v.Value.(bool); ok {
			w.put(boolByte(b))
		}
	case PROP_TYPE_ARRAY:
		var arr []PropsValue
		if arr, ok = v.Value.([]PropsValue); ok {
			w.put(uint32(len(arr)))
			for _, item := range arr {
				w.put(uint32(item.Type))
				w.propValue(item)
			}
		}
	case PROP_TYPE_MAP:
		var sub Properties
		if sub, ok = v.Value.(Properties); ok {
			w.properties(sub)
		}
	}
	if !ok {
		w.fail(fmt.Errorf("mst: property of type %d holds %T", v.Type, v.Value))
	}
}

func (r *littleReader) properties() Properties {
	n := r.count()
	if r.err != nil {
		return nil
	}
	props := make(Properties, n)
	for i := 0; i < n && r.err == nil; i++ {
		k := r.str()
		var t uint32
		r.get(&t)
		props[k] = r.propValue(PropsType(t))
	}
	return props
}

func (r *littleReader) propValue(t PropsType) PropsValue {
	v := PropsValue{Type: t}
	switch t {
	case PROP_TYPE_STRING:
		v.Value = r.str()
	case PROP_TYPE_INT:
		var i int64
		r.get(&i)
		v.Value = i
	case PROP_TYPE_FLOAT:
		var f float64
		r.get(&f)
		v.Value = f
	case PROP_TYPE_BOOL:
		var b uint8
		r.get(&b)
		v.Value = b != 0
	case PROP_TYPE_ARRAY:
		n := r.count()
		arr := make([]PropsValue, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			var it uint32
			r.get(&it)
			arr = append(arr, r.propValue(PropsType(it)))
		}
		v.Value = arr
	case PROP_TYPE_MAP:
		v.Value = r.properties()
	default:
		r.fail(fmt.Errorf("mst: unknown property type %d", t))
	}
	return v
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
