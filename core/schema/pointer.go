package schema

// Pointer is the storage form of a non-embedded reference: the target's type
// name, its identity, and the storage location it lives at.
type Pointer struct {
	Type       string
	ID         any
	Database   DB
	Collection string
}

// Storage-map keys for pointer records.
const (
	pointerTypeKey = "$type"
	pointerIDKey   = "$id"
	pointerRefKey  = "$ref"
	pointerDBKey   = "$db"
	pointerHostKey = "$host"
	pointerPortKey = "$port"
)

// StorageMap renders the pointer as a flat storage map.
func (p *Pointer) StorageMap() map[string]any {
	return map[string]any{
		pointerTypeKey: p.Type,
		pointerIDKey:   p.ID,
		pointerRefKey:  p.Collection,
		pointerDBKey:   p.Database.Name,
		pointerHostKey: p.Database.Host,
		pointerPortKey: p.Database.Port,
	}
}

// PointerFromMap reconstructs a pointer from its storage form. The second
// return is false when the map is not a pointer record.
func PointerFromMap(m map[string]any) (*Pointer, bool) {
	typeName, ok := m[pointerTypeKey].(string)
	if !ok {
		return nil, false
	}
	id, ok := m[pointerIDKey]
	if !ok {
		return nil, false
	}
	p := &Pointer{Type: typeName, ID: id}
	p.Collection, _ = m[pointerRefKey].(string)
	p.Database.Name, _ = m[pointerDBKey].(string)
	p.Database.Host, _ = m[pointerHostKey].(string)
	switch port := m[pointerPortKey].(type) {
	case int:
		p.Database.Port = port
	case int64:
		p.Database.Port = int(port)
	case float64:
		p.Database.Port = int(port)
	}
	return p, true
}
