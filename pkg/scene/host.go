package scene

// Host constructs, destroys, and places objects on behalf of the pool engine.
//
// Create builds a new instance of template at the given transform under parent (NilID means the
// scene root). Destroy removes an object permanently. The setters never fail; hosts ignore unknown
// handles.
type Host interface {
	Create(template ID, at Transform, parent ID) (ID, error)
	Destroy(id ID) error
	SetActive(id ID, active bool)
	SetParent(id ID, parent ID)
	SetTransform(id ID, at Transform)
}

// Prober is implemented by hosts that can report whether an object still exists. The pool engine
// uses it to skip objects destroyed behind its back.
type Prober interface {
	Exists(id ID) bool
}

// Alive reports whether id is still alive according to host. Hosts without a Prober are trusted.
func Alive(host Host, id ID) bool {
	if id.IsNil() {
		return false
	}
	prober, ok := host.(Prober)
	if !ok {
		return true
	}
	return prober.Exists(id)
}
