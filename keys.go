package pile

// DefaultNamespace is the namespace a Client uses when none is configured.
const DefaultNamespace = "piledb"

// Keys maps the logical names in one pile to Store keys.
// The zero value uses DefaultNamespace.
type Keys struct {
	Namespace string
}

func (k Keys) ns() string {
	if k.Namespace == "" {
		return DefaultNamespace
	}
	return k.Namespace
}

// Data is the Store key holding the value for data key `key`.
func (k Keys) Data(key string) string {
	return k.ns() + ":data:" + key
}

// Reference is the Store key holding the history list for reference `name`.
func (k Keys) Reference(name string) string {
	return k.ns() + ":reference:" + name
}

// Redaction is the Store key holding the redaction log.
func (k Keys) Redaction() string {
	return k.ns() + ":redaction"
}
