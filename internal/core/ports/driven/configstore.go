package driven

// ConfigStore is the key/value view of the config file. Keys are dotted
// paths such as "retrieval.k". The typed getters return the zero value
// for a missing key or a value of another type.
type ConfigStore interface {
	// Get reports whether key is set and returns its raw decoded value.
	Get(key string) (any, bool)

	GetString(key string) string

	// GetInt truncates floating point values.
	GetInt(key string) int

	// GetFloat widens integer values.
	GetFloat(key string) float64

	GetBool(key string) bool

	// GetStringSlice skips non-string elements.
	GetStringSlice(key string) []string

	// Set stores value under key and writes the file.
	Set(key string, value any) error

	Save() error

	// Load discards in-memory values and rereads the file.
	Load() error

	// Path is the backing file, or "" for stores without one.
	Path() string
}
