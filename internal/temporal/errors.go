package temporal

import "fmt"

// ConfigurationError reports a reduction request that can never succeed as
// configured, such as an unknown criterion or a week number past the year end.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// DataError reports malformed input series. Bad data fails the run; the
// engine never reorders or deduplicates on the caller's behalf.
type DataError struct {
	Series  string
	Message string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error for %s: %s", e.Series, e.Message)
}
