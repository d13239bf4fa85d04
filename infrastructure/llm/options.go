package llm

// options.go contains helpers for extracting provider-tunable settings
// from the generic option maps passed through the client interface.

// DefaultMaxTokens is the token ceiling applied when a call does not
// specify one.
const DefaultMaxTokens = 1024

// RequestOptions is the standardized set of request parameters shared by
// all providers.
type RequestOptions struct {
	// MaxTokens limits the number of tokens to generate.
	MaxTokens int
	// Model is the model identifier for this request.
	Model string
	// Temperature controls output randomness; nil means provider default.
	Temperature *float64
	// System carries the system prompt, sent as a separate message where
	// the provider supports it.
	System string
	// Label identifies the call site (evaluation, summary,
	// recommendations) for logging and metrics.
	Label string
}

// ParseRequestOptions extracts and validates request parameters from an
// options map, applying defaults for missing or invalid entries.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: ExtractOptionalInt(opts, "max_tokens", DefaultMaxTokens, IsPositiveInt),
		Model:     ExtractOptionalString(opts, "model", defaultModel, IsNonEmptyString),
		System:    ExtractOptionalString(opts, "system", "", nil),
		Label:     ExtractOptionalString(opts, "label", "api_call", nil),
	}

	if temp := ExtractOptionalFloat64(opts, "temperature", -1, IsValidTemperature); temp != -1 {
		options.Temperature = &temp
	}

	return options
}

// ExtractOptionalInt extracts an integer from an options map, returning
// defaultVal when the key is absent, mistyped, or fails validation.
func ExtractOptionalInt(opts map[string]any, key string, defaultVal int, validator func(int) bool) int {
	if opts == nil {
		return defaultVal
	}
	val, ok := opts[key]
	if !ok {
		return defaultVal
	}
	intVal, ok := val.(int)
	if !ok {
		return defaultVal
	}
	if validator != nil && !validator(intVal) {
		return defaultVal
	}
	return intVal
}

// ExtractOptionalString extracts a string from an options map, returning
// defaultVal when the key is absent, mistyped, or fails validation.
func ExtractOptionalString(opts map[string]any, key string, defaultVal string, validator func(string) bool) string {
	if opts == nil {
		return defaultVal
	}
	val, ok := opts[key]
	if !ok {
		return defaultVal
	}
	strVal, ok := val.(string)
	if !ok {
		return defaultVal
	}
	if validator != nil && !validator(strVal) {
		return defaultVal
	}
	return strVal
}

// ExtractOptionalFloat64 extracts a float64 from an options map, returning
// defaultVal when the key is absent, mistyped, or fails validation.
func ExtractOptionalFloat64(opts map[string]any, key string, defaultVal float64, validator func(float64) bool) float64 {
	if opts == nil {
		return defaultVal
	}
	val, ok := opts[key]
	if !ok {
		return defaultVal
	}
	floatVal, ok := val.(float64)
	if !ok {
		return defaultVal
	}
	if validator != nil && !validator(floatVal) {
		return defaultVal
	}
	return floatVal
}

// IsPositiveInt returns true if the integer is greater than 0.
func IsPositiveInt(val int) bool { return val > 0 }

// IsNonEmptyString returns true if the string is not empty.
func IsNonEmptyString(val string) bool { return val != "" }

// IsValidTemperature returns true if the float is a valid temperature
// (0.0 to 1.0).
func IsValidTemperature(val float64) bool { return val >= 0.0 && val <= 1.0 }
