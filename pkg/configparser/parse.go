// Package configparser turns a configuration document into flat
// dotted-key properties.
package configparser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format is the encoding detected for a document.
type Format int

const (
	YAML Format = iota
	JSON
)

func (f Format) String() string {
	if f == JSON {
		return "json"
	}
	return "yaml"
}

// ParseError is returned when a document is malformed for its detected format.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s configuration: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DetectFormat treats documents starting with '{' as JSON and everything else as YAML.
func DetectFormat(body []byte) Format {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return JSON
	}
	return YAML
}

// Parse flattens body into properties keyed by dotted paths, e.g.
// "inspectit.service-name". List elements are addressed as "key[i]".
// An empty or blank body yields an empty, non-nil map.
func Parse(body []byte) (map[string]string, error) {
	props := map[string]string{}
	if len(bytes.TrimSpace(body)) == 0 {
		return props, nil
	}

	format := DetectFormat(body)
	var parser koanf.Parser = yaml.Parser()
	if format == JSON {
		parser = &numberJSON{}
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(body), parser); err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}

	for key, value := range k.All() {
		flatten(key, value, props)
	}
	return props, nil
}

// numberJSON decodes numbers as json.Number so integers beyond 2^53 keep
// every digit, like they do in YAML.
type numberJSON struct {
	kjson.JSON
}

func (p *numberJSON) Unmarshal(b []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level object")
	}
	return out, nil
}

func flatten(key string, value interface{}, props map[string]string) {
	switch v := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(key+"."+k, v[k], props)
		}
	case []interface{}:
		for i, item := range v {
			flatten(fmt.Sprintf("%s[%d]", key, i), item, props)
		}
	default:
		props[key] = stringify(v)
	}
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		if strings.ContainsAny(v.String(), "eE") {
			if f, err := v.Float64(); err == nil {
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
		}
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return fmt.Sprint(value)
}
