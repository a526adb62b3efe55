// Package snapshot reads subscription and usage documents from JSON files
// for offline evaluation. Documents are checked against embedded JSON
// Schemas before decoding so malformed input is reported with its path.
package snapshot

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"clubdesk/internal/entitlements"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	subscriptionSchema = "subscription.schema.json"
	usageSchema        = "usage.schema.json"
)

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		names := []string{subscriptionSchema, usageSchema}
		for _, name := range names {
			data, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				compileErr = err
				return
			}
			if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
				compileErr = err
				return
			}
		}
		compiled = make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			schema, err := compiler.Compile(name)
			if err != nil {
				compileErr = err
				return
			}
			compiled[name] = schema
		}
	})
	return compiled, compileErr
}

func validate(schemaName string, data []byte) error {
	all, err := schemas()
	if err != nil {
		return fmt.Errorf("compile schemas: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if err := all[schemaName].Validate(doc); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	return nil
}

// ReadSubscription decodes a subscription document. A JSON null means the
// organization has no subscription and yields nil.
func ReadSubscription(r io.Reader) (*entitlements.Subscription, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := validate(subscriptionSchema, data); err != nil {
		return nil, err
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	var sub entitlements.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, err
	}
	sub.Status = entitlements.NormalizeStatus(string(sub.Status))
	return &sub, nil
}

// ReadUsage decodes a usage document. Missing fields and a JSON null read as
// zero.
func ReadUsage(r io.Reader) (entitlements.Usage, error) {
	var usage entitlements.Usage
	data, err := io.ReadAll(r)
	if err != nil {
		return usage, err
	}
	if err := validate(usageSchema, data); err != nil {
		return usage, err
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return usage, nil
	}
	if err := json.Unmarshal(data, &usage); err != nil {
		return usage, err
	}
	return usage, nil
}
