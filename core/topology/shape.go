// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package topology

import "fmt"

type jsonKind int

const (
	kindNull jsonKind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

func (k jsonKind) String() string {
	switch k {
	case kindNull:
		return "null"
	case kindBool:
		return "bool"
	case kindNumber:
		return "number"
	case kindString:
		return "string"
	case kindArray:
		return "array"
	default:
		return "object"
	}
}

func kindOf(v interface{}) jsonKind {
	switch v.(type) {
	case nil:
		return kindNull
	case bool:
		return kindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return kindNumber
	case string:
		return kindString
	case []interface{}:
		return kindArray
	default:
		return kindObject
	}
}

// JSON types of the known fields of each directory entry, checked against
// the generic decoding before the typed one.
var (
	mixNodeFields = map[string]jsonKind{
		"host":     kindString,
		"pubKey":   kindString,
		"version":  kindString,
		"location": kindString,
		"layer":    kindNumber,
		"lastSeen": kindNumber,
	}
	providerFields = map[string]jsonKind{
		"clientListener":    kindString,
		"mixnetListener":    kindString,
		"pubKey":            kindString,
		"version":           kindString,
		"location":          kindString,
		"registeredClients": kindArray,
		"lastSeen":          kindNumber,
	}
	registeredClientFields = map[string]jsonKind{
		"pubKey": kindString,
	}
	cocoNodeFields = map[string]jsonKind{
		"host":     kindString,
		"pubKey":   kindString,
		"type":     kindString,
		"version":  kindString,
		"location": kindString,
		"lastSeen": kindNumber,
	}
)

func checkShape(v interface{}) error {
	doc, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("document is a %v, expected object", kindOf(v))
	}
	for _, list := range []struct {
		name     string
		fields   map[string]jsonKind
		required bool
	}{
		{"mixNodes", mixNodeFields, true},
		{"mixProviderNodes", providerFields, true},
		{"cocoNodes", cocoNodeFields, false},
	} {
		entries, ok := doc[list.name]
		if !ok {
			if list.required {
				return fmt.Errorf("missing %s", list.name)
			}
			continue
		}
		if err := checkEntries(list.name, entries, list.fields); err != nil {
			return err
		}
	}
	return nil
}

func checkEntries(name string, v interface{}, fields map[string]jsonKind) error {
	entries, ok := v.([]interface{})
	if !ok {
		return fmt.Errorf("%s is a %v, expected array", name, kindOf(v))
	}
	for i, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%s[%d] is a %v, expected object", name, i, kindOf(e))
		}
		for field, want := range fields {
			fv, ok := entry[field]
			if !ok {
				continue
			}
			if got := kindOf(fv); got != want {
				return fmt.Errorf("%s[%d].%s is a %v, expected %v", name, i, field, got, want)
			}
		}
		if clients, ok := entry["registeredClients"]; ok && name == "mixProviderNodes" {
			if err := checkEntries(fmt.Sprintf("%s[%d].registeredClients", name, i), clients, registeredClientFields); err != nil {
				return err
			}
		}
	}
	return nil
}
