// Package harness runs query scenarios against a throwaway SQLite store.
//
// A scenario loads entity schemas, inserts setup rows through the form
// pipeline (sanitize, validate, seal ciphered fields), runs page requests,
// and checks the resulting pages and statements.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: active_customers
//	description: "Filters and orders customers"
//	schemas:
//	  - ../schemas/customer.yaml
//	entity: Customer
//	default_order: id ASC
//	setup:
//	  - { name: "ada", email: "ADA@example.com", active: true }
//	flow:
//	  - page: 1
//	    per_page: 5
//	    filters: [{ cols: active, ops: Eq, vals: true }]
//	    orders: [{ cols: name, ops: Desc }]
//	    expect:
//	      filtered_count: 1
//	      records:
//	        - { name: "Ada", email: "ada@example.com" }
//	assertions:
//	  - type: sql_contains
//	    step: 1
//	    text: "WHERE active = $1"
//	  - type: final_state
//	    id: 1
//	    expect: { name: "Ada" }
//
// Schema paths are relative to the scenario file. Filters and orders may be
// written as YAML lists or as raw JSON strings; malformed ones are ignored
// like any client input.
//
// # Assertion Types
//
//   - sql_contains: the SELECT of a flow step contains text
//   - warning_contains: a spec warning of a flow step contains text
//   - final_state: the row with the given id has the expected fields
//
// # Deterministic Testing
//
// Every scenario gets a fresh in-memory database and a fixed test key, and
// int ids are assigned in insertion order, so traces compare byte for byte
// against golden files:
//
//	go test ./internal/harness -update
package harness
