// Package output renders ovecore-cli results as a table, JSON or YAML.
//
// Table output is driven by the Tabular interface: result types build
// their own rows. Values that are not Tabular fall back to JSON. YAML
// output keeps the JSON field names of the wire types.
package output
