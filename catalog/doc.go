// Package catalog sorts model identifiers into named families by prefix.
//
// Rules are evaluated top to bottom and the first matching rule wins. Identifiers no rule
// matches land in the trailing "other" category. Members of every category are sorted;
// duplicates are kept.
//
// # What this package must NOT do
//
//   - Call the network. Model lists are read from files or any io.Reader.
//   - Rewrite or normalise identifiers.
package catalog
