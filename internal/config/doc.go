// Package config loads forkpin's YAML configuration.
//
// The file is optional: every field has a default, and a partial file only
// overrides the fields it names. The raw bytes are hashed so that audit
// entries can be tied to the exact configuration that produced them.
package config
